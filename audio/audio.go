// Package audio owns microphone capture and the DSP that feeds the
// session pipeline: the per-cycle recording sink, amplitude silence
// detection, an optional voice-activity gate, and the band spectrum
// analyzer behind broadcast events.
package audio

import "strings"

// DataCallback receives interleaved 16-bit little-endian PCM straight off
// the device thread. It must not block.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	// NewCapture binds a capture device for one recording cycle. A nil
	// device selects the system default.
	NewCapture(device *DeviceInfo, config CaptureConfig, cb DataCallback) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
}

// FindDevice matches a configured device name (case-insensitive
// substring) against the capture list. Empty name means default.
func FindDevice(devices []DeviceInfo, name string) *DeviceInfo {
	if name == "" {
		return nil
	}
	needle := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), needle) {
			return &devices[i]
		}
	}
	return nil
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth flags headset mics that typically capture at degraded
// quality; the doctor and device listing warn on these.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
