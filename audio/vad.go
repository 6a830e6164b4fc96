package audio

import (
	"sync"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const (
	vadMode     = 3 // most aggressive filtering
	vadFrameMs  = 20
	vadDebounce = 3 // consecutive speech frames to confirm voice
)

// Detector classifies one PCM frame as speech. Satisfied by
// *webrtcvad.VAD; tests substitute a canned implementation.
type Detector interface {
	Process(rate int, frame []byte) (bool, error)
}

// SpeechGate runs voice activity detection over the capture stream. It
// backs up the amplitude-based silence detector: a whisper can sit
// below the amplitude threshold while still being speech, and the gate
// keeps the recording open in that case.
type SpeechGate struct {
	det        Detector
	sampleRate int
	frameBytes int

	mu        sync.Mutex
	buf       []byte
	active    bool
	lastVoice time.Time
	run       int

	now func() time.Time
}

// NewSpeechGate creates a gate over the WebRTC VAD. The sample rate
// must be one the VAD supports (8, 16, 32 or 48 kHz).
func NewSpeechGate(sampleRate int) (*SpeechGate, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return newSpeechGate(v, sampleRate), nil
}

func newSpeechGate(det Detector, sampleRate int) *SpeechGate {
	return &SpeechGate{
		det:        det,
		sampleRate: sampleRate,
		frameBytes: sampleRate * vadFrameMs / 1000 * 2,
		now:        time.Now,
	}
}

// Observe feeds captured samples through the detector in 20ms frames.
// Partial frames are carried over to the next call.
func (g *SpeechGate) Observe(samples []int16) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range samples {
		g.buf = append(g.buf, byte(s), byte(s>>8))
	}
	for len(g.buf) >= g.frameBytes {
		frame := g.buf[:g.frameBytes]
		g.buf = g.buf[g.frameBytes:]

		voiced, err := g.det.Process(g.sampleRate, frame)
		if err != nil {
			continue
		}
		if !voiced {
			g.run = 0
			continue
		}
		g.run++
		if g.active {
			g.lastVoice = g.now()
		} else if g.run >= vadDebounce {
			g.active = true
			g.lastVoice = g.now()
		}
	}
}

// Active reports whether confirmed voice was heard within the trailing
// window.
func (g *SpeechGate) Active(window time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return false
	}
	return g.now().Sub(g.lastVoice) <= window
}

// Reset clears all detection state for a new recording cycle.
func (g *SpeechGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buf = g.buf[:0]
	g.active = false
	g.lastVoice = time.Time{}
	g.run = 0
}
