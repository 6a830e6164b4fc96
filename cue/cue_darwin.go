//go:build darwin

package cue

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	deviceMu sync.Mutex

	// Pending tone, consumed by the device callback.
	pending atomic.Pointer[[]byte]
	pos     atomic.Uint32
)

func warmup() {
	deviceMu.Lock()
	defer deviceMu.Unlock()
	if device == nil {
		initDevice()
	}
}

func initDevice() error {
	if malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return err
		}
		malgoCtx = ctx
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func dataCallback(out, _ []byte, frameCount uint32) {
	samples := pending.Load()
	if samples == nil || len(*samples) == 0 {
		zero(out)
		return
	}

	p := pos.Load()
	total := uint32(len(*samples))
	want := frameCount * 2
	remaining := total - p

	if remaining == 0 {
		pending.Store(nil)
		zero(out)
		return
	}
	if want > remaining {
		want = remaining
	}
	copy(out[:want], (*samples)[p:p+want])
	pos.Store(p + want)
	zero(out[want:])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func play(tone []int16) {
	if len(tone) == 0 {
		return
	}
	buf := make([]byte, len(tone)*2)
	for i, s := range tone {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}

	deviceMu.Lock()
	defer deviceMu.Unlock()

	if device == nil {
		if initDevice() != nil {
			return
		}
	}

	// Stop first so a cue arriving mid-playback restarts cleanly.
	device.Stop()
	pos.Store(0)
	pending.Store(&buf)

	if err := device.Start(); err != nil {
		// Sleep/wake can invalidate the device; recreate it once.
		device.Uninit()
		device = nil
		if initDevice() != nil {
			pending.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			pending.Store(nil)
		}
	}
}
