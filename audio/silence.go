package audio

import (
	"sync"
	"time"
)

// SilenceDetector tracks the time of the last sample above the amplitude
// threshold. It is updated from the device callback and polled from the
// coordinating task, so the clock lives behind a mutex with single-field
// critical sections.
type SilenceDetector struct {
	threshold int16 // precomputed from the normalized threshold
	window    time.Duration

	mu        sync.Mutex
	lastSound time.Time

	now func() time.Time
}

// NewSilenceDetector builds a detector. threshold is normalized amplitude
// in [0,1]; window is how long below-threshold audio must persist before
// ShouldStop reports true.
func NewSilenceDetector(threshold float64, window time.Duration) *SilenceDetector {
	d := &SilenceDetector{
		threshold: int16(threshold * 32767),
		window:    window,
		now:       time.Now,
	}
	d.lastSound = d.now()
	return d
}

// Observe scans a callback block. Any sample at or above the threshold
// resets the silence clock.
func (d *SilenceDetector) Observe(samples []int16) {
	for _, s := range samples {
		// abs would overflow at -32768
		if s >= d.threshold || s <= -d.threshold {
			d.mu.Lock()
			d.lastSound = d.now()
			d.mu.Unlock()
			return
		}
	}
}

// ShouldStop reports whether the silence window has elapsed since the
// last above-threshold sample.
func (d *SilenceDetector) ShouldStop() bool {
	d.mu.Lock()
	last := d.lastSound
	d.mu.Unlock()
	return d.now().Sub(last) > d.window
}

// Reset restarts the silence clock, as if sound was just heard.
func (d *SilenceDetector) Reset() {
	d.mu.Lock()
	d.lastSound = d.now()
	d.mu.Unlock()
}

func (d *SilenceDetector) Window() time.Duration {
	return d.window
}
