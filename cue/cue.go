// Package cue plays short synthesized ticks that mark recording
// lifecycle transitions. Playback is best-effort: a missing or broken
// output device never blocks a cycle.
package cue

import (
	"math"
	"sync"
)

var enabled bool

// Enable turns playback on. The package stays silent until then.
func Enable() { enabled = true }

const (
	sampleRate = 44100

	// Start tick: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End tick: medium pitch, slightly longer ring
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error cue: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	startTone []int16
	endTone   []int16
	errorTone []int16
	toneOnce  sync.Once
)

func initTones() {
	startTone = tone(startFreq, 0.2, startVolume, startDecay)
	endTone = tone(endFreq, 0.2, endVolume, endDecay)
	errorTone = doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

// tone synthesizes a mono sine burst shaped by an exponential decay
// envelope.
func tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := tone(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(beep)*2+len(gap))
	out = append(out, beep...)
	out = append(out, gap...)
	out = append(out, beep...)
	return out
}

// Init pre-generates the tones and warms the playback device so the
// first cue plays without setup latency.
func Init() {
	if !enabled {
		return
	}
	toneOnce.Do(initTones)
	warmup()
}

// Start marks the beginning of a recording.
func Start() {
	if !enabled {
		return
	}
	toneOnce.Do(initTones)
	go play(startTone)
}

// End marks the end of a recording.
func End() {
	if !enabled {
		return
	}
	toneOnce.Do(initTones)
	go play(endTone)
}

// Error marks a failed cycle.
func Error() {
	if !enabled {
		return
	}
	toneOnce.Do(initTones)
	go play(errorTone)
}
