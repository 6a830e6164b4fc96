package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
)

// Buffer accumulates recorded samples across callback invocations. It is
// written from the device thread and consumed once by the transcription
// step, so the critical sections stay tiny.
type Buffer struct {
	mu      sync.Mutex
	samples []int16
}

func (b *Buffer) Append(samples []int16) {
	b.mu.Lock()
	b.samples = append(b.samples, samples...)
	b.mu.Unlock()
}

// Take hands the recorded samples off to the caller and clears the
// buffer. The returned slice is owned by the caller.
func (b *Buffer) Take() []int16 {
	b.mu.Lock()
	s := b.samples
	b.samples = nil
	b.mu.Unlock()
	return s
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	n := len(b.samples)
	b.mu.Unlock()
	return n
}

// Sink is the per-cycle recording callback state: the shared buffer, the
// cooperative stop flag, and the optional detectors and analyzer. Keeping
// it a plain struct with one entry point decouples the DSP from the
// device binding, so it is testable without a device.
type Sink struct {
	Buffer *Buffer
	Stop   *atomic.Bool

	Silence *SilenceDetector // optional
	Speech  *SpeechGate      // optional, extends silence while voice is active

	Analyzer *Analyzer      // optional
	Frames   chan []float32 // non-blocking sends; nil without Analyzer
	Levels   chan float64   // non-blocking sends; optional
}

// OnSamples handles one block from the capture device. Per block: honor
// the stop flag, feed silence/VAD detection, append PCM, emit a level,
// and emit spectrum frames as FFT windows fill.
func (s *Sink) OnSamples(samples []int16) {
	if s.Stop.Load() {
		return
	}

	if s.Silence != nil {
		s.Silence.Observe(samples)
		if s.Speech != nil {
			s.Speech.Observe(samples)
		}
		if s.Silence.ShouldStop() && (s.Speech == nil || !s.Speech.Active(s.Silence.Window())) {
			s.Stop.Store(true)
			return
		}
	}

	s.Buffer.Append(samples)

	if s.Levels != nil {
		select {
		case s.Levels <- Level(samples):
		default:
		}
	}

	if s.Analyzer != nil {
		for _, sample := range samples {
			if bands, ok := s.Analyzer.Push(float64(sample) / 32768.0); ok {
				select {
				case s.Frames <- bands:
				default:
				}
			}
		}
	}
}

// Callback adapts OnSamples to the raw byte signature of the capture
// layer.
func (s *Sink) Callback() DataCallback {
	return func(data []byte, _ uint32) {
		s.OnSamples(Samples(data))
	}
}

// Samples decodes interleaved 16-bit little-endian PCM bytes. A trailing
// odd byte is dropped.
func Samples(data []byte) []int16 {
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// Level is the RMS of a sample block normalized to [0,1].
func Level(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sumSquares += f * f
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}
