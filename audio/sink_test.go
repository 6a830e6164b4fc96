package audio

import (
	"math"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSink() *Sink {
	return &Sink{
		Buffer: &Buffer{},
		Stop:   &atomic.Bool{},
	}
}

func TestSinkAppendsSamples(t *testing.T) {
	s := newTestSink()
	s.OnSamples([]int16{1, 2, 3})
	s.OnSamples([]int16{4, 5})

	got := s.Buffer.Take()
	want := []int16{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
	if s.Buffer.Len() != 0 {
		t.Error("Take should clear the buffer")
	}
}

func TestSinkIgnoresAfterStop(t *testing.T) {
	s := newTestSink()
	s.Stop.Store(true)
	s.OnSamples([]int16{1, 2, 3})
	if s.Buffer.Len() != 0 {
		t.Error("stopped sink must not record")
	}
}

func TestSinkStopsOnSilence(t *testing.T) {
	s := newTestSink()
	det, clk := newTestDetector(0.01, time.Second)
	s.Silence = det

	s.OnSamples([]int16{8000, 8000})
	if s.Stop.Load() {
		t.Fatal("unexpected stop while sound is present")
	}

	clk.Advance(1100 * time.Millisecond)
	s.OnSamples([]int16{0, 0})
	if !s.Stop.Load() {
		t.Fatal("expected stop after silence window")
	}
	if s.Buffer.Len() != 2 {
		t.Errorf("trailing silent block should not be recorded, buffer has %d samples", s.Buffer.Len())
	}
}

func TestSpeechGateHoldsRecordingOpen(t *testing.T) {
	s := newTestSink()
	det, clk := newTestDetector(0.01, time.Second)
	s.Silence = det

	gate := newSpeechGate(scriptedDetector{voiced: true}, 16000)
	gate.now = clk.Now
	s.Speech = gate

	// A whisper halfway into the silence window: enough frames for the
	// VAD to confirm voice, but below the amplitude threshold.
	whisper := make([]int16, 320*vadDebounce)
	for i := range whisper {
		whisper[i] = 100
	}
	clk.Advance(500 * time.Millisecond)
	s.OnSamples(whisper)

	// Amplitude silence has now lasted 1.1s, but voice was heard 0.6s
	// ago, so the recording stays open.
	clk.Advance(600 * time.Millisecond)
	s.OnSamples([]int16{100, 100})
	if s.Stop.Load() {
		t.Fatal("recent voice activity should hold the recording open")
	}

	// Voice expires once the gate window passes without new frames.
	gate.det = scriptedDetector{voiced: false}
	clk.Advance(600 * time.Millisecond)
	s.OnSamples([]int16{0, 0})
	if !s.Stop.Load() {
		t.Fatal("expected stop once voice activity expired")
	}
}

func TestSinkEmitsLevels(t *testing.T) {
	s := newTestSink()
	s.Levels = make(chan float64, 1)

	block := make([]int16, 256)
	for i := range block {
		block[i] = 16384
	}
	s.OnSamples(block)

	select {
	case v := <-s.Levels:
		if math.Abs(v-0.5) > 0.001 {
			t.Errorf("level = %f, want 0.5", v)
		}
	default:
		t.Fatal("expected a level on the channel")
	}

	// A full channel must not block the device callback.
	s.Levels <- 0.9
	s.OnSamples(block)
}

func TestSinkEmitsSpectrumFrames(t *testing.T) {
	s := newTestSink()
	s.Analyzer = NewAnalyzer(DefaultSpectrumConfig(), 16000)
	s.Frames = make(chan []float32, 4)

	block := make([]int16, 512)
	for i := range block {
		block[i] = int16(16000 * math.Sin(2*math.Pi*1500*float64(i)/16000))
	}
	s.OnSamples(block)

	select {
	case bands := <-s.Frames:
		if len(bands) != 8 {
			t.Fatalf("frame has %d bands, want 8", len(bands))
		}
	default:
		t.Fatal("expected a spectrum frame after a full FFT window")
	}
}

func TestSamplesDecodesLittleEndian(t *testing.T) {
	data := []byte{0x01, 0x00, 0xFF, 0xFF, 0x00, 0x80, 0xAB}
	got := Samples(data)
	want := []int16{1, -1, -32768}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestLevel(t *testing.T) {
	if v := Level(nil); v != 0 {
		t.Errorf("Level(nil) = %f, want 0", v)
	}
	if v := Level([]int16{0, 0, 0}); v != 0 {
		t.Errorf("silence level = %f, want 0", v)
	}
	v := Level([]int16{16384, -16384})
	if math.Abs(v-0.5) > 0.001 {
		t.Errorf("level = %f, want 0.5", v)
	}
}

func TestCallbackAdapter(t *testing.T) {
	s := newTestSink()
	cb := s.Callback()
	cb([]byte{0x10, 0x00, 0x20, 0x00}, 2)
	got := s.Buffer.Take()
	if len(got) != 2 || got[0] != 0x10 || got[1] != 0x20 {
		t.Fatalf("decoded samples = %v", got)
	}
}
