package audio

import (
	"sync"
	"testing"
	"time"
)

func TestFakeCapturePlaysContentThenSilence(t *testing.T) {
	content := make([]int16, 3000)
	for i := range content {
		content[i] = int16(i%2000 - 1000)
	}
	ctx := NewFakeContext(content, 16000, false)

	var mu sync.Mutex
	var got []int16
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1}, func(data []byte, _ uint32) {
		mu.Lock()
		got = append(got, Samples(data)...)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewCapture: %v", err)
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > len(content) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("fake capture did not deliver content and trailing silence in time")
		case <-time.After(time.Millisecond):
		}
	}
	dev.Stop()

	mu.Lock()
	defer mu.Unlock()
	for i := range content {
		if got[i] != content[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], content[i])
		}
	}
	for _, s := range got[len(content):] {
		if s != 0 {
			t.Fatalf("expected silence after content, got %d", s)
		}
	}
}

func TestFakeCaptureReplaysPerCapture(t *testing.T) {
	content := []int16{1, 2, 3, 4, 5}
	ctx := NewFakeContext(content, 16000, false)

	for run := 0; run < 2; run++ {
		var mu sync.Mutex
		var got []int16
		dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1}, func(data []byte, _ uint32) {
			mu.Lock()
			got = append(got, Samples(data)...)
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("run %d: NewCapture: %v", run, err)
		}
		if err := dev.Start(); err != nil {
			t.Fatalf("run %d: Start: %v", run, err)
		}
		time.Sleep(10 * time.Millisecond)
		dev.Close()

		mu.Lock()
		if len(got) < len(content) {
			t.Fatalf("run %d: only %d samples delivered", run, len(got))
		}
		for i := range content {
			if got[i] != content[i] {
				t.Fatalf("run %d: sample %d = %d, want %d", run, i, got[i], content[i])
			}
		}
		mu.Unlock()
	}
}

func TestFakeStopIsIdempotent(t *testing.T) {
	ctx := NewFakeContext([]int16{1, 2, 3}, 16000, false)
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1}, func([]byte, uint32) {})
	if err != nil {
		t.Fatalf("NewCapture: %v", err)
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dev.Stop()
	dev.Stop()
	dev.Close()
}

func TestFakeDevices(t *testing.T) {
	ctx := NewFakeContext(nil, 16000, false)
	devices, err := ctx.Devices()
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 1 || devices[0].Name != "Fake Microphone" {
		t.Fatalf("devices = %v", devices)
	}
}
