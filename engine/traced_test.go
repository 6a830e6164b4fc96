package engine

import (
	"context"
	"errors"
	"testing"
)

func TestTracedPassesThrough(t *testing.T) {
	fake := NewFake("hello", nil)
	eng := NewTraced(fake)

	if err := eng.Load(context.Background(), "/models/whisper-tiny.bin"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	text, err := eng.Transcribe(context.Background(), "/tmp/clip.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want hello", text)
	}
	if got := fake.Transcribed(); len(got) != 1 || got[0] != "/tmp/clip.wav" {
		t.Errorf("inner saw %v, want [/tmp/clip.wav]", got)
	}

	eng.Unload()
	if _, err := fake.Transcribe(context.Background(), "x.wav"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("after Unload err = %v, want ErrNotLoaded", err)
	}
}

func TestTracedPropagatesErrors(t *testing.T) {
	boom := errors.New("decoder crashed")
	eng := NewTraced(NewFake("", boom))

	if err := eng.Load(context.Background(), "/models/whisper-tiny.bin"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := eng.Transcribe(context.Background(), "/tmp/clip.wav"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
