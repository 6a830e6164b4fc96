package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNormalizeArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{"{model}", "{audio}"}},
		{"both present", []string{"--model", "{model}", "--wav", "{audio}"}, []string{"--model", "{model}", "--wav", "{audio}"}},
		{"missing audio", []string{"-m", "{model}"}, []string{"-m", "{model}", "{audio}"}},
		{"missing model", []string{"-f", "{audio}"}, []string{"-f", "{audio}", "{model}"}},
	}
	for _, tt := range tests {
		got := normalizeArgs(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("%s: arg %d = %q, want %q", tt.name, i, got[i], tt.want[i])
			}
		}
	}
}

func TestWhisperCommandDefaults(t *testing.T) {
	c := NewWhisperCommand("", []string{"--no-timestamps", "--no-prints"})
	if c.bin != "whisper-cli" {
		t.Errorf("bin = %q, want whisper-cli", c.bin)
	}
	want := []string{"--no-timestamps", "--no-prints", "-m", "{model}", "-f", "{audio}"}
	if len(c.args) != len(want) {
		t.Fatalf("args = %v, want %v", c.args, want)
	}
	for i := range want {
		if c.args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, c.args[i], want[i])
		}
	}
}

func bigModelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(path, make([]byte, corruptSizeFloor), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommandLoadValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing runner", func(t *testing.T) {
		c := NewWhisperCommand("definitely-not-a-real-binary-name", nil)
		err := c.Load(ctx, bigModelFile(t))
		if err == nil || !strings.Contains(err.Error(), "not found in PATH") {
			t.Fatalf("err = %v, want runner-not-found", err)
		}
	})

	t.Run("missing model", func(t *testing.T) {
		c := NewWhisperCommand("sh", nil)
		err := c.Load(ctx, filepath.Join(t.TempDir(), "absent.bin"))
		if err == nil || !strings.Contains(err.Error(), "model file not found") {
			t.Fatalf("err = %v, want model-not-found", err)
		}
	})

	t.Run("truncated model", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tiny.bin")
		if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
			t.Fatal(err)
		}
		c := NewWhisperCommand("sh", nil)
		err := c.Load(ctx, path)
		if err == nil || !strings.Contains(err.Error(), "may be corrupt") {
			t.Fatalf("err = %v, want corrupt-size error", err)
		}
	})

	t.Run("valid file model", func(t *testing.T) {
		c := NewWhisperCommand("sh", nil)
		if err := c.Load(ctx, bigModelFile(t)); err != nil {
			t.Fatalf("Load: %v", err)
		}
	})

	t.Run("dir model skips size check", func(t *testing.T) {
		c := NewParakeetCommand("sh", nil)
		if err := c.Load(ctx, t.TempDir()); err != nil {
			t.Fatalf("Load dir model: %v", err)
		}
	})
}

func TestCommandTranscribeNotLoaded(t *testing.T) {
	c := NewWhisperCommand("sh", nil)
	if _, err := c.Transcribe(context.Background(), "x.wav"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("err = %v, want ErrNotLoaded", err)
	}
}

func TestCommandTranscribeSubstitutesPaths(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "take.wav")
	if err := os.WriteFile(audio, []byte("hello from the recording"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The runner prints the audio file back, proving {audio} was
	// substituted with the real path.
	c := NewParakeetCommand("sh", []string{"-c", `cat "$2"`, "sh", "{model}", "{audio}"})
	if err := c.Load(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := c.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello from the recording" {
		t.Errorf("output = %q", got)
	}
}

func TestCommandTranscribeFailure(t *testing.T) {
	c := NewParakeetCommand("sh", []string{"-c", "echo runner exploded >&2; exit 3", "sh"})
	if err := c.Load(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err := c.Transcribe(context.Background(), "x.wav")
	if err == nil || !strings.Contains(err.Error(), "runner exploded") {
		t.Fatalf("err = %v, want stderr detail", err)
	}
}

func TestCommandTranscribeCancel(t *testing.T) {
	c := NewParakeetCommand("sh", []string{"-c", "sleep 10", "sh"})
	if err := c.Load(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Transcribe(ctx, "x.wav")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("cancellation did not kill the runner promptly")
	}
}

func TestCommandUnload(t *testing.T) {
	c := NewWhisperCommand("sh", nil)
	if err := c.Load(context.Background(), bigModelFile(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Unload()
	if _, err := c.Transcribe(context.Background(), "x.wav"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("err after Unload = %v, want ErrNotLoaded", err)
	}
}
