package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

const corruptSizeFloor = 1_000_000 // single-file models below this are assumed truncated

// Command transcribes by invoking an external runner per recording.
// Arguments may reference {model} and {audio} placeholders; both are
// appended when absent so plain runners work unconfigured.
type Command struct {
	bin  string
	args []string

	mu        sync.Mutex
	modelPath string
}

// NewWhisperCommand builds a runner for whisper.cpp's CLI. extraArgs
// come before the model and audio flags.
func NewWhisperCommand(bin string, extraArgs []string) *Command {
	if bin == "" {
		bin = "whisper-cli"
	}
	args := append(append([]string{}, extraArgs...), "-m", "{model}", "-f", "{audio}")
	return &Command{bin: bin, args: args}
}

// NewParakeetCommand builds a runner for a user-supplied parakeet CLI.
func NewParakeetCommand(bin string, args []string) *Command {
	return &Command{bin: bin, args: normalizeArgs(args)}
}

func normalizeArgs(args []string) []string {
	out := append([]string{}, args...)
	var hasModel, hasAudio bool
	for _, a := range out {
		if strings.Contains(a, "{model}") {
			hasModel = true
		}
		if strings.Contains(a, "{audio}") {
			hasAudio = true
		}
	}
	if !hasModel {
		out = append(out, "{model}")
	}
	if !hasAudio {
		out = append(out, "{audio}")
	}
	return out
}

// Load validates the runner and the model artifact. A suspiciously
// small single-file model is rejected up front rather than failing
// cryptically inside the runner.
func (c *Command) Load(_ context.Context, modelPath string) error {
	if _, err := exec.LookPath(c.bin); err != nil {
		return fmt.Errorf("transcription runner %q not found in PATH", c.bin)
	}
	fi, err := os.Stat(modelPath)
	if err != nil {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	if !fi.IsDir() && fi.Size() < corruptSizeFloor {
		return fmt.Errorf("model file may be corrupt (size: %d bytes), try re-downloading it", fi.Size())
	}

	c.mu.Lock()
	c.modelPath = modelPath
	c.mu.Unlock()
	return nil
}

func (c *Command) Transcribe(ctx context.Context, wavPath string) (string, error) {
	c.mu.Lock()
	modelPath := c.modelPath
	c.mu.Unlock()
	if modelPath == "" {
		return "", ErrNotLoaded
	}

	args := make([]string, len(c.args))
	for i, a := range c.args {
		a = strings.ReplaceAll(a, "{model}", modelPath)
		a = strings.ReplaceAll(a, "{audio}", wavPath)
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %w: %s", c.bin, err, lastLine(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (c *Command) Unload() {
	c.mu.Lock()
	c.modelPath = ""
	c.mu.Unlock()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
