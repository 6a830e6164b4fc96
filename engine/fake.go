package engine

import (
	"context"
	"sync"
	"time"
)

// Fake is a canned engine for tests and for running the service without
// a real runner installed.
type Fake struct {
	Text    string
	LoadErr error
	Err     error
	Delay   time.Duration

	mu          sync.Mutex
	modelPath   string
	loads       int
	transcribed []string
}

func NewFake(text string, err error) *Fake {
	return &Fake{Text: text, Err: err}
}

func (f *Fake) Load(_ context.Context, modelPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.modelPath = modelPath
	f.loads++
	return nil
}

func (f *Fake) Transcribe(ctx context.Context, wavPath string) (string, error) {
	f.mu.Lock()
	loaded := f.modelPath != ""
	delay := f.Delay
	fail := f.Err
	text := f.Text
	f.mu.Unlock()
	if !loaded {
		return "", ErrNotLoaded
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	if fail != nil {
		return "", fail
	}
	f.mu.Lock()
	f.transcribed = append(f.transcribed, wavPath)
	f.mu.Unlock()
	return text, nil
}

// SetErr swaps the canned failure between calls.
func (f *Fake) SetErr(err error) {
	f.mu.Lock()
	f.Err = err
	f.mu.Unlock()
}

func (f *Fake) Unload() {
	f.mu.Lock()
	f.modelPath = ""
	f.mu.Unlock()
}

// Loads counts successful Load calls.
func (f *Fake) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// Transcribed lists the WAV paths passed to Transcribe.
func (f *Fake) Transcribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transcribed...)
}
