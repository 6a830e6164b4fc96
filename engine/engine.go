// Package engine runs speech-to-text inference over recorded audio via
// external model runners, and keeps at most one model resident per
// service.
package engine

import (
	"context"
	"errors"

	"vox/model"
)

var ErrNotLoaded = errors.New("no model loaded")

// Engine is one inference backend bound to at most one model at a time.
// Implementations are safe for use from a single session goroutine.
type Engine interface {
	// Load prepares the model at path for transcription.
	Load(ctx context.Context, modelPath string) error
	// Transcribe converts a WAV recording to text.
	Transcribe(ctx context.Context, wavPath string) (string, error)
	// Unload releases the model.
	Unload()
}

// Factory builds a fresh engine for a model family. The service wires
// one from its configuration.
type Factory func(family model.Engine) (Engine, error)
