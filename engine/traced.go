package engine

import (
	"context"
	"path/filepath"
	"time"

	"vox/log"
)

// Traced decorates an engine with per-invocation timing in the service
// log. The cycle metrics aggregate per request; this keeps the stage
// breakdown next to the backend that produced it.
type Traced struct {
	inner Engine
}

func NewTraced(inner Engine) *Traced {
	return &Traced{inner: inner}
}

func (t *Traced) Load(ctx context.Context, modelPath string) error {
	start := time.Now()
	err := t.inner.Load(ctx, modelPath)
	log.EngineRun("load", filepath.Base(modelPath), float64(time.Since(start).Milliseconds()), err)
	return err
}

func (t *Traced) Transcribe(ctx context.Context, wavPath string) (string, error) {
	start := time.Now()
	text, err := t.inner.Transcribe(ctx, wavPath)
	log.EngineRun("transcribe", filepath.Base(wavPath), float64(time.Since(start).Milliseconds()), err)
	return text, err
}

func (t *Traced) Unload() {
	t.inner.Unload()
}
