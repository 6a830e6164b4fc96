package main

import (
	"os"

	"vox/audio"
	"vox/config"
	"vox/engine"
	"vox/model"
)

// Environment hooks for integration tests and demos. They keep -serve
// off real hardware and external runners: VOX_FAKE_MIC names a WAV file
// replayed through the capture interface (silence follows it, so the
// silence detector ends the cycle naturally), and VOX_FAKE_ENGINE makes
// every transcription return its value verbatim.

func newAudioContext() (audio.Context, error) {
	if path := os.Getenv("VOX_FAKE_MIC"); path != "" {
		return audio.NewFakeContextFromWAV(path, os.Getenv("VOX_FAKE_MIC_REALTIME") == "1")
	}
	return audio.NewContext()
}

func newEngineFactory(cfg config.Engine) engine.Factory {
	if text, ok := os.LookupEnv("VOX_FAKE_ENGINE"); ok {
		return func(model.Engine) (engine.Engine, error) {
			return engine.NewFake(text, nil), nil
		}
	}
	return commandFactory(cfg)
}
