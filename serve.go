package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"vox/config"
	"vox/cue"
	"vox/engine"
	"vox/log"
	"vox/model"
	"vox/server"
	"vox/shutdown"
	"vox/update"
)

func runServe(cfg config.Config, echo bool) int {
	if err := log.Init(echo); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	modelsDir, err := config.ModelsDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	recordingsDir, err := config.RecordingsDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	store, err := model.NewManager(modelsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	audioCtx, err := newAudioContext()
	if err != nil {
		log.Errorf("audio context init: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer audioCtx.Close()

	if cfg.Audio.Cues {
		cue.Enable()
		go cue.Init()
	}

	srv, err := server.New(server.Options{
		Config:        cfg,
		Audio:         audioCtx,
		Store:         store,
		Engines:       engine.NewCache(store, newEngineFactory(cfg.Engine)),
		RecordingsDir: recordingsDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	go logUpdateAvailability()

	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// commandFactory maps a model family onto its external runner. Every
// engine is wrapped so each load and transcription lands in the
// service log with its timing.
func commandFactory(cfg config.Engine) engine.Factory {
	return func(family model.Engine) (engine.Engine, error) {
		var eng engine.Engine
		switch family {
		case model.EngineWhisper:
			eng = engine.NewWhisperCommand(cfg.WhisperBin, cfg.WhisperArgs)
		case model.EngineParakeet:
			if cfg.ParakeetBin == "" {
				return nil, errors.New("parakeet models need engine.parakeet_bin in the config")
			}
			eng = engine.NewParakeetCommand(cfg.ParakeetBin, cfg.ParakeetArgs)
		default:
			return nil, fmt.Errorf("no engine for model family %q", family)
		}
		return engine.NewTraced(eng), nil
	}
}

// logUpdateAvailability notes a newer release in the service log, once,
// at startup. Best effort; failures are silent.
func logUpdateAvailability() {
	rel, err := update.CheckLatestCached(version, log.Dir())
	if err != nil || rel == nil {
		return
	}
	log.Infof("update available: %s -> %s (run 'vox update')", version, rel.Version)
}
