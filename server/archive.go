package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vox/audio"
	"vox/encoder"
	"vox/log"
)

// archive converts a finished recording to the configured format and
// trims the directory to the retention limit. It runs after the result
// is on the wire; failures only log.
func (s *Server) archive(wavPath string) {
	if err := s.transcode(wavPath); err != nil {
		log.Warnf("archive %s: %v", filepath.Base(wavPath), err)
	}
	if err := s.prune(); err != nil {
		log.Warnf("prune recordings: %v", err)
	}
}

func (s *Server) transcode(wavPath string) error {
	format := s.cfg.Recordings.Format
	if format == "" || format == "wav" {
		return nil
	}

	samples, rate, err := audio.ReadWAV(wavPath)
	if err != nil {
		return err
	}
	enc, err := encoder.New(format, rate)
	if err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < len(samples); i += encoder.BlockSize {
		end := i + encoder.BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return err
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	out := strings.TrimSuffix(wavPath, ".wav") + "." + format
	if err := os.WriteFile(out, enc.Bytes(), 0o644); err != nil {
		return err
	}
	if err := os.Remove(wavPath); err != nil {
		return fmt.Errorf("remove original: %w", err)
	}
	log.Infof("archived %s (%d samples, %d bytes, %dms)",
		filepath.Base(out), len(samples), len(enc.Bytes()), time.Since(start).Milliseconds())
	return nil
}

// prune removes the oldest recordings beyond the retention limit.
// Filenames carry the capture timestamp, so lexical order is age order.
func (s *Server) prune() error {
	keep := s.cfg.Recordings.Keep
	if keep <= 0 {
		return nil
	}

	entries, err := os.ReadDir(s.recDir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return nil
	}

	sort.Strings(names)
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(s.recDir, name)); err != nil {
			return err
		}
	}
	return nil
}
