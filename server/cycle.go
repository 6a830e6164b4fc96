package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"vox/audio"
	"vox/config"
	"vox/cue"
	"vox/log"
	"vox/protocol"
)

// cyclePollInterval is how often the coordinating loop checks the stop
// flag and the duration limit. Stopping is cooperative, not preemptive.
const cyclePollInterval = 100 * time.Millisecond

// runCycle drives one recording and transcription pass after admission.
// It owns every state transition and always leaves the session Idle or,
// on failure, Error until the next cycle begins.
func (s *Server) runCycle(ctx context.Context, req protocol.Request, stop *atomic.Bool) protocol.Response {
	result, err := s.cycle(ctx, req, stop)
	if err != nil {
		cue.Error()
		s.finishCycle(protocol.StateError)
		return protocol.NewError(req.ID, err.Error())
	}
	s.finishCycle(protocol.StateIdle)
	return result
}

func (s *Server) cycle(ctx context.Context, req protocol.Request, stop *atomic.Bool) (protocol.Result, error) {
	// BeginCycle already moved the session to Recording.
	s.broadcastState(protocol.StateRecording)

	rec, err := s.record(req, stop)
	if err != nil {
		log.CycleError("record", err.Error())
		return protocol.Result{}, err
	}

	s.session.SetState(protocol.StateTranscribing)
	s.broadcastState(protocol.StateTranscribing)

	wavPath := filepath.Join(s.recDir, time.Now().Format("2006-01-02_15-04-05.000")+".wav")
	if err := audio.WriteWAV(wavPath, rec.samples, rec.rate); err != nil {
		log.CycleError("persist", err.Error())
		return protocol.Result{}, err
	}

	eng, err := s.engines.EnsureLoaded(ctx, s.cfg.Service.Model)
	if err != nil {
		log.CycleError("engine", err.Error())
		return protocol.Result{}, err
	}

	start := time.Now()
	text, err := eng.Transcribe(ctx, wavPath)
	if err != nil {
		log.CycleError("transcribe", err.Error())
		return protocol.Result{}, fmt.Errorf("transcription failed: %w", err)
	}

	name, _, _ := s.engines.Current()
	log.Cycle(log.CycleMetrics{
		RecordingS:   rec.seconds,
		Samples:      len(rec.samples),
		TranscribeMs: float64(time.Since(start).Milliseconds()),
		TextLen:      len(text),
		Model:        name,
		StoppedBy:    rec.stoppedBy,
	})
	go s.archive(wavPath)
	return protocol.NewResult(req.ID, text, rec.seconds, name), nil
}

func (s *Server) finishCycle(st protocol.State) {
	s.session.EndCycle(st)
	s.broadcastState(st)
}

func (s *Server) broadcastState(st protocol.State) {
	s.subs.Broadcast(protocol.NewStateEvent(st, s.idleHot(), s.session.ElapsedMS()))
}

type recording struct {
	samples   []int16
	rate      int
	seconds   float64
	stoppedBy string
}

// record captures audio until the silence detector, the duration limit,
// or a stop request trips the shared flag.
func (s *Server) record(req protocol.Request, stop *atomic.Bool) (recording, error) {
	rate := req.SampleRate
	if rate <= 0 {
		rate = s.cfg.Audio.SampleRate
	}

	sink := &audio.Sink{
		Buffer:   &audio.Buffer{},
		Stop:     stop,
		Silence:  audio.NewSilenceDetector(s.cfg.Audio.SilenceThreshold, time.Duration(req.SilenceDuration)*time.Second),
		Analyzer: audio.NewAnalyzer(spectrumConfig(s.cfg.Spectrum), rate),
		Frames:   make(chan []float32, 16),
		Levels:   make(chan float64, 16),
	}
	if s.cfg.Audio.VAD {
		gate, err := audio.NewSpeechGate(rate)
		if err != nil {
			log.Warnf("voice activity detection unavailable: %v", err)
		} else {
			sink.Speech = gate
		}
	}

	dev, err := s.audio.NewCapture(s.pickDevice(), audio.CaptureConfig{SampleRate: uint32(rate), Channels: 1}, sink.Callback())
	if err != nil {
		return recording{}, fmt.Errorf("open capture device: %w", err)
	}
	defer dev.Close()

	if err := dev.Start(); err != nil {
		return recording{}, fmt.Errorf("start capture: %w", err)
	}
	cue.Start()

	pumpDone := make(chan struct{})
	pumpFinished := make(chan struct{})
	go func() {
		defer close(pumpFinished)
		s.pumpEvents(sink, pumpDone)
	}()

	start := time.Now()
	limit := time.Duration(req.MaxDuration) * time.Second
	stoppedBy := "stop_request"
	for {
		if stop.Load() {
			if sink.Silence.ShouldStop() {
				stoppedBy = "silence"
			}
			break
		}
		if time.Since(start) >= limit {
			stoppedBy = "max_duration"
			stop.Store(true)
			break
		}
		time.Sleep(cyclePollInterval)
	}

	dev.Stop()
	cue.End()
	close(pumpDone)
	<-pumpFinished

	seconds := time.Since(start).Seconds()
	samples := sink.Buffer.Take()
	if len(samples) == 0 {
		return recording{}, errors.New("no audio recorded")
	}
	return recording{samples: samples, rate: rate, seconds: seconds, stoppedBy: stoppedBy}, nil
}

// pumpEvents forwards level and spectrum frames off the device thread
// to subscribers for as long as a recording runs.
func (s *Server) pumpEvents(sink *audio.Sink, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case v := <-sink.Levels:
			s.session.SetLevel(v)
			s.subs.Broadcast(protocol.NewLevelEvent(v, s.session.ElapsedMS()))
		case bands := <-sink.Frames:
			s.subs.Broadcast(protocol.NewSpectrumEvent(bands, s.session.ElapsedMS()))
		}
	}
}

// pickDevice resolves the configured device name, falling back to the
// system default when it is absent.
func (s *Server) pickDevice() *audio.DeviceInfo {
	if s.cfg.Audio.Device == "" {
		return nil
	}
	devices, err := s.audio.Devices()
	if err != nil {
		log.Warnf("list devices: %v", err)
		return nil
	}
	dev := audio.FindDevice(devices, s.cfg.Audio.Device)
	if dev == nil {
		log.Warnf("audio device %q not found, using default", s.cfg.Audio.Device)
	}
	return dev
}

func spectrumConfig(cfg config.Spectrum) audio.SpectrumConfig {
	bands := make([]audio.BandConfig, len(cfg.Bands))
	for i, b := range cfg.Bands {
		bands[i] = audio.BandConfig{Low: b.Low, High: b.High, Weight: b.Weight, Bass: b.Kind == "bass"}
	}
	return audio.SpectrumConfig{
		FFTSize:    cfg.FFTSize,
		Smoothing:  cfg.Smoothing,
		NoiseFloor: cfg.NoiseFloor,
		BassGate:   cfg.BassGate,
		SpeechGate: cfg.SpeechGate,
		Bands:      bands,
	}
}
