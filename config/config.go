// Package config holds the service configuration: compiled defaults, the
// optional TOML file under the user config directory, and the platform
// path conventions for models, recordings, and the socket.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Service    Service    `toml:"service"`
	Audio      Audio      `toml:"audio"`
	Spectrum   Spectrum   `toml:"spectrum"`
	Engine     Engine     `toml:"engine"`
	Delivery   Delivery   `toml:"delivery"`
	Recordings Recordings `toml:"recordings"`
}

type Service struct {
	// SocketPath may contain $UID and $RUNTIME_DIRECTORY tokens,
	// expanded by ExpandSocketPath at bind/connect time.
	SocketPath string `toml:"socket_path"`
	Model      string `toml:"model"`
	// IdleTimeout is seconds of inactivity before the engine is
	// unloaded. 0 keeps it resident forever.
	IdleTimeout int `toml:"idle_timeout"`
}

type Audio struct {
	// Device is a case-insensitive substring match against capture
	// device names; empty selects the system default.
	Device           string  `toml:"device"`
	SampleRate       int     `toml:"sample_rate"`
	SilenceThreshold float64 `toml:"silence_threshold"`
	// VAD gates silence-based stop on voice activity detection, so
	// soft speech does not end a recording early.
	VAD bool `toml:"vad"`
	// Cues plays short synthesized ticks on record start, stop, and
	// failure through the default output device.
	Cues bool `toml:"cues"`
}

// Spectrum carries the analyzer constants. They live here rather than in
// code so overlay authors can retune bands without a rebuild.
type Spectrum struct {
	FFTSize    int     `toml:"fft_size"`
	Smoothing  float64 `toml:"smoothing"`
	NoiseFloor float64 `toml:"noise_floor"`
	BassGate   float64 `toml:"bass_gate"`
	SpeechGate float64 `toml:"speech_gate"`
	Bands      []Band  `toml:"bands"`
}

type Band struct {
	Low    float64 `toml:"low"`
	High   float64 `toml:"high"`
	Weight float64 `toml:"weight"`
	Kind   string  `toml:"kind"` // "bass" or "speech"
}

type Engine struct {
	WhisperBin   string   `toml:"whisper_bin"`
	WhisperArgs  []string `toml:"whisper_args"`
	ParakeetBin  string   `toml:"parakeet_bin"`
	ParakeetArgs []string `toml:"parakeet_args"`
}

type Delivery struct {
	Mode string `toml:"mode"` // "none", "copy", or "insert"
}

type Recordings struct {
	// Format is what finished recordings are kept as: "wav" leaves the
	// capture file alone, "flac" and "mp3" transcode it after the
	// transcript is delivered.
	Format string `toml:"format"`
	// Keep prunes the recordings directory to the newest N files.
	// 0 keeps everything.
	Keep int `toml:"keep"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Service: Service{
			SocketPath:  DefaultSocketPath,
			Model:       "whisper-base",
			IdleTimeout: 0,
		},
		Audio: Audio{
			SampleRate:       16000,
			SilenceThreshold: 0.01,
			Cues:             true,
		},
		Spectrum: Spectrum{
			FFTSize:    512,
			Smoothing:  0.7,
			NoiseFloor: 0.01,
			BassGate:   0.30,
			SpeechGate: 0.20,
			Bands: []Band{
				{Low: 20, High: 125, Weight: 0.2, Kind: "bass"},
				{Low: 125, High: 250, Weight: 0.3, Kind: "bass"},
				{Low: 250, High: 500, Weight: 1.2, Kind: "speech"},
				{Low: 500, High: 1000, Weight: 2.5, Kind: "speech"},
				{Low: 1000, High: 2000, Weight: 3.0, Kind: "speech"},
				{Low: 2000, High: 4000, Weight: 2.0, Kind: "speech"},
				{Low: 4000, High: 6000, Weight: 1.0, Kind: "speech"},
				{Low: 6000, High: 8000, Weight: 0.8, Kind: "speech"},
			},
		},
		Engine: Engine{
			WhisperBin:  "whisper-cli",
			WhisperArgs: []string{"--no-timestamps", "--no-prints"},
			// No portable parakeet runner exists; the user points
			// parakeet_bin at their own before using those models.
		},
		Delivery:   Delivery{Mode: "none"},
		Recordings: Recordings{Format: "wav"},
	}
}

// Load reads the TOML file at path over the defaults. An empty path means
// the conventional location; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultFilePath()
		if err != nil {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Spectrum.FFTSize <= 0 || c.Spectrum.FFTSize&(c.Spectrum.FFTSize-1) != 0 {
		return fmt.Errorf("spectrum.fft_size must be a power of two, got %d", c.Spectrum.FFTSize)
	}
	if c.Spectrum.Smoothing < 0 || c.Spectrum.Smoothing >= 1 {
		return fmt.Errorf("spectrum.smoothing must be in [0,1), got %g", c.Spectrum.Smoothing)
	}
	if len(c.Spectrum.Bands) == 0 {
		return fmt.Errorf("spectrum.bands must not be empty")
	}
	for i, b := range c.Spectrum.Bands {
		if b.Low >= b.High {
			return fmt.Errorf("spectrum.bands[%d]: low %g >= high %g", i, b.Low, b.High)
		}
		if b.Kind != "bass" && b.Kind != "speech" {
			return fmt.Errorf("spectrum.bands[%d]: kind %q", i, b.Kind)
		}
	}
	switch c.Delivery.Mode {
	case "", "none", "copy", "insert":
	default:
		return fmt.Errorf("delivery.mode %q", c.Delivery.Mode)
	}
	switch c.Recordings.Format {
	case "", "wav", "flac", "mp3":
	default:
		return fmt.Errorf("recordings.format %q", c.Recordings.Format)
	}
	if c.Recordings.Keep < 0 {
		return fmt.Errorf("recordings.keep must not be negative, got %d", c.Recordings.Keep)
	}
	return nil
}
