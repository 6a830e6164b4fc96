package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: VOX_LOG_PATH environment variable
	envPath := os.Getenv("VOX_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Init opens the service log. With echo set, lines also go to stderr so
// foreground runs are observable without tailing the file.
func Init(echo bool) error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagPath := filepath.Join(dir, "service_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	var out io.Writer = diagFile
	if echo {
		out = io.MultiWriter(diagFile, os.Stderr)
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// CycleMetrics summarizes one recording+transcription cycle.
type CycleMetrics struct {
	RecordingS   float64
	Samples      int
	TranscribeMs float64
	TextLen      int
	Model        string
	StoppedBy    string // "silence", "max_duration", or "stop_request"
}

func Cycle(m CycleMetrics) {
	if !logReady {
		return
	}
	diagLog.Info().
		Float64("recording_s", m.RecordingS).
		Int("samples", m.Samples).
		Float64("transcribe_ms", m.TranscribeMs).
		Int("text_len", m.TextLen).
		Str("model", m.Model).
		Str("stopped_by", m.StoppedBy).
		Msg("cycle")
}

func CycleError(stage, msg string) {
	if !logReady {
		return
	}
	diagLog.Error().
		Str("stage", stage).
		Msg(msg)
}

func EngineLoad(model string, ms float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("model", model).
		Float64("load_ms", ms).
		Msg("engine_load")
}

func EngineUnload(model string, idleS float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("model", model).
		Float64("idle_s", idleS).
		Msg("engine_unload")
}

// EngineRun records one backend invocation with its outcome.
func EngineRun(stage, input string, ms float64, err error) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Error().Err(err)
	}
	ev.
		Str("stage", stage).
		Str("input", input).
		Float64("run_ms", ms).
		Msg("engine_run")
}

func ModelDownload(model string, bytes int64, ms float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("model", model).
		Int64("bytes", bytes).
		Float64("total_ms", ms).
		Msg("model_download")
}

func Subscribers(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("subscribers")
}

func ServerStart(socketPath, model string, idleTimeoutS int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("socket", socketPath).
		Str("model", model).
		Int("idle_timeout_s", idleTimeoutS).
		Msg("server_start")
}

func ServerStop(uptimeS float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Float64("uptime_s", uptimeS).
		Msg("server_stop")
}
