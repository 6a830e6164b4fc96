package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"vox/config"
)

func TestCheckConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, ok := checkConfig("")
	if !ok {
		t.Error("missing config file reported as failure")
	}
	if cfg.Service.Model != config.Default().Service.Model {
		t.Errorf("model = %q, want default %q", cfg.Service.Model, config.Default().Service.Model)
	}
}

func TestCheckConfigBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[audio]\nsample_rate = -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, ok := checkConfig(path)
	if ok {
		t.Error("broken config reported as valid")
	}
	// Later checks still need a usable config.
	if cfg.Audio.SampleRate != config.Default().Audio.SampleRate {
		t.Errorf("fallback sample rate = %d, want default", cfg.Audio.SampleRate)
	}
}

func TestCheckDelivery(t *testing.T) {
	cfg := config.Default()
	cfg.Delivery.Mode = "copy"
	if !checkDelivery(cfg) {
		t.Error("valid delivery mode reported as failure")
	}

	cfg.Delivery.Mode = "teleport"
	if checkDelivery(cfg) {
		t.Error("unknown delivery mode passed")
	}
}

func TestCheckServiceNotRunning(t *testing.T) {
	cfg := config.Default()
	cfg.Service.SocketPath = filepath.Join(t.TempDir(), "vox.sock")

	if !checkService(cfg) {
		t.Error("absent service reported as failure")
	}
}

func TestCheckServiceStaleSocket(t *testing.T) {
	cfg := config.Default()
	sock := filepath.Join(t.TempDir(), "vox.sock")
	if err := os.WriteFile(sock, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Service.SocketPath = sock

	if checkService(cfg) {
		t.Error("stale socket reported healthy")
	}
}
