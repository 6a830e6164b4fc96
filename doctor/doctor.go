// Package doctor runs environment diagnostics: configuration, data
// directories, model storage, capture devices, engine backends, text
// delivery, and the running service. Each check prints PASS or FAIL;
// the exit code reflects the worst result.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"vox/audio"
	"vox/client"
	"vox/config"
	"vox/deliver"
	"vox/model"
	"vox/protocol"
)

// Run executes all diagnostic checks and returns an exit code (0=all
// pass, 1=any fail). configPath overrides the conventional config
// location when non-empty.
func Run(configPath string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("vox doctor - system diagnostics")
	fmt.Println("================================")

	allPass := true

	cfg, ok := checkConfig(configPath)
	if !ok {
		allPass = false
	}
	if !checkDirectories() {
		allPass = false
	}
	mgr, ok := checkModelStorage(cfg)
	if !ok {
		allPass = false
	}
	if !checkCaptureDevices(cfg) {
		allPass = false
	}
	if !checkEngineBackends(cfg, mgr) {
		allPass = false
	}
	if !checkDelivery(cfg) {
		allPass = false
	}
	if !checkService(cfg) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

// checkConfig always returns a usable config so later checks can run
// even when the file on disk is broken.
func checkConfig(configPath string) (config.Config, bool) {
	fmt.Println()
	fmt.Println("[1/7] Configuration")

	shown := configPath
	if shown == "" {
		if p, err := config.DefaultFilePath(); err == nil {
			shown = p
		}
	}
	if _, err := os.Stat(shown); err != nil {
		fmt.Printf("  No config file at %s, using defaults\n", shown)
	} else {
		fmt.Printf("  Config file: %s\n", shown)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return config.Default(), false
	}
	fmt.Printf("  Model: %s, sample rate: %d Hz, delivery: %s\n",
		cfg.Service.Model, cfg.Audio.SampleRate, cfg.Delivery.Mode)
	fmt.Println("  PASS: configuration valid")
	return cfg, true
}

func checkDirectories() bool {
	fmt.Println()
	fmt.Println("[2/7] Data directories")

	dirs := []struct {
		name string
		fn   func() (string, error)
	}{
		{"data", config.DataDir},
		{"models", config.ModelsDir},
		{"recordings", config.RecordingsDir},
	}

	ok := true
	for _, d := range dirs {
		dir, err := d.fn()
		if err != nil {
			fmt.Printf("  FAIL: resolve %s dir: %v\n", d.name, err)
			ok = false
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Printf("  FAIL: create %s: %v\n", dir, err)
			ok = false
			continue
		}
		fmt.Printf("  %s: %s\n", d.name, dir)
	}
	if ok {
		fmt.Println("  PASS: all directories writable")
	}
	return ok
}

func checkModelStorage(cfg config.Config) (*model.Manager, bool) {
	fmt.Println()
	fmt.Println("[3/7] Model storage")

	dir, err := config.ModelsDir()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	mgr, err := model.NewManager(dir)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}

	info, err := mgr.StorageInfo()
	if err != nil {
		fmt.Printf("  FAIL: scan %s: %v\n", dir, err)
		return mgr, false
	}
	fmt.Printf("  %d of %d catalog models downloaded (%d MB on disk)\n",
		info.DownloadedCount, info.CatalogCount, info.TotalBytes/1_000_000)
	if info.FreeBytes > 0 {
		fmt.Printf("  Free space: %d MB\n", info.FreeBytes/1_000_000)
	}

	res, err := mgr.Resolve(cfg.Service.Model)
	if err != nil {
		fmt.Printf("  FAIL: configured model: %v\n", err)
		return mgr, false
	}
	if res.Downloaded {
		fmt.Printf("  PASS: configured model %q is downloaded\n", res.Name)
	} else {
		fmt.Printf("  PASS: configured model %q will download on first use\n", res.Name)
	}
	return mgr, true
}

func checkCaptureDevices(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("[4/7] Capture devices")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio backend: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	selected := audio.FindDevice(devices, cfg.Audio.Device)
	for _, d := range devices {
		marker := "   "
		if selected != nil && d.ID == selected.ID {
			marker = " * "
		}
		note := ""
		if audio.IsBluetooth(d.Name) {
			note = "  (bluetooth: may capture at reduced quality)"
		}
		fmt.Printf("  %s%s%s\n", marker, d.Name, note)
	}
	if cfg.Audio.Device != "" && selected == nil {
		fmt.Printf("  FAIL: configured device %q matches nothing\n", cfg.Audio.Device)
		return false
	}
	fmt.Printf("  PASS: %d capture device(s) available\n", len(devices))
	return true
}

func checkEngineBackends(cfg config.Config, mgr *model.Manager) bool {
	fmt.Println()
	fmt.Println("[5/7] Engine backends")

	ok := true
	if path, err := exec.LookPath(cfg.Engine.WhisperBin); err != nil {
		fmt.Printf("  FAIL: whisper binary %q not on PATH\n", cfg.Engine.WhisperBin)
		ok = false
	} else {
		fmt.Printf("  whisper: %s\n", path)
	}

	// Parakeet is optional; only probe it when configured.
	if cfg.Engine.ParakeetBin != "" {
		if path, err := exec.LookPath(cfg.Engine.ParakeetBin); err != nil {
			fmt.Printf("  FAIL: parakeet binary %q not on PATH\n", cfg.Engine.ParakeetBin)
			ok = false
		} else {
			fmt.Printf("  parakeet: %s\n", path)
		}
	}

	if mgr != nil {
		for _, info := range mgr.List() {
			if info.Downloaded {
				fmt.Printf("  model %s: downloaded\n", info.Name)
			}
		}
	}
	if ok {
		fmt.Println("  PASS: engine backends resolved")
	}
	return ok
}

func checkDelivery(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("[6/7] Text delivery")

	mode, err := deliver.ParseMode(cfg.Delivery.Mode)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	plan := deliver.Describe()
	fmt.Printf("  display server: %s\n", plan.Display)
	fmt.Printf("  copy via: %s\n", plan.Copy)
	fmt.Printf("  insert via: %s\n", plan.Insert)
	fmt.Printf("  PASS: delivery mode %q ready\n", mode)
	return true
}

// checkService treats "not running" as healthy; only a socket that
// exists but refuses a status round-trip is a failure.
func checkService(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("[7/7] Service")

	path, err := config.ExpandSocketPath(cfg.Service.SocketPath)
	if err != nil {
		fmt.Printf("  FAIL: socket path: %v\n", err)
		return false
	}
	fmt.Printf("  socket: %s\n", path)

	if _, err := os.Stat(path); err != nil {
		fmt.Println("  PASS: service not running (start it with vox -serve)")
		return true
	}

	c := client.New(path)
	resp, err := c.Request(protocol.NewStatus())
	if err != nil {
		fmt.Printf("  FAIL: socket exists but service does not answer: %v\n", err)
		fmt.Println("        remove the stale socket or restart the service")
		return false
	}
	status, ok := resp.(protocol.Status)
	if !ok {
		fmt.Printf("  FAIL: unexpected response %T\n", resp)
		return false
	}

	fmt.Printf("  uptime: %s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
	if status.ModelLoaded {
		fmt.Printf("  model loaded: %s\n", status.ModelPath)
	} else {
		fmt.Println("  model loaded: no (loads on first transcription)")
	}
	if status.AudioDevice != "" {
		fmt.Printf("  audio device: %s\n", status.AudioDevice)
	}
	fmt.Println("  PASS: service answered status request")
	return true
}
