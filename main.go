// vox is a background dictation service and its CLI. One binary runs
// the Unix-socket service (-serve) and drives it as a client:
// -transcribe records one dictation, -watch monitors live levels, and
// the rest manage models, devices, and the service itself.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"vox/autostart"
	"vox/config"
	"vox/deliver"
	"vox/doctor"
	"vox/log"
	"vox/protocol"
	"vox/update"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 && os.Args[1] == "update" {
		return runUpdate()
	}

	serveFlag := flag.Bool("serve", false, "Run the dictation service in the foreground")
	transcribeFlag := flag.Bool("transcribe", false, "Record one dictation and print the transcript")
	statusFlag := flag.Bool("status", false, "Print service status and exit")
	stopFlag := flag.Bool("stop", false, "Stop the recording in progress")
	watchFlag := flag.Bool("watch", false, "Live monitor: session state, level, and spectrum")
	devicesFlag := flag.Bool("devices", false, "List capture devices and exit")
	modelsFlag := flag.Bool("models", false, "List the model catalog and local storage")
	downloadFlag := flag.String("download", "", "Download the named model and exit")
	removeFlag := flag.String("remove", "", "Delete the named model from local storage")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	autostartFlag := flag.String("autostart", "", "Manage login autostart: on, off, or status")
	versionFlag := flag.Bool("version", false, "Print version and exit")

	configFlag := flag.String("config", "", "Config file path (default: OS-specific location)")
	socketFlag := flag.String("socket", "", "Service socket path (overrides config)")
	modelFlag := flag.String("model", "", "Model name (overrides config)")
	deviceFlag := flag.String("device", "", "Capture device name substring (overrides config)")
	idleFlag := flag.Int("idle-timeout", -1, "Seconds of idle before the model unloads, 0 keeps it resident (overrides config)")

	copyFlag := flag.Bool("copy", false, "With -transcribe: copy the transcript to the clipboard")
	insertFlag := flag.Bool("insert", false, "With -transcribe: type the transcript into the focused window")
	formatFlag := flag.String("format", "text", "Output format for -transcribe and -status: text or json")
	maxDurationFlag := flag.Int("max-duration", protocol.DefaultMaxDuration, "Recording cap in seconds")
	silenceFlag := flag.Int("silence", protocol.DefaultSilenceDuration, "Trailing silence that ends the recording, in seconds")
	rateFlag := flag.Int("rate", protocol.DefaultSampleRate, "Recording sample rate in Hz")

	verboseFlag := flag.Bool("v", false, "Echo service log lines to stderr")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("vox %s\n", version)
		return 0
	}

	if *doctorFlag {
		return doctor.Run(*configFlag)
	}

	if *autostartFlag != "" {
		return runAutostart(*autostartFlag)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *socketFlag != "" {
		cfg.Service.SocketPath = *socketFlag
	}
	if *modelFlag != "" {
		cfg.Service.Model = *modelFlag
	}
	if *deviceFlag != "" {
		cfg.Audio.Device = *deviceFlag
	}
	if *idleFlag >= 0 {
		cfg.Service.IdleTimeout = *idleFlag
	}

	switch {
	case *serveFlag:
		return runServe(cfg, *verboseFlag)
	case *transcribeFlag:
		mode, err := transcribeMode(cfg, *copyFlag, *insertFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return runTranscribe(cfg, mode, *formatFlag, *maxDurationFlag, *silenceFlag, *rateFlag)
	case *statusFlag:
		return runStatus(cfg, *formatFlag)
	case *stopFlag:
		return runStop(cfg)
	case *watchFlag:
		return runWatch(cfg)
	case *devicesFlag:
		return runDevices(cfg)
	case *modelsFlag:
		return runModels()
	case *downloadFlag != "":
		return runDownload(*downloadFlag)
	case *removeFlag != "":
		return runRemove(*removeFlag)
	}

	flag.Usage()
	return 2
}

// transcribeMode resolves the delivery mode for one -transcribe run.
// Flags win over the config file.
func transcribeMode(cfg config.Config, copyText, insert bool) (deliver.Mode, error) {
	if copyText && insert {
		return deliver.ModeNone, errors.New("-copy and -insert are mutually exclusive")
	}
	switch {
	case copyText:
		return deliver.ModeCopy, nil
	case insert:
		return deliver.ModeInsert, nil
	}
	return deliver.ParseMode(cfg.Delivery.Mode)
}

func runUpdate() int {
	if version == "dev" {
		fmt.Println("Dev build - cannot check for updates.")
		return 0
	}
	fmt.Printf("vox %s - checking for updates...\n", version)
	rel, err := update.CheckLatest(version)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if rel == nil {
		fmt.Println("Already up to date.")
		return 0
	}
	fmt.Printf("Update available: %s -> %s\n", version, rel.Version)
	fmt.Print("Continue? [y/N] ")
	var answer string
	fmt.Scanln(&answer)
	if answer != "y" && answer != "Y" {
		fmt.Println("Aborted.")
		return 0
	}
	fmt.Printf("Downloading %s...\n", rel.Version)
	if err := update.Apply(rel); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Updated to %s\n", rel.Version)
	return 0
}

func runAutostart(action string) int {
	switch action {
	case "on":
		if err := autostart.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println("Autostart enabled.")
	case "off":
		if err := autostart.Disable(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println("Autostart disabled.")
	case "status":
		if autostart.Enabled() {
			fmt.Println("Autostart: enabled")
		} else {
			fmt.Println("Autostart: disabled")
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: -autostart takes on, off, or status, got %q\n", action)
		return 2
	}
	return 0
}
