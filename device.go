package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"vox/audio"
	"vox/config"
)

// runDevices lists capture devices. The device the config would select
// gets a marker; under a pipe the decoration is dropped so scripts can
// consume bare names.
func runDevices(cfg config.Config) int {
	ctx, err := newAudioContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(os.Stderr, "No capture devices found.")
		return 1
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		for _, d := range devices {
			fmt.Println(d.Name)
		}
		return 0
	}

	selected := audio.FindDevice(devices, cfg.Audio.Device)
	fmt.Printf("Capture devices (%d):\n", len(devices))
	for _, d := range devices {
		marker := "   "
		if selected != nil && d.ID == selected.ID {
			marker = " * "
		}
		note := ""
		if audio.IsBluetooth(d.Name) {
			note = "  (bluetooth: reduced capture quality)"
		}
		fmt.Printf("%s%s%s\n", marker, d.Name, note)
	}
	if cfg.Audio.Device != "" && selected == nil {
		fmt.Printf("\nConfigured device %q matches nothing; the system default will be used.\n", cfg.Audio.Device)
	}
	return 0
}
