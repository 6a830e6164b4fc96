//go:build linux

package deliver

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	cb "github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

type displayServer int

const (
	displayNone displayServer = iota
	displayWayland
	displayX11
)

func detectDisplay() displayServer {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return displayWayland
	}
	if os.Getenv("XDG_SESSION_TYPE") == "wayland" {
		return displayWayland
	}
	if os.Getenv("DISPLAY") != "" {
		return displayX11
	}
	return displayNone
}

// copyText prefers wl-copy on Wayland so the selection carries an
// explicit UTF-8 type. Everywhere else the clipboard library picks
// whatever helper the system has.
func copyText(text string) error {
	if detectDisplay() == displayWayland {
		if path, err := exec.LookPath("wl-copy"); err == nil {
			return runTool(path, text, "--type", "text/plain;charset=utf-8")
		}
	}
	return cb.WriteAll(text)
}

// insertText types the text with the display server's typing tool.
// Without one it stages the text on the clipboard and sends Ctrl+V.
func insertText(text string) error {
	switch detectDisplay() {
	case displayWayland:
		if path, err := exec.LookPath("wtype"); err == nil {
			return runTool(path, "", text)
		}
	case displayX11:
		if path, err := exec.LookPath("xdotool"); err == nil {
			return runTool(path, "", "type", "--", text)
		}
	}
	if err := copyText(text); err != nil {
		return err
	}
	return sendPasteChord()
}

func runTool(path, stdin string, args ...string) error {
	cmd := exec.Command(path, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", cmd.Args[0], err, msg)
		}
		return fmt.Errorf("%s: %w", cmd.Args[0], err)
	}
	return nil
}

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

func initChord() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

func sendPasteChord() error {
	if err := initChord(); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	return kb.Launching()
}

// Describe reports the tools Deliver would pick right now.
func Describe() Plan {
	p := Plan{Display: "none", Copy: "clipboard library", Insert: "paste chord (ctrl+v)"}
	switch detectDisplay() {
	case displayWayland:
		p.Display = "wayland"
		if _, err := exec.LookPath("wl-copy"); err == nil {
			p.Copy = "wl-copy"
		}
		if _, err := exec.LookPath("wtype"); err == nil {
			p.Insert = "wtype"
		}
	case displayX11:
		p.Display = "x11"
		if _, err := exec.LookPath("xdotool"); err == nil {
			p.Insert = "xdotool"
		}
	}
	return p
}
