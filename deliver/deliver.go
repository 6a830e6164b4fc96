// Package deliver places transcribed text where the user wants it:
// nowhere, on the system clipboard, or typed into the focused window.
package deliver

import "fmt"

// Mode selects what happens to a transcript after a session finishes.
type Mode string

const (
	// ModeNone returns the text in the response and nothing else.
	ModeNone Mode = "none"
	// ModeCopy places the text on the system clipboard.
	ModeCopy Mode = "copy"
	// ModeInsert types the text into the currently focused window.
	ModeInsert Mode = "insert"
)

// ParseMode maps a config or flag value onto a Mode. The empty string
// means ModeNone.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "none":
		return ModeNone, nil
	case "copy":
		return ModeCopy, nil
	case "insert":
		return ModeInsert, nil
	}
	return ModeNone, fmt.Errorf("unknown delivery mode %q", s)
}

// Deliver hands text to the configured output. Empty text and ModeNone
// are both no-ops.
func Deliver(text string, mode Mode) error {
	if text == "" || mode == ModeNone {
		return nil
	}
	switch mode {
	case ModeCopy:
		return copyText(text)
	case ModeInsert:
		return insertText(text)
	}
	return fmt.Errorf("unknown delivery mode %q", mode)
}

// Plan reports how each mode would be carried out in the current
// environment. Doctor mode prints it.
type Plan struct {
	Display string // "wayland", "x11", "none", or "native"
	Copy    string // tool or library serving ModeCopy
	Insert  string // tool or chord serving ModeInsert
}
