//go:build darwin

package deliver

import (
	cb "github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

func copyText(text string) error {
	return cb.WriteAll(text)
}

// insertText stages the text on the clipboard and sends Cmd+V. macOS
// has no typing tool worth shelling out to.
func insertText(text string) error {
	if err := copyText(text); err != nil {
		return err
	}
	return sendPasteChord()
}

func sendPasteChord() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(true) // Cmd+V on macOS
	return kb.Launching()
}

// Describe reports the tools Deliver would pick right now.
func Describe() Plan {
	return Plan{Display: "native", Copy: "clipboard library", Insert: "paste chord (cmd+v)"}
}
