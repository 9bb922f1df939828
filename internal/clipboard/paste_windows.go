//go:build windows

package clipboard

import "github.com/micmonay/keybd_event"

// SendPaste presses Ctrl+V in the focused window.
func (System) SendPaste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	return kb.Launching()
}
