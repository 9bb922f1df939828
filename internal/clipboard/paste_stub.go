//go:build !windows

package clipboard

import "fmt"

// SendPaste is not supported on non-Windows builds.
func (System) SendPaste() error {
	return fmt.Errorf("paste shortcut not supported on this platform")
}
