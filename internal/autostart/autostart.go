// Package autostart registers the application to start at user logon.
package autostart

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnsupported is returned where logon registration is not available.
var ErrUnsupported = errors.New("autostart not supported on this platform")

const valueName = "Dictation"

// Command returns the command line stored for logon start.
func Command(exe string) string {
	return `"` + exe + `" run`
}

// Sync makes the registration match want.
func Sync(want bool) error {
	on, err := IsEnabled()
	if err != nil {
		return err
	}
	if !want {
		if on {
			return Disable()
		}
		return nil
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	return Enable(exe)
}
