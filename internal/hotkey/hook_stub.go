//go:build !windows

package hotkey

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Listener is not supported on non-Windows builds.
type Listener struct{}

// Listen is not supported on non-Windows builds.
func Listen(combo Combo, out chan<- Signal, logger *log.Logger, debug bool) (*Listener, error) {
	return nil, fmt.Errorf("hotkey not supported on this platform")
}

func (l *Listener) SetEnabled(v bool) {}

func (l *Listener) Close() error { return nil }
