//go:build !windows

package autostart

func Enable(exe string) error { return ErrUnsupported }

func Disable() error { return nil }

func IsEnabled() (bool, error) { return false, nil }
