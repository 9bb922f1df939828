// Package clipboard wraps the system clipboard and the paste shortcut.
package clipboard

import "github.com/atotto/clipboard"

// System is the OS clipboard.
type System struct{}

func (System) Read() (string, error) {
	return clipboard.ReadAll()
}

func (System) Write(text string) error {
	return clipboard.WriteAll(text)
}
