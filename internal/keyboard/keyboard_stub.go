//go:build !windows

package keyboard

// Typer is not supported on non-Windows builds.
type Typer struct{}

func (Typer) Type(text string) error {
	return ErrUnsupported
}
