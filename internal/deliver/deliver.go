// Package deliver inserts transcribed text at the cursor, typing it when
// possible and pasting it from the clipboard otherwise.
package deliver

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"dictation/internal/config"
)

// Method says how text reached the target window.
type Method int

const (
	MethodNone Method = iota
	MethodKeyboard
	MethodClipboard
)

func (m Method) String() string {
	switch m {
	case MethodKeyboard:
		return "keyboard"
	case MethodClipboard:
		return "clipboard"
	default:
		return "none"
	}
}

// Typer injects keystrokes.
type Typer interface {
	Type(text string) error
}

// Clipboard is the system clipboard plus the paste shortcut.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
	SendPaste() error
}

// DeliveryError is returned when neither typing nor pasting worked.
type DeliveryError struct {
	Typing error
	Paste  error
}

func (e *DeliveryError) Error() string {
	if e.Typing == nil {
		return fmt.Sprintf("text delivery failed: paste: %v", e.Paste)
	}
	return fmt.Sprintf("text delivery failed: typing: %v; paste: %v", e.Typing, e.Paste)
}

func (e *DeliveryError) Unwrap() []error {
	var errs []error
	if e.Typing != nil {
		errs = append(errs, e.Typing)
	}
	if e.Paste != nil {
		errs = append(errs, e.Paste)
	}
	return errs
}

// Options configures a Deliverer.
type Options struct {
	Mode         string
	PasteDelay   time.Duration
	RestoreDelay time.Duration
	Restore      bool
	Debug        bool
	Logger       *log.Logger
}

// OptionsFrom builds Options from the settings record.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Mode:       cfg.TypingMode,
		PasteDelay: cfg.PasteDelay(),
		Restore:    cfg.RestoreClipboard,
	}
}

// Deliverer types or pastes text.
type Deliverer struct {
	typer Typer
	clip  Clipboard
	opts  Options

	// Sleep waits between clipboard steps. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func New(typer Typer, clip Clipboard, opts Options) *Deliverer {
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("paste")
	}
	if opts.RestoreDelay <= 0 {
		opts.RestoreDelay = 150 * time.Millisecond
	}
	return &Deliverer{typer: typer, clip: clip, opts: opts, Sleep: sleep}
}

// Deliver inserts text into the focused window. In keyboard mode a rejected
// or failed injection falls back to the clipboard.
func (d *Deliverer) Deliver(ctx context.Context, text string) (Method, error) {
	if text == "" {
		return MethodNone, nil
	}

	var typeErr error
	if d.opts.Mode != config.TypingClipboard {
		typeErr = d.typer.Type(text)
		if typeErr == nil {
			return MethodKeyboard, nil
		}
		d.opts.Logger.Warn("typing failed, falling back to clipboard", "err", typeErr)
	}

	if err := d.paste(ctx, text); err != nil {
		return MethodNone, &DeliveryError{Typing: typeErr, Paste: err}
	}
	return MethodClipboard, nil
}

func (d *Deliverer) paste(ctx context.Context, text string) error {
	var previous string
	var havePrevious bool
	if d.opts.Restore {
		if s, err := d.clip.Read(); err == nil {
			previous, havePrevious = s, true
		}
	}

	if err := d.clip.Write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := d.Sleep(ctx, d.opts.PasteDelay); err != nil {
		return err
	}
	if err := d.clip.SendPaste(); err != nil {
		return fmt.Errorf("send paste: %w", err)
	}
	if d.opts.Debug {
		d.opts.Logger.Debug("pasted from clipboard", "chars", len([]rune(text)))
	}

	if havePrevious && d.Sleep(ctx, d.opts.RestoreDelay) == nil {
		if err := d.clip.Write(previous); err != nil {
			d.opts.Logger.Warn("restore clipboard failed", "err", err)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
