package deliver

import (
	"context"
	"errors"
	"testing"
	"time"

	"dictation/internal/config"
	"dictation/internal/keyboard"
)

type fakeTyper struct {
	err   error
	typed []string
}

func (f *fakeTyper) Type(text string) error {
	if f.err != nil {
		return f.err
	}
	f.typed = append(f.typed, text)
	return nil
}

type fakeClipboard struct {
	content  string
	writes   []string
	pastes   int
	writeErr error
	pasteErr error
}

func (f *fakeClipboard) Read() (string, error) { return f.content, nil }

func (f *fakeClipboard) Write(text string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.content = text
	f.writes = append(f.writes, text)
	return nil
}

func (f *fakeClipboard) SendPaste() error {
	if f.pasteErr != nil {
		return f.pasteErr
	}
	f.pastes++
	return nil
}

func newDeliverer(typer Typer, clip Clipboard, opts Options) *Deliverer {
	d := New(typer, clip, opts)
	d.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return d
}

func TestDeliverTypesText(t *testing.T) {
	typer := &fakeTyper{}
	clip := &fakeClipboard{}
	d := newDeliverer(typer, clip, Options{Mode: config.TypingKeyboard})

	m, err := d.Deliver(context.Background(), "hello")
	if err != nil || m != MethodKeyboard {
		t.Fatalf("expected keyboard delivery, got %v, %v", m, err)
	}
	if len(typer.typed) != 1 || typer.typed[0] != "hello" {
		t.Fatalf("unexpected typed text: %v", typer.typed)
	}
	if clip.pastes != 0 || len(clip.writes) != 0 {
		t.Fatalf("clipboard must not be touched")
	}
}

func TestDeliverFallsBackWhenRejected(t *testing.T) {
	typer := &fakeTyper{err: &keyboard.RejectedError{Sent: 10, Inserted: 0}}
	clip := &fakeClipboard{content: "previous"}
	d := newDeliverer(typer, clip, Options{Mode: config.TypingKeyboard})

	m, err := d.Deliver(context.Background(), "dictated text")
	if err != nil || m != MethodClipboard {
		t.Fatalf("expected clipboard delivery, got %v, %v", m, err)
	}
	if clip.content != "dictated text" {
		t.Fatalf("clipboard should still hold the text, got %q", clip.content)
	}
	if clip.pastes != 1 {
		t.Fatalf("expected one paste, got %d", clip.pastes)
	}
}

func TestDeliverRestoresClipboardWhenEnabled(t *testing.T) {
	clip := &fakeClipboard{content: "previous"}
	d := newDeliverer(&fakeTyper{}, clip, Options{Mode: config.TypingClipboard, Restore: true})

	m, err := d.Deliver(context.Background(), "new")
	if err != nil || m != MethodClipboard {
		t.Fatalf("expected clipboard delivery, got %v, %v", m, err)
	}
	if len(clip.writes) != 2 || clip.writes[0] != "new" || clip.content != "previous" {
		t.Fatalf("expected clipboard restored, writes=%v content=%q", clip.writes, clip.content)
	}
}

func TestDeliverBothPathsFail(t *testing.T) {
	typeErr := errors.New("no focus")
	pasteErr := errors.New("clipboard locked")
	d := newDeliverer(&fakeTyper{err: typeErr}, &fakeClipboard{writeErr: pasteErr}, Options{Mode: config.TypingKeyboard})

	m, err := d.Deliver(context.Background(), "text")
	if m != MethodNone {
		t.Fatalf("expected no method, got %v", m)
	}
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T: %v", err, err)
	}
	if !errors.Is(err, typeErr) || !errors.Is(err, pasteErr) {
		t.Fatalf("expected both causes to be wrapped: %v", err)
	}
}

func TestDeliverEmptyText(t *testing.T) {
	typer := &fakeTyper{}
	d := newDeliverer(typer, &fakeClipboard{}, Options{})
	if m, err := d.Deliver(context.Background(), ""); err != nil || m != MethodNone {
		t.Fatalf("expected no-op, got %v, %v", m, err)
	}
	if len(typer.typed) != 0 {
		t.Fatalf("nothing should be typed")
	}
}
