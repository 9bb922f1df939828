//go:build windows

package keyboard

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputKeyboard    = 1
	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004
)

type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// input mirrors INPUT with the keyboard member of the union; padding keeps
// the size equal to the largest union member.
type input struct {
	inputType uint32
	ki        keybdInput
	padding   uint64
}

// Typer sends text with SendInput.
type Typer struct{}

// Type injects text as one batch so it cannot interleave with real typing.
func (Typer) Type(text string) error {
	evs := events(text)
	if len(evs) == 0 {
		return nil
	}
	inputs := make([]input, len(evs))
	for i, ev := range evs {
		in := input{inputType: inputKeyboard}
		if ev.unicode {
			in.ki.wScan = ev.unit
			in.ki.dwFlags = keyeventfUnicode
		} else {
			in.ki.wVk = ev.vk
		}
		if ev.up {
			in.ki.dwFlags |= keyeventfKeyUp
		}
		inputs[i] = in
	}

	n, _, _ := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(n) != len(inputs) {
		return &RejectedError{Sent: len(inputs), Inserted: int(n)}
	}
	return nil
}
