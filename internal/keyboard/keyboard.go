// Package keyboard types text into the focused window by synthesising
// Unicode key events.
package keyboard

import (
	"errors"
	"fmt"
	"unicode/utf16"
)

// ErrUnsupported is returned on platforms without key injection.
var ErrUnsupported = errors.New("keyboard injection not supported on this platform")

// RejectedError reports that the OS accepted fewer events than were sent,
// typically because the target window runs at a higher integrity level.
type RejectedError struct {
	Sent     int
	Inserted int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("keyboard input rejected: %d of %d events inserted", e.Inserted, e.Sent)
}

// keyEvent is one key transition. Unicode events carry a UTF-16 code unit in
// unit; virtual-key events carry vk.
type keyEvent struct {
	vk      uint16
	unit    uint16
	unicode bool
	up      bool
}

const vkReturn = 0x0D

// events expands text into down/up pairs per UTF-16 code unit. Line breaks
// become Enter presses since many controls ignore a Unicode newline.
func events(text string) []keyEvent {
	var out []keyEvent
	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '\r':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				continue
			}
			fallthrough
		case '\n':
			out = append(out, keyEvent{vk: vkReturn}, keyEvent{vk: vkReturn, up: true})
			continue
		}
		for _, u := range utf16.Encode([]rune{r}) {
			out = append(out, keyEvent{unit: u, unicode: true}, keyEvent{unit: u, unicode: true, up: true})
		}
	}
	return out
}
