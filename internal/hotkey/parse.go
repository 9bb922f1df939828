// Package hotkey watches a global key combination and reports when it is
// pressed and released.
package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Virtual-key codes used by the parser.
const (
	VK_BACK     = 0x08
	VK_TAB      = 0x09
	VK_RETURN   = 0x0D
	VK_SHIFT    = 0x10
	VK_CONTROL  = 0x11
	VK_MENU     = 0x12
	VK_PAUSE    = 0x13
	VK_CAPITAL  = 0x14
	VK_ESCAPE   = 0x1B
	VK_SPACE    = 0x20
	VK_PRIOR    = 0x21
	VK_NEXT     = 0x22
	VK_END      = 0x23
	VK_HOME     = 0x24
	VK_LEFT     = 0x25
	VK_UP       = 0x26
	VK_RIGHT    = 0x27
	VK_DOWN     = 0x28
	VK_SNAPSHOT = 0x2C
	VK_INSERT   = 0x2D
	VK_DELETE   = 0x2E
	VK_LWIN     = 0x5B
	VK_RWIN     = 0x5C
	VK_APPS     = 0x5D
	VK_NUMPAD0  = 0x60
	VK_ADD      = 0x6B
	VK_SUBTRACT = 0x6D
	VK_F1       = 0x70
	VK_NUMLOCK  = 0x90
	VK_SCROLL   = 0x91
	VK_LSHIFT   = 0xA0
	VK_RSHIFT   = 0xA1
	VK_LCONTROL = 0xA2
	VK_RCONTROL = 0xA3
	VK_LMENU    = 0xA4
	VK_RMENU    = 0xA5
)

// Key is one element of a combination. A key matches any of its codes, so
// "ctrl" matches both the left and the right control key.
type Key struct {
	Name     string
	Codes    []uint32
	Modifier bool
}

func (k Key) matches(vk uint32) bool {
	for _, c := range k.Codes {
		if c == vk {
			return true
		}
	}
	return false
}

// Combo is a parsed hotkey such as "caps_lock" or "ctrl+shift+f1".
type Combo struct {
	Spec string
	Keys []Key
}

func (c Combo) String() string { return c.Spec }

// index returns the position of the key matching vk, or -1.
func (c Combo) index(vk uint32) int {
	for i, k := range c.Keys {
		if k.matches(vk) {
			return i
		}
	}
	return -1
}

var modifiers = map[string]Key{
	"ctrl":    {Codes: []uint32{VK_CONTROL, VK_LCONTROL, VK_RCONTROL}},
	"control": {Codes: []uint32{VK_CONTROL, VK_LCONTROL, VK_RCONTROL}},
	"ctrl_l":  {Codes: []uint32{VK_LCONTROL}},
	"ctrl_r":  {Codes: []uint32{VK_RCONTROL}},
	"alt":     {Codes: []uint32{VK_MENU, VK_LMENU, VK_RMENU}},
	"menu":    {Codes: []uint32{VK_MENU, VK_LMENU, VK_RMENU}},
	"alt_l":   {Codes: []uint32{VK_LMENU}},
	"alt_r":   {Codes: []uint32{VK_RMENU}},
	"shift":   {Codes: []uint32{VK_SHIFT, VK_LSHIFT, VK_RSHIFT}},
	"shift_l": {Codes: []uint32{VK_LSHIFT}},
	"shift_r": {Codes: []uint32{VK_RSHIFT}},
	"win":     {Codes: []uint32{VK_LWIN, VK_RWIN}},
	"cmd":     {Codes: []uint32{VK_LWIN, VK_RWIN}},
	"meta":    {Codes: []uint32{VK_LWIN, VK_RWIN}},
	"super":   {Codes: []uint32{VK_LWIN, VK_RWIN}},
	"cmd_l":   {Codes: []uint32{VK_LWIN}},
	"cmd_r":   {Codes: []uint32{VK_RWIN}},
}

var named = map[string]uint32{
	"caps_lock":    VK_CAPITAL,
	"capslock":     VK_CAPITAL,
	"scroll_lock":  VK_SCROLL,
	"num_lock":     VK_NUMLOCK,
	"pause":        VK_PAUSE,
	"print_screen": VK_SNAPSHOT,
	"apps":         VK_APPS,
	"esc":          VK_ESCAPE,
	"escape":       VK_ESCAPE,
	"space":        VK_SPACE,
	"enter":        VK_RETURN,
	"return":       VK_RETURN,
	"tab":          VK_TAB,
	"backspace":    VK_BACK,
	"insert":       VK_INSERT,
	"delete":       VK_DELETE,
	"home":         VK_HOME,
	"end":          VK_END,
	"pageup":       VK_PRIOR,
	"page_up":      VK_PRIOR,
	"pagedown":     VK_NEXT,
	"page_down":    VK_NEXT,
	"left":         VK_LEFT,
	"up":           VK_UP,
	"right":        VK_RIGHT,
	"down":         VK_DOWN,
	"add":          VK_ADD,
	"plus":         VK_ADD,
	"kpadd":        VK_ADD,
	"subtract":     VK_SUBTRACT,
	"minus":        VK_SUBTRACT,
	"kpsubtract":   VK_SUBTRACT,
}

// aliases for the left/right modifier names written out in full.
var aliases = map[string]string{
	"left_ctrl":   "ctrl_l",
	"right_ctrl":  "ctrl_r",
	"left_alt":    "alt_l",
	"right_alt":   "alt_r",
	"left_shift":  "shift_l",
	"right_shift": "shift_r",
}

// Parse accepts strings like "caps_lock", "alt+q", "ctrl+shift+F1",
// "right_ctrl" or "numpad1". A combination fires when all of its keys are
// held.
func Parse(s string) (Combo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Combo{}, fmt.Errorf("empty key")
	}
	combo := Combo{Spec: s}
	seen := make(map[string]bool)
	for _, p := range strings.Split(s, "+") {
		tok := strings.ToLower(strings.TrimSpace(p))
		if a, ok := aliases[tok]; ok {
			tok = a
		}
		if tok == "" {
			return Combo{}, fmt.Errorf("empty key in %q", s)
		}
		if seen[tok] {
			return Combo{}, fmt.Errorf("duplicate key %q in %q", tok, s)
		}
		seen[tok] = true
		k, err := parseKey(tok)
		if err != nil {
			return Combo{}, fmt.Errorf("invalid hotkey %q: %w", s, err)
		}
		combo.Keys = append(combo.Keys, k)
	}
	return combo, nil
}

func parseKey(tok string) (Key, error) {
	if m, ok := modifiers[tok]; ok {
		m.Name = tok
		m.Modifier = true
		return m, nil
	}
	single := func(vk uint32) (Key, error) {
		return Key{Name: tok, Codes: []uint32{vk}}, nil
	}
	if len(tok) == 1 {
		ch := tok[0]
		if ch >= 'a' && ch <= 'z' {
			return single(uint32(ch - 'a' + 'A'))
		}
		if ch >= '0' && ch <= '9' {
			return single(uint32(ch))
		}
	}
	if v, ok := named[tok]; ok {
		return single(v)
	}
	if strings.HasPrefix(tok, "f") {
		if n, err := strconv.Atoi(tok[1:]); err == nil && n >= 1 && n <= 24 {
			return single(VK_F1 + uint32(n-1))
		}
	}
	for _, prefix := range []string{"numpad", "num", "kp"} {
		if rest, ok := strings.CutPrefix(tok, prefix); ok {
			if n, err := strconv.Atoi(rest); err == nil && n >= 0 && n <= 9 {
				return single(VK_NUMPAD0 + uint32(n))
			}
		}
	}
	return Key{}, fmt.Errorf("unsupported key token: %s", tok)
}
