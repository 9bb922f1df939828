package hotkey

import "sync"

// Signal is a change of the combination's held state.
type Signal int

const (
	Press Signal = iota + 1
	Release
)

func (s Signal) String() string {
	switch s {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return "none"
	}
}

// Tracker turns raw key transitions into Press and Release signals. Press
// fires on the first keydown that completes the combination; auto-repeat
// keydowns are ignored. Release fires when any key of an active
// combination goes up.
type Tracker struct {
	mu      sync.Mutex
	combo   Combo
	held    []bool
	active  bool
	enabled bool
}

func NewTracker(c Combo) *Tracker {
	return &Tracker{combo: c, held: make([]bool, len(c.Keys)), enabled: true}
}

// SetEnabled turns signal emission on or off. Disabling an active
// combination does not emit a Release.
func (t *Tracker) SetEnabled(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = v
	if !v {
		t.active = false
		for i := range t.held {
			t.held[i] = false
		}
	}
}

func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// KeyDown records a keydown. swallow reports whether the event belongs to
// the active combination and is not a modifier, so it should be hidden from
// other applications.
func (t *Tracker) KeyDown(vk uint32) (sig Signal, swallow bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return 0, false
	}
	i := t.combo.index(vk)
	if i < 0 {
		return 0, false
	}
	if t.held[i] {
		return 0, t.active && !t.combo.Keys[i].Modifier
	}
	t.held[i] = true
	if !t.active && t.allHeld() {
		t.active = true
		sig = Press
	}
	return sig, t.active && !t.combo.Keys[i].Modifier
}

// KeyUp records a keyup.
func (t *Tracker) KeyUp(vk uint32) (sig Signal, swallow bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return 0, false
	}
	i := t.combo.index(vk)
	if i < 0 {
		return 0, false
	}
	t.held[i] = false
	if t.active {
		t.active = false
		return Release, !t.combo.Keys[i].Modifier
	}
	return 0, false
}

func (t *Tracker) allHeld() bool {
	for _, h := range t.held {
		if !h {
			return false
		}
	}
	return len(t.held) > 0
}
