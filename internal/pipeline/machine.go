// Package pipeline runs the push-to-talk cycle: record while the hotkey is
// held, transcribe, optionally clean up, then type the result.
package pipeline

import "fmt"

// State is the orchestrator state shown by the indicator.
type State int

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind identifies an Event.
type EventKind int

const (
	EventPress EventKind = iota + 1
	EventRelease
	EventAutoStop
	EventSetEnabled
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventPress:
		return "press"
	case EventRelease:
		return "release"
	case EventAutoStop:
		return "auto-stop"
	case EventSetEnabled:
		return "set-enabled"
	case EventDone:
		return "done"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is posted to the orchestrator loop by the hotkey listener, the
// tray, timers and the processing worker.
type Event struct {
	Kind    EventKind
	Enabled bool
	Outcome Outcome

	// gen ties an auto-stop timer to the recording that armed it.
	gen uint64
}

// Machine is the orchestrator's state. It is only touched by the loop
// goroutine.
type Machine struct {
	state   State
	enabled bool
	gen     uint64
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Enabled() bool { return m.enabled }

// CanStart reports whether a press should begin recording.
func (m *Machine) CanStart() bool {
	return m.enabled && m.state == Idle
}

// StartRecording moves Idle to Recording and returns the new recording's
// generation.
func (m *Machine) StartRecording() (uint64, error) {
	if m.state != Idle {
		return 0, fmt.Errorf("cannot record while %s", m.state)
	}
	m.gen++
	m.state = Recording
	return m.gen, nil
}

// StopRecording leaves Recording, going to Processing when the recording is
// kept or straight back to Idle when it is discarded.
func (m *Machine) StopRecording(keep bool) error {
	if m.state != Recording {
		return fmt.Errorf("not recording (state %s)", m.state)
	}
	if keep {
		m.state = Processing
	} else {
		m.state = Idle
	}
	return nil
}

// Finish moves Processing back to Idle.
func (m *Machine) Finish() error {
	if m.state != Processing {
		return fmt.Errorf("not processing (state %s)", m.state)
	}
	m.state = Idle
	return nil
}

func (m *Machine) SetEnabled(v bool) {
	m.enabled = v
}
