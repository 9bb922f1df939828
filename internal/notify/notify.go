// Package notify shows desktop notifications and plays feedback beeps.
package notify

import (
	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"
)

const appName = "Dictation"

// Beep tones for the start and end of a recording.
const (
	startFreq = 800.0
	endFreq   = 600.0
	beepMS    = 100
)

// Notifier honours the notification and sound settings.
type Notifier struct {
	notify bool
	sound  bool
	log    *log.Logger
}

func New(notifications, sound bool, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Default().WithPrefix("notify")
	}
	return &Notifier{notify: notifications, sound: sound, log: logger}
}

// Notify shows an informational toast.
func (n *Notifier) Notify(message string) {
	if !n.notify {
		return
	}
	if err := beeep.Notify(appName, message, ""); err != nil {
		n.log.Warn("notification failed", "err", err)
	}
}

// Error shows a failure toast. Errors are always shown, even when routine
// notifications are off.
func (n *Notifier) Error(message string) {
	if err := beeep.Alert(appName, message, ""); err != nil {
		n.log.Warn("notification failed", "err", err)
	}
}

// StartBeep plays the recording-started tone without blocking.
func (n *Notifier) StartBeep() { n.beep(startFreq) }

// EndBeep plays the recording-finished tone without blocking.
func (n *Notifier) EndBeep() { n.beep(endFreq) }

func (n *Notifier) beep(freq float64) {
	if !n.sound {
		return
	}
	go func() {
		if err := beeep.Beep(freq, beepMS); err != nil {
			n.log.Debug("beep failed", "err", err)
		}
	}()
}
