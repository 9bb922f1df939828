//go:build windows

package indicator

import (
	"context"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/getlantern/systray"

	"dictation/internal/pipeline"
)

// Indicator is a tray icon whose colour and tooltip follow the pipeline
// state. State received before the tray is ready is applied once it is.
type Indicator struct {
	mu      sync.Mutex
	state   pipeline.State
	enabled bool
	ready   bool
	toggle  *systray.MenuItem

	menu Menu
	log  *log.Logger
}

func New(menu Menu, enabled bool, logger *log.Logger) *Indicator {
	if logger == nil {
		logger = log.Default().WithPrefix("tray")
	}
	return &Indicator{menu: menu, enabled: enabled, log: logger}
}

// Show updates the icon for s. Safe to call from any goroutine.
func (t *Indicator) Show(s pipeline.State) {
	t.mu.Lock()
	t.state = s
	ready, enabled := t.ready, t.enabled
	t.mu.Unlock()
	if ready {
		apply(s, enabled)
	}
}

// SetEnabled updates the toggle and icon after the enable state changed.
func (t *Indicator) SetEnabled(v bool) {
	t.mu.Lock()
	t.enabled = v
	ready, s, item := t.ready, t.state, t.toggle
	t.mu.Unlock()
	if !ready {
		return
	}
	if item != nil {
		if v {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	apply(s, v)
}

// Run shows the tray icon and blocks until ctx is done or Quit is chosen.
func (t *Indicator) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(func() { t.onReady(ctx) }, func() {
		t.log.Debug("tray exited")
	})
	return nil
}

func (t *Indicator) onReady(ctx context.Context) {
	systray.SetTitle(appName)

	t.mu.Lock()
	enabled := t.enabled
	toggle := systray.AddMenuItem("Enabled", "Enable or disable dictation")
	if enabled {
		toggle.Check()
	}
	t.toggle = toggle
	t.ready = true
	s := t.state
	t.mu.Unlock()
	apply(s, enabled)

	mUsage := systray.AddMenuItem("Usage", "Show usage statistics")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit dictation")

	go func() {
		for {
			select {
			case <-toggle.ClickedCh:
				next := !toggle.Checked()
				t.SetEnabled(next)
				if t.menu.OnToggle != nil {
					t.menu.OnToggle(next)
				}
			case <-mUsage.ClickedCh:
				if t.menu.OnUsage != nil {
					t.menu.OnUsage()
				}
			case <-mQuit.ClickedCh:
				t.log.Info("quit requested from tray")
				if t.menu.OnQuit != nil {
					t.menu.OnQuit()
				}
				systray.Quit()
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func apply(s pipeline.State, enabled bool) {
	systray.SetIcon(Icon(s, enabled))
	systray.SetTooltip(Tooltip(s, enabled))
}
