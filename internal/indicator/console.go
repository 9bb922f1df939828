//go:build !windows

package indicator

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"dictation/internal/pipeline"
)

// Indicator logs state changes. The menu is not available without a tray.
type Indicator struct {
	mu      sync.Mutex
	state   pipeline.State
	enabled bool
	menu    Menu
	log     *log.Logger
}

func New(menu Menu, enabled bool, logger *log.Logger) *Indicator {
	if logger == nil {
		logger = log.Default().WithPrefix("tray")
	}
	return &Indicator{menu: menu, enabled: enabled, log: logger}
}

func (c *Indicator) Show(s pipeline.State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	enabled := c.enabled
	c.mu.Unlock()
	if changed {
		c.log.Info(Tooltip(s, enabled))
	}
}

func (c *Indicator) SetEnabled(v bool) {
	c.mu.Lock()
	c.enabled = v
	s := c.state
	c.mu.Unlock()
	c.log.Info(Tooltip(s, v))
}

// Run blocks until ctx is done.
func (c *Indicator) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
