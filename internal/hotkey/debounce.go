package hotkey

import (
	"context"
	"time"
)

// Debounce forwards signals from in to out. A Release followed by a Press
// within window is key chatter: both are dropped. Any other Release is
// forwarded once the window passes without a new Press.
func Debounce(ctx context.Context, in <-chan Signal, window time.Duration, out func(Signal)) {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending bool
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
		timerC = nil
		pending = false
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-in:
			if !ok {
				if pending {
					out(Release)
				}
				return
			}
			if window <= 0 {
				out(s)
				continue
			}
			switch s {
			case Release:
				if pending {
					continue
				}
				pending = true
				timer = time.NewTimer(window)
				timerC = timer.C
			case Press:
				if pending {
					stop()
					continue
				}
				out(s)
			}
		case <-timerC:
			timerC = nil
			pending = false
			out(Release)
		}
	}
}
