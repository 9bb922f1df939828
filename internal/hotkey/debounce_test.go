package hotkey

import (
	"context"
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu   sync.Mutex
	sigs []Signal
}

func (c *collector) add(s Signal) {
	c.mu.Lock()
	c.sigs = append(c.sigs, s)
	c.mu.Unlock()
}

func (c *collector) get() []Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Signal(nil), c.sigs...)
}

func runDebounce(t *testing.T, window time.Duration) (chan<- Signal, *collector, func()) {
	t.Helper()
	in := make(chan Signal)
	c := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Debounce(ctx, in, window, c.add)
		close(done)
	}()
	return in, c, func() {
		cancel()
		<-done
	}
}

func TestDebounceDropsChatter(t *testing.T) {
	in, c, stop := runDebounce(t, 200*time.Millisecond)
	defer stop()

	in <- Press
	in <- Release
	in <- Press
	time.Sleep(300 * time.Millisecond)

	got := c.get()
	if len(got) != 1 || got[0] != Press {
		t.Fatalf("expected a single press, got %v", got)
	}
}

func TestDebounceForwardsReleaseAfterWindow(t *testing.T) {
	in, c, stop := runDebounce(t, 20*time.Millisecond)
	defer stop()

	in <- Press
	in <- Release
	deadline := time.Now().Add(2 * time.Second)
	for len(c.get()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := c.get()
	if len(got) != 2 || got[0] != Press || got[1] != Release {
		t.Fatalf("expected press then release, got %v", got)
	}
}

func TestDebounceZeroWindowPassesThrough(t *testing.T) {
	in := make(chan Signal, 3)
	in <- Press
	in <- Release
	in <- Press
	close(in)

	c := &collector{}
	Debounce(context.Background(), in, 0, c.add)
	got := c.get()
	if len(got) != 3 {
		t.Fatalf("expected all signals forwarded, got %v", got)
	}
}
