package scheduler

import (
	"sync"
	"time"
)

// Gates holds the five suspend conditions of spec §4.6 and the
// condition variable the scheduler parks on between items.
type Gates struct {
	mu   sync.Mutex
	cond *sync.Cond

	isRunning      bool
	enableIndexing bool
	pauseManual    bool
	batteryPause   bool
	pauseIO        bool
	gracePeriod    int // seconds remaining

	stopTicker chan struct{}
}

// NewGates returns gates initialized to running/enabled with no
// active pause.
func NewGates() *Gates {
	g := &Gates{isRunning: true, enableIndexing: true}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// reasonLocked reports the first gate reason currently blocking
// progress, or "" if none. Caller must hold g.mu.
func (g *Gates) reasonLocked() string {
	switch {
	case !g.isRunning || !g.enableIndexing:
		return "disabled"
	case g.pauseManual:
		return "pause_manual"
	case g.batteryPause:
		return "battery_pause"
	case g.pauseIO:
		return "pause_io"
	case g.gracePeriod > 0:
		return "grace_period"
	default:
		return ""
	}
}

// Parked reports whether the pipeline should currently be suspended,
// and why.
func (g *Gates) Parked() (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	reason := g.reasonLocked()
	return reason != "", reason
}

func (g *Gates) set(apply func()) {
	g.mu.Lock()
	apply()
	cleared := g.reasonLocked() == ""
	g.mu.Unlock()
	if cleared {
		g.cond.Broadcast()
	}
}

// SetRunning toggles is_running.
func (g *Gates) SetRunning(running bool) { g.set(func() { g.isRunning = running }) }

// SetEnableIndexing toggles enable_indexing.
func (g *Gates) SetEnableIndexing(enabled bool) { g.set(func() { g.enableIndexing = enabled }) }

// SetPauseManual toggles pause_manual.
func (g *Gates) SetPauseManual(paused bool) { g.set(func() { g.pauseManual = paused }) }

// SetBatteryPause toggles battery_pause, driven by the power monitor (§6).
func (g *Gates) SetBatteryPause(paused bool) { g.set(func() { g.batteryPause = paused }) }

// SetPauseIO toggles pause_io, an externally requested pause (e.g. a
// client interaction).
func (g *Gates) SetPauseIO(paused bool) { g.set(func() { g.pauseIO = paused }) }

// SetGracePeriod sets the grace_period seconds countdown.
func (g *Gates) SetGracePeriod(seconds int) { g.set(func() { g.gracePeriod = seconds }) }

// TickGracePeriod decrements grace_period once, per spec §4.6
// ("decrement once per second, park"). StartGraceTicker drives this
// automatically; tests can call it directly.
func (g *Gates) TickGracePeriod() {
	g.set(func() {
		if g.gracePeriod > 0 {
			g.gracePeriod--
		}
	})
}

// StartGraceTicker ticks TickGracePeriod once per second until
// StopGraceTicker is called.
func (g *Gates) StartGraceTicker() {
	g.mu.Lock()
	if g.stopTicker != nil {
		g.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	g.stopTicker = stop
	g.mu.Unlock()

	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				g.TickGracePeriod()
			}
		}
	}()
}

// StopGraceTicker stops a ticker started by StartGraceTicker.
func (g *Gates) StopGraceTicker() {
	g.mu.Lock()
	stop := g.stopTicker
	g.stopTicker = nil
	g.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// WaitUntilUnparked blocks on the condition variable until no gate
// reason holds, or until wake is closed (used to propagate shutdown).
func (g *Gates) WaitUntilUnparked(wake <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		select {
		case <-wake:
			g.cond.Broadcast()
		case <-done:
		}
	}()
	defer close(done)

	g.mu.Lock()
	defer g.mu.Unlock()
	for g.reasonLocked() != "" {
		select {
		case <-wake:
			return
		default:
		}
		g.cond.Wait()
	}
}
