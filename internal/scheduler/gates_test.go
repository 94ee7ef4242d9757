package scheduler

import (
	"testing"
	"time"
)

func TestGatesStartUnparked(t *testing.T) {
	g := NewGates()
	if parked, reason := g.Parked(); parked {
		t.Fatalf("expected fresh gates to be unparked, got reason %q", reason)
	}
}

func TestPauseManualParksAndUnparksOnClear(t *testing.T) {
	g := NewGates()
	g.SetPauseManual(true)
	if parked, reason := g.Parked(); !parked || reason != "pause_manual" {
		t.Fatalf("expected pause_manual, got parked=%v reason=%q", parked, reason)
	}

	done := make(chan struct{})
	go func() {
		g.WaitUntilUnparked(nil)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected WaitUntilUnparked to block while paused")
	case <-time.After(50 * time.Millisecond):
	}

	g.SetPauseManual(false)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected WaitUntilUnparked to return after the pause cleared")
	}
}

func TestWaitUntilUnparkedReturnsOnWakeChannel(t *testing.T) {
	g := NewGates()
	g.SetPauseIO(true)
	wake := make(chan struct{})

	done := make(chan struct{})
	go func() {
		g.WaitUntilUnparked(wake)
		close(done)
	}()

	close(wake)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected closing wake to unblock WaitUntilUnparked even though still paused")
	}
}

func TestGracePeriodTicksDownAndClears(t *testing.T) {
	g := NewGates()
	g.SetGracePeriod(2)
	if parked, reason := g.Parked(); !parked || reason != "grace_period" {
		t.Fatalf("expected grace_period, got parked=%v reason=%q", parked, reason)
	}
	g.TickGracePeriod()
	if parked, _ := g.Parked(); !parked {
		t.Fatal("expected still parked after one tick of a 2-second grace period")
	}
	g.TickGracePeriod()
	if parked, _ := g.Parked(); parked {
		t.Fatal("expected unparked after grace period reaches zero")
	}
}

func TestDisabledAndNotRunningGates(t *testing.T) {
	g := NewGates()
	g.SetRunning(false)
	if parked, reason := g.Parked(); !parked || reason != "disabled" {
		t.Fatalf("expected disabled when not running, got parked=%v reason=%q", parked, reason)
	}
	g.SetRunning(true)
	g.SetEnableIndexing(false)
	if parked, reason := g.Parked(); !parked || reason != "disabled" {
		t.Fatalf("expected disabled when indexing disabled, got parked=%v reason=%q", parked, reason)
	}
}
