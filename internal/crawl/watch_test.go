package crawl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/standardbeagle/lci/internal/classify"
	"github.com/standardbeagle/lci/internal/types"
)

func newTestWatcher(t *testing.T) (*Watcher, *[]types.FileInfo) {
	t.Helper()
	var events []types.FileInfo
	classifier := classify.New(classify.Roots{WatchRoots: []string{t.TempDir()}}, nil)
	w, err := NewWatcher(classifier, NewWatchBudget(100), func(fi types.FileInfo) {
		events = append(events, fi)
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Stop() })
	return w, &events
}

func TestRenameCoalescingPairsMovedFromAndMovedTo(t *testing.T) {
	w, events := newTestWatcher(t)

	w.queueMovedFrom("/tmp/old.txt", false)
	if !w.tryPairMovedTo("/tmp/new.txt", false) {
		t.Fatal("expected pairing to succeed")
	}
	if len(*events) != 1 {
		t.Fatalf("expected 1 coalesced event, got %d", len(*events))
	}
	got := (*events)[0]
	if got.URI != "/tmp/old.txt" || got.MovedToURI != "/tmp/new.txt" {
		t.Fatalf("expected coalesced rename old->new, got %+v", got)
	}
}

func TestRenameGraceExpiresToDeleteWhenUnpaired(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.txt")
	// Do not create the file: Lstat must fail, confirming deletion.

	classifier := classify.New(classify.Roots{WatchRoots: []string{root}}, nil)
	var events []types.FileInfo
	w, err := NewWatcher(classifier, NewWatchBudget(100), func(fi types.FileInfo) {
		events = append(events, fi)
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.queueMovedFrom(path, false)
	w.tickRenameGrace() // counter 1 -> 0, still pending
	if len(events) != 0 {
		t.Fatalf("expected no event yet, got %d", len(events))
	}
	w.tickRenameGrace() // counter 0 -> -1, expires
	if len(events) != 1 || events[0].Action != types.ActionDelete {
		t.Fatalf("expected a Delete event after grace expiry, got %+v", events)
	}
}

func TestRenameGraceDropsSilentlyIfPathReappears(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "reappeared.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	classifier := classify.New(classify.Roots{WatchRoots: []string{root}}, nil)
	var events []types.FileInfo
	w, err := NewWatcher(classifier, NewWatchBudget(100), func(fi types.FileInfo) {
		events = append(events, fi)
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.queueMovedFrom(path, false)
	w.tickRenameGrace()
	w.tickRenameGrace()
	if len(events) != 0 {
		t.Fatalf("expected no Delete emitted for a path that still exists, got %+v", events)
	}
}

func TestIOGraceWindow(t *testing.T) {
	w, _ := newTestWatcher(t)
	w.setGrace("/tmp/x")
	if !w.InGrace("/tmp/x") {
		t.Fatal("expected path to be in grace immediately after setGrace")
	}

	w.graceMu.Lock()
	w.grace["/tmp/x"] = time.Now().Add(-time.Second)
	w.graceMu.Unlock()

	if w.InGrace("/tmp/x") {
		t.Fatal("expected grace to have expired")
	}
}
