package crawl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/standardbeagle/lci/internal/classify"
	"github.com/standardbeagle/lci/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCrawlEmitsCheckAndDirectoryCheck(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "world")

	classifier := classify.New(classify.Roots{WatchRoots: []string{root}}, nil)
	budget := NewWatchBudget(100)

	var checks, dirChecks int
	err := Crawl(root, classifier, budget, func(string) error { return nil }, func(fi types.FileInfo) {
		switch fi.Action {
		case types.ActionCheck:
			checks++
		case types.ActionDirectoryCheck:
			dirChecks++
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if checks != 2 {
		t.Fatalf("expected 2 file checks, got %d", checks)
	}
	if dirChecks != 2 {
		t.Fatalf("expected 2 directory checks (root + sub), got %d", dirChecks)
	}
}

func TestCrawlStopsWatchingAfterBudgetExhausted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "x.txt"), "x")
	writeFile(t, filepath.Join(root, "b", "y.txt"), "y")

	classifier := classify.New(classify.Roots{WatchRoots: []string{root}}, nil)
	budget := NewWatchBudget(1) // only root itself gets watched

	var watched int
	err := Crawl(root, classifier, budget, func(dir string) error {
		watched++
		return nil
	}, func(types.FileInfo) {})
	if err != nil {
		t.Fatal(err)
	}
	if watched != 1 {
		t.Fatalf("expected exactly 1 addWatch call given budget=1, got %d", watched)
	}
	if budget.Remaining() != 0 {
		t.Fatalf("expected budget exhausted, got %d remaining", budget.Remaining())
	}
}

func TestCrawlSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.txt"), "k")
	writeFile(t, filepath.Join(root, ".cache", "skip.txt"), "s")

	classifier := classify.New(classify.Roots{
		WatchRoots:   []string{root},
		NoWatchGlobs: []string{filepath.Join(root, ".cache") + "/**", filepath.Join(root, ".cache")},
	}, nil)
	budget := NewWatchBudget(100)

	var paths []string
	Crawl(root, classifier, budget, func(string) error { return nil }, func(fi types.FileInfo) {
		if fi.Action == types.ActionCheck {
			paths = append(paths, fi.URI)
		}
	})
	for _, p := range paths {
		if filepath.Base(filepath.Dir(p)) == ".cache" {
			t.Fatalf("expected .cache contents to be skipped, got %s", p)
		}
	}
}

func TestWatchBudgetReleaseRestoresSlot(t *testing.T) {
	b := NewWatchBudget(1)
	if !b.TryReserve() {
		t.Fatal("expected first reserve to succeed")
	}
	if b.TryReserve() {
		t.Fatal("expected second reserve to fail")
	}
	b.Release()
	if !b.TryReserve() {
		t.Fatal("expected reserve to succeed after release")
	}
}
