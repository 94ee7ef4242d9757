// Package crawl implements the crawler and watcher of spec §4.5: a
// breadth-first directory crawl bounded by a watch-count budget, and
// a live fsnotify-backed phase with rename coalescing and per-path
// I/O grace.
package crawl

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/standardbeagle/lci/internal/classify"
	"github.com/standardbeagle/lci/internal/types"
)

// WatchBudget tracks how many watches remain available during a
// crawl, mirroring the OS inotify ceiling minus a safety margin (spec
// §4.5, types.DefaultWatchLimitMargin).
type WatchBudget struct {
	remaining int64
}

// NewWatchBudget creates a budget of limit watch slots.
func NewWatchBudget(limit int) *WatchBudget {
	return &WatchBudget{remaining: int64(limit)}
}

// TryReserve consumes one watch slot if any remain.
func (b *WatchBudget) TryReserve() bool {
	for {
		cur := atomic.LoadInt64(&b.remaining)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&b.remaining, cur, cur-1) {
			return true
		}
	}
}

// Release returns a previously reserved slot (e.g. addWatch failed).
func (b *WatchBudget) Release() { atomic.AddInt64(&b.remaining, 1) }

// Remaining reports the current unreserved slot count.
func (b *WatchBudget) Remaining() int64 { return atomic.LoadInt64(&b.remaining) }

// Emit is invoked once per discovered filesystem entry during a crawl.
type Emit func(types.FileInfo)

// Crawl performs spec §4.5's breadth-first crawl phase: a FIFO of
// directories; for each, its non-directory children are emitted as
// ActionCheck, its directory children are queued, and the directory
// itself is emitted as ActionDirectoryCheck once its children have
// been queued. addWatch is attempted once per directory while the
// watch budget allows; once exhausted, crawling continues without it
// (spec: "watching stops but crawling continues"). Entries the
// classifier marks Ignore are skipped entirely, including descent.
func Crawl(root string, classifier *classify.Classifier, budget *WatchBudget, addWatch func(dir string) error, emit Emit) error {
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // spec §7 IoPermanent: unreadable dir, skip and move on
		}

		if budget.TryReserve() {
			if err := addWatch(dir); err != nil {
				budget.Release()
			}
		}

		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if classifier != nil && classifier.Classify(path).Decision == classify.Ignore {
				continue
			}

			info, err := e.Info()
			if err != nil {
				continue
			}

			if e.IsDir() {
				queue = append(queue, path)
				continue
			}

			emit(types.FileInfo{
				URI:      path,
				Action:   types.ActionCheck,
				Mtime:    info.ModTime(),
				IsHidden: isHiddenName(e.Name()),
			})
		}

		emit(types.FileInfo{
			URI:         dir,
			Action:      types.ActionDirectoryCheck,
			IsDirectory: true,
			IsHidden:    isHiddenName(filepath.Base(dir)),
		})
	}
	return nil
}

func isHiddenName(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
