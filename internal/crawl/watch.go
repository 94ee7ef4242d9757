package crawl

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lci/internal/classify"
	"github.com/standardbeagle/lci/internal/types"
)

// RenameGrace is the per-tick decrement period for unpaired MovedFrom
// events (spec §4.5: "Each ~350 ms tick decrements").
const RenameGrace = 350 * time.Millisecond

// IOGraceMinimum is the minimum per-path grace window set after any
// fs-visible change (spec §4.5).
const IOGraceMinimum = 2 * time.Second

// Watcher is the live phase of spec §4.5: subscribes to fsnotify
// events, maps them to FileInfo actions, coalesces renames, and
// tracks per-path I/O grace.
type Watcher struct {
	fsw        *fsnotify.Watcher
	classifier *classify.Classifier
	budget     *WatchBudget
	emit       Emit
	onError    func(error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	renameMu sync.Mutex
	pending  []*pendingRename // FIFO of unpaired MovedFrom events
	nextSeq  int32

	graceMu sync.Mutex
	grace   map[string]time.Time
}

// pendingRename is a MovedFrom awaiting a MovedTo pairing. fsnotify's
// public API does not surface the kernel inotify rename cookie, so
// pairing here is FIFO/best-effort: the oldest unpaired MovedFrom is
// matched against the next Create seen within the grace window (spec
// §9 Open Question: rename-cookie pairing resolved as FIFO pairing
// since the underlying library gives us no cookie to match on).
type pendingRename struct {
	cookie  int32
	path    string
	isDir   bool
	counter int // grace ticks remaining
}

// NewWatcher opens an fsnotify watcher bound to classifier/budget for
// directory-add decisions and emit for translated FileInfo events.
func NewWatcher(classifier *classify.Classifier, budget *WatchBudget, emit Emit, onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fsw:        fsw,
		classifier: classifier,
		budget:     budget,
		emit:       emit,
		onError:    onError,
		ctx:        ctx,
		cancel:     cancel,
		grace:      make(map[string]time.Time),
	}, nil
}

// AddWatch reserves a budget slot (if available) and subscribes dir.
// Matches the Crawl addWatch callback signature.
func (w *Watcher) AddWatch(dir string) error {
	if !w.budget.TryReserve() {
		return nil // budget exhausted; crawl continues unwatched (spec §4.5)
	}
	if err := w.fsw.Add(dir); err != nil {
		w.budget.Release()
		return err
	}
	return nil
}

// Start launches the event-processing and rename-grace goroutines.
func (w *Watcher) Start() {
	w.wg.Add(2)
	go w.processEvents()
	go w.runRenameGrace()
}

// Stop shuts down the watcher and waits for its goroutines to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	w.setGrace(path)

	info, statErr := os.Lstat(path)
	exists := statErr == nil

	switch {
	case ev.Op&fsnotify.Create != 0 && exists && info.IsDir():
		w.handleDirectoryCreated(path)
	case ev.Op&fsnotify.Create != 0:
		if w.tryPairMovedTo(path, exists && info.IsDir()) {
			return
		}
		w.emitClassified(path, types.ActionCreate, exists && info.IsDir())
	case ev.Op&fsnotify.Write != 0:
		w.emitClassified(path, types.ActionWritableFileClosed, false)
	case ev.Op&fsnotify.Remove != 0:
		w.emitClassified(path, types.ActionDelete, false)
	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports only the old path for a rename; treat it as
		// an unpaired MovedFrom awaiting a subsequent Create (spec
		// §4.5 "MovedFrom sits in a holding queue with counter=1 grace").
		w.queueMovedFrom(path, !exists)
	}
}

func (w *Watcher) handleDirectoryCreated(path string) {
	if w.classifier != nil && w.classifier.Classify(path).Decision == classify.Ignore {
		return
	}
	w.AddWatch(path)
	w.emit(types.FileInfo{URI: path, Action: types.ActionCreate, IsDirectory: true})
}

func (w *Watcher) emitClassified(path string, action types.FileAction, isDir bool) {
	if w.classifier != nil && w.classifier.Classify(path).Decision == classify.Ignore {
		return
	}
	w.emit(types.FileInfo{URI: path, Action: action, IsDirectory: isDir})
}

func (w *Watcher) queueMovedFrom(path string, assumeDir bool) {
	w.renameMu.Lock()
	w.nextSeq++
	w.pending = append(w.pending, &pendingRename{cookie: w.nextSeq, path: path, isDir: assumeDir, counter: 1})
	w.renameMu.Unlock()
}

// tryPairMovedTo pairs path against the oldest unpaired MovedFrom, if
// any is waiting, emitting a coalesced rename instead of a bare
// Create (spec §4.5 rename coalescing).
func (w *Watcher) tryPairMovedTo(path string, isDir bool) bool {
	w.renameMu.Lock()
	if len(w.pending) == 0 {
		w.renameMu.Unlock()
		return false
	}
	from := w.pending[0]
	w.pending = w.pending[1:]
	w.renameMu.Unlock()

	action := types.ActionMovedFrom
	if from.isDir || isDir {
		action = types.ActionDirectoryRefresh
	}
	w.emit(types.FileInfo{
		URI:         from.path,
		Action:      action,
		Cookie:      from.cookie,
		MovedToURI:  path,
		IsDirectory: from.isDir || isDir,
	})
	return true
}

// runRenameGrace ticks every RenameGrace, decrementing pending
// MovedFrom counters; any whose counter drops below zero without a
// pairing is reissued as Deleted once confirmed gone (spec §4.5).
func (w *Watcher) runRenameGrace() {
	defer w.wg.Done()
	ticker := time.NewTicker(RenameGrace)
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.tickRenameGrace()
		}
	}
}

func (w *Watcher) tickRenameGrace() {
	w.renameMu.Lock()
	var expired []*pendingRename
	remaining := w.pending[:0]
	for _, p := range w.pending {
		p.counter--
		if p.counter < 0 {
			expired = append(expired, p)
		} else {
			remaining = append(remaining, p)
		}
	}
	w.pending = remaining
	w.renameMu.Unlock()

	for _, p := range expired {
		if _, err := os.Lstat(p.path); err == nil {
			continue // path reappeared; drop silently, a fresh event will follow
		}
		w.emitClassified(p.path, types.ActionDelete, p.isDir)
	}
}

// setGrace extends path's I/O grace window to at least IOGraceMinimum
// from now (spec §4.5 "per-path grace counter ... set to >= 2 seconds").
func (w *Watcher) setGrace(path string) {
	w.graceMu.Lock()
	w.grace[path] = time.Now().Add(IOGraceMinimum)
	w.graceMu.Unlock()
}

// InGrace reports whether path is still within its I/O grace window.
func (w *Watcher) InGrace(path string) bool {
	w.graceMu.Lock()
	until, ok := w.grace[path]
	w.graceMu.Unlock()
	if !ok {
		return false
	}
	if time.Now().After(until) {
		w.graceMu.Lock()
		delete(w.grace, path)
		w.graceMu.Unlock()
		return false
	}
	return true
}

// AddRecursive adds watches for root and every qualifying descendant
// directory, used to seed a Watcher after an initial Crawl.
func (w *Watcher) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.classifier != nil && w.classifier.Classify(path).Decision == classify.Ignore {
			return filepath.SkipDir
		}
		w.AddWatch(path)
		return nil
	})
}
