// Package mount implements the Storage Monitor external collaborator
// of spec §3/§6: a mount-point tree keyed by path with longest-prefix
// lookup, plus the add/remove change signals the scheduler reacts to.
package mount

import (
	"strings"
	"sync"

	"github.com/standardbeagle/lci/internal/types"
)

// Event is one mount add/remove notification (spec §6:
// "MountPointAdded(udi, mp) / MountPointRemoved(udi, mp)").
type Event struct {
	Added bool
	UDI   string
	Node  types.MountNode
}

// Tree is a mount-point tree: nodes keyed by their mount path, with
// longest-prefix lookup for path_is_on_removable and volume_udi_for.
// A flat map plus a sorted-by-length scan is sufficient here — mount
// tables are tens of entries, not thousands, so a radix tree buys
// nothing a linear scan over descending path length doesn't already
// give.
type Tree struct {
	mu       sync.RWMutex
	byPath   map[string]nodeEntry
	onChange func(Event)
}

type nodeEntry struct {
	udi  string
	node types.MountNode
}

// New creates an empty mount-point tree.
func New() *Tree {
	return &Tree{byPath: make(map[string]nodeEntry)}
}

// OnChange registers the callback fired on every Add/Remove.
func (t *Tree) OnChange(cb func(Event)) {
	t.mu.Lock()
	t.onChange = cb
	t.mu.Unlock()
}

// Add registers a mount point, keyed by udi, firing MountPointAdded.
func (t *Tree) Add(udi string, node types.MountNode) {
	t.mu.Lock()
	t.byPath[node.MountPoint] = nodeEntry{udi: udi, node: node}
	cb := t.onChange
	t.mu.Unlock()

	if cb != nil {
		cb(Event{Added: true, UDI: udi, Node: node})
	}
}

// Remove unregisters the mount point at path, firing
// MountPointRemoved if one was present.
func (t *Tree) Remove(path string) {
	t.mu.Lock()
	entry, ok := t.byPath[path]
	if ok {
		delete(t.byPath, path)
	}
	cb := t.onChange
	t.mu.Unlock()

	if ok && cb != nil {
		cb(Event{Added: false, UDI: entry.udi, Node: entry.node})
	}
}

// lookup returns the longest mount-point prefix of path, if any.
func (t *Tree) lookup(path string) (nodeEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var best nodeEntry
	bestLen := -1
	for mp, entry := range t.byPath {
		if !isUnderOrEqual(path, mp) {
			continue
		}
		if len(mp) > bestLen {
			best, bestLen = entry, len(mp)
		}
	}
	return best, bestLen >= 0
}

func isUnderOrEqual(path, mountPoint string) bool {
	if path == mountPoint {
		return true
	}
	prefix := mountPoint
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(path, prefix)
}

// ListMountedRoots returns every registered mount path.
func (t *Tree) ListMountedRoots() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.byPath))
	for mp := range t.byPath {
		out = append(out, mp)
	}
	return out
}

// ListRemovableRoots returns every registered mount path flagged removable.
func (t *Tree) ListRemovableRoots() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for mp, e := range t.byPath {
		if e.node.Removable {
			out = append(out, mp)
		}
	}
	return out
}

// PathIsOnRemovable reports whether path falls under a removable
// mount point, and if so which one.
func (t *Tree) PathIsOnRemovable(path string) (removable bool, mountPoint string, available bool) {
	entry, ok := t.lookup(path)
	if !ok {
		return false, "", false
	}
	return entry.node.Removable, entry.node.MountPoint, true
}

// VolumeUDIFor returns the udi of the mount point containing path.
func (t *Tree) VolumeUDIFor(path string) (udi string, ok bool) {
	entry, ok := t.lookup(path)
	if !ok {
		return "", false
	}
	return entry.udi, true
}
