package store

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// NFSLock reimplements tracker-nfs-lock.c's hard-link-and-check
// protocol (spec §6: "tracker.lock (NFS-safe advisory lock: create
// lock via hard-link-and-check; nlink == 2 means held)"). Standard
// flock(2)-style advisory locks are unreliable or outright ignored by
// some NFS server implementations, so Tracker falls back to this
// link-count trick which is safe on any POSIX filesystem including NFS.
type NFSLock struct {
	// Enabled mirrors the C original's use_nfs_safe_locking: when
	// false, Obtain/Release are no-ops (spec: local disks don't need
	// NFS-safe locking; internal/store's fast path uses gofrs/flock
	// instead — see LocalLock).
	Enabled bool

	lockPath string // <data-dir>/tracker.lock
	hostPath string // <data-dir>/tracker.lock_<hostname>
}

// MaxLockAttempts bounds the retry loop (spec/original: 10000 tries).
const MaxLockAttempts = 10000

// StaleLockAge matches the original's 5-minute staleness window.
const StaleLockAge = 5 * time.Minute

// NewNFSLock builds a lock rooted at dataDir/tracker.lock, with a
// hostname-qualified companion path for the hard-link check.
func NewNFSLock(dataDir string, enabled bool) (*NFSLock, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	return &NFSLock{
		Enabled:  enabled,
		lockPath: filepath.Join(dataDir, "tracker.lock"),
		hostPath: filepath.Join(dataDir, fmt.Sprintf("tracker.lock_%s", host)),
	}, nil
}

// Obtain implements tracker_nfs_lock_obtain: create lock_filename
// exclusively, hard-link a host-specific companion to it, and check
// that the link count is exactly 2 — anything else means a race with
// another holder, so retry with a random backoff.
func (l *NFSLock) Obtain() error {
	if !l.Enabled {
		return nil
	}

	for attempt := 0; attempt < MaxLockAttempts; attempt++ {
		if info, err := os.Stat(l.lockPath); err == nil {
			if time.Since(info.ModTime()) > StaleLockAge {
				os.Remove(l.lockPath)
			}
		}

		f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			time.Sleep(randomBackoff())
			continue
		}
		f.Close()

		if err := os.Link(l.lockPath, l.hostPath); err != nil {
			return fmt.Errorf("store: nfs lock link failed: %w", err)
		}

		nlinks, err := linkCount(l.lockPath)
		if err != nil {
			return fmt.Errorf("store: nfs lock stat failed: %w", err)
		}
		if nlinks == 2 {
			return nil
		}

		os.Remove(l.hostPath)
		time.Sleep(randomBackoff())
	}

	return fmt.Errorf("store: could not obtain nfs lock state after %d attempts", MaxLockAttempts)
}

// Release implements tracker_nfs_lock_release: remove both the
// host-specific companion and the shared lock file.
func (l *NFSLock) Release() error {
	if !l.Enabled {
		return nil
	}
	os.Remove(l.hostPath)
	return os.Remove(l.lockPath)
}

func randomBackoff() time.Duration {
	return time.Duration(1000+rand.Intn(99000)) * time.Microsecond
}
