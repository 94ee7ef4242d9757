package store

import "github.com/gofrs/flock"

// LocalLock wraps a plain flock(2) advisory lock, the fast path used
// when the data directory is known to live on a local filesystem
// (spec §6 "tracker.lock" contract, NFS branch only). NFSLock's
// hard-link protocol is reserved for filesystems where flock is
// unreliable (NFS, some network mounts).
type LocalLock struct {
	fl *flock.Flock
}

// NewLocalLock creates a local lock rooted at path (typically the same
// tracker.lock path NFSLock would use).
func NewLocalLock(path string) *LocalLock {
	return &LocalLock{fl: flock.New(path)}
}

// TryObtain attempts a non-blocking lock, reporting whether it succeeded.
func (l *LocalLock) TryObtain() (bool, error) {
	return l.fl.TryLock()
}

// Release unlocks the flock.
func (l *LocalLock) Release() error {
	return l.fl.Unlock()
}
