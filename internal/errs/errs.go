// Package errs implements the error taxonomy of spec §7: a closed set
// of kinds driving pipeline retry/parking/abort behavior, plus a
// bounded-exponential retry helper for IoTransient failures.
package errs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Kind is the closed error taxonomy of spec §7.
type Kind int

const (
	// IoTransient is retried after I/O grace with bounded exponential
	// backoff up to ~32s; applies to file reads, watch-add, FS events.
	IoTransient Kind = iota
	// IoPermanent means the path vanished or stayed unreadable after
	// retries; the caller marks the service deleted or skips it.
	IoPermanent
	// StorageFull aborts the current transaction; the scheduler parks
	// until disk frees and a LowDiskSpaceLimit event is emitted.
	StorageFull
	// StorageCorrupt is fatal: emit StorageError, stop the indexer
	// thread. The request (read) path may keep serving.
	StorageCorrupt
	// ParseError covers mail summaries, RDF payloads, and
	// TrackerResource values: log and skip the offending record unless
	// the caller opted into strict mode.
	ParseError
	// Cancelled propagates through batch and extractor boundaries.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case IoTransient:
		return "IoTransient"
	case IoPermanent:
		return "IoPermanent"
	case StorageFull:
		return "StorageFull"
	case StorageCorrupt:
		return "StorageCorrupt"
	case ParseError:
		return "ParseError"
	case Cancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error wraps an underlying error with a taxonomy Kind and the
// operation/path context that produced it (spec §7 propagation
// policy needs this context to decide per-FileInfo retry vs. skip).
type Error struct {
	Kind      Kind
	Operation string
	Path      string
	Err       error
}

func New(kind Kind, operation, path string, err error) *Error {
	return &Error{Kind: kind, Operation: operation, Path: path, Err: err}
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Operation, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the taxonomy Kind from err, if any, via errors.As.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err (or anything it wraps) carries kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Retry runs op with a bounded exponential backoff (initial interval
// 250ms, up to ~32s, spec §7 "retry after I/O grace ... bounded
// exponential up to ~32s"), retrying only IoTransient failures. Any
// other Kind (or an unwrapped error) stops the retry loop immediately.
func Retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 32 * time.Second
	policy.MaxElapsedTime = 2 * time.Minute

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if Is(err, IoTransient) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(policy, ctx))
}
