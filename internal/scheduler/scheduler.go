package scheduler

import (
	"context"
	"time"

	"github.com/standardbeagle/lci/internal/logging"
	"github.com/standardbeagle/lci/internal/types"
)

// regulatorInterval/handleRefreshInterval implement spec §4.6: "Every
// 250 items or so the scheduler calls a transaction regulator... every
// 1000 items it additionally refreshes all DB handles."
const (
	regulatorInterval     = 250
	handleRefreshInterval = 1000
	progressInterval      = 250
)

// ItemSource yields the next pipeline ticket for a state's queue.
// ok=false means the queue is currently drained.
type ItemSource func(ctx context.Context) (item types.FileInfo, ok bool, err error)

// Coordinator is the set of cross-cutting operations the scheduler
// triggers around state boundaries and every regulatorInterval items
// (spec §4.6): transaction lifecycle, cache flush, and index merge.
type Coordinator interface {
	BeginTransaction() error
	EndTransaction() error
	RegulateTransaction() error // commit-and-reopen
	RefreshHandles() error      // close/reopen DB handles
	FlushAll() error            // cache.flush_all
	MergeFiles() error          // merge_indexes(FILES) + apply update-index journal
	MergeEmails() error         // merge_indexes(EMAILS)
}

// Scheduler drives the indexer thread's cooperative state machine.
type Scheduler struct {
	gates       *Gates
	coordinator Coordinator
	metrics     *Metrics
	log         *logging.Logger
	wake        <-chan struct{}

	firstRunComplete bool
}

// New creates a Scheduler. wake, if non-nil, is closed by the caller
// to interrupt an in-progress park (e.g. on shutdown).
func New(gates *Gates, coordinator Coordinator, metrics *Metrics, log *logging.Logger, wake <-chan struct{}) *Scheduler {
	return &Scheduler{gates: gates, coordinator: coordinator, metrics: metrics, log: log, wake: wake}
}

// Run walks Order end to end, pulling items for each state from
// sources[state] (states with no entry are treated as already
// drained) and invoking process for each. It performs the
// Files->Emails and Emails->Finished flush/merge orchestration of
// spec §4.6, and returns once StateFinished's (empty) queue drains.
func (s *Scheduler) Run(ctx context.Context, sources map[State]ItemSource, process func(types.FileInfo) error) error {
	start := time.Now()

	if err := s.coordinator.BeginTransaction(); err != nil {
		return err
	}

	state := StateConfig
	for {
		if s.log != nil {
			s.log.StateChange("", state.String())
		}
		if s.metrics != nil {
			s.metrics.State.Set(float64(state))
		}

		if state != StateFinished {
			if err := s.runState(ctx, state, sources[state], process); err != nil {
				return err
			}
		}

		if state == StateFiles {
			if err := s.onFilesComplete(); err != nil {
				return err
			}
		}
		if state == StateEmails {
			if err := s.onEmailsComplete(); err != nil {
				return err
			}
		}

		next, more := Next(state)
		if !more {
			break
		}
		state = next
	}

	if !s.firstRunComplete {
		s.firstRunComplete = true
		if s.log != nil {
			s.log.Info("initial index complete")
		}
	}
	if s.log != nil {
		s.log.Progress(StateFinished.String(), 0, 0, "")
		// total wall time carried on the "finished" signal (spec §4.6)
		s.log.GetZerolog().Info().
			Str("event", "finished").
			Dur("elapsed", time.Since(start)).
			Msg("indexing finished")
	}
	return nil
}

// onFilesComplete implements "Between states Files -> Emails the
// scheduler: ends the metadata-store transaction, calls
// cache.flush_all, triggers merge_indexes(FILES), applies the
// update-index journal, then begins a new transaction."
func (s *Scheduler) onFilesComplete() error {
	if err := s.coordinator.EndTransaction(); err != nil {
		return err
	}
	if err := s.coordinator.FlushAll(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.Flushes.WithLabelValues("files_to_emails").Inc()
	}
	if err := s.coordinator.MergeFiles(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.Merges.WithLabelValues("files").Inc()
	}
	return s.coordinator.BeginTransaction()
}

// onEmailsComplete implements "Between Emails -> Finished the
// scheduler calls cache.flush_all, refreshes handles, and triggers
// merge_indexes(EMAILS)."
func (s *Scheduler) onEmailsComplete() error {
	if err := s.coordinator.FlushAll(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.Flushes.WithLabelValues("emails_to_finished").Inc()
	}
	if err := s.coordinator.RefreshHandles(); err != nil {
		return err
	}
	if err := s.coordinator.MergeEmails(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.Merges.WithLabelValues("emails").Inc()
	}
	return nil
}

// runState drains source, checking gates before every pull, applying
// the transaction regulator/handle-refresh cadence, and reporting
// progress.
func (s *Scheduler) runState(ctx context.Context, state State, source ItemSource, process func(types.FileInfo) error) error {
	if source == nil {
		return nil
	}

	itemsDone := 0
	for {
		if parked, _ := s.gates.Parked(); parked {
			if err := s.coordinator.EndTransaction(); err != nil {
				return err
			}
			if s.log != nil {
				s.log.StateChange(state.String(), "parked")
			}
			s.gates.WaitUntilUnparked(s.wake)
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := s.coordinator.BeginTransaction(); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item, ok, err := source(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if err := process(item); err != nil {
			return err
		}
		itemsDone++

		if itemsDone%regulatorInterval == 0 {
			if err := s.coordinator.RegulateTransaction(); err != nil {
				return err
			}
		}
		if itemsDone%handleRefreshInterval == 0 {
			if err := s.coordinator.RefreshHandles(); err != nil {
				return err
			}
		}
		if itemsDone%progressInterval == 0 {
			s.reportProgress(state, itemsDone, item.URI)
		}
	}

	s.reportProgress(state, itemsDone, "")
	return nil
}

func (s *Scheduler) reportProgress(state State, itemsDone int, uri string) {
	if s.metrics != nil {
		s.metrics.ItemsDone.WithLabelValues(state.String()).Set(float64(itemsDone))
	}
	if s.log != nil {
		s.log.Progress(state.String(), itemsDone, 0, uri)
	}
}
