package batch

import (
	"context"
	"fmt"
	"io"
)

// Applier is the metadata-store side of the Batch Executor: it turns
// one dispatched operation into a mutation against the store. Callers
// are expected to wrap a whole Execute/ExecuteAsync call in a single
// underlying transaction so that the all-or-nothing semantics of
// spec §4.7 hold even though the operations in a Batch are
// heterogeneous.
type Applier interface {
	ApplySparql(ctx context.Context, sparql string) error
	ApplyStatement(ctx context.Context, stmt string, params []Param) error
	ApplyDelete(ctx context.Context, d DeletePrelude) error
	ApplyTriG(ctx context.Context, graph, trig string) error
	ApplyRdf(ctx context.Context, flags int, format, defaultGraph string, stream io.Reader) error
	ApplyFd(ctx context.Context, stream io.Reader) error
}

// ExecuteAsync dispatches the batch's operations against applier on a
// private goroutine and returns a channel that receives exactly one
// value: nil on success, or the first error encountered (at which
// point no further operations are dispatched).
func (b *Batch) ExecuteAsync(ctx context.Context, applier Applier) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- b.runAll(ctx, applier)
	}()
	return done
}

// Execute runs the batch synchronously by pumping ExecuteAsync's
// private event loop, propagating ctx cancellation.
func (b *Batch) Execute(ctx context.Context, applier Applier) error {
	select {
	case err := <-b.ExecuteAsync(ctx, applier):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Batch) runAll(ctx context.Context, applier Applier) error {
	for i, op := range b.ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.runOne(ctx, applier, op); err != nil {
			return fmt.Errorf("batch operation %d (%s): %w", i, op.Kind, err)
		}
	}
	return nil
}

func (b *Batch) runOne(ctx context.Context, applier Applier, op Operation) error {
	switch op.Kind {
	case OpSparql:
		return applier.ApplySparql(ctx, op.Sparql)

	case OpStatement:
		return applier.ApplyStatement(ctx, op.Stmt, op.Params)

	case OpResource:
		for _, d := range OverwritePrelude(op.DefaultGraph, op.Resource) {
			if err := applier.ApplyDelete(ctx, d); err != nil {
				return err
			}
		}
		trig := SerializeTriG(b.ns, op.DefaultGraph, op.Resource)
		return applier.ApplyTriG(ctx, op.DefaultGraph, trig)

	case OpRdf:
		return applier.ApplyRdf(ctx, op.RdfFlags, op.RdfFormat, op.DefaultGraph, op.RdfStream)

	case OpFd:
		return applier.ApplyFd(ctx, op.FdStream)

	default:
		return fmt.Errorf("unknown operation kind %v", op.Kind)
	}
}
