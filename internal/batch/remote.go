package batch

import "context"

// Executor is the direct in-process batch execution surface; *Batch's
// own Execute/ExecuteAsync methods satisfy it.
type Executor interface {
	Execute(ctx context.Context, applier Applier) error
	ExecuteAsync(ctx context.Context, applier Applier) <-chan error
}

// RemoteExecutor forwards a batch's operation list to a transport
// rather than applying it in-process. The original tracker-bus-batch.c
// supports both a DB-local batch and a D-Bus-forwarded one sharing the
// same operation list; D-Bus itself is out of scope here, but the
// duality is kept as a transport-agnostic forwarding seam so a future
// transport only needs to supply Forward.
type RemoteExecutor struct {
	Forward func(ctx context.Context, ops []Operation) error
}

// Execute hands the batch's operation list to Forward as a single unit.
func (r *RemoteExecutor) Execute(ctx context.Context, b *Batch) error {
	return r.Forward(ctx, b.Operations())
}
