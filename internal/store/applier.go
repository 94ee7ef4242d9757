package store

import (
	"context"
	"fmt"
	"io"

	"github.com/standardbeagle/lci/internal/batch"
	"github.com/standardbeagle/lci/internal/types"
)

// Applier adapts a Store into a batch.Applier (spec §4.7's Batch
// Executor), so every metadata mutation the Extraction Pipeline
// produces funnels through Batch.Execute's single-dispatch-point
// rather than calling Store.SetProperties directly. Only the
// StmtSetProperties statement vocabulary is implemented here: the
// SPARQL/TriG/RDF operation kinds belong to the real SQL engine spec §6
// declares opaque/out of scope, and no SPEC_FULL.md component issues
// them, so they report an error rather than fabricate a SPARQL
// interpreter.
type Applier struct {
	store *Store
}

// NewApplier wraps s as a batch.Applier.
func NewApplier(s *Store) *Applier { return &Applier{store: s} }

// ApplyStatement decodes and applies a StmtSetProperties batch entry.
func (a *Applier) ApplyStatement(ctx context.Context, stmt string, params []batch.Param) error {
	switch stmt {
	case batch.StmtSetProperties:
		return a.applySetProperties(params)
	default:
		return fmt.Errorf("store: unsupported batch statement %q", stmt)
	}
}

func (a *Applier) applySetProperties(params []batch.Param) error {
	if len(params) == 0 || params[0].Kind != batch.ParamInt64 {
		return fmt.Errorf("store: %s requires a leading int64 service id parameter", batch.StmtSetProperties)
	}
	id := types.ServiceID(params[0].Int)

	values := make(map[uint32]string, (len(params)-1)/2)
	rest := params[1:]
	for i := 0; i+1 < len(rest); i += 2 {
		if rest[i].Kind != batch.ParamInt64 || rest[i+1].Kind != batch.ParamString {
			return fmt.Errorf("store: %s expects (int64 propertyID, string value) pairs", batch.StmtSetProperties)
		}
		values[uint32(rest[i].Int)] = rest[i+1].Str
	}
	if len(values) == 0 {
		return nil
	}
	return a.store.SetProperties(id, values)
}

// ApplySparql, ApplyDelete, ApplyTriG, ApplyRdf and ApplyFd are not
// implemented: the metadata store façade has no SPARQL/TriG/RDF engine
// behind it (spec §6 leaves the real SQL engine opaque), and no
// SPEC_FULL.md component dispatches these operation kinds against it.

func (a *Applier) ApplySparql(ctx context.Context, sparql string) error {
	return fmt.Errorf("store: ApplySparql is not implemented by the metadata store façade")
}

func (a *Applier) ApplyDelete(ctx context.Context, d batch.DeletePrelude) error {
	return fmt.Errorf("store: ApplyDelete is not implemented by the metadata store façade")
}

func (a *Applier) ApplyTriG(ctx context.Context, graph, trig string) error {
	return fmt.Errorf("store: ApplyTriG is not implemented by the metadata store façade")
}

func (a *Applier) ApplyRdf(ctx context.Context, flags int, format, defaultGraph string, stream io.Reader) error {
	return fmt.Errorf("store: ApplyRdf is not implemented by the metadata store façade")
}

func (a *Applier) ApplyFd(ctx context.Context, stream io.Reader) error {
	return fmt.Errorf("store: ApplyFd is not implemented by the metadata store façade")
}
