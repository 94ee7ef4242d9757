// Package batch implements the Batch Executor of spec §4.7: an
// ordered list of heterogeneous mutation operations delivered to the
// metadata store as a single all-or-nothing array update, plus
// TrackerResource-to-TriG serialization with cycle-safe traversal and
// overwrite-prelude delete generation.
package batch

import (
	"fmt"
	"io"
	"time"
)

// StmtSetProperties is the AddStatement vocabulary the Extraction
// Pipeline uses to route a metadata-property mutation through a
// store-backed Applier: one leading int64 service-id Param followed by
// (int64 propertyID, string value) pairs (spec §4.7/§4.9).
const StmtSetProperties = "SetProperties"

// OpKind enumerates the five operation variants of spec §4.7.
type OpKind int

const (
	OpSparql OpKind = iota
	OpStatement
	OpResource
	OpRdf
	OpFd
)

// ParamKind enumerates AddStatement's typed-parameter wire kinds
// (spec §4.7 coercion table).
type ParamKind int

const (
	ParamString ParamKind = iota
	ParamInt64
	ParamBool
	ParamDouble
	ParamDateTime
)

// Param is one coerced AddStatement parameter.
type Param struct {
	Kind ParamKind
	Str  string
	Int  int64
	Bool bool
	Double float64
	Time time.Time
}

// CoerceParam implements spec §4.7's parameter coercion table.
// Unsupported boxed types are omitted (ok=false), matching "skipped
// with a trace" — the caller logs and drops it rather than failing.
func CoerceParam(v any) (Param, bool) {
	switch x := v.(type) {
	case string:
		return Param{Kind: ParamString, Str: x}, true
	case int:
		return Param{Kind: ParamInt64, Int: int64(x)}, true
	case int32:
		return Param{Kind: ParamInt64, Int: int64(x)}, true
	case int64:
		return Param{Kind: ParamInt64, Int: x}, true
	case bool:
		return Param{Kind: ParamBool, Bool: x}, true
	case float64:
		return Param{Kind: ParamDouble, Double: x}, true
	case time.Time:
		return Param{Kind: ParamDateTime, Time: x.Truncate(time.Millisecond)}, true
	default:
		return Param{}, false
	}
}

// Operation is one entry in a Batch's ordered operation list.
type Operation struct {
	Kind OpKind

	Sparql string // OpSparql

	Stmt   string  // OpStatement
	Params []Param // OpStatement

	DefaultGraph string    // OpResource, OpRdf
	Resource     *Resource // OpResource

	RdfFlags   int       // OpRdf
	RdfFormat  string    // OpRdf
	RdfStream  io.Reader // OpRdf

	FdStream io.Reader // OpFd
}

// Batch holds an ordered list of heterogeneous operations (spec §4.7).
type Batch struct {
	ops []Operation
	ns  *NamespaceManager
}

// New creates an empty batch with a default namespace manager.
func New() *Batch { return &Batch{ns: NewNamespaceManager()} }

// SetNamespaceManager overrides the namespace manager used to render
// the TriG prefix table for AddResource operations.
func (b *Batch) SetNamespaceManager(ns *NamespaceManager) { b.ns = ns }

// AddSparql appends an opaque SPARQL-text operation.
func (b *Batch) AddSparql(sparql string) {
	b.ops = append(b.ops, Operation{Kind: OpSparql, Sparql: sparql})
}

// AddStatement appends a prepared-statement operation with
// already-coerced typed parameters.
func (b *Batch) AddStatement(stmt string, params []Param) {
	b.ops = append(b.ops, Operation{Kind: OpStatement, Stmt: stmt, Params: params})
}

// AddResource appends a TrackerResource-tree operation, serialized to
// TriG on execution.
func (b *Batch) AddResource(defaultGraph string, resource *Resource) {
	b.ops = append(b.ops, Operation{Kind: OpResource, DefaultGraph: defaultGraph, Resource: resource})
}

// AddRdf appends a raw RDF payload operation.
func (b *Batch) AddRdf(flags int, format, defaultGraph string, stream io.Reader) {
	b.ops = append(b.ops, Operation{Kind: OpRdf, RdfFlags: flags, RdfFormat: format, DefaultGraph: defaultGraph, RdfStream: stream})
}

// AddFd appends a file-descriptor handoff operation, a side channel
// for large payloads that bypass in-memory serialization.
func (b *Batch) AddFd(stream io.Reader) {
	b.ops = append(b.ops, Operation{Kind: OpFd, FdStream: stream})
}

// Operations returns the batch's ordered operation list.
func (b *Batch) Operations() []Operation { return b.ops }

// Len reports the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

func (k OpKind) String() string {
	switch k {
	case OpSparql:
		return "AddSparql"
	case OpStatement:
		return "AddStatement"
	case OpResource:
		return "AddResource"
	case OpRdf:
		return "AddRdf"
	case OpFd:
		return "AddFd"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}
