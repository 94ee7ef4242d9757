// Package extract implements the Extraction Pipeline of spec §6/F: a
// pluggable per-mime extractor registry, a worker pool that pulls
// FileInfo tickets and turns extractor output into word-cache
// postings and metadata-store mutations.
package extract

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Property is one (name, value) metadata pair an Extractor produces.
type Property struct {
	Name  string
	Value string
}

// Result is an extractor's output (spec §6:
// "{ text: Option<String>, metadata: [(property, value)], attachments: [Stream] }").
type Result struct {
	Text        *string
	Metadata    []Property
	Attachments []Attachment
}

// Attachment is one embedded stream an extractor surfaced (e.g. an
// email MIME part, an archive member) for the pipeline to recurse
// into. The extractor owns reading it; the pipeline only forwards it.
type Attachment struct {
	Name string
	Data []byte
}

// Extractor pulls text and metadata out of one file. Implementations
// MUST be pure — no hidden global state — and MUST finish within
// cpuLimit (spec §6); a well-behaved extractor checks ctx and cpuLimit
// itself since the pipeline cannot preempt a running call.
type Extractor interface {
	Extract(ctx context.Context, path, mime string, cpuLimit time.Duration) (Result, error)
}

// Registry maps a mime type to the Extractor responsible for it.
// Patterns of the form "type/*" match any mime sharing that top-level
// type when no exact match is registered.
type Registry struct {
	mu       sync.RWMutex
	exact    map[string]Extractor
	wildcard map[string]Extractor
}

// NewRegistry returns an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		exact:    make(map[string]Extractor),
		wildcard: make(map[string]Extractor),
	}
}

// Register associates mimePattern ("text/plain" or "image/*") with e.
func (r *Registry) Register(mimePattern string, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if top, ok := strings.CutSuffix(mimePattern, "/*"); ok {
		r.wildcard[top] = e
		return
	}
	r.exact[mimePattern] = e
}

// Lookup returns the extractor registered for mime, preferring an
// exact match over a "type/*" wildcard.
func (r *Registry) Lookup(mime string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.exact[mime]; ok {
		return e, true
	}
	if top, _, ok := strings.Cut(mime, "/"); ok {
		if e, ok := r.wildcard[top]; ok {
			return e, true
		}
	}
	return nil, false
}
