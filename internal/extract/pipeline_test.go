package extract

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/standardbeagle/lci/internal/batch"
	"github.com/standardbeagle/lci/internal/lang"
	"github.com/standardbeagle/lci/internal/types"
)

type stubExtractor struct {
	result Result
	err    error
}

func (s stubExtractor) Extract(ctx context.Context, path, mime string, cpuLimit time.Duration) (Result, error) {
	return s.result, s.err
}

type recordingWordSink struct {
	adds   []string
	scores []uint32
}

func (r *recordingWordSink) Add(term string, serviceID uint32, classID uint8, score uint32, isNew bool) {
	r.adds = append(r.adds, term)
	r.scores = append(r.scores, score)
}

// recordingApplier is a fake batch.Applier recording the statements a
// Batch.Execute dispatches to it, standing in for store.Applier.
type recordingApplier struct {
	applied map[types.ServiceID]map[uint32]string
	err     error
}

func (r *recordingApplier) ApplySparql(ctx context.Context, sparql string) error { return nil }

func (r *recordingApplier) ApplyStatement(ctx context.Context, stmt string, params []batch.Param) error {
	if r.err != nil {
		return r.err
	}
	if stmt != batch.StmtSetProperties || len(params) == 0 {
		return nil
	}
	id := types.ServiceID(params[0].Int)
	values := make(map[uint32]string)
	rest := params[1:]
	for i := 0; i+1 < len(rest); i += 2 {
		values[uint32(rest[i].Int)] = rest[i+1].Str
	}
	if r.applied == nil {
		r.applied = make(map[types.ServiceID]map[uint32]string)
	}
	r.applied[id] = values
	return nil
}

func (r *recordingApplier) ApplyDelete(ctx context.Context, d batch.DeletePrelude) error { return nil }
func (r *recordingApplier) ApplyTriG(ctx context.Context, graph, trig string) error       { return nil }
func (r *recordingApplier) ApplyRdf(ctx context.Context, flags int, format, defaultGraph string, stream io.Reader) error {
	return nil
}
func (r *recordingApplier) ApplyFd(ctx context.Context, stream io.Reader) error { return nil }

func newTextFor(s string) *string { return &s }

func resolverFor(props map[string]types.Property) PropertyResolver {
	return func(name string) (types.Property, bool) {
		p, ok := props[name]
		return p, ok
	}
}

func TestProcessIndexesExtractedText(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", stubExtractor{result: Result{Text: newTextFor("hello world hello")}})

	words := &recordingWordSink{}
	p := New(Config{
		Registry:  reg,
		Tokenizer: lang.DefaultConfig(),
		Words:     words,
	})

	item := Item{
		FileInfo:    types.FileInfo{URI: "/a.txt", Mime: "text/plain", ServiceID: 1},
		HasFullText: true,
	}
	if err := p.Process(context.Background(), item); err != nil {
		t.Fatal(err)
	}
	if len(words.adds) == 0 {
		t.Fatal("expected tokenized terms to be added to the word cache")
	}
}

func TestProcessWeightsTermsByFullTextProperty(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", stubExtractor{result: Result{Text: newTextFor("alpha alpha")}})

	words := &recordingWordSink{}
	p := New(Config{
		Registry:  reg,
		Tokenizer: lang.DefaultConfig(),
		Words:     words,
		Resolver:  resolverFor(map[string]types.Property{"nie:plainTextContent": {ID: 6, Weight: 3}}),
	})

	item := Item{
		FileInfo:    types.FileInfo{URI: "/a.txt", Mime: "text/plain", ServiceID: 1},
		HasFullText: true,
	}
	if err := p.Process(context.Background(), item); err != nil {
		t.Fatal(err)
	}
	for _, score := range words.scores {
		if score != 6 { // count 2 * weight 3
			t.Fatalf("expected weighted score 6, got %d", score)
		}
	}
}

func TestProcessAppliesMetadataThroughBatchExecutor(t *testing.T) {
	reg := NewRegistry()
	reg.Register("image/*", stubExtractor{result: Result{Metadata: []Property{{Name: "width", Value: "100"}}}})

	applier := &recordingApplier{}
	p := New(Config{
		Registry: reg,
		Metadata: applier,
		Resolver: resolverFor(map[string]types.Property{"width": {ID: 42}}),
	})

	item := Item{
		FileInfo:    types.FileInfo{URI: "/a.jpg", Mime: "image/jpeg", ServiceID: 7},
		HasMetadata: true,
	}
	if err := p.Process(context.Background(), item); err != nil {
		t.Fatal(err)
	}
	if applier.applied[7][42] != "100" {
		t.Fatalf("expected resolved property id 42 = 100, got %+v", applier.applied)
	}
}

func TestProcessCapturesExtractorErrorWithoutFailing(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", stubExtractor{err: errors.New("boom")})

	var captured error
	p := New(Config{
		Registry: reg,
		Words:    &recordingWordSink{},
		OnError: func(fi types.FileInfo, err error) {
			captured = err
		},
	})

	item := Item{
		FileInfo:    types.FileInfo{URI: "/a.txt", Mime: "text/plain"},
		HasFullText: true,
	}
	if err := p.Process(context.Background(), item); err != nil {
		t.Fatalf("expected extractor errors to never escape Process, got %v", err)
	}
	if captured == nil {
		t.Fatal("expected OnError to be called with the extractor's error")
	}
}

func TestProcessPropagatesMetadataStoreErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", stubExtractor{result: Result{Metadata: []Property{{Name: "x", Value: "y"}}}})

	p := New(Config{
		Registry: reg,
		Metadata: &recordingApplier{err: errors.New("store down")},
		Resolver: resolverFor(map[string]types.Property{"x": {ID: 1}}),
	})

	item := Item{
		FileInfo:    types.FileInfo{URI: "/a.txt", Mime: "text/plain"},
		HasMetadata: true,
	}
	if err := p.Process(context.Background(), item); err == nil {
		t.Fatal("expected metadata store errors to escape Process per spec §7")
	}
}

func TestRegistryWildcardFallback(t *testing.T) {
	reg := NewRegistry()
	reg.Register("image/*", stubExtractor{})
	reg.Register("image/png", stubExtractor{err: errors.New("png-specific")})

	e, ok := reg.Lookup("image/jpeg")
	if !ok {
		t.Fatal("expected wildcard match for image/jpeg")
	}
	if _, err := e.Extract(context.Background(), "", "", 0); err != nil {
		t.Fatalf("expected the wildcard extractor, got an error: %v", err)
	}

	e2, ok := reg.Lookup("image/png")
	if !ok {
		t.Fatal("expected exact match for image/png")
	}
	if _, err := e2.Extract(context.Background(), "", "", 0); err == nil {
		t.Fatal("expected the exact-match extractor to win over the wildcard")
	}
}

func TestRunWorkersProcessesAllItemsConcurrently(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text/plain", stubExtractor{result: Result{Text: newTextFor("alpha beta")}})

	words := &recordingWordSink{}
	p := New(Config{Registry: reg, Tokenizer: lang.DefaultConfig(), Words: words})

	items := make(chan Item, 5)
	for i := 0; i < 5; i++ {
		items <- Item{FileInfo: types.FileInfo{URI: "/f", Mime: "text/plain", ServiceID: types.ServiceID(i)}, HasFullText: true}
	}
	close(items)

	if err := p.RunWorkers(context.Background(), items, 3); err != nil {
		t.Fatal(err)
	}
	if len(words.adds) == 0 {
		t.Fatal("expected terms from all items to be indexed")
	}
}
