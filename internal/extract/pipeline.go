package extract

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/lci/internal/batch"
	"github.com/standardbeagle/lci/internal/lang"
	"github.com/standardbeagle/lci/internal/types"
)

// WordSink receives tokenized postings. *wordcache.Cache satisfies
// this structurally.
type WordSink interface {
	Add(term string, serviceID uint32, classID uint8, score uint32, isNew bool)
}

// PropertyResolver maps an extractor's string property names onto the
// metadata store's typed Property record (id plus spec §3's weight,
// "multiplies term score when the property's value is tokenized into
// the index").
type PropertyResolver func(name string) (prop types.Property, ok bool)

// defaultFullTextWeight is applied when the full-text property name
// isn't found by the resolver: an unweighted (weight 1) term score.
const defaultFullTextWeight = 1.0

// Item is one unit of extraction work: a pipeline ticket plus the
// class-derived facts that decide whether/how it is extracted.
type Item struct {
	FileInfo    types.FileInfo
	ClassID     uint8
	HasFullText bool
	HasMetadata bool
}

// Pipeline wires the extractor registry into the word cache and
// metadata store (spec §6/F): "Called by F on items whose class
// declares has_full_text or has_metadata."
type Pipeline struct {
	registry         *Registry
	tokenizer        lang.Config
	stemmer          lang.Stemmer
	stopwords        lang.StopwordTable
	words            WordSink
	applier          batch.Applier
	resolver         PropertyResolver
	fullTextProperty string
	cpuLimit         time.Duration
	onError          func(types.FileInfo, error)
}

// Config bundles Pipeline's collaborators.
type Config struct {
	Registry  *Registry
	Tokenizer lang.Config
	Stemmer   lang.Stemmer
	Stopwords lang.StopwordTable
	Words     WordSink
	// Metadata is the Batch Executor's Applier (spec §4.7): every
	// extracted property set is dispatched as one StmtSetProperties
	// batch.Execute call rather than a direct store write, so the
	// all-or-nothing batch semantics of §8 hold.
	Metadata batch.Applier
	Resolver PropertyResolver
	// FullTextProperty names the property whose weight (spec §3)
	// multiplies the term-frequency score of the tokenized full-text
	// body before it reaches the word cache. Defaults to
	// "nie:plainTextContent", Tracker's full-text-content property.
	FullTextProperty string
	CPULimit         time.Duration
	OnError          func(types.FileInfo, error)
}

// New creates a Pipeline from cfg, defaulting CPULimit to 30s and
// OnError to a no-op when left unset.
func New(cfg Config) *Pipeline {
	if cfg.CPULimit <= 0 {
		cfg.CPULimit = 30 * time.Second
	}
	if cfg.OnError == nil {
		cfg.OnError = func(types.FileInfo, error) {}
	}
	if cfg.FullTextProperty == "" {
		cfg.FullTextProperty = "nie:plainTextContent"
	}
	return &Pipeline{
		registry:         cfg.Registry,
		tokenizer:        cfg.Tokenizer,
		stemmer:          cfg.Stemmer,
		stopwords:        cfg.Stopwords,
		words:            cfg.Words,
		applier:          cfg.Metadata,
		resolver:         cfg.Resolver,
		fullTextProperty: cfg.FullTextProperty,
		cpuLimit:         cfg.CPULimit,
		onError:          cfg.OnError,
	}
}

// Process runs one item through the extractor registry and feeds its
// output into the word cache and metadata store. Extractor errors are
// captured per-file per spec §7's propagation policy: "the file's
// text is set to empty but basic metadata ... is still recorded" —
// Process never returns an extractor error, it only reports it via
// OnError and proceeds with an empty Result.
func (p *Pipeline) Process(ctx context.Context, item Item) error {
	if !item.HasFullText && !item.HasMetadata {
		return nil
	}

	result := p.extract(ctx, item)

	if item.HasFullText && result.Text != nil {
		p.index(item, *result.Text)
	}
	if item.HasMetadata && len(result.Metadata) > 0 && p.applier != nil {
		if err := p.applyMetadata(ctx, item.FileInfo.ServiceID, result.Metadata); err != nil {
			return err // store-layer errors DO escape, per spec §7
		}
	}
	return nil
}

func (p *Pipeline) extract(ctx context.Context, item Item) Result {
	extractor, ok := p.registry.Lookup(item.FileInfo.Mime)
	if !ok {
		return Result{}
	}
	result, err := extractor.Extract(ctx, item.FileInfo.URI, item.FileInfo.Mime, p.cpuLimit)
	if err != nil {
		p.onError(item.FileInfo, err)
		return Result{}
	}
	return result
}

func (p *Pipeline) index(item Item, text string) {
	tok := lang.New(p.tokenizer, []byte(text))
	counts := make(map[string]uint32)
	for {
		token, ok := tok.Next()
		if !ok {
			break
		}
		if token.IsStopword {
			continue
		}
		term := token.Term
		if p.stemmer != nil {
			term = p.stemmer.Stem(term)
		}
		counts[term]++
	}
	weight := p.weightFor(p.fullTextProperty)
	isNew := item.FileInfo.Action == types.ActionCreate
	for term, score := range counts {
		p.words.Add(term, uint32(item.FileInfo.ServiceID), item.ClassID, weightedScore(score, weight), isNew)
	}
}

// weightFor resolves name's configured Property.Weight (spec §3),
// falling back to defaultFullTextWeight when there is no resolver, no
// name, or no matching property.
func (p *Pipeline) weightFor(name string) float64 {
	if p.resolver == nil || name == "" {
		return defaultFullTextWeight
	}
	prop, ok := p.resolver(name)
	if !ok || prop.Weight <= 0 {
		return defaultFullTextWeight
	}
	return prop.Weight
}

// weightedScore multiplies weight into count, rounding to the nearest
// integer and never collapsing a nonzero count to zero.
func weightedScore(count uint32, weight float64) uint32 {
	if count == 0 {
		return 0
	}
	scored := uint32(float64(count)*weight + 0.5)
	if scored == 0 {
		scored = 1
	}
	return scored
}

// applyMetadata dispatches one StmtSetProperties batch entry per
// service through the Batch Executor (spec §4.7), rather than writing
// the metadata store directly, so the all-or-nothing batch semantics
// of §8 cover extracted properties too.
func (p *Pipeline) applyMetadata(ctx context.Context, id types.ServiceID, props []Property) error {
	params := make([]batch.Param, 0, 1+2*len(props))
	params = append(params, batch.Param{Kind: batch.ParamInt64, Int: int64(id)})
	for _, prop := range props {
		propMeta, ok := p.resolver(prop.Name)
		if !ok {
			continue // unknown property name: drop rather than fail the batch
		}
		params = append(params,
			batch.Param{Kind: batch.ParamInt64, Int: int64(propMeta.ID)},
			batch.Param{Kind: batch.ParamString, Str: prop.Value},
		)
	}
	if len(params) == 1 {
		return nil
	}

	b := batch.New()
	b.AddStatement(batch.StmtSetProperties, params)
	return b.Execute(ctx, p.applier)
}

// RunWorkers drains items from a channel with up to concurrency
// parallel Process calls, stopping at the first store-layer error (an
// extractor error never stops the pool — see Process).
func (p *Pipeline) RunWorkers(ctx context.Context, items <-chan Item, concurrency int) error {
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case item, ok := <-items:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				return p.Process(ctx, item)
			})
		}
	}
}
