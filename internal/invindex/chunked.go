package invindex

import (
	"os"
	"sort"
	"sync"

	"github.com/standardbeagle/lci/internal/types"
)

// ChunkedIndex is an append-only on-disk term->postings index (spec
// §4.2's main/email index variant, and also the per-file backing of
// each temp-index spill).
type ChunkedIndex struct {
	mu      sync.Mutex
	path    string
	f       *os.File
	offsets map[string][]int64 // term -> record start offsets, in append order
}

// Open opens (creating if necessary) the chunked index file at path
// and rebuilds its term->offset map by scanning existing records.
func Open(path string) (*ChunkedIndex, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	ci := &ChunkedIndex{path: path, f: f, offsets: make(map[string][]int64)}
	if err := ci.rebuildIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return ci, nil
}

func (ci *ChunkedIndex) rebuildIndex() error {
	return scanFile(ci.path, func(term string, postings []types.WordDetails, offset int64) {
		ci.offsets[term] = append(ci.offsets[term], offset)
	})
}

// Path returns the backing file path.
func (ci *ChunkedIndex) Path() string { return ci.path }

// Append concatenates postings onto term's value (spec §4.2 append).
func (ci *ChunkedIndex) Append(term string, postings []types.WordDetails) error {
	if len(postings) == 0 {
		return nil
	}
	ci.mu.Lock()
	defer ci.mu.Unlock()

	info, err := ci.f.Stat()
	if err != nil {
		return err
	}
	offset := info.Size()

	if _, err := ci.f.Seek(0, 2); err != nil {
		return err
	}
	if err := writeRecord(ci.f, term, postings); err != nil {
		return err
	}
	ci.offsets[term] = append(ci.offsets[term], offset)
	return nil
}

// Lookup returns every posting recorded for term, in append order
// (spec §4.2 lookup).
func (ci *ChunkedIndex) Lookup(term string) ([]types.WordDetails, error) {
	ci.mu.Lock()
	offsets := append([]int64(nil), ci.offsets[term]...)
	ci.mu.Unlock()

	if len(offsets) == 0 {
		return nil, nil
	}

	var all []types.WordDetails
	for _, off := range offsets {
		if _, err := ci.f.Seek(off, 0); err != nil {
			return nil, err
		}
		_, postings, err := readRecord(ciReaderAt(ci.f))
		if err != nil {
			continue // fail-closed: skip corrupt record, keep the rest
		}
		all = append(all, postings...)
	}
	return all, nil
}

// ciReaderAt adapts *os.File (already Seek'd) to io.Reader for readRecord.
func ciReaderAt(f *os.File) *os.File { return f }

// Terms returns every distinct term known to this index.
func (ci *ChunkedIndex) Terms() []string {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	terms := make([]string, 0, len(ci.offsets))
	for t := range ci.offsets {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Size returns the current on-disk size in bytes.
func (ci *ChunkedIndex) Size() (int64, error) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	info, err := ci.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close releases the backing file handle.
func (ci *ChunkedIndex) Close() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.f.Close()
}

// Remove closes and deletes the backing file (used to discard merged
// temp indexes).
func (ci *ChunkedIndex) Remove() error {
	ci.Close()
	return os.Remove(ci.path)
}

// UpdateIndex is the replace-semantics posting store of spec §4.2: a
// delta applied with Update() merges into any existing value for the
// term, de-duplicating by service id with last-writer-wins on the
// amalgamated field. It is backed by the same append-only chunk
// format; the fold-to-latest-per-service happens at Lookup time,
// which is equivalent to an eager merge but avoids rewriting the file
// on every update.
type UpdateIndex struct {
	ci *ChunkedIndex
}

// OpenUpdateIndex opens the update-index file at path.
func OpenUpdateIndex(path string) (*UpdateIndex, error) {
	ci, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &UpdateIndex{ci: ci}, nil
}

// Update appends a posting delta for term; later appends win on
// conflicting service ids (spec §4.2 update).
func (u *UpdateIndex) Update(term string, postings []types.WordDetails) error {
	return u.ci.Append(term, postings)
}

// Lookup folds every recorded delta for term down to one posting per
// service id, keeping the most recently appended amalgamated value.
func (u *UpdateIndex) Lookup(term string) ([]types.WordDetails, error) {
	raw, err := u.ci.Lookup(term)
	if err != nil {
		return nil, err
	}
	return FoldLastWriterWins(raw), nil
}

// FoldLastWriterWins de-duplicates a posting slice by ServiceID,
// keeping the last occurrence (append order = recency), and drops
// tombstoned entries.
func FoldLastWriterWins(postings []types.WordDetails) []types.WordDetails {
	latest := make(map[uint32]types.WordDetails, len(postings))
	order := make([]uint32, 0, len(postings))
	for _, p := range postings {
		if _, seen := latest[p.ServiceID]; !seen {
			order = append(order, p.ServiceID)
		}
		latest[p.ServiceID] = p
	}
	out := make([]types.WordDetails, 0, len(order))
	for _, sid := range order {
		if v := latest[sid]; v.Amalgamated != Tombstone {
			out = append(out, v)
		}
	}
	return out
}

func (u *UpdateIndex) Path() string       { return u.ci.Path() }
func (u *UpdateIndex) Size() (int64, error) { return u.ci.Size() }
func (u *UpdateIndex) Close() error       { return u.ci.Close() }
func (u *UpdateIndex) Terms() []string    { return u.ci.Terms() }
