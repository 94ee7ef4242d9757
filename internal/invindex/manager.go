package invindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/standardbeagle/lci/internal/types"
)

// Default thresholds from spec §4.2/§9. Hard-coded in the original
// source; kept as documented tunable defaults here (see
// SPEC_FULL.md "Open Question Resolutions").
const (
	DefaultWordCountSpillFloor = 5000
	DefaultMainSpillBytes      = 4 * 1024 * 1024
)

// Manager owns one main index and up to N sequentially-named temp
// indexes for a single index kind ("file-index" or "email-index"),
// implementing the spill and merge policy of spec §4.2.
type Manager struct {
	mu   sync.Mutex
	dir  string
	name string // "file-index" or "email-index"

	main  *ChunkedIndex
	temps []*ChunkedIndex // in creation order

	wordCountSpillFloor int
	mainSpillBytes      int64

	// appliedSeq holds whatever sequence number the caller last passed
	// to SetAppliedSequence. ApplyUpdateIndex and Merge do not set it,
	// and it is kept in memory only, not persisted.
	appliedSeq uint64
}

// OpenManager opens or creates the main index and discovers any
// existing temp indexes (file-index.tmp.<K>) under dir.
func OpenManager(dir, name string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	mainPath := filepath.Join(dir, name+".main")
	main, err := Open(mainPath)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		dir:                 dir,
		name:                name,
		main:                main,
		wordCountSpillFloor: DefaultWordCountSpillFloor,
		mainSpillBytes:      DefaultMainSpillBytes,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var nums []int
	byNum := make(map[int]string)
	prefix := name + ".tmp."
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if len(n) > len(prefix) && n[:len(prefix)] == prefix {
			var k int
			if _, err := fmt.Sscanf(n[len(prefix):], "%d", &k); err == nil {
				nums = append(nums, k)
				byNum[k] = n
			}
		}
	}
	sort.Ints(nums)
	for _, k := range nums {
		ci, err := Open(filepath.Join(dir, byNum[k]))
		if err != nil {
			return nil, err
		}
		m.temps = append(m.temps, ci)
	}
	return m, nil
}

// SetThresholds overrides the spill thresholds for this manager. No
// config key feeds it; the daemon runs with the defaults above.
func (m *Manager) SetThresholds(wordCountFloor int, mainSpillBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wordCountSpillFloor = wordCountFloor
	m.mainSpillBytes = mainSpillBytes
}

// nextTempIndex creates the next sequentially-numbered temp index.
func (m *Manager) nextTempIndex() (*ChunkedIndex, error) {
	for k := 1; k < 100000; k++ {
		path := filepath.Join(m.dir, fmt.Sprintf("%s.tmp.%d", m.name, k))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			ci, err := Open(path)
			if err != nil {
				return nil, err
			}
			m.temps = append(m.temps, ci)
			return ci, nil
		}
	}
	return nil, fmt.Errorf("invindex: exhausted temp index numbering for %s", m.name)
}

// Flush writes a batch of term->postings deltas according to the
// spill policy of spec §4.2: below the word-count floor, write
// directly to main; otherwise spill to a temp index once main has
// grown past mainSpillBytes.
func (m *Manager) Flush(postingsByTerm map[string][]types.WordDetails, wordCountAcrossCaches int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.main
	if wordCountAcrossCaches >= m.wordCountSpillFloor {
		size, err := m.main.Size()
		if err != nil {
			return err
		}
		if size > m.mainSpillBytes {
			temp, err := m.nextTempIndex()
			if err != nil {
				return err
			}
			target = temp
		}
	}

	terms := make([]string, 0, len(postingsByTerm))
	for t := range postingsByTerm {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	for _, term := range terms {
		if err := target.Append(term, postingsByTerm[term]); err != nil {
			return err
		}
	}
	return nil
}

// FlushToMain appends postings directly to the main index, bypassing
// the spill decision. Used by the word cache's update-cache bypass
// path (spec §4.3 step 3: "otherwise flush updates directly into the
// main file index").
func (m *Manager) FlushToMain(postingsByTerm map[string][]types.WordDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	terms := make([]string, 0, len(postingsByTerm))
	for t := range postingsByTerm {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	for _, term := range terms {
		if err := m.main.Append(term, postingsByTerm[term]); err != nil {
			return err
		}
	}
	return nil
}

// PendingTempCount reports how many temp indexes await merging.
func (m *Manager) PendingTempCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.temps)
}

// ShouldMerge implements spec §4.2's merge trigger: "when >= 2 temp
// indexes exist or when the scheduler says idle".
func (m *Manager) ShouldMerge(schedulerIdle bool) bool {
	return m.PendingTempCount() >= 2 || (schedulerIdle && m.PendingTempCount() > 0)
}

// Lookup searches main followed by every temp index still pending
// merge, concatenating results in index-creation order (spec §4.2
// lookup must see unmerged data too).
func (m *Manager) Lookup(term string) ([]types.WordDetails, error) {
	m.mu.Lock()
	main := m.main
	temps := append([]*ChunkedIndex(nil), m.temps...)
	m.mu.Unlock()

	all, err := main.Lookup(term)
	if err != nil {
		return nil, err
	}
	for _, t := range temps {
		p, err := t.Lookup(term)
		if err != nil {
			continue
		}
		all = append(all, p...)
	}
	// Fold to one posting per service id, last append wins, so repeat
	// Check re-indexing and ApplyUpdateIndex rewrites stay correct
	// between Merge passes (spec §8 "posting uniqueness").
	return FoldLastWriterWins(all), nil
}

// Merge performs a stable, term-ordered merge of all temp indexes
// into main, combining every posting array per term (spec §4.2
// merge). Deletion markers present in updates (tombstones, see
// Tombstone) are applied by ApplyUpdateIndex, which the files
// coordinator runs after Merge; Merge itself just concatenates and
// de-duplicates per
// (term, service) with last-writer-wins, satisfying the "posting
// uniqueness per merge" invariant of spec §8.
func (m *Manager) Merge() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.temps) == 0 {
		return nil
	}

	termSet := make(map[string]struct{})
	for _, t := range m.main.Terms() {
		termSet[t] = struct{}{}
	}
	for _, temp := range m.temps {
		for _, t := range temp.Terms() {
			termSet[t] = struct{}{}
		}
	}
	terms := make([]string, 0, len(termSet))
	for t := range termSet {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	newMainPath := filepath.Join(m.dir, m.name+".main.merging")
	newMain, err := Open(newMainPath)
	if err != nil {
		return err
	}

	for _, term := range terms {
		combined, err := m.main.Lookup(term)
		if err != nil {
			continue
		}
		for _, temp := range m.temps {
			p, err := temp.Lookup(term)
			if err != nil {
				continue
			}
			combined = append(combined, p...)
		}
		sort.SliceStable(combined, func(i, j int) bool {
			return combined[i].ServiceID < combined[j].ServiceID
		})
		deduped := FoldLastWriterWins(stableByServiceOrder(combined))
		if len(deduped) == 0 {
			continue
		}
		if err := newMain.Append(term, deduped); err != nil {
			newMain.Close()
			return err
		}
	}

	oldMainPath := m.main.Path()
	if err := m.main.Close(); err != nil {
		newMain.Close()
		return err
	}
	if err := newMain.Close(); err != nil {
		return err
	}
	if err := os.Rename(newMainPath, oldMainPath); err != nil {
		return err
	}
	reopened, err := Open(oldMainPath)
	if err != nil {
		return err
	}
	m.main = reopened

	for _, temp := range m.temps {
		if err := temp.Remove(); err != nil {
			return err
		}
	}
	m.temps = nil
	return nil
}

// stableByServiceOrder preserves the original append order within
// each ServiceID group after a stable sort by ServiceID, so
// FoldLastWriterWins's "last occurrence wins" rule still reflects
// recency rather than merge-input order. Because the sort above is
// stable, equal-key elements already retain original relative order;
// this helper exists purely to name that invariant for readers.
func stableByServiceOrder(postings []types.WordDetails) []types.WordDetails {
	return postings
}

// ApplyUpdateIndex folds every term in the update index into main
// (spec §4.2 "apply_changes"), rewriting only the affected term
// entries rather than a full merge. Tombstoned postings are dropped
// rather than carried forward, so a prior deletion sticks even if the
// deleted service id reappears with a stale amalgamated value already
// present in main.
func (m *Manager) ApplyUpdateIndex(update *UpdateIndex) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, term := range update.Terms() {
		deltas, err := update.Lookup(term)
		if err != nil {
			continue
		}
		existing, err := m.main.Lookup(term)
		if err != nil {
			continue
		}
		combined := append(append([]types.WordDetails(nil), existing...), deltas...)
		folded := FoldLastWriterWins(combined)
		if len(folded) == 0 {
			continue
		}
		// Rewrite affected term by appending the folded snapshot; the
		// old entries remain on disk but are superseded because
		// Lookup/FoldLastWriterWins always keeps the last append.
		if err := m.main.Append(term, folded); err != nil {
			return err
		}
	}
	return nil
}

// MainSize returns the current size of the main index in bytes.
func (m *Manager) MainSize() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.main.Size()
}

// AppliedSequence returns the value last recorded by
// SetAppliedSequence (0 after OpenManager; nothing reads it at startup).
func (m *Manager) AppliedSequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appliedSeq
}

// SetAppliedSequence records the sequence number after an apply pass.
func (m *Manager) SetAppliedSequence(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appliedSeq = seq
}

// Close releases all backing file handles.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	if err := m.main.Close(); err != nil {
		firstErr = err
	}
	for _, t := range m.temps {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
