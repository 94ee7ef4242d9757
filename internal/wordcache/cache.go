// Package wordcache implements the in-memory posting accumulator of
// spec §4.3: three maps (file, update, email), a size-driven flush
// estimator, and the flush algorithm that spills into the inverted
// index layer.
package wordcache

import (
	"sync"

	"github.com/standardbeagle/lci/internal/invindex"
	"github.com/standardbeagle/lci/internal/types"
)

// Default memory limits from spec §4.3.
const (
	DefaultMemoryLimitLowMemory = 8 * 1024 * 1024
	DefaultMemoryLimitNormal    = 80 * 1024 * 1024

	// UpdateCacheFlushTerms is the distinct-term floor at or above which
	// the update cache is routed to the update index instead of the main
	// file index directly (spec §4.3 step 3).
	UpdateCacheFlushTerms = 10000

	// perPostingBytes/perTermBytes implement the "postings*8 + terms*150"
	// estimator of spec §4.3.
	perPostingBytes = 8
	perTermBytes    = 150
)

// postingTable is an un-synchronized term -> posting-buffer map, used
// for the file and email caches which are written only from the
// indexer thread (spec §4.3: "require no lock").
type postingTable struct {
	data    map[string][]types.WordDetails
	postings int
}

func newPostingTable() *postingTable {
	return &postingTable{data: make(map[string][]types.WordDetails)}
}

func (t *postingTable) add(term string, wd types.WordDetails) {
	t.data[term] = append(t.data[term], wd)
	t.postings++
}

func (t *postingTable) distinctTerms() int { return len(t.data) }
func (t *postingTable) totalPostings() int { return t.postings }

func (t *postingTable) drain() map[string][]types.WordDetails {
	out := t.data
	t.data = make(map[string][]types.WordDetails)
	t.postings = 0
	return out
}

// Cache is the word cache of spec §4.3: file_word_table,
// file_update_word_table (mutex-protected), email_word_table.
type Cache struct {
	file  *postingTable
	email *postingTable

	updateMu sync.Mutex
	update   *postingTable

	memoryLimit  int
	isEmailClass func(classID uint8) bool
}

// New creates a word cache with the given memory limit and the
// predicate used to route a posting to the email cache based on its
// service class id (spec §4.3: "class ids in the email range go to
// email cache").
func New(memoryLimit int, isEmailClass func(classID uint8) bool) *Cache {
	if isEmailClass == nil {
		isEmailClass = func(uint8) bool { return false }
	}
	return &Cache{
		file:         newPostingTable(),
		email:        newPostingTable(),
		update:       newPostingTable(),
		memoryLimit:  memoryLimit,
		isEmailClass: isEmailClass,
	}
}

// Add records one (term, service) occurrence. isNew distinguishes a
// freshly-extracted posting (file cache) from a post-index metadata
// delta (update cache); it is ignored when the class id routes to the
// email cache (spec §4.3 Add semantics).
func (c *Cache) Add(term string, serviceID uint32, classID uint8, score uint32, isNew bool) {
	wd := types.WordDetails{ServiceID: serviceID, Amalgamated: types.Amalgamate(classID, score)}

	if c.isEmailClass(classID) {
		c.email.add(term, wd)
		return
	}
	if isNew {
		c.file.add(term, wd)
		return
	}
	c.updateMu.Lock()
	c.update.add(term, wd)
	c.updateMu.Unlock()
}

// Counts reports the current (postings, distinctTerms) across all
// three tables, used for diagnostics and tests.
func (c *Cache) Counts() (postings, terms int) {
	c.updateMu.Lock()
	updPostings, updTerms := c.update.totalPostings(), c.update.distinctTerms()
	c.updateMu.Unlock()
	return c.file.totalPostings() + c.email.totalPostings() + updPostings,
		c.file.distinctTerms() + c.email.distinctTerms() + updTerms
}

// EstimatedBytes implements the flush estimator of spec §4.3:
// postings*8 + terms*150.
func (c *Cache) EstimatedBytes() int {
	postings, terms := c.Counts()
	return postings*perPostingBytes + terms*perTermBytes
}

// NeedsFlush reports whether the estimator has crossed memoryLimit.
func (c *Cache) NeedsFlush() bool {
	return c.EstimatedBytes() > c.memoryLimit
}

// FlushAll implements the flush algorithm of spec §4.3: file/email
// postings spill into their respective inverted-index managers using
// the combined file+email distinct-term count as the manager's
// word-count signal; update postings go to the update index once
// either a file temp-index exists or the update cache itself has
// reached UpdateCacheFlushTerms distinct terms, otherwise they are
// written straight into the main file index. All three tables and
// their counters are cleared atomically with respect to Add callers
// (file/email via single-writer discipline, update via updateMu).
func (c *Cache) FlushAll(fileIdx, emailIdx *invindex.Manager, updateIdx *invindex.UpdateIndex) error {
	wordCount := c.file.distinctTerms() + c.email.distinctTerms()

	fileDelta := c.file.drain()
	if len(fileDelta) > 0 {
		if err := fileIdx.Flush(fileDelta, wordCount); err != nil {
			return err
		}
	}

	emailDelta := c.email.drain()
	if len(emailDelta) > 0 {
		if err := emailIdx.Flush(emailDelta, wordCount); err != nil {
			return err
		}
	}

	c.updateMu.Lock()
	updateTerms := c.update.distinctTerms()
	updateDelta := c.update.drain()
	c.updateMu.Unlock()

	if len(updateDelta) == 0 {
		return nil
	}

	if fileIdx.PendingTempCount() > 0 || updateTerms >= UpdateCacheFlushTerms {
		for term, postings := range updateDelta {
			if err := updateIdx.Update(term, postings); err != nil {
				return err
			}
		}
		return nil
	}
	return fileIdx.FlushToMain(updateDelta)
}
