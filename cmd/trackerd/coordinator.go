package main

import (
	"github.com/standardbeagle/lci/internal/invindex"
	"github.com/standardbeagle/lci/internal/wordcache"
)

// storeCoordinator implements scheduler.Coordinator (internal/scheduler's
// Coordinator interface) by composing the word cache, the files/emails
// inverted-index managers and the update index (spec §4.6/§4.9).
//
// bbolt, unlike the SQLite engine Tracker's metadata store was
// originally built on, has no long-held-transaction mode to straddle:
// every store.Store method already commits its own bbolt transaction
// (see internal/store/store.go). BeginTransaction/EndTransaction and
// RefreshHandles are therefore no-ops here rather than fabricated
// bbolt API calls that would do nothing real — the transaction
// lifecycle the scheduler drives still governs when Files->Emails and
// Emails->Finished flush/merge fire, it just has no per-call bbolt
// counterpart to invoke.
type storeCoordinator struct {
	cache       *wordcache.Cache
	fileIndex   *invindex.Manager
	emailIndex  *invindex.Manager
	updateIndex *invindex.UpdateIndex
}

func newStoreCoordinator(cache *wordcache.Cache, fileIndex, emailIndex *invindex.Manager, updateIndex *invindex.UpdateIndex) *storeCoordinator {
	return &storeCoordinator{cache: cache, fileIndex: fileIndex, emailIndex: emailIndex, updateIndex: updateIndex}
}

func (c *storeCoordinator) BeginTransaction() error { return nil }
func (c *storeCoordinator) EndTransaction() error   { return nil }

// RegulateTransaction implements the periodic "commit and reopen"
// the scheduler performs every 250 items; with no held transaction to
// reopen, the closest real equivalent is flushing the word cache once
// it has crossed its memory-limit estimator, so cache growth across a
// long-running crawl stays bounded between state-boundary FlushAlls.
func (c *storeCoordinator) RegulateTransaction() error {
	if c.cache.NeedsFlush() {
		return c.FlushAll()
	}
	return nil
}

func (c *storeCoordinator) RefreshHandles() error { return nil }

func (c *storeCoordinator) FlushAll() error {
	return c.cache.FlushAll(c.fileIndex, c.emailIndex, c.updateIndex)
}

func (c *storeCoordinator) MergeFiles() error {
	if err := c.fileIndex.Merge(); err != nil {
		return err
	}
	return c.fileIndex.ApplyUpdateIndex(c.updateIndex)
}

func (c *storeCoordinator) MergeEmails() error {
	return c.emailIndex.Merge()
}
