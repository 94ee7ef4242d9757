package wordcache

import (
	"testing"

	"github.com/standardbeagle/lci/internal/invindex"
	"github.com/standardbeagle/lci/internal/types"
)

const emailClassID = 9

func isEmail(classID uint8) bool { return classID == emailClassID }

func openManagers(t *testing.T) (*invindex.Manager, *invindex.Manager, *invindex.UpdateIndex) {
	t.Helper()
	dir := t.TempDir()
	fileIdx, err := invindex.OpenManager(dir, "file-index")
	if err != nil {
		t.Fatal(err)
	}
	emailIdx, err := invindex.OpenManager(dir, "email-index")
	if err != nil {
		t.Fatal(err)
	}
	updateIdx, err := invindex.OpenUpdateIndex(dir + "/update")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		fileIdx.Close()
		emailIdx.Close()
		updateIdx.Close()
	})
	return fileIdx, emailIdx, updateIdx
}

func TestCacheAddRoutesFileEmailUpdate(t *testing.T) {
	c := New(DefaultMemoryLimitNormal, isEmail)

	c.Add("hello", 1, 1, 5, true)          // file
	c.Add("hello", 2, emailClassID, 3, true) // email
	c.Add("hello", 3, 1, 1, false)          // update

	postings, terms := c.Counts()
	if postings != 3 {
		t.Fatalf("expected 3 total postings, got %d", postings)
	}
	if terms != 3 {
		t.Fatalf("expected 3 distinct-term entries across tables, got %d", terms)
	}
	if c.file.totalPostings() != 1 || c.email.totalPostings() != 1 || c.update.totalPostings() != 1 {
		t.Fatalf("expected postings routed one-per-table, got file=%d email=%d update=%d",
			c.file.totalPostings(), c.email.totalPostings(), c.update.totalPostings())
	}
}

func TestCacheEstimatedBytesAndNeedsFlush(t *testing.T) {
	c := New(100, isEmail)
	if c.NeedsFlush() {
		t.Fatal("empty cache should not need flush")
	}
	for i := 0; i < 20; i++ {
		c.Add("term", uint32(i), 1, 1, true)
	}
	if !c.NeedsFlush() {
		t.Fatalf("expected estimator %d to exceed limit 100", c.EstimatedBytes())
	}
}

func TestCacheFlushAllDrainsFileAndEmail(t *testing.T) {
	fileIdx, emailIdx, updateIdx := openManagers(t)
	c := New(DefaultMemoryLimitNormal, isEmail)

	c.Add("alpha", 1, 1, 5, true)
	c.Add("beta", 2, emailClassID, 2, true)

	if err := c.FlushAll(fileIdx, emailIdx, updateIdx); err != nil {
		t.Fatal(err)
	}

	got, err := fileIdx.Lookup("alpha")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected alpha in file index, got %v err %v", got, err)
	}
	got, err = emailIdx.Lookup("beta")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected beta in email index, got %v err %v", got, err)
	}

	if c.file.totalPostings() != 0 || c.email.totalPostings() != 0 {
		t.Fatalf("expected file/email tables cleared after flush")
	}
}

func TestCacheFlushAllBypassesUpdateIndexWhenNoTempsAndSmall(t *testing.T) {
	fileIdx, emailIdx, updateIdx := openManagers(t)
	c := New(DefaultMemoryLimitNormal, isEmail)

	c.Add("gamma", 7, 1, 1, false) // update cache, small, no pending temps

	if err := c.FlushAll(fileIdx, emailIdx, updateIdx); err != nil {
		t.Fatal(err)
	}

	got, err := fileIdx.Lookup("gamma")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected update bypassed straight into main file index, got %v err %v", got, err)
	}
	got, err = updateIdx.Lookup("gamma")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected update index untouched, got %v err %v", got, err)
	}
}

func TestCacheFlushAllRoutesToUpdateIndexWhenFileHasPendingTemps(t *testing.T) {
	fileIdx, emailIdx, updateIdx := openManagers(t)
	fileIdx.SetThresholds(0, 1) // spill to a temp once main holds more than 1 byte

	c := New(DefaultMemoryLimitNormal, isEmail)
	c.Add("seed", 1, 1, 1, true) // lands in the still-empty main index
	if err := c.FlushAll(fileIdx, emailIdx, updateIdx); err != nil {
		t.Fatal(err)
	}

	c.Add("spill", 3, 1, 1, true) // main is now non-empty: creates a pending temp in fileIdx
	if err := c.FlushAll(fileIdx, emailIdx, updateIdx); err != nil {
		t.Fatal(err)
	}
	if fileIdx.PendingTempCount() == 0 {
		t.Fatal("expected a pending temp index after forced spill")
	}

	c.Add("delta", 2, 1, 1, false) // update cache entry
	if err := c.FlushAll(fileIdx, emailIdx, updateIdx); err != nil {
		t.Fatal(err)
	}

	got, err := updateIdx.Lookup("delta")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected delta routed to update index due to pending temps, got %v err %v", got, err)
	}
}

func TestCacheFlushAllRoutesToUpdateIndexAboveTermFloor(t *testing.T) {
	fileIdx, emailIdx, updateIdx := openManagers(t)
	c := New(DefaultMemoryLimitNormal, isEmail)

	for i := 0; i < UpdateCacheFlushTerms; i++ {
		c.Add(termFor(i), uint32(i), 1, 1, false)
	}

	if err := c.FlushAll(fileIdx, emailIdx, updateIdx); err != nil {
		t.Fatal(err)
	}

	got, err := updateIdx.Lookup(termFor(0))
	if err != nil || len(got) != 1 {
		t.Fatalf("expected terms routed to update index once floor reached, got %v err %v", got, err)
	}
}

func termFor(i int) string {
	b := make([]byte, 0, 8)
	for n := i + 1; n > 0; n /= 26 {
		b = append(b, byte('a'+n%26))
	}
	return string(b)
}

func TestWordDetailsAmalgamationRoundTripsThroughAdd(t *testing.T) {
	c := New(DefaultMemoryLimitNormal, isEmail)
	c.Add("term", 42, 3, 77, true)
	delta := c.file.drain()
	wd := delta["term"][0]
	class, score := types.SplitAmalgamated(wd.Amalgamated)
	if class != 3 || score != 77 {
		t.Fatalf("expected class=3 score=77, got class=%d score=%d", class, score)
	}
}
