// Package journal implements the Event Journal of spec §4.8: a
// bbolt-backed, consumed-then-purged table of row-level deltas
// produced by the Metadata Store Façade on every mutation touching a
// live-query-visible row.
package journal

import (
	"encoding/binary"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/standardbeagle/lci/internal/types"
)

var bucketEvents = []byte("events")

// Journal is the append/drain/delete event log of spec §4.8. It
// implements store.JournalSink so the Metadata Store Façade can report
// directly into it.
type Journal struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Record appends one row, assigning it the next monotonic sequence
// number (spec §4.8 "(service_id, event_kind, seq)").
func (j *Journal) Record(row types.JournalRow) error {
	return j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		row.Seq = seq

		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return b.Put(key[:], data)
	})
}

// Drain returns every pending row in sequence order without removing
// them — used by a live-query matcher's poll that wants to read
// before committing to consume.
func (j *Journal) Drain() ([]types.JournalRow, error) {
	var rows []types.JournalRow
	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var row types.JournalRow
			if err := json.Unmarshal(v, &row); err != nil {
				continue // spec §7 ParseError: skip the offending record
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

// Consume returns every pending row in sequence order and atomically
// deletes them (spec §4.8: "stored in a table consumed-then-deleted").
func (j *Journal) Consume() ([]types.JournalRow, error) {
	var rows []types.JournalRow
	err := j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		c := b.Cursor()
		var keys [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var row types.JournalRow
			if err := json.Unmarshal(v, &row); err != nil {
				keys = append(keys, append([]byte(nil), k...))
				continue
			}
			rows = append(rows, row)
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}

// Pending reports how many rows await consumption.
func (j *Journal) Pending() (int, error) {
	n := 0
	err := j.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEvents).Stats().KeyN
		return nil
	})
	return n, err
}

// Close releases the backing bbolt handle.
func (j *Journal) Close() error { return j.db.Close() }
