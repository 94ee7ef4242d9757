// Package store implements the Metadata Store Façade of spec §4.9: a
// thin CRUD/event-producing surface over services, their typed
// properties, keywords, and a persistent pending-operation queue,
// backed by an embedded bbolt database with JSON-serialized values
// (the real SQL engine itself is explicitly out of scope — spec §6:
// "sqlite-equivalent files for the metadata store (opaque to this
// spec)" — this package only has to honor the façade's contract).
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/standardbeagle/lci/internal/types"
)

var (
	bucketServices  = []byte("services")   // id -> json(Service)
	bucketPathIndex = []byte("path_index") // path -> id
	bucketProps     = []byte("properties") // id -> json(map[uint32]string)
	bucketKeywords  = []byte("keywords")   // id -> json([]string)
	bucketPending   = []byte("pending")    // seq -> json(FileInfo)
)

// JournalSink receives one row per mutation that touches a
// live-query-visible service (spec §4.8/§4.9).
type JournalSink interface {
	Record(types.JournalRow) error
}

// Store is the bbolt-backed Metadata Store Façade.
type Store struct {
	db      *bbolt.DB
	journal JournalSink
	nfs     *NFSLock
}

// Open opens (creating if necessary) the bbolt database at path and
// ensures every façade bucket exists.
func Open(path string, nfs *NFSLock) (*Store, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketServices, bucketPathIndex, bucketProps, bucketKeywords, bucketPending} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, nfs: nfs}, nil
}

// SetJournal wires the sink every mutation reports to.
func (s *Store) SetJournal(j JournalSink) { s.journal = j }

// Close releases the backing bbolt handle.
func (s *Store) Close() error { return s.db.Close() }

func idKey(id types.ServiceID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

func idFromKey(b []byte) types.ServiceID {
	return types.ServiceID(binary.BigEndian.Uint64(b))
}

func (s *Store) record(id types.ServiceID, kind types.JournalEventKind) error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Record(types.JournalRow{ServiceID: id, Kind: kind})
}

// InsertService allocates a new id via the services bucket's sequence
// counter, persists the row, and indexes it by path (spec §4.9
// insert_service).
func (s *Store) InsertService(svc types.Service) (types.ServiceID, error) {
	var id types.ServiceID
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketServices)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = types.ServiceID(seq)
		svc.ID = id

		data, err := json.Marshal(svc)
		if err != nil {
			return err
		}
		if err := b.Put(idKey(id), data); err != nil {
			return err
		}
		return tx.Bucket(bucketPathIndex).Put([]byte(svc.Path), idKey(id))
	})
	if err != nil {
		return 0, err
	}
	return id, s.record(id, types.EventAdded)
}

// GetService fetches a service by id.
func (s *Store) GetService(id types.ServiceID) (types.Service, error) {
	var svc types.Service
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketServices).Get(idKey(id))
		if data == nil {
			return fmt.Errorf("store: no service with id %d", id)
		}
		return json.Unmarshal(data, &svc)
	})
	return svc, err
}

// GetServiceByPath looks up a service by its indexed path.
func (s *Store) GetServiceByPath(path string) (types.Service, error) {
	var svc types.Service
	err := s.db.View(func(tx *bbolt.Tx) error {
		idBytes := tx.Bucket(bucketPathIndex).Get([]byte(path))
		if idBytes == nil {
			return fmt.Errorf("store: no service at path %q", path)
		}
		data := tx.Bucket(bucketServices).Get(idBytes)
		if data == nil {
			return fmt.Errorf("store: dangling path index entry for %q", path)
		}
		return json.Unmarshal(data, &svc)
	})
	return svc, err
}

// UpdateService applies mutate to the stored service and persists the
// result (spec §4.9 update_service).
func (s *Store) UpdateService(id types.ServiceID, mutate func(*types.Service)) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketServices)
		data := b.Get(idKey(id))
		if data == nil {
			return fmt.Errorf("store: no service with id %d", id)
		}
		var svc types.Service
		if err := json.Unmarshal(data, &svc); err != nil {
			return err
		}
		oldPath := svc.Path
		mutate(&svc)
		svc.ID = id

		out, err := json.Marshal(svc)
		if err != nil {
			return err
		}
		if err := b.Put(idKey(id), out); err != nil {
			return err
		}
		if svc.Path != oldPath {
			pi := tx.Bucket(bucketPathIndex)
			if err := pi.Delete([]byte(oldPath)); err != nil {
				return err
			}
			if err := pi.Put([]byte(svc.Path), idKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.record(id, types.EventModified)
}

// DeleteService removes a service and, if it is a directory, every
// descendant keyed under its path prefix (spec §4.9 delete_service).
func (s *Store) DeleteService(id types.ServiceID) error {
	var deletedIDs []types.ServiceID
	err := s.db.Update(func(tx *bbolt.Tx) error {
		services := tx.Bucket(bucketServices)
		pathIndex := tx.Bucket(bucketPathIndex)

		data := services.Get(idKey(id))
		if data == nil {
			return fmt.Errorf("store: no service with id %d", id)
		}
		var svc types.Service
		if err := json.Unmarshal(data, &svc); err != nil {
			return err
		}

		toDelete := []struct {
			id   types.ServiceID
			path string
		}{{id, svc.Path}}

		if svc.IsDir {
			prefix := svc.Path + "/"
			c := pathIndex.Cursor()
			for k, v := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
				toDelete = append(toDelete, struct {
					id   types.ServiceID
					path string
				}{idFromKey(v), string(k)})
			}
		}

		for _, d := range toDelete {
			if err := services.Delete(idKey(d.id)); err != nil {
				return err
			}
			if err := pathIndex.Delete([]byte(d.path)); err != nil {
				return err
			}
			if err := tx.Bucket(bucketProps).Delete(idKey(d.id)); err != nil {
				return err
			}
			if err := tx.Bucket(bucketKeywords).Delete(idKey(d.id)); err != nil {
				return err
			}
			deletedIDs = append(deletedIDs, d.id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, did := range deletedIDs {
		if err := s.record(did, types.EventRemoved); err != nil {
			return err
		}
	}
	return nil
}

// MoveService renames a single (non-directory) service's path (spec
// §4.9 move_service).
func (s *Store) MoveService(oldPath, newPath string) error {
	svc, err := s.GetServiceByPath(oldPath)
	if err != nil {
		return err
	}
	return s.UpdateService(svc.ID, func(s *types.Service) { s.Path = newPath })
}

// MoveDirectory rewrites oldPath's service and every descendant's
// path prefix to newPath (spec §4.9 move_directory).
func (s *Store) MoveDirectory(oldPath, newPath string) error {
	var touched []types.ServiceID
	err := s.db.Update(func(tx *bbolt.Tx) error {
		services := tx.Bucket(bucketServices)
		pathIndex := tx.Bucket(bucketPathIndex)

		rootIDBytes := pathIndex.Get([]byte(oldPath))
		if rootIDBytes == nil {
			return fmt.Errorf("store: no service at path %q", oldPath)
		}

		prefix := oldPath + "/"
		type move struct {
			id      types.ServiceID
			oldPath string
			newPath string
		}
		moves := []move{{idFromKey(rootIDBytes), oldPath, newPath}}

		c := pathIndex.Cursor()
		for k, v := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			rel := strings.TrimPrefix(string(k), prefix)
			moves = append(moves, move{idFromKey(v), string(k), newPath + "/" + rel})
		}

		for _, m := range moves {
			data := services.Get(idKey(m.id))
			if data == nil {
				continue
			}
			var svc types.Service
			if err := json.Unmarshal(data, &svc); err != nil {
				return err
			}
			svc.Path = m.newPath
			out, err := json.Marshal(svc)
			if err != nil {
				return err
			}
			if err := services.Put(idKey(m.id), out); err != nil {
				return err
			}
			if err := pathIndex.Delete([]byte(m.oldPath)); err != nil {
				return err
			}
			if err := pathIndex.Put([]byte(m.newPath), idKey(m.id)); err != nil {
				return err
			}
			touched = append(touched, m.id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range touched {
		if err := s.record(id, types.EventModified); err != nil {
			return err
		}
	}
	return nil
}

// SetProperties replaces id's stored (property id -> value) map with
// values (spec §4.9 set_properties).
func (s *Store) SetProperties(id types.ServiceID, values map[uint32]string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(values)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketProps).Put(idKey(id), data)
	})
	if err != nil {
		return err
	}
	return s.record(id, types.EventModified)
}

// GetProperties returns id's stored property map.
func (s *Store) GetProperties(id types.ServiceID) (map[uint32]string, error) {
	values := make(map[uint32]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketProps).Get(idKey(id))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &values)
	})
	return values, err
}

func (s *Store) getKeywords(tx *bbolt.Tx, id types.ServiceID) ([]string, error) {
	data := tx.Bucket(bucketKeywords).Get(idKey(id))
	if data == nil {
		return nil, nil
	}
	var kws []string
	if err := json.Unmarshal(data, &kws); err != nil {
		return nil, err
	}
	return kws, nil
}

// AddKeyword appends kw to id's keyword list if not already present
// (spec §4.9 add_keyword).
func (s *Store) AddKeyword(id types.ServiceID, kw string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		kws, err := s.getKeywords(tx, id)
		if err != nil {
			return err
		}
		for _, k := range kws {
			if k == kw {
				return nil
			}
		}
		kws = append(kws, kw)
		data, err := json.Marshal(kws)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketKeywords).Put(idKey(id), data)
	})
	if err != nil {
		return err
	}
	return s.record(id, types.EventModified)
}

// RemoveKeyword drops kw from id's keyword list (spec §4.9 remove_keyword).
func (s *Store) RemoveKeyword(id types.ServiceID, kw string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		kws, err := s.getKeywords(tx, id)
		if err != nil {
			return err
		}
		out := kws[:0]
		for _, k := range kws {
			if k != kw {
				out = append(out, k)
			}
		}
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketKeywords).Put(idKey(id), data)
	})
	if err != nil {
		return err
	}
	return s.record(id, types.EventModified)
}

// GetKeywords returns id's keyword list (spec §4.9 get_keywords).
func (s *Store) GetKeywords(id types.ServiceID) ([]string, error) {
	var kws []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		kws, err = s.getKeywords(tx, id)
		return err
	})
	return kws, err
}

// MarkPending enqueues fi onto the persistent pending-operation queue
// that survives a restart (spec §4.9 mark_pending).
func (s *Store) MarkPending(fi types.FileInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPending)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(fi)
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return b.Put(key[:], data)
	})
}

// TakePendingBatch pops up to n entries off the pending queue in
// enqueue order, removing them atomically (spec §4.9
// take_pending_batch).
func (s *Store) TakePendingBatch(n int) ([]types.FileInfo, error) {
	var batch []types.FileInfo
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPending)
		c := b.Cursor()
		var keys [][]byte
		for k, v := c.First(); k != nil && len(batch) < n; k, v = c.Next() {
			var fi types.FileInfo
			if err := json.Unmarshal(v, &fi); err != nil {
				continue // spec §7 ParseError: skip the offending record
			}
			batch = append(batch, fi)
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return batch, err
}
