// Package invindex implements the on-disk inverted-index store of spec
// §4.2: append-only chunked indexes (main + email), a replace-semantics
// update index, temp-index spill once the main index grows past a
// configured size, and a stable term-ordered merge.
package invindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/standardbeagle/lci/internal/types"
)

// postingSize is the on-disk size of one WordDetails posting: a 32-bit
// service id plus a 32-bit amalgamated (class, score) field (spec §3).
const postingSize = 8

// Tombstone marks a deleted (term, service) pair inside the update
// index; applied and then discarded during merge (spec §4.2).
const Tombstone uint32 = 0xFFFFFFFF

// writeRecord appends one (term, postings) record to w in the wire
// format: [u16 term length][term bytes][u32 posting count][postings...].
func writeRecord(w io.Writer, term string, postings []types.WordDetails) error {
	if len(term) > 0xFFFF {
		return fmt.Errorf("invindex: term %q exceeds max length", term)
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(term)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, term); err != nil {
		return err
	}
	var cnt [4]byte
	binary.BigEndian.PutUint32(cnt[:], uint32(len(postings)))
	if _, err := w.Write(cnt[:]); err != nil {
		return err
	}
	buf := make([]byte, len(postings)*postingSize)
	for i, p := range postings {
		binary.BigEndian.PutUint32(buf[i*postingSize:], p.ServiceID)
		binary.BigEndian.PutUint32(buf[i*postingSize+4:], p.Amalgamated)
	}
	_, err := w.Write(buf)
	return err
}

// readRecord reads one record at the reader's current position. It
// returns io.EOF (unwrapped) when no more records remain. Corrupt
// records fail closed: the error is returned but the store never
// panics (spec §4.2 "corrupt value => fail-closed for that term").
func readRecord(r io.Reader) (term string, postings []types.WordDetails, err error) {
	var hdr [2]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return "", nil, err
	}
	termLen := binary.BigEndian.Uint16(hdr[:])
	termBuf := make([]byte, termLen)
	if _, err = io.ReadFull(r, termBuf); err != nil {
		return "", nil, fmt.Errorf("invindex: truncated term: %w", err)
	}
	var cnt [4]byte
	if _, err = io.ReadFull(r, cnt[:]); err != nil {
		return "", nil, fmt.Errorf("invindex: truncated count: %w", err)
	}
	count := binary.BigEndian.Uint32(cnt[:])
	if count > 50_000_000 {
		return "", nil, fmt.Errorf("invindex: implausible posting count %d", count)
	}
	buf := make([]byte, int(count)*postingSize)
	if _, err = io.ReadFull(r, buf); err != nil {
		return "", nil, fmt.Errorf("invindex: truncated postings: %w", err)
	}
	postings = make([]types.WordDetails, count)
	for i := range postings {
		postings[i].ServiceID = binary.BigEndian.Uint32(buf[i*postingSize:])
		postings[i].Amalgamated = binary.BigEndian.Uint32(buf[i*postingSize+4:])
	}
	return string(termBuf), postings, nil
}

// scanFile walks every record in an index file, invoking fn for each.
// A corrupt trailing record stops the scan without error (treated as
// fail-closed truncation rather than a fatal condition).
func scanFile(path string, fn func(term string, postings []types.WordDetails, offset int64)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var offset int64
	for {
		term, postings, err := readRecord(br)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			// Fail-closed: stop scanning further records, but the
			// index already scanned remains usable.
			return nil
		}
		fn(term, postings, offset)
		offset += 2 + int64(len(term)) + 4 + int64(len(postings))*postingSize
	}
}
