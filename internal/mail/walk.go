package mail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/lci/internal/types"
)

// WalkMbox scans an mbox file for "From " message-boundary lines,
// starting at fromOffset (the resumption bookmark carried in
// FileInfo.Offset per spec D.5), and calls emit once per message found
// with a FileInfo whose Offset is that message's starting byte — so a
// later call resuming from the returned nextOffset never re-emits a
// message already seen, matching the original's next_email_to_index
// bookmark.
func WalkMbox(path string, fromOffset int64, emit func(types.FileInfo) error) (nextOffset int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return fromOffset, err
	}
	defer f.Close()

	if fromOffset > 0 {
		if _, err := f.Seek(fromOffset, io.SeekStart); err != nil {
			return fromOffset, err
		}
	}

	br := bufio.NewReader(f)
	offset := fromOffset
	current := int64(-1)

	flush := func(start int64) error {
		if start < 0 {
			return nil
		}
		return emit(types.FileInfo{
			URI:    fmt.Sprintf("%s#%d", path, start),
			Action: types.ActionCheck,
			Offset: start,
		})
	}

	for {
		line, readErr := br.ReadString('\n')
		if strings.HasPrefix(line, "From ") {
			if err := flush(current); err != nil {
				return current, err
			}
			current = offset
		}
		offset += int64(len(line))
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				return offset, readErr
			}
			break
		}
	}

	if err := flush(current); err != nil {
		return current, err
	}
	return offset, nil
}

// WalkMaildir scans a maildir's new/ and cur/ subdirectories (the tmp/
// subdirectory holds messages still being delivered and is never
// indexed). isNew decides, per candidate path, whether it has already
// been recorded by the metadata store — maildir has no single summary
// file to bookmark an offset into, so resumption is keyed by path
// through the Metadata Store Façade instead (spec D.5).
func WalkMaildir(root string, isNew func(path string) bool, emit func(types.FileInfo) error) error {
	for _, sub := range []string{"new", "cur"} {
		dir := filepath.Join(root, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			full := filepath.Join(dir, e.Name())
			if !isNew(full) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return err
			}
			fi := types.FileInfo{
				URI:    full,
				Action: types.ActionCheck,
				Mtime:  info.ModTime(),
			}
			if err := emit(fi); err != nil {
				return err
			}
		}
	}
	return nil
}
