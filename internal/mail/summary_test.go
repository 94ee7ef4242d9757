package mail

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func putI32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func putStr(buf *bytes.Buffer, s string) {
	putI32(buf, int32(len(s)))
	buf.WriteString(s)
}

func buildSummary(t *testing.T, version int32, messages []Message) []byte {
	t.Helper()
	var buf bytes.Buffer
	putI32(&buf, version)
	putI32(&buf, 0) // flags
	putI32(&buf, 1) // nextuid
	putI32(&buf, 0) // time
	putI32(&buf, int32(len(messages)))
	if version >= 13 && version < 0x100 {
		putI32(&buf, 0) // unread
		putI32(&buf, 0) // deleted
		putI32(&buf, 0) // junk
	}
	for _, m := range messages {
		putStr(&buf, m.UID)
		putI32(&buf, m.Size)
		putI32(&buf, m.Flags)
		putI32(&buf, int32(m.DateSent.Unix()))
		putI32(&buf, int32(m.DateReceived.Unix()))
		putStr(&buf, m.Subject)
		putStr(&buf, m.From)
		putStr(&buf, m.To)
		putStr(&buf, m.Cc)
		putStr(&buf, m.MList)
		putI32(&buf, m.MsgIDHi)
		putI32(&buf, m.MsgIDLo)
		putI32(&buf, int32(len(m.References)))
		for _, r := range m.References {
			putI32(&buf, r.Hi)
			putI32(&buf, r.Lo)
		}
		putI32(&buf, int32(len(m.UserFlags)))
		for _, f := range m.UserFlags {
			putStr(&buf, f)
		}
		putI32(&buf, int32(len(m.UserTags)))
		for k, v := range m.UserTags {
			putStr(&buf, k)
			putStr(&buf, v)
		}
	}
	return buf.Bytes()
}

func TestReadAllRoundTripsBasicSummary(t *testing.T) {
	want := []Message{
		{UID: "1", Subject: "hello", From: "a@example.com", To: "b@example.com"},
		{UID: "2", Subject: "world", From: "c@example.com", To: "d@example.com", UserFlags: []string{"seen"}},
	}
	data := buildSummary(t, 14, want)

	h, got, err := ReadAll(bytes.NewReader(data), false)
	if err != nil {
		t.Fatal(err)
	}
	if h.Count != 2 {
		t.Fatalf("expected header count 2, got %d", h.Count)
	}
	if len(got) != 2 || got[0].Subject != "hello" || got[1].Subject != "world" {
		t.Fatalf("unexpected messages: %+v", got)
	}
	if len(got[1].UserFlags) != 1 || got[1].UserFlags[0] != "seen" {
		t.Fatalf("expected user flag to round-trip, got %+v", got[1].UserFlags)
	}
}

func TestReadAllRejectsOversizedCount(t *testing.T) {
	var buf bytes.Buffer
	putI32(&buf, 14)
	putI32(&buf, 0)
	putI32(&buf, 1)
	putI32(&buf, 0)
	putI32(&buf, 501) // exceeds MaxCount

	if _, _, err := ReadAll(&buf, false); err == nil {
		t.Fatal("expected an error for a count exceeding the defensive limit")
	}
}

func TestReadMessageRejectsOversizedString(t *testing.T) {
	var buf bytes.Buffer
	putI32(&buf, 70000) // string length exceeds MaxStringLen

	rd := &reader{r: &buf}
	if _, err := rd.str(); err == nil {
		t.Fatal("expected an error for a string length exceeding the defensive limit")
	}
}

func TestReadHeaderOmitsUnreadFieldsBeforeVersion13(t *testing.T) {
	data := buildSummary(t, 12, nil)
	h, _, err := ReadAll(bytes.NewReader(data), false)
	if err != nil {
		t.Fatal(err)
	}
	if h.Unread != 0 || h.Deleted != 0 || h.Junk != 0 {
		t.Fatalf("expected zero-valued unread/deleted/junk for version < 13, got %+v", h)
	}
}
