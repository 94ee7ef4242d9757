// Package lang implements the tokenizer and per-language stemming
// contract of spec §4.1: a restartable, single-consumer, lazy sequence
// of (term, position, byte_start, byte_end, new_paragraph, is_stopword,
// length) over a byte range, plus the CJK/non-CJK codepoint paths.
package lang

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Config controls tokenizer behavior (spec §4.1).
type Config struct {
	MaxWordLength           int
	MinWordLength           int
	DelimitWords            bool
	DelimitHyphenUnderscore bool
	EnableStemmer           bool
	EnableStopWords         bool
	FilterNumbers           bool
	ParseReservedWords      bool
	Language                string
}

// DefaultConfig returns the tokenizer's standalone defaults. They match
// config.Default except MaxWordLength, which is 200 here (the top of
// the configurable range) and 30 in config.Default.
func DefaultConfig() Config {
	return Config{
		MaxWordLength:           200,
		MinWordLength:           3,
		DelimitWords:            true,
		DelimitHyphenUnderscore: true,
		EnableStemmer:           true,
		EnableStopWords:         true,
		FilterNumbers:           true,
		ParseReservedWords:      false,
		Language:                "en",
	}
}

// Token is one lazily produced tokenizer result.
type Token struct {
	Term         string
	Position     int
	ByteStart    int
	ByteEnd      int
	NewParagraph bool
	IsStopword   bool
	Length       int
}

// wordClass classifies a single codepoint the way spec §4.1 does.
type wordClass int

const (
	classASCIILower wordClass = iota
	classASCIIUpper
	classASCIIDigit
	classHyphen
	classUnderscore
	classNewline
	classCJK
	classLatinExt
	classOtherAlpha
	classOtherDigit
	classWhitespace
	classIgnore
)

// CJK ranges from spec §4.1: U+3400..U+4DB5, U+4E00..U+9FA5, U+20000..U+2A6D6.
func isCJK(r rune) bool {
	return (r >= 0x3400 && r <= 0x4DB5) ||
		(r >= 0x4E00 && r <= 0x9FA5) ||
		(r >= 0x20000 && r <= 0x2A6D6)
}

func isLatinExtended(r rune) bool {
	return r <= 0x02AF || (r >= 0x1E00 && r <= 0x1EFF)
}

func classify(r rune) wordClass {
	switch {
	case r >= 'a' && r <= 'z':
		return classASCIILower
	case r >= 'A' && r <= 'Z':
		return classASCIIUpper
	case r >= '0' && r <= '9':
		return classASCIIDigit
	case r == '-':
		return classHyphen
	case r == '_':
		return classUnderscore
	case r == '\n' || r == '\r':
		return classNewline
	case isCJK(r):
		return classCJK
	case isLatinExtended(r):
		return classLatinExt
	case unicode.IsSpace(r):
		return classWhitespace
	case unicode.IsLetter(r):
		return classOtherAlpha
	case unicode.IsDigit(r):
		return classOtherDigit
	default:
		return classIgnore
	}
}

func containsCJK(data []byte) bool {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if isCJK(r) {
			return true
		}
		i += size
	}
	return false
}

// Tokenizer produces the token sequence of spec §4.1. It is restartable
// via Reset and is single-consumer (no internal synchronization).
type Tokenizer struct {
	cfg      Config
	input    []byte
	pos      int // byte cursor
	wordPos  int // word/position counter
	stemmer  Stemmer
	stopword StopwordTable
	cjk      bool
	started  bool
}

// New creates a tokenizer for the given input with the given config.
func New(cfg Config, input []byte) *Tokenizer {
	t := &Tokenizer{}
	t.Reset(cfg, input)
	return t
}

// Reset rewinds the tokenizer to scan a (possibly new) input with a
// (possibly new) configuration; no global mutable state is touched.
func (t *Tokenizer) Reset(cfg Config, input []byte) {
	t.cfg = cfg
	t.input = input
	t.pos = 0
	t.wordPos = 0
	t.stemmer = NewStemmer(cfg.Language)
	t.stopword = StopwordsFor(cfg.Language)
	t.cjk = containsCJK(input)
	t.started = false
}

// Next returns the next token, or ok=false once the sequence is exhausted.
func (t *Tokenizer) Next() (Token, bool) {
	if t.cjk {
		return t.nextCJK()
	}
	return t.nextNonCJK()
}

// nextCJK delegates to a simple Unicode word-segmentation pass: each
// maximal run of CJK codepoints is split into single-character
// "words" (no dictionary is available in this environment), and
// maximal runs of non-CJK letters/digits are treated like the
// non-CJK path. Every segment is casefolded then NFC-normalized.
func (t *Tokenizer) nextCJK() (Token, bool) {
	for t.pos < len(t.input) {
		r, size := utf8.DecodeRune(t.input[t.pos:])
		cls := classify(r)

		if cls == classCJK {
			start := t.pos
			end := t.pos + size
			newPara := t.newParagraphBefore(start)
			term := normalizeFold(string(r))
			t.pos = end
			tok := t.buildToken(term, start, end, newPara)
			if tok.Term == "" {
				continue
			}
			return tok, true
		}

		if cls == classASCIILower || cls == classASCIIUpper || cls == classASCIIDigit ||
			cls == classLatinExt || cls == classOtherAlpha || cls == classOtherDigit {
			tok, ok, consumed := t.scanWord(t.pos)
			t.pos += consumed
			if ok {
				return tok, true
			}
			continue
		}

		t.pos += size
	}
	return Token{}, false
}

// nextNonCJK implements the left-to-right state machine of spec §4.1.
func (t *Tokenizer) nextNonCJK() (Token, bool) {
	for t.pos < len(t.input) {
		r, size := utf8.DecodeRune(t.input[t.pos:])
		cls := classify(r)

		switch cls {
		case classASCIILower, classASCIIUpper, classLatinExt, classOtherAlpha, classASCIIDigit, classOtherDigit:
			tok, ok, consumed := t.scanWord(t.pos)
			t.pos += consumed
			if ok {
				return tok, true
			}
			continue
		case classHyphen, classUnderscore:
			if t.cfg.ParseReservedWords {
				tok, ok, consumed := t.scanWord(t.pos)
				t.pos += consumed
				if ok {
					return tok, true
				}
				continue
			}
			t.pos += size
		default:
			t.pos += size
		}
	}
	return Token{}, false
}

// scanWord consumes one word starting at byte offset start, applying
// the boundary and delimiter rules of spec §4.1. It returns the
// number of bytes consumed even when no token is produced (digit-led
// rejection, below-minimum-length rejection), so the caller always
// makes forward progress.
func (t *Tokenizer) scanWord(start int) (Token, bool, int) {
	i := start
	var raw []byte
	startedWithDigit := false
	first := true

	for i < len(t.input) {
		r, size := utf8.DecodeRune(t.input[i:])
		cls := classify(r)

		if first {
			startedWithDigit = cls == classASCIIDigit || cls == classOtherDigit
			first = false
		}

		switch cls {
		case classASCIILower, classASCIIUpper, classLatinExt, classOtherAlpha, classASCIIDigit, classOtherDigit:
			raw = append(raw, t.input[i:i+size]...)
			i += size
			continue
		case classHyphen, classUnderscore:
			if t.cfg.DelimitHyphenUnderscore && !t.cfg.ParseReservedWords {
				i += size // boundary: stop, but consume the delimiter
				goto done
			}
			raw = append(raw, t.input[i:i+size]...)
			i += size
			continue
		default:
			goto done
		}
	}
done:
	consumed := i - start
	if len(raw) == 0 {
		return Token{}, false, consumed
	}

	if startedWithDigit {
		if t.cfg.FilterNumbers {
			return Token{}, false, consumed
		}
		if isAllDigits(raw) && len(raw) < 6 {
			return Token{}, false, consumed
		}
	}

	term := foldCase(raw)
	if hasStripFlag(term) {
		term = stripAccents(term)
	}
	term = norm.NFC.String(term)

	newPara := t.newParagraphBefore(start)
	tok := t.buildToken(term, start, i, newPara)
	if tok.Term == "" {
		return Token{}, false, consumed
	}
	return tok, true, consumed
}

// buildToken applies length rules, stemming, and stopword flagging,
// then advances the word-position counter.
func (t *Tokenizer) buildToken(term string, start, end int, newPara bool) Token {
	if t.cfg.MaxWordLength > 0 && utf8.RuneCountInString(term) > t.cfg.MaxWordLength {
		term = truncateRunes(term, t.cfg.MaxWordLength)
	}
	if t.cfg.MinWordLength > 0 && utf8.RuneCountInString(term) < t.cfg.MinWordLength {
		return Token{}
	}

	stopword := t.cfg.EnableStopWords && t.stopword.IsStopword(term)

	if t.cfg.EnableStemmer {
		term = t.stemmer.Stem(term)
	}

	pos := t.wordPos
	t.wordPos++

	return Token{
		Term:         term,
		Position:     pos,
		ByteStart:    start,
		ByteEnd:      end,
		NewParagraph: newPara,
		IsStopword:   stopword,
		Length:       utf8.RuneCountInString(term),
	}
}

func (t *Tokenizer) newParagraphBefore(start int) bool {
	i := start
	seenNewline := false
	for i > 0 {
		r, size := utf8.DecodeLastRune(t.input[:i])
		cls := classify(r)
		if cls == classWhitespace || cls == classNewline {
			if cls == classNewline {
				seenNewline = true
			}
			i -= size
			continue
		}
		break
	}
	return seenNewline
}

func isAllDigits(raw []byte) bool {
	s := string(raw)
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// foldCase implements spec §4.1's casefold step: ASCII uppercase is
// folded by +32 (cheap path), everything else through a
// locale-independent Unicode case fold.
func foldCase(raw []byte) string {
	out := make([]rune, 0, len(raw))
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r >= 'A' && r <= 'Z' {
			out = append(out, r+32)
		} else {
			out = append(out, unicode.ToLower(r))
		}
		i += size
	}
	return string(out)
}

func normalizeFold(s string) string {
	return norm.NFC.String(strings.ToLower(s))
}

// hasStripFlag reports whether any rune in term is a Latin-extended
// letter that should have its accents stripped (spec §4.1: "do_strip").
func hasStripFlag(term string) bool {
	for _, r := range term {
		if isLatinExtended(r) && r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

// stripAccents removes combining diacritical marks via NFD decomposition
// followed by a non-spacing-mark filter, then the caller re-composes
// with NFC. Grounded on golang.org/x/text's runes/transform idiom.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
