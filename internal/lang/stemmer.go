package lang

import "github.com/surgebase/porter2"

// Stemmer is the per-language stemmer contract of spec §6: new
// language/encoding, stem(word) -> stemmed word, memory owned by the
// stemmer and invalidated on next call (here: a plain string return,
// since Go strings are immutable and need no caller-owned buffer).
type Stemmer interface {
	Stem(word string) string
}

// SupportedLanguages lists the Snowball-family languages spec §6 names.
// Only "en" has a concrete stemmer wired in this module (porter2); the
// rest are the external per-language table lookup spec §1 treats as
// out of scope, so they fall back to NoopStemmer exactly like an
// explicitly unsupported language (spec §9).
var SupportedLanguages = []string{
	"en", "da", "nl", "fi", "fr", "de", "hu", "it", "nb", "pt", "ru", "es", "sv",
}

// NewStemmer returns the stemmer for a language code. Unknown or
// unimplemented codes fall back to a no-op stemmer (spec §6, §9):
// stemming is disabled but the caller still tokenizes (CJK path still
// runs for e.g. "ja").
func NewStemmer(language string) Stemmer {
	switch language {
	case "en", "":
		return englishStemmer{}
	default:
		return NoopStemmer{}
	}
}

// englishStemmer wraps the Porter2/Snowball English algorithm.
type englishStemmer struct{}

func (englishStemmer) Stem(word string) string {
	return porter2.Stem(word)
}

// NoopStemmer returns its input unchanged; used for every language this
// module does not implement a concrete algorithm for.
type NoopStemmer struct{}

func (NoopStemmer) Stem(word string) string { return word }
