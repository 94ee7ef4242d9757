package lang

// StopwordTable is the per-language stopword lookup contract of spec
// §1: "external table lookup with a fixed API". It is intentionally a
// black box here — this module ships a small built-in English table as
// the default and an empty table for every other language, matching
// the "unknown language falls back to no stemming, still tokenizes"
// behavior documented for stemming in spec §9.
type StopwordTable interface {
	IsStopword(term string) bool
}

// StopwordsFor returns the stopword table for a language code.
func StopwordsFor(language string) StopwordTable {
	switch language {
	case "en", "":
		return englishStopwords
	default:
		return emptyStopwords{}
	}
}

type mapStopwords map[string]struct{}

func (m mapStopwords) IsStopword(term string) bool {
	_, ok := m[term]
	return ok
}

type emptyStopwords struct{}

func (emptyStopwords) IsStopword(string) bool { return false }

// englishStopwords is a small, representative English stopword set.
// Real deployments are expected to load the full Snowball stopword
// table through the same StopwordTable interface (spec §1).
var englishStopwords = mapStopwords{
	"a": {}, "about": {}, "after": {}, "all": {}, "also": {}, "am": {},
	"an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"because": {}, "been": {}, "before": {}, "being": {}, "below": {},
	"between": {}, "both": {}, "but": {}, "by": {}, "can": {}, "did": {},
	"do": {}, "does": {}, "doing": {}, "down": {}, "during": {}, "each": {},
	"few": {}, "for": {}, "from": {}, "further": {}, "had": {}, "has": {},
	"have": {}, "having": {}, "he": {}, "her": {}, "here": {}, "hers": {},
	"herself": {}, "him": {}, "himself": {}, "his": {}, "how": {}, "i": {},
	"if": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "itself": {},
	"just": {}, "me": {}, "more": {}, "most": {}, "my": {}, "myself": {},
	"no": {}, "nor": {}, "not": {}, "now": {}, "of": {}, "off": {}, "on": {},
	"once": {}, "only": {}, "or": {}, "other": {}, "our": {}, "ours": {},
	"ourselves": {}, "out": {}, "over": {}, "own": {}, "same": {}, "she": {},
	"should": {}, "so": {}, "some": {}, "such": {}, "than": {}, "that": {},
	"the": {}, "their": {}, "theirs": {}, "them": {}, "themselves": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "to": {}, "too": {}, "under": {}, "until": {}, "up": {},
	"very": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "who": {}, "whom": {}, "why": {},
	"will": {}, "with": {}, "you": {}, "your": {}, "yours": {}, "yourself": {},
	"yourselves": {},
}
