package lang

import "testing"

func collect(cfg Config, input string) []Token {
	tk := New(cfg, []byte(input))
	var toks []Token
	for {
		tok, ok := tk.Next()
		if !ok {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func TestTokenizerASCIIRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableStemmer = false
	cfg.EnableStopWords = false
	cfg.MinWordLength = 0
	toks := collect(cfg, "hello world")
	if len(toks) != 2 || toks[0].Term != "hello" || toks[1].Term != "world" {
		t.Fatalf("unexpected tokens: %+v", toks)
	}
}

func TestTokenizerStopwordFlagged(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableStemmer = false
	cfg.MinWordLength = 0
	toks := collect(cfg, "the cat sat")
	if len(toks) != 3 {
		t.Fatalf("expected 3 tokens, got %d: %+v", len(toks), toks)
	}
	if !toks[0].IsStopword {
		t.Fatalf("expected 'the' to be flagged as a stopword")
	}
	if toks[1].IsStopword {
		t.Fatalf("did not expect 'cat' to be flagged as a stopword")
	}
}

func TestTokenizerRejectsShortAllDigitTokens(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FilterNumbers = false
	toks := collect(cfg, "12345 123456")
	if len(toks) != 1 || toks[0].Term != "123456" {
		t.Fatalf("expected only the >=6 digit run to survive, got %+v", toks)
	}
}

func TestTokenizerFiltersDigitLedWords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FilterNumbers = true
	toks := collect(cfg, "3dprinter normalword")
	if len(toks) != 1 || toks[0].Term != "normalword" {
		t.Fatalf("expected digit-led token filtered, got %+v", toks)
	}
}

func TestTokenizerHyphenDelimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableStemmer = false
	cfg.MinWordLength = 0
	toks := collect(cfg, "well-known")
	if len(toks) != 2 || toks[0].Term != "well" || toks[1].Term != "known" {
		t.Fatalf("expected hyphen split, got %+v", toks)
	}
}

func TestTokenizerMaxWordLengthTruncates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableStemmer = false
	cfg.MaxWordLength = 5
	cfg.MinWordLength = 0
	toks := collect(cfg, "abcdefghij")
	if len(toks) != 1 || toks[0].Term != "abcde" {
		t.Fatalf("expected truncation to 5 runes, got %+v", toks)
	}
}

func TestTokenizerCJKPathSegmentsPerCharacter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableStemmer = false
	cfg.EnableStopWords = false
	cfg.MinWordLength = 0
	toks := collect(cfg, "中文")
	if len(toks) != 2 {
		t.Fatalf("expected 2 CJK tokens, got %d: %+v", len(toks), toks)
	}
}

func TestTokenizerResetIsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinWordLength = 0
	tk := New(cfg, []byte("alpha"))
	tk.Next()
	tk.Reset(cfg, []byte("beta"))
	tok, ok := tk.Next()
	if !ok || tok.Term != "beta" {
		t.Fatalf("expected reset tokenizer to start fresh, got %+v ok=%v", tok, ok)
	}
}

func TestStemmerUnknownLanguageNoops(t *testing.T) {
	s := NewStemmer("ja")
	if s.Stem("running") != "running" {
		t.Fatalf("expected unsupported language to leave word unstemmed")
	}
}

func TestStemmerEnglishStems(t *testing.T) {
	s := NewStemmer("en")
	if s.Stem("running") == "running" {
		t.Fatalf("expected english stemmer to alter 'running'")
	}
}
