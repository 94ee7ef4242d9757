// Package classify implements the file classifier of spec §4.4: given
// a path it returns a class, a mime type, and a crawl/watch decision,
// honoring no-watch/no-index globs, crawl-only and watch roots, and
// duplicate-path (nested root) filtering.
package classify

import (
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/lci/internal/types"
)

// Decision is the outcome of classifying one path (spec §4.4).
type Decision int

const (
	Ignore Decision = iota
	Crawl
	Watch
	IndexNow
)

func (d Decision) String() string {
	switch d {
	case Ignore:
		return "Ignore"
	case Crawl:
		return "Crawl"
	case Watch:
		return "Watch"
	case IndexNow:
		return "IndexNow"
	default:
		return "Unknown"
	}
}

// Roots configures the classifier's path-to-decision rules (spec §4.4
// rules 1-3), sourced from the Watches.* config keys plus
// Indexing.NoIndexFileTypes.
type Roots struct {
	WatchRoots        []string
	CrawlOnlyRoots    []string // "crawl-but-do-not-watch"
	NoWatchGlobs      []string
	NoIndexFileTypes  []string // glob patterns, e.g. "*.o", "*.tmp"
}

// Result is the classifier's verdict for one path.
type Result struct {
	Class    types.ServiceClass
	Mime     string
	Decision Decision
}

// Classifier evaluates paths against a Roots configuration and a
// mime -> class ontology table (spec §4.4 rule 4).
type Classifier struct {
	roots    Roots
	ontology map[string]types.ServiceClass
}

// DefaultOntology maps common mime prefixes/types to service classes.
// Grounded on original_source/src/libtracker-extract module registry
// (one extractor module per mime family) and the teacher's own
// single extension->language table in internal/config (languages.go).
func DefaultOntology() map[string]types.ServiceClass {
	return map[string]types.ServiceClass{
		"application/pdf":          types.ClassDocuments,
		"application/msword":       types.ClassDocuments,
		"application/vnd.ms-excel": types.ClassDocuments,
		"text/plain":               types.ClassDocuments,
		"text/html":                types.ClassDocuments,
		"message/rfc822":           types.ClassEmails,
		"inode/directory":          types.ClassFolders,
	}
}

// New builds a Classifier. A nil ontology falls back to DefaultOntology.
func New(roots Roots, ontology map[string]types.ServiceClass) *Classifier {
	if ontology == nil {
		ontology = DefaultOntology()
	}
	return &Classifier{roots: roots, ontology: ontology}
}

// Classify implements spec §4.4's priority-ordered rule list.
func (c *Classifier) Classify(path string) Result {
	path = ExpandPath(path)

	for _, g := range c.roots.NoWatchGlobs {
		if globMatch(g, path) {
			return Result{Decision: Ignore}
		}
	}
	for _, g := range c.roots.NoIndexFileTypes {
		if globMatch(g, filepath.Base(path)) {
			return Result{Decision: Ignore}
		}
	}

	for _, root := range c.roots.CrawlOnlyRoots {
		if isUnder(root, path) {
			return c.withMime(path, Crawl)
		}
	}
	for _, root := range c.roots.WatchRoots {
		if isUnder(root, path) {
			return c.withMime(path, Watch)
		}
	}

	return c.withMime(path, Ignore)
}

func (c *Classifier) withMime(path string, d Decision) Result {
	m := DetectMime(path)
	class, ok := c.ontology[m]
	if !ok {
		class = types.ClassFiles
	}
	return Result{Class: class, Mime: m, Decision: d}
}

// DetectMime maps a path's extension to a mime type. Stdlib mime is
// the justified choice here: none of the pack's example repos perform
// mime-type sniffing (DESIGN.md records the reasoning).
func DetectMime(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}
	if m := mime.TypeByExtension(ext); m != "" {
		if i := strings.IndexByte(m, ';'); i >= 0 {
			m = m[:i]
		}
		return m
	}
	return "application/octet-stream"
}

// globMatch wraps doublestar.Match, treating a malformed pattern as a
// non-match rather than propagating an error (matches teacher's
// shouldExcludeFast/shouldIncludeFast fail-open-on-bad-pattern style).
func globMatch(pattern, path string) bool {
	matched, err := doublestar.Match(pattern, path)
	if err != nil {
		return false
	}
	return matched
}

// isUnder reports whether path is root itself or a descendant of root.
func isUnder(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// FilterDuplicateRoots implements spec §4.4 rule 5
// (path_list_filter_duplicates): drops any root whose ancestor is also
// present in the list, keeping the shortest (most general) root.
func FilterDuplicateRoots(roots []string) []string {
	cleaned := make([]string, len(roots))
	for i, r := range roots {
		cleaned[i] = filepath.Clean(r)
	}
	sort.Strings(cleaned)

	var kept []string
	for _, r := range cleaned {
		isChild := false
		for _, k := range kept {
			if isUnder(k, r) {
				isChild = true
				break
			}
		}
		if !isChild {
			kept = append(kept, r)
		}
	}
	return kept
}

// ExpandPath implements spec §4.4's path evaluation: expand ~ and
// ${ENV} references; paths containing a separator are left as
// filesystem paths, bare names are left untouched (commandline-arg
// form resolution happens in the caller, which knows the cwd).
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return os.ExpandEnv(path)
}
