package classify

import (
	"testing"

	"github.com/standardbeagle/lci/internal/types"
)

func TestClassifyNoWatchGlobWins(t *testing.T) {
	c := New(Roots{
		WatchRoots:   []string{"/home/user"},
		NoWatchGlobs: []string{"/home/user/.cache/**"},
	}, nil)

	got := c.Classify("/home/user/.cache/thumbnails/x.png")
	if got.Decision != Ignore {
		t.Fatalf("expected Ignore, got %v", got.Decision)
	}
}

func TestClassifyNoIndexFileTypeWins(t *testing.T) {
	c := New(Roots{
		WatchRoots:       []string{"/home/user"},
		NoIndexFileTypes: []string{"*.o", "*.tmp"},
	}, nil)

	got := c.Classify("/home/user/project/build.o")
	if got.Decision != Ignore {
		t.Fatalf("expected Ignore for *.o, got %v", got.Decision)
	}
}

func TestClassifyCrawlOnlyRootBeatsWatchRoot(t *testing.T) {
	c := New(Roots{
		WatchRoots:     []string{"/home/user"},
		CrawlOnlyRoots: []string{"/home/user/Downloads"},
	}, nil)

	got := c.Classify("/home/user/Downloads/file.pdf")
	if got.Decision != Crawl {
		t.Fatalf("expected Crawl for nested crawl-only root, got %v", got.Decision)
	}
}

func TestClassifyWatchRoot(t *testing.T) {
	c := New(Roots{WatchRoots: []string{"/home/user"}}, nil)
	got := c.Classify("/home/user/doc.txt")
	if got.Decision != Watch {
		t.Fatalf("expected Watch, got %v", got.Decision)
	}
	if got.Class != types.ClassDocuments {
		t.Fatalf("expected Documents class for .txt, got %v", got.Class)
	}
}

func TestClassifyOutsideAnyRootIsIgnored(t *testing.T) {
	c := New(Roots{WatchRoots: []string{"/home/user"}}, nil)
	got := c.Classify("/etc/passwd")
	if got.Decision != Ignore {
		t.Fatalf("expected Ignore outside configured roots, got %v", got.Decision)
	}
}

func TestClassifyMimeOntologyFallsBackToFiles(t *testing.T) {
	c := New(Roots{WatchRoots: []string{"/home/user"}}, nil)
	got := c.Classify("/home/user/binary.xyz123")
	if got.Class != types.ClassFiles {
		t.Fatalf("expected Files class fallback, got %v", got.Class)
	}
}

func TestFilterDuplicateRootsDropsNestedChildren(t *testing.T) {
	roots := []string{"/home/user", "/home/user/Documents", "/var/log"}
	got := FilterDuplicateRoots(roots)

	want := map[string]bool{"/home/user": true, "/var/log": true}
	if len(got) != 2 {
		t.Fatalf("expected 2 roots after filtering, got %v", got)
	}
	for _, r := range got {
		if !want[r] {
			t.Fatalf("unexpected surviving root %q", r)
		}
	}
}

func TestExpandPathExpandsEnvVar(t *testing.T) {
	t.Setenv("TRACKER_TEST_DIR", "/srv/data")
	got := ExpandPath("${TRACKER_TEST_DIR}/docs")
	if got != "/srv/data/docs" {
		t.Fatalf("expected env expansion, got %q", got)
	}
}

func TestDecisionString(t *testing.T) {
	cases := map[Decision]string{Ignore: "Ignore", Crawl: "Crawl", Watch: "Watch", IndexNow: "IndexNow"}
	for d, want := range cases {
		if d.String() != want {
			t.Fatalf("expected %q, got %q", want, d.String())
		}
	}
}
