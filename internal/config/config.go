// Package config loads and validates the indexer's configuration: a
// global base file merged with a per-instance override, following the
// GLib key-file option set of spec §6 (Watches.*, Indexing.*, plus the
// legacy key aliases it still accepts on load).
package config

import (
	"fmt"
	"os"
	"runtime"
)

// Watches controls which directories are crawled/watched and whether
// file-system watching is enabled at all.
type Watches struct {
	WatchDirectoryRoots []string
	CrawlDirectory      []string // crawled once, never watched
	NoWatchDirectory    []string // globs excluded from watching
	EnableWatching      bool
}

// Indexing controls what gets indexed and how aggressively.
type Indexing struct {
	Throttle                  int // 0 (fastest) .. 20 (slowest)
	EnableIndexing            bool
	EnableFileContentIndexing bool
	EnableThumbnails          bool
	DisabledModules           []string // module names from ModuleRegistry
	NoIndexFileTypes          []string // globs matched against base name
	MinWordLength             int      // 0..30
	MaxWordLength             int      // 0..200
	Language                  string
	EnableStemmer             bool
	LowDiskSpaceLimit         int // -1 (disabled) .. 100 (percent free)
	IndexMountedDirectories   bool
	IndexRemovableMedia       bool
}

// Battery controls indexing behavior while running unplugged.
type Battery struct {
	Index        bool // keep indexing on battery at all
	IndexInitial bool // allow the first, most expensive crawl on battery
}

// Mail configures the Mail-Store Walkers (component G, spec §6):
// mbox files are scanned from a resumable byte offset, maildir roots
// are scanned by path through the Metadata Store Façade.
type Mail struct {
	MboxStores    []string // paths to individual mbox files
	MaildirStores []string // maildir root directories (new/, cur/, tmp/)
}

// Config is the merged, validated configuration for one running
// instance: a global base (~/.tracker3/tracker-miner-fs.cfg-equivalent)
// overridden by a project/instance file, the same two-layer scheme the
// teacher's LoadWithRoot/mergeConfigs used for its own base+project
// split.
type Config struct {
	Watches  Watches
	Indexing Indexing
	Battery  Battery
	Mail     Mail

	// PropagationConfigDir lets operators seed derived instances
	// (e.g. a second mount) with copies of the running config.
	PropagationConfigDir string
}

// Default returns the built-in configuration applied before any KDL
// file is read, mirroring the original tracker-config.c GSettings
// schema defaults.
func Default() *Config {
	home, err := os.UserHomeDir()
	var defaultRoot []string
	if err == nil && home != "" {
		defaultRoot = []string{home}
	}

	return &Config{
		Watches: Watches{
			WatchDirectoryRoots: defaultRoot,
			CrawlDirectory:      []string{},
			NoWatchDirectory:    []string{},
			EnableWatching:      true,
		},
		Indexing: Indexing{
			Throttle:                  0,
			EnableIndexing:            true,
			EnableFileContentIndexing: true,
			EnableThumbnails:          true,
			DisabledModules:           []string{},
			NoIndexFileTypes:          defaultNoIndexFileTypes(),
			MinWordLength:             3,
			MaxWordLength:             30,
			Language:                  "en",
			EnableStemmer:             true,
			LowDiskSpaceLimit:         1,
			IndexMountedDirectories:   false,
			IndexRemovableMedia:       false,
		},
		Battery: Battery{
			Index:        true,
			IndexInitial: false,
		},
		Mail: Mail{
			MboxStores:    []string{},
			MaildirStores: []string{},
		},
	}
}

func defaultNoIndexFileTypes() []string {
	return []string{
		"*.o", "*.a", "*.so", "*.so.*", "*.ko",
		"*.tmp", "*.bak", "*.swp", "*.swo", "*~",
		"*.pyc", "*.pyo", "*.class",
		"core", "core.*",
		"*.log",
	}
}

// Load resolves the global config, the per-project/instance config
// rooted at path, and merges them (project wins on scalars, list
// settings are unioned) the same way the teacher's Load/LoadWithRoot
// pair did for base+project configs.
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot loads global (~) and project (rootDir, or path if
// rootDir is empty) KDL configs and merges them.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := path
	if rootDir != "" {
		searchDir = rootDir
	}
	if searchDir == "" {
		searchDir = "."
	}

	var base *Config
	if home, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(home); err == nil && globalCfg != nil {
			base = globalCfg
		}
	}

	project, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}

	switch {
	case base != nil && project != nil:
		return mergeConfigs(base, project), nil
	case project != nil:
		return project, nil
	case base != nil:
		return base, nil
	default:
		return Default(), nil
	}
}

// mergeConfigs combines a global base config with a project/instance
// override: list-valued keys are unioned (deduplicated), everything
// else is taken from project.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	merged.Watches.WatchDirectoryRoots = unionStrings(base.Watches.WatchDirectoryRoots, project.Watches.WatchDirectoryRoots)
	merged.Watches.CrawlDirectory = unionStrings(base.Watches.CrawlDirectory, project.Watches.CrawlDirectory)
	merged.Watches.NoWatchDirectory = unionStrings(base.Watches.NoWatchDirectory, project.Watches.NoWatchDirectory)

	merged.Indexing.DisabledModules = unionStrings(base.Indexing.DisabledModules, project.Indexing.DisabledModules)
	merged.Indexing.NoIndexFileTypes = unionStrings(base.Indexing.NoIndexFileTypes, project.Indexing.NoIndexFileTypes)

	merged.Mail.MboxStores = unionStrings(base.Mail.MboxStores, project.Mail.MboxStores)
	merged.Mail.MaildirStores = unionStrings(base.Mail.MaildirStores, project.Mail.MaildirStores)

	return &merged
}

func unionStrings(base, project []string) []string {
	if len(base) == 0 {
		return project
	}
	seen := make(map[string]bool, len(base)+len(project))
	out := make([]string, 0, len(base)+len(project))
	for _, s := range base {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range project {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the range constraints spec §6 places on the
// numeric keys. It does not translate legacy key aliases
// (Emails.IndexEvolutionEmails, Indexing.SkipMountPoints); that
// happens only while a KDL file is parsed.
func (c *Config) Validate() error {
	if c.Indexing.Throttle < 0 || c.Indexing.Throttle > 20 {
		return fmt.Errorf("config: Indexing.Throttle must be in 0..20, got %d", c.Indexing.Throttle)
	}
	if c.Indexing.MinWordLength < 0 || c.Indexing.MinWordLength > 30 {
		return fmt.Errorf("config: Indexing.MinWordLength must be in 0..30, got %d", c.Indexing.MinWordLength)
	}
	if c.Indexing.MaxWordLength < 0 || c.Indexing.MaxWordLength > 200 {
		return fmt.Errorf("config: Indexing.MaxWordLength must be in 0..200, got %d", c.Indexing.MaxWordLength)
	}
	if c.Indexing.MinWordLength > c.Indexing.MaxWordLength {
		return fmt.Errorf("config: Indexing.MinWordLength (%d) exceeds MaxWordLength (%d)", c.Indexing.MinWordLength, c.Indexing.MaxWordLength)
	}
	if c.Indexing.LowDiskSpaceLimit < -1 || c.Indexing.LowDiskSpaceLimit > 100 {
		return fmt.Errorf("config: Indexing.LowDiskSpaceLimit must be in -1..100, got %d", c.Indexing.LowDiskSpaceLimit)
	}
	return nil
}

// ExtractWorkers derives the extraction pipeline's worker-pool size
// from the throttle setting: throttle 0 uses all cores, throttle 20
// serializes to a single worker. This is the one Performance-shaped
// knob the original code-indexer Config carried that still has a
// clear Tracker-domain home (internal/extract's worker pool).
func (c *Config) ExtractWorkers() int {
	n := runtime.NumCPU()
	if c.Indexing.Throttle <= 0 {
		return n
	}
	if c.Indexing.Throttle >= 20 {
		return 1
	}
	workers := n - (n-1)*c.Indexing.Throttle/20
	if workers < 1 {
		workers = 1
	}
	return workers
}
