package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a tracker3.kdl file
// under dir. A missing file is not an error: it means "use defaults",
// matching the teacher's own LoadKDL contract.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, "tracker3.kdl")

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tracker3.kdl: %w", err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	for i, root := range cfg.Watches.WatchDirectoryRoots {
		cfg.Watches.WatchDirectoryRoots[i] = resolveRoot(dir, root)
	}
	for i, root := range cfg.Watches.CrawlDirectory {
		cfg.Watches.CrawlDirectory[i] = resolveRoot(dir, root)
	}
	for i, root := range cfg.Mail.MboxStores {
		cfg.Mail.MboxStores[i] = resolveRoot(dir, root)
	}
	for i, root := range cfg.Mail.MaildirStores {
		cfg.Mail.MaildirStores[i] = resolveRoot(dir, root)
	}

	return cfg, nil
}

func resolveRoot(configDir, root string) string {
	if root == "" {
		return root
	}
	if root == "&" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
	}
	if filepath.IsAbs(root) {
		return filepath.Clean(root)
	}
	return filepath.Clean(filepath.Join(configDir, root))
}

// parseKDL parses one tracker3.kdl document over the built-in
// defaults, the same seed-then-overlay shape the teacher's parseKDL
// used for its own sections.
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse tracker3.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "watches":
			parseWatchesSection(cfg, n)
		case "indexing":
			parseIndexingSection(cfg, n)
		case "battery":
			parseBatterySection(cfg, n)
		case "emails":
			parseEmailsLegacySection(cfg, n)
		case "mail":
			parseMailSection(cfg, n)
		case "propagation_config_dir":
			if s, ok := firstStringArg(n); ok {
				cfg.PropagationConfigDir = s
			}
		}
	}

	return cfg, nil
}

func parseWatchesSection(cfg *Config, n *document.Node) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "watch_directory_roots":
			cfg.Watches.WatchDirectoryRoots = collectStringArgs(cn)
		case "crawl_directory":
			cfg.Watches.CrawlDirectory = collectStringArgs(cn)
		case "no_watch_directory":
			cfg.Watches.NoWatchDirectory = collectStringArgs(cn)
		case "enable_watching":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Watches.EnableWatching = b
			}
		}
	}
}

func parseIndexingSection(cfg *Config, n *document.Node) {
	for _, cn := range n.Children {
		name := nodeName(cn)
		switch name {
		case "throttle":
			if v, ok := firstIntArg(cn); ok {
				cfg.Indexing.Throttle = v
			}
		case "enable_indexing":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Indexing.EnableIndexing = b
			}
		case "enable_file_content_indexing":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Indexing.EnableFileContentIndexing = b
			}
		case "enable_thumbnails":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Indexing.EnableThumbnails = b
			}
		case "disabled_modules":
			cfg.Indexing.DisabledModules = collectStringArgs(cn)
		case "no_index_file_types":
			cfg.Indexing.NoIndexFileTypes = collectStringArgs(cn)
		case "min_word_length":
			if v, ok := firstIntArg(cn); ok {
				cfg.Indexing.MinWordLength = v
			}
		case "max_word_length":
			if v, ok := firstIntArg(cn); ok {
				cfg.Indexing.MaxWordLength = v
			}
		case "language":
			if s, ok := firstStringArg(cn); ok {
				cfg.Indexing.Language = s
			}
		case "enable_stemmer":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Indexing.EnableStemmer = b
			}
		case "low_disk_space_limit":
			if v, ok := firstIntArg(cn); ok {
				cfg.Indexing.LowDiskSpaceLimit = v
			}
		case "index_mounted_directories":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Indexing.IndexMountedDirectories = b
			}
		case "index_removable_media":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Indexing.IndexRemovableMedia = b
			}
		case "skip_mount_points":
			b, ok := firstBoolArg(cn)
			applyLegacyAlias(cfg, legacySkipMountPoints, b, ok)
		}
	}
}

func parseBatterySection(cfg *Config, n *document.Node) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "index":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Battery.Index = b
			}
		case "index_initial":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Battery.IndexInitial = b
			}
		}
	}
}

// parseEmailsLegacySection handles the pre-module-registry `emails {
// index_evolution_emails false }` key, which spec §6 says must still
// be accepted and translated into DisabledModules.
func parseEmailsLegacySection(cfg *Config, n *document.Node) {
	for _, cn := range n.Children {
		if nodeName(cn) == "index_evolution_emails" {
			b, ok := firstBoolArg(cn)
			applyLegacyAlias(cfg, legacyIndexEvolutionEmails, b, ok)
		}
	}
}

// parseMailSection handles the `mail { mbox_stores ...; maildir_stores
// ... }` section feeding the Mail-Store Walkers (spec §6).
func parseMailSection(cfg *Config, n *document.Node) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "mbox_stores":
			cfg.Mail.MboxStores = collectStringArgs(cn)
		case "maildir_stores":
			cfg.Mail.MaildirStores = collectStringArgs(cn)
		}
	}
}

// Helper functions over the kdl-go document model, kept in the
// teacher's own shape (nodeName/firstXArg/collectStringArgs).
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs reads a list either from a node's inline
// arguments (`exclude "a" "b"`) or from block-style children
// (`exclude { "a" "b" }`), matching the teacher's dual-format support.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}
