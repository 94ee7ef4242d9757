package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeKDL(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "tracker3.kdl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadKDLReturnsNilWhenFileAbsent(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadKDL(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != nil {
		t.Fatal("expected a missing tracker3.kdl to yield a nil config, not an error")
	}
}

func TestParseKDLWatchesAndIndexingSections(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
watches {
    watch_directory_roots "Documents" "Pictures"
    no_watch_directory "Downloads"
    enable_watching true
}
indexing {
    throttle 5
    enable_indexing true
    no_index_file_types "*.o" "*.tmp"
    min_word_length 2
    max_word_length 25
    language "fr"
    enable_stemmer false
    low_disk_space_limit 5
    index_mounted_directories true
}
`)
	cfg, err := LoadKDL(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Watches.WatchDirectoryRoots) != 2 {
		t.Fatalf("expected 2 watch roots, got %v", cfg.Watches.WatchDirectoryRoots)
	}
	if cfg.Watches.WatchDirectoryRoots[0] != filepath.Join(dir, "Documents") {
		t.Fatalf("expected watch root resolved relative to config dir, got %q", cfg.Watches.WatchDirectoryRoots[0])
	}
	if cfg.Indexing.Throttle != 5 {
		t.Fatalf("expected throttle 5, got %d", cfg.Indexing.Throttle)
	}
	if cfg.Indexing.Language != "fr" {
		t.Fatalf("expected language fr, got %q", cfg.Indexing.Language)
	}
	if cfg.Indexing.EnableStemmer {
		t.Fatal("expected enable_stemmer false to stick")
	}
	if !cfg.Indexing.IndexMountedDirectories {
		t.Fatal("expected index_mounted_directories true to stick")
	}
	if len(cfg.Indexing.NoIndexFileTypes) != 2 {
		t.Fatalf("expected no_index_file_types to replace the default list, got %v", cfg.Indexing.NoIndexFileTypes)
	}
}

func TestParseKDLLegacySkipMountPointsAlias(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
indexing {
    skip_mount_points true
}
`)
	cfg, err := LoadKDL(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Indexing.IndexMountedDirectories {
		t.Fatal("expected skip_mount_points true to translate to IndexMountedDirectories=false")
	}
}

func TestParseKDLLegacyIndexEvolutionEmailsAlias(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
emails {
    index_evolution_emails false
}
`)
	cfg, err := LoadKDL(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Disabled(ModuleEmails) {
		t.Fatal("expected index_evolution_emails false to disable the emails module")
	}
}

func TestParseKDLBatterySection(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
battery {
    index false
    index_initial true
}
`)
	cfg, err := LoadKDL(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Battery.Index {
		t.Fatal("expected battery index false to stick")
	}
	if !cfg.Battery.IndexInitial {
		t.Fatal("expected battery index_initial true to stick")
	}
}

func TestParseKDLMailSection(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
mail {
    mbox_stores "Mail/sent.mbox"
    maildir_stores "Mail/inbox"
}
`)
	cfg, err := LoadKDL(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Mail.MboxStores) != 1 || cfg.Mail.MboxStores[0] != filepath.Join(dir, "Mail/sent.mbox") {
		t.Fatalf("expected one mbox store resolved relative to config dir, got %v", cfg.Mail.MboxStores)
	}
	if len(cfg.Mail.MaildirStores) != 1 || cfg.Mail.MaildirStores[0] != filepath.Join(dir, "Mail/inbox") {
		t.Fatalf("expected one maildir store resolved relative to config dir, got %v", cfg.Mail.MaildirStores)
	}
}

func TestLoadWithRootFallsBackToDefaultsWithNoFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadWithRoot(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Indexing.EnableIndexing {
		t.Fatal("expected default config to have indexing enabled")
	}
}
