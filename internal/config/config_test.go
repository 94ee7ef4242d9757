package config

import "testing"

func TestDefaultPassesValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() should validate cleanly: %v", err)
	}
}

func TestValidateRejectsOutOfRangeThrottle(t *testing.T) {
	cfg := Default()
	cfg.Indexing.Throttle = 21
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Throttle 21 to fail validation (max 20)")
	}
}

func TestValidateRejectsMinWordLengthAboveMax(t *testing.T) {
	cfg := Default()
	cfg.Indexing.MinWordLength = 10
	cfg.Indexing.MaxWordLength = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected MinWordLength > MaxWordLength to fail validation")
	}
}

func TestValidateRejectsLowDiskSpaceLimitOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Indexing.LowDiskSpaceLimit = 101
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected LowDiskSpaceLimit 101 to fail validation (max 100)")
	}
	cfg.Indexing.LowDiskSpaceLimit = -1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected -1 (disabled) to be a valid LowDiskSpaceLimit: %v", err)
	}
}

func TestMergeConfigsUnionsListsAndPrefersProjectScalars(t *testing.T) {
	base := Default()
	base.Watches.WatchDirectoryRoots = []string{"/home/alice"}
	base.Indexing.NoIndexFileTypes = []string{"*.o"}
	base.Indexing.Throttle = 5

	project := Default()
	project.Watches.WatchDirectoryRoots = []string{"/home/alice/Projects"}
	project.Indexing.NoIndexFileTypes = []string{"*.tmp"}
	project.Indexing.Throttle = 0

	merged := mergeConfigs(base, project)

	if len(merged.Watches.WatchDirectoryRoots) != 2 {
		t.Fatalf("expected both watch roots unioned, got %v", merged.Watches.WatchDirectoryRoots)
	}
	if len(merged.Indexing.NoIndexFileTypes) != 2 {
		t.Fatalf("expected both no-index globs unioned, got %v", merged.Indexing.NoIndexFileTypes)
	}
	if merged.Indexing.Throttle != 0 {
		t.Fatalf("expected project's Throttle (scalar) to win, got %d", merged.Indexing.Throttle)
	}
}

func TestMergeConfigsDeduplicatesUnion(t *testing.T) {
	base := Default()
	base.Indexing.DisabledModules = []string{"emails"}
	project := Default()
	project.Indexing.DisabledModules = []string{"emails", "web-history"}

	merged := mergeConfigs(base, project)
	if len(merged.Indexing.DisabledModules) != 2 {
		t.Fatalf("expected duplicate 'emails' to be deduplicated, got %v", merged.Indexing.DisabledModules)
	}
}

func TestExtractWorkersScalesWithThrottle(t *testing.T) {
	cfg := Default()
	cfg.Indexing.Throttle = 20
	if got := cfg.ExtractWorkers(); got != 1 {
		t.Fatalf("expected throttle=20 to serialize to 1 worker, got %d", got)
	}
	cfg.Indexing.Throttle = 0
	if got := cfg.ExtractWorkers(); got < 1 {
		t.Fatalf("expected throttle=0 to use at least 1 worker, got %d", got)
	}
}

func TestDisabledChecksDisabledModulesCaseInsensitively(t *testing.T) {
	cfg := Default()
	cfg.Indexing.DisabledModules = []string{"Emails"}
	if !cfg.Disabled(ModuleEmails) {
		t.Fatal("expected ModuleEmails to be disabled regardless of stored case")
	}
	if cfg.Disabled(ModuleFiles) {
		t.Fatal("did not expect ModuleFiles to be disabled")
	}
}

func TestIsKnownModule(t *testing.T) {
	if !IsKnownModule("Files") {
		t.Fatal("expected 'Files' to be a known module")
	}
	if IsKnownModule("bogus") {
		t.Fatal("did not expect 'bogus' to be a known module")
	}
}
