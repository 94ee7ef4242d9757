package config

import "strings"

// Module names the indexer's pluggable data-source modules, mirroring
// the scheduler's own state names (internal/scheduler.State) and the
// original tracker-module-config.c registry of enable/disable-able
// miner modules.
type Module string

const (
	ModuleApplications  Module = "applications"
	ModuleFiles         Module = "files"
	ModuleConversations Module = "conversations"
	ModuleWebHistory    Module = "web-history"
	ModuleExternal      Module = "external"
	ModuleEmails        Module = "emails"
)

// ModuleRegistry lists every module Indexing.DisabledModules may name.
// Legacy alias keys are not listed here; applyLegacyAlias handles them.
var ModuleRegistry = []Module{
	ModuleApplications,
	ModuleFiles,
	ModuleConversations,
	ModuleWebHistory,
	ModuleExternal,
	ModuleEmails,
}

// IsKnownModule reports whether name (case-insensitively) names a
// module in ModuleRegistry.
func IsKnownModule(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range ModuleRegistry {
		if string(m) == name {
			return true
		}
	}
	return false
}

// Disabled reports whether m is listed in Indexing.DisabledModules.
func (c *Config) Disabled(m Module) bool {
	for _, d := range c.Indexing.DisabledModules {
		if strings.EqualFold(d, string(m)) {
			return true
		}
	}
	return false
}

// legacy key aliases (spec §6): Emails.IndexEvolutionEmails used to be
// its own boolean before emails became a module like any other, and
// Indexing.SkipMountPoints inverted what IndexMountedDirectories now
// says directly.
const (
	legacyIndexEvolutionEmails = "Emails.IndexEvolutionEmails"
	legacySkipMountPoints      = "Indexing.SkipMountPoints"
)

// applyLegacyAlias translates one legacy KDL key/value pair into the
// current Config shape. It returns false if key isn't a known legacy
// alias, so the caller can fall through to normal key handling.
func applyLegacyAlias(cfg *Config, key string, boolVal bool, boolOK bool) bool {
	switch key {
	case legacyIndexEvolutionEmails:
		if boolOK && !boolVal {
			cfg.Indexing.DisabledModules = appendUnique(cfg.Indexing.DisabledModules, string(ModuleEmails))
		}
		return true
	case legacySkipMountPoints:
		if boolOK {
			cfg.Indexing.IndexMountedDirectories = !boolVal
		}
		return true
	default:
		return false
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}
