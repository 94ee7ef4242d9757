package config

import "fmt"

// Validator validates a Config and fills in smart defaults for any
// zero-valued field that has a sensible derived value, the same
// two-step validate-then-default shape the teacher's Validator used.
type Validator struct{}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates cfg's range constraints and fills
// in defaults for zero-valued optional fields. Returns an error if a
// range constraint fails.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Indexing.MaxWordLength == 0 {
		cfg.Indexing.MaxWordLength = 30
	}
	if cfg.Indexing.Language == "" {
		cfg.Indexing.Language = "en"
	}
	if cfg.Indexing.LowDiskSpaceLimit == 0 {
		cfg.Indexing.LowDiskSpaceLimit = 1
	}
}

// ValidateConfig is a convenience function for quick validation.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
