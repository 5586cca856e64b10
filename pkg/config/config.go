// Package config provides configuration management for the retrace CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// OutputFormat selects how `retrace trace` renders its output.
type OutputFormat string

const (
	// FormatText prints progress and summary lines as plain text.
	FormatText OutputFormat = "text"

	// FormatStyled prints progress and summary lines through pkg/ui's
	// lipgloss styling. The remapped stack trace itself is printed
	// unstyled in either format.
	FormatStyled OutputFormat = "styled"
)

// IsValid reports whether the output format is recognised.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatText, FormatStyled:
		return true
	default:
		return false
	}
}

// Config is the complete retrace configuration: resolver behavior plus CLI
// output preferences.
type Config struct {
	Resolver ResolverConfig `toml:"resolver"`
	Output   OutputConfig   `toml:"output"`
}

// ResolverConfig mirrors the "Recognised configuration options (resolver)"
// surface (spec §6) that resolver.Config accepts.
type ResolverConfig struct {
	// InitializeParamMapping builds the parameter-indexed lookup table
	// eagerly. Default false.
	InitializeParamMapping bool `toml:"initialize_param_mapping"`
}

// OutputConfig controls CLI rendering.
type OutputConfig struct {
	// Format selects plain text or styled terminal output.
	Format OutputFormat `toml:"format"`

	// Quiet suppresses progress, diagnostic and summary output of a
	// trace/class run; the remapped result is still printed.
	Quiet bool `toml:"quiet"`
}

// DefaultConfig returns the built-in configuration used when no config file
// or override supplies a value.
func DefaultConfig() *Config {
	return &Config{
		Resolver: ResolverConfig{
			InitializeParamMapping: false,
		},
		Output: OutputConfig{
			Format: FormatStyled,
			Quiet:  false,
		},
	}
}

// Load loads configuration from multiple sources with precedence:
//  1. CLI flags (highest priority) - passed as overrides
//  2. Project retrace.toml (current directory)
//  3. User config (~/.retrace/config.toml)
//  4. Built-in defaults (lowest priority)
func Load(overrides *Config) (*Config, error) {
	cfg := DefaultConfig()

	userConfigPath := filepath.Join(os.Getenv("HOME"), ".retrace", "config.toml")
	if err := loadConfigFile(userConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	projectConfigPath := "retrace.toml"
	if err := loadConfigFile(projectConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}

	if overrides != nil {
		if overrides.Output.Format != "" {
			cfg.Output.Format = overrides.Output.Format
		}
		if overrides.Output.Quiet {
			cfg.Output.Quiet = true
		}
		if overrides.Resolver.InitializeParamMapping {
			cfg.Resolver.InitializeParamMapping = true
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from an explicit path (the CLI's --config
// flag), falling back to defaults for anything the file doesn't set.
func LoadFile(path string, overrides *Config) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadConfigFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if overrides != nil {
		if overrides.Output.Format != "" {
			cfg.Output.Format = overrides.Output.Format
		}
		if overrides.Output.Quiet {
			cfg.Output.Quiet = true
		}
		if overrides.Resolver.InitializeParamMapping {
			cfg.Resolver.InitializeParamMapping = true
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadConfigFile loads a TOML configuration file into cfg. A missing file
// is not an error: the caller keeps whatever defaults were already set.
func loadConfigFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !c.Output.Format.IsValid() {
		return fmt.Errorf("invalid output format: %q (must be 'text' or 'styled')", c.Output.Format)
	}
	return nil
}
