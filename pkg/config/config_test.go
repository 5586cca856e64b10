package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Resolver.InitializeParamMapping {
		t.Error("Expected InitializeParamMapping to default to false")
	}

	if cfg.Output.Format != FormatStyled {
		t.Errorf("Expected default output format to be 'styled', got %q", cfg.Output.Format)
	}

	if cfg.Output.Quiet {
		t.Error("Expected Quiet to default to false")
	}
}

func TestOutputFormatValidation(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatText, true},
		{FormatStyled, true},
		{OutputFormat("invalid"), false},
		{OutputFormat(""), false},
		{OutputFormat("TEXT"), false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got := tt.format.IsValid()
			if got != tt.valid {
				t.Errorf("IsValid() = %v, want %v for %q", got, tt.valid, tt.format)
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			config:    DefaultConfig(),
			wantError: false,
		},
		{
			name: "valid text format",
			config: &Config{
				Output: OutputConfig{Format: FormatText},
			},
			wantError: false,
		},
		{
			name: "invalid output format",
			config: &Config{
				Output: OutputConfig{Format: OutputFormat("bad_format")},
			},
			wantError: true,
			errorMsg:  "invalid output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantError {
				if err == nil {
					t.Errorf("Expected error containing %q, got nil", tt.errorMsg)
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func withTempWorkdirAndHome(t *testing.T) string {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "retrace-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })

	return tmpDir
}

func TestLoadConfigNoFiles(t *testing.T) {
	withTempWorkdirAndHome(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Format != FormatStyled {
		t.Errorf("Expected default output format 'styled', got %q", cfg.Output.Format)
	}
}

func TestLoadConfigProjectFile(t *testing.T) {
	tmpDir := withTempWorkdirAndHome(t)

	projectConfig := `[output]
format = "text"
quiet = true
`
	configPath := filepath.Join(tmpDir, "retrace.toml")
	if err := os.WriteFile(configPath, []byte(projectConfig), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Output.Format != FormatText {
		t.Errorf("Expected format 'text' from project config, got %q", cfg.Output.Format)
	}
	if !cfg.Output.Quiet {
		t.Error("Expected quiet=true from project config")
	}
}

func TestLoadConfigCLIOverride(t *testing.T) {
	tmpDir := withTempWorkdirAndHome(t)

	projectConfig := `[output]
format = "text"
`
	configPath := filepath.Join(tmpDir, "retrace.toml")
	if err := os.WriteFile(configPath, []byte(projectConfig), 0644); err != nil {
		t.Fatal(err)
	}

	overrides := &Config{Output: OutputConfig{Format: FormatStyled}}

	cfg, err := Load(overrides)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Output.Format != FormatStyled {
		t.Errorf("Expected format 'styled' from CLI override, got %q", cfg.Output.Format)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	tmpDir := withTempWorkdirAndHome(t)

	invalidConfig := `[output
format = "text"  # missing closing bracket
`
	configPath := filepath.Join(tmpDir, "retrace.toml")
	if err := os.WriteFile(configPath, []byte(invalidConfig), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(nil); err == nil {
		t.Error("Expected error for invalid TOML, got nil")
	}
}

func TestLoadConfigInvalidValue(t *testing.T) {
	tmpDir := withTempWorkdirAndHome(t)

	invalidConfig := `[output]
format = "invalid_format"
`
	configPath := filepath.Join(tmpDir, "retrace.toml")
	if err := os.WriteFile(configPath, []byte(invalidConfig), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(nil)
	if err == nil {
		t.Error("Expected validation error, got nil")
	}
	if !contains(err.Error(), "invalid configuration") {
		t.Errorf("Expected 'invalid configuration' error, got %v", err)
	}
}

func TestLoadFileExplicitPath(t *testing.T) {
	tmpDir := withTempWorkdirAndHome(t)

	configPath := filepath.Join(tmpDir, "custom.toml")
	if err := os.WriteFile(configPath, []byte("[resolver]\ninitialize_param_mapping = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(configPath, nil)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !cfg.Resolver.InitializeParamMapping {
		t.Error("Expected initialize_param_mapping=true from explicit config file")
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
