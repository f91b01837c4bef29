package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Backend.Command != "pop-launcher" {
		t.Errorf("Expected default backend command, got %q", cfg.Backend.Command)
	}
	if strings.HasPrefix(cfg.History.Path, "~") {
		t.Errorf("Expected expanded history path, got %q", cfg.History.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[backend]
command = "/opt/pop-launcher/bin/pop-launcher"

[history]
store = "file"
path = "/tmp/poplaunch-history.json"

[behavior]
exit_unfocused = false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Backend.Command != "/opt/pop-launcher/bin/pop-launcher" {
		t.Errorf("Backend command not overridden: %q", cfg.Backend.Command)
	}
	if cfg.History.Store != "file" {
		t.Errorf("History store not overridden: %q", cfg.History.Store)
	}
	if cfg.Behavior.ExitUnfocused {
		t.Error("Expected exit_unfocused to be false")
	}
	// untouched sections keep their defaults
	if cfg.History.CacheSize != DefaultConfig.History.CacheSize {
		t.Errorf("Expected default cache size, got %d", cfg.History.CacheSize)
	}
	if len(cfg.Web.Rules) != len(DefaultConfig.Web.Rules) {
		t.Errorf("Expected default web rules, got %d", len(cfg.Web.Rules))
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfig(t, "[backend\ncommand = ")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected parse error for malformed config")
	}
}

func TestDefaultIsACopy(t *testing.T) {
	cfg := Default()
	cfg.Plugins.Dirs[0] = "/changed"
	cfg.Web.Rules[0].Icon = "changed"

	if DefaultConfig.Plugins.Dirs[0] == "/changed" {
		t.Error("Default() shares plugin dirs with DefaultConfig")
	}
	if DefaultConfig.Web.Rules[0].Icon == "changed" {
		t.Error("Default() shares web rules with DefaultConfig")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty backend", func(c *Config) { c.Backend.Command = " " }, "backend command"},
		{"bad store", func(c *Config) { c.History.Store = "redis" }, "history store"},
		{"cache size", func(c *Config) { c.History.CacheSize = 0 }, "cache_size"},
		{"web rule without matches", func(c *Config) { c.Web.Rules = []WebRuleConfig{{}} }, "no matches"},
		{"web shortcut with space", func(c *Config) { c.Web.Rules = []WebRuleConfig{{Matches: []string{"d g"}}} }, "single word"},
		{"width", func(c *Config) { c.Window.Width = 50 }, "width"},
		{"scale", func(c *Config) { c.Window.Scale = 0 }, "scale"},
		{"anchor", func(c *Config) { c.Window.Anchor = "left" }, "anchor"},
		{"max results", func(c *Config) { c.Behavior.MaxResults = 0 }, "max_results"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
