package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/var/lib/kindred/catalog.db",
			expected: "/var/lib/kindred/catalog.db",
		},
		{
			name:     "relative path unchanged",
			input:    "data/catalog.db",
			expected: "data/catalog.db",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Fatal("getConfigPaths() returned empty slice")
	}

	// Last path should be local config.toml (highest priority)
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.DatabasePath == "" {
		t.Error("default database path should not be empty")
	}
	if cfg.CacheDir == "" {
		t.Error("default cache dir should not be empty")
	}
	if cfg.Resolver != "deezer" {
		t.Errorf("default resolver = %q, want deezer", cfg.Resolver)
	}
	if cfg.TopK != 5 {
		t.Errorf("default top_k = %d, want 5", cfg.TopK)
	}
	if cfg.TimeoutSecs != 120 {
		t.Errorf("default timeout_secs = %d, want 120", cfg.TimeoutSecs)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		DatabasePath: "/srv/music.db",
		Resolver:     "lastfm",
		TopK:         10,
		TimeoutSecs:  30,
	}
	cfg.applyDefaults()

	if cfg.DatabasePath != "/srv/music.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Resolver != "lastfm" {
		t.Errorf("Resolver = %q", cfg.Resolver)
	}
	if cfg.TopK != 10 {
		t.Errorf("TopK = %d", cfg.TopK)
	}
	if cfg.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d", cfg.TimeoutSecs)
	}
}

func TestHasLastfmConfig(t *testing.T) {
	cfg := &Config{}
	if cfg.HasLastfmConfig() {
		t.Error("empty credentials should not count as configured")
	}

	cfg.Lastfm = LastfmConfig{APIKey: "key", APISecret: "secret"}
	if !cfg.HasLastfmConfig() {
		t.Error("expected HasLastfmConfig with both credentials set")
	}
}
