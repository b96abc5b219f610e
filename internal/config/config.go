// Package config loads the application configuration from TOML files.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "kindred"

type Config struct {
	DatabasePath string `koanf:"database_path"` // empty means xdg data dir
	CacheDir     string `koanf:"cache_dir"`     // downloaded preview audio
	Resolver     string `koanf:"resolver"`      // "deezer" (default) or "lastfm"
	TopK         int    `koanf:"top_k"`         // similar tracks to report
	TimeoutSecs  int    `koanf:"timeout_secs"`  // per-run pipeline deadline

	// Last.fm metadata lookup (used when resolver = "lastfm")
	Lastfm LastfmConfig `koanf:"lastfm"`
}

// LastfmConfig holds Last.fm API credentials.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	cfg.DatabasePath = expandPath(cfg.DatabasePath)
	cfg.CacheDir = expandPath(cfg.CacheDir)

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(xdg.DataHome, appName, "catalog.db")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(xdg.CacheHome, appName, "audio")
	}
	if c.Resolver == "" {
		c.Resolver = "deezer"
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.TimeoutSecs <= 0 {
		c.TimeoutSecs = 120
	}
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/kindred/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName, "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm lookup is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}
