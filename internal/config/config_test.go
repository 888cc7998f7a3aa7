package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig() does not validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.Server.Port = "" }, true},
		{"empty host", func(c *Config) { c.Server.Host = "" }, true},
		{"server disabled skips server checks", func(c *Config) {
			c.Server.Enabled = false
			c.Server.Port = ""
		}, false},
		{"sample rate too low", func(c *Config) { c.Player.SampleRate = 4000 }, true},
		{"default volume above one", func(c *Config) { c.Player.DefaultVolume = 1.5 }, true},
		{"default volume negative", func(c *Config) { c.Player.DefaultVolume = -0.1 }, true},
		{"no supported formats", func(c *Config) { c.Player.SupportedFormats = nil }, true},
		{"empty playlist path", func(c *Config) { c.Playlist.Path = "" }, true},
		{"history enabled without path", func(c *Config) { c.History.Path = "" }, true},
		{"history disabled without path", func(c *Config) {
			c.History.Enabled = false
			c.History.Path = ""
		}, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Error("Validate() expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Server.Port != "8090" {
		t.Errorf("default port = %q, want %q", cfg.Server.Port, "8090")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("LoadConfig() did not create the config file: %v", err)
	}
}

func TestLoadConfigReadsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
enabled = true
port = "9999"
host = "0.0.0.0"

[player]
default_volume = 0.4
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("port = %q, want %q", cfg.Server.Port, "9999")
	}
	if cfg.Player.DefaultVolume != 0.4 {
		t.Errorf("default volume = %v, want 0.4", cfg.Player.DefaultVolume)
	}
	// Untouched sections keep their defaults.
	if cfg.Playlist.Path != "./playlist.toml" {
		t.Errorf("playlist path = %q, want default", cfg.Playlist.Path)
	}
	if got := cfg.GetAddress(); got != "0.0.0.0:9999" {
		t.Errorf("GetAddress() = %q, want %q", got, "0.0.0.0:9999")
	}
}
