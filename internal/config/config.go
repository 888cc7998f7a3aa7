package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Player   PlayerConfig   `toml:"player"`
	Playlist PlaylistConfig `toml:"playlist"`
	History  HistoryConfig  `toml:"history"`
	Logging  LoggingConfig  `toml:"logging"`
	Console  ConsoleConfig  `toml:"console"`
}

// ServerConfig contains the HTTP control-surface configuration
type ServerConfig struct {
	Enabled         bool   `toml:"enabled"`
	Port            string `toml:"port"`
	Host            string `toml:"host"`
	StaticDir       string `toml:"static_dir"`
	EnableCORS      bool   `toml:"enable_cors"`
	ReadTimeout     int    `toml:"read_timeout_seconds"`
	APIPasswordHash string `toml:"api_password_hash"` // bcrypt hash; empty disables auth
}

// PlayerConfig contains playback engine configuration
type PlayerConfig struct {
	SampleRate       int      `toml:"sample_rate"`
	DefaultVolume    float64  `toml:"default_volume"`
	SupportedFormats []string `toml:"supported_formats"`
	WatchSources     bool     `toml:"watch_sources"`
}

// PlaylistConfig locates the playlist file
type PlaylistConfig struct {
	Path string `toml:"path"`
}

// HistoryConfig contains the play-history store configuration
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// ConsoleConfig controls the interactive keyboard transport
type ConsoleConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled:     true,
			Port:        "8090",
			Host:        "127.0.0.1",
			StaticDir:   "./static",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Player: PlayerConfig{
			SampleRate:       44100,
			DefaultVolume:    0.7,
			SupportedFormats: []string{".mp3", ".flac", ".wav"},
			WatchSources:     true,
		},
		Playlist: PlaylistConfig{
			Path: "./playlist.toml",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "./cadenza.db",
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: false,
		},
		Console: ConsoleConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Write header comment
	header := `# Cadenza Player Configuration
# This file contains all configuration options for the cadenza playlist
# player. Edit the values below to customize your player.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	// Encode configuration to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Enabled {
		if c.Server.Port == "" {
			return fmt.Errorf("server port cannot be empty")
		}
		if c.Server.Host == "" {
			return fmt.Errorf("server host cannot be empty")
		}
		if c.Server.ReadTimeout < 0 {
			return fmt.Errorf("server read timeout must be positive")
		}
	}

	// Validate player config
	if c.Player.SampleRate < 8000 {
		return fmt.Errorf("player sample rate must be at least 8000")
	}
	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 1 {
		return fmt.Errorf("player default volume must be between 0 and 1")
	}
	if len(c.Player.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}

	// Validate playlist config
	if c.Playlist.Path == "" {
		return fmt.Errorf("playlist path cannot be empty")
	}

	// Validate history config
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history path cannot be empty when history is enabled")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}
