// Package config provides configuration management for the mixtape client.
// It handles loading and parsing YAML configuration files, and provides
// structured access to application settings including the Spotify app
// credentials, the backend endpoint, the secret store location, and logging
// behavior.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Spotify holds the Spotify application settings used for the connect flow.
	Spotify SpotifyConfig `yaml:"spotify" json:"spotify"`

	// Backend holds the mixtape backend settings.
	Backend BackendConfig `yaml:"backend" json:"backend"`

	// Store holds the encrypted secret store settings.
	Store StoreConfig `yaml:"store" json:"store"`

	// Logging holds log level and file rotation settings.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SpotifyConfig holds the Spotify application settings.
type SpotifyConfig struct {
	// ClientID is the public Spotify application client ID. PKCE clients
	// carry no client secret.
	ClientID string `yaml:"client-id" json:"client-id"`

	// CallbackPort is the loopback port the redirect listener binds.
	// 0 means default (9180).
	CallbackPort int `yaml:"callback-port,omitempty" json:"callback-port,omitempty"`

	// Scopes lists the authorization scopes requested on connect.
	// Empty means the default read scopes the app needs.
	Scopes []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
}

// BackendConfig holds the mixtape backend settings.
type BackendConfig struct {
	// BaseURL is the backend root, e.g. "https://api.mixtape.example".
	BaseURL string `yaml:"base-url" json:"base-url"`
}

// StoreConfig holds the encrypted secret store settings.
type StoreConfig struct {
	// Path is the location of the store database file.
	// Empty means default (~/.mixtape/secrets.db).
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// LoggingConfig holds log level and file rotation settings.
type LoggingConfig struct {
	// Level is the minimum level to emit ("debug", "info", "warn", "error").
	// Empty means "info".
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// File is an optional rotated log file path. Empty logs to stderr only.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

const (
	// DefaultCallbackPort is the loopback port used when none is configured.
	DefaultCallbackPort = 9180

	// DefaultStoreFile is the store filename under the user config directory.
	DefaultStoreFile = "secrets.db"
)

// DefaultScopes are the Spotify scopes the app requests when the config
// names none: profile, library reads, and listening history for top tracks.
var DefaultScopes = []string{
	"user-read-email",
	"user-read-private",
	"user-library-read",
	"user-top-read",
}

// Load reads the YAML file at path and applies environment overrides.
// A missing file yields the zero config plus overrides, so the app can run
// from environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, errUnmarshal)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MIXTAPE_SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("MIXTAPE_CALLBACK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Spotify.CallbackPort = port
		}
	}
	if v := os.Getenv("MIXTAPE_SCOPES"); v != "" {
		c.Spotify.Scopes = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	if v := os.Getenv("MIXTAPE_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("MIXTAPE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("MIXTAPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// GetCallbackPort returns the configured loopback port, defaulting to 9180.
func (c *SpotifyConfig) GetCallbackPort() int {
	if c == nil || c.CallbackPort <= 0 {
		return DefaultCallbackPort
	}
	return c.CallbackPort
}

// RedirectURI returns the loopback redirect URI registered with Spotify.
func (c *SpotifyConfig) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d/callback", c.GetCallbackPort())
}

// GetScopes returns the configured scopes, defaulting to DefaultScopes.
func (c *SpotifyConfig) GetScopes() []string {
	if c == nil || len(c.Scopes) == 0 {
		return append([]string(nil), DefaultScopes...)
	}
	return c.Scopes
}

// GetLevel returns the configured log level, defaulting to "info".
func (c *LoggingConfig) GetLevel() string {
	if c == nil || c.Level == "" {
		return "info"
	}
	return c.Level
}

// StorePath returns the configured store path, defaulting to
// ~/.mixtape/secrets.db.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".mixtape", DefaultStoreFile), nil
}

// Validate reports the settings required for the connect flow that are
// still missing.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" {
		return fmt.Errorf("config: spotify.client-id is required (or set MIXTAPE_SPOTIFY_CLIENT_ID)")
	}
	return nil
}
