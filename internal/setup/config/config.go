// Package config loads the application configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// CurrentVersion is the config file version this build expects.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version int `koanf:"version"`
	// Debug enables verbose logging.
	Debug bool `koanf:"debug"`

	Store  Store  `koanf:"store"`
	Engine Engine `koanf:"engine"`
}

// Store configures access to the external datastore's query interface.
type Store struct {
	// Base URL of the datastore REST endpoint.
	URL string `koanf:"url"`
	// API key sent with every query.
	Key string `koanf:"key"`
	// Query timeout in seconds.
	TimeoutSeconds int `koanf:"timeout_seconds"`

	// Per-table fetch limits.
	UserLimit     int `koanf:"user_limit"`
	MessageLimit  int `koanf:"message_limit"`
	ReactionLimit int `koanf:"reaction_limit"`
	VoteLimit     int `koanf:"vote_limit"`
	IssueLimit    int `koanf:"issue_limit"`
}

// Engine configures the scoring and aggregation core.
type Engine struct {
	// HistoryDays is the recent-activity histogram width.
	HistoryDays int `koanf:"history_days"`
	// RefreshIntervalSeconds is the watch-mode refresh period.
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds"`
	// OpsChannels overrides the operational channel set.
	OpsChannels []string `koanf:"ops_channels"`
	// ChannelWeights adds to or overrides the built-in weight table.
	ChannelWeights map[string]float64 `koanf:"channel_weights"`
}

// LoadConfig loads the configuration from the first engage.toml found in
// the search paths. Returns the config along with the used config path.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".engage",
		homeDir + "/.engage/config",
		"/etc/engage/config",
		"config",
		".",
	}

	var usedConfigPath string
	for _, path := range configPaths {
		configPath := path + "/engage.toml"
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: engage.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Version != CurrentVersion {
		return nil, "", fmt.Errorf("%w: expected version %d, got %d",
			ErrConfigVersionMismatch, CurrentVersion, config.Version)
	}

	// Environment variables win over the file for credentials.
	if url := os.Getenv("SUPABASE_URL"); url != "" {
		config.Store.URL = url
	}
	if key := os.Getenv("SUPABASE_KEY"); key != "" {
		config.Store.Key = key
	}

	return &config, usedConfigPath, nil
}
