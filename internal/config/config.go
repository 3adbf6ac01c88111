// Package config provides configuration management for Weaver.
// It loads settings from environment variables with the WEAVER_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration settings for the Weaver tools.
type Config struct {
	Collection CollectionConfig
	Matching   MatchingConfig
	Embedding  EmbeddingConfig
	Feeds      FeedsConfig
	History    HistoryConfig
	Watch      WatchConfig
}

// CollectionConfig locates the entity collection on disk.
type CollectionConfig struct {
	Root  string // Path to the collection root directory (default: ./knowledge)
	Actor string // Actor recorded on events written by the tools (default: weaver)
}

// MatchingConfig contains fuzzy-matching thresholds.
type MatchingConfig struct {
	AutoThreshold float64 // Similarity at or above which names auto-consolidate (default: 0.90)
	AskThreshold  float64 // Similarity at or above which names need review (default: 0.70)
}

// EmbeddingConfig contains embedding-backend configuration for similar_to
// inference.
type EmbeddingConfig struct {
	OllamaURL         string  // Ollama API URL (default: http://localhost:11434)
	Model             string  // Embedding model name (default: nomic-embed-text)
	Threshold         float64 // Minimum similarity score for a similar_to edge (default: 0.75)
	EdgeLimit         int     // Maximum inferred edges per run, 0 = unlimited (default: 50)
	RequestsPerSecond float64 // Embedding request rate limit (default: 5)
	PostgresDSN       string  // Optional pgvector cache DSN; empty disables the cache
}

// FeedsConfig configures the external text feeds. Each URL is optional;
// an empty URL disables that feed.
type FeedsConfig struct {
	JiraURL   string // Jira exporter feed URL
	GitHubURL string // GitHub exporter feed URL
	SlackURL  string // Slack exporter feed URL
	GDocsURL  string // Google Docs exporter feed URL
}

// HistoryConfig locates the run-history database.
type HistoryConfig struct {
	Path string // Path to the sqlite history file (default: <root>/.weaver/history.db)
}

// WatchConfig contains watch-mode settings.
type WatchConfig struct {
	DebounceSeconds int // Quiet period after a file change before re-enriching (default: 5)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the WEAVER_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Collection: CollectionConfig{
			Root:  getEnv("WEAVER_COLLECTION_ROOT", "./knowledge"),
			Actor: getEnv("WEAVER_ACTOR", "weaver"),
		},
		Matching: MatchingConfig{
			AutoThreshold: getEnvFloat("WEAVER_AUTO_THRESHOLD", 0.90),
			AskThreshold:  getEnvFloat("WEAVER_ASK_THRESHOLD", 0.70),
		},
		Embedding: EmbeddingConfig{
			OllamaURL:         getEnv("WEAVER_OLLAMA_URL", "http://localhost:11434"),
			Model:             getEnv("WEAVER_EMBEDDING_MODEL", "nomic-embed-text"),
			Threshold:         getEnvFloat("WEAVER_SIMILARITY_THRESHOLD", 0.75),
			EdgeLimit:         getEnvInt("WEAVER_EDGE_LIMIT", 50),
			RequestsPerSecond: getEnvFloat("WEAVER_EMBEDDING_RPS", 5),
			PostgresDSN:       getEnv("WEAVER_POSTGRES_DSN", ""),
		},
		Feeds: FeedsConfig{
			JiraURL:   getEnv("WEAVER_FEED_JIRA_URL", ""),
			GitHubURL: getEnv("WEAVER_FEED_GITHUB_URL", ""),
			SlackURL:  getEnv("WEAVER_FEED_SLACK_URL", ""),
			GDocsURL:  getEnv("WEAVER_FEED_GDOCS_URL", ""),
		},
		History: HistoryConfig{
			Path: getEnv("WEAVER_HISTORY_PATH", ""),
		},
		Watch: WatchConfig{
			DebounceSeconds: getEnvInt("WEAVER_WATCH_DEBOUNCE", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.Collection.Root, ".weaver", "history.db")
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Collection.Root == "" {
		return errors.New("config: collection root is required")
	}
	if c.Matching.AutoThreshold < c.Matching.AskThreshold {
		return fmt.Errorf("config: auto threshold %.2f below ask threshold %.2f",
			c.Matching.AutoThreshold, c.Matching.AskThreshold)
	}
	if c.Matching.AutoThreshold > 1.0 || c.Matching.AskThreshold < 0 {
		return errors.New("config: thresholds must be within [0, 1]")
	}
	if c.Embedding.Threshold <= 0 || c.Embedding.Threshold > 1.0 {
		return fmt.Errorf("config: similarity threshold %.2f must be within (0, 1]", c.Embedding.Threshold)
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as a float,
// it returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
