package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "./knowledge", cfg.Collection.Root)
	assert.Equal(t, "weaver", cfg.Collection.Actor)
	assert.Equal(t, 0.90, cfg.Matching.AutoThreshold)
	assert.Equal(t, 0.70, cfg.Matching.AskThreshold)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.OllamaURL)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 0.75, cfg.Embedding.Threshold)
	assert.Equal(t, 50, cfg.Embedding.EdgeLimit)
	assert.Empty(t, cfg.Embedding.PostgresDSN)
	assert.Empty(t, cfg.Feeds.JiraURL)
	assert.Equal(t, filepath.Join("./knowledge", ".weaver", "history.db"), cfg.History.Path)
	assert.Equal(t, 5, cfg.Watch.DebounceSeconds)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("WEAVER_COLLECTION_ROOT", "/srv/graph")
	t.Setenv("WEAVER_ACTOR", "bot")
	t.Setenv("WEAVER_AUTO_THRESHOLD", "0.95")
	t.Setenv("WEAVER_ASK_THRESHOLD", "0.6")
	t.Setenv("WEAVER_SIMILARITY_THRESHOLD", "0.8")
	t.Setenv("WEAVER_EDGE_LIMIT", "10")
	t.Setenv("WEAVER_FEED_JIRA_URL", "http://exporter/jira")
	t.Setenv("WEAVER_HISTORY_PATH", "/var/lib/weaver/history.db")
	t.Setenv("WEAVER_WATCH_DEBOUNCE", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/srv/graph", cfg.Collection.Root)
	assert.Equal(t, "bot", cfg.Collection.Actor)
	assert.Equal(t, 0.95, cfg.Matching.AutoThreshold)
	assert.Equal(t, 0.6, cfg.Matching.AskThreshold)
	assert.Equal(t, 0.8, cfg.Embedding.Threshold)
	assert.Equal(t, 10, cfg.Embedding.EdgeLimit)
	assert.Equal(t, "http://exporter/jira", cfg.Feeds.JiraURL)
	assert.Equal(t, "/var/lib/weaver/history.db", cfg.History.Path)
	assert.Equal(t, 2, cfg.Watch.DebounceSeconds)
}

func TestLoadConfig_BadValuesFallBack(t *testing.T) {
	t.Setenv("WEAVER_EDGE_LIMIT", "lots")
	t.Setenv("WEAVER_SIMILARITY_THRESHOLD", "very high")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Embedding.EdgeLimit)
	assert.Equal(t, 0.75, cfg.Embedding.Threshold)
}

func TestLoadConfig_InvalidThresholdOrder(t *testing.T) {
	t.Setenv("WEAVER_AUTO_THRESHOLD", "0.5")
	t.Setenv("WEAVER_ASK_THRESHOLD", "0.8")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Collection.Root = ""
	assert.Error(t, cfg.Validate())

	cfg, _ = LoadConfig()
	cfg.Embedding.Threshold = 1.5
	assert.Error(t, cfg.Validate())
}
