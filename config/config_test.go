package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "neo4j://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 200*time.Millisecond, cfg.Sync.Debounce)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "missing uri",
			modify:  func(c *Config) { c.Neo4j.URI = "" },
			wantErr: "neo4j.uri is required",
		},
		{
			name:    "missing username",
			modify:  func(c *Config) { c.Neo4j.Username = "" },
			wantErr: "neo4j.username is required",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: "log_level",
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Sync.Debounce = -time.Second },
			wantErr: "sync.debounce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEffectiveDatabase(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"3.5", ""},
		{"3", ""},
		{"4.4", "movies"},
		{"5.12", "movies"},
		{"", "movies"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Neo4j.Database = "movies"
			cfg.Neo4j.Version = tt.version

			assert.Equal(t, tt.want, cfg.EffectiveDatabase())
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("trace")
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte("neo4j:\n  uri: bolt://db:7687\nsync:\n  debounce: 1s\n"), 0644))

		cfg, err := LoadFromFile(path)

		require.NoError(t, err)
		assert.Equal(t, "bolt://db:7687", cfg.Neo4j.URI)
		assert.Equal(t, "neo4j", cfg.Neo4j.Username)
		assert.Equal(t, time.Second, cfg.Sync.Debounce)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(dir, "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("neo4j: [unclosed"), 0644))

		_, err := LoadFromFile(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Neo4j:    Neo4jConfig{Password: "secret", Version: "3.5"},
		LogLevel: "debug",
	})

	assert.Equal(t, "neo4j://localhost:7687", base.Neo4j.URI)
	assert.Equal(t, "secret", base.Neo4j.Password)
	assert.Equal(t, "3.5", base.Neo4j.Version)
	assert.Equal(t, "debug", base.LogLevel)

	base.Merge(nil)
	assert.Equal(t, "secret", base.Neo4j.Password)
}

func TestConfigSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "neosierra.yaml")
	cfg := DefaultConfig()
	cfg.Neo4j.Database = "movies"

	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoaderLoad(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectConfigFile),
		[]byte("neo4j:\n  uri: bolt://project:7687\n  database: project\nlog_level: warn\n"), 0644))

	env := map[string]string{}
	loader := NewLoader(nil)
	loader.getenv = func(k string) string { return env[k] }
	loader.dir = nested

	t.Run("project file found in a parent directory", func(t *testing.T) {
		cfg, err := loader.Load("")

		require.NoError(t, err)
		assert.Equal(t, "bolt://project:7687", cfg.Neo4j.URI)
		assert.Equal(t, "project", cfg.Neo4j.Database)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		env[EnvURI] = "neo4j://env:7687"
		env[EnvUser] = "reader"
		env[EnvPassword] = "pw"
		env[EnvVersion] = "3.5"
		defer func() { env = map[string]string{} }()

		cfg, err := loader.Load("")

		require.NoError(t, err)
		assert.Equal(t, "neo4j://env:7687", cfg.Neo4j.URI)
		assert.Equal(t, "reader", cfg.Neo4j.Username)
		assert.Equal(t, "pw", cfg.Neo4j.Password)
		assert.Equal(t, "", cfg.EffectiveDatabase())
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		_, err := loader.Load(filepath.Join(root, "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid result is rejected", func(t *testing.T) {
		bad := filepath.Join(root, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("log_level: shout\n"), 0644))

		_, err := loader.Load(bad)
		assert.Error(t, err)
	})
}
