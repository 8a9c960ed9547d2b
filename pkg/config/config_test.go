package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DB_DRIVER", "BLOB_BACKEND", "PURGE_ENABLED",
		"PURGE_INTERVAL_MINUTES", "PURGE_CONCURRENCY", "GITHUB_CACHE_TTL", "API_TOKEN",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, BackendFile, cfg.Database.Driver)
	assert.Equal(t, BackendFile, cfg.Blob.Backend)
	assert.True(t, cfg.Purge.Enabled)
	assert.Equal(t, time.Hour, cfg.Purge.Interval)
	assert.Equal(t, 8, cfg.Purge.Concurrency)
	assert.Equal(t, time.Hour, cfg.GitHub.CacheTTL)
	assert.Empty(t, cfg.Auth.APIToken)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite3")
	t.Setenv("DB_PATH", "/tmp/hub.db")
	t.Setenv("BLOB_BACKEND", "file")
	t.Setenv("PURGE_ENABLED", "false")
	t.Setenv("PURGE_INTERVAL_MINUTES", "15")
	t.Setenv("PURGE_CONCURRENCY", "not-a-number")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/hub.db", cfg.Database.Path)
	assert.False(t, cfg.Purge.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Purge.Interval)
	assert.Equal(t, 8, cfg.Purge.Concurrency, "invalid ints fall back to the default")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: BackendFile},
			Blob:     BlobConfig{Backend: BackendFile},
			Purge:    PurgeConfig{Interval: time.Minute, Concurrency: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "file backends", mutate: func(*Config) {}},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Database.Driver = BackendPostgres },
			wantErr: "DATABASE_URL",
		},
		{
			name: "postgres with url",
			mutate: func(c *Config) {
				c.Database.Driver = BackendPostgres
				c.Database.URL = "postgres://localhost/storyhub"
			},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "redis" },
			wantErr: "unsupported DB_DRIVER",
		},
		{
			name:    "s3 without credentials",
			mutate:  func(c *Config) { c.Blob.Backend = BackendS3 },
			wantErr: "S3_ENDPOINT",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Purge.Concurrency = 0 },
			wantErr: "PURGE_CONCURRENCY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
