package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
  cors_origins: ["https://app.example.com"]
database:
  driver: postgres
  dsn: postgres://localhost/accounts
cache:
  backend: ttlcache
  ttl: 1h
search:
  backend: mongo
  mongo:
    database: people
bootstrap:
  seed_sample_data: false
`), 0o644))

	t.Setenv("ACCOUNTS_DATABASE_DSN", "postgres://db/accounts?sslmode=disable")
	t.Setenv("ACCOUNTS_AUTH_BCRYPT_COST", "12")
	t.Setenv("ACCOUNTS_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://db/accounts?sslmode=disable", cfg.Database.DSN, "environment wins over the file")
	assert.Equal(t, "ttlcache", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, SearchMongo, cfg.Search.Backend)
	assert.Equal(t, "people", cfg.Search.Mongo.Database)
	assert.Equal(t, "account_documents", cfg.Search.Mongo.Collection, "unset nested keys keep defaults")
	assert.False(t, cfg.Bootstrap.SeedSampleData)
	assert.True(t, cfg.Bootstrap.Enabled)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ACCOUNTS_SEARCH_BACKEND", "elastic")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "database"},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "redis" }, "cache"},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, "cache"},
		{"bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 40 }, "auth"},
		{"admin password required when enabled", func(c *Config) { c.Bootstrap.AdminPassword = "" }, "bootstrap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	cfg := Default()
	cfg.Bootstrap.Enabled = false
	cfg.Bootstrap.AdminPassword = ""
	assert.NoError(t, cfg.Validate(), "passwords are optional when bootstrap is disabled")
}
