package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("STORE_URL", "postgres://worklog:secret@db:5432/worklog")
	t.Setenv("PUBLIC_API_KEY", "anon")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("DEADLINE_WINDOW", "48h")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://worklog:secret@db:5432/worklog", cfg.Database.URL)
	assert.Equal(t, "anon", cfg.Auth.PublicAPIKey)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 24, cfg.Auth.JWTExpiryHours)
	assert.Equal(t, 48*time.Hour, cfg.Scheduler.DeadlineWindow)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.DeadlineCheckInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  mode: production
database:
  host: db.internal
  name: worklog
auth:
  jwt_secret: from-file
  public_api_key: file-key
`)
	t.Setenv("STORE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PUBLIC_API_KEY", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "file-key", cfg.Auth.PublicAPIKey)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8000\n")
	t.Setenv("STORE_URL", "postgres://localhost/worklog")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("DB_PORT", "not-a-number")

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "DB_PORT")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{URL: "postgres://localhost/worklog"},
			Auth:     AuthConfig{JWTSecret: "s", JWTExpiryHours: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "discrete database settings", mutate: func(c *Config) {
			c.Database = DatabaseConfig{Host: "localhost", Name: "worklog"}
		}},
		{name: "no store", mutate: func(c *Config) { c.Database = DatabaseConfig{} }, wantErr: "STORE_URL"},
		{name: "no secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "no expiry", mutate: func(c *Config) { c.Auth.JWTExpiryHours = 0 }, wantErr: "jwt_expiry_hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
