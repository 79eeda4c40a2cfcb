package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tokenbridge/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "server:\n  base_url: https://broker.example\n"))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "/dashboard", cfg.Server.DashboardURL)
	require.Equal(t, "/auth/error", cfg.Server.ErrorURL)
	require.Equal(t, "postgres", cfg.Storage.Driver)
	require.Equal(t, "memory", cfg.Cache.Kind)
	require.Equal(t, "tb_session", cfg.Session.CookieName)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL())
	require.Equal(t, 10*time.Minute, cfg.StateTTL())
	require.Equal(t, "sandbox", cfg.Providers.QuickBooks.Environment)
	require.Contains(t, cfg.Providers.Google.Scopes, "https://www.googleapis.com/auth/spreadsheets")
}

func TestLoad_RedirectURLsDerivedFromBaseURL(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
server:
  base_url: https://broker.example/
providers:
  google:
    enabled: true
  quickbooks:
    enabled: true
    redirect_url: https://custom.example/qb/cb
`))
	require.NoError(t, err)

	require.Equal(t, "https://broker.example/auth/google/callback", cfg.Providers.Google.RedirectURL)
	// Explícito gana sobre el derivado
	require.Equal(t, "https://custom.example/qb/cb", cfg.Providers.QuickBooks.RedirectURL)
	// Deshabilitado: no se deriva nada
	require.Empty(t, cfg.Providers.Facebook.RedirectURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STATE_SECRET", "env-secret")
	t.Setenv("ADMIN_API_KEY", "env-key")
	t.Setenv("QB_ENVIRONMENT", "production")
	t.Setenv("FLAG_MIGRATE", "true")

	cfg, err := config.Load(writeConfig(t, `
state:
  secret: yaml-secret
admin:
  api_key: yaml-key
`))
	require.NoError(t, err)

	require.Equal(t, "env-secret", cfg.State.Secret)
	require.Equal(t, "env-key", cfg.Admin.APIKey)
	require.Equal(t, "production", cfg.Providers.QuickBooks.Environment)
	require.True(t, cfg.Flags.Migrate)
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := config.Load(writeConfig(t, "session:\n  ttl: not-a-duration\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
