package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cambioproxy/internal/config"
)

// isolate runs the test from an empty directory with no inherited overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"PORT", "LOG_LEVEL", "LOG_FORMAT", "CONFIG_FILE", "ALPHAVANTAGE_API_KEY", "AWESOMEAPI_TOKEN", "CAMBIO_SERVER_PORT", "CAMBIO_CACHE_REALTIME_TTL_SEC"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return dir
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := config.Load("")

	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
	require.Equal(t, 5*time.Second, cfg.Providers.RealTimeTimeout())
	require.Equal(t, 8*time.Second, cfg.Providers.HistoricalTimeout())
	require.Equal(t, time.Hour, cfg.Policy().Historical)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := isolate(t)

	// Arrange
	path := filepath.Join(dir, "cambio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
  log_format: console
cache:
  realtime_ttl_sec: 60
`), 0o600))

	// Act
	cfg, err := config.Load(path)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, 60*time.Second, cfg.Policy().RealTime)
	require.Equal(t, 3600, cfg.Cache.HistoricalTTLSec)
}

func TestLoad_ConfigJSONInWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"server":{"rate_limit_rps":0}}`), 0o600))

	cfg, err := config.Load("")

	require.NoError(t, err)
	require.Zero(t, cfg.Server.RateLimitRPS)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "cambio.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":{"port":"9090"}}`), 0o600))
	t.Setenv("PORT", "7070")
	t.Setenv("ALPHAVANTAGE_API_KEY", "demo")
	t.Setenv("CAMBIO_CACHE_REALTIME_TTL_SEC", "120")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	require.Equal(t, "7070", cfg.Server.Port)
	require.Equal(t, "demo", cfg.Providers.AlphaVantageKey)
	require.Equal(t, 120, cfg.Cache.RealTimeTTLSec)
}

func TestLoad_PrefixedNameWinsOverAlias(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "7070")
	t.Setenv("CAMBIO_SERVER_PORT", "6060")

	cfg, err := config.Load("")

	require.NoError(t, err)
	require.Equal(t, "6060", cfg.Server.Port)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AWESOMEAPI_TOKEN=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("AWESOMEAPI_TOKEN") })

	cfg, err := config.Load("")

	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.Providers.AwesomeAPIToken)
}

func TestLoad_MissingExplicitFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := config.Load(filepath.Join(dir, "absent.json"))

	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*config.Config){
		"empty port":      func(c *config.Config) { c.Server.Port = " " },
		"bad format":      func(c *config.Config) { c.Server.LogFormat = "xml" },
		"zero burst":      func(c *config.Config) { c.Server.RateLimitBurst = 0 },
		"zero cache":      func(c *config.Config) { c.Server.CacheMaxItems = 0 },
		"zero timeout":    func(c *config.Config) { c.Providers.HistoricalTimeoutSec = 0 },
		"zero ttl":        func(c *config.Config) { c.Cache.IndicatorTTLSec = 0 },
		"negative limits": func(c *config.Config) { c.Server.RateLimitRPS = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, config.Default().Validate())
}
