package datasource

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv unsets every variable LoadConfig reads so the host
// environment cannot leak into a test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OWM_API_KEY", "OWM_BASE_URL", "OWM_ICON_BASE_URL", "OWM_LANG", "OWM_UNITS", "OWM_BREAKER_MAX_FAILURES",
		"HTTP_PORT", "HTTP_SEARCH_RATE", "HTTP_SEARCH_BURST",
		"SESSION_IDLE_TTL", "SESSION_PRUNE_SCHEDULE",
		"QUERY_TIMEOUT", "QUERY_MAX_CITY_CHARS",
		"DISPLAY_TIMEZONE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	// godotenv reads .env from the working directory
	t.Chdir(t.TempDir())
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OWM_API_KEY", "env-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.OpenWeatherMap.APIKey)
	assert.Equal(t, "pt_br", cfg.OpenWeatherMap.Lang)
	assert.Equal(t, "metric", cfg.OpenWeatherMap.Units)
	assert.Equal(t, "https://openweathermap.org/img/wn", cfg.OpenWeatherMap.IconBaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Query.Timeout)
}

func TestLoadConfig_IgnoresUnrelatedVariables(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OWM_API_KEY", "env-key")
	t.Setenv("LANG", "C.UTF-8")
	t.Setenv("PORT", "3000")
	t.Setenv("TIMEOUT", "1s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "pt_br", cfg.OpenWeatherMap.Lang)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Query.Timeout)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, `
openWeatherMap:
  apiKey: file-key
  lang: en
  units: imperial
server:
  port: 9090
query:
  timeout: 3s
displayTimezone: America/Sao_Paulo
`)
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("OWM_UNITS", "standard")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.OpenWeatherMap.APIKey)
	assert.Equal(t, "en", cfg.OpenWeatherMap.Lang)
	assert.Equal(t, "standard", cfg.OpenWeatherMap.Units, "environment wins over file")
	assert.Equal(t, 7070, cfg.Server.Port, "environment wins over file")
	assert.Equal(t, 3*time.Second, cfg.Query.Timeout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", loc.String())
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing api key", env: map[string]string{}},
		{name: "bad units", env: map[string]string{"OWM_API_KEY": "k", "OWM_UNITS": "kelvin"}},
		{name: "insecure icon base", env: map[string]string{"OWM_API_KEY": "k", "OWM_ICON_BASE_URL": "http://openweathermap.org/img/wn"}},
		{name: "bad timezone", env: map[string]string{"OWM_API_KEY": "k", "DISPLAY_TIMEZONE": "Mars/Olympus"}},
		{name: "bad port", env: map[string]string{"OWM_API_KEY": "k", "HTTP_PORT": "70000"}},
		{name: "bad log level", env: map[string]string{"OWM_API_KEY": "k", "LOG_LEVEL": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig("")
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "validation", cfgErr.Stage)
		})
	}
}

func TestLoadConfig_BadFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, "openWeatherMap: [unterminated")

	_, err := LoadConfig(path)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "parse", cfgErr.Stage)
}

func TestLoadConfig_BadEnvValue(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OWM_API_KEY", "k")
	t.Setenv("QUERY_TIMEOUT", "soon")

	_, err := LoadConfig("")
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "env", cfgErr.Stage)
}
