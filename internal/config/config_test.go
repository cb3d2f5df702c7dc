package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:18789/v1/responses", cfg.Backend.URL)
	assert.Equal(t, "openclaw", cfg.Backend.Model)
	assert.Equal(t, 120, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, "127.0.0.1", cfg.Control.Bind)
	assert.Equal(t, 0, cfg.Control.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.ConsoleStyle)
	assert.True(t, cfg.Store.StoreEnabled())
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
napcat:
  url: ws://localhost:3001
  botQQ: "100"
  allowedGroups: ["42", "43"]
backend:
  url: http://backend:8080/v1/responses
  model: custom-model
control:
  port: 18790
store:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:3001", cfg.NapCat.URL)
	assert.Equal(t, "100", cfg.NapCat.BotQQ)
	assert.Equal(t, []string{"42", "43"}, cfg.NapCat.AllowedGroups)
	assert.Equal(t, "http://backend:8080/v1/responses", cfg.Backend.URL)
	assert.Equal(t, "custom-model", cfg.Backend.Model)
	assert.Equal(t, 18790, cfg.Control.Port)
	assert.False(t, cfg.Store.StoreEnabled())

	// Unset sections still receive defaults.
	assert.Equal(t, 120, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "napcat: [broken")

	_, err := Load(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_ExpandsTokenEnvRefs(t *testing.T) {
	t.Setenv("TEST_NAPCAT_SECRET", "tok-abc")
	path := writeConfig(t, `
napcat:
  url: ws://localhost:3001
  token: ${TEST_NAPCAT_SECRET}
backend:
  token: ${TEST_UNSET_VARIABLE}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tok-abc", cfg.NapCat.Token)
	assert.Equal(t, "${TEST_UNSET_VARIABLE}", cfg.Backend.Token)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NAPCAT_WS", "ws://override:3001")
	t.Setenv("NAPCAT_TOKEN", "env-token")
	t.Setenv("BOT_QQ", "555")
	t.Setenv("QQBRIDGE_CONTROL_PORT", "9000")
	t.Setenv("QQBRIDGE_LOG_LEVEL", "DEBUG")

	path := writeConfig(t, `
napcat:
  url: ws://file:3001
control:
  port: 18790
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://override:3001", cfg.NapCat.URL)
	assert.Equal(t, "env-token", cfg.NapCat.Token)
	assert.Equal(t, "555", cfg.NapCat.BotQQ)
	assert.Equal(t, 9000, cfg.Control.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_BackendTokenFallsBackToEnv(t *testing.T) {
	t.Setenv("OPENCLAW_TOKEN", "fallback-token")

	path := writeConfig(t, "napcat:\n  url: ws://localhost:3001\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fallback-token", cfg.Backend.Token)

	path = writeConfig(t, `
napcat:
  url: ws://localhost:3001
backend:
  token: explicit-token
`)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "explicit-token", cfg.Backend.Token)
}

func TestValidate_OK(t *testing.T) {
	cfg := Defaults()
	cfg.NapCat.URL = "ws://localhost:3001"

	assert.Empty(t, Validate(&cfg))
}

func TestValidate_Issues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"missing gateway url", func(c *Config) { c.NapCat.URL = "" }, "napcat.url"},
		{"http gateway url", func(c *Config) { c.NapCat.URL = "http://host:3001" }, "napcat.url"},
		{"groups without botQQ", func(c *Config) { c.NapCat.AllowedGroups = []string{"42"} }, "napcat.botQQ"},
		{"missing backend url", func(c *Config) { c.Backend.URL = "" }, "backend.url"},
		{"negative timeout", func(c *Config) { c.Backend.TimeoutSeconds = -1 }, "backend.timeoutSeconds"},
		{"port out of range", func(c *Config) { c.Control.Port = 70000 }, "control.port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad console style", func(c *Config) { c.Logging.ConsoleStyle = "fancy" }, "logging.consoleStyle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.NapCat.URL = "ws://localhost:3001"
			tt.mutate(&cfg)

			issues := Validate(&cfg)
			require.NotEmpty(t, issues)

			var paths []string
			for _, issue := range issues {
				paths = append(paths, issue.Path)
			}
			assert.Contains(t, paths, tt.path)
		})
	}
}

func TestResolvePaths_HomeOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv("QQBRIDGE_HOME", base)

	p, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, base, p.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), p.Config)
	assert.Equal(t, filepath.Join(base, "sessions"), p.Sessions)

	require.NoError(t, p.EnsureDirs())
	assert.DirExists(t, p.Data)
	assert.DirExists(t, p.Logs)
}
