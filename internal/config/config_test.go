package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 18650, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider.Model)
	assert.Equal(t, 50, cfg.Chat.HistoryLimit)
	assert.Equal(t, 20, cfg.Chat.RateLimitPerMinute)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
provider:
  model: gpt-4o
chat:
  historyLimit: 10
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
	assert.Equal(t, 10, cfg.Chat.HistoryLimit)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TASKDECK_PORT", "7777")
	t.Setenv("TASKDECK_JWT_SECRET", "from-env")
	t.Setenv("TASKDECK_OPENAI_MODEL", "gpt-5")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "gpt-5", cfg.Provider.Model)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MY_SECRET", "hunter2")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  jwtSecret: ${MY_SECRET}
provider:
  apiKey: ${UNSET_VAR_XYZ}
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Auth.JWTSecret)
	assert.Equal(t, "${UNSET_VAR_XYZ}", cfg.Provider.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)
	cfg.Auth.JWTSecret = "s"
	assert.Empty(t, Validate(&cfg))

	cfg.Server.Port = 99999
	cfg.Server.Bind = "everywhere"
	cfg.Auth.JWTSecret = ""
	issues := Validate(&cfg)
	require.Len(t, issues, 3)
	assert.Equal(t, "server.port", issues[0].Path)
	assert.Equal(t, "server.bind", issues[1].Path)
	assert.Equal(t, "auth.jwtSecret", issues[2].Path)
}

func TestConfigPathHelpers(t *testing.T) {
	_, err := ParseConfigPath("server..port")
	assert.Error(t, err)
	_, err = ParseConfigPath("__proto__.x")
	assert.Error(t, err)

	parts, err := ParseConfigPath("server.port")
	require.NoError(t, err)

	root := map[string]any{}
	SetValueAtPath(root, parts, 8080)
	got, ok := GetValueAtPath(root, parts)
	require.True(t, ok)
	assert.Equal(t, 8080, got)

	assert.False(t, UnsetValueAtPath(root, []string{"server", "bind"}))
	assert.True(t, UnsetValueAtPath(root, parts))
	_, ok = GetValueAtPath(root, parts)
	assert.False(t, ok)
}
