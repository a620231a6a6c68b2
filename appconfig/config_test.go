package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0:3030", cfg.Addr())
	assert.Equal(t, "configs/rules", cfg.Game.RulesDir)
	assert.Equal(t, "clickbattler", cfg.NATS.SubjectPrefix)
	assert.Empty(t, cfg.NATS.URL)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
server:
  port: 9090
  shutdown_timeout: 3s
game:
  ruleset: fast
log:
  level: debug
  format: json
nats:
  url: nats://localhost:4222
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset fields keep defaults")
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "fast", cfg.Game.Ruleset)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not, a, map"), 0644))
	_, err = Load(path)
	assert.Error(t, err)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"HOST":             "127.0.0.1",
		"PORT":             "8081",
		"CONFIG_DIR":       "/etc/click/rules",
		"LOG_LEVEL":        "warn",
		"NATS_URL":         "nats://nats:4222",
		"NGROK_ENABLED":    "1",
		"NGROK_AUTH_TOKEN": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8081", cfg.Addr())
	assert.Equal(t, "/etc/click/rules", cfg.Game.RulesDir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	assert.True(t, cfg.Ngrok.Enabled)
	assert.Equal(t, "secret", cfg.Ngrok.AuthToken)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_PrefersFirstKey(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
		"RULES_DIR":  "a",
		"CONFIG_DIR": "b",
	})))
	assert.Equal(t, "a", cfg.Game.RulesDir)
}

func TestApplyEnv_BadPort(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{"PORT": "eighty"}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"zero queue", func(c *Config) { c.Game.QueueSize = 0 }},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }},
		{"unknown level", func(c *Config) { c.Log.Level = "verbose" }},
		{"ngrok without token", func(c *Config) { c.Ngrok.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
