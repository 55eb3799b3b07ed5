package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/bugjar/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "default", cfg.Session)
	assert.Equal(t, config.TransportSocket, cfg.Transport.Kind)
	assert.Equal(t, config.StoreFile, cfg.Store.Kind)
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "bugjar.yaml", `
session: api
log_level: debug
transport:
  kind: redis
  bootstrap_timeout: 2s
  redis:
    address: redis:6379
    db: 3
store:
  kind: sqlite
  path: /tmp/bugjar.db
lock:
  enabled: true
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.Session)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.TransportRedis, cfg.Transport.Kind)
	assert.Equal(t, 2*time.Second, cfg.Transport.BootstrapTimeout)
	assert.Equal(t, "redis:6379", cfg.Transport.Redis.Address)
	assert.Equal(t, 3, cfg.Transport.Redis.DB)
	assert.Equal(t, "bugjar:", cfg.Transport.Redis.Prefix, "unset keys keep their default")
	assert.Equal(t, config.StoreSQLite, cfg.Store.Kind)
	assert.True(t, cfg.Lock.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Lock.TTL)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_JSON(t *testing.T) {
	path := writeConfig(t, "bugjar.json", `{"session": "j", "store": {"kind": "memory"}}`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "j", cfg.Session)
	assert.Equal(t, config.StoreMemory, cfg.Store.Kind)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "bugjar.yaml", "session: [unterminated")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty session", func(c *config.Config) { c.Session = "" }},
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }},
		{"unknown transport", func(c *config.Config) { c.Transport.Kind = "carrier-pigeon" }},
		{"socket without address", func(c *config.Config) { c.Transport.Address = "" }},
		{"redis without address", func(c *config.Config) {
			c.Transport.Kind = config.TransportRedis
			c.Transport.Redis.Address = ""
		}},
		{"zero bootstrap timeout", func(c *config.Config) { c.Transport.BootstrapTimeout = 0 }},
		{"unknown store", func(c *config.Config) { c.Store.Kind = "tape" }},
		{"file store without path", func(c *config.Config) { c.Store.Path = "" }},
		{"bad file format", func(c *config.Config) { c.Store.Format = "xml" }},
		{"lock without ttl", func(c *config.Config) {
			c.Lock.Enabled = true
			c.Lock.TTL = 0
		}},
		{"port out of range", func(c *config.Config) { c.HTTP.Port = 70000 }},
		{"debuggee args without command", func(c *config.Config) { c.Debuggee.Args = []string{"app.py"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "bugjar.yaml", "store:\n  kind: tape\n")
	_, err := config.Load(path)
	assert.ErrorContains(t, err, "unknown store kind")
}

func TestLoad_Debuggee(t *testing.T) {
	path := writeConfig(t, "bugjar.yaml", `
debuggee:
  command: python3
  args: ["-m", "bugjar_agent", "app.py"]
  env:
    PYTHONUNBUFFERED: "1"
  dir: ./examples
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debuggee.Enabled())
	assert.Equal(t, "python3", cfg.Debuggee.Command)
	assert.Equal(t, []string{"-m", "bugjar_agent", "app.py"}, cfg.Debuggee.Args)
	assert.Equal(t, map[string]string{"PYTHONUNBUFFERED": "1"}, cfg.Debuggee.Env)
	assert.Equal(t, "./examples", cfg.Debuggee.Dir)
}
