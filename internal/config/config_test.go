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
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  bot_username: "@yene_etbot"
  admin_ids: [1648265210, 42]
api:
  base_url: "https://backend.example/api/"
  timeout: 20s
session:
  backend: memory
notify:
  channel: "@yene_et"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, "yene_etbot", cfg.Telegram.BotUsername)
	assert.True(t, cfg.Telegram.IsAdmin(42))
	assert.False(t, cfg.Telegram.IsAdmin(7))
	assert.Equal(t, "https://backend.example/api", cfg.API.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.API.Timeout)
	assert.Equal(t, SessionMemory, cfg.Session.Backend)
	assert.Equal(t, QueueLocal, cfg.Notify.Queue)
	assert.Equal(t, "https://t.me/yene_et", cfg.Notify.ChannelURL)
	assert.Equal(t, 2, cfg.Bot.PageSize)
	assert.Equal(t, "state", cfg.Bot.MiniApp)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-yaml"
api:
  base_url: "https://backend.example/api"
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_ADMIN_IDS", "1,2")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AdminIDs)
	assert.Equal(t, QueueRedis, cfg.Notify.Queue)
	assert.Equal(t, SessionRedis, cfg.Session.Backend)
}

func TestSessionBackendDefaultsToDurableStore(t *testing.T) {
	newCfg := func() *Config {
		var c Config
		c.Telegram.Token = "t"
		c.API.BaseURL = "https://backend.example/api"
		return &c
	}

	c := newCfg()
	assert.Error(t, Normalize(c), "no durable store configured")

	c = newCfg()
	c.Database.Host = "db"
	c.Database.Name = "estatebot"
	c.Redis.Addr = "localhost:6379"
	require.NoError(t, Normalize(c))
	assert.Equal(t, SessionPostgres, c.Session.Backend)

	c = newCfg()
	c.Redis.Addr = "localhost:6379"
	require.NoError(t, Normalize(c))
	assert.Equal(t, SessionRedis, c.Session.Backend)

	c = newCfg()
	c.Session.Backend = " Memory "
	require.NoError(t, Normalize(c))
	assert.Equal(t, SessionMemory, c.Session.Backend)
}

func TestNormalizeRejects(t *testing.T) {
	base := func() *Config {
		var c Config
		c.Telegram.Token = "t"
		c.API.BaseURL = "https://backend.example/api"
		c.Session.Backend = SessionMemory
		return &c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }},
		{"postgres without database", func(c *Config) { c.Session.Backend = "postgres" }},
		{"redis sessions without redis", func(c *Config) { c.Session.Backend = "redis" }},
		{"unknown backend", func(c *Config) { c.Session.Backend = "etcd" }},
		{"no durable session store", func(c *Config) { c.Session.Backend = "" }},
		{"redis queue without redis", func(c *Config) { c.Notify.Queue = "redis" }},
		{"events without secret", func(c *Config) { c.Events.Listen = ":8090" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			assert.Error(t, Normalize(c))
		})
	}
}
