package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/estatebot/core/bootstrap"
	coreconfig "github.com/m3rciful/estatebot/core/config"
	tg "github.com/m3rciful/estatebot/core/telegram"
	"github.com/m3rciful/estatebot/core/telegram/state"
	"github.com/m3rciful/estatebot/internal/config"
)

type otherConfig struct{}

func (otherConfig) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), otherConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected config type")
}

func TestSessionStoreSelection(t *testing.T) {
	cfg := &config.Config{}
	cfg.Session.Backend = config.SessionMemory

	store, err := sessionStore(cfg, &bootstrap.Result{})
	require.NoError(t, err)
	assert.IsType(t, &state.MemoryStore{}, store)

	cfg.Session.Backend = config.SessionPostgres
	_, err = sessionStore(cfg, &bootstrap.Result{})
	assert.Error(t, err)

	cfg.Session.Backend = config.SessionRedis
	_, err = sessionStore(cfg, &bootstrap.Result{})
	assert.Error(t, err)
}

func TestUsernamePrefersConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Telegram.BotUsername = "yene_bot"
	a := &App{cfg: cfg}
	assert.Equal(t, "yene_bot", a.username(tg.Runtime{}))

	cfg.Telegram.BotUsername = ""
	assert.Empty(t, a.username(tg.Runtime{}))
}
