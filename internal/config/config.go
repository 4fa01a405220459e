package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/estatebot/core/config"
	coredatabase "github.com/m3rciful/estatebot/core/database"
)

// Session backends.
const (
	SessionMemory   = "memory"
	SessionPostgres = "postgres"
	SessionRedis    = "redis"
)

// Notification queue backends.
const (
	QueueAuto  = "auto"
	QueueRedis = "redis"
	QueueLocal = "local"
)

// APIConfig points at the marketplace backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"API_BASE_URL"`
	LiveURL string        `yaml:"live_url" envconfig:"API_LIVE_URL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"API_TIMEOUT"`
}

// SessionConfig selects where conversation state lives.
type SessionConfig struct {
	Backend string        `yaml:"backend" envconfig:"SESSION_BACKEND"`
	TTL     time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	Prefix  string        `yaml:"prefix"`
}

// NotifyConfig names the destinations of backend notifications.
type NotifyConfig struct {
	// Channel is the public channel, e.g. "@yene_et".
	Channel     string `yaml:"channel" envconfig:"NOTIFY_CHANNEL"`
	ChannelURL  string `yaml:"channel_url" envconfig:"NOTIFY_CHANNEL_URL"`
	AdminChatID int64  `yaml:"admin_chat_id" envconfig:"ADMIN_CHAT_ID"`
	// SiteURL prefixes the public property page link.
	SiteURL     string `yaml:"site_url" envconfig:"NOTIFY_SITE_URL"`
	Queue       string `yaml:"queue" envconfig:"NOTIFY_QUEUE"`
	Concurrency int    `yaml:"concurrency"`
}

// EventsConfig configures the backend event ingress.
type EventsConfig struct {
	Listen string `yaml:"listen" envconfig:"EVENTS_LISTEN"`
	Secret string `yaml:"secret" envconfig:"EVENTS_JWT_SECRET"`
}

// BotConfig holds presentation settings.
type BotConfig struct {
	PageSize int `yaml:"page_size" envconfig:"BOT_PAGE_SIZE"`
	// MiniApp is the short name of the web app opened by profile links.
	MiniApp   string   `yaml:"mini_app" envconfig:"BOT_MINI_APP"`
	Languages []string `yaml:"languages"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config      `yaml:"database"`
	Redis    coredatabase.RedisConfig `yaml:"redis"`
	API      APIConfig                `yaml:"api"`
	Session  SessionConfig            `yaml:"session"`
	Notify   NotifyConfig             `yaml:"notify"`
	Events   EventsConfig             `yaml:"events"`
	Bot      BotConfig                `yaml:"bot"`
}

// CoreConfig exposes the embedded core section.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if _, err := url.ParseRequestURI(cfg.API.BaseURL); err != nil {
		return fmt.Errorf("invalid api.base_url: %w", err)
	}
	cfg.API.LiveURL = strings.TrimRight(strings.TrimSpace(cfg.API.LiveURL), "/")

	b := strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	if b == "" {
		switch {
		case cfg.Database.Enabled():
			b = SessionPostgres
		case cfg.Redis.Enabled():
			b = SessionRedis
		default:
			return fmt.Errorf("session.backend: configure database or redis, or set 'memory' explicitly")
		}
	}
	switch b {
	case SessionMemory:
		cfg.Session.Backend = b
	case SessionPostgres:
		if !cfg.Database.Enabled() {
			return fmt.Errorf("session.backend 'postgres' requires database.host and database.name")
		}
		cfg.Session.Backend = b
	case SessionRedis:
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("session.backend 'redis' requires redis.addr")
		}
		cfg.Session.Backend = b
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, postgres, redis", cfg.Session.Backend)
	}
	if cfg.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must be >= 0")
	}

	switch q := strings.ToLower(strings.TrimSpace(cfg.Notify.Queue)); q {
	case "", QueueAuto:
		cfg.Notify.Queue = QueueLocal
		if cfg.Redis.Enabled() {
			cfg.Notify.Queue = QueueRedis
		}
	case QueueRedis:
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("notify.queue 'redis' requires redis.addr")
		}
		cfg.Notify.Queue = q
	case QueueLocal:
		cfg.Notify.Queue = q
	default:
		return fmt.Errorf("invalid notify.queue %q; allowed: auto, redis, local", cfg.Notify.Queue)
	}
	if cfg.Notify.Concurrency <= 0 {
		cfg.Notify.Concurrency = 4
	}
	cfg.Notify.SiteURL = strings.TrimRight(strings.TrimSpace(cfg.Notify.SiteURL), "/")
	if ch := strings.TrimSpace(cfg.Notify.Channel); ch != "" && cfg.Notify.ChannelURL == "" && strings.HasPrefix(ch, "@") {
		cfg.Notify.ChannelURL = "https://t.me/" + strings.TrimPrefix(ch, "@")
	}

	if cfg.Events.Listen != "" && strings.TrimSpace(cfg.Events.Secret) == "" {
		return fmt.Errorf("events.secret is required when events.listen is set")
	}

	if cfg.Bot.PageSize <= 0 {
		cfg.Bot.PageSize = 2
	}
	if cfg.Bot.MiniApp == "" {
		cfg.Bot.MiniApp = "state"
	}
	if len(cfg.Bot.Languages) == 0 {
		cfg.Bot.Languages = []string{"Amharic", "English"}
	}
	return nil
}
