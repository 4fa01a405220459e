// Package app wires configuration, infrastructure, the bot and the
// notification pipeline into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/estatebot/core/bootstrap"
	corecmd "github.com/m3rciful/estatebot/core/cmd"
	"github.com/m3rciful/estatebot/core/logger"
	tg "github.com/m3rciful/estatebot/core/telegram"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/state"
	"github.com/m3rciful/estatebot/internal/api"
	"github.com/m3rciful/estatebot/internal/bot"
	"github.com/m3rciful/estatebot/internal/config"
	"github.com/m3rciful/estatebot/internal/notify"

	tele "gopkg.in/telebot.v4"
)

// App owns every long-lived component.
type App struct {
	cfg   *config.Config
	infra *bootstrap.Result
	api   *api.Client
	fsm   *state.Machine
	reg   *tg.Registry

	queue  notify.Queue
	events *notify.Server
}

// LoadConfig adapts config.Load to the runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap connects infrastructure and builds the session machine and API client.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	opts := bootstrap.Options{Config: cfg.CoreConfig(), Redis: cfg.Redis}
	if cfg.Session.Backend == config.SessionPostgres {
		opts.Database = cfg.Database
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	store, err := sessionStore(cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	logger.FSM.Info("session store ready",
		slog.String("event", "fsm.store"),
		slog.String("backend", cfg.Session.Backend),
		slog.Duration("ttl", cfg.Session.TTL),
	)

	return &App{
		cfg:   cfg,
		infra: infra,
		api: api.New(api.Options{
			BaseURL: cfg.API.BaseURL,
			LiveURL: cfg.API.LiveURL,
			Timeout: cfg.API.Timeout,
		}),
		fsm: state.NewMachine(store, state.Options{TTL: cfg.Session.TTL}),
		reg: tg.NewRegistry(),
	}, nil
}

func sessionStore(cfg *config.Config, infra *bootstrap.Result) (state.Store, error) {
	switch cfg.Session.Backend {
	case config.SessionPostgres:
		if infra.DB == nil {
			return nil, errors.New("app: postgres session store without database")
		}
		return state.NewPostgresStore(infra.DB), nil
	case config.SessionRedis:
		if infra.Redis == nil {
			return nil, errors.New("app: redis session store without redis")
		}
		return state.NewRedisStore(infra.Redis, cfg.Session.Prefix, cfg.Session.TTL), nil
	default:
		return state.NewMemoryStore(), nil
	}
}

// TelegramRunOptions describes how the runtime should run the bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	return tg.RunOptions{
		Config:   core,
		Registry: a.reg,
		Middlewares: tg.DefaultMiddlewares(core, func(c tele.Context) error {
			return tghelpers.SendText(c, "Too many requests. Please slow down.")
		}),
		Routes:  a.routes,
		OnStart: a.start,
		OnStop:  a.stop,
	}, nil
}

func (a *App) username(rt tg.Runtime) string {
	if a.cfg.Telegram.BotUsername != "" {
		return a.cfg.Telegram.BotUsername
	}
	if rt.Bot != nil && rt.Bot.Me != nil {
		return rt.Bot.Me.Username
	}
	return ""
}

func (a *App) routes(rt tg.Runtime) []tg.Route {
	b := bot.New(bot.Options{
		API:         a.api,
		FSM:         a.fsm,
		Messenger:   rt.Bot,
		AdminIDs:    a.cfg.Telegram.AdminIDs,
		BotUsername: a.username(rt),
		MiniApp:     a.cfg.Bot.MiniApp,
		PageSize:    a.cfg.Bot.PageSize,
		Languages:   a.cfg.Bot.Languages,
	})
	if err := b.Register(a.reg); err != nil {
		logger.TWire.Error("register failed",
			slog.String("event", "tg.wire"),
			slog.String("err", err.Error()),
		)
		return nil
	}
	return b.Routes(a.reg, a.fsm.Serialize())
}

// start brings up the notification queue and, when configured, the event ingress.
func (a *App) start(_ context.Context, rt tg.Runtime) error {
	n := notify.NewNotifier(notify.Options{
		Sender:      rt.Bot,
		BotUsername: a.username(rt),
		Channel:     a.cfg.Notify.Channel,
		ChannelURL:  a.cfg.Notify.ChannelURL,
		AdminChatID: a.cfg.Notify.AdminChatID,
		SiteURL:     a.cfg.Notify.SiteURL,
	})
	if a.cfg.Notify.Queue == config.QueueRedis && a.infra.Redis != nil {
		a.queue = notify.NewAsynqQueue(a.infra.Redis, n, a.cfg.Notify.Concurrency)
	} else {
		a.queue = notify.NewLocalQueue(n, a.cfg.Notify.Concurrency)
	}
	if err := a.queue.Start(); err != nil {
		return fmt.Errorf("app: notify queue: %w", err)
	}
	logger.Queue.Info("notify queue started",
		slog.String("event", "queue.start"),
		slog.String("backend", a.cfg.Notify.Queue),
		slog.Int("concurrency", a.cfg.Notify.Concurrency),
	)

	if a.cfg.Events.Listen == "" {
		return nil
	}
	a.events = notify.NewServer(notify.ServerOptions{
		Addr:   a.cfg.Events.Listen,
		Secret: a.cfg.Events.Secret,
		Queue:  a.queue,
	})
	return a.events.Start()
}

func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	var errs []error
	if a.events != nil {
		errs = append(errs, a.events.Shutdown(ctx))
	}
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	return errors.Join(errs...)
}

// Close releases infrastructure connections.
func (a *App) Close() error {
	return a.infra.Close()
}
