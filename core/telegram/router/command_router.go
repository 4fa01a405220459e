package router

import (
	"log/slog"

	"github.com/m3rciful/estatebot/core/logger"
	tg "github.com/m3rciful/estatebot/core/telegram"
	"github.com/m3rciful/estatebot/core/telegram/commands"
	"github.com/m3rciful/estatebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped.
type CommandRouteOptions struct {
	Admin middleware.AdminOptions
	// FlowGuard, when set, wraps every command that does not interrupt flows.
	FlowGuard tele.MiddlewareFunc
	// Wrap is applied outermost to every command, e.g. a per-chat lock.
	Wrap tele.MiddlewareFunc
}

// CommandRoutes returns one route per command and alias.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, def := range cmds {
		h := wrapCommand(name, def, opts)
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}
	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func wrapCommand(name string, def commands.Command, opts CommandRouteOptions) tele.HandlerFunc {
	h := wrapCommandInner(name, def, opts)
	if opts.Wrap != nil {
		h = opts.Wrap(h)
	}
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

// wrapCommandInner builds the admin, flow-guard and summary chain without the
// outer lock, so the text router can reuse it while already holding it.
func wrapCommandInner(name string, def commands.Command, opts CommandRouteOptions) tele.HandlerFunc {
	handlerName := normalizeHandlerName(name)
	h := def.Handler
	if def.AdminOnly {
		h = middleware.AdminOnlyMiddleware(opts.Admin)(h)
	}
	if opts.FlowGuard != nil && !def.InterruptsFlow {
		h = opts.FlowGuard(h)
	}
	inner := h
	return func(c tele.Context) error {
		return handleWithSummary(c, handlerName, inner)
	}
}
