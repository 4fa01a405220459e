package router

import (
	"strings"

	tg "github.com/m3rciful/estatebot/core/telegram"
	"github.com/m3rciful/estatebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the part of the conversation engine the text router needs.
type FSM interface {
	InProgress(c tele.Context) bool
	Dispatch(c tele.Context) error
}

// TextOptions configures TextRoutes.
type TextOptions struct {
	Commands CommandRouteOptions
	// UnknownCommand receives "/something" that matches no registered command.
	UnknownCommand tele.HandlerFunc
}

// TextRoutes builds the OnText route. Order: registered command (telebot
// misses aliases and commands addressed by text), any other "/..." text,
// running flow, text fallback. Flow states never see slash-prefixed input.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	var h tele.HandlerFunc = func(c tele.Context) error {
		text := strings.TrimSpace(c.Text())
		if reg != nil {
			if name, def, ok := reg.LookupCommand(text); ok {
				return wrapCommandInner(name, def, opts.Commands)(c)
			}
		}
		if strings.HasPrefix(text, "/") {
			if opts.UnknownCommand != nil {
				return handleWithSummary(c, "unknown_command", opts.UnknownCommand)
			}
			return nil
		}
		if fsm != nil && fsm.InProgress(c) {
			return handleWithSummary(c, "fsm", fsm.Dispatch)
		}
		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", fb)
			}
		}
		return nil
	}
	if opts.Commands.Wrap != nil {
		h = opts.Commands.Wrap(h)
	}
	return []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
	}}
}
