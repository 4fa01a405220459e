package router

import (
	"log/slog"

	tg "github.com/m3rciful/estatebot/core/telegram"
	"github.com/m3rciful/estatebot/core/telegram/callbacks"
	"github.com/m3rciful/estatebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions configures CallbackRoute.
type CallbackOptions struct {
	// Wrap is applied outermost, e.g. a per-chat lock.
	Wrap tele.MiddlewareFunc
}

// CallbackRoute returns the OnCallback route. The registry's decoder runs
// once here; handlers read its value through callbacks.Decoded. Unknown
// keys and decode failures go to the registry's not-found handler.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	var h tele.HandlerFunc = func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, payload := callbacks.Parse(cb)
		route := key
		extras := []slog.Attr{slog.String("cb_key", key)}

		if decode := reg.CallbackDecoder(); decode != nil {
			r, value, err := decode(key, payload)
			if err != nil {
				extras = append(extras, slog.String("reason", "decode"), slog.String("err", err.Error()))
				return handleWithSummary(c, "callback.not_found", reg.CallbackNotFound(), extras...)
			}
			route = r
			callbacks.Store(c, value)
		}

		handler, ok := reg.GetCallback(route)
		if !ok {
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, "callback.not_found", reg.CallbackNotFound(), extras...)
		}
		return handleWithSummary(c, "callback."+normalizeHandlerName(route), func(c tele.Context) error {
			err := handler(c)
			_ = c.Respond()
			return err
		}, extras...)
	}
	if opts.Wrap != nil {
		h = opts.Wrap(h)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
	}
}
