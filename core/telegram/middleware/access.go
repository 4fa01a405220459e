package middleware

import (
	"log/slog"

	"github.com/m3rciful/estatebot/core/logger"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions configures the admin allow-list check.
type AdminOptions struct {
	IsAdmin  func(userID int64) bool
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only allow-listed senders reach next. Everyone
// else gets OnReject and nothing downstream runs. A nil IsAdmin denies all.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && opts.IsAdmin != nil && opts.IsAdmin(user.ID) {
				return next(c)
			}
			var uid int64
			if user != nil {
				uid = user.ID
			}
			logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelWarn, "",
				slog.String("event", "tg.admin_denied"),
				slog.Int64("user_id", uid),
				slog.String("outcome", "denied"),
			)
			if c.Callback() != nil {
				_ = c.Respond()
			}
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
