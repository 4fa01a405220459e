package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/estatebot/core/logger"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware turns a handler panic into a logged error.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				var uid int64
				if u := c.Sender(); u != nil {
					uid = u.ID
				}
				logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelError, "",
					slog.String("event", "tg.panic"),
					slog.Int64("user_id", uid),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return next(c)
	}
}
