package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/estatebot/core/logger"
	"github.com/m3rciful/estatebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware assigns the update's rid, stores the logging context and
// writes a sampled update.received debug line. Applying it twice is harmless.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if rid, _ := c.Get("rid").(string); rid != "" {
			return next(c)
		}
		upd := c.Update()
		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		user := c.Sender()
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), upd.ID, userID, chatID)
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{slog.String("event", "update.received")}
			if user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.Parse(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 64)),
					slog.String("payload", logger.SanitizeLimit(payload, 128)),
				)
			case upd.Message != nil:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 128)))
			}
			logger.TG.LogAttrs(ctx, slog.LevelDebug, "", attrs...)
		}
		return next(c)
	}
}
