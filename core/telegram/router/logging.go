package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/estatebot/core/logger"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handleWithSummary runs fn and writes one handler.handled line for it.
func handleWithSummary(c tele.Context, handlerName string, fn tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, handlerName)
	err := fn(c)

	msgs, kb := middleware.GetCounters(c)
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	attrs := []slog.Attr{
		slog.String("event", "handler.handled"),
		slog.String("status", outcome),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "", append(attrs, extras...)...)
	return err
}

func normalizeHandlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// deriveErrorCode prefers an error's Code() and falls back to its type name.
func deriveErrorCode(err error) string {
	var coder interface{ Code() string }
	if errors.As(err, &coder) {
		if code := strings.TrimSpace(coder.Code()); code != "" {
			return strings.ToUpper(code)
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
