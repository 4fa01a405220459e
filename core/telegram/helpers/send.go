package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/estatebot/core/logger"
	"github.com/m3rciful/estatebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
// With no dispatcher the helpers send synchronously.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}
	ctx := BuildContext(c)
	var shard int64
	if chat := c.Chat(); chat != nil {
		shard = chat.ID
	}
	err := disp.Enqueue(ctx, shard, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

func sendOpts(mode tele.ParseMode, markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: mode}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendText sends plain text to the current chat.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := sendOpts(tele.ModeDefault, markup)
	return sendAsync(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// SendMD sends a legacy Markdown message to the current chat.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := sendOpts(tele.ModeMarkdown, markup)
	return sendAsync(c, "send.md", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// SendMDV2 sends a MarkdownV2 message to the current chat.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := sendOpts(tele.ModeMarkdownV2, markup)
	return sendAsync(c, "send.mdv2", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// EditOrSendMDV2 edits the callback's message or sends a new one.
func EditOrSendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.EditOrSend(text, sendOpts(tele.ModeMarkdownV2, markup))
}

// EditOrSendText edits the callback's message or sends a new plain one.
func EditOrSendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.EditOrSend(text, sendOpts(tele.ModeDefault, markup))
}
