package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/estatebot/core/logger"
	"github.com/m3rciful/estatebot/core/telegram/keyboard"
	"github.com/m3rciful/estatebot/internal/api"
	"github.com/m3rciful/estatebot/internal/bot/action"

	tele "gopkg.in/telebot.v4"
)

// Sender delivers one message. *tele.Bot satisfies it.
type Sender interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Options configures a Notifier.
type Options struct {
	Sender Sender
	// BotUsername builds the "Request Tour" deep link.
	BotUsername string
	// Channel is the public channel username, e.g. "@yene_et".
	Channel     string
	ChannelURL  string
	AdminChatID int64
	// SiteURL prefixes the "View Property" link.
	SiteURL string
}

// Notifier formats events and sends them to their destinations.
type Notifier struct {
	opts     Options
	sent     atomic.Uint64
	failures atomic.Uint64
}

// NewNotifier builds a Notifier.
func NewNotifier(opts Options) *Notifier {
	opts.BotUsername = strings.TrimPrefix(opts.BotUsername, "@")
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	return &Notifier{opts: opts}
}

// channel addresses a chat by its public username.
type channel string

func (c channel) Recipient() string { return string(c) }

// Counts returns the number of delivered and failed messages so far.
func (n *Notifier) Counts() (sent, failed uint64) {
	return n.sent.Load(), n.failures.Load()
}

// Deliver sends every message the event calls for. Only an invalid event
// is an error: each failed destination is logged and skipped.
func (n *Notifier) Deliver(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	ctx = logger.WithRID(ctx, e.ID)
	switch e.Type {
	case TypeCustomerTypeChanged:
		if !e.Customer.Upgraded() {
			n.skip(ctx, e, "not_upgraded")
			return nil
		}
		n.sendTo(ctx, e, "customer", e.Customer.TelegramID, upgradeText(e.Customer))
	case TypeCustomerVerified:
		if !e.Customer.IsVerified {
			n.skip(ctx, e, "not_verified")
			return nil
		}
		n.sendTo(ctx, e, "customer", e.Customer.TelegramID, verifiedText)
	case TypePropertyConfirmed:
		n.propertyConfirmed(ctx, e)
	case TypeTourCreated:
		if n.opts.AdminChatID == 0 {
			n.skip(ctx, e, "no_admin_chat")
			return nil
		}
		n.send(ctx, e, "admin", tele.ChatID(n.opts.AdminChatID), tourText(e.Tour, e.Property))
	}
	return nil
}

func (n *Notifier) propertyConfirmed(ctx context.Context, e Event) {
	p := e.Property
	if p.Status != "" && p.Status != api.StatusConfirmed {
		n.skip(ctx, e, "not_confirmed")
		return
	}
	owner := e.Owner
	ownerID := p.Owner
	if owner != nil && owner.TelegramID != "" {
		ownerID = owner.TelegramID
	}
	if ownerID != "" {
		n.sendTo(ctx, e, "owner", ownerID, congratsText(owner, p, n.opts.ChannelURL))
	}
	if n.opts.Channel == "" {
		n.skip(ctx, e, "no_channel")
		return
	}
	n.send(ctx, e, "channel", channel(n.opts.Channel), listingText(p, owner, e.ConfirmedCount), n.listingMarkup(p.ID))
}

// listingMarkup builds the buttons under a channel post. The favorite
// button is a callback handled by the bot itself.
func (n *Notifier) listingMarkup(propertyID int64) *tele.ReplyMarkup {
	var top []keyboard.InlineBtn
	if n.opts.BotUsername != "" {
		top = append(top, keyboard.InlineBtn{
			Text: "Request Tour",
			URL:  fmt.Sprintf("https://t.me/%s?start=request_tour_%d", n.opts.BotUsername, propertyID),
		})
	}
	top = append(top, action.Favorite(propertyID).Button("Make Favorite"))
	var bottom []keyboard.InlineBtn
	if n.opts.SiteURL != "" {
		bottom = append(bottom, keyboard.InlineBtn{
			Text: "View Property",
			URL:  fmt.Sprintf("%s/property/%d", n.opts.SiteURL, propertyID),
		})
	}
	return keyboard.InlineButtonsRows(top, bottom)
}

func (n *Notifier) sendTo(ctx context.Context, e Event, target string, id api.Flex, text string) {
	chatID, ok := id.Int64()
	if !ok {
		n.failures.Add(1)
		logger.Notify.LogAttrs(ctx, slog.LevelWarn, "",
			slog.String("event", "notify.bad_recipient"),
			slog.String("type", string(e.Type)),
			slog.String("target", target),
			slog.String("recipient", id.String()),
		)
		return
	}
	n.send(ctx, e, target, tele.ChatID(chatID), text)
}

func (n *Notifier) send(ctx context.Context, e Event, target string, to tele.Recipient, text string, markup ...*tele.ReplyMarkup) {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, DisableWebPagePreview: true}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	if _, err := n.opts.Sender.Send(to, text, opts); err != nil {
		n.failures.Add(1)
		logger.Notify.LogAttrs(ctx, slog.LevelWarn, "",
			slog.String("event", "notify.send_failed"),
			slog.String("type", string(e.Type)),
			slog.String("target", target),
			slog.String("to", to.Recipient()),
			slog.String("err", err.Error()),
		)
		return
	}
	n.sent.Add(1)
	logger.Notify.LogAttrs(ctx, slog.LevelInfo, "",
		slog.String("event", "notify.sent"),
		slog.String("type", string(e.Type)),
		slog.String("target", target),
	)
}

func (n *Notifier) skip(ctx context.Context, e Event, reason string) {
	logger.Notify.LogAttrs(ctx, slog.LevelDebug, "",
		slog.String("event", "notify.skipped"),
		slog.String("type", string(e.Type)),
		slog.String("reason", reason),
	)
}
