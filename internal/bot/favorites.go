package bot

import (
	"fmt"
	"log/slog"

	"github.com/m3rciful/estatebot/core/logger"
	"github.com/m3rciful/estatebot/core/telegram/callbacks"
	"github.com/m3rciful/estatebot/internal/api"
	"github.com/m3rciful/estatebot/internal/bot/action"

	tele "gopkg.in/telebot.v4"
)

// toggleFavorite adds or removes the property carried by the button. The
// button may sit under a channel post, so feedback always goes to the
// sender's private chat.
func (b *Bot) toggleFavorite(c tele.Context) error {
	a, ok := callbacks.Decoded[action.Action](c)
	if !ok || a.ID <= 0 {
		return b.onUnknownCallback(c)
	}
	uid, _ := senderOf(c)
	ctx := b.ctx(c)
	to := tele.ChatID(uid)

	favs, err := b.api.ListCustomerFavorites(ctx, uid)
	if err != nil {
		_ = b.sendTo(ctx, to, "❌ Network error. Could not update favorites.")
		return err
	}
	name := "this property"
	if prop, err := b.api.GetProperty(ctx, a.ID); err == nil && prop.Name != "" {
		name = prop.Name
	}

	var existing *api.Favorite
	for i := range favs {
		if favs[i].Property == a.ID {
			existing = &favs[i]
			break
		}
	}

	var text string
	switch {
	case existing != nil && existing.ID == 0:
		return b.sendTo(ctx, to, "❌ Could not identify the favorite record to remove. Contact support.")
	case existing != nil:
		if err := b.api.DeleteFavorite(ctx, existing.ID); err != nil {
			_ = b.sendTo(ctx, to, "❌ Failed to remove from favorites. Please try again.")
			return err
		}
		text = fmt.Sprintf("❌ Property *%s* removed from your favorites\\.", esc(name, "this property"))
	default:
		if _, err := b.api.CreateFavorite(ctx, a.ID, uid); err != nil {
			_ = b.sendTo(ctx, to, "❌ Failed to add to favorites. Please try again.")
			return err
		}
		text = fmt.Sprintf("❤️ Property *%s* added to your favorites\\!", esc(name, "this property"))
	}

	logger.L.LogAttrs(ctx, slog.LevelInfo, "",
		slog.String("event", "favorite.toggled"),
		slog.Int64("property_id", a.ID),
		slog.Bool("removed", existing != nil),
	)
	return b.sendTo(ctx, to, text, tele.ModeMarkdownV2)
}
