package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/estatebot/core/logger"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/keyboard"
	"github.com/m3rciful/estatebot/internal/api"

	tele "gopkg.in/telebot.v4"
)

const tourLinkPrefix = "request_tour_"

// start registers unknown users and shows the main menu. The
// request_tour_<id> payload of a channel deep link opens the tour flow instead.
func (b *Bot) start(c tele.Context) error {
	if payload := strings.TrimSpace(c.Message().Payload); strings.HasPrefix(payload, tourLinkPrefix) {
		id, err := strconv.ParseInt(strings.TrimPrefix(payload, tourLinkPrefix), 10, 64)
		if err != nil || id <= 0 {
			return tghelpers.SendText(c, "Invalid tour request link. Use /start to begin.")
		}
		return b.startTour(c, id)
	}

	ctx := b.ctx(c)
	uid, username := senderOf(c)
	name := fullName(c.Sender())

	_, err := b.api.GetCustomer(ctx, uid)
	switch {
	case err == nil:
		return tghelpers.SendText(c, fmt.Sprintf("Welcome back, %s! Here are some quick options:", name), b.mainMenu())
	case !errors.Is(err, api.ErrNotFound):
		return b.fail(c, err)
	}

	if _, err := b.api.RegisterCustomer(ctx, uid, name, username); err != nil {
		return b.fail(c, err)
	}
	logger.L.LogAttrs(ctx, slog.LevelInfo, "",
		slog.String("event", "customer.registered"),
		slog.Int64("user_id", uid),
	)
	return tghelpers.SendText(c, fmt.Sprintf("Welcome, %s! You're registered! Here are some quick options:", name), b.mainMenu())
}

func (b *Bot) showMenu(c tele.Context) error {
	return tghelpers.EditOrSendText(c, msgMenu, b.mainMenu())
}

// customer loads the sender's record and answers the common failures
// itself. ok is false when the caller should stop.
func (b *Bot) customer(c tele.Context) (cust *api.Customer, ok bool, err error) {
	uid, _ := senderOf(c)
	cust, err = b.api.GetCustomer(b.ctx(c), uid)
	switch {
	case errors.Is(err, api.ErrNotFound):
		return nil, false, tghelpers.EditOrSendText(c, msgNotRegistered)
	case err != nil:
		return nil, false, b.fail(c, err)
	case cust.ProfileToken == "":
		return nil, false, tghelpers.EditOrSendText(c, msgNoToken)
	}
	return cust, true, nil
}

// miniAppLink opens the profile web app; mode is "edit" or "add".
func (b *Bot) miniAppLink(mode, token string) string {
	return fmt.Sprintf("https://t.me/%s/%s?startapp=%s-%s", b.username, b.miniApp, mode, token)
}

func (b *Bot) linkButton(text, url string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{{Text: text, URL: url}})
}

func (b *Bot) profile(c tele.Context) error {
	cust, ok, err := b.customer(c)
	if !ok {
		return err
	}
	return tghelpers.EditOrSendText(c, "Click the button below to view or edit your profile:",
		b.linkButton("👤 Edit Profile", b.miniAppLink("edit", cust.ProfileToken)))
}

func (b *Bot) addProperty(c tele.Context) error {
	cust, ok, err := b.customer(c)
	if !ok {
		return err
	}
	switch {
	case cust.UserType == api.UserTypeUser:
		return tghelpers.EditOrSendText(c, "You can only browse properties. To add your own, "+
			"please upgrade your account first using the 'Upgrade Account' option or /upgrade.")
	case cust.Upgraded():
		return tghelpers.EditOrSendText(c, "You can add properties! Use the button below:",
			b.linkButton("➕ Add Property", b.miniAppLink("add", cust.ProfileToken)))
	default:
		return tghelpers.EditOrSendText(c, fmt.Sprintf(
			"Your user type ('%s') is not recognized for adding properties. Please contact support.", cust.UserType))
	}
}

func (b *Bot) upgrade(c tele.Context) error {
	cust, ok, err := b.customer(c)
	if !ok {
		return err
	}
	switch {
	case cust.Upgraded():
		return tghelpers.EditOrSendText(c, fmt.Sprintf(
			"You are already an upgraded user (%s). Use /profile to manage your account.", capitalize(cust.UserType)))
	case cust.UserType == api.UserTypeUser:
		return tghelpers.EditOrSendText(c, "Account upgrades allow you to list properties. Note: Upgrades might be irreversible. "+
			"Visit your profile via the button below to choose an upgrade option (e.g., Agent, Owner):",
			b.linkButton("👤 Edit Profile to Upgrade", b.miniAppLink("edit", cust.ProfileToken)))
	default:
		return tghelpers.EditOrSendText(c, fmt.Sprintf("User type ('%s') not recognized. Please contact support.", cust.UserType))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
