package bot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/m3rciful/estatebot/core/telegram/callbacks"
	"github.com/m3rciful/estatebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/keyboard"
	"github.com/m3rciful/estatebot/core/telegram/middleware"
	"github.com/m3rciful/estatebot/internal/bot/action"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) commands() map[string]commands.Command {
	return map[string]commands.Command{
		"/start":           {Handler: b.start, Description: "Register and open the main menu"},
		"/profile":         {Handler: b.profile, Description: "View or edit your profile"},
		"/addproperty":     {Handler: b.addProperty, Description: "Add a property listing"},
		"/upgrade":         {Handler: b.upgrade, Description: "Upgrade your account"},
		"/list_properties": {Handler: b.listProperties, Description: "Your properties"},
		"/list_tours":      {Handler: b.listTours, Description: "Your scheduled tours"},
		"/list_favorites":  {Handler: b.listFavorites, Description: "Your favorite properties"},
		"/live_agent":      {Handler: b.startLive, Description: "Talk to a live agent"},
		"/changelang":      {Handler: b.startLanguage, Description: "Change language"},
		"/cancel": {
			Handler:        b.cancel,
			Description:    "Cancel the current operation",
			Aliases:        []string{"/leave"},
			InterruptsFlow: true,
		},
		"/list_users": {Handler: b.listUsers, Description: "(Admin) Agents, owners and companies", AdminOnly: true},
		"/requests":   {Handler: b.listRequests, Description: "(Admin) Pending live agent requests", AdminOnly: true},
		"/respond":    {Handler: b.respond, Description: "(Admin) Reply to a live agent request", AdminOnly: true},
	}
}

func (b *Bot) callbacks() map[action.Kind]tele.HandlerFunc {
	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{IsAdmin: b.IsAdmin, OnReject: b.DenyAccess})
	return map[action.Kind]tele.HandlerFunc{
		action.MainMenu:       b.showMenu,
		action.AddProperty:    b.addProperty,
		action.UpgradeAccount: b.upgrade,
		action.ViewProfile:    b.profile,
		action.ListProperties: b.listProperties,
		action.ListFavorites:  b.listFavorites,
		action.ListTours:      b.listTours,
		action.ListUsers:      adminOnly(b.listUsers),
		action.LiveAgent:      b.FlowGuard(b.startLive),
		action.ChangeLanguage: b.FlowGuard(b.startLanguage),
		action.MakeFavorite:   b.toggleFavorite,
		action.TourSlot:       b.onTourSlot,
	}
}

func (b *Bot) cancel(c tele.Context) error {
	if err := b.fsm.Finish(c); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, msgCancelled, keyboard.RemoveKeyboard())
}

// pageOf returns the page requested by a navigation button or by a numeric
// command argument such as "/list_tours 2".
func pageOf(c tele.Context) int {
	if a, ok := callbacks.Decoded[action.Action](c); ok {
		return max(a.Page, 1)
	}
	if m := c.Message(); m != nil && c.Callback() == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(m.Payload)); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
