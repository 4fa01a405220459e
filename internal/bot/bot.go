// Package bot implements the estate bot's commands, menus, listings and
// conversation flows on top of the core telegram runtime.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/estatebot/core/logger"
	tg "github.com/m3rciful/estatebot/core/telegram"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/keyboard"
	"github.com/m3rciful/estatebot/core/telegram/middleware"
	"github.com/m3rciful/estatebot/core/telegram/router"
	"github.com/m3rciful/estatebot/core/telegram/state"
	"github.com/m3rciful/estatebot/internal/api"
	"github.com/m3rciful/estatebot/internal/bot/action"
	"github.com/m3rciful/estatebot/internal/bot/pagination"

	tele "gopkg.in/telebot.v4"
)

// Backend is the slice of the remote API the bot calls.
type Backend interface {
	RegisterCustomer(ctx context.Context, telegramID int64, fullName, username string) (*api.Customer, error)
	GetCustomer(ctx context.Context, telegramID int64) (*api.Customer, error)
	ListCustomers(ctx context.Context) ([]api.Customer, error)
	ListCustomerProperties(ctx context.Context, telegramID int64) ([]api.Property, error)
	ListCustomerTours(ctx context.Context, telegramID int64) ([]api.Tour, error)
	ListCustomerFavorites(ctx context.Context, telegramID int64) ([]api.Favorite, error)
	GetProperty(ctx context.Context, id int64) (*api.Property, error)
	CreateFavorite(ctx context.Context, propertyID, telegramID int64) (*api.Favorite, error)
	DeleteFavorite(ctx context.Context, favoriteID int64) error
	CreateTour(ctx context.Context, t api.Tour) (*api.Tour, error)
	CreateRequest(ctx context.Context, r api.LiveRequest) (*api.LiveRequest, error)
	ListRequests(ctx context.Context) ([]api.LiveRequest, error)
	GetRequest(ctx context.Context, id int64) (*api.LiveRequest, error)
	MarkRequestResponded(ctx context.Context, id int64) error
	CreateMessage(ctx context.Context, m api.Message) (*api.Message, error)
	ListMessages(ctx context.Context) ([]api.Message, error)
}

// Messenger sends to chats other than the one being handled. *tele.Bot satisfies it.
type Messenger interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Options wires a Bot.
type Options struct {
	API       Backend
	FSM       *state.Machine
	Messenger Messenger
	AdminIDs  []int64
	// BotUsername and MiniApp build t.me mini-app links.
	BotUsername string
	MiniApp     string
	PageSize    int
	Languages   []string
}

// Bot holds handler dependencies.
type Bot struct {
	api       Backend
	fsm       *state.Machine
	msgr      Messenger
	admins    []int64
	username  string
	miniApp   string
	pageSize  int
	languages []string
}

// New builds a Bot.
func New(opts Options) *Bot {
	if opts.PageSize < 1 {
		opts.PageSize = pagination.DefaultSize
	}
	if opts.MiniApp == "" {
		opts.MiniApp = "state"
	}
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"Amharic", "English"}
	}
	return &Bot{
		api:       opts.API,
		fsm:       opts.FSM,
		msgr:      opts.Messenger,
		admins:    opts.AdminIDs,
		username:  opts.BotUsername,
		miniApp:   opts.MiniApp,
		pageSize:  opts.PageSize,
		languages: opts.Languages,
	}
}

// IsAdmin reports whether id is on the admin allow-list.
func (b *Bot) IsAdmin(id int64) bool {
	for _, a := range b.admins {
		if a == id {
			return true
		}
	}
	return false
}

const (
	msgUnavailable   = "Sorry, I couldn't connect to the service right now. Please try again later."
	msgUnexpected    = "An unexpected error occurred. Please try again."
	msgNotRegistered = "Could not retrieve your details. Are you registered? Use /start."
	msgNoToken       = "Could not find your profile identifier. Please contact support."
	msgAccessDenied  = "🚫 Access denied. This command is for administrators only."
	msgBusy          = "You're in the middle of something. Finish it or send /cancel."
	msgCancelled     = "Operation cancelled."
	msgUnknown       = "Sorry, I didn't understand that command. Use /start to see the menu."
	msgMenu          = "Here are your options:"
)

// Register binds every command, callback, flow state and fallback.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := b.commands()
	for _, name := range sortedKeys(cmds) {
		if err := reg.RegisterCommand(name, cmds[name]); err != nil {
			return err
		}
	}
	for kind, h := range b.callbacks() {
		if err := reg.RegisterCallback(string(kind), h); err != nil {
			return err
		}
	}
	reg.SetCallbackDecoder(action.Decode)
	reg.SetCallbackNotFound(b.onUnknownCallback)
	reg.SetTextFallback(b.onText)

	b.registerTourFlow()
	b.registerLiveFlow()
	b.registerRespondFlow()
	b.registerLanguageFlow()
	return nil
}

// Routes builds the command, callback and text routes for reg. wrap, when
// set, runs outermost on every route.
func (b *Bot) Routes(reg *tg.Registry, wrap tele.MiddlewareFunc) []tg.Route {
	cmdOpts := router.CommandRouteOptions{
		Admin:     middleware.AdminOptions{IsAdmin: b.IsAdmin, OnReject: b.DenyAccess},
		FlowGuard: b.FlowGuard,
		Wrap:      wrap,
	}
	routes := router.CommandRoutes(reg, cmdOpts)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{Wrap: wrap}))
	return append(routes, router.TextRoutes(b.fsm, reg, router.TextOptions{
		Commands:       cmdOpts,
		UnknownCommand: b.OnUnknownCommand,
	})...)
}

// FlowGuard stops commands from starting while a flow is running.
func (b *Bot) FlowGuard(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if b.fsm.InProgress(c) {
			return tghelpers.SendText(c, msgBusy)
		}
		return next(c)
	}
}

// DenyAccess answers callers that fail the admin check.
func (b *Bot) DenyAccess(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.EditOrSendText(c, msgAccessDenied)
	}
	return tghelpers.SendText(c, msgAccessDenied)
}

func (b *Bot) onUnknownCallback(c tele.Context) error {
	_ = c.Respond(&tele.CallbackResponse{Text: "Sorry, that action is not recognized."})
	return tghelpers.EditOrSendText(c, "Sorry, that action is not recognized or implemented yet.")
}

// OnUnknownCommand handles slash text that matches no registered command,
// including the /request_tour_<id> entry point.
func (b *Bot) OnUnknownCommand(c tele.Context) error {
	if id, ok := parseTourCommand(c.Text()); ok {
		if b.fsm.InProgress(c) {
			return tghelpers.SendText(c, msgBusy)
		}
		return b.startTour(c, id)
	}
	if b.fsm.InProgress(c) {
		return tghelpers.SendText(c, "Sorry, I didn't understand that. Please follow the instructions or use /cancel to exit.")
	}
	return tghelpers.SendText(c, msgUnknown)
}

func (b *Bot) ctx(c tele.Context) context.Context { return tghelpers.BuildContext(c) }

// fail reports err to the user in the matching register and returns it so
// the handler summary records the failure.
func (b *Bot) fail(c tele.Context, err error) error {
	text := msgUnexpected
	if errors.Is(err, api.ErrUnavailable) {
		text = msgUnavailable
	}
	if c.Callback() != nil {
		_ = tghelpers.EditOrSendText(c, text)
	} else {
		_ = tghelpers.SendText(c, text)
	}
	return err
}

// sendTo delivers text to a chat outside the current update and logs failures.
func (b *Bot) sendTo(ctx context.Context, to tele.Recipient, text string, opts ...any) error {
	if b.msgr == nil {
		return fmt.Errorf("bot: no messenger")
	}
	if _, err := b.msgr.Send(to, text, opts...); err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelWarn, "",
			slog.String("event", "tg.send_failed"),
			slog.String("to", to.Recipient()),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

func (b *Bot) mainMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtonsNPerRow([]keyboard.InlineBtn{
		action.Menu(action.AddProperty).Button("➕ Add Property 🏡"),
		action.Menu(action.UpgradeAccount).Button("✨ Upgrade Account ⭐"),
		action.Menu(action.ViewProfile).Button("👤 View Profile 🔍"),
		action.Paged(action.ListProperties, 1).Button("📋 List Properties 📂"),
		action.Paged(action.ListFavorites, 1).Button("❤️ List Favorites 💾"),
		action.Paged(action.ListTours, 1).Button("📅 List Tours 🗓️"),
		action.Menu(action.LiveAgent).Button("💬 Live Agent 📞"),
		action.Menu(action.ChangeLanguage).Button("🌐 Change Language 🌍"),
	}, 2)
}

func backToMenu() keyboard.InlineBtn {
	return action.Menu(action.MainMenu).Button("🔙 Back to Main Menu")
}

func senderOf(c tele.Context) (id int64, username string) {
	if u := c.Sender(); u != nil {
		return u.ID, u.Username
	}
	return 0, ""
}

func fullName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
