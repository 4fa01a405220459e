package bot

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/m3rciful/estatebot/core/logger"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/keyboard"
	"github.com/m3rciful/estatebot/core/telegram/state"
	"github.com/m3rciful/estatebot/internal/api"
	"github.com/m3rciful/estatebot/internal/bot/action"

	tele "gopkg.in/telebot.v4"
)

const (
	stateLiveName    state.State = "live.name"
	stateLivePhone   state.State = "live.phone"
	stateLiveAddress state.State = "live.address"
	stateLiveText    state.State = "live.text"
)

const (
	fieldLiveName    = "name"
	fieldLivePhone   = "phone"
	fieldLiveAddress = "address"
)

func (b *Bot) registerLiveFlow() {
	b.fsm.Handle(stateLiveName, b.liveStep(fieldLiveName, stateLivePhone, "Thanks! Please provide your phone number:"))
	b.fsm.Handle(stateLivePhone, b.liveStep(fieldLivePhone, stateLiveAddress, "Got it. Please provide your current address or general location:"))
	b.fsm.Handle(stateLiveAddress, b.liveStep(fieldLiveAddress, stateLiveText, "Finally, please describe your issue or question briefly:"))
	b.fsm.Handle(stateLiveText, b.submitLive)
}

func (b *Bot) startLive(c tele.Context) error {
	if err := b.fsm.Transition(c, stateLiveName); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.EditOrSendText(c, "Okay, let's connect you with support. First, please provide your full name:")
}

// liveStep stores the answer under field and moves to next.
func (b *Bot) liveStep(field string, next state.State, prompt string) tele.HandlerFunc {
	return func(c tele.Context) error {
		text, ok, err := input(c, "Please send a text answer, or /cancel.")
		if !ok {
			return err
		}
		if err := b.fsm.Transition(c, next, field, text); err != nil {
			return b.fail(c, err)
		}
		return tghelpers.SendText(c, prompt)
	}
}

func (b *Bot) submitLive(c tele.Context) error {
	details, ok, err := input(c, "Please describe your issue or question briefly, or /cancel.")
	if !ok {
		return err
	}
	s, err := b.fsm.Session(c)
	if err != nil {
		return b.fail(c, err)
	}
	uid, username := senderOf(c)
	if username == "" {
		username = "No username"
	}
	req := api.LiveRequest{
		UserID:         api.FlexID(uid),
		Username:       username,
		Name:           s.Get(fieldLiveName),
		Phone:          s.Get(fieldLivePhone),
		Address:        s.Get(fieldLiveAddress),
		AdditionalText: details,
	}
	if err := b.fsm.Finish(c); err != nil {
		return b.fail(c, err)
	}
	if req.Name == "" || req.Phone == "" || req.Address == "" {
		return tghelpers.SendText(c, "Something went wrong, some information was missing. Please start over with /live_agent or use the menu.")
	}

	ctx := b.ctx(c)
	created, err := b.api.CreateRequest(ctx, req)
	if err != nil {
		_ = tghelpers.SendText(c, "❌ There was an error submitting your request. Please try again later or contact support directly.")
		return err
	}
	if err := tghelpers.SendText(c, "✅ Your request has been submitted successfully! "+
		"An agent will review it and get back to you via Telegram message soon."); err != nil {
		return err
	}

	text := fmt.Sprintf("📨 *New Live Agent Request Received*\n\n"+
		"*Request ID:* `%d`\n*User TG ID:* `%d`\n*Username:* @%s\n*Name:* %s\n*Phone:* %s\n*Address:* %s\n\n"+
		"📄 *Details:* %s\n\n👉 Use `/respond %d` to reply\\.",
		created.ID, uid, esc(username, "N/A"), esc(req.Name, "N/A"), esc(req.Phone, "N/A"),
		esc(req.Address, "N/A"), esc(details, "N/A"), created.ID)
	notified := b.notifyAdmins(c, b.admins, text)
	logger.L.LogAttrs(ctx, slog.LevelInfo, "",
		slog.String("event", "live.request_created"),
		slog.Int64("request_id", created.ID),
		slog.Int("admins_notified", notified),
	)
	return nil
}

// notifyAdmins sends a MarkdownV2 text to each admin in turn. Failures are
// logged by sendTo and skipped; the count of successful sends is returned.
func (b *Bot) notifyAdmins(c tele.Context, admins []int64, text string) int {
	ctx := b.ctx(c)
	n := 0
	for _, id := range admins {
		if err := b.sendTo(ctx, tele.ChatID(id), text, tele.ModeMarkdownV2); err == nil {
			n++
		}
	}
	return n
}

// onText handles free text outside any flow. A user's message joins their
// latest support thread and is forwarded to the admin who last answered
// there, or to every admin when nobody has answered yet.
func (b *Bot) onText(c tele.Context) error {
	uid, username := senderOf(c)
	if b.IsAdmin(uid) {
		return nil
	}
	ctx := b.ctx(c)
	msgs, err := b.api.ListMessages(ctx)
	if err != nil {
		_ = tghelpers.SendText(c, "Sorry, I'm having trouble connecting to the support system right now.")
		return err
	}

	requestID, responder, found := latestThread(msgs, uid)
	if !found {
		return tghelpers.SendText(c, "Thanks for your message! If you need support, please use the 'Live Agent' button "+
			"or /live_agent to start a new request.",
			keyboard.InlineButtonsRows([]keyboard.InlineBtn{action.Menu(action.LiveAgent).Button("💬 Request Live Agent")}))
	}

	content := c.Text()
	if _, err := b.api.CreateMessage(ctx, api.Message{
		Request:  requestID,
		SenderID: api.FlexID(uid),
		UserID:   api.FlexID(uid),
		Content:  content,
	}); err != nil {
		_ = tghelpers.SendText(c, "Sorry, I'm having trouble connecting to the support system right now.")
		return err
	}

	admins := b.admins
	if responder != 0 {
		admins = []int64{responder}
	}
	text := fmt.Sprintf("💬 New message from user %d regarding Request ID: `%d`\n\\(Username: @%s\\)\n\n%s\n\n👉 Use `/respond %d` to reply\\.",
		uid, requestID, esc(username, "N/A"), esc(content, ""), requestID)
	if b.notifyAdmins(c, admins, text) == 0 {
		return tghelpers.SendText(c, "⚠️ Your message was recorded, but there was an issue notifying the agent immediately. They will see it later.")
	}
	return tghelpers.SendText(c, "✅ Your message has been sent to the support agent.")
}

// latestThread finds the request of the user's most recent message and the
// last other participant who wrote in it. responder is zero when only the
// user has written.
func latestThread(msgs []api.Message, uid int64) (requestID, responder int64, found bool) {
	owner := strconv.FormatInt(uid, 10)
	var mine []api.Message
	for _, m := range msgs {
		if m.UserID.String() == owner {
			mine = append(mine, m)
		}
	}
	if len(mine) == 0 {
		return 0, 0, false
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].Timestamp.After(mine[j].Timestamp) })
	requestID = mine[0].Request
	for _, m := range mine {
		if m.Request != requestID || m.SenderID.String() == owner {
			continue
		}
		if id, ok := m.SenderID.Int64(); ok {
			return requestID, id, true
		}
	}
	return requestID, 0, true
}
