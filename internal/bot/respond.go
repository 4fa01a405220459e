package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/estatebot/core/logger"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/state"
	"github.com/m3rciful/estatebot/internal/api"

	tele "gopkg.in/telebot.v4"
)

const (
	stateRespondRequest state.State = "respond.request"
	stateRespondMessage state.State = "respond.message"
)

const (
	fieldRequestID = "request_id"
	fieldOwnerID   = "owner_id"
)

func (b *Bot) registerRespondFlow() {
	b.fsm.Handle(stateRespondRequest, func(c tele.Context) error {
		return b.selectRequest(c, c.Text())
	})
	b.fsm.Handle(stateRespondMessage, b.submitResponse)
}

// respond starts the admin reply flow; "/respond <id>" skips the id prompt.
func (b *Bot) respond(c tele.Context) error {
	if arg := strings.TrimSpace(c.Message().Payload); arg != "" {
		return b.selectRequest(c, arg)
	}
	if err := b.fsm.Transition(c, stateRespondRequest); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendMD(c, "Please enter the *Request ID* you want to respond to (from /requests):")
}

// selectRequest validates the id, looks up the thread owner and asks for the reply text.
func (b *Bot) selectRequest(c tele.Context, raw string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		if err := b.fsm.Transition(c, stateRespondRequest); err != nil {
			return b.fail(c, err)
		}
		return tghelpers.SendText(c, "Invalid Request ID format. Please enter a number.")
	}

	req, err := b.api.GetRequest(b.ctx(c), id)
	var owner int64
	if err == nil {
		owner, _ = req.UserID.Int64()
	}
	switch {
	case errors.Is(err, api.ErrNotFound) || (err == nil && owner == 0):
		_ = b.fsm.Finish(c)
		return tghelpers.SendMDV2(c, fmt.Sprintf(
			"❌ Could not find details for Request ID `%d`\\. Was it entered correctly? Check `/requests`\\.", id))
	case err != nil:
		_ = b.fsm.Finish(c)
		return b.fail(c, err)
	}

	if err := b.fsm.Transition(c, stateRespondMessage,
		fieldRequestID, strconv.FormatInt(id, 10),
		fieldOwnerID, strconv.FormatInt(owner, 10),
	); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendMDV2(c, fmt.Sprintf(
		"Responding to Request ID `%d` from *%s* \\(TG ID: `%d`\\)\nOriginal query: \"_%s_\"\n\nPlease enter your response message now:",
		id, esc(req.Name, "the user"), owner, esc(req.AdditionalText, "")))
}

func (b *Bot) submitResponse(c tele.Context) error {
	reply, ok, err := input(c, "Please enter your response message, or /cancel.")
	if !ok {
		return err
	}
	s, err := b.fsm.Session(c)
	if err != nil {
		return b.fail(c, err)
	}
	requestID, errReq := strconv.ParseInt(s.Get(fieldRequestID), 10, 64)
	owner, errOwner := strconv.ParseInt(s.Get(fieldOwnerID), 10, 64)
	if err := b.fsm.Finish(c); err != nil {
		return b.fail(c, err)
	}
	if errReq != nil || errOwner != nil {
		return tghelpers.SendText(c, "❌ Error: Missing context information. Cannot send response. Please start over.")
	}

	ctx := b.ctx(c)
	adminID, _ := senderOf(c)
	_, recErr := b.api.CreateMessage(ctx, api.Message{
		Request:  requestID,
		SenderID: api.FlexID(adminID),
		UserID:   api.FlexID(owner),
		Content:  reply,
	})
	recorded := recErr == nil
	if !recorded {
		_ = tghelpers.SendText(c, "❌ Failed to record the message in the support history. Trying to send directly...")
	}

	text := fmt.Sprintf("ℹ️ Response regarding your support request (ID: %d):\n\n%s", requestID, reply)
	if err := b.sendTo(ctx, tele.ChatID(owner), text); err != nil {
		note := "⚠️ The message was not recorded in the support history either."
		if recorded {
			note = "ℹ️ The message was recorded in the support history."
		}
		return tghelpers.SendText(c, fmt.Sprintf(
			"❌ Failed to send message to user %d on Telegram.\nPlease check the user ID or contact them manually.\n%s", owner, note))
	}

	if recorded {
		if err := b.api.MarkRequestResponded(ctx, requestID); err != nil {
			logger.API.LogAttrs(ctx, slog.LevelWarn, "",
				slog.String("event", "live.mark_responded_failed"),
				slog.Int64("request_id", requestID),
				slog.String("err", err.Error()),
			)
		}
	}
	if err := tghelpers.SendText(c, fmt.Sprintf("✅ Message sent successfully to user %d (Request ID: %d).", owner, requestID)); err != nil {
		return err
	}
	if !recorded {
		return tghelpers.SendText(c, "⚠️ Warning: Failed to record this message in the support history.")
	}
	return nil
}
