package bot

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/estatebot/core/logger"
	"github.com/m3rciful/estatebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/keyboard"
	"github.com/m3rciful/estatebot/core/telegram/state"
	"github.com/m3rciful/estatebot/internal/api"
	"github.com/m3rciful/estatebot/internal/bot/action"

	tele "gopkg.in/telebot.v4"
)

const (
	stateTourName  state.State = "tour.full_name"
	stateTourPhone state.State = "tour.phone"
	stateTourDate  state.State = "tour.date"
	stateTourTime  state.State = "tour.time"
)

const (
	fieldPropertyID = "property_id"
	fieldFullName   = "full_name"
	fieldPhone      = "phone"
	fieldDate       = "date"
)

// TimeSlots lists the bookable tour windows in display order.
var TimeSlots = []string{"9-11", "11-13", "14-16", "16-18"}

var tourCommand = regexp.MustCompile(`^/request_tour_(\d+)(?:@\w+)?$`)

// parseTourCommand extracts the property id from "/request_tour_<id>".
func parseTourCommand(text string) (int64, bool) {
	m := tourCommand.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Weekday resolves a day name case-insensitively to its canonical form.
func Weekday(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d.String(), true
		}
	}
	return "", false
}

func validSlot(s string) bool {
	for _, v := range TimeSlots {
		if v == s {
			return true
		}
	}
	return false
}

func slotLabel(s string) string {
	from, to, _ := strings.Cut(s, "-")
	return fmt.Sprintf("%s:00 - %s:00", from, to)
}

func weekdayKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{"Monday", "Tuesday", "Wednesday"},
		[]string{"Thursday", "Friday", "Saturday"},
		[]string{"Sunday", "/cancel"},
	)
}

func slotKeyboard() *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(TimeSlots))
	for _, s := range TimeSlots {
		rows = append(rows, []keyboard.InlineBtn{action.Slot(s).Button(slotLabel(s))})
	}
	return keyboard.InlineButtonsRows(rows...)
}

func (b *Bot) registerTourFlow() {
	b.fsm.Handle(stateTourName, b.onTourName)
	b.fsm.Handle(stateTourPhone, b.onTourPhone)
	b.fsm.Handle(stateTourDate, b.onTourDate)
	b.fsm.Handle(stateTourTime, b.onTourTimeText)
}

func (b *Bot) startTour(c tele.Context, propertyID int64) error {
	if err := b.fsm.Transition(c, stateTourName, fieldPropertyID, strconv.FormatInt(propertyID, 10)); err != nil {
		return b.fail(c, err)
	}
	logger.FSM.LogAttrs(b.ctx(c), slog.LevelInfo, "",
		slog.String("event", "tour.started"),
		slog.Int64("property_id", propertyID),
	)
	return tghelpers.SendText(c, "Welcome! To schedule a tour for this property, please provide your full name.")
}

// input returns the trimmed message text, or re-prompts and reports false when empty.
func input(c tele.Context, prompt string) (string, bool, error) {
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return "", false, tghelpers.SendText(c, prompt)
	}
	return text, true, nil
}

func (b *Bot) onTourName(c tele.Context) error {
	name, ok, err := input(c, "Please provide your full name for the tour booking.")
	if !ok {
		return err
	}
	if err := b.fsm.Transition(c, stateTourPhone, fieldFullName, name); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, "Thanks! Now, please provide your phone number (e.g., +251...).")
}

func (b *Bot) onTourPhone(c tele.Context) error {
	phone, ok, err := input(c, "Please provide your phone number (e.g., +251...).")
	if !ok {
		return err
	}
	if err := b.fsm.Transition(c, stateTourDate, fieldPhone, phone); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, "Great! Please select a preferred day for your tour:", weekdayKeyboard())
}

func (b *Bot) onTourDate(c tele.Context) error {
	day, ok := Weekday(c.Text())
	if !ok {
		return tghelpers.SendText(c, "Invalid selection. Please choose a day from the buttons.", weekdayKeyboard())
	}
	if err := b.fsm.Transition(c, stateTourTime, fieldDate, day); err != nil {
		return b.fail(c, err)
	}
	if err := tghelpers.SendText(c, "Thank you! Now, please select a time slot.", keyboard.RemoveKeyboard()); err != nil {
		return err
	}
	return tghelpers.SendText(c, "Finally, select a preferred time slot for the tour:", slotKeyboard())
}

func (b *Bot) onTourTimeText(c tele.Context) error {
	return tghelpers.SendText(c, "Please choose a time slot from the buttons above, or /cancel.", slotKeyboard())
}

// onTourSlot receives the slot button and submits the booking.
func (b *Bot) onTourSlot(c tele.Context) error {
	if b.fsm.Current(c) != stateTourTime {
		return tghelpers.EditOrSendText(c, "This time slot selection is no longer active. Please request the tour again.")
	}
	a, _ := callbacks.Decoded[action.Action](c)
	if !validSlot(a.Slot) {
		return tghelpers.EditOrSendText(c, "Invalid time slot selected. Please choose one of the slots below or /cancel.", slotKeyboard())
	}

	s, err := b.fsm.Session(c)
	if err != nil {
		return b.fail(c, err)
	}
	tour, complete := b.tourFrom(c, s, a.Slot)
	if err := b.fsm.Finish(c); err != nil {
		return b.fail(c, err)
	}
	if !complete {
		logger.FSM.LogAttrs(b.ctx(c), slog.LevelWarn, "",
			slog.String("event", "tour.incomplete"),
			slog.Int64("property_id", tour.Property),
		)
		return tghelpers.EditOrSendText(c, "Something went wrong, some booking details were missing. Please request the tour again.")
	}

	if _, err := b.api.CreateTour(b.ctx(c), tour); err != nil {
		_ = tghelpers.EditOrSendText(c, "❌ Sorry, there was an error submitting your tour request. "+
			"Please try again later or contact support.")
		return err
	}
	return tghelpers.EditOrSendText(c, "✅ Your tour request has been submitted successfully! "+
		"The agent/owner will contact you to confirm.\nYou can view your pending tours with /list_tours.")
}

// tourFrom assembles the booking from the session. complete is false when
// any required field is absent.
func (b *Bot) tourFrom(c tele.Context, s *state.Session, slot string) (api.Tour, bool) {
	uid, username := senderOf(c)
	id, err := strconv.ParseInt(s.Get(fieldPropertyID), 10, 64)
	t := api.Tour{
		Property:     id,
		FullName:     s.Get(fieldFullName),
		PhoneNumber:  s.Get(fieldPhone),
		TourDate:     s.Get(fieldDate),
		TourTimeSlot: slot,
		TelegramID:   api.FlexID(uid),
		Username:     username,
	}
	complete := err == nil && id > 0 && t.FullName != "" && t.PhoneNumber != "" && t.TourDate != "" && slot != ""
	return t, complete
}
