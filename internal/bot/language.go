package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/estatebot/core/logger"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/keyboard"
	"github.com/m3rciful/estatebot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

const stateLanguage state.State = "lang.choose"

// PrefLanguage is the session preference holding the chosen language.
const PrefLanguage = "language"

func (b *Bot) registerLanguageFlow() {
	b.fsm.Handle(stateLanguage, b.chooseLanguage)
}

func (b *Bot) languageKeyboard() *tele.ReplyMarkup {
	rows := make([][]string, 0, len(b.languages)+1)
	for _, l := range b.languages {
		rows = append(rows, []string{l})
	}
	return keyboard.ReplyButtons(append(rows, []string{"/cancel"})...)
}

// startLanguage always sends a new message: a reply keyboard cannot be
// attached by editing.
func (b *Bot) startLanguage(c tele.Context) error {
	if err := b.fsm.Transition(c, stateLanguage); err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, "Please choose your preferred language:", b.languageKeyboard())
}

func (b *Bot) chooseLanguage(c tele.Context) error {
	choice := strings.TrimSpace(c.Text())
	lang := ""
	for _, l := range b.languages {
		if strings.EqualFold(l, choice) {
			lang = l
			break
		}
	}
	if lang == "" {
		return tghelpers.SendText(c, "Please choose a language from the buttons, or /cancel.", b.languageKeyboard())
	}
	if err := b.fsm.Finish(c); err != nil {
		return b.fail(c, err)
	}
	if err := b.fsm.SetPref(c, PrefLanguage, lang); err != nil {
		return b.fail(c, err)
	}
	logger.L.LogAttrs(b.ctx(c), slog.LevelInfo, "",
		slog.String("event", "language.set"),
		slog.String("language", lang),
	)
	if err := tghelpers.SendText(c, fmt.Sprintf("✅ Language set to %s.", lang), keyboard.RemoveKeyboard()); err != nil {
		return err
	}
	return tghelpers.SendText(c, msgMenu, b.mainMenu())
}
