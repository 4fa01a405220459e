// Package action defines the callback variants carried by inline buttons.
// A button encodes as telebot's "\f<kind>|<arg>" data; Decode turns raw
// callback data back into an Action once, at the router.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/estatebot/core/telegram/callbacks"
	"github.com/m3rciful/estatebot/core/telegram/keyboard"
)

// Kind names what a button does.
type Kind string

const (
	MainMenu       Kind = "main_menu"
	AddProperty    Kind = "add_property"
	UpgradeAccount Kind = "upgrade_account"
	ViewProfile    Kind = "view_profile"
	LiveAgent      Kind = "live_agent"
	ChangeLanguage Kind = "change_language"

	// Paged listings carry Page.
	ListProperties Kind = "list_properties"
	ListFavorites  Kind = "list_favorites"
	ListTours      Kind = "list_tours"
	ListUsers      Kind = "list_users"

	// MakeFavorite carries the property ID.
	MakeFavorite Kind = "make_favorite"
	// TourSlot carries the chosen Slot.
	TourSlot Kind = "tour_slot"
)

// ErrMalformed is returned for data that is not a known action.
var ErrMalformed = errors.New("action: malformed callback data")

type argKind int

const (
	argNone argKind = iota
	argPage
	argID
	argSlot
)

var kinds = map[Kind]argKind{
	MainMenu:       argNone,
	AddProperty:    argNone,
	UpgradeAccount: argNone,
	ViewProfile:    argNone,
	LiveAgent:      argNone,
	ChangeLanguage: argNone,
	ListProperties: argPage,
	ListFavorites:  argPage,
	ListTours:      argPage,
	ListUsers:      argPage,
	MakeFavorite:   argID,
	TourSlot:       argSlot,
}

// Kinds returns every known kind; the router registers one handler per kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	return out
}

// Action is a decoded callback.
type Action struct {
	Kind Kind
	Page int
	ID   int64
	Slot string
}

func Menu(k Kind) Action { return Action{Kind: k} }

func Paged(k Kind, page int) Action { return Action{Kind: k, Page: page} }

func Favorite(propertyID int64) Action { return Action{Kind: MakeFavorite, ID: propertyID} }

func Slot(slot string) Action { return Action{Kind: TourSlot, Slot: slot} }

func (a Action) arg() string {
	switch kinds[a.Kind] {
	case argPage:
		return strconv.Itoa(a.Page)
	case argID:
		return strconv.FormatInt(a.ID, 10)
	case argSlot:
		return a.Slot
	}
	return ""
}

// Data returns the raw callback data for the action.
func (a Action) Data() string {
	return callbacks.Encode(string(a.Kind), a.arg())
}

// Button renders the action as an inline button labelled text.
func (a Action) Button(text string) keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: text, Unique: string(a.Kind), Data: a.arg()}
}

// Decode parses a callback key and payload as split by callbacks.Parse. It
// also accepts the older "kind:arg" and "make_favorite_<id>" forms that
// still sit under posts published before buttons used telebot encoding.
// The returned route is the action kind.
func Decode(key, payload string) (string, any, error) {
	if _, ok := kinds[Kind(key)]; !ok {
		key, payload = legacy(key, payload)
	}
	a, err := build(Kind(key), payload)
	if err != nil {
		return "", nil, err
	}
	return string(a.Kind), a, nil
}

func legacy(key, payload string) (string, string) {
	if payload != "" {
		return key, payload
	}
	if k, arg, ok := strings.Cut(key, ":"); ok {
		return k, arg
	}
	if id, ok := strings.CutPrefix(key, string(MakeFavorite)+"_"); ok {
		return string(MakeFavorite), id
	}
	return key, payload
}

func build(k Kind, arg string) (Action, error) {
	ak, ok := kinds[k]
	if !ok {
		return Action{}, fmt.Errorf("%w: unknown kind %q", ErrMalformed, k)
	}
	a := Action{Kind: k}
	arg = strings.TrimSpace(arg)
	switch ak {
	case argNone:
	case argPage:
		a.Page = 1
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return Action{}, fmt.Errorf("%w: page %q", ErrMalformed, arg)
			}
			a.Page = max(n, 1)
		}
	case argID:
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || n <= 0 {
			return Action{}, fmt.Errorf("%w: id %q", ErrMalformed, arg)
		}
		a.ID = n
	case argSlot:
		if arg == "" {
			return Action{}, fmt.Errorf("%w: empty slot", ErrMalformed)
		}
		a.Slot = arg
	}
	return a, nil
}
