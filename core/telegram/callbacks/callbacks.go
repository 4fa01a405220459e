// Package callbacks handles telebot's "\f<unique>|<payload>" callback data
// and carries the decoded value from the router to the handler.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

const decodedKey = "cb_decoded"

// Parse returns the unique key and payload of cb. telebot fills Unique only
// when a handler is bound to that endpoint; otherwise Data still holds the
// raw encoded form.
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	key, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// Encode builds raw callback data the way telebot encodes Btn.Unique and Btn.Data.
func Encode(unique string, payload ...string) string {
	data := "\f" + unique
	if p := strings.Join(payload, "|"); p != "" {
		data += "|" + p
	}
	return data
}

// Store attaches the decoded callback value to the update.
func Store(c tele.Context, v any) {
	c.Set(decodedKey, v)
}

// Decoded returns the value stored by Store when it has type T.
func Decoded[T any](c tele.Context) (T, bool) {
	v, ok := c.Get(decodedKey).(T)
	return v, ok
}
