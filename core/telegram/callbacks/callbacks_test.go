package callbacks

import (
	"testing"

	"github.com/m3rciful/estatebot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name         string
		cb           *tele.Callback
		key, payload string
	}{
		{"nil", nil, "", ""},
		{"bound", &tele.Callback{Unique: "fav", Data: "9"}, "fav", "9"},
		{"raw", &tele.Callback{Data: Encode("props", "2")}, "props", "2"},
		{"raw no payload", &tele.Callback{Data: "\fmain_menu"}, "main_menu", ""},
		{"legacy", &tele.Callback{Data: "make_favorite_9"}, "make_favorite_9", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := Parse(tc.cb)
			if key != tc.key || payload != tc.payload {
				t.Fatalf("Parse = %q, %q; want %q, %q", key, payload, tc.key, tc.payload)
			}
		})
	}
}

func TestEncodeJoinsPayload(t *testing.T) {
	if got := Encode("tour_slot", "5", "9-11"); got != "\ftour_slot|5|9-11" {
		t.Fatalf("Encode = %q", got)
	}
}

func TestDecodedType(t *testing.T) {
	c := teletest.Callback(1, 1, "x")
	Store(c, 42)
	if v, ok := Decoded[int](c); !ok || v != 42 {
		t.Fatalf("Decoded[int] = %v, %v", v, ok)
	}
	if _, ok := Decoded[string](c); ok {
		t.Fatal("Decoded[string] matched an int")
	}
}
