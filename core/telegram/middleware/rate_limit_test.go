package middleware

import (
	"testing"
	"time"

	"github.com/m3rciful/estatebot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func TestRateLimiterDropsBursts(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	var ran, limited int
	h := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Now:       func() time.Time { return now },
		OnLimited: func(tele.Context) error { limited++; return nil },
	})(func(tele.Context) error { ran++; return nil })

	_ = h(teletest.Message(7, "a"))
	_ = h(teletest.Message(7, "b"))
	_ = h(teletest.Message(8, "c"))
	now = now.Add(time.Second)
	_ = h(teletest.Message(7, "d"))

	if ran != 3 || limited != 1 {
		t.Fatalf("ran=%d limited=%d", ran, limited)
	}
}

func TestRateLimiterForgetsIdleUsers(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	l := newRateLimiter(time.Second)
	for id := int64(1); id <= 100; id++ {
		if !l.allow(id, now) {
			t.Fatalf("first update of %d limited", id)
		}
	}

	now = now.Add(2 * time.Second)
	if !l.allow(500, now) {
		t.Fatal("new user limited")
	}
	if len(l.lastSeen) != 1 {
		t.Fatalf("idle users kept: %d entries", len(l.lastSeen))
	}
}
