package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/estatebot/core/logger"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	Now       func() time.Time
}

// RateLimitMiddleware drops updates arriving from the same user faster than Interval.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	lim := newRateLimiter(opts.Interval)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := "other"
			switch upd := c.Update(); {
			case upd.Callback != nil:
				kind = "callback"
			case upd.Message != nil:
				kind = "message"
			}
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			if lim.allow(user.ID, opts.Now()) {
				return next(c)
			}
			logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelWarn, "",
				slog.String("event", "tg.rate_limit"),
				slog.String("outcome", "rate_limited"),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}

// rateLimiter remembers when each user was last let through. Entries older
// than the interval no longer limit anyone and are swept at most once per
// interval.
type rateLimiter struct {
	interval time.Duration

	mu        sync.Mutex
	lastSeen  map[int64]time.Time
	lastSweep time.Time
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval, lastSeen: make(map[int64]time.Time)}
}

func (l *rateLimiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, seen := l.lastSeen[userID]; seen && now.Sub(last) < l.interval {
		return false
	}
	if now.Sub(l.lastSweep) >= l.interval {
		for id, last := range l.lastSeen {
			if now.Sub(last) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
		l.lastSweep = now
	}
	l.lastSeen[userID] = now
	return true
}
