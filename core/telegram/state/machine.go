package state

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/estatebot/core/logger"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const sessionKey = "fsm_session"

// Options tunes a Machine.
type Options struct {
	// TTL expires a flow that has not advanced for this long. Zero disables expiry.
	TTL time.Duration
	Now func() time.Time
}

// Machine routes inputs to state handlers and persists sessions.
type Machine struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	locks keyedMutex

	mu       sync.RWMutex
	handlers map[State]tele.HandlerFunc
}

// NewMachine builds a Machine over store.
func NewMachine(store Store, opts Options) *Machine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		store:    store,
		ttl:      opts.TTL,
		now:      opts.Now,
		handlers: make(map[State]tele.HandlerFunc),
	}
}

// Handle registers the handler for st.
func (m *Machine) Handle(st State, h tele.HandlerFunc) {
	if h == nil || st == StateIdle {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[st] = h
}

// Load reads the session for key. Missing and expired sessions come back idle.
func (m *Machine) Load(ctx context.Context, key Key) (*Session, error) {
	s, err := m.store.Load(ctx, key)
	if errors.Is(err, ErrNoSession) {
		return NewSession(), nil
	}
	if err != nil {
		return nil, err
	}
	if m.ttl > 0 && s.InProgress() && m.now().Sub(s.UpdatedAt) > m.ttl {
		logger.FSM.LogAttrs(ctx, slog.LevelInfo, "",
			slog.String("event", "fsm.expired"),
			slog.String("state", string(s.State)),
			slog.Int64("user_id", key.UserID),
		)
		s.reset()
	}
	return s, nil
}

// Save persists s under key, stamping UpdatedAt.
func (m *Machine) Save(ctx context.Context, key Key, s *Session) error {
	s.UpdatedAt = m.now()
	if !s.InProgress() && len(s.Prefs) == 0 {
		return m.store.Delete(ctx, key)
	}
	return m.store.Save(ctx, key, s)
}

// Session returns the session for the update, loading it once per update.
func (m *Machine) Session(c tele.Context) (*Session, error) {
	if s, ok := c.Get(sessionKey).(*Session); ok && s != nil {
		return s, nil
	}
	s, err := m.Load(tghelpers.BuildContext(c), KeyOf(c))
	if err != nil {
		return nil, err
	}
	c.Set(sessionKey, s)
	return s, nil
}

// Transition moves the update's session to st and merges kv pairs into the flow fields.
func (m *Machine) Transition(c tele.Context, st State, kv ...string) error {
	s, err := m.Session(c)
	if err != nil {
		return err
	}
	from := s.State
	s.State = st
	for i := 0; i+1 < len(kv); i += 2 {
		s.Flow[kv[i]] = kv[i+1]
	}
	ctx := tghelpers.BuildContext(c)
	if err := m.Save(ctx, KeyOf(c), s); err != nil {
		return err
	}
	logger.FSM.LogAttrs(ctx, slog.LevelDebug, "",
		slog.String("event", "fsm.transition"),
		slog.String("from", string(from)),
		slog.String("state", string(st)),
	)
	return nil
}

// SetPref stores a preference that survives Finish.
func (m *Machine) SetPref(c tele.Context, key, value string) error {
	s, err := m.Session(c)
	if err != nil {
		return err
	}
	s.Prefs[key] = value
	return m.Save(tghelpers.BuildContext(c), KeyOf(c), s)
}

// Finish ends the running flow: the state returns to idle and every flow
// field is purged. Preferences are kept.
func (m *Machine) Finish(c tele.Context) error {
	s, err := m.Session(c)
	if err != nil {
		return err
	}
	from := s.State
	s.reset()
	ctx := tghelpers.BuildContext(c)
	if err := m.Save(ctx, KeyOf(c), s); err != nil {
		return err
	}
	logger.FSM.LogAttrs(ctx, slog.LevelDebug, "",
		slog.String("event", "fsm.finish"),
		slog.String("from", string(from)),
	)
	return nil
}

// InProgress reports whether the update's sender has a running flow.
// Store failures are logged and treated as idle.
func (m *Machine) InProgress(c tele.Context) bool {
	s, err := m.Session(c)
	if err != nil {
		logger.FSM.LogAttrs(tghelpers.BuildContext(c), slog.LevelError, "",
			slog.String("event", "fsm.load"),
			slog.String("err", err.Error()),
		)
		return false
	}
	return s.InProgress()
}

// Current returns the current state, or StateIdle when unknown.
func (m *Machine) Current(c tele.Context) State {
	s, err := m.Session(c)
	if err != nil || !s.InProgress() {
		return StateIdle
	}
	return s.State
}

// Dispatch runs the handler registered for the current state. A state with
// no handler is reset to idle.
func (m *Machine) Dispatch(c tele.Context) error {
	st := m.Current(c)
	if st == StateIdle {
		return nil
	}
	m.mu.RLock()
	h, ok := m.handlers[st]
	m.mu.RUnlock()
	if !ok {
		logger.FSM.LogAttrs(tghelpers.BuildContext(c), slog.LevelWarn, "",
			slog.String("event", "fsm.orphan_state"),
			slog.String("state", string(st)),
		)
		return m.Finish(c)
	}
	return h(c)
}

// Serialize holds a per-(user, chat) lock for the whole handler so two steps
// of the same conversation never run at once.
func (m *Machine) Serialize() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			unlock := m.locks.Lock(KeyOf(c))
			defer unlock()
			return next(c)
		}
	}
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[Key]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key Key) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[Key]*refMutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &refMutex{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
