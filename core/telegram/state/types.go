package state

import (
	"context"
	"errors"
	"maps"
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a step of a conversation.
type State string

// StateIdle means no flow is in progress.
const StateIdle State = "idle"

// ErrNoSession is returned by stores when nothing is persisted for a key.
var ErrNoSession = errors.New("state: no session")

// Key partitions sessions by user and chat.
type Key struct {
	UserID int64
	ChatID int64
}

// KeyOf derives the session key from an update.
func KeyOf(c tele.Context) Key {
	var k Key
	if u := c.Sender(); u != nil {
		k.UserID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		k.ChatID = ch.ID
	} else {
		k.ChatID = k.UserID
	}
	return k
}

// Session is the persisted conversation value. Flow holds fields scoped to
// the running flow; Prefs holds user preferences that outlive flows.
type Session struct {
	State     State             `json:"state"`
	Flow      map[string]string `json:"flow"`
	Prefs     map[string]string `json:"prefs"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewSession returns an idle session with empty maps.
func NewSession() *Session {
	return &Session{
		State: StateIdle,
		Flow:  map[string]string{},
		Prefs: map[string]string{},
	}
}

// InProgress reports whether a flow is running.
func (s *Session) InProgress() bool {
	return s != nil && s.State != "" && s.State != StateIdle
}

// Get returns a flow field.
func (s *Session) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.Flow[key]
}

// Pref returns a preference value.
func (s *Session) Pref(key string) string {
	if s == nil {
		return ""
	}
	return s.Prefs[key]
}

// reset returns the session to idle and drops every flow field.
func (s *Session) reset() {
	s.State = StateIdle
	s.Flow = map[string]string{}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	out := *s
	out.Flow = maps.Clone(s.Flow)
	out.Prefs = maps.Clone(s.Prefs)
	if out.Flow == nil {
		out.Flow = map[string]string{}
	}
	if out.Prefs == nil {
		out.Prefs = map[string]string{}
	}
	return &out
}

// Store persists sessions.
type Store interface {
	// Load returns ErrNoSession when nothing is stored for key.
	Load(ctx context.Context, key Key) (*Session, error)
	Save(ctx context.Context, key Key, s *Session) error
	Delete(ctx context.Context, key Key) error
}
