package teletest

import (
	"errors"
	"strconv"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// ErrBlocked is returned by Messenger for recipients listed in Fail.
var ErrBlocked = errors.New("teletest: bot was blocked by the user")

// Messenger records messages sent outside the current chat.
type Messenger struct {
	mu   sync.Mutex
	Sent []Sent
	// Fail lists recipient ids whose sends fail with ErrBlocked.
	Fail map[string]bool
}

func (m *Messenger) Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail[to.Recipient()] {
		return nil, ErrBlocked
	}
	m.Sent = append(m.Sent, Sent{To: to, What: what, Opts: opts})
	return &tele.Message{ID: len(m.Sent)}, nil
}

// To returns the texts sent to the chat id.
func (m *Messenger) To(id int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := strconv.FormatInt(id, 10)
	var out []string
	for _, s := range m.Sent {
		if s.To.Recipient() == want {
			out = append(out, s.Text())
		}
	}
	return out
}

// ToChat returns the texts sent to a chat username such as "@channel".
func (m *Messenger) ToChat(username string) []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Sent
	for _, s := range m.Sent {
		if s.To.Recipient() == username {
			out = append(out, s)
		}
	}
	return out
}
