// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent records one outgoing message.
type Sent struct {
	To     tele.Recipient
	What   any
	Opts   []any
	Edited bool
}

// Text returns the message body when it is a string.
func (s Sent) Text() string {
	t, _ := s.What.(string)
	return t
}

// Markup returns the reply markup attached to the message, if any.
func (s Sent) Markup() *tele.ReplyMarkup {
	for _, o := range s.Opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v
		case *tele.SendOptions:
			if v.ReplyMarkup != nil {
				return v.ReplyMarkup
			}
		}
	}
	return nil
}

// ParseMode returns the parse mode of the message.
func (s Sent) ParseMode() tele.ParseMode {
	for _, o := range s.Opts {
		switch v := o.(type) {
		case tele.ParseMode:
			return v
		case *tele.SendOptions:
			return v.ParseMode
		}
	}
	return tele.ModeDefault
}

// Context implements the parts of tele.Context handlers use. Calling any
// other method panics through the nil embedded interface.
type Context struct {
	tele.Context

	mu        sync.Mutex
	update    tele.Update
	store     map[string]any
	Sent      []Sent
	Responses []*tele.CallbackResponse
	// SendErr, when set, is returned by Send, Reply, Edit and EditOrSend.
	SendErr error
}

// Message builds a context for a private text message from userID.
func Message(userID int64, text string) *Context {
	return MessageIn(userID, userID, text)
}

// MessageIn builds a context for a text message in chatID.
func MessageIn(userID, chatID int64, text string) *Context {
	user := &tele.User{ID: userID, FirstName: "Test", Username: "tester"}
	msg := &tele.Message{
		ID:     1,
		Sender: user,
		Chat:   &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		Text:   text,
	}
	if cmd, payload, ok := splitCommand(text); ok && cmd != "" {
		msg.Payload = payload
	}
	return &Context{update: tele.Update{ID: 1, Message: msg}, store: map[string]any{}}
}

// Callback builds a context for a button press carrying raw data.
func Callback(userID, chatID int64, data string) *Context {
	user := &tele.User{ID: userID, FirstName: "Test", Username: "tester"}
	cb := &tele.Callback{
		ID:     "cb",
		Sender: user,
		Data:   data,
		Message: &tele.Message{
			ID:   2,
			Chat: &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		},
	}
	return &Context{update: tele.Update{ID: 2, Callback: cb}, store: map[string]any{}}
}

func splitCommand(text string) (string, string, bool) {
	if len(text) == 0 || text[0] != '/' {
		return "", "", false
	}
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			return text[:i], text[i+1:], true
		}
	}
	return text, "", true
}

func (c *Context) Update() tele.Update { return c.update }

func (c *Context) Message() *tele.Message {
	if c.update.Message != nil {
		return c.update.Message
	}
	if c.update.Callback != nil {
		return c.update.Callback.Message
	}
	return nil
}

func (c *Context) Callback() *tele.Callback { return c.update.Callback }

func (c *Context) Sender() *tele.User {
	if c.update.Callback != nil {
		return c.update.Callback.Sender
	}
	if c.update.Message != nil {
		return c.update.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *Context) Recipient() tele.Recipient {
	if ch := c.Chat(); ch != nil {
		return ch
	}
	return c.Sender()
}

func (c *Context) Text() string {
	if m := c.Message(); m != nil {
		return m.Text
	}
	return ""
}

func (c *Context) Data() string {
	if c.update.Callback != nil {
		return c.update.Callback.Data
	}
	if m := c.Message(); m != nil {
		return m.Payload
	}
	return ""
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = val
}

func (c *Context) record(what any, opts []any, edited bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.Sent = append(c.Sent, Sent{To: c.Recipient(), What: what, Opts: opts, Edited: edited})
	return nil
}

func (c *Context) Send(what any, opts ...any) error { return c.record(what, opts, false) }
func (c *Context) Reply(what any, opts ...any) error { return c.record(what, opts, false) }
func (c *Context) Edit(what any, opts ...any) error { return c.record(what, opts, true) }

func (c *Context) EditOrSend(what any, opts ...any) error {
	return c.record(what, opts, c.update.Callback != nil)
}

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		c.Responses = append(c.Responses, &tele.CallbackResponse{})
		return nil
	}
	c.Responses = append(c.Responses, resp...)
	return nil
}

func (c *Context) Notify(tele.ChatAction) error { return nil }

// Texts returns the bodies of every recorded message.
func (c *Context) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.Sent))
	for _, s := range c.Sent {
		out = append(out, s.Text())
	}
	return out
}

// Last returns the most recent message.
func (c *Context) Last() Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Sent) == 0 {
		return Sent{}
	}
	return c.Sent[len(c.Sent)-1]
}
