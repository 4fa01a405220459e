package middleware

import tele "gopkg.in/telebot.v4"

// metricsContext counts replies sent during an update for the handler summary line.
type metricsContext struct{ tele.Context }

func (m metricsContext) count(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	n, _ := m.Get("messages").(int)
	m.Set("messages", n+1)
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				m.Set("kb", true)
			}
		case *tele.ReplyMarkup:
			if v != nil {
				m.Set("kb", true)
			}
		}
	}
	return nil
}

func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Send(what, opts...), opts)
}

func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Reply(what, opts...), opts)
}

func (m metricsContext) Edit(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Edit(what, opts...), opts)
}

func (m metricsContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.EditOrSend(what, opts...), opts)
}

// MessageMetricsMiddleware wraps the context so GetCounters can report what the handler sent.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, wrapped := c.(metricsContext); wrapped {
			return next(c)
		}
		c.Set("messages", 0)
		c.Set("kb", false)
		return next(metricsContext{Context: c})
	}
}

// GetCounters returns the number of messages sent and whether any carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get("messages").(int)
	kb, _ := c.Get("kb").(bool)
	return msgs, kb
}
