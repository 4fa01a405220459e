package api

import (
	"context"
	"fmt"
	"net/http"
)

// CreateRequest opens a live-agent ticket.
func (c *Client) CreateRequest(ctx context.Context, r LiveRequest) (*LiveRequest, error) {
	body := map[string]any{
		"user_id":         r.UserID,
		"username":        r.Username,
		"name":            r.Name,
		"phone":           r.Phone,
		"address":         r.Address,
		"additional_text": r.AdditionalText,
	}
	var out LiveRequest
	err := c.do(ctx, call{op: "create_request", method: http.MethodPost, url: c.live + "/requests/", body: body, out: &out, want: createOK})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRequests returns every ticket.
func (c *Client) ListRequests(ctx context.Context) ([]LiveRequest, error) {
	var out []LiveRequest
	if err := c.do(ctx, call{op: "list_requests", method: http.MethodGet, url: c.live + "/requests/", out: &out, want: fetchOK}); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRequest returns ErrNotFound for unknown ticket ids.
func (c *Client) GetRequest(ctx context.Context, id int64) (*LiveRequest, error) {
	var out LiveRequest
	err := c.do(ctx, call{
		op:       "get_request",
		method:   http.MethodGet,
		url:      fmt.Sprintf("%s/requests/%d/", c.live, id),
		out:      &out,
		want:     fetchOK,
		notFound: true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkRequestResponded sets is_responded on a ticket.
func (c *Client) MarkRequestResponded(ctx context.Context, id int64) error {
	return c.do(ctx, call{
		op:       "mark_request_responded",
		method:   http.MethodPatch,
		url:      fmt.Sprintf("%s/requests/%d/", c.live, id),
		body:     map[string]bool{"is_responded": true},
		want:     []int{http.StatusOK, http.StatusNoContent},
		notFound: true,
	})
}

// CreateMessage appends a message to a ticket thread.
func (c *Client) CreateMessage(ctx context.Context, m Message) (*Message, error) {
	body := map[string]any{
		"request":   m.Request,
		"sender_id": m.SenderID,
		"user_id":   m.UserID,
		"content":   m.Content,
	}
	var out Message
	err := c.do(ctx, call{op: "create_message", method: http.MethodPost, url: c.live + "/messages/", body: body, out: &out, want: createOK})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages returns every thread message.
func (c *Client) ListMessages(ctx context.Context) ([]Message, error) {
	var out []Message
	if err := c.do(ctx, call{op: "list_messages", method: http.MethodGet, url: c.live + "/messages/", out: &out, want: fetchOK}); err != nil {
		return nil, err
	}
	return out, nil
}
