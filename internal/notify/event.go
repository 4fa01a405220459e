// Package notify turns backend change events into Telegram messages. Events
// arrive over HTTP, are queued and are delivered by a worker.
package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/m3rciful/estatebot/internal/api"
)

// Type names a backend change.
type Type string

const (
	TypeCustomerTypeChanged Type = "customer.type_changed"
	TypeCustomerVerified    Type = "customer.verified"
	TypePropertyConfirmed   Type = "property.confirmed"
	TypeTourCreated         Type = "tour.created"
)

// ErrInvalidEvent is returned for events missing their type or subject.
var ErrInvalidEvent = errors.New("notify: invalid event")

// Event is one backend change. Which of the record fields are set depends on Type.
type Event struct {
	ID         string        `json:"id"`
	Type       Type          `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
	Customer   *api.Customer `json:"customer,omitempty"`
	Property   *api.Property `json:"property,omitempty"`
	// Owner is the owner of Property.
	Owner *api.Customer `json:"owner,omitempty"`
	Tour  *api.Tour     `json:"tour,omitempty"`
	// ConfirmedCount is the owner's number of confirmed listings.
	ConfirmedCount int `json:"confirmed_count,omitempty"`
}

// Validate checks that the event carries what its type needs.
func (e Event) Validate() error {
	switch e.Type {
	case TypeCustomerTypeChanged, TypeCustomerVerified:
		if e.Customer == nil || e.Customer.TelegramID == "" {
			return fmt.Errorf("%w: %s without customer", ErrInvalidEvent, e.Type)
		}
	case TypePropertyConfirmed:
		if e.Property == nil || e.Property.ID <= 0 {
			return fmt.Errorf("%w: %s without property", ErrInvalidEvent, e.Type)
		}
	case TypeTourCreated:
		if e.Tour == nil {
			return fmt.Errorf("%w: %s without tour", ErrInvalidEvent, e.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}
