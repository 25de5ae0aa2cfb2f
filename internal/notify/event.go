// Package notify defines the dispatch notification contract.
//
// Events are fire-and-forget: a failed publish is logged and counted but never fails the
// operation that produced the event.
package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType names a dispatch notification.
type EventType string

// List of event types
const (
	OrderNearby      EventType = "order_nearby"
	RequestCreated   EventType = "request_created"
	RequestAccepted  EventType = "request_accepted"
	RequestRejected  EventType = "request_rejected"
	RequestCancelled EventType = "request_cancelled"
)

// Event is a single dispatch notification.
type Event struct {
	ID         string    `json:"event_id"`
	Type       EventType `json:"type"`
	OrderID    int64     `json:"order_id"`
	PartnerID  int64     `json:"partner_id"`
	RequestID  int64     `json:"request_id,omitempty"`
	DistanceKm float64   `json:"distance_km,omitempty"`
	Fee        float64   `json:"fee,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New returns an event of the given type with a fresh id.
func New(t EventType, orderID, partnerID int64, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OrderID:    orderID,
		PartnerID:  partnerID,
		OccurredAt: at,
	}
}

// Key is the partition key: events for one order stay ordered.
func (e Event) Key() string {
	return "order-" + strconv.FormatInt(e.OrderID, 10)
}

// Publisher delivers events to the notification channel.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type nopPublisher struct{}

// Nop returns a Publisher that drops every event.
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }
