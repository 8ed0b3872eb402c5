package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventPlaced    EventType = "order.placed"
	EventCancelled EventType = "order.cancelled"
	EventCompleted EventType = "order.completed"
)

// Event is the lifecycle notification published after a state change.
type Event struct {
	Type         EventType       `json:"type"`
	OrderID      uuid.UUID       `json:"orderId"`
	UserID       int64           `json:"userId"`
	RestaurantID int64           `json:"restaurantId"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Status       Status          `json:"status"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

func newEvent(t EventType, o *Order, at time.Time) Event {
	return Event{
		Type:         t,
		OrderID:      o.ID,
		UserID:       o.UserID,
		RestaurantID: o.RestaurantID,
		TotalPrice:   o.TotalPrice,
		Status:       o.Status,
		OccurredAt:   at,
	}
}

// Publisher delivers events keyed by order id. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// EventType lets publishers tag messages without decoding them.
func (e Event) EventType() string { return string(e.Type) }
