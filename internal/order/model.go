package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransition is the order state machine: PLACED moves to CANCELLED or
// COMPLETED, terminal states move nowhere.
func CanTransition(from, to Status) bool {
	return from == StatusPlaced && (to == StatusCancelled || to == StatusCompleted)
}

// Item is a line of a placed order. Its price is the one resolved at
// placement and never changes afterwards.
type Item struct {
	FoodItemID           int64
	Quantity             int
	UnitPriceAtOrderTime decimal.Decimal
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPriceAtOrderTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID                uuid.UUID
	UserID            int64
	RestaurantID      int64
	DeliveryAddressID int64
	IdempotencyKey    string
	Items             []Item
	TotalPrice        decimal.Decimal
	Status            Status
	OrderTime         time.Time
	StatusChangedAt   time.Time
}

// Total sums quantity times unit price over items.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// RequestedItem is the caller's view of a cart line, checked against the
// stored cart before placement.
type RequestedItem struct {
	FoodItemID int64
	Quantity   int
}

type PlaceOrderParams struct {
	UserID            int64
	RestaurantID      int64
	DeliveryAddressID int64
	IdempotencyKey    string
	Items             []RequestedItem
}

type PlaceOrderResult struct {
	Order *Order
	// Replayed is set when the idempotency key matched an existing order.
	Replayed bool
}

type CancelResult struct {
	Status         Status
	RefundedAmount decimal.Decimal
}

type CompleteResult struct {
	Status Status
}

// View is an order as served to readers, with the cancellation countdown
// computed at read time.
type View struct {
	Order
	Cancellable            bool
	CancelSecondsRemaining int
}
