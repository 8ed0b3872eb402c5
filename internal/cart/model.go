package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one food item in a user's cart for a single restaurant.
// Quantity is always at least 1.
type CartLine struct {
	ID           uuid.UUID
	UserID       int64
	RestaurantID int64
	FoodItemID   int64
	Quantity     int
	UnitPrice    decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type AddItemParams struct {
	UserID       int64
	RestaurantID int64
	FoodItemID   int64
	// UnitPrice zero means "use the current catalog price".
	UnitPrice decimal.Decimal
	// Quantity zero defaults to 1.
	Quantity int
}

type UpsertLineParams struct {
	ID           uuid.UUID
	UserID       int64
	RestaurantID int64
	FoodItemID   int64
	Quantity     int
	UnitPrice    decimal.Decimal
}
