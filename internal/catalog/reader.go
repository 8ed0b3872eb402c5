package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Reader is the read-only catalog lookup. Every method is safe to retry.
type Reader interface {
	GetFoodItem(ctx context.Context, id int64) (*FoodItem, error)
	GetPrice(ctx context.Context, id int64) (decimal.Decimal, error)
	GetRestaurant(ctx context.Context, id int64) (*Restaurant, error)
}
