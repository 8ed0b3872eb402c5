package catalog

import "github.com/shopspring/decimal"

// FoodItem is the catalog's view of a menu entry.
type FoodItem struct {
	ID           int64           `json:"id"`
	RestaurantID int64           `json:"restaurantId"`
	Name         string          `json:"itemName"`
	Price        decimal.Decimal `json:"price"`
	Available    bool            `json:"available"`
}

type Restaurant struct {
	ID          int64  `json:"id"`
	Name        string `json:"restaurantName"`
	OwnerUserID int64  `json:"userId"`
}

// foodItemPayload mirrors the catalog service response. Items published
// before availability was tracked omit the field and count as available.
type foodItemPayload struct {
	ID           int64           `json:"id"`
	RestaurantID int64           `json:"restaurantId"`
	ItemName     string          `json:"itemName"`
	Price        decimal.Decimal `json:"price"`
	Available    *bool           `json:"available"`
}

func (p foodItemPayload) toModel() *FoodItem {
	available := true
	if p.Available != nil {
		available = *p.Available
	}
	return &FoodItem{
		ID:           p.ID,
		RestaurantID: p.RestaurantID,
		Name:         p.ItemName,
		Price:        p.Price,
		Available:    available,
	}
}
