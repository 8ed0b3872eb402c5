package catalog

import (
	"errors"

	"foodcourt-be/internal/apperr"
)

var (
	ErrFoodItemNotFound   = apperr.Wrap(apperr.ErrNotFound, "food item not found")
	ErrRestaurantNotFound = apperr.Wrap(apperr.ErrNotFound, "restaurant not found")

	ErrCacheMiss = errors.New("catalog cache miss")
)
