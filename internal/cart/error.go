package cart

import "foodcourt-be/internal/apperr"

var (
	// -- Validation & Input --
	ErrInvalidUser       = apperr.Wrap(apperr.ErrInvalidInput, "user id is required")
	ErrInvalidRestaurant = apperr.Wrap(apperr.ErrInvalidInput, "restaurant id is required")
	ErrInvalidFoodItem   = apperr.Wrap(apperr.ErrInvalidInput, "food item id is required")
	ErrInvalidQuantity   = apperr.Wrap(apperr.ErrInvalidInput, "invalid cart quantity")
	ErrInvalidUnitPrice  = apperr.Wrap(apperr.ErrInvalidInput, "unit price must be greater than zero")
	ErrItemUnavailable   = apperr.Wrap(apperr.ErrInvalidInput, "food item is not available")
	ErrItemNotInMenu     = apperr.Wrap(apperr.ErrInvalidInput, "food item does not belong to the restaurant")

	// -- Resource State --
	ErrCartLineNotFound = apperr.Wrap(apperr.ErrNotFound, "cart item not found")
)
