package order

import "foodcourt-be/internal/apperr"

var (
	// -- Validation & Input --
	ErrInvalidUser       = apperr.Wrap(apperr.ErrInvalidInput, "user id is required")
	ErrInvalidRestaurant = apperr.Wrap(apperr.ErrInvalidInput, "restaurant id is required")
	ErrInvalidAddress    = apperr.Wrap(apperr.ErrInvalidInput, "delivery address id is required")
	ErrInvalidItems      = apperr.Wrap(apperr.ErrInvalidInput, "requested items must have a food item id and a positive quantity")
	ErrCartMismatch      = apperr.Wrap(apperr.ErrInvalidInput, "requested items do not match the cart")
	ErrItemUnavailable   = apperr.Wrap(apperr.ErrInvalidInput, "a food item in the cart is no longer available")
	ErrItemNotInMenu     = apperr.Wrap(apperr.ErrInvalidInput, "a food item in the cart belongs to another restaurant")

	// -- Authentication/Authorization --
	ErrNotOrderOwner      = apperr.Wrap(apperr.ErrForbidden, "order belongs to another user")
	ErrNotRestaurantOwner = apperr.Wrap(apperr.ErrForbidden, "order belongs to another restaurant")

	// -- Resource State --
	ErrOrderNotFound          = apperr.Wrap(apperr.ErrNotFound, "order not found")
	ErrEmptyCart              = apperr.Wrap(apperr.ErrEmptyCart, "cart has no items for this restaurant")
	ErrInvalidState           = apperr.Wrap(apperr.ErrInvalidState, "order is no longer placed")
	ErrWindowExpired          = apperr.Wrap(apperr.ErrCancellationWindowExpired, "cancellation window has passed")
	ErrIdempotencyKeyConsumed = apperr.Wrap(apperr.ErrInvalidState, "idempotency key was used for a different or refunded charge, retry with a new key")
	ErrDuplicateOrder         = apperr.Wrap(apperr.ErrInvalidState, "order already exists")

	// -- Constants (External Systems) --
	PgUniqueViolation = "23505"
)
