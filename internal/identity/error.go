package identity

import "foodcourt-be/internal/apperr"

var (
	ErrUserNotFound    = apperr.Wrap(apperr.ErrNotFound, "user not found")
	ErrAddressNotFound = apperr.Wrap(apperr.ErrNotFound, "delivery address not found")
	ErrInvalidUser     = apperr.Wrap(apperr.ErrInvalidInput, "user id is required")
	ErrInvalidAddress  = apperr.Wrap(apperr.ErrInvalidInput, "delivery address id is required")
)
