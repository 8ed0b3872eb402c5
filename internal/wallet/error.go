package wallet

import "foodcourt-be/internal/apperr"

var (
	// -- Validation & Input --
	ErrInvalidUser        = apperr.Wrap(apperr.ErrInvalidInput, "wallet user id is required")
	ErrInvalidAmount      = apperr.Wrap(apperr.ErrInvalidInput, "amount must be greater than zero")
	ErrMissingOperationID = apperr.Wrap(apperr.ErrInvalidInput, "operation id is required")

	// -- Resource State --
	ErrAccountNotFound   = apperr.Wrap(apperr.ErrNotFound, "wallet account not found")
	ErrInsufficientFunds = apperr.Wrap(apperr.ErrInsufficientFunds, "insufficient balance in wallet")
	ErrEntryNotFound     = apperr.Wrap(apperr.ErrNotFound, "wallet entry not found")
	ErrOperationConflict = apperr.Wrap(apperr.ErrInvalidState, "operation id already used with different parameters")

	// -- Constants (External Systems) --
	PgUniqueViolation = "23505"
)
