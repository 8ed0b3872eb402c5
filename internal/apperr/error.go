package apperr

import (
	"errors"
	"fmt"
)

// Error kinds shared by every domain package. Domain errors wrap exactly one
// of these so the transport layer can map them with errors.Is.
var (
	// -- Caller mistakes, rejected before any side effect --
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")

	// -- Resource state --
	ErrNotFound                  = errors.New("not found")
	ErrEmptyCart                 = errors.New("cart is empty")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrInvalidState              = errors.New("invalid state")
	ErrCancellationWindowExpired = errors.New("cancellation window expired")

	// -- Infrastructure, safe to retry with backoff --
	ErrUnavailable = errors.New("unavailable")
)

// Wrap returns an error that matches kind and carries msg.
func Wrap(kind error, msg string) error {
	return fmt.Errorf("%w: %s", kind, msg)
}

// Unavailable marks err as a retryable downstream failure while keeping the
// cause reachable through errors.Is / errors.As.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// Classify returns err unchanged when it already carries a kind, and marks
// anything else (timeouts, driver errors) as Unavailable.
func Classify(op string, err error) error {
	if err == nil || Kind(err) != nil {
		return err
	}
	return Unavailable(op, err)
}

// Kind reports which sentinel err wraps, or nil when it wraps none.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidInput,
		ErrForbidden,
		ErrNotFound,
		ErrEmptyCart,
		ErrInsufficientFunds,
		ErrInvalidState,
		ErrCancellationWindowExpired,
		ErrUnavailable,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
