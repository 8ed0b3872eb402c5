package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger holds a non-negative balance per user. Debit and Credit are atomic
// per account and idempotent per OperationID.
type Ledger interface {
	// OpenAccount creates the wallet with an initial credit. Opening an
	// existing wallet returns it unchanged.
	OpenAccount(ctx context.Context, userID int64, initial decimal.Decimal) (*Account, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	// Debit fails with ErrInsufficientFunds, never partially, when the
	// amount exceeds the balance.
	Debit(ctx context.Context, params MutationParams) (*Entry, error)
	Credit(ctx context.Context, params MutationParams) (*Entry, error)
	// GetEntry returns the entry written by operationID, or ErrEntryNotFound.
	GetEntry(ctx context.Context, operationID string) (*Entry, error)
	// ListDebits returns debit entries created in [from, to).
	ListDebits(ctx context.Context, from, to time.Time) ([]Entry, error)
}
