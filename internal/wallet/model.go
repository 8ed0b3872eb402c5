package wallet

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
)

// Account is a user's wallet. Balance never drops below zero.
type Account struct {
	UserID    int64
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is the journal row written with every balance change. OperationID is
// unique, so replaying an operation returns the original entry.
type Entry struct {
	ID           uuid.UUID
	UserID       int64
	OperationID  string
	Kind         EntryKind
	Amount       decimal.Decimal
	Reference    string
	BalanceAfter decimal.Decimal
	CreatedAt    time.Time
}

// MutationParams describes one debit or credit.
type MutationParams struct {
	UserID      int64
	Amount      decimal.Decimal
	OperationID string
	Reference   string
}

func (p MutationParams) validate() error {
	if p.UserID <= 0 {
		return ErrInvalidUser
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.OperationID == "" {
		return ErrMissingOperationID
	}
	return nil
}

// sameOperation reports whether a stored entry was written by an identical
// request. A replay with a different user, kind or amount is a conflict.
func (e *Entry) sameOperation(kind EntryKind, params MutationParams) error {
	if e.UserID != params.UserID || e.Kind != kind || !e.Amount.Equal(params.Amount) {
		return ErrOperationConflict
	}
	return nil
}

func openOperationID(userID int64) string {
	return "wallet:" + strconv.FormatInt(userID, 10) + ":open"
}
