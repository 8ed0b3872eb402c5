package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodcourt-be/internal/db"
	"foodcourt-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const entryColumns = `id, user_id, operation_id, kind, amount, reference, balance_after, created_at`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repository struct {
	db *sql.DB
}

// NewRepository returns a Postgres-backed Ledger. Debits are a conditional
// UPDATE so concurrent debits on one account cannot overdraw it.
func NewRepository(db *sql.DB) Ledger {
	return &repository{db: db}
}

func (r *repository) OpenAccount(ctx context.Context, userID int64, initial decimal.Decimal) (*Account, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "OpenAccount"),
		zap.Int64("user_id", userID),
	)

	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	if initial.IsNegative() {
		return nil, ErrInvalidAmount
	}

	acc := &Account{}
	created := true
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO wallets (user_id, balance)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO NOTHING
			RETURNING user_id, balance, created_at, updated_at
		`, userID, initial).Scan(&acc.UserID, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			created = false
			return tx.QueryRowContext(ctx, `
				SELECT user_id, balance, created_at, updated_at
				FROM wallets
				WHERE user_id = $1
			`, userID).Scan(&acc.UserID, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt)
		}
		if err != nil {
			return err
		}

		if !initial.IsPositive() {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_entries (id, user_id, operation_id, kind, amount, reference, balance_after)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New(), userID, openOperationID(userID), EntryKindCredit, initial, "signup", acc.Balance)
		return err
	})
	if err != nil {
		log.Error("failed to open wallet", zap.Error(err))
		return nil, err
	}

	log.Info("wallet ready",
		zap.Bool("created", created),
		zap.String("balance", acc.Balance.String()),
	)
	return acc, nil
}

func (r *repository) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT balance FROM wallets WHERE user_id = $1
	`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *repository) Debit(ctx context.Context, params MutationParams) (*Entry, error) {
	return r.mutate(ctx, EntryKindDebit, params)
}

func (r *repository) Credit(ctx context.Context, params MutationParams) (*Entry, error) {
	return r.mutate(ctx, EntryKindCredit, params)
}

func (r *repository) mutate(ctx context.Context, kind EntryKind, params MutationParams) (*Entry, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", string(kind)),
		zap.Int64("user_id", params.UserID),
		zap.String("operation_id", params.OperationID),
		zap.String("amount", params.Amount.String()),
	)

	if err := params.validate(); err != nil {
		log.Warn("invalid wallet mutation", zap.Error(err))
		return nil, err
	}

	entry, replayed, err := r.applyOnce(ctx, kind, params)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation {
		// a concurrent call with the same operation id committed first
		log.Info("operation raced, returning committed entry")
		committed, err := r.getEntry(ctx, r.db, params.OperationID)
		if err != nil {
			return nil, err
		}
		if err := committed.sameOperation(kind, params); err != nil {
			log.Warn("raced operation differs from request", zap.Error(err))
			return nil, err
		}
		return committed, nil
	}
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			log.Info("debit rejected: insufficient funds")
		} else if errors.Is(err, ErrOperationConflict) {
			log.Warn("operation id reused with different parameters")
		} else {
			log.Error("wallet mutation failed", zap.Error(err))
		}
		return nil, err
	}

	if replayed {
		log.Info("operation already applied")
	} else {
		log.Info("wallet mutation applied", zap.String("balance_after", entry.BalanceAfter.String()))
	}
	return entry, nil
}

func (r *repository) applyOnce(ctx context.Context, kind EntryKind, params MutationParams) (*Entry, bool, error) {
	var (
		entry    *Entry
		replayed bool
	)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := r.getEntry(ctx, tx, params.OperationID)
		if err == nil {
			if err := existing.sameOperation(kind, params); err != nil {
				return err
			}
			entry, replayed = existing, true
			return nil
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return err
		}

		query := `
			UPDATE wallets
			SET balance = balance + $1, updated_at = NOW()
			WHERE user_id = $2
			RETURNING balance
		`
		if kind == EntryKindDebit {
			query = `
			UPDATE wallets
			SET balance = balance - $1, updated_at = NOW()
			WHERE user_id = $2 AND balance >= $1
			RETURNING balance
		`
		}

		var balance decimal.Decimal
		err = tx.QueryRowContext(ctx, query, params.Amount, params.UserID).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return r.missReason(ctx, tx, kind, params.UserID)
		}
		if err != nil {
			return err
		}

		entry = &Entry{
			ID:           uuid.New(),
			UserID:       params.UserID,
			OperationID:  params.OperationID,
			Kind:         kind,
			Amount:       params.Amount,
			Reference:    params.Reference,
			BalanceAfter: balance,
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO wallet_entries (id, user_id, operation_id, kind, amount, reference, balance_after)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`,
			entry.ID,
			entry.UserID,
			entry.OperationID,
			entry.Kind,
			entry.Amount,
			entry.Reference,
			entry.BalanceAfter,
		).Scan(&entry.CreatedAt)
	})
	if err != nil {
		return nil, false, err
	}
	return entry, replayed, nil
}

// missReason explains why the conditional UPDATE matched no row.
func (r *repository) missReason(ctx context.Context, tx *sql.Tx, kind EntryKind, userID int64) error {
	if kind == EntryKindCredit {
		return ErrAccountNotFound
	}
	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1)
	`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound
	}
	return ErrInsufficientFunds
}

func (r *repository) getEntry(ctx context.Context, q queryer, operationID string) (*Entry, error) {
	var e Entry
	err := q.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM wallet_entries
		WHERE operation_id = $1
	`, operationID).Scan(
		&e.ID,
		&e.UserID,
		&e.OperationID,
		&e.Kind,
		&e.Amount,
		&e.Reference,
		&e.BalanceAfter,
		&e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) GetEntry(ctx context.Context, operationID string) (*Entry, error) {
	return r.getEntry(ctx, r.db, operationID)
}

func (r *repository) ListDebits(ctx context.Context, from, to time.Time) ([]Entry, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListDebits"),
		zap.Time("from", from),
		zap.Time("to", to),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM wallet_entries
		WHERE kind = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`, EntryKindDebit, from, to)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.OperationID,
			&e.Kind,
			&e.Amount,
			&e.Reference,
			&e.BalanceAfter,
			&e.CreatedAt,
		); err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration failed", zap.Error(err))
		return nil, err
	}

	log.Debug("query success", zap.Int("rows", len(entries)))
	return entries, nil
}
