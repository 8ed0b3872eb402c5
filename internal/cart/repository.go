package cart

import (
	"context"
	"database/sql"
	"errors"

	"foodcourt-be/internal/db"
	"foodcourt-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const lineColumns = `id, user_id, restaurant_id, food_item_id, quantity, unit_price, created_at, updated_at`

type Repository interface {
	// UpsertLine inserts the line or, when one exists for the same user,
	// restaurant and food item, adds params.Quantity to it.
	UpsertLine(ctx context.Context, params UpsertLineParams) (*CartLine, error)
	// AdjustQuantity adds delta to the line. A result below 1 deletes the
	// line and reports removed=true.
	AdjustQuantity(ctx context.Context, userID int64, lineID uuid.UUID, delta int) (line *CartLine, removed bool, err error)
	DeleteLine(ctx context.Context, userID int64, lineID uuid.UUID) error
	ListLines(ctx context.Context, userID, restaurantID int64) ([]CartLine, error)
	DeleteForUserRestaurant(ctx context.Context, userID, restaurantID int64) (int64, error)
	// ConsumeLines takes each line's Quantity out of the stored line. Lines
	// left with nothing are deleted, lines that grew in the meantime keep the
	// surplus. It reports how many lines were removed and how many reduced.
	ConsumeLines(ctx context.Context, consumed []CartLine) (removed, reduced int64, err error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLine(s scanner) (*CartLine, error) {
	var l CartLine
	err := s.Scan(
		&l.ID,
		&l.UserID,
		&l.RestaurantID,
		&l.FoodItemID,
		&l.Quantity,
		&l.UnitPrice,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) UpsertLine(ctx context.Context, params UpsertLineParams) (*CartLine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpsertLine"),
		zap.Int64("user_id", params.UserID),
		zap.Int64("restaurant_id", params.RestaurantID),
		zap.Int64("food_item_id", params.FoodItemID),
	)

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO carts (id, user_id, restaurant_id, food_item_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, restaurant_id, food_item_id)
		DO UPDATE SET
			quantity = carts.quantity + EXCLUDED.quantity,
			unit_price = EXCLUDED.unit_price,
			updated_at = NOW()
		RETURNING `+lineColumns,
		params.ID,
		params.UserID,
		params.RestaurantID,
		params.FoodItemID,
		params.Quantity,
		params.UnitPrice,
	)

	line, err := scanLine(row)
	if err != nil {
		log.Error("failed to upsert cart line", zap.Error(err))
		return nil, err
	}

	log.Info("cart line saved",
		zap.String("cart_line_id", line.ID.String()),
		zap.Int("quantity", line.Quantity),
	)
	return line, nil
}

func (r *repository) AdjustQuantity(ctx context.Context, userID int64, lineID uuid.UUID, delta int) (*CartLine, bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "AdjustQuantity"),
		zap.Int64("user_id", userID),
		zap.String("cart_line_id", lineID.String()),
		zap.Int("delta", delta),
	)

	var (
		line    *CartLine
		removed bool
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current int
		err := tx.QueryRowContext(ctx, `
			SELECT quantity FROM carts
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`, lineID, userID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartLineNotFound
		}
		if err != nil {
			return err
		}

		if current+delta < 1 {
			removed = true
			_, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, lineID)
			return err
		}

		line, err = scanLine(tx.QueryRowContext(ctx, `
			UPDATE carts
			SET quantity = quantity + $1, updated_at = NOW()
			WHERE id = $2
			RETURNING `+lineColumns,
			delta, lineID,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, ErrCartLineNotFound) {
			log.Info("cart line not found")
		} else {
			log.Error("failed to adjust quantity", zap.Error(err))
		}
		return nil, false, err
	}

	log.Info("cart quantity adjusted", zap.Bool("removed", removed))
	return line, removed, nil
}

func (r *repository) DeleteLine(ctx context.Context, userID int64, lineID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE id = $1 AND user_id = $2
	`, lineID, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (r *repository) ListLines(ctx context.Context, userID, restaurantID int64) ([]CartLine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListLines"),
		zap.Int64("user_id", userID),
		zap.Int64("restaurant_id", restaurantID),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+lineColumns+`
		FROM carts
		WHERE user_id = $1 AND restaurant_id = $2
		ORDER BY created_at, id
	`, userID, restaurantID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	lines := make([]CartLine, 0)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration failed", zap.Error(err))
		return nil, err
	}

	log.Debug("query success", zap.Int("rows", len(lines)))
	return lines, nil
}

func (r *repository) DeleteForUserRestaurant(ctx context.Context, userID, restaurantID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE user_id = $1 AND restaurant_id = $2
	`, userID, restaurantID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) ConsumeLines(ctx context.Context, consumed []CartLine) (int64, int64, error) {
	if len(consumed) == 0 {
		return 0, 0, nil
	}
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ConsumeLines"),
		zap.Int("lines", len(consumed)),
	)

	ids := make([]string, len(consumed))
	qtys := make([]int64, len(consumed))
	for i, l := range consumed {
		ids[i] = l.ID.String()
		qtys[i] = int64(l.Quantity)
	}

	var removed, reduced int64
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM carts c
			USING unnest($1::uuid[], $2::int[]) AS u(id, qty)
			WHERE c.id = u.id AND c.quantity <= u.qty
		`, pq.Array(ids), pq.Array(qtys))
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE carts c
			SET quantity = c.quantity - u.qty, updated_at = NOW()
			FROM unnest($1::uuid[], $2::int[]) AS u(id, qty)
			WHERE c.id = u.id
		`, pq.Array(ids), pq.Array(qtys))
		if err != nil {
			return err
		}
		reduced, err = res.RowsAffected()
		return err
	})
	if err != nil {
		log.Error("failed to consume cart lines", zap.Error(err))
		return 0, 0, err
	}
	return removed, reduced, nil
}
