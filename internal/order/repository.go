package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodcourt-be/internal/db"
	"foodcourt-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const orderColumns = `id, user_id, restaurant_id, delivery_address_id, COALESCE(idempotency_key, ''), total_price, status, order_time, status_changed_at`

type Repository interface {
	// Create stores the order and its items atomically. A clash on id or
	// idempotency key returns ErrDuplicateOrder.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	// Transition moves the order from -> to only if it is still in from and
	// the state machine allows the move.
	// It reports false when another writer got there first.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Order, error)
	ListByRestaurant(ctx context.Context, restaurantID int64, limit, offset int) ([]Order, error)
	// ListByStatusChangedBetween returns orders in status whose last change
	// falls in [from, to).
	ListByStatusChangedBetween(ctx context.Context, status Status, from, to time.Time) ([]Order, error)
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

func scanOrder(s scanner) (*Order, error) {
	var o Order
	err := s.Scan(
		&o.ID,
		&o.UserID,
		&o.RestaurantID,
		&o.DeliveryAddressID,
		&o.IdempotencyKey,
		&o.TotalPrice,
		&o.Status,
		&o.OrderTime,
		&o.StatusChangedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.String("order_id", o.ID.String()),
		zap.Int64("user_id", o.UserID),
	)

	var key sql.NullString
	if o.IdempotencyKey != "" {
		key = sql.NullString{String: o.IdempotencyKey, Valid: true}
	}

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (
				id, user_id, restaurant_id, delivery_address_id, idempotency_key,
				total_price, status, order_time, status_changed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			o.ID,
			o.UserID,
			o.RestaurantID,
			o.DeliveryAddressID,
			key,
			o.TotalPrice,
			o.Status,
			o.OrderTime,
			o.StatusChangedAt,
		)
		if err != nil {
			return err
		}

		for pos, item := range o.Items {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (
					order_id, position, food_item_id, quantity, unit_price_at_order_time
				) VALUES ($1, $2, $3, $4, $5)
			`,
				o.ID,
				pos,
				item.FoodItemID,
				item.Quantity,
				item.UnitPriceAtOrderTime,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation {
		log.Info("order already exists")
		return ErrDuplicateOrder
	}
	if err != nil {
		log.Error("failed to create order", zap.Error(err))
		return err
	}

	log.Info("order created",
		zap.Int("items", len(o.Items)),
		zap.String("total_price", o.TotalPrice.String()),
	)
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	return r.getOne(ctx, `WHERE idempotency_key = $1`, key)
}

func (r *repository) getOne(ctx context.Context, where string, arg any) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error) {
	if !CanTransition(from, to) {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, status_changed_at = $2
		WHERE id = $3 AND status = $4
	`, to, at, id, from)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to transition order",
			zap.String("layer", "repository"),
			zap.String("order_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return false, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Order, error) {
	return r.list(ctx, "ListByUser", `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY order_time DESC, id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
}

func (r *repository) ListByRestaurant(ctx context.Context, restaurantID int64, limit, offset int) ([]Order, error) {
	return r.list(ctx, "ListByRestaurant", `
		SELECT `+orderColumns+`
		FROM orders
		WHERE restaurant_id = $1
		ORDER BY order_time DESC, id
		LIMIT $2 OFFSET $3
	`, restaurantID, limit, offset)
}

func (r *repository) ListByStatusChangedBetween(ctx context.Context, status Status, from, to time.Time) ([]Order, error) {
	return r.list(ctx, "ListByStatusChangedBetween", `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1 AND status_changed_at >= $2 AND status_changed_at < $3
		ORDER BY status_changed_at
	`, status, from, to)
}

func (r *repository) list(ctx context.Context, method, query string, args ...any) ([]Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
	)

	start := time.Now()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ptrs []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, err
	}

	if err := r.attachItems(ctx, ptrs); err != nil {
		log.Error("failed to load order items", zap.Error(err))
		return nil, err
	}

	orders := make([]Order, len(ptrs))
	for i, o := range ptrs {
		orders[i] = *o
	}

	log.Debug("query success",
		zap.Int("count", len(orders)),
		zap.Duration("duration", time.Since(start)),
	)
	return orders, nil
}

// attachItems loads the items of every order in one query.
func (r *repository) attachItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[uuid.UUID]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		byID[o.ID] = o
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, food_item_id, quantity, unit_price_at_order_time
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			item    Item
		)
		if err := rows.Scan(&orderID, &item.FoodItemID, &item.Quantity, &item.UnitPriceAtOrderTime); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}
