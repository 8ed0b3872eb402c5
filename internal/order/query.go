package order

import (
	"context"
	"time"

	"foodcourt-be/internal/catalog"
	"foodcourt-be/internal/logger"
	"foodcourt-be/internal/utils"

	"go.uber.org/zap"
)

// QueryService lists orders newest first, each with its items and the
// cancellation countdown as of the read.
type QueryService struct {
	repo    Repository
	catalog catalog.Reader
	window  time.Duration
	now     func() time.Time
}

func NewQueryService(repo Repository, catalogReader catalog.Reader, window time.Duration, now func() time.Time) *QueryService {
	if window <= 0 {
		window = DefaultCancellationWindow
	}
	if now == nil {
		now = time.Now
	}
	return &QueryService{repo: repo, catalog: catalogReader, window: window, now: now}
}

func (q *QueryService) ListForUser(ctx context.Context, userID int64, page utils.Pagination) ([]View, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	page = page.Normalize()

	orders, err := q.repo.ListByUser(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list user orders",
			zap.String("layer", "query"),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	return q.views(orders), nil
}

// ListForRestaurant is restricted to the restaurant's owner.
func (q *QueryService) ListForRestaurant(ctx context.Context, restaurantID, actorUserID int64, page utils.Pagination) ([]View, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "query"),
		zap.Int64("restaurant_id", restaurantID),
		zap.Int64("actor_id", actorUserID),
	)

	if restaurantID <= 0 {
		return nil, ErrInvalidRestaurant
	}
	r, err := q.catalog.GetRestaurant(ctx, restaurantID)
	if err != nil {
		log.Warn("restaurant lookup failed", zap.Error(err))
		return nil, err
	}
	if r.OwnerUserID != actorUserID {
		return nil, ErrNotRestaurantOwner
	}

	page = page.Normalize()
	orders, err := q.repo.ListByRestaurant(ctx, restaurantID, page.Limit, page.Offset())
	if err != nil {
		log.Error("failed to list restaurant orders", zap.Error(err))
		return nil, err
	}
	return q.views(orders), nil
}

func (q *QueryService) views(orders []Order) []View {
	now := q.now()
	out := make([]View, len(orders))
	for i, o := range orders {
		out[i] = NewView(o, now, q.window)
	}
	return out
}
