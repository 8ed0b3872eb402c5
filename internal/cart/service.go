package cart

import (
	"context"
	"errors"

	"foodcourt-be/internal/catalog"
	"foodcourt-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the business logic for carts. Every operation takes the
// acting user explicitly.
type Service interface {
	AddItem(ctx context.Context, params AddItemParams) (*CartLine, error)
	ChangeQuantity(ctx context.Context, userID int64, lineID uuid.UUID, delta int) (line *CartLine, removed bool, err error)
	RemoveLine(ctx context.Context, userID int64, lineID uuid.UUID) error
	ListForUserRestaurant(ctx context.Context, userID, restaurantID int64) ([]CartLine, error)
	ClearForUserRestaurant(ctx context.Context, userID, restaurantID int64) error
	// ConsumeLines takes the given lines out of the cart as they were read.
	// Quantity added after the read stays in the cart.
	ConsumeLines(ctx context.Context, consumed []CartLine) error
}

type service struct {
	repo    Repository
	catalog catalog.Reader
}

func NewService(repo Repository, catalogReader catalog.Reader) Service {
	return &service{repo: repo, catalog: catalogReader}
}

// AddItem verifies the food item against the catalog and merges it into
// the cart, incrementing an existing line for the same item.
func (s *service) AddItem(ctx context.Context, params AddItemParams) (*CartLine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.Int64("user_id", params.UserID),
		zap.Int64("restaurant_id", params.RestaurantID),
		zap.Int64("food_item_id", params.FoodItemID),
	)

	switch {
	case params.UserID <= 0:
		return nil, ErrInvalidUser
	case params.RestaurantID <= 0:
		return nil, ErrInvalidRestaurant
	case params.FoodItemID <= 0:
		return nil, ErrInvalidFoodItem
	case params.Quantity < 0:
		return nil, ErrInvalidQuantity
	case params.UnitPrice.IsNegative():
		return nil, ErrInvalidUnitPrice
	}

	qty := params.Quantity
	if qty == 0 {
		qty = 1
	}

	item, err := s.catalog.GetFoodItem(ctx, params.FoodItemID)
	if err != nil {
		log.Warn("catalog lookup failed", zap.Error(err))
		return nil, err
	}
	if item.RestaurantID != params.RestaurantID {
		log.Warn("food item belongs to another restaurant", zap.Int64("item_restaurant_id", item.RestaurantID))
		return nil, ErrItemNotInMenu
	}
	if !item.Available {
		log.Info("food item unavailable")
		return nil, ErrItemUnavailable
	}

	price := params.UnitPrice
	if price.IsZero() {
		price = item.Price
	}

	line, err := s.repo.UpsertLine(ctx, UpsertLineParams{
		ID:           uuid.New(),
		UserID:       params.UserID,
		RestaurantID: params.RestaurantID,
		FoodItemID:   params.FoodItemID,
		Quantity:     qty,
		UnitPrice:    price,
	})
	if err != nil {
		log.Error("failed to add cart item", zap.Error(err))
		return nil, err
	}
	return line, nil
}

// ChangeQuantity applies a signed delta. Any result below 1, including a
// decrement past zero, removes the line and reports removed=true.
func (s *service) ChangeQuantity(ctx context.Context, userID int64, lineID uuid.UUID, delta int) (*CartLine, bool, error) {
	if userID <= 0 {
		return nil, false, ErrInvalidUser
	}
	if delta == 0 {
		return nil, false, ErrInvalidQuantity
	}
	return s.repo.AdjustQuantity(ctx, userID, lineID, delta)
}

func (s *service) RemoveLine(ctx context.Context, userID int64, lineID uuid.UUID) error {
	if userID <= 0 {
		return ErrInvalidUser
	}

	err := s.repo.DeleteLine(ctx, userID, lineID)
	if err != nil && !errors.Is(err, ErrCartLineNotFound) {
		logger.FromCtx(ctx).Error("failed to remove cart line",
			zap.String("layer", "service"),
			zap.String("method", "RemoveLine"),
			zap.String("cart_line_id", lineID.String()),
			zap.Error(err),
		)
	}
	return err
}

func (s *service) ListForUserRestaurant(ctx context.Context, userID, restaurantID int64) ([]CartLine, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	if restaurantID <= 0 {
		return nil, ErrInvalidRestaurant
	}
	return s.repo.ListLines(ctx, userID, restaurantID)
}

// ClearForUserRestaurant empties the cart. Clearing an empty cart succeeds.
func (s *service) ClearForUserRestaurant(ctx context.Context, userID, restaurantID int64) error {
	if userID <= 0 {
		return ErrInvalidUser
	}
	if restaurantID <= 0 {
		return ErrInvalidRestaurant
	}

	n, err := s.repo.DeleteForUserRestaurant(ctx, userID, restaurantID)
	if err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("cart cleared",
		zap.Int64("user_id", userID),
		zap.Int64("restaurant_id", restaurantID),
		zap.Int64("lines", n),
	)
	return nil
}

func (s *service) ConsumeLines(ctx context.Context, consumed []CartLine) error {
	removed, reduced, err := s.repo.ConsumeLines(ctx, consumed)
	if err != nil {
		return err
	}
	if reduced > 0 {
		logger.FromCtx(ctx).Info("cart lines grew during checkout, surplus kept",
			zap.String("layer", "service"),
			zap.String("method", "ConsumeLines"),
			zap.Int64("removed", removed),
			zap.Int64("reduced", reduced),
		)
	}
	return nil
}
