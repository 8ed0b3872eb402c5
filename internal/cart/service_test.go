package cart

import (
	"context"
	"errors"
	"testing"

	"foodcourt-be/internal/apperr"
	"foodcourt-be/internal/catalog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpsertLine(ctx context.Context, params UpsertLineParams) (*CartLine, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CartLine), args.Error(1)
}

func (m *MockRepository) AdjustQuantity(ctx context.Context, userID int64, lineID uuid.UUID, delta int) (*CartLine, bool, error) {
	args := m.Called(ctx, userID, lineID, delta)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*CartLine), args.Bool(1), args.Error(2)
}

func (m *MockRepository) DeleteLine(ctx context.Context, userID int64, lineID uuid.UUID) error {
	args := m.Called(ctx, userID, lineID)
	return args.Error(0)
}

func (m *MockRepository) ListLines(ctx context.Context, userID, restaurantID int64) ([]CartLine, error) {
	args := m.Called(ctx, userID, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CartLine), args.Error(1)
}

func (m *MockRepository) DeleteForUserRestaurant(ctx context.Context, userID, restaurantID int64) (int64, error) {
	args := m.Called(ctx, userID, restaurantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ConsumeLines(ctx context.Context, consumed []CartLine) (int64, int64, error) {
	args := m.Called(ctx, consumed)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockCatalog is a mock for the catalog reader
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetFoodItem(ctx context.Context, id int64) (*catalog.FoodItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.FoodItem), args.Error(1)
}

func (m *MockCatalog) GetPrice(ctx context.Context, id int64) (decimal.Decimal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCatalog) GetRestaurant(ctx context.Context, id int64) (*catalog.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Restaurant), args.Error(1)
}

func TestService_AddItem(t *testing.T) {
	ctx := context.Background()
	dosa := &catalog.FoodItem{ID: 7, RestaurantID: 3, Price: decimal.NewFromInt(120), Available: true}

	t.Run("Snapshots catalog price", func(t *testing.T) {
		repo := new(MockRepository)
		cat := new(MockCatalog)
		svc := NewService(repo, cat)

		cat.On("GetFoodItem", ctx, int64(7)).Return(dosa, nil)
		repo.On("UpsertLine", ctx, mock.MatchedBy(func(p UpsertLineParams) bool {
			return p.UserID == 1 && p.RestaurantID == 3 && p.FoodItemID == 7 &&
				p.Quantity == 1 && p.UnitPrice.Equal(decimal.NewFromInt(120)) && p.ID != uuid.Nil
		})).Return(&CartLine{Quantity: 1}, nil)

		line, err := svc.AddItem(ctx, AddItemParams{UserID: 1, RestaurantID: 3, FoodItemID: 7})
		require.NoError(t, err)
		assert.Equal(t, 1, line.Quantity)
		repo.AssertExpectations(t)
	})

	t.Run("Keeps supplied price and quantity", func(t *testing.T) {
		repo := new(MockRepository)
		cat := new(MockCatalog)
		svc := NewService(repo, cat)

		cat.On("GetFoodItem", ctx, int64(7)).Return(dosa, nil)
		repo.On("UpsertLine", ctx, mock.MatchedBy(func(p UpsertLineParams) bool {
			return p.Quantity == 3 && p.UnitPrice.Equal(decimal.NewFromInt(110))
		})).Return(&CartLine{Quantity: 3}, nil)

		_, err := svc.AddItem(ctx, AddItemParams{
			UserID: 1, RestaurantID: 3, FoodItemID: 7,
			UnitPrice: decimal.NewFromInt(110), Quantity: 3,
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Validation happens before catalog call", func(t *testing.T) {
		repo := new(MockRepository)
		cat := new(MockCatalog)
		svc := NewService(repo, cat)

		tests := []struct {
			name   string
			params AddItemParams
			want   error
		}{
			{"no user", AddItemParams{RestaurantID: 3, FoodItemID: 7}, ErrInvalidUser},
			{"no restaurant", AddItemParams{UserID: 1, FoodItemID: 7}, ErrInvalidRestaurant},
			{"no food item", AddItemParams{UserID: 1, RestaurantID: 3}, ErrInvalidFoodItem},
			{"negative quantity", AddItemParams{UserID: 1, RestaurantID: 3, FoodItemID: 7, Quantity: -1}, ErrInvalidQuantity},
			{"negative price", AddItemParams{UserID: 1, RestaurantID: 3, FoodItemID: 7, UnitPrice: decimal.NewFromInt(-1)}, ErrInvalidUnitPrice},
		}
		for _, tt := range tests {
			_, err := svc.AddItem(ctx, tt.params)
			assert.ErrorIs(t, err, tt.want, tt.name)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput, tt.name)
		}
		cat.AssertNotCalled(t, "GetFoodItem", mock.Anything, mock.Anything)
	})

	t.Run("Item of another restaurant", func(t *testing.T) {
		repo := new(MockRepository)
		cat := new(MockCatalog)
		svc := NewService(repo, cat)

		cat.On("GetFoodItem", ctx, int64(7)).Return(dosa, nil)

		_, err := svc.AddItem(ctx, AddItemParams{UserID: 1, RestaurantID: 4, FoodItemID: 7})
		assert.ErrorIs(t, err, ErrItemNotInMenu)
		repo.AssertNotCalled(t, "UpsertLine", mock.Anything, mock.Anything)
	})

	t.Run("Unavailable item", func(t *testing.T) {
		repo := new(MockRepository)
		cat := new(MockCatalog)
		svc := NewService(repo, cat)

		cat.On("GetFoodItem", ctx, int64(8)).
			Return(&catalog.FoodItem{ID: 8, RestaurantID: 3, Price: decimal.NewFromInt(5)}, nil)

		_, err := svc.AddItem(ctx, AddItemParams{UserID: 1, RestaurantID: 3, FoodItemID: 8})
		assert.ErrorIs(t, err, ErrItemUnavailable)
	})

	t.Run("Catalog errors pass through", func(t *testing.T) {
		repo := new(MockRepository)
		cat := new(MockCatalog)
		svc := NewService(repo, cat)

		cat.On("GetFoodItem", ctx, int64(9)).Return(nil, catalog.ErrFoodItemNotFound)

		_, err := svc.AddItem(ctx, AddItemParams{UserID: 1, RestaurantID: 3, FoodItemID: 9})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestService_ChangeQuantity(t *testing.T) {
	ctx := context.Background()
	lineID := uuid.New()

	t.Run("Zero delta rejected", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockCatalog))
		_, _, err := svc.ChangeQuantity(ctx, 1, lineID, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("Delegates to repository", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockCatalog))
		repo.On("AdjustQuantity", ctx, int64(1), lineID, -1).Return(nil, true, nil)

		line, removed, err := svc.ChangeQuantity(ctx, 1, lineID, -1)
		require.NoError(t, err)
		assert.Nil(t, line)
		assert.True(t, removed)
	})
}

func TestService_RemoveLine(t *testing.T) {
	ctx := context.Background()
	lineID := uuid.New()
	repo := new(MockRepository)
	svc := NewService(repo, new(MockCatalog))

	repo.On("DeleteLine", ctx, int64(1), lineID).Return(nil).Once()
	repo.On("DeleteLine", ctx, int64(2), lineID).Return(ErrCartLineNotFound).Once()

	assert.NoError(t, svc.RemoveLine(ctx, 1, lineID))
	assert.ErrorIs(t, svc.RemoveLine(ctx, 2, lineID), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.RemoveLine(ctx, 0, lineID), ErrInvalidUser)
}

func TestService_ListAndClear(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, new(MockCatalog))

	repo.On("ListLines", ctx, int64(1), int64(3)).Return([]CartLine{{Quantity: 2}}, nil)
	repo.On("DeleteForUserRestaurant", ctx, int64(1), int64(3)).Return(int64(0), nil)
	repo.On("DeleteForUserRestaurant", ctx, int64(1), int64(4)).Return(int64(0), errors.New("db down"))

	lines, err := svc.ListForUserRestaurant(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	assert.NoError(t, svc.ClearForUserRestaurant(ctx, 1, 3))
	assert.EqualError(t, svc.ClearForUserRestaurant(ctx, 1, 4), "db down")

	_, err = svc.ListForUserRestaurant(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidRestaurant)
}

func TestCartLine_Subtotal(t *testing.T) {
	l := CartLine{Quantity: 3, UnitPrice: decimal.RequireFromString("12.50")}
	assert.Equal(t, "37.5", l.Subtotal().String())
}
