package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps orders in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*Order
	byKey  map[string]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders: make(map[uuid.UUID]*Order),
		byKey:  make(map[string]uuid.UUID),
	}
}

func cloneOrder(o *Order) *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp
}

func (m *MemoryRepository) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[o.ID]; ok {
		return ErrDuplicateOrder
	}
	if o.IdempotencyKey != "" {
		if _, ok := m.byKey[o.IdempotencyKey]; ok {
			return ErrDuplicateOrder
		}
		m.byKey[o.IdempotencyKey] = o.ID
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *MemoryRepository) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	m.mu.RLock()
	id, ok := m.byKey[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrOrderNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *MemoryRepository) Transition(_ context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(from, to) {
		return false, nil
	}
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.StatusChangedAt = at
	return true, nil
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID int64, limit, offset int) ([]Order, error) {
	return m.page(func(o *Order) bool { return o.UserID == userID }, limit, offset), nil
}

func (m *MemoryRepository) ListByRestaurant(_ context.Context, restaurantID int64, limit, offset int) ([]Order, error) {
	return m.page(func(o *Order) bool { return o.RestaurantID == restaurantID }, limit, offset), nil
}

func (m *MemoryRepository) ListByStatusChangedBetween(_ context.Context, status Status, from, to time.Time) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Order
	for _, o := range m.orders {
		if o.Status != status || o.StatusChangedAt.Before(from) || !o.StatusChangedAt.Before(to) {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StatusChangedAt.Before(out[j].StatusChangedAt) })
	return out, nil
}

// page returns matching orders newest first.
func (m *MemoryRepository) page(match func(*Order) bool, limit, offset int) []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []Order
	for _, o := range m.orders {
		if match(o) {
			all = append(all, *cloneOrder(o))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].OrderTime.Equal(all[j].OrderTime) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].OrderTime.After(all[j].OrderTime)
	})

	if offset >= len(all) {
		return []Order{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
