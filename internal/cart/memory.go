package cart

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lineKey struct {
	userID       int64
	restaurantID int64
	foodItemID   int64
}

// MemoryRepository keeps cart lines in process memory.
type MemoryRepository struct {
	mu    sync.Mutex
	lines map[uuid.UUID]*CartLine
	byKey map[lineKey]uuid.UUID
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		lines: make(map[uuid.UUID]*CartLine),
		byKey: make(map[lineKey]uuid.UUID),
		now:   time.Now,
	}
}

func keyOf(l *CartLine) lineKey {
	return lineKey{userID: l.UserID, restaurantID: l.RestaurantID, foodItemID: l.FoodItemID}
}

func (m *MemoryRepository) UpsertLine(_ context.Context, params UpsertLineParams) (*CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := lineKey{userID: params.UserID, restaurantID: params.RestaurantID, foodItemID: params.FoodItemID}

	if id, ok := m.byKey[key]; ok {
		l := m.lines[id]
		l.Quantity += params.Quantity
		l.UnitPrice = params.UnitPrice
		l.UpdatedAt = now
		cp := *l
		return &cp, nil
	}

	l := &CartLine{
		ID:           params.ID,
		UserID:       params.UserID,
		RestaurantID: params.RestaurantID,
		FoodItemID:   params.FoodItemID,
		Quantity:     params.Quantity,
		UnitPrice:    params.UnitPrice,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.lines[l.ID] = l
	m.byKey[key] = l.ID

	cp := *l
	return &cp, nil
}

func (m *MemoryRepository) AdjustQuantity(_ context.Context, userID int64, lineID uuid.UUID, delta int) (*CartLine, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lines[lineID]
	if !ok || l.UserID != userID {
		return nil, false, ErrCartLineNotFound
	}

	if l.Quantity+delta < 1 {
		m.remove(l)
		return nil, true, nil
	}

	l.Quantity += delta
	l.UpdatedAt = m.now()
	cp := *l
	return &cp, false, nil
}

func (m *MemoryRepository) DeleteLine(_ context.Context, userID int64, lineID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lines[lineID]
	if !ok || l.UserID != userID {
		return ErrCartLineNotFound
	}
	m.remove(l)
	return nil
}

func (m *MemoryRepository) ListLines(_ context.Context, userID, restaurantID int64) ([]CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]CartLine, 0)
	for _, l := range m.lines {
		if l.UserID == userID && l.RestaurantID == restaurantID {
			lines = append(lines, *l)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].ID.String() < lines[j].ID.String()
		}
		return lines[i].CreatedAt.Before(lines[j].CreatedAt)
	})
	return lines, nil
}

func (m *MemoryRepository) DeleteForUserRestaurant(_ context.Context, userID, restaurantID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, l := range m.lines {
		if l.UserID == userID && l.RestaurantID == restaurantID {
			m.remove(l)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) ConsumeLines(_ context.Context, consumed []CartLine) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed, reduced int64
	for _, c := range consumed {
		l, ok := m.lines[c.ID]
		if !ok {
			continue
		}
		if l.Quantity <= c.Quantity {
			m.remove(l)
			removed++
			continue
		}
		l.Quantity -= c.Quantity
		l.UpdatedAt = m.now()
		reduced++
	}
	return removed, reduced, nil
}

// remove must be called with mu held.
func (m *MemoryRepository) remove(l *CartLine) {
	delete(m.byKey, keyOf(l))
	delete(m.lines, l.ID)
}
