package order

import (
	"context"
	"errors"
	"sync"
	"time"

	"foodcourt-be/internal/apperr"
	"foodcourt-be/internal/cart"
	"foodcourt-be/internal/catalog"
	"foodcourt-be/internal/metrics"
	"foodcourt-be/internal/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeCart struct {
	mu      sync.Mutex
	lines   []cart.CartLine
	listErr error
}

func (f *fakeCart) add(userID, restaurantID, foodItemID int64, qty int, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, cart.CartLine{
		ID:           uuid.New(),
		UserID:       userID,
		RestaurantID: restaurantID,
		FoodItemID:   foodItemID,
		Quantity:     qty,
		UnitPrice:    dec(price),
	})
}

func (f *fakeCart) ListForUserRestaurant(_ context.Context, userID, restaurantID int64) ([]cart.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []cart.CartLine
	for _, l := range f.lines {
		if l.UserID == userID && l.RestaurantID == restaurantID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCart) ConsumeLines(_ context.Context, consumed []cart.CartLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	taken := make(map[uuid.UUID]int, len(consumed))
	for _, c := range consumed {
		taken[c.ID] = c.Quantity
	}
	kept := f.lines[:0]
	for _, l := range f.lines {
		if q, ok := taken[l.ID]; ok {
			if l.Quantity <= q {
				continue
			}
			l.Quantity -= q
		}
		kept = append(kept, l)
	}
	f.lines = kept
	return nil
}

func (f *fakeCart) setQuantity(foodItemID int64, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lines {
		if f.lines[i].FoodItemID == foodItemID {
			f.lines[i].Quantity = qty
		}
	}
}

func (f *fakeCart) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

type fakeCatalog struct {
	items       map[int64]*catalog.FoodItem
	restaurants map[int64]*catalog.Restaurant
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		items:       make(map[int64]*catalog.FoodItem),
		restaurants: make(map[int64]*catalog.Restaurant),
	}
}

func (f *fakeCatalog) GetFoodItem(_ context.Context, id int64) (*catalog.FoodItem, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, catalog.ErrFoodItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeCatalog) GetPrice(ctx context.Context, id int64) (decimal.Decimal, error) {
	it, err := f.GetFoodItem(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return it.Price, nil
}

func (f *fakeCatalog) GetRestaurant(_ context.Context, id int64) (*catalog.Restaurant, error) {
	r, ok := f.restaurants[id]
	if !ok {
		return nil, catalog.ErrRestaurantNotFound
	}
	cp := *r
	return &cp, nil
}

type fakeIdentity struct {
	userErr    error
	addressErr error
}

func (f *fakeIdentity) VerifyUser(context.Context, int64) error { return f.userErr }

func (f *fakeIdentity) VerifyAddress(context.Context, int64, int64) error { return f.addressErr }

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, value.(Event))
	return nil
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// failingRepo fails Create while createErr is set and GetByID while getErr
// is set.
type failingRepo struct {
	*MemoryRepository
	createErr error
	getErr    error
}

func (r *failingRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.MemoryRepository.GetByID(ctx, id)
}

func (r *failingRepo) Create(ctx context.Context, o *Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryRepository.Create(ctx, o)
}

// flakyLedger fails Credit with an unavailable error for the first n calls.
type flakyLedger struct {
	wallet.Ledger
	mu       sync.Mutex
	failures int
	err      error
}

func (l *flakyLedger) Credit(ctx context.Context, params wallet.MutationParams) (*wallet.Entry, error) {
	l.mu.Lock()
	if l.failures != 0 {
		if l.failures > 0 {
			l.failures--
		}
		l.mu.Unlock()
		return nil, l.err
	}
	l.mu.Unlock()
	return l.Ledger.Credit(ctx, params)
}

// lostAckLedger applies the first Debit and then reports it as failed, the
// way a dropped response from the wallet store looks to the caller.
type lostAckLedger struct {
	wallet.Ledger
	mu   sync.Mutex
	lost bool
}

func (l *lostAckLedger) Debit(ctx context.Context, params wallet.MutationParams) (*wallet.Entry, error) {
	e, err := l.Ledger.Debit(ctx, params)
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil && !l.lost {
		l.lost = true
		return nil, apperr.Unavailable("wallet.Debit", errStorageDown)
	}
	return e, err
}

// stalledLedger never answers a Debit before the caller gives up.
type stalledLedger struct {
	wallet.Ledger
}

func (stalledLedger) Debit(ctx context.Context, _ wallet.MutationParams) (*wallet.Entry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const (
	customerID  int64 = 1
	ownerID     int64 = 900
	otherUserID int64 = 2
	restaurant  int64 = 10
	addressID   int64 = 77
)

var errStorageDown = errors.New("connection reset by peer")

type harness struct {
	svc       Service
	repo      *failingRepo
	ledger    *wallet.MemoryLedger
	cart      *fakeCart
	catalog   *fakeCatalog
	identity  *fakeIdentity
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	clock     *clock
}

// newHarness wires the engine over in-memory stores. The customer starts
// with balance and restaurant 10 sells item 1 at 20.00.
func newHarness(balance string) *harness {
	h := &harness{
		repo:      &failingRepo{MemoryRepository: NewMemoryRepository()},
		cart:      &fakeCart{},
		catalog:   newFakeCatalog(),
		identity:  &fakeIdentity{},
		publisher: &recordingPublisher{},
		metrics:   metrics.NewUnregistered(),
		clock:     newClock(),
	}
	h.ledger = wallet.NewMemoryLedger().WithClock(h.clock.Now)
	if _, err := h.ledger.OpenAccount(context.Background(), customerID, dec(balance)); err != nil {
		panic(err)
	}

	h.catalog.restaurants[restaurant] = &catalog.Restaurant{ID: restaurant, Name: "Warung", OwnerUserID: ownerID}
	h.catalog.restaurants[11] = &catalog.Restaurant{ID: 11, Name: "Kedai", OwnerUserID: ownerID}
	h.catalog.items[1] = &catalog.FoodItem{ID: 1, RestaurantID: restaurant, Name: "Nasi Goreng", Price: dec("20"), Available: true}
	h.catalog.items[2] = &catalog.FoodItem{ID: 2, RestaurantID: 11, Name: "Mie Ayam", Price: dec("60"), Available: true}

	h.svc = NewService(Deps{
		Repo:      h.repo,
		Cart:      h.cart,
		Wallet:    h.ledger,
		Prices:    h.catalog,
		Identity:  h.identity,
		Publisher: h.publisher,
		Metrics:   h.metrics,
		Now:       h.clock.Now,
	}, Config{
		CompensationInitialInterval: time.Millisecond,
		CompensationMaxElapsed:      200 * time.Millisecond,
	})
	return h
}

func (h *harness) balance() decimal.Decimal {
	b, err := h.ledger.GetBalance(context.Background(), customerID)
	if err != nil {
		panic(err)
	}
	return b
}

func placeParams(key string) PlaceOrderParams {
	return PlaceOrderParams{
		UserID:            customerID,
		RestaurantID:      restaurant,
		DeliveryAddressID: addressID,
		IdempotencyKey:    key,
	}
}
