package order

import (
	"context"
	"errors"
	"strconv"
	"time"

	"foodcourt-be/internal/apperr"
	"foodcourt-be/internal/cart"
	"foodcourt-be/internal/catalog"
	"foodcourt-be/internal/identity"
	"foodcourt-be/internal/logger"
	"foodcourt-be/internal/metrics"
	"foodcourt-be/internal/utils"
	"foodcourt-be/internal/wallet"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// orderNamespace seeds the deterministic order ids derived from
// idempotency keys.
var orderNamespace = uuid.MustParse("6f1c3a52-1d1e-4f5b-9a57-3c0e8f2b7d41")

// Service runs the order lifecycle. Actors are passed explicitly.
type Service interface {
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (*PlaceOrderResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actorUserID int64) (*CancelResult, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID, actorUserID int64) (*CompleteResult, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actorUserID int64) (*View, error)
}

// CartStore is the part of the cart the engine consumes.
type CartStore interface {
	ListForUserRestaurant(ctx context.Context, userID, restaurantID int64) ([]cart.CartLine, error)
	ConsumeLines(ctx context.Context, consumed []cart.CartLine) error
}

type Deps struct {
	Repo   Repository
	Cart   CartStore
	Wallet wallet.Ledger
	// Prices resolves the price charged at placement. It should not be
	// cached.
	Prices catalog.Reader
	// Catalog answers restaurant ownership lookups and may be cached.
	Catalog   catalog.Reader
	Identity  identity.Verifier
	Publisher Publisher
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type Config struct {
	CancellationWindow          time.Duration
	CatalogTimeout              time.Duration
	IdentityTimeout             time.Duration
	WalletTimeout               time.Duration
	CompensationMaxElapsed      time.Duration
	CompensationInitialInterval time.Duration
	PriceConcurrency            int
}

func (c Config) withDefaults() Config {
	if c.CancellationWindow <= 0 {
		c.CancellationWindow = DefaultCancellationWindow
	}
	if c.CatalogTimeout <= 0 {
		c.CatalogTimeout = 2 * time.Second
	}
	if c.IdentityTimeout <= 0 {
		c.IdentityTimeout = 2 * time.Second
	}
	if c.WalletTimeout <= 0 {
		c.WalletTimeout = 2 * time.Second
	}
	if c.CompensationMaxElapsed <= 0 {
		c.CompensationMaxElapsed = time.Minute
	}
	if c.CompensationInitialInterval <= 0 {
		c.CompensationInitialInterval = 100 * time.Millisecond
	}
	if c.PriceConcurrency <= 0 {
		c.PriceConcurrency = 8
	}
	return c
}

type service struct {
	repo      Repository
	cart      CartStore
	wallet    wallet.Ledger
	prices    catalog.Reader
	catalog   catalog.Reader
	identity  identity.Verifier
	publisher Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
	cfg       Config
	comp      *compensator
	locks     *utils.KeyedMutex[uuid.UUID]
}

func NewService(d Deps, cfg Config) Service {
	cfg = cfg.withDefaults()
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewUnregistered()
	}
	if d.Catalog == nil {
		d.Catalog = d.Prices
	}
	return &service{
		repo:      d.Repo,
		cart:      d.Cart,
		wallet:    d.Wallet,
		prices:    d.Prices,
		catalog:   d.Catalog,
		identity:  d.Identity,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		now:       d.Now,
		cfg:       cfg,
		comp: &compensator{
			ledger:          d.Wallet,
			metrics:         d.Metrics,
			initialInterval: cfg.CompensationInitialInterval,
			maxElapsed:      cfg.CompensationMaxElapsed,
			callTimeout:     cfg.WalletTimeout,
		},
		locks: utils.NewKeyedMutex[uuid.UUID](),
	}
}

func (p PlaceOrderParams) validate() error {
	switch {
	case p.UserID <= 0:
		return ErrInvalidUser
	case p.RestaurantID <= 0:
		return ErrInvalidRestaurant
	case p.DeliveryAddressID <= 0:
		return ErrInvalidAddress
	}
	for _, it := range p.Items {
		if it.FoodItemID <= 0 || it.Quantity <= 0 {
			return ErrInvalidItems
		}
	}
	return nil
}

// scopedKey confines an idempotency key to the user that sent it.
func scopedKey(userID int64, key string) string {
	return strconv.FormatInt(userID, 10) + ":" + key
}

// orderIDForKey derives the order id for a scoped idempotency key, so every
// retry reuses the same wallet operation ids.
func orderIDForKey(key string) uuid.UUID {
	return uuid.NewSHA1(orderNamespace, []byte(key))
}

// PlaceOrder charges the wallet for the user's cart at one restaurant and
// records the order. A wallet debit is never left without either an order
// or a compensating credit.
func (s *service) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*PlaceOrderResult, error) {
	timer := metrics.StartTimer()
	defer timer.ObserveDuration(s.metrics.PlaceDuration)

	res, err := s.placeOrder(ctx, params)
	if err != nil {
		s.metrics.PlaceFailures.WithLabelValues(kindLabel(err)).Inc()
		return nil, err
	}
	if !res.Replayed {
		s.metrics.OrdersPlaced.Inc()
	}
	return res, nil
}

func (s *service) placeOrder(ctx context.Context, params PlaceOrderParams) (*PlaceOrderResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Int64("user_id", params.UserID),
		zap.Int64("restaurant_id", params.RestaurantID),
	)

	if err := params.validate(); err != nil {
		log.Warn("invalid place order request", zap.Error(err))
		return nil, err
	}

	var key string
	id := uuid.New()
	if params.IdempotencyKey != "" {
		key = scopedKey(params.UserID, params.IdempotencyKey)
		id = orderIDForKey(key)
	}
	log = log.With(zap.String("order_id", id.String()))

	unlock := s.locks.Lock(id)
	defer unlock()

	if key != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, key)
		if err == nil {
			log.Info("idempotent replay")
			return &PlaceOrderResult{Order: existing, Replayed: true}, nil
		}
		if !errors.Is(err, ErrOrderNotFound) {
			log.Error("idempotency lookup failed", zap.Error(err))
			return nil, apperr.Unavailable("order.GetByIdempotencyKey", err)
		}
		if err := s.ensureKeyNotCompensated(ctx, id); err != nil {
			log.Warn("idempotency key rejected", zap.Error(err))
			return nil, err
		}
	}

	if err := s.verifyIdentity(ctx, params.UserID, params.DeliveryAddressID); err != nil {
		log.Warn("identity verification failed", zap.Error(err))
		return nil, err
	}

	lines, err := s.cart.ListForUserRestaurant(ctx, params.UserID, params.RestaurantID)
	if err != nil {
		log.Error("failed to read cart", zap.Error(err))
		return nil, apperr.Classify("cart.ListForUserRestaurant", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if len(params.Items) > 0 && !matchesCart(params.Items, lines) {
		log.Info("requested items differ from cart")
		return nil, ErrCartMismatch
	}

	items, err := s.resolvePrices(ctx, params.RestaurantID, lines)
	if err != nil {
		log.Warn("price resolution failed", zap.Error(err))
		return nil, err
	}
	total := Total(items)

	if total.IsPositive() {
		wctx, cancel := context.WithTimeout(ctx, s.cfg.WalletTimeout)
		_, err := s.wallet.Debit(wctx, wallet.MutationParams{
			UserID:      params.UserID,
			Amount:      total,
			OperationID: debitOperationID(id),
			Reference:   id.String(),
		})
		cancel()
		if errors.Is(err, wallet.ErrOperationConflict) {
			// the key already paid for a different cart
			log.Warn("idempotency key reused with a different total", zap.String("total", total.String()))
			return nil, ErrIdempotencyKeyConsumed
		}
		if err != nil {
			log.Warn("wallet debit failed", zap.Error(err))
			return nil, apperr.Classify("wallet.Debit", err)
		}
	}

	// Past the debit the request's cancellation no longer applies.
	dctx := context.WithoutCancel(ctx)
	now := s.now()
	o := &Order{
		ID:                id,
		UserID:            params.UserID,
		RestaurantID:      params.RestaurantID,
		DeliveryAddressID: params.DeliveryAddressID,
		IdempotencyKey:    key,
		Items:             items,
		TotalPrice:        total,
		Status:            StatusPlaced,
		OrderTime:         now,
		StatusChangedAt:   now,
	}

	if err := s.repo.Create(dctx, o); err != nil {
		if existing, gerr := s.repo.GetByID(dctx, id); gerr == nil {
			log.Info("order already stored", zap.Error(err))
			return &PlaceOrderResult{Order: existing, Replayed: errors.Is(err, ErrDuplicateOrder)}, nil
		}

		log.Error("failed to store order, compensating debit", zap.Error(err))
		if total.IsPositive() {
			_ = s.comp.credit(dctx, wallet.MutationParams{
				UserID:      params.UserID,
				Amount:      total,
				OperationID: compensateOperationID(id),
				Reference:   id.String(),
			}, "place_failed")
		}
		return nil, apperr.Unavailable("order.Create", err)
	}

	if err := s.cart.ConsumeLines(dctx, lines); err != nil {
		log.Warn("failed to clear consumed cart lines", zap.Error(err))
	}

	s.publish(dctx, newEvent(EventPlaced, o, now))

	log.Info("order placed", zap.String("total", total.String()))
	return &PlaceOrderResult{Order: o}, nil
}

// ensureKeyNotCompensated rejects a key whose earlier attempt was debited
// and then refunded. Reusing it would repeat the debit operation id, which
// the ledger treats as already applied.
func (s *service) ensureKeyNotCompensated(ctx context.Context, id uuid.UUID) error {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.WalletTimeout)
	defer cancel()

	_, err := s.wallet.GetEntry(wctx, compensateOperationID(id))
	switch {
	case err == nil:
		return ErrIdempotencyKeyConsumed
	case errors.Is(err, wallet.ErrEntryNotFound):
		return nil
	default:
		return apperr.Unavailable("wallet.GetEntry", err)
	}
}

func (s *service) verifyIdentity(ctx context.Context, userID, addressID int64) error {
	ictx, cancel := context.WithTimeout(ctx, s.cfg.IdentityTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ictx)
	g.Go(func() error {
		return s.identity.VerifyUser(gctx, userID)
	})
	g.Go(func() error {
		return s.identity.VerifyAddress(gctx, userID, addressID)
	})
	return apperr.Classify("identity.Verify", g.Wait())
}

// matchesCart reports whether the requested items name the same food items
// with the same quantities as the stored lines.
func matchesCart(requested []RequestedItem, lines []cart.CartLine) bool {
	want := make(map[int64]int, len(lines))
	for _, l := range lines {
		want[l.FoodItemID] += l.Quantity
	}
	got := make(map[int64]int, len(requested))
	for _, r := range requested {
		got[r.FoodItemID] += r.Quantity
	}
	if len(want) != len(got) {
		return false
	}
	for id, q := range want {
		if got[id] != q {
			return false
		}
	}
	return true
}

// resolvePrices looks up every line's current catalog entry with bounded
// parallelism and snapshots its price.
func (s *service) resolvePrices(ctx context.Context, restaurantID int64, lines []cart.CartLine) ([]Item, error) {
	items := make([]Item, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.PriceConcurrency)

	for i, l := range lines {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.cfg.CatalogTimeout)
			defer cancel()

			fi, err := s.prices.GetFoodItem(cctx, l.FoodItemID)
			if err != nil {
				return err
			}
			if fi.RestaurantID != restaurantID {
				return ErrItemNotInMenu
			}
			if !fi.Available {
				return ErrItemUnavailable
			}
			items[i] = Item{
				FoodItemID:           l.FoodItemID,
				Quantity:             l.Quantity,
				UnitPriceAtOrderTime: fi.Price,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, apperr.Classify("catalog.GetFoodItem", err)
	}
	return items, nil
}

// CancelOrder cancels the actor's order inside the cancellation window and
// refunds its total.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actorUserID int64) (*CancelResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CancelOrder"),
		zap.String("order_id", orderID.String()),
		zap.Int64("actor_id", actorUserID),
	)

	if actorUserID <= 0 {
		return nil, ErrInvalidUser
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		log.Warn("failed to load order", zap.Error(err))
		return nil, apperr.Classify("order.GetByID", err)
	}
	if o.UserID != actorUserID {
		log.Warn("actor does not own order")
		return nil, ErrNotOrderOwner
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}

	now := s.now()
	if !WithinWindow(o.OrderTime, now, s.cfg.CancellationWindow) {
		log.Info("cancellation window expired", zap.Duration("age", now.Sub(o.OrderTime)))
		return nil, ErrWindowExpired
	}

	dctx := context.WithoutCancel(ctx)
	ok, err := s.repo.Transition(dctx, orderID, StatusPlaced, StatusCancelled, now)
	if err != nil {
		log.Error("failed to cancel order", zap.Error(err))
		return nil, apperr.Unavailable("order.Transition", err)
	}
	if !ok {
		log.Info("order changed state concurrently")
		return nil, ErrInvalidState
	}
	o.Status = StatusCancelled
	o.StatusChangedAt = now

	if o.TotalPrice.IsPositive() {
		err := s.comp.credit(dctx, wallet.MutationParams{
			UserID:      o.UserID,
			Amount:      o.TotalPrice,
			OperationID: refundOperationID(o.ID),
			Reference:   o.ID.String(),
		}, "refund")
		if err != nil {
			return nil, apperr.Unavailable("wallet.Credit refund", err)
		}
	}

	s.metrics.OrdersCancelled.Inc()
	s.publish(dctx, newEvent(EventCancelled, o, now))

	log.Info("order cancelled", zap.String("refunded", o.TotalPrice.String()))
	return &CancelResult{Status: StatusCancelled, RefundedAmount: o.TotalPrice}, nil
}

// CompleteOrder marks the order delivered. Only the restaurant's owner may
// do so and there is no time limit.
func (s *service) CompleteOrder(ctx context.Context, orderID uuid.UUID, actorUserID int64) (*CompleteResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CompleteOrder"),
		zap.String("order_id", orderID.String()),
		zap.Int64("actor_id", actorUserID),
	)

	if actorUserID <= 0 {
		return nil, ErrInvalidUser
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		log.Warn("failed to load order", zap.Error(err))
		return nil, apperr.Classify("order.GetByID", err)
	}

	if err := s.ensureRestaurantOwner(ctx, o.RestaurantID, actorUserID); err != nil {
		log.Warn("restaurant ownership check failed", zap.Error(err))
		return nil, err
	}
	if !CanTransition(o.Status, StatusCompleted) {
		return nil, ErrInvalidState
	}

	now := s.now()
	ok, err := s.repo.Transition(ctx, orderID, StatusPlaced, StatusCompleted, now)
	if err != nil {
		log.Error("failed to complete order", zap.Error(err))
		return nil, apperr.Unavailable("order.Transition", err)
	}
	if !ok {
		log.Info("order changed state concurrently")
		return nil, ErrInvalidState
	}
	o.Status = StatusCompleted
	o.StatusChangedAt = now

	s.metrics.OrdersCompleted.Inc()
	s.publish(context.WithoutCancel(ctx), newEvent(EventCompleted, o, now))

	log.Info("order completed")
	return &CompleteResult{Status: StatusCompleted}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actorUserID int64) (*View, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Classify("order.GetByID", err)
	}
	if o.UserID != actorUserID {
		return nil, ErrNotOrderOwner
	}
	v := NewView(*o, s.now(), s.cfg.CancellationWindow)
	return &v, nil
}

func (s *service) ensureRestaurantOwner(ctx context.Context, restaurantID, actorUserID int64) error {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CatalogTimeout)
	defer cancel()

	r, err := s.catalog.GetRestaurant(cctx, restaurantID)
	if err != nil {
		return apperr.Classify("catalog.GetRestaurant", err)
	}
	if r.OwnerUserID != actorUserID {
		return ErrNotRestaurantOwner
	}
	return nil
}

func (s *service) publish(ctx context.Context, ev Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev.OrderID.String(), ev); err != nil {
		logger.FromCtx(ctx).Warn("failed to publish order event",
			zap.String("layer", "service"),
			zap.String("event", string(ev.Type)),
			zap.String("order_id", ev.OrderID.String()),
			zap.Error(err),
		)
	}
}

// kindLabel names the error kind for metrics labels.
func kindLabel(err error) string {
	switch apperr.Kind(err) {
	case apperr.ErrInvalidInput:
		return "invalid_input"
	case apperr.ErrForbidden:
		return "forbidden"
	case apperr.ErrNotFound:
		return "not_found"
	case apperr.ErrEmptyCart:
		return "empty_cart"
	case apperr.ErrInsufficientFunds:
		return "insufficient_funds"
	case apperr.ErrInvalidState:
		return "invalid_state"
	case apperr.ErrUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}
