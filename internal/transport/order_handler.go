package transport

import (
	"context"
	"net/http"
	"time"

	"foodcourt-be/internal/order"
	"foodcourt-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// OrderQueries lists orders for readers.
type OrderQueries interface {
	ListForUser(ctx context.Context, userID int64, page utils.Pagination) ([]order.View, error)
	ListForRestaurant(ctx context.Context, restaurantID, actorUserID int64, page utils.Pagination) ([]order.View, error)
}

type OrderHandler struct {
	orders  order.Service
	queries OrderQueries
	window  time.Duration
	now     func() time.Time
}

func NewOrderHandler(orders order.Service, queries OrderQueries, window time.Duration) *OrderHandler {
	return &OrderHandler{orders: orders, queries: queries, window: window, now: time.Now}
}

func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID != 0 && req.UserID != actor {
		respondMessage(w, http.StatusForbidden, "userId does not match the authenticated user")
		return
	}

	items := make([]order.RequestedItem, len(req.CartItems))
	for i, it := range req.CartItems {
		items[i] = order.RequestedItem{FoodItemID: it.FoodItemID, Quantity: it.Quantity}
	}

	res, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderParams{
		UserID:            actor,
		RestaurantID:      req.RestaurantID,
		DeliveryAddressID: req.DeliveryAddressID,
		IdempotencyKey:    r.Header.Get(IdempotencyKeyHeader),
		Items:             items,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, toOrderDTO(order.NewView(*res.Order, h.now(), h.window)))
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "orderId")
	if !ok {
		return
	}

	res, err := h.orders.CancelOrder(r.Context(), orderID, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CancelOrderResponse{
		Message:        "Order cancelled successfully.",
		OrderStatus:    res.Status,
		RefundedAmount: res.RefundedAmount,
	})
}

// Complete is served both with and without a trailing /user/{userId}; when
// present the path user must be the actor.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var (
		actor int64
		ok    bool
	)
	if chi.URLParam(r, "userId") != "" {
		actor, ok = requireSelf(w, r, "userId")
	} else {
		actor, ok = requireActor(w, r)
	}
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "orderId")
	if !ok {
		return
	}

	res, err := h.orders.CompleteOrder(r.Context(), orderID, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CompleteOrderResponse{
		Message:     "Order completed.",
		OrderStatus: res.Status,
	})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "orderId")
	if !ok {
		return
	}

	v, err := h.orders.GetOrder(r.Context(), orderID, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(*v))
}

func (h *OrderHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSelf(w, r, "userId")
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}

	views, err := h.queries.ListForUser(r.Context(), actor, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTOs(views))
}

func (h *OrderHandler) ListForRestaurant(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	restaurantID, ok := pathInt(w, r, "restaurantId")
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}

	views, err := h.queries.ListForRestaurant(r.Context(), restaurantID, actor, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTOs(views))
}

func toOrderDTOs(views []order.View) []OrderDTO {
	out := make([]OrderDTO, len(views))
	for i, v := range views {
		out[i] = toOrderDTO(v)
	}
	return out
}
