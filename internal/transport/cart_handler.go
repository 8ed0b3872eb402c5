package transport

import (
	"net/http"
	"strconv"

	"foodcourt-be/internal/cart"
)

type CartHandler struct {
	cart cart.Service
}

func NewCartHandler(svc cart.Service) *CartHandler {
	return &CartHandler{cart: svc}
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID != 0 && req.UserID != actor {
		respondMessage(w, http.StatusForbidden, "userId does not match the authenticated user")
		return
	}

	line, err := h.cart.AddItem(r.Context(), cart.AddItemParams{
		UserID:       actor,
		RestaurantID: req.RestaurantID,
		FoodItemID:   req.FoodItemID,
		UnitPrice:    req.Price,
		Quantity:     req.Quantity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartLineDTO(*line))
}

// ChangeQuantity applies ?quantityChange=±n. A line that drops below one
// is removed.
func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	lineID, ok := pathUUID(w, r, "cartId")
	if !ok {
		return
	}
	delta, err := strconv.Atoi(r.URL.Query().Get("quantityChange"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "quantityChange must be a number")
		return
	}

	line, removed, err := h.cart.ChangeQuantity(r.Context(), actor, lineID, delta)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := ChangeQuantityResponse{Removed: removed}
	if line != nil {
		dto := toCartLineDTO(*line)
		resp.Line = &dto
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	lineID, ok := pathUUID(w, r, "cartId")
	if !ok {
		return
	}

	if err := h.cart.RemoveLine(r.Context(), actor, lineID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSelf(w, r, "userId")
	if !ok {
		return
	}
	restaurantID, ok := pathInt(w, r, "restaurantId")
	if !ok {
		return
	}

	lines, err := h.cart.ListForUserRestaurant(r.Context(), actor, restaurantID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]CartLineDTO, len(lines))
	for i, l := range lines {
		out[i] = toCartLineDTO(l)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSelf(w, r, "userId")
	if !ok {
		return
	}
	restaurantID, ok := pathInt(w, r, "restaurantId")
	if !ok {
		return
	}

	if err := h.cart.ClearForUserRestaurant(r.Context(), actor, restaurantID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
