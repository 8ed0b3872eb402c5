package transport

import (
	"time"

	"foodcourt-be/internal/cart"
	"foodcourt-be/internal/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartLineDTO struct {
	ID           uuid.UUID       `json:"id"`
	UserID       int64           `json:"userId"`
	RestaurantID int64           `json:"restaurantId"`
	FoodItemID   int64           `json:"foodItemId"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

func toCartLineDTO(l cart.CartLine) CartLineDTO {
	return CartLineDTO{
		ID:           l.ID,
		UserID:       l.UserID,
		RestaurantID: l.RestaurantID,
		FoodItemID:   l.FoodItemID,
		Quantity:     l.Quantity,
		Price:        l.UnitPrice,
	}
}

type AddCartItemRequest struct {
	UserID       int64           `json:"userId"`
	RestaurantID int64           `json:"restaurantId"`
	FoodItemID   int64           `json:"foodItemId"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

type ChangeQuantityResponse struct {
	Removed bool         `json:"removed"`
	Line    *CartLineDTO `json:"line,omitempty"`
}

type OrderItemDTO struct {
	FoodItemID int64           `json:"foodItemId"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type OrderDTO struct {
	ID                     uuid.UUID       `json:"id"`
	UserID                 int64           `json:"userId"`
	RestaurantID           int64           `json:"restaurantId"`
	DeliveryAddressID      int64           `json:"deliveryAddressId"`
	CartItems              []OrderItemDTO  `json:"cartItems"`
	TotalPrice             decimal.Decimal `json:"totalPrice"`
	OrderStatus            order.Status    `json:"orderStatus"`
	OrderTime              time.Time       `json:"orderTime"`
	StatusChangedAt        time.Time       `json:"statusChangedAt"`
	Cancellable            bool            `json:"cancellable"`
	CancelSecondsRemaining int             `json:"cancelSecondsRemaining"`
}

func toOrderDTO(v order.View) OrderDTO {
	items := make([]OrderItemDTO, len(v.Items))
	for i, it := range v.Items {
		items[i] = OrderItemDTO{
			FoodItemID: it.FoodItemID,
			Quantity:   it.Quantity,
			Price:      it.UnitPriceAtOrderTime,
		}
	}
	return OrderDTO{
		ID:                     v.ID,
		UserID:                 v.UserID,
		RestaurantID:           v.RestaurantID,
		DeliveryAddressID:      v.DeliveryAddressID,
		CartItems:              items,
		TotalPrice:             v.TotalPrice,
		OrderStatus:            v.Status,
		OrderTime:              v.OrderTime,
		StatusChangedAt:        v.StatusChangedAt,
		Cancellable:            v.Cancellable,
		CancelSecondsRemaining: v.CancelSecondsRemaining,
	}
}

type PlaceOrderRequest struct {
	UserID            int64          `json:"userId"`
	RestaurantID      int64          `json:"restaurantId"`
	DeliveryAddressID int64          `json:"deliveryAddressId"`
	CartItems         []OrderItemDTO `json:"cartItems"`
}

type CancelOrderResponse struct {
	Message        string          `json:"message"`
	OrderStatus    order.Status    `json:"orderStatus"`
	RefundedAmount decimal.Decimal `json:"refundedAmount"`
}

type CompleteOrderResponse struct {
	Message     string       `json:"message"`
	OrderStatus order.Status `json:"orderStatus"`
}

type WalletDTO struct {
	UserID  int64           `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
}
