package transport

import (
	"net/http"

	"foodcourt-be/internal/logger"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterDeps struct {
	Cart    *CartHandler
	Orders  *OrderHandler
	Wallet  *WalletHandler
	Metrics http.Handler
	// Middleware runs after request id and logging, before routing.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(d.Middleware...)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/cart", func(r chi.Router) {
		r.Post("/add", d.Cart.AddItem)
		r.Put("/update/{cartId}", d.Cart.ChangeQuantity)
		r.Delete("/remove/{cartId}", d.Cart.RemoveLine)
		r.Get("/user/{userId}/restaurant/{restaurantId}", d.Cart.List)
		r.Delete("/user/{userId}/restaurant/{restaurantId}", d.Cart.Clear)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/place", d.Orders.Place)
		r.Delete("/cancel/{orderId}", d.Orders.Cancel)
		r.Post("/complete/{orderId}", d.Orders.Complete)
		r.Post("/complete/{orderId}/user/{userId}", d.Orders.Complete)
		r.Get("/user/{userId}", d.Orders.ListForUser)
		r.Get("/restaurant/{restaurantId}", d.Orders.ListForRestaurant)
		r.Get("/{orderId}", d.Orders.Get)
	})

	r.Route("/wallet/{userId}", func(r chi.Router) {
		r.Get("/", d.Wallet.Balance)
		r.Post("/open", d.Wallet.Open)
	})

	return otelhttp.NewHandler(r, "foodcourt-be")
}
