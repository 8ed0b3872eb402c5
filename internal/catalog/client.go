package catalog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"foodcourt-be/internal/downstream"
	"foodcourt-be/internal/metrics"

	"github.com/shopspring/decimal"
)

// Client reads the catalog service over HTTP.
type Client struct {
	http *downstream.Client
}

func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	return newClient(baseURL, timeout, m, nil)
}

func newClient(baseURL string, timeout time.Duration, m *metrics.Metrics, hc *http.Client) *Client {
	return &Client{http: downstream.New("catalog", baseURL, timeout, m, hc)}
}

func (c *Client) GetFoodItem(ctx context.Context, id int64) (*FoodItem, error) {
	var payload foodItemPayload
	if err := c.http.GetJSON(ctx, "/foodItem/"+strconv.FormatInt(id, 10), ErrFoodItemNotFound, &payload); err != nil {
		return nil, err
	}
	return payload.toModel(), nil
}

func (c *Client) GetPrice(ctx context.Context, id int64) (decimal.Decimal, error) {
	item, err := c.GetFoodItem(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return item.Price, nil
}

func (c *Client) GetRestaurant(ctx context.Context, id int64) (*Restaurant, error) {
	var r Restaurant
	if err := c.http.GetJSON(ctx, "/restaurant/"+strconv.FormatInt(id, 10), ErrRestaurantNotFound, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
