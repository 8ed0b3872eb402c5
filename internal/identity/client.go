package identity

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"foodcourt-be/internal/downstream"
	"foodcourt-be/internal/logger"
	"foodcourt-be/internal/metrics"

	"go.uber.org/zap"
)

// Verifier confirms that referenced users and addresses exist before an
// order commits. Only ids are stored here.
type Verifier interface {
	VerifyUser(ctx context.Context, userID int64) error
	VerifyAddress(ctx context.Context, userID, addressID int64) error
}

type Client struct {
	http *downstream.Client
}

func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	return newClient(baseURL, timeout, m, nil)
}

func newClient(baseURL string, timeout time.Duration, m *metrics.Metrics, hc *http.Client) *Client {
	return &Client{http: downstream.New("identity", baseURL, timeout, m, hc)}
}

func (c *Client) VerifyUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidUser
	}
	var u User
	return c.http.GetJSON(ctx, "/user/"+strconv.FormatInt(userID, 10), ErrUserNotFound, &u)
}

// VerifyAddress checks that addressID is in userID's address book. An
// address owned by someone else is reported as not found.
func (c *Client) VerifyAddress(ctx context.Context, userID, addressID int64) error {
	if userID <= 0 {
		return ErrInvalidUser
	}
	if addressID <= 0 {
		return ErrInvalidAddress
	}

	var book []Address
	if err := c.http.GetJSON(ctx, "/address/user/"+strconv.FormatInt(userID, 10), ErrAddressNotFound, &book); err != nil {
		return err
	}
	for _, a := range book {
		if a.ID == addressID {
			return nil
		}
	}

	logger.FromCtx(ctx).Info("address not in user's address book",
		zap.Int64("user_id", userID),
		zap.Int64("address_id", addressID),
	)
	return ErrAddressNotFound
}
