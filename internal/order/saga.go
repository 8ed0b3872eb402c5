package order

import (
	"context"
	"errors"
	"time"

	"foodcourt-be/internal/apperr"
	"foodcourt-be/internal/logger"
	"foodcourt-be/internal/metrics"
	"foodcourt-be/internal/wallet"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func debitOperationID(id uuid.UUID) string      { return "order:" + id.String() + ":debit" }
func compensateOperationID(id uuid.UUID) string { return "order:" + id.String() + ":compensate" }
func refundOperationID(id uuid.UUID) string     { return "order:" + id.String() + ":refund" }

// orderIDFromDebit extracts the order id from a debit operation id.
func orderIDFromDebit(operationID string) (uuid.UUID, bool) {
	const prefix, suffix = "order:", ":debit"
	if len(operationID) != len(prefix)+36+len(suffix) ||
		operationID[:len(prefix)] != prefix ||
		operationID[len(operationID)-len(suffix):] != suffix {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(operationID[len(prefix) : len(prefix)+36])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// compensator issues wallet credits that must not be lost. Each credit is
// retried with exponential backoff until it lands or maxElapsed passes.
type compensator struct {
	ledger          wallet.Ledger
	metrics         *metrics.Metrics
	initialInterval time.Duration
	maxElapsed      time.Duration
	callTimeout     time.Duration
}

func (c *compensator) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = c.maxElapsed
	return b
}

// credit applies params once. Validation and missing-account errors are
// not retried. On exhaustion the failure is logged with alert=true and
// left to the reconciler.
func (c *compensator) credit(ctx context.Context, params wallet.MutationParams, reason string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "saga"),
		zap.String("reason", reason),
		zap.String("operation_id", params.OperationID),
		zap.Int64("user_id", params.UserID),
		zap.String("amount", params.Amount.String()),
	)

	op := func() error {
		c.metrics.CompensationAttempts.Inc()

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		_, err := c.ledger.Credit(callCtx, params)
		if err == nil {
			return nil
		}
		if errors.Is(err, apperr.ErrInvalidInput) || errors.Is(err, apperr.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("credit failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(c.newBackOff(), ctx), notify)
	if err != nil {
		c.metrics.CompensationFailures.Inc()
		log.Error("credit could not be applied, left for reconciliation",
			zap.Bool("alert", true),
			zap.Error(err),
		)
		return err
	}

	log.Info("credit applied")
	return nil
}
