package order

import (
	"context"
	"errors"
	"time"

	"foodcourt-be/internal/logger"
	"foodcourt-be/internal/metrics"
	"foodcourt-be/internal/wallet"

	"go.uber.org/zap"
)

type ReconcilerConfig struct {
	Interval time.Duration
	// Grace keeps the scan away from placements still in flight.
	Grace    time.Duration
	Lookback time.Duration
	// CallTimeout bounds each ledger or repository call.
	CallTimeout time.Duration
}

// Reconciler repairs wallet effects a crashed process left behind: debits
// with no order and cancellations with no refund. Every credit it issues
// uses the same operation id the engine would have used, so repeating a
// scan is harmless.
type Reconciler struct {
	repo    Repository
	ledger  wallet.Ledger
	metrics *metrics.Metrics
	cfg     ReconcilerConfig
	now     func() time.Time
}

func NewReconciler(repo Repository, ledger wallet.Ledger, m *metrics.Metrics, cfg ReconcilerConfig, now func() time.Time) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 2 * time.Minute
	}
	if cfg.Lookback <= cfg.Grace {
		cfg.Lookback = cfg.Grace + 24*time.Hour
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{repo: repo, ledger: ledger, metrics: m, cfg: cfg, now: now}
}

// Run scans every Interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "reconciler"))
	log.Info("reconciler started", zap.Duration("interval", r.cfg.Interval))

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				log.Error("reconcile pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs one scan and returns the number of credits issued.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	now := r.now()
	from, to := now.Add(-r.cfg.Lookback), now.Add(-r.cfg.Grace)

	orphans, err := r.compensateOrphanDebits(ctx, from, to)
	if err != nil {
		return orphans, err
	}
	refunds, err := r.refundCancelled(ctx, from, to)
	return orphans + refunds, err
}

func (r *Reconciler) compensateOrphanDebits(ctx context.Context, from, to time.Time) (int, error) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "reconciler"))

	lctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	debits, err := r.ledger.ListDebits(lctx, from, to)
	cancel()
	if err != nil {
		return 0, err
	}

	issued := 0
	for _, d := range debits {
		id, ok := orderIDFromDebit(d.OperationID)
		if !ok {
			continue
		}

		_, err := r.repo.GetByID(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrOrderNotFound) {
			log.Warn("order lookup failed", zap.String("order_id", id.String()), zap.Error(err))
			continue
		}

		applied, err := r.creditOnce(ctx, wallet.MutationParams{
			UserID:      d.UserID,
			Amount:      d.Amount,
			OperationID: compensateOperationID(id),
			Reference:   id.String(),
		})
		if err != nil {
			log.Error("orphan debit credit failed",
				zap.Bool("alert", true),
				zap.String("operation_id", d.OperationID),
				zap.Error(err),
			)
			continue
		}
		if applied {
			issued++
			r.metrics.ReconcilerCredits.WithLabelValues("orphan_debit").Inc()
			log.Warn("compensated orphan debit",
				zap.String("order_id", id.String()),
				zap.Int64("user_id", d.UserID),
				zap.String("amount", d.Amount.String()),
			)
		}
	}
	return issued, nil
}

func (r *Reconciler) refundCancelled(ctx context.Context, from, to time.Time) (int, error) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "reconciler"))

	lctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	orders, err := r.repo.ListByStatusChangedBetween(lctx, StatusCancelled, from, to)
	cancel()
	if err != nil {
		return 0, err
	}

	issued := 0
	for _, o := range orders {
		if !o.TotalPrice.IsPositive() {
			continue
		}
		applied, err := r.creditOnce(ctx, wallet.MutationParams{
			UserID:      o.UserID,
			Amount:      o.TotalPrice,
			OperationID: refundOperationID(o.ID),
			Reference:   o.ID.String(),
		})
		if err != nil {
			log.Error("refund credit failed",
				zap.Bool("alert", true),
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if applied {
			issued++
			r.metrics.ReconcilerCredits.WithLabelValues("missing_refund").Inc()
			log.Warn("issued missing refund",
				zap.String("order_id", o.ID.String()),
				zap.Int64("user_id", o.UserID),
				zap.String("amount", o.TotalPrice.String()),
			)
		}
	}
	return issued, nil
}

// creditOnce applies params unless its entry already exists. It reports
// whether this call wrote the entry.
func (r *Reconciler) creditOnce(ctx context.Context, params wallet.MutationParams) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	_, err := r.ledger.GetEntry(cctx, params.OperationID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, wallet.ErrEntryNotFound) {
		return false, err
	}
	if _, err := r.ledger.Credit(cctx, params); err != nil {
		return false, err
	}
	return true, nil
}
