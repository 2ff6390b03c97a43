package services

import (
	"context"
	"errors"
	"time"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
)

type PendingLister interface {
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Transaction, error)
	MarkFailedIfPending(ctx context.Context, orderID string, gatewayResponse string) (bool, error)
}

type StatusChecker interface {
	PaymentStatus(ctx context.Context, metal model.MetalType, orderID string) (*gateway.GatewayTransaction, error)
}

// SweepReport counts what one sweep pass did.
type SweepReport struct {
	Checked      int `json:"checked"`
	Credited     int `json:"credited"`
	Expired      int `json:"expired"`
	Failed       int `json:"failed"`
	StillPending int `json:"still_pending"`
	Skipped      int `json:"skipped"`
}

// SweeperService expires abandoned PENDING orders. Before declaring a
// row dead it asks the gateway one last time; customers do pay hours
// after initiating, and an expiry must never race a real payment.
type SweeperService struct {
	transactionRepo PendingLister
	gateway         StatusChecker
	reconciler      *ReconcileService
	maxAge          time.Duration
	batchSize       int
}

func NewSweeperService(transactionRepo PendingLister, gw StatusChecker, reconciler *ReconcileService, maxAge time.Duration, batchSize int) *SweeperService {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SweeperService{
		transactionRepo: transactionRepo,
		gateway:         gw,
		reconciler:      reconciler,
		maxAge:          maxAge,
		batchSize:       batchSize,
	}
}

// Sweep processes one batch of stale PENDING transactions. Rows the
// gateway has no record of are marked FAILED; rows it reports paid go
// through the normal reconciliation path; anything inconclusive is
// left for the next pass.
func (s *SweeperService) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	stale, err := s.transactionRepo.ListPendingOlderThan(ctx, time.Now().Add(-s.maxAge), s.batchSize)
	if err != nil {
		return report, err
	}

	for _, txn := range stale {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		gtx, err := s.gateway.PaymentStatus(ctx, txn.MetalType, txn.OrderID)
		if err != nil {
			if errors.Is(err, gateway.ErrOrderNotFound) {
				flipped, err := s.transactionRepo.MarkFailedIfPending(ctx, txn.OrderID, "expired: order not found at gateway")
				if err != nil {
					logger.Error("Failed to expire stale transaction", "order_id", txn.OrderID, "error", err)
					report.Skipped++
					continue
				}
				if flipped {
					report.Expired++
					logger.Info("Expired stale pending transaction", "order_id", txn.OrderID, "age", time.Since(txn.CreatedAt))
				}
				continue
			}
			// Gateway unreachable: inconclusive, try again next pass.
			logger.Warn("Status check failed during sweep", "order_id", txn.OrderID, "error", err)
			report.Skipped++
			continue
		}

		result, err := s.reconciler.Apply(ctx, GatewayEvent{
			Transaction: gtx,
			Phone:       txn.Phone,
			Name:        txn.Name,
			Email:       txn.Email,
		})
		if err != nil {
			logger.Error("Reconcile failed during sweep", "order_id", txn.OrderID, "error", err)
			report.Skipped++
			continue
		}

		switch result.Outcome {
		case OutcomeCredited, OutcomeRecovered, OutcomeAttached:
			report.Credited++
		case OutcomeStillPending:
			// Reconciliation never flips PENDING to FAILED on its own; a
			// stale row whose age and gateway answer both say dead is
			// expired here, where the gateway was just consulted.
			if gateway.Classify(gtx) == gateway.StatusFailed {
				flipped, err := s.transactionRepo.MarkFailedIfPending(ctx, txn.OrderID, string(gtx.Raw))
				if err != nil {
					logger.Error("Failed to expire stale transaction", "order_id", txn.OrderID, "error", err)
					report.Skipped++
					continue
				}
				if flipped {
					report.Failed++
					logger.Info("Expired stale pending transaction after gateway failure answer", "order_id", txn.OrderID)
					continue
				}
			}
			report.StillPending++
		}
	}

	return report, nil
}
