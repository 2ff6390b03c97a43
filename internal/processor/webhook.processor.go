package processor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/queue"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/services"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/prom"
)

// Reconciler is the engine the processor hands verified gateway facts
// to.
type Reconciler interface {
	Apply(ctx context.Context, ev services.GatewayEvent) (*services.ReconcileResult, error)
}

// WebhookProcessor consumes queued payment notifications and drives
// them through reconciliation. Signature verification happened at the
// HTTP edge; everything on the queue is already trusted.
type WebhookProcessor struct {
	reconciler  Reconciler
	idempotency *IdempotencyService
}

func NewWebhookProcessor(reconciler Reconciler, idempotency *IdempotencyService) *WebhookProcessor {
	return &WebhookProcessor{
		reconciler:  reconciler,
		idempotency: idempotency,
	}
}

func (p *WebhookProcessor) GetType() string {
	return "webhook"
}

// Process handles one queued webhook with idempotency guarantees. The
// redis lock only serializes concurrent consumers; the database CAS in
// the reconciliation engine is what makes redeliveries harmless.
func (p *WebhookProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	start := time.Now()

	// Step 1: Parse event
	var event model.WebhookEvent
	if err := json.Unmarshal(queueMessage.Data, &event); err != nil {
		logger.Error("Failed to unmarshal webhook event", "error", err)
		return err // Return error to trigger DLQ move
	}
	if err := event.Validate(); err != nil {
		logger.Error("Malformed webhook event on queue", "error", err)
		return err
	}

	orderID := event.OrderID

	// Step 2: Acquire processing lock and check idempotency
	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			logger.Info("Webhook already processed, skipping", "order_id", orderID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			// The sweep and status poll will still catch this payment.
			logger.Error("Max retries exceeded for webhook", "order_id", orderID)
			return nil // ACK to move to DLQ
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			logger.Info("Lock held by another consumer, will retry", "order_id", orderID)
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire lock", "order_id", orderID, "error", err)
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("Processing webhook",
		"order_id", orderID,
		"response_code", event.ResponseCode,
		"retry_count", procCtx.RetryCount,
		"is_retry", procCtx.IsRetry)

	// Step 3: Reconcile
	result, err := p.reconciler.Apply(ctx, services.GatewayEvent{
		Transaction: &gateway.GatewayTransaction{
			TransactionID:   event.TransactionID,
			OrderID:         event.OrderID,
			Amount:          event.Amount,
			ResponseCode:    event.ResponseCodeInt(),
			PaymentDatetime: event.PaymentDatetime,
			PaymentMethod:   event.PaymentMethod,
			Raw:             queueMessage.Data,
		},
		Phone: event.Phone,
		Name:  event.Name,
		Email: event.Email,
	})
	if err != nil {
		logger.Error("Failed to reconcile webhook", "order_id", orderID, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "order_id", orderID, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	outcome := string(result.Outcome)
	prom.IncReconcileOutcome(outcome)
	prom.AddWebhookProcessingDuration(time.Since(start).Seconds(), outcome)

	logger.Info("Webhook reconciled",
		"order_id", orderID,
		"outcome", outcome,
		"retry_count", procCtx.RetryCount)

	if result.Outcome == services.OutcomeStillPending || result.Outcome == services.OutcomeNothingToReconcile {
		// Nothing terminal happened; leave no processed marker so a
		// later redelivery can still complete the payment.
		return nil
	}

	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark success", "order_id", orderID, "error", markErr)
		// Continue - the database transition already committed
	}

	return nil // ACK message
}
