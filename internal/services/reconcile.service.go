package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/repository"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
)

// ErrUnrecoverable means a paid gateway transaction could not be
// attached or materialized; the money is real, so this must page.
var ErrUnrecoverable = errors.New("paid transaction could not be recovered")

// Outcome says what a reconciliation pass actually did.
type Outcome string

const (
	OutcomeCredited           Outcome = "credited"
	OutcomeRecovered          Outcome = "recovered"
	OutcomeAttached           Outcome = "attached"
	OutcomeAlreadyFinal       Outcome = "already_final"
	OutcomeStillPending       Outcome = "still_pending"
	OutcomeNothingToReconcile Outcome = "nothing_to_reconcile"
)

// RecoveryPaymentMethod marks rows materialized by recovery so support
// can tell them apart from normal webhook/poll confirmations.
const RecoveryPaymentMethod = "OMNIWARE_RECOVERY"

// TransactionStore is the slice of the transaction repository the
// reconciliation engine needs.
type TransactionStore interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	FindByGatewayReference(ctx context.Context, orderID, gatewayTxnID string) (*model.Transaction, error)
	MarkSuccessIfPending(ctx context.Context, orderID string, upd repository.SuccessUpdate) (bool, error)
	LinkScheme(ctx context.Context, orderID, schemeID, schemeType string) error
	FindSmartMatch(ctx context.Context, q repository.SmartMatchQuery) (*model.Transaction, error)
	AttachGatewayReference(ctx context.Context, orderID string, upd repository.SuccessUpdate) (bool, error)
	SameDayRate(ctx context.Context, metal model.MetalType, at time.Time) (float64, error)
	LatestRate(ctx context.Context, metal model.MetalType) (float64, error)
}

type CustomerStore interface {
	Credit(ctx context.Context, credit model.CustomerCredit) error
	UpdateProfile(ctx context.Context, phone, name, email string) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type SchemeStore interface {
	FindActive(ctx context.Context, phone string, metal model.MetalType) ([]*model.Scheme, error)
	Credit(ctx context.Context, credit repository.SchemeCredit) error
}

// RateFloors are the configured fallback purchase rates used when
// recovery cannot find any historical rate to borrow.
type RateFloors struct {
	Gold   float64
	Silver float64
}

func (f RateFloors) For(metal model.MetalType) float64 {
	if metal == model.MetalSilver {
		return f.Silver
	}
	return f.Gold
}

// GatewayEvent is one confirmed gateway fact to reconcile against the
// local ledger, regardless of whether it arrived by webhook or poll.
// The customer fields are hints; webhooks carry them, polls do not.
type GatewayEvent struct {
	Transaction *gateway.GatewayTransaction
	Phone       string
	Name        string
	Email       string
}

// ReconcileResult reports what a single event did to the ledger.
type ReconcileResult struct {
	Outcome     Outcome
	Transaction *model.Transaction
}

// ReconcileService owns the only code path that moves a transaction to
// a terminal status and credits the customer and scheme ledgers. Both
// the webhook processor and the status poll funnel into Apply, so the
// first-transition-wins rule lives in exactly one place.
type ReconcileService struct {
	transactionRepo  TransactionStore
	customerRepo     CustomerStore
	schemeRepo       SchemeStore
	rateFloors       RateFloors
	smartMatchWindow time.Duration
}

func NewReconcileService(transactionRepo TransactionStore, customerRepo CustomerStore, schemeRepo SchemeStore, rateFloors RateFloors) *ReconcileService {
	return &ReconcileService{
		transactionRepo:  transactionRepo,
		customerRepo:     customerRepo,
		schemeRepo:       schemeRepo,
		rateFloors:       rateFloors,
		smartMatchWindow: 24 * time.Hour,
	}
}

// Apply reconciles one gateway event. The whole pass runs in a single
// DB transaction: the status flip and every ledger credit commit
// together or not at all.
func (s *ReconcileService) Apply(ctx context.Context, ev GatewayEvent) (*ReconcileResult, error) {
	gtx := ev.Transaction
	status := gateway.Classify(gtx)

	var result *ReconcileResult
	err := s.customerRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		// The gateway-id leg of the lookup is the idempotence pre-check:
		// a redelivery of an event that recovery attached to a row with a
		// different order id must land on that same row, not recover again.
		txn, err := s.transactionRepo.FindByGatewayReference(ctx, gtx.OrderID, gtx.TransactionID)
		if err != nil {
			if !errors.Is(err, repository.ErrTransactionNotFound) {
				return err
			}
			if status != gateway.StatusSuccess {
				// Nothing to update and no money moved.
				result = &ReconcileResult{Outcome: OutcomeNothingToReconcile}
				return nil
			}
			result, err = s.recover(ctx, ev)
			return err
		}

		switch status {
		case gateway.StatusSuccess:
			result, err = s.credit(ctx, txn, ev)
			return err
		default:
			// A pending or failed answer never mutates a local row here.
			// The order may still be paid later; expiring stale PENDING
			// rows belongs to the sweep, which confirms with the gateway
			// before flipping anything.
			if txn.Status == model.TransactionStatusPending {
				result = &ReconcileResult{Outcome: OutcomeStillPending, Transaction: txn}
			} else {
				result = &ReconcileResult{Outcome: OutcomeAlreadyFinal, Transaction: txn}
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// credit performs the PENDING to SUCCESS transition on an existing row.
// The conditional update is the idempotence anchor: when it reports
// zero rows the event has already been processed (or the row already
// failed) and no ledger is touched.
func (s *ReconcileService) credit(ctx context.Context, txn *model.Transaction, ev GatewayEvent) (*ReconcileResult, error) {
	gtx := ev.Transaction

	flipped, err := s.transactionRepo.MarkSuccessIfPending(ctx, txn.OrderID, repository.SuccessUpdate{
		GatewayTransactionID: gtx.TransactionID,
		PaymentMethod:        paymentMethod(gtx),
		GatewayResponse:      string(gtx.Raw),
	})
	if err != nil {
		return nil, err
	}
	if !flipped {
		return &ReconcileResult{Outcome: OutcomeAlreadyFinal, Transaction: txn}, nil
	}

	goldGrams, silverGrams := normalizeGrams(txn)
	paidAt, ok := gtx.PaidAt()
	if !ok {
		paidAt = time.Now()
	}

	if err := s.customerRepo.Credit(ctx, model.CustomerCredit{
		Phone:         txn.Phone,
		GoldGrams:     goldGrams,
		SilverGrams:   silverGrams,
		Amount:        txn.Amount,
		TransactionAt: paidAt,
	}); err != nil {
		return nil, fmt.Errorf("credit customer: %w", err)
	}

	name := firstNonEmpty(ev.Name, txn.Name)
	email := firstNonEmpty(ev.Email, txn.Email)
	if err := s.customerRepo.UpdateProfile(ctx, txn.Phone, name, email); err != nil {
		return nil, fmt.Errorf("update customer profile: %w", err)
	}

	if err := s.creditScheme(ctx, txn, goldGrams+silverGrams); err != nil {
		return nil, err
	}

	logger.Info("Transaction credited",
		"order_id", txn.OrderID,
		"phone", txn.Phone,
		"amount", txn.Amount,
		"metal_type", txn.MetalType,
		"grams", goldGrams+silverGrams)

	return &ReconcileResult{Outcome: OutcomeCredited, Transaction: txn}, nil
}

// creditScheme applies the installment to a linked scheme, or auto-links
// when the customer has exactly one ACTIVE scheme for the metal. Zero or
// several candidates means we don't guess.
func (s *ReconcileService) creditScheme(ctx context.Context, txn *model.Transaction, metalGrams float64) error {
	schemeID := ""
	if txn.SchemeID != nil && *txn.SchemeID != "" {
		schemeID = *txn.SchemeID
	} else {
		candidates, err := s.schemeRepo.FindActive(ctx, txn.Phone, txn.MetalType)
		if err != nil {
			return fmt.Errorf("find active schemes: %w", err)
		}
		if len(candidates) != 1 {
			if len(candidates) > 1 {
				logger.Warn("Multiple active schemes, skipping auto-link",
					"phone", txn.Phone, "metal_type", txn.MetalType, "count", len(candidates))
			}
			return nil
		}
		schemeID = candidates[0].SchemeID
		if err := s.transactionRepo.LinkScheme(ctx, txn.OrderID, schemeID, candidates[0].Type); err != nil {
			return fmt.Errorf("link scheme: %w", err)
		}
	}

	err := s.schemeRepo.Credit(ctx, repository.SchemeCredit{
		SchemeID:   schemeID,
		Amount:     txn.Amount,
		MetalGrams: metalGrams,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSchemeNotFound) {
			// A stale scheme id must not block the customer credit.
			logger.Warn("Linked scheme missing, customer credited without installment",
				"order_id", txn.OrderID, "scheme_id", schemeID)
			return nil
		}
		return fmt.Errorf("credit scheme: %w", err)
	}
	return nil
}

// recover handles a paid gateway transaction with no local row: first
// try to attach it to a manually entered SUCCESS record from around the
// payment time, otherwise materialize a SUCCESS row so the customer's
// money is on the books.
func (s *ReconcileService) recover(ctx context.Context, ev GatewayEvent) (*ReconcileResult, error) {
	gtx := ev.Transaction

	metal, err := model.MetalTypeFromOrderID(gtx.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnrecoverable, gtx.OrderID, err)
	}

	amount := gtx.AmountFloat()
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %s: no usable amount", ErrUnrecoverable, gtx.OrderID)
	}

	paidAt, ok := gtx.PaidAt()
	if !ok {
		paidAt = time.Now()
	}

	matched, err := s.transactionRepo.FindSmartMatch(ctx, repository.SmartMatchQuery{
		Phone:     ev.Phone,
		Amount:    amount,
		MetalType: metal,
		PaidAt:    paidAt,
		Window:    s.smartMatchWindow,
	})
	if err == nil {
		// The matched row was recorded and credited by hand; only the
		// bank reference is missing, so no ledger is touched.
		attached, err := s.transactionRepo.AttachGatewayReference(ctx, matched.OrderID, repository.SuccessUpdate{
			GatewayTransactionID: gtx.TransactionID,
			PaymentMethod:        paymentMethod(gtx),
			GatewayResponse:      string(gtx.Raw),
		})
		if err != nil {
			return nil, err
		}
		if !attached {
			return &ReconcileResult{Outcome: OutcomeAlreadyFinal, Transaction: matched}, nil
		}
		logger.Info("Recovery attached gateway reference to manual record",
			"gateway_order_id", gtx.OrderID,
			"matched_order_id", matched.OrderID)
		return &ReconcileResult{Outcome: OutcomeAttached, Transaction: matched}, nil
	}
	if !errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, err
	}

	return s.materialize(ctx, ev, metal, amount, paidAt)
}

// materialize creates the missing SUCCESS row for a payment the gateway
// confirmed but we never recorded. The row is dated at the payment
// time, priced from the best historical rate available, and credited
// like any other success.
func (s *ReconcileService) materialize(ctx context.Context, ev GatewayEvent, metal model.MetalType, amount float64, paidAt time.Time) (*ReconcileResult, error) {
	gtx := ev.Transaction

	rate, err := s.historicalRate(ctx, metal, paidAt)
	if err != nil {
		return nil, err
	}
	grams := amount / rate

	txn := &model.Transaction{
		OrderID:              gtx.OrderID,
		GatewayTransactionID: gtx.TransactionID,
		Phone:                ev.Phone,
		Name:                 firstNonEmpty(ev.Name, "Customer"),
		Email:                ev.Email,
		Type:                 "BUY",
		Amount:               amount,
		MetalType:            metal,
		Status:               model.TransactionStatusSuccess,
		PaymentMethod:        RecoveryPaymentMethod,
		GatewayResponse:      string(gtx.Raw),
		CreatedAt:            paidAt,
	}
	if metal == model.MetalGold {
		txn.GoldGrams = grams
		txn.GoldPricePerGram = rate
	} else {
		txn.SilverGrams = grams
		txn.SilverPricePerGram = rate
	}

	if ev.Phone == "" {
		// Without a phone there is no ledger to credit; the row alone
		// keeps the money visible.
		logger.Warn("Recovered transaction has no phone, ledger credit skipped",
			"order_id", gtx.OrderID)
	}

	created, err := s.transactionRepo.Create(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnrecoverable, gtx.OrderID, err)
	}

	if ev.Phone != "" {
		if err := s.customerRepo.Credit(ctx, model.CustomerCredit{
			Phone:         ev.Phone,
			GoldGrams:     created.GoldGrams,
			SilverGrams:   created.SilverGrams,
			Amount:        amount,
			TransactionAt: paidAt,
		}); err != nil {
			return nil, fmt.Errorf("credit customer: %w", err)
		}
		if err := s.creditScheme(ctx, created, grams); err != nil {
			return nil, err
		}
	}

	logger.Warn("Materialized missing transaction from gateway record",
		"order_id", created.OrderID,
		"amount", amount,
		"metal_type", metal,
		"rate", rate,
		"grams", grams)

	return &ReconcileResult{Outcome: OutcomeRecovered, Transaction: created}, nil
}

// historicalRate picks the best purchase rate for a recovered payment:
// the most recent SUCCESS on the same calendar day, else the most
// recent SUCCESS ever, else the configured floor.
func (s *ReconcileService) historicalRate(ctx context.Context, metal model.MetalType, paidAt time.Time) (float64, error) {
	rate, err := s.transactionRepo.SameDayRate(ctx, metal, paidAt)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, repository.ErrNoRateReference) {
		return 0, err
	}

	rate, err = s.transactionRepo.LatestRate(ctx, metal)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, repository.ErrNoRateReference) {
		return 0, err
	}

	floor := s.rateFloors.For(metal)
	if floor <= 0 {
		return 0, fmt.Errorf("%w: no rate reference and no floor configured for %s", ErrUnrecoverable, metal)
	}
	return floor, nil
}

// normalizeGrams picks the gram figure that matches the transaction's
// metal type and zeroes the other. App builds have been seen populating
// the wrong column; crediting both would double-count.
func normalizeGrams(txn *model.Transaction) (goldGrams, silverGrams float64) {
	switch txn.MetalType {
	case model.MetalSilver:
		silverGrams = txn.SilverGrams
		if silverGrams == 0 && txn.GoldGrams > 0 {
			silverGrams = txn.GoldGrams
		}
		if silverGrams == 0 && txn.SilverPricePerGram > 0 {
			silverGrams = txn.Amount / txn.SilverPricePerGram
		}
	default:
		goldGrams = txn.GoldGrams
		if goldGrams == 0 && txn.SilverGrams > 0 {
			goldGrams = txn.SilverGrams
		}
		if goldGrams == 0 && txn.GoldPricePerGram > 0 {
			goldGrams = txn.Amount / txn.GoldPricePerGram
		}
	}
	return goldGrams, silverGrams
}

func paymentMethod(gtx *gateway.GatewayTransaction) string {
	if gtx.PaymentMethod != "" {
		return gtx.PaymentMethod
	}
	return gtx.PaymentMode
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
