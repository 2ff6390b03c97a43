package services

import (
	"context"
	"errors"
	"time"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/repository"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
)

// PaymentGateway is the slice of the gateway client the payment flow
// needs.
type PaymentGateway interface {
	NewOrderID(metal model.MetalType) (string, error)
	BuildPaymentRequest(req model.OrderCreateRequest, orderID string) (*gateway.PaymentPage, error)
	PaymentStatus(ctx context.Context, metal model.MetalType, orderID string) (*gateway.GatewayTransaction, error)
}

type TransactionLister interface {
	TransactionStore
	GetByOrderID(ctx context.Context, id string) (*model.Transaction, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

// PaymentService owns order creation and the on-demand status poll.
// Status polls funnel into the reconciliation engine, never update
// anything directly.
type PaymentService struct {
	gateway         PaymentGateway
	transactionRepo TransactionLister
	reconciler      *ReconcileService
}

func NewPaymentService(gw PaymentGateway, transactionRepo TransactionLister, reconciler *ReconcileService) *PaymentService {
	return &PaymentService{
		gateway:         gw,
		transactionRepo: transactionRepo,
		reconciler:      reconciler,
	}
}

// Initiate creates the PENDING transaction row and returns the signed
// payment page the app posts to the gateway. The row exists before the
// customer ever sees the payment page, so a webhook can always find it.
func (s *PaymentService) Initiate(ctx context.Context, req model.OrderCreateRequest) (*gateway.PaymentPage, *model.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	orderID, err := s.gateway.NewOrderID(req.MetalType)
	if err != nil {
		return nil, nil, err
	}

	txn := &model.Transaction{
		OrderID:            orderID,
		Phone:              req.Phone,
		Name:               req.Name,
		Email:              req.Email,
		Type:               "BUY",
		Amount:             req.Amount,
		MetalType:          req.MetalType,
		GoldPricePerGram:   req.GoldPricePerGram,
		SilverPricePerGram: req.SilverPricePerGram,
		Status:             model.TransactionStatusPending,
		SchemeID:           req.SchemeID,
		SchemeType:         req.SchemeType,
		InstallmentNumber:  req.InstallmentNumber,
		CreatedAt:          time.Now(),
	}
	applyGramFields(txn, req)

	created, err := s.transactionRepo.Create(ctx, txn)
	if err != nil {
		return nil, nil, err
	}

	page, err := s.gateway.BuildPaymentRequest(req, orderID)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Payment initiated",
		"order_id", orderID,
		"phone", req.Phone,
		"amount", req.Amount,
		"metal_type", req.MetalType)

	return page, created, nil
}

// applyGramFields writes the gram quantity onto the column matching the
// metal type, deriving it from the rate when the app sent none. Gram
// values arriving on the wrong metal's field are moved, not trusted.
func applyGramFields(txn *model.Transaction, req model.OrderCreateRequest) {
	grams := req.GoldGrams
	if grams == 0 {
		grams = req.SilverGrams
	}

	if txn.MetalType == model.MetalSilver {
		if grams == 0 && req.SilverPricePerGram > 0 {
			grams = req.Amount / req.SilverPricePerGram
		}
		txn.SilverGrams = grams
		txn.GoldGrams = 0
		return
	}

	if grams == 0 && req.GoldPricePerGram > 0 {
		grams = req.Amount / req.GoldPricePerGram
	}
	txn.GoldGrams = grams
	txn.SilverGrams = 0
}

// CheckStatus polls the gateway for an order and reconciles whatever it
// reports. A gateway transport failure is inconclusive and surfaces as
// an error with no state change.
func (s *PaymentService) CheckStatus(ctx context.Context, orderID string) (*ReconcileResult, error) {
	var (
		metal model.MetalType
		phone string
		name  string
		email string
	)

	txn, err := s.transactionRepo.GetByOrderID(ctx, orderID)
	switch {
	case err == nil:
		metal = txn.MetalType
		phone, name, email = txn.Phone, txn.Name, txn.Email
		orderID = txn.OrderID
	case errors.Is(err, repository.ErrTransactionNotFound):
		// Unknown locally; the gateway may still know it, and a paid
		// answer will flow through recovery.
		metal, err = model.MetalTypeFromOrderID(orderID)
		if err != nil {
			return nil, repository.ErrTransactionNotFound
		}
	default:
		return nil, err
	}

	gtx, err := s.gateway.PaymentStatus(ctx, metal, orderID)
	if err != nil {
		return nil, err
	}

	return s.reconciler.Apply(ctx, GatewayEvent{
		Transaction: gtx,
		Phone:       phone,
		Name:        name,
		Email:       email,
	})
}

// Pending lists PENDING transactions, optionally for one phone.
func (s *PaymentService) Pending(ctx context.Context, phone *string, limit, offset int) ([]*model.Transaction, int64, error) {
	return s.transactionRepo.List(ctx, model.TransactionFilter{
		Phone:    phone,
		Statuses: []model.TransactionStatus{model.TransactionStatusPending},
		Limit:    limit,
		Offset:   offset,
		Desc:     true,
	})
}

// History lists transactions with the caller's filter.
func (s *PaymentService) History(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	return s.transactionRepo.List(ctx, f)
}
