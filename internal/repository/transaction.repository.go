package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrTransactionNotFound is returned when no transaction matches.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNoRateReference is returned when no successful transaction
	// exists to borrow a historical rate from.
	ErrNoRateReference = errors.New("no rate reference available")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

// Create inserts a transaction row. CreatedAt is honored when the
// caller sets it: recovery materializes rows dated at the gateway's
// payment time, not at insert time.
func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// GetByOrderID looks a transaction up by our order id or, failing that,
// by the gateway's transaction id. Webhooks sometimes arrive carrying
// only one of the two.
func (r *TransactionRepository) GetByOrderID(ctx context.Context, id string) (*model.Transaction, error) {
	var entity TransactionEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("order_id = ? OR gateway_transaction_id = ?", id, id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	return toTransactionModel(&entity), nil
}

// FindByGatewayReference resolves a gateway event to a local row by
// either identifier the event carries. Matching on the stored gateway
// id keeps a redelivered event pinned to the row an earlier delivery
// attached, even when that row lives under a different order id.
func (r *TransactionRepository) FindByGatewayReference(ctx context.Context, orderID, gatewayTxnID string) (*model.Transaction, error) {
	ids := make([]string, 0, 2)
	if orderID != "" {
		ids = append(ids, orderID)
	}
	if gatewayTxnID != "" && gatewayTxnID != orderID {
		ids = append(ids, gatewayTxnID)
	}
	if len(ids) == 0 {
		return nil, ErrTransactionNotFound
	}

	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("order_id IN ? OR gateway_transaction_id IN ?", ids, ids).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	return toTransactionModel(&entity), nil
}

// SuccessUpdate carries the gateway-side facts recorded on the PENDING
// to SUCCESS transition.
type SuccessUpdate struct {
	GatewayTransactionID string
	PaymentMethod        string
	GatewayResponse      string
}

// MarkSuccessIfPending flips a transaction to SUCCESS only if it is
// still PENDING. The status predicate in the WHERE clause is what makes
// concurrent webhook and poll deliveries safe: exactly one caller
// observes a true return and credits the ledgers.
func (r *TransactionRepository) MarkSuccessIfPending(ctx context.Context, orderID string, upd SuccessUpdate) (bool, error) {
	values := map[string]interface{}{
		"status":     string(model.TransactionStatusSuccess),
		"updated_at": time.Now(),
	}
	if upd.GatewayTransactionID != "" {
		values["gateway_transaction_id"] = upd.GatewayTransactionID
	}
	if upd.PaymentMethod != "" {
		values["payment_method"] = upd.PaymentMethod
	}
	if upd.GatewayResponse != "" {
		values["gateway_response"] = upd.GatewayResponse
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("order_id = ? AND status = ?", orderID, string(model.TransactionStatusPending)).
		Updates(values)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// MarkFailedIfPending flips a transaction to FAILED only if it is still
// PENDING. Terminal rows are never touched.
func (r *TransactionRepository) MarkFailedIfPending(ctx context.Context, orderID string, gatewayResponse string) (bool, error) {
	values := map[string]interface{}{
		"status":     string(model.TransactionStatusFailed),
		"updated_at": time.Now(),
	}
	if gatewayResponse != "" {
		values["gateway_response"] = gatewayResponse
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("order_id = ? AND status = ?", orderID, string(model.TransactionStatusPending)).
		Updates(values)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// LinkScheme attaches a scheme to a transaction after the fact, used
// when auto-link resolves a single active scheme on reconciliation.
func (r *TransactionRepository) LinkScheme(ctx context.Context, orderID, schemeID, schemeType string) error {
	values := map[string]interface{}{
		"scheme_id":  schemeID,
		"updated_at": time.Now(),
	}
	if schemeType != "" {
		values["scheme_type"] = schemeType
	}

	return r.Write(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("order_id = ?", orderID).
		Updates(values).
		Error
}

// SmartMatchQuery describes a paid gateway transaction with no exact
// order match: a manually entered SUCCESS row still missing its bank
// reference is hunted down by amount, metal and time proximity instead.
type SmartMatchQuery struct {
	Phone     string // optional, narrows the match when the gateway reported it
	Amount    float64
	MetalType model.MetalType
	PaidAt    time.Time
	Window    time.Duration
}

// FindSmartMatch returns the most recent SUCCESS transaction with the
// same amount and metal type, no gateway id attached yet, created within
// the window around the payment time. Such rows were recorded by hand
// and already credited; only the bank confirmation is missing.
func (r *TransactionRepository) FindSmartMatch(ctx context.Context, q SmartMatchQuery) (*model.Transaction, error) {
	window := q.Window
	if window == 0 {
		window = 24 * time.Hour
	}

	query := r.Read(ctx).WithContext(ctx).
		Where("status = ?", string(model.TransactionStatusSuccess)).
		Where("metal_type = ?", string(q.MetalType)).
		Where("amount = ?", q.Amount).
		Where("(gateway_transaction_id = '' OR gateway_transaction_id IS NULL)").
		Where("created_at >= ? AND created_at <= ?", q.PaidAt.Add(-window), q.PaidAt.Add(window))

	if q.Phone != "" {
		query = query.Where("phone = ?", q.Phone)
	}

	var entity TransactionEntity
	err := query.Order("created_at DESC").First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	return toTransactionModel(&entity), nil
}

// AttachGatewayReference stamps the gateway's identifiers onto a
// SUCCESS row that has none, completing a smart match without touching
// any ledger. The empty-id predicate makes a repeat attach a no-op.
func (r *TransactionRepository) AttachGatewayReference(ctx context.Context, orderID string, upd SuccessUpdate) (bool, error) {
	values := map[string]interface{}{
		"gateway_transaction_id": upd.GatewayTransactionID,
		"updated_at":             time.Now(),
	}
	if upd.PaymentMethod != "" {
		values["payment_method"] = upd.PaymentMethod
	}
	if upd.GatewayResponse != "" {
		values["gateway_response"] = upd.GatewayResponse
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("order_id = ? AND status = ?", orderID, string(model.TransactionStatusSuccess)).
		Where("(gateway_transaction_id = '' OR gateway_transaction_id IS NULL)").
		Updates(values)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// SameDayRate returns the purchase rate of the most recent SUCCESS
// transaction for the metal on the same calendar day as at.
func (r *TransactionRepository) SameDayRate(ctx context.Context, metal model.MetalType, at time.Time) (float64, error) {
	y, m, d := at.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, at.Location())

	return r.rateQuery(ctx, metal, func(q *gorm.DB) *gorm.DB {
		return q.Where("created_at >= ? AND created_at < ?", dayStart, dayStart.Add(24*time.Hour))
	})
}

// LatestRate returns the purchase rate of the most recent SUCCESS
// transaction for the metal, regardless of day.
func (r *TransactionRepository) LatestRate(ctx context.Context, metal model.MetalType) (float64, error) {
	return r.rateQuery(ctx, metal, func(q *gorm.DB) *gorm.DB { return q })
}

func (r *TransactionRepository) rateQuery(ctx context.Context, metal model.MetalType, scope func(*gorm.DB) *gorm.DB) (float64, error) {
	rateColumn := "gold_price_per_gram"
	if metal == model.MetalSilver {
		rateColumn = "silver_price_per_gram"
	}

	q := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Select(rateColumn).
		Where("status = ?", string(model.TransactionStatusSuccess)).
		Where("metal_type = ?", string(metal)).
		Where(rateColumn+" > 0")

	var rate float64
	err := scope(q).Order("created_at DESC").Limit(1).Scan(&rate).Error
	if err != nil {
		return 0, err
	}
	if rate == 0 {
		return 0, ErrNoRateReference
	}
	return rate, nil
}

// ListPendingOlderThan returns PENDING transactions created before the
// cutoff, oldest first. The pending-cleanup sweep feeds on this.
func (r *TransactionRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var entities []*TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status = ?", string(model.TransactionStatusPending)).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toTransactionModels(entities), nil
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{})

	if f.Phone != nil && *f.Phone != "" {
		q = q.Where("phone = ?", *f.Phone)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.MetalType != nil {
		q = q.Where("metal_type = ?", string(*f.MetalType))
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*TransactionEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toTransactionModels(entities), total, nil
}
