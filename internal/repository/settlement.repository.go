package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSettlementNotFound = errors.New("settlement batch not found")
)

type SettlementRepository struct {
	*pg.DB
}

func NewSettlementRepository(db *pg.DB) *SettlementRepository {
	return &SettlementRepository{
		db,
	}
}

// UpsertBatch records a settlement batch, refreshing the gateway-side
// amounts on re-fetch. A local RECONCILED status is never downgraded.
func (r *SettlementRepository) UpsertBatch(ctx context.Context, batch *model.SettlementBatch) error {
	entity := toSettlementBatchEntity(batch)
	if entity.Status == "" {
		entity.Status = string(model.SettlementBatchPending)
	}

	return r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "settlement_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"bank_reference", "payout_amount", "sale_amount", "settlement_datetime",
			}),
		}).
		Create(entity).
		Error
}

// UpsertSettledTransaction records one settled gateway transaction.
// Re-fetching a batch must not duplicate rows; the gateway transaction
// id is the identity.
func (r *SettlementRepository) UpsertSettledTransaction(ctx context.Context, st *model.SettledTransaction) error {
	entity := toSettledTransactionEntity(st)

	return r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "gateway_transaction_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"settlement_id", "order_id", "gross_amount", "tdr_amount",
				"transaction_date", "customer_phone", "customer_name",
			}),
		}).
		Create(entity).
		Error
}

func (r *SettlementRepository) GetBatch(ctx context.Context, settlementID int64) (*model.SettlementBatch, error) {
	var entity SettlementBatchEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("settlement_id = ?", settlementID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, err
	}

	return toSettlementBatchModel(&entity), nil
}

func (r *SettlementRepository) ListBatches(ctx context.Context, metal *model.MetalType, from, to *time.Time) ([]*model.SettlementBatch, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&SettlementBatchEntity{})

	if metal != nil {
		q = q.Where("metal_type = ?", string(*metal))
	}
	if from != nil {
		q = q.Where("settlement_datetime >= ?", *from)
	}
	if to != nil {
		q = q.Where("settlement_datetime < ?", *to)
	}

	var entities []*SettlementBatchEntity
	if err := q.Order("settlement_datetime DESC").Find(&entities).Error; err != nil {
		return nil, err
	}

	batches := make([]*model.SettlementBatch, len(entities))
	for i, e := range entities {
		batches[i] = toSettlementBatchModel(e)
	}
	return batches, nil
}

func (r *SettlementRepository) MarkBatchReconciled(ctx context.Context, settlementID int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&SettlementBatchEntity{}).
		Where("settlement_id = ?", settlementID).
		Update("status", string(model.SettlementBatchReconciled))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSettlementNotFound
	}
	return nil
}

// ListUnsettled returns SUCCESS transactions created since the cutoff
// that no synced settlement batch covers yet. Money the customer paid
// but the bank has not paid out.
func (r *SettlementRepository) ListUnsettled(ctx context.Context, metal *model.MetalType, since time.Time) ([]*model.Transaction, error) {
	q := r.Read(ctx).WithContext(ctx).
		Table("transactions AS t").
		Select("t.*").
		Joins("LEFT JOIN settled_transactions AS st ON st.gateway_transaction_id = t.gateway_transaction_id OR st.order_id = t.order_id").
		Where("t.status = ?", string(model.TransactionStatusSuccess)).
		Where("t.created_at >= ?", since).
		Where("st.id IS NULL")

	if metal != nil {
		q = q.Where("t.metal_type = ?", string(*metal))
	}

	var entities []*TransactionEntity
	if err := q.Order("t.created_at ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

type settledTransactionViewEntity struct {
	SettledTransactionEntity
	MetalType      string  `gorm:"column:metal_type"`
	InternalID     *int64  `gorm:"column:internal_id"`
	InternalStatus *string `gorm:"column:internal_status"`
}

// BatchDetails returns the settled transactions of a batch joined
// against the local ledger. Rows with a nil internal id are money the
// bank settled that we have no record of; those are what the report is
// for.
func (r *SettlementRepository) BatchDetails(ctx context.Context, settlementID int64) ([]*model.SettledTransactionView, error) {
	batch, err := r.GetBatch(ctx, settlementID)
	if err != nil {
		return nil, err
	}

	var rows []*settledTransactionViewEntity
	err = r.Read(ctx).WithContext(ctx).
		Table("settled_transactions AS st").
		Select(`
            st.*,
            t.id     AS internal_id,
            t.status AS internal_status
        `).
		Joins("LEFT JOIN transactions AS t ON t.gateway_transaction_id = st.gateway_transaction_id OR t.order_id = st.order_id").
		Where("st.settlement_id = ?", settlementID).
		Order("st.transaction_date ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	views := make([]*model.SettledTransactionView, len(rows))
	for i, row := range rows {
		view := &model.SettledTransactionView{
			SettledTransaction: *toSettledTransactionModel(&row.SettledTransactionEntity),
			MetalType:          batch.MetalType,
			InternalID:         row.InternalID,
		}
		if row.InternalStatus != nil {
			status := model.TransactionStatus(*row.InternalStatus)
			view.InternalStatus = &status
		}
		views[i] = view
	}
	return views, nil
}
