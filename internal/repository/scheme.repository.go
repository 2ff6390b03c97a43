package repository

import (
	"context"
	"errors"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrSchemeNotFound = errors.New("scheme not found")
)

type SchemeRepository struct {
	*pg.DB
}

func NewSchemeRepository(db *pg.DB) *SchemeRepository {
	return &SchemeRepository{
		db,
	}
}

func (r *SchemeRepository) Create(ctx context.Context, s *model.Scheme) (*model.Scheme, error) {
	entity := toSchemeEntity(s)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toSchemeModel(entity), nil
}

func (r *SchemeRepository) GetBySchemeID(ctx context.Context, schemeID string) (*model.Scheme, error) {
	var entity SchemeEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("scheme_id = ?", schemeID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSchemeNotFound
		}
		return nil, err
	}

	return toSchemeModel(&entity), nil
}

// FindActive returns all ACTIVE schemes for a phone and metal type.
// Auto-link only happens when this returns exactly one scheme; callers
// treat zero or many as "don't guess".
func (r *SchemeRepository) FindActive(ctx context.Context, phone string, metal model.MetalType) ([]*model.Scheme, error) {
	var entities []*SchemeEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("phone = ?", phone).
		Where("metal_type = ?", string(metal)).
		Where("status = ?", string(model.SchemeStatusActive)).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toSchemeModels(entities), nil
}

// SchemeCredit is one additive installment delta applied when a linked
// transaction succeeds.
type SchemeCredit struct {
	SchemeID   string
	Amount     float64
	MetalGrams float64
}

// Credit applies an installment to a scheme's running totals. Strictly
// additive, same contract as the customer ledger writer.
func (r *SchemeRepository) Credit(ctx context.Context, credit SchemeCredit) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&SchemeEntity{}).
		Where("scheme_id = ?", credit.SchemeID).
		Updates(map[string]interface{}{
			"total_invested":          gorm.Expr("total_invested + ?", credit.Amount),
			"total_amount_paid":       gorm.Expr("total_amount_paid + ?", credit.Amount),
			"total_metal_accumulated": gorm.Expr("total_metal_accumulated + ?", credit.MetalGrams),
			"completed_installments":  gorm.Expr("completed_installments + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSchemeNotFound
	}

	return nil
}
