package repository

import (
	"context"
	"errors"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
)

type CustomerRepository struct {
	*pg.DB
}

func NewCustomerRepository(db *pg.DB) *CustomerRepository {
	return &CustomerRepository{
		db,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	entity := toCustomerEntity(c)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCustomerModel(entity), nil
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	var entity CustomerEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("phone = ?", phone).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	return toCustomerModel(&entity), nil
}

// Credit applies one additive delta to a customer's running totals,
// creating the customer row on first purchase. The writer is strictly
// additive and carries no dedup of its own: the caller's PENDING to
// SUCCESS transition is the only thing that gates it.
func (r *CustomerRepository) Credit(ctx context.Context, credit model.CustomerCredit) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CustomerEntity{}).
		Where("phone = ?", credit.Phone).
		Updates(map[string]interface{}{
			"total_gold":        gorm.Expr("total_gold + ?", credit.GoldGrams),
			"total_silver":      gorm.Expr("total_silver + ?", credit.SilverGrams),
			"total_invested":    gorm.Expr("total_invested + ?", credit.Amount),
			"transaction_count": gorm.Expr("transaction_count + 1"),
			"last_transaction":  credit.TransactionAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// First purchase for this phone.
	entity := &CustomerEntity{
		Phone:            credit.Phone,
		TotalGold:        credit.GoldGrams,
		TotalSilver:      credit.SilverGrams,
		TotalInvested:    credit.Amount,
		TransactionCount: 1,
		LastTransaction:  &credit.TransactionAt,
	}
	return r.Write(ctx).WithContext(ctx).Create(entity).Error
}

// UpdateProfile fills in name/email when a later transaction reports
// them. Empty values never overwrite existing ones.
func (r *CustomerRepository) UpdateProfile(ctx context.Context, phone, name, email string) error {
	values := map[string]interface{}{}
	if name != "" {
		values["name"] = name
	}
	if email != "" {
		values["email"] = email
	}
	if len(values) == 0 {
		return nil
	}

	return r.Write(ctx).WithContext(ctx).
		Model(&CustomerEntity{}).
		Where("phone = ?", phone).
		Updates(values).
		Error
}
