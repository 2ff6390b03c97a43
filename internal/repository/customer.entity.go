package repository

import (
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
)

type CustomerEntity struct {
	ID               int64      `db:"id"                gorm:"primaryKey;autoIncrement;column:id"`
	Phone            string     `db:"phone"             gorm:"column:phone;not null;uniqueIndex"`
	Name             string     `db:"name"              gorm:"column:name"`
	Email            string     `db:"email"             gorm:"column:email"`
	TotalGold        float64    `db:"total_gold"        gorm:"column:total_gold;not null;default:0"`
	TotalSilver      float64    `db:"total_silver"      gorm:"column:total_silver;not null;default:0"`
	TotalInvested    float64    `db:"total_invested"    gorm:"column:total_invested;not null;default:0"`
	TransactionCount int        `db:"transaction_count" gorm:"column:transaction_count;not null;default:0"`
	LastTransaction  *time.Time `db:"last_transaction"  gorm:"column:last_transaction"`
	CreatedAt        time.Time  `db:"created_at"        gorm:"column:created_at;autoCreateTime"`
}

func (CustomerEntity) TableName() string {
	return "customers"
}

func toCustomerEntity(m *model.Customer) *CustomerEntity {
	if m == nil {
		return nil
	}
	return &CustomerEntity{
		ID:               m.ID,
		Phone:            m.Phone,
		Name:             m.Name,
		Email:            m.Email,
		TotalGold:        m.TotalGold,
		TotalSilver:      m.TotalSilver,
		TotalInvested:    m.TotalInvested,
		TransactionCount: m.TransactionCount,
		LastTransaction:  m.LastTransaction,
		CreatedAt:        m.CreatedAt,
	}
}

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	return &model.Customer{
		ID:               e.ID,
		Phone:            e.Phone,
		Name:             e.Name,
		Email:            e.Email,
		TotalGold:        e.TotalGold,
		TotalSilver:      e.TotalSilver,
		TotalInvested:    e.TotalInvested,
		TransactionCount: e.TransactionCount,
		LastTransaction:  e.LastTransaction,
		CreatedAt:        e.CreatedAt,
	}
}
