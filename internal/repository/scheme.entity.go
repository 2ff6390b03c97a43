package repository

import (
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
)

type SchemeEntity struct {
	ID                    int64     `db:"id"                      gorm:"primaryKey;autoIncrement;column:id"`
	SchemeID              string    `db:"scheme_id"               gorm:"column:scheme_id;not null;uniqueIndex"`
	Phone                 string    `db:"phone"                   gorm:"column:phone;not null;index"`
	MetalType             string    `db:"metal_type"              gorm:"column:metal_type;not null"`
	Type                  string    `db:"type"                    gorm:"column:type;not null"`
	MonthlyAmount         float64   `db:"monthly_amount"          gorm:"column:monthly_amount;not null"`
	TotalInvested         float64   `db:"total_invested"          gorm:"column:total_invested;not null;default:0"`
	TotalAmountPaid       float64   `db:"total_amount_paid"       gorm:"column:total_amount_paid;not null;default:0"`
	TotalMetalAccumulated float64   `db:"total_metal_accumulated" gorm:"column:total_metal_accumulated;not null;default:0"`
	CompletedInstallments int       `db:"completed_installments"  gorm:"column:completed_installments;not null;default:0"`
	Status                string    `db:"status"                  gorm:"column:status;not null;index"`
	CreatedAt             time.Time `db:"created_at"              gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `db:"updated_at"              gorm:"column:updated_at;autoUpdateTime"`
}

func (SchemeEntity) TableName() string {
	return "schemes"
}

func toSchemeEntity(m *model.Scheme) *SchemeEntity {
	if m == nil {
		return nil
	}
	return &SchemeEntity{
		ID:                    m.ID,
		SchemeID:              m.SchemeID,
		Phone:                 m.Phone,
		MetalType:             string(m.MetalType),
		Type:                  m.Type,
		MonthlyAmount:         m.MonthlyAmount,
		TotalInvested:         m.TotalInvested,
		TotalAmountPaid:       m.TotalAmountPaid,
		TotalMetalAccumulated: m.TotalMetalAccumulated,
		CompletedInstallments: m.CompletedInstallments,
		Status:                string(m.Status),
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func toSchemeModel(e *SchemeEntity) *model.Scheme {
	if e == nil {
		return nil
	}
	return &model.Scheme{
		ID:                    e.ID,
		SchemeID:              e.SchemeID,
		Phone:                 e.Phone,
		MetalType:             model.MetalType(e.MetalType),
		Type:                  e.Type,
		MonthlyAmount:         e.MonthlyAmount,
		TotalInvested:         e.TotalInvested,
		TotalAmountPaid:       e.TotalAmountPaid,
		TotalMetalAccumulated: e.TotalMetalAccumulated,
		CompletedInstallments: e.CompletedInstallments,
		Status:                model.SchemeStatus(e.Status),
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

func toSchemeModels(entities []*SchemeEntity) []*model.Scheme {
	if entities == nil {
		return nil
	}
	models := make([]*model.Scheme, len(entities))
	for i, e := range entities {
		models[i] = toSchemeModel(e)
	}
	return models
}
