package repository

import (
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
)

type TransactionEntity struct {
	ID                   int64     `db:"id"                     gorm:"primaryKey;autoIncrement;column:id"`
	OrderID              string    `db:"order_id"               gorm:"column:order_id;not null;uniqueIndex"`
	GatewayTransactionID string    `db:"gateway_transaction_id" gorm:"column:gateway_transaction_id;index"`
	Phone                string    `db:"phone"                  gorm:"column:phone;not null;index"`
	Name                 string    `db:"name"                   gorm:"column:name"`
	Email                string    `db:"email"                  gorm:"column:email"`
	Type                 string    `db:"type"                   gorm:"column:type;not null"`
	Amount               float64   `db:"amount"                 gorm:"column:amount;not null"`
	MetalType            string    `db:"metal_type"             gorm:"column:metal_type;not null;index"`
	GoldGrams            float64   `db:"gold_grams"             gorm:"column:gold_grams;not null;default:0"`
	SilverGrams          float64   `db:"silver_grams"           gorm:"column:silver_grams;not null;default:0"`
	GoldPricePerGram     float64   `db:"gold_price_per_gram"    gorm:"column:gold_price_per_gram;not null;default:0"`
	SilverPricePerGram   float64   `db:"silver_price_per_gram"  gorm:"column:silver_price_per_gram;not null;default:0"`
	Status               string    `db:"status"                 gorm:"column:status;not null;index"`
	PaymentMethod        string    `db:"payment_method"         gorm:"column:payment_method"`
	SchemeID             *string   `db:"scheme_id"              gorm:"column:scheme_id;index"`
	SchemeType           *string   `db:"scheme_type"            gorm:"column:scheme_type"`
	InstallmentNumber    *int      `db:"installment_number"     gorm:"column:installment_number"`
	GatewayResponse      string    `db:"gateway_response"       gorm:"column:gateway_response"`
	CreatedAt            time.Time `db:"created_at"             gorm:"column:created_at;index"`
	UpdatedAt            time.Time `db:"updated_at"             gorm:"column:updated_at;autoUpdateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:                   m.ID,
		OrderID:              m.OrderID,
		GatewayTransactionID: m.GatewayTransactionID,
		Phone:                m.Phone,
		Name:                 m.Name,
		Email:                m.Email,
		Type:                 m.Type,
		Amount:               m.Amount,
		MetalType:            string(m.MetalType),
		GoldGrams:            m.GoldGrams,
		SilverGrams:          m.SilverGrams,
		GoldPricePerGram:     m.GoldPricePerGram,
		SilverPricePerGram:   m.SilverPricePerGram,
		Status:               string(m.Status),
		PaymentMethod:        m.PaymentMethod,
		SchemeID:             m.SchemeID,
		SchemeType:           m.SchemeType,
		InstallmentNumber:    m.InstallmentNumber,
		GatewayResponse:      m.GatewayResponse,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:                   e.ID,
		OrderID:              e.OrderID,
		GatewayTransactionID: e.GatewayTransactionID,
		Phone:                e.Phone,
		Name:                 e.Name,
		Email:                e.Email,
		Type:                 e.Type,
		Amount:               e.Amount,
		MetalType:            model.MetalType(e.MetalType),
		GoldGrams:            e.GoldGrams,
		SilverGrams:          e.SilverGrams,
		GoldPricePerGram:     e.GoldPricePerGram,
		SilverPricePerGram:   e.SilverPricePerGram,
		Status:               model.TransactionStatus(e.Status),
		PaymentMethod:        e.PaymentMethod,
		SchemeID:             e.SchemeID,
		SchemeType:           e.SchemeType,
		InstallmentNumber:    e.InstallmentNumber,
		GatewayResponse:      e.GatewayResponse,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
