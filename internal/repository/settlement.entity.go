package repository

import (
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
)

type SettlementBatchEntity struct {
	SettlementID       int64     `db:"settlement_id"       gorm:"primaryKey;column:settlement_id"`
	BankReference      string    `db:"bank_reference"      gorm:"column:bank_reference"`
	PayoutAmount       float64   `db:"payout_amount"       gorm:"column:payout_amount;not null;default:0"`
	SaleAmount         float64   `db:"sale_amount"         gorm:"column:sale_amount;not null;default:0"`
	SettlementDatetime time.Time `db:"settlement_datetime" gorm:"column:settlement_datetime;index"`
	MetalType          string    `db:"metal_type"          gorm:"column:metal_type;not null;index"`
	Status             string    `db:"status"              gorm:"column:status;not null;default:PENDING"`
}

func (SettlementBatchEntity) TableName() string {
	return "settlement_batches"
}

func toSettlementBatchEntity(m *model.SettlementBatch) *SettlementBatchEntity {
	if m == nil {
		return nil
	}
	return &SettlementBatchEntity{
		SettlementID:       m.SettlementID,
		BankReference:      m.BankReference,
		PayoutAmount:       m.PayoutAmount,
		SaleAmount:         m.SaleAmount,
		SettlementDatetime: m.SettlementDatetime,
		MetalType:          string(m.MetalType),
		Status:             string(m.Status),
	}
}

func toSettlementBatchModel(e *SettlementBatchEntity) *model.SettlementBatch {
	if e == nil {
		return nil
	}
	return &model.SettlementBatch{
		SettlementID:       e.SettlementID,
		BankReference:      e.BankReference,
		PayoutAmount:       e.PayoutAmount,
		SaleAmount:         e.SaleAmount,
		SettlementDatetime: e.SettlementDatetime,
		MetalType:          model.MetalType(e.MetalType),
		Status:             model.SettlementBatchStatus(e.Status),
	}
}

type SettledTransactionEntity struct {
	ID                   int64     `db:"id"                     gorm:"primaryKey;autoIncrement;column:id"`
	SettlementID         int64     `db:"settlement_id"          gorm:"column:settlement_id;not null;index"`
	GatewayTransactionID string    `db:"gateway_transaction_id" gorm:"column:gateway_transaction_id;not null;uniqueIndex"`
	OrderID              string    `db:"order_id"               gorm:"column:order_id;index"`
	GrossAmount          float64   `db:"gross_amount"           gorm:"column:gross_amount;not null;default:0"`
	TDRAmount            float64   `db:"tdr_amount"             gorm:"column:tdr_amount;not null;default:0"`
	TransactionDate      time.Time `db:"transaction_date"       gorm:"column:transaction_date"`
	CustomerPhone        string    `db:"customer_phone"         gorm:"column:customer_phone"`
	CustomerName         string    `db:"customer_name"          gorm:"column:customer_name"`
}

func (SettledTransactionEntity) TableName() string {
	return "settled_transactions"
}

func toSettledTransactionEntity(m *model.SettledTransaction) *SettledTransactionEntity {
	if m == nil {
		return nil
	}
	return &SettledTransactionEntity{
		ID:                   m.ID,
		SettlementID:         m.SettlementID,
		GatewayTransactionID: m.GatewayTransactionID,
		OrderID:              m.OrderID,
		GrossAmount:          m.GrossAmount,
		TDRAmount:            m.TDRAmount,
		TransactionDate:      m.TransactionDate,
		CustomerPhone:        m.CustomerPhone,
		CustomerName:         m.CustomerName,
	}
}

func toSettledTransactionModel(e *SettledTransactionEntity) *model.SettledTransaction {
	if e == nil {
		return nil
	}
	return &model.SettledTransaction{
		ID:                   e.ID,
		SettlementID:         e.SettlementID,
		GatewayTransactionID: e.GatewayTransactionID,
		OrderID:              e.OrderID,
		GrossAmount:          e.GrossAmount,
		TDRAmount:            e.TDRAmount,
		TransactionDate:      e.TransactionDate,
		CustomerPhone:        e.CustomerPhone,
		CustomerName:         e.CustomerName,
	}
}
