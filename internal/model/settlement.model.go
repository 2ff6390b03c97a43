package model

import "time"

type SettlementBatchStatus string

const (
	SettlementBatchPending    SettlementBatchStatus = "PENDING"
	SettlementBatchReconciled SettlementBatchStatus = "RECONCILED"
)

// SettlementBatch is one bank payout reported by the gateway's
// settlement API, used for bookkeeping against local transactions.
type SettlementBatch struct {
	SettlementID       int64                 `json:"settlement_id"`
	BankReference      string                `json:"bank_reference"`
	PayoutAmount       float64               `json:"payout_amount"`
	SaleAmount         float64               `json:"sale_amount"`
	SettlementDatetime time.Time             `json:"settlement_datetime"`
	MetalType          MetalType             `json:"metal_type"`
	Status             SettlementBatchStatus `json:"status"`
}

// SettledTransaction is one gateway-side transaction inside a batch.
type SettledTransaction struct {
	ID                   int64     `json:"id"`
	SettlementID         int64     `json:"settlement_id"`
	GatewayTransactionID string    `json:"gateway_transaction_id"`
	OrderID              string    `json:"order_id"`
	GrossAmount          float64   `json:"gross_amount"`
	TDRAmount            float64   `json:"tdr_amount"`
	TransactionDate      time.Time `json:"transaction_date"`
	CustomerPhone        string    `json:"customer_phone"`
	CustomerName         string    `json:"customer_name"`
}

// SettledTransactionView joins a settled transaction against the local
// ledger for the per-batch reconciliation report.
type SettledTransactionView struct {
	SettledTransaction
	MetalType      MetalType          `json:"metal_type"`
	InternalID     *int64             `json:"internal_id,omitempty"`
	InternalStatus *TransactionStatus `json:"internal_status,omitempty"`
}
