package model

import "time"

// Customer aggregates all successful purchases for a phone number. The
// totals are maintained by the reconciliation engine and must equal the
// sum over that phone's SUCCESS transactions.
type Customer struct {
	ID               int64      `json:"id"`
	Phone            string     `json:"phone"`
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	TotalGold        float64    `json:"total_gold"`
	TotalSilver      float64    `json:"total_silver"`
	TotalInvested    float64    `json:"total_invested"`
	TransactionCount int        `json:"transaction_count"`
	LastTransaction  *time.Time `json:"last_transaction,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CustomerCredit is one additive delta applied on a SUCCESS transition.
type CustomerCredit struct {
	Phone         string
	GoldGrams     float64
	SilverGrams   float64
	Amount        float64
	TransactionAt time.Time
}
