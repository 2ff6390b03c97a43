package model

import "time"

type SchemeStatus string

const (
	SchemeStatusActive    SchemeStatus = "ACTIVE"
	SchemeStatusPaused    SchemeStatus = "PAUSED"
	SchemeStatusCompleted SchemeStatus = "COMPLETED"
	SchemeStatusCancelled SchemeStatus = "CANCELLED"
)

// Scheme is a recurring savings commitment: the customer pays a monthly
// amount and accumulates metal grams against it. At most one ACTIVE
// scheme per (phone, metal type) is assumed by the auto-link logic.
type Scheme struct {
	ID                    int64        `json:"id"`
	SchemeID              string       `json:"scheme_id"`
	Phone                 string       `json:"phone"`
	MetalType             MetalType    `json:"metal_type"`
	Type                  string       `json:"type"`
	MonthlyAmount         float64      `json:"monthly_amount"`
	TotalInvested         float64      `json:"total_invested"`
	TotalAmountPaid       float64      `json:"total_amount_paid"`
	TotalMetalAccumulated float64      `json:"total_metal_accumulated"`
	CompletedInstallments int          `json:"completed_installments"`
	Status                SchemeStatus `json:"status"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}
