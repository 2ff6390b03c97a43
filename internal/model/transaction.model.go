package model

import (
	"errors"
	"strings"
	"time"
)

// MetalType identifies which merchant account and ledger column a
// transaction belongs to.
type MetalType string

const (
	MetalGold   MetalType = "GOLD"
	MetalSilver MetalType = "SILVER"
)

// TransactionStatus is the lifecycle state of a payment attempt.
// PENDING is the only non-terminal state; a row never moves out of
// SUCCESS once it gets there.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

var ErrUnknownMetalType = errors.New("cannot determine metal type from order id")

type Transaction struct {
	ID                   int64             `json:"id"`
	OrderID              string            `json:"order_id"`
	GatewayTransactionID string            `json:"gateway_transaction_id,omitempty"`
	Phone                string            `json:"phone"`
	Name                 string            `json:"name"`
	Email                string            `json:"email,omitempty"`
	Type                 string            `json:"type"`
	Amount               float64           `json:"amount"`
	MetalType            MetalType         `json:"metal_type"`
	GoldGrams            float64           `json:"gold_grams"`
	SilverGrams          float64           `json:"silver_grams"`
	GoldPricePerGram     float64           `json:"gold_price_per_gram,omitempty"`
	SilverPricePerGram   float64           `json:"silver_price_per_gram,omitempty"`
	Status               TransactionStatus `json:"status"`
	PaymentMethod        string            `json:"payment_method"`
	SchemeID             *string           `json:"scheme_id,omitempty"`
	SchemeType           *string           `json:"scheme_type,omitempty"`
	InstallmentNumber    *int              `json:"installment_number,omitempty"`
	GatewayResponse      string            `json:"-"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// MetalGrams returns the gram quantity on whichever metal column is in
// use. At most one of the two is nonzero.
func (t *Transaction) MetalGrams() float64 {
	return t.GoldGrams + t.SilverGrams
}

// PricePerGram returns the purchase rate recorded for the transaction's
// metal type.
func (t *Transaction) PricePerGram() float64 {
	if t.MetalType == MetalSilver {
		return t.SilverPricePerGram
	}
	return t.GoldPricePerGram
}

// MetalTypeFromOrderID infers the metal type from the order id segment
// convention (ORD_<timestamp>_GOLD_<suffix> / ORD_<timestamp>_SILVER_<suffix>,
// with single-letter variants produced by older app builds).
func MetalTypeFromOrderID(orderID string) (MetalType, error) {
	switch {
	case strings.Contains(orderID, "_GOLD_"), strings.Contains(orderID, "_G_"):
		return MetalGold, nil
	case strings.Contains(orderID, "_SILVER_"), strings.Contains(orderID, "_S_"):
		return MetalSilver, nil
	}
	return "", ErrUnknownMetalType
}

// OrderCreateRequest is the input for creating a pending order before
// redirecting the customer to the payment page.
type OrderCreateRequest struct {
	MetalType          MetalType
	Amount             float64
	Phone              string
	Name               string
	Email              string
	GoldGrams          float64
	SilverGrams        float64
	GoldPricePerGram   float64
	SilverPricePerGram float64
	SchemeID           *string
	SchemeType         *string
	InstallmentNumber  *int
	Description        string
	Address            string
	City               string
	State              string
	Country            string
	ZipCode            string
	ReturnURL          string
	ReturnURLFailure   string
	ReturnURLCancel    string
}

func (p OrderCreateRequest) Validate() error {
	if p.MetalType != MetalGold && p.MetalType != MetalSilver {
		return errors.New("metal_type must be GOLD or SILVER")
	}
	if p.Phone == "" {
		return errors.New("phone is required")
	}
	if p.Amount < 10 {
		return errors.New("amount must be at least 10")
	}
	return nil
}

// TransactionFilter controls history queries.
type TransactionFilter struct {
	Phone     *string
	Statuses  []TransactionStatus
	MetalType *MetalType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	Desc      bool
}
