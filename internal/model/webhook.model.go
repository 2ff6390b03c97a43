package model

import (
	"errors"
	"strconv"
)

// WebhookEvent is the payment notification body posted by the gateway.
// Amount and ResponseCode stay as the raw strings they arrived as:
// the signature covers the raw field values, so re-formatting them
// before verification would break the hash.
type WebhookEvent struct {
	TransactionID   string `json:"transaction_id"`
	OrderID         string `json:"order_id"`
	Amount          string `json:"amount"`
	ResponseCode    string `json:"response_code"`
	Hash            string `json:"hash"`
	PaymentDatetime string `json:"payment_datetime"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	PaymentMethod   string `json:"payment_method"`
}

func (e WebhookEvent) Validate() error {
	if e.TransactionID == "" {
		return errors.New("transaction_id is required")
	}
	if e.OrderID == "" {
		return errors.New("order_id is required")
	}
	if e.Hash == "" {
		return errors.New("hash is required")
	}
	return nil
}

func (e WebhookEvent) ResponseCodeInt() int {
	n, _ := strconv.Atoi(e.ResponseCode)
	return n
}

func (e WebhookEvent) AmountFloat() float64 {
	f, _ := strconv.ParseFloat(e.Amount, 64)
	return f
}
