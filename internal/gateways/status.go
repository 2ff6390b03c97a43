package gateway

import (
	"strconv"
	"time"
)

// PaymentStatus is the classified outcome of one gateway record.
type PaymentStatus string

const (
	StatusSuccess PaymentStatus = "success"
	StatusPending PaymentStatus = "pending"
	StatusFailed  PaymentStatus = "failed"
)

// Gateway response codes the classifier depends on.
const (
	CodeSuccess            = 0    // explicit success
	CodeWaitingForResponse = 1006 // bank has not answered yet
	CodeIncomplete         = 1030 // "transaction incomplete", see Classify
)

// zeroDatetime is the sentinel the gateway reports while no bank-side
// payment has happened.
const zeroDatetime = "0000-00-00 00:00:00"

// Classify maps a raw gateway transaction to success/pending/failed.
//
// UPI intent payments have a known gateway defect: response_code stays
// at 1030 even after the bank has completed the payment. The
// payment_datetime field is only populated once the bank actually
// processes the payment, so a 1030 with a real timestamp and a positive
// amount is a success regardless of the nominal code. The rule order is
// load-bearing: the 1030+timestamp check must run before the generic
// pending fallback.
func Classify(tx *GatewayTransaction) PaymentStatus {
	switch {
	case tx.ResponseCode == CodeSuccess:
		return StatusSuccess
	case tx.ResponseCode == CodeIncomplete && hasValidPaymentTime(tx.PaymentDatetime) && tx.AmountFloat() > 0:
		return StatusSuccess
	case tx.ResponseCode == CodeWaitingForResponse || tx.ResponseCode == CodeIncomplete:
		return StatusPending
	}
	return StatusFailed
}

// hasValidPaymentTime rejects both absence and the literal zero-datetime
// sentinel.
func hasValidPaymentTime(s string) bool {
	return s != "" && s != zeroDatetime
}

// datetimeLayout is the gateway's payment_datetime format (IST, no
// zone marker on the wire).
const datetimeLayout = "2006-01-02 15:04:05"

// PaidAt parses the gateway payment timestamp. Absent, zero-sentinel
// and malformed values all report false.
func (tx *GatewayTransaction) PaidAt() (time.Time, bool) {
	if !hasValidPaymentTime(tx.PaymentDatetime) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(datetimeLayout, tx.PaymentDatetime, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AmountFloat parses the gateway's string amount; malformed values
// parse as 0 and therefore never satisfy the 1030 success workaround.
func (tx *GatewayTransaction) AmountFloat() float64 {
	f, err := strconv.ParseFloat(tx.Amount, 64)
	if err != nil {
		return 0
	}
	return f
}
