package fixtures

import (
	"fmt"
	"strconv"
	"time"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
)

const (
	TestGoldSalt   = "test-gold-salt"
	TestSilverSalt = "test-silver-salt"
)

var (
	TestCustomerGold = model.Customer{
		ID:        1,
		Phone:     "9876543210",
		Name:      "Murugan",
		TotalGold: 2.5,
	}

	TestCustomerSilver = model.Customer{
		ID:          2,
		Phone:       "9876500001",
		Name:        "Valli",
		TotalSilver: 120,
	}

	TestCustomerNew = model.Customer{
		ID:    3,
		Phone: "9876500002",
		Name:  "Customer",
	}
)

func NewTestOrderID(metal model.MetalType) string {
	return fmt.Sprintf("ORD_%d_%s_959", time.Now().UnixMilli(), metal)
}

func NewPendingTransaction(orderID, phone string, metal model.MetalType, amount, rate float64) *model.Transaction {
	txn := &model.Transaction{
		OrderID:   orderID,
		Phone:     phone,
		Name:      "Test Customer",
		Type:      "BUY",
		Amount:    amount,
		MetalType: metal,
		Status:    model.TransactionStatusPending,
		CreatedAt: time.Now(),
	}
	if metal == model.MetalSilver {
		txn.SilverPricePerGram = rate
		txn.SilverGrams = amount / rate
	} else {
		txn.GoldPricePerGram = rate
		txn.GoldGrams = amount / rate
	}
	return txn
}

func NewOrderCreateRequest(metal model.MetalType, amount float64) model.OrderCreateRequest {
	req := model.OrderCreateRequest{
		MetalType: metal,
		Amount:    amount,
		Phone:     "9876543210",
		Name:      "Murugan",
	}
	if metal == model.MetalSilver {
		req.SilverPricePerGram = 70
	} else {
		req.GoldPricePerGram = 6000
	}
	return req
}

// NewWebhookEvent builds a notification signed with the given salt,
// the way the gateway signs real ones.
func NewWebhookEvent(orderID, transactionID, amount string, responseCode int, salt string) model.WebhookEvent {
	code := strconv.Itoa(responseCode)
	return model.WebhookEvent{
		TransactionID:   transactionID,
		OrderID:         orderID,
		Amount:          amount,
		ResponseCode:    code,
		Hash:            gateway.WebhookHash(transactionID, orderID, amount, code, salt),
		PaymentDatetime: time.Now().Format("2006-01-02 15:04:05"),
		Phone:           "9876543210",
		PaymentMethod:   "UPI",
	}
}

func NewGatewayTransaction(orderID, transactionID, amount string, responseCode int) *gateway.GatewayTransaction {
	return &gateway.GatewayTransaction{
		TransactionID:   transactionID,
		OrderID:         orderID,
		Amount:          amount,
		Currency:        "INR",
		ResponseCode:    responseCode,
		PaymentMode:     "UPI",
		PaymentDatetime: time.Now().Format("2006-01-02 15:04:05"),
	}
}

var (
	ValidPhoneNumbers = []string{
		"9876543210",
		"9123456789",
		"8765432109",
	}

	InvalidOrderIDs = []string{
		"",
		"JUNK",
		"ORD_NO_METAL_SEGMENT",
	}
)
