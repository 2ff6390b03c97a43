package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	xhttp "github.com/shri22/vmurugan-gold-trading-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMerchantResolver struct {
	mock.Mock
}

func (m *MockMerchantResolver) Merchant(metal model.MetalType) (gateway.Merchant, error) {
	args := m.Called(metal)
	return args.Get(0).(gateway.Merchant), args.Error(1)
}

type MockWebhookPublisher struct {
	mock.Mock
}

func (m *MockWebhookPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	args := m.Called(ctx, data, metadata)
	return args.String(0), args.Error(1)
}

const testWebhookSalt = "salt123"

func signedWebhookForm(orderID string) url.Values {
	form := url.Values{}
	form.Set("transaction_id", "TXN001")
	form.Set("order_id", orderID)
	form.Set("amount", "5000.00")
	form.Set("response_code", "0")
	form.Set("payment_datetime", "2025-06-15 14:32:10")
	form.Set("phone", "9876543210")
	form.Set("hash", gateway.WebhookHash("TXN001", orderID, "5000.00", "0", testWebhookSalt))
	return form
}

func setupFormContext(path string, form url.Values) *xhttp.RequestCtx {
	ctx := setupTestContext("POST", path, []byte(form.Encode()))
	ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")
	return ctx
}

func TestWebhookHandler_ReceiveWebhook(t *testing.T) {
	t.Run("valid signature is enqueued", func(t *testing.T) {
		merchants := new(MockMerchantResolver)
		publisher := new(MockWebhookPublisher)
		handler := NewWebhookHandler(merchants, publisher)

		merchants.On("Merchant", model.MetalGold).Return(gateway.Merchant{Salt: testWebhookSalt}, nil)
		publisher.On("PublishJSON", mock.Anything, mock.MatchedBy(func(ev model.WebhookEvent) bool {
			return ev.OrderID == "ORD_1_GOLD_959" && ev.TransactionID == "TXN001" && ev.Amount == "5000.00"
		}), mock.Anything).Return("1718445130000-0", nil)

		ctx := setupFormContext("/api/v1/payments/webhook", signedWebhookForm("ORD_1_GOLD_959"))
		handler.ReceiveWebhook(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		publisher.AssertExpectations(t)
	})

	t.Run("tampered amount is rejected", func(t *testing.T) {
		merchants := new(MockMerchantResolver)
		publisher := new(MockWebhookPublisher)
		handler := NewWebhookHandler(merchants, publisher)

		merchants.On("Merchant", model.MetalGold).Return(gateway.Merchant{Salt: testWebhookSalt}, nil)

		form := signedWebhookForm("ORD_1_GOLD_959")
		form.Set("amount", "1.00")
		ctx := setupFormContext("/api/v1/payments/webhook", form)
		handler.ReceiveWebhook(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
		publisher.AssertNotCalled(t, "PublishJSON")
	})

	t.Run("wrong merchant salt is rejected", func(t *testing.T) {
		merchants := new(MockMerchantResolver)
		publisher := new(MockWebhookPublisher)
		handler := NewWebhookHandler(merchants, publisher)

		merchants.On("Merchant", model.MetalGold).Return(gateway.Merchant{Salt: "other-salt"}, nil)

		ctx := setupFormContext("/api/v1/payments/webhook", signedWebhookForm("ORD_1_GOLD_959"))
		handler.ReceiveWebhook(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
		publisher.AssertNotCalled(t, "PublishJSON")
	})

	t.Run("missing fields", func(t *testing.T) {
		merchants := new(MockMerchantResolver)
		publisher := new(MockWebhookPublisher)
		handler := NewWebhookHandler(merchants, publisher)

		form := url.Values{}
		form.Set("order_id", "ORD_1_GOLD_959")
		ctx := setupFormContext("/api/v1/payments/webhook", form)
		handler.ReceiveWebhook(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("order id without metal segment", func(t *testing.T) {
		merchants := new(MockMerchantResolver)
		publisher := new(MockWebhookPublisher)
		handler := NewWebhookHandler(merchants, publisher)

		form := url.Values{}
		form.Set("transaction_id", "TXN001")
		form.Set("order_id", "LEGACY_ORDER_42")
		form.Set("amount", "5000.00")
		form.Set("response_code", "0")
		form.Set("hash", "deadbeef")
		ctx := setupFormContext("/api/v1/payments/webhook", form)
		handler.ReceiveWebhook(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		merchants.AssertNotCalled(t, "Merchant")
	})

	t.Run("queue failure returns 500", func(t *testing.T) {
		merchants := new(MockMerchantResolver)
		publisher := new(MockWebhookPublisher)
		handler := NewWebhookHandler(merchants, publisher)

		merchants.On("Merchant", model.MetalGold).Return(gateway.Merchant{Salt: testWebhookSalt}, nil)
		publisher.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("redis: connection refused"))

		ctx := setupFormContext("/api/v1/payments/webhook", signedWebhookForm("ORD_1_GOLD_959"))
		handler.ReceiveWebhook(ctx)

		assert.Equal(t, 500, ctx.Response.StatusCode())
	})

	t.Run("json body accepted", func(t *testing.T) {
		merchants := new(MockMerchantResolver)
		publisher := new(MockWebhookPublisher)
		handler := NewWebhookHandler(merchants, publisher)

		merchants.On("Merchant", model.MetalSilver).Return(gateway.Merchant{Salt: testWebhookSalt}, nil)
		publisher.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).
			Return("1718445130000-1", nil)

		event := model.WebhookEvent{
			TransactionID: "TXN002",
			OrderID:       "ORD_2_SILVER_621",
			Amount:        "700.00",
			ResponseCode:  "0",
			Hash:          gateway.WebhookHash("TXN002", "ORD_2_SILVER_621", "700.00", "0", testWebhookSalt),
		}
		body, _ := json.Marshal(event)
		ctx := setupTestContext("POST", "/api/v1/payments/webhook", body)
		ctx.Request.Header.SetContentType("application/json")
		handler.ReceiveWebhook(ctx)

		require.Equal(t, 200, ctx.Response.StatusCode())
	})
}
