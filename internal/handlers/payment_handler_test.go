package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/repository"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/services"
	xhttp "github.com/shri22/vmurugan-gold-trading-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Initiate(ctx context.Context, req model.OrderCreateRequest) (*gateway.PaymentPage, *model.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*gateway.PaymentPage), args.Get(1).(*model.Transaction), args.Error(2)
}

func (m *MockPaymentService) CheckStatus(ctx context.Context, orderID string) (*services.ReconcileResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReconcileResult), args.Error(1)
}

func (m *MockPaymentService) Pending(ctx context.Context, phone *string, limit, offset int) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, phone, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentService) History(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func TestPaymentHandler_InitiatePayment(t *testing.T) {
	t.Run("successful initiation", func(t *testing.T) {
		svc := new(MockPaymentService)
		handler := NewPaymentHandler(svc)

		page := &gateway.PaymentPage{
			URL:     "https://pgbiz.omniware.in/v2/paymentrequest",
			OrderID: "ORD_1718445130000_GOLD_959",
			Params:  map[string]string{"order_id": "ORD_1718445130000_GOLD_959"},
		}
		txn := &model.Transaction{
			OrderID:   "ORD_1718445130000_GOLD_959",
			Phone:     "9876543210",
			Amount:    5000,
			MetalType: model.MetalGold,
			Status:    model.TransactionStatusPending,
		}
		svc.On("Initiate", mock.Anything, mock.MatchedBy(func(req model.OrderCreateRequest) bool {
			return req.MetalType == model.MetalGold && req.Amount == 5000 && req.Phone == "9876543210"
		})).Return(page, txn, nil)

		body, _ := json.Marshal(map[string]interface{}{
			"metal_type": "gold",
			"amount":     5000,
			"phone":      "9876543210",
			"name":       "Murugan",
		})
		ctx := setupTestContext("POST", "/api/v1/payments/initiate", body)
		handler.InitiatePayment(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		var resp initiatePaymentResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, "ORD_1718445130000_GOLD_959", resp.OrderID)
		assert.Equal(t, page.URL, resp.PaymentURL)
		require.NotNil(t, resp.Transaction)
		assert.Equal(t, model.TransactionStatusPending, resp.Transaction.Status)
		svc.AssertExpectations(t)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		svc := new(MockPaymentService)
		handler := NewPaymentHandler(svc)

		ctx := setupTestContext("POST", "/api/v1/payments/initiate", []byte("{not json"))
		handler.InitiatePayment(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Initiate")
	})

	t.Run("validation error from service", func(t *testing.T) {
		svc := new(MockPaymentService)
		handler := NewPaymentHandler(svc)
		svc.On("Initiate", mock.Anything, mock.Anything).
			Return(nil, nil, errors.New("amount must be at least 10"))

		body, _ := json.Marshal(map[string]interface{}{
			"metal_type": "GOLD",
			"amount":     5,
			"phone":      "9876543210",
		})
		ctx := setupTestContext("POST", "/api/v1/payments/initiate", body)
		handler.InitiatePayment(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestPaymentHandler_CheckStatus(t *testing.T) {
	t.Run("credited outcome", func(t *testing.T) {
		svc := new(MockPaymentService)
		handler := NewPaymentHandler(svc)

		svc.On("CheckStatus", mock.Anything, "ORD_1_GOLD_959").Return(&services.ReconcileResult{
			Outcome: services.OutcomeCredited,
			Transaction: &model.Transaction{
				OrderID: "ORD_1_GOLD_959",
				Status:  model.TransactionStatusSuccess,
			},
		}, nil)

		body, _ := json.Marshal(checkStatusRequest{OrderID: "ORD_1_GOLD_959"})
		ctx := setupTestContext("POST", "/api/v1/payments/check-status", body)
		handler.CheckStatus(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var resp checkStatusResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, services.OutcomeCredited, resp.Outcome)
	})

	t.Run("missing order_id", func(t *testing.T) {
		svc := new(MockPaymentService)
		handler := NewPaymentHandler(svc)

		body, _ := json.Marshal(checkStatusRequest{})
		ctx := setupTestContext("POST", "/api/v1/payments/check-status", body)
		handler.CheckStatus(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "CheckStatus")
	})

	t.Run("unknown order maps to 404", func(t *testing.T) {
		svc := new(MockPaymentService)
		handler := NewPaymentHandler(svc)
		svc.On("CheckStatus", mock.Anything, "ORD_2_GOLD_959").
			Return(nil, repository.ErrTransactionNotFound)

		body, _ := json.Marshal(checkStatusRequest{OrderID: "ORD_2_GOLD_959"})
		ctx := setupTestContext("POST", "/api/v1/payments/check-status", body)
		handler.CheckStatus(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("gateway outage maps to 502", func(t *testing.T) {
		svc := new(MockPaymentService)
		handler := NewPaymentHandler(svc)
		svc.On("CheckStatus", mock.Anything, "ORD_3_GOLD_959").
			Return(nil, errors.New("gateway request failed: timeout"))

		body, _ := json.Marshal(checkStatusRequest{OrderID: "ORD_3_GOLD_959"})
		ctx := setupTestContext("POST", "/api/v1/payments/check-status", body)
		handler.CheckStatus(ctx)

		assert.Equal(t, 502, ctx.Response.StatusCode())
	})
}

func TestPaymentHandler_ListTransactions(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		svc := new(MockPaymentService)
		handler := NewPaymentHandler(svc)

		svc.On("History", mock.Anything, mock.MatchedBy(func(f model.TransactionFilter) bool {
			return f.Phone != nil && *f.Phone == "9876543210" &&
				len(f.Statuses) == 2 &&
				f.MetalType != nil && *f.MetalType == model.MetalSilver &&
				f.Limit == 20 && f.Offset == 40 && f.Desc
		})).Return([]*model.Transaction{}, int64(0), nil)

		ctx := setupTestContext("GET",
			"/api/v1/transactions?phone=9876543210&status=SUCCESS,failed&metal_type=silver&limit=20&offset=40&order=desc",
			nil)
		handler.ListTransactions(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("date range filter", func(t *testing.T) {
		svc := new(MockPaymentService)
		handler := NewPaymentHandler(svc)

		svc.On("History", mock.Anything, mock.MatchedBy(func(f model.TransactionFilter) bool {
			return f.From != nil && f.From.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) &&
				f.To != nil && f.To.Equal(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
		})).Return([]*model.Transaction{}, int64(0), nil)

		ctx := setupTestContext("GET", "/api/v1/transactions?from=2025-06-01&to=2025-06-30", nil)
		handler.ListTransactions(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})
}

func TestPaymentHandler_ListPending(t *testing.T) {
	svc := new(MockPaymentService)
	handler := NewPaymentHandler(svc)

	phone := "9876543210"
	svc.On("Pending", mock.Anything, &phone, 10, 0).Return([]*model.Transaction{
		{OrderID: "ORD_1_GOLD_959", Status: model.TransactionStatusPending},
	}, int64(1), nil)

	ctx := setupTestContext("GET", "/api/v1/payments/pending?phone=9876543210&limit=10", nil)
	handler.ListPending(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	var resp transactionListResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "ORD_1_GOLD_959", resp.Items[0].OrderID)
}
