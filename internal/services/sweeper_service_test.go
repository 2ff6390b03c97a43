package services

import (
	"context"
	"errors"
	"testing"
	"time"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSweeperService_Sweep(t *testing.T) {
	ctx := context.Background()

	stale := func(orderID string) *model.Transaction {
		return &model.Transaction{
			OrderID:   orderID,
			Phone:     "9876543210",
			Amount:    5000,
			MetalType: model.MetalGold,
			Status:    model.TransactionStatusPending,
			CreatedAt: time.Now().Add(-30 * time.Hour),
		}
	}

	t.Run("unknown at gateway is expired", func(t *testing.T) {
		txns := new(MockTransactionStore)
		custs := new(MockCustomerStore)
		gw := new(MockPaymentGateway)
		svc := NewSweeperService(txns, gw, newTestReconciler(txns, custs, new(MockSchemeStore)), 24*time.Hour, 100)

		txns.On("ListPendingOlderThan", ctx, mock.Anything, 100).
			Return([]*model.Transaction{stale("ORD_1_GOLD_959")}, nil)
		gw.On("PaymentStatus", ctx, model.MetalGold, "ORD_1_GOLD_959").
			Return(nil, gateway.ErrOrderNotFound)
		txns.On("MarkFailedIfPending", ctx, "ORD_1_GOLD_959", mock.Anything).Return(true, nil)

		report, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Checked)
		assert.Equal(t, 1, report.Expired)
	})

	t.Run("paid after all goes through reconciliation", func(t *testing.T) {
		txns := new(MockTransactionStore)
		custs := new(MockCustomerStore)
		schemes := new(MockSchemeStore)
		gw := new(MockPaymentGateway)
		svc := NewSweeperService(txns, gw, newTestReconciler(txns, custs, schemes), 24*time.Hour, 100)

		row := stale("ORD_2_GOLD_959")
		ev := successEvent("ORD_2_GOLD_959")

		txns.On("ListPendingOlderThan", ctx, mock.Anything, 100).Return([]*model.Transaction{row}, nil)
		gw.On("PaymentStatus", ctx, model.MetalGold, "ORD_2_GOLD_959").Return(ev.Transaction, nil)
		custs.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		txns.On("FindByGatewayReference", mock.Anything, "ORD_2_GOLD_959", "TXN_GW_1").Return(row, nil)
		txns.On("MarkSuccessIfPending", mock.Anything, "ORD_2_GOLD_959", mock.Anything).Return(true, nil)
		custs.On("Credit", mock.Anything, mock.Anything).Return(nil)
		custs.On("UpdateProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		schemes.On("FindActive", mock.Anything, mock.Anything, mock.Anything).Return([]*model.Scheme{}, nil)

		report, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Credited)
		assert.Equal(t, 0, report.Expired)
	})

	t.Run("explicit failure answer expires the row", func(t *testing.T) {
		txns := new(MockTransactionStore)
		custs := new(MockCustomerStore)
		gw := new(MockPaymentGateway)
		svc := NewSweeperService(txns, gw, newTestReconciler(txns, custs, new(MockSchemeStore)), 24*time.Hour, 100)

		row := stale("ORD_4_GOLD_959")

		txns.On("ListPendingOlderThan", ctx, mock.Anything, 100).Return([]*model.Transaction{row}, nil)
		gw.On("PaymentStatus", ctx, model.MetalGold, "ORD_4_GOLD_959").Return(&gateway.GatewayTransaction{
			OrderID:      "ORD_4_GOLD_959",
			Amount:       "5000.00",
			ResponseCode: 1007,
		}, nil)
		custs.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		txns.On("FindByGatewayReference", mock.Anything, "ORD_4_GOLD_959", "").Return(row, nil)
		txns.On("MarkFailedIfPending", ctx, "ORD_4_GOLD_959", mock.Anything).Return(true, nil)

		report, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, 0, report.StillPending)
		custs.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("inconclusive answer leaves the row pending", func(t *testing.T) {
		txns := new(MockTransactionStore)
		custs := new(MockCustomerStore)
		gw := new(MockPaymentGateway)
		svc := NewSweeperService(txns, gw, newTestReconciler(txns, custs, new(MockSchemeStore)), 24*time.Hour, 100)

		row := stale("ORD_5_GOLD_959")

		txns.On("ListPendingOlderThan", ctx, mock.Anything, 100).Return([]*model.Transaction{row}, nil)
		gw.On("PaymentStatus", ctx, model.MetalGold, "ORD_5_GOLD_959").Return(&gateway.GatewayTransaction{
			OrderID:         "ORD_5_GOLD_959",
			Amount:          "5000.00",
			ResponseCode:    1030,
			PaymentDatetime: "0000-00-00 00:00:00",
		}, nil)
		custs.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		txns.On("FindByGatewayReference", mock.Anything, "ORD_5_GOLD_959", "").Return(row, nil)

		report, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.StillPending)
		txns.AssertNotCalled(t, "MarkFailedIfPending", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway outage skips the row for next pass", func(t *testing.T) {
		txns := new(MockTransactionStore)
		gw := new(MockPaymentGateway)
		svc := NewSweeperService(txns, gw, newTestReconciler(txns, new(MockCustomerStore), new(MockSchemeStore)), 24*time.Hour, 100)

		txns.On("ListPendingOlderThan", ctx, mock.Anything, 100).
			Return([]*model.Transaction{stale("ORD_3_GOLD_959")}, nil)
		gw.On("PaymentStatus", ctx, model.MetalGold, "ORD_3_GOLD_959").
			Return(nil, errors.New("gateway request failed: connection refused"))

		report, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		txns.AssertNotCalled(t, "MarkFailedIfPending", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nothing stale", func(t *testing.T) {
		txns := new(MockTransactionStore)
		gw := new(MockPaymentGateway)
		svc := NewSweeperService(txns, gw, newTestReconciler(txns, new(MockCustomerStore), new(MockSchemeStore)), 24*time.Hour, 100)

		txns.On("ListPendingOlderThan", ctx, mock.Anything, 100).Return([]*model.Transaction{}, nil)

		report, err := svc.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Checked)
	})
}
