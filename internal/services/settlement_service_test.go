package services

import (
	"context"
	"testing"
	"time"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSettlementGateway struct {
	mock.Mock
}

func (m *MockSettlementGateway) Settlements(ctx context.Context, metal model.MetalType, dateFrom, dateTo string) ([]gateway.GatewaySettlement, error) {
	args := m.Called(ctx, metal, dateFrom, dateTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.GatewaySettlement), args.Error(1)
}

func (m *MockSettlementGateway) SettlementDetails(ctx context.Context, metal model.MetalType, settlementID int64) ([]gateway.GatewaySettledTransaction, error) {
	args := m.Called(ctx, metal, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.GatewaySettledTransaction), args.Error(1)
}

type MockSettlementStore struct {
	mock.Mock
}

func (m *MockSettlementStore) UpsertBatch(ctx context.Context, batch *model.SettlementBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockSettlementStore) UpsertSettledTransaction(ctx context.Context, st *model.SettledTransaction) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockSettlementStore) GetBatch(ctx context.Context, settlementID int64) (*model.SettlementBatch, error) {
	args := m.Called(ctx, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SettlementBatch), args.Error(1)
}

func (m *MockSettlementStore) ListBatches(ctx context.Context, metal *model.MetalType, from, to *time.Time) ([]*model.SettlementBatch, error) {
	args := m.Called(ctx, metal, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SettlementBatch), args.Error(1)
}

func (m *MockSettlementStore) BatchDetails(ctx context.Context, settlementID int64) ([]*model.SettledTransactionView, error) {
	args := m.Called(ctx, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SettledTransactionView), args.Error(1)
}

func (m *MockSettlementStore) MarkBatchReconciled(ctx context.Context, settlementID int64) error {
	args := m.Called(ctx, settlementID)
	return args.Error(0)
}

func (m *MockSettlementStore) ListUnsettled(ctx context.Context, metal *model.MetalType, since time.Time) ([]*model.Transaction, error) {
	args := m.Called(ctx, metal, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func TestSettlementService_Sync(t *testing.T) {
	ctx := context.Background()
	gw := new(MockSettlementGateway)
	store := new(MockSettlementStore)
	svc := NewSettlementService(gw, store)

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2025, 6, 7, 0, 0, 0, 0, time.Local)

	gw.On("Settlements", ctx, model.MetalGold, "01-06-2025", "07-06-2025").Return([]gateway.GatewaySettlement{
		{SettlementID: 1001, BankReference: "UTR123", PayoutAmount: 9900, SaleAmount: 10000, SettlementDatetime: "2025-06-03 09:00:00"},
	}, nil)
	gw.On("SettlementDetails", ctx, model.MetalGold, int64(1001)).Return([]gateway.GatewaySettledTransaction{
		{TransactionID: "TXN_1", OrderID: "ORD_1_GOLD_959", GrossTransactionAmount: 5000, TDRAmount: 50, TransactionDate: "2025-06-02 14:00:00"},
		{TransactionID: "TXN_2", OrderID: "ORD_2_GOLD_959", GrossTransactionAmount: 5000, TDRAmount: 50, TransactionDate: "2025-06-02 16:00:00"},
	}, nil)

	store.On("UpsertBatch", ctx, mock.MatchedBy(func(b *model.SettlementBatch) bool {
		return b.SettlementID == 1001 && b.MetalType == model.MetalGold && b.BankReference == "UTR123"
	})).Return(nil)
	store.On("UpsertSettledTransaction", ctx, mock.MatchedBy(func(st *model.SettledTransaction) bool {
		return st.SettlementID == 1001
	})).Return(nil).Twice()

	synced, err := svc.Sync(ctx, model.MetalGold, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	gw.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestSettlementService_Report(t *testing.T) {
	ctx := context.Background()
	gw := new(MockSettlementGateway)
	store := new(MockSettlementStore)
	svc := NewSettlementService(gw, store)

	internalID := int64(42)
	status := model.TransactionStatusSuccess

	store.On("GetBatch", ctx, int64(1001)).Return(&model.SettlementBatch{SettlementID: 1001}, nil)
	store.On("BatchDetails", ctx, int64(1001)).Return([]*model.SettledTransactionView{
		{InternalID: &internalID, InternalStatus: &status},
		{InternalID: nil},
	}, nil)

	report, err := svc.Report(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Orphaned)
	assert.Len(t, report.Transactions, 2)
}
