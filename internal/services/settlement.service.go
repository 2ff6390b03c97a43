package services

import (
	"context"
	"time"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
)

// gatewayDateLayout is the DD-MM-YYYY format the settlement endpoints
// take their date range in.
const gatewayDateLayout = "02-01-2006"

type SettlementGateway interface {
	Settlements(ctx context.Context, metal model.MetalType, dateFrom, dateTo string) ([]gateway.GatewaySettlement, error)
	SettlementDetails(ctx context.Context, metal model.MetalType, settlementID int64) ([]gateway.GatewaySettledTransaction, error)
}

type SettlementStore interface {
	UpsertBatch(ctx context.Context, batch *model.SettlementBatch) error
	UpsertSettledTransaction(ctx context.Context, st *model.SettledTransaction) error
	GetBatch(ctx context.Context, settlementID int64) (*model.SettlementBatch, error)
	ListBatches(ctx context.Context, metal *model.MetalType, from, to *time.Time) ([]*model.SettlementBatch, error)
	BatchDetails(ctx context.Context, settlementID int64) ([]*model.SettledTransactionView, error)
	MarkBatchReconciled(ctx context.Context, settlementID int64) error
	ListUnsettled(ctx context.Context, metal *model.MetalType, since time.Time) ([]*model.Transaction, error)
}

// SettlementService mirrors the gateway's settlement reports locally so
// bank payouts can be checked against the transaction ledger.
type SettlementService struct {
	gateway        SettlementGateway
	settlementRepo SettlementStore
}

func NewSettlementService(gw SettlementGateway, settlementRepo SettlementStore) *SettlementService {
	return &SettlementService{
		gateway:        gw,
		settlementRepo: settlementRepo,
	}
}

// Sync pulls settlement batches for a metal and date range and upserts
// them with their per-transaction detail rows. Safe to re-run for the
// same range.
func (s *SettlementService) Sync(ctx context.Context, metal model.MetalType, from, to time.Time) (int, error) {
	batches, err := s.gateway.Settlements(ctx, metal, from.Format(gatewayDateLayout), to.Format(gatewayDateLayout))
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, gb := range batches {
		batch := &model.SettlementBatch{
			SettlementID:       gb.SettlementID,
			BankReference:      gb.BankReference,
			PayoutAmount:       gb.PayoutAmount,
			SaleAmount:         gb.SaleAmount,
			SettlementDatetime: parseGatewayTime(gb.SettlementDatetime),
			MetalType:          metal,
		}
		if err := s.settlementRepo.UpsertBatch(ctx, batch); err != nil {
			return synced, err
		}

		details, err := s.gateway.SettlementDetails(ctx, metal, gb.SettlementID)
		if err != nil {
			return synced, err
		}
		for _, d := range details {
			st := &model.SettledTransaction{
				SettlementID:         gb.SettlementID,
				GatewayTransactionID: d.TransactionID,
				OrderID:              d.OrderID,
				GrossAmount:          d.GrossTransactionAmount,
				TDRAmount:            d.TDRAmount,
				TransactionDate:      parseGatewayTime(d.TransactionDate),
				CustomerPhone:        d.CustomerPhone,
				CustomerName:         d.CustomerName,
			}
			if err := s.settlementRepo.UpsertSettledTransaction(ctx, st); err != nil {
				return synced, err
			}
		}
		synced++

		logger.Info("Settlement batch synced",
			"settlement_id", gb.SettlementID,
			"metal_type", metal,
			"transactions", len(details))
	}

	return synced, nil
}

// BatchReport is the per-batch reconciliation view: every settled
// transaction, joined against the local ledger, with orphans counted.
type BatchReport struct {
	Batch        *model.SettlementBatch          `json:"batch"`
	Transactions []*model.SettledTransactionView `json:"transactions"`
	Matched      int                             `json:"matched"`
	Orphaned     int                             `json:"orphaned"`
}

func (s *SettlementService) Report(ctx context.Context, settlementID int64) (*BatchReport, error) {
	batch, err := s.settlementRepo.GetBatch(ctx, settlementID)
	if err != nil {
		return nil, err
	}

	views, err := s.settlementRepo.BatchDetails(ctx, settlementID)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{Batch: batch, Transactions: views}
	for _, v := range views {
		if v.InternalID != nil {
			report.Matched++
		} else {
			report.Orphaned++
		}
	}
	return report, nil
}

func (s *SettlementService) ListBatches(ctx context.Context, metal *model.MetalType, from, to *time.Time) ([]*model.SettlementBatch, error) {
	return s.settlementRepo.ListBatches(ctx, metal, from, to)
}

// unsettledWindow bounds how far back the unsettled view looks. Batches
// older than this were either settled long ago or written off manually.
const unsettledWindow = 30 * 24 * time.Hour

// ListUnsettled returns SUCCESS transactions from the last 30 days that
// no synced settlement batch has paid out.
func (s *SettlementService) ListUnsettled(ctx context.Context, metal *model.MetalType) ([]*model.Transaction, error) {
	since := time.Now().Add(-unsettledWindow)
	return s.settlementRepo.ListUnsettled(ctx, metal, since)
}

// MarkReconciled records that a batch has been checked off against the
// bank statement.
func (s *SettlementService) MarkReconciled(ctx context.Context, settlementID int64) error {
	return s.settlementRepo.MarkBatchReconciled(ctx, settlementID)
}

func parseGatewayTime(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
