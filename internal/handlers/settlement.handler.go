package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/services"
	xhttp "github.com/shri22/vmurugan-gold-trading-sub000/pkg/http"
)

type SettlementService interface {
	Sync(ctx context.Context, metal model.MetalType, from, to time.Time) (int, error)
	Report(ctx context.Context, settlementID int64) (*services.BatchReport, error)
	ListBatches(ctx context.Context, metal *model.MetalType, from, to *time.Time) ([]*model.SettlementBatch, error)
	MarkReconciled(ctx context.Context, settlementID int64) error
	ListUnsettled(ctx context.Context, metal *model.MetalType) ([]*model.Transaction, error)
}

type SettlementHandler struct {
	svc SettlementService
}

func RegisterSettlementRoutes(e *router.Group, h *SettlementHandler) {
	e.POST("/settlements/sync", h.SyncSettlements)
	e.GET("/settlements", h.ListSettlements)
	e.GET("/settlements/unsettled", h.ListUnsettled)
	e.GET("/settlements/{id}/report", h.SettlementReport)
	e.POST("/settlements/{id}/reconcile", h.MarkReconciled)
}

func NewSettlementHandler(settlementService SettlementService) *SettlementHandler {
	return &SettlementHandler{
		svc: settlementService,
	}
}

type syncSettlementsRequest struct {
	MetalType string `json:"metal_type"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type syncSettlementsResponse struct {
	Synced int `json:"synced"`
}

type settlementListResponse struct {
	Items []*model.SettlementBatch `json:"items"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *SettlementHandler) SyncSettlements(ctx *xhttp.RequestCtx) {
	var req syncSettlementsRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	metal := model.MetalType(strings.ToUpper(req.MetalType))
	if metal != model.MetalGold && metal != model.MetalSilver {
		writeError(ctx, 400, "metal_type must be GOLD or SILVER")
		return
	}
	from, err := parseTime(req.From)
	if err != nil {
		writeError(ctx, 400, "invalid from date")
		return
	}
	to, err := parseTime(req.To)
	if err != nil {
		writeError(ctx, 400, "invalid to date")
		return
	}

	synced, err := h.svc.Sync(ctx, metal, from, to)
	if err != nil {
		writeError(ctx, 502, err.Error())
		return
	}
	writeJSON(ctx, 200, syncSettlementsResponse{Synced: synced})
}

func (h *SettlementHandler) ListSettlements(ctx *xhttp.RequestCtx) {
	var (
		metal    *model.MetalType
		from, to *time.Time
	)
	if v := query(ctx, "metal_type"); v != "" {
		mt := model.MetalType(strings.ToUpper(v))
		metal = &mt
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			from = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			to = &t
		}
	}

	items, err := h.svc.ListBatches(ctx, metal, from, to)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, settlementListResponse{Items: items})
}

type unsettledListResponse struct {
	Items []*model.Transaction `json:"items"`
	Count int                  `json:"count"`
}

// ListUnsettled shows SUCCESS transactions the bank has not paid out
// yet. The window is fixed server-side.
func (h *SettlementHandler) ListUnsettled(ctx *xhttp.RequestCtx) {
	var metal *model.MetalType
	if v := query(ctx, "metal_type"); v != "" {
		mt := model.MetalType(strings.ToUpper(v))
		if mt != model.MetalGold && mt != model.MetalSilver {
			writeError(ctx, 400, "metal_type must be GOLD or SILVER")
			return
		}
		metal = &mt
	}

	items, err := h.svc.ListUnsettled(ctx, metal)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, unsettledListResponse{Items: items, Count: len(items)})
}

func (h *SettlementHandler) SettlementReport(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid settlement id")
		return
	}

	report, err := h.svc.Report(ctx, id)
	if err != nil {
		writeError(ctx, 404, err.Error())
		return
	}
	writeJSON(ctx, 200, report)
}

func (h *SettlementHandler) MarkReconciled(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid settlement id")
		return
	}

	if err := h.svc.MarkReconciled(ctx, id); err != nil {
		writeError(ctx, 404, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "reconciled"})
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}
