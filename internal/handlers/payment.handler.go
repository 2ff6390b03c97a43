package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/repository"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/services"
	xhttp "github.com/shri22/vmurugan-gold-trading-sub000/pkg/http"
)

type PaymentService interface {
	Initiate(ctx context.Context, req model.OrderCreateRequest) (*gateway.PaymentPage, *model.Transaction, error)
	CheckStatus(ctx context.Context, orderID string) (*services.ReconcileResult, error)
	Pending(ctx context.Context, phone *string, limit, offset int) ([]*model.Transaction, int64, error)
	History(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler) {
	e.POST("/payments/initiate", h.InitiatePayment)
	e.POST("/payments/check-status", h.CheckStatus)
	e.GET("/payments/pending", h.ListPending)
	e.GET("/transactions", h.ListTransactions)
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{
		svc: paymentService,
	}
}

type initiatePaymentRequest struct {
	MetalType          string  `json:"metal_type"`
	Amount             float64 `json:"amount"`
	Phone              string  `json:"phone"`
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	GoldGrams          float64 `json:"gold_grams"`
	SilverGrams        float64 `json:"silver_grams"`
	GoldPricePerGram   float64 `json:"gold_price_per_gram"`
	SilverPricePerGram float64 `json:"silver_price_per_gram"`
	SchemeID           *string `json:"scheme_id"`
	SchemeType         *string `json:"scheme_type"`
	InstallmentNumber  *int    `json:"installment_number"`
	Description        string  `json:"description"`
	Address            string  `json:"address"`
	City               string  `json:"city"`
	State              string  `json:"state"`
	Country            string  `json:"country"`
	ZipCode            string  `json:"zip_code"`
	ReturnURL          string  `json:"return_url"`
	ReturnURLFailure   string  `json:"return_url_failure"`
	ReturnURLCancel    string  `json:"return_url_cancel"`
}

type initiatePaymentResponse struct {
	OrderID     string             `json:"order_id"`
	PaymentURL  string             `json:"payment_url"`
	Params      map[string]string  `json:"params"`
	Transaction *model.Transaction `json:"transaction"`
}

type checkStatusRequest struct {
	OrderID string `json:"order_id"`
}

type checkStatusResponse struct {
	Outcome     services.Outcome   `json:"outcome"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

type transactionListResponse struct {
	Items []*model.Transaction `json:"items"`
	Total int64                `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *PaymentHandler) InitiatePayment(ctx *xhttp.RequestCtx) {
	var req initiatePaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.OrderCreateRequest{
		MetalType:          model.MetalType(strings.ToUpper(req.MetalType)),
		Amount:             req.Amount,
		Phone:              req.Phone,
		Name:               req.Name,
		Email:              req.Email,
		GoldGrams:          req.GoldGrams,
		SilverGrams:        req.SilverGrams,
		GoldPricePerGram:   req.GoldPricePerGram,
		SilverPricePerGram: req.SilverPricePerGram,
		SchemeID:           req.SchemeID,
		SchemeType:         req.SchemeType,
		InstallmentNumber:  req.InstallmentNumber,
		Description:        req.Description,
		Address:            req.Address,
		City:               req.City,
		State:              req.State,
		Country:            req.Country,
		ZipCode:            req.ZipCode,
		ReturnURL:          req.ReturnURL,
		ReturnURLFailure:   req.ReturnURLFailure,
		ReturnURLCancel:    req.ReturnURLCancel,
	}
	page, txn, err := h.svc.Initiate(ctx, p)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, initiatePaymentResponse{
		OrderID:     page.OrderID,
		PaymentURL:  page.URL,
		Params:      page.Params,
		Transaction: txn,
	})
}

func (h *PaymentHandler) CheckStatus(ctx *xhttp.RequestCtx) {
	var req checkStatusRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.OrderID == "" {
		writeError(ctx, 400, "order_id is required")
		return
	}

	res, err := h.svc.CheckStatus(ctx, req.OrderID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, gateway.ErrOrderNotFound):
		writeError(ctx, 404, "order not found")
		return
	default:
		// Gateway unreachable or ambiguous answer. The order stays as it
		// was; the caller can retry.
		writeError(ctx, 502, err.Error())
		return
	}

	writeJSON(ctx, 200, checkStatusResponse{
		Outcome:     res.Outcome,
		Transaction: res.Transaction,
	})
}

func (h *PaymentHandler) ListPending(ctx *xhttp.RequestCtx) {
	var phone *string
	if v := query(ctx, "phone"); v != "" {
		phone = &v
	}
	limit, offset := 0, 0
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			offset = n
		}
	}

	items, total, err := h.svc.Pending(ctx, phone, limit, offset)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, transactionListResponse{Items: items, Total: total})
}

func (h *PaymentHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	var f model.TransactionFilter

	if v := query(ctx, "phone"); v != "" {
		f.Phone = &v
	}
	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.TransactionStatus(strings.ToUpper(parts[i])))
			}
		}
	}
	if v := query(ctx, "metal_type"); v != "" {
		mt := model.MetalType(strings.ToUpper(v))
		f.MetalType = &mt
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.History(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, transactionListResponse{Items: items, Total: total})
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
