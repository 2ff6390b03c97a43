package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	// ErrOrderNotFound means the gateway has no record of the order id
	// (error code 1028). The pending-cleanup sweep relies on telling
	// this apart from other gateway errors.
	ErrOrderNotFound = errors.New("order not found at gateway")

	ErrUnknownMerchant = errors.New("no merchant configured for metal type")
)

// codeOrderNotFound is the gateway error code for an unknown order id.
const codeOrderNotFound = 1028

const (
	paymentStatusPath     = "/v2/paymentstatus"
	paymentRequestPath    = "/v2/paymentrequest"
	settlementsPath       = "/v2/getsettlements"
	settlementDetailsPath = "/v2/getsettlementdetails"
)

// Merchant is one gateway merchant account. Gold and silver purchases
// settle into different accounts, so credentials are keyed by metal
// type. The record is immutable after construction.
type Merchant struct {
	MerchantID string
	APIKey     string
	Salt       string
	Name       string
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	MaxConns int
	Gold     Merchant
	Silver   Merchant
}

// GatewayTransaction is the normalized shape of one transaction record
// in a payment-status response. The gateway returns either a single
// object or an array under "data"; the client collapses both into this
// before anything downstream sees it.
type GatewayTransaction struct {
	TransactionID   string `json:"transaction_id"`
	OrderID         string `json:"order_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ResponseCode    int    `json:"response_code"`
	ResponseMessage string `json:"response_message"`
	PaymentMode     string `json:"payment_mode"`
	PaymentChannel  string `json:"payment_channel"`
	PaymentDatetime string `json:"payment_datetime"`
	PaymentMethod   string `json:"payment_method"`
	Hash            string `json:"hash"`

	// Raw is the original response body, persisted for audit/replay.
	Raw json.RawMessage `json:"-"`
}

// GatewayError is the explicit error object the gateway returns instead
// of a payload.
type GatewayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

type statusEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *GatewayError   `json:"error"`
}

// GatewaySettlement is one settlement batch row from getsettlements.
type GatewaySettlement struct {
	SettlementID       int64   `json:"settlement_id"`
	BankReference      string  `json:"bank_reference"`
	PayoutAmount       float64 `json:"payout_amount"`
	SaleAmount         float64 `json:"sale_amount"`
	SettlementDatetime string  `json:"settlement_datetime"`
}

// GatewaySettledTransaction is one row from getsettlementdetails.
type GatewaySettledTransaction struct {
	TransactionID          string  `json:"transaction_id"`
	OrderID                string  `json:"order_id"`
	GrossTransactionAmount float64 `json:"gross_transaction_amount"`
	TDRAmount              float64 `json:"tdr_amount"`
	TransactionDate        string  `json:"transaction_date"`
	CustomerPhone          string  `json:"customer_phone"`
	CustomerName           string  `json:"customer_name"`
}

// PaymentPage is a signed payment-request the mobile app posts to the
// gateway's hosted page.
type PaymentPage struct {
	URL     string            `json:"payment_page_url"`
	Params  map[string]string `json:"form_params"`
	OrderID string            `json:"order_id"`
}

type Client struct {
	config *Config
	client *fasthttp.Client
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("gateway base url is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxConns == 0 {
		config.MaxConns = 100
	}

	c := &Client{
		config: config,
		client: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}

	logger.Info("Gateway client initialized", "base_url", config.BaseURL, "timeout", config.Timeout)
	return c, nil
}

// Merchant returns the immutable merchant credentials for a metal type.
func (c *Client) Merchant(metal model.MetalType) (Merchant, error) {
	switch metal {
	case model.MetalGold:
		return c.config.Gold, nil
	case model.MetalSilver:
		return c.config.Silver, nil
	}
	return Merchant{}, fmt.Errorf("%w: %q", ErrUnknownMerchant, metal)
}

// NewOrderID generates a client-side order id. The metal segment and
// merchant suffix are load-bearing: webhook processing infers the
// merchant salt from them. Kept under the gateway's 30-char limit.
func (c *Client) NewOrderID(metal model.MetalType) (string, error) {
	m, err := c.Merchant(metal)
	if err != nil {
		return "", err
	}
	suffix := m.MerchantID
	if len(suffix) > 3 {
		suffix = suffix[len(suffix)-3:]
	}
	return fmt.Sprintf("ORD_%d_%s_%s", time.Now().UnixMilli(), metal, suffix), nil
}

// PaymentStatus queries the gateway for the current state of an order.
// A transport failure or timeout is inconclusive: the caller must leave
// local state unchanged and retry later.
func (c *Client) PaymentStatus(ctx context.Context, metal model.MetalType, orderID string) (*GatewayTransaction, error) {
	m, err := c.Merchant(metal)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"api_key":  m.APIKey,
		"order_id": orderID,
	}
	params["hash"] = SignParams(params, m.Salt)

	body, err := c.postForm(ctx, paymentStatusPath, params)
	if err != nil {
		return nil, err
	}

	var envelope statusEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	if envelope.Error != nil {
		if envelope.Error.Code == codeOrderNotFound {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, envelope.Error
	}
	if len(envelope.Data) == 0 {
		return nil, errors.New("gateway returned neither data nor error")
	}

	tx, err := normalizeTransaction(envelope.Data)
	if err != nil {
		return nil, err
	}

	logger.Debug("Gateway status fetched",
		"order_id", tx.OrderID,
		"response_code", tx.ResponseCode,
		"payment_datetime", tx.PaymentDatetime)

	return tx, nil
}

// normalizeTransaction collapses the single-object / array duality of
// the "data" field into one record, keeping the raw bytes for audit.
func normalizeTransaction(data json.RawMessage) (*GatewayTransaction, error) {
	var tx GatewayTransaction
	if err := json.Unmarshal(data, &tx); err == nil && (tx.OrderID != "" || tx.TransactionID != "") {
		tx.Raw = data
		return &tx, nil
	}

	var list []GatewayTransaction
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unexpected status payload shape: %w", err)
	}
	if len(list) == 0 {
		return nil, errors.New("gateway returned an empty transaction list")
	}
	tx = list[0]
	tx.Raw = data
	return &tx, nil
}

// BuildPaymentRequest pre-signs the hosted payment page parameters for
// an order. No network call is made; the app posts the params itself.
func (c *Client) BuildPaymentRequest(req model.OrderCreateRequest, orderID string) (*PaymentPage, error) {
	m, err := c.Merchant(req.MetalType)
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("%s Purchase - %.2f", req.MetalType, req.Amount)
	}
	name := req.Name
	if name == "" {
		name = "Customer"
	}

	params := map[string]string{
		"api_key":            m.APIKey,
		"order_id":           orderID,
		"mode":               "LIVE",
		"amount":             strconv.FormatFloat(req.Amount, 'f', -1, 64),
		"currency":           "INR",
		"description":        description,
		"name":               name,
		"email":              req.Email,
		"phone":              req.Phone,
		"address_line_1":     req.Address,
		"city":               req.City,
		"state":              req.State,
		"country":            req.Country,
		"zip_code":           req.ZipCode,
		"return_url":         req.ReturnURL,
		"return_url_failure": req.ReturnURLFailure,
		"return_url_cancel":  req.ReturnURLCancel,
		"payment_options":    "upi",
		"udf1":               string(req.MetalType),
		"udf2":               m.MerchantID,
	}
	params["hash"] = SignParams(params, m.Salt)

	return &PaymentPage{
		URL:     c.config.BaseURL + paymentRequestPath,
		Params:  params,
		OrderID: orderID,
	}, nil
}

// Settlements fetches settlement batches for a date range (DD-MM-YYYY,
// the gateway's format).
func (c *Client) Settlements(ctx context.Context, metal model.MetalType, dateFrom, dateTo string) ([]GatewaySettlement, error) {
	m, err := c.Merchant(metal)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"api_key":   m.APIKey,
		"date_from": dateFrom,
		"date_to":   dateTo,
	}
	params["hash"] = SignParams(params, m.Salt)

	body, err := c.postForm(ctx, settlementsPath, params)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data  []GatewaySettlement `json:"data"`
		Error *GatewayError       `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode settlements response: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	return envelope.Data, nil
}

// SettlementDetails fetches the per-transaction rows of one batch.
func (c *Client) SettlementDetails(ctx context.Context, metal model.MetalType, settlementID int64) ([]GatewaySettledTransaction, error) {
	m, err := c.Merchant(metal)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"api_key":       m.APIKey,
		"settlement_id": strconv.FormatInt(settlementID, 10),
	}
	params["hash"] = SignParams(params, m.Salt)

	body, err := c.postForm(ctx, settlementDetailsPath, params)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data  []GatewaySettledTransaction `json:"data"`
		Error *GatewayError               `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode settlement details: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	return envelope.Data, nil
}

func (c *Client) postForm(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString(form.Encode())

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("unexpected gateway status code: %d, body: %s", resp.StatusCode(), resp.Body())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
