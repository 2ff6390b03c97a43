package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
)

// Mock payment gateway for local development. It mimics the handful of
// Omniware endpoints the reconciler talks to: hosted payment request,
// payment status, and the settlement APIs. Orders are held in memory; a
// /mock/pay endpoint stands in for the customer completing the UPI
// flow.

const (
	codeSuccess       = 0
	codeUPIInitiated  = 1030
	codeOrderNotFound = 1028
	zeroDatetime      = "0000-00-00 00:00:00"
)

type mockOrder struct {
	OrderID         string
	TransactionID   string
	Amount          string
	ResponseCode    int
	ResponseMessage string
	PaymentMode     string
	PaymentDatetime string
	CreatedAt       time.Time
}

// MockGateway holds the in-memory order book.
type MockGateway struct {
	mu     sync.Mutex
	orders map[string]*mockOrder

	salt string
	// upiQuirk makes completed UPI payments report 1030 with a valid
	// payment_datetime instead of 0, the way the live gateway does for
	// intent-flow payments.
	upiQuirk bool
}

func NewMockGateway(salt string, upiQuirk bool) *MockGateway {
	return &MockGateway{
		orders:   make(map[string]*mockOrder),
		salt:     salt,
		upiQuirk: upiQuirk,
	}
}

type Handler struct {
	gw *MockGateway
}

func NewHandler(gw *MockGateway) *Handler {
	return &Handler{gw: gw}
}

// PaymentRequest accepts the signed hosted-page form and opens an
// order. The real gateway renders a payment page here; the mock just
// acknowledges.
func (h *Handler) PaymentRequest(c *gin.Context) {
	orderID := c.PostForm("order_id")
	amount := c.PostForm("amount")
	hash := c.PostForm("hash")
	if orderID == "" || amount == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and amount are required"})
		return
	}

	if !h.verifyRequestHash(c, hash) {
		c.JSON(http.StatusForbidden, gin.H{"error": "hash mismatch"})
		return
	}

	h.gw.mu.Lock()
	h.gw.orders[orderID] = &mockOrder{
		OrderID:         orderID,
		Amount:          amount,
		ResponseCode:    codeUPIInitiated,
		ResponseMessage: "Transaction initiated",
		PaymentDatetime: zeroDatetime,
		CreatedAt:       time.Now(),
	}
	h.gw.mu.Unlock()

	log.Info().
		Str("order_id", orderID).
		Str("amount", amount).
		Msg("Order opened")

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"status":   "initiated",
	})
}

func (h *Handler) verifyRequestHash(c *gin.Context, received string) bool {
	params := map[string]string{}
	c.Request.ParseForm()
	for k, vs := range c.Request.PostForm {
		if k == "hash" || len(vs) == 0 {
			continue
		}
		params[k] = vs[0]
	}
	return gateway.SignParams(params, h.gw.salt) == received
}

// Pay simulates the customer completing the payment. failed=true
// simulates a declined payment.
func (h *Handler) Pay(c *gin.Context) {
	orderID := c.Param("order_id")

	h.gw.mu.Lock()
	defer h.gw.mu.Unlock()

	order, ok := h.gw.orders[orderID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown order"})
		return
	}

	if c.Query("failed") == "true" {
		order.ResponseCode = 1
		order.ResponseMessage = "Transaction declined"
		c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": "failed"})
		return
	}

	order.TransactionID = "TXN" + uuid.New().String()[:12]
	order.PaymentMode = "UPI"
	order.PaymentDatetime = time.Now().Format("2006-01-02 15:04:05")
	if h.gw.upiQuirk {
		// Paid, but the status API keeps reporting the initiated code.
		order.ResponseCode = codeUPIInitiated
		order.ResponseMessage = "Transaction initiated"
	} else {
		order.ResponseCode = codeSuccess
		order.ResponseMessage = "Transaction successful"
	}

	log.Info().
		Str("order_id", orderID).
		Str("transaction_id", order.TransactionID).
		Int("response_code", order.ResponseCode).
		Msg("Order paid")

	c.JSON(http.StatusOK, gin.H{
		"order_id":       orderID,
		"transaction_id": order.TransactionID,
		"status":         "paid",
	})
}

// PaymentStatus answers the status poll with the gateway envelope:
// either a data array or an explicit error object.
func (h *Handler) PaymentStatus(c *gin.Context) {
	orderID := c.PostForm("order_id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	h.gw.mu.Lock()
	order, ok := h.gw.orders[orderID]
	h.gw.mu.Unlock()

	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"error": gin.H{
				"code":    codeOrderNotFound,
				"message": "No transaction found for the given order id",
			},
		})
		return
	}

	txn := gin.H{
		"transaction_id":   order.TransactionID,
		"order_id":         order.OrderID,
		"amount":           order.Amount,
		"currency":         "INR",
		"response_code":    order.ResponseCode,
		"response_message": order.ResponseMessage,
		"payment_mode":     order.PaymentMode,
		"payment_datetime": order.PaymentDatetime,
		"hash": gateway.WebhookHash(
			order.TransactionID,
			order.OrderID,
			order.Amount,
			strconv.Itoa(order.ResponseCode),
			h.gw.salt,
		),
	}
	c.JSON(http.StatusOK, gin.H{"data": []gin.H{txn}})
}

// Settlements fabricates one settlement batch covering every paid
// order.
func (h *Handler) Settlements(c *gin.Context) {
	total := 0.0
	h.gw.mu.Lock()
	for _, o := range h.gw.orders {
		if o.TransactionID != "" {
			amt, _ := strconv.ParseFloat(o.Amount, 64)
			total += amt
		}
	}
	h.gw.mu.Unlock()

	if total == 0 {
		c.JSON(http.StatusOK, gin.H{"data": []gin.H{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": []gin.H{{
		"settlement_id":       1001,
		"bank_reference":      "UTR" + uuid.New().String()[:10],
		"payout_amount":       total * 0.98,
		"sale_amount":         total,
		"settlement_datetime": time.Now().Format("2006-01-02 15:04:05"),
	}}})
}

func (h *Handler) SettlementDetails(c *gin.Context) {
	details := []gin.H{}
	h.gw.mu.Lock()
	for _, o := range h.gw.orders {
		if o.TransactionID == "" {
			continue
		}
		amt, _ := strconv.ParseFloat(o.Amount, 64)
		details = append(details, gin.H{
			"transaction_id":           o.TransactionID,
			"order_id":                 o.OrderID,
			"gross_transaction_amount": amt,
			"tdr_amount":               amt * 0.02,
			"transaction_date":         o.PaymentDatetime,
		})
	}
	h.gw.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"data": details})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	v2 := router.Group("/v2")
	{
		v2.POST("/paymentrequest", handler.PaymentRequest)
		v2.POST("/paymentstatus", handler.PaymentStatus)
		v2.POST("/getsettlements", handler.Settlements)
		v2.POST("/getsettlementdetails", handler.SettlementDetails)
	}

	// Test controls, not part of the gateway surface
	router.POST("/mock/pay/:order_id", handler.Pay)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	salt := getEnv("MERCHANT_SALT", "dev-salt")
	upiQuirk := getEnvBool("UPI_QUIRK", true)

	log.Info().
		Str("port", port).
		Bool("upi_quirk", upiQuirk).
		Msg("Starting mock payment gateway")

	gw := NewMockGateway(salt, upiQuirk)
	handler := NewHandler(gw)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		var b bool
		if _, err := fmt.Sscanf(value, "%t", &b); err == nil {
			return b
		}
	}
	return defaultValue
}
