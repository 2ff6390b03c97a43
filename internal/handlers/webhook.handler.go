package handlers

import (
	"context"
	"strings"

	"github.com/fasthttp/router"
	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	xhttp "github.com/shri22/vmurugan-gold-trading-sub000/pkg/http"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
)

// MerchantResolver maps a metal type to the merchant account whose salt
// signs its webhooks.
type MerchantResolver interface {
	Merchant(metal model.MetalType) (gateway.Merchant, error)
}

// WebhookPublisher hands a verified event to the queue for async
// processing.
type WebhookPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// WebhookHandler is the gateway-facing edge. It verifies the signature
// and enqueues; it never touches the database, so the gateway gets its
// 200 back fast.
type WebhookHandler struct {
	merchants MerchantResolver
	publisher WebhookPublisher
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.POST("/payments/webhook", h.ReceiveWebhook)
}

func NewWebhookHandler(merchants MerchantResolver, publisher WebhookPublisher) *WebhookHandler {
	return &WebhookHandler{
		merchants: merchants,
		publisher: publisher,
	}
}

func (h *WebhookHandler) ReceiveWebhook(ctx *xhttp.RequestCtx) {
	event := parseWebhookEvent(ctx)
	if err := event.Validate(); err != nil {
		writeError(ctx, 400, err.Error())
		return
	}

	// The order id carries the metal segment, which picks the merchant
	// whose salt the signature was computed with.
	metal, err := model.MetalTypeFromOrderID(event.OrderID)
	if err != nil {
		logger.Warn("Webhook for order with no metal segment", "order_id", event.OrderID)
		writeError(ctx, 400, "cannot resolve merchant for order")
		return
	}
	merchant, err := h.merchants.Merchant(metal)
	if err != nil {
		writeError(ctx, 400, "cannot resolve merchant for order")
		return
	}

	if !gateway.VerifyWebhookHash(event.TransactionID, event.OrderID, event.Amount, event.ResponseCode, merchant.Salt, event.Hash) {
		logger.Warn("Webhook signature verification failed",
			"order_id", event.OrderID,
			"transaction_id", event.TransactionID)
		writeError(ctx, 403, "invalid signature")
		return
	}

	msgID, err := h.publisher.PublishJSON(ctx, event, map[string]string{
		"type":     "webhook",
		"order_id": event.OrderID,
	})
	if err != nil {
		logger.Error("Failed to enqueue webhook", "order_id", event.OrderID, "error", err)
		writeError(ctx, 500, "failed to accept webhook")
		return
	}

	logger.Info("Webhook accepted",
		"order_id", event.OrderID,
		"transaction_id", event.TransactionID,
		"message_id", msgID)
	writeJSON(ctx, 200, map[string]string{"status": "accepted"})
}

// parseWebhookEvent reads the notification from either a JSON body or a
// form POST. The gateway sends forms; JSON is kept for replay tooling.
func parseWebhookEvent(ctx *xhttp.RequestCtx) model.WebhookEvent {
	contentType := string(ctx.Request.Header.ContentType())
	if strings.Contains(contentType, "application/json") {
		var event model.WebhookEvent
		if err := readJSON(ctx, &event); err == nil {
			return event
		}
		return model.WebhookEvent{}
	}

	args := ctx.PostArgs()
	form := func(key string) string {
		return string(args.Peek(key))
	}
	return model.WebhookEvent{
		TransactionID:   form("transaction_id"),
		OrderID:         form("order_id"),
		Amount:          form("amount"),
		ResponseCode:    form("response_code"),
		Hash:            form("hash"),
		PaymentDatetime: form("payment_datetime"),
		Phone:           form("phone"),
		Email:           form("email"),
		Name:            form("name"),
		PaymentMethod:   form("payment_method"),
	}
}
