package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/gateway"
	"github.com/coursepay/emi-engine/internal/service"
	customError "github.com/coursepay/emi-engine/pkg/errors"
	"github.com/coursepay/emi-engine/pkg/response"
)

const signatureHeader = "X-Razorpay-Signature"

// Gateway webhook event names.
const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
	eventOrderPaid       = "order.paid"
)

// webhookEvent is the subset of the gateway's webhook envelope the engine
// consumes.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorCode        string `json:"error_code"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// WebhookHandler ingests gateway webhook deliveries. The body signature is
// authenticated here; everything downstream goes through the same
// reconciliation path as client-side verify calls.
type WebhookHandler struct {
	reconciler *service.Reconciler
	gateway    gateway.Client
	logger     *zap.Logger
}

func NewWebhookHandler(reconciler *service.Reconciler, gatewayClient gateway.Client, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		gateway:    gatewayClient,
		logger:     logger,
	}
}

// HandleRazorpay handles POST /api/v1/webhooks/razorpay. The gateway retries
// non-2xx responses, so transient processing failures return 500 to request a
// redelivery; a duplicate delivery reconciles to a no-op.
func (h *WebhookHandler) HandleRazorpay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "unreadable body", err)
		return
	}

	if !h.gateway.VerifyWebhookSignature(body, r.Header.Get(signatureHeader)) {
		h.logger.Warn("webhook signature rejected", zap.Int("body_bytes", len(body)))
		response.BadRequest(w, "invalid webhook signature", nil)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.BadRequest(w, "malformed webhook payload", err)
		return
	}

	switch event.Event {
	case eventPaymentCaptured:
		h.handleCaptured(w, r, &event)
	case eventOrderPaid:
		// payment.captured carries the payment entity and drives
		// reconciliation; order.paid is informational and only logged.
		h.logger.Info("order paid", zap.String("order_id", event.Payload.Order.Entity.ID))
		response.Success(w, map[string]string{"status": "acknowledged"})
	case eventPaymentFailed:
		h.handleFailed(w, r, &event)
	default:
		// Unknown events are acknowledged so the gateway stops retrying.
		h.logger.Info("ignoring webhook event", zap.String("event", event.Event))
		response.Success(w, map[string]string{"status": "ignored"})
	}
}

func (h *WebhookHandler) handleCaptured(w http.ResponseWriter, r *http.Request, event *webhookEvent) {
	payment := event.Payload.Payment.Entity
	if payment.ID == "" || payment.OrderID == "" {
		// A captured event without its payment entity cannot be reconciled,
		// and redelivery would carry the same body.
		h.logger.Warn("captured event missing payment entity")
		response.Success(w, map[string]string{"status": "ignored"})
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), service.ReconcileInput{
		GatewayOrderID:    payment.OrderID,
		GatewayPaymentID:  payment.ID,
		SignatureVerified: true,
	})
	if err != nil {
		// An unknown order is acknowledged: redelivery cannot resolve it and
		// the gateway would retry forever.
		var bizErr *customError.BusinessError
		if errors.As(err, &bizErr) && bizErr.Code == customError.ErrCodePaymentNotFound {
			h.logger.Warn("webhook for unknown order", zap.String("order_id", payment.OrderID))
			response.Success(w, map[string]string{"status": "ignored"})
			return
		}
		writeError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"status":            "processed",
		"already_processed": result.AlreadyProcessed,
	})
}

func (h *WebhookHandler) handleFailed(w http.ResponseWriter, r *http.Request, event *webhookEvent) {
	payment := event.Payload.Payment.Entity

	if err := h.reconciler.RecordFailure(r.Context(), payment.OrderID, payment.ErrorCode, payment.ErrorDescription); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": "processed"})
}
