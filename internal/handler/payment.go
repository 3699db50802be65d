package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/service"
	"github.com/coursepay/emi-engine/pkg/response"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PaymentHandler exposes the payment lifecycle over HTTP.
type PaymentHandler struct {
	payments   *service.PaymentService
	reconciler *service.Reconciler
	validator  *validator.Validate
	logger     *zap.Logger
}

func NewPaymentHandler(payments *service.PaymentService, reconciler *service.Reconciler, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:   payments,
		reconciler: reconciler,
		validator:  validator.New(),
		logger:     logger,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	resp, err := h.payments.CreateIntent(r.Context(), &req, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, resp)
}

// VerifyPayment handles POST /api/v1/payments/verify. The client sends the
// checkout result; completion is reconciled against the gateway, never
// trusted from the client.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		response.BadRequest(w, "invalid payment id", err)
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), service.ReconcileInput{
		PaymentID:        paymentID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}

// SettleOverdue handles POST /api/v1/emi/settle
func (h *PaymentHandler) SettleOverdue(w http.ResponseWriter, r *http.Request) {
	var req domain.SettleOverdueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	resp, err := h.payments.CreateSettlementIntent(r.Context(), &req, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, resp)
}

// ListPayments handles GET /api/v1/learners/{learnerId}/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	learnerID := mux.Vars(r)["learnerId"]

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	resp, err := h.payments.ListPayments(r.Context(), learnerID, r.URL.Query().Get("status"), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, resp)
}

// GetCourseEMIDetails handles GET /api/v1/courses/{courseId}/emi
func (h *PaymentHandler) GetCourseEMIDetails(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseId"]

	resp, err := h.payments.GetEMIDetails(r.Context(), courseID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, resp)
}
