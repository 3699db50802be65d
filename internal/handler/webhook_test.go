package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/config"
	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/gateway"
	"github.com/coursepay/emi-engine/internal/mocks"
	"github.com/coursepay/emi-engine/internal/service"
	"github.com/coursepay/emi-engine/pkg/money"
)

type webhookFixture struct {
	handler        *WebhookHandler
	paymentRepo    *mocks.MockPaymentRepository
	planRepo       *mocks.MockPlanRepository
	enrollmentRepo *mocks.MockEnrollmentRepository
	courseRepo     *mocks.MockCourseRepository
	gateway        *mocks.MockGatewayClient
	notifier       *mocks.MockNotifier
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		paymentRepo:    new(mocks.MockPaymentRepository),
		planRepo:       new(mocks.MockPlanRepository),
		enrollmentRepo: new(mocks.MockEnrollmentRepository),
		courseRepo:     new(mocks.MockCourseRepository),
		gateway:        new(mocks.MockGatewayClient),
		notifier:       new(mocks.MockNotifier),
	}
	cfg := &config.Config{
		Business: config.BusinessConfig{
			Currency:        domain.CurrencyINR,
			MonthlyAmount:   200000,
			GracePeriodDays: 3,
		},
	}
	logger := zap.NewNop()
	builder := service.NewScheduleBuilder(f.planRepo, f.enrollmentRepo, f.courseRepo, cfg, logger)
	reconciler := service.NewReconciler(
		f.paymentRepo, f.planRepo, f.enrollmentRepo, f.courseRepo,
		builder, f.gateway, f.notifier, cfg, logger,
	)
	f.handler = NewWebhookHandler(reconciler, f.gateway, logger)
	return f
}

func deliver(t *testing.T, h *WebhookHandler, event map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(event)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set(signatureHeader, "sig")
	rec := httptest.NewRecorder()
	h.HandleRazorpay(rec, req)
	return rec
}

func capturedEvent(orderID, paymentID string) map[string]interface{} {
	return map[string]interface{}{
		"event": "payment.captured",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       paymentID,
					"order_id": orderID,
					"status":   "captured",
				},
			},
		},
	}
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	f := newWebhookFixture()

	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(false)

	rec := deliver(t, f.handler, capturedEvent("order_1", "pay_1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.paymentRepo.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
}

func TestWebhook_CapturedCompletesFullPayment(t *testing.T) {
	f := newWebhookFixture()
	payment := &domain.Payment{
		LearnerID:      "learner-1",
		CourseID:       "course-101",
		Kind:           domain.PaymentKindFull,
		Amount:         money.Amount(1200000),
		GatewayOrderID: "order_1",
		Status:         domain.PaymentStatusPending,
	}

	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(true)
	f.paymentRepo.On("GetByOrderID", mock.Anything, "order_1").Return(payment, nil)
	f.gateway.On("FetchPayment", mock.Anything, "pay_1").
		Return(&gateway.PaymentInfo{ID: "pay_1", Status: gateway.RemoteStatusCaptured}, nil)
	f.paymentRepo.On("Complete", mock.Anything, payment.ID, "pay_1", "").Return(true, nil)
	f.enrollmentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.courseRepo.On("IncrementEnrollment", mock.Anything, "course-101").Return(nil)
	f.notifier.On("Send", mock.Anything, "learner-1", mock.Anything, mock.Anything).Return()

	rec := deliver(t, f.handler, capturedEvent("order_1", "pay_1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	f.paymentRepo.AssertExpectations(t)
}

func TestWebhook_DuplicateDeliveryAcknowledged(t *testing.T) {
	f := newWebhookFixture()
	payment := &domain.Payment{
		LearnerID:      "learner-1",
		CourseID:       "course-101",
		Kind:           domain.PaymentKindFull,
		GatewayOrderID: "order_1",
		GatewayPayID:   "pay_1",
		Status:         domain.PaymentStatusCompleted,
	}

	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(true)
	f.paymentRepo.On("GetByOrderID", mock.Anything, "order_1").Return(payment, nil)
	f.gateway.On("FetchPayment", mock.Anything, "pay_1").
		Return(&gateway.PaymentInfo{ID: "pay_1", Status: gateway.RemoteStatusCaptured}, nil)

	rec := deliver(t, f.handler, capturedEvent("order_1", "pay_1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"already_processed":true`)
	f.paymentRepo.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.enrollmentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestWebhook_UnknownOrderAcknowledged(t *testing.T) {
	f := newWebhookFixture()

	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(true)
	f.paymentRepo.On("GetByOrderID", mock.Anything, "order_ghost").Return(nil, sql.ErrNoRows)

	rec := deliver(t, f.handler, capturedEvent("order_ghost", "pay_1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestWebhook_FailedEventRecordsFailure(t *testing.T) {
	f := newWebhookFixture()

	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(true)
	f.paymentRepo.On("Fail", mock.Anything, "order_1", "BAD_REQUEST_ERROR", "card declined").Return(nil)

	rec := deliver(t, f.handler, map[string]interface{}{
		"event": "payment.failed",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":                "pay_1",
					"order_id":          "order_1",
					"status":            "failed",
					"error_code":        "BAD_REQUEST_ERROR",
					"error_description": "card declined",
				},
			},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	f.paymentRepo.AssertExpectations(t)
}

func TestWebhook_UnknownEventAcknowledged(t *testing.T) {
	f := newWebhookFixture()

	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(true)

	rec := deliver(t, f.handler, map[string]interface{}{
		"event":   "refund.processed",
		"payload": map[string]interface{}{},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
	f.paymentRepo.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
}

func TestWebhook_OrderPaidOnlyLogged(t *testing.T) {
	f := newWebhookFixture()

	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(true)

	// order.paid carries no payment entity; payment.captured drives
	// reconciliation for the same capture.
	rec := deliver(t, f.handler, map[string]interface{}{
		"event": "order.paid",
		"payload": map[string]interface{}{
			"order": map[string]interface{}{
				"entity": map[string]interface{}{"id": "order_1"},
			},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "acknowledged")
	f.paymentRepo.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "FetchPayment", mock.Anything, mock.Anything)
}

func TestWebhook_CapturedWithoutPaymentEntityAcknowledged(t *testing.T) {
	f := newWebhookFixture()

	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(true)

	rec := deliver(t, f.handler, map[string]interface{}{
		"event":   "payment.captured",
		"payload": map[string]interface{}{},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
	f.paymentRepo.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
}
