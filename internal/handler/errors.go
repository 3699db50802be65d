package handler

import (
	"errors"
	"net/http"

	"github.com/coursepay/emi-engine/pkg/response"

	customError "github.com/coursepay/emi-engine/pkg/errors"
)

// statusFor maps business error codes to HTTP statuses. Anything unmapped is
// an internal error.
var statusFor = map[string]int{
	customError.ErrCodeCourseNotFound:     http.StatusNotFound,
	customError.ErrCodePaymentNotFound:    http.StatusNotFound,
	customError.ErrCodePlanNotFound:       http.StatusNotFound,
	customError.ErrCodeAlreadyEnrolled:    http.StatusConflict,
	customError.ErrCodeIneligibleDuration: http.StatusBadRequest,
	customError.ErrCodeInvalidDueDay:      http.StatusBadRequest,
	customError.ErrCodeInvalidAmount:      http.StatusBadRequest,
	customError.ErrCodeAmountMismatch:     http.StatusBadRequest,
	customError.ErrCodeInvalidSignature:   http.StatusBadRequest,
	customError.ErrCodePaymentNotCaptured: http.StatusBadRequest,
	customError.ErrCodePlanNotLocked:      http.StatusBadRequest,
	customError.ErrCodeIllegalTransition:  http.StatusConflict,
	customError.ErrCodeGatewayError:       http.StatusBadGateway,
}

// writeError renders a service error as the standard envelope.
func writeError(w http.ResponseWriter, err error) {
	var bizErr *customError.BusinessError
	if errors.As(err, &bizErr) {
		status, ok := statusFor[bizErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		response.BusinessError(w, status, bizErr.Code, bizErr.Message)
		return
	}
	response.InternalServerError(w, "internal server error", err)
}
