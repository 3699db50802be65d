package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPlanNotFound        = errors.New("installment plan not found")
	ErrAlreadyEnrolled     = errors.New("learner already enrolled in this course")
	ErrIneligibleDuration  = errors.New("installments not available for this course duration")
	ErrInvalidDueDay       = errors.New("due day must be between 1 and 31")
	ErrInvalidAmount       = errors.New("invalid payment amount")
	ErrAmountMismatch      = errors.New("payment amount does not match expected amount")
	ErrInvalidSignature    = errors.New("invalid payment signature")
	ErrPaymentNotCaptured  = errors.New("payment not captured by gateway")
	ErrPlanNotLocked       = errors.New("installment plan is not locked")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrSweepAlreadyRunning = errors.New("sweep already running")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeCourseNotFound     = "COURSE_NOT_FOUND"
	ErrCodePaymentNotFound    = "PAYMENT_NOT_FOUND"
	ErrCodePlanNotFound       = "PLAN_NOT_FOUND"
	ErrCodeAlreadyEnrolled    = "ALREADY_ENROLLED"
	ErrCodeIneligibleDuration = "EMI_NOT_ELIGIBLE"
	ErrCodeInvalidDueDay      = "INVALID_DUE_DAY"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeAmountMismatch     = "AMOUNT_MISMATCH"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodePaymentNotCaptured = "PAYMENT_NOT_CAPTURED"
	ErrCodePlanNotLocked      = "PLAN_NOT_LOCKED"
	ErrCodeIllegalTransition  = "ILLEGAL_TRANSITION"
	ErrCodeGatewayError       = "GATEWAY_ERROR"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeCacheError         = "CACHE_ERROR"
	ErrCodePartialFailure     = "PARTIAL_FAILURE"
)

// Wrap common errors with business context

func WrapCourseNotFound(courseID string) *BusinessError {
	return NewBusinessError(
		ErrCodeCourseNotFound,
		fmt.Sprintf("Course %s not found", courseID),
		ErrCourseNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapPlanNotFound(learnerID, courseID string) *BusinessError {
	return NewBusinessError(
		ErrCodePlanNotFound,
		fmt.Sprintf("No installment plan for learner %s on course %s", learnerID, courseID),
		ErrPlanNotFound,
	)
}

func WrapAlreadyEnrolled(learnerID, courseID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyEnrolled,
		fmt.Sprintf("Learner %s is already enrolled in course %s", learnerID, courseID),
		ErrAlreadyEnrolled,
	)
}

func WrapIneligibleDuration(duration string) *BusinessError {
	return NewBusinessError(
		ErrCodeIneligibleDuration,
		fmt.Sprintf("EMI not available for course duration %q", duration),
		ErrIneligibleDuration,
	)
}

func WrapInvalidDueDay(dueDay int) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidDueDay,
		fmt.Sprintf("Invalid EMI due day %d (must be 1-31)", dueDay),
		ErrInvalidDueDay,
	)
}

func WrapInvalidAmount(expected, actual string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Payment amount %s does not match required amount %s", actual, expected),
		ErrInvalidAmount,
	)
}

func WrapAmountMismatch(expected, actual string) *BusinessError {
	return NewBusinessError(
		ErrCodeAmountMismatch,
		fmt.Sprintf("Settlement amount %s does not match overdue total %s", actual, expected),
		ErrAmountMismatch,
	)
}

func WrapInvalidSignature() *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidSignature,
		"Payment signature verification failed",
		ErrInvalidSignature,
	)
}

func WrapPaymentNotCaptured(remoteStatus string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotCaptured,
		fmt.Sprintf("Gateway reports payment status %q, expected captured", remoteStatus),
		ErrPaymentNotCaptured,
	)
}

func WrapPlanNotLocked(planID string) *BusinessError {
	return NewBusinessError(
		ErrCodePlanNotLocked,
		fmt.Sprintf("Installment plan %s is not locked", planID),
		ErrPlanNotLocked,
	)
}

func WrapIllegalTransition(from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeIllegalTransition,
		fmt.Sprintf("Cannot transition from %s to %s", from, to),
		ErrIllegalTransition,
	)
}

func WrapGatewayError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeGatewayError,
		"payment gateway call failed",
		err,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// WrapPartialFailure marks the fatal class: the payment is already completed
// but a downstream step (plan creation, enrollment link) failed. Must reach
// alerting; the repair sweep re-derives the missing state from the payment.
func WrapPartialFailure(paymentID string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodePartialFailure,
		fmt.Sprintf("Payment %s completed but post-commit step failed", paymentID),
		err,
	)
}
