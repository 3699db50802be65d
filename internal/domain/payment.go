package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/coursepay/emi-engine/pkg/money"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

const (
	PaymentKindFull       = "full"
	PaymentKindEMI        = "emi"
	PaymentKindEMIOverdue = "emi_overdue"
)

const (
	CurrencyINR = "INR"
	CurrencyUSD = "USD"
)

// Payment represents one attempted transaction. Payments are an audit trail:
// they are created pending, moved to completed or failed exactly once, and
// never deleted.
type Payment struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	LearnerID      string       `json:"learner_id" db:"learner_id"`
	CourseID       string       `json:"course_id" db:"course_id"`
	MotherCourseID string       `json:"mother_course_id" db:"mother_course_id"`
	CourseName     string       `json:"course_name" db:"course_name"`
	Kind           string       `json:"kind" db:"kind"`
	Amount         money.Amount `json:"amount" db:"amount"`
	Currency       string       `json:"currency" db:"currency"`
	ReceiptID      string       `json:"receipt_id" db:"receipt_id"`
	GatewayOrderID string       `json:"gateway_order_id" db:"gateway_order_id"`
	GatewayPayID   string       `json:"gateway_payment_id" db:"gateway_payment_id"`
	Signature      string       `json:"-" db:"signature"`
	Status         string       `json:"status" db:"status"`
	EMIDueDay      int          `json:"emi_due_day,omitempty" db:"emi_due_day"`
	ErrorCode      string       `json:"error_code,omitempty" db:"error_code"`
	ErrorDesc      string       `json:"error_description,omitempty" db:"error_description"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// IsCompleted reports whether the payment has been reconciled.
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// IsInstallmentKind reports whether the payment belongs to an EMI flow.
func (p *Payment) IsInstallmentKind() bool {
	return p.Kind == PaymentKindEMI || p.Kind == PaymentKindEMIOverdue
}

// DTOs for requests and responses

type CreatePaymentRequest struct {
	LearnerID string `json:"learner_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Kind      string `json:"kind" validate:"required,oneof=full emi"`
	EMIDueDay int    `json:"emi_due_day" validate:"omitempty,min=1,max=31"`
}

type CreatePaymentResponse struct {
	PaymentID      uuid.UUID   `json:"payment_id"`
	GatewayOrderID string      `json:"gateway_order_id"`
	Amount         int64       `json:"amount"`
	Currency       string      `json:"currency"`
	EMIDetails     *EMIPreview `json:"emi_details,omitempty"`
}

type EMIPreview struct {
	MonthlyAmount int64     `json:"monthly_amount"`
	TotalMonths   int       `json:"total_months"`
	NextDueDate   time.Time `json:"next_due_date"`
}

type VerifyPaymentRequest struct {
	PaymentID        string `json:"payment_id" validate:"required"`
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

type SettleOverdueRequest struct {
	LearnerID string `json:"learner_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
}

type PaymentListResponse struct {
	Payments []*Payment `json:"payments"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}
