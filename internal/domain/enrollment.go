package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	AccessStatusActive = "active"
	AccessStatusLocked = "locked"
)

// Access check reasons returned by the access gate.
const (
	AccessReasonFullPayment     = "full_payment"
	AccessReasonEMIActive       = "emi_active"
	AccessReasonPaymentRequired = "payment_required"
)

// Enrollment links a learner to a course with a derived access status. For
// EMI enrollments PlanID carries the installment plan; for full payments it
// is nil. Access is toggled only by the lock/unlock flows, never directly.
type Enrollment struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	LearnerID    string     `json:"learner_id" db:"learner_id"`
	CourseID     string     `json:"course_id" db:"course_id"`
	CourseName   string     `json:"course_name" db:"course_name"`
	PlanID       *uuid.UUID `json:"plan_id,omitempty" db:"plan_id"`
	AccessStatus string     `json:"access_status" db:"access_status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// AccessCheckResponse is the access gate's verdict for one learner-course pair.
type AccessCheckResponse struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason"`
}
