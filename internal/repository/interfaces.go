package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coursepay/emi-engine/internal/domain"
)

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new pending payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its internal ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByOrderID retrieves a payment by its gateway order reference
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)

	// Complete transitions a payment pending → completed, recording the
	// gateway references. The update is conditional on the current status
	// still being pending; it returns false when another caller already
	// completed the payment. This is the reconciliation linearization point.
	Complete(ctx context.Context, id uuid.UUID, gatewayPayID, signature string) (bool, error)

	// Fail transitions a payment pending → failed with the gateway error
	Fail(ctx context.Context, orderID, errorCode, errorDesc string) error

	// FindCompletedFullPayment finds a completed full-kind payment for a
	// learner-course pair, or sql.ErrNoRows
	FindCompletedFullPayment(ctx context.Context, learnerID, courseID string) (*domain.Payment, error)

	// ListByLearner returns a learner's payments with paging and an optional
	// status filter, newest first
	ListByLearner(ctx context.Context, learnerID, status string, page, limit int) ([]*domain.Payment, int, error)

	// FindCompletedEMIWithoutPlan returns completed emi-kind payments whose
	// learner-course pair has no installment plan (repair sweep input)
	FindCompletedEMIWithoutPlan(ctx context.Context) ([]*domain.Payment, error)

	// FindCompletedFullWithoutEnrollment returns completed full-kind payments
	// whose learner-course pair has no enrollment (repair sweep input)
	FindCompletedFullWithoutEnrollment(ctx context.Context) ([]*domain.Payment, error)

	// FindCompletedSettlementsForLockedPlans returns completed emi_overdue
	// payments whose plan is still locked, meaning the settlement side
	// effects never persisted (repair sweep input)
	FindCompletedSettlementsForLockedPlans(ctx context.Context) ([]*domain.Payment, error)
}

// PlanRepository defines the interface for installment plan data operations
type PlanRepository interface {
	// Create persists a plan together with its installment schedule
	Create(ctx context.Context, plan *domain.InstallmentPlan) error

	// GetByID retrieves a plan with installments and lock history
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error)

	// GetByLearnerAndCourse retrieves the plan for a learner-course pair
	GetByLearnerAndCourse(ctx context.Context, learnerID, courseID string) (*domain.InstallmentPlan, error)

	// FindActiveWithPendingDueBefore returns active plans holding at least one
	// pending installment whose due date is on or before the cutoff
	FindActiveWithPendingDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.InstallmentPlan, error)

	// FindActiveWithPendingDueBetween returns active plans holding at least
	// one pending installment due within [from, to]
	FindActiveWithPendingDueBetween(ctx context.Context, from, to time.Time) ([]*domain.InstallmentPlan, error)

	// FindPlansWithoutEnrollment returns plans whose learner-course pair has
	// no enrollment link (repair sweep input)
	FindPlansWithoutEnrollment(ctx context.Context) ([]*domain.InstallmentPlan, error)

	// UpdateStatus updates the plan status
	UpdateStatus(ctx context.Context, planID uuid.UUID, status string) error

	// UpdateInstallment persists an installment's status and payment date
	UpdateInstallment(ctx context.Context, installment *domain.Installment) error

	// AppendLockEntry appends a lock-history entry
	AppendLockEntry(ctx context.Context, entry *domain.LockEntry) error

	// CloseLockEntries sets the unlock date on open lock-history entries
	CloseLockEntries(ctx context.Context, planID uuid.UUID, unlockDate time.Time) error
}

// EnrollmentRepository defines the interface for enrollment data operations
type EnrollmentRepository interface {
	// Create links a learner to a course
	Create(ctx context.Context, enrollment *domain.Enrollment) error

	// GetByLearnerAndCourse retrieves an enrollment, or sql.ErrNoRows
	GetByLearnerAndCourse(ctx context.Context, learnerID, courseID string) (*domain.Enrollment, error)

	// Exists reports whether the learner is enrolled in the course
	Exists(ctx context.Context, learnerID, courseID string) (bool, error)

	// SetAccessStatus flips the enrollment's access status
	SetAccessStatus(ctx context.Context, learnerID, courseID, status string) error
}

// CourseRepository defines the interface for course catalog reads and the
// enrollment counter
type CourseRepository interface {
	// GetByID retrieves course info by course ID
	GetByID(ctx context.Context, courseID string) (*domain.CourseInfo, error)

	// IncrementEnrollment increments the course's enrollment counter
	IncrementEnrollment(ctx context.Context, courseID string) error
}
