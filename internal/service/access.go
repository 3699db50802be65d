package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/repository"
	customError "github.com/coursepay/emi-engine/pkg/errors"
)

// AccessGate derives a learner's current access to a course from payment and
// plan state. The check is read-only: it never mutates anything.
type AccessGate struct {
	PaymentRepo    repository.PaymentRepository
	EnrollmentRepo repository.EnrollmentRepository
	PlanRepo       repository.PlanRepository
}

func NewAccessGate(
	paymentRepo repository.PaymentRepository,
	enrollmentRepo repository.EnrollmentRepository,
	planRepo repository.PlanRepository,
) *AccessGate {
	return &AccessGate{
		PaymentRepo:    paymentRepo,
		EnrollmentRepo: enrollmentRepo,
		PlanRepo:       planRepo,
	}
}

// Check resolves access in priority order: a completed full payment grants
// unconditionally; otherwise an enrollment backed by an active or completed
// installment plan grants; otherwise access is denied.
func (g *AccessGate) Check(ctx context.Context, learnerID, courseID string) (*domain.AccessCheckResponse, error) {
	_, err := g.PaymentRepo.FindCompletedFullPayment(ctx, learnerID, courseID)
	if err == nil {
		return &domain.AccessCheckResponse{
			Granted: true,
			Reason:  domain.AccessReasonFullPayment,
		}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	enrollment, err := g.EnrollmentRepo.GetByLearnerAndCourse(ctx, learnerID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return denied(), nil
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if enrollment.PlanID == nil {
		return denied(), nil
	}

	plan, err := g.PlanRepo.GetByID(ctx, *enrollment.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return denied(), nil
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if plan.Status == domain.PlanStatusActive || plan.Status == domain.PlanStatusCompleted {
		return &domain.AccessCheckResponse{
			Granted: true,
			Reason:  domain.AccessReasonEMIActive,
		}, nil
	}

	return denied(), nil
}

func denied() *domain.AccessCheckResponse {
	return &domain.AccessCheckResponse{
		Granted: false,
		Reason:  domain.AccessReasonPaymentRequired,
	}
}
