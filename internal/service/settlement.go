package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/notification"
	"github.com/coursepay/emi-engine/internal/repository"
	customError "github.com/coursepay/emi-engine/pkg/errors"
)

// settlementApplier carries the side effects of a completed overdue
// settlement payment onto its plan. The reconciler drives it for fresh
// confirmations; the repair sweep re-drives it for settlements whose payment
// completed but whose plan stayed locked.
type settlementApplier struct {
	planRepo       repository.PlanRepository
	enrollmentRepo repository.EnrollmentRepository
	notifier       notification.Notifier
	logger         *zap.Logger
}

// apply clears a locked plan's late installments. The plan transition
// validates the amount again: the late set is read at intent time, and if
// another sweep ran since then the amount no longer matches and the
// settlement cannot be applied.
func (s *settlementApplier) apply(ctx context.Context, payment *domain.Payment, now time.Time) (*domain.InstallmentPlan, error) {
	plan, err := s.planRepo.GetByLearnerAndCourse(ctx, payment.LearnerID, payment.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapPlanNotFound(payment.LearnerID, payment.CourseID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	late := plan.LateInstallments()
	if err := plan.SettleOverdue(payment.Amount, now); err != nil {
		return plan, err
	}

	for _, inst := range late {
		if err := s.planRepo.UpdateInstallment(ctx, inst); err != nil {
			return plan, customError.WrapDatabaseError(err)
		}
	}

	if plan.AllPaid() {
		if err := plan.Complete(); err != nil {
			return plan, err
		}
	}

	if err := s.planRepo.UpdateStatus(ctx, plan.ID, plan.Status); err != nil {
		return plan, customError.WrapDatabaseError(err)
	}
	if err := s.planRepo.CloseLockEntries(ctx, plan.ID, now); err != nil {
		return plan, customError.WrapDatabaseError(err)
	}
	if err := s.enrollmentRepo.SetAccessStatus(ctx, payment.LearnerID, payment.CourseID, domain.AccessStatusActive); err != nil {
		return plan, customError.WrapDatabaseError(err)
	}

	s.logger.Info("overdue settlement applied",
		zap.String("plan_id", plan.ID.String()),
		zap.Int("installments_cleared", len(late)),
		zap.String("plan_status", plan.Status),
	)

	s.notifier.Send(ctx, payment.LearnerID, notification.KindUnlock, notification.Data{
		"course_name":          payment.CourseName,
		"installments_cleared": len(late),
	})
	return plan, nil
}
