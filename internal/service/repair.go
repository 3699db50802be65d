package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/config"
	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/notification"
	"github.com/coursepay/emi-engine/internal/repository"
	customError "github.com/coursepay/emi-engine/pkg/errors"
)

const repairLease = "repair"

// RepairSweep re-derives state dropped by partial reconciliation failures.
// A payment that completed but whose side effects failed leaves one of four
// gaps: an emi payment with no plan, a full payment with no enrollment, a
// plan with no enrollment link, or a settlement whose plan stayed locked.
// Each scan closes one gap class; all repairs are idempotent, so rerunning
// after a partial repair is safe.
type RepairSweep struct {
	PaymentRepo    repository.PaymentRepository
	PlanRepo       repository.PlanRepository
	EnrollmentRepo repository.EnrollmentRepository
	CourseRepo     repository.CourseRepository
	Builder        *ScheduleBuilder
	locker         SweepLocker
	settler        *settlementApplier
	config         *config.Config
	logger         *zap.Logger
}

func NewRepairSweep(
	paymentRepo repository.PaymentRepository,
	planRepo repository.PlanRepository,
	enrollmentRepo repository.EnrollmentRepository,
	courseRepo repository.CourseRepository,
	builder *ScheduleBuilder,
	locker SweepLocker,
	notifier notification.Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *RepairSweep {
	return &RepairSweep{
		PaymentRepo:    paymentRepo,
		PlanRepo:       planRepo,
		EnrollmentRepo: enrollmentRepo,
		CourseRepo:     courseRepo,
		Builder:        builder,
		locker:         locker,
		settler: &settlementApplier{
			planRepo:       planRepo,
			enrollmentRepo: enrollmentRepo,
			notifier:       notifier,
			logger:         logger,
		},
		config: cfg,
		logger: logger,
	}
}

// Run executes one repair sweep.
func (s *RepairSweep) Run(ctx context.Context) error {
	acquired, err := s.locker.Acquire(ctx, repairLease, s.config.GetLeaseTTL())
	if err != nil {
		return customError.WrapCacheError(err)
	}
	if !acquired {
		s.logger.Info("repair sweep skipped, lease held elsewhere")
		return customError.ErrSweepAlreadyRunning
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), repairLease); err != nil {
			s.logger.Warn("releasing repair sweep lease", zap.Error(err))
		}
	}()

	now := time.Now()

	return errors.Join(
		s.repairMissingPlans(ctx, now),
		s.repairMissingEnrollments(ctx, now),
		s.repairUnlinkedPlans(ctx, now),
		s.repairUnappliedSettlements(ctx),
	)
}

// repairMissingPlans rebuilds the installment schedule for completed emi
// payments that never got one. Build also creates the enrollment link and
// bumps the counter, so a single repair closes the whole gap.
func (s *RepairSweep) repairMissingPlans(ctx context.Context, now time.Time) error {
	payments, err := s.PaymentRepo.FindCompletedEMIWithoutPlan(ctx)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	var repairErrs []error
	for _, payment := range payments {
		course, err := s.CourseRepo.GetByID(ctx, payment.CourseID)
		if err != nil {
			repairErrs = append(repairErrs, fmt.Errorf("payment %s: %w", payment.ID, err))
			continue
		}

		// The plan anchors on the payment date, not the repair date: the
		// learner's schedule must not drift because reconciliation broke.
		if _, err := s.Builder.Build(ctx, payment.LearnerID, course, payment.EMIDueDay, payment.UpdatedAt); err != nil {
			repairErrs = append(repairErrs, fmt.Errorf("payment %s: %w", payment.ID, err))
			continue
		}

		s.logger.Info("repaired missing plan",
			zap.String("payment_id", payment.ID.String()),
			zap.String("learner_id", payment.LearnerID),
			zap.String("course_id", payment.CourseID),
		)
	}
	return errors.Join(repairErrs...)
}

// repairMissingEnrollments creates the enrollment for completed full payments
// that never got one.
func (s *RepairSweep) repairMissingEnrollments(ctx context.Context, now time.Time) error {
	payments, err := s.PaymentRepo.FindCompletedFullWithoutEnrollment(ctx)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	var repairErrs []error
	for _, payment := range payments {
		enrollment := &domain.Enrollment{
			ID:           uuid.New(),
			LearnerID:    payment.LearnerID,
			CourseID:     payment.CourseID,
			CourseName:   payment.CourseName,
			AccessStatus: domain.AccessStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.EnrollmentRepo.Create(ctx, enrollment); err != nil {
			if !repository.IsDuplicate(err) {
				repairErrs = append(repairErrs, fmt.Errorf("payment %s: %w", payment.ID, err))
				continue
			}
		} else if err := s.CourseRepo.IncrementEnrollment(ctx, payment.CourseID); err != nil {
			repairErrs = append(repairErrs, fmt.Errorf("payment %s: %w", payment.ID, err))
			continue
		}

		s.logger.Info("repaired missing enrollment",
			zap.String("payment_id", payment.ID.String()),
			zap.String("learner_id", payment.LearnerID),
			zap.String("course_id", payment.CourseID),
		)
	}
	return errors.Join(repairErrs...)
}

// repairUnlinkedPlans creates the enrollment link for plans whose enrollment
// insert failed after the plan row committed. The access status follows the
// plan: a plan the overdue sweep locked in the meantime enrolls locked.
func (s *RepairSweep) repairUnlinkedPlans(ctx context.Context, now time.Time) error {
	plans, err := s.PlanRepo.FindPlansWithoutEnrollment(ctx)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	var repairErrs []error
	for _, plan := range plans {
		access := domain.AccessStatusActive
		if plan.Status == domain.PlanStatusLocked {
			access = domain.AccessStatusLocked
		}

		planID := plan.ID
		enrollment := &domain.Enrollment{
			ID:           uuid.New(),
			LearnerID:    plan.LearnerID,
			CourseID:     plan.CourseID,
			CourseName:   plan.CourseName,
			PlanID:       &planID,
			AccessStatus: access,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.EnrollmentRepo.Create(ctx, enrollment); err != nil {
			if !repository.IsDuplicate(err) {
				repairErrs = append(repairErrs, fmt.Errorf("plan %s: %w", plan.ID, err))
				continue
			}
		} else if err := s.CourseRepo.IncrementEnrollment(ctx, plan.CourseID); err != nil {
			repairErrs = append(repairErrs, fmt.Errorf("plan %s: %w", plan.ID, err))
			continue
		}

		s.logger.Info("repaired unlinked plan",
			zap.String("plan_id", plan.ID.String()),
			zap.String("learner_id", plan.LearnerID),
			zap.String("course_id", plan.CourseID),
		)
	}
	return errors.Join(repairErrs...)
}

// repairUnappliedSettlements re-drives settlements whose payment completed
// but whose plan stayed locked. Settlement clears the installments at the
// payment date, not the repair date, so rebuilt records match what a clean
// reconciliation would have written. The plan transition re-validates the
// amount, so a settlement stale against a newer lock cycle surfaces as a
// mismatch instead of clearing installments it did not cover.
func (s *RepairSweep) repairUnappliedSettlements(ctx context.Context) error {
	payments, err := s.PaymentRepo.FindCompletedSettlementsForLockedPlans(ctx)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	var repairErrs []error
	for _, payment := range payments {
		if _, err := s.settler.apply(ctx, payment, payment.UpdatedAt); err != nil {
			repairErrs = append(repairErrs, fmt.Errorf("payment %s: %w", payment.ID, err))
			continue
		}

		s.logger.Info("repaired unapplied settlement",
			zap.String("payment_id", payment.ID.String()),
			zap.String("learner_id", payment.LearnerID),
			zap.String("course_id", payment.CourseID),
		)
	}
	return errors.Join(repairErrs...)
}
