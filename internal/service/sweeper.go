package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/config"
	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/notification"
	"github.com/coursepay/emi-engine/internal/repository"
	customError "github.com/coursepay/emi-engine/pkg/errors"
)

const (
	overdueLease  = "overdue"
	reminderLease = "reminder"
)

// OverdueSweeper scans active plans for installments past their grace period,
// reclassifies them as late and locks the plan and course access. Each plan is
// processed independently; one plan's failure never aborts the sweep.
type OverdueSweeper struct {
	PlanRepo       repository.PlanRepository
	EnrollmentRepo repository.EnrollmentRepository
	locker         SweepLocker
	notifier       notification.Notifier
	config         *config.Config
	logger         *zap.Logger
}

func NewOverdueSweeper(
	planRepo repository.PlanRepository,
	enrollmentRepo repository.EnrollmentRepository,
	locker SweepLocker,
	notifier notification.Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *OverdueSweeper {
	return &OverdueSweeper{
		PlanRepo:       planRepo,
		EnrollmentRepo: enrollmentRepo,
		locker:         locker,
		notifier:       notifier,
		config:         cfg,
		logger:         logger,
	}
}

// Run executes one overdue sweep. An invocation that finds another sweep
// holding the lease skips entirely; it does not queue.
func (s *OverdueSweeper) Run(ctx context.Context) error {
	acquired, err := s.locker.Acquire(ctx, overdueLease, s.config.GetLeaseTTL())
	if err != nil {
		return customError.WrapCacheError(err)
	}
	if !acquired {
		s.logger.Info("overdue sweep skipped, lease held elsewhere")
		return customError.ErrSweepAlreadyRunning
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), overdueLease); err != nil {
			s.logger.Warn("releasing overdue sweep lease", zap.Error(err))
		}
	}()

	now := time.Now()
	cutoff := now.AddDate(0, 0, -s.config.Business.GracePeriodDays)

	plans, err := s.PlanRepo.FindActiveWithPendingDueBefore(ctx, cutoff)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.logger.Info("overdue sweep started", zap.Int("plans", len(plans)))

	var sweepErrs []error
	locked := 0
	for _, plan := range plans {
		if err := s.processPlan(ctx, plan, now); err != nil {
			sweepErrs = append(sweepErrs, fmt.Errorf("plan %s: %w", plan.ID, err))
			s.logger.Error("overdue sweep plan failed",
				zap.String("plan_id", plan.ID.String()),
				zap.Error(err),
			)
			continue
		}
		locked++
	}

	s.logger.Info("overdue sweep finished",
		zap.Int("locked", locked),
		zap.Int("failed", len(sweepErrs)),
	)

	return errors.Join(sweepErrs...)
}

func (s *OverdueSweeper) processPlan(ctx context.Context, plan *domain.InstallmentPlan, now time.Time) error {
	overdue := plan.OverdueInstallments(now)
	if len(overdue) == 0 || plan.Status != domain.PlanStatusActive {
		// Nothing to do; a retried sweep lands here for plans it already
		// locked.
		return nil
	}

	for _, inst := range overdue {
		if err := inst.MarkLate(); err != nil {
			return err
		}
		if err := s.PlanRepo.UpdateInstallment(ctx, inst); err != nil {
			return err
		}
	}

	if err := plan.Lock(now, len(overdue)); err != nil {
		return err
	}

	if err := s.PlanRepo.UpdateStatus(ctx, plan.ID, plan.Status); err != nil {
		return err
	}

	if err := s.PlanRepo.AppendLockEntry(ctx, plan.OpenLockEntry()); err != nil {
		return err
	}

	if err := s.EnrollmentRepo.SetAccessStatus(ctx, plan.LearnerID, plan.CourseID, domain.AccessStatusLocked); err != nil {
		return err
	}

	s.notifier.Send(ctx, plan.LearnerID, notification.KindLate, notification.Data{
		"course_name": plan.CourseName,
		"due_date":    overdue[0].DueDate,
	})
	s.notifier.Send(ctx, plan.LearnerID, notification.KindLock, notification.Data{
		"course_id":      plan.CourseID,
		"course_name":    plan.CourseName,
		"overdue_months": len(overdue),
	})

	return nil
}

// ReminderSweeper finds installments coming due inside the reminder window
// and dispatches one reminder per installment. It keeps no memory of previous
// sends; a rerun inside the same window re-sends.
type ReminderSweeper struct {
	PlanRepo repository.PlanRepository
	locker   SweepLocker
	notifier notification.Notifier
	config   *config.Config
	logger   *zap.Logger
}

func NewReminderSweeper(
	planRepo repository.PlanRepository,
	locker SweepLocker,
	notifier notification.Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *ReminderSweeper {
	return &ReminderSweeper{
		PlanRepo: planRepo,
		locker:   locker,
		notifier: notifier,
		config:   cfg,
		logger:   logger,
	}
}

// Run executes one reminder sweep.
func (s *ReminderSweeper) Run(ctx context.Context) error {
	acquired, err := s.locker.Acquire(ctx, reminderLease, s.config.GetLeaseTTL())
	if err != nil {
		return customError.WrapCacheError(err)
	}
	if !acquired {
		s.logger.Info("reminder sweep skipped, lease held elsewhere")
		return customError.ErrSweepAlreadyRunning
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), reminderLease); err != nil {
			s.logger.Warn("releasing reminder sweep lease", zap.Error(err))
		}
	}()

	now := time.Now()
	until := now.AddDate(0, 0, s.config.Business.ReminderWindowDays)

	plans, err := s.PlanRepo.FindActiveWithPendingDueBetween(ctx, now, until)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	sent := 0
	for _, plan := range plans {
		for _, inst := range plan.UpcomingInstallments(now, until) {
			s.notifier.Send(ctx, plan.LearnerID, notification.KindReminder, notification.Data{
				"course_name": plan.CourseName,
				"month":       inst.Month,
				"due_date":    inst.DueDate,
				"amount":      inst.Amount.Format(s.config.Business.Currency),
			})
			sent++
		}
	}

	s.logger.Info("reminder sweep finished",
		zap.Int("plans", len(plans)),
		zap.Int("reminders", sent),
	)

	return nil
}
