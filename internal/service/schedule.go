package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/config"
	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/repository"
	"github.com/coursepay/emi-engine/pkg/dates"
	customError "github.com/coursepay/emi-engine/pkg/errors"
	"github.com/coursepay/emi-engine/pkg/money"
)

// ScheduleBuilder materializes an installment plan once the first installment
// payment completes, links it into the learner's enrollment and bumps the
// course counter.
type ScheduleBuilder struct {
	PlanRepo       repository.PlanRepository
	EnrollmentRepo repository.EnrollmentRepository
	CourseRepo     repository.CourseRepository
	config         *config.Config
	logger         *zap.Logger
}

func NewScheduleBuilder(
	planRepo repository.PlanRepository,
	enrollmentRepo repository.EnrollmentRepository,
	courseRepo repository.CourseRepository,
	cfg *config.Config,
	logger *zap.Logger,
) *ScheduleBuilder {
	return &ScheduleBuilder{
		PlanRepo:       planRepo,
		EnrollmentRepo: enrollmentRepo,
		CourseRepo:     courseRepo,
		config:         cfg,
		logger:         logger,
	}
}

// Build generates the schedule for a learner enrolling in a course via EMI.
// Installment 1 is synthesized as already paid at now: it represents the
// payment that funded the enrollment. Months 2..N get due dates on the
// learner's chosen day, clamped to short months, with a grace period past
// each due date.
func (b *ScheduleBuilder) Build(ctx context.Context, learnerID string, course *domain.CourseInfo, dueDay int, now time.Time) (*domain.InstallmentPlan, error) {
	monthly := money.Amount(b.config.Business.MonthlyAmount)

	details := domain.GetEMIDetails(course.Duration, monthly)
	if !details.Eligible || details.Months <= 0 {
		return nil, customError.WrapIneligibleDuration(course.Duration)
	}

	if course.FinalPrice != details.TotalAmount {
		return nil, customError.WrapInvalidAmount(details.TotalAmount.String(), course.FinalPrice.String())
	}

	startDate := dates.TruncateToDay(now)
	graceDays := b.config.Business.GracePeriodDays

	plan := &domain.InstallmentPlan{
		ID:             uuid.New(),
		LearnerID:      learnerID,
		CourseID:       course.ID,
		MotherCourseID: course.MotherCourseID,
		CourseName:     course.Name,
		TotalAmount:    details.TotalAmount,
		MonthlyAmount:  details.MonthlyAmount,
		Months:         details.Months,
		DueDay:         dueDay,
		StartDate:      startDate,
		Status:         domain.PlanStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	firstPaid := startDate
	plan.Installments = append(plan.Installments, &domain.Installment{
		ID:             uuid.New(),
		PlanID:         plan.ID,
		Month:          1,
		DueDate:        startDate,
		Amount:         details.MonthlyAmount,
		Status:         domain.InstallmentStatusPaid,
		PaymentDate:    &firstPaid,
		GracePeriodEnd: startDate.AddDate(0, 0, graceDays),
	})

	var scheduled money.Amount = details.MonthlyAmount
	for month := 2; month <= details.Months; month++ {
		dueDate := dates.NextDueDate(startDate, dueDay, month-1)

		plan.Installments = append(plan.Installments, &domain.Installment{
			ID:             uuid.New(),
			PlanID:         plan.ID,
			Month:          month,
			DueDate:        dueDate,
			Amount:         details.MonthlyAmount,
			Status:         domain.InstallmentStatusPending,
			GracePeriodEnd: dueDate.AddDate(0, 0, graceDays),
		})
		scheduled += details.MonthlyAmount
	}

	// Invariant: the schedule must account for the full course price.
	if scheduled != details.TotalAmount {
		return nil, customError.WrapInvalidAmount(details.TotalAmount.String(), scheduled.String())
	}

	if err := b.PlanRepo.Create(ctx, plan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// The plan row is committed at this point. A failure below leaves a plan
	// without an enrollment link, which the repair sweep re-derives; callers
	// must treat it as the fatal partial class, not swallow it.
	planID := plan.ID
	enrollment := &domain.Enrollment{
		ID:           uuid.New(),
		LearnerID:    learnerID,
		CourseID:     course.ID,
		CourseName:   course.Name,
		PlanID:       &planID,
		AccessStatus: domain.AccessStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := b.EnrollmentRepo.Create(ctx, enrollment); err != nil {
		if repository.IsDuplicate(err) {
			// Repair re-runs land here when the link already exists.
			b.logger.Warn("enrollment already linked",
				zap.String("learner_id", learnerID),
				zap.String("course_id", course.ID),
			)
		} else {
			return plan, customError.WrapDatabaseError(err)
		}
	}

	if err := b.CourseRepo.IncrementEnrollment(ctx, course.ID); err != nil {
		return plan, customError.WrapDatabaseError(err)
	}

	b.logger.Info("installment plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("learner_id", learnerID),
		zap.String("course_id", course.ID),
		zap.Int("months", details.Months),
		zap.Int("due_day", dueDay),
	)

	return plan, nil
}
