package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/mocks"
	customError "github.com/coursepay/emi-engine/pkg/errors"
	"github.com/coursepay/emi-engine/pkg/money"
)

func newTestBuilder() (*ScheduleBuilder, *mocks.MockPlanRepository, *mocks.MockEnrollmentRepository, *mocks.MockCourseRepository) {
	planRepo := new(mocks.MockPlanRepository)
	enrollmentRepo := new(mocks.MockEnrollmentRepository)
	courseRepo := new(mocks.MockCourseRepository)
	builder := NewScheduleBuilder(planRepo, enrollmentRepo, courseRepo, testConfig(), testLogger())
	return builder, planRepo, enrollmentRepo, courseRepo
}

func TestScheduleBuilder_Build_TwelveMonthPlan(t *testing.T) {
	builder, planRepo, enrollmentRepo, courseRepo := newTestBuilder()
	course := testCourse(12)
	now := time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)

	var created *domain.InstallmentPlan
	planRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InstallmentPlan")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.InstallmentPlan)
		}).Return(nil)
	enrollmentRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.Enrollment) bool {
		return e.LearnerID == "learner-1" && e.CourseID == course.ID && e.PlanID != nil
	})).Return(nil)
	courseRepo.On("IncrementEnrollment", mock.Anything, course.ID).Return(nil)

	plan, err := builder.Build(context.Background(), "learner-1", course, 15, now)

	assert.NoError(t, err)
	assert.NotNil(t, plan)
	assert.Equal(t, created, plan)
	assert.Len(t, plan.Installments, 12)
	assert.Equal(t, money.Amount(2400000), plan.TotalAmount)

	first := plan.Installments[0]
	assert.Equal(t, domain.InstallmentStatusPaid, first.Status)
	assert.NotNil(t, first.PaymentDate)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), first.DueDate)

	second := plan.Installments[1]
	assert.Equal(t, domain.InstallmentStatusPending, second.Status)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), second.DueDate)
	assert.Equal(t, second.DueDate.AddDate(0, 0, 3), second.GracePeriodEnd)

	last := plan.Installments[11]
	assert.Equal(t, 12, last.Month)
	assert.Equal(t, time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC), last.DueDate)

	planRepo.AssertExpectations(t)
	enrollmentRepo.AssertExpectations(t)
	courseRepo.AssertExpectations(t)
}

func TestScheduleBuilder_Build_ClampsDueDayToShortMonths(t *testing.T) {
	builder, planRepo, enrollmentRepo, courseRepo := newTestBuilder()
	course := testCourse(6)
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	planRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	enrollmentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	courseRepo.On("IncrementEnrollment", mock.Anything, course.ID).Return(nil)

	plan, err := builder.Build(context.Background(), "learner-1", course, 31, now)

	assert.NoError(t, err)
	// February 2026 has 28 days; April and June have 30.
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), plan.Installments[1].DueDate)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), plan.Installments[2].DueDate)
	assert.Equal(t, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), plan.Installments[3].DueDate)
	assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), plan.Installments[5].DueDate)
}

func TestScheduleBuilder_Build_IneligibleDuration(t *testing.T) {
	builder, _, _, _ := newTestBuilder()
	course := testCourse(12)
	course.Duration = "3 months"

	plan, err := builder.Build(context.Background(), "learner-1", course, 15, time.Now())

	assert.Nil(t, plan)
	var bizErr *customError.BusinessError
	assert.ErrorAs(t, err, &bizErr)
	assert.Equal(t, customError.ErrCodeIneligibleDuration, bizErr.Code)
}

func TestScheduleBuilder_Build_PriceScheduleMismatch(t *testing.T) {
	builder, _, _, _ := newTestBuilder()
	course := testCourse(12)
	course.FinalPrice = money.Amount(2000000) // does not equal 12 x 200000

	plan, err := builder.Build(context.Background(), "learner-1", course, 15, time.Now())

	assert.Nil(t, plan)
	var bizErr *customError.BusinessError
	assert.ErrorAs(t, err, &bizErr)
	assert.Equal(t, customError.ErrCodeInvalidAmount, bizErr.Code)
}

func TestScheduleBuilder_Build_EnrollmentFailureReturnsPlan(t *testing.T) {
	builder, planRepo, enrollmentRepo, _ := newTestBuilder()
	course := testCourse(6)

	planRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	enrollmentRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	plan, err := builder.Build(context.Background(), "learner-1", course, 10, time.Now())

	// The plan row committed; the caller needs it to classify the failure.
	assert.Error(t, err)
	assert.NotNil(t, plan)
}
