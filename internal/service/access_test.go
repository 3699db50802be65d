package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/mocks"
)

func newAccessGate() (*AccessGate, *mocks.MockPaymentRepository, *mocks.MockEnrollmentRepository, *mocks.MockPlanRepository) {
	paymentRepo := new(mocks.MockPaymentRepository)
	enrollmentRepo := new(mocks.MockEnrollmentRepository)
	planRepo := new(mocks.MockPlanRepository)
	gate := NewAccessGate(paymentRepo, enrollmentRepo, planRepo)
	return gate, paymentRepo, enrollmentRepo, planRepo
}

func enrollmentWithPlan(planID uuid.UUID, access string) *domain.Enrollment {
	return &domain.Enrollment{
		ID:           uuid.New(),
		LearnerID:    "learner-1",
		CourseID:     "course-101",
		PlanID:       &planID,
		AccessStatus: access,
	}
}

func TestAccessGate_FullPaymentGrants(t *testing.T) {
	gate, paymentRepo, _, _ := newAccessGate()

	paymentRepo.On("FindCompletedFullPayment", mock.Anything, "learner-1", "course-101").
		Return(&domain.Payment{Kind: domain.PaymentKindFull, Status: domain.PaymentStatusCompleted}, nil)

	resp, err := gate.Check(context.Background(), "learner-1", "course-101")

	assert.NoError(t, err)
	assert.True(t, resp.Granted)
	assert.Equal(t, domain.AccessReasonFullPayment, resp.Reason)
}

func TestAccessGate_ActivePlanGrants(t *testing.T) {
	gate, paymentRepo, enrollmentRepo, planRepo := newAccessGate()
	plan := testActivePlan(12, 3, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))

	paymentRepo.On("FindCompletedFullPayment", mock.Anything, "learner-1", "course-101").
		Return(nil, sql.ErrNoRows)
	enrollmentRepo.On("GetByLearnerAndCourse", mock.Anything, "learner-1", "course-101").
		Return(enrollmentWithPlan(plan.ID, domain.AccessStatusActive), nil)
	planRepo.On("GetByID", mock.Anything, plan.ID).Return(plan, nil)

	resp, err := gate.Check(context.Background(), "learner-1", "course-101")

	assert.NoError(t, err)
	assert.True(t, resp.Granted)
	assert.Equal(t, domain.AccessReasonEMIActive, resp.Reason)
}

func TestAccessGate_CompletedPlanStillGrants(t *testing.T) {
	gate, paymentRepo, enrollmentRepo, planRepo := newAccessGate()
	plan := testActivePlan(6, 6, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	plan.Status = domain.PlanStatusCompleted

	paymentRepo.On("FindCompletedFullPayment", mock.Anything, "learner-1", "course-101").
		Return(nil, sql.ErrNoRows)
	enrollmentRepo.On("GetByLearnerAndCourse", mock.Anything, "learner-1", "course-101").
		Return(enrollmentWithPlan(plan.ID, domain.AccessStatusActive), nil)
	planRepo.On("GetByID", mock.Anything, plan.ID).Return(plan, nil)

	resp, err := gate.Check(context.Background(), "learner-1", "course-101")

	assert.NoError(t, err)
	assert.True(t, resp.Granted)
}

func TestAccessGate_LockedPlanDenies(t *testing.T) {
	gate, paymentRepo, enrollmentRepo, planRepo := newAccessGate()
	plan := testActivePlan(12, 3, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	plan.Status = domain.PlanStatusLocked

	paymentRepo.On("FindCompletedFullPayment", mock.Anything, "learner-1", "course-101").
		Return(nil, sql.ErrNoRows)
	enrollmentRepo.On("GetByLearnerAndCourse", mock.Anything, "learner-1", "course-101").
		Return(enrollmentWithPlan(plan.ID, domain.AccessStatusLocked), nil)
	planRepo.On("GetByID", mock.Anything, plan.ID).Return(plan, nil)

	resp, err := gate.Check(context.Background(), "learner-1", "course-101")

	assert.NoError(t, err)
	assert.False(t, resp.Granted)
	assert.Equal(t, domain.AccessReasonPaymentRequired, resp.Reason)
}

func TestAccessGate_NoEnrollmentDenies(t *testing.T) {
	gate, paymentRepo, enrollmentRepo, _ := newAccessGate()

	paymentRepo.On("FindCompletedFullPayment", mock.Anything, "learner-1", "course-101").
		Return(nil, sql.ErrNoRows)
	enrollmentRepo.On("GetByLearnerAndCourse", mock.Anything, "learner-1", "course-101").
		Return(nil, sql.ErrNoRows)

	resp, err := gate.Check(context.Background(), "learner-1", "course-101")

	assert.NoError(t, err)
	assert.False(t, resp.Granted)
	assert.Equal(t, domain.AccessReasonPaymentRequired, resp.Reason)
}

func TestAccessGate_EnrollmentWithoutPlanDenies(t *testing.T) {
	gate, paymentRepo, enrollmentRepo, planRepo := newAccessGate()

	paymentRepo.On("FindCompletedFullPayment", mock.Anything, "learner-1", "course-101").
		Return(nil, sql.ErrNoRows)
	enrollmentRepo.On("GetByLearnerAndCourse", mock.Anything, "learner-1", "course-101").
		Return(&domain.Enrollment{LearnerID: "learner-1", CourseID: "course-101"}, nil)

	resp, err := gate.Check(context.Background(), "learner-1", "course-101")

	assert.NoError(t, err)
	assert.False(t, resp.Granted)
	planRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
