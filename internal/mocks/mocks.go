// Package mocks provides testify mocks for the engine's interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/gateway"
	"github.com/coursepay/emi-engine/internal/notification"
)

// MockPaymentRepository mocks repository.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Complete(ctx context.Context, id uuid.UUID, gatewayPayID, signature string) (bool, error) {
	args := m.Called(ctx, id, gatewayPayID, signature)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) Fail(ctx context.Context, orderID, errorCode, errorDesc string) error {
	args := m.Called(ctx, orderID, errorCode, errorDesc)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindCompletedFullPayment(ctx context.Context, learnerID, courseID string) (*domain.Payment, error) {
	args := m.Called(ctx, learnerID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByLearner(ctx context.Context, learnerID, status string, page, limit int) ([]*domain.Payment, int, error) {
	args := m.Called(ctx, learnerID, status, page, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Payment), args.Int(1), args.Error(2)
}

func (m *MockPaymentRepository) FindCompletedEMIWithoutPlan(ctx context.Context) ([]*domain.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindCompletedFullWithoutEnrollment(ctx context.Context) ([]*domain.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindCompletedSettlementsForLockedPlans(ctx context.Context) ([]*domain.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

// MockPlanRepository mocks repository.PlanRepository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, plan *domain.InstallmentPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) GetByLearnerAndCourse(ctx context.Context, learnerID, courseID string) (*domain.InstallmentPlan, error) {
	args := m.Called(ctx, learnerID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) FindActiveWithPendingDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.InstallmentPlan, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) FindActiveWithPendingDueBetween(ctx context.Context, from, to time.Time) ([]*domain.InstallmentPlan, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) FindPlansWithoutEnrollment(ctx context.Context) ([]*domain.InstallmentPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) UpdateStatus(ctx context.Context, planID uuid.UUID, status string) error {
	args := m.Called(ctx, planID, status)
	return args.Error(0)
}

func (m *MockPlanRepository) UpdateInstallment(ctx context.Context, installment *domain.Installment) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

func (m *MockPlanRepository) AppendLockEntry(ctx context.Context, entry *domain.LockEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockPlanRepository) CloseLockEntries(ctx context.Context, planID uuid.UUID, unlockDate time.Time) error {
	args := m.Called(ctx, planID, unlockDate)
	return args.Error(0)
}

// MockEnrollmentRepository mocks repository.EnrollmentRepository
type MockEnrollmentRepository struct {
	mock.Mock
}

func (m *MockEnrollmentRepository) Create(ctx context.Context, enrollment *domain.Enrollment) error {
	args := m.Called(ctx, enrollment)
	return args.Error(0)
}

func (m *MockEnrollmentRepository) GetByLearnerAndCourse(ctx context.Context, learnerID, courseID string) (*domain.Enrollment, error) {
	args := m.Called(ctx, learnerID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepository) Exists(ctx context.Context, learnerID, courseID string) (bool, error) {
	args := m.Called(ctx, learnerID, courseID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepository) SetAccessStatus(ctx context.Context, learnerID, courseID, status string) error {
	args := m.Called(ctx, learnerID, courseID, status)
	return args.Error(0)
}

// MockCourseRepository mocks repository.CourseRepository
type MockCourseRepository struct {
	mock.Mock
}

func (m *MockCourseRepository) GetByID(ctx context.Context, courseID string) (*domain.CourseInfo, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CourseInfo), args.Error(1)
}

func (m *MockCourseRepository) IncrementEnrollment(ctx context.Context, courseID string) error {
	args := m.Called(ctx, courseID)
	return args.Error(0)
}

// MockGatewayClient mocks gateway.Client
type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
	args := m.Called(ctx, amount, currency, receipt, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *MockGatewayClient) FetchPayment(ctx context.Context, paymentID string) (*gateway.PaymentInfo, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentInfo), args.Error(1)
}

func (m *MockGatewayClient) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

func (m *MockGatewayClient) VerifyWebhookSignature(body []byte, signature string) bool {
	args := m.Called(body, signature)
	return args.Bool(0)
}

// MockNotifier mocks notification.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, learnerID, kind string, data notification.Data) {
	m.Called(ctx, learnerID, kind, data)
}

// MockSweepLocker mocks service.SweepLocker
type MockSweepLocker struct {
	mock.Mock
}

func (m *MockSweepLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, name, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSweepLocker) Release(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
