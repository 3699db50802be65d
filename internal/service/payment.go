package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/config"
	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/gateway"
	"github.com/coursepay/emi-engine/internal/repository"
	"github.com/coursepay/emi-engine/pkg/dates"
	customError "github.com/coursepay/emi-engine/pkg/errors"
	"github.com/coursepay/emi-engine/pkg/money"
)

// PaymentService creates payment intents and serves payment reads. The
// pending Payment rows it creates are completed only by the Reconciler.
type PaymentService struct {
	PaymentRepo    repository.PaymentRepository
	PlanRepo       repository.PlanRepository
	EnrollmentRepo repository.EnrollmentRepository
	CourseRepo     repository.CourseRepository
	gateway        gateway.Client
	config         *config.Config
	logger         *zap.Logger
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	planRepo repository.PlanRepository,
	enrollmentRepo repository.EnrollmentRepository,
	courseRepo repository.CourseRepository,
	gatewayClient gateway.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		PaymentRepo:    paymentRepo,
		PlanRepo:       planRepo,
		EnrollmentRepo: enrollmentRepo,
		CourseRepo:     courseRepo,
		gateway:        gatewayClient,
		config:         cfg,
		logger:         logger,
	}
}

// CreateIntent validates an enrollment payment request, registers a gateway
// order and records a pending Payment. No enrollment state changes here; that
// happens only after the gateway confirms.
func (s *PaymentService) CreateIntent(ctx context.Context, req *domain.CreatePaymentRequest, now time.Time) (*domain.CreatePaymentResponse, error) {
	if req.Kind == domain.PaymentKindEMI && (req.EMIDueDay < 1 || req.EMIDueDay > 31) {
		return nil, customError.WrapInvalidDueDay(req.EMIDueDay)
	}

	enrolled, err := s.EnrollmentRepo.Exists(ctx, req.LearnerID, req.CourseID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if enrolled {
		return nil, customError.WrapAlreadyEnrolled(req.LearnerID, req.CourseID)
	}

	course, err := s.CourseRepo.GetByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCourseNotFound(req.CourseID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	amount := money.Amount(req.Amount)
	monthly := money.Amount(s.config.Business.MonthlyAmount)

	var expected money.Amount
	var preview *domain.EMIPreview

	if req.Kind == domain.PaymentKindEMI {
		details := domain.GetEMIDetails(course.Duration, monthly)
		if !details.Eligible {
			return nil, customError.WrapIneligibleDuration(course.Duration)
		}
		if course.FinalPrice != details.TotalAmount {
			return nil, customError.WrapInvalidAmount(details.TotalAmount.String(), course.FinalPrice.String())
		}

		expected = details.MonthlyAmount
		preview = &domain.EMIPreview{
			MonthlyAmount: details.MonthlyAmount.Int64(),
			TotalMonths:   details.Months,
			NextDueDate:   dates.NextDueDate(now, req.EMIDueDay, 1),
		}
	} else {
		expected = course.FinalPrice
	}

	if amount != expected {
		return nil, customError.WrapInvalidAmount(expected.String(), amount.String())
	}

	receipt := fmt.Sprintf("receipt_%d_%s", now.Unix(), uuid.NewString()[:8])

	order, err := s.gateway.CreateOrder(ctx, amount.Int64(), s.config.Business.Currency, receipt, map[string]string{
		"learner_id":  req.LearnerID,
		"course_id":   req.CourseID,
		"course_name": course.Name,
	})
	if err != nil {
		return nil, customError.WrapGatewayError(err)
	}

	payment := &domain.Payment{
		ID:             uuid.New(),
		LearnerID:      req.LearnerID,
		CourseID:       req.CourseID,
		MotherCourseID: course.MotherCourseID,
		CourseName:     course.Name,
		Kind:           req.Kind,
		Amount:         amount,
		Currency:       s.config.Business.Currency,
		ReceiptID:      receipt,
		GatewayOrderID: order.ID,
		Status:         domain.PaymentStatusPending,
		EMIDueDay:      req.EMIDueDay,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.Info("payment intent created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", order.ID),
		zap.String("kind", req.Kind),
		zap.Int64("amount", amount.Int64()),
	)

	return &domain.CreatePaymentResponse{
		PaymentID:      payment.ID,
		GatewayOrderID: order.ID,
		Amount:         amount.Int64(),
		Currency:       payment.Currency,
		EMIDetails:     preview,
	}, nil
}

// CreateSettlementIntent validates an overdue-settlement request against the
// locked plan and registers the gateway order for it. The settlement amount
// must cover every late installment exactly; partial settlement is rejected.
func (s *PaymentService) CreateSettlementIntent(ctx context.Context, req *domain.SettleOverdueRequest, now time.Time) (*domain.CreatePaymentResponse, error) {
	plan, err := s.PlanRepo.GetByLearnerAndCourse(ctx, req.LearnerID, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapPlanNotFound(req.LearnerID, req.CourseID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if plan.Status != domain.PlanStatusLocked {
		return nil, customError.WrapPlanNotLocked(plan.ID.String())
	}

	late := plan.LateInstallments()
	expected := plan.MonthlyAmount.Mul(len(late))
	amount := money.Amount(req.Amount)
	if amount != expected {
		return nil, customError.WrapAmountMismatch(expected.String(), amount.String())
	}

	receipt := fmt.Sprintf("emi_overdue_%d_%s", now.Unix(), uuid.NewString()[:8])

	order, err := s.gateway.CreateOrder(ctx, amount.Int64(), s.config.Business.Currency, receipt, map[string]string{
		"learner_id": req.LearnerID,
		"course_id":  req.CourseID,
		"plan_id":    plan.ID.String(),
	})
	if err != nil {
		return nil, customError.WrapGatewayError(err)
	}

	payment := &domain.Payment{
		ID:             uuid.New(),
		LearnerID:      req.LearnerID,
		CourseID:       req.CourseID,
		MotherCourseID: plan.MotherCourseID,
		CourseName:     plan.CourseName,
		Kind:           domain.PaymentKindEMIOverdue,
		Amount:         amount,
		Currency:       s.config.Business.Currency,
		ReceiptID:      receipt,
		GatewayOrderID: order.ID,
		Status:         domain.PaymentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.Info("settlement intent created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.Int("late_installments", len(late)),
		zap.Int64("amount", amount.Int64()),
	)

	return &domain.CreatePaymentResponse{
		PaymentID:      payment.ID,
		GatewayOrderID: order.ID,
		Amount:         amount.Int64(),
		Currency:       payment.Currency,
	}, nil
}

// ListPayments returns a learner's payment history, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, learnerID, status string, page, limit int) (*domain.PaymentListResponse, error) {
	payments, total, err := s.PaymentRepo.ListByLearner(ctx, learnerID, status, page, limit)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.PaymentListResponse{
		Payments: payments,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}

// GetEMIDetails resolves a course's EMI eligibility for display.
func (s *PaymentService) GetEMIDetails(ctx context.Context, courseID string) (*domain.EMIDetailsResponse, error) {
	course, err := s.CourseRepo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCourseNotFound(courseID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	details := domain.GetEMIDetails(course.Duration, money.Amount(s.config.Business.MonthlyAmount))

	return &domain.EMIDetailsResponse{
		Eligible:      details.Eligible,
		Duration:      course.Duration,
		EMIPeriod:     details.Months,
		MonthlyAmount: details.MonthlyAmount.Int64(),
		TotalAmount:   details.TotalAmount.Int64(),
	}, nil
}
