package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/config"
	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/internal/gateway"
	"github.com/coursepay/emi-engine/internal/notification"
	"github.com/coursepay/emi-engine/internal/repository"
	customError "github.com/coursepay/emi-engine/pkg/errors"
)

// Reconciler is the single confirmation path for payments. Client-side verify
// calls and gateway webhooks both land here; the conditional pending→completed
// update in the payment repository guarantees the side effects of a payment
// run exactly once no matter how many confirmations arrive.
type Reconciler struct {
	PaymentRepo    repository.PaymentRepository
	PlanRepo       repository.PlanRepository
	EnrollmentRepo repository.EnrollmentRepository
	CourseRepo     repository.CourseRepository
	Builder        *ScheduleBuilder
	gateway        gateway.Client
	notifier       notification.Notifier
	settler        *settlementApplier
	config         *config.Config
	logger         *zap.Logger
}

func NewReconciler(
	paymentRepo repository.PaymentRepository,
	planRepo repository.PlanRepository,
	enrollmentRepo repository.EnrollmentRepository,
	courseRepo repository.CourseRepository,
	builder *ScheduleBuilder,
	gatewayClient gateway.Client,
	notifier notification.Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		PaymentRepo:    paymentRepo,
		PlanRepo:       planRepo,
		EnrollmentRepo: enrollmentRepo,
		CourseRepo:     courseRepo,
		Builder:        builder,
		gateway:        gatewayClient,
		notifier:       notifier,
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

// ReconcileInput identifies one payment confirmation. Client verify calls set
// PaymentID and carry the checkout signature; webhook deliveries set
// GatewayOrderID and arrive with the body signature already verified at the
// ingress, so SignatureVerified skips the checkout check.
type ReconcileInput struct {
	PaymentID         uuid.UUID
	GatewayOrderID    string
	GatewayPaymentID  string
	Signature         string
	SignatureVerified bool
}

// ReconciliationResult reports the payment after reconciliation and, for
// installment kinds, the plan it touched. AlreadyProcessed means a prior
// confirmation won the race and this call changed nothing.
type ReconciliationResult struct {
	Payment          *domain.Payment
	Plan             *domain.InstallmentPlan
	AlreadyProcessed bool
}

// Reconcile confirms a payment against the gateway and applies its side
// effects. The sequence is: authenticate the confirmation, check the remote
// capture status, win the pending→completed transition, then apply the
// kind-specific effects. A duplicate delivery short-circuits after the first
// two steps and reports AlreadyProcessed.
//
// Side-effect failures after the completed transition do not roll the payment
// back: the money is captured and the repair sweep re-derives the missing
// state. Those failures surface as PARTIAL_FAILURE errors.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) (*ReconciliationResult, error) {
	payment, err := r.resolvePayment(ctx, in)
	if err != nil {
		return nil, err
	}

	if !in.SignatureVerified {
		if !r.gateway.VerifyCheckoutSignature(payment.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
			r.logger.Warn("checkout signature rejected",
				zap.String("payment_id", payment.ID.String()),
				zap.String("order_id", payment.GatewayOrderID),
			)
			return nil, customError.WrapInvalidSignature()
		}
	}

	info, err := r.gateway.FetchPayment(ctx, in.GatewayPaymentID)
	if err != nil {
		return nil, customError.WrapGatewayError(err)
	}
	if info.Status != gateway.RemoteStatusCaptured {
		return nil, customError.WrapPaymentNotCaptured(info.Status)
	}

	if payment.IsCompleted() {
		return r.alreadyProcessed(ctx, payment)
	}

	won, err := r.PaymentRepo.Complete(ctx, payment.ID, in.GatewayPaymentID, in.Signature)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !won {
		// A concurrent confirmation completed this payment first. Re-read so
		// the caller sees the final record.
		payment, err = r.PaymentRepo.GetByID(ctx, payment.ID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		return r.alreadyProcessed(ctx, payment)
	}

	payment.Status = domain.PaymentStatusCompleted
	payment.GatewayPayID = in.GatewayPaymentID
	payment.Signature = in.Signature

	r.logger.Info("payment completed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.GatewayOrderID),
		zap.String("kind", payment.Kind),
	)

	plan, err := r.applyCompleted(ctx, payment, time.Now())
	if err != nil {
		r.logger.Error("payment completed but side effects failed; repair sweep will reconcile",
			zap.String("payment_id", payment.ID.String()),
			zap.String("kind", payment.Kind),
			zap.Error(err),
		)
		return &ReconciliationResult{Payment: payment, Plan: plan},
			customError.WrapPartialFailure(payment.ID.String(), err)
	}

	return &ReconciliationResult{Payment: payment, Plan: plan}, nil
}

// RecordFailure marks a pending payment failed with the gateway's error
// detail. Used for the payment.failed webhook event; a failure arriving after
// completion is ignored by the conditional update.
func (r *Reconciler) RecordFailure(ctx context.Context, orderID, errorCode, errorDesc string) error {
	if err := r.PaymentRepo.Fail(ctx, orderID, errorCode, errorDesc); err != nil {
		return customError.WrapDatabaseError(err)
	}
	r.logger.Info("payment failure recorded",
		zap.String("order_id", orderID),
		zap.String("error_code", errorCode),
	)
	return nil
}

func (r *Reconciler) resolvePayment(ctx context.Context, in ReconcileInput) (*domain.Payment, error) {
	var payment *domain.Payment
	var err error

	if in.PaymentID != uuid.Nil {
		payment, err = r.PaymentRepo.GetByID(ctx, in.PaymentID)
	} else {
		payment, err = r.PaymentRepo.GetByOrderID(ctx, in.GatewayOrderID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ref := in.GatewayOrderID
			if in.PaymentID != uuid.Nil {
				ref = in.PaymentID.String()
			}
			return nil, customError.WrapPaymentNotFound(ref)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return payment, nil
}

func (r *Reconciler) alreadyProcessed(ctx context.Context, payment *domain.Payment) (*ReconciliationResult, error) {
	result := &ReconciliationResult{Payment: payment, AlreadyProcessed: true}

	if payment.IsInstallmentKind() {
		plan, err := r.PlanRepo.GetByLearnerAndCourse(ctx, payment.LearnerID, payment.CourseID)
		if err == nil {
			result.Plan = plan
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	r.logger.Info("duplicate confirmation ignored",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.GatewayOrderID),
	)
	return result, nil
}

// applyCompleted runs the kind-specific side effects for a freshly completed
// payment.
func (r *Reconciler) applyCompleted(ctx context.Context, payment *domain.Payment, now time.Time) (*domain.InstallmentPlan, error) {
	switch payment.Kind {
	case domain.PaymentKindEMI:
		return r.applyEMIEnrollment(ctx, payment, now)
	case domain.PaymentKindFull:
		return nil, r.applyFullEnrollment(ctx, payment, now)
	case domain.PaymentKindEMIOverdue:
		return r.settler.apply(ctx, payment, now)
	default:
		return nil, customError.WrapIllegalTransition(payment.Kind, domain.PaymentStatusCompleted)
	}
}

func (r *Reconciler) applyEMIEnrollment(ctx context.Context, payment *domain.Payment, now time.Time) (*domain.InstallmentPlan, error) {
	course, err := r.CourseRepo.GetByID(ctx, payment.CourseID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	plan, err := r.Builder.Build(ctx, payment.LearnerID, course, payment.EMIDueDay, now)
	if err != nil {
		return plan, err
	}

	r.notifier.Send(ctx, payment.LearnerID, notification.KindWelcome, notification.Data{
		"course_name":    payment.CourseName,
		"payment_kind":   payment.Kind,
		"monthly_amount": plan.MonthlyAmount.Int64(),
		"total_months":   plan.Months,
	})
	return plan, nil
}

func (r *Reconciler) applyFullEnrollment(ctx context.Context, payment *domain.Payment, now time.Time) error {
	enrollment := &domain.Enrollment{
		ID:           uuid.New(),
		LearnerID:    payment.LearnerID,
		CourseID:     payment.CourseID,
		CourseName:   payment.CourseName,
		AccessStatus: domain.AccessStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := r.EnrollmentRepo.Create(ctx, enrollment); err != nil {
		if repository.IsDuplicate(err) {
			r.logger.Warn("enrollment already exists, skipping",
				zap.String("learner_id", payment.LearnerID),
				zap.String("course_id", payment.CourseID),
			)
			return nil
		}
		return customError.WrapDatabaseError(err)
	}

	if err := r.CourseRepo.IncrementEnrollment(ctx, payment.CourseID); err != nil {
		return customError.WrapDatabaseError(err)
	}

	r.notifier.Send(ctx, payment.LearnerID, notification.KindWelcome, notification.Data{
		"course_name":  payment.CourseName,
		"payment_kind": payment.Kind,
	})
	return nil
}
