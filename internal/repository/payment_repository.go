package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursepay/emi-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `
	id, learner_id, course_id, mother_course_id, course_name, kind, amount,
	currency, receipt_id, gateway_order_id, gateway_payment_id, signature,
	status, emi_due_day, error_code, error_description, created_at, updated_at
`

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, learner_id, course_id, mother_course_id, course_name, kind,
			amount, currency, receipt_id, gateway_order_id, status, emi_due_day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.LearnerID,
		payment.CourseID,
		payment.MotherCourseID,
		payment.CourseName,
		payment.Kind,
		payment.Amount,
		payment.Currency,
		payment.ReceiptID,
		payment.GatewayOrderID,
		payment.Status,
		payment.EMIDueDay,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var payment domain.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id = $1`

	var payment domain.Payment
	if err := r.db.GetContext(ctx, &payment, query, orderID); err != nil {
		return nil, err
	}

	return &payment, nil
}

// Complete is the single linearization point for reconciliation: the WHERE
// clause makes the pending → completed transition atomic, so concurrent
// verify calls and webhook deliveries for the same payment cannot both win.
func (r *paymentRepository) Complete(ctx context.Context, id uuid.UUID, gatewayPayID, signature string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, gateway_payment_id = $3, signature = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		id,
		domain.PaymentStatusCompleted,
		gatewayPayID,
		signature,
		time.Now(),
		domain.PaymentStatusPending,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *paymentRepository) Fail(ctx context.Context, orderID, errorCode, errorDesc string) error {
	query := `
		UPDATE payments
		SET status = $2, error_code = $3, error_description = $4, updated_at = $5
		WHERE gateway_order_id = $1 AND status = $6
	`

	_, err := r.db.ExecContext(ctx, query,
		orderID,
		domain.PaymentStatusFailed,
		errorCode,
		errorDesc,
		time.Now(),
		domain.PaymentStatusPending,
	)

	return err
}

func (r *paymentRepository) FindCompletedFullPayment(ctx context.Context, learnerID, courseID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE learner_id = $1 AND course_id = $2 AND kind = $3 AND status = $4
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, learnerID, courseID, domain.PaymentKindFull, domain.PaymentStatusCompleted)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) ListByLearner(ctx context.Context, learnerID, status string, page, limit int) ([]*domain.Payment, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 5
	}

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE learner_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4
	`

	var payments []*domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, learnerID, status, (page-1)*limit, limit); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM payments WHERE learner_id = $1 AND ($2 = '' OR status = $2)`

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, learnerID, status); err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (r *paymentRepository) FindCompletedEMIWithoutPlan(ctx context.Context) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		WHERE p.kind = $1 AND p.status = $2
		  AND NOT EXISTS (
			SELECT 1 FROM installment_plans ip
			WHERE ip.learner_id = p.learner_id AND ip.course_id = p.course_id
		  )
		ORDER BY p.created_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, domain.PaymentKindEMI, domain.PaymentStatusCompleted)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) FindCompletedFullWithoutEnrollment(ctx context.Context) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		WHERE p.kind = $1 AND p.status = $2
		  AND NOT EXISTS (
			SELECT 1 FROM enrollments e
			WHERE e.learner_id = p.learner_id AND e.course_id = p.course_id
		  )
		ORDER BY p.created_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, domain.PaymentKindFull, domain.PaymentStatusCompleted)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) FindCompletedSettlementsForLockedPlans(ctx context.Context) ([]*domain.Payment, error) {
	// A settlement older than the open lock entry belongs to a previous lock
	// cycle; it already cleared its installments and must not be re-applied.
	query := `
		SELECT p.id, p.learner_id, p.course_id, p.mother_course_id, p.course_name,
			p.kind, p.amount, p.currency, p.receipt_id, p.gateway_order_id,
			p.gateway_payment_id, p.signature, p.status, p.emi_due_day,
			p.error_code, p.error_description, p.created_at, p.updated_at
		FROM payments p
		JOIN installment_plans ip
		  ON ip.learner_id = p.learner_id AND ip.course_id = p.course_id
		WHERE p.kind = $1 AND p.status = $2 AND ip.status = $3
		  AND p.updated_at >= COALESCE((
			SELECT MAX(h.lock_date) FROM plan_lock_history h
			WHERE h.plan_id = ip.id AND h.unlock_date IS NULL
		  ), p.updated_at)
		ORDER BY p.created_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query,
		domain.PaymentKindEMIOverdue, domain.PaymentStatusCompleted, domain.PlanStatusLocked)
	if err != nil {
		return nil, err
	}

	return payments, nil
}
