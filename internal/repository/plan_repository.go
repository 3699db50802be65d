package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursepay/emi-engine/internal/domain"
)

type planRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepository{db: db}
}

const planColumns = `
	id, learner_id, course_id, mother_course_id, course_name, total_amount,
	monthly_amount, months, due_day, start_date, status, created_at, updated_at
`

func (r *planRepository) Create(ctx context.Context, plan *domain.InstallmentPlan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	planQuery := `
		INSERT INTO installment_plans (id, learner_id, course_id, mother_course_id, course_name,
			total_amount, monthly_amount, months, due_day, start_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.ExecContext(ctx, planQuery,
		plan.ID,
		plan.LearnerID,
		plan.CourseID,
		plan.MotherCourseID,
		plan.CourseName,
		plan.TotalAmount,
		plan.MonthlyAmount,
		plan.Months,
		plan.DueDay,
		plan.StartDate,
		plan.Status,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	installmentQuery := `
		INSERT INTO installments (id, plan_id, month, due_date, amount, status, payment_date, grace_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, inst := range plan.Installments {
		_, err = tx.ExecContext(ctx, installmentQuery,
			inst.ID,
			inst.PlanID,
			inst.Month,
			inst.DueDate,
			inst.Amount,
			inst.Status,
			inst.PaymentDate,
			inst.GracePeriodEnd,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM installment_plans WHERE id = $1`

	var plan domain.InstallmentPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}

	if err := r.hydrate(ctx, &plan); err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepository) GetByLearnerAndCourse(ctx context.Context, learnerID, courseID string) (*domain.InstallmentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM installment_plans WHERE learner_id = $1 AND course_id = $2`

	var plan domain.InstallmentPlan
	if err := r.db.GetContext(ctx, &plan, query, learnerID, courseID); err != nil {
		return nil, err
	}

	if err := r.hydrate(ctx, &plan); err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepository) FindActiveWithPendingDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.InstallmentPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM installment_plans
		WHERE status = $1 AND id IN (
			SELECT plan_id FROM installments
			WHERE status = $2 AND due_date <= $3
		)
		ORDER BY created_at
	`

	return r.selectPlans(ctx, query, domain.PlanStatusActive, domain.InstallmentStatusPending, cutoff)
}

func (r *planRepository) FindActiveWithPendingDueBetween(ctx context.Context, from, to time.Time) ([]*domain.InstallmentPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM installment_plans
		WHERE status = $1 AND id IN (
			SELECT plan_id FROM installments
			WHERE status = $2 AND due_date >= $3 AND due_date <= $4
		)
		ORDER BY created_at
	`

	return r.selectPlans(ctx, query, domain.PlanStatusActive, domain.InstallmentStatusPending, from, to)
}

func (r *planRepository) FindPlansWithoutEnrollment(ctx context.Context) ([]*domain.InstallmentPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM installment_plans ip
		WHERE NOT EXISTS (
			SELECT 1 FROM enrollments e
			WHERE e.learner_id = ip.learner_id AND e.course_id = ip.course_id
		)
		ORDER BY created_at
	`

	return r.selectPlans(ctx, query)
}

func (r *planRepository) selectPlans(ctx context.Context, query string, args ...interface{}) ([]*domain.InstallmentPlan, error) {
	var plans []*domain.InstallmentPlan
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, err
	}

	for _, plan := range plans {
		if err := r.hydrate(ctx, plan); err != nil {
			return nil, err
		}
	}

	return plans, nil
}

func (r *planRepository) hydrate(ctx context.Context, plan *domain.InstallmentPlan) error {
	installmentQuery := `
		SELECT id, plan_id, month, due_date, amount, status, payment_date, grace_period_end
		FROM installments
		WHERE plan_id = $1
		ORDER BY month
	`

	if err := r.db.SelectContext(ctx, &plan.Installments, installmentQuery, plan.ID); err != nil {
		return err
	}

	lockQuery := `
		SELECT id, plan_id, lock_date, unlock_date, overdue_months
		FROM plan_lock_history
		WHERE plan_id = $1
		ORDER BY lock_date
	`

	return r.db.SelectContext(ctx, &plan.LockHistory, lockQuery, plan.ID)
}

func (r *planRepository) UpdateStatus(ctx context.Context, planID uuid.UUID, status string) error {
	query := `
		UPDATE installment_plans
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, planID, status, time.Now())
	return err
}

func (r *planRepository) UpdateInstallment(ctx context.Context, installment *domain.Installment) error {
	query := `
		UPDATE installments
		SET status = $2, payment_date = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, installment.ID, installment.Status, installment.PaymentDate)
	return err
}

func (r *planRepository) AppendLockEntry(ctx context.Context, entry *domain.LockEntry) error {
	query := `
		INSERT INTO plan_lock_history (id, plan_id, lock_date, unlock_date, overdue_months)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.PlanID,
		entry.LockDate,
		entry.UnlockDate,
		entry.OverdueMonths,
	)

	return err
}

func (r *planRepository) CloseLockEntries(ctx context.Context, planID uuid.UUID, unlockDate time.Time) error {
	query := `
		UPDATE plan_lock_history
		SET unlock_date = $2
		WHERE plan_id = $1 AND unlock_date IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, planID, unlockDate)
	return err
}
