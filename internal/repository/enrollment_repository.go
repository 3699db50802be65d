package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/coursepay/emi-engine/internal/domain"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

func NewEnrollmentRepository(db *sqlx.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

// uniqueViolation is the Postgres error code for duplicate key violations.
const uniqueViolation = pq.ErrorCode("23505")

// IsDuplicate reports whether err is a unique-constraint violation, which for
// enrollments means the learner-course pair already exists.
func IsDuplicate(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *domain.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, learner_id, course_id, course_name, plan_id, access_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		enrollment.ID,
		enrollment.LearnerID,
		enrollment.CourseID,
		enrollment.CourseName,
		enrollment.PlanID,
		enrollment.AccessStatus,
		enrollment.CreatedAt,
		enrollment.UpdatedAt,
	)

	return err
}

func (r *enrollmentRepository) GetByLearnerAndCourse(ctx context.Context, learnerID, courseID string) (*domain.Enrollment, error) {
	query := `
		SELECT id, learner_id, course_id, course_name, plan_id, access_status, created_at, updated_at
		FROM enrollments
		WHERE learner_id = $1 AND course_id = $2
	`

	var enrollment domain.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, learnerID, courseID); err != nil {
		return nil, err
	}

	return &enrollment, nil
}

func (r *enrollmentRepository) Exists(ctx context.Context, learnerID, courseID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE learner_id = $1 AND course_id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, learnerID, courseID); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *enrollmentRepository) SetAccessStatus(ctx context.Context, learnerID, courseID, status string) error {
	query := `
		UPDATE enrollments
		SET access_status = $3, updated_at = $4
		WHERE learner_id = $1 AND course_id = $2
	`

	_, err := r.db.ExecContext(ctx, query, learnerID, courseID, status, time.Now())
	return err
}
