package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/coursepay/emi-engine/internal/domain"
)

type courseRepository struct {
	db *sqlx.DB
}

func NewCourseRepository(db *sqlx.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, courseID string) (*domain.CourseInfo, error) {
	query := `
		SELECT id, mother_course_id, name, duration, final_price, enrollment_count
		FROM courses
		WHERE id = $1
	`

	var course domain.CourseInfo
	if err := r.db.GetContext(ctx, &course, query, courseID); err != nil {
		return nil, err
	}

	return &course, nil
}

func (r *courseRepository) IncrementEnrollment(ctx context.Context, courseID string) error {
	query := `
		UPDATE courses
		SET enrollment_count = enrollment_count + 1
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, courseID)
	return err
}
