package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/config"
	"github.com/coursepay/emi-engine/internal/domain"
	"github.com/coursepay/emi-engine/pkg/money"
)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			Currency:           domain.CurrencyINR,
			MonthlyAmount:      200000,
			GracePeriodDays:    3,
			ReminderWindowDays: 5,
		},
		Scheduler: config.SchedulerConfig{
			LeaseTTL: "10m",
		},
	}
}

func testCourse(months int) *domain.CourseInfo {
	durations := map[int]string{6: "6 months", 12: "1 year", 24: "2 years"}
	return &domain.CourseInfo{
		ID:             "course-101",
		MotherCourseID: "mother-101",
		Name:           "Data Engineering Bootcamp",
		Duration:       durations[months],
		FinalPrice:     money.Amount(200000 * int64(months)),
	}
}

// testActivePlan builds an n-month plan starting at start with paidMonths
// installments already paid and the rest pending.
func testActivePlan(n, paidMonths int, start time.Time) *domain.InstallmentPlan {
	monthly := money.Amount(200000)
	plan := &domain.InstallmentPlan{
		ID:             uuid.New(),
		LearnerID:      "learner-1",
		CourseID:       "course-101",
		MotherCourseID: "mother-101",
		CourseName:     "Data Engineering Bootcamp",
		TotalAmount:    monthly.Mul(n),
		MonthlyAmount:  monthly,
		Months:         n,
		DueDay:         start.Day(),
		StartDate:      start,
		Status:         domain.PlanStatusActive,
	}
	for month := 1; month <= n; month++ {
		due := start.AddDate(0, month-1, 0)
		inst := &domain.Installment{
			ID:             uuid.New(),
			PlanID:         plan.ID,
			Month:          month,
			DueDate:        due,
			Amount:         monthly,
			Status:         domain.InstallmentStatusPending,
			GracePeriodEnd: due.AddDate(0, 0, 3),
		}
		if month <= paidMonths {
			paidAt := due
			inst.Status = domain.InstallmentStatusPaid
			inst.PaymentDate = &paidAt
		}
		plan.Installments = append(plan.Installments, inst)
	}
	return plan
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
