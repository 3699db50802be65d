package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/coursepay/emi-engine/pkg/money"
)

func testPlan(months int, monthly money.Amount) *InstallmentPlan {
	start := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	plan := &InstallmentPlan{
		ID:            uuid.New(),
		LearnerID:     "learner-1",
		CourseID:      "course-1",
		TotalAmount:   monthly.Mul(months),
		MonthlyAmount: monthly,
		Months:        months,
		DueDay:        15,
		StartDate:     start,
		Status:        PlanStatusActive,
	}

	for m := 1; m <= months; m++ {
		inst := &Installment{
			ID:     uuid.New(),
			PlanID: plan.ID,
			Month:  m,
			Amount: monthly,
			Status: InstallmentStatusPending,
		}
		if m == 1 {
			inst.DueDate = start
			inst.Status = InstallmentStatusPaid
			paid := start
			inst.PaymentDate = &paid
		} else {
			inst.DueDate = start.AddDate(0, m-1, 0)
			inst.GracePeriodEnd = inst.DueDate.AddDate(0, 0, 3)
		}
		plan.Installments = append(plan.Installments, inst)
	}

	return plan
}

func TestInstallmentTransitions(t *testing.T) {
	now := time.Now()

	t.Run("pending to late to paid", func(t *testing.T) {
		inst := &Installment{Status: InstallmentStatusPending}
		assert.NoError(t, inst.MarkLate())
		assert.Equal(t, InstallmentStatusLate, inst.Status)
		assert.NoError(t, inst.MarkPaid(now))
		assert.Equal(t, InstallmentStatusPaid, inst.Status)
		assert.NotNil(t, inst.PaymentDate)
	})

	t.Run("pending straight to paid", func(t *testing.T) {
		inst := &Installment{Status: InstallmentStatusPending}
		assert.NoError(t, inst.MarkPaid(now))
	})

	t.Run("paid is terminal", func(t *testing.T) {
		inst := &Installment{Status: InstallmentStatusPaid}
		assert.Error(t, inst.MarkLate())
		assert.Error(t, inst.MarkPaid(now))
	})

	t.Run("late cannot go back to late", func(t *testing.T) {
		inst := &Installment{Status: InstallmentStatusLate}
		assert.Error(t, inst.MarkLate())
	})
}

func TestPlanLockUnlock(t *testing.T) {
	now := time.Now()
	plan := testPlan(12, money.Amount(200000))

	err := plan.Lock(now, 2)
	assert.NoError(t, err)
	assert.Equal(t, PlanStatusLocked, plan.Status)
	assert.Len(t, plan.LockHistory, 1)
	assert.Equal(t, 2, plan.LockHistory[0].OverdueMonths)
	assert.Nil(t, plan.LockHistory[0].UnlockDate)

	// Locking a locked plan is rejected; the sweep treats this as a no-op.
	assert.Error(t, plan.Lock(now, 2))
	assert.Len(t, plan.LockHistory, 1)

	assert.NoError(t, plan.Unlock(now))
	assert.Equal(t, PlanStatusActive, plan.Status)
	assert.NotNil(t, plan.LockHistory[0].UnlockDate)

	assert.Error(t, plan.Unlock(now))
}

func TestPlanSettleOverdue(t *testing.T) {
	now := time.Now()
	monthly := money.Amount(200000)

	setup := func() *InstallmentPlan {
		plan := testPlan(12, monthly)
		assert.NoError(t, plan.Installments[1].MarkLate())
		assert.NoError(t, plan.Installments[2].MarkLate())
		assert.NoError(t, plan.Lock(now, 2))
		return plan
	}

	t.Run("exact amount settles and unlocks", func(t *testing.T) {
		plan := setup()
		err := plan.SettleOverdue(monthly.Mul(2), now)
		assert.NoError(t, err)
		assert.Equal(t, PlanStatusActive, plan.Status)
		assert.Empty(t, plan.LateInstallments())
		assert.Equal(t, InstallmentStatusPaid, plan.Installments[1].Status)
		assert.Equal(t, InstallmentStatusPaid, plan.Installments[2].Status)
		assert.Nil(t, plan.OpenLockEntry())
	})

	t.Run("partial settlement rejected, plan stays locked", func(t *testing.T) {
		plan := setup()
		err := plan.SettleOverdue(monthly, now)
		assert.Error(t, err)
		assert.Equal(t, PlanStatusLocked, plan.Status)
		assert.Len(t, plan.LateInstallments(), 2)
	})

	t.Run("settlement on active plan rejected", func(t *testing.T) {
		plan := testPlan(12, monthly)
		err := plan.SettleOverdue(monthly, now)
		assert.Error(t, err)
	})
}

func TestPlanComplete(t *testing.T) {
	plan := testPlan(2, money.Amount(200000))
	assert.Error(t, plan.Complete(), "unpaid installments block completion")

	assert.NoError(t, plan.Installments[1].MarkPaid(time.Now()))
	assert.NoError(t, plan.Complete())
	assert.Equal(t, PlanStatusCompleted, plan.Status)

	assert.Error(t, plan.Complete())
}

func TestPlanInstallmentQueries(t *testing.T) {
	plan := testPlan(12, money.Amount(200000))
	start := plan.StartDate

	// Month 2 due Feb 10, grace ends Feb 13. Just before grace end, nothing
	// is overdue; at grace end, month 2 is.
	assert.Empty(t, plan.OverdueInstallments(start.AddDate(0, 1, 2)))
	overdue := plan.OverdueInstallments(start.AddDate(0, 1, 3))
	assert.Len(t, overdue, 1)
	assert.Equal(t, 2, overdue[0].Month)

	upcoming := plan.UpcomingInstallments(start.AddDate(0, 1, -5), start.AddDate(0, 1, 0))
	assert.Len(t, upcoming, 1)
	assert.Equal(t, 2, upcoming[0].Month)

	// Paid first installment is never upcoming.
	all := plan.UpcomingInstallments(start.AddDate(0, 0, -1), start.AddDate(2, 0, 0))
	assert.Len(t, all, 11)
}

func TestGetEMIDetails(t *testing.T) {
	monthly := money.Amount(200000)

	tests := []struct {
		duration string
		eligible bool
		months   int
	}{
		{"6 months", true, 6},
		{"1 year", true, 12},
		{"2 years", true, 24},
		{"3 months", false, 0},
		{"", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			details := GetEMIDetails(tt.duration, monthly)
			assert.Equal(t, tt.eligible, details.Eligible)
			assert.Equal(t, tt.months, details.Months)
			assert.Equal(t, monthly.Mul(tt.months), details.TotalAmount)
		})
	}
}
