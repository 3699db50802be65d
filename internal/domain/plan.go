package domain

import (
	"time"

	"github.com/google/uuid"

	customError "github.com/coursepay/emi-engine/pkg/errors"
	"github.com/coursepay/emi-engine/pkg/money"
)

const (
	PlanStatusActive    = "active"
	PlanStatusLocked    = "locked"
	PlanStatusCompleted = "completed"
	PlanStatusCancelled = "cancelled"
)

const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusLate    = "late"
)

// Installment is one scheduled payment within a plan. Month 1 is synthesized
// as already paid at plan creation; it represents the payment that funded the
// enrollment.
type Installment struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	PlanID         uuid.UUID    `json:"plan_id" db:"plan_id"`
	Month          int          `json:"month" db:"month"`
	DueDate        time.Time    `json:"due_date" db:"due_date"`
	Amount         money.Amount `json:"amount" db:"amount"`
	Status         string       `json:"status" db:"status"`
	PaymentDate    *time.Time   `json:"payment_date,omitempty" db:"payment_date"`
	GracePeriodEnd time.Time    `json:"grace_period_end" db:"grace_period_end"`
}

// MarkLate transitions pending → late. A paid installment is terminal; a late
// installment stays late until settled.
func (i *Installment) MarkLate() error {
	if i.Status != InstallmentStatusPending {
		return customError.WrapIllegalTransition(i.Status, InstallmentStatusLate)
	}
	i.Status = InstallmentStatusLate
	return nil
}

// MarkPaid transitions pending or late → paid and records the payment date.
func (i *Installment) MarkPaid(at time.Time) error {
	if i.Status == InstallmentStatusPaid {
		return customError.WrapIllegalTransition(i.Status, InstallmentStatusPaid)
	}
	i.Status = InstallmentStatusPaid
	i.PaymentDate = &at
	return nil
}

// LockEntry records one lock episode in a plan's history. UnlockDate stays
// nil while the lock is open.
type LockEntry struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	PlanID        uuid.UUID  `json:"plan_id" db:"plan_id"`
	LockDate      time.Time  `json:"lock_date" db:"lock_date"`
	UnlockDate    *time.Time `json:"unlock_date,omitempty" db:"unlock_date"`
	OverdueMonths int        `json:"overdue_months" db:"overdue_months"`
}

// InstallmentPlan is the aggregate owning the schedule, plan status and lock
// history for one (learner, course) EMI enrollment. Installment count, monthly
// amount and due day are fixed at creation.
type InstallmentPlan struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	LearnerID      string       `json:"learner_id" db:"learner_id"`
	CourseID       string       `json:"course_id" db:"course_id"`
	MotherCourseID string       `json:"mother_course_id" db:"mother_course_id"`
	CourseName     string       `json:"course_name" db:"course_name"`
	TotalAmount    money.Amount `json:"total_amount" db:"total_amount"`
	MonthlyAmount  money.Amount `json:"monthly_amount" db:"monthly_amount"`
	Months         int          `json:"months" db:"months"`
	DueDay         int          `json:"due_day" db:"due_day"`
	StartDate      time.Time    `json:"start_date" db:"start_date"`
	Status         string       `json:"status" db:"status"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`

	Installments []*Installment `json:"installments" db:"-"`
	LockHistory  []*LockEntry   `json:"lock_history" db:"-"`
}

// OverdueInstallments returns pending installments whose grace period has
// elapsed as of the given time.
func (p *InstallmentPlan) OverdueInstallments(asOf time.Time) []*Installment {
	var overdue []*Installment
	for _, inst := range p.Installments {
		if inst.Status == InstallmentStatusPending && !inst.GracePeriodEnd.After(asOf) {
			overdue = append(overdue, inst)
		}
	}
	return overdue
}

// LateInstallments returns installments currently marked late.
func (p *InstallmentPlan) LateInstallments() []*Installment {
	var late []*Installment
	for _, inst := range p.Installments {
		if inst.Status == InstallmentStatusLate {
			late = append(late, inst)
		}
	}
	return late
}

// UpcomingInstallments returns pending installments due within [from, to].
func (p *InstallmentPlan) UpcomingInstallments(from, to time.Time) []*Installment {
	var upcoming []*Installment
	for _, inst := range p.Installments {
		if inst.Status != InstallmentStatusPending {
			continue
		}
		if inst.DueDate.Before(from) || inst.DueDate.After(to) {
			continue
		}
		upcoming = append(upcoming, inst)
	}
	return upcoming
}

// AllPaid reports whether every installment in the schedule is paid.
func (p *InstallmentPlan) AllPaid() bool {
	for _, inst := range p.Installments {
		if inst.Status != InstallmentStatusPaid {
			return false
		}
	}
	return len(p.Installments) > 0
}

// Lock transitions active → locked and appends a lock-history entry. Only the
// overdue sweep drives this transition.
func (p *InstallmentPlan) Lock(at time.Time, overdueMonths int) error {
	if p.Status != PlanStatusActive {
		return customError.WrapIllegalTransition(p.Status, PlanStatusLocked)
	}
	p.Status = PlanStatusLocked
	p.LockHistory = append(p.LockHistory, &LockEntry{
		ID:            uuid.New(),
		PlanID:        p.ID,
		LockDate:      at,
		OverdueMonths: overdueMonths,
	})
	return nil
}

// Unlock transitions locked → active and closes the open lock-history entry.
// Only full settlement of the overdue amount drives this transition.
func (p *InstallmentPlan) Unlock(at time.Time) error {
	if p.Status != PlanStatusLocked {
		return customError.WrapIllegalTransition(p.Status, PlanStatusActive)
	}
	p.Status = PlanStatusActive
	for _, entry := range p.LockHistory {
		if entry.UnlockDate == nil {
			unlockedAt := at
			entry.UnlockDate = &unlockedAt
		}
	}
	return nil
}

// Complete transitions active → completed once every installment is paid.
func (p *InstallmentPlan) Complete() error {
	if p.Status != PlanStatusActive {
		return customError.WrapIllegalTransition(p.Status, PlanStatusCompleted)
	}
	if !p.AllPaid() {
		return customError.WrapIllegalTransition(p.Status, PlanStatusCompleted)
	}
	p.Status = PlanStatusCompleted
	return nil
}

// SettleOverdue marks every late installment paid at the given time after
// checking the settlement amount covers all of them exactly. Partial
// settlement is rejected; the plan stays locked.
func (p *InstallmentPlan) SettleOverdue(amount money.Amount, at time.Time) error {
	if p.Status != PlanStatusLocked {
		return customError.WrapPlanNotLocked(p.ID.String())
	}

	late := p.LateInstallments()
	expected := p.MonthlyAmount.Mul(len(late))
	if amount != expected {
		return customError.WrapAmountMismatch(expected.String(), amount.String())
	}

	for _, inst := range late {
		if err := inst.MarkPaid(at); err != nil {
			return err
		}
	}

	return p.Unlock(at)
}

// OpenLockEntry returns the lock-history entry without an unlock date, if any.
func (p *InstallmentPlan) OpenLockEntry() *LockEntry {
	for _, entry := range p.LockHistory {
		if entry.UnlockDate == nil {
			return entry
		}
	}
	return nil
}
