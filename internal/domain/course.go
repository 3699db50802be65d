package domain

import (
	"github.com/coursepay/emi-engine/pkg/money"
)

// CourseInfo is the read model consumed from the course catalog. The engine
// never writes course content, only the enrollment counter.
type CourseInfo struct {
	ID              string       `json:"id" db:"id"`
	MotherCourseID  string       `json:"mother_course_id" db:"mother_course_id"`
	Name            string       `json:"name" db:"name"`
	Duration        string       `json:"duration" db:"duration"`
	FinalPrice      money.Amount `json:"final_price" db:"final_price"`
	EnrollmentCount int          `json:"enrollment_count" db:"enrollment_count"`
}

// EMIDetails is the eligibility row derived from a course's duration label.
type EMIDetails struct {
	Eligible      bool         `json:"eligible"`
	Months        int          `json:"months"`
	MonthlyAmount money.Amount `json:"monthly_amount"`
	TotalAmount   money.Amount `json:"total_amount"`
}

// durationMonths maps catalog duration labels to installment counts. Labels
// outside this table are not EMI-eligible.
var durationMonths = map[string]int{
	"6 months": 6,
	"1 year":   12,
	"2 years":  24,
}

// GetEMIDetails resolves the eligibility table for a duration label with the
// given monthly installment amount.
func GetEMIDetails(duration string, monthlyAmount money.Amount) EMIDetails {
	months := durationMonths[duration]
	return EMIDetails{
		Eligible:      months > 0,
		Months:        months,
		MonthlyAmount: monthlyAmount,
		TotalAmount:   monthlyAmount.Mul(months),
	}
}

type EMIDetailsResponse struct {
	Eligible      bool   `json:"eligible"`
	Duration      string `json:"duration"`
	EMIPeriod     int    `json:"emi_period"`
	MonthlyAmount int64  `json:"monthly_amount"`
	TotalAmount   int64  `json:"total_amount"`
}
