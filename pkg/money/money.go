package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a money amount in integer minor units (paise for INR). The core
// never carries fractional currency; conversion to major units happens only
// at the gateway and display edges.
type Amount int64

// MajorUnits returns the amount in major units as an exact decimal.
func (a Amount) MajorUnits() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Div(decimal.NewFromInt(100))
}

// Int64 returns the raw minor-unit value, as the gateway API expects.
func (a Amount) Int64() int64 {
	return int64(a)
}

// Mul scales the amount by an integer count.
func (a Amount) Mul(n int) Amount {
	return Amount(int64(a) * int64(n))
}

// String formats the amount in major units with two decimal places.
func (a Amount) String() string {
	return a.MajorUnits().StringFixed(2)
}

// Format renders the amount with a currency code, e.g. "INR 2000.00".
func (a Amount) Format(currency string) string {
	return fmt.Sprintf("%s %s", currency, a.String())
}
