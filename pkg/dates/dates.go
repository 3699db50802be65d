package dates

import "time"

// LastDayOfMonth returns the number of days in the month containing date.
func LastDayOfMonth(date time.Time) int {
	firstOfNext := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// NextDueDate adds monthOffset calendar months to anchor, then clamps dueDay
// to the last valid day of the resulting month. Due-day 31 in a 30-day month
// yields day 30; in February, 28 (29 on leap years).
//
// Months are added from the first of the anchor's month so that an anchor on
// e.g. Jan 31 never overflows into the following month before clamping.
func NextDueDate(anchor time.Time, dueDay int, monthOffset int) time.Time {
	target := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location()).AddDate(0, monthOffset, 0)

	day := dueDay
	if last := LastDayOfMonth(target); day > last {
		day = last
	}

	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, anchor.Location())
}

// TruncateToDay strips the time-of-day component.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
