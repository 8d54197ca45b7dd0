package utils

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DaysUntil returns the whole number of days between now and the due date,
// floored. Due tomorrow yields 1, due today yields 0, one day overdue
// yields -1.
func DaysUntil(now, dueDate time.Time) int {
	return int(math.Floor(dueDate.Sub(now).Hours() / 24))
}

// UTCNowSecond returns the current UTC time truncated to second precision,
// the resolution notifications are stamped with.
func UTCNowSecond() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// StartOfDay truncates a time to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// IsDateOverdue checks if a due date is in the past relative to now.
func IsDateOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

// ClampZero returns the amount, or zero when the amount is negative.
func ClampZero(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
