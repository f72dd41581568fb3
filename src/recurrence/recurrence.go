// Package recurrence computes the next occurrence date of a recurring transaction.
//
// Month and year steps clamp to the last day of the target month when the source
// day does not exist there (Jan 31 + 1 month = Feb 28, or Feb 29 in a leap year).
// The clamped day is carried forward, so Jan 31 -> Feb 28 -> Mar 28.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"finlense-server/src/models"
)

// InvalidIntervalError is returned for an interval tag that is not one of
// DAILY, WEEKLY, MONTHLY or YEARLY.
type InvalidIntervalError struct {
	Interval string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid recurring interval %q", e.Interval)
}

// ParseInterval normalizes a user supplied interval tag.
func ParseInterval(s string) (models.RecurringInterval, error) {
	interval := models.RecurringInterval(strings.ToUpper(strings.TrimSpace(s)))
	if !Valid(interval) {
		return "", &InvalidIntervalError{Interval: s}
	}
	return interval, nil
}

func Valid(interval models.RecurringInterval) bool {
	switch interval {
	case models.Daily, models.Weekly, models.Monthly, models.Yearly:
		return true
	}
	return false
}

// NextDate returns the occurrence following from under the given interval.
func NextDate(from time.Time, interval models.RecurringInterval) (time.Time, error) {
	switch interval {
	case models.Daily:
		return from.AddDate(0, 0, 1), nil
	case models.Weekly:
		return from.AddDate(0, 0, 7), nil
	case models.Monthly:
		return addMonthsClamped(from, 1), nil
	case models.Yearly:
		return addMonthsClamped(from, 12), nil
	default:
		return time.Time{}, &InvalidIntervalError{Interval: string(interval)}
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, second := t.Clock()

	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, second, t.Nanosecond(), t.Location())
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
