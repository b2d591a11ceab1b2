// Package scheduling computes preventive-maintenance due dates and overdue
// state. Every function is pure: the evaluation time is always an argument,
// never read from an ambient clock.
package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/equipment-maintenance/internal/models"
)

var (
	ErrInvalidSchedule  = errors.New("invalid maintenance schedule")
	ErrScheduleDisabled = errors.New("maintenance schedule disabled")
)

// NextDueDate adds interval units to lastMaintenance. Day and week intervals
// are exact elapsed time; month and year intervals are calendar-aware, with
// the day-of-month clamped to the end of shorter target months (Jan 31 + 1
// month lands on Feb 29 in a leap year, Feb 28 otherwise). A lastMaintenance
// in the future is accepted: historical backfills are legitimate.
func NextDueDate(lastMaintenance time.Time, interval int, unit models.FrequencyUnit) (time.Time, error) {
	if interval < 1 {
		return time.Time{}, fmt.Errorf("interval must be at least 1, got %d: %w", interval, ErrInvalidSchedule)
	}

	switch unit {
	case models.FrequencyDays:
		return lastMaintenance.Add(time.Duration(interval) * 24 * time.Hour), nil
	case models.FrequencyWeeks:
		return lastMaintenance.Add(time.Duration(interval) * 7 * 24 * time.Hour), nil
	case models.FrequencyMonths:
		return addMonthsClamped(lastMaintenance, interval), nil
	case models.FrequencyYears:
		return addMonthsClamped(lastMaintenance, interval*12), nil
	default:
		return time.Time{}, fmt.Errorf("unrecognized frequency unit %q: %w", unit, ErrInvalidSchedule)
	}
}

// NextFromSchedule computes the due date an enabled schedule produces when the
// last maintenance happened at last. Disabled schedules are a legitimate state,
// reported distinctly from misconfigured ones.
func NextFromSchedule(s models.RecurringSchedule, last time.Time) (time.Time, error) {
	if !s.Enabled {
		return time.Time{}, ErrScheduleDisabled
	}
	return NextDueDate(last, s.Interval, s.Frequency)
}

// ValidateSchedule checks an enabled schedule's configuration. A disabled
// schedule passes: nothing will ever be computed from it.
func ValidateSchedule(s models.RecurringSchedule) error {
	if !s.Enabled {
		return nil
	}
	if s.Interval < 1 {
		return fmt.Errorf("interval must be at least 1, got %d: %w", s.Interval, ErrInvalidSchedule)
	}
	if !models.IsValidFrequencyUnit(s.Frequency) {
		return fmt.Errorf("unrecognized frequency unit %q: %w", s.Frequency, ErrInvalidSchedule)
	}
	return nil
}

// IsOverdue reports whether a request scheduled (or due) at the given time is
// overdue at now. Requests whose stage is repaired or scrap are never overdue,
// no matter how old their scheduled date is.
func IsOverdue(scheduledOrDue time.Time, stage models.Stage, now time.Time) bool {
	if models.TerminalStage(stage) {
		return false
	}
	return scheduledOrDue.Before(now)
}

// addMonthsClamped shifts t by the given number of months, keeping the
// day-of-month where possible and clamping to the last day of the target month
// otherwise. time.AddDate alone would normalize Jan 31 + 1 month into March.
func addMonthsClamped(t time.Time, months int) time.Time {
	anchor := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	anchor = anchor.AddDate(0, months, 0)

	day := t.Day()
	if last := daysInMonth(anchor.Year(), anchor.Month()); day > last {
		day = last
	}
	return time.Date(anchor.Year(), anchor.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in the given month. Day zero of the
// following month normalizes back to the last day of this one.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
