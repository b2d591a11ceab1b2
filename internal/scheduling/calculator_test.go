package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/equipment-maintenance/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDate_Days(t *testing.T) {
	got, err := NextDueDate(date(2024, time.March, 10), 14, models.FrequencyDays)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 24), got)
}

func TestNextDueDate_Weeks(t *testing.T) {
	got, err := NextDueDate(date(2024, time.March, 10), 2, models.FrequencyWeeks)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 24), got)
}

func TestNextDueDate_DaysCrossDSTAreExactElapsedTime(t *testing.T) {
	// Day arithmetic is exact elapsed time, so a 1-day interval is always 24h.
	start := time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC)
	got, err := NextDueDate(start, 1, models.FrequencyDays)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, got.Sub(start))
}

func TestNextDueDate_MonthsClampToLeapFebruary(t *testing.T) {
	got, err := NextDueDate(date(2024, time.January, 31), 1, models.FrequencyMonths)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 29), got)
}

func TestNextDueDate_MonthsClampToShortFebruary(t *testing.T) {
	got, err := NextDueDate(date(2023, time.January, 31), 1, models.FrequencyMonths)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.February, 28), got)
}

func TestNextDueDate_Months(t *testing.T) {
	tests := []struct {
		name     string
		last     time.Time
		interval int
		want     time.Time
	}{
		{"plain quarter", date(2024, time.April, 15), 3, date(2024, time.July, 15)},
		{"march 31 to april 30", date(2024, time.March, 31), 1, date(2024, time.April, 30)},
		{"across year end", date(2023, time.November, 30), 3, date(2024, time.February, 29)},
		{"twelve months equals a year", date(2023, time.June, 15), 12, date(2024, time.June, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(tt.last, tt.interval, models.FrequencyMonths)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextDueDate_Years(t *testing.T) {
	got, err := NextDueDate(date(2022, time.May, 1), 2, models.FrequencyYears)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.May, 1), got)

	// Leap day anniversaries clamp to Feb 28 in common years.
	got, err = NextDueDate(date(2024, time.February, 29), 1, models.FrequencyYears)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.February, 28), got)
}

func TestNextDueDate_PreservesClockAndLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	last := time.Date(2024, time.January, 31, 8, 45, 30, 0, loc)

	got, err := NextDueDate(last, 1, models.FrequencyMonths)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 8, 45, 30, 0, loc), got)
}

func TestNextDueDate_FutureLastMaintenanceAccepted(t *testing.T) {
	future := date(2999, time.January, 15)
	got, err := NextDueDate(future, 1, models.FrequencyWeeks)
	require.NoError(t, err)
	assert.Equal(t, date(2999, time.January, 22), got)
}

func TestNextDueDate_Deterministic(t *testing.T) {
	last := date(2024, time.August, 31)
	first, err := NextDueDate(last, 6, models.FrequencyMonths)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := NextDueDate(last, 6, models.FrequencyMonths)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNextDueDate_InvalidInterval(t *testing.T) {
	_, err := NextDueDate(date(2024, time.January, 1), 0, models.FrequencyDays)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = NextDueDate(date(2024, time.January, 1), -3, models.FrequencyMonths)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestNextDueDate_InvalidUnit(t *testing.T) {
	_, err := NextDueDate(date(2024, time.January, 1), 1, "fortnights")
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = NextDueDate(date(2024, time.January, 1), 1, "")
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestNextFromSchedule(t *testing.T) {
	schedule := models.RecurringSchedule{
		Enabled:   true,
		Type:      models.TypePreventive,
		Interval:  3,
		Frequency: models.FrequencyMonths,
	}

	got, err := NextFromSchedule(schedule, date(2024, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 1), got)
}

func TestNextFromSchedule_Disabled(t *testing.T) {
	schedule := models.RecurringSchedule{Enabled: false, Interval: 3, Frequency: models.FrequencyMonths}
	_, err := NextFromSchedule(schedule, date(2024, time.January, 1))
	assert.ErrorIs(t, err, ErrScheduleDisabled)
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule models.RecurringSchedule
		wantErr  error
	}{
		{
			name:     "valid enabled schedule",
			schedule: models.RecurringSchedule{Enabled: true, Interval: 1, Frequency: models.FrequencyDays},
		},
		{
			name:     "disabled schedule passes regardless of config",
			schedule: models.RecurringSchedule{Enabled: false, Interval: 0, Frequency: "bogus"},
		},
		{
			name:     "zero interval",
			schedule: models.RecurringSchedule{Enabled: true, Interval: 0, Frequency: models.FrequencyDays},
			wantErr:  ErrInvalidSchedule,
		},
		{
			name:     "missing frequency",
			schedule: models.RecurringSchedule{Enabled: true, Interval: 2},
			wantErr:  ErrInvalidSchedule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsOverdue(t *testing.T) {
	now := date(2024, time.June, 15)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	tests := []struct {
		name  string
		due   time.Time
		stage models.Stage
		want  bool
	}{
		{"past due in new", yesterday, models.StageNew, true},
		{"past due in progress", yesterday, models.StageInProgress, true},
		{"past due but repaired", yesterday, models.StageRepaired, false},
		{"past due but scrap", yesterday, models.StageScrap, false},
		{"future due in progress", tomorrow, models.StageInProgress, false},
		{"due exactly now", now, models.StageInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOverdue(tt.due, tt.stage, now))
		})
	}
}
