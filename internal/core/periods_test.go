package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekOfStartsOnMonday(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"saturday", refNow, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"monday", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2025, 3, 16, 23, 59, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WeekOf(tt.at)
			assert.Equal(t, tt.want, w.Start)
			assert.True(t, w.Contains(tt.at))
			assert.Equal(t, time.Date(2025, 3, 16, 23, 59, 59, 999999999, time.UTC), w.End)
		})
	}
}

func TestPreviousMonthAcrossYear(t *testing.T) {
	prev := PreviousMonthOf(time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), prev.Start)
	assert.True(t, prev.Contains(time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, prev.Contains(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestIntervalDays(t *testing.T) {
	assert.Len(t, MonthOf(time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)).Days(), 29)
	assert.Len(t, DayOf(refNow).Days(), 1)
}

func TestStartOfMonthKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2025, time.March, 1, 1, 30, 0, 0, loc)
	got := StartOfMonth(at)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, loc), got)
	assert.Equal(t, loc, got.Location())
}
