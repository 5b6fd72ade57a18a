package core

import "time"

// DayKeyLayout is the calendar-day key used by daily series.
const DayKeyLayout = "2006-01-02"

// Interval is a closed time window: both Start and End are included.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the interval, endpoints included.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfMonth returns midnight of the first day of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// DayOf is the full-day interval containing t.
func DayOf(t time.Time) Interval {
	return Interval{Start: StartOfDay(t), End: EndOfDay(t)}
}

// MonthOf is the calendar-month interval containing t.
func MonthOf(t time.Time) Interval {
	start := StartOfMonth(t)
	return Interval{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// PreviousMonthOf is the calendar month before the one containing t.
func PreviousMonthOf(t time.Time) Interval {
	return MonthOf(StartOfMonth(t).AddDate(0, -1, 0))
}

// WeekOf is the ISO week (Monday to Sunday) containing t.
func WeekOf(t time.Time) Interval {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	start := StartOfDay(t).AddDate(0, 0, -offset)
	return Interval{Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}
}

// Days lists the start of every calendar day in the interval.
func (i Interval) Days() []time.Time {
	var days []time.Time
	for d := StartOfDay(i.Start); !d.After(i.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DayKey formats t as a calendar-day key in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyLayout)
}
