package schedule

import "time"

const (
	// OpeningHour and ClosingHour bound the daily booking band.
	// ClosingHour is the last bookable hour, inclusive.
	OpeningHour = 8
	ClosingHour = 15
)

// NormalizeSlot truncates a timestamp to whole-hour slot granularity.
func NormalizeSlot(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// IsBusinessDay reports whether appointments can be scheduled on the given day.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Enumerate returns the ascending sequence of free hourly slots inside the
// rolling scheduling horizon: starting on now's calendar day and ending when
// the weekday cycles back to now's weekday, walking business days only and
// the OpeningHour..ClosingHour band within each day.
//
// A candidate hour is skipped when it is strictly before now or when it
// matches a booked timestamp at hour granularity. The result is a pure
// function of its inputs; no slot is ever emitted on a weekend or in the past.
func Enumerate(booked []time.Time, now time.Time) []time.Time {
	taken := make(map[int64]struct{}, len(booked))
	for _, b := range booked {
		taken[NormalizeSlot(b.In(now.Location())).Unix()] = struct{}{}
	}

	startWeekday := now.Weekday()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var free []time.Time
	for offset := 0; ; offset++ {
		if offset > 0 && day.Weekday() == startWeekday {
			break
		}
		if IsBusinessDay(day) {
			for hour := OpeningHour; hour <= ClosingHour; hour++ {
				slot := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
				if slot.Before(now) {
					continue
				}
				if _, ok := taken[slot.Unix()]; ok {
					continue
				}
				free = append(free, slot)
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return free
}
