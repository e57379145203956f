package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-02-10 is a Monday.
func monday(hour, min int) time.Time {
	return time.Date(2025, 2, 10, hour, min, 0, 0, time.UTC)
}

func TestEnumerateSkipsPastAndBookedHours(t *testing.T) {
	now := monday(8, 30)
	booked := []time.Time{monday(9, 0)}

	free := Enumerate(booked, now)
	require.NotEmpty(t, free)

	// 08:00 is already past and 09:00 is booked, so Monday opens at 10:00.
	assert.Equal(t, monday(10, 0), free[0])

	for _, slot := range free {
		assert.False(t, slot.Before(now), "slot %s is before now", slot)
		assert.True(t, IsBusinessDay(slot), "slot %s falls on a weekend", slot)
		assert.GreaterOrEqual(t, slot.Hour(), OpeningHour)
		assert.LessOrEqual(t, slot.Hour(), ClosingHour)
		assert.NotEqual(t, monday(9, 0), slot)
	}

	// Monday 10:00-15:00 plus Tuesday..Friday full days; the horizon stops
	// before the following Monday.
	assert.Len(t, free, 6+4*8)
}

func TestEnumerateFullWeekFromMondayMidnight(t *testing.T) {
	free := Enumerate(nil, monday(0, 0))

	require.Len(t, free, 5*8)
	assert.Equal(t, monday(8, 0), free[0])
	assert.Equal(t, time.Date(2025, 2, 14, 15, 0, 0, 0, time.UTC), free[len(free)-1])

	for i := 1; i < len(free); i++ {
		assert.True(t, free[i-1].Before(free[i]), "sequence not ascending at %d", i)
	}
}

func TestEnumerateWeekendStartOpensOnMonday(t *testing.T) {
	saturday := time.Date(2025, 2, 8, 11, 0, 0, 0, time.UTC)

	free := Enumerate(nil, saturday)

	require.Len(t, free, 5*8)
	assert.Equal(t, monday(8, 0), free[0])
}

func TestEnumerateAfterClosingSkipsCurrentDay(t *testing.T) {
	free := Enumerate(nil, monday(16, 0))

	require.Len(t, free, 4*8)
	assert.Equal(t, time.Date(2025, 2, 11, 8, 0, 0, 0, time.UTC), free[0])
}

func TestEnumerateIncludesSlotEqualToNow(t *testing.T) {
	free := Enumerate(nil, monday(9, 0))

	require.NotEmpty(t, free)
	assert.Equal(t, monday(9, 0), free[0])
}

func TestEnumerateMatchesBookingsAtHourGranularity(t *testing.T) {
	// A booking recorded at 09:17 occupies the 09:00 slot.
	free := Enumerate([]time.Time{monday(9, 17)}, monday(8, 0))

	for _, slot := range free {
		assert.NotEqual(t, monday(9, 0), slot)
	}
	assert.Len(t, free, 5*8-1)
}

func TestEnumerateCountIdentity(t *testing.T) {
	now := monday(8, 30)
	booked := []time.Time{
		monday(9, 0),
		monday(11, 0),
		time.Date(2025, 2, 12, 14, 0, 0, 0, time.UTC),
		monday(7, 0), // past, does not reduce the free count
		time.Date(2025, 2, 9, 10, 0, 0, 0, time.UTC), // Sunday, outside the window
	}

	free := Enumerate(booked, now)

	// 39 in-window slots (Mon 09:00-15:00 plus four full days) minus the
	// three booked-and-not-past ones.
	assert.Len(t, free, 39-3)
}

func TestNormalizeSlot(t *testing.T) {
	assert.Equal(t, monday(9, 0), NormalizeSlot(monday(9, 59)))
	assert.Equal(t, monday(9, 0), NormalizeSlot(monday(9, 0)))
}
