package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysBetweenNormalizesToMidnight(t *testing.T) {
	lateMonday := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	earlyTuesday := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)

	// Two minutes of wall time, but one calendar day
	assert.Equal(t, 1, DaysBetween(lateMonday, earlyTuesday))
	assert.Equal(t, -1, DaysBetween(earlyTuesday, lateMonday))
	assert.Equal(t, 0, DaysBetween(lateMonday, lateMonday))
}

func TestDaysBetweenFullWeek(t *testing.T) {
	from := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, 7, DaysBetween(from, to))
}

func TestDaysBetweenNonUTCInputs(t *testing.T) {
	// 2026-03-10 01:00 +0300 is 2026-03-09 22:00 UTC
	offset := time.FixedZone("UTC+3", 3*60*60)
	from := time.Date(2026, 3, 10, 1, 0, 0, 0, offset)
	to := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(from, to))
}

func TestElapsedDaysAndDaysUntil(t *testing.T) {
	assert.Equal(t, 7, ElapsedDays(testNow, daysAgo(7)))
	assert.Equal(t, 3, DaysUntil(testNow, daysAhead(3)))
	assert.Equal(t, -1, DaysUntil(testNow, daysAgo(1)))
}

func TestFixedClock(t *testing.T) {
	clock := NewFixedClock(testNow)
	assert.Equal(t, testNow, clock.Now())
	assert.Equal(t, testNow, clock.Now())
}
