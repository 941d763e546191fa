package engine

import "time"

// Clock supplies the engine's notion of "now". It is injected everywhere so
// tests can pin boundary-day scenarios to fixed timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewClock returns a Clock backed by the system clock in UTC.
func NewClock() Clock {
	return systemClock{}
}

// fixedClock is a test clock pinned to a single instant
type fixedClock struct {
	at time.Time
}

func (f fixedClock) Now() time.Time { return f.at }

// NewFixedClock returns a Clock that always reports the given instant.
func NewFixedClock(at time.Time) Clock {
	return fixedClock{at: at}
}

// startOfDay truncates t to midnight UTC
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from `from` to `to`, both
// normalized to midnight UTC. Raw duration division is deliberately avoided:
// 23:59 on Monday to 00:01 on Tuesday is one day, not zero.
func DaysBetween(from, to time.Time) int {
	return int(startOfDay(to).Sub(startOfDay(from)).Hours() / 24)
}

// ElapsedDays returns the calendar days elapsed since `since` as of `now`
func ElapsedDays(now, since time.Time) int {
	return DaysBetween(since, now)
}

// DaysUntil returns the calendar days from `now` until `deadline`. Negative
// values mean the deadline has passed.
func DaysUntil(now, deadline time.Time) int {
	return DaysBetween(now, deadline)
}
