package finance

import (
	"time"

	"cloud.google.com/go/civil"
)

// Clock supplies the current business date.
type Clock interface {
	Today() civil.Date
	Now() time.Time
}

// BusinessClock reads wall-clock time in a fixed business timezone.
type BusinessClock struct {
	loc *time.Location
	now func() time.Time
}

func NewBusinessClock(loc *time.Location) *BusinessClock {
	return NewBusinessClockWithNow(loc, time.Now)
}

// NewBusinessClockWithNow uses now instead of time.Now.
func NewBusinessClockWithNow(loc *time.Location, now func() time.Time) *BusinessClock {
	if loc == nil {
		loc = time.UTC
	}
	return &BusinessClock{loc: loc, now: now}
}

// Today returns the calendar day in the business timezone.
func (c *BusinessClock) Today() civil.Date {
	return civil.DateOf(c.now().In(c.loc))
}

func (c *BusinessClock) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *BusinessClock) Location() *time.Location {
	return c.loc
}

// FixedClock always reports the same day.
type FixedClock struct {
	Date civil.Date
}

func (c FixedClock) Today() civil.Date {
	return c.Date
}

// Now returns noon UTC of Date.
func (c FixedClock) Now() time.Time {
	return c.Date.In(time.UTC).Add(12 * time.Hour)
}
