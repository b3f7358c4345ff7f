package progress

import (
	"fmt"
	"time"

	"github.com/dunskii/studyhub/internal/domain"
)

// Clock supplies the current instant and the learner-facing calendar day.
type Clock interface {
	Now() time.Time
	Today() domain.Date
}

// SystemClock reads the wall clock; Today is the date in Location.
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock returns a clock for the named IANA time zone.
func NewSystemClock(timezone string) (SystemClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return SystemClock{}, fmt.Errorf("load time zone %q: %w", timezone, err)
	}
	return SystemClock{Location: loc}, nil
}

func (c SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (c SystemClock) Today() domain.Date {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return domain.DateOf(time.Now().In(loc))
}

// FixedClock always reports the same instant. Day is derived from At in UTC
// unless set explicitly.
type FixedClock struct {
	At  time.Time
	Day domain.Date
}

func (c *FixedClock) Now() time.Time {
	return c.At
}

func (c *FixedClock) Today() domain.Date {
	if !c.Day.IsZero() {
		return c.Day
	}
	return domain.DateOf(c.At.UTC())
}

// Advance moves the clock forward by whole days.
func (c *FixedClock) Advance(days int) {
	c.At = c.At.AddDate(0, 0, days)
	if !c.Day.IsZero() {
		c.Day = c.Day.AddDays(days)
	}
}
