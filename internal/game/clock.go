package game

import (
	"fmt"
	"time"
)

// Night spans from NightStart until DayStart, in hours.
const (
	NightStart = 22
	DayStart   = 7
)

// Clock is the in-game day clock. It advances by simulation time scaled by a
// multiplier.
type Clock struct {
	elapsed    time.Duration // in-game time since day 1, 00:00
	multiplier float64
}

// NewClock returns a clock set to day 1 at the given hour.
func NewClock(hour int, multiplier float64) *Clock {
	if multiplier <= 0 {
		multiplier = DefaultClockMultiplier
	}
	return &Clock{elapsed: time.Duration(hour) * time.Hour, multiplier: multiplier}
}

// Advance moves the clock forward by dt of simulation time.
func (c *Clock) Advance(dt time.Duration) {
	c.elapsed += time.Duration(float64(dt) * c.multiplier)
}

// Set jumps to an absolute in-game time.
func (c *Clock) Set(elapsed time.Duration) {
	if elapsed < 0 {
		elapsed = 0
	}
	c.elapsed = elapsed
}

// Elapsed returns in-game time since day 1, 00:00.
func (c *Clock) Elapsed() time.Duration { return c.elapsed }

// Day returns the 1-based day number.
func (c *Clock) Day() int { return int(c.elapsed/(24*time.Hour)) + 1 }

// Hour returns the hour of day, 0-23.
func (c *Clock) Hour() int { return int(c.elapsed/time.Hour) % 24 }

// Minute returns the minute of the hour.
func (c *Clock) Minute() int { return int(c.elapsed/time.Minute) % 60 }

// Second returns the second of the minute.
func (c *Clock) Second() int { return int(c.elapsed/time.Second) % 60 }

// Night reports whether lights should be on.
func (c *Clock) Night() bool {
	h := c.Hour()
	return h >= NightStart || h < DayStart
}

func (c *Clock) String() string {
	return fmt.Sprintf("Day %d %02d:%02d", c.Day(), c.Hour(), c.Minute())
}
