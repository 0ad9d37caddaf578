// Package clock keeps simulated time of day.
package clock

import (
	"fmt"
	"sync"
)

// MinutesPerDay is the length of a simulated day.
const MinutesPerDay = 24 * 60

// Time is a simulated timestamp. Fraction accumulates toward the next
// minute at Speed simulated minutes per real second.
type Time struct {
	Days     int
	Hours    int
	Minutes  int
	Fraction float64
	Speed    float64
}

func New(startMinutes int, speed float64) Time {
	return Time{
		Days:    startMinutes / MinutesPerDay,
		Hours:   startMinutes % MinutesPerDay / 60,
		Minutes: startMinutes % 60,
		Speed:   speed,
	}
}

// Tick advances time by dt real seconds.
func (t *Time) Tick(dt float64) {
	t.Fraction += dt * t.Speed
	for t.Fraction >= 1 {
		t.Fraction--
		t.Minutes++
		if t.Minutes >= 60 {
			t.Minutes -= 60
			t.Hours++
			if t.Hours >= 24 {
				t.Hours -= 24
				t.Days++
			}
		}
	}
}

// Total is the number of whole minutes since day zero.
func (t Time) Total() int64 {
	return int64(t.Days)*MinutesPerDay + int64(t.Hours)*60 + int64(t.Minutes)
}

// MinuteOfDay is the number of whole minutes since midnight.
func (t Time) MinuteOfDay() int { return t.Hours*60 + t.Minutes }

// Elapsed returns whole minutes since a Total() reference.
func (t Time) Elapsed(since int64) int64 { return t.Total() - since }

// Between reports whether the time of day lies in [fromHour, toHour).
// Ranges may wrap past midnight.
func (t Time) Between(fromHour, toHour int) bool {
	if fromHour <= toHour {
		return t.Hours >= fromHour && t.Hours < toHour
	}
	return t.Hours >= fromHour || t.Hours < toHour
}

func (t Time) String() string { return fmt.Sprintf("%02d:%02d", t.Hours, t.Minutes) }

// Clock guards a Time shared by every agent.
type Clock struct {
	mu sync.RWMutex
	t  Time
}

func NewClock(t Time) *Clock { return &Clock{t: t} }

func (c *Clock) Tick(dt float64) {
	c.mu.Lock()
	c.t.Tick(dt)
	c.mu.Unlock()
}

// Now returns a copy of the current time.
func (c *Clock) Now() Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t
}

// Set replaces the current time.
func (c *Clock) Set(t Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}
