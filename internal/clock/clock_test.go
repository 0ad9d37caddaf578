package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSplitsStart(t *testing.T) {
	tm := New(16*60+5, 10)
	assert.Equal(t, 16, tm.Hours)
	assert.Equal(t, 5, tm.Minutes)
	assert.Equal(t, "16:05", tm.String())
}

func TestTickRollsOver(t *testing.T) {
	tm := New(23*60+59, 10)
	tm.Tick(0.1)
	assert.Equal(t, 1, tm.Days)
	assert.Equal(t, 0, tm.Hours)
	assert.Equal(t, 0, tm.Minutes)
	assert.Equal(t, int64(MinutesPerDay), tm.Total())
}

func TestTickLargeStep(t *testing.T) {
	tm := New(0, 10)
	tm.Tick(3)
	assert.Equal(t, int64(30), tm.Total())
	assert.Equal(t, int64(25), tm.Elapsed(5))
}

func TestBetweenWraps(t *testing.T) {
	night := New(23*60, 1)
	assert.True(t, night.Between(22, 7))
	assert.False(t, night.Between(9, 18))
	morning := New(6*60+59, 1)
	assert.True(t, morning.Between(22, 7))
	assert.False(t, New(7*60, 1).Between(22, 7))
}

func TestClockShared(t *testing.T) {
	c := NewClock(New(60, 1))
	c.Tick(1)
	assert.Equal(t, int64(61), c.Now().Total())
}
