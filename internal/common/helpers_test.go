package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, 1, Outcome(2, 1))
	assert.Equal(t, -1, Outcome(0, 3))
	assert.Equal(t, 0, Outcome(1, 1))
	assert.Equal(t, 0, Outcome(0, 0))
}

func TestPluralizeDays(t *testing.T) {
	cases := map[int]string{
		1:  "день",
		2:  "дня",
		4:  "дня",
		5:  "дней",
		7:  "дней",
		11: "дней",
		12: "дней",
		21: "день",
		22: "дня",
	}
	for n, want := range cases {
		assert.Equal(t, want, PluralizeDays(n), "n=%d", n)
	}
	assert.Equal(t, "7 дней", FormatDays(7))
}

func TestDays(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, Days(7))
	assert.Equal(t, 86400*time.Second, Days(1))
}

func TestFixedClock(t *testing.T) {
	now := time.Date(2026, 6, 11, 15, 0, 0, 0, time.UTC)
	var c Clock = FixedClock{T: now}
	assert.True(t, c.Now().Equal(now))
}
