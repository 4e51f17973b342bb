package afk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThreeStrikes(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	m := New(60*time.Second, 3, start)
	now := start

	for strike := 1; strike <= 2; strike++ {
		now = now.Add(59 * time.Second)
		assert.Equal(t, Active, m.Check(now))
		now = now.Add(time.Second)
		assert.Equal(t, Warning, m.Check(now), "strike %d", strike)
		assert.True(t, m.Waiting())
		assert.Equal(t, strike, m.Strikes())

		// No further strikes while the warning is open
		assert.Equal(t, Active, m.Check(now.Add(10*time.Minute)))
		m.Acknowledge(now)
		assert.False(t, m.Waiting())
	}

	now = now.Add(60 * time.Second)
	assert.Equal(t, Terminal, m.Check(now))
	assert.Equal(t, 3, m.Strikes())

	// Finished monitors never fire again
	assert.Equal(t, Active, m.Check(now.Add(time.Hour)))
}

func TestActivityResetsTimer(t *testing.T) {
	t.Parallel()

	start := time.Unix(0, 0)
	m := New(time.Minute, 3, start)

	for i := 1; i <= 10; i++ {
		now := start.Add(time.Duration(i) * 50 * time.Second)
		m.Touch(now)
		assert.Equal(t, Active, m.Check(now.Add(55*time.Second)))
	}
	assert.Zero(t, m.Strikes())
}

func TestTouchDuringWarningIgnored(t *testing.T) {
	t.Parallel()

	start := time.Unix(0, 0)
	m := New(time.Minute, 3, start)
	assert.Equal(t, Warning, m.Check(start.Add(time.Minute)))

	m.Touch(start.Add(61 * time.Second))
	assert.True(t, m.Waiting())
	assert.Equal(t, Active, m.Check(start.Add(10*time.Minute)), "no new strike while waiting")
	assert.Equal(t, 1, m.Strikes())
}

func TestDefaultsAndStop(t *testing.T) {
	t.Parallel()

	start := time.Unix(0, 0)
	m := New(0, 0, start)
	assert.Equal(t, DefaultLimit, m.Limit())
	assert.Equal(t, Warning, m.Check(start.Add(DefaultTimeout)))

	m.Stop()
	assert.False(t, m.Waiting())
	assert.Equal(t, Active, m.Check(start.Add(time.Hour)))
}
