package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xray-cbt/internal/item"
)

type fakeBelt struct {
	x     float64
	width float64
	moves int
}

func (b *fakeBelt) SetBeltX(x float64) {
	b.x = x
	b.moves++
}

func (b *fakeBelt) Width() float64 { return b.width }

func TestSchedulerRunsToExitOnce(t *testing.T) {
	t.Parallel()

	belt := &fakeBelt{width: 10}
	q := &Queue{}
	s := New(item.Top, belt, 2, q)
	assert.Equal(t, Idle, s.State())

	s.Start(4, 7)
	assert.Equal(t, Entering, s.State())
	assert.Equal(t, -4.0, belt.x)

	// -4 -> 12 takes 8 steps; exit when x > 10
	steps := 0
	for s.Running() {
		require.True(t, s.Step())
		steps++
		require.Less(t, steps, 100)
	}
	assert.Equal(t, 8, steps)
	assert.Equal(t, Exited, s.State())
	assert.Equal(t, 12.0, belt.x)

	// Further steps do nothing and publish nothing
	assert.False(t, s.Step())
	events := q.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, Event{View: item.Top, Generation: 7}, events[0])
	assert.Empty(t, q.Drain())
}

func TestSchedulerExactBoundaryDoesNotExit(t *testing.T) {
	t.Parallel()

	belt := &fakeBelt{width: 10}
	q := &Queue{}
	s := New(item.Side, belt, 2, q)
	s.Start(0, 1)
	for i := 0; i < 5; i++ {
		s.Step()
	}
	assert.Equal(t, 10.0, belt.x)
	assert.True(t, s.Running())
	s.Step()
	assert.False(t, s.Running())
	assert.Len(t, q.Drain(), 1)
}

func TestPauseGatesAdvance(t *testing.T) {
	t.Parallel()

	belt := &fakeBelt{width: 100}
	s := New(item.Top, belt, 2, &Queue{})
	s.Start(10, 1)
	s.Step()
	s.Pause()
	assert.True(t, s.Paused())
	for i := 0; i < 50; i++ {
		assert.False(t, s.Step())
	}
	assert.Equal(t, -8.0, belt.x)

	s.Resume()
	assert.True(t, s.Step())
	assert.Equal(t, -6.0, belt.x)
}

func TestStopPublishesNothing(t *testing.T) {
	t.Parallel()

	belt := &fakeBelt{width: 4}
	q := &Queue{}
	s := New(item.Top, belt, 2, q)
	s.Start(0, 3)
	s.Step()
	s.Stop()
	for i := 0; i < 10; i++ {
		s.Step()
	}
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, q.Drain())
}

func TestStartClearsPause(t *testing.T) {
	t.Parallel()

	belt := &fakeBelt{width: 100}
	s := New(item.Top, belt, 0, &Queue{})
	s.Start(5, 1)
	s.Pause()
	s.Start(5, 2)
	assert.False(t, s.Paused())
	assert.True(t, s.Step())
	assert.Equal(t, -5+DefaultSpeed, belt.x)
}
