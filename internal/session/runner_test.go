package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xray-cbt/internal/item"
	"xray-cbt/internal/scoring"
)

func TestRunnerFinishesOnCountdown(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.Duration = 80 * time.Millisecond
	b := newBackend([]item.Baggage{cleanBag})
	ctrl := New(opts, b, nil)

	r := NewRunner(ctrl, 5*time.Millisecond)
	r.Start(context.Background())

	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not finish")
	}
	sum, ok := ctrl.Summary()
	require.True(t, ok)
	assert.Equal(t, scoring.EndTimeout, sum.EndReason)
	assert.Equal(t, Finished, ctrl.Status().State)

	r.Stop()
}

func TestRunnerStopsOnAbortAndContext(t *testing.T) {
	t.Parallel()

	ctrl := New(testOptions(), newBackend([]item.Baggage{cleanBag}), nil)
	r := NewRunner(ctrl, 5*time.Millisecond)
	r.Start(context.Background())
	require.True(t, ctrl.Post(Abort()))
	<-r.Done()
	assert.Equal(t, Finished, ctrl.Status().State)

	ctx, cancel := context.WithCancel(context.Background())
	other := NewRunner(New(testOptions(), newBackend([]item.Baggage{cleanBag}), nil), time.Millisecond)
	other.Start(ctx)
	cancel()
	select {
	case <-other.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("runner ignored cancellation")
	}
	other.Stop()
}

func TestStatusReadableWhileRunning(t *testing.T) {
	t.Parallel()

	ctrl := New(testOptions(), newBackend([]item.Baggage{cleanBag}), nil)
	r := NewRunner(ctrl, time.Millisecond)
	r.Start(context.Background())
	defer r.Stop()

	// Another goroutine watches the lifecycle the way the window does.
	deadline := time.After(5 * time.Second)
	for ctrl.Status().State != Presenting {
		select {
		case <-deadline:
			t.Fatal("session never started")
		case <-time.After(time.Millisecond):
		}
	}
	require.True(t, ctrl.Post(Abort()))
	for ctrl.Status().State != Finished {
		select {
		case <-deadline:
			t.Fatal("session never finished")
		case <-time.After(time.Millisecond):
		}
	}
	<-r.Done()
	sum, ok := ctrl.Summary()
	require.True(t, ok)
	assert.Equal(t, scoring.EndAbort, sum.EndReason)
}
