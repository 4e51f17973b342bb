package session

import (
	"context"
	"sync"
	"time"
)

// Runner drives a controller from a ticker at the frame rate. Start and
// every Tick run on the runner's goroutine.
type Runner struct {
	ctrl     *Controller
	interval time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewRunner creates a runner ticking every interval.
func NewRunner(ctrl *Controller, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Runner{
		ctrl:     ctrl,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the session in a background goroutine.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop ends the loop and waits for it to exit. The session is not
// finished; post Abort first to end it properly.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.done
}

// Done is closed when the loop exits, either because the session finished
// or because Stop was called.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	r.ctrl.Start(ctx, r.now())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ctrl.Tick(ctx, r.now())
			if r.ctrl.State() == Finished {
				return
			}
		}
	}
}
