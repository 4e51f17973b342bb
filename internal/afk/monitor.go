// Package afk watches for trainee inactivity during a session.
package afk

import "time"

// Defaults for the inactivity watchdog.
const (
	DefaultTimeout = 60 * time.Second
	DefaultLimit   = 3
)

// Outcome is the result of a watchdog check.
type Outcome int

const (
	// Active means nothing happened.
	Active Outcome = iota
	// Warning means the trainee was idle too long and must acknowledge.
	Warning
	// Terminal means the strike limit was reached and the session must end.
	Terminal
)

func (o Outcome) String() string {
	switch o {
	case Active:
		return "active"
	case Warning:
		return "warning"
	case Terminal:
		return "terminal"
	}
	return "unknown"
}

// Monitor counts idle strikes. It is driven by the session tick and holds no
// timers of its own.
type Monitor struct {
	timeout  time.Duration
	limit    int
	strikes  int
	last     time.Time
	waiting  bool
	finished bool
}

// New creates a monitor whose idle timer starts at now.
func New(timeout time.Duration, limit int, now time.Time) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Monitor{timeout: timeout, limit: limit, last: now}
}

// Touch records pointer or keyboard activity. Activity while a warning is
// pending does not count; only Acknowledge clears a warning.
func (m *Monitor) Touch(now time.Time) {
	if m.waiting || m.finished {
		return
	}
	m.last = now
}

// Check evaluates the idle timer at now.
func (m *Monitor) Check(now time.Time) Outcome {
	if m.waiting || m.finished {
		return Active
	}
	if now.Sub(m.last) < m.timeout {
		return Active
	}
	m.strikes++
	if m.strikes >= m.limit {
		m.finished = true
		return Terminal
	}
	m.waiting = true
	return Warning
}

// Acknowledge dismisses a pending warning and restarts the idle timer.
func (m *Monitor) Acknowledge(now time.Time) {
	if !m.waiting {
		return
	}
	m.waiting = false
	m.last = now
}

// Stop disables the monitor for good.
func (m *Monitor) Stop() {
	m.finished = true
	m.waiting = false
}

// Strikes returns the number of idle timeouts so far.
func (m *Monitor) Strikes() int { return m.strikes }

// Limit returns the strike count that ends a session.
func (m *Monitor) Limit() int { return m.limit }

// Waiting reports whether a warning awaits acknowledgment.
func (m *Monitor) Waiting() bool { return m.waiting }
