// Package animation drives the conveyor belt: it slides a view's image from
// off-screen left to past the right edge, one step per frame.
package animation

import (
	"xray-cbt/internal/item"
)

// State is the scheduler lifecycle.
type State int

const (
	Idle State = iota
	Entering
	Exited
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Entering:
		return "entering"
	case Exited:
		return "exited"
	}
	return "unknown"
}

// DefaultSpeed is the belt advance in pixels per frame.
const DefaultSpeed = 2.0

// Belt is the surface a scheduler moves.
type Belt interface {
	SetBeltX(x float64)
	Width() float64
}

// Event reports that a view's image left the belt.
type Event struct {
	View       item.View
	Generation uint64
}

// Queue collects completion events until the controller drains them.
type Queue struct {
	events []Event
}

// Push appends an event.
func (q *Queue) Push(ev Event) {
	q.events = append(q.events, ev)
}

// Drain returns and removes all pending events in arrival order.
func (q *Queue) Drain() []Event {
	out := q.events
	q.events = nil
	return out
}

// Scheduler animates one view. Pause and Resume only gate the advance step;
// the scheduler keeps being stepped every frame.
type Scheduler struct {
	view       item.View
	belt       Belt
	queue      *Queue
	speed      float64
	state      State
	x          float64
	paused     bool
	generation uint64
}

// New creates an idle scheduler that publishes completions on queue.
func New(view item.View, belt Belt, speed float64, queue *Queue) *Scheduler {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	return &Scheduler{view: view, belt: belt, queue: queue, speed: speed}
}

// Start places the image just off the left edge and begins advancing it.
// The completion event will carry generation.
func (s *Scheduler) Start(imageWidth float64, generation uint64) {
	s.x = -imageWidth
	s.paused = false
	s.generation = generation
	s.state = Entering
	s.belt.SetBeltX(s.x)
}

// Stop cancels the animation without publishing a completion.
func (s *Scheduler) Stop() {
	s.state = Idle
	s.paused = false
}

// Step advances one frame. It reports whether the belt moved.
func (s *Scheduler) Step() bool {
	if s.state != Entering || s.paused {
		return false
	}
	s.x += s.speed
	s.belt.SetBeltX(s.x)
	if s.x > s.belt.Width() {
		s.state = Exited
		s.queue.Push(Event{View: s.view, Generation: s.generation})
	}
	return true
}

// Pause stops the belt advancing.
func (s *Scheduler) Pause() { s.paused = true }

// Resume lets the belt advance again.
func (s *Scheduler) Resume() { s.paused = false }

// Paused reports whether advancing is suspended.
func (s *Scheduler) Paused() bool { return s.paused }

// Running reports whether the image is still on the belt.
func (s *Scheduler) Running() bool { return s.state == Entering }

// State returns the lifecycle state.
func (s *Scheduler) State() State { return s.state }
