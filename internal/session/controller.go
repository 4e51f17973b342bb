// Package session runs a training session: it presents baggage items on
// two belts, takes the trainee's clicks and category choices, scores the
// answers and ends on the countdown, an abort or the idle watchdog.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"xray-cbt/internal/afk"
	"xray-cbt/internal/animation"
	"xray-cbt/internal/config"
	"xray-cbt/internal/filter"
	"xray-cbt/internal/item"
	"xray-cbt/internal/scoring"
	"xray-cbt/internal/supplier"
	"xray-cbt/internal/viewport"
	"xray-cbt/pkg/geometry"
)

// State is the controller lifecycle.
type State int

const (
	Loading State = iota
	Presenting
	Halted
	Finished
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Presenting:
		return "presenting"
	case Halted:
		return "halted"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// ErrNoItems is reported when the supplier returns an empty batch.
var ErrNoItems = errors.New("supplier returned no items")

const inputBuffer = 256

// Options configures a session.
type Options struct {
	Operator      string
	Area          int
	Category      string // category id or "all"
	Duration      time.Duration
	CleanCategory int
	Hidden        map[int][]int
	BeltSpeed     float64
	AFKTimeout    time.Duration
	AFKLimit      int
	Top           viewport.Options
	Side          viewport.Options
}

// OptionsFromConfig derives session options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	vp := viewport.DefaultOptions()
	vp.Width = cfg.Viewport.Width
	vp.Height = cfg.Viewport.Height
	vp.MinZoom = cfg.Viewport.MinZoom
	vp.MaxZoom = cfg.Viewport.MaxZoom
	vp.ZoomStep = cfg.Viewport.ZoomStep
	side := vp
	side.CalibrationY = cfg.Viewport.SideCalibrationY

	return Options{
		Operator:      cfg.Session.Operator,
		Area:          cfg.Session.Area,
		Category:      cfg.Session.Category,
		Duration:      cfg.Session.Duration,
		CleanCategory: cfg.Session.CleanCategory,
		Hidden:        cfg.Session.HiddenCategories,
		BeltSpeed:     cfg.Belt.Speed,
		AFKTimeout:    cfg.AFK.Timeout,
		AFKLimit:      cfg.AFK.StrikeLimit,
		Top:           vp,
		Side:          side,
	}
}

// Recorder keeps the finished summary locally.
type Recorder interface {
	Save(s scoring.Summary) error
}

// Status is a read-only snapshot for the UI.
type Status struct {
	State          State
	Item           string
	Remaining      time.Duration
	Score          int
	Hits           int
	FalseAlarms    int
	HitRate        float64
	FalseAlarmRate float64
	Strikes        int
	StrikeLimit    int
	Paused         bool
	AFKWarning     bool
	Filter         filter.Kind
	Selected       int
	Err            error
}

// Controller owns the session state. Post, Status, Categories, CategoryName
// and the renderers' Snapshot are safe from any goroutine; everything else
// belongs to the goroutine driving Start and Tick.
type Controller struct {
	opts     Options
	backend  supplier.Backend
	recorder Recorder

	renderers  [2]*viewport.Renderer
	schedulers [2]*animation.Scheduler
	queue      animation.Queue
	stats      *scoring.Stats
	idle       *afk.Monitor
	catalog    *item.Catalog
	inputs     chan Input

	state        State
	batch        []item.Baggage
	index        int
	loadFailures int
	current      *item.Baggage
	generation   uint64
	inside       [2]bool
	selected     int
	sessionID    string
	startedAt    time.Time
	lastTick     time.Time
	remaining    time.Duration
	err          error
	summary      *scoring.Summary

	mu        sync.RWMutex
	listeners map[EventType][]Listener
	status    Status
	visible   []item.Category
}

// New creates a controller. recorder may be nil.
func New(opts Options, backend supplier.Backend, recorder Recorder) *Controller {
	if opts.Category == "" {
		opts.Category = "all"
	}
	c := &Controller{
		opts:      opts,
		backend:   backend,
		recorder:  recorder,
		stats:     scoring.NewStats(),
		catalog:   item.NewCatalog(nil),
		inputs:    make(chan Input, inputBuffer),
		listeners: make(map[EventType][]Listener),
		remaining: opts.Duration,
	}
	c.renderers[item.Top] = viewport.New(opts.Top)
	c.renderers[item.Side] = viewport.New(opts.Side)
	for _, v := range item.Views {
		c.schedulers[v] = animation.New(v, c.renderers[v], opts.BeltSpeed, &c.queue)
	}
	return c
}

// Renderer returns the renderer of a view.
func (c *Controller) Renderer(v item.View) *viewport.Renderer {
	return c.renderers[v]
}

// Post queues an input for the next tick. It reports false when the queue
// is full and the input was dropped.
func (c *Controller) Post(in Input) bool {
	select {
	case c.inputs <- in:
		return true
	default:
		slog.Debug("Dropping input, queue full", "kind", in.Kind)
		return false
	}
}

// Status returns the latest published snapshot.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Categories returns the categories offered in the session's area.
func (c *Controller) Categories() []item.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]item.Category(nil), c.visible...)
}

// CategoryName resolves a category id using the supplier's names.
func (c *Controller) CategoryName(id int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog.Name(id)
}

// Summary returns the final summary once the session has finished. Call it
// from the tick goroutine or after the runner has stopped.
func (c *Controller) Summary() (scoring.Summary, bool) {
	if c.summary == nil {
		return scoring.Summary{}, false
	}
	return *c.summary, true
}

// State returns the lifecycle state. Like Tick it belongs to the tick
// goroutine; other goroutines read Status().State.
func (c *Controller) State() State {
	return c.state
}

// Start fetches the categories and the first batch, and starts the clocks.
func (c *Controller) Start(ctx context.Context, now time.Time) {
	c.sessionID = uuid.NewString()
	c.startedAt = now
	c.lastTick = now
	c.idle = afk.New(c.opts.AFKTimeout, c.opts.AFKLimit, now)
	slog.Info("Session started", "session", c.sessionID, "area", c.opts.Area, "category", c.opts.Category, "duration", c.opts.Duration)

	cats, err := c.backend.Categories(ctx)
	if err != nil {
		c.halt(err)
		c.publish()
		return
	}
	c.mu.Lock()
	c.catalog = item.NewCatalog(cats)
	c.visible = c.catalog.Visible(c.opts.Area, c.opts.Hidden)
	c.mu.Unlock()

	c.advance(ctx)
	c.drawAll()
	c.publish()
}

// Tick runs one frame: inputs, countdown, idle watchdog, belts and
// completion events, then redraws.
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	if c.state == Finished || c.idle == nil {
		return
	}

	// The countdown stands still while an idle warning is showing.
	waiting := c.idle.Waiting()
	c.drainInputs(ctx, now)
	if c.state == Finished {
		return
	}

	if !waiting {
		c.remaining -= now.Sub(c.lastTick)
	}
	c.lastTick = now
	if c.remaining <= 0 {
		c.remaining = 0
		c.finish(ctx, scoring.EndTimeout, now)
		return
	}

	switch c.idle.Check(now) {
	case afk.Warning:
		c.pauseBelts()
		slog.Info("Idle warning", "strike", c.idle.Strikes(), "limit", c.idle.Limit())
		c.publish()
		c.emit(EventAFKWarning, c.idle.Strikes())
	case afk.Terminal:
		slog.Warn("Idle limit reached", "strikes", c.idle.Strikes())
		c.finish(ctx, scoring.EndAFK, now)
		return
	}

	if c.state == Presenting {
		for _, s := range c.schedulers {
			s.Step()
		}
		c.consumeCompletions(ctx)
	}

	c.drawAll()
	c.publish()
}

func (c *Controller) drainInputs(ctx context.Context, now time.Time) {
	for {
		select {
		case in := <-c.inputs:
			c.handle(ctx, in, now)
			if c.state == Finished {
				return
			}
		default:
			return
		}
	}
}

func (c *Controller) handle(ctx context.Context, in Input, now time.Time) {
	if in.Kind != InputAcknowledge {
		c.idle.Touch(now)
	}

	switch in.Kind {
	case InputClick:
		c.click(in.View, geometry.NewPoint2D(in.X, in.Y))
	case InputZoom:
		c.renderers[in.View].Zoom(in.Steps)
	case InputPan:
		c.renderers[in.View].Pan(in.X, in.Y)
	case InputFilter:
		for _, r := range c.renderers {
			r.SetFilter(in.Filter)
		}
	case InputResetView:
		for _, r := range c.renderers {
			r.Reset()
		}
	case InputTogglePause:
		if c.state != Presenting || c.idle.Waiting() {
			return
		}
		if c.beltsPaused() {
			c.resumeBelts()
		} else {
			c.pauseBelts()
		}
	case InputSelect:
		c.selected = in.Category
	case InputConfirm:
		if c.state != Presenting || c.current == nil {
			return
		}
		if c.selected == item.NoneCategory {
			slog.Debug("Confirm without a category ignored", "item", c.current.Code)
			return
		}
		c.answer(ctx, c.selected, false)
	case InputAcknowledge:
		if c.idle.Waiting() {
			c.idle.Acknowledge(now)
			c.resumeBelts()
		}
	case InputAbort:
		c.finish(ctx, scoring.EndAbort, now)
	}
}

// click marks a position and records whether it hit the view's target.
// Only a paused view accepts clicks.
func (c *Controller) click(v item.View, p geometry.Point2D) {
	if c.state != Presenting || c.current == nil || !c.schedulers[v].Paused() {
		return
	}
	r := c.renderers[v]
	r.SetMarker(p)
	c.inside[v] = r.HitTest(p, c.current.Region(v))
	slog.Debug("Click", "item", c.current.Code, "view", v, "x", p.X, "y", p.Y, "inside", c.inside[v])
}

// consumeCompletions handles belt exits from the current item. Exits from
// earlier items are dropped.
func (c *Controller) consumeCompletions(ctx context.Context) {
	exited := false
	for _, ev := range c.queue.Drain() {
		if ev.Generation != c.generation {
			slog.Debug("Dropping stale belt exit", "view", ev.View, "generation", ev.Generation)
			continue
		}
		exited = true
	}
	if !exited {
		return
	}
	for _, s := range c.schedulers {
		if s.Running() {
			return
		}
	}
	c.answer(ctx, item.NoneCategory, true)
}

// answer scores the current item and moves to the next.
func (c *Controller) answer(ctx context.Context, chosen int, missed bool) {
	it := *c.current
	inside := c.inside[item.Top] || c.inside[item.Side]
	correct := !missed && scoring.Evaluate(it.CategoryID, chosen, c.opts.CleanCategory, inside)

	if correct {
		c.stats.RecordCorrect(it.CategoryID)
	} else {
		c.stats.RecordWrong(scoring.WrongAnswer{
			ItemID:     it.ID,
			Code:       it.Code,
			ExpectedID: it.CategoryID,
			Expected:   c.catalog.Name(it.CategoryID),
			ChosenID:   chosen,
			Chosen:     c.catalog.Name(chosen),
			Regions:    it.Regions,
		})
	}
	slog.Info("Item scored", "item", it.Code, "expected", it.CategoryID, "chosen", chosen, "correct", correct, "missed", missed)

	c.emit(EventAnswered, Result{Item: it, Chosen: chosen, Correct: correct, Missed: missed})
	c.advance(ctx)
}

// advance cancels the current item and presents the next one that loads,
// fetching a new batch when the current one is used up.
func (c *Controller) advance(ctx context.Context) {
	c.generation++
	c.queue.Drain()
	for _, s := range c.schedulers {
		s.Stop()
	}
	c.current = nil
	c.state = Loading

	for {
		if c.index >= len(c.batch) {
			if len(c.batch) > 0 && c.loadFailures >= len(c.batch) {
				c.halt(fmt.Errorf("%w: no image in the batch could be loaded", supplier.ErrImageLoad))
				return
			}
			batch, err := c.backend.Items(ctx, c.opts.Area, c.opts.Category)
			if err != nil {
				c.halt(err)
				return
			}
			if len(batch) == 0 {
				c.halt(ErrNoItems)
				return
			}
			c.batch, c.index = batch, 0
		}

		it := c.batch[c.index]
		c.index++
		if err := c.present(ctx, it); err != nil {
			c.loadFailures++
			slog.Warn("Skipping item", "item", it.Code, "err", err)
			continue
		}
		c.loadFailures = 0
		return
	}
}

// present loads both images of it and starts the belts.
func (c *Controller) present(ctx context.Context, it item.Baggage) error {
	var imgs [2]image.Image
	for _, v := range item.Views {
		img, err := c.backend.Image(ctx, it.Image(v))
		if err != nil {
			return fmt.Errorf("%s view: %w", v, err)
		}
		imgs[v] = img
	}

	c.current = &it
	c.inside = [2]bool{}
	c.selected = item.NoneCategory
	for _, v := range item.Views {
		r := c.renderers[v]
		r.SetImage(imgs[v])
		c.schedulers[v].Start(r.ImageWidth(), c.generation)
	}
	c.state = Presenting
	c.emit(EventItemStarted, it)
	return nil
}

func (c *Controller) halt(err error) {
	c.state = Halted
	c.err = err
	c.current = nil
	for _, r := range c.renderers {
		r.SetImage(nil)
	}
	slog.Warn("Session halted", "session", c.sessionID, "err", err)
	c.emit(EventHalted, err)
}

// finish stops everything, then submits and stores the summary.
func (c *Controller) finish(ctx context.Context, reason scoring.EndReason, now time.Time) {
	c.state = Finished
	c.generation++
	c.queue.Drain()
	for _, s := range c.schedulers {
		s.Stop()
	}
	c.idle.Stop()

	sum := c.stats.Summarize(reason, c.startedAt, now)
	sum.SessionID = c.sessionID
	sum.Operator = c.opts.Operator
	sum.Area = c.opts.Area
	sum.Category = c.opts.Category
	sum.TimeUsed = (c.opts.Duration - c.remaining).Seconds()
	sum.CategoryNames = make(map[int]string, len(sum.CategoryStats))
	for id := range sum.CategoryStats {
		sum.CategoryNames[id] = c.catalog.Name(id)
	}
	c.summary = &sum
	slog.Info("Session finished", "session", sum.SessionID, "reason", reason, "score", sum.Score,
		"efficiency", sum.Efficiency, "credit", sum.TimeCredit)

	if err := supplier.SubmitWithRetry(ctx, c.backend, sum); err != nil {
		slog.Warn("Result not submitted", "session", sum.SessionID, "err", err)
	}
	if c.recorder != nil {
		if err := c.recorder.Save(sum); err != nil {
			slog.Warn("Failed to store session summary", "err", err)
		}
	}

	c.publish()
	c.emit(EventFinished, sum)
}

func (c *Controller) pauseBelts() {
	for _, s := range c.schedulers {
		s.Pause()
	}
}

func (c *Controller) resumeBelts() {
	for _, s := range c.schedulers {
		s.Resume()
	}
}

func (c *Controller) beltsPaused() bool {
	return c.schedulers[item.Top].Paused() && c.schedulers[item.Side].Paused()
}

func (c *Controller) drawAll() {
	for _, r := range c.renderers {
		r.Draw()
	}
}

func (c *Controller) publish() {
	st := Status{
		State:          c.state,
		Remaining:      c.remaining,
		Score:          c.stats.Score,
		Hits:           c.stats.Hits,
		FalseAlarms:    c.stats.FalseAlarms,
		HitRate:        c.stats.HitRate(),
		FalseAlarmRate: c.stats.FalseAlarmRate(),
		Paused:         c.state == Presenting && c.beltsPaused(),
		Filter:         c.renderers[item.Top].State().Filter,
		Selected:       c.selected,
		Err:            c.err,
	}
	if c.current != nil {
		st.Item = c.current.Code
	}
	if c.idle != nil {
		st.Strikes = c.idle.Strikes()
		st.StrikeLimit = c.idle.Limit()
		st.AFKWarning = c.idle.Waiting()
	}

	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
}
