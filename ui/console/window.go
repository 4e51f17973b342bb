// Package console provides the trainee's screening window.
package console

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"xray-cbt/internal/item"
	"xray-cbt/internal/report"
	"xray-cbt/internal/scoring"
	"xray-cbt/internal/session"
	"xray-cbt/internal/version"
)

const (
	appID       = "xray-cbt"
	refreshRate = 30 // repaints per second
	stopTimeout = 10 * time.Second
)

// Window is the screening console: both belt views, the category picker
// and the status line.
type Window struct {
	fyne.Window
	ctrl   *session.Controller
	runner *session.Runner

	views       [2]*viewWidget
	categories  *widget.RadioGroup
	confirm     *widget.Button
	filterLabel *widget.Label
	statusBar   *widget.Label

	mu       sync.Mutex
	focused  item.View
	catIDs   map[string]int
	closing  bool
	afkShown dialog.Dialog

	stopRefresh chan struct{}
	stopOnce    sync.Once
}

// New creates the console window for ctrl. runner drives ctrl and is
// stopped when the window closes.
func New(fyneApp fyne.App, ctrl *session.Controller, runner *session.Runner) *Window {
	w := &Window{
		Window:      fyneApp.NewWindow("X-ray CBT " + version.String()),
		ctrl:        ctrl,
		runner:      runner,
		catIDs:      make(map[string]int),
		stopRefresh: make(chan struct{}),
	}

	w.setupUI()
	w.setupKeys()
	w.setupEvents()
	w.SetCloseIntercept(w.requestClose)
	w.Resize(fyne.NewSize(1400, 900))
	return w
}

func (w *Window) post(in session.Input) {
	if !w.ctrl.Post(in) {
		slog.Warn("Input dropped", "kind", in.Kind)
	}
}

func (w *Window) setFocus(v item.View) {
	w.mu.Lock()
	w.focused = v
	w.mu.Unlock()
}

func (w *Window) focusedView() item.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

func (w *Window) setupUI() {
	for _, v := range []item.View{item.Top, item.Side} {
		w.views[v] = newViewWidget(v, w.ctrl.Renderer(v), w.post, w.setFocus)
	}

	w.categories = widget.NewRadioGroup(nil, func(name string) {
		w.mu.Lock()
		id, ok := w.catIDs[name]
		w.mu.Unlock()
		if ok {
			w.post(session.Select(id))
		}
	})

	w.confirm = widget.NewButtonWithIcon("Confirm", theme.ConfirmIcon(), func() {
		w.post(session.Confirm())
	})
	w.confirm.Importance = widget.HighImportance

	pause := widget.NewButtonWithIcon("Pause", theme.MediaPauseIcon(), func() {
		w.post(session.TogglePause())
	})
	reset := widget.NewButtonWithIcon("Reset", theme.ViewRefreshIcon(), func() {
		w.post(session.ResetView())
	})

	w.filterLabel = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	w.statusBar = widget.NewLabel("Loading items...")

	help := widget.NewLabelWithStyle(
		"Q gray  W invert  A organic  S strip  D bright  F enhance  E edge  R reset  Space pause  +/- zoom",
		fyne.TextAlignLeading, fyne.TextStyle{Italic: true})

	side := container.NewBorder(
		container.NewVBox(widget.NewLabelWithStyle("Category", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})),
		container.NewVBox(w.filterLabel, container.NewGridWithColumns(2, pause, reset), w.confirm),
		nil, nil,
		container.NewVScroll(w.categories),
	)

	belts := container.NewGridWithColumns(2, w.views[item.Top], w.views[item.Side])
	split := container.NewHSplit(belts, side)
	split.SetOffset(0.8)

	w.SetContent(container.NewBorder(
		nil,
		container.NewVBox(w.statusBar, help),
		nil, nil,
		split,
	))
}

func (w *Window) setupKeys() {
	c := w.Canvas()
	c.SetOnTypedRune(func(r rune) {
		if in, ok := runeInput(r, w.focusedView()); ok {
			w.post(in)
			return
		}
		w.post(session.Activity())
	})
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if in, ok := keyInput(ev.Name); ok {
			w.post(in)
		}
	})
}

// setupEvents registers controller listeners. They run on the runner
// goroutine; widget updates are safe from there.
func (w *Window) setupEvents() {
	w.ctrl.On(session.EventItemStarted, func(any) {
		w.loadCategories()
		w.categories.SetSelected("")
	})

	w.ctrl.On(session.EventAFKWarning, func(data any) {
		strikes, _ := data.(int)
		st := w.ctrl.Status()
		d := dialog.NewInformation("Are you still there?",
			fmt.Sprintf("No activity detected (%d of %d). Press OK to continue.", strikes, st.StrikeLimit),
			w.Window)
		d.SetOnClosed(func() {
			w.post(session.Acknowledge())
		})
		w.mu.Lock()
		w.afkShown = d
		w.mu.Unlock()
		d.Show()
	})

	w.ctrl.On(session.EventHalted, func(data any) {
		err, _ := data.(error)
		if err == nil {
			return
		}
		dialog.ShowError(fmt.Errorf("session stopped: %w", err), w.Window)
	})

	w.ctrl.On(session.EventFinished, func(data any) {
		sum, _ := data.(scoring.Summary)
		w.mu.Lock()
		closing := w.closing
		if w.afkShown != nil {
			w.afkShown.Hide()
			w.afkShown = nil
		}
		w.mu.Unlock()

		if closing || sum.EndReason == scoring.EndAFK {
			slog.Info("Session ended", "reason", sum.EndReason)
			w.closeNow()
			return
		}
		w.showSummary(sum)
	})
}

// loadCategories fills the picker once the controller has fetched them.
func (w *Window) loadCategories() {
	w.mu.Lock()
	loaded := len(w.catIDs) > 0
	w.mu.Unlock()
	if loaded {
		return
	}

	cats := w.ctrl.Categories()
	names := make([]string, 0, len(cats))
	ids := make(map[string]int, len(cats))
	for _, c := range cats {
		name := c.Name
		if _, dup := ids[name]; dup || name == "" {
			name = fmt.Sprintf("%s (%d)", c.Name, c.ID)
		}
		ids[name] = c.ID
		names = append(names, name)
	}

	w.mu.Lock()
	w.catIDs = ids
	w.mu.Unlock()
	w.categories.Options = names
	w.categories.Refresh()
}

func (w *Window) showSummary(sum scoring.Summary) {
	var buf bytes.Buffer
	if err := report.Text(&buf, sum, w.ctrl.CategoryName); err != nil {
		slog.Error("Failed to format summary", "err", err)
	}
	text := widget.NewLabelWithStyle(buf.String(), fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
	d := dialog.NewCustom("Session complete", "Close", container.NewVScroll(text), w.Window)
	d.Resize(fyne.NewSize(640, 520))
	d.SetOnClosed(w.closeNow)
	d.Show()
}

// refreshLoop repaints both views and the status line until the window
// closes.
func (w *Window) refreshLoop() {
	ticker := time.NewTicker(time.Second / refreshRate)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopRefresh:
			return
		case <-ticker.C:
			w.views[item.Top].Refresh()
			w.views[item.Side].Refresh()
			w.updateStatus(w.ctrl.Status())
		}
	}
}

func (w *Window) updateStatus(st session.Status) {
	w.filterLabel.SetText(st.Filter.Label())
	w.statusBar.SetText(statusLine(st))
	if st.Selected == item.NoneCategory || st.State != session.Presenting {
		w.confirm.Disable()
	} else {
		w.confirm.Enable()
	}
}

// statusLine formats the bottom status text.
func statusLine(st session.Status) string {
	switch st.State {
	case session.Loading:
		return "Loading items..."
	case session.Halted:
		return fmt.Sprintf("Stopped: %v", st.Err)
	}
	remaining := st.Remaining.Truncate(time.Second)
	line := fmt.Sprintf("Item %s | Time left %s | Score %d | Hit %.1f%% | False alarm %.1f%% | Idle %d/%d",
		st.Item, remaining, st.Score, st.HitRate, st.FalseAlarmRate, st.Strikes, st.StrikeLimit)
	if st.Paused {
		line += " | PAUSED"
	}
	return line
}

// requestClose aborts a running session and closes once it has been
// submitted.
func (w *Window) requestClose() {
	if w.ctrl.Status().State == session.Finished {
		w.closeNow()
		return
	}
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()
	w.post(session.Abort())

	go func() {
		select {
		case <-w.runner.Done():
		case <-time.After(stopTimeout):
			slog.Warn("Session did not stop in time")
		}
		w.closeNow()
	}()
}

func (w *Window) closeNow() {
	w.stopOnce.Do(func() {
		close(w.stopRefresh)
		w.Close()
	})
}

// Run shows the console and blocks until it is closed.
func Run(ctx context.Context, ctrl *session.Controller, runner *session.Runner) error {
	fyneApp := app.NewWithID(appID)
	fyneApp.Settings().SetTheme(&consoleTheme{})
	w := New(fyneApp, ctrl, runner)

	runner.Start(ctx)
	go w.refreshLoop()
	go func() {
		select {
		case <-ctx.Done():
			w.requestClose()
		case <-runner.Done():
		}
	}()

	w.ShowAndRun()
	runner.Stop()

	if sum, ok := ctrl.Summary(); ok {
		slog.Info("Session summary", "hits", sum.Hits, "falseAlarms", sum.FalseAlarms,
			"efficiency", sum.Efficiency, "reason", sum.EndReason)
	}
	if st := ctrl.Status(); st.Err != nil {
		return st.Err
	}
	return nil
}
