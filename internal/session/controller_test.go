package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xray-cbt/internal/animation"
	"xray-cbt/internal/filter"
	"xray-cbt/internal/item"
	"xray-cbt/internal/region"
	"xray-cbt/internal/scoring"
	"xray-cbt/internal/supplier"
	"xray-cbt/internal/viewport"
)

const (
	clean = 1
	knife = 3
	frame = 16 * time.Millisecond
)

var (
	cleanBag = item.Baggage{ID: 1, Code: "BG-1", TopImage: "clean_top", SideImage: "clean_side", CategoryID: clean}
	knifeBag = item.Baggage{
		ID: 3, Code: "BG-3", TopImage: "knife_top", SideImage: "knife_side", CategoryID: knife,
		Regions: region.Set{Top: region.NewRect(100, 100, 50, 50), Side: region.NewRect(100, 100, 50, 50)},
	}
)

type fakeBackend struct {
	mu        sync.Mutex
	cats      []item.Category
	catErr    error
	batches   [][]item.Baggage
	itemsErr  error
	broken    map[string]bool
	submitErr error
	fetches   int
	submits   int
	submitted []scoring.Summary
}

func newBackend(batches ...[]item.Baggage) *fakeBackend {
	return &fakeBackend{
		cats:    []item.Category{{ID: clean, Name: "Clean"}, {ID: 2, Name: "Gun"}, {ID: knife, Name: "Knife"}},
		batches: batches,
		broken:  map[string]bool{},
	}
}

func (f *fakeBackend) Categories(context.Context) ([]item.Category, error) {
	return f.cats, f.catErr
}

func (f *fakeBackend) Items(context.Context, int, string) ([]item.Baggage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	return f.batches[min(f.fetches, len(f.batches))-1], nil
}

func (f *fakeBackend) Image(_ context.Context, ref string) (image.Image, error) {
	if f.broken[ref] {
		return nil, fmt.Errorf("%w: %s", supplier.ErrImageLoad, ref)
	}
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{90, 120, 200, 255}), image.Point{}, draw.Src)
	return img, nil
}

func (f *fakeBackend) Submit(_ context.Context, s scoring.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, s)
	return nil
}

type memRecorder struct {
	saved []scoring.Summary
}

func (m *memRecorder) Save(s scoring.Summary) error {
	m.saved = append(m.saved, s)
	return nil
}

func testOptions() Options {
	vp := viewport.DefaultOptions()
	vp.Width, vp.Height = 300, 300
	return Options{
		Operator:      "op-1",
		Area:          1,
		Category:      "all",
		Duration:      10 * time.Minute,
		CleanCategory: clean,
		BeltSpeed:     10,
		AFKTimeout:    time.Minute,
		AFKLimit:      3,
		Top:           vp,
		Side:          vp,
	}
}

type harness struct {
	t   *testing.T
	c   *Controller
	b   *fakeBackend
	rec *memRecorder
	now time.Time
}

func start(t *testing.T, opts Options, b *fakeBackend) *harness {
	t.Helper()
	h := &harness{
		t:   t,
		b:   b,
		rec: &memRecorder{},
		now: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC),
	}
	h.c = New(opts, b, h.rec)
	h.c.Start(context.Background(), h.now)
	return h
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
	h.c.Tick(context.Background(), h.now)
}

func (h *harness) tick(n int) {
	for range n {
		h.advance(frame)
	}
}

func (h *harness) post(inputs ...Input) {
	h.t.Helper()
	for _, in := range inputs {
		require.True(h.t, h.c.Post(in))
	}
	h.tick(1)
}

// pauseOnScreen runs the belt until the image's left edge is at x=100 and
// pauses it. The 200px image is then drawn at (100, 50).
func (h *harness) pauseOnScreen() {
	h.t.Helper()
	h.tick(30)
	require.Equal(h.t, 100.0, h.c.Renderer(item.Top).State().BeltX)
	h.post(TogglePause())
	require.True(h.t, h.c.Status().Paused)
}

func TestCleanBagNeedsNoClick(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{cleanBag, knifeBag}))
	require.Equal(t, Presenting, h.c.State())
	assert.Equal(t, "BG-1", h.c.Status().Item)

	h.post(Select(clean), Confirm())

	st := h.c.Status()
	assert.Equal(t, 1, st.Score)
	assert.Equal(t, 1, st.Hits)
	assert.Equal(t, 0, st.FalseAlarms)
	assert.Equal(t, "BG-3", st.Item)
	assert.Equal(t, item.NoneCategory, st.Selected, "selection resets per item")
}

func TestThreatClickedInside(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{knifeBag, cleanBag}))
	h.pauseOnScreen()

	// Screen (220, 170) maps to image (120, 120).
	h.post(Click(item.Top, 220, 170))
	marker := h.c.Renderer(item.Top).State().Marker
	require.NotNil(t, marker)

	h.post(Select(knife), Confirm())

	st := h.c.Status()
	assert.Equal(t, 1, st.Hits)
	assert.Equal(t, 0, st.FalseAlarms)
	assert.False(t, st.Paused, "next item starts moving")
	assert.Nil(t, h.c.Renderer(item.Top).State().Marker, "marker cleared for the next item")
}

func TestThreatClickedOutsideIsLogged(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{knifeBag, cleanBag}))
	h.pauseOnScreen()

	// Screen (110, 60) maps to image (10, 10).
	h.post(Click(item.Top, 110, 60), Select(knife), Confirm())
	h.post(Abort())

	sum, ok := h.c.Summary()
	require.True(t, ok)
	assert.Equal(t, 0, sum.Hits)
	assert.Equal(t, 1, sum.FalseAlarms)
	require.Len(t, sum.WrongAnswers, 1)

	want := scoring.WrongAnswer{
		ItemID: 3, Code: "BG-3",
		ExpectedID: knife, Expected: "Knife",
		ChosenID: knife, Chosen: "Knife",
		Regions: knifeBag.Regions,
	}
	if diff := cmp.Diff(want, sum.WrongAnswers[0]); diff != "" {
		t.Errorf("wrong answer mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[int]scoring.CategoryStat{knife: {Hits: 0, Total: 1}}, sum.CategoryStats)
}

func TestClickMapsThroughDisplayedFrame(t *testing.T) {
	t.Parallel()

	for name, change := range map[string]Input{
		"zoom":  Zoom(item.Top, 5),
		"reset": ResetView(),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := start(t, testOptions(), newBackend([]item.Baggage{knifeBag, cleanBag}))
			h.pauseOnScreen()

			// The trainee clicked (120, 120) on the frame drawn before the
			// view change landed in the same tick.
			h.post(change, Click(item.Top, 220, 170))
			h.post(Select(knife), Confirm())

			st := h.c.Status()
			assert.Equal(t, 1, st.Hits)
			assert.Equal(t, 0, st.FalseAlarms)
		})
	}
}

func TestClickIgnoredWhileMoving(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{knifeBag}))
	h.tick(30)
	h.post(Click(item.Top, 220, 170))
	assert.Nil(t, h.c.Renderer(item.Top).State().Marker)

	h.post(Select(knife), Confirm())
	assert.Equal(t, 1, h.c.Status().FalseAlarms)
}

func TestClickOnSideView(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{knifeBag}))
	h.pauseOnScreen()
	h.post(Click(item.Side, 220, 170), Select(knife), Confirm())
	assert.Equal(t, 1, h.c.Status().Hits)
}

func TestConfirmWithoutSelectionIgnored(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{cleanBag}))
	h.post(Confirm())
	st := h.c.Status()
	assert.Equal(t, 0, st.Hits+st.FalseAlarms)
	assert.Equal(t, "BG-1", st.Item)
}

func TestBeltExitIsMiss(t *testing.T) {
	t.Parallel()

	b := newBackend([]item.Baggage{knifeBag})
	h := start(t, testOptions(), b)

	var results []Result
	h.c.On(EventAnswered, func(data any) { results = append(results, data.(Result)) })

	// -200 to past 300 at 10px per frame.
	h.tick(50)
	assert.Empty(t, results)
	h.tick(1)

	require.Len(t, results, 1)
	assert.True(t, results[0].Missed)
	assert.False(t, results[0].Correct)
	assert.Equal(t, item.NoneCategory, results[0].Chosen)
	assert.Equal(t, 1, h.c.Status().FalseAlarms)
	assert.Equal(t, 2, b.fetches, "batch exhausted, next one fetched")
	assert.Equal(t, Presenting, h.c.State())

	h.post(Abort())
	sum, _ := h.c.Summary()
	require.Len(t, sum.WrongAnswers, 1)
	assert.Equal(t, "N/A", sum.WrongAnswers[0].Chosen)
}

func TestPausedBeltNeverExits(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{knifeBag}))
	h.pauseOnScreen()
	h.tick(200)
	assert.Equal(t, 0, h.c.Status().FalseAlarms)
	assert.Equal(t, 100.0, h.c.Renderer(item.Side).State().BeltX)

	h.post(TogglePause())
	assert.False(t, h.c.Status().Paused)
}

func TestStaleCompletionDropped(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{knifeBag}))
	h.c.queue.Push(animation.Event{View: item.Top, Generation: h.c.generation - 1})
	h.c.queue.Push(animation.Event{View: item.Side, Generation: h.c.generation - 1})
	h.tick(1)
	assert.Equal(t, 0, h.c.Status().FalseAlarms)
	assert.Equal(t, "BG-3", h.c.Status().Item)
}

func TestViewInputs(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{knifeBag}))
	top, side := h.c.Renderer(item.Top), h.c.Renderer(item.Side)

	h.post(SetFilter(filter.Invert))
	assert.Equal(t, filter.Invert, top.State().Filter)
	assert.Equal(t, filter.Invert, side.State().Filter)
	assert.Equal(t, filter.Invert, h.c.Status().Filter)

	h.post(Zoom(item.Side, 3), Pan(item.Side, 5, -4))
	assert.Equal(t, 1.0, top.State().Scale)
	assert.InDelta(t, 1.3, side.State().Scale, 1e-9)
	assert.Equal(t, 5.0, side.State().OffsetX)

	h.post(ResetView())
	assert.Equal(t, filter.None, top.State().Filter)
	assert.Equal(t, 1.0, side.State().Scale)
	assert.Equal(t, 0.0, side.State().OffsetY)
}

func TestIdleStrikesEndSession(t *testing.T) {
	t.Parallel()

	b := newBackend([]item.Baggage{knifeBag})
	h := start(t, testOptions(), b)
	var warnings []int
	h.c.On(EventAFKWarning, func(data any) { warnings = append(warnings, data.(int)) })

	for strike := 1; strike <= 2; strike++ {
		h.advance(61 * time.Second)
		require.Equal(t, []int{1, 2}[:strike], warnings)
		st := h.c.Status()
		assert.True(t, st.AFKWarning)
		assert.True(t, st.Paused)

		remaining := st.Remaining
		h.advance(30 * time.Second)
		assert.Equal(t, remaining, h.c.Status().Remaining, "countdown frozen during warning")

		h.post(Activity())
		assert.True(t, h.c.Status().AFKWarning, "activity does not dismiss a warning")
		h.post(Acknowledge())
		assert.False(t, h.c.Status().AFKWarning)
		assert.False(t, h.c.Status().Paused)
	}

	h.advance(61 * time.Second)
	require.Equal(t, Finished, h.c.State())
	sum, ok := h.c.Summary()
	require.True(t, ok)
	assert.Equal(t, scoring.EndAFK, sum.EndReason)
	require.Len(t, b.submitted, 1)
	assert.Equal(t, scoring.EndAFK, b.submitted[0].EndReason)
}

func TestActivityKeepsWatchdogQuiet(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{knifeBag}))
	for range 4 {
		h.now = h.now.Add(45 * time.Second)
		h.post(Activity())
	}
	assert.Equal(t, 0, h.c.Status().Strikes)
}

func TestCountdownFinishes(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.Duration = time.Second
	b := newBackend([]item.Baggage{cleanBag})
	h := start(t, opts, b)
	var finished []scoring.Summary
	h.c.On(EventFinished, func(data any) { finished = append(finished, data.(scoring.Summary)) })

	h.post(Select(clean), Confirm())
	h.advance(2 * time.Second)

	require.Equal(t, Finished, h.c.State())
	require.Len(t, finished, 1)
	sum := finished[0]
	assert.Equal(t, scoring.EndTimeout, sum.EndReason)
	assert.Equal(t, 1.0, sum.TimeUsed)
	assert.Equal(t, "op-1", sum.Operator)
	assert.NotEmpty(t, sum.SessionID)
	assert.Equal(t, map[int]string{clean: "Clean"}, sum.CategoryNames)
	assert.Equal(t, 20, sum.TimeCredit)
	require.Len(t, b.submitted, 1)
	require.Len(t, h.rec.saved, 1)
	assert.Equal(t, sum.SessionID, h.rec.saved[0].SessionID)

	h.advance(time.Second)
	assert.Len(t, finished, 1, "finishes once")
}

func TestAbortFinishesImmediately(t *testing.T) {
	t.Parallel()

	h := start(t, testOptions(), newBackend([]item.Baggage{cleanBag}))
	h.post(Abort(), Select(clean), Confirm())
	sum, ok := h.c.Summary()
	require.True(t, ok)
	assert.Equal(t, scoring.EndAbort, sum.EndReason)
	assert.Equal(t, 0, sum.Hits, "inputs after abort are dropped")
}

func TestSubmissionFailureStillStored(t *testing.T) {
	t.Parallel()

	b := newBackend([]item.Baggage{cleanBag})
	b.submitErr = errors.New("503")
	h := start(t, testOptions(), b)
	h.post(Abort())

	assert.Equal(t, 2, b.submits, "retried once")
	require.Len(t, h.rec.saved, 1)
	_, ok := h.c.Summary()
	assert.True(t, ok)
}

func TestImageFailureSkipsItem(t *testing.T) {
	t.Parallel()

	b := newBackend([]item.Baggage{knifeBag, cleanBag})
	b.broken["knife_side"] = true
	h := start(t, testOptions(), b)

	assert.Equal(t, "BG-1", h.c.Status().Item)
	assert.Equal(t, 0, h.c.Status().FalseAlarms, "skipped items are not scored")
}

func TestAllImagesFailingHalts(t *testing.T) {
	t.Parallel()

	b := newBackend([]item.Baggage{knifeBag, cleanBag})
	b.broken["knife_top"] = true
	b.broken["clean_top"] = true
	h := start(t, testOptions(), b)

	require.Equal(t, Halted, h.c.State())
	assert.ErrorIs(t, h.c.Status().Err, supplier.ErrImageLoad)
}

func TestSupplierFailures(t *testing.T) {
	t.Parallel()

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()
		h := start(t, testOptions(), newBackend())
		require.Equal(t, Halted, h.c.State())
		assert.ErrorIs(t, h.c.Status().Err, ErrNoItems)
	})

	t.Run("items error", func(t *testing.T) {
		t.Parallel()
		b := newBackend()
		b.itemsErr = supplier.ErrSupplier
		h := start(t, testOptions(), b)
		assert.ErrorIs(t, h.c.Status().Err, supplier.ErrSupplier)
		assert.Equal(t, 1, b.fetches, "no retry loop")
	})

	t.Run("categories error", func(t *testing.T) {
		t.Parallel()
		b := newBackend([]item.Baggage{cleanBag})
		b.catErr = supplier.ErrSupplier
		h := start(t, testOptions(), b)
		assert.Equal(t, Halted, h.c.State())
		assert.Equal(t, 0, b.fetches)
	})

	t.Run("halted session still ends", func(t *testing.T) {
		t.Parallel()
		opts := testOptions()
		opts.Duration = time.Second
		h := start(t, opts, newBackend())
		h.tick(10)
		assert.Equal(t, Halted, h.c.State())
		h.advance(time.Second)
		assert.Equal(t, Finished, h.c.State())
	})
}

func TestHiddenCategories(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.Area = 3
	opts.Hidden = map[int][]int{3: {2}}
	h := start(t, opts, newBackend([]item.Baggage{cleanBag}))

	assert.Equal(t, []item.Category{{ID: clean, Name: "Clean"}, {ID: knife, Name: "Knife"}}, h.c.Categories())
	assert.Equal(t, "Gun", h.c.CategoryName(2))
}
