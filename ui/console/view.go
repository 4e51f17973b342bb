package console

import (
	"image"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"xray-cbt/internal/item"
	"xray-cbt/internal/session"
	"xray-cbt/internal/viewport"
)

// activityInterval throttles hover activity posted to the session.
const activityInterval = 500 * time.Millisecond

// viewWidget shows one renderer and turns pointer events into inputs:
// tap clicks, wheel zooms, drag pans and hover counts as activity.
type viewWidget struct {
	widget.BaseWidget

	view     item.View
	renderer *viewport.Renderer
	post     func(session.Input)
	onFocus  func(item.View)
	raster   *fynecanvas.Raster

	lastActivity time.Time
}

func newViewWidget(v item.View, r *viewport.Renderer, post func(session.Input), onFocus func(item.View)) *viewWidget {
	vw := &viewWidget{
		view:     v,
		renderer: r,
		post:     post,
		onFocus:  onFocus,
	}
	vw.raster = fynecanvas.NewRaster(func(w, h int) image.Image {
		return vw.renderer.Snapshot()
	})
	vw.raster.ScaleMode = fynecanvas.ImageScaleFastest
	opts := r.Options()
	vw.raster.SetMinSize(fyne.NewSize(float32(opts.Width)/2, float32(opts.Height)/2))
	vw.ExtendBaseWidget(vw)
	return vw
}

func (vw *viewWidget) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(vw.raster)
}

func (vw *viewWidget) frameSize() (int, int) {
	opts := vw.renderer.Options()
	return opts.Width, opts.Height
}

// Tapped handles left-click events.
func (vw *viewWidget) Tapped(ev *fyne.PointEvent) {
	w, h := vw.frameSize()
	x, y, ok := toFrame(ev.Position, vw.Size(), w, h)
	if !ok {
		return
	}
	vw.onFocus(vw.view)
	vw.post(session.Click(vw.view, x, y))
}

// Scrolled zooms with the mouse wheel.
func (vw *viewWidget) Scrolled(ev *fyne.ScrollEvent) {
	vw.onFocus(vw.view)
	switch {
	case ev.Scrolled.DY > 0:
		vw.post(session.Zoom(vw.view, 1))
	case ev.Scrolled.DY < 0:
		vw.post(session.Zoom(vw.view, -1))
	}
}

// Dragged pans the image.
func (vw *viewWidget) Dragged(ev *fyne.DragEvent) {
	w, h := vw.frameSize()
	dx, dy := toFrameDelta(ev.Dragged.DX, ev.Dragged.DY, vw.Size(), w, h)
	vw.post(session.Pan(vw.view, dx, dy))
}

func (vw *viewWidget) DragEnd() {}

func (vw *viewWidget) MouseIn(*desktop.MouseEvent) {
	vw.onFocus(vw.view)
	vw.activity()
}

func (vw *viewWidget) MouseMoved(*desktop.MouseEvent) {
	vw.activity()
}

func (vw *viewWidget) MouseOut() {}

func (vw *viewWidget) activity() {
	now := time.Now()
	if now.Sub(vw.lastActivity) < activityInterval {
		return
	}
	vw.lastActivity = now
	vw.post(session.Activity())
}
