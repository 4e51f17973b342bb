// Package viewport renders one X-ray view: the item image placed on the belt,
// scaled and panned, run through the active pixel filter, with the click
// marker drawn on top.
package viewport

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"xray-cbt/internal/filter"
	"xray-cbt/internal/mapping"
	"xray-cbt/internal/region"
	"xray-cbt/pkg/colorutil"
	"xray-cbt/pkg/geometry"
)

// Options configures a viewport.
type Options struct {
	Width        int     // Surface width in pixels
	Height       int     // Surface height in pixels
	MinZoom      float64 // Lower scale clamp
	MaxZoom      float64 // Upper scale clamp
	ZoomStep     float64 // Scale change per wheel notch
	CalibrationY float64 // Vertical offset between authored regions and the drawn image
	Background   color.RGBA
}

// DefaultOptions returns the console defaults.
func DefaultOptions() Options {
	return Options{
		Width:      850,
		Height:     980,
		MinZoom:    0.2,
		MaxZoom:    5,
		ZoomStep:   0.1,
		Background: colorutil.White,
	}
}

// ViewState is the per-view presentation state, reset on every item.
type ViewState struct {
	Scale    float64           // Zoom factor
	OffsetX  float64           // Pan offset
	OffsetY  float64           // Pan offset
	BeltX    float64           // Belt position of the image's left edge
	LastDraw mapping.Placement // Where the image was last drawn
	DrawnAt  float64           // Scale of the last drawn frame
	Filter   filter.Kind       // Active pixel filter
	Marker   *geometry.Point2D // Click marker in screen space
	Debug    *region.Region    // Region outlined for authoring checks
}

func defaultState() ViewState {
	return ViewState{Scale: 1}
}

// Renderer owns one view's surface. All methods except Snapshot must be
// called from the goroutine driving the session tick.
type Renderer struct {
	opts   Options
	mapper mapping.Mapper
	state  ViewState
	src    *image.RGBA
	frame  *image.RGBA
	dirty  bool

	mu    sync.Mutex
	shown *image.RGBA
}

// New creates a renderer with an empty surface.
func New(opts Options) *Renderer {
	bounds := image.Rect(0, 0, opts.Width, opts.Height)
	r := &Renderer{
		opts:   opts,
		mapper: mapping.Mapper{CalibrationY: opts.CalibrationY},
		state:  defaultState(),
		frame:  image.NewRGBA(bounds),
		shown:  image.NewRGBA(bounds),
		dirty:  true,
	}
	r.Draw()
	return r
}

// Options returns the renderer configuration.
func (r *Renderer) Options() Options {
	return r.opts
}

// State returns a copy of the current view state.
func (r *Renderer) State() ViewState {
	return r.state
}

// SetImage replaces the displayed image and resets the view state.
// A nil image clears the surface.
func (r *Renderer) SetImage(img image.Image) {
	r.src = nil
	if img != nil {
		b := img.Bounds()
		rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		r.src = rgba
	}
	r.Reset()
}

// ImageWidth returns the natural width of the loaded image.
func (r *Renderer) ImageWidth() float64 {
	if r.src == nil {
		return 0
	}
	return float64(r.src.Bounds().Dx())
}

// Width returns the surface width, the belt's exit boundary.
func (r *Renderer) Width() float64 {
	return float64(r.opts.Width)
}

// Reset restores scale 1, zero pan, no filter and no marker. The belt
// position and the last drawn placement are kept until the next Draw.
func (r *Renderer) Reset() {
	prev := r.state
	r.state = defaultState()
	r.state.BeltX = prev.BeltX
	r.state.LastDraw = prev.LastDraw
	r.state.DrawnAt = prev.DrawnAt
	r.dirty = true
}

// SetBeltX moves the image along the belt.
func (r *Renderer) SetBeltX(x float64) {
	if r.state.BeltX != x {
		r.state.BeltX = x
		r.dirty = true
	}
}

// Zoom changes the scale by steps wheel notches; positive zooms in.
func (r *Renderer) Zoom(steps int) float64 {
	return r.SetScale(r.state.Scale + float64(steps)*r.opts.ZoomStep)
}

// SetScale sets the zoom factor, clamped to the configured range.
func (r *Renderer) SetScale(s float64) float64 {
	s = math.Round(s*1e6) / 1e6
	s = math.Max(r.opts.MinZoom, math.Min(r.opts.MaxZoom, s))
	if s != r.state.Scale {
		r.state.Scale = s
		r.dirty = true
	}
	return s
}

// Pan shifts the image by a drag delta in screen pixels.
func (r *Renderer) Pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	r.state.OffsetX += dx
	r.state.OffsetY += dy
	r.dirty = true
}

// SetFilter selects the active pixel filter.
func (r *Renderer) SetFilter(k filter.Kind) {
	if r.state.Filter != k {
		r.state.Filter = k
		r.dirty = true
	}
}

// SetMarker places the click marker at a screen position.
func (r *Renderer) SetMarker(p geometry.Point2D) {
	r.state.Marker = &p
	r.dirty = true
}

// SetDebugRegion outlines a region on every frame. Nil disables it.
func (r *Renderer) SetDebugRegion(reg *region.Region) {
	r.state.Debug = reg
	r.dirty = true
}

// placement computes where the scaled image lands on the surface.
func (r *Renderer) placement() mapping.Placement {
	b := r.src.Bounds()
	w := float64(b.Dx()) * r.state.Scale
	h := float64(b.Dy()) * r.state.Scale
	return mapping.Placement{
		X: r.state.BeltX + r.state.OffsetX,
		Y: (float64(r.opts.Height)-h)/2 + r.state.OffsetY,
		W: w,
		H: h,
	}
}

// Draw re-renders the surface if anything changed since the last call and
// reports whether it did. The frame is always rebuilt from the source image
// so filters never stack.
func (r *Renderer) Draw() bool {
	if !r.dirty {
		return false
	}

	clear(r.frame.Pix)
	if r.src != nil {
		place := r.placement()
		r.state.LastDraw = place
		r.state.DrawnAt = r.state.Scale
		t := mapping.RenderTransform(place, r.state.Scale)
		draw.ApproxBiLinear.Transform(r.frame, toAff3(t), r.src, r.src.Bounds(), draw.Over, nil)
	}

	filter.Apply(r.frame, r.state.Filter)

	if r.state.Debug != nil && r.src != nil {
		outline := r.mapper.Outline(r.state.Debug, r.state.LastDraw, r.state.Scale)
		drawOutline(r.frame, outline, colorutil.DebugGreen)
	}
	if r.state.Marker != nil {
		drawMarker(r.frame, *r.state.Marker, r.state.Scale)
	}

	r.publish()
	r.dirty = false
	return true
}

func (r *Renderer) publish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	draw.Draw(r.shown, r.shown.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)
	draw.Draw(r.shown, r.shown.Bounds(), r.frame, image.Point{}, draw.Over)
}

// Snapshot returns a copy of the displayed surface composited over the
// background colour. Safe to call from any goroutine.
func (r *Renderer) Snapshot() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := image.NewRGBA(r.shown.Bounds())
	copy(out.Pix, r.shown.Pix)
	return out
}

// ImagePoint maps a screen position to region coordinates through the frame
// the trainee is looking at: the last drawn placement and its scale, even if
// zoom or pan changed since.
func (r *Renderer) ImagePoint(screen geometry.Point2D) (geometry.Point2D, bool) {
	if r.src == nil || r.state.DrawnAt == 0 {
		return geometry.Point2D{}, false
	}
	return r.mapper.ToImage(screen, r.state.LastDraw, r.state.DrawnAt)
}

// HitTest reports whether a screen position lands inside reg. Missing images
// and missing regions never hit.
func (r *Renderer) HitTest(screen geometry.Point2D, reg *region.Region) bool {
	p, ok := r.ImagePoint(screen)
	if !ok {
		return false
	}
	return reg.Contains(p)
}

// ScreenBounds returns where reg's bounding box lands on the last drawn
// frame.
func (r *Renderer) ScreenBounds(reg *region.Region) geometry.Rect {
	if reg == nil || r.state.DrawnAt == 0 {
		return geometry.Rect{}
	}
	return r.mapper.ImageToScreen(r.state.LastDraw, r.state.DrawnAt).ApplyRect(reg.Bounds())
}

func toAff3(t geometry.AffineTransform) f64.Aff3 {
	return f64.Aff3{t.A, t.B, t.TX, t.C, t.D, t.TY}
}
