package viewport

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"

	"xray-cbt/pkg/colorutil"
	"xray-cbt/pkg/geometry"
)

// Overlay styling.
const (
	markerBaseSize  = 40 // Marker box edge at scale 1
	outlineWidth    = 3
	outlineDashLen  = 5
	outlineDashGap  = 5
	markerLineRatio = 0.08
)

// Overlays are rasterised by gg into a coverage mask and then blended onto the
// frame in a single solid colour, so only the mask's alpha is used.

// drawOutline strokes a dashed outline of poly onto dst.
func drawOutline(dst *image.RGBA, poly geometry.Polygon, col color.RGBA) {
	if len(poly) < 2 {
		return
	}
	b := dst.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	defer func() { _ = dc.Close() }()

	dc.SetRGBA(1, 1, 1, 1)
	dc.SetLineWidth(outlineWidth)
	dc.SetDash(outlineDashLen, outlineDashGap)
	dc.MoveTo(poly[0].X-float64(b.Min.X), poly[0].Y-float64(b.Min.Y))
	for _, p := range poly[1:] {
		dc.LineTo(p.X-float64(b.Min.X), p.Y-float64(b.Min.Y))
	}
	dc.ClosePath()
	if err := dc.Stroke(); err != nil {
		slog.Debug("region outline stroke failed", "err", err)
		return
	}
	blendMask(dst, b.Min, dc.Image(), col)
}

// drawMarker draws the magnifier marker centred on p. The marker grows with
// the zoom factor like the image underneath.
func drawMarker(dst *image.RGBA, p geometry.Point2D, scale float64) {
	size := int(math.Ceil(markerBaseSize * scale))
	if size < 8 {
		size = 8
	}
	dc := gg.NewContext(size, size)
	defer func() { _ = dc.Close() }()

	s := float64(size)
	lw := math.Max(1.5, s*markerLineRatio)
	lens := s * 0.28
	cx, cy := s*0.42, s*0.42

	dc.SetRGBA(1, 1, 1, 1)
	dc.SetLineWidth(lw)
	dc.DrawCircle(cx, cy, lens)
	if err := dc.Stroke(); err != nil {
		slog.Debug("marker stroke failed", "err", err)
		return
	}
	d := lens / math.Sqrt2
	dc.SetLineWidth(lw * 1.6)
	dc.DrawLine(cx+d, cy+d, s-lw, s-lw)
	if err := dc.Stroke(); err != nil {
		slog.Debug("marker stroke failed", "err", err)
		return
	}

	origin := image.Pt(int(math.Round(p.X-cx)), int(math.Round(p.Y-cy)))
	blendMask(dst, origin, dc.Image(), colorutil.MarkerRed)
}

// blendMask paints col onto dst through mask's alpha, with the mask's top-left
// corner at origin in dst coordinates.
func blendMask(dst *image.RGBA, origin image.Point, mask image.Image, col color.RGBA) {
	mb := mask.Bounds()
	r := image.Rectangle{Min: origin, Max: origin.Add(mb.Size())}.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.DrawMask(dst, r, image.NewUniform(col), image.Point{}, mask, mb.Min.Add(r.Min.Sub(origin)), draw.Over)
}
