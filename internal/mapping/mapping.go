// Package mapping converts between viewport screen pixels and unscaled
// image-local pixels.
//
// Both directions come from a single affine transform, so pointer hit tests
// and the region debug overlay always agree:
//
//	screen = T(placement.X, placement.Y) · S(scale) · T(0, calibrationY) · image
package mapping

import (
	"xray-cbt/internal/region"
	"xray-cbt/pkg/geometry"
)

// Placement is where the scaled image was last drawn on the viewport.
type Placement struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// RenderTransform maps image pixels to screen pixels for drawing.
func RenderTransform(p Placement, scale float64) geometry.AffineTransform {
	return geometry.Translation(p.X, p.Y).Compose(geometry.Scale(scale, scale))
}

// Mapper holds the per-view vertical calibration between how regions were
// authored and how the image is drawn.
type Mapper struct {
	CalibrationY float64
}

// ImageToScreen returns the transform from region coordinates to screen
// coordinates, calibration included.
func (m Mapper) ImageToScreen(p Placement, scale float64) geometry.AffineTransform {
	return RenderTransform(p, scale).Compose(geometry.Translation(0, m.CalibrationY))
}

// ToImage maps a screen point to region coordinates. It reports false when
// scale is degenerate.
func (m Mapper) ToImage(screen geometry.Point2D, p Placement, scale float64) (geometry.Point2D, bool) {
	inv, ok := m.ImageToScreen(p, scale).Inverse()
	if !ok {
		return geometry.Point2D{}, false
	}
	return inv.Apply(screen), true
}

// Outline returns a region's boundary in screen coordinates.
func (m Mapper) Outline(r *region.Region, p Placement, scale float64) geometry.Polygon {
	if r == nil {
		return nil
	}
	t := m.ImageToScreen(p, scale)
	if r.Kind == region.KindPolygon {
		return r.Polygon.Transform(t)
	}
	return geometry.Polygon(r.Rect.Corners()).Transform(t)
}
