// Package region models the authored target regions of a baggage item and
// answers whether a point in image-local pixels falls inside one.
package region

import (
	"encoding/json"
	"errors"
	"fmt"

	"xray-cbt/pkg/geometry"
)

// ErrMalformed is returned when a region payload cannot be decoded or
// describes an empty shape.
var ErrMalformed = errors.New("malformed target region")

// Kind distinguishes the supported region shapes.
type Kind int

const (
	KindRect Kind = iota
	KindPolygon
)

// Region is a target area in unscaled image-local pixels.
type Region struct {
	Kind    Kind
	Rect    geometry.Rect
	Polygon geometry.Polygon
}

// NewRect returns a rectangular region.
func NewRect(x, y, w, h float64) *Region {
	return &Region{Kind: KindRect, Rect: geometry.NewRect(x, y, w, h)}
}

// NewPolygon returns a polygonal region.
func NewPolygon(points ...geometry.Point2D) *Region {
	return &Region{Kind: KindPolygon, Polygon: geometry.Polygon(points)}
}

// Contains reports whether p lies in the region. A nil region contains
// nothing, so items with a missing or unreadable region fail closed.
func (r *Region) Contains(p geometry.Point2D) bool {
	if r == nil {
		return false
	}
	switch r.Kind {
	case KindRect:
		return r.Rect.Contains(p)
	case KindPolygon:
		return r.Polygon.Contains(p)
	}
	return false
}

// Bounds returns the region's bounding box.
func (r *Region) Bounds() geometry.Rect {
	if r == nil {
		return geometry.Rect{}
	}
	if r.Kind == KindPolygon {
		return r.Polygon.Bounds()
	}
	return r.Rect
}

// Validate checks that the region encloses a positive area.
func (r *Region) Validate() error {
	switch r.Kind {
	case KindRect:
		if r.Rect.Empty() {
			return fmt.Errorf("%w: rectangle %gx%g", ErrMalformed, r.Rect.Width, r.Rect.Height)
		}
	case KindPolygon:
		if len(r.Polygon) < 3 || r.Polygon.Area() <= 0 {
			return fmt.Errorf("%w: polygon with %d vertices has no area", ErrMalformed, len(r.Polygon))
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMalformed, r.Kind)
	}
	return nil
}

// Set holds the per-view regions of one item. Either entry may be nil.
type Set struct {
	Top  *Region
	Side *Region
}

// Empty reports whether neither view has a region.
func (s Set) Empty() bool {
	return s.Top == nil && s.Side == nil
}

// MarshalJSON encodes the set in the per-view wire form. The side view's
// vertical axis is written as z.
func (s Set) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if s.Top != nil {
		out["top"] = encodeShape(s.Top, "y")
	}
	if s.Side != nil {
		out["side"] = encodeShape(s.Side, "z")
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts every form understood by Parse.
func (s *Set) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func encodeShape(r *Region, yKey string) map[string]any {
	if r.Kind == KindPolygon {
		pts := make([]map[string]float64, len(r.Polygon))
		for i, p := range r.Polygon {
			pts[i] = map[string]float64{"x": p.X, yKey: p.Y}
		}
		return map[string]any{"points": pts}
	}
	return map[string]any{"x": r.Rect.X, yKey: r.Rect.Y, "w": r.Rect.Width, "h": r.Rect.Height}
}
