package region

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"xray-cbt/pkg/geometry"
)

// Parse decodes an item's region payload. It accepts:
//
//	{"x":..,"y":..,"w":..,"h":..}                        one rectangle for both views
//	{"top":{"x","y","w","h"},"side":{"x","z","w","h"}}  per-view rectangles
//	{"points":[{"x","y"},...]}                          one polygon for both views
//	{"top":{"points":[...]},"side":{"points":[...]}}    per-view polygons
//
// The payload may also arrive as a JSON string holding any of the above.
// Empty, null, {} and "" payloads yield an empty Set and no error.
func Parse(data []byte) (Set, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Set{}, nil
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Set{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if inner == "" {
			return Set{}, nil
		}
		return Parse([]byte(inner))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Set{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(fields) == 0 {
		return Set{}, nil
	}

	top, hasTop := fields["top"]
	side, hasSide := fields["side"]
	if !hasTop && !hasSide {
		r, err := parseShape(data, "y")
		if err != nil {
			return Set{}, err
		}
		return Set{Top: r, Side: r}, nil
	}

	var s Set
	if hasTop && !isNull(top) {
		r, err := parseShape(top, "y")
		if err != nil {
			return Set{}, fmt.Errorf("top view: %w", err)
		}
		s.Top = r
	}
	if hasSide && !isNull(side) {
		r, err := parseShape(side, "z")
		if err != nil {
			return Set{}, fmt.Errorf("side view: %w", err)
		}
		s.Side = r
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// shape is the loose wire form of a single region. The vertical axis is read
// from yKey and falls back to the other axis name.
type shape struct {
	X      *number         `json:"x"`
	Y      *number         `json:"y"`
	Z      *number         `json:"z"`
	W      *number         `json:"w"`
	H      *number         `json:"h"`
	Width  *number         `json:"width"`
	Height *number         `json:"height"`
	Points json.RawMessage `json:"points"`
}

func parseShape(data []byte, yKey string) (*Region, error) {
	var s shape
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var r *Region
	if len(s.Points) > 0 && !isNull(s.Points) {
		pts, err := parsePoints(s.Points, yKey)
		if err != nil {
			return nil, err
		}
		r = NewPolygon(pts...)
	} else {
		y := pick(s.Y, s.Z)
		if yKey == "z" {
			y = pick(s.Z, s.Y)
		}
		x, w, h := s.X, pick(s.W, s.Width), pick(s.H, s.Height)
		if x == nil || y == nil || w == nil || h == nil {
			return nil, fmt.Errorf("%w: rectangle needs x, %s, w and h", ErrMalformed, yKey)
		}
		r = NewRect(float64(*x), float64(*y), float64(*w), float64(*h))
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func parsePoints(raw json.RawMessage, yKey string) ([]geometry.Point2D, error) {
	var objs []shape
	if err := json.Unmarshal(raw, &objs); err == nil {
		pts := make([]geometry.Point2D, 0, len(objs))
		for i, o := range objs {
			y := pick(o.Y, o.Z)
			if yKey == "z" {
				y = pick(o.Z, o.Y)
			}
			if o.X == nil || y == nil {
				return nil, fmt.Errorf("%w: point %d is missing a coordinate", ErrMalformed, i)
			}
			pts = append(pts, geometry.NewPoint2D(float64(*o.X), float64(*y)))
		}
		return pts, nil
	}

	var pairs [][2]number
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("%w: points: %v", ErrMalformed, err)
	}
	pts := make([]geometry.Point2D, len(pairs))
	for i, p := range pairs {
		pts[i] = geometry.NewPoint2D(float64(p[0]), float64(p[1]))
	}
	return pts, nil
}

func pick(a, b *number) *number {
	if a != nil {
		return a
	}
	return b
}

// number accepts both JSON numbers and numeric strings, as produced by the
// region editor's form fields.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}
