package geometry

import "math"

// Polygon is a closed ring of vertices in order; the last vertex connects back
// to the first.
type Polygon []Point2D

// Contains tests if a point is inside the polygon using ray casting.
// A polygon with fewer than three vertices contains nothing.
func (pg Polygon) Contains(p Point2D) bool {
	return PointInPolygon(p, pg)
}

// Area returns the unsigned area of the polygon (shoelace formula).
func (pg Polygon) Area() float64 {
	n := len(pg)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pg[i].X*pg[j].Y - pg[j].X*pg[i].Y
	}
	return math.Abs(sum) / 2
}

// Bounds returns the polygon's bounding box.
func (pg Polygon) Bounds() Rect {
	return BoundingBox(pg)
}

// Transform returns a copy of the polygon with every vertex mapped by t.
func (pg Polygon) Transform(t AffineTransform) Polygon {
	out := make(Polygon, len(pg))
	for i, p := range pg {
		out[i] = t.Apply(p)
	}
	return out
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
// Each vertex i is paired with its predecessor j = i-1 (wrapping to n-1).
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := polygon[i], polygon[j]

		// Ray from p going right crosses edge pi-pj
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}

	return inside
}
