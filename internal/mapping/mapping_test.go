package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xray-cbt/internal/region"
	"xray-cbt/pkg/geometry"
)

func TestToImageMatchesClosedForm(t *testing.T) {
	t.Parallel()

	p := Placement{X: 120, Y: 95, W: 600, H: 790}
	m := Mapper{CalibrationY: 177}
	scale := 1.5

	got, ok := m.ToImage(geometry.NewPoint2D(300, 400), p, scale)
	require.True(t, ok)
	assert.InDelta(t, (300-120)/1.5, got.X, 1e-9)
	assert.InDelta(t, (400-95)/1.5-177, got.Y, 1e-9)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	placements := []Placement{
		{X: 0, Y: 0, W: 850, H: 980},
		{X: -400, Y: 290, W: 400, H: 400},
		{X: 33.25, Y: -12.5, W: 1200, H: 1200},
	}
	scales := []float64{0.2, 1, 2.7, 5}
	calibs := []float64{0, 175, 177, -30}
	points := []geometry.Point2D{{X: 0, Y: 0}, {X: 425, Y: 490}, {X: 849, Y: 979}, {X: -10, Y: 1000}}

	for _, p := range placements {
		for _, s := range scales {
			for _, c := range calibs {
				m := Mapper{CalibrationY: c}
				for _, sp := range points {
					img, ok := m.ToImage(sp, p, s)
					require.True(t, ok)
					back := m.ImageToScreen(p, s).Apply(img)
					assert.InDelta(t, sp.X, back.X, 1e-6)
					assert.InDelta(t, sp.Y, back.Y, 1e-6)
				}
			}
		}
	}
}

func TestDegenerateScale(t *testing.T) {
	t.Parallel()

	_, ok := Mapper{}.ToImage(geometry.NewPoint2D(1, 1), Placement{}, 0)
	assert.False(t, ok)
}

func TestOutlineMatchesHitTest(t *testing.T) {
	t.Parallel()

	m := Mapper{CalibrationY: 10}
	p := Placement{X: 50, Y: 60, W: 200, H: 200}
	r := region.NewRect(100, 100, 50, 50)

	outline := m.Outline(r, p, 2)
	require.Len(t, outline, 4)
	// top-left corner: 50 + 100*2, 60 + (100+10)*2
	assert.InDelta(t, 250, outline[0].X, 1e-9)
	assert.InDelta(t, 280, outline[0].Y, 1e-9)

	// Any point inside the screen outline maps back inside the region
	inside, ok := m.ToImage(geometry.NewPoint2D(260, 300), p, 2)
	require.True(t, ok)
	assert.True(t, r.Contains(inside))
	assert.Nil(t, m.Outline(nil, p, 2))
}
