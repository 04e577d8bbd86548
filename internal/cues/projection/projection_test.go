package projection

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuecast.ai/internal/cues/model"
)

var params = Params{ViewportPixels: 64, ScreenWorldRadius: 12, RectMargin: 4}

func rectViewport(minX, minY, maxX, maxY float64) model.Viewport {
	b := orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
	return model.Viewport{Rect: &b, Valid: true}
}

func centreViewport(x, y float64) model.Viewport {
	c := orb.Point{x, y}
	return model.Viewport{Center: &c, Valid: true}
}

func TestProject_RectStrategy(t *testing.T) {
	m := New(rectViewport(0, 0, 20, 20), model.MapFrame{Extent: 64}, params)

	px, coord, s := m.ProjectWith(orb.Point{10, 10})
	assert.Equal(t, model.CoordViewport, coord)
	assert.Equal(t, StrategyRect, s)
	assert.Equal(t, model.Pixel{32, 32}, px)

	px, coord = m.Project(orb.Point{15, 15})
	assert.Equal(t, model.CoordViewport, coord)
	assert.Equal(t, model.Pixel{48, 48}, px)
}

func TestProject_RectMarginClampsIntoGrid(t *testing.T) {
	m := New(rectViewport(10, 10, 20, 20), model.MapFrame{Extent: 64}, params)

	px, coord := m.Project(orb.Point{8, 15})
	assert.Equal(t, model.CoordViewport, coord)
	assert.Equal(t, model.Pixel{0, 32}, px)

	px, coord = m.Project(orb.Point{24, 24})
	assert.Equal(t, model.CoordViewport, coord)
	assert.Equal(t, model.Pixel{63, 63}, px)

	_, coord = m.Project(orb.Point{25, 15})
	assert.Equal(t, model.CoordMap, coord)
}

func TestProject_RectUsesFlippedMapFrame(t *testing.T) {
	m := New(rectViewport(0, 0, 20, 20), model.MapFrame{Extent: 64, FlipY: true}, params)

	// world (10,10) sits at map-local (10,54), far outside the rect.
	_, coord := m.Project(orb.Point{10, 10})
	assert.Equal(t, model.CoordMap, coord)

	// world (10,54) sits at map-local (10,10).
	px, coord := m.Project(orb.Point{10, 54})
	assert.Equal(t, model.CoordViewport, coord)
	assert.Equal(t, model.Pixel{32, 32}, px)
}

func TestProject_RadiusStrategy(t *testing.T) {
	m := New(centreViewport(30, 30), model.MapFrame{Extent: 64}, params)

	px, coord, s := m.ProjectWith(orb.Point{36, 27})
	assert.Equal(t, model.CoordViewport, coord)
	assert.Equal(t, StrategyRadius, s)
	assert.Equal(t, model.Pixel{48, 40}, px)

	px, _ = m.Project(orb.Point{30, 30})
	assert.Equal(t, model.Pixel{32, 32}, px)

	_, coord = m.Project(orb.Point{42.5, 30})
	assert.Equal(t, model.CoordMap, coord)
}

func TestProject_RectBeatsRadius(t *testing.T) {
	vp := rectViewport(0, 0, 20, 20)
	c := orb.Point{10, 10}
	vp.Center = &c
	m := New(vp, model.MapFrame{Extent: 64}, params)

	px, coord, s := m.ProjectWith(orb.Point{5, 5})
	assert.Equal(t, model.CoordViewport, coord)
	assert.Equal(t, StrategyRect, s)
	assert.Equal(t, model.Pixel{16, 16}, px)
}

func TestProject_DegenerateRectFallsToRadius(t *testing.T) {
	vp := rectViewport(10, 10, 10, 20)
	c := orb.Point{10, 15}
	vp.Center = &c
	m := New(vp, model.MapFrame{Extent: 64}, params)

	_, coord, s := m.ProjectWith(orb.Point{10, 15})
	assert.Equal(t, model.CoordViewport, coord)
	assert.Equal(t, StrategyRadius, s)
}

func TestProject_MapFallback(t *testing.T) {
	m := New(model.Viewport{}, model.MapFrame{Extent: 64, FlipY: true}, params)

	px, coord := m.Project(orb.Point{10.7, 10.2})
	assert.Equal(t, model.CoordMap, coord)
	assert.Equal(t, model.Pixel{10, 53}, px)

	px, _ = m.Project(orb.Point{-5, 100})
	assert.Equal(t, model.Pixel{0, 0}, px)

	px, _ = m.Project(orb.Point{70, -3})
	assert.Equal(t, model.Pixel{63, 63}, px)
}

func TestProject_Deterministic(t *testing.T) {
	vp := rectViewport(3, 7, 27, 31)
	m := New(vp, model.MapFrame{Extent: 64, FlipY: true}, params)
	for _, w := range []orb.Point{{1, 1}, {12.3, 44.4}, {63.9, 0.1}, {20, 40}} {
		a, ac := m.Project(w)
		b, bc := New(vp, model.MapFrame{Extent: 64, FlipY: true}, params).Project(w)
		assert.Equal(t, a, b)
		assert.Equal(t, ac, bc)
	}
}

func TestProject_TotalAndInRange(t *testing.T) {
	viewports := []model.Viewport{
		{},
		rectViewport(0, 0, 20, 20),
		rectViewport(30, 30, 31, 55),
		centreViewport(32, 32),
		centreViewport(-50, 200),
	}
	frames := []model.MapFrame{{Extent: 64}, {Extent: 64, FlipY: true}, {Extent: 200, FlipY: true}}

	for _, vp := range viewports {
		for _, f := range frames {
			m := New(vp, f, params)
			for x := -100.0; x <= 250; x += 7.3 {
				for y := -100.0; y <= 250; y += 6.1 {
					px, coord := m.Project(orb.Point{x, y})
					limit := int(f.Extent)
					if coord == model.CoordViewport {
						limit = params.ViewportPixels
					}
					require.True(t, px[0] >= 0 && px[0] < limit, "x out of range: %v %v", px, coord)
					require.True(t, px[1] >= 0 && px[1] < limit, "y out of range: %v %v", px, coord)
				}
			}
		}
	}
}

func TestProject_NonFiniteIsMapped(t *testing.T) {
	m := New(centreViewport(32, 32), model.MapFrame{Extent: 64}, params)
	px, coord := m.Project(orb.Point{math.NaN(), math.Inf(1)})
	assert.Equal(t, model.CoordMap, coord)
	assert.Equal(t, model.Pixel{0, 63}, px)
}

func TestViewportToWorld(t *testing.T) {
	m := New(rectViewport(0, 0, 20, 20), model.MapFrame{Extent: 64}, params)
	w, ok := m.ViewportToWorld(orb.Point{32, 32})
	require.True(t, ok)
	assert.InDelta(t, 10, w[0], 1e-9)
	assert.InDelta(t, 10, w[1], 1e-9)

	m = New(centreViewport(30, 30), model.MapFrame{Extent: 64}, params)
	w, ok = m.ViewportToWorld(orb.Point{48, 40})
	require.True(t, ok)
	assert.InDelta(t, 36, w[0], 1e-9)
	assert.InDelta(t, 27, w[1], 1e-9)

	// Round trip through the radius strategy.
	px, coord := m.Project(w)
	assert.Equal(t, model.CoordViewport, coord)
	assert.Equal(t, model.Pixel{48, 40}, px)

	_, ok = New(model.Viewport{}, model.MapFrame{Extent: 64}, params).ViewportToWorld(orb.Point{1, 1})
	assert.False(t, ok)
}

func TestMapToWorld(t *testing.T) {
	m := New(model.Viewport{}, model.MapFrame{Extent: 64, FlipY: true}, params)
	w, ok := m.MapToWorld(orb.Point{20, 14})
	require.True(t, ok)
	assert.Equal(t, orb.Point{20, 50}, w)
}
