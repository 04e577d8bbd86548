// Package projection maps world points into the viewport or map coordinate
// systems. Project is total: every input yields a pixel in some system.
package projection

import (
	"math"

	"github.com/paulmach/orb"

	"cuecast.ai/internal/cues/model"
)

type Params struct {
	// ViewportPixels is V, the side of the viewport grid.
	ViewportPixels int
	// ScreenWorldRadius is R, the world half-extent around the camera centre.
	ScreenWorldRadius float64
	// RectMargin pads the camera rect, in map cells.
	RectMargin float64
}

// Strategy names which branch of the fallback chain produced a result.
type Strategy string

const (
	StrategyRect   Strategy = "rect"
	StrategyRadius Strategy = "radius"
	StrategyMap    Strategy = "map"
)

// Mapper is a value; copying it is cheap and it holds no mutable state.
type Mapper struct {
	vp     model.Viewport
	frame  model.MapFrame
	params Params
}

func New(vp model.Viewport, frame model.MapFrame, p Params) Mapper {
	return Mapper{vp: vp, frame: frame, params: p}
}

func (m Mapper) Viewport() model.Viewport { return m.vp }
func (m Mapper) Frame() model.MapFrame    { return m.frame }
func (m Mapper) Pixels() int              { return m.params.ViewportPixels }

// Project places w in the viewport when either viewport strategy accepts it,
// otherwise in the map system.
func (m Mapper) Project(w orb.Point) (model.Pixel, model.Coord) {
	px, coord, _ := m.ProjectWith(w)
	return px, coord
}

// ProjectWith also reports the strategy that succeeded.
func (m Mapper) ProjectWith(w orb.Point) (model.Pixel, model.Coord, Strategy) {
	if px, ok := m.byRect(w); ok {
		return px, model.CoordViewport, StrategyRect
	}
	if px, ok := m.byRadius(w); ok {
		return px, model.CoordViewport, StrategyRadius
	}
	return m.ToMap(w), model.CoordMap, StrategyMap
}

// ToViewport projects w only if it lands in the viewport.
func (m Mapper) ToViewport(w orb.Point) (model.Pixel, bool) {
	px, coord := m.Project(w)
	return px, coord == model.CoordViewport
}

// InViewport reports whether w projects to the viewport.
func (m Mapper) InViewport(w orb.Point) bool {
	_, ok := m.ToViewport(w)
	return ok
}

// ToMap is always defined.
func (m Mapper) ToMap(w orb.Point) model.Pixel {
	mp := m.frame.ToMap(sanitize(w))
	ext := int(m.frame.Extent)
	return model.Pixel{clampInt(trunc(mp[0]), ext), clampInt(trunc(mp[1]), ext)}
}

func (m Mapper) byRect(w orb.Point) (model.Pixel, bool) {
	if !m.vp.Valid || m.vp.Rect == nil || !model.Finite(w) {
		return model.Pixel{}, false
	}
	rect := *m.vp.Rect
	mp := m.frame.ToMap(w)
	if !rect.Pad(m.params.RectMargin).Contains(mp) {
		return model.Pixel{}, false
	}
	width := rect.Max[0] - rect.Min[0]
	height := rect.Max[1] - rect.Min[1]
	if width <= 0 || height <= 0 {
		return model.Pixel{}, false
	}
	v := float64(m.params.ViewportPixels)
	sx := (mp[0] - rect.Min[0]) / width * v
	sy := (mp[1] - rect.Min[1]) / height * v
	return m.viewportPixel(sx, sy), true
}

func (m Mapper) byRadius(w orb.Point) (model.Pixel, bool) {
	if !m.vp.Valid || m.vp.Center == nil || !model.Finite(w) {
		return model.Pixel{}, false
	}
	r := m.params.ScreenWorldRadius
	if r <= 0 {
		return model.Pixel{}, false
	}
	c := *m.vp.Center
	dx, dy := w[0]-c[0], w[1]-c[1]
	if math.Abs(dx) > r || math.Abs(dy) > r {
		return model.Pixel{}, false
	}
	v := float64(m.params.ViewportPixels)
	scale := v / (2 * r)
	half := v / 2
	// World Y grows upward, pixel Y grows downward.
	return m.viewportPixel(half+dx*scale, half-dy*scale), true
}

func (m Mapper) viewportPixel(sx, sy float64) model.Pixel {
	v := m.params.ViewportPixels
	return model.Pixel{clampInt(trunc(sx), v), clampInt(trunc(sy), v)}
}

// ViewportToWorld inverts the rect strategy, or the radius strategy when no
// rect is known. It fails without any camera evidence.
func (m Mapper) ViewportToWorld(px orb.Point) (orb.Point, bool) {
	if !m.vp.Valid || !model.Finite(px) {
		return orb.Point{}, false
	}
	v := float64(m.params.ViewportPixels)
	if v <= 0 {
		return orb.Point{}, false
	}
	if rect := m.vp.Rect; rect != nil {
		width := rect.Max[0] - rect.Min[0]
		height := rect.Max[1] - rect.Min[1]
		if width > 0 && height > 0 {
			mp := orb.Point{
				rect.Min[0] + px[0]/v*width,
				rect.Min[1] + px[1]/v*height,
			}
			return m.frame.ToWorld(mp), true
		}
	}
	if c := m.vp.Center; c != nil && m.params.ScreenWorldRadius > 0 {
		inv := 2 * m.params.ScreenWorldRadius / v
		half := v / 2
		return orb.Point{
			c[0] + (px[0]-half)*inv,
			c[1] + (half-px[1])*inv,
		}, true
	}
	return orb.Point{}, false
}

// MapToWorld uses only the fixed map convention.
func (m Mapper) MapToWorld(px orb.Point) (orb.Point, bool) {
	if !model.Finite(px) {
		return orb.Point{}, false
	}
	return m.frame.ToWorld(px), true
}

func trunc(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

// clampInt keeps v within [0, extent).
func clampInt(v, extent int) int {
	if v < 0 || extent <= 0 {
		return 0
	}
	if v >= extent {
		return extent - 1
	}
	return v
}

func sanitize(p orb.Point) orb.Point {
	for i := range p {
		if math.IsNaN(p[i]) {
			p[i] = 0
		}
	}
	return p
}
