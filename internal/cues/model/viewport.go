package model

import "github.com/paulmach/orb"

// Viewport is the camera's world footprint as recovered for one call.
type Viewport struct {
	// Rect is in map-local cells.
	Rect *orb.Bound
	// Center is in world units.
	Center *orb.Point
	Valid  bool
}

// MapFrame converts between world units and map-local cells. The map is a
// square of side Extent; with FlipY the map-local Y axis points down.
type MapFrame struct {
	Extent float64
	FlipY  bool
}

func (f MapFrame) ToMap(w orb.Point) orb.Point {
	if f.FlipY {
		return orb.Point{w[0], f.Extent - w[1]}
	}
	return w
}

func (f MapFrame) ToWorld(m orb.Point) orb.Point {
	if f.FlipY {
		return orb.Point{m[0], f.Extent - m[1]}
	}
	return m
}
