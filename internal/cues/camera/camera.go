// Package camera recovers the camera's current footprint from whatever
// sensing the frame carries.
package camera

import (
	"github.com/paulmach/orb"

	"cuecast.ai/internal/cues/model"
)

// Evidence records which camera signals were present, for diagnostics.
type Evidence struct {
	Explicit bool
	// Layer is set when the camera layer had at least one nonzero cell.
	Layer    bool
	Centroid orb.Point
}

// Resolve builds the viewport for one call. The explicit camera position wins
// for the centre; the layer supplies the rect, and the centre too when no
// explicit position exists. It walks the layer once.
func Resolve(s model.Snapshot, frame model.MapFrame) (model.Viewport, Evidence) {
	var (
		vp model.Viewport
		ev Evidence
	)

	if s.Camera != nil && model.Finite(*s.Camera) {
		c := *s.Camera
		vp.Center = &c
		ev.Explicit = true
	}

	if rect, centroid, ok := footprint(s.CameraLayer); ok {
		vp.Rect = &rect
		ev.Layer = true
		ev.Centroid = centroid
		if vp.Center == nil {
			c := frame.ToWorld(centroid)
			vp.Center = &c
		}
	}

	vp.Valid = vp.Rect != nil || vp.Center != nil
	return vp, ev
}

// footprint returns the bounding box of nonzero cells and their mean position.
func footprint(layer [][]int) (orb.Bound, orb.Point, bool) {
	var (
		bound  orb.Bound
		sx, sy float64
		n      int
	)
	for y, row := range layer {
		for x, v := range row {
			if v == 0 {
				continue
			}
			p := orb.Point{float64(x), float64(y)}
			if n == 0 {
				bound = orb.Bound{Min: p, Max: p}
			} else {
				bound = bound.Extend(p)
			}
			sx += p[0]
			sy += p[1]
			n++
		}
	}
	if n == 0 {
		return orb.Bound{}, orb.Point{}, false
	}
	return bound, orb.Point{sx / float64(n), sy / float64(n)}, true
}
