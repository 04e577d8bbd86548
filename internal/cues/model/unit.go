package model

import (
	"math"

	"github.com/paulmach/orb"
)

type Alliance string

const (
	AllianceSelf    Alliance = "SELF"
	AllianceEnemy   Alliance = "ENEMY"
	AllianceNeutral Alliance = "NEUTRAL"
	AllianceOther   Alliance = "OTHER"
)

// DefaultUnitRadius is used when a unit reports no radius.
const DefaultUnitRadius = 1.0

// Unit is one entity of the world-space view. Positions are world units
// (origin bottom-left, Y up).
type Unit struct {
	Tag      uint64
	Pos      orb.Point
	Alliance Alliance
	Radius   float64
	Selected bool
	Visible  bool
}

// EffectiveRadius substitutes DefaultUnitRadius for a missing, non-positive
// or non-finite radius.
func (u Unit) EffectiveRadius() float64 {
	if math.IsNaN(u.Radius) || math.IsInf(u.Radius, 0) || u.Radius <= 0 {
		return DefaultUnitRadius
	}
	return u.Radius
}

// ScreenUnit is one entity of the viewport-local view. Pixel is already in
// viewport pixels, so it needs no projection.
type ScreenUnit struct {
	Tag      uint64
	Pixel    orb.Point
	Alliance Alliance
	Selected bool
}

// Snapshot is the per-frame world state. Units and ScreenUnits are sourced
// independently and may disagree in population.
type Snapshot struct {
	Units       []Unit
	ScreenUnits []ScreenUnit

	// Camera is the explicit camera world position, when the environment reports one.
	Camera *orb.Point
	// CameraLayer is the map-local camera footprint, indexed [y][x]; nonzero cells are in view.
	CameraLayer [][]int
}

// UnitByTag returns the first world unit with the given tag.
func (s Snapshot) UnitByTag(tag uint64) (Unit, bool) {
	for _, u := range s.Units {
		if u.Tag == tag {
			return u, true
		}
	}
	return Unit{}, false
}

func Finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}
