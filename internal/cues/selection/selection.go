// Package selection decides which units count as selected for one frame and
// where the selection's representative point is.
package selection

import (
	"github.com/paulmach/orb"

	"cuecast.ai/internal/cues/model"
	"cuecast.ai/internal/cues/projection"
)

type Source string

const (
	SourceNone        Source = "none"
	SourceIntent      Source = "intent"
	SourceVirtual     Source = "virtual"
	SourceCallTags    Source = "call_tags"
	SourceGroundTruth Source = "ground_truth"
)

// Member is one resolved unit. Index is its position in Snapshot.Units.
type Member struct {
	Index  int
	Tag    uint64
	World  orb.Point
	Radius float64
}

type Input struct {
	Snapshot model.Snapshot
	Call     model.ActionCall
	Intent   *model.Intent
	// Virtual holds the agent-believed selection, consulted after the intent.
	Virtual []uint64
	Mapper  projection.Mapper
	// ScatterThreshold is in world units.
	ScatterThreshold float64
}

type Result struct {
	Source  Source
	Members []Member
	// ScreenPixels are viewport positions of selected screen units; they feed
	// the selection box when no world member projects to the viewport.
	ScreenPixels []model.Pixel

	Center    *orb.Point
	AvgRadius float64

	// RealSelectionEmpty is true when neither unit view reports a selected unit.
	RealSelectionEmpty bool
	// Dropped lists intent indices that did not resolve.
	Dropped []int
}

// Strategy yields members, or nil when it has no evidence.
type Strategy struct {
	Source  Source
	Resolve func(in Input, r *Result) []Member
}

// Cascade is the evidence priority order: stated intent, then the
// virtual selection, then explicit call arguments, then engine ground truth.
var Cascade = []Strategy{
	{Source: SourceIntent, Resolve: fromIntent},
	{Source: SourceVirtual, Resolve: fromVirtual},
	{Source: SourceCallTags, Resolve: fromCallTags},
	{Source: SourceGroundTruth, Resolve: fromGroundTruth},
}

func Resolve(in Input) Result {
	return ResolveWith(Cascade, in)
}

// ResolveWith runs the strategies in order and stops at the first one that
// yields anything.
func ResolveWith(cascade []Strategy, in Input) Result {
	r := Result{
		Source:             SourceNone,
		AvgRadius:          model.DefaultUnitRadius,
		RealSelectionEmpty: realSelectionEmpty(in.Snapshot),
	}
	for _, s := range cascade {
		members := s.Resolve(in, &r)
		if len(members) == 0 && (s.Source != SourceGroundTruth || len(r.ScreenPixels) == 0) {
			continue
		}
		r.Source = s.Source
		r.Members = members
		break
	}

	if len(r.Members) > 0 {
		c, avg := center(r.Members, in.Mapper, in.ScatterThreshold)
		r.Center = &c
		r.AvgRadius = avg
	} else if vc := in.Mapper.Viewport().Center; vc != nil {
		c := *vc
		r.Center = &c
	}
	return r
}

func fromIntent(in Input, r *Result) []Member {
	if in.Intent == nil {
		return nil
	}
	var out []Member
	for _, idx := range in.Intent.SelectedIndices {
		if idx < 0 || idx >= len(in.Snapshot.Units) {
			r.Dropped = append(r.Dropped, idx)
			continue
		}
		out = append(out, member(idx, in.Snapshot.Units[idx]))
	}
	return out
}

func fromVirtual(in Input, _ *Result) []Member {
	if len(in.Virtual) == 0 {
		return nil
	}
	want := make(map[uint64]struct{}, len(in.Virtual))
	for _, t := range in.Virtual {
		want[t] = struct{}{}
	}
	var out []Member
	for i, u := range in.Snapshot.Units {
		if _, ok := want[u.Tag]; ok {
			out = append(out, member(i, u))
		}
	}
	return out
}

func fromCallTags(in Input, _ *Result) []Member {
	arg, ok := in.Call.Arg(model.ArgUnitTags)
	if !ok {
		return nil
	}
	var out []Member
	for _, tag := range arg.Tags() {
		for i, u := range in.Snapshot.Units {
			if u.Tag == tag {
				out = append(out, member(i, u))
				break
			}
		}
	}
	return out
}

func fromGroundTruth(in Input, r *Result) []Member {
	for _, su := range in.Snapshot.ScreenUnits {
		if su.Selected && model.Finite(su.Pixel) {
			r.ScreenPixels = append(r.ScreenPixels, clampPixel(su.Pixel, in.Mapper.Pixels()))
		}
	}
	var out []Member
	for i, u := range in.Snapshot.Units {
		if u.Selected {
			out = append(out, member(i, u))
		}
	}
	return out
}

func member(idx int, u model.Unit) Member {
	return Member{Index: idx, Tag: u.Tag, World: u.Pos, Radius: u.EffectiveRadius()}
}

func realSelectionEmpty(s model.Snapshot) bool {
	for _, u := range s.ScreenUnits {
		if u.Selected {
			return false
		}
	}
	for _, u := range s.Units {
		if u.Selected {
			return false
		}
	}
	return true
}

// center prefers members already in the viewport so a map-wide selection
// does not put the arrow origin in empty space. A scattered off-screen group
// collapses to its first member instead of a centroid on no unit.
func center(members []Member, m projection.Mapper, threshold float64) (orb.Point, float64) {
	var inView []Member
	for _, mb := range members {
		if m.InViewport(mb.World) {
			inView = append(inView, mb)
		}
	}

	group := members
	if len(inView) > 0 {
		group = inView
	} else if len(group) > 1 && Scattered(group, threshold) {
		group = group[:1]
	}

	var sx, sy, sr float64
	for _, mb := range group {
		sx += mb.World[0]
		sy += mb.World[1]
		sr += mb.Radius
	}
	n := float64(len(group))
	return orb.Point{sx / n, sy / n}, sr / n
}

// Scattered reports whether the group's bounding extent exceeds threshold on
// either axis.
func Scattered(group []Member, threshold float64) bool {
	mp := make(orb.MultiPoint, 0, len(group))
	for _, mb := range group {
		mp = append(mp, mb.World)
	}
	b := mp.Bound()
	return b.Max[0]-b.Min[0] > threshold || b.Max[1]-b.Min[1] > threshold
}

func clampPixel(p orb.Point, v int) model.Pixel {
	var out model.Pixel
	for i := range out {
		switch {
		case p[i] < 0:
			out[i] = 0
		case v > 0 && p[i] >= float64(v):
			out[i] = v - 1
		default:
			out[i] = int(p[i])
		}
	}
	return out
}
