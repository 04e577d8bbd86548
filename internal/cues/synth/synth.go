// Package synth turns resolved selection and target evidence into drawable
// cues. It never fails: missing evidence only shortens the cue list.
package synth

import (
	"math"

	"github.com/paulmach/orb"

	"cuecast.ai/internal/cues/model"
	"cuecast.ai/internal/cues/projection"
	"cuecast.ai/internal/cues/selection"
	"cuecast.ai/internal/cues/target"
	"cuecast.ai/internal/tuning"
)

type Kind string

const (
	KindSelection Kind = "selection"
	KindCommand   Kind = "command"
)

func Classify(call model.ActionCall) Kind {
	if call.IsSelection() {
		return KindSelection
	}
	return KindCommand
}

type Input struct {
	Call model.ActionCall
	// Label is the resolved display name of the action.
	Label     string
	Selection selection.Result
	Target    target.Result
	Mapper    projection.Mapper
}

type Output struct {
	Kind Kind
	Cues []model.Cue
	// Box is the unpadded pixel bound of the selection box, when one was drawn.
	Box *orb.Bound
}

func Synthesize(in Input, p tuning.CueParams) Output {
	b := &builder{m: in.Mapper, p: p}
	out := Output{Kind: Classify(in.Call)}

	switch out.Kind {
	case KindSelection:
		out.Box = b.selection(in.Selection, in.Label)
	case KindCommand:
		b.command(in)
	}
	out.Cues = b.cues
	return out
}

type builder struct {
	m    projection.Mapper
	p    tuning.CueParams
	cues []model.Cue
}

func (b *builder) selection(sel selection.Result, label string) *orb.Bound {
	var inView []model.Pixel
	var offView []model.Pixel
	var ripples []model.Cue

	for _, mem := range sel.Members {
		px, ok := b.m.ToViewport(mem.World)
		if !ok {
			offView = append(offView, b.m.ToMap(mem.World))
			continue
		}
		inView = append(inView, px)
		ripples = append(ripples, model.Cue{
			Kind:   model.CueRipple,
			Coord:  model.CoordViewport,
			Center: px,
			Radius: scaled(b.p.RippleUnitMin, mem.Radius, b.p.RippleUnitScale),
			Color:  b.p.Colors.Ripple,
		})
	}

	// Screen-only evidence: no world member made it into the viewport.
	if len(inView) == 0 && len(sel.ScreenPixels) > 0 {
		inView = sel.ScreenPixels
		ripples = ripples[:0]
		if sel.RealSelectionEmpty {
			for _, px := range sel.ScreenPixels {
				ripples = append(ripples, model.Cue{
					Kind:   model.CueRipple,
					Coord:  model.CoordViewport,
					Center: px,
					Radius: b.p.RippleUnitMin,
					Color:  b.p.Colors.Ripple,
				})
			}
		}
	}

	var box *orb.Bound
	if len(inView) > 0 {
		bound := pixelBound(inView)
		box = &bound
		v := b.m.Pixels()
		margin := float64(b.p.BoxMargin)
		b.add(model.Cue{
			Kind:  model.CueBox,
			Coord: model.CoordViewport,
			Start: model.Pixel{clamp(bound.Min[0]-margin, v), clamp(bound.Min[1]-margin, v)},
			End:   model.Pixel{clamp(bound.Max[0]+margin, v), clamp(bound.Max[1]+margin, v)},
			Color: b.p.Colors.Selection,
			Label: label,
		})
	}
	b.cues = append(b.cues, ripples...)

	// Guide the observer to units nobody has selected yet.
	if sel.RealSelectionEmpty {
		for _, px := range offView {
			b.add(model.Cue{
				Kind:   model.CueRipple,
				Coord:  model.CoordMap,
				Center: px,
				Radius: b.p.RippleMapMin,
				Color:  b.p.Colors.Ripple,
			})
		}
	}
	return box
}

func (b *builder) command(in Input) {
	if in.Selection.Center == nil {
		return
	}
	from := *in.Selection.Center

	switch {
	case in.Target.Unit != nil:
		b.dual(model.CueArrow, from, in.Target.Unit.World, b.p.Colors.Unit, in.Label, b.p.CircleViewport, b.p.CircleMap)
	case in.Target.Location != nil:
		b.dual(model.CueArrow, from, in.Target.Location.World, b.p.Colors.Location, in.Label, b.p.CircleViewport, b.p.CircleMap)
	default:
		avg := in.Selection.AvgRadius
		b.dual(model.CueRipple, from, from, b.p.Colors.Ripple, in.Label,
			scaled(b.p.RippleSelfMin, avg, b.p.RippleSelfScale),
			scaled(b.p.RippleMapMin, avg, b.p.RippleMapScale))
	}
}

type system struct {
	coord   model.Coord
	project func(orb.Point) (model.Pixel, bool)
	radius  int
}

// dual emits one cue per coordinate system that can hold both endpoints. The
// map system always can. Arrows get a circle at their head.
func (b *builder) dual(kind model.CueKind, start, end orb.Point, color, label string, viewportRadius, mapRadius int) {
	if !model.Finite(start) || !model.Finite(end) {
		return
	}
	systems := []system{
		{coord: model.CoordMap, project: b.toMap, radius: mapRadius},
		{coord: model.CoordViewport, project: b.m.ToViewport, radius: viewportRadius},
	}
	for _, sys := range systems {
		s, ok := sys.project(start)
		if !ok {
			continue
		}
		e, ok := sys.project(end)
		if !ok {
			continue
		}
		switch kind {
		case model.CueArrow:
			b.add(model.Cue{Kind: model.CueArrow, Coord: sys.coord, Start: s, End: e, Color: color, Label: label})
			b.add(model.Cue{Kind: model.CueCircle, Coord: sys.coord, Center: e, Radius: sys.radius, Color: color})
		default:
			b.add(model.Cue{Kind: kind, Coord: sys.coord, Center: e, Radius: sys.radius, Color: color, Label: label})
		}
	}
}

func (b *builder) toMap(w orb.Point) (model.Pixel, bool) {
	return b.m.ToMap(w), true
}

func (b *builder) add(c model.Cue) {
	b.cues = append(b.cues, c)
}

// scaled is max(min, int(r*scale)), guarding against a non-finite radius.
func scaled(min int, r, scale float64) int {
	v := r * scale
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return min
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if int(v) < min {
		return min
	}
	return int(v)
}

func pixelBound(pxs []model.Pixel) orb.Bound {
	mp := make(orb.MultiPoint, len(pxs))
	for i, px := range pxs {
		mp[i] = orb.Point{float64(px[0]), float64(px[1])}
	}
	return mp.Bound()
}

func clamp(v float64, extent int) int {
	if v < 0 || extent <= 0 {
		return 0
	}
	if v >= float64(extent) {
		return extent - 1
	}
	return int(v)
}
