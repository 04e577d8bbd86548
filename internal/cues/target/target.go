// Package target resolves where a command is aimed: a unit, a location, or
// nothing. Not finding a target is a normal outcome.
package target

import (
	"github.com/paulmach/orb"

	"cuecast.ai/internal/cues/model"
	"cuecast.ai/internal/cues/projection"
)

type Source string

const (
	SourceIntent     Source = "intent"
	SourceCallTag    Source = "call_tag"
	SourceCallScreen Source = "call_screen"
	SourceCallMap    Source = "call_minimap"
)

type Found struct {
	World  orb.Point
	Source Source
	// Index is set for units resolved by index, -1 otherwise.
	Index int
	Tag   uint64
	// Raw is the argument value before inverse projection, for point arguments.
	Raw *orb.Point
}

type Input struct {
	Snapshot model.Snapshot
	Call     model.ActionCall
	Intent   *model.Intent
	Mapper   projection.Mapper
}

type Result struct {
	Unit     *Found
	Location *Found
	// DroppedIndex is set when the intent named a target unit index that did not resolve.
	DroppedIndex *int
}

func (r Result) Found() bool { return r.Unit != nil || r.Location != nil }

func Resolve(in Input) Result {
	var r Result
	r.Unit = resolveUnit(in, &r)
	r.Location = resolveLocation(in)
	return r
}

func resolveUnit(in Input, r *Result) *Found {
	if in.Intent != nil && in.Intent.TargetUnitIndex != nil {
		idx := *in.Intent.TargetUnitIndex
		if idx >= 0 && idx < len(in.Snapshot.Units) {
			u := in.Snapshot.Units[idx]
			if model.Finite(u.Pos) {
				return &Found{World: u.Pos, Source: SourceIntent, Index: idx, Tag: u.Tag}
			}
		}
		r.DroppedIndex = &idx
	}

	arg, ok := in.Call.Arg(model.ArgTargetUnitTag)
	if !ok {
		return nil
	}
	tags := arg.Tags()
	if len(tags) == 0 {
		return nil
	}
	u, ok := in.Snapshot.UnitByTag(tags[0])
	if !ok || !model.Finite(u.Pos) {
		return nil
	}
	return &Found{World: u.Pos, Source: SourceCallTag, Index: -1, Tag: u.Tag}
}

func resolveLocation(in Input) *Found {
	if in.Intent != nil && in.Intent.TargetLocation != nil && model.Finite(*in.Intent.TargetLocation) {
		return &Found{World: *in.Intent.TargetLocation, Source: SourceIntent, Index: -1}
	}

	arg, ok := in.Call.PointArg()
	if !ok {
		return nil
	}
	raw, ok := arg.Point()
	if !ok {
		return nil
	}

	switch arg.Name {
	case model.ArgScreen, model.ArgScreen2:
		w, ok := in.Mapper.ViewportToWorld(raw)
		if !ok {
			return nil
		}
		return &Found{World: w, Source: SourceCallScreen, Index: -1, Raw: &raw}
	case model.ArgMinimap:
		w, ok := in.Mapper.MapToWorld(raw)
		if !ok {
			return nil
		}
		return &Found{World: w, Source: SourceCallMap, Index: -1, Raw: &raw}
	}
	return nil
}
