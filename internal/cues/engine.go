// Package cues wires the per-frame pipeline: camera, projection, selection,
// target, synthesis and naming. Compute is total; it never returns an error
// and never panics into the caller.
package cues

import (
	"fmt"

	"go.uber.org/zap"

	"cuecast.ai/internal/cues/camera"
	"cuecast.ai/internal/cues/model"
	"cuecast.ai/internal/cues/projection"
	"cuecast.ai/internal/cues/selection"
	"cuecast.ai/internal/cues/synth"
	"cuecast.ai/internal/cues/target"
	"cuecast.ai/internal/logging"
	"cuecast.ai/internal/names"
	"cuecast.ai/internal/protocol"
	"cuecast.ai/internal/tuning"
	"cuecast.ai/internal/virtualsel"
)

type Engine struct {
	tuning  tuning.Tuning
	frame   model.MapFrame
	params  projection.Params
	names   *names.Resolver
	log     *zap.Logger
	cascade []selection.Strategy
}

type Option func(*Engine)

// WithCascade replaces the selection evidence order.
func WithCascade(c []selection.Strategy) Option {
	return func(e *Engine) { e.cascade = c }
}

func New(t tuning.Tuning, r *names.Resolver, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		tuning: t,
		frame:  model.MapFrame{Extent: float64(t.Map.Extent), FlipY: t.Map.FlipY},
		params: projection.Params{
			ViewportPixels:    t.ViewportPixels,
			ScreenWorldRadius: t.ScreenWorldRadius,
			RectMargin:        t.RectMargin,
		},
		names:   r,
		log:     logging.OrNop(log),
		cascade: selection.Cascade,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Tuning() tuning.Tuning { return e.tuning }
func (e *Engine) Names() *names.Resolver { return e.names }

type Input struct {
	Snapshot model.Snapshot
	Call     model.ActionCall
	Intent   *model.Intent
	// Virtual is read, never written; the owner applies Output.Proposal.
	Virtual virtualsel.Set
}

type Output struct {
	Cues  []model.Cue
	Debug model.Diagnostics
	Kind  synth.Kind
	// Label is the display name of the action.
	Label    string
	Proposal virtualsel.Proposal
	// Code is the wire error code when the frame failed, empty otherwise.
	Code string
}

// Mapper recovers the camera from s and returns the projection for it.
func (e *Engine) Mapper(s model.Snapshot) (projection.Mapper, camera.Evidence) {
	vp, ev := camera.Resolve(s, e.frame)
	return projection.New(vp, e.frame, e.params), ev
}

// ComputeFrame decodes a wire frame and runs Compute. A frame that cannot be
// decoded yields no cues and an error diagnostic.
func (e *Engine) ComputeFrame(f protocol.FrameMsg, virtual virtualsel.Set) Output {
	call, err := f.Action.Call()
	if err == nil {
		var intent *model.Intent
		intent, err = protocol.DecodeIntent(f.Intent)
		if err == nil {
			return e.Compute(Input{Snapshot: f.Snapshot.Model(), Call: call, Intent: intent, Virtual: virtual})
		}
	}
	e.log.Warn("malformed frame payload",
		zap.Uint64("frame", f.Frame),
		zap.String("action", f.Action.Function),
		zap.Error(err))
	return Output{
		Debug: model.Diagnostics{
			"error":         err.Error(),
			"rawActionName": f.Action.Function,
			"cameraFound":   false,
		},
		Kind:     synth.Classify(model.ActionCall{Function: f.Action.Function}),
		Label:    e.names.Resolve(f.Action.Function),
		Proposal: virtualsel.Proposal{Mode: virtualsel.ModeKeep},
		Code:     protocol.CodeFor(err),
	}
}

func (e *Engine) Compute(in Input) (out Output) {
	debug := model.Diagnostics{}
	out = Output{Debug: debug, Proposal: virtualsel.Proposal{Mode: virtualsel.ModeKeep}}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("cue engine recovered", zap.Any("panic", r), zap.String("action", in.Call.Function))
			out.Cues = nil
			out.Proposal = virtualsel.Proposal{Mode: virtualsel.ModeKeep}
			out.Code = protocol.ErrInternal
			debug.Set("error", fmt.Sprint(r))
		}
	}()

	snap := in.Snapshot
	mapper, ev := e.Mapper(snap)
	vp := mapper.Viewport()
	// A centre back-filled from the camera layer counts as found.
	debug.Set("cameraFound", vp.Center != nil)
	debug.Set("cameraMapFound", ev.Layer)
	debug.Set("cameraValue", snap.Camera)
	debug.Set("cameraMapRect", vp.Rect)
	debug.Set("rawUnitsCount", len(snap.Units))
	debug.Set("screenUnitsCount", len(snap.ScreenUnits))
	if len(snap.Units) > 0 {
		u := snap.Units[0]
		debug.Set("sampleUnit", map[string]any{"tag": u.Tag, "x": u.Pos[0], "y": u.Pos[1], "alliance": string(u.Alliance)})
	}

	out.Kind = synth.Classify(in.Call)
	out.Label = e.names.Resolve(in.Call.Function)
	debug.Set("rawActionName", in.Call.Function)
	debug.Set("actionKind", string(out.Kind))
	debug.Set("virtualSelection", in.Virtual.Tags())

	// The believed selection stands in only for commands the intent did not
	// attribute to any unit.
	var virtual []uint64
	if out.Kind == synth.KindCommand && (in.Intent == nil || len(in.Intent.SelectedIndices) == 0) {
		virtual = in.Virtual.Tags()
	}

	sel := selection.ResolveWith(e.cascade, selection.Input{
		Snapshot:         snap,
		Call:             in.Call,
		Intent:           in.Intent,
		Virtual:          virtual,
		Mapper:           mapper,
		ScatterThreshold: e.tuning.ScatterThreshold,
	})
	debug.Set("selectionSource", string(sel.Source))
	debug.Set("selectedUnits", describeMembers(sel.Members, mapper))
	if len(sel.Dropped) > 0 {
		for _, idx := range sel.Dropped {
			debug.Append("droppedIndices", idx)
		}
		e.log.Debug("intent indices out of range", zap.Ints("indices", sel.Dropped))
	}

	tgt := target.Resolve(target.Input{Snapshot: snap, Call: in.Call, Intent: in.Intent, Mapper: mapper})
	if tgt.Unit != nil {
		debug.Set("targetUnit", tgt.Unit.World)
		debug.Set("targetSource", string(tgt.Unit.Source))
	}
	if tgt.Location != nil {
		debug.Set("targetLocation", tgt.Location.World)
		if tgt.Unit == nil {
			debug.Set("targetSource", string(tgt.Location.Source))
		}
	}
	if tgt.DroppedIndex != nil {
		debug.Append("droppedIndices", *tgt.DroppedIndex)
	}

	res := synth.Synthesize(synth.Input{
		Call:      in.Call,
		Label:     out.Label,
		Selection: sel,
		Target:    tgt,
		Mapper:    mapper,
	}, e.tuning.Cues)
	out.Cues = res.Cues
	if res.Box != nil {
		debug.Set("boxCue", map[string]any{
			"min_x": res.Box.Min[0], "max_x": res.Box.Max[0],
			"min_y": res.Box.Min[1], "max_y": res.Box.Max[1],
		})
	}

	if out.Kind == synth.KindSelection && in.Intent != nil && len(in.Intent.SelectedIndices) > 0 {
		out.Proposal = virtualsel.Propose(snap.Units, in.Intent.SelectedIndices, in.Intent.Queue)
		if out.Proposal.Rejected > 0 {
			debug.Set("virtualSelectionRejected", out.Proposal.Rejected)
		}
	}
	return out
}

func describeMembers(members []selection.Member, m projection.Mapper) []any {
	out := make([]any, 0, len(members))
	for _, mb := range members {
		px, coord := m.Project(mb.World)
		out = append(out, map[string]any{
			"idx":   mb.Index,
			"tag":   mb.Tag,
			"world": mb.World,
			"pixel": px,
			"coord": string(coord),
		})
	}
	return out
}
