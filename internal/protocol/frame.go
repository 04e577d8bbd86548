package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"cuecast.ai/internal/cues/model"
)

// FRAME (client -> server): one decision cycle's worth of input.
type FrameMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Frame           uint64          `json:"frame"`
	Snapshot        SnapshotMsg     `json:"snapshot"`
	Action          ActionMsg       `json:"action"`
	Intent          json.RawMessage `json:"intent,omitempty"`

	// Observation and Decision are carried into the overlay document verbatim.
	Observation string `json:"observation,omitempty"`
	Decision    string `json:"decision,omitempty"`
}

type SnapshotMsg struct {
	RawUnits     []UnitMsg       `json:"raw_units"`
	FeatureUnits []ScreenUnitMsg `json:"feature_units"`
	Camera       *[2]float64     `json:"camera,omitempty"`
	CameraLayer  [][]int         `json:"camera_layer,omitempty"`
}

type UnitMsg struct {
	Tag        uint64      `json:"tag"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Alliance   AllianceMsg `json:"alliance"`
	Radius     *float64    `json:"radius,omitempty"`
	IsSelected bool        `json:"is_selected"`
	IsOnScreen bool        `json:"is_on_screen"`
}

type ScreenUnitMsg struct {
	Tag        uint64      `json:"tag"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Alliance   AllianceMsg `json:"alliance"`
	IsSelected bool        `json:"is_selected"`
}

// AllianceMsg accepts either a name ("SELF") or the environment's numeric
// code (1 self, 2 ally, 3 neutral, 4 enemy). Allies are reported as OTHER.
type AllianceMsg model.Alliance

func (a *AllianceMsg) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = AllianceMsg(model.AllianceOther)
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AllianceMsg(allianceByName(s))
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("alliance: %w", err)
	}
	switch n {
	case 1:
		*a = AllianceMsg(model.AllianceSelf)
	case 3:
		*a = AllianceMsg(model.AllianceNeutral)
	case 4:
		*a = AllianceMsg(model.AllianceEnemy)
	default:
		*a = AllianceMsg(model.AllianceOther)
	}
	return nil
}

// value treats a missing alliance as OTHER.
func (a AllianceMsg) value() model.Alliance {
	if a == "" {
		return model.AllianceOther
	}
	return model.Alliance(a)
}

func allianceByName(s string) model.Alliance {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SELF":
		return model.AllianceSelf
	case "ENEMY":
		return model.AllianceEnemy
	case "NEUTRAL":
		return model.AllianceNeutral
	}
	return model.AllianceOther
}

type ActionMsg struct {
	Function string   `json:"function"`
	ID       int      `json:"id,omitempty"`
	Args     []ArgMsg `json:"args,omitempty"`
}

// ArgMsg.Value is a number, a list of numbers, or a nested list (the
// environment wraps points as [[x, y]]).
type ArgMsg struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

func (s SnapshotMsg) Model() model.Snapshot {
	out := model.Snapshot{
		Units:       make([]model.Unit, 0, len(s.RawUnits)),
		ScreenUnits: make([]model.ScreenUnit, 0, len(s.FeatureUnits)),
		CameraLayer: s.CameraLayer,
	}
	for _, u := range s.RawUnits {
		r := model.DefaultUnitRadius
		if u.Radius != nil && *u.Radius > 0 {
			r = *u.Radius
		}
		out.Units = append(out.Units, model.Unit{
			Tag:      u.Tag,
			Pos:      orb.Point{u.X, u.Y},
			Alliance: u.Alliance.value(),
			Radius:   r,
			Selected: u.IsSelected,
			Visible:  u.IsOnScreen,
		})
	}
	for _, u := range s.FeatureUnits {
		out.ScreenUnits = append(out.ScreenUnits, model.ScreenUnit{
			Tag:      u.Tag,
			Pixel:    orb.Point{u.X, u.Y},
			Alliance: u.Alliance.value(),
			Selected: u.IsSelected,
		})
	}
	if s.Camera != nil {
		c := orb.Point{s.Camera[0], s.Camera[1]}
		out.Camera = &c
	}
	return out
}

// Call converts the action into engine form. Argument values that are not
// numbers are dropped; objects are rejected.
func (a ActionMsg) Call() (model.ActionCall, error) {
	call := model.ActionCall{Function: strings.TrimSpace(a.Function)}
	if call.Function == "" {
		return call, fmt.Errorf("%w: action.function is empty", ErrBadFrame)
	}
	for _, arg := range a.Args {
		vals, err := flattenNumbers(arg.Value)
		if err != nil {
			return call, fmt.Errorf("%w: arg %q: %v", ErrBadFrame, arg.Name, err)
		}
		call.Args = append(call.Args, model.Arg{Name: arg.Name, Values: vals})
	}
	return call, nil
}

func flattenNumbers(raw json.RawMessage) ([]json.Number, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var out []json.Number
	var walk func(v any) error
	walk = func(v any) error {
		switch x := v.(type) {
		case nil, string:
		case json.Number:
			out = append(out, x)
		case bool:
			if x {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
		case []any:
			for _, e := range x {
				if err := walk(e); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unsupported value %T", v)
		}
		return nil
	}
	if err := walk(v); err != nil {
		return nil, err
	}
	return out, nil
}
