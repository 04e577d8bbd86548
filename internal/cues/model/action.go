package model

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Argument names that carry spatial or unit evidence.
const (
	ArgUnitTags      = "unit_tags"
	ArgTargetUnitTag = "target_unit_tag"
	ArgScreen        = "screen"
	ArgScreen2       = "screen2"
	ArgMinimap       = "minimap"
)

// ActionCall is the authoritative action emitted by the agent.
type ActionCall struct {
	Function string
	Args     []Arg
}

// Arg keeps the argument values flattened and unparsed; tags must not lose
// precision through float64.
type Arg struct {
	Name   string
	Values []json.Number
}

func (c ActionCall) Arg(name string) (Arg, bool) {
	for _, a := range c.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// PointArg returns the first spatial argument and its name.
func (c ActionCall) PointArg() (Arg, bool) {
	for _, a := range c.Args {
		switch a.Name {
		case ArgScreen, ArgScreen2, ArgMinimap:
			return a, true
		}
	}
	return Arg{}, false
}

// IsSelection reports whether the action denotes a selection command.
func (c ActionCall) IsSelection() bool {
	return strings.Contains(strings.ToLower(c.Function), "select")
}

func (a Arg) Tags() []uint64 {
	out := make([]uint64, 0, len(a.Values))
	for _, v := range a.Values {
		if t, ok := parseTag(v); ok {
			out = append(out, t)
		}
	}
	return out
}

// Point returns the first two values as (x, y).
func (a Arg) Point() (orb.Point, bool) {
	if len(a.Values) < 2 {
		return orb.Point{}, false
	}
	x, err := a.Values[0].Float64()
	if err != nil {
		return orb.Point{}, false
	}
	y, err := a.Values[1].Float64()
	if err != nil {
		return orb.Point{}, false
	}
	p := orb.Point{x, y}
	return p, Finite(p)
}

func parseTag(n json.Number) (uint64, bool) {
	s := n.String()
	if t, err := strconv.ParseUint(s, 10, 64); err == nil {
		return t, true
	}
	f, err := n.Float64()
	if err != nil || f < 0 {
		return 0, false
	}
	return uint64(f), true
}

// Intent is the agent's optional structured account of the action. Indices
// refer to Snapshot.Units.
type Intent struct {
	SelectedIndices []int
	TargetUnitIndex *int
	TargetLocation  *orb.Point
	Queue           bool
}
