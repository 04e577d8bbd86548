package protocol

import (
	"math"
	"reflect"

	"github.com/paulmach/orb"

	"cuecast.ai/internal/cues/model"
)

// OverlayDoc is the document the renderer reads, once per frame.
type OverlayDoc struct {
	Cues        []CueMsg       `json:"cues"`
	Debug       map[string]any `json:"debug"`
	Observation string         `json:"observation"`
	Decision    string         `json:"decision"`
	LLMConfig   map[string]any `json:"llm_config"`
}

type CueMsg struct {
	Type       string  `json:"type"`
	Coordinate string  `json:"coordinate"`
	Start      *[2]int `json:"start,omitempty"`
	End        *[2]int `json:"end,omitempty"`
	Center     *[2]int `json:"center,omitempty"`
	Pos        *[2]int `json:"pos,omitempty"`
	Radius     int     `json:"radius,omitempty"`
	Color      string  `json:"color"`
	Text       string  `json:"text,omitempty"`
}

func CueFromModel(c model.Cue) CueMsg {
	m := CueMsg{
		Type:       string(c.Kind),
		Coordinate: string(c.Coord),
		Color:      c.Color,
		Text:       c.Label,
	}
	pix := func(p model.Pixel) *[2]int { v := [2]int(p); return &v }
	switch c.Kind {
	case model.CueArrow, model.CueBox:
		m.Start, m.End = pix(c.Start), pix(c.End)
	case model.CueCircle, model.CueRipple:
		m.Center = pix(c.Center)
		m.Radius = c.Radius
	case model.CueText:
		m.Pos = pix(c.Center)
	}
	return m
}

func CuesFromModel(cs []model.Cue) []CueMsg {
	out := make([]CueMsg, 0, len(cs))
	for _, c := range cs {
		out = append(out, CueFromModel(c))
	}
	return out
}

// NormalizeDebug rewrites diagnostic values into plain JSON shapes: geometry
// becomes number lists, non-finite floats become null, and typed slices and
// maps are walked recursively.
func NormalizeDebug(d map[string]any) map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int64, uint64, int32, uint32:
		return x
	case float64:
		return finiteOrNil(x)
	case float32:
		return finiteOrNil(float64(x))
	case error:
		return x.Error()
	case orb.Point:
		return []any{finiteOrNil(x[0]), finiteOrNil(x[1])}
	case *orb.Point:
		if x == nil {
			return nil
		}
		return normalize(*x)
	case orb.Bound:
		return map[string]any{"min": normalize(x.Min), "max": normalize(x.Max)}
	case *orb.Bound:
		if x == nil {
			return nil
		}
		return normalize(*x)
	case model.Pixel:
		return []any{x[0], x[1]}
	case map[string]any:
		return NormalizeDebug(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return finiteOrNil(rv.Float())
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	return v
}

func finiteOrNil(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
