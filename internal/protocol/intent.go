package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"cuecast.ai/internal/cues/model"
)

// DecodeIntent accepts the agent's intent object. Both the short keys
// (units, target_unit) and the long keys (selected_indices,
// target_unit_index) are understood. An absent or null intent is nil.
func DecodeIntent(raw json.RawMessage) (*model.Intent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIntent, err)
	}

	in := &model.Intent{}
	if v, ok := pick(fields, "units", "selected_indices"); ok {
		idx, err := decodeIndices(v)
		if err != nil {
			return nil, fmt.Errorf("%w: units: %v", ErrMalformedIntent, err)
		}
		in.SelectedIndices = idx
	}
	if v, ok := pick(fields, "target_unit", "target_unit_index"); ok {
		n, err := decodeOptionalIndex(v)
		if err != nil {
			return nil, fmt.Errorf("%w: target_unit: %v", ErrMalformedIntent, err)
		}
		in.TargetUnitIndex = n
	}
	if v, ok := pick(fields, "target_location"); ok {
		p, err := decodeOptionalPoint(v)
		if err != nil {
			return nil, fmt.Errorf("%w: target_location: %v", ErrMalformedIntent, err)
		}
		in.TargetLocation = p
	}
	if v, ok := pick(fields, "queue", "queued"); ok {
		q, err := decodeFlag(v)
		if err != nil {
			return nil, fmt.Errorf("%w: queue: %v", ErrMalformedIntent, err)
		}
		in.Queue = q
	}
	return in, nil
}

func pick(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && string(bytes.TrimSpace(v)) != "null" {
			return v, true
		}
	}
	return nil, false
}

func decodeIndices(raw json.RawMessage) ([]int, error) {
	var nums []float64
	if err := json.Unmarshal(raw, &nums); err != nil {
		return nil, err
	}
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		i, err := wholeIndex(n)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func decodeOptionalIndex(raw json.RawMessage) (*int, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	i, err := wholeIndex(n)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func wholeIndex(n float64) (int, error) {
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, fmt.Errorf("index %v is not an integer", n)
	}
	return int(n), nil
}

func decodeOptionalPoint(raw json.RawMessage) (*orb.Point, error) {
	var xy []float64
	if err := json.Unmarshal(raw, &xy); err != nil {
		return nil, err
	}
	if len(xy) != 2 {
		return nil, fmt.Errorf("want 2 coordinates, got %d", len(xy))
	}
	p := orb.Point{xy[0], xy[1]}
	return &p, nil
}

func decodeFlag(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return false, err
	}
	return n != 0, nil
}
