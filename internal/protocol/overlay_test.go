package protocol

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuecast.ai/internal/cues/model"
)

func TestCueFromModel_Shapes(t *testing.T) {
	arrow := CueFromModel(model.Cue{Kind: model.CueArrow, Coord: model.CoordMap, Start: model.Pixel{1, 2}, End: model.Pixel{3, 4}, Color: "red", Label: "Attack"})
	assert.Equal(t, &[2]int{1, 2}, arrow.Start)
	assert.Equal(t, &[2]int{3, 4}, arrow.End)
	assert.Nil(t, arrow.Center)
	assert.Equal(t, "Attack", arrow.Text)

	ripple := CueFromModel(model.Cue{Kind: model.CueRipple, Coord: model.CoordViewport, Center: model.Pixel{5, 6}, Radius: 20})
	assert.Equal(t, &[2]int{5, 6}, ripple.Center)
	assert.Equal(t, 20, ripple.Radius)
	assert.Nil(t, ripple.Start)

	text := CueFromModel(model.Cue{Kind: model.CueText, Coord: model.CoordViewport, Center: model.Pixel{32, 10}})
	assert.Equal(t, &[2]int{32, 10}, text.Pos)
	assert.Nil(t, text.Center)
}

func TestNormalizeDebug(t *testing.T) {
	p := orb.Point{1.5, 2}
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{20, 20}}
	var nilPoint *orb.Point
	in := map[string]any{
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"f32":      float32(0.5),
		"point":    p,
		"pointPtr": &p,
		"nilPoint": nilPoint,
		"bound":    &b,
		"pixel":    model.Pixel{3, 4},
		"tags":     []uint64{4298113025},
		"ints":     []int{},
		"nilInts":  []int(nil),
		"nested":   map[string]any{"w": []orb.Point{{1, 1}}},
		"typed":    map[string]int{"a": 1},
		"source":   model.CoordMap,
	}
	out := NormalizeDebug(in)

	b2, err := json.Marshal(out)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b2, &got))
	assert.Nil(t, got["nan"])
	assert.Nil(t, got["inf"])
	assert.Equal(t, 0.5, got["f32"])
	assert.Equal(t, []any{1.5, 2.0}, got["point"])
	assert.Equal(t, []any{1.5, 2.0}, got["pointPtr"])
	assert.Nil(t, got["nilPoint"])
	assert.Equal(t, map[string]any{"min": []any{0.0, 0.0}, "max": []any{20.0, 20.0}}, got["bound"])
	assert.Equal(t, []any{3.0, 4.0}, got["pixel"])
	assert.Equal(t, []any{4298113025.0}, got["tags"])
	assert.Equal(t, []any{}, got["ints"])
	assert.Equal(t, []any{}, got["nilInts"])
	assert.Equal(t, map[string]any{"w": []any{[]any{1.0, 1.0}}}, got["nested"])
	assert.Equal(t, map[string]any{"a": 1.0}, got["typed"])
	assert.Equal(t, "map", got["source"])
}
