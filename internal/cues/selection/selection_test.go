package selection

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuecast.ai/internal/cues/model"
	"cuecast.ai/internal/cues/projection"
)

var params = projection.Params{ViewportPixels: 64, ScreenWorldRadius: 12, RectMargin: 4}

func mapper(vp model.Viewport) projection.Mapper {
	return projection.New(vp, model.MapFrame{Extent: 64}, params)
}

func rect(minX, minY, maxX, maxY float64) model.Viewport {
	b := orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
	return model.Viewport{Rect: &b, Valid: true}
}

func unit(tag uint64, x, y float64, selected bool) model.Unit {
	return model.Unit{Tag: tag, Pos: orb.Point{x, y}, Alliance: model.AllianceSelf, Radius: 1, Selected: selected, Visible: true}
}

func tagsArg(tags ...uint64) model.Arg {
	a := model.Arg{Name: model.ArgUnitTags}
	for _, t := range tags {
		b, _ := json.Marshal(t)
		a.Values = append(a.Values, json.Number(b))
	}
	return a
}

func TestResolve_IntentWinsOverGroundTruth(t *testing.T) {
	snap := model.Snapshot{Units: []model.Unit{
		unit(100, 10, 10, false),
		unit(200, 40, 40, true),
	}}
	r := Resolve(Input{
		Snapshot:         snap,
		Intent:           &model.Intent{SelectedIndices: []int{0}},
		Mapper:           mapper(model.Viewport{}),
		ScatterThreshold: 20,
	})

	assert.Equal(t, SourceIntent, r.Source)
	require.Len(t, r.Members, 1)
	assert.Equal(t, uint64(100), r.Members[0].Tag)
	require.NotNil(t, r.Center)
	assert.Equal(t, orb.Point{10, 10}, *r.Center)
	assert.False(t, r.RealSelectionEmpty)
}

func TestResolve_OutOfRangeIndicesDropped(t *testing.T) {
	snap := model.Snapshot{Units: []model.Unit{unit(1, 5, 5, false)}}
	r := Resolve(Input{
		Snapshot: snap,
		Intent:   &model.Intent{SelectedIndices: []int{7, -1, 0}},
		Mapper:   mapper(model.Viewport{}),
	})
	assert.Equal(t, SourceIntent, r.Source)
	assert.Len(t, r.Members, 1)
	assert.Equal(t, []int{7, -1}, r.Dropped)
}

func TestResolve_AllIndicesDroppedFallsThrough(t *testing.T) {
	snap := model.Snapshot{Units: []model.Unit{unit(1, 5, 5, true)}}
	r := Resolve(Input{
		Snapshot: snap,
		Intent:   &model.Intent{SelectedIndices: []int{3}},
		Mapper:   mapper(model.Viewport{}),
	})
	assert.Equal(t, SourceGroundTruth, r.Source)
	assert.Equal(t, []int{3}, r.Dropped)
}

func TestResolve_VirtualBeforeCallTags(t *testing.T) {
	snap := model.Snapshot{Units: []model.Unit{unit(1, 5, 5, false), unit(2, 6, 6, false)}}
	r := Resolve(Input{
		Snapshot: snap,
		Intent:   &model.Intent{},
		Virtual:  []uint64{2, 99},
		Call:     model.ActionCall{Function: "Move_screen", Args: []model.Arg{tagsArg(1)}},
		Mapper:   mapper(model.Viewport{}),
	})
	assert.Equal(t, SourceVirtual, r.Source)
	require.Len(t, r.Members, 1)
	assert.Equal(t, uint64(2), r.Members[0].Tag)
	assert.Equal(t, 1, r.Members[0].Index)
}

func TestResolve_CallTags(t *testing.T) {
	snap := model.Snapshot{Units: []model.Unit{unit(1, 5, 5, false), unit(4298113025, 6, 6, true)}}
	r := Resolve(Input{
		Snapshot: snap,
		Call:     model.ActionCall{Function: "Attack_unit", Args: []model.Arg{tagsArg(4298113025, 77)}},
		Mapper:   mapper(model.Viewport{}),
	})
	assert.Equal(t, SourceCallTags, r.Source)
	require.Len(t, r.Members, 1)
	assert.Equal(t, uint64(4298113025), r.Members[0].Tag)
}

func TestResolve_GroundTruthScreenOnly(t *testing.T) {
	snap := model.Snapshot{ScreenUnits: []model.ScreenUnit{
		{Tag: 1, Pixel: orb.Point{12.6, 70}, Selected: true},
		{Tag: 2, Pixel: orb.Point{3, 3}},
	}}
	c := orb.Point{30, 30}
	r := Resolve(Input{Snapshot: snap, Mapper: mapper(model.Viewport{Center: &c, Valid: true})})

	assert.Equal(t, SourceGroundTruth, r.Source)
	assert.Empty(t, r.Members)
	assert.Equal(t, []model.Pixel{{12, 63}}, r.ScreenPixels)
	require.NotNil(t, r.Center)
	assert.Equal(t, c, *r.Center, "no world members: centre falls back to the viewport centre")
}

func TestResolve_EmptyWithoutViewport(t *testing.T) {
	r := Resolve(Input{Mapper: mapper(model.Viewport{})})
	assert.Equal(t, SourceNone, r.Source)
	assert.Nil(t, r.Center)
	assert.True(t, r.RealSelectionEmpty)
	assert.Equal(t, model.DefaultUnitRadius, r.AvgRadius)
}

func TestCenter_PrefersInViewportMembers(t *testing.T) {
	snap := model.Snapshot{Units: []model.Unit{
		unit(1, 4, 4, false),
		unit(2, 8, 8, false),
		unit(3, 60, 60, false),
	}}
	r := Resolve(Input{
		Snapshot:         snap,
		Intent:           &model.Intent{SelectedIndices: []int{0, 1, 2}},
		Mapper:           mapper(rect(0, 0, 20, 20)),
		ScatterThreshold: 20,
	})
	require.NotNil(t, r.Center)
	assert.Equal(t, orb.Point{6, 6}, *r.Center)
	assert.Len(t, r.Members, 3)
}

func TestCenter_ScatterCollapsesToFirst(t *testing.T) {
	snap := model.Snapshot{Units: []model.Unit{
		unit(1, 50, 5, false),
		unit(2, 10, 40, false),
		unit(3, 30, 30, false),
	}}
	r := Resolve(Input{
		Snapshot:         snap,
		Intent:           &model.Intent{SelectedIndices: []int{0, 1, 2}},
		Mapper:           mapper(model.Viewport{}),
		ScatterThreshold: 20,
	})
	require.NotNil(t, r.Center)
	assert.Equal(t, orb.Point{50, 5}, *r.Center)
}

func TestCenter_TightGroupAverages(t *testing.T) {
	snap := model.Snapshot{Units: []model.Unit{
		{Tag: 1, Pos: orb.Point{40, 40}, Radius: 0.5},
		{Tag: 2, Pos: orb.Point{44, 48}, Radius: 1.5},
	}}
	r := Resolve(Input{
		Snapshot:         snap,
		Intent:           &model.Intent{SelectedIndices: []int{0, 1}},
		Mapper:           mapper(model.Viewport{}),
		ScatterThreshold: 20,
	})
	require.NotNil(t, r.Center)
	assert.Equal(t, orb.Point{42, 44}, *r.Center)
	assert.Equal(t, 1.0, r.AvgRadius)
}

func TestResolveWith_CustomCascade(t *testing.T) {
	snap := model.Snapshot{Units: []model.Unit{unit(1, 5, 5, true)}}
	r := ResolveWith([]Strategy{{Source: SourceIntent, Resolve: fromIntent}}, Input{
		Snapshot: snap,
		Mapper:   mapper(model.Viewport{}),
	})
	assert.Equal(t, SourceNone, r.Source)
	assert.Empty(t, r.Members)
}

func TestScattered(t *testing.T) {
	assert.False(t, Scattered([]Member{{World: orb.Point{0, 0}}, {World: orb.Point{20, 20}}}, 20))
	assert.True(t, Scattered([]Member{{World: orb.Point{0, 0}}, {World: orb.Point{0, 20.5}}}, 20))
}
