package virtualsel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cuecast.ai/internal/cues/model"
)

func units() []model.Unit {
	return []model.Unit{
		{Tag: 1, Alliance: model.AllianceSelf},
		{Tag: 2, Alliance: model.AllianceEnemy},
		{Tag: 3, Alliance: model.AllianceSelf},
		{Tag: 4, Alliance: model.AllianceNeutral},
	}
}

func TestPropose_FiltersNonSelf(t *testing.T) {
	p := Propose(units(), []int{0, 1, 2, 3, 9, -1}, false)
	assert.Equal(t, ModeReplace, p.Mode)
	assert.Equal(t, []uint64{1, 3}, p.Tags)
	assert.Equal(t, 4, p.Rejected)
}

func TestPropose_NothingAdmissibleKeeps(t *testing.T) {
	p := Propose(units(), []int{1, 3}, false)
	assert.Equal(t, ModeKeep, p.Mode)
	assert.Empty(t, p.Tags)

	s := New(7)
	assert.Equal(t, []uint64{7}, s.Apply(p).Tags())
}

func TestApply_ReplaceAndUnion(t *testing.T) {
	s := New(1, 5)

	replaced := s.Apply(Propose(units(), []int{2}, false))
	assert.Equal(t, []uint64{3}, replaced.Tags())

	unioned := s.Apply(Propose(units(), []int{2, 0}, true))
	assert.Equal(t, []uint64{1, 5, 3}, unioned.Tags())

	assert.Equal(t, []uint64{1, 5}, s.Tags(), "receiver unchanged")
}

func TestSet_Dedup(t *testing.T) {
	s := New(2, 2, 3)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(9))

	var zero Set
	assert.Equal(t, 0, zero.Len())
	assert.Empty(t, zero.Tags())
}
