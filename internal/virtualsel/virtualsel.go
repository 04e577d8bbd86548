// Package virtualsel tracks the units the agent believes it has selected.
// The set outlives frames; the engine only proposes changes and the owning
// loop applies them between frames.
package virtualsel

import (
	"slices"

	"cuecast.ai/internal/cues/model"
)

// Set is an insertion-ordered set of SELF unit tags. The zero value is empty.
type Set struct {
	tags []uint64
}

func New(tags ...uint64) Set {
	var s Set
	for _, t := range tags {
		s.add(t)
	}
	return s
}

func (s Set) Tags() []uint64 { return slices.Clone(s.tags) }
func (s Set) Len() int        { return len(s.tags) }
func (s Set) Contains(tag uint64) bool {
	return slices.Contains(s.tags, tag)
}

func (s *Set) add(tag uint64) {
	if !slices.Contains(s.tags, tag) {
		s.tags = append(s.tags, tag)
	}
}

type Mode string

const (
	ModeKeep    Mode = "keep"
	ModeReplace Mode = "replace"
	ModeUnion   Mode = "union"
)

type Proposal struct {
	Mode Mode
	Tags []uint64
	// Rejected counts indices that were out of range or not SELF units.
	Rejected int
}

// Propose derives the update implied by a selection action. Only SELF units
// are admitted; a non-queued selection with no admissible unit keeps the
// current set.
func Propose(units []model.Unit, indices []int, queue bool) Proposal {
	p := Proposal{Mode: ModeKeep}
	for _, idx := range indices {
		if idx < 0 || idx >= len(units) || units[idx].Alliance != model.AllianceSelf {
			p.Rejected++
			continue
		}
		if !slices.Contains(p.Tags, units[idx].Tag) {
			p.Tags = append(p.Tags, units[idx].Tag)
		}
	}
	switch {
	case len(p.Tags) == 0:
	case queue:
		p.Mode = ModeUnion
	default:
		p.Mode = ModeReplace
	}
	return p
}

// Apply returns the set after p; s itself is not modified.
func (s Set) Apply(p Proposal) Set {
	switch p.Mode {
	case ModeReplace:
		return New(p.Tags...)
	case ModeUnion:
		out := Set{tags: slices.Clone(s.tags)}
		for _, t := range p.Tags {
			out.add(t)
		}
		return out
	}
	return s
}
