package lattice

import (
	"fmt"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

// step is the content of one lattice position.
type step struct {
	content []Candidate
	index   map[model.Token]int // last token -> index in content
}

// Lattice is the candidate arena of one decode call, indexed by position.
// A position holds at most one candidate per last token.
type Lattice struct {
	steps []step
}

// New creates a lattice with nstep positions.
func New(nstep int) *Lattice {
	steps := make([]step, nstep)
	for i := range steps {
		steps[i].index = make(map[model.Token]int)
	}
	return &Lattice{steps: steps}
}

// Size returns the number of positions.
func (l *Lattice) Size() int {
	return len(l.steps)
}

// Len returns the number of live candidates at pos.
func (l *Lattice) Len(pos int) int {
	return len(l.steps[pos].content)
}

// At returns the candidate at (pos, idx).
func (l *Lattice) At(pos, idx int) Candidate {
	return l.steps[pos].content[idx]
}

// Candidates returns the live candidates at pos in insertion order. The
// slice must not be modified.
func (l *Lattice) Candidates(pos int) []Candidate {
	return l.steps[pos].content
}

// Seed inserts a position-0 start candidate through the merge policy.
func (l *Lattice) Seed(c Candidate) error {
	if !c.IsSeed() {
		return fmt.Errorf("seed candidate for token %d carries a backpointer", c.LastToken())
	}
	if l.Size() == 0 {
		return fmt.Errorf("cannot seed an empty lattice")
	}
	l.Insert(0, c.LastToken(), c)
	return nil
}

// Insert adds c at position pos keyed by key, applying the merge policy:
// the longer candidate wins; on equal length the higher score wins; on an
// exact tie the existing candidate stays. It reports whether c was kept.
func (l *Lattice) Insert(pos int, key model.Token, c Candidate) bool {
	s := &l.steps[pos]

	idx, exists := s.index[key]
	if !exists {
		s.index[key] = len(s.content)
		s.content = append(s.content, c)
		return true
	}

	if !Supersedes(c, s.content[idx]) {
		return false
	}
	s.content[idx] = c
	return true
}

// Supersedes reports whether candidate c replaces existing e under the
// merge policy.
func Supersedes(c, e Candidate) bool {
	if c.Length != e.Length {
		return c.Length > e.Length
	}
	return c.Score > e.Score
}
