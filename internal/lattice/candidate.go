// Package lattice holds the per-position candidate arena built during one
// decode call, the merge policy applied on every insertion, and the beam
// extraction that picks which candidates are expanded.
package lattice

import "github.com/gcbaptista/go-pinyin-engine/model"

// NoOrigin marks a seed candidate, which has no backpointer.
const NoOrigin = -1

// Candidate is one partial parse ending at the position that holds it.
type Candidate struct {
	// Context is (previous token, own last token); the last token is the
	// bigram context for further expansion and the position's dedup key.
	Context [2]model.Token
	// Length is the accumulated phrase character count along the path.
	Length int
	// Score is the accumulated natural-log probability along the path.
	Score float64
	// OriginPosition and OriginIndex locate the candidate this one was
	// derived from; both are NoOrigin for seeds.
	OriginPosition int
	OriginIndex    int
	// Keys are the syllable keys of the span this candidate appended.
	Keys []string
}

// NewSeed returns a position-0 candidate starting from prefix.
func NewSeed(prefix model.Token) Candidate {
	return Candidate{
		Context:        [2]model.Token{model.NullToken, prefix},
		OriginPosition: NoOrigin,
		OriginIndex:    NoOrigin,
	}
}

// LastToken returns the candidate's own last token.
func (c Candidate) LastToken() model.Token {
	return c.Context[1]
}

// IsSeed reports whether c has no backpointer.
func (c Candidate) IsSeed() bool {
	return c.OriginPosition == NoOrigin
}

// Extend derives the candidate reached by appending next over keys.
// originPosition and originIndex locate c in the lattice.
func (c Candidate) Extend(next model.Token, length int, score float64, originPosition, originIndex int, keys []string) Candidate {
	return Candidate{
		Context:        [2]model.Token{c.LastToken(), next},
		Length:         c.Length + length,
		Score:          score,
		OriginPosition: originPosition,
		OriginIndex:    originIndex,
		Keys:           keys,
	}
}
