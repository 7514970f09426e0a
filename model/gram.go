package model

import (
	"maps"
	"slices"
)

// GramEntry is one continuation of a SingleGram.
type GramEntry struct {
	Token     Token  `json:"token"`
	Frequency uint32 `json:"frequency"`
}

// SingleGram is the per-context frequency record: how often each token
// followed the context token, plus the running total.
type SingleGram struct {
	Total uint32           `json:"total"`
	Freqs map[Token]uint32 `json:"freqs"`
}

// NewSingleGram returns an empty record.
func NewSingleGram() *SingleGram {
	return &SingleGram{Freqs: make(map[Token]uint32)}
}

// Frequency returns the frequency of token, 0 if absent.
func (g *SingleGram) Frequency(token Token) (uint32, bool) {
	if g == nil || g.Freqs == nil {
		return 0, false
	}
	freq, ok := g.Freqs[token]
	return freq, ok
}

// SetFrequency sets the frequency of token. The total is not touched.
func (g *SingleGram) SetFrequency(token Token, freq uint32) {
	if g.Freqs == nil {
		g.Freqs = make(map[Token]uint32)
	}
	g.Freqs[token] = freq
}

// Entries returns the continuations sorted by ascending token.
func (g *SingleGram) Entries() []GramEntry {
	if g == nil {
		return nil
	}
	tokens := slices.Sorted(maps.Keys(g.Freqs))
	entries := make([]GramEntry, len(tokens))
	for i, t := range tokens {
		entries[i] = GramEntry{Token: t, Frequency: g.Freqs[t]}
	}
	return entries
}

// Clone returns a deep copy.
func (g *SingleGram) Clone() *SingleGram {
	if g == nil {
		return nil
	}
	return &SingleGram{Total: g.Total, Freqs: maps.Clone(g.Freqs)}
}

// Merge adds the counts of other into a copy of g. Frequencies of the same
// token are summed, as are totals.
func (g *SingleGram) Merge(other *SingleGram) *SingleGram {
	merged := g.Clone()
	if merged == nil {
		merged = NewSingleGram()
	}
	if other == nil {
		return merged
	}
	if merged.Freqs == nil {
		merged.Freqs = make(map[Token]uint32, len(other.Freqs))
	}
	merged.Total = AddSaturating(merged.Total, other.Total)
	for t, f := range other.Freqs {
		merged.Freqs[t] = AddSaturating(merged.Freqs[t], f)
	}
	return merged
}

// AddSaturating returns a+b, clamped to the largest uint32.
func AddSaturating(a, b uint32) uint32 {
	if a > ^uint32(0)-b {
		return ^uint32(0)
	}
	return a + b
}
