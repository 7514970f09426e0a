// Package matrix holds the phonetic key matrix consumed by the decoder: for
// every boundary position, the recognized syllables that start there.
// Deciding where syllables lie is the caller's job; the matrix only stores
// and enumerates them.
package matrix

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

// separatorRegex matches the explicit syllable separators accepted by Parse.
var separatorRegex = regexp.MustCompile(`[\s']+`)

// syllableRegex accepts a single lowercase latin syllable ("v" stands for "ü").
var syllableRegex = regexp.MustCompile(`^[a-z]+$`)

// Syllable is a recognized phonetic key spanning [start, End).
type Syllable struct {
	Key string `json:"key"`
	End int    `json:"end"`
}

// Span is a chain of syllables from a start position to End.
type Span struct {
	End  int
	Keys []string
}

// Matrix stores the syllables starting at each of its positions.
type Matrix struct {
	columns [][]Syllable
}

// New creates a matrix with size positions (one more than the number of
// syllable slots of a linear input).
func New(size int) *Matrix {
	if size < 0 {
		size = 0
	}
	return &Matrix{columns: make([][]Syllable, size)}
}

// Size returns the number of positions.
func (m *Matrix) Size() int {
	return len(m.columns)
}

// AddSyllable records that key spans [start, end).
func (m *Matrix) AddSyllable(start, end int, key string) error {
	if start < 0 || end <= start || end >= len(m.columns) {
		return fmt.Errorf("syllable span [%d,%d) is outside the matrix of size %d", start, end, len(m.columns))
	}
	if key == "" {
		return fmt.Errorf("syllable at [%d,%d) has an empty key", start, end)
	}
	for _, s := range m.columns[start] {
		if s.End == end && s.Key == key {
			return nil
		}
	}
	m.columns[start] = append(m.columns[start], Syllable{Key: key, End: end})
	return nil
}

// Syllables returns the syllables starting at pos.
func (m *Matrix) Syllables(pos int) []Syllable {
	if pos < 0 || pos >= len(m.columns) {
		return nil
	}
	return m.columns[pos]
}

// Spans enumerates every chain of 1..maxLen syllables starting at start.
// Results are ordered by end position, then by joined key, and contain no
// duplicates.
func (m *Matrix) Spans(start, maxLen int) []Span {
	if start < 0 || start >= len(m.columns) || maxLen <= 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var spans []Span
	var walk func(pos int, keys []string)
	walk = func(pos int, keys []string) {
		if len(keys) == maxLen {
			return
		}
		for _, s := range m.columns[pos] {
			chain := append(slices.Clone(keys), s.Key)
			id := fmt.Sprintf("%d|%s", s.End, model.JoinKeys(chain))
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				spans = append(spans, Span{End: s.End, Keys: chain})
			}
			walk(s.End, chain)
		}
	}
	walk(start, nil)

	slices.SortFunc(spans, func(a, b Span) int {
		if a.End != b.End {
			return a.End - b.End
		}
		return strings.Compare(model.JoinKeys(a.Keys), model.JoinKeys(b.Keys))
	})
	return spans
}

// Covered reports whether some chain of syllables leads from position 0 to
// the last position.
func (m *Matrix) Covered() bool {
	if len(m.columns) < 2 {
		return false
	}
	reached := make([]bool, len(m.columns))
	reached[0] = true
	for pos := range m.columns {
		if !reached[pos] {
			continue
		}
		for _, s := range m.columns[pos] {
			reached[s.End] = true
		}
	}
	return reached[len(m.columns)-1]
}

// FromSyllables builds a linear matrix where syllable i spans [i, i+1).
func FromSyllables(syllables []string) (*Matrix, error) {
	m := New(len(syllables) + 1)
	for i, key := range syllables {
		if err := m.AddSyllable(i, i+1, key); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Parse splits explicitly separated input such as "ni'hao" or "ni hao"
// into a linear matrix. It lowercases the input and rejects anything that
// is not a plain latin syllable.
func Parse(text string) (*Matrix, error) {
	syllables := SplitSyllables(text)
	if len(syllables) == 0 {
		return nil, fmt.Errorf("no syllables in input %q", text)
	}
	for _, s := range syllables {
		if !syllableRegex.MatchString(s) {
			return nil, fmt.Errorf("invalid syllable %q in input %q", s, text)
		}
	}
	return FromSyllables(syllables)
}

// SplitSyllables lowercases text and splits it on whitespace and apostrophes.
func SplitSyllables(text string) []string {
	split := separatorRegex.Split(strings.ToLower(strings.TrimSpace(text)), -1)

	syllables := make([]string, 0, len(split)) // Initialize as empty slice, not nil
	for _, s := range split {
		if s != "" {
			syllables = append(syllables, s)
		}
	}
	return syllables
}
