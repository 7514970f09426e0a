package matrix

import (
	"reflect"
	"testing"
)

func TestSplitSyllables(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "apostrophes", input: "ni'hao", expected: []string{"ni", "hao"}},
		{name: "spaces", input: "  zhong  guo ", expected: []string{"zhong", "guo"}},
		{name: "mixed separators and case", input: "Xi' An", expected: []string{"xi", "an"}},
		{name: "empty string", input: "", expected: []string{}},
		{name: "only separators", input: "' '", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSyllables(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SplitSyllables(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParse(t *testing.T) {
	m, err := Parse("ni'hao")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if m.Size() != 3 {
		t.Errorf("Expected 3 positions, got %d", m.Size())
	}
	if !m.Covered() {
		t.Error("Expected linear matrix to be covered")
	}

	if _, err := Parse("ni'h4o"); err == nil {
		t.Error("Expected error for syllable containing a digit")
	}
	if _, err := Parse("   "); err == nil {
		t.Error("Expected error for input without syllables")
	}
}

func TestAddSyllable_Bounds(t *testing.T) {
	m := New(3)
	if err := m.AddSyllable(0, 3, "xian"); err == nil {
		t.Error("Expected error for end beyond the last position")
	}
	if err := m.AddSyllable(1, 1, "a"); err == nil {
		t.Error("Expected error for empty span")
	}
	if err := m.AddSyllable(0, 1, ""); err == nil {
		t.Error("Expected error for empty key")
	}
	if err := m.AddSyllable(0, 1, "xi"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := m.AddSyllable(0, 1, "xi"); err != nil {
		t.Fatalf("Unexpected error on duplicate: %v", err)
	}
	if len(m.Syllables(0)) != 1 {
		t.Errorf("Expected duplicate syllable to be ignored, got %d", len(m.Syllables(0)))
	}
}

func TestSpans(t *testing.T) {
	// "xian" read either as one syllable over [0,2) or as "xi" + "an".
	m := New(3)
	for _, s := range []struct {
		start, end int
		key        string
	}{
		{0, 1, "xi"},
		{1, 2, "an"},
		{0, 2, "xian"},
	} {
		if err := m.AddSyllable(s.start, s.end, s.key); err != nil {
			t.Fatalf("AddSyllable: %v", err)
		}
	}

	spans := m.Spans(0, 16)
	expected := []Span{
		{End: 1, Keys: []string{"xi"}},
		{End: 2, Keys: []string{"xi", "an"}},
		{End: 2, Keys: []string{"xian"}},
	}
	if !reflect.DeepEqual(spans, expected) {
		t.Errorf("Spans(0) = %v, want %v", spans, expected)
	}

	limited := m.Spans(0, 1)
	if len(limited) != 2 {
		t.Errorf("Expected 2 single-syllable spans, got %v", limited)
	}

	if got := m.Spans(2, 16); len(got) != 0 {
		t.Errorf("Expected no spans from the final position, got %v", got)
	}
}

func TestCovered_Gap(t *testing.T) {
	m := New(4)
	_ = m.AddSyllable(0, 1, "ni")
	_ = m.AddSyllable(2, 3, "hao")
	if m.Covered() {
		t.Error("Expected matrix with a gap to be uncovered")
	}
}
