package model

import (
	"strings"
	"unicode/utf8"
)

// Token identifies a phrase in the phrase index.
type Token uint32

const (
	// NullToken marks an absent context slot.
	NullToken Token = 0
	// SentenceStart is the default prefix seed when the caller supplies none.
	SentenceStart Token = 1
	// FirstPhraseToken is the smallest token assigned to imported phrases.
	FirstPhraseToken Token = 16
	// MaxPhraseToken is the largest token a phrase may use.
	MaxPhraseToken Token = ^Token(0) - 1
)

// KeySeparator joins syllable keys into a single phonetic key.
const KeySeparator = "'"

// Pronunciation is one way of reading a phrase, with its observed frequency.
type Pronunciation struct {
	Keys      []string `json:"keys"`
	Frequency uint32   `json:"frequency"`
}

// Key returns the joined phonetic key of the pronunciation.
func (p Pronunciation) Key() string {
	return JoinKeys(p.Keys)
}

// PhraseItem is an entry of the phrase index.
type PhraseItem struct {
	Token          Token           `json:"token"`
	Phrase         string          `json:"phrase"`
	Length         int             `json:"length"`    // character count of Phrase
	Frequency      uint32          `json:"frequency"` // system unigram frequency
	Pronunciations []Pronunciation `json:"pronunciations"`
}

// NewPhraseItem builds a PhraseItem and derives its character length.
func NewPhraseItem(token Token, phrase string, frequency uint32, pronunciations ...Pronunciation) PhraseItem {
	return PhraseItem{
		Token:          token,
		Phrase:         phrase,
		Length:         utf8.RuneCountInString(phrase),
		Frequency:      frequency,
		Pronunciations: pronunciations,
	}
}

// PronunciationFrequency returns the frequency recorded for the given key
// and the sum over all pronunciations of the phrase.
func (p PhraseItem) PronunciationFrequency(key string) (freq uint32, total uint64) {
	for _, pron := range p.Pronunciations {
		total += uint64(pron.Frequency)
		if pron.Key() == key {
			freq += pron.Frequency
		}
	}
	return freq, total
}

// JoinKeys joins syllable keys with KeySeparator.
func JoinKeys(keys []string) string {
	return strings.Join(keys, KeySeparator)
}
