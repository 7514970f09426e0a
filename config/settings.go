// Package config provides configuration structures for the pinyin engine.
// It defines per-dictionary decoder settings and the server configuration.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DefaultBeamWidth is the number of candidates expanded from each position.
	DefaultBeamWidth = 32
	// DefaultBigramLambda weighs the bigram estimate against the unigram estimate.
	DefaultBigramLambda = 0.6
	// DefaultMaxPhraseLength bounds the number of syllables a single phrase may span.
	DefaultMaxPhraseLength = 16
	// DefaultDecodeTimeoutMs caps a single decode call.
	DefaultDecodeTimeoutMs = 500
)

// DictionarySettings contains the configuration of one dictionary: the
// decoder parameters used when a request does not override them.
type DictionarySettings struct {
	Name            string   `json:"name" yaml:"name"`                           // Unique name for the dictionary
	BigramLambda    *float64 `json:"bigram_lambda,omitempty" yaml:"bigram_lambda"` // Interpolation weight in [0,1]; unigram weight is 1 - lambda
	BeamWidth       int      `json:"beam_width" yaml:"beam_width"`               // Candidates expanded per position (e.g., 32)
	MaxPhraseLength int      `json:"max_phrase_length" yaml:"max_phrase_length"` // Max syllables per phrase
	DecodeTimeoutMs int      `json:"decode_timeout_ms" yaml:"decode_timeout_ms"` // Overall deadline per decode call
}

// Lambda returns the bigram interpolation weight, or the default when unset.
func (settings *DictionarySettings) Lambda() float64 {
	if settings.BigramLambda == nil {
		return DefaultBigramLambda
	}
	return *settings.BigramLambda
}

// DecodeTimeout returns the decode deadline as a duration.
func (settings *DictionarySettings) DecodeTimeout() time.Duration {
	return time.Duration(settings.DecodeTimeoutMs) * time.Millisecond
}

// Validate checks the settings and returns one message per problem found.
func (settings *DictionarySettings) Validate() []string {
	var problems []string

	if strings.TrimSpace(settings.Name) == "" {
		problems = append(problems, "Dictionary name cannot be empty or whitespace-only")
	} else if strings.ContainsAny(settings.Name, `/\`) || settings.Name == "." || settings.Name == ".." {
		problems = append(problems, "Dictionary name '"+settings.Name+"' is not a valid directory name")
	}

	if settings.BigramLambda != nil {
		if msg := ValidateLambda(*settings.BigramLambda); msg != "" {
			problems = append(problems, msg)
		}
	}
	if settings.BeamWidth < 0 {
		problems = append(problems, fmt.Sprintf("beam_width must be positive, got %d", settings.BeamWidth))
	}
	if settings.MaxPhraseLength < 0 {
		problems = append(problems, fmt.Sprintf("max_phrase_length must be positive, got %d", settings.MaxPhraseLength))
	}
	if settings.DecodeTimeoutMs < 0 {
		problems = append(problems, fmt.Sprintf("decode_timeout_ms cannot be negative, got %d", settings.DecodeTimeoutMs))
	}

	return problems
}

// ValidateLambda returns an error message when lambda is outside [0,1].
func ValidateLambda(lambda float64) string {
	if math.IsNaN(lambda) || lambda < 0 || lambda > 1 {
		return fmt.Sprintf("bigram_lambda must be within [0,1], got %v", lambda)
	}
	return ""
}

// ApplyDefaults applies default values to the dictionary settings
func (settings *DictionarySettings) ApplyDefaults() {
	if settings.BigramLambda == nil {
		lambda := DefaultBigramLambda
		settings.BigramLambda = &lambda
	}
	if settings.BeamWidth == 0 {
		settings.BeamWidth = DefaultBeamWidth
	}
	if settings.MaxPhraseLength == 0 {
		settings.MaxPhraseLength = DefaultMaxPhraseLength
	}
	if settings.DecodeTimeoutMs == 0 {
		settings.DecodeTimeoutMs = DefaultDecodeTimeoutMs
	}
}
