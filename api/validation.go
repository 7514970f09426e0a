// Package api provides validation utilities for API request handling.
package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-pinyin-engine/config"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/store"
)

// maxBatchSize bounds the number of inputs accepted by one batch decode.
const maxBatchSize = 256

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateDictionaryName validates a dictionary name parameter
func ValidateDictionaryName(name string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if name == "" {
		result.AddError("name", "Dictionary name is required")
		return result
	}

	if strings.TrimSpace(name) != name {
		result.AddError("name", "Dictionary name cannot have leading or trailing whitespace")
	}

	return result
}

// ValidateDictionarySettings validates dictionary settings for creation or update.
// Defaults are not applied here; the engine fills them from its configuration.
func ValidateDictionarySettings(settings *config.DictionarySettings) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if settings == nil {
		result.AddError("settings", "Dictionary settings are required")
		return result
	}

	if settings.Name == "" {
		result.AddError("name", "Dictionary name is required")
		return result
	}

	for _, problem := range settings.Validate() {
		result.AddError("settings", problem)
	}

	return result
}

// ValidateDecodeInput validates one decode request body.
func ValidateDecodeInput(field string, req *DecodeRequestBody) *ValidationResult {
	result := &ValidationResult{Valid: true}

	hasInput := strings.TrimSpace(req.Input) != ""
	hasSyllables := len(req.Syllables) > 0
	switch {
	case !hasInput && !hasSyllables:
		result.AddError(field, "Either 'input' or 'syllables' is required")
	case hasInput && hasSyllables:
		result.AddError(field, "Only one of 'input' or 'syllables' may be given")
	}

	if req.BigramLambda != nil {
		if msg := config.ValidateLambda(*req.BigramLambda); msg != "" {
			result.AddError(field+".bigram_lambda", msg)
		}
	}
	if req.BeamWidth < 0 {
		result.AddError(field+".beam_width", "Beam width cannot be negative")
	}
	for i, prefix := range req.Prefixes {
		if prefix == model.NullToken {
			result.AddError(fmt.Sprintf("%s.prefixes[%d]", field, i), "Prefix cannot be the null token")
		}
	}

	return result
}

// ValidateDecodeBatch validates a batch decode request body.
func ValidateDecodeBatch(req *DecodeBatchRequestBody) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(req.Requests) == 0 {
		result.AddError("requests", "No decode requests provided")
		return result
	}
	if len(req.Requests) > maxBatchSize {
		result.AddError("requests", fmt.Sprintf("At most %d decode requests are accepted per batch", maxBatchSize))
		return result
	}

	for i := range req.Requests {
		sub := ValidateDecodeInput(fmt.Sprintf("requests[%d]", i), &req.Requests[i])
		result.Errors = append(result.Errors, sub.Errors...)
	}
	result.Valid = !result.HasErrors()
	return result
}

// ValidatePhrases validates a slice of phrases for import
func ValidatePhrases(items []model.PhraseItem) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(items) == 0 {
		result.AddError("phrases", "No phrases provided")
		return result
	}

	for i, item := range items {
		if strings.TrimSpace(item.Phrase) == "" {
			result.AddError(fmt.Sprintf("phrases[%d].phrase", i), "Phrase text cannot be empty or whitespace-only")
		}
		if len(item.Pronunciations) == 0 {
			result.AddError(fmt.Sprintf("phrases[%d].pronunciations", i), "Phrase must have at least one pronunciation")
			continue
		}
		for j, p := range item.Pronunciations {
			if len(p.Keys) == 0 {
				result.AddError(fmt.Sprintf("phrases[%d].pronunciations[%d].keys", i, j), "Pronunciation must have at least one key")
			}
		}
	}

	return result
}

// ValidateBigrams validates bigram entries for import
func ValidateBigrams(entries []store.BigramEntry) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(entries) == 0 {
		result.AddError("bigrams", "No bigrams provided")
		return result
	}

	for i, e := range entries {
		if e.Context == model.NullToken || e.Next == model.NullToken {
			result.AddError(fmt.Sprintf("bigrams[%d]", i), "Bigram tokens cannot be the null token")
		}
	}

	return result
}

// ValidateTrainRequest validates a committed result submitted for training
func ValidateTrainRequest(result *model.MatchResult) *ValidationResult {
	vr := &ValidationResult{Valid: true}

	for i, m := range result.Matches {
		if m.Token == model.NullToken {
			vr.AddError(fmt.Sprintf("matches[%d].token", i), "Match token cannot be the null token")
		}
		if len(m.Keys) == 0 {
			vr.AddError(fmt.Sprintf("matches[%d].keys", i), "Match must carry the keys it was read from")
		}
	}

	return vr
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// ValidateJSONBinding validates JSON binding and returns a standardized error
func ValidateJSONBinding(c *gin.Context, target any) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}
