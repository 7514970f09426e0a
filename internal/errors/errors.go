package errors

import (
	"errors"
	"fmt"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

// Sentinel errors for common error conditions
var (
	// ErrDictionaryNotFound is returned when a dictionary is not found
	ErrDictionaryNotFound = errors.New("dictionary not found")

	// ErrDictionaryAlreadyExists is returned when trying to create a dictionary that already exists
	ErrDictionaryAlreadyExists = errors.New("dictionary already exists")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when decoding finds no path covering the input
	ErrNotFound = errors.New("no match found")

	// ErrDecodeTimeout is returned when a decode call exceeds its deadline
	ErrDecodeTimeout = errors.New("decode timed out")

	// ErrTrainingFailed is returned when a training commit could not be persisted
	ErrTrainingFailed = errors.New("training failed")
)

// DictionaryNotFoundError represents a dictionary not found error with context
type DictionaryNotFoundError struct {
	DictionaryName string
}

func (e *DictionaryNotFoundError) Error() string {
	return fmt.Sprintf("dictionary named '%s' not found", e.DictionaryName)
}

func (e *DictionaryNotFoundError) Is(target error) bool {
	return target == ErrDictionaryNotFound
}

// NewDictionaryNotFoundError creates a new DictionaryNotFoundError
func NewDictionaryNotFoundError(name string) *DictionaryNotFoundError {
	return &DictionaryNotFoundError{DictionaryName: name}
}

// DictionaryAlreadyExistsError represents a dictionary already exists error with context
type DictionaryAlreadyExistsError struct {
	DictionaryName string
}

func (e *DictionaryAlreadyExistsError) Error() string {
	return fmt.Sprintf("dictionary named '%s' already exists", e.DictionaryName)
}

func (e *DictionaryAlreadyExistsError) Is(target error) bool {
	return target == ErrDictionaryAlreadyExists
}

// NewDictionaryAlreadyExistsError creates a new DictionaryAlreadyExistsError
func NewDictionaryAlreadyExistsError(name string) *DictionaryAlreadyExistsError {
	return &DictionaryAlreadyExistsError{DictionaryName: name}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NoMatchError reports that no candidate reached the final lattice position.
type NoMatchError struct {
	Steps int
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no phrase sequence covers all %d positions", e.Steps)
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNoMatchError creates a new NoMatchError
func NewNoMatchError(steps int) *NoMatchError {
	return &NoMatchError{Steps: steps}
}

// TrainingError reports the token pair whose commit failed. Pairs before
// PairIndex were committed.
type TrainingError struct {
	PairIndex int
	Prev      model.Token
	Cur       model.Token
	Err       error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training pair %d (%d -> %d) failed: %v", e.PairIndex, e.Prev, e.Cur, e.Err)
}

func (e *TrainingError) Is(target error) bool {
	return target == ErrTrainingFailed
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// NewTrainingError creates a new TrainingError
func NewTrainingError(pairIndex int, prev, cur model.Token, err error) *TrainingError {
	return &TrainingError{PairIndex: pairIndex, Prev: prev, Cur: cur, Err: err}
}
