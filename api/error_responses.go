package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrorCodeDictionaryNotFound ErrorCode = "DICTIONARY_NOT_FOUND"
	ErrorCodeJobNotFound        ErrorCode = "JOB_NOT_FOUND"
	ErrorCodeDictionaryExists   ErrorCode = "DICTIONARY_ALREADY_EXISTS"
	ErrorCodeInvalidJSON        ErrorCode = "INVALID_JSON"
	ErrorCodeNoMatch            ErrorCode = "NO_MATCH"

	// Server Error Codes (5xx)
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDecodeTimeout      ErrorCode = "DECODE_TIMEOUT"
	ErrorCodeTrainingFailed     ErrorCode = "TRAINING_FAILED"
	ErrorCodePersistenceFailed  ErrorCode = "PERSISTENCE_FAILED"
	ErrorCodeJobExecutionFailed ErrorCode = "JOB_EXECUTION_FAILED"
)

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.JSON(statusCode, errorResponse)
}

// SendStructuredValidationError sends a validation error with structured details
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendDictionaryNotFoundError sends a standardized dictionary not found error
func SendDictionaryNotFoundError(c *gin.Context, name string) {
	SendError(c, http.StatusNotFound, ErrorCodeDictionaryNotFound,
		"Dictionary '"+name+"' not found")
}

// SendJobNotFoundError sends a standardized job not found error
func SendJobNotFoundError(c *gin.Context, jobID string) {
	SendError(c, http.StatusNotFound, ErrorCodeJobNotFound,
		"Job '"+jobID+"' not found")
}

// SendDictionaryExistsError sends a standardized dictionary already exists error
func SendDictionaryExistsError(c *gin.Context, name string) {
	SendError(c, http.StatusConflict, ErrorCodeDictionaryExists,
		"Dictionary '"+name+"' already exists")
}

// SendInvalidJSONError sends a standardized invalid JSON error
func SendInvalidJSONError(c *gin.Context, err error) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendInternalError sends a standardized internal server error
func SendInternalError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
		"Internal error during "+operation+": "+err.Error())
}

// SendJobExecutionError sends a standardized job execution error
func SendJobExecutionError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeJobExecutionFailed,
		"Failed to start "+operation+" job: "+err.Error())
}

// errorStatus maps an engine error to its HTTP status and code.
func errorStatus(err error) (int, ErrorCode) {
	switch {
	case errors.Is(err, internalErrors.ErrInvalidInput):
		return http.StatusBadRequest, ErrorCodeValidationFailed
	case errors.Is(err, internalErrors.ErrDictionaryNotFound):
		return http.StatusNotFound, ErrorCodeDictionaryNotFound
	case errors.Is(err, internalErrors.ErrDictionaryAlreadyExists):
		return http.StatusConflict, ErrorCodeDictionaryExists
	case errors.Is(err, internalErrors.ErrJobNotFound):
		return http.StatusNotFound, ErrorCodeJobNotFound
	case errors.Is(err, internalErrors.ErrNotFound):
		return http.StatusNotFound, ErrorCodeNoMatch
	case errors.Is(err, internalErrors.ErrDecodeTimeout):
		return http.StatusGatewayTimeout, ErrorCodeDecodeTimeout
	case errors.Is(err, internalErrors.ErrTrainingFailed):
		return http.StatusInternalServerError, ErrorCodeTrainingFailed
	default:
		return http.StatusInternalServerError, ErrorCodeInternalError
	}
}

// SendEngineError sends err with the status and code matching its kind.
func SendEngineError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	SendError(c, status, code, err.Error())
}
