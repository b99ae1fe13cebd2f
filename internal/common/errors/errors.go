// Package errors provides standardized error handling for the QA pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Pipeline branch conditions. These are normal control-flow outcomes,
	// not failures; they carry codes so the orchestrator and metrics can
	// name the reason a question was deferred or answered with a prompt.
	ErrCodeEntityNotRecognized ErrorCode = "ENTITY_NOT_RECOGNIZED"
	ErrCodeIntentEmpty         ErrorCode = "INTENT_EMPTY"
	ErrCodeQuerySynthesisEmpty ErrorCode = "QUERY_SYNTHESIS_EMPTY"
	ErrCodeNoLocalData         ErrorCode = "NO_LOCAL_DATA"

	// Collaborator failures.
	ErrCodeGraphConnectionFailed ErrorCode = "GRAPH_CONNECTION_FAILED"
	ErrCodeGraphQueryFailed      ErrorCode = "GRAPH_QUERY_FAILED"
	ErrCodeVocabularyLoadFailed  ErrorCode = "VOCABULARY_LOAD_FAILED"
	ErrCodeFallbackFailed        ErrorCode = "FALLBACK_FAILED"
	ErrCodeFallbackTimeout       ErrorCode = "FALLBACK_TIMEOUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewGraphConnectionFailedError creates a retryable graph connection error.
func NewGraphConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGraphConnectionFailed,
		Message:   "Graph database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGraphQueryFailedError creates a retryable query execution error.
func NewGraphQueryFailedError(intent string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGraphQueryFailed,
		Message:   "Graph query execution error",
		Details:   fmt.Sprintf("intent: %s, error: %s", intent, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewVocabularyLoadFailedError creates a non-retryable vocabulary error.
// The matcher degrades to recognizing nothing; the process stays up.
func NewVocabularyLoadFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeVocabularyLoadFailed,
		Message:   "Vocabulary file could not be loaded",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFallbackFailedError creates a retryable generative-API error.
func NewFallbackFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFallbackFailed,
		Message:   "Generative fallback API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFallbackTimeoutError creates a retryable fallback timeout error.
func NewFallbackTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeFallbackTimeout,
		Message:   "Generative fallback API timeout",
		Details:   "API call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeGraphConnectionFailed, ErrCodeGraphQueryFailed, ErrCodeFallbackFailed:
		return 3
	case ErrCodeFallbackTimeout:
		return 1
	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}
