package source

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassStatus represents any other non-200 status.
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// SourceError is a failed range request with its classification.
type SourceError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("source %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// classOf returns the class of err, or "" when err is not a SourceError.
func classOf(err error) ErrorClass {
	var se *SourceError
	if errors.As(err, &se) {
		return se.ErrorClass
	}
	return ""
}

// classifyStatus maps a non-200 status code to an error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassStatus
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		// 4xx and odd statuses will not change on a second try
		return false
	}
}
