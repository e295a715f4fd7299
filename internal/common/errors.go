package common

import (
	"errors"
	"fmt"

	"invoicescan/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// NewAppError builds an AppError with an optional cause.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Failure builds an AppError whose code is a pipeline failure reason.
func Failure(reason constants.FailureReason, message string, cause error) *AppError {
	return NewAppError(string(reason), message, cause)
}

// FailureReason extracts the failure reason from an error chain, or ""
// when the error does not carry one.
func FailureReason(err error) constants.FailureReason {
	var ae *AppError
	if errors.As(err, &ae) {
		switch r := constants.FailureReason(ae.Code); r {
		case constants.ReasonUnsupportedFormat,
			constants.ReasonExtractionFailure,
			constants.ReasonLLMUnavailable,
			constants.ReasonMalformedResponse,
			constants.ReasonMissingRequiredField:
			return r
		}
	}
	return ""
}
