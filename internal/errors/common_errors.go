package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing                 ErrorType = "PARSING"
	ErrTypeExtraction              ErrorType = "EXTRACTION"
	ErrTypeEmptyGroup              ErrorType = "EMPTY_GROUP"
	ErrTypeStatisticalPrecondition ErrorType = "STATISTICAL_PRECONDITION"
	ErrTypeStorage                 ErrorType = "STORAGE"
	ErrTypeValidation              ErrorType = "VALIDATION"
	ErrTypeConfig                  ErrorType = "CONFIG"
)

// Sentinels for errors.Is. An *AppError matches the sentinel of its Type.
var (
	ErrParse                   = &AppError{Type: ErrTypeParsing, Message: "filename parse failed"}
	ErrExtraction              = &AppError{Type: ErrTypeExtraction, Message: "extraction failed"}
	ErrEmptyGroup              = &AppError{Type: ErrTypeEmptyGroup, Message: "empty group"}
	ErrStatisticalPrecondition = &AppError{Type: ErrTypeStatisticalPrecondition, Message: "statistical precondition not met"}
	ErrStorage                 = &AppError{Type: ErrTypeStorage, Message: "storage failure"}
	ErrValidation              = &AppError{Type: ErrTypeValidation, Message: "validation failed"}
	ErrConfig                  = &AppError{Type: ErrTypeConfig, Message: "invalid configuration"}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Helper functions for common error types

// NewParseError reports a filename that lacks a required identity token.
func NewParseError(path, message string) *AppError {
	return NewAppError(ErrTypeParsing, message, nil).WithContext("path", path)
}

// NewExtractionError reports an unreadable file, a missing column or a file
// without usable rows.
func NewExtractionError(path, message string, cause error) *AppError {
	return NewAppError(ErrTypeExtraction, message, cause).WithContext("path", path)
}

// NewEmptyGroupError reports a baseline or aggregate requested over a group
// with no qualifying observations.
func NewEmptyGroupError(group, message string) *AppError {
	return NewAppError(ErrTypeEmptyGroup, message, nil).WithContext("group", group)
}

// NewStatisticalPreconditionError reports input a comparison test cannot use.
func NewStatisticalPreconditionError(message string) *AppError {
	return NewAppError(ErrTypeStatisticalPrecondition, message, nil)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}
