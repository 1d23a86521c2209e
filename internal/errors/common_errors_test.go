package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "parsing", errType: ErrTypeParsing, expected: "PARSING"},
		{name: "extraction", errType: ErrTypeExtraction, expected: "EXTRACTION"},
		{name: "empty group", errType: ErrTypeEmptyGroup, expected: "EMPTY_GROUP"},
		{name: "statistical precondition", errType: ErrTypeStatisticalPrecondition, expected: "STATISTICAL_PRECONDITION"},
		{name: "storage", errType: ErrTypeStorage, expected: "STORAGE"},
		{name: "validation", errType: ErrTypeValidation, expected: "VALIDATION"},
		{name: "config", errType: ErrTypeConfig, expected: "CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    &AppError{Type: ErrTypeParsing, Message: "no organoid token"},
			wantMessage: "[PARSING] no organoid token",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeExtraction,
				Message: "cannot open file",
				Cause:   fmt.Errorf("permission denied"),
			},
			wantMessage: "[EXTRACTION] cannot open file: permission denied",
		},
		{
			name:        "error with empty message",
			appError:    &AppError{Type: ErrTypeValidation},
			wantMessage: "[VALIDATION] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("short read")
	err := NewExtractionError("a.csv", "read failed", cause)

	assert.Same(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, NewValidationError("bad").Unwrap())
}

func TestAppError_IsSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{name: "parse matches", err: NewParseError("x.csv", "missing group"), sentinel: ErrParse, want: true},
		{name: "extraction matches", err: NewExtractionError("x.csv", "no rows", nil), sentinel: ErrExtraction, want: true},
		{name: "empty group matches", err: NewEmptyGroupError("ctrl", "no baseline"), sentinel: ErrEmptyGroup, want: true},
		{name: "precondition matches", err: NewStatisticalPreconditionError("n<2"), sentinel: ErrStatisticalPrecondition, want: true},
		{name: "wrapped matches", err: fmt.Errorf("stage: %w", NewParseError("x", "y")), sentinel: ErrParse, want: true},
		{name: "different type", err: NewParseError("x", "y"), sentinel: ErrExtraction, want: false},
		{name: "plain error", err: errors.New("boom"), sentinel: ErrParse, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewParseError("data/ctrl_org1.csv", "missing timepoint")
	require.NotNil(t, err.Context)
	assert.Equal(t, "data/ctrl_org1.csv", err.Context["path"])

	err.WithContext("token", "org1")
	assert.Equal(t, "org1", err.Context["token"])

	bare := &AppError{Type: ErrTypeConfig}
	bare.WithContext("field", "thresholds")
	assert.Equal(t, "thresholds", bare.Context["field"])
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("normalize: %w", NewEmptyGroupError("drug", "zero baseline"))

	assert.True(t, IsType(wrapped, ErrTypeEmptyGroup))
	assert.False(t, IsType(wrapped, ErrTypeParsing))
	assert.False(t, IsType(errors.New("plain"), ErrTypeEmptyGroup))
}
