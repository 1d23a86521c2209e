package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{name: "zero value", input: 0.0, expected: "0"},
		{name: "integer", input: 123.0, expected: "123"},
		{name: "negative", input: -4.5, expected: "-4.5"},
		{name: "full precision", input: 12.3456789, expected: "12.3456789"},
		{name: "no exponent", input: 1e-7, expected: "0.0000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFloat(tt.input))
		})
	}
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "", formatInt(0))
	assert.Equal(t, "12", formatInt(12))
}

func TestFormatBool(t *testing.T) {
	assert.Equal(t, "true", formatBool(true))
	assert.Equal(t, "false", formatBool(false))
}
