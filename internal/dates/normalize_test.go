package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// reference instant for relative expressions: 2025-06-15.
func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func TestNormalizeISO(t *testing.T) {
	n := Normalizer{Now: fixedNow}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already canonical", "2024-03-07", "2024-03-07"},
		{"slash separators", "2024/3/7", "2024-03-07"},
		{"mixed width", "2024-3-07", "2024-03-07"},
		{"surrounding whitespace", "  2024-03-07  ", "2024-03-07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeNumeric(t *testing.T) {
	tests := []struct {
		name     string
		dayFirst bool
		input    string
		expected string
	}{
		{"month first by default", false, "3/7/2024", "2024-03-07"},
		{"month first with dashes", false, "12-01-2023", "2023-12-01"},
		{"day first when configured", true, "3/7/2024", "2024-07-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalizer{Now: fixedNow, DayFirst: tt.dayFirst}
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeMonthNames(t *testing.T) {
	n := Normalizer{Now: fixedNow}

	tests := []struct {
		input    string
		expected string
	}{
		{"March 7, 2024", "2024-03-07"},
		{"Mar 7, 2024", "2024-03-07"},
		{"March 7 2024", "2024-03-07"},
		{"7 March 2024", "2024-03-07"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeRelative(t *testing.T) {
	n := Normalizer{Now: fixedNow}

	tests := []struct {
		input    string
		expected string
	}{
		{"2 months ago", "2025-04-15"},
		{"1 year ago", "2024-06-15"},
		{"3 weeks ago", "2025-05-25"},
		{"10 days ago", "2025-06-05"},
		{"posted 2 months ago", "2025-04-15"}, // embedded in surrounding text
		{"2 Months Ago", "2025-04-15"},        // case-insensitive
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalizePassThrough(t *testing.T) {
	n := Normalizer{Now: fixedNow}

	tests := []string{
		"Not provided",
		"sometime last spring",
		"circa 2020",
		"",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, input, n.Normalize(input))
		})
	}
}

func TestNormalizeZeroValueUsesWallClock(t *testing.T) {
	var n Normalizer
	// Only shape is asserted: the reference instant is the real clock.
	got := n.Normalize("1 day ago")
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, got)
}
