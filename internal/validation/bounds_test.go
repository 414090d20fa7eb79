package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampFloat(t *testing.T) {
	tests := []struct {
		name         string
		v            float64
		expected     float64
		wantWarnings int
	}{
		{"in range", 50, 50, 0},
		{"below minimum", -3, 0, 1},
		{"above maximum", 150, 100, 1},
		{"at boundary", 100, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ws Warnings
			got := ClampFloat(&ws, "confidence_score", tt.v, 0, 100)
			assert.Equal(t, tt.expected, got)
			assert.Len(t, ws, tt.wantWarnings)
		})
	}
}

func TestFloorInt(t *testing.T) {
	var ws Warnings
	assert.Equal(t, 1, FloorInt(&ws, "months", 0, 1))
	assert.Equal(t, 1, FloorInt(&ws, "months", -5, 1))
	assert.Equal(t, 7, FloorInt(&ws, "months", 7, 1))
	assert.Len(t, ws, 2)
}

func TestDefaultIntIfNotPositive(t *testing.T) {
	var ws Warnings
	assert.Equal(t, 4, DefaultIntIfNotPositive(&ws, "duration_weeks", 0, 4))
	assert.Equal(t, 4, DefaultIntIfNotPositive(&ws, "duration_weeks", -2, 4))
	assert.Equal(t, 6, DefaultIntIfNotPositive(&ws, "duration_weeks", 6, 4))
	assert.Len(t, ws, 2)
}

func TestPathCountBound(t *testing.T) {
	tests := []struct {
		corpusSize int
		expected   int
	}{
		{0, 5},
		{3, 5},
		{5, 5},
		{6, 6},
		{20, 20},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, PathCountBound(tt.corpusSize), "corpus size %d", tt.corpusSize)
	}
}

func TestClampPathCount(t *testing.T) {
	// 3-story corpus: the bound is the floor of 5, so a count of 5 passes
	// but 9 is clamped and 0 is raised to 1.
	var ws Warnings
	assert.Equal(t, 5, ClampPathCount(&ws, "count", 5, 3))
	assert.Empty(t, ws)

	assert.Equal(t, 5, ClampPathCount(&ws, "count", 9, 3))
	assert.Equal(t, 1, ClampPathCount(&ws, "count", 0, 3))
	assert.Len(t, ws, 2)
}

func TestWarningRendering(t *testing.T) {
	var ws Warnings
	ws.Addf("skill_gaps[0].gap_level", "Critical", "Medium", "invalid gap level, defaulted")

	assert.Equal(t, "Critical", ws[0].Raw)
	assert.Equal(t, "Medium", ws[0].Applied)
	assert.Contains(t, ws[0].String(), "invalid gap level")
}
