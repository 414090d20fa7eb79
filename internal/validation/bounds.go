// Package validation provides the clamp/default helpers that defend every
// externally-sourced numeric and enum field. No value coming back from the
// text-generation service is trusted: each field has a documented fallback,
// and every correction is reported as a Warning instead of being silently
// applied, so data-quality problems stay visible to operators.
package validation

import "fmt"

// Warning records one correction applied to a parsed field. Warnings are
// non-fatal diagnostics; the corrected value is always used.
type Warning struct {
	Field   string `json:"field"`
	Raw     string `json:"raw"`
	Applied string `json:"applied"`
	Reason  string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (raw=%q applied=%q)", w.Field, w.Reason, w.Raw, w.Applied)
}

// Warnings collects corrections across a batch of records.
type Warnings []Warning

// Addf appends a correction for field with raw and applied renderings.
func (ws *Warnings) Addf(field string, raw, applied any, reason string) {
	*ws = append(*ws, Warning{
		Field:   field,
		Raw:     fmt.Sprintf("%v", raw),
		Applied: fmt.Sprintf("%v", applied),
		Reason:  reason,
	})
}

// ClampFloat clamps v into [min, max], recording a warning on correction.
func ClampFloat(ws *Warnings, field string, v, min, max float64) float64 {
	switch {
	case v < min:
		ws.Addf(field, v, min, "below minimum, clamped")
		return min
	case v > max:
		ws.Addf(field, v, max, "above maximum, clamped")
		return max
	}
	return v
}

// ClampInt clamps v into [min, max], recording a warning on correction.
func ClampInt(ws *Warnings, field string, v, min, max int) int {
	switch {
	case v < min:
		ws.Addf(field, v, min, "below minimum, clamped")
		return min
	case v > max:
		ws.Addf(field, v, max, "above maximum, clamped")
		return max
	}
	return v
}

// FloorInt raises v to at least min, recording a warning on correction.
func FloorInt(ws *Warnings, field string, v, min int) int {
	if v < min {
		ws.Addf(field, v, min, "below minimum, floored")
		return min
	}
	return v
}

// DefaultIntIfNotPositive substitutes def when v <= 0, recording a warning.
func DefaultIntIfNotPositive(ws *Warnings, field string, v, def int) int {
	if v <= 0 {
		ws.Addf(field, v, def, "missing or non-positive, defaulted")
		return def
	}
	return v
}

// PathCountBound returns the upper bound for a common-path citation count
// given the corpus size. The floor of 5 lets small corpora report counts
// exceeding the literal number of scraped stories, since the service may
// cite outside knowledge. Product-debatable; kept isolated here so the
// decision has exactly one home.
func PathCountBound(corpusSize int) int {
	if corpusSize > 5 {
		return corpusSize
	}
	return 5
}

// ClampPathCount clamps a common-path count into [1, PathCountBound(n)].
func ClampPathCount(ws *Warnings, field string, count, corpusSize int) int {
	return ClampInt(ws, field, count, 1, PathCountBound(corpusSize))
}
