// Package dates normalizes the heterogeneous date expressions found in
// scraped transition stories to canonical YYYY-MM-DD form. Expressions no
// rule recognizes are passed through unchanged: downstream consumers treat
// any non-ISO string as an opaque display value, so pass-through is a
// contract, not a failure.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Normalizer converts date expressions to canonical form. The zero value is
// usable and reads the wall clock for relative expressions.
type Normalizer struct {
	// Now supplies the reference instant for relative expressions like
	// "2 months ago". Defaults to time.Now.
	Now func() time.Time

	// DayFirst selects the DD-MM-YYYY reading for ambiguous numeric dates.
	// The upstream service gives no locale guarantee; month-first is the
	// default because its output is predominantly US-formatted. Callers
	// with a known locale must set this explicitly.
	DayFirst bool
}

var (
	isoRe      = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	numericRe  = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})[-/](\d{4})$`)
	relativeRe = regexp.MustCompile(`(?i)(\d+)\s*(year|month|week|day)s?\s+ago`)
)

// monthNameLayouts are tried in order for "Month DD, YYYY" style dates.
var monthNameLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2 January 2006",
}

// Normalize converts input to YYYY-MM-DD if any rule matches, otherwise
// returns the trimmed input unchanged.
func (n Normalizer) Normalize(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return s
	}

	// (a) Already ISO-shaped, possibly with slashes: unify separators.
	if m := isoRe.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], pad2(m[2]), pad2(m[3]))
	}

	// (b) Numeric with trailing year: reorder to ISO. Whether the first
	// component is the month or the day is controlled by DayFirst.
	if m := numericRe.FindStringSubmatch(s); m != nil {
		month, day := m[1], m[2]
		if n.DayFirst {
			month, day = m[2], m[1]
		}
		return fmt.Sprintf("%s-%s-%s", m[3], pad2(month), pad2(day))
	}

	// (c) Month-name dates via calendar parsing.
	for _, layout := range monthNameLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}

	// (d) Relative expressions: subtract the offset from the reference
	// instant.
	if m := relativeRe.FindStringSubmatch(s); m != nil {
		amount, err := strconv.Atoi(m[1])
		if err == nil {
			return n.relative(amount, strings.ToLower(m[2])).Format("2006-01-02")
		}
	}

	return s
}

func (n Normalizer) relative(amount int, unit string) time.Time {
	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}
	switch unit {
	case "year":
		return now.AddDate(-amount, 0, 0)
	case "month":
		return now.AddDate(0, -amount, 0)
	case "week":
		return now.AddDate(0, 0, -7*amount)
	default: // day
		return now.AddDate(0, 0, -amount)
	}
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
