// Package types defines the domain records produced by the transition
// intelligence pipeline: scraped stories, skill gaps, plans, and the
// aggregate/narrative analyses derived from them.
package types

// NotProvided is the sentinel stored when the upstream response omits a
// story's URL or date. Downstream consumers render it verbatim.
const NotProvided = "Not provided"

// ScrapedStory is one first-person transition account extracted from a raw
// search response. Stories are immutable once accepted and are owned by the
// transition they were scraped for.
type ScrapedStory struct {
	Source  string `json:"source"`  // platform label, e.g. "Reddit", "Blind"
	Content string `json:"content"` // trimmed account text, > 50 chars
	URL     string `json:"url"`     // link or NotProvided
	Date    string `json:"date"`    // ISO date, NotProvided, or original text
}

// HasProvenance reports whether the story carries at least one of URL or
// date. Records without either are treated as fabricated and dropped.
func (s ScrapedStory) HasProvenance() bool {
	return (s.URL != "" && s.URL != NotProvided) || (s.Date != "" && s.Date != NotProvided)
}
