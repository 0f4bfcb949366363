package matching

import (
	"strings"
	"time"
)

// CandidateEvent is an immutable snapshot of a calendar event being scored
// against a query document. Supplied wholesale by the caller; missing string
// fields default to "".
type CandidateEvent struct {
	ID             string
	Title          string
	Description    string
	Location       string
	Organizer      string
	Attendees      []string
	Start          time.Time
	End            time.Time
	AllDay         bool
	Status         string
	HTMLLink       string
	ConferenceLink string
}

// FullText returns the combined title and description used for full-text
// similarity scoring.
func (e CandidateEvent) FullText() string {
	return strings.TrimSpace(e.Title + " " + e.Description)
}

// Method identifies which scoring path produced a match.
type Method string

const (
	// MethodEmbedding indicates the match was scored via embedding cosine
	// similarity.
	MethodEmbedding Method = "embedding"
	// MethodLexical indicates the match was scored via the TF-IDF/Jaccard
	// fallback.
	MethodLexical Method = "lexical"
	// MethodNone indicates no candidate cleared its acceptance threshold.
	MethodNone Method = "none"
)

// MatchResult is the outcome of one ranking pass. Event is nil when no
// candidate cleared the threshold.
type MatchResult struct {
	Event  *CandidateEvent
	Score  float64
	Method Method
}

// Matched reports whether a candidate was selected.
func (r *MatchResult) Matched() bool {
	return r != nil && r.Event != nil
}
