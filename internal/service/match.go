package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ARedaUni/teloshousemeet/internal/logger"
	"github.com/ARedaUni/teloshousemeet/internal/matching"
)

// eventSource provides candidate calendar events around a reference time
// (for testability)
type eventSource interface {
	CandidateEvents(ctx context.Context, reference time.Time) ([]matching.CandidateEvent, error)
}

// MatchService matches meeting summaries against calendar events
type MatchService struct {
	events  eventSource
	matcher *matching.Matcher
}

// NewMatchService creates a new match service
func NewMatchService(events eventSource, matcher *matching.Matcher) *MatchService {
	return &MatchService{events: events, matcher: matcher}
}

// MatchSummary finds the calendar event that best matches a meeting summary.
// The candidate window is centered on reference, normally the recording time.
func (s *MatchService) MatchSummary(ctx context.Context, summary string, reference time.Time) (*matching.MatchResult, error) {
	events, err := s.events.CandidateEvents(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate events: %w", err)
	}

	result, err := s.matcher.Match(ctx, summary, events)
	if err != nil {
		return nil, fmt.Errorf("match summary: %w", err)
	}

	if result.Matched() {
		logger.Info().
			Str("event", result.Event.Title).
			Float64("score", result.Score).
			Str("method", string(result.Method)).
			Msg("summary matched to calendar event")
	} else {
		logger.Info().
			Int("candidates", len(events)).
			Msg("no calendar event matched summary")
	}

	return result, nil
}
