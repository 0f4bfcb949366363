package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ARedaUni/teloshousemeet/internal/matching"
)

type fakeEventSource struct {
	events    []matching.CandidateEvent
	err       error
	reference time.Time
}

func (f *fakeEventSource) CandidateEvents(_ context.Context, reference time.Time) ([]matching.CandidateEvent, error) {
	f.reference = reference
	return f.events, f.err
}

func TestMatchSummary(t *testing.T) {
	source := &fakeEventSource{
		events: []matching.CandidateEvent{
			{ID: "evt-1", Title: "Product Roadmap Sync", Description: "weekly"},
			{ID: "evt-2", Title: "Lunch"},
		},
	}
	svc := NewMatchService(source, matching.NewMatcher(matching.DefaultConfig(), nil))

	reference := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	result, err := svc.MatchSummary(context.Background(), "Weekly sync on product roadmap", reference)
	require.NoError(t, err)
	require.True(t, result.Matched())
	assert.Equal(t, "evt-1", result.Event.ID)
	assert.Equal(t, reference, source.reference)
}

func TestMatchSummaryNoCandidates(t *testing.T) {
	svc := NewMatchService(&fakeEventSource{}, matching.NewMatcher(matching.DefaultConfig(), nil))

	result, err := svc.MatchSummary(context.Background(), "anything", time.Now())
	require.NoError(t, err)
	assert.False(t, result.Matched())
}

func TestMatchSummarySourceError(t *testing.T) {
	source := &fakeEventSource{err: errors.New("calendar unavailable")}
	svc := NewMatchService(source, matching.NewMatcher(matching.DefaultConfig(), nil))

	_, err := svc.MatchSummary(context.Background(), "anything", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calendar unavailable")
}
