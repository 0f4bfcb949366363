package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ARedaUni/teloshousemeet/internal/config"
	"github.com/ARedaUni/teloshousemeet/internal/embedding"
)

type fakeEmbedder struct {
	vectors map[string][]float64
	errs    map[string]error
	failAll bool
	calls   []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls = append(f.calls, text)
	if f.failAll {
		return nil, errors.New("provider unavailable")
	}
	if err := f.errs[text]; err != nil {
		return nil, err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func roadmapCandidates() []CandidateEvent {
	return []CandidateEvent{
		{ID: "evt-1", Title: "Product Roadmap Sync", Description: "weekly", Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
		{ID: "evt-2", Title: "Lunch", Start: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)},
	}
}

func TestMatchLexicalFallbackForced(t *testing.T) {
	// No embedder at all: the whole pass runs lexically
	m := NewMatcher(DefaultConfig(), nil)

	result, err := m.Match(context.Background(), "Weekly sync on product roadmap", roadmapCandidates())
	require.NoError(t, err)
	require.True(t, result.Matched())
	assert.Equal(t, "evt-1", result.Event.ID)
	assert.Equal(t, MethodLexical, result.Method)
	assert.Greater(t, result.Score, 0.3)
}

func TestMatchEmptyCandidateList(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)

	result, err := m.Match(context.Background(), "anything at all", nil)
	require.NoError(t, err)
	assert.False(t, result.Matched())
	assert.Equal(t, MethodNone, result.Method)
	assert.Zero(t, result.Score)
}

func TestMatchEmptyQueryText(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)

	_, err := m.Match(context.Background(), "   \n ", roadmapCandidates())
	require.Error(t, err)

	var matchErr *MatchingError
	require.ErrorAs(t, err, &matchErr)
	assert.ErrorIs(t, err, ErrNoQueryText)
}

func TestMatchEmbeddingFailureOnFirstCallFallsBackForWholePass(t *testing.T) {
	embedder := &fakeEmbedder{failAll: true}
	m := NewMatcher(DefaultConfig(), embedder)

	result, err := m.Match(context.Background(), "Weekly sync on product roadmap", roadmapCandidates())
	require.NoError(t, err)
	require.True(t, result.Matched())
	assert.Equal(t, "evt-1", result.Event.ID)
	assert.Equal(t, MethodLexical, result.Method)

	// Only the query embedding was attempted
	assert.Len(t, embedder.calls, 1)
}

func TestMatchEmbeddingPathSelectsBestCandidate(t *testing.T) {
	query := "planning session for the launch"
	embedder := &fakeEmbedder{
		vectors: map[string][]float64{
			query:                   {1, 0},
			"Launch Planning":       {0.9, math.Sqrt(1 - 0.81)}, // cos 0.9
			"Launch Planning prep":  {0.9, math.Sqrt(1 - 0.81)},
			"Board Dinner":          {0.1, math.Sqrt(1 - 0.01)}, // cos 0.1
			"Board Dinner catering": {0.1, math.Sqrt(1 - 0.01)},
		},
	}
	m := NewMatcher(DefaultConfig(), embedder)

	events := []CandidateEvent{
		{ID: "dinner", Title: "Board Dinner", Description: "catering"},
		{ID: "launch", Title: "Launch Planning", Description: "prep"},
	}

	result, err := m.Match(context.Background(), query, events)
	require.NoError(t, err)
	require.True(t, result.Matched())
	assert.Equal(t, "launch", result.Event.ID)
	assert.Equal(t, MethodEmbedding, result.Method)
	assert.InDelta(t, 0.9, result.Score, 1e-9)
}

func TestMatchThresholdIsStrict(t *testing.T) {
	// Identical unit vectors give a combined score of exactly 1.0. A
	// candidate sitting exactly on the threshold must be rejected.
	query := "query text"
	embedder := &fakeEmbedder{
		vectors: map[string][]float64{
			query:       {1, 0},
			"Edge Case": {1, 0},
		},
	}
	events := []CandidateEvent{{ID: "edge", Title: "Edge Case"}}

	cfg := DefaultConfig()
	cfg.EmbeddingThreshold = 1.0

	result, err := NewMatcher(cfg, embedder).Match(context.Background(), query, events)
	require.NoError(t, err)
	assert.False(t, result.Matched())

	cfg.EmbeddingThreshold = 0.99
	result, err = NewMatcher(cfg, embedder).Match(context.Background(), query, events)
	require.NoError(t, err)
	require.True(t, result.Matched())
	assert.Equal(t, "edge", result.Event.ID)
}

func TestMatchTieBreakFirstSeenWins(t *testing.T) {
	query := "team retrospective"
	same := []float64{0.8, 0.6}
	embedder := &fakeEmbedder{
		vectors: map[string][]float64{
			query:    {1, 0},
			"Retro":  same,
			"Retro2": same,
		},
	}
	m := NewMatcher(DefaultConfig(), embedder)

	events := []CandidateEvent{
		{ID: "first", Title: "Retro"},
		{ID: "second", Title: "Retro2"},
	}

	result, err := m.Match(context.Background(), query, events)
	require.NoError(t, err)
	require.True(t, result.Matched())
	assert.Equal(t, "first", result.Event.ID)
}

func TestMatchMidPassFailureIsSticky(t *testing.T) {
	query := "Weekly sync on product roadmap"
	embedder := &fakeEmbedder{
		vectors: map[string][]float64{
			query: {1, 0},
		},
		errs: map[string]error{
			"Product Roadmap Sync": errors.New("rate limited"),
		},
	}
	m := NewMatcher(DefaultConfig(), embedder)

	result, err := m.Match(context.Background(), query, roadmapCandidates())
	require.NoError(t, err)
	require.True(t, result.Matched())

	// The failing candidate was rescored lexically and still won
	assert.Equal(t, "evt-1", result.Event.ID)
	assert.Equal(t, MethodLexical, result.Method)

	// Query + first candidate title; no embedding calls for later candidates
	assert.Equal(t, []string{query, "Product Roadmap Sync"}, embedder.calls)
}

func TestMatchDimensionMismatchScoresZeroWithoutAbortingPass(t *testing.T) {
	query := "architecture review"
	embedder := &fakeEmbedder{
		vectors: map[string][]float64{
			query:                      {1, 0},
			"Bad Vector":               {1, 0, 0}, // wrong dimensionality
			"Architecture Review":      {0.95, math.Sqrt(1 - 0.95*0.95)},
			"Architecture Review deep": {0.95, math.Sqrt(1 - 0.95*0.95)},
		},
	}
	m := NewMatcher(DefaultConfig(), embedder)

	events := []CandidateEvent{
		{ID: "bad", Title: "Bad Vector"},
		{ID: "good", Title: "Architecture Review", Description: "deep"},
	}

	result, err := m.Match(context.Background(), query, events)
	require.NoError(t, err)
	require.True(t, result.Matched())
	assert.Equal(t, "good", result.Event.ID)
	assert.Equal(t, MethodEmbedding, result.Method)
}

func TestMatchFallsBackWhenProviderReturnsWrongDimensions(t *testing.T) {
	// The provider answers every request with two values even though the
	// client asked for four. The client rejects the payload, so the pass
	// flips to lexical instead of scoring every comparison as zero.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2}}},
		})
	}))
	defer server.Close()

	client := embedding.NewClient(config.EmbeddingConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "jina-embeddings-v3",
		Dimensions: 4,
		Timeout:    5 * time.Second,
	})
	m := NewMatcher(DefaultConfig(), client)

	result, err := m.Match(context.Background(), "Weekly sync on product roadmap", roadmapCandidates())
	require.NoError(t, err)
	require.True(t, result.Matched())
	assert.Equal(t, "evt-1", result.Event.ID)
	assert.Equal(t, MethodLexical, result.Method)
}

func TestMatchContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMatcher(DefaultConfig(), nil)
	_, err := m.Match(ctx, "some query", roadmapCandidates())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatchResultSnapshotsEventMetadata(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	events := []CandidateEvent{
		{
			ID:        "evt-1",
			Title:     "Product Roadmap Sync",
			Location:  "Room 4",
			Organizer: "pm@example.com",
			Attendees: []string{"pm@example.com", "eng@example.com"},
			Start:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			End:       time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
			Status:    "confirmed",
			HTMLLink:  "https://calendar.google.com/event?eid=abc",
		},
		{ID: "evt-2", Title: "Lunch"},
	}

	result, err := m.Match(context.Background(), "Weekly sync on product roadmap", events)
	require.NoError(t, err)
	require.True(t, result.Matched())

	assert.Equal(t, "Room 4", result.Event.Location)
	assert.Equal(t, "pm@example.com", result.Event.Organizer)
	assert.Equal(t, "confirmed", result.Event.Status)
	assert.Len(t, result.Event.Attendees, 2)
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	assert.InDelta(t, 0.85, cfg.TitleWeight, 1e-9)
	assert.InDelta(t, 0.15, cfg.FullTextWeight, 1e-9)
	assert.InDelta(t, 0.5, cfg.EmbeddingThreshold, 1e-9)
	assert.InDelta(t, 0.3, cfg.LexicalThreshold, 1e-9)
	assert.InDelta(t, 0.7, cfg.TFIDFWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.JaccardWeight, 1e-9)
	assert.NotEmpty(t, cfg.Synonyms)
}

func TestCombineVectorScores(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 0.85*0.8+0.15*0.4, cfg.CombineVectorScores(0.8, 0.4), 1e-9)
}
