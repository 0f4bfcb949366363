package matching

import (
	"context"
	"errors"
	"strings"

	"github.com/ARedaUni/teloshousemeet/internal/logger"
)

// Embedder is the slice of the embedding client the matcher needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// scoreMode tracks which scoring path the ranking pass is on. The transition
// to lexical is sticky: once any embedding call fails, no later candidate is
// scored via embeddings.
type scoreMode int

const (
	modeEmbedding scoreMode = iota
	modeLexical
)

// Matcher ranks candidate events against a query document and selects the
// single best match above the configured threshold.
type Matcher struct {
	cfg      Config
	embedder Embedder
}

// NewMatcher creates a matcher. A nil embedder forces the lexical path for
// every pass.
func NewMatcher(cfg Config, embedder Embedder) *Matcher {
	return &Matcher{cfg: cfg, embedder: embedder}
}

// Match runs a single ranking pass over the candidates in input order and
// returns the best-scoring candidate above the threshold, or a MatchResult
// with a nil Event when nothing clears it. An empty candidate list is not an
// error. Candidates are scored sequentially; the pass aborts when ctx is
// cancelled.
func (m *Matcher) Match(ctx context.Context, query string, events []CandidateEvent) (*MatchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &MatchingError{Reason: "empty query document", Err: ErrNoQueryText}
	}

	prepared := PrepareText(query, m.cfg.Excerpt)

	if len(events) == 0 {
		return &MatchResult{Method: MethodNone}, nil
	}

	// The IDF corpus is the query plus every candidate's full text, built
	// once per pass. Cheap enough to compute even when the embedding path
	// ends up serving every candidate.
	corpus := make([]string, 0, len(events)+1)
	corpus = append(corpus, prepared)
	for _, ev := range events {
		corpus = append(corpus, ev.FullText())
	}
	idf := BuildIDF(corpus, m.cfg.Synonyms)

	mode := modeLexical
	var queryVec []float64
	if m.embedder != nil {
		vec, err := m.embedder.Embed(ctx, prepared)
		if err != nil {
			logger.Warn().Err(err).Msg("query embedding failed, using lexical scoring for this pass")
		} else {
			queryVec = vec
			mode = modeEmbedding
		}
	}

	best := &MatchResult{Method: MethodNone}
	for i := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		score, method := m.scoreCandidate(ctx, queryVec, prepared, events[i], idf, &mode)

		threshold := m.cfg.LexicalThreshold
		if method == MethodEmbedding {
			threshold = m.cfg.EmbeddingThreshold
		}

		// Strict comparisons: at-threshold candidates are rejected and
		// ties keep the earlier candidate.
		if score > threshold && score > best.Score {
			snapshot := events[i]
			best = &MatchResult{Event: &snapshot, Score: score, Method: method}
		}
	}

	return best, nil
}

// scoreCandidate scores one event. On the embedding path a provider failure
// flips the pass to lexical and rescores this candidate lexically; a
// dimension mismatch only zeroes the affected comparison.
func (m *Matcher) scoreCandidate(
	ctx context.Context,
	queryVec []float64,
	query string,
	ev CandidateEvent,
	idf map[string]float64,
	mode *scoreMode,
) (float64, Method) {
	if *mode == modeEmbedding {
		score, ok := m.embeddingScore(ctx, queryVec, ev)
		if ok {
			return score, MethodEmbedding
		}
		*mode = modeLexical
	}
	return m.cfg.LexicalScore(query, ev.FullText(), idf), MethodLexical
}

func (m *Matcher) embeddingScore(ctx context.Context, queryVec []float64, ev CandidateEvent) (float64, bool) {
	titleVec, err := m.embedder.Embed(ctx, ev.Title)
	if err != nil {
		logger.Warn().Err(err).Str("event", ev.Title).Msg("title embedding failed, falling back to lexical scoring")
		return 0, false
	}

	fullVec, err := m.embedder.Embed(ctx, ev.FullText())
	if err != nil {
		logger.Warn().Err(err).Str("event", ev.Title).Msg("full-text embedding failed, falling back to lexical scoring")
		return 0, false
	}

	titleSim := m.cosineOrZero(queryVec, titleVec, ev.Title)
	fullSim := m.cosineOrZero(queryVec, fullVec, ev.Title)

	return m.cfg.CombineVectorScores(titleSim, fullSim), true
}

// cosineOrZero treats a dimension mismatch as similarity 0 for that single
// comparison rather than failing the whole pass.
func (m *Matcher) cosineOrZero(a, b []float64, event string) float64 {
	sim, err := Cosine(a, b)
	if err != nil {
		if errors.Is(err, ErrDimensionMismatch) {
			logger.Warn().Str("event", event).Int("query_dim", len(a)).Int("candidate_dim", len(b)).
				Msg("embedding dimension mismatch, scoring comparison as 0")
			return 0
		}
		return 0
	}
	return sim
}
