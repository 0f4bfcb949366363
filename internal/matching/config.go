// Package matching selects the calendar event that best matches a meeting
// summary, preferring embedding similarity and falling back to TF-IDF/Jaccard
// scoring when the embedding provider is unavailable.
package matching

// Config defines weights and thresholds for event matching.
type Config struct {
	// TitleWeight and FullTextWeight combine the per-candidate embedding
	// similarities (title vs. title+description).
	TitleWeight    float64
	FullTextWeight float64

	// Acceptance thresholds differ by method: lexical scores run smaller
	// on average, so the fallback bar is lower. Both comparisons are strict.
	EmbeddingThreshold float64
	LexicalThreshold   float64

	// TFIDFWeight and JaccardWeight combine the two lexical sub-scores.
	TFIDFWeight   float64
	JaccardWeight float64

	// Synonyms expands tokens before lexical scoring. Keys are lowercase
	// tokens; values are appended after the original token.
	Synonyms map[string][]string

	// Excerpt bounds the query text handed to the embedding provider.
	Excerpt ExcerptConfig
}

// DefaultSynonyms returns the built-in synonym table for meeting vocabulary.
func DefaultSynonyms() map[string][]string {
	return map[string][]string{
		"meeting": {"discussion", "session", "conference"},
		"project": {"initiative", "task", "assignment"},
		"update":  {"review", "status", "progress"},
		"call":    {"meeting", "chat"},
		"sync":    {"meeting", "standup", "checkin"},
	}
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() Config {
	return Config{
		TitleWeight:        0.85,
		FullTextWeight:     0.15,
		EmbeddingThreshold: 0.5,
		LexicalThreshold:   0.3,
		TFIDFWeight:        0.7,
		JaccardWeight:      0.3,
		Synonyms:           DefaultSynonyms(),
		Excerpt:            DefaultExcerptConfig(),
	}
}

// CombineVectorScores calculates the weighted embedding score for a candidate.
func (c Config) CombineVectorScores(titleSim, fullTextSim float64) float64 {
	return titleSim*c.TitleWeight + fullTextSim*c.FullTextWeight
}
