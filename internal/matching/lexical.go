package matching

import (
	"math"
	"strings"
)

// ExpandTokens lowercases and splits a document on whitespace, appending the
// synonym list after each token that has one. Unknown tokens pass through
// unchanged.
func ExpandTokens(text string, synonyms map[string][]string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		tokens = append(tokens, tok)
		if syns, ok := synonyms[tok]; ok {
			tokens = append(tokens, syns...)
		}
	}
	return tokens
}

// termFrequency counts token occurrences. Raw counts, not normalized.
func termFrequency(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf
}

// BuildIDF computes inverse document frequencies over a corpus, one entry per
// distinct token: ln(totalDocs / (docCount + 1)). The +1 keeps the value
// finite; tokens appearing in every document get a negative idf, which is
// expected.
func BuildIDF(docs []string, synonyms map[string][]string) map[string]float64 {
	docCounts := make(map[string]float64)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, tok := range ExpandTokens(doc, synonyms) {
			if !seen[tok] {
				seen[tok] = true
				docCounts[tok]++
			}
		}
	}

	total := float64(len(docs))
	idf := make(map[string]float64, len(docCounts))
	for tok, count := range docCounts {
		idf[tok] = math.Log(total / (count + 1))
	}
	return idf
}

// tfidfVector builds a sparse token → tf×idf map. Tokens missing from the
// idf map weigh 0.
func tfidfVector(tokens []string, idf map[string]float64) map[string]float64 {
	tfidf := make(map[string]float64)
	for tok, tf := range termFrequency(tokens) {
		tfidf[tok] = tf * idf[tok]
	}
	return tfidf
}

// sparseCosine computes cosine similarity over two sparse vectors. The dot
// product iterates the first map's keys; the second map's magnitude is
// computed over its own keys. Returns 0 if either magnitude is 0.
func sparseCosine(a, b map[string]float64) float64 {
	var dot, magA, magB float64
	for key, va := range a {
		dot += va * b[key]
		magA += va * va
	}
	for _, vb := range b {
		magB += vb * vb
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// jaccard computes |intersection| / |union| over two token slices.
func jaccard(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, tok := range a {
		setA[tok] = true
	}
	setB := make(map[string]bool, len(b))
	for _, tok := range b {
		setB[tok] = true
	}

	var intersection int
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// LexicalScore computes the combined lexical similarity of two documents
// against a pre-built IDF map: TFIDFWeight × sparse-cosine +
// JaccardWeight × jaccard, both over synonym-expanded token streams.
//
// Very small corpora can collapse a TF-IDF vector to all zeros (a token
// appearing in all but one document gets idf ln(n/n) = 0). When that happens
// the cosine is recomputed over raw term-frequency vectors so the TF-IDF
// component still discriminates.
func (c Config) LexicalScore(query, doc string, idf map[string]float64) float64 {
	queryTokens := ExpandTokens(query, c.Synonyms)
	docTokens := ExpandTokens(doc, c.Synonyms)

	queryVec := tfidfVector(queryTokens, idf)
	docVec := tfidfVector(docTokens, idf)

	tfidfSim := sparseCosine(queryVec, docVec)
	if tfidfSim == 0 && (isZeroVector(queryVec) || isZeroVector(docVec)) {
		tfidfSim = sparseCosine(termFrequency(queryTokens), termFrequency(docTokens))
	}

	jaccardSim := jaccard(queryTokens, docTokens)

	return c.TFIDFWeight*tfidfSim + c.JaccardWeight*jaccardSim
}

func isZeroVector(v map[string]float64) bool {
	for _, val := range v {
		if val != 0 {
			return false
		}
	}
	return true
}
