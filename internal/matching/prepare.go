package matching

import "strings"

// ExtractionMarker, when present in a document, takes precedence over the
// windowed excerpt: everything after the marker is used as-is.
const ExtractionMarker = "Key extractions:"

// ExcerptConfig bounds the representative excerpt taken from long documents
// before embedding. Sizes are in runes.
type ExcerptConfig struct {
	Head   int
	Middle int
	Tail   int
}

// DefaultExcerptConfig returns the default excerpt window sizes.
func DefaultExcerptConfig() ExcerptConfig {
	return ExcerptConfig{Head: 1000, Middle: 1000, Tail: 1000}
}

// PrepareText produces a bounded-length representative excerpt of a document
// for embedding. Documents containing ExtractionMarker return only the text
// after the marker. Documents at or below the combined window size are
// returned unchanged. Longer documents are reduced to labeled head, middle
// and tail windows.
func PrepareText(text string, cfg ExcerptConfig) string {
	if idx := strings.Index(text, ExtractionMarker); idx >= 0 {
		return strings.TrimSpace(text[idx+len(ExtractionMarker):])
	}

	runes := []rune(text)
	limit := cfg.Head + cfg.Middle + cfg.Tail
	if len(runes) <= limit {
		return text
	}

	head := string(runes[:cfg.Head])

	mid := len(runes) / 2
	midStart := mid - cfg.Middle/2
	if midStart < 0 {
		midStart = 0
	}
	midEnd := midStart + cfg.Middle
	if midEnd > len(runes) {
		midEnd = len(runes)
	}
	middle := string(runes[midStart:midEnd])

	tail := string(runes[len(runes)-cfg.Tail:])

	var sb strings.Builder
	sb.WriteString("Beginning: ")
	sb.WriteString(head)
	sb.WriteString("\n\nMiddle Section: ")
	sb.WriteString(middle)
	sb.WriteString("\n\nEnd: ")
	sb.WriteString(tail)
	return sb.String()
}
