package extractor

import (
	"strings"
	"unicode/utf8"
)

// TextStats summarizes extracted text for listing collaborators
type TextStats struct {
	TotalChars         int     `json:"total_chars"`
	TotalWords         int     `json:"total_words"`
	TotalLines         int     `json:"total_lines"`
	TotalParagraphs    int     `json:"total_paragraphs"`
	AvgParagraphLength float64 `json:"avg_paragraph_length"`
}

// Stats counts characters, words, lines and paragraphs. Paragraphs are
// separated by a blank line; the average ignores empty ones.
func Stats(text string) TextStats {
	stats := TextStats{
		TotalChars: utf8.RuneCountInString(text),
		TotalWords: len(strings.Fields(text)),
	}
	if text != "" {
		stats.TotalLines = len(strings.Split(strings.TrimSuffix(text, "\n"), "\n"))
	}

	parts := strings.Split(text, "\n\n")
	stats.TotalParagraphs = len(parts)

	var sum, n int
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		sum += utf8.RuneCountInString(p)
		n++
	}
	if n > 0 {
		stats.AvgParagraphLength = float64(sum) / float64(n)
	}
	return stats
}
