package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SymptomChunker splits a free-text complaint into individual symptom
// phrases on commas and the literal substring "and".
//
// The "and" match is a plain substring match, so words that contain it
// ("handle", "sandy") are split too. Callers that need word-boundary
// behaviour should pre-process the text.
type SymptomChunker struct {
	delimiters []string
	whitespace *regexp.Regexp
}

// NewSymptomChunker returns a chunker using the default delimiter set.
func NewSymptomChunker() *SymptomChunker {
	return &SymptomChunker{
		delimiters: []string{"and"},
		whitespace: regexp.MustCompile(`\s+`),
	}
}

// Chunk returns the trimmed, non-empty symptom phrases of text in input order.
func (c *SymptomChunker) Chunk(text string) []string {
	for _, d := range c.delimiters {
		text = strings.ReplaceAll(text, d, ",")
	}
	parts := strings.Split(text, ",")
	phrases := make([]string, 0, len(parts))
	for _, p := range parts {
		p = c.Sanitize(p)
		if p == "" {
			continue
		}
		phrases = append(phrases, p)
	}
	return phrases
}

// Sanitize applies NFKC normalization, drops control characters and
// collapses runs of whitespace.
func (c *SymptomChunker) Sanitize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(c.whitespace.ReplaceAllString(text, " "))
}
