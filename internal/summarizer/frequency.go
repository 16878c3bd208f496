package summarizer

import (
	"regexp"
	"sort"
	"strings"
)

// FrequencySummarizer condenses a set of symptom texts into their most
// frequent terms (stopwords filtered).
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a summarizer using stopwords.
func NewFrequencySummarizer(stopwords []string) *FrequencySummarizer {
	m := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		m[strings.ToLower(w)] = struct{}{}
	}
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    m,
	}
}

// TopTerms returns up to k terms ordered by the number of texts containing
// them, ties broken alphabetically. Single-letter tokens are ignored.
func (s *FrequencySummarizer) TopTerms(texts []string, k int) []string {
	if k <= 0 {
		return nil
	}
	freq := map[string]int{}
	for _, text := range texts {
		seen := map[string]struct{}{}
		for _, tok := range s.tokens(text) {
			if _, ok := s.stopwords[tok]; ok || len([]rune(tok)) < 2 {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			freq[tok]++
		}
	}
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if k < len(terms) {
		terms = terms[:k]
	}
	return terms
}

func (s *FrequencySummarizer) tokens(text string) []string {
	return s.tokenPattern.FindAllString(strings.ToLower(text), -1)
}
