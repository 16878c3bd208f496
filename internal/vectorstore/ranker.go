package vectorstore

import (
	"context"
	"sort"

	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
)

// Ranker scores corpus rows against a query vector and returns the best
// topN, ordered by descending score with ties broken by row index.
type Ranker interface {
	Rank(ctx context.Context, query tfidf.Vector, topN int) ([]domain.Match, error)
}

// SortMatches orders matches by descending score, then ascending row.
func SortMatches(m []domain.Match) {
	sort.SliceStable(m, func(i, j int) bool {
		if m[i].Score != m[j].Score {
			return m[i].Score > m[j].Score
		}
		return m[i].Row < m[j].Row
	})
}

// ClampTopN limits topN to [0, rowCount].
func ClampTopN(topN, rowCount int) int {
	if topN < 0 {
		return 0
	}
	if topN > rowCount {
		return rowCount
	}
	return topN
}

// ZeroMatches is the ranking of a zero-norm query: every row scores 0 and
// rows keep their stored order.
func ZeroMatches(rowCount, topN int) []domain.Match {
	n := ClampTopN(topN, rowCount)
	out := make([]domain.Match, n)
	for i := range out {
		out[i] = domain.Match{Row: i}
	}
	return out
}
