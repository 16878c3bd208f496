package memory

import (
	"context"
	"errors"

	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
	"ayurrec/internal/vectorstore"
)

// Ranker is a brute-force cosine ranker over a fitted vector space.
// The space is read-only, so a Ranker needs no locking.
type Ranker struct {
	space *tfidf.Space
}

var _ vectorstore.Ranker = (*Ranker)(nil)

// NewRanker returns a ranker over space.
func NewRanker(space *tfidf.Space) *Ranker { return &Ranker{space: space} }

// Rank implements vectorstore.Ranker.
func (r *Ranker) Rank(_ context.Context, query tfidf.Vector, topN int) ([]domain.Match, error) {
	if r.space == nil {
		return nil, errors.New("memory ranker: no vector space")
	}
	return Rank(r.space, query, topN), nil
}

// Rank scores every row of space against query by cosine similarity and
// returns the best topN (clamped to [0, rows]). A zero query scores 0.0
// against every row, leaving rows in stored order.
func Rank(space *tfidf.Space, query tfidf.Vector, topN int) []domain.Match {
	n := space.RowCount()
	topN = vectorstore.ClampTopN(topN, n)
	if topN == 0 {
		return []domain.Match{}
	}
	if query.Norm() == 0 {
		return vectorstore.ZeroMatches(n, topN)
	}
	matches := make([]domain.Match, n)
	for i := 0; i < n; i++ {
		matches[i] = domain.Match{Row: i, Score: tfidf.Cosine(query, space.Row(i))}
	}
	vectorstore.SortMatches(matches)
	return matches[:topN]
}
