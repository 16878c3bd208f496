package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
)

func fitSpace(t *testing.T, corpus ...string) *tfidf.Space {
	t.Helper()
	s, err := tfidf.Fit(corpus, tfidf.Options{Stopwords: tfidf.DefaultStopwords()})
	require.NoError(t, err)
	return s
}

func TestRankOrdersByScore(t *testing.T) {
	space := fitSpace(t,
		"skin rash itching",
		"bloating constipation",
		"constipation gas constipation",
		"headache",
	)
	q, err := space.Transform("constipation")
	require.NoError(t, err)

	got := Rank(space, q, 10)
	require.Len(t, got, 4)
	assert.Equal(t, 2, got[0].Row)
	assert.Equal(t, 1, got[1].Row)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
	// rows without overlap tie at zero and keep corpus order
	assert.Equal(t, domain.Match{Row: 0}, got[2])
	assert.Equal(t, domain.Match{Row: 3}, got[3])
}

func TestRankTiesKeepInsertionOrder(t *testing.T) {
	space := fitSpace(t, "fever chills", "nausea", "fever chills", "fever chills")
	q, _ := space.Transform("fever")
	got := Rank(space, q, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 2, 3}, rows(got))
	assert.Equal(t, got[0].Score, got[1].Score)
}

func TestRankClampsTopN(t *testing.T) {
	space := fitSpace(t, "a1 fever", "cough", "rash")
	q, _ := space.Transform("fever")

	assert.Len(t, Rank(space, q, 2), 2)
	assert.Len(t, Rank(space, q, 3), 3)
	assert.Len(t, Rank(space, q, 99), 3)
	assert.Empty(t, Rank(space, q, 0))
	assert.Empty(t, Rank(space, q, -4))
}

func TestRankZeroQuery(t *testing.T) {
	space := fitSpace(t, "fever", "cough", "rash")
	for _, text := range []string{"", "unknownterm"} {
		q, err := space.Transform(text)
		require.NoError(t, err)
		got := Rank(space, q, 5)
		assert.Equal(t, []domain.Match{{Row: 0}, {Row: 1}, {Row: 2}}, got)
	}
}

func TestRankIsIdempotent(t *testing.T) {
	space := fitSpace(t, "joint pain", "pain swelling", "joint stiffness", "pain")
	q, _ := space.Transform("joint pain")
	first := Rank(space, q, 4)
	second := Rank(space, q, 4)
	assert.Equal(t, first, second)
}

func TestRankerImplementsInterface(t *testing.T) {
	space := fitSpace(t, "fever", "cough")
	r := NewRanker(space)
	q, _ := space.Transform("cough")
	got, err := r.Rank(context.Background(), q, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Row)
	assert.InDelta(t, 1.0, got[0].Score, 1e-12)

	_, err = NewRanker(nil).Rank(context.Background(), q, 1)
	assert.Error(t, err)
}

func rows(m []domain.Match) []int {
	out := make([]int, len(m))
	for i, x := range m {
		out[i] = x.Row
	}
	return out
}
