package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopTerms(t *testing.T) {
	s := NewFrequencySummarizer([]string{"and", "the", "in"})
	texts := []string{
		"Pain in the joints and stiffness",
		"joint stiffness, swelling",
		"stiffness stiffness stiffness",
		"a swelling",
	}
	assert.Equal(t, []string{"stiffness", "swelling"}, s.TopTerms(texts, 2))
	assert.Equal(t, []string{"stiffness", "swelling", "joint", "joints", "pain"}, s.TopTerms(texts, 10))
	assert.Nil(t, s.TopTerms(texts, 0))
	assert.Empty(t, s.TopTerms(nil, 3))
}
