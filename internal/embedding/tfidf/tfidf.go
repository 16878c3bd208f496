package tfidf

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"ayurrec/internal/domain"
)

// DefaultTokenPattern matches runs of letters, keeping inner apostrophes.
const DefaultTokenPattern = `\p{L}+(?:['’]\p{L}+)*`

var (
	ErrEmptyCorpus   = errors.New("empty corpus for TF-IDF fit")
	ErrNoTokens      = errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	ErrInvalidParams = errors.New("invalid vector space parameters")
)

// Options controls tokenization. The same options must be used at fit and
// transform time, so they travel with the fitted space.
type Options struct {
	TokenPattern string
	Stopwords    []string
}

// Params is the serialisable form of a fitted space (without row vectors).
type Params struct {
	TokenPattern string         `json:"token_pattern"`
	Stopwords    []string       `json:"stopwords,omitempty"`
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
}

// Space is a fitted TF-IDF vector space: vocabulary, IDF weights and one
// vector per corpus text in corpus order. It is never mutated after
// construction and is safe for concurrent readers.
type Space struct {
	vocabulary   map[string]int
	idf          []float64
	rows         []Vector
	pattern      string
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// Fit builds the vocabulary and IDF values from corpus and vectorizes every
// corpus text against them.
func Fit(corpus []string, opts Options) (*Space, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}
	s, err := newTokenizer(opts)
	if err != nil {
		return nil, err
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range s.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	// Stable column order
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return nil, ErrNoTokens
	}
	s.vocabulary = make(map[string]int, len(terms))
	s.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		s.vocabulary[term] = i
		// Smoothed IDF
		s.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	s.rows = make([]Vector, len(corpus))
	for i, text := range corpus {
		s.rows[i] = s.vectorize(text)
	}
	return s, nil
}

// FromParams restores a space from persisted parameters and recomputes the
// row vectors from texts.
func FromParams(p Params, texts []string) (*Space, error) {
	s, err := restore(p)
	if err != nil {
		return nil, err
	}
	s.rows = make([]Vector, len(texts))
	for i, text := range texts {
		s.rows[i] = s.vectorize(text)
	}
	return s, nil
}

// NewSpace restores a space from persisted parameters and precomputed row
// vectors. Every row must fit the vocabulary's dimension.
func NewSpace(p Params, rows []Vector) (*Space, error) {
	s, err := restore(p)
	if err != nil {
		return nil, err
	}
	dim := len(s.idf)
	s.rows = make([]Vector, len(rows))
	for i, r := range rows {
		if err := r.validate(dim); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidParams, i, err)
		}
		s.rows[i] = r.clone()
	}
	return s, nil
}

func restore(p Params) (*Space, error) {
	s, err := newTokenizer(Options{TokenPattern: p.TokenPattern, Stopwords: p.Stopwords})
	if err != nil {
		return nil, err
	}
	if len(p.IDF) == 0 {
		return nil, fmt.Errorf("%w: empty vocabulary", ErrInvalidParams)
	}
	if len(p.Vocabulary) != len(p.IDF) {
		return nil, fmt.Errorf("%w: vocabulary has %d terms but %d idf weights", ErrInvalidParams, len(p.Vocabulary), len(p.IDF))
	}
	used := make([]bool, len(p.IDF))
	s.vocabulary = make(map[string]int, len(p.Vocabulary))
	for term, idx := range p.Vocabulary {
		if idx < 0 || idx >= len(p.IDF) {
			return nil, fmt.Errorf("%w: term %q has column %d outside [0,%d)", ErrInvalidParams, term, idx, len(p.IDF))
		}
		if used[idx] {
			return nil, fmt.Errorf("%w: column %d assigned twice", ErrInvalidParams, idx)
		}
		used[idx] = true
		s.vocabulary[term] = idx
	}
	s.idf = make([]float64, len(p.IDF))
	for i, w := range p.IDF {
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return nil, fmt.Errorf("%w: idf[%d]=%v", ErrInvalidParams, i, w)
		}
		s.idf[i] = w
	}
	return s, nil
}

func newTokenizer(opts Options) (*Space, error) {
	pattern := opts.TokenPattern
	if pattern == "" {
		pattern = DefaultTokenPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: token pattern: %v", ErrInvalidParams, err)
	}
	stop := make(map[string]struct{}, len(opts.Stopwords))
	for _, w := range opts.Stopwords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Space{pattern: pattern, tokenPattern: re, stopwords: stop}, nil
}

// Params returns the serialisable parameters of the space.
func (s *Space) Params() Params {
	vocab := make(map[string]int, len(s.vocabulary))
	for k, v := range s.vocabulary {
		vocab[k] = v
	}
	stop := make([]string, 0, len(s.stopwords))
	for w := range s.stopwords {
		stop = append(stop, w)
	}
	sort.Strings(stop)
	return Params{
		TokenPattern: s.pattern,
		Stopwords:    stop,
		Vocabulary:   vocab,
		IDF:          append([]float64(nil), s.idf...),
	}
}

// Dimension returns the vocabulary size.
func (s *Space) Dimension() int { return len(s.idf) }

// RowCount returns the number of corpus row vectors.
func (s *Space) RowCount() int { return len(s.rows) }

// Row returns the i-th corpus vector. Callers must not modify it.
func (s *Space) Row(i int) Vector { return s.rows[i] }

// Transform vectorizes text against the fitted vocabulary. Unknown terms
// are ignored, so empty or unmatched input yields a zero vector.
func (s *Space) Transform(text string) (Vector, error) {
	if s == nil || len(s.idf) == 0 {
		return Vector{}, fmt.Errorf("%w: vector space not fitted", domain.ErrVectorization)
	}
	return s.vectorize(text), nil
}

func (s *Space) vectorize(text string) Vector {
	tf := make(map[int]int)
	for _, tok := range s.tokenize(text) {
		if idx, ok := s.vocabulary[tok]; ok {
			tf[idx]++
		}
	}
	if len(tf) == 0 {
		return Vector{}
	}
	v := Vector{Indices: make([]int, 0, len(tf)), Values: make([]float64, 0, len(tf))}
	for idx := range tf {
		v.Indices = append(v.Indices, idx)
	}
	sort.Ints(v.Indices)
	norm2 := 0.0
	for _, idx := range v.Indices {
		w := float64(tf[idx]) * s.idf[idx]
		v.Values = append(v.Values, w)
		norm2 += w * w
	}
	// L2 normalize
	n := math.Sqrt(norm2)
	for i := range v.Values {
		v.Values[i] /= n
	}
	return v
}

func (s *Space) tokenize(text string) []string {
	lower := strings.ToLower(norm.NFKC.String(text))
	raw := s.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := s.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// DefaultStopwords returns the built-in English stopword list.
func DefaultStopwords() []string {
	return []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"i", "my", "me", "have", "has", "had", "feel", "feeling", "since",
	}
}
