package tfidf

import (
	"errors"
	"fmt"
	"math"
)

// Vector is a sparse vector with strictly increasing column indices.
// The zero value is the zero vector.
type Vector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// IsZero reports whether the vector has no non-zero component.
func (v Vector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dense expands the vector to dim float32 components.
func (v Vector) Dense(dim int) []float32 {
	out := make([]float32, dim)
	for i, idx := range v.Indices {
		if idx < dim {
			out[idx] = float32(v.Values[i])
		}
	}
	return out
}

// Dot is the inner product of two sparse vectors.
func Dot(a, b Vector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Cosine returns the cosine similarity of a and b, or 0 when either has a
// zero norm.
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

func (v Vector) validate(dim int) error {
	if len(v.Indices) != len(v.Values) {
		return fmt.Errorf("%d indices but %d values", len(v.Indices), len(v.Values))
	}
	prev := -1
	for i, idx := range v.Indices {
		if idx <= prev {
			return errors.New("indices not strictly increasing")
		}
		if idx >= dim {
			return fmt.Errorf("index %d outside dimension %d", idx, dim)
		}
		if math.IsNaN(v.Values[i]) || math.IsInf(v.Values[i], 0) {
			return fmt.Errorf("non-finite value at index %d", idx)
		}
		prev = idx
	}
	return nil
}

func (v Vector) clone() Vector {
	return Vector{
		Indices: append([]int(nil), v.Indices...),
		Values:  append([]float64(nil), v.Values...),
	}
}
