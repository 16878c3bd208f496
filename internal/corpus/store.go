package corpus

import (
	"fmt"
	"strings"

	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
)

// Store is the immutable corpus: rows, their fitted vector space, and a
// therapy→doctor index. It is built once at startup and shared read-only.
type Store struct {
	rows      []domain.CorpusRow
	space     *tfidf.Space
	therapies []string
	doctors   map[string][]string
}

// New validates rows against space and builds the store. space must hold
// exactly one vector per row.
func New(rows []domain.CorpusRow, space *tfidf.Space) (*Store, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", domain.ErrCorpusLoad)
	}
	if space == nil {
		return nil, fmt.Errorf("%w: missing vector space", domain.ErrCorpusLoad)
	}
	if space.RowCount() != len(rows) {
		return nil, fmt.Errorf("%w: %d rows but %d row vectors", domain.ErrCorpusLoad, len(rows), space.RowCount())
	}
	s := &Store{
		rows:    make([]domain.CorpusRow, len(rows)),
		space:   space,
		doctors: make(map[string][]string),
	}
	seenDoctor := make(map[string]map[string]struct{})
	for i, r := range rows {
		r = trimRow(r)
		if r.SymptomText == "" {
			return nil, fmt.Errorf("%w: row %d has no symptom text", domain.ErrCorpusLoad, i)
		}
		if r.TherapyName == "" {
			return nil, fmt.Errorf("%w: row %d has no therapy", domain.ErrCorpusLoad, i)
		}
		s.rows[i] = r
		if _, ok := seenDoctor[r.TherapyName]; !ok {
			seenDoctor[r.TherapyName] = make(map[string]struct{})
			s.therapies = append(s.therapies, r.TherapyName)
		}
		if r.DoctorName == "" {
			continue
		}
		if _, ok := seenDoctor[r.TherapyName][r.DoctorName]; ok {
			continue
		}
		seenDoctor[r.TherapyName][r.DoctorName] = struct{}{}
		s.doctors[r.TherapyName] = append(s.doctors[r.TherapyName], r.DoctorName)
	}
	return s, nil
}

// Build fits a new vector space over the rows' symptom texts.
func Build(rows []domain.CorpusRow, opts tfidf.Options) (*Store, error) {
	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.SymptomText
	}
	space, err := tfidf.Fit(texts, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusLoad, err)
	}
	return New(rows, space)
}

// RowCount returns the number of corpus rows.
func (s *Store) RowCount() int { return len(s.rows) }

// RowAt returns row i. An index outside [0, RowCount) is a programming
// error and panics.
func (s *Store) RowAt(i int) domain.CorpusRow {
	if i < 0 || i >= len(s.rows) {
		panic(fmt.Sprintf("corpus: row index %d out of range [0,%d)", i, len(s.rows)))
	}
	return s.rows[i]
}

// Space returns the fitted vector space.
func (s *Store) Space() *tfidf.Space { return s.space }

// Therapies returns the distinct therapy labels in first-seen order.
func (s *Store) Therapies() []string {
	return append([]string(nil), s.therapies...)
}

// TherapyDoctors returns the deduplicated doctor names for therapy in
// first-seen corpus order.
func (s *Store) TherapyDoctors(therapy string) []string {
	return append([]string(nil), s.doctors[therapy]...)
}

// RowsForTherapy returns up to limit rows labelled therapy, in corpus order.
func (s *Store) RowsForTherapy(therapy string, limit int) []domain.CorpusRow {
	if limit <= 0 {
		return nil
	}
	var out []domain.CorpusRow
	for _, r := range s.rows {
		if r.TherapyName != therapy {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

func trimRow(r domain.CorpusRow) domain.CorpusRow {
	r.SymptomText = strings.TrimSpace(r.SymptomText)
	r.TherapyName = strings.TrimSpace(r.TherapyName)
	r.TherapyDescription = strings.TrimSpace(r.TherapyDescription)
	r.DoctorName = strings.TrimSpace(r.DoctorName)
	r.Specialization = strings.TrimSpace(r.Specialization)
	r.Hospital = strings.TrimSpace(r.Hospital)
	r.Experience = strings.TrimSpace(r.Experience)
	return r
}
