package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
)

// SnapshotVersion is the snapshot format written by Save.
const SnapshotVersion = 1

// snapshot is the on-disk bundle: fitted vectorizer parameters, the corpus
// rows and, optionally, the fitted row vectors.
type snapshot struct {
	Version    int                `json:"version"`
	Vectorizer tfidf.Params       `json:"vectorizer"`
	Rows       []domain.CorpusRow `json:"rows"`
	Vectors    []tfidf.Vector     `json:"vectors,omitempty"`
}

// Load reads a snapshot written by Save. Every failure wraps
// domain.ErrCorpusLoad.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusLoad, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrCorpusLoad, path, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", domain.ErrCorpusLoad, snap.Version)
	}
	if len(snap.Rows) == 0 {
		return nil, fmt.Errorf("%w: snapshot has no rows", domain.ErrCorpusLoad)
	}

	var space *tfidf.Space
	if snap.Vectors == nil {
		texts := make([]string, len(snap.Rows))
		for i, r := range snap.Rows {
			texts[i] = r.SymptomText
		}
		space, err = tfidf.FromParams(snap.Vectorizer, texts)
	} else {
		if len(snap.Vectors) != len(snap.Rows) {
			return nil, fmt.Errorf("%w: %d rows but %d row vectors", domain.ErrCorpusLoad, len(snap.Rows), len(snap.Vectors))
		}
		space, err = tfidf.NewSpace(snap.Vectorizer, snap.Vectors)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusLoad, err)
	}
	return New(snap.Rows, space)
}

// Save writes the store as a snapshot, including fitted row vectors.
func Save(path string, s *Store) error {
	snap := snapshot{
		Version:    SnapshotVersion,
		Vectorizer: s.space.Params(),
		Rows:       s.rows,
		Vectors:    make([]tfidf.Vector, s.space.RowCount()),
	}
	for i := range snap.Vectors {
		snap.Vectors[i] = s.space.Row(i)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
