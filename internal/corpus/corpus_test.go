package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
)

func sampleRows() []domain.CorpusRow {
	return []domain.CorpusRow{
		{SymptomText: "bloating constipation", TherapyName: "Basti", DoctorName: "A", Hospital: "Pune"},
		{SymptomText: "skin rash itching", TherapyName: "Virechana", DoctorName: "B"},
		{SymptomText: "joint pain dryness", TherapyName: "Basti", DoctorName: "C"},
		{SymptomText: "gas constipation", TherapyName: "Basti", DoctorName: "A"},
	}
}

func TestBuildIndexesTherapies(t *testing.T) {
	s, err := Build(sampleRows(), tfidf.Options{Stopwords: tfidf.DefaultStopwords()})
	require.NoError(t, err)

	assert.Equal(t, 4, s.RowCount())
	assert.Equal(t, "Pune", s.RowAt(0).Hospital)
	assert.Equal(t, []string{"Basti", "Virechana"}, s.Therapies())
	assert.Equal(t, []string{"A", "C"}, s.TherapyDoctors("Basti"))
	assert.Empty(t, s.TherapyDoctors("Nasya"))

	rows := s.RowsForTherapy("Basti", 2)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].DoctorName)
	assert.Equal(t, "C", rows[1].DoctorName)
	assert.Len(t, s.RowsForTherapy("Basti", 10), 3)
	assert.Empty(t, s.RowsForTherapy("Basti", 0))
}

func TestRowAtOutOfRangePanics(t *testing.T) {
	s, err := Build(sampleRows(), tfidf.Options{})
	require.NoError(t, err)
	assert.Panics(t, func() { s.RowAt(-1) })
	assert.Panics(t, func() { s.RowAt(s.RowCount()) })
}

func TestNewRejectsInvalidRows(t *testing.T) {
	space, err := tfidf.Fit([]string{"a b", "c d"}, tfidf.Options{})
	require.NoError(t, err)

	_, err = New([]domain.CorpusRow{{SymptomText: "a b", TherapyName: "Basti"}}, space)
	assert.ErrorIs(t, err, domain.ErrCorpusLoad)

	_, err = New([]domain.CorpusRow{{SymptomText: "a b", TherapyName: "Basti"}, {SymptomText: "c d"}}, space)
	assert.ErrorIs(t, err, domain.ErrCorpusLoad)

	_, err = New([]domain.CorpusRow{{SymptomText: " ", TherapyName: "Basti"}, {SymptomText: "c d", TherapyName: "Nasya"}}, space)
	assert.ErrorIs(t, err, domain.ErrCorpusLoad)

	_, err = New(nil, space)
	assert.ErrorIs(t, err, domain.ErrCorpusLoad)
}

func TestSaveLoadSnapshot(t *testing.T) {
	s, err := Build(sampleRows(), tfidf.Options{Stopwords: tfidf.DefaultStopwords()})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "data", "snapshot.json")
	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.RowCount(), loaded.RowCount())
	for i := 0; i < s.RowCount(); i++ {
		assert.Equal(t, s.RowAt(i), loaded.RowAt(i))
		assert.Equal(t, s.Space().Row(i), loaded.Space().Row(i))
	}
	q1, _ := s.Space().Transform("constipation")
	q2, _ := loaded.Space().Transform("constipation")
	assert.Equal(t, q1, q2)
}

func TestLoadWithoutVectorsRecomputes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	body := `{
  "version": 1,
  "vectorizer": {"token_pattern": "\\p{L}+", "vocabulary": {"constipation": 0, "rash": 1}, "idf": [1.4, 1.4]},
  "rows": [
    {"symptoms": "constipation", "therapy": "Basti"},
    {"symptoms": "rash", "therapy": "Virechana"}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, s.Space().Row(0).Indices)
	assert.Equal(t, []int{1}, s.Space().Row(1).Indices)
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	vectorizer := `"vectorizer": {"vocabulary": {"a": 0, "b": 1}, "idf": [1, 1]}`

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "nope.json")},
		{"malformed", write("bad.json", "{not json")},
		{"wrong version", write("v2.json", `{"version": 2, `+vectorizer+`, "rows": [{"symptoms": "a", "therapy": "Basti"}]}`)},
		{"no rows", write("empty.json", `{"version": 1, `+vectorizer+`, "rows": []}`)},
		{"vector count mismatch", write("count.json", `{"version": 1, `+vectorizer+`, "rows": [{"symptoms": "a", "therapy": "Basti"}], "vectors": []}`)},
		{"dimension mismatch", write("dim.json", `{"version": 1, `+vectorizer+`, "rows": [{"symptoms": "a", "therapy": "Basti"}], "vectors": [{"indices": [7], "values": [1]}]}`)},
		{"vocabulary mismatch", write("vocab.json", `{"version": 1, "vectorizer": {"vocabulary": {"a": 0}, "idf": [1, 1]}, "rows": [{"symptoms": "a", "therapy": "Basti"}]}`)},
		{"row without therapy", write("therapy.json", `{"version": 1, `+vectorizer+`, "rows": [{"symptoms": "a"}]}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			assert.ErrorIs(t, err, domain.ErrCorpusLoad)
		})
	}
}

func TestReadCSV(t *testing.T) {
	data := `symptoms,panchakarma,therapy_description,vaidya_name,specialization,hospital,experience
"bloating, constipation",Basti,Medicated enema,Vaidya Rohit Patil,Kayachikitsa,Sai Ayur,12 years
skin rash itching,Virechana,,Vaidya Nisha Bhat,,,
nan,Basti,,,,,
,Nasya,,,,,
`
	rows, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.CorpusRow{
		SymptomText:        "bloating, constipation",
		TherapyName:        "Basti",
		TherapyDescription: "Medicated enema",
		DoctorName:         "Vaidya Rohit Patil",
		Specialization:     "Kayachikitsa",
		Hospital:           "Sai Ayur",
		Experience:         "12 years",
	}, rows[0])
	assert.Equal(t, "Vaidya Nisha Bhat", rows[1].DoctorName)
	assert.Empty(t, rows[1].Hospital)
}

func TestReadCSVRequiresColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("therapy,doctors\nBasti,A\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	rows, err := ReadCSV(strings.NewReader("Symptom,Therapy,Doctors\nfever,Virechana,B\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "B", rows[0].DoctorName)
}
