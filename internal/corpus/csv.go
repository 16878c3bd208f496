package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"ayurrec/internal/domain"
)

// Column aliases accepted in training CSV headers.
var columnAliases = map[string][]string{
	"symptoms":            {"symptoms", "symptom", "symptom_text"},
	"therapy":             {"panchakarma", "therapy", "therapy_name"},
	"therapy_description": {"therapy_description", "description"},
	"doctor":              {"vaidya_name", "doctors", "doctor", "doctor_name"},
	"specialization":      {"specialization"},
	"hospital":            {"hospital"},
	"experience":          {"experience"},
}

// ReadCSV parses training rows from a CSV with a header line. The symptom
// and therapy columns are required; the others are optional.
func ReadCSV(r io.Reader) ([]domain.CorpusRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: missing header")
		}
		return nil, err
	}
	cols := resolveColumns(header)
	if _, ok := cols["symptoms"]; !ok {
		return nil, errors.New("csv: no symptoms column")
	}
	if _, ok := cols["therapy"]; !ok {
		return nil, errors.New("csv: no therapy column")
	}

	var rows []domain.CorpusRow
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		get := func(key string) string {
			idx, ok := cols[key]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}
		row := domain.CorpusRow{
			SymptomText:        get("symptoms"),
			TherapyName:        get("therapy"),
			TherapyDescription: get("therapy_description"),
			DoctorName:         get("doctor"),
			Specialization:     get("specialization"),
			Hospital:           get("hospital"),
			Experience:         get("experience"),
		}
		// pandas-style NaN placeholders
		if row.SymptomText == "" || row.TherapyName == "" || strings.EqualFold(row.SymptomText, "nan") {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func resolveColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cols := make(map[string]int)
	for key, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := index[a]; ok {
				cols[key] = i
				break
			}
		}
	}
	return cols
}
