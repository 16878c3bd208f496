// Package predictor asks a text-generation backend for the single best
// therapy for a patient and attaches practitioners from the corpus.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
	"ayurrec/internal/summarizer"
)

var (
	ErrNoGenerator  = errors.New("predictor: no generator configured")
	ErrInvalidInput = errors.New("predictor: age, gender and complaint are required")
)

const (
	DefaultTherapy    = "Basti"
	DefaultMaxDoctors = 5

	promptKeywords = 4
	allRows        = 1 << 30
)

// Generator produces a free-text completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TherapySource is the part of the corpus the predictor reads.
type TherapySource interface {
	Therapies() []string
	TherapyDoctors(therapy string) []string
	RowsForTherapy(therapy string, limit int) []domain.CorpusRow
}

// Prediction is the therapy chosen for a patient and the doctors offered.
// Fallback is set when the generator failed or named no known therapy.
type Prediction struct {
	Therapy  string   `json:"therapy"`
	Doctors  []string `json:"vaidya_list"`
	Fallback bool     `json:"-"`
}

// Options configure a Service. Zero values pick the package defaults.
type Options struct {
	DefaultTherapy string
	MaxDoctors     int
}

type Service struct {
	gen            Generator
	source         TherapySource
	defaultTherapy string
	maxDoctors     int
	summarizer     *summarizer.FrequencySummarizer
	logger         *slog.Logger
}

func NewService(gen Generator, source TherapySource, opts Options, logger *slog.Logger) *Service {
	if opts.DefaultTherapy == "" {
		opts.DefaultTherapy = DefaultTherapy
	}
	if opts.MaxDoctors <= 0 {
		opts.MaxDoctors = DefaultMaxDoctors
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gen:            gen,
		source:         source,
		defaultTherapy: opts.DefaultTherapy,
		maxDoctors:     opts.MaxDoctors,
		summarizer:     summarizer.NewFrequencySummarizer(tfidf.DefaultStopwords()),
		logger:         logger.With("component", "predictor"),
	}
}

// Predict picks a therapy for the patient. Generator failures are logged and
// resolved to the default therapy rather than returned.
func (s *Service) Predict(ctx context.Context, age int, gender, complaint string) (Prediction, error) {
	gender, complaint = strings.TrimSpace(gender), strings.TrimSpace(complaint)
	if age <= 0 || gender == "" || complaint == "" {
		return Prediction{}, ErrInvalidInput
	}
	if s.gen == nil {
		return Prediction{}, ErrNoGenerator
	}

	therapies := s.source.Therapies()
	reply, err := s.gen.Generate(ctx, s.prompt(age, gender, complaint, therapies))
	if err != nil {
		if ctx.Err() != nil {
			return Prediction{}, ctx.Err()
		}
		s.logger.WarnContext(ctx, "generator failed, using default therapy", "error", err)
		return s.prediction(s.defaultTherapy, true), nil
	}

	therapy, ok := matchTherapy(reply, therapies)
	if !ok {
		s.logger.WarnContext(ctx, "unrecognised therapy in reply", "reply", reply)
		return s.prediction(s.defaultTherapy, true), nil
	}
	return s.prediction(therapy, false), nil
}

func (s *Service) prediction(therapy string, fallback bool) Prediction {
	docs := s.source.TherapyDoctors(therapy)
	if len(docs) > s.maxDoctors {
		docs = docs[:s.maxDoctors]
	}
	out := make([]string, len(docs))
	copy(out, docs)
	return Prediction{Therapy: therapy, Doctors: out, Fallback: fallback}
}

// matchTherapy returns the first therapy whose name occurs in reply,
// ignoring case and full stops.
func matchTherapy(reply string, therapies []string) (string, bool) {
	r := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(reply, ".", "")))
	if r == "" {
		return "", false
	}
	for _, t := range therapies {
		if strings.Contains(r, strings.ToLower(t)) {
			return t, true
		}
	}
	return "", false
}

var builtinDescriptions = map[string]string{
	"vamana":        "Therapeutic emesis for Kapha dosha disorders",
	"virechana":     "Therapeutic purgation for Pitta dosha disorders",
	"basti":         "Medicated enema for Vata dosha disorders",
	"nasya":         "Nasal administration of medicated oils for head and neck disorders",
	"raktamokshana": "Bloodletting therapy for blood-related disorders",
}

func (s *Service) describe(therapy string) string {
	if d, ok := builtinDescriptions[strings.ToLower(therapy)]; ok {
		return d
	}
	if rows := s.source.RowsForTherapy(therapy, 1); len(rows) == 1 {
		return rows[0].TherapyDescription
	}
	return ""
}

// keywords are the most common symptom terms among the therapy's rows.
func (s *Service) keywords(therapy string) []string {
	rows := s.source.RowsForTherapy(therapy, allRows)
	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.SymptomText
	}
	return s.summarizer.TopTerms(texts, promptKeywords)
}

func (s *Service) prompt(age int, gender, complaint string, therapies []string) string {
	var b strings.Builder
	b.WriteString("You are an expert Ayurvedic practitioner. Based on the following patient information, recommend the most appropriate Panchakarma therapy.\n\n")
	fmt.Fprintf(&b, "Patient Information:\n- Age: %d\n- Gender: %s\n- Symptoms/Complaints: %s\n\n", age, gender, complaint)
	b.WriteString("Panchakarma Therapies:\n")
	for i, t := range therapies {
		fmt.Fprintf(&b, "%d. %s", i+1, t)
		if d := s.describe(t); d != "" {
			b.WriteString(" - " + d)
		}
		if kw := s.keywords(t); len(kw) > 0 {
			fmt.Fprintf(&b, " (typical symptoms: %s)", strings.Join(kw, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nBased on Ayurvedic principles, dosha imbalances, and the patient's symptoms, recommend ONLY ONE therapy from the list above.\n\n")
	fmt.Fprintf(&b, "IMPORTANT: Respond with ONLY the therapy name (one of: %s). Do not include any explanation, additional text, or formatting. Just the therapy name.",
		strings.Join(therapies, ", "))
	return b.String()
}
