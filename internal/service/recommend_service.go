package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ayurrec/internal/chunker"
	"ayurrec/internal/corpus"
	"ayurrec/internal/domain"
	"ayurrec/internal/vectorstore"
)

// SelfMonitorSuggestion is the advisory returned for low-severity requests.
const SelfMonitorSuggestion = "Monitor your symptoms carefully. Consult a doctor if they worsen."

// DefaultTopN is used when a request does not ask for a row count.
const DefaultTopN = 5

// Options tune a RecommendService. Zero values pick defaults.
type Options struct {
	DefaultTopN int
	Role        string
}

// RecommendServiceImpl turns free-text symptoms into therapy groups with
// their practitioners. It holds no per-request state and is safe for
// concurrent use.
type RecommendServiceImpl struct {
	store     *corpus.Store
	ranker    vectorstore.Ranker
	directory domain.DoctorDirectory
	chunker   *chunker.SymptomChunker
	logger    *slog.Logger
	topN      int
	role      string
}

func NewRecommendService(store *corpus.Store, ranker vectorstore.Ranker, directory domain.DoctorDirectory, ch *chunker.SymptomChunker, logger *slog.Logger, opts Options) *RecommendServiceImpl {
	if ch == nil {
		ch = chunker.NewSymptomChunker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = DefaultTopN
	}
	if opts.Role == "" {
		opts.Role = domain.RoleDoctor
	}
	return &RecommendServiceImpl{
		store:     store,
		ranker:    ranker,
		directory: directory,
		chunker:   ch,
		logger:    logger.With("component", "recommend"),
		topN:      opts.DefaultTopN,
		role:      opts.Role,
	}
}

// Recommend runs the per-request flow. Only context cancellation is
// returned as an error; per-phrase and per-doctor failures degrade to
// partial output.
func (s *RecommendServiceImpl) Recommend(ctx context.Context, req domain.RecommendRequest) (domain.RecommendResponse, error) {
	if req.Severity == domain.SeveritySometimes {
		return domain.RecommendResponse{Action: domain.ActionSelfMonitor, Suggestion: SelfMonitorSuggestion}, nil
	}
	topN := req.TopN
	if topN <= 0 {
		topN = s.topN
	}

	resp := domain.RecommendResponse{Action: domain.ActionVisitDoctor, Recommendations: []domain.TherapyRecommendation{}}
	seen := make(map[string]struct{})
	for _, phrase := range s.chunker.Chunk(req.Symptoms) {
		if err := ctx.Err(); err != nil {
			return domain.RecommendResponse{}, err
		}
		therapy, ok := s.bestTherapy(ctx, phrase)
		if !ok {
			continue
		}
		if _, dup := seen[therapy]; dup {
			continue
		}
		seen[therapy] = struct{}{}
		resp.Recommendations = append(resp.Recommendations, domain.TherapyRecommendation{
			Therapy: therapy,
			Doctors: s.resolveDoctors(ctx, s.store.RowsForTherapy(therapy, topN)),
		})
	}
	if err := ctx.Err(); err != nil {
		return domain.RecommendResponse{}, err
	}
	return resp, nil
}

// bestTherapy returns the therapy of the top-ranked row for phrase. Phrases
// that fail to vectorize or rank, or that share no term with the corpus,
// yield nothing.
func (s *RecommendServiceImpl) bestTherapy(ctx context.Context, phrase string) (string, bool) {
	q, err := s.store.Space().Transform(phrase)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping phrase", "phrase", phrase, "error", err)
		return "", false
	}
	matches, err := s.ranker.Rank(ctx, q, 1)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping phrase", "phrase", phrase, "error", err)
		return "", false
	}
	if len(matches) == 0 || matches[0].Score <= 0 {
		s.logger.DebugContext(ctx, "no confident match", "phrase", phrase)
		return "", false
	}
	return s.store.RowAt(matches[0].Row).TherapyName, true
}

// resolveDoctors looks every row's doctor up concurrently. Each lookup writes
// only its own slot so output keeps row order.
func (s *RecommendServiceImpl) resolveDoctors(ctx context.Context, rows []domain.CorpusRow) []domain.DoctorProfile {
	out := make([]domain.DoctorProfile, 0, len(rows))
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.DoctorName != "" {
			names = append(names, r.DoctorName)
		}
	}
	if len(names) == 0 {
		return out
	}
	out = out[:len(names)]

	var wg sync.WaitGroup
	for i, name := range names {
		out[i] = domain.DoctorProfile{Name: name}
		if s.directory == nil {
			continue
		}
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			p, err := s.directory.Lookup(ctx, name, s.role)
			if err != nil {
				s.logger.WarnContext(ctx, "doctor lookup failed", "doctor", name, "error", err)
				return
			}
			if p == nil {
				return
			}
			prof := *p
			if prof.Name == "" {
				prof.Name = name
			}
			out[i] = prof
		}(i, name)
	}
	wg.Wait()
	return out
}

// Similar ranks the whole query at once and returns the topN rows with
// their attributes. Unlike Recommend, errors are returned.
func (s *RecommendServiceImpl) Similar(ctx context.Context, symptoms string, topN int) ([]domain.RecommendationResult, error) {
	if topN <= 0 {
		topN = s.topN
	}
	q, err := s.store.Space().Transform(s.chunker.Sanitize(symptoms))
	if err != nil {
		return nil, err
	}
	matches, err := s.ranker.Rank(ctx, q, topN)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	out := make([]domain.RecommendationResult, 0, len(matches))
	for _, m := range matches {
		r := s.store.RowAt(m.Row)
		out = append(out, domain.RecommendationResult{
			TherapyName:        r.TherapyName,
			TherapyDescription: r.TherapyDescription,
			Doctor: domain.DoctorInfo{
				Name:           r.DoctorName,
				Specialization: r.Specialization,
				Hospital:       r.Hospital,
				Experience:     r.Experience,
			},
			Score: m.Score,
		})
	}
	return out, nil
}

// Therapies lists the corpus therapy labels in first-seen order.
func (s *RecommendServiceImpl) Therapies() []string { return s.store.Therapies() }
