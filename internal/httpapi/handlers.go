package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"ayurrec/internal/domain"
	"ayurrec/internal/predictor"
)

const maxBodyBytes = 1 << 20

type recommendRequest struct {
	Symptoms string `json:"symptoms"`
	Severity string `json:"severity"`
	Age      int    `json:"age,omitempty"`
	Gender   string `json:"gender,omitempty"`
	TopN     int    `json:"top_n,omitempty"`
}

type similarRequest struct {
	Symptoms string `json:"symptoms"`
	TopN     int    `json:"top_n,omitempty"`
}

type similarResponse struct {
	Recommendations []domain.RecommendationResult `json:"recommendations"`
}

type predictRequest struct {
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	Complaint string `json:"complaint"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Therapies int    `json:"therapies"`
	Predictor bool   `json:"predictor"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   "ayurrec",
		Therapies: len(s.rec.Therapies()),
		Predictor: s.pred != nil,
	})
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !s.decode(w, r, &req) {
		return
	}
	sev, err := domain.ParseSeverity(req.Severity)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	resp, err := s.rec.Recommend(r.Context(), domain.RecommendRequest{
		Symptoms: req.Symptoms,
		Severity: sev,
		Age:      req.Age,
		Gender:   req.Gender,
		TopN:     req.TopN,
	})
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) similar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if !s.decode(w, r, &req) {
		return
	}
	results, err := s.rec.Similar(r.Context(), req.Symptoms, req.TopN)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, similarResponse{Recommendations: results})
}

func (s *Server) predictTherapy(w http.ResponseWriter, r *http.Request) {
	if s.pred == nil {
		s.fail(w, r, http.StatusServiceUnavailable, predictor.ErrNoGenerator)
		return
	}
	var req predictRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.pred.Predict(r.Context(), req.Age, req.Gender, req.Complaint)
	switch {
	case errors.Is(err, predictor.ErrInvalidInput):
		s.fail(w, r, http.StatusBadRequest, err)
		return
	case errors.Is(err, predictor.ErrNoGenerator):
		s.fail(w, r, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if p.Doctors == nil {
		p.Doctors = []string{}
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.fail(w, r, http.StatusBadRequest, errors.New("invalid JSON body"))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := RequestIDFrom(r.Context())
	if status >= 500 {
		s.logger.ErrorContext(r.Context(), "request failed", "request_id", id, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
