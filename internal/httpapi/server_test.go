package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayurrec/internal/corpus"
	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
	"ayurrec/internal/predictor"
	"ayurrec/internal/service"
	"ayurrec/internal/vectorstore/memory"
)

func newTestServer(t *testing.T, pred Predictor) http.Handler {
	t.Helper()
	store, err := corpus.Build([]domain.CorpusRow{
		{SymptomText: "bloating constipation", TherapyName: "Basti", DoctorName: "A"},
		{SymptomText: "skin rash itching", TherapyName: "Virechana", DoctorName: "B"},
	}, tfidf.Options{Stopwords: tfidf.DefaultStopwords()})
	require.NoError(t, err)
	svc := service.NewRecommendService(store, memory.NewRanker(store.Space()), nil, nil, nil, service.Options{})
	return New(svc, Options{Predictor: pred, CORSOrigins: []string{"http://localhost:5173"}}, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil)
	for _, path := range []string{"/", "/health"} {
		rec := do(t, h, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","service":"ayurrec","therapies":2,"predictor":false}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	}
}

func TestRequestIDPropagated(t *testing.T) {
	h := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRecommendEndpoint(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/recommend", `{"symptoms":"constipation and rash","severity":"Often"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"action":"visit doctor","recommendations":[
		{"therapy":"Basti","doctors":[{"name":"A"}]},
		{"therapy":"Virechana","doctors":[{"name":"B"}]}]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/recommend", `{"symptoms":"","severity":"sometimes"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"action":"self-monitor","suggestion":"`+service.SelfMonitorSuggestion+`"}`, rec.Body.String())
}

func TestRecommendBadRequests(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/recommend", `{"symptoms":"rash","severity":"rarely"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "invalid severity")
	assert.NotEmpty(t, body.RequestID)

	rec = do(t, h, http.MethodPost, "/recommend", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/recommend", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSimilarEndpoint(t *testing.T) {
	h := newTestServer(t, nil)
	rec := do(t, h, http.MethodPost, "/similar", `{"symptoms":"itching","top_n":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body similarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Recommendations, 1)
	assert.Equal(t, "Virechana", body.Recommendations[0].TherapyName)
	assert.Equal(t, "B", body.Recommendations[0].Doctor.Name)
}

type stubPredictor struct {
	p   predictor.Prediction
	err error
}

func (s stubPredictor) Predict(context.Context, int, string, string) (predictor.Prediction, error) {
	return s.p, s.err
}

func TestPredictTherapyEndpoint(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodPost, "/predict-therapy", `{"age":30,"gender":"F","complaint":"rash"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h := newTestServer(t, stubPredictor{p: predictor.Prediction{Therapy: "Nasya"}})
	rec = do(t, h, http.MethodPost, "/predict-therapy", `{"age":30,"gender":"F","complaint":"sinus"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"therapy":"Nasya","vaidya_list":[]}`, rec.Body.String())

	h = newTestServer(t, stubPredictor{err: predictor.ErrInvalidInput})
	rec = do(t, h, http.MethodPost, "/predict-therapy", `{"gender":"F"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/recommend", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
