package predictor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayurrec/internal/corpus"
	"ayurrec/internal/domain"
	"ayurrec/internal/embedding/tfidf"
)

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func testStore(t *testing.T) *corpus.Store {
	t.Helper()
	rows := []domain.CorpusRow{
		{SymptomText: "bloating constipation", TherapyName: "Basti", DoctorName: "Dr. A"},
		{SymptomText: "gas pain", TherapyName: "Basti", DoctorName: "Dr. B"},
		{SymptomText: "joint stiffness", TherapyName: "Basti", DoctorName: "Dr. A"},
		{SymptomText: "skin rash", TherapyName: "Virechana", DoctorName: "Dr. C"},
		{SymptomText: "sinus congestion", TherapyName: "Shirodhara", TherapyDescription: "Oil poured on the forehead", DoctorName: "Dr. D"},
	}
	s, err := corpus.Build(rows, tfidf.Options{Stopwords: tfidf.DefaultStopwords()})
	require.NoError(t, err)
	return s
}

func TestPredictMatchesReply(t *testing.T) {
	gen := &fakeGenerator{reply: "  virechana.\n"}
	svc := NewService(gen, testStore(t), Options{}, nil)

	got, err := svc.Predict(context.Background(), 34, "Female", "itchy rash")
	require.NoError(t, err)
	assert.Equal(t, Prediction{Therapy: "Virechana", Doctors: []string{"Dr. C"}}, got)

	assert.Contains(t, gen.prompt, "- Age: 34")
	assert.Contains(t, gen.prompt, "- Symptoms/Complaints: itchy rash")
	assert.Contains(t, gen.prompt, "2. Virechana - Therapeutic purgation for Pitta dosha disorders")
	assert.Contains(t, gen.prompt, "3. Shirodhara - Oil poured on the forehead (typical symptoms: congestion, sinus)")
	assert.Contains(t, gen.prompt, "1. Basti - Medicated enema for Vata dosha disorders (typical symptoms: bloating, constipation, gas, joint)")
	assert.Contains(t, gen.prompt, "one of: Basti, Virechana, Shirodhara")
}

func TestPredictFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"unknown reply", &fakeGenerator{reply: "Abhyanga"}},
		{"empty reply", &fakeGenerator{reply: ""}},
		{"generator error", &fakeGenerator{err: errors.New("quota")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.gen, testStore(t), Options{}, nil)
			got, err := svc.Predict(context.Background(), 40, "Male", "back pain")
			require.NoError(t, err)
			assert.Equal(t, "Basti", got.Therapy)
			assert.Equal(t, []string{"Dr. A", "Dr. B"}, got.Doctors)
			assert.True(t, got.Fallback)
		})
	}
}

func TestPredictLimitsDoctors(t *testing.T) {
	svc := NewService(&fakeGenerator{reply: "Basti"}, testStore(t), Options{MaxDoctors: 1}, nil)
	got, err := svc.Predict(context.Background(), 40, "Male", "back pain")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dr. A"}, got.Doctors)
}

func TestPredictValidatesInput(t *testing.T) {
	svc := NewService(&fakeGenerator{reply: "Basti"}, testStore(t), Options{}, nil)
	ctx := context.Background()

	_, err := svc.Predict(ctx, 0, "Male", "pain")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Predict(ctx, 30, " ", "pain")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Predict(ctx, 30, "Male", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewService(nil, testStore(t), Options{}, nil).Predict(ctx, 30, "Male", "pain")
	assert.ErrorIs(t, err, ErrNoGenerator)
}

func TestPredictCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(&fakeGenerator{err: context.Canceled}, testStore(t), Options{}, nil)
	_, err := svc.Predict(ctx, 30, "Male", "pain")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatchTherapy(t *testing.T) {
	therapies := []string{"Vamana", "Virechana", "Basti"}
	got, ok := matchTherapy("I recommend BASTI therapy.", therapies)
	assert.True(t, ok)
	assert.Equal(t, "Basti", got)

	_, ok = matchTherapy("...", therapies)
	assert.False(t, ok)
}
