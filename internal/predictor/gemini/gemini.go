package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"ayurrec/internal/predictor"
)

var (
	ErrNoAPIKey   = errors.New("gemini: API key is required")
	ErrEmptyReply = errors.New("gemini: empty reply")
)

const DefaultModel = "gemini-2.5-flash"

// Config configures the Gemini generator. APIKeyEnv names the environment
// variable holding the key and defaults to GOOGLE_API_KEY.
type Config struct {
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Generator implements predictor.Generator on the Gemini API.
type Generator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ predictor.Generator = (*Generator)(nil)

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Generator, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GOOGLE_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: env %s is empty", ErrNoAPIKey, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	g := &Generator{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "gemini", "model", cfg.Model),
	}
	g.logger.Info("gemini generator initialized")
	return g, nil
}

// Generate sends prompt as a single user turn.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "gemini request failed", "error", err, "duration", time.Since(start))
		return "", err
	}
	text := strings.TrimSpace(replyText(resp))
	if text == "" {
		return "", ErrEmptyReply
	}
	g.logger.DebugContext(ctx, "gemini reply", "duration", time.Since(start))
	return text, nil
}

func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
