package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SnapshotConfig locates the fitted corpus snapshot.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// VectorizerConfig is used when fitting a new snapshot.
type VectorizerConfig struct {
	TokenPattern        string   `yaml:"token_pattern,omitempty"`
	Stopwords           []string `yaml:"stopwords,omitempty"`
	UseDefaultStopwords bool     `yaml:"use_default_stopwords"`
}

// RankerConfig selects and configures the similarity ranker.
type RankerConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant instance.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// DirectoryConfig selects the doctor directory and its optional cache.
type DirectoryConfig struct {
	Type        string          `yaml:"type"`
	Role        string          `yaml:"role"`
	TimeoutSecs int             `yaml:"timeout_secs"`
	Mongo       *MongoConfig    `yaml:"mongo,omitempty"`
	Postgres    *PostgresConfig `yaml:"postgres,omitempty"`
	Redis       *RedisConfig    `yaml:"redis,omitempty"`
}

type MongoConfig struct {
	URIEnv     string `yaml:"uri_env"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type PostgresConfig struct {
	DSNEnv string `yaml:"dsn_env"`
	Table  string `yaml:"table"`
}

// RedisConfig enables a read-through cache in front of the directory.
type RedisConfig struct {
	Addr            string `yaml:"addr"`
	PasswordEnv     string `yaml:"password_env,omitempty"`
	DB              int    `yaml:"db"`
	TTLSecs         int    `yaml:"ttl_secs"`
	NegativeTTLSecs int    `yaml:"negative_ttl_secs"`
	Prefix          string `yaml:"prefix,omitempty"`
}

// PredictorConfig selects the LLM behind therapy prediction.
type PredictorConfig struct {
	Type           string        `yaml:"type"`
	DefaultTherapy string        `yaml:"default_therapy"`
	MaxDoctors     int           `yaml:"max_doctors"`
	Gemini         *GeminiConfig `yaml:"gemini,omitempty"`
	OpenAI         *OpenAIConfig `yaml:"openai,omitempty"`
}

type GeminiConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIConfig holds configuration for an OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type RecommendConfig struct {
	TopN int `yaml:"top_n"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	CORSOrigins        []string `yaml:"cors_origins"`
	ReadTimeoutSecs    int      `yaml:"read_timeout_secs"`
	WriteTimeoutSecs   int      `yaml:"write_timeout_secs"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"`
}

// LogConfig selects the slog handler. Format is "text" or "json".
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
	Ranker     RankerConfig     `yaml:"ranker"`
	Directory  DirectoryConfig  `yaml:"directory"`
	Predictor  PredictorConfig  `yaml:"predictor"`
	Recommend  RecommendConfig  `yaml:"recommend"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ayurrec/config.yaml.
// If neither exists, it writes defaults to ~/.config/ayurrec/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// LoadPath loads path when set and falls back to LoadDefault otherwise.
func LoadPath(path string) (*AppConfig, error) {
	if path == "" {
		cfg, _, err := LoadDefault()
		return cfg, err
	}
	return Load(path)
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown backend names.
func (c *AppConfig) Validate() error {
	switch c.Ranker.Type {
	case "memory":
	case "qdrant":
		if c.Ranker.Qdrant == nil || c.Ranker.Qdrant.Collection == "" {
			return errors.New("config: ranker.qdrant.collection is required")
		}
	default:
		return fmt.Errorf("config: unknown ranker %q", c.Ranker.Type)
	}
	switch c.Directory.Type {
	case "none":
	case "mongo":
		if c.Directory.Mongo == nil || c.Directory.Mongo.Database == "" {
			return errors.New("config: directory.mongo.database is required")
		}
	case "postgres":
		if c.Directory.Postgres == nil {
			return errors.New("config: directory.postgres section is required")
		}
	default:
		return fmt.Errorf("config: unknown directory %q", c.Directory.Type)
	}
	switch c.Predictor.Type {
	case "none", "gemini", "openai":
	default:
		return fmt.Errorf("config: unknown predictor %q", c.Predictor.Type)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ayurrec", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Snapshot:   SnapshotConfig{Path: "data/snapshot.json"},
		Vectorizer: VectorizerConfig{UseDefaultStopwords: true},
		Ranker:     RankerConfig{Type: "memory"},
		Directory:  DirectoryConfig{Type: "none"},
		Predictor:  PredictorConfig{Type: "none"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = "data/snapshot.json"
	}
	if cfg.Ranker.Type == "" {
		cfg.Ranker.Type = "memory"
	}
	if cfg.Ranker.Type == "qdrant" && cfg.Ranker.Qdrant != nil {
		if cfg.Ranker.Qdrant.URL == "" {
			cfg.Ranker.Qdrant.URL = "http://localhost:6334"
		}
		if cfg.Ranker.Qdrant.TimeoutSecs == 0 {
			cfg.Ranker.Qdrant.TimeoutSecs = 15
		}
	}

	if cfg.Directory.Type == "" {
		cfg.Directory.Type = "none"
	}
	if cfg.Directory.Role == "" {
		cfg.Directory.Role = "doctor"
	}
	if cfg.Directory.TimeoutSecs == 0 {
		cfg.Directory.TimeoutSecs = 5
	}
	if m := cfg.Directory.Mongo; m != nil {
		if m.URIEnv == "" {
			m.URIEnv = "MONGO_URI"
		}
		if m.Collection == "" {
			m.Collection = "users"
		}
	}
	if p := cfg.Directory.Postgres; p != nil {
		if p.DSNEnv == "" {
			p.DSNEnv = "DATABASE_URL"
		}
		if p.Table == "" {
			p.Table = "users"
		}
	}
	if r := cfg.Directory.Redis; r != nil && r.TTLSecs == 0 {
		r.TTLSecs = 600
	}

	if cfg.Predictor.Type == "" {
		cfg.Predictor.Type = "none"
	}
	if cfg.Predictor.DefaultTherapy == "" {
		cfg.Predictor.DefaultTherapy = "Basti"
	}
	if cfg.Predictor.MaxDoctors == 0 {
		cfg.Predictor.MaxDoctors = 5
	}
	if g := cfg.Predictor.Gemini; cfg.Predictor.Type == "gemini" && g != nil {
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = "GOOGLE_API_KEY"
		}
		if g.Model == "" {
			g.Model = "gemini-2.5-flash"
		}
		if g.TimeoutSecs == 0 {
			g.TimeoutSecs = 30
		}
	}
	if o := cfg.Predictor.OpenAI; cfg.Predictor.Type == "openai" && o != nil {
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "gpt-4o-mini"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}

	if cfg.Recommend.TopN == 0 {
		cfg.Recommend.TopN = 5
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3003", "http://localhost:5173"}
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = 10
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = 60
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 30
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
