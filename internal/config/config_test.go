package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Ranker.Type)
	assert.Equal(t, "none", cfg.Directory.Type)
	assert.Equal(t, "none", cfg.Predictor.Type)
	assert.Equal(t, 5, cfg.Recommend.TopN)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3003", "http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Vectorizer.UseDefaultStopwords)
}

func TestLoadAppliesSectionDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
snapshot:
  path: /srv/ayur.json
ranker:
  type: qdrant
  qdrant:
    collection: symptoms
directory:
  type: mongo
  mongo:
    database: ayur
  redis:
    addr: localhost:6379
predictor:
  type: openai
  openai: {}
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/ayur.json", cfg.Snapshot.Path)
	assert.Equal(t, "http://localhost:6334", cfg.Ranker.Qdrant.URL)
	assert.Equal(t, 15, cfg.Ranker.Qdrant.TimeoutSecs)
	assert.Equal(t, "MONGO_URI", cfg.Directory.Mongo.URIEnv)
	assert.Equal(t, "users", cfg.Directory.Mongo.Collection)
	assert.Equal(t, 600, cfg.Directory.Redis.TTLSecs)
	assert.Equal(t, "doctor", cfg.Directory.Role)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Predictor.OpenAI.APIKeyEnv)
	assert.Equal(t, "gpt-4o-mini", cfg.Predictor.OpenAI.Model)
	assert.Equal(t, "Basti", cfg.Predictor.DefaultTherapy)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown ranker":     "ranker: {type: faiss}",
		"qdrant without col": "ranker: {type: qdrant}",
		"unknown directory":  "directory: {type: ldap}",
		"mongo without db":   "directory: {type: mongo, mongo: {}}",
		"postgres missing":   "directory: {type: postgres}",
		"unknown predictor":  "predictor: {type: claude}",
		"bad log format":     "log: {format: xml}",
		"bad yaml":           "ranker: [",
	}
	for name, yml := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Recommend.TopN = 3
	cfg.Server.CORSOrigins = []string{"https://ayur.example"}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefaultWritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "ayurrec", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	NewLogger(LogConfig{Level: "bogus"}, &buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
