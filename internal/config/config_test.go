package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"port": 8080}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "lexical", cfg.Backend)
	require.Equal(t, 600, cfg.Chunking.TargetTokens)
	require.Equal(t, 100, cfg.Chunking.OverlapTokens)
	require.Equal(t, 3, cfg.TopKDefault)
	require.Equal(t, 5, cfg.TopKMax)
	require.Equal(t, "openrouter", cfg.Generation.Provider)
	require.Len(t, cfg.Generation.Models, 3)
	require.Equal(t, "Hermes 3 405B", cfg.Generation.Models[0].Name)
	require.Equal(t, 8000, cfg.Generation.Models[0].MaxContextTokens)
	require.Equal(t, 8, cfg.Generation.Models[0].TimeoutSeconds)
}

func TestLoadRequiresPort(t *testing.T) {
	path := writeConfig(t, `{}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadDenseBackendRequiresEmbedding(t *testing.T) {
	path := writeConfig(t, `{"port": 8080, "backend": "dense"}`)
	_, err := Load(path)
	require.Error(t, err)

	path = writeConfig(t, `{"port": 8080, "backend": "dense", "embedding": {"provider": "gemini", "model": "text-embedding-004"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 10000, cfg.Embedding.CacheSize)
	require.Equal(t, 2, cfg.Embedding.CacheTTLHours)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `{"port": 8080, "backend": "sparse"}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadModelValidation(t *testing.T) {
	path := writeConfig(t, `{"port": 8080, "generation": {"models": [{"name": "A", "identifier": "a/a"}]}}`)
	_, err := Load(path)
	require.Error(t, err)

	path = writeConfig(t, `{"port": 8080, "generation": {"models": [{"name": "A", "identifier": "a/a", "max_context_tokens": 4000}]}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Generation.Models[0].TimeoutSeconds)
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	path := writeConfig(t, `{"port": 8080}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.APIKeyConfigured())
	require.Equal(t, "sk-test", cfg.Generation.Data["api_key"])
}

func TestConfigKeyWinsOverEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-env")
	path := writeConfig(t, `{"port": 8080, "generation": {"provider": "openrouter", "data": {"api_key": "sk-file"}}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sk-file", cfg.Generation.Data["api_key"])
}
