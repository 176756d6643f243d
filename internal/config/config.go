package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

// ModelConfig is one entry of the generation failover list; list order is
// priority order.
type ModelConfig struct {
	Name             string `json:"name"`
	Identifier       string `json:"identifier"`
	MaxContextTokens int    `json:"max_context_tokens"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
}

type ChunkingConfig struct {
	TargetTokens  int `json:"target_tokens"`
	OverlapTokens int `json:"overlap_tokens"`
}

type EmbeddingConfig struct {
	Provider      string                 `json:"provider"`
	Model         string                 `json:"model"`
	Data          map[string]interface{} `json:"data"`
	CacheSize     int                    `json:"cache_size"`
	CacheTTLHours int                    `json:"cache_ttl_hours"`
}

type GenerationConfig struct {
	Provider string                 `json:"provider"`
	Data     map[string]interface{} `json:"data"`
	Models   []ModelConfig          `json:"models"`
}

type Config struct {
	Port             int              `json:"port"`
	LogConfig        logger.LogConfig `json:"log_config"`
	Backend          string           `json:"backend"`
	Chunking         ChunkingConfig   `json:"chunking"`
	TopKDefault      int              `json:"top_k_default"`
	TopKMax          int              `json:"top_k_max"`
	Embedding        EmbeddingConfig  `json:"embedding"`
	Generation       GenerationConfig `json:"generation"`
	StatsLogSchedule string           `json:"stats_log_schedule"`
	RateLimitSeconds int              `json:"rate_limit_seconds"`
	CORSAllowlist    []string         `json:"cors_allowlist"`
}

// Models mirroring the original deployment: free OpenRouter models in
// priority order, largest context window first.
func defaultModels() []ModelConfig {
	return []ModelConfig{
		{Name: "Hermes 3 405B", Identifier: "nousresearch/hermes-3-llama-3.1-405b:free", MaxContextTokens: 8000, TimeoutSeconds: 8},
		{Name: "Mistral 7B", Identifier: "mistralai/mistral-7b-instruct:free", MaxContextTokens: 4000, TimeoutSeconds: 8},
		{Name: "Llama 3.3 70B", Identifier: "meta-llama/llama-3.3-70b-instruct:free", MaxContextTokens: 3000, TimeoutSeconds: 8},
	}
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Backend == "" {
		cfg.Backend = "lexical"
	}
	switch cfg.Backend {
	case "dense":
		if cfg.Embedding.Provider == "" || cfg.Embedding.Model == "" {
			return nil, fmt.Errorf("embedding.provider and embedding.model are required for the dense backend")
		}
	case "lexical":
	default:
		return nil, fmt.Errorf("backend must be dense or lexical")
	}
	if cfg.Chunking.TargetTokens == 0 {
		cfg.Chunking.TargetTokens = 600
	}
	if cfg.Chunking.OverlapTokens == 0 {
		cfg.Chunking.OverlapTokens = 100
	}
	if cfg.TopKDefault == 0 {
		cfg.TopKDefault = 3
	}
	if cfg.TopKMax == 0 {
		cfg.TopKMax = 5
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.CacheTTLHours == 0 {
		cfg.Embedding.CacheTTLHours = 2
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "openrouter"
	}
	if len(cfg.Generation.Models) == 0 {
		cfg.Generation.Models = defaultModels()
	}
	for i, m := range cfg.Generation.Models {
		if m.Name == "" || m.Identifier == "" {
			return nil, fmt.Errorf("generation.models[%d] needs name and identifier", i)
		}
		if m.MaxContextTokens <= 0 {
			return nil, fmt.Errorf("generation.models[%d] needs max_context_tokens", i)
		}
		if m.TimeoutSeconds == 0 {
			cfg.Generation.Models[i].TimeoutSeconds = 8
		}
	}
	cfg.applyEnvKeys()
	return &cfg, nil
}

// applyEnvKeys fills provider credentials from the environment when the
// config file leaves them blank, so keys can stay out of checked-in config.
func (c *Config) applyEnvKeys() {
	c.Generation.Data = fillAPIKey(c.Generation.Provider, c.Generation.Data)
	if c.Embedding.Provider != "" {
		c.Embedding.Data = fillAPIKey(c.Embedding.Provider, c.Embedding.Data)
	}
}

func fillAPIKey(provider string, data map[string]interface{}) map[string]interface{} {
	if data == nil {
		data = map[string]interface{}{}
	}
	if key, _ := data["api_key"].(string); strings.TrimSpace(key) != "" {
		return data
	}
	envName := strings.ToUpper(strings.TrimSpace(provider)) + "_API_KEY"
	if v := os.Getenv(envName); v != "" {
		data["api_key"] = v
	}
	return data
}

// APIKeyConfigured reports whether the generation provider has a credential,
// for the health endpoint.
func (c *Config) APIKeyConfigured() bool {
	key, _ := c.Generation.Data["api_key"].(string)
	return strings.TrimSpace(key) != ""
}
