package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "qwen2"
  max_tokens: 1000
  temperature: 0.5
  retry_backoff: 5s

corpus:
  docs_dir: "/srv/trade-docs"

retrieval:
  segment_size: 800
  top_k: 5

search:
  disabled: true
  per_call_timeout: 10s
  freshness: 1h

orchestrator:
  followup_window: 45s
  agent_timeout: 2s

database:
  url: "postgres://localhost:5432/test"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "qwen2", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 5*time.Second, config.LLM.RetryBackoff)
	assert.Equal(t, 3, config.LLM.MaxAttempts)
	assert.Equal(t, "/srv/trade-docs", config.Corpus.DocsDir)
	assert.Equal(t, 800, config.Retrieval.SegmentSize)
	assert.Equal(t, 100, config.Retrieval.MinSegmentLength)
	assert.Equal(t, 5, config.Retrieval.TopK)
	assert.True(t, config.Search.Disabled)
	assert.Equal(t, 10*time.Second, config.Search.PerCallTimeout)
	assert.Equal(t, 60*time.Second, config.Search.OverallTimeout)
	assert.Equal(t, time.Hour, config.Search.Freshness)
	assert.Equal(t, 24*time.Hour, config.Relationship.Freshness)
	assert.Equal(t, 45*time.Second, config.Orchestrator.FollowUpWindow)
	assert.Equal(t, 10*time.Second, config.Orchestrator.FreshTimeout)
	assert.Equal(t, 2*time.Second, config.Orchestrator.AgentTimeout)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "transcripts", config.Database.TableName)
}

func TestDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, "googleai", config.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", config.LLM.Model)
	assert.Equal(t, 20*time.Second, config.LLM.RetryBackoff)
	assert.Equal(t, 1000, config.Retrieval.SegmentSize)
	assert.Equal(t, 0.005, config.Retrieval.Threshold)
	assert.Equal(t, 6*time.Hour, config.Search.Freshness)
	assert.Equal(t, 10, config.Search.MaxResults)
	assert.Equal(t, 0.7, config.Relationship.MinConfidence)
	assert.Equal(t, 30*time.Second, config.Orchestrator.FollowUpWindow)
	assert.Equal(t, 60*time.Second, config.Orchestrator.FollowUpTimeout)
	assert.False(t, config.Search.Disabled)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		c.LLM.APIKey = "test-key"
		return c
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		expectedErrs  int
		errorMessages []string
	}{
		{
			name:         "valid config",
			mutate:       func(c *Config) {},
			expectedErrs: 0,
		},
		{
			name: "missing credential",
			mutate: func(c *Config) {
				c.LLM.APIKey = ""
			},
			expectedErrs:  1,
			errorMessages: []string{"llm.api_key: a Gemini API key is required"},
		},
		{
			name: "invalid config",
			mutate: func(c *Config) {
				c.LLM.MaxTokens = 10000
				c.LLM.Temperature = 3.0
				c.Retrieval.TopK = 0
				c.Database.URL = "not a url"
			},
			expectedErrs: 4,
			errorMessages: []string{
				"llm.max_tokens: max_tokens must be between 1 and 8192",
				"llm.temperature: temperature must be between 0 and 2",
				"retrieval.top_k: top_k must be positive",
				"database.url: invalid database URL",
			},
		},
		{
			name: "ollama without scheme",
			mutate: func(c *Config) {
				c.LLM.Provider = "ollama"
				c.LLM.BaseURL = "localhost"
			},
			expectedErrs:  1,
			errorMessages: []string{"llm.base_url: invalid Ollama base URL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)
			errors := config.Validate()
			assert.Len(t, errors, tt.expectedErrs)

			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestCheckWrapsErrInvalid(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	err := config.Check()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("TRADEQA_DOCS_DIR", "/env/docs")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "env-key", config.LLM.APIKey)
	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "/env/docs", config.Corpus.DocsDir)
}
