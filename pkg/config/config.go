package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider     string        `yaml:"provider"`
		APIKey       string        `yaml:"api_key"`
		BaseURL      string        `yaml:"base_url"`
		Model        string        `yaml:"model"`
		MaxTokens    int           `yaml:"max_tokens"`
		Temperature  float64       `yaml:"temperature"`
		MaxAttempts  int           `yaml:"max_attempts"`
		RetryBackoff time.Duration `yaml:"retry_backoff"`
	} `yaml:"llm"`

	Corpus struct {
		DocsDir string `yaml:"docs_dir"`
	} `yaml:"corpus"`

	Retrieval struct {
		SegmentSize      int     `yaml:"segment_size"`
		MinSegmentLength int     `yaml:"min_segment_length"`
		TopK             int     `yaml:"top_k"`
		Threshold        float64 `yaml:"threshold"`
		SummaryChunkSize int     `yaml:"summary_chunk_size"`
	} `yaml:"retrieval"`

	Search struct {
		Disabled        bool          `yaml:"disabled"`
		RateLimit       float64       `yaml:"rate_limit"`
		ResultsPerQuery int           `yaml:"results_per_query"`
		PerCallTimeout  time.Duration `yaml:"per_call_timeout"`
		OverallTimeout  time.Duration `yaml:"overall_timeout"`
		Freshness       time.Duration `yaml:"freshness"`
		MaxEntries      int           `yaml:"max_entries"`
		MaxResults      int           `yaml:"max_results"`
	} `yaml:"search"`

	Relationship struct {
		Freshness     time.Duration `yaml:"freshness"`
		MinConfidence float64       `yaml:"min_confidence"`
	} `yaml:"relationship"`

	Orchestrator struct {
		FollowUpWindow  time.Duration `yaml:"followup_window"`
		FreshTimeout    time.Duration `yaml:"fresh_timeout"`
		FollowUpTimeout time.Duration `yaml:"followup_timeout"`
		AgentTimeout    time.Duration `yaml:"agent_timeout"`
	} `yaml:"orchestrator"`

	Server struct {
		Addr          string `yaml:"addr"`
		SweepSchedule string `yaml:"sweep_schedule"`
	} `yaml:"server"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
	} `yaml:"database"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/tradeqa/config.yaml"),
			"/etc/tradeqa/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "googleai"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.Model = "mistral"
		} else {
			config.LLM.Model = "gemini-2.0-flash"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2048
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.MaxAttempts == 0 {
		config.LLM.MaxAttempts = 3
	}
	if config.LLM.RetryBackoff == 0 {
		config.LLM.RetryBackoff = 20 * time.Second
	}

	if config.Corpus.DocsDir == "" {
		config.Corpus.DocsDir = "docs"
	}

	if config.Retrieval.SegmentSize == 0 {
		config.Retrieval.SegmentSize = 1000
	}
	if config.Retrieval.MinSegmentLength == 0 {
		config.Retrieval.MinSegmentLength = 100
	}
	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 3
	}
	if config.Retrieval.Threshold == 0 {
		config.Retrieval.Threshold = 0.005
	}
	if config.Retrieval.SummaryChunkSize == 0 {
		config.Retrieval.SummaryChunkSize = 3000
	}

	if config.Search.RateLimit == 0 {
		config.Search.RateLimit = 1.0
	}
	if config.Search.ResultsPerQuery == 0 {
		config.Search.ResultsPerQuery = 10
	}
	if config.Search.PerCallTimeout == 0 {
		config.Search.PerCallTimeout = 20 * time.Second
	}
	if config.Search.OverallTimeout == 0 {
		config.Search.OverallTimeout = 60 * time.Second
	}
	if config.Search.Freshness == 0 {
		config.Search.Freshness = 6 * time.Hour
	}
	if config.Search.MaxEntries == 0 {
		config.Search.MaxEntries = 100
	}
	if config.Search.MaxResults == 0 {
		config.Search.MaxResults = 10
	}

	if config.Relationship.Freshness == 0 {
		config.Relationship.Freshness = 24 * time.Hour
	}
	if config.Relationship.MinConfidence == 0 {
		config.Relationship.MinConfidence = 0.7
	}

	if config.Orchestrator.FollowUpWindow == 0 {
		config.Orchestrator.FollowUpWindow = 30 * time.Second
	}
	if config.Orchestrator.FreshTimeout == 0 {
		config.Orchestrator.FreshTimeout = 10 * time.Second
	}
	if config.Orchestrator.FollowUpTimeout == 0 {
		config.Orchestrator.FollowUpTimeout = 60 * time.Second
	}
	if config.Orchestrator.AgentTimeout == 0 {
		config.Orchestrator.AgentTimeout = time.Second
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.SweepSchedule == "" {
		config.Server.SweepSchedule = "@every 30m"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "transcripts"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" && config.LLM.APIKey == "" {
		config.LLM.APIKey = key
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if docsDir := os.Getenv("TRADEQA_DOCS_DIR"); docsDir != "" {
		config.Corpus.DocsDir = docsDir
	}
}
