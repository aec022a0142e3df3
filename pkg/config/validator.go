package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalid wraps the joined validation errors returned by Check.
var ErrInvalid = errors.New("invalid configuration")

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	switch c.LLM.Provider {
	case "googleai":
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.api_key",
				Message: "a Gemini API key is required (set GEMINI_API_KEY)",
			})
		}
	case "ollama":
		if c.LLM.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "Ollama base URL is required",
			})
		} else if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid Ollama base URL",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unsupported provider: %s", c.LLM.Provider),
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_attempts",
			Message: "max_attempts must be positive",
		})
	}

	// Validate Retrieval config
	if c.Retrieval.SegmentSize < 2 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.segment_size",
			Message: "segment_size must be at least 2",
		})
	}

	if c.Retrieval.MinSegmentLength < 0 || c.Retrieval.MinSegmentLength > c.Retrieval.SegmentSize {
		errors = append(errors, ValidationError{
			Field:   "retrieval.min_segment_length",
			Message: "min_segment_length must be non-negative and at most segment_size",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold >= 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.threshold",
			Message: "threshold must be in [0, 1)",
		})
	}

	// Validate Search config
	if c.Search.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "search.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Search.PerCallTimeout > c.Search.OverallTimeout {
		errors = append(errors, ValidationError{
			Field:   "search.per_call_timeout",
			Message: "per_call_timeout must not exceed overall_timeout",
		})
	}

	if c.Search.MaxEntries < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.max_entries",
			Message: "max_entries must be positive",
		})
	}

	// Validate Relationship config
	if c.Relationship.MinConfidence <= 0 || c.Relationship.MinConfidence > 1 {
		errors = append(errors, ValidationError{
			Field:   "relationship.min_confidence",
			Message: "min_confidence must be in (0, 1]",
		})
	}

	// Validate Orchestrator config
	if c.Orchestrator.FreshTimeout <= 0 || c.Orchestrator.FollowUpTimeout <= 0 || c.Orchestrator.AgentTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator",
			Message: "timeouts must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	return errors
}

// Check returns nil when the configuration is valid and an ErrInvalid-wrapped
// summary otherwise.
func (c *Config) Check() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
