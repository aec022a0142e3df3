// Package llm is the generation client: a langchaingo model behind a
// bounded rate-limit retry loop.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

// New builds the configured backend and wraps it in a Client. A googleai
// provider without an API key fails with ErrNoCredential.
func New(ctx context.Context, config ClientConfig) (*Client, error) {
	model, err := newModel(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewWithModel(model, config), nil
}

func newModel(ctx context.Context, config ClientConfig) (llms.Model, error) {
	switch config.Provider {
	case "", "googleai":
		if config.APIKey == "" {
			return nil, ErrNoCredential
		}
		if config.Model == "" {
			config.Model = "gemini-2.0-flash"
		}
		model, err := googleai.New(ctx,
			googleai.WithAPIKey(config.APIKey),
			googleai.WithDefaultModel(config.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		return model, nil

	case "ollama":
		if config.Model == "" {
			config.Model = "mistral"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		model, err := ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama client: %w", err)
		}
		return model, nil

	default:
		return nil, fmt.Errorf("unsupported llm provider %q", config.Provider)
	}
}
