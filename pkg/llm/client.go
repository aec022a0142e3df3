package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"

	"github.com/xhad/tradeqa/internal/types"
	"github.com/xhad/tradeqa/pkg/logger"
)

var (
	// ErrRateLimited marks a backend rate-limit or quota signal.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrNoCredential is returned when the backend has no credential configured.
	ErrNoCredential = errors.New("llm: no generation credential configured")
)

// Generator is what the agents, router and orchestrator need from a client.
type Generator interface {
	Generate(ctx context.Context, prompt string) Result
}

// Result is generated text or, when Text is empty, the reason it is absent.
type Result struct {
	Text   string
	Reason string
}

// OK reports whether text was produced.
func (r Result) OK() bool {
	return r.Text != ""
}

// Absent builds a Result carrying only a reason.
func Absent(format string, args ...interface{}) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// ClientConfig represents the configuration for a generation client.
type ClientConfig struct {
	Provider     string // googleai or ollama
	APIKey       string
	BaseURL      string // Ollama server URL
	Model        string
	MaxTokens    int
	Temperature  float64
	MaxAttempts  int
	RetryBackoff time.Duration
	Notifier     types.Notifier
	Logger       *logrus.Entry
}

// Client wraps an llms.Model with bounded retry on rate limiting. It never
// returns an error; failures come back as an absent Result and, when they
// concern the user, a notification.
type Client struct {
	config ClientConfig
	model  llms.Model
	log    *logrus.Entry
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewWithModel creates a client around an existing model.
func NewWithModel(model llms.Model, config ClientConfig) *Client {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 20 * time.Second
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2048
	}
	if config.Notifier == nil {
		config.Notifier = types.NotifierFunc(func(string) {})
	}

	return &Client{
		config: config,
		model:  model,
		log:    logger.Or(config.Logger, "llm"),
		sleep:  sleepContext,
	}
}

// SetSleep replaces the backoff sleep. Tests use it to skip real waits.
func (c *Client) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	c.sleep = fn
}

// Generate sends prompt as a single human message.
func (c *Client) Generate(ctx context.Context, prompt string) Result {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		resp, err := c.model.GenerateContent(ctx, content,
			llms.WithMaxTokens(c.config.MaxTokens),
			llms.WithTemperature(c.config.Temperature),
		)
		if err == nil {
			text := responseText(resp)
			if text == "" {
				return Absent("empty response")
			}
			return Result{Text: text}
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			c.log.WithError(ctxErr).Debug("generation abandoned")
			return Absent("generation abandoned: %v", ctxErr)
		}

		if !IsRateLimited(err) {
			c.log.WithError(err).Error("generation failed")
			c.notify(ctx, fmt.Sprintf("응답 생성 중 오류가 발생했습니다: %v", err))
			return Absent("generation failed: %v", err)
		}

		if attempt == c.config.MaxAttempts {
			break
		}

		c.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": c.config.RetryBackoff,
		}).Warn("rate limited, backing off")

		if err := c.sleep(ctx, c.config.RetryBackoff); err != nil {
			return Absent("generation abandoned: %v", err)
		}
	}

	c.log.WithError(lastErr).Error("rate limit persisted after retries")
	c.notify(ctx, fmt.Sprintf("API 요청 한도를 초과했습니다. %d회 재시도 후에도 응답을 받지 못했습니다. 잠시 후 다시 시도해 주세요.", c.config.MaxAttempts))
	return Absent("rate limited after %d attempts", c.config.MaxAttempts)
}

// IsRateLimited recognizes rate-limit and quota signals from either backend.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "resource exhausted", "resource_exhausted", "quota", "rate limit"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func responseText(resp *llms.ContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, choice := range resp.Choices {
		if choice != nil && strings.TrimSpace(choice.Content) != "" {
			return strings.TrimSpace(choice.Content)
		}
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
