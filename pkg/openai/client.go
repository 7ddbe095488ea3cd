package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	defaultMaxAttempts    = 3
	completionMaxTokens   = 2500
	completionTemperature = 0.3
)

// Client wraps the OpenAI chat completion API with rate limiting and
// bounded retry.
type Client struct {
	api         *goopenai.Client
	model       string
	system      string
	limiter     *RateLimiter
	maxAttempts int

	// sleep and completeFn are replaceable in tests.
	sleep      func(ctx context.Context, d time.Duration) error
	completeFn func(ctx context.Context, prompt string) (string, error)
}

// Options configures a Client.
type Options struct {
	APIKey            string
	Model             string
	BaseURL           string
	SystemMessage     string
	RequestsPerMinute int
	MaxAttempts       int
}

// NewClient builds a Client from options.
func NewClient(opts Options) *Client {
	cfg := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	c := &Client{
		api:         goopenai.NewClientWithConfig(cfg),
		model:       opts.Model,
		system:      opts.SystemMessage,
		limiter:     NewRateLimiter(opts.RequestsPerMinute),
		maxAttempts: maxAttempts,
		sleep:       sleepCtx,
	}
	c.completeFn = c.complete
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// complete issues one chat completion call and returns the raw content.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: c.system},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// backoffDelay returns the wait before the next attempt; attempt counts
// from 0 for the wait after the first failure.
func backoffDelay(attempt int) time.Duration {
	seconds := math.Pow(2, float64(attempt)) + 0.1*float64(attempt)
	return time.Duration(seconds * float64(time.Second))
}

// Format submits a prompt and returns the fence-stripped response bytes
// once they parse as JSON and pass the supplied validation. Transport
// errors, parse failures and validation failures are all retried up to the
// attempt limit with exponential backoff; the last error is returned after
// exhaustion.
func (c *Client) Format(ctx context.Context, unit, prompt string, validate func([]byte) error) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoffDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		content, err := c.completeFn(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			log.Warn().Str("unit", unit).Int("attempt", attempt+1).Err(err).Msg("API error, retrying")
			continue
		}

		raw := []byte(StripFences(content))
		if !json.Valid(raw) {
			lastErr = fmt.Errorf("response is not valid JSON")
			log.Warn().Str("unit", unit).Int("attempt", attempt+1).Msg("JSON parsing error, retrying")
			continue
		}
		if validate != nil {
			if err := validate(raw); err != nil {
				lastErr = err
				log.Warn().Str("unit", unit).Int("attempt", attempt+1).Err(err).Msg("schema validation error, retrying")
				continue
			}
		}
		return raw, nil
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxAttempts, lastErr)
}
