package openai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(completeFn func(ctx context.Context, prompt string) (string, error)) *Client {
	c := NewClient(Options{APIKey: "test", Model: "gpt-4"})
	c.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	c.completeFn = completeFn
	return c
}

func TestFormat_SucceedsFirstAttempt(t *testing.T) {
	c := newTestClient(func(ctx context.Context, prompt string) (string, error) {
		return "```json\n[{\"ok\": true}]\n```", nil
	})

	out, err := c.Format(context.Background(), "TC-1", "prompt", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"ok": true}]`, string(out))
}

func TestFormat_RetriesMalformedJSON(t *testing.T) {
	calls := 0
	c := newTestClient(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls < 3 {
			return "I'm sorry, here is the JSON you asked for:", nil
		}
		return `[]`, nil
	})

	out, err := c.Format(context.Background(), "TC-1", "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
	assert.Equal(t, 3, calls)
}

func TestFormat_ExhaustsAttempts(t *testing.T) {
	calls := 0
	c := newTestClient(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "not json", nil
	})

	_, err := c.Format(context.Background(), "TC-1", "prompt", nil)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestFormat_RetriesValidationFailure(t *testing.T) {
	c := newTestClient(func(ctx context.Context, prompt string) (string, error) {
		return `{"wrong": "shape"}`, nil
	})

	validations := 0
	_, err := c.Format(context.Background(), "TC-1", "prompt", func(data []byte) error {
		validations++
		return fmt.Errorf("document is not an array")
	})
	require.Error(t, err)
	assert.Equal(t, 3, validations)
	assert.Contains(t, err.Error(), "document is not an array")
}

func TestFormat_ValidResponseSkipsRemainingAttempts(t *testing.T) {
	calls := 0
	c := newTestClient(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return `[{"type": "Test Case"}]`, nil
	})

	_, err := c.Format(context.Background(), "TC-1", "prompt", func(data []byte) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestFormat_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(func(ctx context.Context, prompt string) (string, error) {
		cancel()
		return "", ctx.Err()
	})

	_, err := c.Format(ctx, "TC-1", "prompt", nil)
	require.Error(t, err)
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 1*time.Second, backoffDelay(0))
	assert.InDelta(t, 2.1, backoffDelay(1).Seconds(), 0.001)
	assert.InDelta(t, 4.2, backoffDelay(2).Seconds(), 0.001)
}
