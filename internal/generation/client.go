// Package generation sends grounding prompts to a generative model with
// bounded retry and a safe fallback so the chat surface always gets a reply.
package generation

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"newsrag/internal/domain"
)

const (
	maxRetries = 5
	baseDelay  = time.Second
	maxDelay   = 30 * time.Second
	maxJitter  = time.Second

	// OverloadFallback is returned when every retry was exhausted on a
	// retryable failure. Availability over strictness: the caller gets a
	// sentence, never an error, for upstream overload.
	OverloadFallback = "The news assistant is temporarily overloaded. Please try your question again in a moment."
)

// ModelCaller is the narrow boundary to the generative model API. Errors it
// returns are classified as retryable or fatal by the client.
type ModelCaller interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Client implements domain.Generator with bounded exponential backoff.
type Client struct {
	caller ModelCaller
	logger *zap.Logger

	// sleep and jitter are injectable for tests.
	sleep  func(time.Duration)
	jitter func() time.Duration
}

// NewClient wraps a model caller. logger may be nil.
func NewClient(caller ModelCaller, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		caller: caller,
		logger: logger,
		sleep:  time.Sleep,
		jitter: func() time.Duration { return time.Duration(rand.Int63n(int64(maxJitter))) },
	}
}

// Generate builds the grounding prompt and walks the retry state machine:
// up to maxRetries attempts, exponential backoff with jitter capped at
// maxDelay between retryable failures. Fatal failures propagate immediately;
// exhausting retries yields the fixed overload sentence with a nil error.
func (c *Client) Generate(ctx context.Context, query string, accepted []domain.RetrievalResult) (string, error) {
	prompt := BuildPrompt(query, accepted)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		answer, err := c.caller.GenerateText(ctx, prompt)
		if err == nil {
			return answer, nil
		}
		if !isRetryable(err) {
			return "", err
		}
		if attempt == maxRetries {
			c.logger.Warn("generation retries exhausted, returning overload fallback",
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return OverloadFallback, nil
		}
		delay := c.backoff(attempt)
		c.logger.Debug("generation attempt failed, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		c.sleep(delay)
	}
	return OverloadFallback, nil
}

// TestConnection sends a single liveness prompt without retries.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	return c.caller.GenerateText(ctx, "Reply with a single short sentence confirming you are reachable.")
}

// backoff computes min(baseDelay*2^(attempt-1) + jitter, maxDelay).
func (c *Client) backoff(attempt int) time.Duration {
	delay := baseDelay << (attempt - 1)
	delay += c.jitter()
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
