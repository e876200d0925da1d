package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"newsrag/internal/domain"
)

type scriptedCaller struct {
	calls   int
	errs    []error
	answers []string
}

func (s *scriptedCaller) GenerateText(_ context.Context, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.answers) {
		return s.answers[i], nil
	}
	return "ok", nil
}

func newTestClient(caller ModelCaller) (*Client, *[]time.Duration) {
	c := NewClient(caller, nil)
	sleeps := &[]time.Duration{}
	c.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	c.jitter = func() time.Duration { return 0 }
	return c, sleeps
}

func TestGenerateSucceedsFirstTry(t *testing.T) {
	caller := &scriptedCaller{answers: []string{"a grounded answer"}}
	c, sleeps := newTestClient(caller)

	answer, err := c.Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "a grounded answer", answer)
	assert.Equal(t, 1, caller.calls)
	assert.Empty(t, *sleeps)
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	overload := genai.APIError{Code: 503, Message: "model overloaded"}
	caller := &scriptedCaller{
		errs:    []error{overload, overload, nil},
		answers: []string{"", "", "third time lucky"},
	}
	c, sleeps := newTestClient(caller)

	answer, err := c.Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", answer)
	assert.Equal(t, 3, caller.calls)
	require.Len(t, *sleeps, 2)
	assert.Equal(t, time.Second, (*sleeps)[0])
	assert.Equal(t, 2*time.Second, (*sleeps)[1])
}

func TestGenerateExhaustedRetriesReturnsOverloadFallback(t *testing.T) {
	overload := genai.APIError{Code: 503, Message: "model overloaded"}
	caller := &scriptedCaller{errs: []error{overload, overload, overload, overload, overload}}
	c, sleeps := newTestClient(caller)

	answer, err := c.Generate(context.Background(), "q", nil)
	require.NoError(t, err, "exhausting retries is not an error")
	assert.Equal(t, OverloadFallback, answer)
	assert.Equal(t, 5, caller.calls)
	require.Len(t, *sleeps, 4, "no sleep after the final attempt")
	for _, d := range *sleeps {
		assert.LessOrEqual(t, d, 30*time.Second)
	}
}

func TestGenerateBackoffIsCapped(t *testing.T) {
	caller := &scriptedCaller{}
	c, _ := newTestClient(caller)
	c.jitter = func() time.Duration { return maxJitter - 1 }

	assert.Equal(t, time.Second+maxJitter-1, c.backoff(1))
	assert.Equal(t, 16*time.Second+maxJitter-1, c.backoff(5))
	c.jitter = func() time.Duration { return 20 * time.Second }
	assert.Equal(t, 30*time.Second, c.backoff(5))
}

func TestGenerateFatalErrorPropagates(t *testing.T) {
	bad := genai.APIError{Code: 400, Message: "invalid request"}
	caller := &scriptedCaller{errs: []error{bad}}
	c, sleeps := newTestClient(caller)

	answer, err := c.Generate(context.Background(), "q", nil)
	require.Error(t, err)
	assert.Empty(t, answer)
	assert.Equal(t, 1, caller.calls, "fatal failures must not be retried")
	assert.Empty(t, *sleeps)
}

func TestGenerateRateLimitedByAPIError(t *testing.T) {
	limited := genai.APIError{Code: 429, Message: "rate limited"}
	caller := &scriptedCaller{
		errs:    []error{limited, nil},
		answers: []string{"", "answer"},
	}
	c, _ := newTestClient(caller)

	answer, err := c.Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
	assert.Equal(t, 2, caller.calls)
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api 503", genai.APIError{Code: 503}, true},
		{"api 429", genai.APIError{Code: 429}, true},
		{"api 400", genai.APIError{Code: 400}, false},
		{"api 401", genai.APIError{Code: 401}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"overloaded text", errors.New("the model is overloaded, try later"), true},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"plain", errors.New("no such model"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isRetryable(tc.err))
		})
	}
}

func TestBuildPromptIncludesChunksAndQuestion(t *testing.T) {
	accepted := []domain.RetrievalResult{
		{Payload: domain.ChunkPayload{Text: "First chunk body."}},
		{Payload: domain.ChunkPayload{Text: "Second chunk body."}},
	}
	prompt := BuildPrompt("what happened?", accepted)
	assert.Contains(t, prompt, "[1] First chunk body.")
	assert.Contains(t, prompt, "[2] Second chunk body.")
	assert.Contains(t, prompt, "Question: what happened?")
}

func TestTestConnectionDoesNotRetry(t *testing.T) {
	caller := &scriptedCaller{errs: []error{genai.APIError{Code: 503}}}
	c, _ := newTestClient(caller)

	_, err := c.TestConnection(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, caller.calls)
}
