package generation

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/genai"
)

// isRetryable reports whether a model API failure is worth another attempt.
// Overload, rate limiting, server errors, and network faults are retryable;
// auth and validation failures are fatal and propagate to the caller.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatusCode(apiErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate limit", "resource_exhausted", "overloaded", "unavailable",
		"server error", "connection refused", "connection reset", "timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func retryableStatusCode(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
