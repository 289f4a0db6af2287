// Package retry provides exponential backoff for webhook deliveries.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig returns the retry policy used for webhook pushes.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
}

// WithBackoff executes operation with exponential backoff. Delays grow
// as BaseDelay*2^attempt plus a random jitter of up to BaseDelay.
func WithBackoff(ctx context.Context, config Config, operation func(context.Context) error) error {
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}

		if !isRetryableError(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt == config.MaxRetries {
			return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, err)
		}

		baseDelay := config.BaseDelay * time.Duration(1<<attempt)
		var jitter time.Duration
		if config.BaseDelay > 0 {
			jitter = time.Duration(rand.Int63n(int64(config.BaseDelay)))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay + jitter):
		}
	}

	return nil // unreachable
}

// isRetryableError classifies webhook delivery failures. Transport
// errors, bot rate limiting, and 5xx responses are retryable; other
// client errors are not.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "network") {
		return true
	}

	// Webhook bots report rate limiting both as HTTP 429 and as an
	// in-band error code in a 200 response body.
	if strings.Contains(errStr, "rate limited") ||
		strings.Contains(errStr, "status 429") {
		return true
	}

	if strings.Contains(errStr, "status 5") {
		return true
	}
	if strings.Contains(errStr, "status 4") {
		return false
	}

	// Unknown error shapes get the benefit of the doubt.
	return true
}

// HTTPStatusRetryable checks if an HTTP status code is retryable.
func HTTPStatusRetryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
