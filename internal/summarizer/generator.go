package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
)

// Cause classifies why a generation attempt failed.
type Cause string

const (
	CauseRateLimited       Cause = "rate_limited"
	CauseTimeout           Cause = "timeout"
	CauseBackendRefused    Cause = "backend_refused"
	CauseMalformedResponse Cause = "malformed_response"
)

// GenerationError reports a failed generation, carrying the classified
// cause and how many backend calls were spent.
type GenerationError struct {
	Cause    Cause
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("summary generation failed (%s) after %d attempts: %v", e.Cause, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

const maxBackoff = 30 * time.Second

// Generator produces structured summaries with bounded retries.
// Retryable failures back off exponentially between attempts;
// non-retryable ones fail immediately.
type Generator struct {
	backend     Backend
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

func NewGenerator(backend Backend, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		backend:     backend,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Generate builds the report for one paper. An incomplete report,
// one missing required sections, consumes a retry like a failure does,
// but on the last attempt the incomplete report is returned anyway
// with its Missing list filled so that the caller still has something
// to publish.
func (g *Generator) Generate(ctx context.Context, p paper.Paper) (PaperSummary, error) {
	prompt := BuildPrompt(p)

	var lastErr error
	var lastCause Cause

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		content, err := g.backend.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			cause, retryable := classify(err)
			lastErr, lastCause = err, cause

			if !retryable {
				return PaperSummary{}, &GenerationError{Cause: cause, Attempts: attempt, Err: err}
			}
			g.logger.Warn("summary attempt failed",
				zap.String("title", p.Title),
				zap.String("cause", string(cause)),
				zap.Int("attempt", attempt),
				zap.Error(err))

			if attempt == g.maxAttempts {
				break
			}
			if err := g.sleep(ctx, attempt); err != nil {
				return PaperSummary{}, &GenerationError{Cause: cause, Attempts: attempt, Err: err}
			}
			continue
		}

		if strings.TrimSpace(content) == "" {
			lastErr = errors.New("backend returned empty content")
			lastCause = CauseMalformedResponse
			if attempt == g.maxAttempts {
				break
			}
			if err := g.sleep(ctx, attempt); err != nil {
				return PaperSummary{}, &GenerationError{Cause: lastCause, Attempts: attempt, Err: err}
			}
			continue
		}

		cleaned := ExtractCleanSummary(content)
		missing := ValidateSummary(cleaned)
		if len(missing) > 0 && attempt < g.maxAttempts {
			g.logger.Warn("incomplete report, retrying",
				zap.String("title", p.Title),
				zap.Strings("missing", missing),
				zap.Int("attempt", attempt))
			if err := g.sleep(ctx, attempt); err != nil {
				return PaperSummary{}, &GenerationError{Cause: CauseMalformedResponse, Attempts: attempt, Err: err}
			}
			continue
		}

		return PaperSummary{
			Paper:   p,
			Raw:     cleaned,
			Summary: ParseSummary(cleaned),
			Missing: missing,
		}, nil
	}

	return PaperSummary{}, &GenerationError{Cause: lastCause, Attempts: g.maxAttempts, Err: lastErr}
}

func (g *Generator) sleep(ctx context.Context, attempt int) error {
	delay := g.baseDelay * time.Duration(1<<(attempt-1))
	if delay > maxBackoff {
		delay = maxBackoff
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classify maps a backend error to a cause and whether another attempt
// could succeed.
func classify(err error) (Cause, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return CauseRateLimited, true
		case apiErr.StatusCode >= 500:
			return CauseBackendRefused, true
		default:
			// Other 4xx responses will not get better on retry.
			return CauseBackendRefused, false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTimeout, true
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return CauseTimeout, true
	}
	if strings.Contains(errStr, "decode") || strings.Contains(errStr, "no choices") {
		return CauseMalformedResponse, true
	}

	return CauseBackendRefused, true
}
