// Package fetcher collects candidate papers from the configured sources.
package fetcher

import (
	"context"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
)

// Fetcher is implemented by every paper source.
type Fetcher interface {
	// Name identifies the source in logs and in run metadata.
	Name() string
	// Fetch returns the source's current candidate papers.
	Fetch(ctx context.Context) ([]paper.Paper, error)
}
