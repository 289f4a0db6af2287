package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
)

// SpringerFetcher reads journal RSS feeds. Feed entries carry HTML in
// the description, which is stripped before use.
type SpringerFetcher struct {
	client     *http.Client
	feeds      []string
	maxPerFeed int
}

func NewSpringerFetcher(feeds []string, maxPerFeed int) *SpringerFetcher {
	return &SpringerFetcher{
		client:     &http.Client{Timeout: 30 * time.Second},
		feeds:      feeds,
		maxPerFeed: maxPerFeed,
	}
}

func (f *SpringerFetcher) Name() string {
	return "Springer"
}

func (f *SpringerFetcher) Fetch(ctx context.Context) ([]paper.Paper, error) {
	var papers []paper.Paper
	for _, feedURL := range f.feeds {
		batch, err := f.fetchFeed(ctx, feedURL)
		if err != nil {
			return papers, fmt.Errorf("feed %s: %w", feedURL, err)
		}
		papers = append(papers, batch...)
	}
	return papers, nil
}

func (f *SpringerFetcher) fetchFeed(ctx context.Context, feedURL string) ([]paper.Paper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("springer: failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("springer: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("springer: unexpected status %d", resp.StatusCode)
	}

	fp := gofeed.NewParser()
	feed, err := fp.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("springer: RSS parse failed: %w", err)
	}

	papers := make([]paper.Paper, 0, f.maxPerFeed)
	for _, item := range feed.Items {
		if len(papers) >= f.maxPerFeed {
			break
		}

		var authors []string
		for _, a := range item.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				authors = append(authors, name)
			}
		}

		published := time.Now().UTC()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}

		papers = append(papers, paper.Paper{
			Title:     strings.TrimSpace(item.Title),
			Authors:   authors,
			Abstract:  stripHTML(item.Description),
			URL:       item.Link,
			Source:    f.Name(),
			Published: published,
		})
	}

	return papers, nil
}

var htmlTagExpr = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagExpr.ReplaceAllString(s, ""))
}
