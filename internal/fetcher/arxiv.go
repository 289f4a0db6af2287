package fetcher

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
)

// arXiv Atom feed XML structures

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink   `xml:"link"`
	Published string        `xml:"published"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
	Rel  string `xml:"rel,attr"`
}

// ArxivFetcher queries the arXiv search API once per configured topic.
// The API throttles aggressive clients, so consecutive topic queries are
// spaced out by topicDelay.
type ArxivFetcher struct {
	client      *http.Client
	baseURL     string
	topics      []string
	maxPerTopic int
	topicDelay  time.Duration
}

func NewArxivFetcher(topics []string, maxPerTopic int, topicDelay time.Duration) *ArxivFetcher {
	return &ArxivFetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     "http://export.arxiv.org/api/query",
		topics:      topics,
		maxPerTopic: maxPerTopic,
		topicDelay:  topicDelay,
	}
}

func (f *ArxivFetcher) Name() string {
	return "ArXiv"
}

func (f *ArxivFetcher) Fetch(ctx context.Context) ([]paper.Paper, error) {
	var papers []paper.Paper
	for i, topic := range f.topics {
		if i > 0 && f.topicDelay > 0 {
			select {
			case <-time.After(f.topicDelay):
			case <-ctx.Done():
				return papers, ctx.Err()
			}
		}

		batch, err := f.fetchTopic(ctx, topic)
		if err != nil {
			return papers, fmt.Errorf("topic %q: %w", topic, err)
		}
		papers = append(papers, batch...)
	}
	return papers, nil
}

func (f *ArxivFetcher) fetchTopic(ctx context.Context, topic string) ([]paper.Paper, error) {
	query := url.Values{}
	query.Set("search_query", fmt.Sprintf("all:%s", topic))
	query.Set("start", "0")
	query.Set("max_results", fmt.Sprintf("%d", f.maxPerTopic))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	reqURL := fmt.Sprintf("%s?%s", f.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to read response: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: failed to parse XML: %w", err)
	}

	papers := make([]paper.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		published, _ := time.Parse(time.RFC3339, entry.Published)

		authors := make([]string, len(entry.Authors))
		for i, a := range entry.Authors {
			authors[i] = strings.TrimSpace(a.Name)
		}

		var paperURL string
		for _, link := range entry.Links {
			if link.Rel == "alternate" || (link.Type == "text/html" && paperURL == "") {
				paperURL = link.Href
			}
		}
		if paperURL == "" && len(entry.Links) > 0 {
			paperURL = entry.Links[0].Href
		}

		papers = append(papers, paper.Paper{
			Title:     strings.TrimSpace(entry.Title),
			Authors:   authors,
			Abstract:  strings.TrimSpace(entry.Summary),
			URL:       paperURL,
			Source:    f.Name(),
			Published: published,
		})
	}

	return papers, nil
}
