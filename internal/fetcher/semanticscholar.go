package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
)

type semanticScholarResponse struct {
	Data []semanticScholarPaper `json:"data"`
}

type semanticScholarPaper struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	URL      string `json:"url"`
	Year     int    `json:"year"`
	Authors  []struct {
		Name string `json:"name"`
	} `json:"authors"`
	PublicationDate string `json:"publicationDate"`
}

// SemanticScholarFetcher queries the Semantic Scholar Graph API. The
// API key is optional; unauthenticated requests share a small global
// quota.
type SemanticScholarFetcher struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	topics      []string
	maxPerTopic int
}

func NewSemanticScholarFetcher(apiKey string, topics []string, maxPerTopic int) *SemanticScholarFetcher {
	return &SemanticScholarFetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     "https://api.semanticscholar.org/graph/v1/paper/search",
		apiKey:      apiKey,
		topics:      topics,
		maxPerTopic: maxPerTopic,
	}
}

func (f *SemanticScholarFetcher) Name() string {
	return "Semantic Scholar"
}

func (f *SemanticScholarFetcher) Fetch(ctx context.Context) ([]paper.Paper, error) {
	var papers []paper.Paper
	for _, topic := range f.topics {
		batch, err := f.fetchTopic(ctx, topic)
		if err != nil {
			return papers, fmt.Errorf("topic %q: %w", topic, err)
		}
		papers = append(papers, batch...)
	}
	return papers, nil
}

func (f *SemanticScholarFetcher) fetchTopic(ctx context.Context, topic string) ([]paper.Paper, error) {
	query := url.Values{}
	query.Set("query", topic)
	query.Set("limit", strconv.Itoa(f.maxPerTopic))
	query.Set("fields", "title,abstract,url,year,authors,publicationDate")
	query.Set("year", strconv.Itoa(time.Now().Year()))

	reqURL := fmt.Sprintf("%s?%s", f.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("semanticscholar: failed to create request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("x-api-key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("semanticscholar: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semanticscholar: unexpected status %d", resp.StatusCode)
	}

	var result semanticScholarResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("semanticscholar: failed to decode response: %w", err)
	}

	papers := make([]paper.Paper, 0, len(result.Data))
	for _, item := range result.Data {
		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				authors = append(authors, name)
			}
		}

		published := time.Date(item.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		if item.PublicationDate != "" {
			if parsed, err := time.Parse("2006-01-02", item.PublicationDate); err == nil {
				published = parsed
			}
		}

		papers = append(papers, paper.Paper{
			Title:     strings.TrimSpace(item.Title),
			Authors:   authors,
			Abstract:  strings.TrimSpace(item.Abstract),
			URL:       item.URL,
			Source:    f.Name(),
			Published: published,
		})
	}

	return papers, nil
}
