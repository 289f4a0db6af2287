package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleGraphResponse = `{
  "total": 2,
  "data": [
    {
      "title": "Graph Paper One",
      "abstract": "An abstract about graphs.",
      "url": "https://www.semanticscholar.org/paper/abc123",
      "year": 2025,
      "publicationDate": "2025-01-10",
      "authors": [{"name": "Erin Zhao"}, {"name": "Frank Mori"}]
    },
    {
      "title": "Graph Paper Two",
      "abstract": null,
      "url": "https://www.semanticscholar.org/paper/def456",
      "year": 2025,
      "publicationDate": "",
      "authors": []
    }
  ]
}`

func TestSemanticScholarFetch(t *testing.T) {
	var gotHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("x-api-key")
		if q := r.URL.Query().Get("query"); q != "LLM agents" {
			t.Errorf("Unexpected query param %q", q)
		}
		if limit := r.URL.Query().Get("limit"); limit != "2" {
			t.Errorf("Unexpected limit %q", limit)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleGraphResponse))
	}))
	defer ts.Close()

	f := NewSemanticScholarFetcher("secret-key", []string{"LLM agents"}, 2)
	f.client = ts.Client()
	f.baseURL = ts.URL

	papers, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if gotHeader != "secret-key" {
		t.Errorf("Expected x-api-key header, got %q", gotHeader)
	}
	if len(papers) != 2 {
		t.Fatalf("Expected 2 papers, got %d", len(papers))
	}

	p := papers[0]
	if p.Title != "Graph Paper One" {
		t.Errorf("Unexpected title %q", p.Title)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Erin Zhao" {
		t.Errorf("Unexpected authors %v", p.Authors)
	}
	if p.Source != "Semantic Scholar" {
		t.Errorf("Unexpected source %q", p.Source)
	}
	if p.Published.Day() != 10 {
		t.Errorf("Expected publicationDate to win, got %v", p.Published)
	}

	// Missing publicationDate falls back to the year.
	if papers[1].Published.Year() != 2025 || papers[1].Published.Month() != time.January {
		t.Errorf("Expected year fallback, got %v", papers[1].Published)
	}
}

func TestSemanticScholarNoKeyHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["X-Api-Key"]; ok {
			t.Error("Expected no x-api-key header without a configured key")
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer ts.Close()

	f := NewSemanticScholarFetcher("", []string{"test"}, 1)
	f.client = ts.Client()
	f.baseURL = ts.URL

	papers, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("Expected 0 papers, got %d", len(papers))
	}
}

func TestSemanticScholarBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	f := NewSemanticScholarFetcher("", []string{"test"}, 1)
	f.client = ts.Client()
	f.baseURL = ts.URL

	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("Expected error for 429 status")
	}
}
