package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>  Sample Paper Title  </title>
    <summary>  This is the abstract of the paper.  </summary>
    <author><name> Alice </name></author>
    <author><name> Bob </name></author>
    <link href="http://arxiv.org/abs/1234.5678" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/1234.5678" title="pdf" type="application/pdf"/>
    <published>2025-01-15T00:00:00Z</published>
  </entry>
  <entry>
    <title>Another Paper</title>
    <summary>Second abstract.</summary>
    <author><name>Charlie</name></author>
    <link href="http://arxiv.org/abs/2345.6789" rel="alternate" type="text/html"/>
    <published>2025-01-14T00:00:00Z</published>
  </entry>
</feed>`

func newTestArxivFetcher(ts *httptest.Server, topics []string, maxPerTopic int) *ArxivFetcher {
	return &ArxivFetcher{
		client:      ts.Client(),
		baseURL:     ts.URL,
		topics:      topics,
		maxPerTopic: maxPerTopic,
	}
}

func TestArxivFetchParsesAtomFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sampleAtomFeed))
	}))
	defer ts.Close()

	f := newTestArxivFetcher(ts, []string{"machine learning"}, 10)

	papers, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(papers) != 2 {
		t.Fatalf("Expected 2 papers, got %d", len(papers))
	}

	p := papers[0]
	if p.Title != "Sample Paper Title" {
		t.Errorf("Expected trimmed title 'Sample Paper Title', got %q", p.Title)
	}
	if p.Abstract != "This is the abstract of the paper." {
		t.Errorf("Expected trimmed abstract, got %q", p.Abstract)
	}
	if len(p.Authors) != 2 {
		t.Fatalf("Expected 2 authors, got %d", len(p.Authors))
	}
	if p.Authors[0] != "Alice" {
		t.Errorf("Expected author 'Alice', got %q", p.Authors[0])
	}
	if p.URL != "http://arxiv.org/abs/1234.5678" {
		t.Errorf("Expected alternate link URL, got %q", p.URL)
	}
	if p.Source != "ArXiv" {
		t.Errorf("Expected source 'ArXiv', got %q", p.Source)
	}
	if p.Published.Year() != 2025 || p.Published.Month() != 1 || p.Published.Day() != 15 {
		t.Errorf("Unexpected published date: %v", p.Published)
	}
}

func TestArxivFetchQueryParameters(t *testing.T) {
	var receivedQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer ts.Close()

	f := newTestArxivFetcher(ts, []string{"quantum computing"}, 5)

	if _, err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if receivedQuery == "" {
		t.Fatal("No query parameters sent")
	}
	for _, want := range []string{"search_query=all%3Aquantum+computing", "max_results=5", "sortBy=submittedDate", "sortOrder=descending"} {
		if !strings.Contains(receivedQuery, want) {
			t.Errorf("Expected query to contain %q, got %q", want, receivedQuery)
		}
	}
}

func TestArxivFetchMultipleTopics(t *testing.T) {
	var queries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("search_query"))
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sampleAtomFeed))
	}))
	defer ts.Close()

	f := newTestArxivFetcher(ts, []string{"quantum computing", "artificial intelligence"}, 5)

	papers, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(papers) != 4 {
		t.Fatalf("Expected 4 papers across 2 topics, got %d", len(papers))
	}
	if len(queries) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(queries))
	}
	if queries[0] != "all:quantum computing" || queries[1] != "all:artificial intelligence" {
		t.Errorf("Unexpected queries: %v", queries)
	}
}

func TestArxivFetchBadStatusCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	f := newTestArxivFetcher(ts, []string{"test"}, 5)

	_, err := f.Fetch(context.Background())
	if err == nil {
		t.Fatal("Expected error for 500 status code")
	}
	if !strings.Contains(err.Error(), "unexpected status 500") {
		t.Errorf("Expected 'unexpected status 500' error, got: %v", err)
	}
}

func TestArxivFetchInvalidXML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte("this is not xml"))
	}))
	defer ts.Close()

	f := newTestArxivFetcher(ts, []string{"test"}, 5)

	_, err := f.Fetch(context.Background())
	if err == nil {
		t.Fatal("Expected error for invalid XML")
	}
	if !strings.Contains(err.Error(), "failed to parse XML") {
		t.Errorf("Expected 'failed to parse XML' error, got: %v", err)
	}
}

func TestArxivFetchEmptyFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer ts.Close()

	f := newTestArxivFetcher(ts, []string{"test"}, 5)

	papers, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("Expected 0 papers, got %d", len(papers))
	}
}
