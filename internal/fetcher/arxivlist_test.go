package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleListingPage = `<html><body>
<h3>New submissions for Wed, 15 Jan 2025</h3>
<dl>
  <dt>
    <a href="/abs/2501.01234" title="Abstract">arXiv:2501.01234</a>
  </dt>
  <dd>
    <div class="list-title">Title: Listing Paper One</div>
    <div class="list-authors">Authors: Alice Chen, Bob Liu</div>
    <p class="mathjax">Abstract: First listing abstract.</p>
  </dd>
  <dt>
    <a href="/abs/2501.05678" title="Abstract">arXiv:2501.05678</a>
  </dt>
  <dd>
    <div class="list-title">Title: Listing Paper Two</div>
    <div class="list-authors">Authors: Carol Wang</div>
    <p class="mathjax">Abstract: Second listing abstract.</p>
  </dd>
  <dt>
    <span>no abs link here</span>
  </dt>
  <dd>
    <div class="list-title">Title: Broken Entry</div>
  </dd>
</dl>
</body></html>`

func TestListingFetchParsesEntries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleListingPage))
	}))
	defer ts.Close()

	f := NewArxivListingFetcher([]ListingCategory{{Name: "cs.AI", URL: ts.URL}})
	f.client = ts.Client()

	papers, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(papers) != 2 {
		t.Fatalf("Expected 2 papers (broken entry skipped), got %d", len(papers))
	}

	p := papers[0]
	if p.Title != "Listing Paper One" {
		t.Errorf("Expected 'Listing Paper One', got %q", p.Title)
	}
	if p.Abstract != "First listing abstract." {
		t.Errorf("Unexpected abstract %q", p.Abstract)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Alice Chen" {
		t.Errorf("Unexpected authors %v", p.Authors)
	}
	if p.URL != "https://arxiv.org/abs/2501.01234" {
		t.Errorf("Expected absolute abs URL, got %q", p.URL)
	}
	if p.Source != "ArXiv Listing" {
		t.Errorf("Unexpected source %q", p.Source)
	}
	if p.Published.Year() != 2025 || p.Published.Month() != 1 || p.Published.Day() != 15 {
		t.Errorf("Expected published date from listing header, got %v", p.Published)
	}
}

func TestListingFetchBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	f := NewArxivListingFetcher([]ListingCategory{{Name: "cs.AI", URL: ts.URL}})
	f.client = ts.Client()

	_, err := f.Fetch(context.Background())
	if err == nil {
		t.Fatal("Expected error for 403 status")
	}
	if !strings.Contains(err.Error(), "category cs.AI") {
		t.Errorf("Expected error to name the category, got: %v", err)
	}
}
