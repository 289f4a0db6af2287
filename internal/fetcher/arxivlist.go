package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
)

const arxivBaseURL = "https://arxiv.org"

var listDateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ListingCategory names one arXiv listing page to scrape.
type ListingCategory struct {
	Name string
	URL  string
}

// ArxivListingFetcher scrapes arXiv "new submissions" listing pages.
// Listing pages surface papers hours before they appear in the search
// API, which is why this source exists alongside ArxivFetcher.
type ArxivListingFetcher struct {
	client     *http.Client
	categories []ListingCategory
}

func NewArxivListingFetcher(categories []ListingCategory) *ArxivListingFetcher {
	return &ArxivListingFetcher{
		client:     &http.Client{Timeout: 20 * time.Second},
		categories: categories,
	}
}

func (f *ArxivListingFetcher) Name() string {
	return "ArXiv Listing"
}

func (f *ArxivListingFetcher) Fetch(ctx context.Context) ([]paper.Paper, error) {
	var papers []paper.Paper
	for _, cat := range f.categories {
		doc, err := f.fetchDocument(ctx, cat.URL)
		if err != nil {
			return papers, fmt.Errorf("category %s: %w", cat.Name, err)
		}
		papers = append(papers, f.extractPapers(doc)...)
	}
	return papers, nil
}

func (f *ArxivListingFetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "paperbot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractPapers walks the dt/dd pairs of a listing page. Malformed
// entries without an /abs/ link are skipped.
func (f *ArxivListingFetcher) extractPapers(doc *goquery.Document) []paper.Paper {
	var papers []paper.Paper

	doc.Find("dl > dt").Each(func(i int, dt *goquery.Selection) {
		dd := dt.Next()

		link := dt.Find("a[href*=\"/abs/\"]").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = arxivBaseURL + href
		}

		title := strings.TrimSpace(dd.Find(".list-title").First().Text())
		title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

		abstract := dd.Find(".mathjax").First().Text()
		abstract = strings.TrimSpace(strings.TrimPrefix(abstract, "Abstract:"))

		authorText := strings.TrimSpace(dd.Find(".list-authors").First().Text())
		authorText = strings.TrimPrefix(authorText, "Authors:")
		var authors []string
		for _, name := range strings.Split(authorText, ",") {
			if name = strings.TrimSpace(name); name != "" {
				authors = append(authors, name)
			}
		}

		published := time.Now().UTC()
		dateText := strings.TrimSpace(doc.Find("h3").First().Text())
		if match := listDateExpr.FindString(dateText); match != "" {
			if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
				published = parsed
			}
		}

		papers = append(papers, paper.Paper{
			Title:     title,
			Authors:   authors,
			Abstract:  abstract,
			URL:       href,
			Source:    f.Name(),
			Published: published,
		})
	})

	return papers
}
