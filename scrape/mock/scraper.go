package mock

import (
	"context"
	"fmt"

	"github.com/poiesic/substrate/scrape"
)

// MockScraper is a test double for scrape.Scraper.
// It allows custom behavior injection via function fields.
type MockScraper struct {
	// ScrapeSingleFunc is called by ScrapeSingle if set.
	ScrapeSingleFunc func(ctx context.Context, url string, config *scrape.Config) (*scrape.Page, error)

	// CrawlFunc is called by Crawl if set.
	CrawlFunc func(ctx context.Context, startURL string, config *scrape.Config) ([]scrape.Result, error)

	// Pages maps URLs to canned pages used by the default behavior.
	// A URL absent from the map fails with a not-found error.
	Pages map[string]*scrape.Page

	callCount int
}

// NewMockScraper creates a mock scraper with an empty page set.
func NewMockScraper() *MockScraper {
	return &MockScraper{Pages: map[string]*scrape.Page{}}
}

// ScrapeSingle returns the canned page for the URL.
func (m *MockScraper) ScrapeSingle(ctx context.Context, url string, config *scrape.Config) (*scrape.Page, error) {
	m.callCount++

	if m.ScrapeSingleFunc != nil {
		return m.ScrapeSingleFunc(ctx, url, config)
	}

	page, ok := m.Pages[url]
	if !ok {
		return nil, fmt.Errorf("mock scraper: no page for %s", url)
	}
	return page, nil
}

// Crawl returns one Result per canned page, the start URL first.
func (m *MockScraper) Crawl(ctx context.Context, startURL string, config *scrape.Config) ([]scrape.Result, error) {
	m.callCount++

	if m.CrawlFunc != nil {
		return m.CrawlFunc(ctx, startURL, config)
	}

	var results []scrape.Result
	if page, ok := m.Pages[startURL]; ok {
		results = append(results, scrape.Result{URL: startURL, Page: page})
	}
	for url, page := range m.Pages {
		if url == startURL {
			continue
		}
		if config != nil && len(results) >= config.MaxPages {
			break
		}
		results = append(results, scrape.Result{URL: url, Page: page})
	}
	return results, nil
}

// CallCount returns the number of times any method was called.
func (m *MockScraper) CallCount() int {
	return m.callCount
}

// Reset clears the call count and any injected behavior.
func (m *MockScraper) Reset() {
	m.callCount = 0
	m.ScrapeSingleFunc = nil
	m.CrawlFunc = nil
	m.Pages = map[string]*scrape.Page{}
}
