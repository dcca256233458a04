// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// WebScraper implements Scraper on net/http and goquery.
type WebScraper struct {
	client *http.Client
	logger *slog.Logger
}

// WebScraperOption is a functional option for configuring a WebScraper.
type WebScraperOption func(*WebScraper)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) WebScraperOption {
	return func(s *WebScraper) {
		s.client = client
	}
}

// WithLogger sets the logger used by the scraper.
func WithLogger(logger *slog.Logger) WebScraperOption {
	return func(s *WebScraper) {
		s.logger = logger
	}
}

// NewWebScraper creates a scraper with a default HTTP client. Per-fetch
// timeouts come from the Config, not the client.
func NewWebScraper(opts ...WebScraperOption) *WebScraper {
	s := &WebScraper{
		client: &http.Client{},
		logger: slog.Default().With("component", "web-scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScrapeSingle fetches one URL and extracts its title and content.
func (s *WebScraper) ScrapeSingle(ctx context.Context, pageURL string, config *Config) (*Page, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	parsed, err := parseURL(pageURL)
	if err != nil {
		return nil, err
	}
	page, _, err := s.fetch(ctx, parsed, config)
	return page, err
}

// Crawl walks same-host links breadth-first from startURL.
func (s *WebScraper) Crawl(ctx context.Context, startURL string, config *Config) ([]Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	start, err := parseURL(startURL)
	if err != nil {
		return nil, err
	}

	include, _ := compilePatterns(config.IncludePatterns)
	exclude, _ := compilePatterns(config.ExcludePatterns)

	type item struct {
		url   *url.URL
		depth int
	}

	queue := []item{{url: start, depth: 0}}
	visited := map[string]bool{canonical(start): true}
	results := make([]Result, 0, config.MaxPages)

	for len(queue) > 0 && len(results) < config.MaxPages {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		next := queue[0]
		queue = queue[1:]

		if len(results) > 0 && config.Delay > 0 {
			if err := sleep(ctx, config.Delay); err != nil {
				return results, err
			}
		}

		page, links, err := s.fetch(ctx, next.url, config)
		if err != nil {
			s.logger.Warn("page fetch failed", "url", next.url.String(), "err", err)
			results = append(results, Result{URL: next.url.String(), Err: err})
			continue
		}
		results = append(results, Result{URL: next.url.String(), Page: page})

		if next.depth >= config.MaxDepth {
			continue
		}
		for _, link := range links {
			if link.Host != start.Host {
				continue
			}
			key := canonical(link)
			if visited[key] {
				continue
			}
			if !allowed(link.String(), include, exclude) {
				continue
			}
			visited[key] = true
			queue = append(queue, item{url: link, depth: next.depth + 1})
		}
	}

	s.logger.Info("crawl finished",
		"start", startURL,
		"pages", len(results),
		"discovered", len(visited))
	return results, nil
}

// fetch retrieves one page and returns the extracted page plus the
// resolved links found in it.
func (s *WebScraper) fetch(ctx context.Context, pageURL *url.URL, config *Config) (*Page, []*url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("%w: %d for %s", ErrBadStatus, resp.StatusCode, pageURL)
	}
	if resp.ContentLength > 0 && resp.ContentLength > int64(config.MaxBodyBytes) {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrPageTooLarge, resp.ContentLength)
	}

	limited := io.LimitedReader{R: resp.Body, N: int64(config.MaxBodyBytes)}
	body, err := io.ReadAll(&limited)
	if err != nil {
		return nil, nil, err
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	metadata := map[string]string{"content_type": contentType}

	if strings.Contains(contentType, "text/plain") {
		text := string(body)
		return &Page{
			URL:      pageURL.String(),
			Title:    guessTitle(text),
			Content:  text,
			Metadata: metadata,
		}, nil, nil
	}
	if !strings.Contains(contentType, "text/html") && contentType != "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	content := extractMainText(doc)
	links := extractLinks(doc, pageURL)

	return &Page{
		URL:      pageURL.String(),
		Title:    title,
		Content:  content,
		Metadata: metadata,
	}, links, nil
}

// extractMainText pulls the readable text out of a document: headings,
// paragraphs and list items under main/article, falling back to the
// whole document when no such region exists.
func extractMainText(doc *goquery.Document) string {
	sel := doc.Find("main, article")
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	var parts []string
	sel.Find("h1,h2,h3,h4,p,li,pre").Each(func(_ int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if len(t) > 0 {
			parts = append(parts, t)
		}
	})
	return cleanWhitespace(strings.Join(parts, "\n\n"))
}

func extractLinks(doc *goquery.Document, base *url.URL) []*url.URL {
	var links []*url.URL
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		links = append(links, resolved)
	})
	return links
}

func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

func allowed(link string, include, exclude []*regexp.Regexp) bool {
	if matchAny(exclude, link) {
		return false
	}
	if len(include) > 0 && !matchAny(include, link) {
		return false
	}
	return true
}

func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return strings.TrimSuffix(c.String(), "/")
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var multiNewline = regexp.MustCompile(`\n{3,}`)

func cleanWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return multiNewline.ReplaceAllString(s, "\n\n")
}

func guessTitle(text string) string {
	line := strings.SplitN(strings.TrimSpace(text), "\n", 2)[0]
	if len(line) > 120 {
		line = line[:120]
	}
	return strings.TrimSpace(line)
}
