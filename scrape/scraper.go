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
	"context"
	"fmt"
	"regexp"
	"time"
)

// Page is one fetched and extracted web page.
type Page struct {
	// URL is the final URL the content was fetched from.
	URL string

	// Title is the page title, or a first-line guess for plain text.
	Title string

	// Content is the extracted main text of the page.
	Content string

	// Metadata carries transport-level details such as the content type.
	Metadata map[string]string
}

// Result is the outcome of one page attempt during a crawl. Exactly one
// of Page or Err is set.
type Result struct {
	URL  string
	Page *Page
	Err  error
}

// Scraper fetches web content.
type Scraper interface {
	// ScrapeSingle fetches one URL and extracts its title and content.
	ScrapeSingle(ctx context.Context, url string, config *Config) (*Page, error)

	// Crawl walks same-host links breadth-first from startURL, bounded
	// by config. It returns one Result per attempted page, in the order
	// the pages were attempted. A page-level failure is reported in its
	// Result; only a cancelled context or an unusable start URL returns
	// an error.
	Crawl(ctx context.Context, startURL string, config *Config) ([]Result, error)
}

// Config bounds a scrape or crawl.
type Config struct {
	// MaxPages caps the number of pages attempted during a crawl.
	MaxPages int

	// MaxDepth caps how many links deep the crawl follows from the
	// start URL. Depth 0 fetches only the start URL.
	MaxDepth int

	// IncludePatterns, when non-empty, restricts followed links to URLs
	// matching at least one of these regular expressions. The start URL
	// is always attempted.
	IncludePatterns []string

	// ExcludePatterns drops any followed link matching one of these
	// regular expressions.
	ExcludePatterns []string

	// Delay is the politeness pause between consecutive requests.
	Delay time.Duration

	// Timeout bounds a single page fetch. A timed-out page is a page
	// failure, not a crawl failure.
	Timeout time.Duration

	// MaxBodyBytes caps the response body size read per page.
	MaxBodyBytes int
}

// DefaultConfig returns crawl bounds suitable for small documentation
// sites.
func DefaultConfig() *Config {
	return &Config{
		MaxPages:     50,
		MaxDepth:     2,
		Delay:        200 * time.Millisecond,
		Timeout:      20 * time.Second,
		MaxBodyBytes: 1500000,
	}
}

// Validate checks the configuration bounds and pattern syntax.
func (c *Config) Validate() error {
	if c.MaxPages < 1 {
		return fmt.Errorf("scrape config: MaxPages must be at least 1")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("scrape config: MaxDepth must not be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("scrape config: Delay must not be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("scrape config: Timeout must be positive")
	}
	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("scrape config: MaxBodyBytes must be at least 1")
	}
	if _, err := compilePatterns(c.IncludePatterns); err != nil {
		return fmt.Errorf("scrape config: include pattern: %w", err)
	}
	if _, err := compilePatterns(c.ExcludePatterns); err != nil {
		return fmt.Errorf("scrape config: exclude pattern: %w", err)
	}
	return nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
