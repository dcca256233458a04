// Package mock provides a test double for the scrape.Scraper interface,
// serving canned pages or per-test injected behavior.
package mock
