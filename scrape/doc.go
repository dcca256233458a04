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


// Package scrape fetches web content for ingestion.
//
// The Scraper interface exposes two operations: ScrapeSingle fetches and
// extracts one page, and Crawl walks outward from a start URL following
// same-host links breadth-first, bounded by the Config's page and depth
// limits and its include/exclude URL patterns. Crawl reports each
// attempted page individually so a failed or timed-out page never aborts
// the rest of the walk.
//
// WebScraper is the production implementation, built on net/http and
// goquery. It extracts the page title and the text of the main
// content region (main/article, falling back to the whole document).
package scrape
