// Copyright 2025 Agentic World, LLC (Sherin Thomas)
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

package scout

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"
	"golang.org/x/sync/errgroup"
)

// maxSitemapDepth bounds how many sitemap index levels are followed
const maxSitemapDepth = 2

// ParseSitemap returns the <loc> entries of a sitemap document and whether
// the document is a sitemap index (its entries are sitemaps, not pages).
func ParseSitemap(body []byte) ([]string, bool, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("%w: sitemap: %v", ErrContentParse, err)
	}
	isIndex := xmlquery.FindOne(doc, "//sitemapindex") != nil

	var locs []string
	for _, n := range xmlquery.Find(doc, "//loc") {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, isIndex, nil
}

// FetchSitemap downloads sitemapURL and returns the page URLs it lists,
// following nested sitemap indexes.
func (f *Fetcher) FetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	return f.fetchSitemap(ctx, sitemapURL, 0)
}

func (f *Fetcher) fetchSitemap(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	resp, err := f.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sitemap %s: status %d", sitemapURL, resp.StatusCode)
	}
	locs, isIndex, err := ParseSitemap(resp.Body)
	if err != nil || !isIndex {
		return locs, err
	}
	if depth >= maxSitemapDepth {
		return nil, nil
	}

	var pages []string
	for _, loc := range locs {
		nested, err := f.fetchSitemap(ctx, loc, depth+1)
		if err != nil {
			continue
		}
		pages = append(pages, nested...)
	}
	return pages, nil
}

// discoverSitemapURLs collects the page URLs of every sitemap declared in
// the robots.txt of origins. Sitemaps are fetched concurrently; a failing
// sitemap is logged and skipped.
func (cr *Crawler) discoverSitemapURLs(ctx context.Context, origins []string) []string {
	var sitemaps []string
	seen := make(map[string]bool)
	for _, origin := range origins {
		for _, sm := range cr.Session.Robots().Sitemaps(origin) {
			if !seen[sm] {
				seen[sm] = true
				sitemaps = append(sitemaps, sm)
			}
		}
	}
	if len(sitemaps) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		urls []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cr.cfg.Parallelism)
	for _, sm := range sitemaps {
		g.Go(func() error {
			pages, err := cr.Fetcher.FetchSitemap(gctx, sm)
			if err != nil {
				cr.logger.Warn().Err(err).Str("sitemap", sm).Msg("sitemap skipped")
				return nil
			}
			mu.Lock()
			urls = append(urls, pages...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	cr.logger.Info().
		Int("sitemaps", len(sitemaps)).
		Int("urls", len(urls)).
		Msg("sitemaps fetched")
	return urls
}
