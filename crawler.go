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
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CrawlerConfig configures the reference driver around a Session
type CrawlerConfig struct {
	// Parallelism is the number of concurrent fetches (default: 4)
	Parallelism int
	// QueueSize is the worker pool queue length (default: 2*Parallelism)
	QueueSize int
	// MaxPages stops scheduling after this many fetches; zero means unlimited
	MaxPages int
	// MaxBodySize limits page bodies in bytes (default: 10MB)
	MaxBodySize int
	// RequestTimeout bounds a single fetch including redirects (default: 30s)
	RequestTimeout time.Duration
	// LimitRules pace requests per domain
	LimitRules []*LimitRule
	// UseSitemaps seeds the frontier from sitemaps declared in robots.txt
	UseSitemaps bool
	// TraceHTTP logs connect and first byte timings of every fetch
	TraceHTTP bool
}

// PageResult describes one fetched page after it went through the session
type PageResult struct {
	URL        string
	FinalURL   string
	StatusCode int
	// Links are the URLs the page added to the frontier
	Links []string
	Error error
}

// OnPageCrawledFunc is called after each fetch, successful or not
type OnPageCrawledFunc func(*PageResult)

// Crawler is a minimal frontier and fetch loop around a Session: a FIFO
// queue of admitted URLs drained by a worker pool. Each fetched page goes
// through Session.ProcessPage and the returned links are queued.
type Crawler struct {
	// Session owns all crawl decisions and statistics
	Session *Session
	// Fetcher downloads pages
	Fetcher *Fetcher

	cfg           CrawlerConfig
	logger        zerolog.Logger
	onPageCrawled OnPageCrawledFunc

	ctx    context.Context
	cancel context.CancelFunc
	pool   *WorkerPool
	done   chan struct{}

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []string
	pending   int
	scheduled int
	fetched   int
	started   bool
	err       error
}

// NewCrawler creates a driver for session. cfg may be nil.
func NewCrawler(session *Session, cfg *CrawlerConfig) (*Crawler, error) {
	c := CrawlerConfig{}
	if cfg != nil {
		c = *cfg
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 2 * c.Parallelism
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}

	sc := session.Config()
	fetcher := NewFetcher(sc.HTTPClient, sc.UserAgent)
	fetcher.MaxBodySize = c.MaxBodySize
	fetcher.Trace = c.TraceHTTP
	if err := fetcher.Limits(c.LimitRules); err != nil {
		return nil, err
	}

	cr := &Crawler{
		Session: session,
		Fetcher: fetcher,
		cfg:     c,
		logger:  session.logger,
		done:    make(chan struct{}),
	}
	cr.cond = sync.NewCond(&cr.mu)
	return cr, nil
}

// SetOnPageCrawled registers a callback invoked after every fetch
func (cr *Crawler) SetOnPageCrawled(f OnPageCrawledFunc) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.onPageCrawled = f
}

// Start admits the seeds and starts crawling in the background. It returns
// an error when none of the seeds is admitted.
func (cr *Crawler) Start(ctx context.Context, seeds ...string) error {
	cr.mu.Lock()
	if cr.started {
		cr.mu.Unlock()
		return errors.New("crawler already started")
	}
	cr.started = true
	cr.mu.Unlock()

	cr.ctx, cr.cancel = context.WithCancel(ctx)

	var admitted []string
	var origins []string
	seenOrigin := make(map[string]bool)
	for _, seed := range seeds {
		if c, err := Canonicalize(seed, ""); err == nil && !seenOrigin[c.Origin()] {
			seenOrigin[c.Origin()] = true
			origins = append(origins, c.Origin())
		}
		if u, ok := cr.Session.AddSeed(seed); ok {
			admitted = append(admitted, u)
		} else {
			cr.logger.Warn().Str("url", seed).Msg("seed rejected")
		}
	}

	if cr.cfg.UseSitemaps {
		for _, loc := range cr.discoverSitemapURLs(cr.ctx, origins) {
			if u, ok := cr.Session.AddSeed(loc); ok {
				admitted = append(admitted, u)
			}
		}
	}

	if len(admitted) == 0 {
		cr.cancel()
		close(cr.done)
		return errors.New("no seed URL was admitted")
	}

	cr.logger.Info().
		Int("seeds", len(admitted)).
		Int("workers", cr.cfg.Parallelism).
		Msg("crawl started")

	cr.pool = NewWorkerPool(cr.ctx, cr.cfg.Parallelism, cr.cfg.QueueSize, cr.visit, cr.logger)
	cr.enqueue(admitted...)

	go func() {
		<-cr.ctx.Done()
		cr.mu.Lock()
		cr.cond.Broadcast()
		cr.mu.Unlock()
	}()
	go cr.dispatch()
	return nil
}

// Stop cancels the crawl. In-flight fetches are aborted.
func (cr *Crawler) Stop() {
	if cr.cancel != nil {
		cr.cancel()
	}
}

// Wait blocks until the frontier is drained, the page budget is spent or
// the crawl is stopped. It returns the session invariant violation that
// aborted the crawl, if any.
func (cr *Crawler) Wait() error {
	<-cr.done

	cr.mu.Lock()
	err := cr.err
	fetched := cr.fetched
	cr.mu.Unlock()

	snap := cr.Session.Snapshot()
	event := cr.logger.Info().
		Int("fetched", fetched).
		Int("unique_pages", snap.UniquePages()).
		Int("frontier", snap.FrontierCount)
	if cr.pool != nil && cr.pool.Panics() > 0 {
		event = event.Int("handler_panics", cr.pool.Panics())
	}
	event.Msg("crawl finished")
	return err
}

// Fetched returns the number of completed fetches
func (cr *Crawler) Fetched() int {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.fetched
}

func (cr *Crawler) dispatch() {
	defer close(cr.done)
	defer cr.cancel()
	defer cr.pool.Close()

	for {
		u, ok := cr.next()
		if !ok {
			return
		}
		if err := cr.pool.Submit(u); err != nil {
			cr.finish()
			return
		}
	}
}

// enqueue appends URLs to the FIFO frontier, dropping those beyond the
// page budget
func (cr *Crawler) enqueue(urls ...string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	for _, u := range urls {
		if cr.cfg.MaxPages > 0 && cr.scheduled >= cr.cfg.MaxPages {
			cr.logger.Debug().Err(ErrMaxPages).Str("url", u).Msg("url not scheduled")
			continue
		}
		cr.scheduled++
		cr.pending++
		cr.queue = append(cr.queue, u)
	}
	cr.cond.Broadcast()
}

// next pops the oldest queued URL. It returns false once nothing is queued
// or in flight, or the crawl was cancelled.
func (cr *Crawler) next() (string, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	for len(cr.queue) == 0 && cr.pending > 0 && cr.ctx.Err() == nil {
		cr.cond.Wait()
	}
	if len(cr.queue) == 0 || cr.ctx.Err() != nil {
		return "", false
	}
	u := cr.queue[0]
	cr.queue = cr.queue[1:]
	return u, true
}

func (cr *Crawler) finish() {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.pending--
	if cr.pending <= 0 {
		cr.cond.Broadcast()
	}
}

func (cr *Crawler) visit(ctx context.Context, rawURL string) {
	defer cr.finish()

	// the frontier re-checks eligibility before spending a fetch
	if !cr.Session.IsEligible(rawURL) || cr.Session.IsVisited(rawURL) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cr.cfg.RequestTimeout)
	defer cancel()

	result := &PageResult{URL: rawURL}
	resp, err := cr.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		cr.logger.Warn().Err(err).Str("url", rawURL).Msg("fetch failed")
		result.Error = err
	} else {
		result.FinalURL = resp.FinalURL
		result.StatusCode = resp.StatusCode
		if t := resp.Trace; t != nil {
			cr.logger.Debug().
				Str("url", rawURL).
				Int("hops", t.Hops).
				Dur("connect", t.ConnectDuration).
				Dur("first_byte", t.FirstByteDuration).
				Dur("total", t.TotalDuration).
				Msg("fetch timing")
		}
		result.Links = cr.Session.ProcessPage(rawURL, resp)
	}

	cr.mu.Lock()
	cr.fetched++
	callback := cr.onPageCrawled
	cr.mu.Unlock()

	if err := cr.Session.Err(); err != nil {
		cr.mu.Lock()
		if cr.err == nil {
			cr.err = err
		}
		cr.mu.Unlock()
		cr.cancel()
		return
	}

	cr.enqueue(result.Links...)
	if callback != nil {
		callback(result)
	}
}
