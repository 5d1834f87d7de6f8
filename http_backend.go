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
//
// This file includes modifications to code originally developed by Adam Tauber,
// licensed under the Apache License, Version 2.0.

package scout

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/time/rate"
	"google.golang.org/appengine/urlfetch"
)

const (
	// DefaultMaxBodySize caps page bodies at 10MB
	DefaultMaxBodySize = 10 * 1024 * 1024
	// DefaultMaxRedirects is the redirect hop limit of a single fetch
	DefaultMaxRedirects = 10
)

// LimitRule provides connection restrictions for domains.
// Both DomainRegexp and DomainGlob can be used to specify
// the included domains patterns, but at least one is required.
// There can be three kinds of limitations:
//   - Parallelism: Set limit for the number of concurrent requests to matching domains
//   - Delay: Wait specified amount of time between requests (parallelism is 1 in this case)
//   - RequestsPerSecond: Token bucket pacing of request starts to matching domains
type LimitRule struct {
	// DomainRegexp is a regular expression to match against domains
	DomainRegexp string
	// DomainGlob is a glob pattern to match against domains
	DomainGlob string
	// Delay is the duration to wait before creating a new request to the matching domains
	Delay time.Duration
	// RandomDelay is the extra randomized duration to wait added to Delay before creating a new request
	RandomDelay time.Duration
	// Parallelism is the number of the maximum allowed concurrent requests of the matching domains
	Parallelism int
	// RequestsPerSecond limits the request rate; zero means unlimited
	RequestsPerSecond float64

	waitChan       chan bool
	compiledRegexp *regexp.Regexp
	compiledGlob   glob.Glob
	limiter        *rate.Limiter
}

// Init initializes the private members of LimitRule
func (r *LimitRule) Init() error {
	waitChanSize := 1
	if r.Parallelism > 1 {
		waitChanSize = r.Parallelism
	}
	r.waitChan = make(chan bool, waitChanSize)
	hasPattern := false
	if r.DomainRegexp != "" {
		c, err := regexp.Compile(r.DomainRegexp)
		if err != nil {
			return err
		}
		r.compiledRegexp = c
		hasPattern = true
	}
	if r.DomainGlob != "" {
		c, err := glob.Compile(r.DomainGlob)
		if err != nil {
			return err
		}
		r.compiledGlob = c
		hasPattern = true
	}
	if !hasPattern {
		return ErrNoPattern
	}
	if r.RequestsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(r.RequestsPerSecond), 1)
	}
	return nil
}

// Match checks that the domain parameter triggers the rule
func (r *LimitRule) Match(domain string) bool {
	if r.compiledRegexp != nil && r.compiledRegexp.MatchString(domain) {
		return true
	}
	return r.compiledGlob != nil && r.compiledGlob.Match(domain)
}

// acquire blocks until the rule admits one more request to its domains. The
// returned function releases the slot after the configured delay.
func (r *LimitRule) acquire(ctx context.Context) (func(), error) {
	select {
	case r.waitChan <- true:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			<-r.waitChan
			return nil, err
		}
	}
	return func() {
		randomDelay := time.Duration(0)
		if r.RandomDelay != 0 {
			randomDelay = time.Duration(rand.Int63n(int64(r.RandomDelay)))
		}
		time.Sleep(r.Delay + randomDelay)
		<-r.waitChan
	}, nil
}

// Fetcher downloads pages for the Crawler. It follows redirects itself so
// the Response carries both the requested and the final URL.
type Fetcher struct {
	// Client performs the requests. Its CheckRedirect is replaced so that
	// redirects reach the Fetcher.
	Client *http.Client
	// UserAgent is sent with every request
	UserAgent string
	// MaxBodySize limits the bytes read from a body; zero means unlimited
	MaxBodySize int
	// MaxRedirects is the hop limit per fetch
	MaxRedirects int
	// Trace attaches a FetchTrace to every Response
	Trace bool

	lock       sync.RWMutex
	limitRules []*LimitRule
}

// NewFetcher creates a Fetcher on top of client. A nil client gets a 10s
// timeout.
func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	f := &Fetcher{
		UserAgent:    userAgent,
		MaxBodySize:  DefaultMaxBodySize,
		MaxRedirects: DefaultMaxRedirects,
	}
	if f.UserAgent == "" {
		f.UserAgent = DefaultUserAgent
	}
	f.setClient(client)
	return f
}

func (f *Fetcher) setClient(client *http.Client) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	f.Client = &c
}

// Appengine replaces the Fetcher's http.Client with one provided by
// appengine/urlfetch. Use it when the crawler runs on Google App Engine:
//
//	func startCrawl(w http.ResponseWriter, r *http.Request) {
//	  ctx := appengine.NewContext(r)
//	  crawler.Fetcher.Appengine(ctx)
//	  ...
//	}
func (f *Fetcher) Appengine(ctx context.Context) {
	client := urlfetch.Client(ctx)
	client.Jar = f.Client.Jar
	client.Timeout = f.Client.Timeout
	f.setClient(client)
}

// Limit adds a LimitRule
func (f *Fetcher) Limit(rule *LimitRule) error {
	if err := rule.Init(); err != nil {
		return err
	}
	f.lock.Lock()
	f.limitRules = append(f.limitRules, rule)
	f.lock.Unlock()
	return nil
}

// Limits adds multiple LimitRules
func (f *Fetcher) Limits(rules []*LimitRule) error {
	for _, r := range rules {
		if err := f.Limit(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) matchingRule(domain string) *LimitRule {
	f.lock.RLock()
	defer f.lock.RUnlock()
	for _, r := range f.limitRules {
		if r.Match(domain) {
			return r
		}
	}
	return nil
}

// Fetch downloads rawURL, following up to MaxRedirects redirects. Non-2xx
// final responses are returned with their body; only transport failures
// and redirect loops are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	var trace *FetchTrace
	if f.Trace {
		trace = newFetchTrace()
	}

	for hop := 0; hop <= f.MaxRedirects; hop++ {
		if trace != nil {
			req = trace.withTrace(req)
		}
		res, err := f.do(ctx, req)
		if err != nil {
			return nil, err
		}

		location := res.Header.Get("Location")
		if res.StatusCode >= 300 && res.StatusCode < 400 && location != "" {
			res.Body.Close()
			next, err := req.URL.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("%w: redirect location %q: %v", ErrMalformedURL, location, err)
			}
			req, err = http.NewRequestWithContext(ctx, http.MethodGet, next.String(), nil)
			if err != nil {
				return nil, err
			}
			continue
		}

		body, err := f.readBody(res, req)
		res.Body.Close()
		if err != nil {
			return nil, err
		}
		if trace != nil {
			trace.finish()
		}
		return &Response{
			RequestedURL: rawURL,
			FinalURL:     req.URL.String(),
			StatusCode:   res.StatusCode,
			Body:         body,
			ContentType:  res.Header.Get("Content-Type"),
			Trace:        trace,
		}, nil
	}
	return nil, fmt.Errorf("stopped after %d redirects", f.MaxRedirects)
}

func (f *Fetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if r := f.matchingRule(req.URL.Hostname()); r != nil {
		release, err := r.acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	req.Header.Set("User-Agent", f.UserAgent)
	return f.Client.Do(req)
}

func (f *Fetcher) readBody(res *http.Response, req *http.Request) ([]byte, error) {
	var bodyReader io.Reader = res.Body
	if f.MaxBodySize > 0 {
		bodyReader = io.LimitReader(bodyReader, int64(f.MaxBodySize))
	}
	contentEncoding := strings.ToLower(res.Header.Get("Content-Encoding"))
	if !res.Uncompressed && (strings.Contains(contentEncoding, "gzip") || strings.HasSuffix(strings.ToLower(req.URL.Path), ".xml.gz")) {
		gz, err := gzip.NewReader(bodyReader)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		bodyReader = gz
	}
	return io.ReadAll(bodyReader)
}
