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
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// maxRobotsSize caps how much of a robots.txt body is read
const maxRobotsSize = 512 * 1024

// Verdict is the outcome of a politeness lookup
type Verdict int

const (
	// VerdictUnknown means the policy could not be resolved. It is treated as
	// allowed so an unreachable robots.txt does not stall the crawl.
	VerdictUnknown Verdict = iota
	// VerdictAllowed means the policy permits the URL (or there is no policy)
	VerdictAllowed
	// VerdictDenied means the policy forbids the URL for our user agent
	VerdictDenied
)

// String implements fmt.Stringer
func (v Verdict) String() string {
	switch v {
	case VerdictAllowed:
		return "allowed"
	case VerdictDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Permits maps a verdict to the fail-open admission decision
func (v Verdict) Permits() bool {
	return v != VerdictDenied
}

// robotsEntry is the resolved policy of one origin. group is nil when the
// origin has no usable policy, in which case state applies to every path.
type robotsEntry struct {
	group    *robotstxt.Group
	sitemaps []string
	state    Verdict
}

// RobotsCache fetches robots.txt once per origin and keeps the parsed rules
// for the rest of the session. Fetches happen without holding the cache
// lock; concurrent first lookups of one origin share a single request.
type RobotsCache struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	logger    zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*robotsEntry
	flight  singleflight.Group
}

// NewRobotsCache creates a cache that identifies itself as userAgent
func NewRobotsCache(client *http.Client, userAgent string, timeout time.Duration, logger zerolog.Logger) *RobotsCache {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RobotsCache{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger,
		entries:   make(map[string]*robotsEntry),
	}
}

// IsAllowed reports whether rawURL may be fetched. Unparseable URLs are
// rejected; unresolvable policies are allowed.
func (rc *RobotsCache) IsAllowed(rawURL string) bool {
	c, err := Canonicalize(rawURL, "")
	if err != nil {
		return false
	}
	return rc.CheckCanonical(c).Permits()
}

// Check resolves the verdict for rawURL
func (rc *RobotsCache) Check(rawURL string) Verdict {
	c, err := Canonicalize(rawURL, "")
	if err != nil {
		return VerdictUnknown
	}
	return rc.CheckCanonical(c)
}

// CheckCanonical resolves the verdict for an already canonicalized URL
func (rc *RobotsCache) CheckCanonical(c CanonicalURL) Verdict {
	entry := rc.entry(c.Origin())
	if entry.group == nil {
		return entry.state
	}
	path := c.Path()
	if c.parsed != nil && c.parsed.RawQuery != "" {
		path += "?" + c.parsed.RawQuery
	}
	if entry.group.Test(path) {
		return VerdictAllowed
	}
	return VerdictDenied
}

// Resolved reports whether the policy of origin has been looked up
func (rc *RobotsCache) Resolved(origin string) bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	_, ok := rc.entries[origin]
	return ok
}

// Len returns the number of resolved origins
func (rc *RobotsCache) Len() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.entries)
}

// Sitemaps returns the sitemap URLs declared in the robots.txt of origin,
// resolving the policy first if needed.
func (rc *RobotsCache) Sitemaps(origin string) []string {
	entry := rc.entry(origin)
	return append([]string(nil), entry.sitemaps...)
}

func (rc *RobotsCache) entry(origin string) *robotsEntry {
	rc.mu.RLock()
	entry, ok := rc.entries[origin]
	rc.mu.RUnlock()
	if ok {
		return entry
	}

	v, _, _ := rc.flight.Do(origin, func() (interface{}, error) {
		rc.mu.RLock()
		cached, ok := rc.entries[origin]
		rc.mu.RUnlock()
		if ok {
			return cached, nil
		}

		resolved := rc.resolve(origin)

		rc.mu.Lock()
		rc.entries[origin] = resolved
		rc.mu.Unlock()
		return resolved, nil
	})
	return v.(*robotsEntry)
}

// resolve fetches and parses the robots.txt of origin. It never fails: every
// error path yields an entry with VerdictUnknown.
func (rc *RobotsCache) resolve(origin string) *robotsEntry {
	data, status, err := rc.fetch(origin)
	if err != nil {
		rc.logger.Warn().
			Err(err).
			Str("origin", origin).
			Msg("robots.txt unavailable, treating origin as allowed")
		return &robotsEntry{state: VerdictUnknown}
	}

	switch {
	case status >= 200 && status < 300:
		robots, err := robotstxt.FromBytes(data)
		if err != nil {
			rc.logger.Warn().
				Err(fmt.Errorf("%w: parse: %v", ErrPolicyFetch, err)).
				Str("origin", origin).
				Msg("robots.txt unparseable, treating origin as allowed")
			return &robotsEntry{state: VerdictUnknown}
		}
		rc.logger.Debug().Str("origin", origin).Msg("robots.txt resolved")
		return &robotsEntry{
			group:    robots.FindGroup(rc.userAgent),
			sitemaps: robots.Sitemaps,
			state:    VerdictAllowed,
		}
	case status >= 400 && status < 500:
		// no policy published
		return &robotsEntry{state: VerdictAllowed}
	default:
		rc.logger.Warn().
			Err(fmt.Errorf("%w: status %d", ErrPolicyFetch, status)).
			Str("origin", origin).
			Msg("robots.txt unavailable, treating origin as allowed")
		return &robotsEntry{state: VerdictUnknown}
	}
}

func (rc *RobotsCache) fetch(origin string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rc.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPolicyFetch, err)
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPolicyFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %v", ErrPolicyFetch, err)
	}
	return body, resp.StatusCode, nil
}
