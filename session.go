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
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
)

// LongestPage records the page with the most tokens, counted before
// stopword filtering
type LongestPage struct {
	URL       string `json:"url"`
	WordCount int    `json:"wordCount"`
}

// Snapshot is a consistent copy of the session statistics
type Snapshot struct {
	VisitedCount    int
	FrontierCount   int
	HistoryLen      int
	RedirectCount   int
	LongestPage     LongestPage
	WordCounts      map[string]int
	SubdomainCounts map[string]int
}

// UniquePages is the number of distinct content pages: redirect aliases are
// recorded as visited but are not pages of their own.
func (s Snapshot) UniquePages() int {
	return s.VisitedCount - s.RedirectCount
}

// Session holds all mutable state of one crawl. It is created at crawl
// start with NewSession and torn down with Close. Every read-modify-write of
// the state happens under one mutex, so ProcessPage may be called from many
// goroutines. Network and parsing work runs outside the lock.
type Session struct {
	cfg        *Config
	validator  *Validator
	robots     *RobotsCache
	subdomains glob.Glob
	logger     zerolog.Logger

	mu              sync.Mutex
	closed          bool
	err             error
	visited         map[string]struct{}
	inFrontier      map[string]struct{}
	traps           *TrapDetector
	wordCounts      map[string]int
	subdomainCounts map[string]int
	longest         LongestPage
	redirectCount   int
}

// NewSession creates a session for cfg. A nil cfg uses NewDefaultConfig;
// zero-valued fields of a partial cfg are filled from the defaults.
func NewSession(cfg *Config) (*Session, error) {
	cfg = mergeDefaults(cfg)

	validator, err := NewValidator(cfg)
	if err != nil {
		return nil, err
	}

	var subdomains glob.Glob
	if cfg.SubdomainPattern != "" {
		subdomains, err = glob.Compile(strings.ToLower(cfg.SubdomainPattern))
		if err != nil {
			return nil, fmt.Errorf("invalid subdomain pattern %q: %w", cfg.SubdomainPattern, err)
		}
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Session{
		cfg:             cfg,
		validator:       validator,
		robots:          NewRobotsCache(cfg.HTTPClient, cfg.UserAgent, cfg.PolicyTimeout, logger),
		subdomains:      subdomains,
		logger:          logger,
		visited:         make(map[string]struct{}),
		inFrontier:      make(map[string]struct{}),
		traps:           NewTrapDetector(cfg.TrapWindow, cfg.SimilarityThreshold),
		wordCounts:      make(map[string]int),
		subdomainCounts: make(map[string]int),
	}, nil
}

// Close ends the session. Further ProcessPage calls return no links.
// Close verifies the session invariants and reports a violation as an error.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.err != nil {
		return s.err
	}
	return s.verifyLocked()
}

// Err returns the invariant violation that stopped the session, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// activeLocked reports whether the session still accepts pages
func (s *Session) activeLocked() bool {
	return !s.closed && s.err == nil
}

// failLocked marks the session failed. Only the first violation is kept.
func (s *Session) failLocked(err error) {
	if s.err == nil {
		s.err = err
		s.logger.Error().Err(err).Msg("session invariant violated")
	}
}

// Config returns the effective configuration
func (s *Session) Config() *Config {
	return s.cfg
}

// Validator returns the validator used for admission
func (s *Session) Validator() *Validator {
	return s.validator
}

// Robots returns the politeness cache of the session
func (s *Session) Robots() *RobotsCache {
	return s.robots
}

// IsEligible reports whether rawURL passes the validator
func (s *Session) IsEligible(rawURL string) bool {
	return s.validator.IsEligible(rawURL)
}

// IsAllowed reports whether the robots.txt of the URL's origin permits it
func (s *Session) IsAllowed(rawURL string) bool {
	c, err := Canonicalize(rawURL, "")
	if err != nil {
		return false
	}
	return s.allowed(c)
}

func (s *Session) allowed(c CanonicalURL) bool {
	if s.cfg.IgnoreRobotsTxt {
		return true
	}
	return s.robots.CheckCanonical(c).Permits()
}

// AddSeed registers rawURL in the frontier set if it is eligible, allowed
// and unseen. It returns the normalized URL to schedule.
func (s *Session) AddSeed(rawURL string) (string, bool) {
	c, err := Canonicalize(rawURL, "")
	if err != nil {
		return "", false
	}
	if !s.validator.IsEligibleCanonical(c) || !s.allowed(c) {
		return "", false
	}
	if !s.admit(c.IdentityKey) {
		return "", false
	}
	return c.NormalizedURL, true
}

// admit adds key to the frontier set unless it is already visited or queued
func (s *Session) admit(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activeLocked() {
		return false
	}
	if _, ok := s.visited[key]; ok {
		return false
	}
	if _, ok := s.inFrontier[key]; ok {
		return false
	}
	s.inFrontier[key] = struct{}{}
	return true
}

// IsVisited reports whether the identity of rawURL has been processed
func (s *Session) IsVisited(rawURL string) bool {
	key, err := IdentityKey(rawURL)
	if err != nil {
		return false
	}
	return s.isVisited(key)
}

func (s *Session) isVisited(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.visited[key]
	return ok
}

// InFrontier reports whether the identity of rawURL is queued but not visited
func (s *Session) InFrontier(rawURL string) bool {
	key, err := IdentityKey(rawURL)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFrontier[key]
	return ok
}

// VisitedCount returns the size of the visited set
func (s *Session) VisitedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// FrontierCount returns the size of the frontier set
func (s *Session) FrontierCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFrontier)
}

// HistoryLen returns the number of stored fingerprints
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.traps.Len()
}

// RedirectCount returns the number of recorded redirect aliases
func (s *Session) RedirectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirectCount
}

// LongestPage returns the longest page seen so far
func (s *Session) LongestPage() LongestPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.longest
}

// WordCount returns the count of word
func (s *Session) WordCount(word string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wordCounts[word]
}

// Snapshot returns a copy of the statistics
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	words := make(map[string]int, len(s.wordCounts))
	for w, c := range s.wordCounts {
		words[w] = c
	}
	subdomains := make(map[string]int, len(s.subdomainCounts))
	for h, c := range s.subdomainCounts {
		subdomains[h] = c
	}
	return Snapshot{
		VisitedCount:    len(s.visited),
		FrontierCount:   len(s.inFrontier),
		HistoryLen:      s.traps.Len(),
		RedirectCount:   s.redirectCount,
		LongestPage:     s.longest,
		WordCounts:      words,
		SubdomainCounts: subdomains,
	}
}

// Verify checks the session invariants
func (s *Session) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyLocked()
}

func (s *Session) verifyLocked() error {
	for key := range s.inFrontier {
		if _, ok := s.visited[key]; ok {
			return fmt.Errorf("%w: %q is both visited and queued", ErrInvariantViolation, key)
		}
	}
	if s.redirectCount > len(s.visited) {
		return fmt.Errorf("%w: %d redirects exceed %d visited pages",
			ErrInvariantViolation, s.redirectCount, len(s.visited))
	}
	return nil
}
