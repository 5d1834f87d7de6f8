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
	"net/http"
)

// Response is a fetched page as delivered by the fetch layer
type Response struct {
	// RequestedURL is the URL the frontier scheduled
	RequestedURL string
	// FinalURL is the URL the content was served from after redirects.
	// Empty means no redirect happened.
	FinalURL string
	// StatusCode of the final response
	StatusCode int
	// Body is nil when the fetch produced no content
	Body []byte
	// ContentType is the Content-Type header of the final response
	ContentType string
	// Trace holds fetch timings when the Fetcher traces requests
	Trace *FetchTrace
}

// acceptedStatus lists the status codes whose bodies are processed
var acceptedStatus = map[int]bool{
	http.StatusOK:                true,
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

// Gate names used in rejection logs
const (
	gateStatus     = "status"
	gateIdentity   = "identity"
	gateValidator  = "validator"
	gatePoliteness = "politeness"
	gateSize       = "size"
	gateTrap       = "trap"
	gateSession    = "session"
)

// ProcessPage runs one fetched page through the admission pipeline and
// returns the outbound links that were newly added to the frontier, as
// absolute normalized URLs. Every failure degrades to an empty result.
//
// requestedURL overrides resp.RequestedURL when non-empty. ProcessPage is
// safe for concurrent use.
func (s *Session) ProcessPage(requestedURL string, resp *Response) []string {
	if resp == nil {
		return nil
	}
	if requestedURL == "" {
		requestedURL = resp.RequestedURL
	}
	finalURL := resp.FinalURL
	if finalURL == "" {
		finalURL = requestedURL
	}

	if !acceptedStatus[resp.StatusCode] || resp.Body == nil {
		s.reject(gateStatus, finalURL, "status", resp.StatusCode)
		return nil
	}

	page, err := Canonicalize(finalURL, "")
	if err != nil {
		s.reject(gateIdentity, finalURL, "error", err)
		return nil
	}
	if s.isVisited(page.IdentityKey) {
		s.reject(gateIdentity, page.NormalizedURL, "reason", "already visited")
		s.dropAlias(requestedURL, page)
		return nil
	}
	if !s.validator.IsEligibleCanonical(page) {
		s.reject(gateValidator, page.NormalizedURL, "reason", "not eligible")
		return nil
	}
	if !s.allowed(page) {
		s.reject(gatePoliteness, page.NormalizedURL, "reason", "disallowed by robots.txt")
		return nil
	}

	// Extraction runs before anything is committed so a rejected page leaves
	// the session untouched.
	extracted, err := ExtractPage(resp.Body, resp.ContentType, s.cfg.DetectCharset)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", page.NormalizedURL).Msg("content not parsed")
	}
	tokens := extracted.Tokens
	if len(tokens) < s.cfg.MinWords || len(tokens) > s.cfg.MaxWords {
		s.reject(gateSize, page.NormalizedURL, "tokens", len(tokens))
		return nil
	}

	fp := NewFingerprintWith(tokens, s.cfg.ShingleSize, s.cfg.SampleModulus)
	words := countWords(tokens)

	if !s.commit(page, fp, words, len(tokens)) {
		s.dropAlias(requestedURL, page)
		return nil
	}

	// The alias is recorded before links are admitted so a page linking back
	// to its own pre-redirect URL does not re-queue it.
	s.recordRedirect(requestedURL, page)

	return s.admitLinks(page, extracted)
}

// commit marks page visited and folds its statistics into the session. It
// returns false when the page was committed concurrently, the session is no
// longer active, or the page is a trap.
func (s *Session) commit(page CanonicalURL, fp Fingerprint, words map[string]int, tokenCount int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.activeLocked() {
		s.reject(gateSession, page.NormalizedURL, "reason", "session closed")
		return false
	}
	if _, ok := s.visited[page.IdentityKey]; ok {
		s.reject(gateIdentity, page.NormalizedURL, "reason", "visited concurrently")
		return false
	}

	s.visited[page.IdentityKey] = struct{}{}
	delete(s.inFrontier, page.IdentityKey)
	if host := page.Host(); s.subdomains != nil && s.subdomains.Match(host) {
		s.subdomainCounts[host]++
	}

	if match, trap := s.traps.Check(fp); trap {
		s.logger.Info().
			Str("gate", gateTrap).
			Str("url", page.NormalizedURL).
			Float64("similarity", match.Similarity).
			Int("match_index", match.Index).
			Msg("near-duplicate page discarded")
		return false
	}
	s.traps.Append(fp)

	for w, c := range words {
		s.wordCounts[w] += c
	}
	if tokenCount > s.longest.WordCount {
		s.longest = LongestPage{URL: page.NormalizedURL, WordCount: tokenCount}
	}
	return true
}

// admitLinks resolves the anchors of a committed page and adds the eligible,
// allowed and unseen ones to the frontier.
func (s *Session) admitLinks(page CanonicalURL, extracted *ExtractedPage) []string {
	base := page.NormalizedURL
	if extracted.BaseHref != "" {
		if b, err := Canonicalize(extracted.BaseHref, page.NormalizedURL); err == nil {
			base = b.NormalizedURL
		}
	}

	candidates := make([]CanonicalURL, 0, len(extracted.Links))
	for _, href := range extracted.Links {
		link, err := Canonicalize(href, base)
		if err != nil {
			continue
		}
		if !s.validator.IsEligibleCanonical(link) {
			continue
		}
		// robots.txt lookups may block on the network, so they happen before
		// the session lock is taken
		if !s.allowed(link) {
			continue
		}
		candidates = append(candidates, link)
	}
	if len(candidates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activeLocked() {
		return nil
	}

	var admitted []string
	for _, link := range candidates {
		if _, ok := s.visited[link.IdentityKey]; ok {
			continue
		}
		if _, ok := s.inFrontier[link.IdentityKey]; ok {
			continue
		}
		s.inFrontier[link.IdentityKey] = struct{}{}
		admitted = append(admitted, link.NormalizedURL)
	}

	if _, ok := s.inFrontier[page.IdentityKey]; ok {
		s.failLocked(fmt.Errorf("%w: committed page %q re-entered the frontier",
			ErrInvariantViolation, page.IdentityKey))
		return nil
	}
	return admitted
}

// recordRedirect marks the pre-redirect alias of page as visited. Aliases
// differing only in scheme, case or fragment share the page identity and are
// not redirects.
func (s *Session) recordRedirect(requestedURL string, page CanonicalURL) {
	alias, err := Canonicalize(requestedURL, "")
	if err != nil || alias.IdentityKey == page.IdentityKey {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFrontier, alias.IdentityKey)
	if _, ok := s.visited[alias.IdentityKey]; ok {
		return
	}
	s.visited[alias.IdentityKey] = struct{}{}
	s.redirectCount++
	s.logger.Debug().
		Str("from", alias.NormalizedURL).
		Str("to", page.NormalizedURL).
		Msg("redirect recorded")
}

// dropAlias removes the pre-redirect alias of a page that was not committed
// from the frontier. The alias is neither visited nor counted as a redirect.
func (s *Session) dropAlias(requestedURL string, page CanonicalURL) {
	alias, err := Canonicalize(requestedURL, "")
	if err != nil || alias.IdentityKey == page.IdentityKey {
		return
	}
	s.mu.Lock()
	delete(s.inFrontier, alias.IdentityKey)
	s.mu.Unlock()
}

func (s *Session) reject(gate, rawURL, key string, value interface{}) {
	s.logger.Debug().
		Str("gate", gate).
		Str("url", rawURL).
		Interface(key, value).
		Msg("page rejected")
}

// countWords tallies tokens, leaving out stopwords
func countWords(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens)/2)
	for _, tok := range tokens {
		if IsStopword(tok) {
			continue
		}
		counts[tok]++
	}
	return counts
}
