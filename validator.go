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
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Validator decides whether a URL may enter the frontier at all.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	allowed    []glob.Glob
	extensions *regexp.Regexp
	lowValue   []string
	maxLength  int
}

// NewValidator compiles the domain patterns and extension denylist of cfg
func NewValidator(cfg *Config) (*Validator, error) {
	cfg = mergeDefaults(cfg)

	v := &Validator{lowValue: cfg.LowValuePathPatterns, maxLength: cfg.MaxURLLength}
	for _, domain := range cfg.AllowedDomains {
		g, err := compileDomainPattern(domain)
		if err != nil {
			return nil, err
		}
		v.allowed = append(v.allowed, g)
	}

	if len(cfg.ExcludedExtensions) > 0 {
		quoted := make([]string, len(cfg.ExcludedExtensions))
		for i, ext := range cfg.ExcludedExtensions {
			quoted[i] = regexp.QuoteMeta(strings.ToLower(strings.TrimPrefix(ext, ".")))
		}
		re, err := regexp.Compile(`\.(` + strings.Join(quoted, "|") + `)$`)
		if err != nil {
			return nil, fmt.Errorf("invalid extension denylist: %w", err)
		}
		v.extensions = re
	}
	return v, nil
}

// IsEligible reports whether rawURL passes every admission rule. It never
// panics and returns false for URLs that cannot be parsed.
func (v *Validator) IsEligible(rawURL string) bool {
	c, err := Canonicalize(rawURL, "")
	if err != nil {
		return false
	}
	return v.IsEligibleCanonical(c)
}

// IsEligibleCanonical applies the rules to an already canonicalized URL.
// Rules short-circuit in order: scheme, domain, length, extension, path
// pattern, query.
func (v *Validator) IsEligibleCanonical(c CanonicalURL) bool {
	return v.Explain(c) == ""
}

// Explain returns the first rule c fails, or "" when c is eligible
func (v *Validator) Explain(c CanonicalURL) string {
	if c.parsed == nil {
		return "malformed url"
	}
	scheme := c.Scheme()
	if scheme != "http" && scheme != "https" {
		return "scheme " + scheme + " not crawlable"
	}
	if !v.HostAllowed(c.Host()) {
		return "host " + c.Host() + " outside allowed domains"
	}
	if v.maxLength > 0 && len(c.NormalizedURL) > v.maxLength {
		return fmt.Sprintf("url longer than %d", v.maxLength)
	}

	path := c.Path()
	if v.extensions != nil {
		if m := v.extensions.FindStringSubmatch(path); m != nil {
			return "excluded extension ." + m[1]
		}
	}
	for _, pattern := range v.lowValue {
		if pattern != "" && strings.Contains(path, pattern) {
			return "low-value path " + pattern
		}
	}
	if isRevisionDiff(c) {
		return "revision diff"
	}
	return ""
}

// HostAllowed reports whether host belongs to one of the allowed domains.
// An empty allow list allows every host.
func (v *Validator) HostAllowed(host string) bool {
	if len(v.allowed) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, g := range v.allowed {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// isRevisionDiff matches wiki and VCS comparison pages, which expose an
// unbounded number of near-identical variants of one page.
func isRevisionDiff(c CanonicalURL) bool {
	q := c.Query()
	if len(q) == 0 {
		return false
	}
	_, diff := q["diff"]
	_, rev := q["rev"]
	return diff && rev
}

// compileDomainPattern turns a domain suffix into a glob matching the domain
// and all of its subdomains. Explicit glob patterns are compiled unchanged.
func compileDomainPattern(domain string) (glob.Glob, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, fmt.Errorf("empty domain pattern")
	}
	pattern := domain
	if !strings.ContainsAny(domain, "*?[{") {
		domain = strings.TrimPrefix(domain, ".")
		pattern = "{" + domain + ",*." + domain + "}"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid domain pattern %q: %w", domain, err)
	}
	return g, nil
}
