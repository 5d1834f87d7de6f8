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
	"net/url"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// CanonicalURL is the identity of a page as seen by the crawl session.
type CanonicalURL struct {
	// IdentityKey is host+path+query, lowercased, without scheme or fragment.
	// http://A, https://A and http://A#frag all share one key.
	IdentityKey string
	// NormalizedURL is the full lowercased URL without its fragment. It is the
	// form handed to the frontier and used for politeness lookups.
	NormalizedURL string

	parsed *url.URL
}

// Scheme returns the lowercased scheme without the trailing colon.
func (c CanonicalURL) Scheme() string {
	if c.parsed == nil {
		return ""
	}
	return c.parsed.Scheme
}

// Host returns the hostname without port.
func (c CanonicalURL) Host() string {
	if c.parsed == nil {
		return ""
	}
	return c.parsed.Hostname()
}

// Origin returns scheme://host[:port].
func (c CanonicalURL) Origin() string {
	if c.parsed == nil {
		return ""
	}
	return c.parsed.Scheme + "://" + c.parsed.Host
}

// Path returns the escaped path, "/" when empty.
func (c CanonicalURL) Path() string {
	if c.parsed == nil {
		return ""
	}
	p := c.parsed.EscapedPath()
	if p == "" {
		return "/"
	}
	return p
}

// Query returns the parsed query string.
func (c CanonicalURL) Query() url.Values {
	if c.parsed == nil {
		return url.Values{}
	}
	q, err := url.ParseQuery(c.parsed.RawQuery)
	if err != nil {
		return url.Values{}
	}
	return q
}

// Canonicalize lowercases raw, resolves it against base when base is not
// empty, drops the fragment and returns the resulting identity. Any parse
// failure is reported as ErrMalformedURL.
func Canonicalize(raw, base string) (CanonicalURL, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return CanonicalURL{}, fmt.Errorf("%w: empty URL", ErrMalformedURL)
	}

	var (
		parsed *whatwgUrl.Url
		err    error
	)
	if base != "" {
		parsed, err = urlParser.ParseRef(strings.ToLower(strings.TrimSpace(base)), raw)
	} else {
		parsed, err = urlParser.Parse(raw)
	}
	if err != nil {
		return CanonicalURL{}, fmt.Errorf("%w: %q: %v", ErrMalformedURL, raw, err)
	}

	u, err := url.Parse(parsed.Href(true))
	if err != nil {
		return CanonicalURL{}, fmt.Errorf("%w: %q: %v", ErrMalformedURL, raw, err)
	}
	// opaque URLs (mailto:, javascript:, data:) have no host to key on
	if u.Host == "" || u.Opaque != "" {
		return CanonicalURL{}, fmt.Errorf("%w: %q has no host", ErrMalformedURL, raw)
	}
	u.Fragment = ""
	u.RawFragment = ""

	// both parsers emit uppercase percent-escapes; stored forms are lowercase
	normalized := strings.ToLower(u.String())
	u, err = url.Parse(normalized)
	if err != nil {
		return CanonicalURL{}, fmt.Errorf("%w: %q: %v", ErrMalformedURL, raw, err)
	}

	return CanonicalURL{
		IdentityKey:   strings.ToLower(identityKey(u)),
		NormalizedURL: normalized,
		parsed:        u,
	}, nil
}

// IdentityKey is a shorthand for Canonicalize(raw, "").IdentityKey.
func IdentityKey(raw string) (string, error) {
	c, err := Canonicalize(raw, "")
	if err != nil {
		return "", err
	}
	return c.IdentityKey, nil
}

func identityKey(u *url.URL) string {
	var b strings.Builder
	b.WriteString(u.Host)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	return b.String()
}
