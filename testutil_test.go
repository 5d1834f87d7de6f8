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
	"testing"

	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://www.ics.uci.edu"

var robotsFile = `
User-agent: *
Allow: /allowed
Disallow: /private/
Disallow: /allowed*q=

Sitemap: https://www.ics.uci.edu/sitemap.xml
`

// words returns n distinct tokens sharing prefix, joined by spaces.
// Pages built from different prefixes share no shingles.
func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(parts, " ")
}

// htmlPage wraps text in a document with one anchor per link
func htmlPage(text string, links ...string) []byte {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>t</title>")
	b.WriteString("<style>.hidden { color: red }</style></head><body><p>")
	b.WriteString(text)
	b.WriteString("</p>")
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// htmlResponse is a 200 text/html response for url
func htmlResponse(url string, body []byte) *Response {
	return &Response{
		RequestedURL: url,
		FinalURL:     url,
		StatusCode:   200,
		Body:         body,
		ContentType:  "text/html; charset=utf-8",
	}
}

// newTestSession creates a session whose robots.txt lookups go to a mock
// transport. The session's MinWords is lowered by callers that need it.
func newTestSession(t *testing.T, configure func(*Config)) (*Session, *MockTransport) {
	t.Helper()
	mock := NewMockTransport()
	mock.RegisterRobots(testBaseURL, robotsFile)

	cfg := NewDefaultConfig()
	cfg.HTTPClient = mock.Client()
	if configure != nil {
		configure(cfg)
	}
	s, err := NewSession(cfg)
	require.NoError(t, err)
	return s, mock
}
