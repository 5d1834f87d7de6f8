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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenCount is the number of tokens htmlPage(text, links...) produces:
// the title, the text and one "link" per anchor
func tokenCount(text string, links ...string) int {
	return 1 + len(strings.Fields(text)) + len(links)
}

func TestProcessPageEndToEnd(t *testing.T) {
	s, _ := newTestSession(t, nil)
	pageURL := testBaseURL + "/start"
	text := words("alpha", 300) + " the and of"
	links := []string{
		"/people",
		"https://vision.ics.uci.edu/lab",
		"/paper.pdf",
		"https://example.com/",
		"/private/secret",
		"/people#team",
		"mailto:someone@ics.uci.edu",
		"/start",
		"/wiki?diff=1&rev=2",
	}

	got := s.ProcessPage(pageURL, htmlResponse(pageURL, htmlPage(text, links...)))

	assert.Equal(t, []string{
		"https://www.ics.uci.edu/people",
		"https://vision.ics.uci.edu/lab",
	}, got)

	assert.True(t, s.IsVisited(pageURL))
	assert.False(t, s.InFrontier(pageURL))
	assert.True(t, s.InFrontier("https://www.ics.uci.edu/people"))
	assert.Equal(t, 2, s.FrontierCount())
	assert.Equal(t, 1, s.VisitedCount())
	assert.Equal(t, 1, s.HistoryLen())

	assert.Equal(t, 1, s.WordCount("alpha0"))
	assert.Equal(t, 1, s.WordCount("alpha299"))
	assert.Equal(t, 0, s.WordCount("the"))
	assert.Equal(t, 0, s.WordCount("of"))

	longest := s.LongestPage()
	assert.Equal(t, pageURL, longest.URL)
	// the longest page counts raw tokens, stopwords included
	assert.Equal(t, tokenCount(text, links...), longest.WordCount)

	snap := s.Snapshot()
	assert.Equal(t, map[string]int{"www.ics.uci.edu": 1}, snap.SubdomainCounts)
	assert.Equal(t, 1, snap.UniquePages())
	assert.NoError(t, s.Verify())
}

func TestProcessPageDuplicateDelivery(t *testing.T) {
	s, _ := newTestSession(t, nil)
	pageURL := testBaseURL + "/dup"
	resp := htmlResponse(pageURL, htmlPage(words("dup", 300), "/next"))

	first := s.ProcessPage(pageURL, resp)
	require.Equal(t, []string{"https://www.ics.uci.edu/next"}, first)
	before := s.Snapshot()

	assert.Empty(t, s.ProcessPage(pageURL, resp))
	// same identity under another scheme, case and fragment
	variant := "HTTP://WWW.ICS.UCI.EDU/dup#again"
	assert.Empty(t, s.ProcessPage(variant, htmlResponse(variant, htmlPage(words("other", 300), "/elsewhere"))))

	assert.Equal(t, before, s.Snapshot())
}

func TestProcessPageSizeGate(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		configure func(*Config)
	}{
		{"too short", words("short", 50), nil},
		{"too long", words("long", 300), func(c *Config) { c.MaxWords = 100 }},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, tt.configure)
			pageURL := testBaseURL + "/size"
			before := s.Snapshot()

			got := s.ProcessPage(pageURL, htmlResponse(pageURL, htmlPage(tt.text, "/linked")))

			assert.Empty(t, got)
			assert.Equal(t, before, s.Snapshot())
			assert.False(t, s.IsVisited(pageURL))
			assert.False(t, s.InFrontier(testBaseURL+"/linked"))
		})
	}
}

func TestProcessPageBounds(t *testing.T) {
	s, _ := newTestSession(t, func(c *Config) {
		c.MinWords = 10
		c.MaxWords = 12
	})

	// exactly MaxWords tokens: 1 title + 11 words
	at := testBaseURL + "/bounds"
	s.ProcessPage(at, htmlResponse(at, htmlPage(words("edge", 11))))
	assert.True(t, s.IsVisited(at))

	// exactly MinWords tokens
	low := testBaseURL + "/low"
	s.ProcessPage(low, htmlResponse(low, htmlPage(words("low", 9))))
	assert.True(t, s.IsVisited(low))
}

func TestProcessPagePDFLinkExcluded(t *testing.T) {
	s, _ := newTestSession(t, nil)
	pageURL := testBaseURL + "/papers"
	links := []string{
		"/files/paper.pdf",
		"https://vision.ics.uci.edu/slides/talk.PDF",
		"paper2.pdf#page=3",
	}

	got := s.ProcessPage(pageURL, htmlResponse(pageURL, htmlPage(words("pdf", 300), links...)))

	assert.Empty(t, got)
	assert.True(t, s.IsVisited(pageURL))
	assert.Equal(t, 0, s.FrontierCount())
}

func TestProcessPageStatusGate(t *testing.T) {
	s, _ := newTestSession(t, nil)
	body := htmlPage(words("status", 300), "/linked")
	pageURL := testBaseURL + "/status"

	for _, status := range []int{404, 500, 204, 403, 303} {
		resp := htmlResponse(pageURL, body)
		resp.StatusCode = status
		assert.Empty(t, s.ProcessPage(pageURL, resp), "status %d", status)
	}

	noBody := htmlResponse(pageURL, nil)
	assert.Empty(t, s.ProcessPage(pageURL, noBody))
	assert.Empty(t, s.ProcessPage(pageURL, nil))
	assert.Equal(t, 0, s.VisitedCount())

	// an accepted redirect status with a body is processed
	moved := htmlResponse(pageURL, body)
	moved.StatusCode = 301
	assert.Equal(t, []string{"https://www.ics.uci.edu/linked"}, s.ProcessPage(pageURL, moved))
}

func TestProcessPageValidatorAndPoliteness(t *testing.T) {
	s, _ := newTestSession(t, nil)
	body := htmlPage(words("gate", 300), "/linked")

	for _, u := range []string{
		"https://example.com/page",
		testBaseURL + "/report.pdf",
		testBaseURL + "/private/page",
		"not a url",
	} {
		assert.Empty(t, s.ProcessPage(u, htmlResponse(u, body)), u)
	}
	assert.Equal(t, 0, s.VisitedCount())

	ignoring, _ := newTestSession(t, func(c *Config) { c.IgnoreRobotsTxt = true })
	private := testBaseURL + "/private/page"
	assert.NotEmpty(t, ignoring.ProcessPage(private, htmlResponse(private, body)))
	assert.True(t, ignoring.IsVisited(private))
}

func TestProcessPageTrap(t *testing.T) {
	s, _ := newTestSession(t, func(c *Config) { c.TrapWindow = 2 })

	for i := 0; i < 3; i++ {
		u := fmt.Sprintf("%s/page%d", testBaseURL, i)
		require.NotEmpty(t, s.ProcessPage(u, htmlResponse(u, htmlPage(words(fmt.Sprintf("p%dw", i), 300), fmt.Sprintf("/from%d", i)))))
	}
	require.Equal(t, 3, s.HistoryLen())
	before := s.Snapshot()

	// same content as page1 at a new URL
	trapURL := testBaseURL + "/calendar?day=2"
	got := s.ProcessPage(trapURL, htmlResponse(trapURL, htmlPage(words("p1w", 300), "/trap-link")))

	assert.Empty(t, got)
	assert.True(t, s.IsVisited(trapURL))
	assert.Equal(t, 3, s.HistoryLen())
	assert.Equal(t, 1, s.WordCount("p1w0"))
	assert.False(t, s.InFrontier(testBaseURL+"/trap-link"))

	after := s.Snapshot()
	assert.Equal(t, before.WordCounts, after.WordCounts)
	assert.Equal(t, before.LongestPage, after.LongestPage)
	assert.Equal(t, before.VisitedCount+1, after.VisitedCount)

	// content different in every shingle still passes
	fresh := testBaseURL + "/fresh"
	s.ProcessPage(fresh, htmlResponse(fresh, htmlPage(words("fresh", 300))))
	assert.Equal(t, 4, s.HistoryLen())
}

func TestProcessPageColdStartNeverTraps(t *testing.T) {
	const window = 4
	s, _ := newTestSession(t, func(c *Config) { c.TrapWindow = window })
	text := words("same", 300)

	for i := 0; i < window+1; i++ {
		u := fmt.Sprintf("%s/copy%d", testBaseURL, i)
		s.ProcessPage(u, htmlResponse(u, htmlPage(text)))
	}
	assert.Equal(t, window+1, s.HistoryLen())

	u := testBaseURL + "/copy-last"
	s.ProcessPage(u, htmlResponse(u, htmlPage(text)))
	assert.Equal(t, window+1, s.HistoryLen())
	assert.Equal(t, window+1, s.WordCount("same0"))
}

func TestProcessPageRedirect(t *testing.T) {
	s, _ := newTestSession(t, nil)
	oldURL := testBaseURL + "/old"
	newURL := testBaseURL + "/new"

	seeded, ok := s.AddSeed(oldURL)
	require.True(t, ok)
	require.Equal(t, oldURL, seeded)

	resp := htmlResponse(oldURL, htmlPage(words("moved", 300), "/old", "/other"))
	resp.FinalURL = newURL

	got := s.ProcessPage(oldURL, resp)

	// the page linking back to its own alias does not re-queue it
	assert.Equal(t, []string{"https://www.ics.uci.edu/other"}, got)
	assert.True(t, s.IsVisited(oldURL))
	assert.True(t, s.IsVisited(newURL))
	assert.False(t, s.InFrontier(oldURL))
	assert.Equal(t, 1, s.RedirectCount())
	assert.Equal(t, 2, s.VisitedCount())
	assert.Equal(t, 1, s.Snapshot().UniquePages())
	assert.Equal(t, newURL, s.LongestPage().URL)
	require.NoError(t, s.Verify())

	// a second alias of an already visited page is rejected at the identity
	// gate and leaves the frontier without becoming visited
	_, ok = s.AddSeed(testBaseURL + "/old2")
	require.True(t, ok)
	again := htmlResponse(testBaseURL+"/old2", htmlPage(words("moved", 300)))
	again.FinalURL = newURL
	assert.Empty(t, s.ProcessPage("", again))
	assert.Equal(t, 1, s.RedirectCount())
	assert.False(t, s.IsVisited(testBaseURL+"/old2"))
	assert.False(t, s.InFrontier(testBaseURL+"/old2"))
	assert.Equal(t, 0, s.FrontierCount())
	require.NoError(t, s.Verify())
}

func TestProcessPageRedirectToTrap(t *testing.T) {
	s, _ := newTestSession(t, func(c *Config) { c.TrapWindow = 1 })
	for i := 0; i < 2; i++ {
		u := fmt.Sprintf("%s/page%d", testBaseURL, i)
		s.ProcessPage(u, htmlResponse(u, htmlPage(words(fmt.Sprintf("p%dw", i), 300))))
	}
	require.Equal(t, 2, s.HistoryLen())

	alias := testBaseURL + "/short"
	_, ok := s.AddSeed(alias)
	require.True(t, ok)

	resp := htmlResponse(alias, htmlPage(words("p0w", 300)))
	resp.FinalURL = testBaseURL + "/calendar?day=3"
	assert.Empty(t, s.ProcessPage(alias, resp))

	assert.True(t, s.IsVisited(resp.FinalURL))
	assert.False(t, s.IsVisited(alias))
	assert.False(t, s.InFrontier(alias))
	assert.Equal(t, 0, s.RedirectCount())
	assert.Equal(t, 0, s.FrontierCount())
}

func TestProcessPageNonASCIILink(t *testing.T) {
	s, _ := newTestSession(t, nil)
	home := testBaseURL + "/"
	got := s.ProcessPage(home, htmlResponse(home, htmlPage(words("home", 300), "/café", "/a{b}?q=é")))
	require.Len(t, got, 2)
	for _, u := range got {
		assert.Equal(t, strings.ToLower(u), u)
	}

	// the spelled-out escape is the same page
	assert.True(t, s.InFrontier(testBaseURL+"/caf%C3%A9"))

	for i, u := range got {
		s.ProcessPage(u, htmlResponse(u, htmlPage(words(fmt.Sprintf("n%dw", i), 300))))
		assert.True(t, s.IsVisited(u))
	}
	assert.Equal(t, 0, s.FrontierCount())
	require.NoError(t, s.Verify())
}

func TestProcessPageSchemeChangeIsNotRedirect(t *testing.T) {
	s, _ := newTestSession(t, nil)
	resp := htmlResponse("http://www.ics.uci.edu/secure", htmlPage(words("secure", 300)))
	resp.FinalURL = "https://www.ics.uci.edu/secure#top"

	s.ProcessPage("", resp)

	assert.Equal(t, 0, s.RedirectCount())
	assert.Equal(t, 1, s.VisitedCount())
}

func TestProcessPageBaseHref(t *testing.T) {
	s, _ := newTestSession(t, nil)
	pageURL := testBaseURL + "/based"
	body := []byte(`<html><head><base href="https://vision.ics.uci.edu/dir/"></head><body><p>` +
		words("base", 300) + `</p><a href="sub">x</a><a href="/root">y</a></body></html>`)

	got := s.ProcessPage(pageURL, htmlResponse(pageURL, body))

	assert.Equal(t, []string{
		"https://vision.ics.uci.edu/dir/sub",
		"https://vision.ics.uci.edu/root",
	}, got)
}

func TestProcessPageLongestAndSubdomains(t *testing.T) {
	s, _ := newTestSession(t, nil)
	pages := []struct {
		url    string
		tokens int
	}{
		{"https://www.ics.uci.edu/a", 300},
		{"https://vision.ics.uci.edu/b", 500},
		{"https://vision.ics.uci.edu/c", 400},
		{"https://www.cs.uci.edu/d", 600},
		{"https://ics.uci.edu/e", 260},
	}
	for i, p := range pages {
		s.ProcessPage(p.url, htmlResponse(p.url, htmlPage(words(fmt.Sprintf("s%dw", i), p.tokens))))
	}

	longest := s.LongestPage()
	assert.Equal(t, "https://www.cs.uci.edu/d", longest.URL)
	assert.Equal(t, 601, longest.WordCount)

	// ics.uci.edu itself does not match *.ics.uci.edu, www.cs.uci.edu is elsewhere
	assert.Equal(t, map[string]int{
		"www.ics.uci.edu":    1,
		"vision.ics.uci.edu": 2,
	}, s.Snapshot().SubdomainCounts)
}

func TestAddSeed(t *testing.T) {
	s, _ := newTestSession(t, nil)

	u, ok := s.AddSeed("HTTPS://www.ics.uci.edu/Seed#frag")
	require.True(t, ok)
	assert.Equal(t, "https://www.ics.uci.edu/seed", u)
	assert.True(t, s.InFrontier("http://www.ics.uci.edu/seed"))

	_, ok = s.AddSeed("http://www.ics.uci.edu/seed")
	assert.False(t, ok, "same identity twice")

	for _, bad := range []string{
		"https://example.com/",
		testBaseURL + "/private/x",
		testBaseURL + "/a.zip",
		"http://[::1",
	} {
		_, ok := s.AddSeed(bad)
		assert.False(t, ok, bad)
	}
	assert.Equal(t, 1, s.FrontierCount())
}

func TestSessionClose(t *testing.T) {
	s, _ := newTestSession(t, nil)
	require.NoError(t, s.Close())

	u := testBaseURL + "/late"
	assert.Empty(t, s.ProcessPage(u, htmlResponse(u, htmlPage(words("late", 300)))))
	assert.False(t, s.IsVisited(u))
	_, ok := s.AddSeed(testBaseURL + "/late-seed")
	assert.False(t, ok)
}

func TestSessionInvariantViolation(t *testing.T) {
	s, _ := newTestSession(t, nil)
	u := testBaseURL + "/page"
	s.ProcessPage(u, htmlResponse(u, htmlPage(words("inv", 300))))

	key, err := IdentityKey(u)
	require.NoError(t, err)
	s.mu.Lock()
	s.inFrontier[key] = struct{}{}
	s.mu.Unlock()

	assert.ErrorIs(t, s.Verify(), ErrInvariantViolation)
	assert.ErrorIs(t, s.Close(), ErrInvariantViolation)
}

func TestSessionFailedStopsProcessing(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.mu.Lock()
	s.failLocked(fmt.Errorf("%w: test", ErrInvariantViolation))
	s.mu.Unlock()

	assert.ErrorIs(t, s.Err(), ErrInvariantViolation)
	u := testBaseURL + "/after"
	assert.Empty(t, s.ProcessPage(u, htmlResponse(u, htmlPage(words("after", 300)))))
	assert.ErrorIs(t, s.Close(), ErrInvariantViolation)
}

func TestProcessPageConcurrent(t *testing.T) {
	s, mock := newTestSession(t, nil)
	const pages = 20

	targets := make([]string, 10)
	for i := range targets {
		targets[i] = fmt.Sprintf("/target%d", i)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted = make(map[string]int)
	)
	process := func(u string, body []byte) {
		defer wg.Done()
		for _, link := range s.ProcessPage(u, htmlResponse(u, body)) {
			mu.Lock()
			admitted[link]++
			mu.Unlock()
		}
	}

	for i := 0; i < pages; i++ {
		u := fmt.Sprintf("%s/concurrent%d", testBaseURL, i)
		wg.Add(1)
		go process(u, htmlPage(words(fmt.Sprintf("c%dw", i), 300), targets...))
	}
	// one page delivered many times at once
	dup := testBaseURL + "/hot"
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go process(dup, htmlPage(words("hot", 300), targets...))
	}
	wg.Wait()

	assert.Len(t, admitted, len(targets))
	for link, n := range admitted {
		assert.Equal(t, 1, n, "%s admitted more than once", link)
	}
	assert.Equal(t, pages+1, s.VisitedCount())
	assert.Equal(t, pages+1, s.HistoryLen())
	assert.Equal(t, 1, s.WordCount("hot0"))
	assert.Equal(t, 1, mock.Requests(testBaseURL+"/robots.txt"))
	assert.NoError(t, s.Verify())
}
