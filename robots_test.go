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
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestRobots(mock *MockTransport) *RobotsCache {
	return NewRobotsCache(mock.Client(), DefaultUserAgent, 0, zerolog.Nop())
}

func TestRobotsPathRules(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterRobots(testBaseURL, robotsFile)
	rc := newTestRobots(mock)

	tests := []struct {
		url     string
		verdict Verdict
	}{
		{testBaseURL + "/allowed", VerdictAllowed},
		{testBaseURL + "/allowed/page", VerdictAllowed},
		{testBaseURL + "/private/notes", VerdictDenied},
		{testBaseURL + "/allowed?q=1", VerdictDenied},
		{testBaseURL + "/other", VerdictAllowed},
		// fragments and case do not change the verdict
		{"HTTPS://WWW.ICS.UCI.EDU/PRIVATE/x#frag", VerdictDenied},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.verdict, rc.Check(tt.url))
			assert.Equal(t, tt.verdict != VerdictDenied, rc.IsAllowed(tt.url))
		})
	}

	assert.Equal(t, 1, mock.Requests(testBaseURL+"/robots.txt"))
	assert.True(t, rc.Resolved(testBaseURL))
	assert.Equal(t, 1, rc.Len())
}

func TestRobotsUserAgentGroup(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterRobots("https://vision.ics.uci.edu", "User-agent: scout\nDisallow: /\n\nUser-agent: *\nAllow: /\n")
	rc := newTestRobots(mock)

	assert.Equal(t, VerdictDenied, rc.Check("https://vision.ics.uci.edu/anything"))

	other := NewRobotsCache(mock.Client(), "otherbot/2.0", 0, zerolog.Nop())
	assert.Equal(t, VerdictAllowed, other.Check("https://vision.ics.uci.edu/anything"))
}

func TestRobotsFetchedOncePerOrigin(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterRobots(testBaseURL, robotsFile)
	rc := newTestRobots(mock)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc.IsAllowed(testBaseURL + "/allowed")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mock.Requests(testBaseURL+"/robots.txt"))

	// another scheme is another origin
	rc.IsAllowed("http://www.ics.uci.edu/allowed")
	assert.Equal(t, 1, mock.Requests("http://www.ics.uci.edu/robots.txt"))
	assert.Equal(t, 2, rc.Len())
}

func TestRobotsFailOpen(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterResponse("https://down.ics.uci.edu/robots.txt", &MockResponse{StatusCode: http.StatusServiceUnavailable})
	mock.RegisterError("https://broken.ics.uci.edu/robots.txt", errors.New("connection reset"))
	mock.RegisterResponse("https://gone.ics.uci.edu/robots.txt", &MockResponse{StatusCode: http.StatusForbidden})
	rc := newTestRobots(mock)

	tests := []struct {
		name    string
		url     string
		verdict Verdict
	}{
		{"missing", "https://www.cs.uci.edu/page", VerdictAllowed},
		{"client error", "https://gone.ics.uci.edu/page", VerdictAllowed},
		{"server error", "https://down.ics.uci.edu/page", VerdictUnknown},
		{"network error", "https://broken.ics.uci.edu/page", VerdictUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.verdict, rc.Check(tt.url))
			assert.True(t, rc.IsAllowed(tt.url))
		})
	}

	// failures are cached for the session as well
	rc.IsAllowed("https://down.ics.uci.edu/other")
	assert.Equal(t, 1, mock.Requests("https://down.ics.uci.edu/robots.txt"))
}

func TestRobotsMalformedURL(t *testing.T) {
	rc := newTestRobots(NewMockTransport())
	assert.False(t, rc.IsAllowed("http://[::1"))
	assert.Equal(t, VerdictUnknown, rc.Check("http://[::1"))
	assert.Equal(t, 0, rc.Len())
}

func TestRobotsSitemaps(t *testing.T) {
	mock := NewMockTransport()
	mock.RegisterRobots(testBaseURL, robotsFile)
	rc := newTestRobots(mock)

	assert.Equal(t, []string{"https://www.ics.uci.edu/sitemap.xml"}, rc.Sitemaps(testBaseURL))
	assert.Empty(t, rc.Sitemaps("https://www.cs.uci.edu"))
}

func TestVerdict(t *testing.T) {
	assert.Equal(t, "allowed", VerdictAllowed.String())
	assert.Equal(t, "denied", VerdictDenied.String())
	assert.Equal(t, "unknown", VerdictUnknown.String())
	assert.True(t, VerdictUnknown.Permits())
	assert.True(t, VerdictAllowed.Permits())
	assert.False(t, VerdictDenied.Permits())
}
