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

package mcp

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentberlin/scout"
	"github.com/agentberlin/scout/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer creates a server whose robots.txt lookups are answered
// by a mock transport, backed by a temporary database
func setupTestServer(t *testing.T) (*MCPServer, *store.Store) {
	t.Helper()

	st, err := store.NewStoreForTesting(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	transport := scout.NewMockTransport()
	transport.RegisterRobots("https://www.ics.uci.edu", "User-agent: *\nDisallow: /private/\n")

	cfg := scout.NewDefaultConfig()
	cfg.HTTPClient = transport.Client()
	session, err := scout.NewSession(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return NewMCPServer(session, st, zerolog.Nop()), st
}

func TestServerInitialization(t *testing.T) {
	s, _ := setupTestServer(t)
	assert.NotNil(t, s.GetServer())
}

func TestIsEligibleTool(t *testing.T) {
	s, _ := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		url      string
		eligible bool
		allowed  bool
		reason   string
	}{
		{"allowed page", "https://www.ics.uci.edu/about", true, true, ""},
		{"robots disallow", "https://www.ics.uci.edu/private/x", true, false, "disallowed by robots.txt"},
		{"excluded extension", "https://www.ics.uci.edu/a.pdf", false, false, "excluded extension .pdf"},
		{"foreign host", "https://example.com/", false, false, "outside allowed domains"},
		{"malformed", "http://[::1", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, result, err := s.handleIsEligible(ctx, nil, IsEligibleArgs{URL: tt.url})
			require.NoError(t, err)
			assert.Equal(t, tt.eligible, result.Eligible)
			assert.Equal(t, tt.allowed, result.Allowed)
			if tt.reason != "" {
				assert.Contains(t, result.Reason, tt.reason)
			}
			if !tt.eligible {
				assert.NotEmpty(t, result.Reason)
			}
		})
	}
}

func TestCanonicalizeTool(t *testing.T) {
	s, _ := setupTestServer(t)
	ctx := context.Background()

	_, result, err := s.handleCanonicalize(ctx, nil, CanonicalizeArgs{URL: "../b#frag", Base: "https://www.ics.uci.edu/a/c"})
	require.NoError(t, err)
	assert.Empty(t, result.Error)
	assert.Equal(t, "https://www.ics.uci.edu/b", result.NormalizedURL)
	assert.NotEmpty(t, result.IdentityKey)

	_, result, err = s.handleCanonicalize(ctx, nil, CanonicalizeArgs{URL: "http://[::1"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Error)
}

func TestReportTools(t *testing.T) {
	s, st := setupTestServer(t)
	ctx := context.Background()

	t.Run("NoRuns", func(t *testing.T) {
		_, _, err := s.handleGetReport(ctx, nil, GetReportArgs{})
		require.Error(t, err)
	})

	run, err := st.SaveReport(store.RunInfo{Seeds: []string{"https://www.ics.uci.edu"}, StartedAt: time.Now(), Fetched: 4}, &scout.Report{
		UniquePages: 4,
		LongestPage: scout.LongestPage{URL: "https://www.ics.uci.edu/about", WordCount: 321},
		Words:       []scout.WordCount{{Word: "informatics", Count: 9}},
		Subdomains:  []scout.SubdomainCount{{Host: "www.ics.uci.edu", Count: 4}},
	})
	require.NoError(t, err)

	t.Run("ListRuns", func(t *testing.T) {
		_, result, err := s.handleListRuns(ctx, nil, ListRunsArgs{})
		require.NoError(t, err)
		require.Len(t, result.Runs, 1)
		assert.Equal(t, run.RunID, result.Runs[0].RunID)
		assert.Equal(t, 4, result.Runs[0].UniquePages)
		assert.Equal(t, store.RunStateCompleted, result.Runs[0].State)
	})

	t.Run("LatestText", func(t *testing.T) {
		res, result, err := s.handleGetReport(ctx, nil, GetReportArgs{})
		require.NoError(t, err)
		assert.Equal(t, run.RunID, result.RunID)
		assert.Equal(t, 4, result.Report.UniquePages)
		require.Len(t, res.Content, 1)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "Unique pages: 4")
		assert.Contains(t, text.Text, "informatics")
	})

	t.Run("ByIDMarkdown", func(t *testing.T) {
		res, _, err := s.handleGetReport(ctx, nil, GetReportArgs{RunID: run.RunID, Format: "markdown"})
		require.NoError(t, err)
		text := res.Content[0].(*mcp.TextContent)
		assert.Contains(t, text.Text, "# Crawl "+run.RunID)
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		_, _, err := s.handleGetReport(ctx, nil, GetReportArgs{Format: "html"})
		require.Error(t, err)
	})

	t.Run("UnknownRun", func(t *testing.T) {
		_, _, err := s.handleGetReport(ctx, nil, GetReportArgs{RunID: "missing"})
		assert.ErrorIs(t, err, store.ErrRunNotFound)
	})
}

func TestReportToolsWithoutStore(t *testing.T) {
	session, err := scout.NewSession(nil)
	require.NoError(t, err)
	s := NewMCPServer(session, nil, zerolog.Nop())

	_, _, err = s.handleListRuns(context.Background(), nil, ListRunsArgs{})
	assert.Error(t, err)
}
