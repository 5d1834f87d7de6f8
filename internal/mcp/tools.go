package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentberlin/scout"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "is_eligible",
		Description: "Checks whether a URL would be admitted to the crawl frontier (domain, extension, path and robots.txt rules)",
	}, s.handleIsEligible)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canonicalize_url",
		Description: "Returns the canonical form and deduplication identity key of a URL, optionally resolved against a base URL",
	}, s.handleCanonicalize)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "Lists stored crawl runs, newest first",
	}, s.handleListRuns)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_report",
		Description: "Returns the report of a stored crawl run (latest run when runId is empty) as text or markdown",
	}, s.handleGetReport)
}

// IsEligibleArgs defines the input schema for is_eligible tool
type IsEligibleArgs struct {
	URL string `json:"url"`
}

// IsEligibleResult defines the output schema for is_eligible tool
type IsEligibleResult struct {
	URL         string `json:"url"`
	IdentityKey string `json:"identityKey,omitempty"`
	Eligible    bool   `json:"eligible"`
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
}

func (s *MCPServer) handleIsEligible(ctx context.Context, req *mcp.CallToolRequest, args IsEligibleArgs) (*mcp.CallToolResult, IsEligibleResult, error) {
	s.logger.Debug().Str("tool", "is_eligible").Str("url", args.URL).Msg("tool called")

	result := IsEligibleResult{URL: args.URL}
	c, err := scout.Canonicalize(args.URL, "")
	if err != nil {
		result.Reason = err.Error()
		return nil, result, nil
	}
	result.URL = c.NormalizedURL
	result.IdentityKey = c.IdentityKey

	if reason := s.session.Validator().Explain(c); reason != "" {
		result.Reason = reason
		return nil, result, nil
	}
	result.Eligible = true
	result.Allowed = s.session.IsAllowed(c.NormalizedURL)
	if !result.Allowed {
		result.Reason = "disallowed by robots.txt"
	}
	return nil, result, nil
}

// CanonicalizeArgs defines the input schema for canonicalize_url tool
type CanonicalizeArgs struct {
	URL  string `json:"url"`
	Base string `json:"base,omitempty"`
}

// CanonicalizeResult defines the output schema for canonicalize_url tool
type CanonicalizeResult struct {
	NormalizedURL string `json:"normalizedUrl,omitempty"`
	IdentityKey   string `json:"identityKey,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (s *MCPServer) handleCanonicalize(ctx context.Context, req *mcp.CallToolRequest, args CanonicalizeArgs) (*mcp.CallToolResult, CanonicalizeResult, error) {
	c, err := scout.Canonicalize(args.URL, args.Base)
	if err != nil {
		return nil, CanonicalizeResult{Error: err.Error()}, nil
	}
	return nil, CanonicalizeResult{NormalizedURL: c.NormalizedURL, IdentityKey: c.IdentityKey}, nil
}

// ListRunsArgs defines the input schema for list_runs tool
type ListRunsArgs struct {
	Limit int `json:"limit,omitempty"`
}

// RunSummary is one entry of the list_runs result
type RunSummary struct {
	RunID       string `json:"runId"`
	StartedAt   string `json:"startedAt"`
	DurationMs  int64  `json:"durationMs"`
	Fetched     int    `json:"fetched"`
	UniquePages int    `json:"uniquePages"`
	State       string `json:"state"`
}

// ListRunsResult defines the output schema for list_runs tool
type ListRunsResult struct {
	Runs []RunSummary `json:"runs"`
}

func (s *MCPServer) handleListRuns(ctx context.Context, req *mcp.CallToolRequest, args ListRunsArgs) (*mcp.CallToolResult, ListRunsResult, error) {
	if s.store == nil {
		return nil, ListRunsResult{}, errors.New("no report store configured")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		return nil, ListRunsResult{}, err
	}

	result := ListRunsResult{Runs: make([]RunSummary, 0, len(runs))}
	for _, r := range runs {
		result.Runs = append(result.Runs, RunSummary{
			RunID:       r.RunID,
			StartedAt:   time.Unix(r.StartedAt, 0).UTC().Format(time.RFC3339),
			DurationMs:  r.DurationMs,
			Fetched:     r.Fetched,
			UniquePages: r.UniquePages,
			State:       r.State,
		})
	}
	return nil, result, nil
}

// GetReportArgs defines the input schema for get_report tool
type GetReportArgs struct {
	RunID  string `json:"runId,omitempty"`
	Format string `json:"format,omitempty"`
}

// GetReportResult defines the output schema for get_report tool
type GetReportResult struct {
	RunID  string        `json:"runId"`
	Report *scout.Report `json:"report"`
}

func (s *MCPServer) handleGetReport(ctx context.Context, req *mcp.CallToolRequest, args GetReportArgs) (*mcp.CallToolResult, GetReportResult, error) {
	if s.store == nil {
		return nil, GetReportResult{}, errors.New("no report store configured")
	}

	run, err := s.store.GetLatestRun()
	if args.RunID != "" {
		run, err = s.store.GetRun(args.RunID)
	}
	if err != nil {
		return nil, GetReportResult{}, err
	}
	if run == nil {
		return nil, GetReportResult{}, errors.New("no crawl runs stored")
	}

	report := run.Report()
	var buf bytes.Buffer
	switch args.Format {
	case "", "text":
		err = report.WriteText(&buf)
	case "markdown":
		err = report.WriteMarkdown(&buf, "Crawl "+run.RunID)
	default:
		return nil, GetReportResult{}, fmt.Errorf("unknown format %q (want text or markdown)", args.Format)
	}
	if err != nil {
		return nil, GetReportResult{}, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: buf.String()},
		},
	}, GetReportResult{RunID: run.RunID, Report: report}, nil
}
