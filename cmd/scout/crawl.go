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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/agentberlin/scout"
	"github.com/agentberlin/scout/internal/store"
	"github.com/spf13/cobra"
)

func newCrawlCmd(c *cli) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "crawl <seed-url>...",
		Short: "Crawl from seed URLs and write the report",
		Example: `  # Crawl the default UCI domains
  scout crawl https://www.ics.uci.edu

  # Crawl another site with a page budget and a markdown report
  scout crawl https://example.com --domain example.com --max-pages 500 --format markdown`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCrawl(cmd, args, quiet)
		},
	}

	f := cmd.Flags()
	f.IntP("parallelism", "p", 4, "Number of concurrent fetches")
	f.Int("max-pages", 0, "Stop after this many fetches (0 = unlimited)")
	f.Float64("rate", 0, "Maximum requests per second (0 = unlimited)")
	f.Duration("delay", 500*time.Millisecond, "Delay between requests")
	f.Bool("sitemaps", false, "Seed the frontier from sitemaps listed in robots.txt")
	f.Bool("trace", false, "Log connect and first byte timings of every fetch (debug level)")
	f.StringSlice("domain", nil, "Allowed domain suffix (repeatable)")
	f.Int("min-words", 0, "Minimum tokens per page")
	f.Int("max-words", 0, "Maximum tokens per page")
	f.Float64("threshold", 0, "Near-duplicate similarity threshold")
	f.Int("window", 0, "Number of recent pages compared for near-duplicates")
	f.String("user-agent", "", "User agent for requests and robots.txt")
	f.Bool("ignore-robots", false, "Do not consult robots.txt")
	f.StringP("report-dir", "o", ".", "Directory the report file is written to")
	f.StringP("format", "f", "text", "Report format: text, markdown")
	f.Int("top-words", 0, "Number of words in the report")
	f.Bool("legacy-order", false, "List words by ascending count")
	f.Bool("store", true, "Save the report to the database")
	f.BoolVarP(&quiet, "quiet", "q", false, "Suppress progress and report output")

	return cmd
}

func (c *cli) runCrawl(cmd *cobra.Command, seeds []string, quiet bool) error {
	session, err := c.newSession()
	if err != nil {
		return fmt.Errorf("failed to configure crawl: %v", err)
	}
	crawler, err := scout.NewCrawler(session, c.cfg.Crawler())
	if err != nil {
		return fmt.Errorf("failed to configure crawl: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	started := time.Now()
	if err := crawler.Start(ctx, seeds...); err != nil {
		return err
	}
	progressCtx, stopProgress := context.WithCancel(ctx)
	if !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Starting crawl of %d seed(s)...\n", len(seeds))
		go showProgress(progressCtx, cmd, crawler)
	}

	waitErr := crawler.Wait()
	stopProgress()
	duration := time.Since(started)

	state := store.RunStateCompleted
	switch {
	case waitErr != nil:
		state = store.RunStateFailed
	case ctx.Err() != nil:
		state = store.RunStateStopped
	}
	if closeErr := session.Close(); closeErr != nil && !errors.Is(closeErr, waitErr) {
		c.logger.Error().Err(closeErr).Msg("session verification failed")
		if waitErr == nil {
			waitErr = closeErr
			state = store.RunStateFailed
		}
	}

	report := session.Report()
	path, err := c.writeReportFile(report, seeds[0])
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n\nCrawl %s in %s, %d pages fetched\n\n", state, duration.Round(time.Millisecond), crawler.Fetched())
		if err := report.WriteText(out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\nReport written to %s\n", path)
	}

	if c.cfg.Store.Enabled {
		st, err := c.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		run, err := st.SaveReport(store.RunInfo{
			Seeds:     seeds,
			StartedAt: started,
			Duration:  duration,
			Fetched:   crawler.Fetched(),
			State:     state,
			Err:       waitErr,
		}, report)
		if err != nil {
			return err
		}
		c.logger.Info().Str("run_id", run.RunID).Str("state", state).Msg("report saved")
	}

	return waitErr
}

// writeReportFile writes the report next to earlier ones, named after the
// host of the first seed
func (c *cli) writeReportFile(report *scout.Report, seed string) (string, error) {
	name := "report"
	if u, err := scout.Canonicalize(seed, ""); err == nil {
		name = "report-" + u.Host()
	}

	ext := "txt"
	if c.cfg.Report.Format == "markdown" {
		ext = "md"
	}

	dir := c.cfg.Report.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %v", err)
	}
	path := filepath.Join(dir, scout.ReportFileName(name, ext))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %v", err)
	}
	defer f.Close()

	if ext == "md" {
		err = report.WriteMarkdown(f, "Crawl report: "+seed)
	} else {
		err = report.WriteText(f)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write report: %v", err)
	}
	return path, nil
}

// showProgress prints a status line every second until ctx ends
func showProgress(ctx context.Context, cmd *cobra.Command, crawler *scout.Crawler) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := crawler.Session.Snapshot()
			fmt.Fprintf(cmd.ErrOrStderr(), "\rFetched: %d | Unique pages: %d | Frontier: %d | Redirects: %d",
				crawler.Fetched(), snap.UniquePages(), snap.FrontierCount, snap.RedirectCount)
		}
	}
}
