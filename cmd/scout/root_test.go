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
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentberlin/scout"
	"github.com/agentberlin/scout/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "scout ")
}

func TestCheckCommand(t *testing.T) {
	out, err := runCmd(t, "check", "--robots=false",
		"https://www.ics.uci.edu/about#team",
		"https://www.ics.uci.edu/paper.pdf",
		"https://example.com/",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "https://www.ics.uci.edu/about")
	assert.Contains(t, out, "excluded extension .pdf")
	assert.Contains(t, out, "outside allowed domains")
}

func TestCheckCommandDomainFlag(t *testing.T) {
	out, err := runCmd(t, "check", "--robots=false", "--domain", "example.com", "https://example.com/page")
	require.NoError(t, err)
	assert.Contains(t, out, "eligible")
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewStore(dir)
	require.NoError(t, err)
	run, err := st.SaveReport(store.RunInfo{Seeds: []string{"https://www.ics.uci.edu"}, StartedAt: time.Now()}, &scout.Report{
		UniquePages: 3,
		LongestPage: scout.LongestPage{URL: "https://www.ics.uci.edu/a", WordCount: 400},
		Words:       []scout.WordCount{{Word: "research", Count: 12}},
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runCmd(t, "report", "--store-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Unique pages: 3")
	assert.Contains(t, out, "research")

	out, err = runCmd(t, "list", "--store-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "completed")

	out, err = runCmd(t, "delete", "--store-dir", dir, run.RunID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+run.RunID)

	out, err = runCmd(t, "list", "--store-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No crawl runs found.")

	_, err = runCmd(t, "delete", "--store-dir", dir, run.RunID)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestReportCommandEmptyStore(t *testing.T) {
	_, err := runCmd(t, "report", "--store-dir", filepath.Join(t.TempDir(), "db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no crawl runs")
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := runCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "list")
	require.Error(t, err)
}
