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
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newReportCmd(c *cli) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the report of a stored run (latest by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.GetLatestRun()
			if runID != "" {
				run, err = st.GetRun(runID)
			}
			if err != nil {
				return err
			}
			if run == nil {
				return errors.New("no crawl runs stored")
			}

			report := run.Report()
			if c.cfg.Report.Format == "markdown" {
				return report.WriteMarkdown(cmd.OutOrStdout(), fmt.Sprintf("Crawl %s", run.RunID))
			}
			return report.WriteText(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default: latest run)")
	cmd.Flags().StringP("format", "f", "text", "Output format: text, markdown")
	return cmd
}
