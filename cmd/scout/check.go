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
	"fmt"
	"text/tabwriter"

	"github.com/agentberlin/scout"
	"github.com/spf13/cobra"
)

func newCheckCmd(c *cli) *cobra.Command {
	var withRobots bool

	cmd := &cobra.Command{
		Use:   "check <url>...",
		Short: "Explain whether URLs would be admitted to the frontier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.newSession()
			if err != nil {
				return err
			}
			defer session.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "URL\tVERDICT\tREASON")
			for _, raw := range args {
				verdict, reason := explain(session, raw, withRobots)
				fmt.Fprintf(tw, "%s\t%s\t%s\n", raw, verdict, reason)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringSlice("domain", nil, "Allowed domain suffix (repeatable)")
	cmd.Flags().BoolVar(&withRobots, "robots", true, "Also consult robots.txt")
	return cmd
}

func explain(session *scout.Session, raw string, withRobots bool) (string, string) {
	u, err := scout.Canonicalize(raw, "")
	if err != nil {
		return "rejected", err.Error()
	}
	if reason := session.Validator().Explain(u); reason != "" {
		return "rejected", reason
	}
	if withRobots && !session.IsAllowed(u.NormalizedURL) {
		return "rejected", "disallowed by robots.txt"
	}
	return "eligible", u.NormalizedURL
}
