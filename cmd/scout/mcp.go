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
	"os/signal"
	"syscall"
	"time"

	"github.com/agentberlin/scout/internal/mcp"
	"github.com/agentberlin/scout/internal/store"
	"github.com/spf13/cobra"
)

func newMCPCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the scout MCP tools over stdio, or HTTP with --http",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.newSession()
			if err != nil {
				return err
			}
			defer session.Close()

			var st *store.Store
			if c.cfg.Store.Enabled {
				if st, err = c.openStore(); err != nil {
					return err
				}
				defer st.Close()
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := mcp.NewMCPServer(session, st, c.logger)
			if addr == "" {
				return server.RunStdio(ctx)
			}

			httpServer, err := server.RunHTTP(addr)
			if err != nil {
				return err
			}
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "http", "", "Listen address for the streamable HTTP transport, e.g. localhost:8080")
	return cmd
}
