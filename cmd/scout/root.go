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
	"io"

	"github.com/agentberlin/scout"
	"github.com/agentberlin/scout/internal/config"
	"github.com/agentberlin/scout/internal/logging"
	"github.com/agentberlin/scout/internal/store"
	"github.com/agentberlin/scout/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli holds what every command needs once flags are parsed
type cli struct {
	configPath string

	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
}

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	c := &cli{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Focused web crawler with trap detection",
		Long: `Scout crawls a set of allowed domains, skipping low-value URLs,
pages outside the size bounds and near-duplicate pages, and reports the
unique pages, the longest page, the most frequent words and the pages
per subdomain.

Settings are read from scout.yaml (., ./configs, ~/.scout), SCOUT_*
environment variables and flags, later sources winning.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.logCloser != nil {
				return c.logCloser.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default: scout.yaml in ., ./configs or ~/.scout)")
	cmd.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("log-dir", "", "Also write rotating logs to this directory")
	cmd.PersistentFlags().String("store-dir", "", "Directory of the report database (default: ~/.scout)")

	cmd.AddCommand(newCrawlCmd(c))
	cmd.AddCommand(newCheckCmd(c))
	cmd.AddCommand(newListCmd(c))
	cmd.AddCommand(newReportCmd(c))
	cmd.AddCommand(newDeleteCmd(c))
	cmd.AddCommand(newMCPCmd(c))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (c *cli) init(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, closer, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.logger = logger
	c.logCloser = closer

	if used := cfg.ConfigFileUsed(); used != "" {
		c.logger.Debug().Str("file", used).Msg("config loaded")
	}
	return nil
}

// newSession builds a crawl session from the loaded configuration
func (c *cli) newSession() (*scout.Session, error) {
	return scout.NewSession(c.cfg.Core(&c.logger, nil))
}

// openStore opens the report database. Commands that only read reports
// call it regardless of store.enabled.
func (c *cli) openStore() (*store.Store, error) {
	st, err := store.NewStore(c.cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}
	return st, nil
}
