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

// Scout CLI
//
// Command-line interface for the scout focused crawler.
//
// Usage:
//
//	scout <command> [flags]
//
// Commands:
//
//	crawl     Crawl from one or more seed URLs and write the report
//	check     Explain whether URLs would be admitted to the frontier
//	list      List stored crawl runs
//	report    Print the report of a stored run
//	delete    Delete stored runs
//	mcp       Serve the MCP tools over stdio or HTTP
//	version   Show version information
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
