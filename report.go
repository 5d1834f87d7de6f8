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
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/kennygrant/sanitize"
	"github.com/nao1215/markdown"
)

// WordCount is one row of the word table
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// SubdomainCount is one row of the subdomain table
type SubdomainCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

// Report is the end-of-crawl summary of a session
type Report struct {
	UniquePages int              `json:"uniquePages"`
	LongestPage LongestPage      `json:"longestPage"`
	Words       []WordCount      `json:"words"`
	Subdomains  []SubdomainCount `json:"subdomains"`
}

// Report builds the report of the session's current state
func (s *Session) Report() *Report {
	return BuildReport(s.Snapshot(), s.cfg)
}

// BuildReport summarizes snap. The word table holds the cfg.TopWords most
// frequent words; with cfg.LegacyWordOrder it holds the first cfg.TopWords
// words in ascending count order instead. Subdomains are sorted by host.
func BuildReport(snap Snapshot, cfg *Config) *Report {
	cfg = mergeDefaults(cfg)

	words := make([]WordCount, 0, len(snap.WordCounts))
	for w, c := range snap.WordCounts {
		words = append(words, WordCount{Word: w, Count: c})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			if cfg.LegacyWordOrder {
				return words[i].Count < words[j].Count
			}
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > cfg.TopWords {
		words = words[:cfg.TopWords]
	}

	subdomains := make([]SubdomainCount, 0, len(snap.SubdomainCounts))
	for h, c := range snap.SubdomainCounts {
		subdomains = append(subdomains, SubdomainCount{Host: h, Count: c})
	}
	sort.Slice(subdomains, func(i, j int) bool {
		return subdomains[i].Host < subdomains[j].Host
	})

	return &Report{
		UniquePages: snap.UniquePages(),
		LongestPage: snap.LongestPage,
		Words:       words,
		Subdomains:  subdomains,
	}
}

// WriteText writes the plain text report
func (r *Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Unique pages: %d\n\n", r.UniquePages)
	fmt.Fprintf(bw, "Longest page: %s, %d\n\n", r.LongestPage.URL, r.LongestPage.WordCount)

	fmt.Fprintf(bw, "Top %d words:\n", len(r.Words))
	for _, wc := range r.Words {
		fmt.Fprintf(bw, "\t%s\n", wc.Word)
	}
	bw.WriteString("\n")

	fmt.Fprintf(bw, "Subdomains: %d\n", len(r.Subdomains))
	for _, sc := range r.Subdomains {
		fmt.Fprintf(bw, "%s, %d\n", sc.Host, sc.Count)
	}
	return bw.Flush()
}

// WriteMarkdown writes the report as a Markdown document
func (r *Report) WriteMarkdown(w io.Writer, title string) error {
	if title == "" {
		title = "Crawl Report"
	}
	md := markdown.NewMarkdown(w)
	md.H1(title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Unique Pages", strconv.Itoa(r.UniquePages)},
			{"Longest Page", r.LongestPage.URL},
			{"Longest Page Words", strconv.Itoa(r.LongestPage.WordCount)},
		},
	})
	md.PlainText("")

	md.H2("Words")
	md.PlainText("")
	if len(r.Words) == 0 {
		md.PlainText("No words recorded.")
	} else {
		rows := make([][]string, 0, len(r.Words))
		for i, wc := range r.Words {
			rows = append(rows, []string{strconv.Itoa(i + 1), wc.Word, strconv.Itoa(wc.Count)})
		}
		md.Table(markdown.TableSet{Header: []string{"#", "Word", "Count"}, Rows: rows})
	}
	md.PlainText("")

	md.H2("Subdomains")
	md.PlainText("")
	if len(r.Subdomains) == 0 {
		md.PlainText("No subdomains matched.")
	} else {
		items := make([]string, 0, len(r.Subdomains))
		for _, sc := range r.Subdomains {
			items = append(items, fmt.Sprintf("`%s`, %d", sc.Host, sc.Count))
		}
		md.BulletList(items...)
	}

	return md.Build()
}

// ReportFileName turns name into a safe file name with the given extension
func ReportFileName(name, ext string) string {
	ext = sanitize.BaseName(strings.TrimLeft(ext, "."))
	if ext == "" {
		ext = "txt"
	}
	base := sanitize.BaseName(name)
	if base == "" {
		base = "report"
	}
	return strings.Replace(base, "-", "_", -1) + "." + ext
}
