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
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultUserAgent identifies the crawler in requests and robots.txt lookups
const DefaultUserAgent = "scout/1.0 (+https://snake.blue)"

// Config contains all configuration options for a crawl Session
type Config struct {
	// AllowedDomains lists the host suffixes a URL must belong to.
	// "ics.uci.edu" matches the host itself and every subdomain of it.
	// Entries containing glob meta characters (*?[{) are compiled as-is.
	AllowedDomains []string
	// SubdomainPattern is a glob matched against the host of every committed
	// page. Matching hosts are counted in the subdomain table of the report.
	// Default: "*.ics.uci.edu"
	SubdomainPattern string
	// ExcludedExtensions are file extensions (without dot) rejected by suffix
	// match on the URL path
	ExcludedExtensions []string
	// LowValuePathPatterns are substrings that reject a URL when found in its path.
	// Default: ["/pdf"]
	LowValuePathPatterns []string
	// MaxURLLength rejects URLs whose normalized form is longer; zero means
	// unlimited
	MaxURLLength int
	// MinWords is the smallest token count a page may have (inclusive)
	MinWords int
	// MaxWords is the largest token count a page may have (inclusive)
	MaxWords int
	// SimilarityThreshold is the Jaccard similarity at or above which a page is
	// considered a near-duplicate of a page in the trap window
	SimilarityThreshold float64
	// TrapWindow is the number of history fingerprints compared per page
	TrapWindow int
	// ShingleSize is the number of consecutive tokens per shingle
	ShingleSize int
	// SampleModulus keeps shingle hashes h with h % SampleModulus == 0
	SampleModulus uint64
	// UserAgent is used for robots.txt group selection and for requests
	UserAgent string
	// PolicyTimeout bounds a single robots.txt fetch
	PolicyTimeout time.Duration
	// IgnoreRobotsTxt skips the politeness gate entirely
	IgnoreRobotsTxt bool
	// DetectCharset enables charset sniffing for bodies without a declared charset
	DetectCharset bool
	// TopWords is the number of words listed in the report
	TopWords int
	// LegacyWordOrder sorts words by ascending count before truncating, which
	// lists the least frequent words. Off by default.
	LegacyWordOrder bool
	// HTTPClient is used for robots.txt fetches. Defaults to a client with
	// PolicyTimeout as its timeout.
	HTTPClient *http.Client
	// Logger receives structured session events. nil disables logging.
	Logger *zerolog.Logger
}

// NewDefaultConfig returns a Config with the defaults of the UCI crawl
func NewDefaultConfig() *Config {
	return &Config{
		AllowedDomains: []string{
			"ics.uci.edu",
			"cs.uci.edu",
			"informatics.uci.edu",
			"stat.uci.edu",
		},
		SubdomainPattern:     "*.ics.uci.edu",
		ExcludedExtensions:   defaultExcludedExtensions(),
		LowValuePathPatterns: []string{"/pdf"},
		MinWords:             250,
		MaxWords:             10000,
		SimilarityThreshold:  0.9,
		TrapWindow:           25,
		ShingleSize:          3,
		SampleModulus:        4,
		UserAgent:            DefaultUserAgent,
		PolicyTimeout:        10 * time.Second,
		IgnoreRobotsTxt:      false,
		DetectCharset:        true,
		TopWords:             50,
		LegacyWordOrder:      false,
	}
}

// mergeDefaults returns a copy of c where every zero-valued field is taken
// from NewDefaultConfig. Booleans are kept as given.
func mergeDefaults(c *Config) *Config {
	merged := NewDefaultConfig()
	if c == nil {
		return merged
	}
	if c.AllowedDomains != nil {
		merged.AllowedDomains = c.AllowedDomains
	}
	if c.SubdomainPattern != "" {
		merged.SubdomainPattern = c.SubdomainPattern
	}
	if c.ExcludedExtensions != nil {
		merged.ExcludedExtensions = c.ExcludedExtensions
	}
	if c.LowValuePathPatterns != nil {
		merged.LowValuePathPatterns = c.LowValuePathPatterns
	}
	if c.MaxURLLength != 0 {
		merged.MaxURLLength = c.MaxURLLength
	}
	if c.MinWords != 0 {
		merged.MinWords = c.MinWords
	}
	if c.MaxWords != 0 {
		merged.MaxWords = c.MaxWords
	}
	if c.SimilarityThreshold != 0 {
		merged.SimilarityThreshold = c.SimilarityThreshold
	}
	if c.TrapWindow != 0 {
		merged.TrapWindow = c.TrapWindow
	}
	if c.ShingleSize != 0 {
		merged.ShingleSize = c.ShingleSize
	}
	if c.SampleModulus != 0 {
		merged.SampleModulus = c.SampleModulus
	}
	if c.UserAgent != "" {
		merged.UserAgent = c.UserAgent
	}
	if c.PolicyTimeout != 0 {
		merged.PolicyTimeout = c.PolicyTimeout
	}
	if c.TopWords != 0 {
		merged.TopWords = c.TopWords
	}
	merged.IgnoreRobotsTxt = c.IgnoreRobotsTxt
	merged.DetectCharset = c.DetectCharset
	merged.LegacyWordOrder = c.LegacyWordOrder
	merged.HTTPClient = c.HTTPClient
	merged.Logger = c.Logger
	return merged
}

func defaultExcludedExtensions() []string {
	return []string{
		"css", "js", "bmp", "gif", "jpg", "jpeg", "ico",
		"png", "tif", "tiff", "mid", "mp2", "mp3", "mp4",
		"wav", "avi", "mov", "mpeg", "ram", "m4v", "mkv", "ogg", "ogv", "pdf",
		"ps", "eps", "tex", "ppt", "pptx", "doc", "docx", "xls", "xlsx", "names",
		"data", "dat", "exe", "bz2", "tar", "msi", "bin", "7z", "psd", "dmg", "iso",
		"epub", "dll", "cnf", "tgz", "sha1",
		"thmx", "mso", "arff", "rtf", "jar", "csv",
		"rm", "smil", "wmv", "swf", "wma", "zip", "rar", "gz",
	}
}
