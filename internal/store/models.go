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

package store

import (
	"encoding/json"

	"github.com/agentberlin/scout"
)

// Run states
const (
	RunStateCompleted = "completed" // Frontier drained or page budget spent
	RunStateStopped   = "stopped"   // Interrupted by the user
	RunStateFailed    = "failed"    // Aborted by a session invariant violation
)

// CrawlRun is one finished crawl and its report
type CrawlRun struct {
	ID               uint            `gorm:"primaryKey"`
	RunID            string          `gorm:"uniqueIndex;not null"`
	Seeds            string          `gorm:"type:text"` // JSON array
	StartedAt        int64           `gorm:"not null;index"`
	DurationMs       int64           `gorm:"not null"`
	Fetched          int             `gorm:"not null"`
	UniquePages      int             `gorm:"not null"`
	LongestPageURL   string          `gorm:"type:text"`
	LongestPageWords int             `gorm:"not null"`
	State            string          `gorm:"not null;default:'completed'"`
	Error            string          `gorm:"type:text"`
	Words            []WordStat      `gorm:"foreignKey:CrawlRunID;constraint:OnDelete:CASCADE"`
	Subdomains       []SubdomainStat `gorm:"foreignKey:CrawlRunID;constraint:OnDelete:CASCADE"`
	CreatedAt        int64           `gorm:"autoCreateTime"`
}

// WordStat is one row of a run's word table
type WordStat struct {
	ID         uint   `gorm:"primaryKey"`
	CrawlRunID uint   `gorm:"not null;index"`
	Position   int    `gorm:"not null"`
	Word       string `gorm:"not null"`
	Count      int    `gorm:"not null"`
}

// SubdomainStat is one row of a run's subdomain table
type SubdomainStat struct {
	ID         uint   `gorm:"primaryKey"`
	CrawlRunID uint   `gorm:"not null;index"`
	Host       string `gorm:"not null"`
	Count      int    `gorm:"not null"`
}

// GetSeedsArray deserializes the Seeds JSON to []string
func (r *CrawlRun) GetSeedsArray() []string {
	if r.Seeds == "" {
		return nil
	}
	var seeds []string
	if err := json.Unmarshal([]byte(r.Seeds), &seeds); err != nil {
		return nil
	}
	return seeds
}

// SetSeedsArray serializes []string to JSON for Seeds
func (r *CrawlRun) SetSeedsArray(seeds []string) error {
	data, err := json.Marshal(seeds)
	if err != nil {
		return err
	}
	r.Seeds = string(data)
	return nil
}

// Report rebuilds the crawl report stored with the run
func (r *CrawlRun) Report() *scout.Report {
	report := &scout.Report{
		UniquePages: r.UniquePages,
		LongestPage: scout.LongestPage{URL: r.LongestPageURL, WordCount: r.LongestPageWords},
		Words:       make([]scout.WordCount, 0, len(r.Words)),
		Subdomains:  make([]scout.SubdomainCount, 0, len(r.Subdomains)),
	}
	for _, w := range r.Words {
		report.Words = append(report.Words, scout.WordCount{Word: w.Word, Count: w.Count})
	}
	for _, s := range r.Subdomains {
		report.Subdomains = append(report.Subdomains, scout.SubdomainCount{Host: s.Host, Count: s.Count})
	}
	return report
}
