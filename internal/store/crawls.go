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
	"errors"
	"fmt"
	"time"

	"github.com/agentberlin/scout"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned when no run has the requested ID
var ErrRunNotFound = errors.New("crawl run not found")

// RunInfo describes how a crawl went, alongside its report
type RunInfo struct {
	Seeds     []string
	StartedAt time.Time
	Duration  time.Duration
	Fetched   int
	State     string
	Err       error
}

// SaveReport stores report under a new run ID
func (s *Store) SaveReport(info RunInfo, report *scout.Report) (*CrawlRun, error) {
	state := info.State
	if state == "" {
		state = RunStateCompleted
	}
	run := CrawlRun{
		RunID:            uuid.New().String(),
		StartedAt:        info.StartedAt.Unix(),
		DurationMs:       info.Duration.Milliseconds(),
		Fetched:          info.Fetched,
		UniquePages:      report.UniquePages,
		LongestPageURL:   report.LongestPage.URL,
		LongestPageWords: report.LongestPage.WordCount,
		State:            state,
	}
	if info.Err != nil {
		run.Error = info.Err.Error()
	}
	if err := run.SetSeedsArray(info.Seeds); err != nil {
		return nil, fmt.Errorf("failed to encode seeds: %v", err)
	}
	for i, w := range report.Words {
		run.Words = append(run.Words, WordStat{Position: i + 1, Word: w.Word, Count: w.Count})
	}
	for _, sd := range report.Subdomains {
		run.Subdomains = append(run.Subdomains, SubdomainStat{Host: sd.Host, Count: sd.Count})
	}

	if err := s.db.Create(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to save crawl run: %v", err)
	}
	return &run, nil
}

// GetRun loads a run with its word and subdomain tables
func (s *Store) GetRun(runID string) (*CrawlRun, error) {
	var run CrawlRun
	result := s.db.
		Preload("Words", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Subdomains", func(db *gorm.DB) *gorm.DB { return db.Order("host ASC") }).
		Where("run_id = ?", runID).
		First(&run)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get crawl run: %v", result.Error)
	}
	return &run, nil
}

// GetLatestRun returns the most recent run, or nil when there is none
func (s *Store) GetLatestRun() (*CrawlRun, error) {
	var run CrawlRun
	result := s.db.Order("started_at DESC, id DESC").First(&run)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest crawl run: %v", result.Error)
	}
	return s.GetRun(run.RunID)
}

// ListRuns returns runs newest first, without their tables. limit <= 0
// returns every run.
func (s *Store) ListRuns(limit int) ([]CrawlRun, error) {
	var runs []CrawlRun
	db := s.db.Order("started_at DESC, id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %v", err)
	}
	return runs, nil
}

// DeleteRun deletes a run and its tables
func (s *Store) DeleteRun(runID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var run CrawlRun
		if err := tx.Where("run_id = ?", runID).First(&run).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
			}
			return err
		}
		if err := tx.Where("crawl_run_id = ?", run.ID).Delete(&WordStat{}).Error; err != nil {
			return err
		}
		if err := tx.Where("crawl_run_id = ?", run.ID).Delete(&SubdomainStat{}).Error; err != nil {
			return err
		}
		return tx.Delete(&run).Error
	})
}
