// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"
	"github.com/google/uuid"
	"github.com/ttbt-io/skirmish/backend/search"
)

const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ErrInvalidRunID is returned for run IDs that are not UUIDs.
var ErrInvalidRunID = errors.New("invalid run id")

// StepRecord is the outcome of one automation step.
type StepRecord struct {
	Description string `json:"description"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"durationMs"`
}

// ScenarioResult is the outcome of one verification scenario.
type ScenarioResult struct {
	Name          string       `json:"name"`
	Status        string       `json:"status"`
	Error         string       `json:"error,omitempty"`
	DurationMS    int64        `json:"durationMs"`
	Steps         []StepRecord `json:"steps,omitempty"`
	Screenshots   []string     `json:"screenshots,omitempty"`
	ConsoleErrors []string     `json:"consoleErrors,omitempty"`
	Dialogs       []string     `json:"dialogs,omitempty"`
}

// RunRecord is everything recorded about one invocation of the harness.
type RunRecord struct {
	ID         string           `json:"id"`
	StartedAt  int64            `json:"startedAt"`
	FinishedAt int64            `json:"finishedAt"`
	BaseURL    string           `json:"baseUrl"`
	Browser    string           `json:"browser"`
	Status     string           `json:"status"`
	Scenarios  []ScenarioResult `json:"scenarios"`
}

// Summary condenses the record for listings.
func (r *RunRecord) Summary() RunSummary {
	s := RunSummary{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Status:     r.Status,
	}
	for _, sc := range r.Scenarios {
		switch sc.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// RunSummary is a compact view of a run.
type RunSummary struct {
	ID         string `json:"id"`
	StartedAt  int64  `json:"startedAt"`
	FinishedAt int64  `json:"finishedAt"`
	Status     string `json:"status"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
}

// RunStore manages run persistence to disk.
type RunStore struct {
	DataDir string
	storage *storage.Storage
	mu      sync.RWMutex
}

// NewRunStore creates a new RunStore.
func NewRunStore(dataDir string, s *storage.Storage) *RunStore {
	return &RunStore{
		DataDir: dataDir,
		storage: s,
	}
}

func runFilename(id string) string {
	return filepath.Join("runs", id+".json")
}

func checkRunID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, id)
	}
	return nil
}

// SaveRun saves the run atomically.
func (rs *RunStore) SaveRun(run *RunRecord) error {
	if err := checkRunID(run.ID); err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if err := rs.storage.SaveDataFile(runFilename(run.ID), run); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// LoadRun loads a run by ID. It returns os.ErrNotExist if there is no such run.
func (rs *RunStore) LoadRun(id string) (*RunRecord, error) {
	if err := checkRunID(id); err != nil {
		return nil, err
	}
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	var run RunRecord
	if err := rs.storage.ReadDataFile(runFilename(id), &run); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	return &run, nil
}

// ListRuns returns run summaries, newest first. A limit <= 0 returns all.
func (rs *RunStore) ListRuns(limit int) ([]RunSummary, error) {
	return rs.SearchRuns(search.Query{}, limit)
}

// SearchRuns returns the summaries of runs matching q, newest first. A limit
// <= 0 returns all matches.
func (rs *RunStore) SearchRuns(q search.Query, limit int) ([]RunSummary, error) {
	runs, err := rs.loadAll()
	if err != nil {
		return nil, err
	}
	var out []RunSummary
	for _, run := range runs {
		if !MatchRun(run, q) {
			continue
		}
		out = append(out, run.Summary())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// loadAll reads every stored run, newest first. Unreadable files are skipped.
func (rs *RunStore) loadAll() ([]*RunRecord, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	files, err := os.ReadDir(filepath.Join(rs.DataDir, "runs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read runs directory: %w", err)
	}

	var out []*RunRecord
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if checkRunID(id) != nil {
			continue
		}
		var run RunRecord
		if err := rs.storage.ReadDataFile(runFilename(id), &run); err != nil {
			log.Printf("RunStore: skipping %s: %v", name, err)
			continue
		}
		out = append(out, &run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt != out[j].StartedAt {
			return out[i].StartedAt > out[j].StartedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteRun permanently deletes a run. Deleting a missing run is not an error.
func (rs *RunStore) DeleteRun(id string) error {
	if err := checkRunID(id); err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.deleteLocked(id)
}

func (rs *RunStore) deleteLocked(id string) error {
	if err := os.Remove(filepath.Join(rs.DataDir, runFilename(id))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete run file: %w", err)
	}
	return nil
}

// Prune deletes the oldest runs so that at most keep remain. It returns the
// number of runs removed. keep <= 0 disables pruning.
func (rs *RunStore) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	runs, err := rs.ListRuns(0)
	if err != nil {
		return 0, err
	}
	if len(runs) <= keep {
		return 0, nil
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	removed := 0
	for _, r := range runs[keep:] {
		if err := rs.deleteLocked(r.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
