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
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/ttbt-io/skirmish/backend/search"
)

func TestMatchRun(t *testing.T) {
	started := time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC).UnixMilli()
	run := &RunRecord{
		ID:        "1f3c9a2e-0000-4000-8000-000000000000",
		StartedAt: started,
		Status:    StatusFailed,
		Scenarios: []ScenarioResult{
			{Name: "main-menu", Status: StatusPassed},
			{Name: "combat", Status: StatusFailed, Error: "combat log has 1 inconsistencies"},
		},
	}
	for _, tc := range []struct {
		query string
		want  bool
	}{
		{"", true},
		{"status:failed", true},
		{"status:passed", false},
		{"scenario:combat", true},
		{"scenario:settings", false},
		{"failed:combat", true},
		{"failed:main-menu", false},
		{"passed:main-menu failed:combat", true},
		{"date:2026-10-19", true},
		{"date:>=2026-10-20", false},
		{"date:2026-10-01..2026-10", true},
		{"id:1F3C", true},
		{"id:abcd", false},
		{"1f3c", true},
		{"inconsistencies", true},
		{"menu", true},
		{"timeout", false},
		{"color:red", false},
	} {
		if got := MatchRun(run, search.Parse(tc.query)); got != tc.want {
			t.Errorf("MatchRun(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestSearchRuns(t *testing.T) {
	tempDir := t.TempDir()
	store := NewRunStore(tempDir, storage.New(tempDir, nil))
	passed := newTestRun(1, StatusPassed, StatusPassed)
	failedOld := newTestRun(2, StatusPassed, StatusFailed)
	failedNew := newTestRun(3, StatusFailed)
	for _, r := range []*RunRecord{passed, failedOld, failedNew} {
		if err := store.SaveRun(r); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	got, err := store.SearchRuns(search.Parse("status:failed"), 0)
	if err != nil {
		t.Fatalf("SearchRuns failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != failedNew.ID || got[1].ID != failedOld.ID {
		t.Errorf("SearchRuns(status:failed) = %+v", got)
	}

	got, err = store.SearchRuns(search.Parse("failed:scenario-b"), 0)
	if err != nil {
		t.Fatalf("SearchRuns failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != failedOld.ID {
		t.Errorf("SearchRuns(failed:scenario-b) = %+v", got)
	}

	got, err = store.SearchRuns(search.Parse("status:failed"), 1)
	if err != nil {
		t.Fatalf("SearchRuns failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != failedNew.ID {
		t.Errorf("SearchRuns(status:failed, 1) = %+v", got)
	}
}
