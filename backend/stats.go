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
	"sort"
	"time"
)

const DurationBuckets = 121
const DurationBucketSize = 500 * time.Millisecond

// Histogram counts scenario durations in fixed buckets. The last bucket holds
// everything from one minute up.
type Histogram struct {
	Buckets [DurationBuckets]uint64 `json:"buckets"`
	Count   uint64                  `json:"count"`
	SumMS   float64                 `json:"sumMs"`
}

func (h *Histogram) Add(d time.Duration) {
	idx := int(d / DurationBucketSize)
	if idx < 0 {
		idx = 0
	}
	if idx >= DurationBuckets {
		idx = DurationBuckets - 1
	}
	h.Buckets[idx]++
	h.Count++
	h.SumMS += float64(d.Milliseconds())
}

func (h *Histogram) Merge(other *Histogram) {
	if other == nil {
		return
	}
	for i := range h.Buckets {
		h.Buckets[i] += other.Buckets[i]
	}
	h.Count += other.Count
	h.SumMS += other.SumMS
}

// Quantile returns the upper bound of the bucket holding the q-th quantile,
// or 0 for an empty histogram.
func (h *Histogram) Quantile(q float64) time.Duration {
	if h.Count == 0 {
		return 0
	}
	rank := uint64(q * float64(h.Count))
	if rank >= h.Count {
		rank = h.Count - 1
	}
	var seen uint64
	for i, n := range h.Buckets {
		seen += n
		if seen > rank {
			return time.Duration(i+1) * DurationBucketSize
		}
	}
	return DurationBuckets * DurationBucketSize
}

// ScenarioStats aggregates one scenario over recent runs.
type ScenarioStats struct {
	Name          string     `json:"name"`
	Runs          int        `json:"runs"`
	Passed        int        `json:"passed"`
	Failed        int        `json:"failed"`
	Skipped       int        `json:"skipped"`
	P50MS         int64      `json:"p50Ms"`
	P95MS         int64      `json:"p95Ms"`
	LastFailedRun string     `json:"lastFailedRun,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	Durations     *Histogram `json:"durations"`
}

// Stats aggregates the scenarios of the newest limit runs, sorted by name. A
// limit <= 0 covers every stored run. Skipped scenarios do not count towards
// durations.
func (rs *RunStore) Stats(limit int) ([]ScenarioStats, error) {
	runs, err := rs.loadAll()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	byName := make(map[string]*ScenarioStats)
	for _, run := range runs {
		for _, sc := range run.Scenarios {
			st, ok := byName[sc.Name]
			if !ok {
				st = &ScenarioStats{Name: sc.Name, Durations: &Histogram{}}
				byName[sc.Name] = st
			}
			st.Runs++
			switch sc.Status {
			case StatusPassed:
				st.Passed++
			case StatusFailed:
				st.Failed++
				// Runs are newest first.
				if st.LastFailedRun == "" {
					st.LastFailedRun = run.ID
					st.LastError = sc.Error
				}
			case StatusSkipped:
				st.Skipped++
				continue
			}
			st.Durations.Add(time.Duration(sc.DurationMS) * time.Millisecond)
		}
	}
	out := make([]ScenarioStats, 0, len(byName))
	for _, st := range byName {
		st.P50MS = st.Durations.Quantile(0.5).Milliseconds()
		st.P95MS = st.Durations.Quantile(0.95).Milliseconds()
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
