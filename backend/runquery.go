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
	"strings"
	"time"

	"github.com/ttbt-io/skirmish/backend/search"
)

// MatchRun reports whether run satisfies every term of q. Supported keys:
//
//	status:<passed|failed>   run status
//	scenario:<name>          the run includes the scenario
//	failed:<name>            the scenario failed in the run
//	passed:<name>            the scenario passed in the run
//	date:<YYYY-MM-DD>        UTC start date, with <, <=, >, >= or a..b
//	id:<prefix>              run id prefix
//
// Free text matches a run id prefix, a scenario name or a scenario error.
// Unknown keys match nothing.
func MatchRun(run *RunRecord, q search.Query) bool {
	for _, f := range q.Filters {
		if !matchFilter(run, f) {
			return false
		}
	}
	for _, text := range q.FreeText {
		if !matchText(run, strings.ToLower(text)) {
			return false
		}
	}
	return true
}

func matchFilter(run *RunRecord, f search.Filter) bool {
	switch f.Key {
	case "status":
		return f.Compare(run.Status)
	case "scenario":
		return hasScenario(run, f, "")
	case "failed":
		return hasScenario(run, f, StatusFailed)
	case "passed":
		return hasScenario(run, f, StatusPassed)
	case "date":
		return f.Compare(time.UnixMilli(run.StartedAt).UTC().Format(time.DateOnly))
	case "id":
		return strings.HasPrefix(run.ID, strings.ToLower(f.Value))
	default:
		return false
	}
}

func hasScenario(run *RunRecord, f search.Filter, status string) bool {
	for _, sc := range run.Scenarios {
		if f.Compare(sc.Name) && (status == "" || sc.Status == status) {
			return true
		}
	}
	return false
}

func matchText(run *RunRecord, text string) bool {
	if strings.HasPrefix(run.ID, text) {
		return true
	}
	for _, sc := range run.Scenarios {
		if strings.Contains(strings.ToLower(sc.Name), text) || strings.Contains(strings.ToLower(sc.Error), text) {
			return true
		}
	}
	return false
}
