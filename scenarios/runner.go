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

package scenarios

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ttbt-io/skirmish/arena"
	"github.com/ttbt-io/skirmish/backend"
	"github.com/ttbt-io/skirmish/tools/e2ehelpers"
)

// Browser is the tab scenarios run in. *e2ehelpers.Session implements it.
type Browser interface {
	Context() context.Context
	ConsoleErrors() []string
	Dialogs() []string
	ResetDiagnostics()
	Screenshot(filename string) error
	DumpHTML(filename string) error
}

// Publisher receives progress events. *backend.Hub implements it.
type Publisher interface {
	Publish(ev backend.Event)
}

// Runner runs scenarios one after the other in a single browser tab.
type Runner struct {
	Browser Browser
	Page    *arena.Page
	Roster  arena.Roster
	Events  Publisher
	Log     e2ehelpers.Logger

	// OutputDir receives screenshots and failure dumps.
	OutputDir string

	GoldenDir     string
	UpdateGoldens bool

	// ScenarioTimeout bounds each scenario. Zero means one minute.
	ScenarioTimeout time.Duration

	// SlowAfter is passed to the step runner.
	SlowAfter time.Duration

	FailOnConsoleError bool

	// BaseURL and BrowserName are recorded with the run.
	BaseURL     string
	BrowserName string
}

// Run executes scenarios in order and returns the run record. Scenarios left
// when ctx is cancelled are recorded as skipped and the run as failed.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) *backend.RunRecord {
	run := &backend.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UnixMilli(),
		BaseURL:   r.BaseURL,
		Browser:   r.BrowserName,
		Status:    backend.StatusPassed,
	}
	r.publish(backend.Event{Type: backend.EventRunStarted, RunID: run.ID})
	r.logger().Logf("RUN %s: %d scenarios against %s", run.ID, len(scenarios), r.BaseURL)

	for _, sc := range scenarios {
		var res backend.ScenarioResult
		if err := ctx.Err(); err != nil {
			res = backend.ScenarioResult{Name: sc.Name, Status: backend.StatusSkipped, Error: err.Error()}
			run.Status = backend.StatusFailed
			r.publish(backend.Event{Type: backend.EventScenarioFinished, RunID: run.ID, Scenario: sc.Name, Status: res.Status, Error: res.Error})
		} else {
			res = r.runScenario(ctx, run.ID, sc)
		}
		if res.Status == backend.StatusFailed {
			run.Status = backend.StatusFailed
		}
		run.Scenarios = append(run.Scenarios, res)
	}

	run.FinishedAt = time.Now().UnixMilli()
	r.publish(backend.Event{Type: backend.EventRunFinished, RunID: run.ID, Status: run.Status})
	return run
}

func (r *Runner) runScenario(ctx context.Context, runID string, sc Scenario) backend.ScenarioResult {
	logger := r.logger()
	logger.Logf("SCENARIO %s: %s", sc.Name, sc.Description)
	r.Browser.ResetDiagnostics()
	r.publish(backend.Event{Type: backend.EventScenarioStarted, RunID: runID, Scenario: sc.Name})

	res := backend.ScenarioResult{Name: sc.Name, Status: backend.StatusPassed}
	steps := &e2ehelpers.Steps{
		Log:        logger,
		ShotDir:    r.OutputDir,
		Screenshot: r.Browser.Screenshot,
		SlowAfter:  r.SlowAfter,
		OnStep: func(s e2ehelpers.StepResult) {
			rec := backend.StepRecord{
				Description: s.Description,
				Status:      s.Status,
				DurationMS:  s.Duration.Milliseconds(),
			}
			if s.Err != nil {
				rec.Error = s.Err.Error()
			}
			res.Steps = append(res.Steps, rec)
			r.publish(backend.Event{Type: backend.EventStep, RunID: runID, Scenario: sc.Name, Step: rec.Description, Status: rec.Status, Error: rec.Error})
		},
	}
	env := &Env{
		Page:          r.Page,
		Steps:         steps,
		Log:           logger,
		Roster:        r.Roster,
		ShotDir:       r.OutputDir,
		GoldenDir:     r.GoldenDir,
		UpdateGoldens: r.UpdateGoldens,
		Dialogs:       r.Browser.Dialogs,
	}

	timeout := r.ScenarioTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	sctx, cancel := context.WithTimeout(r.Browser.Context(), timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	err := runSafely(sctx, env, sc)
	res.DurationMS = time.Since(start).Milliseconds()
	res.ConsoleErrors = r.Browser.ConsoleErrors()
	res.Dialogs = r.Browser.Dialogs()
	if err == nil && r.FailOnConsoleError && len(res.ConsoleErrors) > 0 {
		err = fmt.Errorf("page reported %d console errors: %s", len(res.ConsoleErrors), strings.Join(res.ConsoleErrors, "; "))
	}
	if err != nil && errors.Is(err, context.DeadlineExceeded) && sctx.Err() != nil && ctx.Err() == nil {
		err = fmt.Errorf("scenario timed out after %s: %w", timeout, err)
	}
	res.Screenshots = env.shots

	if err != nil {
		res.Status = backend.StatusFailed
		res.Error = err.Error()
		logger.Logf("SCENARIO %s FAILED: %v", sc.Name, err)
		res.Screenshots = append(res.Screenshots, r.captureFailure(sc.Name)...)
	} else {
		logger.Logf("SCENARIO %s passed in %s", sc.Name, time.Since(start).Round(time.Millisecond))
	}
	r.publish(backend.Event{Type: backend.EventScenarioFinished, RunID: runID, Scenario: sc.Name, Status: res.Status, Error: res.Error})
	return res
}

// runSafely turns a panicking scenario into a failure.
func runSafely(ctx context.Context, env *Env, sc Scenario) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scenario %s panicked: %v", sc.Name, p)
		}
	}()
	return sc.Run(ctx, env)
}

func (r *Runner) captureFailure(name string) []string {
	if r.OutputDir == "" {
		return nil
	}
	logger := r.logger()
	var files []string
	shot := "error-" + name + ".png"
	if err := r.Browser.Screenshot(filepath.Join(r.OutputDir, shot)); err != nil {
		logger.Logf("failed to capture %s: %v", shot, err)
	} else {
		files = append(files, shot)
	}
	dump := "error-" + name + ".html"
	if err := r.Browser.DumpHTML(filepath.Join(r.OutputDir, dump)); err != nil {
		logger.Logf("failed to dump %s: %v", dump, err)
	}
	return files
}

func (r *Runner) publish(ev backend.Event) {
	if r.Events != nil {
		r.Events.Publish(ev)
	}
}

func (r *Runner) logger() e2ehelpers.Logger {
	if r.Log == nil {
		return e2ehelpers.StdLogger
	}
	return r.Log
}
