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

// Package scenarios holds the verification sequences run against the game
// and the runner that executes them in a browser.
package scenarios

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/skirmish/arena"
	"github.com/ttbt-io/skirmish/tools/e2ehelpers"
)

// ErrUnknownScenario is returned by Select for names that are not registered.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario is one named verification sequence.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) error
}

// Env is what a scenario gets to work with.
type Env struct {
	Page   *arena.Page
	Steps  *e2ehelpers.Steps
	Log    e2ehelpers.Logger
	Roster arena.Roster

	// ShotDir receives the screenshots a scenario takes. Empty disables them.
	ShotDir string

	// GoldenDir holds golden files. Empty skips golden comparisons.
	GoldenDir     string
	UpdateGoldens bool

	// Dialogs reports the JavaScript dialogs seen in this scenario.
	Dialogs func() []string

	shots []string
}

// Step runs actions as one logged step.
func (e *Env) Step(ctx context.Context, description string, actions ...chromedp.Action) error {
	return e.Steps.Run(ctx, description, actions...)
}

// Shot saves a screenshot of the page under ShotDir.
func (e *Env) Shot(ctx context.Context, name string) error {
	if e.ShotDir == "" {
		return nil
	}
	if err := e2ehelpers.CaptureScreenshot(ctx, filepath.Join(e.ShotDir, name)); err != nil {
		return err
	}
	e.shots = append(e.shots, name)
	return nil
}

// WaitForDialog waits until a dialog containing text has been seen.
func (e *Env) WaitForDialog(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(e2ehelpers.PollInterval)
	defer ticker.Stop()
	for {
		if e.Dialogs != nil {
			for _, d := range e.Dialogs() {
				if strings.Contains(strings.ToLower(d), strings.ToLower(text)) {
					return nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("dialog %q within %s: %w", text, timeout, e2ehelpers.ErrExpectationTimeout)
		case <-ticker.C:
		}
	}
}

// All returns every registered scenario in run order.
func All() []Scenario {
	return []Scenario{
		{Name: "main-menu", Description: "The game loads to its main menu.", Run: mainMenu},
		{Name: "party", Description: "Starting a game fields the whole party.", Run: party},
		{Name: "abilities", Description: "Defend, Snipe and Heal show their effects and cooldowns tick.", Run: abilities},
		{Name: "combat", Description: "A battle runs to a consistent end and can be replayed.", Run: combat},
		{Name: "settings", Description: "Settings answers with a not-implemented alert.", Run: settings},
	}
}

// Names lists the registered scenario names in run order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// Select returns the named scenarios in run order, or all of them when names
// is empty.
func Select(names []string) ([]Scenario, error) {
	all := All()
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		known := false
		for _, s := range all {
			if s.Name == n {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownScenario, n, strings.Join(Names(), ", "))
		}
		want[n] = true
	}
	var out []Scenario
	for _, s := range all {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return all, nil
	}
	return out, nil
}
