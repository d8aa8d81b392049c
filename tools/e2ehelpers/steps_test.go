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

package e2ehelpers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/chromedp/chromedp"
)

type recordingLogger struct{ lines []string }

func (r *recordingLogger) Logf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestSlug(t *testing.T) {
	for in, want := range map[string]string{
		"Navigate and Start Game":     "navigate-and-start-game",
		"Defend: cooldown (1s)":       "defend-cooldown-1s",
		"  --weird__input--  ":        "weird-input",
		"Heal 🛡 Squire":               "heal-squire",
		"":                            "",
	} {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStepsWithoutActions(t *testing.T) {
	var got []StepResult
	logger := &recordingLogger{}
	s := &Steps{Log: logger, OnStep: func(r StepResult) { got = append(got, r) }}

	if err := s.Run(context.Background(), "nothing to do"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != 1 || got[0].Status != StepPassed || got[0].Description != "nothing to do" {
		t.Errorf("unexpected step results: %+v", got)
	}
	if len(logger.lines) == 0 || logger.lines[0] != "STEP: nothing to do" {
		t.Errorf("step not logged: %v", logger.lines)
	}
}

func TestStepsFailureCapturesScreenshot(t *testing.T) {
	dir := t.TempDir()
	var shots []string
	var got []StepResult
	s := &Steps{
		Log:     &recordingLogger{},
		ShotDir: dir,
		Screenshot: func(filename string) error {
			shots = append(shots, filename)
			return nil
		},
		OnStep: func(r StepResult) { got = append(got, r) },
	}

	// A context without a browser makes every chromedp action fail.
	err := s.Run(context.Background(), "Click Start", chromedp.Sleep(0))
	if !errors.Is(err, chromedp.ErrInvalidContext) {
		t.Fatalf("Run() = %v, want ErrInvalidContext", err)
	}
	if len(got) != 1 || got[0].Status != StepFailed || got[0].Err == nil {
		t.Errorf("unexpected step results: %+v", got)
	}
	want := filepath.Join(dir, "debug-failed-click-start.png")
	if len(shots) != 1 || shots[0] != want {
		t.Errorf("screenshots = %v, want [%s]", shots, want)
	}
}
