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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Step outcomes.
const (
	StepPassed = "passed"
	StepFailed = "failed"
)

// StepResult records one step run by Steps.
type StepResult struct {
	Description string
	Status      string
	Err         error
	Duration    time.Duration
}

// Steps runs named groups of chromedp actions. It logs each step, warns about
// slow actions and captures a screenshot when a step fails. There is no retry:
// the first failing action ends the step.
type Steps struct {
	Log Logger

	// ShotDir receives debug screenshots. Empty disables them.
	ShotDir string

	// Screenshot captures the page into a file. It should not depend on the
	// step's context, which may have expired when it is called.
	Screenshot func(filename string) error

	// SlowAfter is how long a single action may take before a warning and a
	// screenshot are produced. Zero means 10 seconds.
	SlowAfter time.Duration

	// OnStep, when set, is called after every step.
	OnStep func(StepResult)
}

// Run runs actions in order as one step.
func (s *Steps) Run(ctx context.Context, description string, actions ...chromedp.Action) error {
	logger := s.Log
	if logger == nil {
		logger = StdLogger
	}
	logger.Logf("STEP: %s", description)
	start := time.Now()

	var stepErr error
	for i, action := range actions {
		if err := s.runAction(ctx, logger, description, i, action); err != nil {
			stepErr = fmt.Errorf("STEP FAILED: %s [Action#%d]: %w", description, i, err)
			break
		}
	}

	res := StepResult{
		Description: description,
		Status:      StepPassed,
		Err:         stepErr,
		Duration:    time.Since(start),
	}
	if stepErr != nil {
		res.Status = StepFailed
		logger.Logf("%v", stepErr)
		s.capture(logger, "debug-failed-"+Slug(description)+".png")
	}
	if s.OnStep != nil {
		s.OnStep(res)
	}
	return stepErr
}

func (s *Steps) runAction(ctx context.Context, logger Logger, description string, i int, action chromedp.Action) error {
	slowAfter := s.SlowAfter
	if slowAfter <= 0 {
		slowAfter = 10 * time.Second
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
		case <-time.After(slowAfter):
			logger.Logf("STEP %s [Action#%d]: single action took more than %s", description, i, slowAfter)
			s.capture(logger, "debug-slow-"+Slug(description)+".png")
		}
	}()
	return chromedp.Run(ctx, action)
}

func (s *Steps) capture(logger Logger, name string) {
	if s.ShotDir == "" || s.Screenshot == nil {
		return
	}
	if err := s.Screenshot(filepath.Join(s.ShotDir, name)); err != nil {
		logger.Logf("failed to capture %s: %v", name, err)
	}
}

// Slug turns a description into a file name fragment.
func Slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
