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
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the harness settings. Values come from the environment first
// and are then overridden by command line flags.
type Config struct {
	Addr      string `env:"SKIRMISH_ADDR" envDefault:"127.0.0.1:0"`
	GameDir   string `env:"SKIRMISH_GAME_DIR"`
	BaseURL   string `env:"SKIRMISH_BASE_URL"`
	ChromeURL string `env:"SKIRMISH_CHROME_URL"`
	Headless  bool   `env:"SKIRMISH_HEADLESS" envDefault:"true"`

	OutputDir string   `env:"SKIRMISH_OUTPUT_DIR" envDefault:"verification"`
	DataDir   string   `env:"SKIRMISH_DATA_DIR" envDefault:"data"`
	Scenarios []string `env:"SKIRMISH_SCENARIOS" envSeparator:","`

	Timeout         time.Duration `env:"SKIRMISH_TIMEOUT" envDefault:"5m"`
	ScenarioTimeout time.Duration `env:"SKIRMISH_SCENARIO_TIMEOUT" envDefault:"4m"`
	StepTimeout     time.Duration `env:"SKIRMISH_STEP_TIMEOUT" envDefault:"10s"`

	// StateHook is the JavaScript expression of the game's test-only state
	// object. Scenarios use it for fault injection when it is defined.
	StateHook string `env:"SKIRMISH_STATE_HOOK" envDefault:"window.gameState"`

	GoldenDir     string `env:"SKIRMISH_GOLDEN_DIR"`
	UpdateGoldens bool   `env:"UPDATE_GOLDENS"`

	FailOnConsoleError bool `env:"SKIRMISH_FAIL_ON_CONSOLE_ERROR" envDefault:"true"`
	KeepRuns           int  `env:"SKIRMISH_KEEP_RUNS" envDefault:"50"`
	ServeOnly          bool `env:"SKIRMISH_SERVE_ONLY"`

	LogFile string `env:"SKIRMISH_LOG_FILE"`
	Debug   bool   `env:"SKIRMISH_DEBUG"`
}

// LoadConfig reads the environment, then parses args on top of it.
func LoadConfig(args []string) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("skirmish", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The TCP address the asset server listens on")
	fs.StringVar(&cfg.GameDir, "game-dir", cfg.GameDir, "Directory holding the game's index.html and assets")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Open the game at this URL instead of the local asset server")
	fs.StringVar(&cfg.ChromeURL, "chrome-url", cfg.ChromeURL, "The url of the remote debugging port. Empty launches a local browser")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run the local browser headless")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory to save screenshots")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory for run history")
	scenarios := fs.String("scenarios", strings.Join(cfg.Scenarios, ","), "Comma separated scenario names. Empty runs all")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout for the whole run")
	fs.DurationVar(&cfg.ScenarioTimeout, "scenario-timeout", cfg.ScenarioTimeout, "Timeout for a single scenario")
	fs.DurationVar(&cfg.StepTimeout, "step-timeout", cfg.StepTimeout, "Timeout for a single step")
	fs.StringVar(&cfg.StateHook, "state-hook", cfg.StateHook, "JavaScript expression of the game's test state hook")
	fs.StringVar(&cfg.GoldenDir, "golden-dir", cfg.GoldenDir, "Directory of golden files. Empty disables golden checks")
	fs.BoolVar(&cfg.UpdateGoldens, "update-goldens", cfg.UpdateGoldens, "Rewrite golden files instead of comparing")
	fs.BoolVar(&cfg.FailOnConsoleError, "fail-on-console-error", cfg.FailOnConsoleError, "Fail a scenario when the page logs an error")
	fs.IntVar(&cfg.KeepRuns, "keep-runs", cfg.KeepRuns, "Number of runs to keep in the history. 0 keeps everything")
	fs.BoolVar(&cfg.ServeOnly, "serve-only", cfg.ServeOnly, "Only serve the game and the harness API")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write logs to this file, rotated")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug mode")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Scenarios = splitList(*scenarios)
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.GameDir == "" && c.BaseURL == "" {
		return errors.New("one of --game-dir or --base-url is required")
	}
	if c.ServeOnly && c.GameDir == "" {
		return errors.New("--serve-only requires --game-dir")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("--timeout must be positive, got %s", c.Timeout)
	}
	if c.ScenarioTimeout <= 0 {
		return fmt.Errorf("--scenario-timeout must be positive, got %s", c.ScenarioTimeout)
	}
	if c.StepTimeout <= 0 {
		return fmt.Errorf("--step-timeout must be positive, got %s", c.StepTimeout)
	}
	if c.KeepRuns < 0 {
		return fmt.Errorf("--keep-runs must not be negative, got %d", c.KeepRuns)
	}
	if c.StateHook == "" {
		return errors.New("--state-hook must not be empty")
	}
	if c.GameDir != "" {
		fi, err := os.Stat(c.GameDir)
		if err != nil {
			return fmt.Errorf("game dir: %w", err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("game dir %s is not a directory", c.GameDir)
		}
		if _, err := os.Stat(filepath.Join(c.GameDir, "index.html")); err != nil {
			return fmt.Errorf("game dir %s has no index.html: %w", c.GameDir, err)
		}
	}
	return nil
}

// ScenarioLimit is the time one scenario may take. It never exceeds the
// whole run's timeout.
func (c *Config) ScenarioLimit() time.Duration {
	return min(c.ScenarioTimeout, c.Timeout)
}

// AssetURL returns the URL the browser should open to load the game.
func (c *Config) AssetURL(serverURL string) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return strings.TrimSuffix(serverURL, "/") + "/"
}
