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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rodaine/table"
	"github.com/ttbt-io/skirmish/arena"
	"github.com/ttbt-io/skirmish/backend"
	"github.com/ttbt-io/skirmish/scenarios"
	"github.com/ttbt-io/skirmish/tools/e2ehelpers"
	"gopkg.in/natefinch/lumberjack.v2"
)

// main serves the game, drives it through the selected scenarios in a
// browser and records the run.
func main() {
	cfg, err := backend.LoadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}
	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 5,
			Compress:   true,
		}))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	selected, err := scenarios.Select(cfg.Scenarios)
	if err != nil {
		log.Fatalf("%v", err)
	}

	store, err := backend.OpenStorage(cfg.DataDir, os.Getenv("SKIRMISH_MASTER_KEY"))
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	runs := backend.NewRunStore(cfg.DataDir, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := backend.NewHub(100)
	go hub.Run(ctx)

	opts := backend.Options{
		Addr:  cfg.Addr,
		Debug: cfg.Debug,
		Runs:  runs,
		Hub:   hub,
	}
	if cfg.GameDir != "" {
		opts.Assets = os.DirFS(cfg.GameDir)
	}
	server, err := backend.StartServer(opts)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Serving on %s", server.URL())
	defer shutdown(server)

	if cfg.ServeOnly {
		<-ctx.Done()
		log.Println("Shutting down...")
		return
	}

	failed, err := verify(ctx, cfg, server, runs, hub, selected)
	if err != nil {
		log.Printf("Verification failed: %v", err)
		shutdown(server)
		os.Exit(2)
	}
	if failed {
		shutdown(server)
		os.Exit(1)
	}
}

func verify(ctx context.Context, cfg *backend.Config, server *backend.Server, runs *backend.RunStore, hub *backend.Hub, selected []scenarios.Scenario) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	gameURL := cfg.AssetURL(server.URL())
	if cfg.BaseURL == "" {
		if err := backend.WaitForServer(ctx, gameURL, 10*time.Second); err != nil {
			return false, err
		}
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return false, fmt.Errorf("create output dir: %w", err)
	}

	session, err := e2ehelpers.NewSession(ctx, e2ehelpers.SessionOptions{
		RemoteURL: cfg.ChromeURL,
		Headless:  cfg.Headless,
	})
	if err != nil {
		return false, err
	}
	defer session.Close()

	browserName := "local chrome"
	if cfg.ChromeURL != "" {
		browserName = cfg.ChromeURL
	}
	runner := &scenarios.Runner{
		Browser:            session,
		Page:               arena.New(gameURL, cfg.StateHook, cfg.StepTimeout),
		Roster:             arena.DefaultRoster,
		Events:             hub,
		OutputDir:          cfg.OutputDir,
		GoldenDir:          cfg.GoldenDir,
		UpdateGoldens:      cfg.UpdateGoldens,
		ScenarioTimeout:    cfg.ScenarioLimit(),
		SlowAfter:          cfg.StepTimeout,
		FailOnConsoleError: cfg.FailOnConsoleError,
		BaseURL:            gameURL,
		BrowserName:        browserName,
	}
	run := runner.Run(ctx, selected)

	if err := runs.SaveRun(run); err != nil {
		log.Printf("Failed to save run %s: %v", run.ID, err)
	}
	if cfg.KeepRuns > 0 {
		if n, err := runs.Prune(cfg.KeepRuns); err != nil {
			log.Printf("Failed to prune runs: %v", err)
		} else if n > 0 {
			log.Printf("Pruned %d old runs", n)
		}
	}

	printSummary(os.Stdout, run)
	return run.Status != backend.StatusPassed, nil
}

func printSummary(w io.Writer, run *backend.RunRecord) {
	t := table.New("Scenario", "Status", "Duration", "Error").WithWriter(w)
	for _, sc := range run.Scenarios {
		t.AddRow(sc.Name, sc.Status, (time.Duration(sc.DurationMS) * time.Millisecond).String(), firstLine(sc.Error))
	}
	t.Print()
	s := run.Summary()
	fmt.Fprintf(w, "Run %s %s: %d passed, %d failed, %d skipped\n", run.ID, run.Status, s.Passed, s.Failed, s.Skipped)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func shutdown(server *backend.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
