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

// Package e2e drives the game in a real browser. The tests are skipped unless
// --with-chromedp is set. By default they run against the fixture game in
// testdata/game; point --game-dir at a real build to verify it instead.
package e2e

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/skirmish/arena"
	"github.com/ttbt-io/skirmish/backend"
	"github.com/ttbt-io/skirmish/tools/e2ehelpers"
)

var (
	withChromeDP = flag.String("with-chromedp", "", "The url of the remote debugging port")
	gameDir      = flag.String("game-dir", "testdata/game", "Directory holding the game's index.html and assets")
	goldenDir    = flag.String("golden-dir", "testdata/golden", "Directory of golden files. Empty disables golden checks")
	stateHook    = flag.String("state-hook", "window.gameState", "JavaScript expression of the game's test state hook")
)

func TestMain(m *testing.M) {
	flag.Parse()
	exitCode := m.Run()
	os.Exit(exitCode)
}

type testEnv struct {
	baseURL string
	server  *backend.Server
	runs    *backend.RunStore
	hub     *backend.Hub
	session *e2ehelpers.Session
	page    *arena.Page
	shotDir string
}

// setup serves the game from --game-dir and opens a browser tab on it.
func setup(t *testing.T) *testEnv {
	t.Helper()
	if *gameDir == "" {
		t.Skip("--game-dir not set")
	}
	return serve(t, *gameDir)
}

// serve serves dir and opens a browser tab with the page object pointed at it.
func serve(t *testing.T, dir string) *testEnv {
	t.Helper()
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		t.Fatalf("serve %s: %v", dir, err)
	}

	dataDir := t.TempDir()
	store, err := backend.OpenStorage(dataDir, "")
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	runs := backend.NewRunStore(dataDir, store)
	hub := backend.NewHub(100)
	go hub.Run(t.Context())

	// Listen on all interfaces; the browser may run in another container.
	server, err := backend.StartServer(backend.Options{
		Addr:   "0.0.0.0:0",
		Debug:  true,
		Assets: os.DirFS(absDir),
		Runs:   runs,
		Hub:    hub,
	})
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	t.Cleanup(func() {
		sdCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(sdCtx)
	})
	baseURL := server.URL() + "/"
	if err := backend.WaitForServer(t.Context(), baseURL, 5*time.Second); err != nil {
		t.Fatalf("Server failed to start: %v", err)
	}

	session, err := e2ehelpers.NewSession(t.Context(), e2ehelpers.SessionOptions{
		RemoteURL: *withChromeDP,
		Logf:      t.Logf,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(session.Close)

	return &testEnv{
		baseURL: baseURL,
		server:  server,
		runs:    runs,
		hub:     hub,
		session: session,
		page:    arena.New(baseURL, *stateHook, 10*time.Second),
		shotDir: t.TempDir(),
	}
}

// browserContext bounds a test's browser work.
func (e *testEnv) browserContext(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(e.session.Context(), timeout)
	t.Cleanup(cancel)
	return ctx
}

func runStep(t *testing.T, ctx context.Context, e *testEnv, description string, actions ...chromedp.Action) {
	t.Helper()
	steps := &e2ehelpers.Steps{
		Log:        t,
		ShotDir:    e.shotDir,
		Screenshot: e.session.Screenshot,
	}
	if err := steps.Run(ctx, description, actions...); err != nil {
		t.Fatal(err)
	}
}

func assertNoConsoleErrors(t *testing.T, e *testEnv) {
	t.Helper()
	if errs := e.session.ConsoleErrors(); len(errs) > 0 {
		t.Errorf("page reported console errors: %q", errs)
	}
}
