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
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/c2FmZQ/storage"
)

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"index.html":    {Data: []byte("<html><body><div id=\"main-menu\"></div></body></html>")},
		"app.js":        {Data: []byte("document.addEventListener('DOMContentLoaded', () => {});")},
		"style.css":     {Data: []byte("body { background: #111; }")},
		"img/logo.png":  {Data: []byte("\x89PNG\r\n\x1a\n")},
		"data/map.json": {Data: []byte("{}")},
	}
}

func TestStaticAssets(t *testing.T) {
	server := httptest.NewServer(NewServerHandler(Options{Assets: testAssets()}))
	defer server.Close()

	for _, tc := range []struct {
		path       string
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{"/", http.StatusOK, "text/html; charset=utf-8", "main-menu"},
		{"/app.js", http.StatusOK, "application/javascript", "DOMContentLoaded"},
		{"/style.css", http.StatusOK, "text/css; charset=utf-8", "background"},
		{"/img/logo.png", http.StatusOK, "image/png", ""},
		{"/data/map.json", http.StatusOK, "application/json; charset=utf-8", "{}"},
		{"/missing.js", http.StatusNotFound, "", ""},
		{"/img/missing.png", http.StatusNotFound, "", ""},
		{"/nowhere/", http.StatusNotFound, "", ""},
	} {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := http.Get(server.URL + tc.path)
			if err != nil {
				t.Fatalf("Failed to fetch %q: %v", tc.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("Status for %q = %d, want %d", tc.path, resp.StatusCode, tc.wantStatus)
			}
			if tc.wantType != "" {
				if got := resp.Header.Get("Content-Type"); got != tc.wantType {
					t.Errorf("Content-Type for %q = %q, want %q", tc.path, got, tc.wantType)
				}
			}
			if !strings.Contains(string(body), tc.wantBody) {
				t.Errorf("Body for %q = %q, want it to contain %q", tc.path, body, tc.wantBody)
			}
			if got := resp.Header.Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control for %q = %q, want no-store", tc.path, got)
			}
			if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options for %q = %q", tc.path, got)
			}
		})
	}
}

func TestNoAssets(t *testing.T) {
	server := httptest.NewServer(NewServerHandler(Options{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/runs")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/api/runs without store = %d, want 404", resp.StatusCode)
	}
}

func TestRunsAPI(t *testing.T) {
	tempDir := t.TempDir()
	runs := NewRunStore(tempDir, storage.New(tempDir, nil))
	first := newTestRun(1, StatusPassed)
	second := newTestRun(2, StatusFailed)
	for _, r := range []*RunRecord{first, second} {
		if err := runs.SaveRun(r); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	server := httptest.NewServer(NewServerHandler(Options{Runs: runs}))
	defer server.Close()

	t.Run("List", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/runs?limit=1")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Status = %d", resp.StatusCode)
		}
		var got []RunSummary
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if len(got) != 1 || got[0].ID != second.ID {
			t.Errorf("Expected only the newest run, got %+v", got)
		}
	})

	t.Run("BadLimit", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/runs?limit=abc")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("Get", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/runs/" + first.ID)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var got RunRecord
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.ID != first.ID || len(got.Scenarios) != 1 {
			t.Errorf("Unexpected run: %+v", got)
		}
	})

	for _, tc := range []struct {
		id   string
		want int
	}{
		{"not-a-uuid", http.StatusBadRequest},
		{"aaaaaaaa-aaaa-4aaa-aaaa-aaaaaaaaaaaa", http.StatusNotFound},
	} {
		resp, err := http.Get(server.URL + "/api/runs/" + tc.id)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("GET /api/runs/%s = %d, want %d", tc.id, resp.StatusCode, tc.want)
		}
	}
}

func TestStartServer(t *testing.T) {
	server, err := StartServer(Options{Addr: "127.0.0.1:0", Assets: testAssets()})
	if err != nil {
		t.Fatalf("StartServer failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	if !strings.HasPrefix(server.URL(), "http://127.0.0.1:") {
		t.Errorf("URL() = %q", server.URL())
	}
	if err := WaitForServer(t.Context(), server.URL()+"/", 5*time.Second); err != nil {
		t.Fatalf("WaitForServer failed: %v", err)
	}
}

func TestStartServerListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if _, err := StartServer(Options{Addr: l.Addr().String()}); err == nil {
		t.Error("Expected error when the address is in use")
	}
}

func TestWaitForServerTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not yet", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	start := time.Now()
	err := WaitForServer(t.Context(), server.URL, 600*time.Millisecond)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("WaitForServer overran its timeout: %s", time.Since(start))
	}
}

func TestRunsSearchAndStatsAPI(t *testing.T) {
	tempDir := t.TempDir()
	runs := NewRunStore(tempDir, storage.New(tempDir, nil))
	passed := newTestRun(1, StatusPassed)
	failed := newTestRun(2, StatusPassed, StatusFailed)
	for _, r := range []*RunRecord{passed, failed} {
		if err := runs.SaveRun(r); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	server := httptest.NewServer(NewServerHandler(Options{Runs: runs}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/runs?q=" + url.QueryEscape("status:passed"))
	if err != nil {
		t.Fatal(err)
	}
	var list []RunSummary
	err = json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(list) != 1 || list[0].ID != passed.ID {
		t.Errorf("search = %+v", list)
	}

	resp, err = http.Get(server.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	var stats []ScenarioStats
	err = json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(stats) != 2 || stats[0].Runs != 2 || stats[1].Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	resp, err = http.Get(server.URL + "/api/stats?limit=-1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}
}
