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
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ttbt-io/skirmish/backend/search"
)

// Options represent server options.
type Options struct {
	Addr     string
	Listener net.Listener
	Cert     *tls.Certificate
	Debug    bool

	// Assets holds the game's static files. index.html is served for "/".
	Assets fs.FS

	Runs *RunStore
	Hub  *Hub
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	scheme     string
}

// URL returns the base URL the server can be reached at from this host.
func (s *Server) URL() string {
	host, port, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		return s.scheme + "://" + s.listener.Addr().String()
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "localhost"
	}
	return s.scheme + "://" + net.JoinHostPort(host, port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// StartServer binds the listener and serves in the background. The returned
// server is already accepting connections.
func StartServer(opts Options) (*Server, error) {
	l := opts.Listener
	if l == nil {
		addr := opts.Addr
		if addr == "" {
			addr = "127.0.0.1:0"
		}
		var err error
		if l, err = net.Listen("tcp", addr); err != nil {
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
	}

	httpServer := &http.Server{
		Handler:           NewServerHandler(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	scheme := "http"
	if opts.Cert != nil {
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*opts.Cert},
		}
		scheme = "https"
	}

	go func() {
		var err error
		if httpServer.TLSConfig != nil {
			log.Printf("Starting HTTPS server on %s...", l.Addr())
			err = httpServer.ServeTLS(l, "", "")
		} else {
			log.Printf("Starting HTTP server on %s...", l.Addr())
			err = httpServer.Serve(l)
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{
		httpServer: httpServer,
		listener:   l,
		scheme:     scheme,
	}, nil
}

// NewServerHandler creates and configures the HTTP handler for the server.
func NewServerHandler(opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /api/runs", func(w http.ResponseWriter, r *http.Request) {
		if opts.Runs == nil {
			http.Error(w, "Run history disabled", http.StatusNotFound)
			return
		}
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		runs, err := opts.Runs.SearchRuns(search.Parse(r.URL.Query().Get("q")), limit)
		if err != nil {
			log.Printf("Internal Server Error during SearchRuns: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []RunSummary{}
		}
		writeJSON(w, runs)
	})

	mux.HandleFunc("GET /api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if opts.Runs == nil {
			http.Error(w, "Run history disabled", http.StatusNotFound)
			return
		}
		run, err := opts.Runs.LoadRun(r.PathValue("id"))
		switch {
		case errors.Is(err, ErrInvalidRunID):
			http.Error(w, "Bad Request: invalid run id", http.StatusBadRequest)
			return
		case errors.Is(err, os.ErrNotExist):
			http.NotFound(w, r)
			return
		case err != nil:
			log.Printf("Internal Server Error during LoadRun: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, run)
	})

	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.Runs == nil {
			http.Error(w, "Run history disabled", http.StatusNotFound)
			return
		}
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		stats, err := opts.Runs.Stats(limit)
		if err != nil {
			log.Printf("Internal Server Error during Stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, stats)
	})

	if opts.Hub != nil {
		mux.HandleFunc("/api/events", opts.Hub.ServeWS)
	}

	// Serve the game
	var assets http.Handler = http.NotFoundHandler()
	if opts.Assets != nil {
		assets = assetHandler(opts.Assets)
	}
	mux.Handle("/", contentTypeMiddleware(assets))

	handler := http.Handler(mux)
	if opts.Debug {
		handler = loggingMiddleware(handler)
	}
	handler = securityMiddleware(handler)
	handler = cacheControlMiddleware(handler)
	return handler
}

// assetHandler serves files from assets. Missing files get a plain 404 here
// because the file server drops Cache-Control on its error path.
func assetHandler(assets fs.FS) http.Handler {
	files := http.FileServerFS(assets)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "."
		}
		if _, err := fs.Stat(assets, name); err != nil {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// parseLimit reads the optional "limit" query parameter. It answers 400 and
// returns false when the value is not a non-negative integer.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return 0, true
	}
	val, err := strconv.Atoi(l)
	if err != nil || val < 0 {
		http.Error(w, "Bad Request: invalid limit", http.StatusBadRequest)
		return 0, false
	}
	return val, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Internal Server Error during JSON Marshal: %v", err)
	}
}

// WaitForServer polls url until it answers 200 OK.
func WaitForServer(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	client := http.Client{Transport: tr, Timeout: time.Second}
	defer tr.CloseIdleConnections()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				log.Printf("Server at %s is ready!", url)
				return nil
			}
			err = fmt.Errorf("status %s", resp.Status)
		}
		log.Printf("waitForServer(%q): %v", url, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for server at %s: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}

// cacheControlMiddleware disables caching so edited game assets are always
// fetched fresh.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// contentTypeMiddleware ensures that files are served with the correct MIME type.
func contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := filepath.Ext(r.URL.Path)
		switch ext {
		case ".js", ".mjs":
			w.Header().Set("Content-Type", "application/javascript")
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		case ".png":
			w.Header().Set("Content-Type", "image/png")
		case ".svg":
			w.Header().Set("Content-Type", "image/svg+xml")
		case ".json":
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		case ".wasm":
			w.Header().Set("Content-Type", "application/wasm")
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
