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
	"log"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// SessionOptions configure the browser a Session drives.
type SessionOptions struct {
	// RemoteURL is the remote debugging URL of a running browser. When empty
	// a local browser is launched.
	RemoteURL string
	Headless  bool
	Width     int
	Height    int
	Logf      func(format string, args ...any)
}

// Session owns one browser tab and records what the page reports: console
// errors, uncaught exceptions and JavaScript dialogs. Dialogs are accepted
// automatically so alerts never block the run.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	logf   func(format string, args ...any)

	mu            sync.Mutex
	consoleErrors []string
	dialogs       []string
}

// NewSession starts (or attaches to) a browser and opens a tab.
func NewSession(parent context.Context, opts SessionOptions) (*Session, error) {
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 800
	}

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(parent, opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.WindowSize(opts.Width, opts.Height),
		)
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(parent, execOpts...)
	}
	ctx, cancelCtx := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(opts.Logf),
		chromedp.WithLogf(opts.Logf),
	)

	s := &Session{
		ctx: ctx,
		cancel: func() {
			cancelCtx()
			cancelAlloc()
		},
		logf: opts.Logf,
	}
	chromedp.ListenTarget(ctx, s.onEvent)

	if err := chromedp.Run(ctx,
		network.ClearBrowserCookies(),
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

func (s *Session) onEvent(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if ev.Type != runtime.APITypeError {
			return
		}
		args := make([]string, len(ev.Args))
		for i, arg := range ev.Args {
			args[i] = string(arg.Value)
			if arg.Value == nil {
				args[i] = arg.Description
			}
		}
		msg := strings.Join(args, " ")
		s.logf("JS CONSOLE ERROR: %s", msg)
		s.mu.Lock()
		s.consoleErrors = append(s.consoleErrors, msg)
		s.mu.Unlock()
	case *runtime.EventExceptionThrown:
		msg := ev.ExceptionDetails.Text
		if ex := ev.ExceptionDetails.Exception; ex != nil && ex.Description != "" {
			msg += " " + ex.Description
		}
		s.logf("JS EXCEPTION: %s", msg)
		s.mu.Lock()
		s.consoleErrors = append(s.consoleErrors, msg)
		s.mu.Unlock()
	case *page.EventJavascriptDialogOpening:
		s.logf("JS DIALOG (%s): %s", ev.Type, ev.Message)
		s.mu.Lock()
		s.dialogs = append(s.dialogs, ev.Message)
		s.mu.Unlock()
		// Listeners must not block; answer the dialog from another goroutine.
		go func() {
			if err := chromedp.Run(s.ctx, page.HandleJavaScriptDialog(true)); err != nil {
				s.logf("failed to accept dialog: %v", err)
			}
		}()
	}
}

// Context returns the browser context. Derive timeouts from it; cancelling
// it closes the tab.
func (s *Session) Context() context.Context { return s.ctx }

// Close shuts the tab and, for local browsers, the browser process.
func (s *Session) Close() { s.cancel() }

// ConsoleErrors returns the errors reported since the last reset.
func (s *Session) ConsoleErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.consoleErrors...)
}

// Dialogs returns the dialog messages seen since the last reset.
func (s *Session) Dialogs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dialogs...)
}

// ResetDiagnostics forgets recorded console errors and dialogs.
func (s *Session) ResetDiagnostics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consoleErrors = nil
	s.dialogs = nil
}

// Screenshot captures the viewport into filename using the session context,
// so it still works after a step's own context has expired.
func (s *Session) Screenshot(filename string) error {
	return CaptureScreenshot(s.ctx, filename)
}

// DumpHTML writes the page markup into filename.
func (s *Session) DumpHTML(filename string) error {
	return DumpHTML(s.ctx, filename)
}
