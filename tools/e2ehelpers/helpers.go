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
	"os"
	"path/filepath"

	"github.com/chromedp/chromedp"
)

// Logger interface allows passing *testing.T or a log.Printf adapter.
type Logger interface {
	Logf(format string, args ...any)
}

// LogFunc adapts a printf-style function to Logger.
type LogFunc func(format string, args ...any)

func (f LogFunc) Logf(format string, args ...any) { f(format, args...) }

// StdLogger logs through the standard log package.
var StdLogger Logger = LogFunc(log.Printf)

// CaptureScreenshot captures a screenshot and saves it to the specified filename.
func CaptureScreenshot(ctx context.Context, filename string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for screenshot: %w", err)
	}

	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot to file: %w", err)
	}
	log.Printf("Saved screenshot to %s", filename)
	return nil
}

// CaptureElement saves a screenshot of the first element matching l.
func CaptureElement(ctx context.Context, l Locator, filename string) error {
	var buf []byte
	if err := chromedp.Run(ctx,
		chromedp.ScrollIntoView(l.JS(), chromedp.ByJSPath),
		chromedp.Screenshot(l.JS(), &buf, chromedp.ByJSPath),
	); err != nil {
		return fmt.Errorf("failed to capture %s: %w", l, err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for screenshot: %w", err)
	}
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot to file: %w", err)
	}
	log.Printf("Saved screenshot of %s to %s", l, filename)
	return nil
}

// DumpHTML writes the page's current markup to filename.
func DumpHTML(ctx context.Context, filename string) error {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to capture HTML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for HTML dump: %w", err)
	}
	return os.WriteFile(filename, []byte(html), 0644)
}

// DisableCSSAnimations zeroes transition and animation durations on the page.
func DisableCSSAnimations() chromedp.ActionFunc {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(`
                        const style = document.createElement('style');
                        style.innerHTML = '*{-webkit-transition-duration:0s!important;transition-duration:0s!important;-webkit-animation-duration:0s!important;animation-duration:0s!important;}';
                        document.head.appendChild(style);
                `, nil).Do(ctx)
	})
}
