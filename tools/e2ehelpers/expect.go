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
	"time"

	"github.com/chromedp/chromedp"
)

// ErrExpectationTimeout is returned when the page does not reach the expected
// state in time.
var ErrExpectationTimeout = errors.New("expectation not met before timeout")

// PollInterval is how often expectations re-evaluate the page.
const PollInterval = 100 * time.Millisecond

const jsVisible = `const __visible = (el) => {
	const st = window.getComputedStyle(el);
	if (st.display === 'none' || st.visibility === 'hidden') return false;
	const r = el.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
};`

func expect(l Locator, what, predicate string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := chromedp.Poll(predicate, nil,
			chromedp.WithPollingInterval(PollInterval),
			chromedp.WithPollingTimeout(timeout),
		).Do(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, chromedp.ErrPollingTimeout):
			return fmt.Errorf("expect %s %s within %s: %w", l, what, timeout, ErrExpectationTimeout)
		default:
			return fmt.Errorf("expect %s %s: %w", l, what, err)
		}
	})
}

// ExpectVisible waits until at least one element matched by l is visible.
func ExpectVisible(l Locator, timeout time.Duration) chromedp.Action {
	return expect(l, "to be visible",
		fmt.Sprintf("(() => { %s return %s.some(__visible); })()", jsVisible, l.AllJS()), timeout)
}

// ExpectHidden waits until no element matched by l is visible. Elements that
// are absent count as hidden.
func ExpectHidden(l Locator, timeout time.Duration) chromedp.Action {
	return expect(l, "to be hidden",
		fmt.Sprintf("(() => { %s return !%s.some(__visible); })()", jsVisible, l.AllJS()), timeout)
}

// WaitUntilDisplayNone waits until every element matched by l has computed
// display none or is removed. Unlike ExpectHidden, an element that is merely
// transparent or zero-sized does not qualify.
func WaitUntilDisplayNone(l Locator, timeout time.Duration) chromedp.Action {
	return expect(l, "to have display: none",
		fmt.Sprintf("%s.every(el => window.getComputedStyle(el).display === 'none')", l.AllJS()), timeout)
}

// ExpectCount waits until exactly n elements match l.
func ExpectCount(l Locator, n int, timeout time.Duration) chromedp.Action {
	return expect(l, fmt.Sprintf("to have count %d", n),
		fmt.Sprintf("%s.length === %d", l.AllJS(), n), timeout)
}

// ExpectText waits until an element matched by l contains s, ignoring case.
func ExpectText(l Locator, s string, timeout time.Duration) chromedp.Action {
	return expect(l, fmt.Sprintf("to contain text %q", s),
		fmt.Sprintf("(() => { %s const t = %s.toLowerCase(); return %s.some(el => __norm(el.textContent).toLowerCase().includes(t)); })()",
			jsPrelude, jsString(s), l.AllJS()), timeout)
}

// Click clicks the first element matched by l once it is visible, waiting at
// most timeout for it to appear.
func Click(l Locator, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := chromedp.Click(l.JS(), chromedp.ByJSPath).Do(tctx)
		if err == nil {
			return nil
		}
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("click %s within %s: %w", l, timeout, ErrExpectationTimeout)
		}
		return fmt.Errorf("click %s: %w", l, err)
	})
}

// TextContent reads the text of the first element matched by l.
func TextContent(l Locator, out *string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := chromedp.Evaluate(fmt.Sprintf(
			"(() => { const el = %s; if (!el) throw new Error('no element matches ' + %s); return el.textContent; })()",
			l.JS(), jsString(l.String())), out).Do(ctx)
		if err != nil {
			return fmt.Errorf("text of %s: %w", l, err)
		}
		return nil
	})
}

// Texts reads the text of every element matched by l.
func Texts(l Locator, out *[]string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.Evaluate(fmt.Sprintf("%s.map(el => el.textContent)", l.AllJS()), out).Do(ctx); err != nil {
			return fmt.Errorf("texts of %s: %w", l, err)
		}
		return nil
	})
}

// Count reports how many elements l matches.
func Count(l Locator, out *int) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.Evaluate(l.AllJS()+".length", out).Do(ctx); err != nil {
			return fmt.Errorf("count of %s: %w", l, err)
		}
		return nil
	})
}

// Attribute reads an attribute of the first element matched by l. A missing
// attribute yields the empty string.
func Attribute(l Locator, name string, out *string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := chromedp.Evaluate(fmt.Sprintf(
			"(() => { const el = %s; if (!el) throw new Error('no element matches ' + %s); return el.getAttribute(%s) || ''; })()",
			l.JS(), jsString(l.String()), jsString(name)), out).Do(ctx)
		if err != nil {
			return fmt.Errorf("attribute %s of %s: %w", name, l, err)
		}
		return nil
	})
}
