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
	"encoding/json"
	"fmt"
	"strings"
)

// Locator describes how to find elements on the page. It compiles to a
// JavaScript expression that is evaluated in the page, so it can express
// text and role matching that plain CSS cannot.
//
// Locators are values; every method returns a new Locator.
type Locator struct {
	parent *Locator

	css  string
	role string
	name string

	hasText []string
	text    string
	nth     int
}

// CSS locates elements matching a CSS selector.
func CSS(sel string) Locator {
	return Locator{css: sel, nth: -1}
}

// Role locates elements by ARIA role whose accessible name contains name,
// ignoring case and surrounding whitespace. An empty name matches any element
// of that role.
func Role(role, name string) Locator {
	return Locator{role: role, name: name, nth: -1}
}

// Locator locates descendants of l matching sel.
func (l Locator) Locator(sel string) Locator {
	p := l
	return Locator{parent: &p, css: sel, nth: -1}
}

// Role locates descendants of l by role.
func (l Locator) Role(role, name string) Locator {
	p := l
	return Locator{parent: &p, role: role, name: name, nth: -1}
}

// HasText keeps elements whose text contains s, ignoring case.
func (l Locator) HasText(s string) Locator {
	l.hasText = append(append([]string(nil), l.hasText...), s)
	return l
}

// Text keeps the innermost elements whose text contains s: elements with a
// child element that also contains s are dropped.
func (l Locator) Text(s string) Locator {
	l.text = s
	return l
}

// First keeps the first match only.
func (l Locator) First() Locator { return l.Nth(0) }

// Nth keeps the i-th match only (0-based).
func (l Locator) Nth(i int) Locator {
	l.nth = i
	return l
}

// String renders the locator for log and error messages.
func (l Locator) String() string {
	var sb strings.Builder
	if l.parent != nil {
		sb.WriteString(l.parent.String())
		sb.WriteString(" >> ")
	}
	if l.role != "" {
		sb.WriteString("role=" + l.role)
		if l.name != "" {
			fmt.Fprintf(&sb, "[name=%q]", l.name)
		}
	} else {
		sb.WriteString(l.css)
	}
	for _, t := range l.hasText {
		fmt.Fprintf(&sb, ":has-text(%q)", t)
	}
	if l.text != "" {
		fmt.Fprintf(&sb, ":text(%q)", l.text)
	}
	if l.nth >= 0 {
		fmt.Fprintf(&sb, " >> nth=%d", l.nth)
	}
	return sb.String()
}

// roleSelectors maps ARIA roles to the elements that carry them implicitly.
var roleSelectors = map[string]string{
	"button":   `button, [role="button"], input[type="button"], input[type="submit"], input[type="reset"]`,
	"link":     `a[href], [role="link"]`,
	"heading":  `h1, h2, h3, h4, h5, h6, [role="heading"]`,
	"dialog":   `dialog, [role="dialog"]`,
	"textbox":  `input:not([type]), input[type="text"], textarea, [role="textbox"]`,
	"checkbox": `input[type="checkbox"], [role="checkbox"]`,
}

func roleSelector(role string) string {
	if sel, ok := roleSelectors[role]; ok {
		return sel
	}
	return fmt.Sprintf(`[role=%s]`, jsString(role))
}

const jsPrelude = `const __norm = (s) => (s || '').replace(/\s+/g, ' ').trim();`

// AllJS returns a JavaScript expression evaluating to the array of matching
// elements, in document order per root.
func (l Locator) AllJS() string {
	roots := "[document]"
	if l.parent != nil {
		roots = l.parent.AllJS()
	}
	sel := l.css
	if l.role != "" {
		sel = roleSelector(l.role)
	}

	var sb strings.Builder
	sb.WriteString("(() => {")
	sb.WriteString(jsPrelude)
	fmt.Fprintf(&sb, "const __roots = %s;", roots)
	sb.WriteString("let __els = [];")
	fmt.Fprintf(&sb, "for (const r of __roots) { for (const el of r.querySelectorAll(%s)) { if (!__els.includes(el)) __els.push(el); } }", jsString(sel))
	if l.role != "" && l.name != "" {
		fmt.Fprintf(&sb, "{ const n = %s.toLowerCase(); __els = __els.filter(el => __norm(el.getAttribute('aria-label') || (el.tagName === 'INPUT' ? el.value : el.textContent)).toLowerCase().includes(n)); }", jsString(strings.TrimSpace(l.name)))
	}
	for _, t := range l.hasText {
		fmt.Fprintf(&sb, "{ const t = %s.toLowerCase(); __els = __els.filter(el => __norm(el.textContent).toLowerCase().includes(t)); }", jsString(strings.TrimSpace(t)))
	}
	if l.text != "" {
		fmt.Fprintf(&sb, "{ const t = %s.toLowerCase(); const has = (el) => __norm(el.textContent).toLowerCase().includes(t); __els = __els.filter(el => has(el) && !Array.from(el.children).some(has)); }", jsString(strings.TrimSpace(l.text)))
	}
	if l.nth >= 0 {
		fmt.Fprintf(&sb, "__els = __els.length > %d ? [__els[%d]] : [];", l.nth, l.nth)
	}
	sb.WriteString("return __els; })()")
	return sb.String()
}

// JS returns a JavaScript expression evaluating to the first matching
// element, or null. It is suitable for chromedp.ByJSPath.
func (l Locator) JS() string {
	return "(" + l.AllJS() + "[0] || null)"
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshalling a string cannot fail.
		panic(err)
	}
	return string(b)
}
