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
	"strings"
	"testing"
)

func TestLocatorString(t *testing.T) {
	for _, tc := range []struct {
		l    Locator
		want string
	}{
		{CSS("#main-menu"), "#main-menu"},
		{CSS(".grid-cell").HasText("Squire"), `.grid-cell:has-text("Squire")`},
		{CSS("#enemy-grid .grid-cell").HasText("Gobgob").First(), `#enemy-grid .grid-cell:has-text("Gobgob") >> nth=0`},
		{Role("button", "Start Game"), `role=button[name="Start Game"]`},
		{Role("button", ""), `role=button`},
		{CSS(".grid-cell").HasText("Archer").Locator(".ability-particle").Text("🛡"), `.grid-cell:has-text("Archer") >> .ability-particle:text("🛡")`},
		{CSS(".ability-button").HasText("Defend").Locator(".cooldown-text").Nth(2), `.ability-button:has-text("Defend") >> .cooldown-text >> nth=2`},
	} {
		if got := tc.l.String(); got != tc.want {
			t.Errorf("String() = %s, want %s", got, tc.want)
		}
	}
}

func TestLocatorIsImmutable(t *testing.T) {
	base := CSS(".grid-cell")
	a := base.HasText("Squire")
	b := base.HasText("Priest")
	if base.String() != ".grid-cell" {
		t.Errorf("base changed: %s", base)
	}
	if strings.Contains(a.String(), "Priest") || strings.Contains(b.String(), "Squire") {
		t.Errorf("derived locators share filters: %s / %s", a, b)
	}
	child := a.Locator(".hp-bar")
	_ = a.First()
	if strings.Contains(child.String(), "nth=") {
		t.Errorf("parent mutation leaked into child: %s", child)
	}
}

func TestLocatorJS(t *testing.T) {
	l := CSS("#enemy-grid .grid-cell").HasText(`Gob"gob'`).First()
	js := l.JS()

	for _, want := range []string{
		`querySelectorAll("#enemy-grid .grid-cell")`,
		`"Gob\"gob'"`,
		"__els.length > 0 ? [__els[0]] : []",
		"[0] || null)",
		"const __roots = [document];",
	} {
		if !strings.Contains(js, want) {
			t.Errorf("JS() missing %q:\n%s", want, js)
		}
	}
	if strings.Count(js, "(") != strings.Count(js, ")") {
		t.Errorf("unbalanced parentheses in:\n%s", js)
	}
}

func TestLocatorJSNested(t *testing.T) {
	parent := CSS(".grid-cell").HasText("Squire")
	child := parent.Locator(".floating-text.heal").HasText("+50")
	js := child.AllJS()
	if !strings.Contains(js, "const __roots = "+parent.AllJS()+";") {
		t.Errorf("child does not search within the parent's matches:\n%s", js)
	}
	if !strings.Contains(js, `querySelectorAll(".floating-text.heal")`) {
		t.Errorf("child selector missing:\n%s", js)
	}
}

func TestLocatorRoleJS(t *testing.T) {
	js := Role("button", " Defend ").AllJS()
	if !strings.Contains(js, `input[type=\"submit\"]`) {
		t.Errorf("button role should include submit inputs:\n%s", js)
	}
	if !strings.Contains(js, `const n = "Defend".toLowerCase()`) {
		t.Errorf("role name should be trimmed and matched case-insensitively:\n%s", js)
	}
	custom := Role("tab", "").AllJS()
	if !strings.Contains(custom, `[role=\"tab\"]`) {
		t.Errorf("unknown roles should fall back to the role attribute:\n%s", custom)
	}
}

func TestLocatorTextJS(t *testing.T) {
	js := CSS(".ability-particle").Text("+").AllJS()
	if !strings.Contains(js, `const t = "+".toLowerCase()`) || !strings.Contains(js, "el.children") {
		t.Errorf("Text() should match innermost elements:\n%s", js)
	}
}

func TestJSString(t *testing.T) {
	for in, want := range map[string]string{
		"plain":        `"plain"`,
		`it's "quoted"`: `"it's \"quoted\""`,
		"line\nbreak":   `"line\nbreak"`,
		"</script>":     `"\u003c/script\u003e"`,
	} {
		if got := jsString(in); got != want {
			t.Errorf("jsString(%q) = %s, want %s", in, got, want)
		}
	}
}
