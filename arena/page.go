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

package arena

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/skirmish/tools/e2ehelpers"
)

// Page drives the game in a browser tab. Wait is the default timeout for
// elements the game shows in response to a click.
type Page struct {
	URL       string
	StateHook string
	Wait      time.Duration
}

// New returns a Page for the game served at url.
func New(url, stateHook string, wait time.Duration) *Page {
	return &Page{URL: url, StateHook: stateHook, Wait: wait}
}

// Open loads the game and waits for the main menu.
func (p *Page) Open() chromedp.Action {
	return chromedp.Tasks{
		chromedp.Navigate(p.URL),
		e2ehelpers.ExpectVisible(MainMenu, p.Wait),
	}
}

// StartGame clicks "Start Game" and waits for the battlefield.
func (p *Page) StartGame() chromedp.Action {
	return chromedp.Tasks{
		e2ehelpers.Click(StartButton, p.Wait),
		e2ehelpers.ExpectVisible(GameContainer, p.Wait),
		e2ehelpers.ExpectHidden(MainMenu, p.Wait),
	}
}

// WaitForParty waits until exactly n heroes stand on the player grid.
func (p *Page) WaitForParty(n int, timeout time.Duration) chromedp.Action {
	return e2ehelpers.ExpectCount(PlayerArt, n, timeout)
}

// Character locates a hero's cell by name.
func (p *Page) Character(name string) e2ehelpers.Locator { return Hero(name) }

// Enemy locates an enemy's cell by name.
func (p *Page) Enemy(name string) e2ehelpers.Locator { return Enemy(name) }

// SelectCharacter clicks a character's cell and waits for its abilities.
func (p *Page) SelectCharacter(cell e2ehelpers.Locator) chromedp.Action {
	return chromedp.Tasks{
		e2ehelpers.Click(cell, p.Wait),
		e2ehelpers.ExpectVisible(AbilityButtons, p.Wait),
	}
}

// UseAbility selects caster and clicks one of its abilities.
func (p *Page) UseAbility(caster e2ehelpers.Locator, ability string) chromedp.Action {
	return chromedp.Tasks{
		p.SelectCharacter(caster),
		e2ehelpers.Click(AbilityButton(ability), p.Wait),
	}
}

// CastAbility casts ability from caster onto target.
func (p *Page) CastAbility(caster e2ehelpers.Locator, ability string, target e2ehelpers.Locator) chromedp.Action {
	return chromedp.Tasks{
		p.UseAbility(caster, ability),
		e2ehelpers.Click(target, p.Wait),
	}
}

// ExpectTargeting waits for the target picker.
func (p *Page) ExpectTargeting() chromedp.Action {
	return e2ehelpers.ExpectVisible(TargetingModal, p.Wait)
}

// ExpectCastBanner waits for the ability name banner to appear, then to go
// away again.
func (p *Page) ExpectCastBanner(visibleWithin, hiddenWithin time.Duration) chromedp.Action {
	return chromedp.Tasks{
		e2ehelpers.ExpectVisible(AbilityCastBanner, visibleWithin),
		e2ehelpers.ExpectHidden(AbilityCastBanner, hiddenWithin),
	}
}

// ExpectParticle waits for a particle with glyph in the cell.
func (p *Page) ExpectParticle(on e2ehelpers.Locator, glyph string, timeout time.Duration) chromedp.Action {
	return e2ehelpers.ExpectVisible(Particle(on, glyph), timeout)
}

// ExpectFloatingText waits for floating text of kind in the cell.
func (p *Page) ExpectFloatingText(on e2ehelpers.Locator, kind FloatKind, contains string, timeout time.Duration) chromedp.Action {
	return e2ehelpers.ExpectVisible(Floating(on, kind, contains), timeout)
}

// ReadFloatingText parses the first floating text of kind in the cell into
// out. Floating text disappears after a second, so run it right after
// ExpectFloatingText.
func (p *Page) ReadFloatingText(on e2ehelpers.Locator, kind FloatKind, out *FloatingText) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var text string
		if err := e2ehelpers.TextContent(Floating(on, kind, "").First(), &text).Do(ctx); err != nil {
			return err
		}
		ft, err := ParseFloatingText(text, kind)
		if err != nil {
			return err
		}
		*out = ft
		return nil
	})
}

// CloseAbilities closes the ability panel.
func (p *Page) CloseAbilities() chromedp.Action {
	return chromedp.Tasks{
		e2ehelpers.Click(AbilityPanelClose, p.Wait),
		e2ehelpers.ExpectHidden(AbilityButtons, p.Wait),
	}
}

// Cooldown reads the seconds left on an ability's cooldown.
func (p *Page) Cooldown(ctx context.Context, ability string) (float64, error) {
	l := CooldownText(ability)
	var text string
	if err := chromedp.Run(ctx,
		e2ehelpers.ExpectVisible(l, p.Wait),
		e2ehelpers.TextContent(l, &text),
	); err != nil {
		return 0, err
	}
	return ParseCooldown(text)
}

// ParseCooldown parses cooldown text such as "3", "2.5" or "2.5s".
func ParseCooldown(text string) (float64, error) {
	t := strings.TrimSuffix(strings.TrimSpace(text), "s")
	v, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("cooldown %q: not a number of seconds", text)
	}
	return v, nil
}

// CombatLog reads every line of the combat log.
func (p *Page) CombatLog(ctx context.Context) ([]string, error) {
	var lines []string
	if err := chromedp.Run(ctx, e2ehelpers.Texts(CombatLogMsg, &lines)); err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines, nil
}

// HPPercent reads the width of a cell's hit point bar.
func (p *Page) HPPercent(ctx context.Context, cell e2ehelpers.Locator) (float64, error) {
	var style string
	if err := chromedp.Run(ctx, e2ehelpers.Attribute(cell.Locator(".hp-bar"), "style", &style)); err != nil {
		return 0, err
	}
	return ParseWidthPercent(style)
}

// ParseWidthPercent extracts the percentage from an inline "width: N%" style.
func ParseWidthPercent(style string) (float64, error) {
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok || strings.TrimSpace(name) != "width" {
			continue
		}
		value = strings.TrimSpace(value)
		num, ok := strings.CutSuffix(value, "%")
		if !ok {
			return 0, fmt.Errorf("width %q is not a percentage", value)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("width %q: %w", value, err)
		}
		return v, nil
	}
	return 0, fmt.Errorf("no width in style %q", style)
}

// WaitGameOver waits for the game over modal and returns its message.
func (p *Page) WaitGameOver(ctx context.Context, timeout time.Duration) (string, error) {
	var msg string
	if err := chromedp.Run(ctx,
		e2ehelpers.ExpectVisible(GameOverModal, timeout),
		e2ehelpers.TextContent(GameOverMessage, &msg),
	); err != nil {
		return "", err
	}
	return strings.TrimSpace(msg), nil
}

// PlayAgain dismisses the game over modal and starts a new battle.
func (p *Page) PlayAgain() chromedp.Action {
	return chromedp.Tasks{
		e2ehelpers.Click(PlayAgainButton, p.Wait),
		e2ehelpers.WaitUntilDisplayNone(GameOverModal, p.Wait),
	}
}

// OpenSettings clicks the settings button. The game answers with an alert,
// which the browser session accepts.
func (p *Page) OpenSettings() chromedp.Action {
	return e2ehelpers.Click(SettingsButton, p.Wait)
}

// ErrStateHookUnavailable is returned when the state hook expression does not
// resolve to the game's state.
var ErrStateHookUnavailable = errors.New("game state hook unavailable")

// CharacterState is a character as seen through the state hook.
type CharacterState struct {
	Name    string  `json:"name"`
	HP      float64 `json:"hp"`
	MaxHP   float64 `json:"maxHp"`
	Stamina float64 `json:"stamina"`
}

// stateJS collects characters from the hook's state. It accepts a
// "characters" array, map or object, and "playerCharacters" and
// "enemyCharacters" arrays. Characters are keyed by cellId when they carry
// one.
const stateJS = `(() => {
	let s;
	try { s = (%s); } catch (e) { s = undefined; }
	if (s === undefined || s === null) return { ok: false, characters: {} };
	const list = [];
	const add = (key, c) => { if (c && typeof c === 'object') list.push([c.cellId || key, c]); };
	const walk = (v) => {
		if (!v) return;
		if (v instanceof Map) { v.forEach((c, k) => add(String(k), c)); return; }
		if (Array.isArray(v)) { v.forEach((c, i) => add(String(i), c)); return; }
		if (typeof v === 'object') Object.keys(v).forEach(k => add(k, v[k]));
	};
	walk(s.characters);
	walk(s.playerCharacters);
	walk(s.enemyCharacters);
	const out = {};
	for (const [key, c] of list) {
		const st = c.stats || c;
		out[key] = { name: String(c.name || ''), hp: Number(st.hp) || 0, maxHp: Number(st.maxHp) || 0, stamina: Number(st.stamina) || 0 };
	}
	%s
})()`

type hookResult struct {
	OK         bool                      `json:"ok"`
	Found      bool                      `json:"found"`
	Characters map[string]CharacterState `json:"characters"`
}

// Characters reads every character through the state hook, keyed by cell id.
func (p *Page) Characters(ctx context.Context) (map[string]CharacterState, error) {
	var res hookResult
	js := fmt.Sprintf(stateJS, p.StateHook, "return { ok: true, characters: out };")
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &res)); err != nil {
		return nil, fmt.Errorf("state hook %s: %w", p.StateHook, err)
	}
	if !res.OK {
		return nil, fmt.Errorf("%s: %w", p.StateHook, ErrStateHookUnavailable)
	}
	return res.Characters, nil
}

// SetHP overwrites the hit points of the character in cellID.
func (p *Page) SetHP(ctx context.Context, cellID string, hp float64) error {
	set := fmt.Sprintf(`const hit = list.find(([k]) => k === %s);
	if (!hit) return { ok: true, found: false };
	(hit[1].stats || hit[1]).hp = %s;
	return { ok: true, found: true };`, strconv.Quote(cellID), strconv.FormatFloat(hp, 'f', -1, 64))
	var res hookResult
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(stateJS, p.StateHook, set), &res)); err != nil {
		return fmt.Errorf("state hook %s: %w", p.StateHook, err)
	}
	if !res.OK {
		return fmt.Errorf("%s: %w", p.StateHook, ErrStateHookUnavailable)
	}
	if !res.Found {
		return fmt.Errorf("state hook %s: no character in %s", p.StateHook, cellID)
	}
	return nil
}
