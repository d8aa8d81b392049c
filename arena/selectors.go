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

// Package arena describes the combat game's page: the DOM contract the
// verification scenarios rely on, and actions that drive it like a player.
package arena

import (
	"strconv"
	"strings"

	"github.com/ttbt-io/skirmish/tools/e2ehelpers"
)

// Element locators of the game under test.
var (
	MainMenu       = e2ehelpers.CSS("#main-menu")
	StartButton    = e2ehelpers.Role("button", "Start Game")
	SettingsButton = e2ehelpers.CSS("#settings")
	GameContainer  = e2ehelpers.CSS("#game-container")

	PlayerGrid   = e2ehelpers.CSS("#player-grid")
	EnemyGrid    = e2ehelpers.CSS("#enemy-grid")
	PlayerArt    = e2ehelpers.CSS("#player-grid .character-art")
	EnemyArt     = e2ehelpers.CSS("#enemy-grid .character-art")
	CombatLogMsg = e2ehelpers.CSS("#combat-log .combat-log-message")

	AbilityPanel      = e2ehelpers.CSS("#ability-panel")
	AbilityButtons    = e2ehelpers.CSS(".ability-button")
	AbilityPanelClose = e2ehelpers.CSS("#ability-panel-close")
	TargetingModal    = e2ehelpers.CSS("#targeting-modal")
	AbilityCastBanner = e2ehelpers.CSS("#ability-cast-name-display")
	GameOverModal     = e2ehelpers.CSS("#game-over-modal")
	GameOverMessage   = e2ehelpers.CSS("#game-over-message")
	PlayAgainButton   = e2ehelpers.CSS("#play-again-btn")
)

// Sides of the battlefield. Grid cells are named "<side>-cell-<n>".
const (
	SidePlayer = "player"
	SideEnemy  = "enemy"

	GridCells = 9
)

// Abilities and the effects they render.
const (
	AbilityDefend = "Defend"
	AbilitySnipe  = "Snipe"
	AbilityHeal   = "Heal"

	ParticleShield = "🛡"
	ParticleRegen  = "+"

	HealAmount = 50
)

// Game over messages.
const (
	MessageVictory = "Victory!"
	MessageDefeat  = "Defeat!"
)

// Roster is the cast the game is expected to field.
type Roster struct {
	Party   []string
	Enemies []string
}

// DefaultRoster is the current line-up: three heroes against goblins.
var DefaultRoster = Roster{
	Party:   []string{"Squire", "Archer", "Priest"},
	Enemies: []string{"Gobgob"},
}

// CellID returns the element id of a grid cell.
func CellID(side string, index int) string {
	return side + "-cell-" + strconv.Itoa(index)
}

// SideOf reports which side a cell id belongs to, or "" if it is not a grid
// cell id.
func SideOf(cellID string) string {
	for _, side := range []string{SidePlayer, SideEnemy} {
		n, ok := strings.CutPrefix(cellID, side+"-cell-")
		if !ok {
			continue
		}
		if i, err := strconv.Atoi(n); err == nil && i >= 0 && i < GridCells {
			return side
		}
	}
	return ""
}

// Cell locates a grid cell by id.
func Cell(side string, index int) e2ehelpers.Locator {
	return e2ehelpers.CSS("#" + CellID(side, index))
}

// Character locates the grid cell of a character on either side.
func Character(name string) e2ehelpers.Locator {
	return e2ehelpers.CSS(".grid-cell").HasText(name)
}

// Hero locates the first player cell holding a character called name.
func Hero(name string) e2ehelpers.Locator {
	return e2ehelpers.CSS("#player-grid .grid-cell").HasText(name).First()
}

// Enemy locates the first enemy cell holding a character called name.
func Enemy(name string) e2ehelpers.Locator {
	return e2ehelpers.CSS("#enemy-grid .grid-cell").HasText(name).First()
}

// AbilityButton locates the button of an ability in the open panel.
func AbilityButton(ability string) e2ehelpers.Locator {
	return e2ehelpers.Role("button", ability)
}

// CooldownText locates the remaining cooldown shown on an ability button.
func CooldownText(ability string) e2ehelpers.Locator {
	return e2ehelpers.CSS(".ability-button").HasText(ability).Locator(".cooldown-text")
}

// Particle locates particle effects with the given glyph inside a cell.
func Particle(on e2ehelpers.Locator, glyph string) e2ehelpers.Locator {
	return on.Locator(".ability-particle").Text(glyph)
}

// Floating locates floating combat text of a kind inside a cell. When
// contains is not empty the text must include it.
func Floating(on e2ehelpers.Locator, kind FloatKind, contains string) e2ehelpers.Locator {
	l := on.Locator(".floating-text." + string(kind))
	if contains != "" {
		l = l.HasText(contains)
	}
	return l
}
