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

package scenarios

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ttbt-io/skirmish/arena"
)

const (
	battleTimeout = 3 * time.Minute
	openingGolden = "combat_opening.txt"
)

func combat(ctx context.Context, env *Env) error {
	p := env.Page
	if err := env.Step(ctx, "Start a game",
		p.Open(),
		p.StartGame(),
		p.WaitForParty(len(env.Roster.Party), partyTimeout),
	); err != nil {
		return err
	}

	lines, err := p.CombatLog(ctx)
	if err != nil {
		return err
	}
	opening := Opening(lines)
	if len(opening) == 0 {
		return fmt.Errorf("combat log opens without introductions: %q", lines)
	}
	if env.GoldenDir != "" {
		if err := VerifyGolden(filepath.Join(env.GoldenDir, openingGolden), strings.Join(opening, "\n"), env.UpdateGoldens); err != nil {
			return err
		}
	}

	if err := shortenBattle(ctx, env); err != nil {
		return err
	}
	msg, err := p.WaitGameOver(ctx, battleTimeout)
	if err != nil {
		return err
	}
	env.Log.Logf("Battle ended: %s", msg)
	if err := env.Shot(ctx, "04_game_over.png"); err != nil {
		return err
	}

	lines, err = p.CombatLog(ctx)
	if err != nil {
		return err
	}
	events := arena.ParseLog(lines)
	if v := arena.ValidateLog(events); len(v) > 0 {
		var sb strings.Builder
		for _, x := range v {
			sb.WriteString("\n  ")
			sb.WriteString(x.String())
		}
		return fmt.Errorf("combat log has %d inconsistencies:%s", len(v), sb.String())
	}
	if err := CheckOutcome(events, msg); err != nil {
		return err
	}

	if err := env.Step(ctx, "Play again", p.PlayAgain()); err != nil {
		return err
	}
	lines, err = p.CombatLog(ctx)
	if err != nil {
		return err
	}
	if diff := cmp.Diff(opening, Opening(lines)); diff != "" {
		return fmt.Errorf("combat log after replay does not restart (-want +got):\n%s", diff)
	}
	if o := arena.Outcome(arena.ParseLog(lines)); o != "" {
		return fmt.Errorf("combat log after replay still has a %s line", o)
	}
	return nil
}

// Opening returns the introduction lines that start a combat log.
func Opening(lines []string) []string {
	events := arena.ParseLog(lines)
	n := 0
	for n < len(events) && events[n].Kind == arena.LogAppear {
		n++
	}
	out := make([]string, n)
	for i := range out {
		out[i] = strings.TrimSpace(lines[i])
	}
	return out
}

// CheckOutcome verifies that the log's outcome line agrees with the game over
// message.
func CheckOutcome(events []arena.LogEvent, message string) error {
	var want arena.LogKind
	switch message {
	case arena.MessageVictory:
		want = arena.LogVictory
	case arena.MessageDefeat:
		want = arena.LogDefeat
	default:
		return fmt.Errorf("unexpected game over message %q", message)
	}
	got := arena.Outcome(events)
	if got == "" {
		return fmt.Errorf("game over shows %q but the combat log has no outcome", message)
	}
	if got != want {
		return fmt.Errorf("game over shows %q but the combat log reports %s", message, got)
	}
	return nil
}

// shortenBattle drops every enemy to 1 HP so the next hit ends the fight. It
// does nothing when the game exposes no state hook.
func shortenBattle(ctx context.Context, env *Env) error {
	chars, err := env.Page.Characters(ctx)
	if errors.Is(err, arena.ErrStateHookUnavailable) {
		env.Log.Logf("No state hook, waiting for the battle to end on its own")
		return nil
	}
	if err != nil {
		return err
	}
	for cell, c := range chars {
		if arena.SideOf(cell) != arena.SideEnemy || c.HP <= 1 {
			continue
		}
		if err := env.Page.SetHP(ctx, cell, 1); err != nil {
			return err
		}
	}
	return nil
}
