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
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/skirmish/arena"
	"github.com/ttbt-io/skirmish/tools/e2ehelpers"
)

const (
	bannerTimeout   = 2 * time.Second
	effectTimeout   = 2 * time.Second
	cooldownTick    = time.Second
	naturalWoundFor = 3 * time.Second
)

func abilities(ctx context.Context, env *Env) error {
	p := env.Page
	squire := p.Character("Squire")
	archer := p.Character("Archer")
	priest := p.Character("Priest")
	gobgob := p.Enemy("Gobgob")

	if err := env.Step(ctx, "Start a game",
		p.Open(),
		p.StartGame(),
		p.WaitForParty(len(env.Roster.Party), partyTimeout),
	); err != nil {
		return err
	}

	if err := env.Step(ctx, "Squire defends the Archer",
		p.UseAbility(squire, arena.AbilityDefend),
		p.ExpectTargeting(),
		e2ehelpers.Click(archer, p.Wait),
		p.ExpectCastBanner(p.Wait, bannerTimeout),
		p.ExpectParticle(archer, arena.ParticleShield, p.Wait),
	); err != nil {
		return err
	}

	if err := env.Step(ctx, "Reopen the Squire's abilities",
		p.SelectCharacter(squire),
		e2ehelpers.ExpectVisible(arena.CooldownText(arena.AbilityDefend), p.Wait),
	); err != nil {
		return err
	}
	before, err := p.Cooldown(ctx, arena.AbilityDefend)
	if err != nil {
		return err
	}
	if err := env.Step(ctx, "Let the cooldown tick", chromedp.Sleep(cooldownTick)); err != nil {
		return err
	}
	after, err := p.Cooldown(ctx, arena.AbilityDefend)
	if err != nil {
		return err
	}
	env.Log.Logf("Defend cooldown: %v -> %v", before, after)
	if after >= before {
		return fmt.Errorf("defend cooldown did not tick down: %v then %v", before, after)
	}
	if err := env.Step(ctx, "Close the ability panel", p.CloseAbilities()); err != nil {
		return err
	}

	var snipe arena.FloatingText
	if err := env.Step(ctx, "Archer snipes a Gobgob",
		p.CastAbility(archer, arena.AbilitySnipe, gobgob),
		p.ExpectFloatingText(gobgob, arena.FloatDamage, "", effectTimeout),
		p.ReadFloatingText(gobgob, arena.FloatDamage, &snipe),
	); err != nil {
		return err
	}
	if snipe.Amount <= 0 {
		return fmt.Errorf("snipe shows %d damage, want more than 0", snipe.Amount)
	}

	if err := woundSquire(ctx, env); err != nil {
		return err
	}

	var healed arena.FloatingText
	if err := env.Step(ctx, "Priest heals the Squire",
		p.CastAbility(priest, arena.AbilityHeal, squire),
		p.ExpectFloatingText(squire, arena.FloatHeal, "+"+strconv.Itoa(arena.HealAmount), p.Wait),
		p.ReadFloatingText(squire, arena.FloatHeal, &healed),
		p.ExpectParticle(squire, arena.ParticleRegen, effectTimeout),
	); err != nil {
		return err
	}
	if healed.Amount != arena.HealAmount {
		return fmt.Errorf("heal shows +%d, want +%d", healed.Amount, arena.HealAmount)
	}
	return env.Shot(ctx, "03_abilities.png")
}

// woundSquire halves the Squire's hit points through the state hook, or lets
// the battle run for a while when the game exposes no hook.
func woundSquire(ctx context.Context, env *Env) error {
	chars, err := env.Page.Characters(ctx)
	if errors.Is(err, arena.ErrStateHookUnavailable) {
		env.Log.Logf("No state hook, letting the battle wound the Squire")
		return env.Step(ctx, "Let the battle wound the Squire", chromedp.Sleep(naturalWoundFor))
	}
	if err != nil {
		return err
	}
	for cell, c := range chars {
		if c.Name != "Squire" || arena.SideOf(cell) != arena.SidePlayer {
			continue
		}
		hp := c.MaxHP / 2
		if hp < 1 {
			hp = 1
		}
		env.Log.Logf("Setting Squire in %s to %v HP", cell, hp)
		return env.Page.SetHP(ctx, cell, hp)
	}
	return fmt.Errorf("state hook %s: no Squire on the player grid", env.Page.StateHook)
}
