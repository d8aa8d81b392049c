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
	"fmt"
	"time"

	"github.com/ttbt-io/skirmish/arena"
	"github.com/ttbt-io/skirmish/tools/e2ehelpers"
)

const (
	loadTimeout  = 10 * time.Second
	partyTimeout = 10 * time.Second
)

func mainMenu(ctx context.Context, env *Env) error {
	if err := env.Step(ctx, "Load the main menu",
		env.Page.Open(),
		e2ehelpers.ExpectVisible(arena.MainMenu, loadTimeout),
		e2ehelpers.ExpectVisible(arena.StartButton, env.Page.Wait),
	); err != nil {
		return err
	}
	return env.Shot(ctx, "01_main_menu.png")
}

func party(ctx context.Context, env *Env) error {
	if err := env.Step(ctx, "Start a game",
		env.Page.Open(),
		env.Page.StartGame(),
		env.Page.WaitForParty(len(env.Roster.Party), partyTimeout),
	); err != nil {
		return err
	}
	for _, name := range env.Roster.Party {
		if err := env.Step(ctx, fmt.Sprintf("Find %s on the player grid", name),
			e2ehelpers.ExpectVisible(arena.Hero(name), env.Page.Wait),
		); err != nil {
			return err
		}
	}
	for _, name := range env.Roster.Enemies {
		if err := env.Step(ctx, fmt.Sprintf("Find %s on the enemy grid", name),
			e2ehelpers.ExpectVisible(arena.Enemy(name), env.Page.Wait),
		); err != nil {
			return err
		}
	}
	for _, line := range arena.OpeningLog {
		if err := env.Step(ctx, fmt.Sprintf("Read %q in the combat log", line),
			e2ehelpers.ExpectText(arena.CombatLogMsg, line, env.Page.Wait),
		); err != nil {
			return err
		}
	}
	return env.Shot(ctx, "02_party.png")
}

func settings(ctx context.Context, env *Env) error {
	if err := env.Step(ctx, "Open settings",
		env.Page.Open(),
		env.Page.OpenSettings(),
	); err != nil {
		return err
	}
	return env.WaitForDialog(ctx, "not yet implemented", env.Page.Wait)
}
