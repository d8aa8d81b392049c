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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/skirmish/arena"
	"github.com/ttbt-io/skirmish/backend"
	"github.com/ttbt-io/skirmish/tools/e2ehelpers"
)

var (
	chromeURL = flag.String("chrome-url", "", "The url of the remote debugging port. Empty launches a local browser")
	gameDir   = flag.String("game-dir", "", "Directory holding the game's index.html and assets")
	outputDir = flag.String("output-dir", "screenshots", "Directory to save screenshots")
	stateHook = flag.String("state-hook", "window.gameState", "JavaScript expression of the game's test state hook")
)

func main() {
	flag.Parse()

	if *gameDir == "" {
		log.Fatal("--game-dir must be set")
	}

	server, err := backend.StartServer(backend.Options{Addr: "127.0.0.1:0", Assets: os.DirFS(*gameDir)})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	defer server.Shutdown(context.Background())
	baseURL := server.URL() + "/"
	log.Printf("Server started at %s", baseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second) // very generous timeout
	defer cancel()

	if err := backend.WaitForServer(ctx, baseURL, 10*time.Second); err != nil {
		log.Fatalf("Server not ready: %v", err)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	session, err := e2ehelpers.NewSession(ctx, e2ehelpers.SessionOptions{RemoteURL: *chromeURL, Headless: true})
	if err != nil {
		log.Fatalf("Failed to start browser: %v", err)
	}
	defer session.Close()

	log.Println("Starting screenshot generation...")
	if err := generateGallery(session, arena.New(baseURL, *stateHook, 10*time.Second)); err != nil {
		log.Fatalf("Failed to generate screenshots: %v", err)
	}
	log.Println("Screenshots generated successfully.")
}

func debugFailure(session *e2ehelpers.Session, name string) {
	log.Printf("DEBUG: capturing failure info for %s", name)
	if err := session.DumpHTML(filepath.Join(*outputDir, fmt.Sprintf("debug-%s.html", name))); err != nil {
		log.Printf("DEBUG: Failed to capture HTML: %v", err)
	}
	if err := session.Screenshot(filepath.Join(*outputDir, fmt.Sprintf("debug-%s.png", name))); err != nil {
		log.Printf("DEBUG: Failed to capture screenshot: %v", err)
	}
}

// runAction executes a chromedp action with a timeout and debug capture on failure.
func runAction(session *e2ehelpers.Session, name string, action chromedp.Action, timeout time.Duration) error {
	stepCtx, cancel := context.WithTimeout(session.Context(), timeout)
	defer cancel()
	if err := chromedp.Run(stepCtx, action); err != nil {
		log.Printf("Action '%s' failed: %v", name, err)
		debugFailure(session, name+"-failed")
		return err
	}
	return nil
}

func generateGallery(session *e2ehelpers.Session, p *arena.Page) error {
	ctx := session.Context()
	shot := func(name string) error {
		return session.Screenshot(filepath.Join(*outputDir, name))
	}

	log.Println("Gallery: Main Menu")
	if err := runAction(session, "main-menu", p.Open(), 15*time.Second); err != nil {
		return err
	}
	if err := shot("main-menu.png"); err != nil {
		return err
	}

	log.Println("Gallery: Battlefield")
	if err := runAction(session, "battlefield", chromedp.Tasks{
		e2ehelpers.DisableCSSAnimations(),
		p.StartGame(),
		p.WaitForParty(len(arena.DefaultRoster.Party), 10*time.Second),
	}, 15*time.Second); err != nil {
		return err
	}
	if err := shot("battlefield.png"); err != nil {
		return err
	}

	log.Println("Gallery: Characters")
	for _, name := range arena.DefaultRoster.Party {
		if err := e2ehelpers.CaptureElement(ctx, arena.Hero(name), filepath.Join(*outputDir, "hero-"+e2ehelpers.Slug(name)+".png")); err != nil {
			return err
		}
	}
	for _, name := range arena.DefaultRoster.Enemies {
		if err := e2ehelpers.CaptureElement(ctx, arena.Enemy(name), filepath.Join(*outputDir, "enemy-"+e2ehelpers.Slug(name)+".png")); err != nil {
			return err
		}
	}

	log.Println("Gallery: Ability Panel")
	squire := p.Character("Squire")
	if err := runAction(session, "ability-panel", p.SelectCharacter(squire), 10*time.Second); err != nil {
		return err
	}
	if err := shot("ability-panel.png"); err != nil {
		return err
	}

	log.Println("Gallery: Targeting")
	if err := runAction(session, "targeting", chromedp.Tasks{
		e2ehelpers.Click(arena.AbilityButton(arena.AbilityDefend), p.Wait),
		p.ExpectTargeting(),
	}, 10*time.Second); err != nil {
		return err
	}
	if err := shot("targeting.png"); err != nil {
		return err
	}
	if err := runAction(session, "cast", e2ehelpers.Click(p.Character("Archer"), p.Wait), 10*time.Second); err != nil {
		return err
	}

	log.Println("Gallery: Game Over")
	chars, err := p.Characters(ctx)
	switch {
	case errors.Is(err, arena.ErrStateHookUnavailable):
		log.Println("Gallery: no state hook, waiting for the battle to end")
	case err != nil:
		return err
	default:
		for cell := range chars {
			if arena.SideOf(cell) == arena.SideEnemy {
				if err := p.SetHP(ctx, cell, 1); err != nil {
					return err
				}
			}
		}
	}
	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Second)
	defer cancel()
	if _, err := p.WaitGameOver(waitCtx, 150*time.Second); err != nil {
		debugFailure(session, "game-over-timeout")
		return err
	}
	return shot("game-over.png")
}
