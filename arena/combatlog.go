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
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LogKind classifies a combat log line.
type LogKind string

const (
	LogAppear   LogKind = "appear"
	LogAttack   LogKind = "attack"
	LogMiss     LogKind = "miss"
	LogDodge    LogKind = "dodge"
	LogBlock    LogKind = "block"
	LogCrit     LogKind = "crit"
	LogDamage   LogKind = "damage"
	LogDefeated LogKind = "defeated"
	LogVictory  LogKind = "victory"
	LogDefeat   LogKind = "defeat"
	LogOther    LogKind = "other"
)

// LogEvent is a parsed combat log line. Actor and Target are set where the
// line names them.
type LogEvent struct {
	Line   int
	Kind   LogKind
	Actor  string
	Target string
	Amount int
	Text   string
}

// Opening lines written when a battle is set up.
var OpeningLog = []string{
	"A Squire appears!",
	"A wild Gobgob approaches!",
}

var logPatterns = []struct {
	kind LogKind
	re   *regexp.Regexp
}{
	{LogAppear, regexp.MustCompile(`^A (?:wild )?(.+?) (?:appears|approaches)!$`)},
	{LogAttack, regexp.MustCompile(`^(.+?) attacks (.+?)!$`)},
	{LogMiss, regexp.MustCompile(`^\.\.\.but it MISSED!$`)},
	{LogDodge, regexp.MustCompile(`^(.+?) DODGED the attack!$`)},
	{LogBlock, regexp.MustCompile(`^(.+?) BLOCKED the attack!`)},
	{LogCrit, regexp.MustCompile(`^A CRITICAL HIT!$`)},
	{LogDamage, regexp.MustCompile(`^(.+?) takes (\d+) damage\.$`)},
	{LogDefeated, regexp.MustCompile(`^(.+?) has been defeated!$`)},
	{LogVictory, regexp.MustCompile(`^All enemies defeated\. You win!$`)},
	{LogDefeat, regexp.MustCompile(`^All your characters have been defeated\. You lose\.$`)},
}

// ParseLog classifies combat log lines. Lines are 1-based in the result.
func ParseLog(lines []string) []LogEvent {
	events := make([]LogEvent, 0, len(lines))
	for i, raw := range lines {
		text := strings.TrimSpace(raw)
		ev := LogEvent{Line: i + 1, Kind: LogOther, Text: text}
		for _, p := range logPatterns {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			ev.Kind = p.kind
			switch p.kind {
			case LogAppear, LogDefeated:
				ev.Actor = m[1]
			case LogAttack:
				ev.Actor, ev.Target = m[1], m[2]
			case LogDodge, LogBlock:
				ev.Target = m[1]
			case LogDamage:
				ev.Target = m[1]
				ev.Amount, _ = strconv.Atoi(m[2])
			}
			break
		}
		events = append(events, ev)
	}
	return events
}

// Violation is a combat log line that breaks the game's narration rules.
type Violation struct {
	Line   int
	Text   string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("line %d %q: %s", v.Line, v.Text, v.Reason)
}

// Outcome returns the kind of the outcome line in events, LogVictory or
// LogDefeat, or "" when the battle has not ended.
func Outcome(events []LogEvent) LogKind {
	for _, ev := range events {
		if ev.Kind == LogVictory || ev.Kind == LogDefeat {
			return ev.Kind
		}
	}
	return ""
}

// ValidateLog checks the order of combat log events:
//   - miss, dodge, block and crit directly follow an attack;
//   - damage belongs to an attack and hits that attack's defender;
//   - a defeated character took damage first;
//   - there is at most one outcome line and only unrecognized lines follow it.
func ValidateLog(events []LogEvent) []Violation {
	var out []Violation
	flag := func(ev LogEvent, format string, args ...any) {
		out = append(out, Violation{Line: ev.Line, Text: ev.Text, Reason: fmt.Sprintf(format, args...)})
	}

	var (
		prev     LogKind
		attack   *LogEvent
		damaged  = map[string]bool{}
		finished bool
	)
	for i := range events {
		ev := events[i]
		if finished && ev.Kind != LogOther {
			flag(ev, "%s after the battle ended", ev.Kind)
		}
		switch ev.Kind {
		case LogAttack:
			attack = &events[i]
		case LogMiss, LogDodge, LogBlock, LogCrit:
			if prev != LogAttack {
				flag(ev, "%s does not follow an attack", ev.Kind)
			}
			if ev.Target != "" && attack != nil && ev.Target != attack.Target {
				flag(ev, "%s by %s but %s was attacked", ev.Kind, ev.Target, attack.Target)
			}
			if ev.Kind != LogCrit {
				attack = nil
			}
		case LogDamage:
			switch {
			case attack == nil:
				flag(ev, "damage without an attack")
			case ev.Target != attack.Target:
				flag(ev, "%s takes damage but %s was attacked", ev.Target, attack.Target)
			}
			damaged[ev.Target] = true
			attack = nil
		case LogDefeated:
			if !damaged[ev.Actor] {
				flag(ev, "%s defeated without taking damage", ev.Actor)
			}
		case LogVictory, LogDefeat:
			finished = true
		}
		if ev.Kind != LogOther {
			prev = ev.Kind
		}
	}
	return out
}
