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
	"strconv"
	"strings"
)

// FloatKind is the CSS class of a floating combat text element.
type FloatKind string

const (
	FloatDamage FloatKind = "damage"
	FloatCrit   FloatKind = "crit"
	FloatHeal   FloatKind = "heal"
	FloatMiss   FloatKind = "miss"
	FloatDodge  FloatKind = "dodge"
)

// FloatingText is one parsed floating combat text.
type FloatingText struct {
	Kind   FloatKind
	Amount int
}

// ParseFloatingText parses the text shown above a character. The kind is the
// element's class; it must agree with the text. "-N" is damage, "-N!!" a
// critical hit, "+N" a heal, "MISS" and "DODGE!" carry no amount.
func ParseFloatingText(text string, kind FloatKind) (FloatingText, error) {
	t := strings.TrimSpace(text)
	var got FloatingText
	switch {
	case strings.EqualFold(t, "MISS"):
		got.Kind = FloatMiss
	case strings.EqualFold(t, "DODGE!"):
		got.Kind = FloatDodge
	case strings.HasPrefix(t, "-") && strings.HasSuffix(t, "!!"):
		n, err := parseAmount(t[1 : len(t)-2])
		if err != nil {
			return FloatingText{}, fmt.Errorf("floating text %q: %w", text, err)
		}
		got = FloatingText{Kind: FloatCrit, Amount: n}
	case strings.HasPrefix(t, "-"):
		n, err := parseAmount(t[1:])
		if err != nil {
			return FloatingText{}, fmt.Errorf("floating text %q: %w", text, err)
		}
		got = FloatingText{Kind: FloatDamage, Amount: n}
	case strings.HasPrefix(t, "+"):
		n, err := parseAmount(t[1:])
		if err != nil {
			return FloatingText{}, fmt.Errorf("floating text %q: %w", text, err)
		}
		got = FloatingText{Kind: FloatHeal, Amount: n}
	default:
		return FloatingText{}, fmt.Errorf("floating text %q: unrecognized", text)
	}
	if kind != "" && kind != got.Kind {
		return FloatingText{}, fmt.Errorf("floating text %q: shown as %s, reads as %s", text, kind, got.Kind)
	}
	return got, nil
}

func parseAmount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative amount %d", n)
	}
	return n, nil
}
