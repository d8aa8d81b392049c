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

// Package search parses run history queries such as
// `status:failed scenario:combat date:>=2026-10-01 1f3c`.
package search

import (
	"strings"
	"unicode"
)

type Operator string

const (
	OpEqual          Operator = "="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpRange          Operator = ".." // date:2026-10-01..2026-10-31
)

// Filter is one key:value term of a query.
type Filter struct {
	Key      string
	Value    string
	MaxValue string // OpRange only
	Operator Operator
}

// Query is a parsed query. Terms without a key are free text.
type Query struct {
	Filters  []Filter
	FreeText []string
}

// Empty reports whether the query has no terms.
func (q Query) Empty() bool {
	return len(q.Filters) == 0 && len(q.FreeText) == 0
}

// prefixOps are checked in order; two-character operators first.
var prefixOps = []Operator{OpGreaterOrEqual, OpLessOrEqual, OpGreater, OpLess}

// Parse parses a query string. Values may be quoted to include spaces
// (scenario:"main-menu"). A term whose value holds an unquoted colon, or whose
// key or value is empty, is kept as free text.
func Parse(input string) Query {
	q := Query{Filters: []Filter{}, FreeText: []string{}}
	for _, token := range tokenize(input) {
		key, val, ok := strings.Cut(token, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		quoted := strings.HasPrefix(val, `"`) || strings.HasPrefix(val, "'")
		if !ok || key == "" || val == "" || (strings.Contains(val, ":") && !quoted) {
			q.FreeText = append(q.FreeText, removeQuotes(token))
			continue
		}
		q.Filters = append(q.Filters, parseFilter(key, val))
	}
	return q
}

func parseFilter(key, val string) Filter {
	if lo, hi, ok := strings.Cut(val, string(OpRange)); ok {
		return Filter{Key: key, Value: removeQuotes(lo), MaxValue: removeQuotes(hi), Operator: OpRange}
	}
	for _, op := range prefixOps {
		if rest, ok := strings.CutPrefix(val, string(op)); ok {
			return Filter{Key: key, Value: removeQuotes(rest), Operator: op}
		}
	}
	return Filter{Key: key, Value: removeQuotes(val), Operator: OpEqual}
}

// Compare reports whether v satisfies f, comparing strings lexically. Dates
// in YYYY-MM-DD form compare correctly this way, and a shorter bound such as
// "2026-10" matches every day of the month.
func (f Filter) Compare(v string) bool {
	switch f.Operator {
	case OpGreater:
		return v > f.Value && !strings.HasPrefix(v, f.Value)
	case OpGreaterOrEqual:
		return v >= f.Value
	case OpLess:
		return v < f.Value
	case OpLessOrEqual:
		return v <= f.Value || strings.HasPrefix(v, f.Value)
	case OpRange:
		return v >= f.Value && (v <= f.MaxValue || strings.HasPrefix(v, f.MaxValue))
	default:
		return strings.EqualFold(v, f.Value)
	}
}

// tokenize splits input on spaces outside of quotes.
func tokenize(input string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
	)
	for _, r := range input {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case unicode.IsSpace(r):
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func removeQuotes(s string) string {
	if len(s) >= 2 {
		if first, last := s[0], s[len(s)-1]; first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
