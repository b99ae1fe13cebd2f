// Package matcher recognizes attraction mentions in free text with a
// multi-pattern Aho-Corasick scan over the vocabulary.
package matcher

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"tourist-kgqa/internal/common/logger"
	"tourist-kgqa/internal/vocab"
)

// EntityKind tags what a recognized entity is. Everything in the current
// vocabulary is an attraction; the kind set exists so the merge rule survives
// a second kind being added.
type EntityKind string

const KindAttraction EntityKind = "attraction"

// Matcher scans questions for vocabulary entries and resolves the survivors
// to canonical names.
type Matcher struct {
	store     *vocab.Store
	patterns  []string
	automaton *ahocorasick.Matcher
}

// New builds the automaton over the union of canonical names and aliases.
// Empty or whitespace-only entries are skipped. An empty vocabulary yields a
// matcher that recognizes nothing.
func New(store *vocab.Store, log logger.Logger) *Matcher {
	var patterns []string
	for _, entry := range store.Entries() {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		patterns = append(patterns, entry)
	}

	m := &Matcher{store: store, patterns: patterns}
	if len(patterns) == 0 {
		log.Warn("no patterns for entity matcher, nothing will be recognized", nil)
		return m
	}

	m.automaton = ahocorasick.NewStringMatcher(patterns)
	log.Info("entity matcher built", map[string]interface{}{"patterns": len(patterns)})
	return m
}

// Match returns every recognized entity in question, keyed by canonical
// name, plus the canonical names ordered by where their surface form first
// occurs in the question. An empty map means the question could not be
// grounded; callers defer to the fallback rather than treating it as an
// error.
func (m *Matcher) Match(question string) (map[string][]EntityKind, []string) {
	entities := make(map[string][]EntityKind)
	if m.automaton == nil || question == "" {
		return entities, nil
	}

	raw := make([]string, 0, 4)
	for _, idx := range m.automaton.Match([]byte(question)) {
		raw = append(raw, m.patterns[idx])
	}
	if len(raw) == 0 {
		return entities, nil
	}

	positions := make(map[string]int)
	for _, surface := range longestMatches(raw) {
		canonical := m.store.Resolve(surface)
		entities[canonical] = mergeKinds(entities[canonical], KindAttraction)

		// Two surface forms can resolve to one canonical name; the
		// earliest occurrence decides its place in the answer.
		pos := strings.Index(question, surface)
		if prev, ok := positions[canonical]; !ok || pos < prev {
			positions[canonical] = pos
		}
	}

	order := make([]string, 0, len(positions))
	for canonical := range positions {
		order = append(order, canonical)
	}
	sort.Slice(order, func(i, j int) bool {
		if positions[order[i]] != positions[order[j]] {
			return positions[order[i]] < positions[order[j]]
		}
		return order[i] < order[j]
	})
	return entities, order
}

// longestMatches drops every match that is a strict substring of any other
// distinct match. Checking against the full raw set makes the removal
// transitive: a survivor is a substring of no other match at all. Distinct
// equal-length matches all survive.
func longestMatches(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, wd1 := range raw {
		contained := false
		for _, wd2 := range raw {
			if wd1 != wd2 && strings.Contains(wd2, wd1) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, wd1)
		}
	}
	return out
}

// mergeKinds unions a kind into an existing set, preserving order.
func mergeKinds(kinds []EntityKind, kind EntityKind) []EntityKind {
	for _, k := range kinds {
		if k == kind {
			return kinds
		}
	}
	return append(kinds, kind)
}
