// Package vocab loads and holds the recognized attraction names and the
// alias table mapping alternate surface forms to canonical names. The store
// is built once at startup and never mutated afterwards.
package vocab

import (
	"bufio"
	"os"
	"strings"

	"tourist-kgqa/internal/common/logger"
)

// Store holds the canonical attraction names and the alias map.
type Store struct {
	names   map[string]struct{}
	aliases map[string]string
}

// Load reads the newline-delimited dictionary at path and validates aliases
// against it. A missing or empty dictionary is a warning, not an error: the
// resulting store simply recognizes nothing and every question defers to the
// fallback.
func Load(path string, aliases map[string]string, log logger.Logger) *Store {
	s := &Store{
		names:   make(map[string]struct{}),
		aliases: make(map[string]string, len(aliases)),
	}

	f, err := os.Open(path)
	if err != nil {
		log.Warn("vocabulary file not found, matcher will recognize nothing", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	} else {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			name := strings.TrimSpace(scanner.Text())
			if name == "" {
				continue
			}
			s.names[name] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			log.Warn("vocabulary file read stopped early", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}

	if len(s.names) == 0 {
		log.Warn("vocabulary is empty", map[string]interface{}{"path": path})
	} else {
		log.Info("vocabulary loaded", map[string]interface{}{
			"path":  path,
			"count": len(s.names),
		})
	}

	// The alias table is hand-maintained and can drift from the generated
	// dictionary. A dangling alias resolves to itself rather than to a name
	// the graph cannot hold.
	for alias, canonical := range aliases {
		alias = strings.TrimSpace(alias)
		canonical = strings.TrimSpace(canonical)
		if alias == "" || canonical == "" {
			continue
		}
		if _, ok := s.names[canonical]; !ok && alias != canonical {
			log.Warn("alias points at a name missing from the vocabulary", map[string]interface{}{
				"alias":     alias,
				"canonical": canonical,
			})
			s.aliases[alias] = alias
			continue
		}
		s.aliases[alias] = canonical
	}

	return s
}

// Entries returns the union of canonical names and alias keys, the full set
// of surface forms the matcher should recognize.
func (s *Store) Entries() []string {
	seen := make(map[string]struct{}, len(s.names)+len(s.aliases))
	out := make([]string, 0, len(s.names)+len(s.aliases))
	for name := range s.names {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	for alias := range s.aliases {
		if _, ok := seen[alias]; !ok {
			seen[alias] = struct{}{}
			out = append(out, alias)
		}
	}
	return out
}

// Resolve maps a matched surface form to its canonical name. Non-alias
// surface forms resolve to themselves.
func (s *Store) Resolve(surface string) string {
	if canonical, ok := s.aliases[surface]; ok {
		return canonical
	}
	return surface
}

// Contains reports whether name is a known canonical name.
func (s *Store) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of canonical names loaded.
func (s *Store) Len() int {
	return len(s.names)
}
