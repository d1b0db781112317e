package domain

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Resolution maps full state names to canonical codes and records how
// ambiguities were settled.
type Resolution struct {
	// Codes maps a full state name ("Alabama") to its canonical code ("AL").
	Codes map[string]string
	// Collisions lists entries removed because a derived code was literally
	// the same string as another observed full name. The full-name mapping
	// wins; the removal is reported, never silent.
	Collisions []Collision
}

// Collision records one removed ambiguous mapping.
type Collision struct {
	Removed string // the entry deleted from the mapping
	Code    string // the code that clashed
	Name    string // the full name whose mapping was kept
}

// IsStateCode reports whether a state value is already a two-letter
// uppercase canonical code rather than a full name. Such values never spawn
// a State entity; they are assumed canonical as-is.
func IsStateCode(s string) bool {
	if utf8.RuneCountInString(s) != 2 {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// FallbackCode synthesizes a state code from the first two characters of a
// state value, uppercased. Used when no location-derived code exists.
func FallbackCode(state string) string {
	rs := []rune(state)
	if len(rs) > 2 {
		rs = rs[:2]
	}
	return strings.ToUpper(string(rs))
}

// ResolveStateCodes derives the canonical name-to-code mapping from the full
// normalized dataset. For each full state name the code is taken from the
// first location of the shape "<city>, <CODE>" among that state's rows.
// Groups are processed in sorted name order so the result is deterministic.
func ResolveStateCodes(rows []CanonicalRow) Resolution {
	// Group locations by state name, preserving first-seen order per group.
	locations := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, row := range rows {
		name := row.State
		if name == "" || IsStateCode(name) {
			continue
		}
		if seen[name] == nil {
			seen[name] = make(map[string]bool)
		}
		if row.Location == "" || seen[name][row.Location] {
			continue
		}
		seen[name][row.Location] = true
		locations[name] = append(locations[name], row.Location)
	}

	names := make([]string, 0, len(locations))
	for name := range locations {
		names = append(names, name)
	}
	sort.Strings(names)

	res := Resolution{Codes: make(map[string]string, len(names))}
	for _, name := range names {
		for _, loc := range locations[name] {
			parts := strings.Split(loc, ", ")
			if len(parts) >= 2 {
				res.Codes[name] = parts[1]
				break
			}
		}
	}

	// A derived code that is itself an observed full name is ambiguous.
	// Drop the short entry in favor of the unambiguous full-name mapping.
	for _, name := range names {
		code, ok := res.Codes[name]
		if !ok || code == name {
			continue
		}
		if _, exists := res.Codes[code]; exists {
			delete(res.Codes, code)
			res.Collisions = append(res.Collisions, Collision{Removed: code, Code: code, Name: name})
		}
	}

	return res
}

// CodeFor returns the effective state code for a raw state value: mapped
// full names use their derived code, everything else (including values that
// already are codes) falls back to the first two characters uppercased.
func (r Resolution) CodeFor(state string) string {
	if code, ok := r.Codes[state]; ok {
		return code
	}
	return FallbackCode(state)
}
