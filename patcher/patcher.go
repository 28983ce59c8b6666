// Package patcher performs offline/startup byte-substitution on the browser
// binary to erase automation marker strings.
package patcher

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
)

// Pattern is a single equal-length byte substitution. Unequal-length
// original/replacement pairs are refused at construction time, since they
// would shift file offsets and break binary sections.
type Pattern struct {
	Original    []byte
	Replacement []byte
	Description string
}

// DefaultPatterns is the concrete default pattern set.
//
// Two of the four declared patterns fail the equal-length invariant and are
// filtered out by New with a warning rather than silently reimplemented with
// a different replacement: "webdriver" → "__chimera_internal__" (9 vs 21
// bytes) and "AutomationControlled" → "UserControlled" (20 vs 14 bytes).
// Only Headless → Standard and CDP → PRO actually apply.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Original: []byte("webdriver"), Replacement: []byte("__chimera_internal__"), Description: "hide webdriver marker (rejected: unequal length)"},
		{Original: []byte("Headless"), Replacement: []byte("Standard"), Description: "rewrite Headless build tag"},
		{Original: []byte("CDP"), Replacement: []byte("PRO"), Description: "rewrite CDP marker"},
		{Original: []byte("AutomationControlled"), Replacement: []byte("UserControlled"), Description: "rewrite AutomationControlled flag"},
	}
}

// Patcher applies a fixed pattern set to a binary file.
type Patcher struct {
	patterns []Pattern
}

// New builds a Patcher from the given patterns, dropping any whose
// replacement length differs from its original's (equal-length invariant).
func New(patterns []Pattern) *Patcher {
	kept := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		if len(p.Original) != len(p.Replacement) {
			slog.Warn("patcher: skipping unequal-length pattern",
				"description", p.Description,
				"original_len", len(p.Original),
				"replacement_len", len(p.Replacement),
			)
			continue
		}
		kept = append(kept, p)
	}
	return &Patcher{patterns: kept}
}

// ReplacementCounts maps a pattern description to how many times it fired.
type ReplacementCounts map[string]int

// Patch loads path into memory, applies every kept pattern in place, and
// writes the file back only if at least one replacement occurred. It first
// writes a "<path>.backup" sibling so a dirty patch can be rolled back with
// Restore.
//
// Absent target file is not an error: it is logged and treated as a no-op,
// since patching is optional infrastructure a caller may continue without.
func (p *Patcher) Patch(path string) (ReplacementCounts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("patcher: target file absent, skipping", "path", path)
			return ReplacementCounts{}, nil
		}
		return nil, fmt.Errorf("patcher: read %s: %w", path, err)
	}

	patched := make([]byte, len(data))
	copy(patched, data)

	counts := make(ReplacementCounts, len(p.patterns))
	total := 0
	for _, pat := range p.patterns {
		n := replaceInPlace(patched, pat.Original, pat.Replacement)
		counts[pat.Description] = n
		total += n
	}

	if total == 0 {
		return counts, nil
	}

	if err := os.WriteFile(path+".backup", data, 0o644); err != nil {
		return nil, fmt.Errorf("patcher: write backup for %s: %w", path, err)
	}
	if err := os.WriteFile(path, patched, 0o644); err != nil {
		return nil, fmt.Errorf("patcher: write patched %s: %w", path, err)
	}
	return counts, nil
}

// Restore copies "<path>.backup" back over path, undoing a prior Patch.
func (p *Patcher) Restore(path string) error {
	backup, err := os.ReadFile(path + ".backup")
	if err != nil {
		return fmt.Errorf("patcher: read backup for %s: %w", path, err)
	}
	return os.WriteFile(path, backup, 0o644)
}

// Verify re-reads path and returns true iff none of the original patterns
// (the equal-length kept set) still occur.
func (p *Patcher) Verify(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("patcher: read %s: %w", path, err)
	}
	for _, pat := range p.patterns {
		if bytes.Contains(data, pat.Original) {
			return false, nil
		}
	}
	return true, nil
}

// replaceInPlace scans data forward for occurrences of original, overwrites
// each match with replacement (same length, by construction), and advances
// past the replacement so overlapping re-matches never occur. Returns the
// number of replacements made.
func replaceInPlace(data []byte, original, replacement []byte) int {
	n := 0
	i := 0
	for {
		idx := bytes.Index(data[i:], original)
		if idx < 0 {
			break
		}
		pos := i + idx
		copy(data[pos:pos+len(replacement)], replacement)
		i = pos + len(replacement)
		n++
	}
	return n
}
