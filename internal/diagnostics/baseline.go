package diagnostics

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/standardbeagle/sentrygo/internal/failures"
	"github.com/standardbeagle/sentrygo/internal/rules"
)

const BaselineVersion = 1

// BaselineEntry is one suppressed fingerprint, spec §6's
// `{rule_id, file, line, fingerprint}`.
type BaselineEntry struct {
	RuleID      string `json:"rule_id"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Fingerprint string `json:"fingerprint"`
}

// Baseline is the structured document spec §6 defines: a version, a
// creation timestamp, an optional expiry, and the suppressed entries.
type Baseline struct {
	Version    int             `json:"version"`
	Created    string          `json:"created"`
	Expires    string          `json:"expires,omitempty"`
	Violations []BaselineEntry `json:"violations"`

	fingerprints map[string]bool
}

// NewBaseline captures the given violations as a fresh baseline,
// created now with no expiry.
func NewBaseline(violations []rules.Violation) *Baseline {
	entries := make([]BaselineEntry, 0, len(violations))
	for _, v := range violations {
		entries = append(entries, BaselineEntry{
			RuleID: v.RuleID, File: v.Location.File, Line: v.Location.Line, Fingerprint: v.Fingerprint,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].File != entries[j].File {
			return entries[i].File < entries[j].File
		}
		if entries[i].Line != entries[j].Line {
			return entries[i].Line < entries[j].Line
		}
		return entries[i].RuleID < entries[j].RuleID
	})
	return &Baseline{
		Version:    BaselineVersion,
		Created:    nowFunc().UTC().Format(time.RFC3339),
		Violations: entries,
	}
}

// Suppresses reports whether fingerprint is present in the baseline and
// the baseline has not expired (spec §4.8 step 2).
func (b *Baseline) Suppresses(fingerprint string) bool {
	if b == nil {
		return false
	}
	if b.isExpired() {
		return false
	}
	if b.fingerprints == nil {
		b.fingerprints = make(map[string]bool, len(b.Violations))
		for _, e := range b.Violations {
			b.fingerprints[e.Fingerprint] = true
		}
	}
	return b.fingerprints[fingerprint]
}

func (b *Baseline) isExpired() bool {
	if b.Expires == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, b.Expires)
	if err != nil {
		return false
	}
	return nowFunc().After(t)
}

// LoadBaseline reads and parses a baseline file. Per spec §7, a
// malformed file or version mismatch is never fatal: the caller treats
// a non-nil error as "no baseline" and emits a warning.
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failures.NewBaselineError(path, err)
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, failures.NewBaselineError(path, err)
	}
	if b.Version != BaselineVersion {
		return nil, failures.NewBaselineError(path, errVersionMismatch(b.Version))
	}
	return &b, nil
}

type errVersionMismatch int

func (e errVersionMismatch) Error() string {
	return "unsupported baseline version"
}

// WriteBaseline serializes b to path as indented JSON.
func WriteBaseline(path string, b *Baseline) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return failures.NewBaselineError(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return failures.NewBaselineError(path, err)
	}
	return nil
}
