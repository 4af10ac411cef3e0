// Package diagnostics implements the Diagnostics Pipeline (spec §4.8):
// severity resolution, baseline suppression, minimum-severity
// filtering, deterministic sorting, and the human/JSON/agent-JSON
// output formats of spec §6.
package diagnostics

import (
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/settings"
)

// severityRank orders severities for the minimum-severity filter and
// for fail_on comparisons in `ci`.
var severityRank = map[rules.Severity]int{
	rules.SeveritySuggestion: 0,
	rules.SeverityWarning:    1,
	rules.SeverityError:      2,
}

// Fingerprint computes the stable deterministic hash spec §4.8 defines:
// xxhash64 of "rule_id:file:line:message", hex-encoded.
func Fingerprint(ruleID, relPath string, line int, message string) string {
	h := xxhash.Sum64String(fmt.Sprintf("%s:%s:%d:%s", ruleID, relPath, line, message))
	return fmt.Sprintf("%016x", h)
}

// Pipeline runs the four-stage process over a batch of raw violations.
type Pipeline struct {
	Config       *settings.Resolved
	Baseline     *Baseline
	MinSeverity  rules.Severity
}

// Process applies effective severity, baseline suppression, the
// minimum-severity filter, and the deterministic sort, in that order
// (spec §4.8 steps 1-4).
func (p *Pipeline) Process(violations []rules.Violation) []rules.Violation {
	out := make([]rules.Violation, 0, len(violations))
	for _, v := range violations {
		v.Severity = rules.Severity(p.Config.Severity(v.RuleID, v.Location.File, string(v.Severity)))
		if v.Fingerprint == "" {
			v.Fingerprint = Fingerprint(v.RuleID, v.Location.File, v.Location.Line, v.Message)
		}
		if p.Baseline != nil && p.Baseline.Suppresses(v.Fingerprint) {
			continue
		}
		if severityRank[v.Severity] < severityRank[p.MinSeverity] {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		if a.Location.Line != b.Location.Line {
			return a.Location.Line < b.Location.Line
		}
		if a.Location.Column != b.Location.Column {
			return a.Location.Column < b.Location.Column
		}
		return a.RuleID < b.RuleID
	})
	return out
}

// Summary tallies violations per severity, the JSON format's "summary"
// object.
type Summary struct {
	Error      int `json:"error"`
	Warning    int `json:"warning"`
	Suggestion int `json:"suggestion"`
}

func summarize(violations []rules.Violation) Summary {
	var s Summary
	for _, v := range violations {
		switch v.Severity {
		case rules.SeverityError:
			s.Error++
		case rules.SeverityWarning:
			s.Warning++
		default:
			s.Suggestion++
		}
	}
	return s
}

// WorstSeverity reports the highest severity present, or "" if none.
func WorstSeverity(violations []rules.Violation) rules.Severity {
	worst := rules.Severity("")
	for _, v := range violations {
		if worst == "" || severityRank[v.Severity] > severityRank[worst] {
			worst = v.Severity
		}
	}
	return worst
}

// MeetsOrExceeds reports whether sev is at or above threshold, for the
// `ci` verb's fail_on comparison.
func MeetsOrExceeds(sev, threshold rules.Severity) bool {
	return severityRank[sev] >= severityRank[threshold]
}

// nowFunc is overridable in tests; production code always uses
// time.Now.
var nowFunc = time.Now
