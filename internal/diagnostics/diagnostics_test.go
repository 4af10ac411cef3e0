package diagnostics_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/diagnostics"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/settings"
)

func resolvedConfig() *settings.Resolved {
	return settings.Resolve(settings.DefaultProfile(), settings.NewDocument(), func(string) string { return "" })
}

func TestFingerprintIsStableForIdenticalInputs(t *testing.T) {
	a := diagnostics.Fingerprint("dead_code.unreachable", "a.swift", 10, "unused function 'foo'")
	b := diagnostics.Fingerprint("dead_code.unreachable", "a.swift", 10, "unused function 'foo'")
	require.Equal(t, a, b)
}

func TestFingerprintDiffersWhenLineChanges(t *testing.T) {
	a := diagnostics.Fingerprint("dead_code.unreachable", "a.swift", 10, "unused function 'foo'")
	b := diagnostics.Fingerprint("dead_code.unreachable", "a.swift", 11, "unused function 'foo'")
	require.NotEqual(t, a, b)
}

func TestProcessAppliesEffectiveSeverityOverride(t *testing.T) {
	disabled := false
	_ = disabled
	doc := settings.NewDocument()
	doc.Advanced.Rules = map[string]settings.RuleOverride{
		"style.rule": {Severity: "error"},
	}
	cfg := settings.Resolve(settings.DefaultProfile(), doc, func(string) string { return "" })

	p := &diagnostics.Pipeline{Config: cfg, MinSeverity: rules.SeveritySuggestion}
	violations := []rules.Violation{
		{RuleID: "style.rule", Severity: rules.SeverityWarning, Location: rules.Location{File: "a.swift", Line: 1}, Message: "m"},
	}
	out := p.Process(violations)
	require.Len(t, out, 1)
	require.Equal(t, rules.SeverityError, out[0].Severity)
}

func TestProcessFiltersBelowMinSeverity(t *testing.T) {
	p := &diagnostics.Pipeline{Config: resolvedConfig(), MinSeverity: rules.SeverityWarning}
	violations := []rules.Violation{
		{RuleID: "style.a", Severity: rules.SeveritySuggestion, Location: rules.Location{File: "a.swift", Line: 1}, Message: "suggestion only"},
		{RuleID: "style.b", Severity: rules.SeverityWarning, Location: rules.Location{File: "a.swift", Line: 2}, Message: "warning level"},
	}
	out := p.Process(violations)
	require.Len(t, out, 1)
	require.Equal(t, "style.b", out[0].RuleID)
}

func TestProcessSuppressesBaselinedFingerprint(t *testing.T) {
	fp := diagnostics.Fingerprint("style.a", "a.swift", 5, "known issue")
	baseline := &diagnostics.Baseline{
		Version:    diagnostics.BaselineVersion,
		Violations: []diagnostics.BaselineEntry{{RuleID: "style.a", File: "a.swift", Line: 5, Fingerprint: fp}},
	}
	p := &diagnostics.Pipeline{Config: resolvedConfig(), Baseline: baseline, MinSeverity: rules.SeveritySuggestion}
	violations := []rules.Violation{
		{RuleID: "style.a", Severity: rules.SeverityWarning, Location: rules.Location{File: "a.swift", Line: 5}, Message: "known issue"},
		{RuleID: "style.b", Severity: rules.SeverityWarning, Location: rules.Location{File: "a.swift", Line: 6}, Message: "new issue"},
	}
	out := p.Process(violations)
	require.Len(t, out, 1)
	require.Equal(t, "style.b", out[0].RuleID)
}

func TestProcessSortsDeterministicallyByFileLineColumnRuleID(t *testing.T) {
	p := &diagnostics.Pipeline{Config: resolvedConfig(), MinSeverity: rules.SeveritySuggestion}
	violations := []rules.Violation{
		{RuleID: "z.rule", Severity: rules.SeverityWarning, Location: rules.Location{File: "b.swift", Line: 1, Column: 1}, Message: "m"},
		{RuleID: "a.rule", Severity: rules.SeverityWarning, Location: rules.Location{File: "a.swift", Line: 5, Column: 1}, Message: "m"},
		{RuleID: "b.rule", Severity: rules.SeverityWarning, Location: rules.Location{File: "a.swift", Line: 2, Column: 9}, Message: "m"},
		{RuleID: "c.rule", Severity: rules.SeverityWarning, Location: rules.Location{File: "a.swift", Line: 2, Column: 3}, Message: "m"},
	}
	out := p.Process(violations)
	require.Len(t, out, 4)
	require.Equal(t, "c.rule", out[0].RuleID)
	require.Equal(t, "b.rule", out[1].RuleID)
	require.Equal(t, "a.rule", out[2].RuleID)
	require.Equal(t, "z.rule", out[3].RuleID)
}

func TestWorstSeverityReportsHighestPresent(t *testing.T) {
	violations := []rules.Violation{
		{Severity: rules.SeveritySuggestion},
		{Severity: rules.SeverityWarning},
	}
	require.Equal(t, rules.SeverityWarning, diagnostics.WorstSeverity(violations))
}

func TestWorstSeverityEmptyWhenNoViolations(t *testing.T) {
	require.Equal(t, rules.Severity(""), diagnostics.WorstSeverity(nil))
}

func TestMeetsOrExceedsThreshold(t *testing.T) {
	require.True(t, diagnostics.MeetsOrExceeds(rules.SeverityError, rules.SeverityWarning))
	require.False(t, diagnostics.MeetsOrExceeds(rules.SeverityWarning, rules.SeverityError))
	require.True(t, diagnostics.MeetsOrExceeds(rules.SeverityWarning, rules.SeverityWarning))
}
