package builtinrules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/builtinrules"
	"github.com/standardbeagle/sentrygo/internal/langsyntax"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/source"
)

func analyzeForceUnwrap(t *testing.T, src string) []rules.Violation {
	t.Helper()
	tree := langsyntax.Parse([]byte(src))
	fc := &rules.FileContext{Record: &source.Record{RelPath: "f.swift", Source: tree.Source, Tree: tree}}
	violations, err := builtinrules.ForceUnwrapRule{}.Analyze(fc, &rules.Context{})
	require.NoError(t, err)
	return violations
}

func TestForceUnwrapRuleFlagsEachOccurrence(t *testing.T) {
	src := `func f() {
		let a = x!
		let b = y!
	}`
	violations := analyzeForceUnwrap(t, src)
	require.Len(t, violations, 2)
	for _, v := range violations {
		require.Equal(t, "correctness.force_unwrap", v.RuleID)
		require.Equal(t, rules.SeverityError, v.Severity)
		require.Len(t, v.StructuredEdits, 1)
		require.Equal(t, rules.EditReplace, v.StructuredEdits[0].Kind)
	}
}

func TestForceUnwrapSuggestedFixReplacesWholeExpression(t *testing.T) {
	src := `func f() {
		let a = maybeValue!
	}`
	violations := analyzeForceUnwrap(t, src)
	require.Len(t, violations, 1)

	edit := violations[0].StructuredEdits[0]
	require.Equal(t, "maybeValue ?? 0", edit.NewText)
}

func TestForceUnwrapRuleNoOccurrencesYieldsNoViolations(t *testing.T) {
	src := `func f() {
		let a = maybeValue
	}`
	violations := analyzeForceUnwrap(t, src)
	require.Empty(t, violations)
}
