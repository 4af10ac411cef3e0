package builtinrules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/builtinrules"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/sentrytest"
	"github.com/standardbeagle/sentrygo/internal/settings"
)

func newCycleCtx() *rules.Context {
	resolved := settings.Resolve(settings.DefaultProfile(), settings.NewDocument(), func(string) string { return "" })
	return &rules.Context{Config: resolved}
}

func TestCycleRuleDetectsThreeTypeCycle(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("a.swift", `class A {
			var b: B?
		}`).
		AddFile("b.swift", `class B {
			var c: C?
		}`).
		AddFile("c.swift", `class C {
			var a: A?
		}`).
		Build()

	violations, err := builtinrules.CycleRule{}.AnalyzeAll(fx.FileContexts, fx.Graph, newCycleCtx())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	require.Equal(t, "correctness.reference_cycle", violations[0].RuleID)
	require.Contains(t, violations[0].Context, "cycle_length")
	require.Equal(t, "3", violations[0].Context["cycle_length"])
}

func TestCycleRuleDeduplicatesRotationallyEquivalentCycles(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("a.swift", `class A {
			var b: B?
		}`).
		AddFile("b.swift", `class B {
			var a: A?
		}`).
		Build()

	violations, err := builtinrules.CycleRule{}.AnalyzeAll(fx.FileContexts, fx.Graph, newCycleCtx())
	require.NoError(t, err)
	require.Len(t, violations, 1, "A->B->A and B->A->B are the same cycle and must be reported once")
}

func TestCycleRuleNoFalsePositiveWithoutCycle(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("a.swift", `class A {
			var b: B?
		}`).
		AddFile("b.swift", `class B {
		}`).
		Build()

	violations, err := builtinrules.CycleRule{}.AnalyzeAll(fx.FileContexts, fx.Graph, newCycleCtx())
	require.NoError(t, err)
	require.Empty(t, violations)
}
