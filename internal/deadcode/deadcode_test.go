package deadcode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/deadcode"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/sentrytest"
	"github.com/standardbeagle/sentrygo/internal/settings"
)

func newDeadCodeCtx() *rules.Context {
	resolved := settings.Resolve(settings.DefaultProfile(), settings.NewDocument(), func(string) string { return "" })
	return &rules.Context{Config: resolved}
}

func TestLibraryModeFlagsUnreferencedPrivateFunctionAsHighConfidence(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("lib.swift", `private func neverCalled() {
		}
		public func publicAPI() {
		}`).
		Build()

	policy := deadcode.DefaultPolicy()
	policy.Mode = deadcode.ModeLibrary
	rule := deadcode.New(policy)

	violations, err := rule.AnalyzeAll(fx.FileContexts, fx.Graph, newDeadCodeCtx())
	require.NoError(t, err)

	var flagged []string
	for _, v := range violations {
		flagged = append(flagged, v.Context["confidence"])
	}
	require.Len(t, violations, 1, "only the private unreferenced function should be flagged; public is a library entry point")
	require.Equal(t, "high", violations[0].Context["confidence"])
	require.Equal(t, rules.SeverityError, violations[0].Severity)
}

func TestExecutableModeSeedsEntryFileAndReachesHelpers(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("main.swift", `func run() {
			helper()
		}`).
		AddFile("helpers.swift", `private func helper() {
		}
		private func orphan() {
		}`).
		Build()

	policy := deadcode.DefaultPolicy()
	policy.Mode = deadcode.ModeExecutable
	rule := deadcode.New(policy)

	violations, err := rule.AnalyzeAll(fx.FileContexts, fx.Graph, newDeadCodeCtx())
	require.NoError(t, err)

	var names []string
	for _, v := range violations {
		names = append(names, v.Message)
	}
	require.Len(t, violations, 1, "helper() is reachable from main.swift; only orphan() should be dead")
	require.Contains(t, violations[0].Message, "orphan")
}

func TestIgnoreNamePrefixSuppressesViolation(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("lib.swift", `private func _generatedHelper() {
		}`).
		Build()

	policy := deadcode.DefaultPolicy()
	policy.Mode = deadcode.ModeLibrary
	rule := deadcode.New(policy)

	violations, err := rule.AnalyzeAll(fx.FileContexts, fx.Graph, newDeadCodeCtx())
	require.NoError(t, err)
	require.Empty(t, violations, "names matching an ignore prefix must never be reported")
}

func TestAutoModeDetectsExecutableViaMainFilePattern(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("main.swift", `func run() {
		}`).
		Build()

	rule := deadcode.New(deadcode.DefaultPolicy())
	violations, err := rule.AnalyzeAll(fx.FileContexts, fx.Graph, newDeadCodeCtx())
	require.NoError(t, err)
	require.Empty(t, violations, "auto mode must treat main.swift as an executable entry point, seeding run() live")
}
