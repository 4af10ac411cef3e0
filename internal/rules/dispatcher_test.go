package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/graph"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/settings"
	"github.com/standardbeagle/sentrygo/internal/source"
)

type violatingRule struct {
	id string
}

func (r violatingRule) ID() string                   { return r.id }
func (r violatingRule) Name() string                 { return r.id }
func (r violatingRule) Category() string              { return "style" }
func (r violatingRule) DefaultSeverity() rules.Severity { return rules.SeverityWarning }
func (r violatingRule) EnabledByDefault() bool        { return true }
func (r violatingRule) Analyze(fc *rules.FileContext, ctx *rules.Context) ([]rules.Violation, error) {
	return []rules.Violation{{RuleID: r.id, Severity: rules.SeverityWarning, Location: rules.Location{File: fc.Record.RelPath}}}, nil
}

type panickingRule struct{}

func (panickingRule) ID() string                     { return "style.panics" }
func (panickingRule) Name() string                   { return "style.panics" }
func (panickingRule) Category() string                { return "style" }
func (panickingRule) DefaultSeverity() rules.Severity { return rules.SeverityWarning }
func (panickingRule) EnabledByDefault() bool          { return true }
func (panickingRule) Analyze(fc *rules.FileContext, ctx *rules.Context) ([]rules.Violation, error) {
	panic("boom")
}

func newRuleCtx() *rules.Context {
	resolved := settings.Resolve(settings.DefaultProfile(), settings.NewDocument(), func(string) string { return "" })
	return &rules.Context{Config: resolved, Graph: graph.New()}
}

func TestDispatcherRunsFileLocalRulesAcrossAllFiles(t *testing.T) {
	reg := rules.NewRegistry()
	reg.RegisterFileLocal(violatingRule{id: "style.one"}, "")

	files := []*rules.FileContext{
		{Record: &source.Record{RelPath: "a.swift"}},
		{Record: &source.Record{RelPath: "b.swift"}},
	}

	d := rules.NewDispatcher(reg, 4)
	result, err := d.Run(context.Background(), files, newRuleCtx())
	require.NoError(t, err)
	require.Len(t, result.Violations, 2)
	require.False(t, result.Partial)
}

func TestDispatcherIsolatesPanickingRuleAsSyntheticError(t *testing.T) {
	reg := rules.NewRegistry()
	reg.RegisterFileLocal(panickingRule{}, "")
	reg.RegisterFileLocal(violatingRule{id: "style.one"}, "")

	files := []*rules.FileContext{
		{Record: &source.Record{RelPath: "a.swift"}},
	}

	d := rules.NewDispatcher(reg, 4)
	result, err := d.Run(context.Background(), files, newRuleCtx())
	require.NoError(t, err)

	var sawInternalError, sawRealViolation bool
	for _, v := range result.Violations {
		if v.RuleID == "rule.internal_error" {
			sawInternalError = true
		}
		if v.RuleID == "style.one" {
			sawRealViolation = true
		}
	}
	require.True(t, sawInternalError, "a panicking rule must not crash the dispatch")
	require.True(t, sawRealViolation, "other rules must still run to completion")
}

func TestDispatcherHonorsRuleDisabledViaConfig(t *testing.T) {
	reg := rules.NewRegistry()
	reg.RegisterFileLocal(violatingRule{id: "style.one"}, "")

	disabled := false
	doc := settings.NewDocument()
	doc.Advanced.Rules = map[string]settings.RuleOverride{"style.one": {Enabled: &disabled}}
	resolved := settings.Resolve(settings.DefaultProfile(), doc, func(string) string { return "" })
	ctx := &rules.Context{Config: resolved, Graph: graph.New()}

	files := []*rules.FileContext{{Record: &source.Record{RelPath: "a.swift"}}}
	d := rules.NewDispatcher(reg, 2)
	result, err := d.Run(context.Background(), files, ctx)
	require.NoError(t, err)
	require.Empty(t, result.Violations)
}

func TestDispatcherStopsSchedulingWhenCancelled(t *testing.T) {
	reg := rules.NewRegistry()
	reg.RegisterFileLocal(violatingRule{id: "style.one"}, "")

	ctx := newRuleCtx()
	ctx.Cancelled = func() bool { return true }

	files := []*rules.FileContext{{Record: &source.Record{RelPath: "a.swift"}}}
	d := rules.NewDispatcher(reg, 2)
	result, err := d.Run(context.Background(), files, ctx)
	require.NoError(t, err)
	require.True(t, result.Partial)
}
