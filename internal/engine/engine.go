// Package engine wires the pipeline spec §2 describes end to end: the
// Source Store, Symbol and Reference Collectors, the Global Reference
// Graph, the Rule Registry & Dispatcher, and the Diagnostics Pipeline.
// It is the one place the cmd/sentrygo verbs call into.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/standardbeagle/sentrygo/internal/builtinrules"
	"github.com/standardbeagle/sentrygo/internal/deadcode"
	"github.com/standardbeagle/sentrygo/internal/diagnose"
	"github.com/standardbeagle/sentrygo/internal/diagnostics"
	"github.com/standardbeagle/sentrygo/internal/failures"
	"github.com/standardbeagle/sentrygo/internal/graph"
	"github.com/standardbeagle/sentrygo/internal/incache"
	"github.com/standardbeagle/sentrygo/internal/refs"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/settings"
	"github.com/standardbeagle/sentrygo/internal/source"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

const ToolVersion = "1.0.0"

// BuildRegistry constructs the catalog of built-in rules (spec §4.7's
// worked example plus the force-unwrap and reference-cycle rules §8's
// scenarios S1/S2 describe). Shared by Run and the `explain` verb so
// both see the same documentation records.
func BuildRegistry() *rules.Registry {
	reg := rules.NewRegistry()
	reg.RegisterFileLocal(builtinrules.ForceUnwrapRule{},
		"Flags `x!` force-unwrap expressions, which crash at runtime when the value is nil.")
	reg.RegisterCrossFile(builtinrules.CycleRule{},
		"Detects cycles among type-reference, inheritance, and conformance edges.")
	reg.RegisterCrossFile(deadcode.New(deadcode.DefaultPolicy()),
		"Reports declarations unreachable from the configured entry-point set via BFS over the reference graph.")
	return reg
}

// Options configures one analysis run.
type Options struct {
	Root        string
	Module      string
	Config      *settings.Resolved
	CacheDir    string
	StrictIO    bool
	MaxJobs     int
}

// Run executes the full pipeline once and returns the raw (pre-baseline)
// violations plus the built graph, for callers that need both (e.g.
// `check` only needs violations; a future `explain`-adjacent verb might
// want the graph too).
func Run(ctx context.Context, opts Options) ([]rules.Violation, *graph.Graph, error) {
	store := source.New(opts.Root, opts.StrictIO)
	records, err := store.Load(opts.Config.Include(), opts.Config.Exclude())
	if err != nil {
		return nil, nil, err
	}

	reg := BuildRegistry()

	var cache *incache.Cache
	if opts.CacheDir != "" {
		cache = incache.Open(opts.CacheDir)
	}
	ruleSetDigest := incache.RuleSetDigest(enabledRuleIDs(reg))
	configBytes, _ := json.Marshal(opts.Config.Document())
	configDigest := incache.ConfigDigest(configBytes)

	fileInputs := make([]graph.FileInput, 0, len(records))
	fileContexts := make([]*rules.FileContext, 0, len(records))

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		var syms *symbols.Table
		var references []refs.Reference

		key := incache.Key{ToolVersion: ToolVersion, FileDigest: rec.Digest, RuleSetDigest: ruleSetDigest, ConfigDigest: configDigest}
		if cache != nil {
			if entry, ok := cache.Get(key); ok {
				syms, references = entry.Symbols, entry.References
			}
		}
		if syms == nil {
			syms = symbols.NewCollector(opts.Module, rec.RelPath, rec.Tree).Collect()
			references = refs.NewCollector(opts.Module, rec.RelPath, rec.Tree, refs.DefaultBuiltins).Collect()
			if cache != nil {
				if err := cache.Put(key, rec.RelPath, syms, references, nil); err != nil {
					diagnose.LogCache("failed to persist cache entry for %s: %v", rec.RelPath, err)
				}
			}
		}

		if len(rec.Tree.Errors) > 0 {
			diagnose.LogParse("%s: %d parse error(s), first at byte %d: %s",
				rec.RelPath, len(rec.Tree.Errors), rec.Tree.Errors[0].Offset, rec.Tree.Errors[0].Message)
		}

		fileInputs = append(fileInputs, graph.FileInput{
			RelPath: rec.RelPath, Module: opts.Module, Symbols: syms, References: references,
		})
		fileContexts = append(fileContexts, &rules.FileContext{Record: rec, Symbols: syms, References: references})
	}

	g := graph.Build(fileInputs)
	diagnose.LogGraph("built graph: %s", g.String())

	maxJobs := opts.Config.MaxJobs(opts.MaxJobs)
	dispatcher := rules.NewDispatcher(reg, maxJobs)
	ruleCtx := &rules.Context{Config: opts.Config, ProjectRoot: opts.Root, Graph: g, Cancelled: func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}}

	var violations []rules.Violation
	for _, fc := range fileContexts {
		if len(fc.Record.Tree.Errors) == 0 {
			continue
		}
		first := fc.Record.Tree.Errors[0]
		line, col := fc.Record.Tree.Lines.Position(first.Offset)
		violations = append(violations, rules.Violation{
			RuleID:   "parse.error",
			Category: "internal",
			Severity: rules.SeverityWarning,
			Location: rules.Location{File: fc.Record.RelPath, Line: line, Column: col, Offset: first.Offset},
			Message:  fmt.Sprintf("parse error: %s", first.Message),
		})
	}

	result, err := dispatcher.Run(ctx, fileContexts, ruleCtx)
	if err != nil {
		return nil, nil, failures.NewRuleRuntimeError("dispatcher", "", err)
	}
	violations = append(violations, result.Violations...)
	return violations, g, nil
}

func enabledRuleIDs(reg *rules.Registry) []string {
	var ids []string
	for _, r := range reg.FileLocalRules() {
		ids = append(ids, r.ID())
	}
	for _, r := range reg.CrossFileRules() {
		ids = append(ids, r.ID())
	}
	return ids
}

// RunWithPipeline runs the full analysis and then applies the
// Diagnostics Pipeline (severity resolution, baseline suppression,
// min-severity filter, sort) in one call — the shape every `check`/`ci`
// verb needs.
func RunWithPipeline(ctx context.Context, opts Options, pipeline *diagnostics.Pipeline) ([]rules.Violation, error) {
	violations, _, err := Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pipeline.Process(violations), nil
}
