// Package builtinrules holds the rule implementations shipped with the
// engine itself (spec §4.7's worked example, plus the force-unwrap and
// reference-cycle rules §8's scenarios S1/S2 describe).
package builtinrules

import (
	"fmt"

	"github.com/standardbeagle/sentrygo/internal/langsyntax"
	"github.com/standardbeagle/sentrygo/internal/rules"
)

// ForceUnwrapRule flags `x!` force-unwrap expressions (spec §8 S1):
// "one `error` with one suggested fix" per occurrence.
type ForceUnwrapRule struct{}

func (ForceUnwrapRule) ID() string                   { return "correctness.force_unwrap" }
func (ForceUnwrapRule) Name() string                 { return "Force unwrap" }
func (ForceUnwrapRule) Category() string             { return "correctness" }
func (ForceUnwrapRule) DefaultSeverity() rules.Severity { return rules.SeverityError }
func (ForceUnwrapRule) EnabledByDefault() bool       { return true }

func (r ForceUnwrapRule) Analyze(fc *rules.FileContext, ctx *rules.Context) ([]rules.Violation, error) {
	if fc.Record == nil || fc.Record.Tree == nil {
		return nil, nil
	}
	var out []rules.Violation
	langsyntax.Walk(fc.Record.Tree.Root, &forceUnwrapVisitor{
		tree: fc.Record.Tree,
		file: fc.Record.RelPath,
		emit: func(v rules.Violation) { out = append(out, v) },
	})
	return out, nil
}

type forceUnwrapVisitor struct {
	langsyntax.BaseVisitor
	tree *langsyntax.Tree
	file string
	emit func(rules.Violation)
}

func (v *forceUnwrapVisitor) Pre(n *langsyntax.Node) langsyntax.Decision {
	if n.Kind != langsyntax.KindForceUnwrapExpr {
		return langsyntax.VisitChildren
	}
	line, col := v.tree.Lines.Position(n.Start)
	expr := string(v.tree.Source[n.Start:n.End])

	v.emit(rules.Violation{
		RuleID:   "correctness.force_unwrap",
		Category: "correctness",
		Severity: rules.SeverityError,
		Location: rules.Location{File: v.file, Line: line, Column: col, Offset: n.Start},
		Message:  fmt.Sprintf("force-unwrap of %q may crash at runtime", expr),
		SuggestedFixes: []string{
			fmt.Sprintf("replace %q with a nil-coalescing default", expr),
		},
		StructuredEdits: []rules.Edit{{
			Range:      rules.ByteRange{Start: n.Start, End: n.End},
			Kind:       rules.EditReplace,
			Confidence: rules.ConfidenceMedium,
			NewText:    forceUnwrapReplacement(expr),
		}},
	})
	return langsyntax.VisitChildren
}

// forceUnwrapReplacement turns `x!` into `x ?? 0`, the suggested-fix
// shape spec §8 S1 names; it is a syntactic placeholder default, not a
// type-aware one (the engine has no type checker — see DESIGN.md).
func forceUnwrapReplacement(expr string) string {
	base := expr
	if len(base) > 0 && base[len(base)-1] == '!' {
		base = base[:len(base)-1]
	}
	return base + " ?? 0"
}
