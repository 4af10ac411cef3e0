// Package deadcode implements the Dead-Code Analyzer (spec §4.7): a
// worked-example cross-file rule that performs breadth-first
// reachability over the Global Reference Graph from a configurable
// entry-point set.
package deadcode

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/sentrygo/internal/graph"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/settings"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

// Mode selects the accessibility-based half of the entry-point policy.
type Mode string

const (
	ModeLibrary    Mode = "library"
	ModeExecutable Mode = "executable"
	ModeAuto       Mode = "auto"
)

// Policy configures the entry-point policy spec §4.7 describes.
// Auto mode has no project manifest to read in this engine (the
// manifest format is unspecified — see DESIGN.md); it falls back to a
// file-pattern heuristic: any file matching EntryFilePatterns makes the
// program executable, otherwise it's treated as a library.
type Policy struct {
	Mode                    Mode
	EntryAttributes         []string
	EntryFilePatterns       []string
	TestBaseClassNames      []string
	TestMethodPrefix        string
	IgnoreNamePrefixes      []string
	IgnoreNameGlobs         []string
	SynthesizedAbstractions []string
	SynthesizedMemberNames  []string
}

// DefaultPolicy mirrors spec §4.7's defaults.
func DefaultPolicy() Policy {
	return Policy{
		Mode:               ModeAuto,
		EntryAttributes:    []string{"main", "UIApplicationMain", "NSApplicationMain", "@objc", "IBAction", "IBOutlet"},
		EntryFilePatterns:  []string{"**/main.*", "**/Main.*"},
		TestBaseClassNames: []string{"XCTestCase", "TestCase"},
		TestMethodPrefix:   "test",
		IgnoreNamePrefixes: []string{"_"},
		SynthesizedAbstractions: []string{
			"Codable", "Encodable", "Decodable", "Equatable", "Hashable", "CustomStringConvertible",
		},
		SynthesizedMemberNames: []string{
			"description", "hash", "==", "encode", "decode", "init(from:)", "hash(into:)",
		},
	}
}

// Rule is the CrossFileRule implementation registered under id
// "dead_code.unreachable" (one rule, spec §4.7: "one violation per dead
// symbol").
type Rule struct {
	Policy Policy
}

func New(policy Policy) *Rule { return &Rule{Policy: policy} }

func (r *Rule) ID() string                   { return "dead_code.unreachable" }
func (r *Rule) Name() string                 { return "Unreachable declaration" }
func (r *Rule) Category() string             { return "dead-code" }
func (r *Rule) DefaultSeverity() rules.Severity { return rules.SeverityWarning }
func (r *Rule) EnabledByDefault() bool       { return true }

// AnalyzeAll runs the BFS reachability pass over every symbol collected
// across the program and reports the ones never reached.
func (r *Rule) AnalyzeAll(files []*rules.FileContext, g *graph.Graph, ctx *rules.Context) ([]rules.Violation, error) {
	policy := r.Policy
	mode := policy.Mode
	if m := ctx.Config.Param(r.ID(), "", "mode", settings.StringParam(string(mode))).AsString(string(mode)); m != "" {
		mode = Mode(m)
	}

	allSymbols := map[symbols.ID]*symbols.Symbol{}
	byFile := map[string][]*symbols.Symbol{}
	for _, fc := range files {
		if fc.Symbols == nil {
			continue
		}
		for _, sym := range fc.Symbols.Symbols {
			allSymbols[sym.ID] = sym
			byFile[fc.Record.RelPath] = append(byFile[fc.Record.RelPath], sym)
		}
	}

	if mode == ModeAuto {
		mode = resolveAutoMode(files, policy)
	}

	live := make(map[symbols.ID]bool)
	var queue []symbols.ID
	seed := func(id symbols.ID) {
		if !live[id] {
			live[id] = true
			queue = append(queue, id)
		}
	}

	for _, sym := range allSymbols {
		if mode == ModeLibrary && (sym.Accessibility == symbols.AccessPublic || sym.Accessibility == symbols.AccessOpen) {
			seed(sym.ID)
		}
		if hasEntryAttribute(sym, policy.EntryAttributes) {
			seed(sym.ID)
		}
		if isTestMethod(sym, allSymbols, g, policy) {
			seed(sym.ID)
		}
	}

	if mode == ModeExecutable || mode == ModeAuto {
		for relPath, syms := range byFile {
			if !matchesAny(relPath, policy.EntryFilePatterns) {
				continue
			}
			for _, sym := range syms {
				seed(sym.ID)
			}
		}
	}

	for i := 0; i < len(queue); i++ {
		id := queue[i]

		for _, edge := range g.ReferencesFrom(id) {
			seed(edge.To)
		}
		for _, child := range g.RequirementsOf(id) {
			seed(child.ID)
		}

		sym := allSymbols[id]
		if sym == nil {
			continue
		}
		if isAbstractMember(sym) {
			for _, impl := range g.ImplementingMembers(id) {
				seed(impl.ID)
			}
		}
		for _, abstraction := range g.ConformedAbstractions(id) {
			absSym, ok := g.Symbol(abstraction)
			if !ok || !containsName(policy.SynthesizedAbstractions, absSym.Name) {
				continue
			}
			for _, member := range g.RequirementsOf(id) {
				if containsName(policy.SynthesizedMemberNames, member.Name) {
					seed(member.ID)
				}
			}
		}
	}

	var violations []rules.Violation
	for _, sym := range allSymbols {
		if sym.Kind == symbols.KindFileScope {
			continue
		}
		if live[sym.ID] {
			continue
		}
		if isIgnored(sym.Name, policy) {
			continue
		}

		conf := confidenceFor(sym.Accessibility)
		sev := severityFor(conf)
		sev = rules.Severity(ctx.Config.Severity(r.ID(), sym.DefiningFile, string(sev)))

		violations = append(violations, rules.Violation{
			RuleID:   r.ID(),
			Category: r.Category(),
			Severity: sev,
			Location: rules.Location{File: sym.DefiningFile, Offset: sym.ByteStart},
			Message:  fmt.Sprintf("%s %q is never referenced", sym.Kind, sym.Name),
			Context:  map[string]string{"confidence": conf},
			StructuredEdits: []rules.Edit{{
				Range:      rules.ByteRange{Start: sym.ByteStart, End: sym.ByteEnd},
				Kind:       rules.EditRemove,
				Confidence: confidenceKind(conf),
			}},
		})
	}
	return violations, nil
}

func resolveAutoMode(files []*rules.FileContext, policy Policy) Mode {
	for _, fc := range files {
		if matchesAny(fc.Record.RelPath, policy.EntryFilePatterns) {
			return ModeExecutable
		}
	}
	return ModeLibrary
}

func matchesAny(relPath string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
	}
	return false
}

func hasEntryAttribute(sym *symbols.Symbol, attrs []string) bool {
	for _, a := range sym.Attributes {
		for _, want := range attrs {
			if a.Name == want {
				return true
			}
		}
	}
	return false
}

// isTestMethod reports whether sym is a test-prefixed method of a class
// descending from one of policy's recognized test base classes (spec
// §4.7's test-integration entry-point rule).
func isTestMethod(sym *symbols.Symbol, all map[symbols.ID]*symbols.Symbol, g *graph.Graph, policy Policy) bool {
	if sym.ParentID == nil || !strings.HasPrefix(sym.Name, policy.TestMethodPrefix) {
		return false
	}
	parent := all[*sym.ParentID]
	if parent == nil {
		return false
	}
	for _, abstraction := range g.ConformedAbstractions(parent.ID) {
		absSym, ok := g.Symbol(abstraction)
		if ok && containsName(policy.TestBaseClassNames, absSym.Name) {
			return true
		}
	}
	return false
}

func isAbstractMember(sym *symbols.Symbol) bool {
	if sym.ParentID == nil {
		return false
	}
	return sym.Kind == symbols.KindMethod || sym.Kind == symbols.KindProperty || sym.Kind == symbols.KindSubscript
}

func containsName(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

func isIgnored(name string, policy Policy) bool {
	for _, prefix := range policy.IgnoreNamePrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, glob := range policy.IgnoreNameGlobs {
		if ok, _ := doublestar.Match(glob, name); ok {
			return true
		}
	}
	return false
}

func confidenceFor(a symbols.Accessibility) string {
	switch a {
	case symbols.AccessPrivate, symbols.AccessFilePrivate:
		return "high"
	case symbols.AccessInternal, symbols.AccessPackage:
		return "medium"
	default:
		return "low"
	}
}

func severityFor(confidence string) rules.Severity {
	switch confidence {
	case "high":
		return rules.SeverityError
	case "medium":
		return rules.SeverityWarning
	default:
		return rules.SeveritySuggestion
	}
}

func confidenceKind(confidence string) rules.Confidence {
	switch confidence {
	case "high":
		return rules.ConfidenceHigh
	case "medium":
		return rules.ConfidenceMedium
	default:
		return rules.ConfidenceLow
	}
}
