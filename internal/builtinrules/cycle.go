package builtinrules

import (
	"sort"
	"strconv"
	"strings"

	"github.com/standardbeagle/sentrygo/internal/graph"
	"github.com/standardbeagle/sentrygo/internal/refs"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

// CycleRule detects type-reference cycles across files (spec §8 S2:
// "A -> B -> C -> A... reported with deterministic lexicographically
// smallest-first rotation").
type CycleRule struct{}

func (CycleRule) ID() string                   { return "correctness.reference_cycle" }
func (CycleRule) Name() string                 { return "Type reference cycle" }
func (CycleRule) Category() string             { return "correctness" }
func (CycleRule) DefaultSeverity() rules.Severity { return rules.SeverityWarning }
func (CycleRule) EnabledByDefault() bool       { return true }

var cycleEdgeKinds = map[refs.Kind]bool{
	refs.KindTypeReference: true,
	refs.KindInheritance:   true,
	refs.KindConformance:   true,
}

func (r CycleRule) AnalyzeAll(files []*rules.FileContext, g *graph.Graph, ctx *rules.Context) ([]rules.Violation, error) {
	var typeIDs []symbols.ID
	for _, fc := range files {
		if fc.Symbols == nil {
			continue
		}
		for _, sym := range fc.Symbols.Symbols {
			if isTypeKind(sym.Kind) {
				typeIDs = append(typeIDs, sym.ID)
			}
		}
	}
	sort.Slice(typeIDs, func(i, j int) bool { return typeIDs[i].String() < typeIDs[j].String() })

	seen := map[string]bool{}
	var out []rules.Violation

	for _, start := range typeIDs {
		path := []symbols.ID{start}
		onPath := map[symbols.ID]int{start: 0}
		findCycles(g, start, path, onPath, seen, &out, ctx)
	}
	return out, nil
}

func isTypeKind(k symbols.Kind) bool {
	switch k {
	case symbols.KindClass, symbols.KindStruct, symbols.KindEnum, symbols.KindProtocol,
		symbols.KindActor, symbols.KindTypeAlias:
		return true
	default:
		return false
	}
}

func findCycles(g *graph.Graph, current symbols.ID, path []symbols.ID, onPath map[symbols.ID]int, seen map[string]bool, out *[]rules.Violation, ctx *rules.Context) {
	for _, edge := range g.ReferencesFrom(current) {
		if !hasCycleKind(edge.Kinds) {
			continue
		}
		to := edge.To
		toSym, ok := g.Symbol(to)
		if !ok || !isTypeKind(toSym.Kind) {
			continue
		}
		if startIdx, inPath := onPath[to]; inPath {
			cycle := append([]symbols.ID{}, path[startIdx:]...)
			reportCycle(g, cycle, seen, out, ctx)
			continue
		}
		if len(path) > 64 {
			continue // pathological depth guard; real cycles are found long before this
		}
		onPath[to] = len(path)
		findCycles(g, to, append(path, to), onPath, seen, out, ctx)
		delete(onPath, to)
	}
}

func hasCycleKind(kinds map[refs.Kind]bool) bool {
	for k := range kinds {
		if cycleEdgeKinds[k] {
			return true
		}
	}
	return false
}

// canonicalRotation rotates cycle so its lexicographically smallest
// qualified name comes first, giving every equivalent rotation the same
// dedup key and the same reported order.
func canonicalRotation(cycle []symbols.ID) []symbols.ID {
	minIdx := 0
	for i, id := range cycle {
		if id.QualifiedName < cycle[minIdx].QualifiedName {
			minIdx = i
		}
	}
	out := make([]symbols.ID, len(cycle))
	for i := range cycle {
		out[i] = cycle[(minIdx+i)%len(cycle)]
	}
	return out
}

func reportCycle(g *graph.Graph, cycle []symbols.ID, seen map[string]bool, out *[]rules.Violation, ctx *rules.Context) {
	canon := canonicalRotation(cycle)
	names := make([]string, 0, len(canon))
	for _, id := range canon {
		names = append(names, id.QualifiedName)
	}
	key := strings.Join(names, ">")
	if seen[key] {
		return
	}
	seen[key] = true

	first, ok := g.Symbol(canon[0])
	if !ok {
		return
	}
	message := strings.Join(names, " -> ") + " -> " + names[0]

	sev := rules.Severity(ctx.Config.Severity("correctness.reference_cycle", first.DefiningFile, string(rules.SeverityWarning)))
	*out = append(*out, rules.Violation{
		RuleID:   "correctness.reference_cycle",
		Category: "correctness",
		Severity: sev,
		Location: rules.Location{File: first.DefiningFile, Offset: first.ByteStart},
		Message:  "reference cycle: " + message,
		Context:  map[string]string{"cycle_length": strconv.Itoa(len(canon))},
	})
}
