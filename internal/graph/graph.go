// Package graph implements the Global Reference Graph (spec §4.5): it
// merges per-file symbols and references across the whole program,
// resolves references into edges with a conservative, over-approximating
// algorithm, and exposes read-only queries once built.
package graph

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/standardbeagle/sentrygo/internal/refs"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

// Edge is a resolved from_symbol -> to_symbol relationship. Multiple
// references between the same pair collapse into one Edge whose Kinds
// set retains every originating reference kind.
type Edge struct {
	From  symbols.ID
	To    symbols.ID
	Kinds map[refs.Kind]bool
}

// Requirement is one element of the conditional-conformance algebra
// spec §4.5 names: `.conformance(typeParam, abstractName)` or
// `.sameType(typeParam, concreteName)`.
type Requirement struct {
	IsSameType  bool
	TypeParam   string
	AbstractOrConcreteName string
}

// ConditionalConformance records an extension's conformance to an
// abstraction. Type is the extension symbol's ID, not the extended
// type's; Build leaves Requirements empty.
type ConditionalConformance struct {
	Type         symbols.ID
	Abstraction  symbols.ID
	Requirements []Requirement
}

// FileInput bundles one file's collected facts for (re)indexing.
type FileInput struct {
	RelPath    string
	Module     string
	Symbols    *symbols.Table
	References []refs.Reference
	Imports    []string // module names imported by this file; empty = unknown (no import filtering)
}

// Graph is the merged, queryable program model. Safe for concurrent
// reads once Build/AddFile calls have quiesced; the teacher's
// RWMutex-guarded graph pattern is reused directly since this graph,
// like theirs, is read by many rule goroutines and written by one
// builder at a time.
type Graph struct {
	mu sync.RWMutex

	symbolsByID         map[symbols.ID]*symbols.Symbol
	byName              map[string][]symbols.ID
	byQualifiedName     map[string][]symbols.ID
	byFile              map[string][]symbols.ID
	fileModule          map[string]string
	fileImports         map[string][]string
	fileReferences      map[string][]refs.Reference

	outgoing map[symbols.ID]map[symbols.ID]*Edge
	incoming map[symbols.ID]map[symbols.ID]*Edge

	implementsProtocol      map[symbols.ID]map[symbols.ID]bool // type id -> protocol id
	protocolImplementations map[symbols.ID]map[symbols.ID]bool // protocol id -> type id
	associatedTypeBindings  map[symbols.ID]map[string]symbols.ID
	conditionalConformances []ConditionalConformance

	unresolvedCount int64
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{
		symbolsByID:             make(map[symbols.ID]*symbols.Symbol),
		byName:                  make(map[string][]symbols.ID),
		byQualifiedName:         make(map[string][]symbols.ID),
		byFile:                  make(map[string][]symbols.ID),
		fileModule:              make(map[string]string),
		fileImports:             make(map[string][]string),
		fileReferences:          make(map[string][]refs.Reference),
		outgoing:                make(map[symbols.ID]map[symbols.ID]*Edge),
		incoming:                make(map[symbols.ID]map[symbols.ID]*Edge),
		implementsProtocol:      make(map[symbols.ID]map[symbols.ID]bool),
		protocolImplementations: make(map[symbols.ID]map[symbols.ID]bool),
		associatedTypeBindings:  make(map[symbols.ID]map[string]symbols.ID),
	}
}

// Build performs the five-pass build algorithm over a full file set,
// from scratch. Used for the initial run and whenever a full rebuild is
// simplest (cache miss affecting the graph forces full re-evaluation
// per spec §4.9).
func Build(files []FileInput) *Graph {
	g := New()
	for _, f := range files {
		g.indexFile(f)
	}
	g.resolveAll()
	return g
}

// AddFile indexes one new file's facts and re-resolves references. Per
// spec §5, resolution inside a pass may be equivalent-to-sequential; a
// full re-resolve keeps that guarantee trivially correct at the cost of
// re-deriving edges already known to be unaffected.
func (g *Graph) AddFile(f FileInput) {
	g.mu.Lock()
	g.indexFile(f)
	g.mu.Unlock()
	g.resolveAll()
}

// RemoveFile deletes all symbols declared in f and every edge incident
// to them, and discards references that originated in f, per spec
// §4.5's closedness invariant (P2).
func (g *Graph) RemoveFile(relPath string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := g.byFile[relPath]
	for _, id := range ids {
		sym := g.symbolsByID[id]
		if sym == nil {
			continue
		}
		delete(g.symbolsByID, id)
		g.removeFromIndex(g.byName, sym.Name, id)
		g.removeFromIndex(g.byQualifiedName, sym.QualifiedName, id)
		for to := range g.outgoing[id] {
			delete(g.incoming[to], id)
		}
		delete(g.outgoing, id)
		for from := range g.incoming[id] {
			delete(g.outgoing[from], id)
		}
		delete(g.incoming, id)
		delete(g.implementsProtocol, id)
		for p := range g.protocolImplementations {
			delete(g.protocolImplementations[p], id)
		}
		delete(g.protocolImplementations, id)
		delete(g.associatedTypeBindings, id)
	}
	delete(g.byFile, relPath)
	delete(g.fileModule, relPath)
	delete(g.fileImports, relPath)
	delete(g.fileReferences, relPath)
	kept := g.conditionalConformances[:0]
	for _, cc := range g.conditionalConformances {
		if cc.Type != (symbols.ID{}) && g.symbolsByID[cc.Type] != nil {
			kept = append(kept, cc)
		}
	}
	g.conditionalConformances = kept
}

func (g *Graph) removeFromIndex(index map[string][]symbols.ID, key string, id symbols.ID) {
	list := index[key]
	for i, existing := range list {
		if existing.Equal(id) {
			index[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(index[key]) == 0 {
		delete(index, key)
	}
}

// UpdateFile replaces an old file's facts with new ones: remove+add,
// leaving no dangling endpoints (spec §4.5).
func (g *Graph) UpdateFile(relPath string, f FileInput) {
	g.RemoveFile(relPath)
	g.AddFile(f)
}

// indexFile is pass 1 for one file: index symbols by id/name/qualified
// name/file, and register the file's references/imports for later passes.
// Caller holds g.mu.
func (g *Graph) indexFile(f FileInput) {
	g.fileModule[f.RelPath] = f.Module
	g.fileImports[f.RelPath] = f.Imports
	g.fileReferences[f.RelPath] = f.References
	if f.Symbols == nil {
		return
	}
	for _, sym := range f.Symbols.Symbols {
		g.symbolsByID[sym.ID] = sym
		g.byName[sym.Name] = append(g.byName[sym.Name], sym.ID)
		g.byQualifiedName[sym.QualifiedName] = append(g.byQualifiedName[sym.QualifiedName], sym.ID)
		g.byFile[f.RelPath] = append(g.byFile[f.RelPath], sym.ID)
	}
}

// resolveAll re-runs passes 2-5 over the full current index. Called
// after any indexFile; cheap relative to re-parsing, and trivially
// equivalent to a from-scratch sequential build.
func (g *Graph) resolveAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.implementsProtocol = make(map[symbols.ID]map[symbols.ID]bool)
	g.protocolImplementations = make(map[symbols.ID]map[symbols.ID]bool)
	g.associatedTypeBindings = make(map[symbols.ID]map[string]symbols.ID)
	g.conditionalConformances = nil
	g.outgoing = make(map[symbols.ID]map[symbols.ID]*Edge)
	g.incoming = make(map[symbols.ID]map[symbols.ID]*Edge)
	atomic.StoreInt64(&g.unresolvedCount, 0)

	// Pass 2: register conformance & inheritance edges directly from
	// conformance/inheritance references.
	for file, fileRefs := range g.fileReferences {
		for _, r := range fileRefs {
			if r.Kind != refs.KindConformance && r.Kind != refs.KindInheritance {
				continue
			}
			if r.ScopeContext == nil {
				continue
			}
			typeID := g.enclosingTypeID(*r.ScopeContext)
			for _, candidate := range g.byName[r.ReferencedName] {
				csym := g.symbolsByID[candidate]
				if csym == nil || !isAbstractionKind(csym.Kind) {
					continue
				}
				if typeID == (symbols.ID{}) {
					continue
				}
				g.addConformance(typeID, candidate)
			}
		}
		_ = file
	}

	// Pass 3: bind associated types. Every associated-type symbol is
	// recorded under its parent declaration's ID (protocol, type or
	// extension symbol), keyed by its name. Where-clauses are not read,
	// and an extension's bindings are not moved onto the extended type.
	for id, sym := range g.symbolsByID {
		if sym.Kind != symbols.KindAssociatedType || sym.ParentID == nil {
			continue
		}
		parent := g.symbolsByID[*sym.ParentID]
		if parent == nil {
			continue
		}
		if g.associatedTypeBindings[*sym.ParentID] == nil {
			g.associatedTypeBindings[*sym.ParentID] = make(map[string]symbols.ID)
		}
		g.associatedTypeBindings[*sym.ParentID][sym.Name] = id
	}

	// Pass 4: record conditional conformances. Every conformance
	// reference whose scope is an extension symbol is recorded once per
	// abstraction-kind candidate of that name, with Type set to the
	// extension symbol's ID. The where clause is not checked (extensions
	// without one are recorded too) and Requirements is left empty.
	for _, sym := range g.symbolsByID {
		if sym.Kind != symbols.KindExtensionMember {
			continue
		}
		for _, r := range g.fileReferences[sym.DefiningFile] {
			if r.Kind != refs.KindConformance || r.ScopeContext == nil || !r.ScopeContext.Equal(sym.ID) {
				continue
			}
			for _, candidate := range g.byName[r.ReferencedName] {
				csym := g.symbolsByID[candidate]
				if csym == nil || !isAbstractionKind(csym.Kind) {
					continue
				}
				g.conditionalConformances = append(g.conditionalConformances, ConditionalConformance{
					Type: sym.ID, Abstraction: candidate,
				})
			}
		}
	}

	// Pass 5: resolve every reference into zero-or-more edges.
	for _, fileRefs := range g.fileReferences {
		for _, r := range fileRefs {
			g.resolveReference(r)
		}
	}
}

func isAbstractionKind(k symbols.Kind) bool {
	switch k {
	case symbols.KindClass, symbols.KindStruct, symbols.KindEnum, symbols.KindProtocol,
		symbols.KindActor, symbols.KindTypeAlias, symbols.KindAssociatedType:
		return true
	default:
		return false
	}
}

// enclosingTypeID walks parent links from a scope_context id up to the
// nearest declaration kind capable of conforming to something.
func (g *Graph) enclosingTypeID(id symbols.ID) symbols.ID {
	cur, ok := g.symbolsByID[id]
	for ok {
		if isAbstractionKind(cur.Kind) {
			return cur.ID
		}
		if cur.ParentID == nil {
			return symbols.ID{}
		}
		cur, ok = g.symbolsByID[*cur.ParentID]
	}
	return symbols.ID{}
}

func (g *Graph) addConformance(typeID, abstractionID symbols.ID) {
	if g.implementsProtocol[typeID] == nil {
		g.implementsProtocol[typeID] = make(map[symbols.ID]bool)
	}
	g.implementsProtocol[typeID][abstractionID] = true
	if g.protocolImplementations[abstractionID] == nil {
		g.protocolImplementations[abstractionID] = make(map[symbols.ID]bool)
	}
	g.protocolImplementations[abstractionID][typeID] = true
}

var functionCallKinds = map[symbols.Kind]bool{symbols.KindFunction: true, symbols.KindMethod: true, symbols.KindInitializer: true}
var propertyAccessKinds = map[symbols.Kind]bool{symbols.KindProperty: true, symbols.KindSubscript: true, symbols.KindEnumCase: true}
var typeRefKinds = map[symbols.Kind]bool{
	symbols.KindClass: true, symbols.KindStruct: true, symbols.KindEnum: true, symbols.KindProtocol: true,
	symbols.KindActor: true, symbols.KindTypeAlias: true, symbols.KindAssociatedType: true,
}

func kindCompatible(refKind refs.Kind, symKind symbols.Kind) bool {
	switch refKind {
	case refs.KindFunctionCall:
		return functionCallKinds[symKind]
	case refs.KindPropertyAccess, refs.KindEnumCase:
		return propertyAccessKinds[symKind]
	case refs.KindTypeReference, refs.KindInheritance, refs.KindConformance,
		refs.KindExtensionTarget, refs.KindGenericArgument:
		return typeRefKinds[symKind]
	case refs.KindInitializer:
		return typeRefKinds[symKind] || symKind == symbols.KindInitializer
	case refs.KindIdentifier:
		return true
	default:
		return true
	}
}

// resolveReference implements the conservative resolution algorithm of
// spec §4.5 steps 1-7. Caller holds g.mu.
func (g *Graph) resolveReference(r refs.Reference) {
	candidates := g.byName[r.ReferencedName]
	if len(candidates) == 0 {
		atomic.AddInt64(&g.unresolvedCount, 1)
		return
	}

	var filtered []symbols.ID
	for _, c := range candidates {
		sym := g.symbolsByID[c]
		if sym == nil || !kindCompatible(r.Kind, sym.Kind) {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		atomic.AddInt64(&g.unresolvedCount, 1)
		return
	}

	if r.InferredBaseTypeName != "" {
		var baseFiltered []symbols.ID
		for _, c := range filtered {
			sym := g.symbolsByID[c]
			if sym.ParentID != nil {
				if parent := g.symbolsByID[*sym.ParentID]; parent != nil && parent.Name == r.InferredBaseTypeName {
					baseFiltered = append(baseFiltered, c)
					continue
				}
			}
			if g.conformsByName(c, r.InferredBaseTypeName) {
				baseFiltered = append(baseFiltered, c)
			}
		}
		if len(baseFiltered) > 0 {
			filtered = baseFiltered
		}
	}

	if r.ScopeContext != nil {
		var sameScope []symbols.ID
		scopeSym := g.symbolsByID[*r.ScopeContext]
		var scopeParent *symbols.ID
		if scopeSym != nil {
			scopeParent = scopeSym.ParentID
		}
		for _, c := range filtered {
			sym := g.symbolsByID[c]
			if scopeParent != nil && sym.ParentID != nil && sym.ParentID.Equal(*scopeParent) {
				sameScope = append(sameScope, c)
			}
		}
		if len(sameScope) > 0 {
			filtered = sameScope
		}
	}

	if r.ScopeContext != nil {
		fromFile := ""
		if scopeSym := g.symbolsByID[*r.ScopeContext]; scopeSym != nil {
			fromFile = scopeSym.DefiningFile
		}
		imports := g.fileImports[fromFile]
		fromModule := g.fileModule[fromFile]
		if len(imports) > 0 {
			importSet := make(map[string]bool, len(imports)+1)
			importSet[fromModule] = true
			for _, i := range imports {
				importSet[i] = true
			}
			var importFiltered []symbols.ID
			for _, c := range filtered {
				sym := g.symbolsByID[c]
				if importSet[g.fileModule[sym.DefiningFile]] {
					importFiltered = append(importFiltered, c)
				}
			}
			if len(importFiltered) > 0 {
				filtered = importFiltered
			}
		}
	}

	from := symbols.ID{}
	if r.ScopeContext != nil {
		from = *r.ScopeContext
	} else {
		return
	}
	for _, to := range filtered {
		g.addEdge(from, to, r.Kind)
	}
}

func (g *Graph) conformsByName(typeID symbols.ID, name string) bool {
	for abstraction := range g.implementsProtocol[typeID] {
		if sym := g.symbolsByID[abstraction]; sym != nil && sym.Name == name {
			return true
		}
	}
	return false
}

func (g *Graph) addEdge(from, to symbols.ID, kind refs.Kind) {
	if g.outgoing[from] == nil {
		g.outgoing[from] = make(map[symbols.ID]*Edge)
	}
	if e, ok := g.outgoing[from][to]; ok {
		e.Kinds[kind] = true
	} else {
		g.outgoing[from][to] = &Edge{From: from, To: to, Kinds: map[refs.Kind]bool{kind: true}}
	}
	if g.incoming[to] == nil {
		g.incoming[to] = make(map[symbols.ID]*Edge)
	}
	g.incoming[to][from] = g.outgoing[from][to]
}

// UnresolvedCount returns the observability counter for references that
// matched zero candidates (spec §4.5 step 7: "never an error").
func (g *Graph) UnresolvedCount() int64 { return atomic.LoadInt64(&g.unresolvedCount) }

// --- Queries (spec §4.5) ---

func (g *Graph) SymbolsIn(file string) []*symbols.Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.byFile[file]
	out := make([]*symbols.Symbol, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.symbolsByID[id])
	}
	return out
}

func (g *Graph) SymbolsNamed(name string) []*symbols.Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.byName[name]
	out := make([]*symbols.Symbol, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.symbolsByID[id])
	}
	return out
}

func (g *Graph) SymbolsOfKind(kind symbols.Kind) []*symbols.Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*symbols.Symbol
	for _, sym := range g.symbolsByID {
		if sym.Kind == kind {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (g *Graph) Symbol(id symbols.ID) (*symbols.Symbol, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.symbolsByID[id]
	return s, ok
}

func (g *Graph) ReferencesFrom(id symbols.ID) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Edge, 0, len(g.outgoing[id]))
	for _, e := range g.outgoing[id] {
		out = append(out, e)
	}
	return out
}

func (g *Graph) ReferencedBy(id symbols.ID) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Edge, 0, len(g.incoming[id]))
	for _, e := range g.incoming[id] {
		out = append(out, e)
	}
	return out
}

// ImplementingMembers returns members of conforming types with the same
// name as abstractMemberID's symbol, approximating "implements this
// protocol requirement" without full signature matching.
func (g *Graph) ImplementingMembers(abstractMemberID symbols.ID) []*symbols.Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()
	abstractSym := g.symbolsByID[abstractMemberID]
	if abstractSym == nil || abstractSym.ParentID == nil {
		return nil
	}
	var out []*symbols.Symbol
	for typeID := range g.protocolImplementations[*abstractSym.ParentID] {
		for _, candidateID := range g.byName[abstractSym.Name] {
			candidate := g.symbolsByID[candidateID]
			if candidate != nil && candidate.ParentID != nil && candidate.ParentID.Equal(typeID) {
				out = append(out, candidate)
			}
		}
	}
	return out
}

func (g *Graph) ConformedAbstractions(typeID symbols.ID) []symbols.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]symbols.ID, 0, len(g.implementsProtocol[typeID]))
	for id := range g.implementsProtocol[typeID] {
		out = append(out, id)
	}
	return out
}

func (g *Graph) RequirementsOf(abstractTypeID symbols.ID) []*symbols.Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*symbols.Symbol
	for _, sym := range g.symbolsByID {
		if sym.ParentID != nil && sym.ParentID.Equal(abstractTypeID) {
			out = append(out, sym)
		}
	}
	return out
}

// ConditionalConformances returns the extension conformances recorded by
// build pass 4 (see resolveAll).
func (g *Graph) ConditionalConformances() []ConditionalConformance {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ConditionalConformance, len(g.conditionalConformances))
	copy(out, g.conditionalConformances)
	return out
}

// String renders a compact summary for debug logging.
func (g *Graph) String() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fmt.Sprintf("graph{symbols=%d files=%d unresolved=%d}", len(g.symbolsByID), len(g.byFile), g.unresolvedCount)
}
