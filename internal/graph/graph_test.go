package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/graph"
	"github.com/standardbeagle/sentrygo/internal/langsyntax"
	"github.com/standardbeagle/sentrygo/internal/refs"
	"github.com/standardbeagle/sentrygo/internal/sentrytest"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

func fileInput(t *testing.T, module, relPath, src string) graph.FileInput {
	t.Helper()
	tree := langsyntax.Parse([]byte(src))
	syms := symbols.NewCollector(module, relPath, tree).Collect()
	references := refs.NewCollector(module, relPath, tree, refs.DefaultBuiltins).Collect()
	return graph.FileInput{RelPath: relPath, Module: module, Symbols: syms, References: references}
}

func TestBuildResolvesCrossFileFunctionCall(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("caller.swift", `func caller() {
			callee()
		}`).
		AddFile("callee.swift", `func callee() {
		}`).
		Build()

	calleeSym := fx.Symbol("callee")
	require.NotNil(t, calleeSym)

	edges := fx.Graph.ReferencedBy(calleeSym.ID)
	require.NotEmpty(t, edges, "callee() in another file should be reachable via ReferencedBy")
}

func TestRemoveFileDropsIncidentEdges(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("caller.swift", `func caller() {
			callee()
		}`).
		AddFile("callee.swift", `func callee() {
		}`).
		Build()

	calleeSym := fx.Symbol("callee")
	require.NotNil(t, calleeSym)
	require.NotEmpty(t, fx.Graph.ReferencedBy(calleeSym.ID))

	fx.Graph.RemoveFile("caller.swift")
	require.Empty(t, fx.Graph.ReferencedBy(calleeSym.ID), "removing the referencing file must drop incident edges")
}

func TestConformanceTrackedForInheritanceAndProtocolConformance(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("types.swift", `protocol Runnable {
			func run()
		}
		class Dog: Runnable {
			func run() {
			}
		}`).
		Build()

	dog := fx.Symbol("Dog")
	runnable := fx.Symbol("Runnable")
	require.NotNil(t, dog)
	require.NotNil(t, runnable)

	abstractions := fx.Graph.ConformedAbstractions(dog.ID)
	var conforms bool
	for _, a := range abstractions {
		if a.Equal(runnable.ID) {
			conforms = true
		}
	}
	require.True(t, conforms)
}

func TestImplementingMembersFindsConformingTypeMethod(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("types.swift", `protocol Runnable {
			func run()
		}
		class Dog: Runnable {
			func run() {
			}
		}`).
		Build()

	var requirement *symbols.Symbol
	runnable := fx.Symbol("Runnable")
	require.NotNil(t, runnable)
	for _, s := range fx.Graph.RequirementsOf(runnable.ID) {
		if s.Name == "run" {
			requirement = s
		}
	}
	require.NotNil(t, requirement)

	members := fx.Graph.ImplementingMembers(requirement.ID)
	require.NotEmpty(t, members)
	require.Equal(t, "run", members[0].Name)
}

func TestUnresolvedReferenceIsNotAnError(t *testing.T) {
	fx := sentrytest.New("app").
		AddFile("orphan.swift", `func f() {
			neverDeclared()
		}`).
		Build()

	require.Greater(t, fx.Graph.UnresolvedCount(), int64(0))
}

func TestUpdateFileReplacesFactsWithNoDanglingEndpoints(t *testing.T) {
	g := graph.Build([]graph.FileInput{
		fileInput(t, "app", "caller.swift", `func caller() {
			callee()
		}`),
		fileInput(t, "app", "callee.swift", `func callee() {
		}`),
	})

	var calleeID symbols.ID
	for _, s := range g.SymbolsNamed("callee") {
		calleeID = s.ID
	}
	require.NotEmpty(t, g.ReferencedBy(calleeID))

	g.UpdateFile("caller.swift", fileInput(t, "app", "caller.swift", `func caller() {
	}`))

	require.Empty(t, g.ReferencedBy(calleeID), "updated file no longer calls callee; edge must be dropped")
	require.NotNil(t, g.SymbolsNamed("caller"), "caller symbol must still exist after update")
}
