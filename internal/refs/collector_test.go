package refs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/langsyntax"
	"github.com/standardbeagle/sentrygo/internal/refs"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

func collect(t *testing.T, module, relPath, src string) []refs.Reference {
	t.Helper()
	tree := langsyntax.Parse([]byte(src))
	return refs.NewCollector(module, relPath, tree, refs.DefaultBuiltins).Collect()
}

func TestCollectorSkipsBuiltinTypeReferences(t *testing.T) {
	src := `func f(x: Int) -> String {
	}`
	references := collect(t, "app", "f.swift", src)
	for _, r := range references {
		require.NotEqual(t, "Int", r.ReferencedName)
		require.NotEqual(t, "String", r.ReferencedName)
	}
}

func TestCollectorEmitsFunctionCallReference(t *testing.T) {
	src := `func caller() {
		callee()
	}`
	references := collect(t, "app", "call.swift", src)

	var found bool
	for _, r := range references {
		if r.Kind == refs.KindFunctionCall && r.ReferencedName == "callee" {
			found = true
		}
	}
	require.True(t, found)
}

func TestCollectorDistinguishesInitializerCallFromFunctionCall(t *testing.T) {
	src := `func build() {
		let d = Dog()
		helper()
	}`
	references := collect(t, "app", "build.swift", src)

	kinds := map[string]refs.Kind{}
	for _, r := range references {
		if r.Kind == refs.KindFunctionCall || r.Kind == refs.KindInitializer {
			kinds[r.ReferencedName] = r.Kind
		}
	}
	require.Equal(t, refs.KindInitializer, kinds["Dog"])
	require.Equal(t, refs.KindFunctionCall, kinds["helper"])
}

func TestCollectorEmitsInheritanceAndConformanceReferences(t *testing.T) {
	src := `class Dog: Animal, Runnable {
	}`
	references := collect(t, "app", "dog.swift", src)

	var sawInheritance, sawConformance bool
	for _, r := range references {
		if r.Kind == refs.KindInheritance && r.ReferencedName == "Animal" {
			sawInheritance = true
		}
		if r.Kind == refs.KindConformance && r.ReferencedName == "Runnable" {
			sawConformance = true
		}
	}
	require.True(t, sawInheritance)
	require.True(t, sawConformance)
}

func TestCollectorScopeContextMatchesSymbolCollectorFileScopeID(t *testing.T) {
	references := collect(t, "app", "top.swift", `doSomething()`)
	require.NotEmpty(t, references)
	for _, r := range references {
		require.NotNil(t, r.ScopeContext)
		require.Equal(t, "top.swift::top-level", r.ScopeContext.QualifiedName)
	}

	var sawCall bool
	for _, r := range references {
		if r.Kind == refs.KindFunctionCall && r.ReferencedName == "doSomething" {
			sawCall = true
		}
	}
	require.True(t, sawCall)
}

func TestCollectorEmitsExtensionTargetReference(t *testing.T) {
	src := `extension Greeter {
		func shout() {
		}
	}`
	references := collect(t, "app", "ext.swift", src)

	var found bool
	for _, r := range references {
		if r.Kind == refs.KindExtensionTarget && r.ReferencedName == "Greeter" {
			found = true
		}
	}
	require.True(t, found)
}

func TestCollectorExtensionScopeContextMatchesSymbolCollectorExtensionID(t *testing.T) {
	src := `extension Greeter: Loud {
		func shout() {
			announce()
		}
	}`
	tree := langsyntax.Parse([]byte(src))
	table := symbols.NewCollector("app", "ext.swift", tree).Collect()

	var extSym, shoutSym *symbols.Symbol
	for _, s := range table.Symbols {
		if s.Kind == symbols.KindExtensionMember {
			extSym = s
		}
		if s.Kind == symbols.KindFunction && s.Name == "shout" {
			shoutSym = s
		}
	}
	require.NotNil(t, extSym, "the symbol collector must emit a synthetic extension symbol")
	require.NotNil(t, shoutSym)

	references := refs.NewCollector("app", "ext.swift", tree, refs.DefaultBuiltins).Collect()
	var callRef, confRef *refs.Reference
	for i, r := range references {
		if r.Kind == refs.KindFunctionCall && r.ReferencedName == "announce" {
			callRef = &references[i]
		}
		if r.Kind == refs.KindConformance && r.ReferencedName == "Loud" {
			confRef = &references[i]
		}
	}
	require.NotNil(t, confRef, "the extension's conformance clause must be collected")
	require.NotNil(t, confRef.ScopeContext)
	require.Equal(t, extSym.ID, *confRef.ScopeContext,
		"a reference's scope context directly inside an extension must resolve to the same ID the symbol collector assigned the extension symbol")
	require.NotNil(t, callRef, "the call inside the extension body must be collected")
	require.NotNil(t, callRef.ScopeContext)
	require.Equal(t, shoutSym.ID, *callRef.ScopeContext,
		"a call inside an extension method must carry the method ID the symbol collector assigned")
}

func TestCollectorEmitsGenericArgumentReference(t *testing.T) {
	src := `func store(items: Array<Widget>) {
	}`
	references := collect(t, "app", "generic.swift", src)

	var found bool
	for _, r := range references {
		if r.Kind == refs.KindGenericArgument && r.ReferencedName == "Widget" {
			found = true
		}
	}
	require.True(t, found)
}
