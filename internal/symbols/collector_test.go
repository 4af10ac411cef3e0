package symbols_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sentrygo/internal/langsyntax"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

func collect(t *testing.T, module, relPath, src string) *symbols.Table {
	t.Helper()
	tree := langsyntax.Parse([]byte(src))
	return symbols.NewCollector(module, relPath, tree).Collect()
}

func TestCollectorEmitsSyntheticFileScopeRoot(t *testing.T) {
	table := collect(t, "app", "main.swift", `let x = 1`)

	var root *symbols.Symbol
	for _, s := range table.Symbols {
		if s.Kind == symbols.KindFileScope {
			root = s
		}
	}
	require.NotNil(t, root, "every file must get a synthetic file-scope root symbol")
	require.Equal(t, "main.swift::top-level", root.QualifiedName)
	require.Nil(t, root.ParentID)
}

func TestCollectorQualifiesNestedMembers(t *testing.T) {
	src := `class Outer {
		class Inner {
			func method() {
			}
		}
	}`
	table := collect(t, "app", "nested.swift", src)

	var method *symbols.Symbol
	for _, s := range table.Symbols {
		if s.Kind == symbols.KindFunction {
			method = s
		}
	}
	require.NotNil(t, method)
	require.Equal(t, "Outer.Inner.method", method.QualifiedName)

	var inner *symbols.Symbol
	for _, s := range table.Symbols {
		if s.Kind == symbols.KindClass && s.Name == "Inner" {
			inner = s
		}
	}
	require.NotNil(t, inner)
	require.NotNil(t, method.ParentID)
	require.True(t, method.ParentID.Equal(inner.ID))
}

func TestCollectorExtensionSymbolQualifiedNameFormat(t *testing.T) {
	src := `extension Greeter {
		func shout() {
		}
	}`
	table := collect(t, "app", "ext.swift", src)

	var ext *symbols.Symbol
	for _, s := range table.Symbols {
		if s.Kind == symbols.KindExtensionMember {
			ext = s
		}
	}
	require.NotNil(t, ext)
	require.Contains(t, ext.QualifiedName, "Greeter#extension@")
	require.Equal(t, "Greeter", ext.Name)
}

func TestCollectorEmitsOneSymbolPerBinding(t *testing.T) {
	table := collect(t, "app", "vars.swift", `let a = 1, b = 2`)

	var names []string
	for _, s := range table.Symbols {
		if s.Kind == symbols.KindProperty {
			names = append(names, s.Name)
		}
	}
	require.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestCollectorAccessibilityDefaultsToInternal(t *testing.T) {
	table := collect(t, "app", "access.swift", `public class Pub {}
class Default {}`)

	byName := map[string]symbols.Accessibility{}
	for _, s := range table.Symbols {
		if s.Kind == symbols.KindClass {
			byName[s.Name] = s.Accessibility
		}
	}
	require.Equal(t, symbols.AccessPublic, byName["Pub"])
	require.Equal(t, symbols.AccessInternal, byName["Default"])
}

func TestLocationDigestStableAcrossUnrelatedEdits(t *testing.T) {
	a := symbols.LocationDigest("f.swift", 10, "foo")
	b := symbols.LocationDigest("f.swift", 10, "foo")
	require.Equal(t, a, b)

	c := symbols.LocationDigest("f.swift", 20, "foo")
	require.NotEqual(t, a, c, "digest must vary with byte offset")
}

func TestByNameIndexAcceleratesLookup(t *testing.T) {
	table := collect(t, "app", "byname.swift", `class Foo {}
class Foo {}`)

	ids, ok := table.ByName["Foo"]
	require.True(t, ok)
	require.Len(t, ids, 2, "two distinct declarations with the same name both get indexed")
}
