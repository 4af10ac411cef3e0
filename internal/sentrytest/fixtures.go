// Package sentrytest provides isolated, in-memory multi-file fixtures
// for exercising the collectors, graph, and rules without touching the
// filesystem — adapted from the teacher's TestDataBuilder to build
// Records/Symbols/References/Graph instead of FileContentStore entries.
package sentrytest

import (
	"github.com/standardbeagle/sentrygo/internal/graph"
	"github.com/standardbeagle/sentrygo/internal/langsyntax"
	"github.com/standardbeagle/sentrygo/internal/refs"
	"github.com/standardbeagle/sentrygo/internal/rules"
	"github.com/standardbeagle/sentrygo/internal/source"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

// Builder accumulates named source files and produces a fully collected
// Fixture in one call, isolated from any other Builder's state.
type Builder struct {
	module string
	files  []namedSource
}

type namedSource struct {
	relPath string
	content string
}

// New starts a Builder for a program named module.
func New(module string) *Builder {
	return &Builder{module: module}
}

// AddFile registers one source file's content under relPath.
func (b *Builder) AddFile(relPath, content string) *Builder {
	b.files = append(b.files, namedSource{relPath: relPath, content: content})
	return b
}

// Fixture is the fully collected result: parsed records, per-file symbol
// tables and references, and the built Global Reference Graph.
type Fixture struct {
	Module       string
	Records      []*source.Record
	FileContexts []*rules.FileContext
	Graph        *graph.Graph
}

// Build parses every registered file, collects symbols and references,
// and builds the graph over all of them.
func (b *Builder) Build() *Fixture {
	fx := &Fixture{Module: b.module}
	var inputs []graph.FileInput

	for _, f := range b.files {
		data := []byte(f.content)
		tree := langsyntax.Parse(data)
		rec := &source.Record{
			AbsPath: f.relPath,
			RelPath: f.relPath,
			Module:  b.module,
			Source:  data,
			Tree:    tree,
		}
		syms := symbols.NewCollector(b.module, f.relPath, tree).Collect()
		references := refs.NewCollector(b.module, f.relPath, tree, refs.DefaultBuiltins).Collect()

		fx.Records = append(fx.Records, rec)
		fx.FileContexts = append(fx.FileContexts, &rules.FileContext{Record: rec, Symbols: syms, References: references})
		inputs = append(inputs, graph.FileInput{RelPath: f.relPath, Module: b.module, Symbols: syms, References: references})
	}

	fx.Graph = graph.Build(inputs)
	return fx
}

// Symbol looks up the first collected symbol with the given qualified
// name, for assertions that don't want to reconstruct a full ID.
func (fx *Fixture) Symbol(qualifiedName string) *symbols.Symbol {
	for _, fc := range fx.FileContexts {
		if fc.Symbols == nil {
			continue
		}
		for _, s := range fc.Symbols.Symbols {
			if s.QualifiedName == qualifiedName {
				return s
			}
		}
	}
	return nil
}
