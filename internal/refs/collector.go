// Package refs implements the Reference Collector (spec §4.4): a second
// walker over the same syntax tree that records usage sites as
// unresolved SymbolReferences, leaving resolution to the Global
// Reference Graph.
package refs

import (
	"fmt"

	"github.com/standardbeagle/sentrygo/internal/langsyntax"
	"github.com/standardbeagle/sentrygo/internal/symbols"
)

// Kind enumerates the reference kinds spec.md §3 requires.
type Kind int

const (
	KindFunctionCall Kind = iota
	KindPropertyAccess
	KindTypeReference
	KindInheritance
	KindConformance
	KindIdentifier
	KindExtensionTarget
	KindEnumCase
	KindInitializer
	KindGenericArgument
)

// Reference is one unresolved usage site, spec.md §3's Symbol Reference (R).
type Reference struct {
	ReferencedName      string
	FullExpression      string
	Kind                Kind
	File                string
	ByteOffset          int
	ScopeContext         *symbols.ID
	InferredBaseTypeName string
}

// DefaultBuiltins is the built-in/primitive type allow-list skipped by
// the collector (spec §4.4); callers may substitute a configured list.
var DefaultBuiltins = map[string]bool{
	"Int": true, "Int8": true, "Int16": true, "Int32": true, "Int64": true,
	"UInt": true, "UInt8": true, "UInt16": true, "UInt32": true, "UInt64": true,
	"Float": true, "Double": true, "Bool": true, "String": true, "Character": true,
	"Array": true, "Dictionary": true, "Set": true, "Optional": true, "Void": true,
	"Any": true, "AnyObject": true, "Never": true,
}

type scopeFrame struct {
	id            symbols.ID
	qualifiedName string
}

// Collector walks a parsed tree, mirroring the Symbol Collector's scope
// nesting exactly, so the symbols.ID it attaches as scope_context agrees
// bit-for-bit with the IDs the Symbol Collector assigned.
type Collector struct {
	module   string
	relPath  string
	tree     *langsyntax.Tree
	builtins map[string]bool
	stack    []scopeFrame
	refs     []Reference
}

// NewCollector constructs a reference Collector for one file's tree.
func NewCollector(module, relPath string, tree *langsyntax.Tree, builtins map[string]bool) *Collector {
	if builtins == nil {
		builtins = DefaultBuiltins
	}
	return &Collector{module: module, relPath: relPath, tree: tree, builtins: builtins}
}

// Collect walks the tree and returns the file's reference list. Mirrors
// symbols.Collector's implicit file-scope root exactly, so top-level
// references get a non-nil scope_context matching the Symbol Collector's
// synthetic file-scope symbol id.
func (c *Collector) Collect() []Reference {
	id := symbols.ID{
		Module:         c.module,
		QualifiedName:  c.relPath + "::top-level",
		Kind:           symbols.KindFileScope,
		LocationDigest: symbols.LocationDigest(c.relPath, 0, "top-level"),
	}
	c.stack = append(c.stack, scopeFrame{id: id, qualifiedName: id.QualifiedName})
	for _, child := range c.tree.Root.Children {
		c.visitTopLevel(child)
	}
	c.stack = c.stack[:len(c.stack)-1]
	return c.refs
}

func (c *Collector) currentScope() *symbols.ID {
	if len(c.stack) == 0 {
		return nil
	}
	id := c.stack[len(c.stack)-1].id
	return &id
}

func (c *Collector) qualify(name string) string {
	if len(c.stack) == 0 {
		return name
	}
	return c.stack[len(c.stack)-1].qualifiedName + "." + name
}

func (c *Collector) emit(kind Kind, name, full string, offset int, baseHint string) {
	if name == "" || c.builtins[name] {
		return
	}
	c.refs = append(c.refs, Reference{
		ReferencedName:       name,
		FullExpression:       full,
		Kind:                 kind,
		File:                 c.relPath,
		ByteOffset:           offset,
		ScopeContext:         c.currentScope(),
		InferredBaseTypeName: baseHint,
	})
}

// pushContainer mirrors symbols.Collector.visitContainer's ID computation
// exactly (same inputs, same LocationDigest call) so IDs line up.
func (c *Collector) pushContainer(kind symbols.Kind, name string, startOffset int) {
	qualified := c.qualify(name)
	id := symbols.ID{
		Module:         c.module,
		QualifiedName:  qualified,
		Kind:           kind,
		LocationDigest: symbols.LocationDigest(c.relPath, startOffset, name),
	}
	c.stack = append(c.stack, scopeFrame{id: id, qualifiedName: qualified})
}

func (c *Collector) popContainer() {
	c.stack = c.stack[:len(c.stack)-1]
}

func symbolKindFromNode(n *langsyntax.Node) symbols.Kind {
	switch n.Kind {
	case langsyntax.KindClassDecl:
		return symbols.KindClass
	case langsyntax.KindStructDecl:
		return symbols.KindStruct
	case langsyntax.KindEnumDecl:
		return symbols.KindEnum
	case langsyntax.KindProtocolDecl:
		return symbols.KindProtocol
	case langsyntax.KindActorDecl:
		return symbols.KindActor
	case langsyntax.KindFunctionDecl:
		return symbols.KindFunction
	case langsyntax.KindInitDecl:
		return symbols.KindInitializer
	case langsyntax.KindDeinitDecl:
		return symbols.KindDeinitializer
	case langsyntax.KindSubscriptDecl:
		return symbols.KindSubscript
	default:
		return symbols.KindUnknown
	}
}

func (c *Collector) visitTopLevel(n *langsyntax.Node) {
	switch n.Kind {
	case langsyntax.KindClassDecl, langsyntax.KindStructDecl, langsyntax.KindEnumDecl,
		langsyntax.KindProtocolDecl, langsyntax.KindActorDecl:
		c.pushContainer(symbolKindFromNode(n), n.Name, n.Start)
		c.visitInheritance(n, n.Kind == langsyntax.KindClassDecl)
		c.visitGenericParams(n.GenericParams)
		for _, child := range n.Children {
			c.visitTopLevel(child)
		}
		c.popContainer()
	case langsyntax.KindExtensionDecl:
		c.emit(KindExtensionTarget, n.ExtendedType, n.ExtendedType, n.Start, "")
		digest := symbols.LocationDigest(c.relPath, n.Start, n.ExtendedType)
		qualified := fmt.Sprintf("%s#extension@%x", n.ExtendedType, digest)
		id := symbols.ID{Module: c.module, QualifiedName: qualified, Kind: symbols.KindExtensionMember, LocationDigest: digest}
		c.stack = append(c.stack, scopeFrame{id: id, qualifiedName: n.ExtendedType})
		c.visitInheritance(n, false)
		for _, child := range n.Children {
			c.visitTopLevel(child)
		}
		c.popContainer()
	case langsyntax.KindFunctionDecl:
		c.visitParams(n.Children)
		if n.TypeAnnotation != nil {
			c.visitTypeRef(n.TypeAnnotation)
		}
		c.pushContainer(symbols.KindFunction, n.Name, n.Start)
		c.visitBody(n.Children)
		c.popContainer()
	case langsyntax.KindInitDecl:
		c.visitParams(n.Children)
		c.pushContainer(symbols.KindInitializer, "init", n.Start)
		c.visitBody(n.Children)
		c.popContainer()
	case langsyntax.KindDeinitDecl:
		c.pushContainer(symbols.KindDeinitializer, "deinit", n.Start)
		c.visitBody(n.Children)
		c.popContainer()
	case langsyntax.KindSubscriptDecl:
		c.visitParams(n.Children)
		if n.TypeAnnotation != nil {
			c.visitTypeRef(n.TypeAnnotation)
		}
		c.pushContainer(symbols.KindSubscript, "subscript", n.Start)
		c.visitBody(n.Children)
		c.popContainer()
	case langsyntax.KindVarDecl:
		for _, binding := range n.Children {
			if binding.TypeAnnotation != nil {
				c.visitTypeRef(binding.TypeAnnotation)
			}
			for _, bc := range binding.Children {
				c.visitExpr(bc)
			}
		}
	case langsyntax.KindTypeAliasDecl:
		if n.TypeAnnotation != nil {
			c.visitTypeRef(n.TypeAnnotation)
		}
	case langsyntax.KindAssociatedType:
		for _, inh := range n.Inherits {
			c.visitTypeRef(inh.Children[0])
		}
		if n.TypeAnnotation != nil {
			c.visitTypeRef(n.TypeAnnotation)
		}
	case langsyntax.KindEnumCaseDecl:
		for _, caseNode := range n.Children {
			c.emit(KindEnumCase, caseNode.Name, caseNode.Name, caseNode.Start, "")
			c.visitParams(caseNode.Children)
		}
	case langsyntax.KindBlock:
		c.visitBody([]*langsyntax.Node{n})
	case langsyntax.KindExprStmt:
		c.visitExpr(n)
	default:
		c.visitExpr(n)
	}
}

func (c *Collector) visitInheritance(n *langsyntax.Node, firstIsSuperclass bool) {
	for i, inh := range n.Inherits {
		kind := KindConformance
		if firstIsSuperclass && i == 0 {
			kind = KindInheritance
		}
		if len(inh.Children) > 0 {
			c.emit(kind, inh.Name, inh.Name, inh.Start, "")
			c.visitTypeRef(inh.Children[0])
		}
	}
}

func (c *Collector) visitGenericParams(params []*langsyntax.Node) {
	for _, gp := range params {
		if gp.TypeAnnotation != nil {
			c.visitTypeRef(gp.TypeAnnotation)
		}
	}
}

func (c *Collector) visitParams(children []*langsyntax.Node) {
	for _, child := range children {
		if child.Kind == langsyntax.KindParameter && child.TypeAnnotation != nil {
			c.visitTypeRef(child.TypeAnnotation)
		}
	}
}

// visitTypeRef emits a type-reference for the named type and a
// generic-argument reference per generic argument (spec §4.4).
func (c *Collector) visitTypeRef(t *langsyntax.Node) {
	if t == nil {
		return
	}
	c.emit(KindTypeReference, t.Name, t.Name, t.Start, "")
	for _, arg := range t.Children {
		if arg.Kind == langsyntax.KindGenericArgument {
			c.emit(KindGenericArgument, arg.Name, arg.Name, arg.Start, "")
			if len(arg.Children) > 0 {
				c.visitTypeRef(arg.Children[0])
			}
		}
	}
}

// visitBody walks function/init/subscript/accessor bodies, recursing
// into nested declarations (which get their own pushed scope) and
// scanning everything else as expressions.
func (c *Collector) visitBody(children []*langsyntax.Node) {
	for _, child := range children {
		switch child.Kind {
		case langsyntax.KindBlock:
			for _, stmt := range child.Children {
				c.visitTopLevel(stmt)
			}
		case langsyntax.KindClassDecl, langsyntax.KindStructDecl, langsyntax.KindEnumDecl,
			langsyntax.KindProtocolDecl, langsyntax.KindActorDecl, langsyntax.KindFunctionDecl,
			langsyntax.KindVarDecl, langsyntax.KindTypeAliasDecl:
			c.visitTopLevel(child)
		case langsyntax.KindParameter:
			// already handled by visitParams
		default:
			c.visitTopLevel(child)
		}
	}
}

// visitExpr walks an expression node emitting call/member/identifier/
// type-expression references.
func (c *Collector) visitExpr(n *langsyntax.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case langsyntax.KindCallExpr, langsyntax.KindInitializerCall:
		kind := KindFunctionCall
		if n.Kind == langsyntax.KindInitializerCall {
			kind = KindInitializer
		}
		if len(n.Children) > 0 {
			callee := n.Children[0]
			c.emit(kind, n.Name, n.Name, n.Start, callee.BaseHint)
			for _, arg := range n.Children[1:] {
				c.visitExpr(arg)
			}
			c.visitExpr(callee)
		}
	case langsyntax.KindMemberExpr:
		c.emit(KindPropertyAccess, n.Name, n.Name, n.Start, n.BaseHint)
		if len(n.Children) > 0 {
			c.visitExpr(n.Children[0])
		}
	case langsyntax.KindIdentExpr:
		if n.Name != "self" && n.Name != "super" {
			c.emit(KindIdentifier, n.Name, n.Name, n.Start, "")
		}
	case langsyntax.KindTypeExprSelf:
		if len(n.Children) > 0 {
			c.emit(KindTypeReference, n.Children[0].Name, n.Name+".self", n.Start, "")
		}
	case langsyntax.KindForceUnwrapExpr, langsyntax.KindNilCoalesceExpr:
		for _, child := range n.Children {
			c.visitExpr(child)
		}
	case langsyntax.KindSelfExpr, langsyntax.KindSuperExpr, langsyntax.KindLiteral:
		// Language tokens and literals carry no reference.
	case langsyntax.KindExprStmt, langsyntax.KindBlock:
		for _, child := range n.Children {
			c.visitTopLevel(child)
		}
	default:
		for _, child := range n.Children {
			c.visitExpr(child)
		}
	}
}
