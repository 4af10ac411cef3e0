package symbols

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/sentrygo/internal/langsyntax"
)

// Attribute is a parsed declaration attribute, with optional arguments
// (entry-point markers, interop markers) captured verbatim.
type Attribute struct {
	Name string
	Args string
}

// Symbol is one declaration site, spec.md §3's Symbol (S).
type Symbol struct {
	ID            ID
	Name          string
	QualifiedName string
	Kind          Kind
	ParentID      *ID
	Accessibility Accessibility
	Attributes    []Attribute
	DefiningFile  string
	ByteStart     int
	ByteEnd       int
}

// Table is the per-file output of the collector: symbols plus a
// name -> []ID sidecar to accelerate the Graph's by-name index build.
type Table struct {
	Symbols []*Symbol
	ByName  map[string][]ID
}

func newTable() *Table {
	return &Table{ByName: make(map[string][]ID)}
}

func (t *Table) add(s *Symbol) {
	t.Symbols = append(t.Symbols, s)
	t.ByName[s.Name] = append(t.ByName[s.Name], s.ID)
}

type scopeFrame struct {
	id            ID
	qualifiedName string
}

// Collector walks a parsed tree maintaining a scope stack of in-progress
// parent symbols, per spec.md §4.3.
type Collector struct {
	module  string
	relPath string
	tree    *langsyntax.Tree
	stack   []scopeFrame
	table   *Table
}

// NewCollector constructs a Collector for one file's tree.
func NewCollector(module, relPath string, tree *langsyntax.Tree) *Collector {
	return &Collector{module: module, relPath: relPath, tree: tree, table: newTable()}
}

// Collect walks the tree and returns the file's symbol table. Every file
// gets an implicit file-scope root symbol so top-level statements (e.g. a
// `main.*` entry script) have a stable owning id usable as scope_context
// and as a dead-code entry point.
func (c *Collector) Collect() *Table {
	root := c.pushFileScope()
	for _, child := range c.tree.Root.Children {
		c.visitTopLevel(child)
	}
	c.stack = c.stack[:len(c.stack)-1]
	root.ByteEnd = c.tree.Root.End
	return c.table
}

func (c *Collector) pushFileScope() *Symbol {
	id := ID{
		Module:         c.module,
		QualifiedName:  c.relPath + "::top-level",
		Kind:           KindFileScope,
		LocationDigest: LocationDigest(c.relPath, 0, "top-level"),
	}
	sym := &Symbol{
		ID:            id,
		Name:          "top-level",
		QualifiedName: id.QualifiedName,
		Kind:          KindFileScope,
		Accessibility: AccessInternal,
		DefiningFile:  c.relPath,
		ByteStart:     0,
	}
	c.table.add(sym)
	c.stack = append(c.stack, scopeFrame{id: id, qualifiedName: id.QualifiedName})
	return sym
}

func (c *Collector) currentParent() *ID {
	if len(c.stack) == 0 {
		return nil
	}
	top := c.stack[len(c.stack)-1]
	id := top.id
	return &id
}

func (c *Collector) qualify(name string) string {
	if len(c.stack) == 0 {
		return name
	}
	return c.stack[len(c.stack)-1].qualifiedName + "." + name
}

func kindFromNode(n *langsyntax.Node) Kind {
	switch n.Kind {
	case langsyntax.KindClassDecl:
		return KindClass
	case langsyntax.KindStructDecl:
		return KindStruct
	case langsyntax.KindEnumDecl:
		return KindEnum
	case langsyntax.KindProtocolDecl:
		return KindProtocol
	case langsyntax.KindActorDecl:
		return KindActor
	case langsyntax.KindFunctionDecl:
		return KindFunction
	case langsyntax.KindInitDecl:
		return KindInitializer
	case langsyntax.KindDeinitDecl:
		return KindDeinitializer
	case langsyntax.KindSubscriptDecl:
		return KindSubscript
	case langsyntax.KindTypeAliasDecl:
		return KindTypeAlias
	case langsyntax.KindAssociatedType:
		return KindAssociatedType
	case langsyntax.KindEnumCaseDecl:
		return KindEnumCase
	case langsyntax.KindOperatorDecl:
		return KindOperator
	case langsyntax.KindPrecedenceGroup:
		return KindPrecedenceGroup
	case langsyntax.KindMacroDecl:
		return KindMacro
	default:
		return KindUnknown
	}
}

func accessibilityFromString(s string) Accessibility {
	switch s {
	case "public":
		return AccessPublic
	case "open":
		return AccessOpen
	case "package":
		return AccessPackage
	case "fileprivate":
		return AccessFilePrivate
	case "private":
		return AccessPrivate
	default:
		return AccessInternal
	}
}

func attributesFromNodes(nodes []*langsyntax.Node) []Attribute {
	var out []Attribute
	for _, a := range nodes {
		out = append(out, Attribute{Name: strings.TrimPrefix(a.Name, "@")})
	}
	return out
}

// visitTopLevel dispatches one top-level-or-nested item: container decls
// push a scope frame and recurse into their children; leaf decls are
// emitted directly; extensions get the synthetic attribution key.
func (c *Collector) visitTopLevel(n *langsyntax.Node) {
	switch n.Kind {
	case langsyntax.KindClassDecl, langsyntax.KindStructDecl, langsyntax.KindEnumDecl,
		langsyntax.KindProtocolDecl, langsyntax.KindActorDecl:
		c.visitContainer(n, kindFromNode(n), n.Name)
	case langsyntax.KindExtensionDecl:
		c.visitExtension(n)
	case langsyntax.KindFunctionDecl:
		c.visitContainer(n, KindFunction, n.Name)
	case langsyntax.KindInitDecl:
		c.visitContainer(n, KindInitializer, "init")
	case langsyntax.KindDeinitDecl:
		c.visitContainer(n, KindDeinitializer, "deinit")
	case langsyntax.KindSubscriptDecl:
		c.visitContainer(n, KindSubscript, "subscript")
	case langsyntax.KindVarDecl:
		c.visitVarDecl(n)
	case langsyntax.KindTypeAliasDecl:
		c.emitLeaf(n, KindTypeAlias, n.Name)
	case langsyntax.KindAssociatedType:
		c.emitLeaf(n, KindAssociatedType, n.Name)
	case langsyntax.KindEnumCaseDecl:
		c.visitEnumCase(n)
	case langsyntax.KindOperatorDecl:
		c.emitLeaf(n, KindOperator, n.Name)
	case langsyntax.KindPrecedenceGroup:
		c.emitLeaf(n, KindPrecedenceGroup, n.Name)
	case langsyntax.KindMacroDecl:
		c.emitLeaf(n, KindMacro, n.Name)
	case langsyntax.KindBlock, langsyntax.KindExprStmt:
		for _, child := range n.Children {
			c.visitTopLevel(child)
		}
	default:
		// Not a declaration site; nothing to collect, and no further
		// nested declarations can occur below it except inside blocks,
		// which are handled by their owning FunctionDecl/InitDecl/etc.
	}
}

func (c *Collector) visitContainer(n *langsyntax.Node, kind Kind, name string) {
	qualified := c.qualify(name)
	id := ID{
		Module:         c.module,
		QualifiedName:  qualified,
		Kind:           kind,
		LocationDigest: LocationDigest(c.relPath, n.Start, name),
	}
	sym := &Symbol{
		ID:            id,
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		ParentID:      c.currentParent(),
		Accessibility: accessibilityFromString(n.Accessibility),
		Attributes:    attributesFromNodes(n.Attributes),
		DefiningFile:  c.relPath,
		ByteStart:     n.Start,
		ByteEnd:       n.End,
	}
	c.table.add(sym)

	c.stack = append(c.stack, scopeFrame{id: id, qualifiedName: qualified})
	for _, child := range n.Children {
		c.visitTopLevel(child)
	}
	c.stack = c.stack[:len(c.stack)-1]
}

// visitExtension attaches members under a synthetic extension symbol
// keyed by module.extended_type_name#extension@location_digest, per
// spec §4.3, while the collector's scope qualification still nests
// members under the extension the way a container would.
func (c *Collector) visitExtension(n *langsyntax.Node) {
	digest := LocationDigest(c.relPath, n.Start, n.ExtendedType)
	qualified := fmt.Sprintf("%s#extension@%x", n.ExtendedType, digest)
	id := ID{
		Module:         c.module,
		QualifiedName:  qualified,
		Kind:           KindExtensionMember,
		LocationDigest: digest,
	}
	sym := &Symbol{
		ID:            id,
		Name:          n.ExtendedType,
		QualifiedName: qualified,
		Kind:          KindExtensionMember,
		ParentID:      c.currentParent(),
		Accessibility: accessibilityFromString(n.Accessibility),
		Attributes:    attributesFromNodes(n.Attributes),
		DefiningFile:  c.relPath,
		ByteStart:     n.Start,
		ByteEnd:       n.End,
	}
	c.table.add(sym)

	c.stack = append(c.stack, scopeFrame{id: id, qualifiedName: n.ExtendedType})
	for _, child := range n.Children {
		c.visitTopLevel(child)
	}
	c.stack = c.stack[:len(c.stack)-1]
}

// visitVarDecl emits one symbol per binding (multi-binding let/var).
func (c *Collector) visitVarDecl(n *langsyntax.Node) {
	for _, binding := range n.Children {
		if binding.Kind != langsyntax.KindBinding {
			continue
		}
		c.emitLeaf(binding, KindProperty, binding.Name)
		for _, bc := range binding.Children {
			if bc.Kind == langsyntax.KindBlock {
				// Computed-property accessor block: no scope of its own per
				// spec (accessors aren't named as a nesting level for vars);
				// the reference collector attributes its contents to the
				// enclosing scope, not to the property.
			}
		}
	}
}

func (c *Collector) visitEnumCase(n *langsyntax.Node) {
	for _, caseNode := range n.Children {
		c.emitLeaf(caseNode, KindEnumCase, caseNode.Name)
	}
	if len(n.Children) == 0 {
		c.emitLeaf(n, KindEnumCase, n.Name)
	}
}

func (c *Collector) emitLeaf(n *langsyntax.Node, kind Kind, name string) {
	qualified := c.qualify(name)
	id := ID{
		Module:         c.module,
		QualifiedName:  qualified,
		Kind:           kind,
		LocationDigest: LocationDigest(c.relPath, n.Start, name),
	}
	sym := &Symbol{
		ID:            id,
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		ParentID:      c.currentParent(),
		Accessibility: accessibilityFromString(n.Accessibility),
		Attributes:    attributesFromNodes(n.Attributes),
		DefiningFile:  c.relPath,
		ByteStart:     n.Start,
		ByteEnd:       n.End,
	}
	c.table.add(sym)
}
