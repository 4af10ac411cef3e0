package langsyntax

import "sort"

// NodeKind names the syntactic category of a Node. Kept as a string type
// (rather than an int enum) so new declaration shapes can be added by
// the parser without renumbering every existing kind.
type NodeKind string

const (
	KindFile             NodeKind = "File"
	KindImportDecl       NodeKind = "ImportDecl"
	KindClassDecl        NodeKind = "ClassDecl"
	KindStructDecl       NodeKind = "StructDecl"
	KindEnumDecl         NodeKind = "EnumDecl"
	KindProtocolDecl     NodeKind = "ProtocolDecl"
	KindExtensionDecl    NodeKind = "ExtensionDecl"
	KindActorDecl        NodeKind = "ActorDecl"
	KindFunctionDecl     NodeKind = "FunctionDecl"
	KindInitDecl         NodeKind = "InitDecl"
	KindDeinitDecl       NodeKind = "DeinitDecl"
	KindSubscriptDecl    NodeKind = "SubscriptDecl"
	KindVarDecl          NodeKind = "VarDecl" // wraps one or more Bindings (multi-binding let/var)
	KindBinding          NodeKind = "Binding"
	KindTypeAliasDecl    NodeKind = "TypeAliasDecl"
	KindAssociatedType   NodeKind = "AssociatedTypeDecl"
	KindEnumCaseDecl     NodeKind = "EnumCaseDecl"
	KindOperatorDecl     NodeKind = "OperatorDecl"
	KindPrecedenceGroup  NodeKind = "PrecedenceGroupDecl"
	KindMacroDecl        NodeKind = "MacroDecl"
	KindParameter        NodeKind = "Parameter"
	KindGenericParam     NodeKind = "GenericParam"
	KindTypeRef          NodeKind = "TypeRef"
	KindInheritanceRef   NodeKind = "InheritanceRef"
	KindConformanceReq   NodeKind = "ConformanceRequirement"
	KindSameTypeReq      NodeKind = "SameTypeRequirement"
	KindAttribute        NodeKind = "Attribute"
	KindBlock            NodeKind = "Block"
	KindExprStmt         NodeKind = "ExprStmt"
	KindCallExpr         NodeKind = "CallExpr"
	KindInitializerCall  NodeKind = "InitializerCallExpr"
	KindMemberExpr       NodeKind = "MemberExpr"
	KindIdentExpr        NodeKind = "IdentExpr"
	KindForceUnwrapExpr  NodeKind = "ForceUnwrapExpr"
	KindNilCoalesceExpr  NodeKind = "NilCoalesceExpr"
	KindSelfExpr         NodeKind = "SelfExpr"
	KindSuperExpr        NodeKind = "SuperExpr"
	KindTypeExprSelf     NodeKind = "TypeExprSelf" // `T.self`
	KindGenericArgument  NodeKind = "GenericArgument"
	KindLiteral          NodeKind = "Literal"
	KindErrorNode        NodeKind = "ErrorNode"
)

// Node is one point in the immutable syntax tree. Byte offsets are
// absolute into the source buffer the tree was parsed from.
type Node struct {
	Kind     NodeKind
	Start    int
	End      int
	Name     string // declaration/identifier/member name, when applicable
	Text     string // raw literal/operator text, when applicable
	Children []*Node

	// Declaration-only metadata; zero values for non-declaration kinds.
	Accessibility  string
	IsStatic       bool
	Attributes     []*Node // KindAttribute children, duplicated here for quick access
	Inherits       []*Node // KindInheritanceRef children for type/extension decls
	GenericParams  []*Node
	WhereClause    []*Node // KindConformanceReq / KindSameTypeReq
	TypeAnnotation *Node   // KindTypeRef, for bindings/parameters/subscripts
	ExtendedType   string  // for ExtensionDecl: the name being extended

	// Reference-only metadata.
	BaseHint string // syntactic base type name hint for member access, when statically obvious
}

// Tree is the immutable parse result of one file.
type Tree struct {
	Root   *Node
	Source []byte
	Errors []ParseErrorNode
	Lines  *LineMap
}

// ParseErrorNode records one recoverable parse error location.
type ParseErrorNode struct {
	Offset  int
	Message string
}

// Decision is returned from a Visitor's Pre hook to control traversal.
type Decision int

const (
	VisitChildren Decision = iota
	SkipChildren
)

// Visitor is the pre-order/post-order contract spec §4.2 requires:
// Pre decides whether to descend, Post runs (if non-nil) after children
// have been visited, in both cases in source order among siblings.
type Visitor interface {
	Pre(n *Node) Decision
	Post(n *Node)
}

// BaseVisitor can be embedded to default Post to a no-op.
type BaseVisitor struct{}

func (BaseVisitor) Post(*Node) {}

// Walk performs a pre-order, source-ordered traversal of the tree
// rooted at n, honoring the Visitor's VisitChildren/SkipChildren
// decisions.
func Walk(n *Node, v Visitor) {
	if n == nil {
		return
	}
	decision := v.Pre(n)
	if decision != SkipChildren {
		for _, c := range n.Children {
			Walk(c, v)
		}
	}
	v.Post(n)
}

// LineMap supports O(log n) byte-offset -> (line, column) translation.
type LineMap struct {
	lineStarts []int // byte offset of the start of each line (0-indexed lines)
}

// NewLineMap builds a LineMap over source bytes.
func NewLineMap(src []byte) *LineMap {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineMap{lineStarts: starts}
}

// Position returns 1-indexed line and column for a byte offset.
func (m *LineMap) Position(offset int) (line, col int) {
	i := sort.Search(len(m.lineStarts), func(i int) bool { return m.lineStarts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	line = i + 1
	col = offset - m.lineStarts[i] + 1
	return line, col
}
