package langsyntax

// Parser is a recursive-descent parser over a filtered token stream
// (comments dropped). It never returns a fatal error: malformed input
// degrades to ErrorNode children so the rest of the file is still
// collected, matching spec §4.2's "errors ... never abort collection".
type Parser struct {
	toks []Token
	pos  int
	errs []ParseErrorNode
}

// Parse tokenizes and parses source into an immutable Tree.
func Parse(src []byte) *Tree {
	all := NewLexer(src).Tokenize()
	filtered := make([]Token, 0, len(all))
	for _, t := range all {
		if t.Kind != TokComment {
			filtered = append(filtered, t)
		}
	}
	p := &Parser{toks: filtered}
	root := &Node{Kind: KindFile, Start: 0, End: len(src)}
	for !p.atEOF() {
		item := p.parseTopLevel()
		if item != nil {
			root.Children = append(root.Children, item)
		}
	}
	if len(root.Children) > 0 {
		root.End = root.Children[len(root.Children)-1].End
	}
	return &Tree{Root: root, Source: src, Errors: p.errs, Lines: NewLineMap(src)}
}

func (p *Parser) atEOF() bool { return p.cur().Kind == TokEOF }

func (p *Parser) cur() Token {
	if p.pos >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(off int) Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[i]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) isPunct(s string) bool { c := p.cur(); return c.Kind == TokPunct && c.Text == s }
func (p *Parser) isKeyword(s string) bool {
	c := p.cur()
	return c.Kind == TokKeyword && c.Text == s
}

func (p *Parser) expectPunct(s string) bool {
	if p.isPunct(s) {
		p.advance()
		return true
	}
	p.recordError("expected '" + s + "'")
	return false
}

func (p *Parser) recordError(msg string) {
	p.errs = append(p.errs, ParseErrorNode{Offset: p.cur().Start, Message: msg})
}

var accessibilityWords = map[string]bool{
	"public": true, "open": true, "package": true, "internal": true, "fileprivate": true, "private": true,
}

var declModifiers = map[string]bool{
	"static": true, "final": true, "override": true, "mutating": true, "nonmutating": true,
	"required": true, "convenience": true, "indirect": true, "lazy": true, "weak": true,
	"unowned": true, "async": true, "throws": true, "rethrows": true, "class": false, // "class" handled separately (decl vs modifier ambiguity is rare; treat as decl keyword)
}

// parseTopLevel consumes attributes/modifiers and dispatches to the
// declaration or falls back to a statement/expression scan, so stray
// top-level code (script-style entry files, `main.*`) is still walked
// for references.
func (p *Parser) parseTopLevel() *Node {
	return p.parseItem()
}

func (p *Parser) parseItem() *Node {
	start := p.cur().Start
	var attrs []*Node
	for p.cur().Kind == TokAttribute {
		t := p.advance()
		attrs = append(attrs, &Node{Kind: KindAttribute, Start: t.Start, End: t.End, Name: t.Text})
	}
	accessibility := ""
	isStatic := false
	for p.cur().Kind == TokKeyword && (accessibilityWords[p.cur().Text] || declModifiers[p.cur().Text]) {
		if accessibilityWords[p.cur().Text] {
			accessibility = p.cur().Text
		}
		if p.cur().Text == "static" {
			isStatic = true
		}
		p.advance()
	}

	var decl *Node
	switch {
	case p.isKeyword("import"):
		decl = p.parseImport()
	case p.isKeyword("class"), p.isKeyword("struct"), p.isKeyword("actor"):
		decl = p.parseTypeDecl()
	case p.isKeyword("enum"):
		decl = p.parseEnumDecl()
	case p.isKeyword("protocol"):
		decl = p.parseProtocolDecl()
	case p.isKeyword("extension"):
		decl = p.parseExtensionDecl()
	case p.isKeyword("func"):
		decl = p.parseFunctionDecl()
	case p.isKeyword("init"):
		decl = p.parseInitDecl()
	case p.isKeyword("deinit"):
		decl = p.parseDeinitDecl()
	case p.isKeyword("subscript"):
		decl = p.parseSubscriptDecl()
	case p.isKeyword("let"), p.isKeyword("var"):
		decl = p.parseVarDecl()
	case p.isKeyword("typealias"):
		decl = p.parseTypeAliasDecl()
	case p.isKeyword("associatedtype"):
		decl = p.parseAssociatedTypeDecl()
	case p.isKeyword("case"):
		decl = p.parseEnumCaseDecl()
	case p.isKeyword("operator"):
		decl = p.parseOperatorDecl()
	case p.isKeyword("precedencegroup"):
		decl = p.parsePrecedenceGroupDecl()
	case p.cur().Kind == TokIdent && p.cur().Text == "macro":
		decl = p.parseMacroDecl()
	default:
		decl = p.parseExprStatement()
	}

	if decl == nil {
		return nil
	}
	decl.Start = start
	decl.Accessibility = orDefault(accessibility, decl.Accessibility)
	decl.IsStatic = decl.IsStatic || isStatic
	decl.Attributes = append(decl.Attributes, attrs...)
	return decl
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func (p *Parser) parseName() (string, Token) {
	t := p.cur()
	if t.Kind == TokIdent || t.Kind == TokKeyword {
		p.advance()
		return t.Text, t
	}
	p.recordError("expected identifier")
	return "", t
}

func (p *Parser) parseImport() *Node {
	start := p.advance() // 'import'
	var parts []string
	for p.cur().Kind == TokIdent || p.cur().Kind == TokKeyword {
		name, _ := p.parseName()
		parts = append(parts, name)
		if p.isPunct(".") {
			p.advance()
			continue
		}
		break
	}
	end := p.cur().Start
	path := ""
	for i, s := range parts {
		if i > 0 {
			path += "."
		}
		path += s
	}
	return &Node{Kind: KindImportDecl, Start: start.Start, End: end, Name: path}
}

// parseGenericParamClause parses `<T: Conformance, U>` if present.
func (p *Parser) parseGenericParamClause() []*Node {
	if !p.isPunct("<") {
		return nil
	}
	p.advance()
	var params []*Node
	for !p.isPunct(">") && !p.atEOF() {
		nameTok := p.cur()
		name, _ := p.parseName()
		gp := &Node{Kind: KindGenericParam, Start: nameTok.Start, Name: name}
		if p.isPunct(":") {
			p.advance()
			gp.TypeAnnotation = p.parseTypeRef()
		}
		gp.End = p.cur().Start
		params = append(params, gp)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	p.expectPunct(">")
	return params
}

// parseInheritanceClause parses `: Base, ProtoA, ProtoB` for type/extension decls.
func (p *Parser) parseInheritanceClause() []*Node {
	if !p.isPunct(":") {
		return nil
	}
	p.advance()
	var refs []*Node
	for {
		t := p.parseTypeRef()
		if t == nil {
			break
		}
		refs = append(refs, &Node{Kind: KindInheritanceRef, Start: t.Start, End: t.End, Name: t.Name, Children: []*Node{t}})
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return refs
}

// parseWhereClause parses `where T: Proto, U == V` conditional-conformance
// requirements (spec §4.5 "conditional conformance records").
func (p *Parser) parseWhereClause() []*Node {
	if !p.isKeyword("where") {
		return nil
	}
	p.advance()
	var reqs []*Node
	for {
		start := p.cur().Start
		lhs, _ := p.parseName()
		if p.isPunct(":") {
			p.advance()
			rhs := p.parseTypeRef()
			reqs = append(reqs, &Node{Kind: KindConformanceReq, Start: start, End: p.cur().Start, Name: lhs, Children: []*Node{rhs}})
		} else if p.isPunct("==") {
			p.advance()
			rhsTok := p.cur()
			rhsName, _ := p.parseName()
			reqs = append(reqs, &Node{Kind: KindSameTypeReq, Start: start, End: p.cur().Start, Name: lhs, Text: rhsName, Children: []*Node{{Kind: KindTypeRef, Start: rhsTok.Start, End: p.cur().Start, Name: rhsName}}})
		}
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return reqs
}

// parseTypeRef parses a (possibly optional, possibly generic, possibly
// qualified) type reference: `Foo`, `Foo?`, `Foo<Bar, Baz>`, `A.B`.
func (p *Parser) parseTypeRef() *Node {
	start := p.cur().Start
	if p.isKeyword("some") || p.isKeyword("any") {
		p.advance()
	}
	if p.isPunct("(") {
		// Function type or tuple type: skip balanced parens, best-effort.
		depth := 0
		for {
			if p.isPunct("(") {
				depth++
				p.advance()
				continue
			}
			if p.isPunct(")") {
				depth--
				p.advance()
				if depth == 0 {
					break
				}
				continue
			}
			if p.atEOF() {
				break
			}
			p.advance()
		}
		if p.isPunct("->") {
			p.advance()
			p.parseTypeRef()
		}
		return &Node{Kind: KindTypeRef, Start: start, End: p.cur().Start, Name: "Function"}
	}
	if p.isPunct("[") {
		p.advance()
		elem := p.parseTypeRef()
		var valueType *Node
		if p.isPunct(":") {
			p.advance()
			valueType = p.parseTypeRef()
		}
		p.expectPunct("]")
		name := "Array"
		children := []*Node{elem}
		if valueType != nil {
			name = "Dictionary"
			children = append(children, valueType)
		}
		return &Node{Kind: KindTypeRef, Start: start, End: p.cur().Start, Name: name, Children: children}
	}
	if p.cur().Kind != TokIdent && p.cur().Kind != TokKeyword {
		return nil
	}
	name, _ := p.parseName()
	for p.isPunct(".") && (p.peekAt(1).Kind == TokIdent || p.peekAt(1).Kind == TokKeyword) {
		p.advance()
		next, _ := p.parseName()
		name = name + "." + next
	}
	ref := &Node{Kind: KindTypeRef, Start: start, Name: name}
	if p.isPunct("<") {
		p.advance()
		for !p.isPunct(">") && !p.atEOF() {
			argStart := p.cur().Start
			arg := p.parseTypeRef()
			if arg == nil {
				break
			}
			ref.Children = append(ref.Children, &Node{Kind: KindGenericArgument, Start: argStart, End: p.cur().Start, Name: arg.Name, Children: []*Node{arg}})
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
		p.expectPunct(">")
	}
	for p.isPunct("?") || p.isPunct("!") {
		p.advance() // optional / implicitly-unwrapped-optional suffix
	}
	ref.End = p.cur().Start
	return ref
}

func (p *Parser) parseParameterList() []*Node {
	p.expectPunct("(")
	var params []*Node
	for !p.isPunct(")") && !p.atEOF() {
		start := p.cur().Start
		// external label, internal name (label name : Type), or `_ name : Type`
		first, _ := p.parseName()
		name := first
		if (p.cur().Kind == TokIdent || p.cur().Kind == TokKeyword) && first != "" {
			second, _ := p.parseName()
			name = second
		}
		param := &Node{Kind: KindParameter, Start: start, Name: name}
		if p.isPunct(":") {
			p.advance()
			param.TypeAnnotation = p.parseTypeRef()
		}
		if p.isPunct("=") {
			p.advance()
			p.skipExpressionUntil(func() bool { return p.isPunct(",") || p.isPunct(")") })
		}
		param.End = p.cur().Start
		params = append(params, param)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	p.expectPunct(")")
	return params
}

func (p *Parser) skipModifiersAfterSignature() {
	for p.isKeyword("throws") || p.isKeyword("rethrows") || p.isKeyword("async") {
		p.advance()
	}
}

func (p *Parser) parseFunctionDecl() *Node {
	start := p.advance() // 'func'
	nameTok := p.cur()
	name, _ := p.parseName()
	n := &Node{Kind: KindFunctionDecl, Start: start.Start, Name: name}
	_ = nameTok
	n.GenericParams = p.parseGenericParamClause()
	n.Children = append(n.Children, p.parseParameterList()...)
	p.skipModifiersAfterSignature()
	if p.isPunct("->") {
		p.advance()
		n.TypeAnnotation = p.parseTypeRef()
	}
	p.skipModifiersAfterSignature()
	n.WhereClause = p.parseWhereClause()
	if p.isPunct("{") {
		body := p.parseBlock()
		n.Children = append(n.Children, body)
		n.End = body.End
	} else {
		n.End = p.cur().Start
	}
	return n
}

func (p *Parser) parseInitDecl() *Node {
	start := p.advance() // 'init'
	n := &Node{Kind: KindInitDecl, Start: start.Start, Name: "init"}
	if p.isPunct("?") || p.isPunct("!") {
		p.advance()
	}
	n.GenericParams = p.parseGenericParamClause()
	n.Children = append(n.Children, p.parseParameterList()...)
	p.skipModifiersAfterSignature()
	n.WhereClause = p.parseWhereClause()
	if p.isPunct("{") {
		body := p.parseBlock()
		n.Children = append(n.Children, body)
		n.End = body.End
	} else {
		n.End = p.cur().Start
	}
	return n
}

func (p *Parser) parseDeinitDecl() *Node {
	start := p.advance()
	n := &Node{Kind: KindDeinitDecl, Start: start.Start, Name: "deinit"}
	if p.isPunct("{") {
		body := p.parseBlock()
		n.Children = append(n.Children, body)
		n.End = body.End
	} else {
		n.End = p.cur().Start
	}
	return n
}

func (p *Parser) parseSubscriptDecl() *Node {
	start := p.advance()
	n := &Node{Kind: KindSubscriptDecl, Start: start.Start, Name: "subscript"}
	n.GenericParams = p.parseGenericParamClause()
	n.Children = append(n.Children, p.parseParameterList()...)
	if p.isPunct("->") {
		p.advance()
		n.TypeAnnotation = p.parseTypeRef()
	}
	n.WhereClause = p.parseWhereClause()
	if p.isPunct("{") {
		body := p.parseBlock()
		n.Children = append(n.Children, body)
		n.End = body.End
	} else {
		n.End = p.cur().Start
	}
	return n
}

func (p *Parser) parseTypeDecl() *Node {
	kwTok := p.advance() // class / struct / actor
	kind := KindClassDecl
	switch kwTok.Text {
	case "struct":
		kind = KindStructDecl
	case "actor":
		kind = KindActorDecl
	}
	name, _ := p.parseName()
	n := &Node{Kind: kind, Start: kwTok.Start, Name: name}
	n.GenericParams = p.parseGenericParamClause()
	n.Inherits = p.parseInheritanceClause()
	n.WhereClause = p.parseWhereClause()
	body := p.parseMemberBlock()
	n.Children = body
	n.End = p.cur().Start
	return n
}

func (p *Parser) parseEnumDecl() *Node {
	kwTok := p.advance()
	name, _ := p.parseName()
	n := &Node{Kind: KindEnumDecl, Start: kwTok.Start, Name: name}
	n.GenericParams = p.parseGenericParamClause()
	n.Inherits = p.parseInheritanceClause()
	n.WhereClause = p.parseWhereClause()
	n.Children = p.parseMemberBlock()
	n.End = p.cur().Start
	return n
}

func (p *Parser) parseProtocolDecl() *Node {
	kwTok := p.advance()
	name, _ := p.parseName()
	n := &Node{Kind: KindProtocolDecl, Start: kwTok.Start, Name: name}
	n.Inherits = p.parseInheritanceClause()
	n.WhereClause = p.parseWhereClause()
	n.Children = p.parseMemberBlock()
	n.End = p.cur().Start
	return n
}

func (p *Parser) parseExtensionDecl() *Node {
	kwTok := p.advance()
	typeName, _ := p.parseName()
	for p.isPunct(".") {
		p.advance()
		next, _ := p.parseName()
		typeName = typeName + "." + next
	}
	n := &Node{Kind: KindExtensionDecl, Start: kwTok.Start, Name: typeName, ExtendedType: typeName}
	n.Inherits = p.parseInheritanceClause()
	n.WhereClause = p.parseWhereClause()
	n.Children = p.parseMemberBlock()
	n.End = p.cur().Start
	return n
}

// parseMemberBlock parses `{ member* }` for a type/protocol/extension body,
// recursing through parseItem so nested decls get their own symbols.
func (p *Parser) parseMemberBlock() []*Node {
	if !p.expectPunct("{") {
		return nil
	}
	var members []*Node
	for !p.isPunct("}") && !p.atEOF() {
		m := p.parseItem()
		if m == nil {
			p.advance()
			continue
		}
		members = append(members, m)
	}
	p.expectPunct("}")
	return members
}

func (p *Parser) parseVarDecl() *Node {
	kwTok := p.advance() // let / var
	n := &Node{Kind: KindVarDecl, Start: kwTok.Start}
	for {
		bStart := p.cur().Start
		name, _ := p.parseName()
		binding := &Node{Kind: KindBinding, Start: bStart, Name: name}
		if p.isPunct(":") {
			p.advance()
			binding.TypeAnnotation = p.parseTypeRef()
		}
		if p.isPunct("=") {
			p.advance()
			expr := p.parseExpression()
			if expr != nil {
				binding.Children = append(binding.Children, expr)
			}
		}
		if p.isPunct("{") {
			// computed property accessor block (get/set/willSet/didSet)
			body := p.parseBlock()
			binding.Children = append(binding.Children, body)
		}
		binding.End = p.cur().Start
		n.Children = append(n.Children, binding)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	n.End = p.cur().Start
	return n
}

func (p *Parser) parseTypeAliasDecl() *Node {
	kwTok := p.advance()
	name, _ := p.parseName()
	n := &Node{Kind: KindTypeAliasDecl, Start: kwTok.Start, Name: name}
	n.GenericParams = p.parseGenericParamClause()
	if p.isPunct("=") {
		p.advance()
		n.TypeAnnotation = p.parseTypeRef()
	}
	n.End = p.cur().Start
	return n
}

func (p *Parser) parseAssociatedTypeDecl() *Node {
	kwTok := p.advance()
	name, _ := p.parseName()
	n := &Node{Kind: KindAssociatedType, Start: kwTok.Start, Name: name}
	n.Inherits = p.parseInheritanceClause()
	if p.isPunct("=") {
		p.advance()
		n.TypeAnnotation = p.parseTypeRef()
	}
	n.End = p.cur().Start
	return n
}

func (p *Parser) parseEnumCaseDecl() *Node {
	kwTok := p.advance()
	n := &Node{Kind: KindEnumCaseDecl, Start: kwTok.Start}
	for {
		nameTok := p.cur()
		name, _ := p.parseName()
		caseNode := &Node{Kind: KindEnumCaseDecl, Start: nameTok.Start, Name: name}
		if p.isPunct("(") {
			caseNode.Children = p.parseParameterList()
		}
		if p.isPunct("=") {
			p.advance()
			p.skipExpressionUntil(func() bool { return p.isPunct(",") || p.isPunct("}") })
		}
		caseNode.End = p.cur().Start
		n.Children = append(n.Children, caseNode)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	n.End = p.cur().Start
	return n
}

func (p *Parser) parseOperatorDecl() *Node {
	kwTok := p.advance()
	name := ""
	for !p.isPunct(":") && !p.atEOF() && !p.isPunct("{") {
		t := p.advance()
		if t.Kind == TokOperator || t.Kind == TokIdent {
			name = t.Text
		}
		if t.Kind == TokEOF {
			break
		}
		if t.Start > kwTok.Start+200 { // safety valve against runaway scans
			break
		}
	}
	n := &Node{Kind: KindOperatorDecl, Start: kwTok.Start, Name: name}
	if p.isPunct(":") {
		p.advance()
		p.parseName()
	}
	n.End = p.cur().Start
	return n
}

func (p *Parser) parsePrecedenceGroupDecl() *Node {
	kwTok := p.advance()
	name, _ := p.parseName()
	n := &Node{Kind: KindPrecedenceGroup, Start: kwTok.Start, Name: name}
	if p.isPunct("{") {
		p.advance()
		for !p.isPunct("}") && !p.atEOF() {
			p.advance()
		}
		p.expectPunct("}")
	}
	n.End = p.cur().Start
	return n
}

func (p *Parser) parseMacroDecl() *Node {
	kwTok := p.advance() // identifier "macro"
	name, _ := p.parseName()
	n := &Node{Kind: KindMacroDecl, Start: kwTok.Start, Name: name}
	if p.isPunct("(") {
		n.Children = p.parseParameterList()
	}
	if p.isPunct(":") {
		p.advance()
		n.TypeAnnotation = p.parseTypeRef()
	}
	if p.isPunct("=") {
		p.advance()
		p.skipExpressionUntil(func() bool { return p.atEOF() || p.isPunct("}") })
	}
	n.End = p.cur().Start
	return n
}

// skipExpressionUntil advances past an initializer/default-value
// expression, stopping when stop() reports true at bracket depth 0.
func (p *Parser) skipExpressionUntil(stop func() bool) {
	depth := 0
	for !p.atEOF() {
		if depth == 0 && stop() {
			return
		}
		switch {
		case p.isPunct("(") || p.isPunct("[") || p.isPunct("{"):
			depth++
		case p.isPunct(")") || p.isPunct("]") || p.isPunct("}"):
			if depth == 0 {
				return
			}
			depth--
		}
		p.advance()
	}
}
