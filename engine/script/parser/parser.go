// Package parser turns orchestration-script source into a syntax tree. It
// accepts a superset of the approved dialect (classes, switch, with, labels,
// async/generator literals, new, await/yield) so the validator can reject
// those constructs with a named diagnostic instead of a bare syntax error.
package parser

import (
	"fmt"

	"github.com/toolweave/toolweave/engine/script/ast"
	"github.com/toolweave/toolweave/engine/script/token"
)

type Parser struct {
	lx  Lexer
	tok token.Token
}

// Parse parses a whole script. The first syntax error aborts the parse.
func Parse(src string) (prog *ast.Program, err error) {
	p := &Parser{lx: NewLexer(src)}
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				prog, err = nil, se
				return
			}
			panic(r)
		}
	}()
	p.next()
	prog = &ast.Program{Len: len(src)}
	for p.tok.Kind != token.EOF {
		prog.Body = append(prog.Body, p.parseStmt())
	}
	return prog, nil
}

// parseSubExpr parses a single expression embedded in src between from and
// the end of src. Offsets in the resulting tree are absolute.
func parseSubExpr(src string, from int) (expr ast.Expr, err error) {
	p := &Parser{lx: Lexer{src: src, pos: from, prev: token.Illegal}}
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				expr, err = nil, se
				return
			}
			panic(r)
		}
	}()
	p.next()
	expr = p.parseAssignExpr(false)
	if p.tok.Kind != token.EOF {
		p.bail("unexpected token %s in template expression", p.tok)
	}
	return expr, nil
}

func (p *Parser) next() {
	p.tok = p.lx.Next()
	if e := p.lx.Err(); e != nil {
		panic(e)
	}
}

func (p *Parser) bail(format string, args ...any) {
	panic(&SyntaxError{Msg: fmt.Sprintf(format, args...), Offset: p.tok.Start})
}

func (p *Parser) expect(kind token.Kind, what string) token.Token {
	if p.tok.Kind != kind {
		p.bail("expected %s, found %s", what, p.tok)
	}
	tok := p.tok
	p.next()
	return tok
}

// snapshot and restore give the parser bounded lookahead.
func (p *Parser) snapshot() (Lexer, token.Token) {
	return p.lx, p.tok
}

func (p *Parser) restore(lx Lexer, tok token.Token) {
	p.lx, p.tok = lx, tok
}

// expectSemi consumes a statement terminator: an explicit semicolon, a
// closing brace, end of input, or an inserted one at a line break.
func (p *Parser) expectSemi() {
	switch {
	case p.tok.Kind == token.Semicolon:
		p.next()
	case p.tok.Kind == token.RBrace || p.tok.Kind == token.EOF:
	case p.tok.NewlineBefore:
	default:
		p.bail("expected ';', found %s", p.tok)
	}
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

func (p *Parser) parseStmt() ast.Stmt {
	switch p.tok.Kind {
	case token.KwVar, token.KwLet, token.KwConst:
		decl := p.parseVarDecl()
		p.expectSemi()
		return decl
	case token.KwFunction:
		return p.parseFuncDecl(false)
	case token.KwAsync:
		lx, tok := p.snapshot()
		start := p.tok.Start
		p.next()
		if p.tok.Kind == token.KwFunction && !p.tok.NewlineBefore {
			decl := p.parseFuncDecl(true)
			decl.Lit.Start = start
			return decl
		}
		p.restore(lx, tok)
	case token.LBrace:
		return p.parseBlock()
	case token.Semicolon:
		semi := p.tok.Start
		p.next()
		return &ast.EmptyStmt{Semi: semi}
	case token.KwIf:
		return p.parseIf()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwDo:
		return p.parseDoWhile()
	case token.KwReturn:
		return p.parseReturn()
	case token.KwBreak:
		start, end := p.tok.Start, p.tok.End
		p.next()
		p.expectSemi()
		return &ast.BreakStmt{Start: start, EndPos: end}
	case token.KwContinue:
		start, end := p.tok.Start, p.tok.End
		p.next()
		p.expectSemi()
		return &ast.ContinueStmt{Start: start, EndPos: end}
	case token.KwThrow:
		start := p.tok.Start
		p.next()
		if p.tok.NewlineBefore {
			p.bail("throw requires an argument on the same line")
		}
		arg := p.parseExpression(false)
		p.expectSemi()
		return &ast.ThrowStmt{Start: start, Arg: arg}
	case token.KwTry:
		return p.parseTry()
	case token.KwClass:
		return p.parseClassDecl()
	case token.KwSwitch:
		return p.parseSwitch()
	case token.KwWith:
		return p.parseWith()
	case token.KwDebugger:
		start, end := p.tok.Start, p.tok.End
		p.next()
		p.expectSemi()
		return &ast.DebuggerStmt{Start: start, EndPos: end}
	case token.Ident:
		// Possible label.
		lx, tok := p.snapshot()
		name := &ast.Ident{Start: p.tok.Start, Name: p.tok.Text}
		p.next()
		if p.tok.Kind == token.Colon {
			p.next()
			return &ast.LabeledStmt{Label: name, Body: p.parseStmt()}
		}
		p.restore(lx, tok)
	}
	expr := p.parseExpression(false)
	p.expectSemi()
	return &ast.ExprStmt{X: expr}
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	start := p.tok.Start
	keyword := p.tok.Text
	p.next()
	decl := &ast.VarDecl{Start: start, Keyword: keyword}
	for {
		name := p.parseBindingIdent()
		d := &ast.Declarator{Name: name}
		if p.tok.Kind == token.Assign {
			p.next()
			d.Init = p.parseAssignExpr(false)
		}
		decl.Decls = append(decl.Decls, d)
		decl.EndPos = d.End()
		if p.tok.Kind != token.Comma {
			break
		}
		p.next()
	}
	return decl
}

// parseBindingIdent parses a declared name; contextual keywords usable as
// names are downgraded to identifiers.
func (p *Parser) parseBindingIdent() *ast.Ident {
	switch p.tok.Kind {
	case token.Ident, token.KwOf, token.KwAsync:
		name := &ast.Ident{Start: p.tok.Start, Name: p.tok.Text}
		p.next()
		return name
	}
	p.bail("expected a name, found %s", p.tok)
	return nil
}

func (p *Parser) parseFuncDecl(async bool) *ast.FuncDecl {
	lit := p.parseFuncLit(async, p.tok.Start)
	if lit.Name == nil {
		p.bail("function declarations require a name")
	}
	return &ast.FuncDecl{Name: lit.Name, Lit: lit}
}

func (p *Parser) parseBlock() *ast.BlockStmt {
	lbrace := p.expect(token.LBrace, "'{'")
	block := &ast.BlockStmt{Lbrace: lbrace.Start}
	for p.tok.Kind != token.RBrace {
		if p.tok.Kind == token.EOF {
			p.bail("unterminated block")
		}
		block.Body = append(block.Body, p.parseStmt())
	}
	block.Rbrace = p.tok.Start
	p.next()
	return block
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.tok.Start
	p.next()
	p.expect(token.LParen, "'(' after if")
	cond := p.parseExpression(false)
	p.expect(token.RParen, "')'")
	then := p.parseStmt()
	stmt := &ast.IfStmt{Start: start, Cond: cond, Then: then}
	if p.tok.Kind == token.KwElse {
		p.next()
		stmt.Else = p.parseStmt()
	}
	return stmt
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.tok.Start
	p.next()
	p.expect(token.LParen, "'(' after for")

	// for (;;)
	if p.tok.Kind == token.Semicolon {
		p.next()
		return p.parseForRest(start, nil)
	}

	if p.tok.Kind == token.KwVar || p.tok.Kind == token.KwLet || p.tok.Kind == token.KwConst {
		decl := p.parseVarDecl()
		if p.tok.Kind == token.KwIn || p.tok.Kind == token.KwOf {
			if len(decl.Decls) != 1 || decl.Decls[0].Init != nil {
				p.bail("invalid loop variable declaration")
			}
			return p.parseForInRest(start, decl)
		}
		p.expect(token.Semicolon, "';' in for clause")
		return p.parseForRest(start, decl)
	}

	init := p.parseExpression(true)
	if p.tok.Kind == token.KwIn || p.tok.Kind == token.KwOf {
		return p.parseForInRest(start, &ast.ExprStmt{X: init})
	}
	p.expect(token.Semicolon, "';' in for clause")
	return p.parseForRest(start, &ast.ExprStmt{X: init})
}

func (p *Parser) parseForRest(start int, init ast.Node) ast.Stmt {
	stmt := &ast.ForStmt{Start: start, Init: init}
	if p.tok.Kind != token.Semicolon {
		stmt.Cond = p.parseExpression(false)
	}
	p.expect(token.Semicolon, "';' in for clause")
	if p.tok.Kind != token.RParen {
		stmt.Post = p.parseExpression(false)
	}
	p.expect(token.RParen, "')'")
	stmt.Body = p.parseStmt()
	return stmt
}

func (p *Parser) parseForInRest(start int, left ast.Node) ast.Stmt {
	of := p.tok.Kind == token.KwOf
	p.next()
	object := p.parseAssignExpr(false)
	p.expect(token.RParen, "')'")
	body := p.parseStmt()
	return &ast.ForInStmt{Start: start, Of: of, Left: left, Object: object, Body: body}
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.tok.Start
	p.next()
	p.expect(token.LParen, "'(' after while")
	cond := p.parseExpression(false)
	p.expect(token.RParen, "')'")
	return &ast.WhileStmt{Start: start, Cond: cond, Body: p.parseStmt()}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	start := p.tok.Start
	p.next()
	body := p.parseStmt()
	p.expect(token.KwWhile, "'while' after do body")
	p.expect(token.LParen, "'('")
	cond := p.parseExpression(false)
	rparen := p.expect(token.RParen, "')'")
	end := rparen.End
	if p.tok.Kind == token.Semicolon {
		end = p.tok.End
		p.next()
	}
	return &ast.DoWhileStmt{Start: start, EndPos: end, Body: body, Cond: cond}
}

func (p *Parser) parseReturn() ast.Stmt {
	start, end := p.tok.Start, p.tok.End
	p.next()
	stmt := &ast.ReturnStmt{Start: start, EndPos: end}
	if p.tok.Kind != token.Semicolon && p.tok.Kind != token.RBrace &&
		p.tok.Kind != token.EOF && !p.tok.NewlineBefore {
		stmt.Arg = p.parseExpression(false)
		stmt.EndPos = stmt.Arg.End()
	}
	p.expectSemi()
	return stmt
}

func (p *Parser) parseTry() ast.Stmt {
	start := p.tok.Start
	p.next()
	stmt := &ast.TryStmt{Start: start, Body: p.parseBlock()}
	if p.tok.Kind == token.KwCatch {
		catch := &ast.CatchClause{Start: p.tok.Start}
		p.next()
		if p.tok.Kind == token.LParen {
			p.next()
			catch.Param = p.parseBindingIdent()
			p.expect(token.RParen, "')'")
		}
		catch.Body = p.parseBlock()
		stmt.Catch = catch
	}
	if p.tok.Kind == token.KwFinally {
		p.next()
		stmt.Finally = p.parseBlock()
	}
	if stmt.Catch == nil && stmt.Finally == nil {
		p.bail("try requires a catch or finally clause")
	}
	return stmt
}

// parseClassDecl consumes a class declaration far enough to report its span.
// The validator rejects it, so the body is skipped rather than modeled.
func (p *Parser) parseClassDecl() ast.Stmt {
	start := p.tok.Start
	p.next()
	decl := &ast.ClassDecl{Start: start}
	if p.tok.Kind == token.Ident {
		decl.Name = &ast.Ident{Start: p.tok.Start, Name: p.tok.Text}
		p.next()
	}
	for p.tok.Kind != token.LBrace {
		if p.tok.Kind == token.EOF {
			p.bail("unterminated class declaration")
		}
		p.next()
	}
	decl.EndPos = p.skipBalancedBraces()
	return decl
}

func (p *Parser) parseSwitch() ast.Stmt {
	start := p.tok.Start
	p.next()
	p.expect(token.LParen, "'(' after switch")
	tag := p.parseExpression(false)
	p.expect(token.RParen, "')'")
	if p.tok.Kind != token.LBrace {
		p.bail("expected '{' after switch clause")
	}
	end := p.skipBalancedBraces()
	return &ast.SwitchStmt{Start: start, EndPos: end, Tag: tag}
}

func (p *Parser) parseWith() ast.Stmt {
	start := p.tok.Start
	p.next()
	p.expect(token.LParen, "'(' after with")
	object := p.parseExpression(false)
	p.expect(token.RParen, "')'")
	return &ast.WithStmt{Start: start, Object: object, Body: p.parseStmt()}
}

// skipBalancedBraces consumes from the current '{' through its matching '}'
// and returns the end offset.
func (p *Parser) skipBalancedBraces() int {
	depth := 0
	for {
		switch p.tok.Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
			if depth == 0 {
				end := p.tok.End
				p.next()
				return end
			}
		case token.EOF:
			p.bail("unterminated '{'")
		}
		p.next()
	}
}

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

func (p *Parser) parseExpression(noIn bool) ast.Expr {
	expr := p.parseAssignExpr(noIn)
	if p.tok.Kind != token.Comma {
		return expr
	}
	seq := &ast.SeqExpr{Exprs: []ast.Expr{expr}}
	for p.tok.Kind == token.Comma {
		p.next()
		seq.Exprs = append(seq.Exprs, p.parseAssignExpr(noIn))
	}
	return seq
}

func (p *Parser) parseAssignExpr(noIn bool) ast.Expr {
	if p.tok.Kind == token.KwYield {
		start, end := p.tok.Start, p.tok.End
		p.next()
		y := &ast.YieldExpr{Start: start, EndPos: end}
		if !p.tok.NewlineBefore && startsExpression(p.tok.Kind) {
			y.X = p.parseAssignExpr(noIn)
		}
		return y
	}
	if arrow := p.tryParseArrow(); arrow != nil {
		return arrow
	}

	left := p.parseConditional(noIn)

	switch p.tok.Kind {
	case token.Assign, token.PlusAssign, token.MinusAssign,
		token.StarAssign, token.SlashAssign, token.PercentAssign:
		if !isAssignTarget(left) {
			p.bail("invalid assignment target")
		}
		op := p.tok.Text
		p.next()
		return &ast.AssignExpr{Op: op, Target: left, Value: p.parseAssignExpr(noIn)}
	}
	return left
}

// tryParseArrow recognizes the arrow-function heads (`x =>`, `(params) =>`
// and the async variants) with bounded lookahead, returning
// nil when the tokens are not an arrow head.
func (p *Parser) tryParseArrow() ast.Expr {
	async := false
	start := p.tok.Start
	lx, tok := p.snapshot()

	if p.tok.Kind == token.KwAsync {
		p.next()
		if p.tok.NewlineBefore {
			p.restore(lx, tok)
			return nil
		}
		async = true
	}

	switch p.tok.Kind {
	case token.Ident, token.KwOf:
		param := &ast.Ident{Start: p.tok.Start, Name: p.tok.Text}
		innerLx, innerTok := p.snapshot()
		p.next()
		if p.tok.Kind == token.Arrow && !p.tok.NewlineBefore {
			p.next()
			return p.parseArrowRest(start, async, []*ast.Ident{param})
		}
		p.restore(innerLx, innerTok)
		if async {
			p.restore(lx, tok)
		}
		return nil
	case token.LParen:
		if !p.parenHeadsArrow() {
			p.restore(lx, tok)
			return nil
		}
		p.next()
		params := p.parseParamList()
		p.expect(token.Arrow, "'=>'")
		return p.parseArrowRest(start, async, params)
	}
	if async {
		p.restore(lx, tok)
	}
	return nil
}

// parenHeadsArrow reports whether the current '(' closes into a '=>'.
func (p *Parser) parenHeadsArrow() bool {
	look := p.lx
	depth := 1
	for {
		t := look.Next()
		if look.Err() != nil || t.Kind == token.EOF {
			return false
		}
		switch t.Kind {
		case token.LParen, token.LBrace, token.LBracket:
			depth++
		case token.RParen, token.RBrace, token.RBracket:
			depth--
			if depth == 0 {
				after := look.Next()
				return look.Err() == nil && after.Kind == token.Arrow
			}
		}
	}
}

func (p *Parser) parseParamList() []*ast.Ident {
	var params []*ast.Ident
	for p.tok.Kind != token.RParen {
		params = append(params, p.parseBindingIdent())
		if p.tok.Kind == token.Comma {
			p.next()
			continue
		}
		break
	}
	p.expect(token.RParen, "')'")
	return params
}

func (p *Parser) parseArrowRest(start int, async bool, params []*ast.Ident) ast.Expr {
	fn := &ast.FuncLit{Start: start, Params: params, Arrow: true, Async: async}
	if p.tok.Kind == token.LBrace {
		fn.Body = p.parseBlock()
		fn.EndPos = fn.Body.End()
	} else {
		fn.ExprBody = p.parseAssignExpr(false)
		fn.EndPos = fn.ExprBody.End()
	}
	return fn
}

func (p *Parser) parseConditional(noIn bool) ast.Expr {
	cond := p.parseBinary(1, noIn)
	if p.tok.Kind != token.Question {
		return cond
	}
	p.next()
	then := p.parseAssignExpr(false)
	p.expect(token.Colon, "':' in conditional expression")
	alt := p.parseAssignExpr(noIn)
	return &ast.CondExpr{Cond: cond, Then: then, Else: alt}
}

func binaryPrec(kind token.Kind, noIn bool) int {
	switch kind {
	case token.Nullish:
		return 1
	case token.LogicalOr:
		return 2
	case token.LogicalAnd:
		return 3
	case token.BitOr:
		return 4
	case token.BitXor:
		return 5
	case token.BitAnd:
		return 6
	case token.Eq, token.NotEq, token.StrictEq, token.StrictNotEq:
		return 7
	case token.Lt, token.Gt, token.Le, token.Ge, token.KwInstanceof:
		return 8
	case token.KwIn:
		if noIn {
			return 0
		}
		return 8
	case token.Shl, token.Shr, token.UShr:
		return 9
	case token.Plus, token.Minus:
		return 10
	case token.Star, token.Slash, token.Percent:
		return 11
	case token.StarStar:
		return 12
	}
	return 0
}

func (p *Parser) parseBinary(minPrec int, noIn bool) ast.Expr {
	left := p.parseUnary()
	for {
		prec := binaryPrec(p.tok.Kind, noIn)
		if prec == 0 || prec < minPrec {
			return left
		}
		op := p.tok.Text
		right := func() ast.Expr {
			p.next()
			if op == "**" {
				// Exponentiation is right-associative.
				return p.parseBinary(prec, noIn)
			}
			return p.parseBinary(prec+1, noIn)
		}()
		left = &ast.BinaryExpr{Op: op, X: left, Y: right}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.tok.Kind {
	case token.Not, token.BitNot, token.Plus, token.Minus,
		token.KwTypeof, token.KwVoid, token.KwDelete:
		start := p.tok.Start
		op := p.tok.Text
		p.next()
		return &ast.UnaryExpr{Start: start, Op: op, X: p.parseUnary()}
	case token.KwAwait:
		start := p.tok.Start
		p.next()
		return &ast.AwaitExpr{Start: start, X: p.parseUnary()}
	case token.Inc, token.Dec:
		start := p.tok.Start
		op := p.tok.Text
		p.next()
		x := p.parseUnary()
		return &ast.UpdateExpr{Start: start, EndPos: x.End(), Op: op, X: x, Prefix: true}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parseCallMember(p.parsePrimary())
	if (p.tok.Kind == token.Inc || p.tok.Kind == token.Dec) && !p.tok.NewlineBefore {
		expr = &ast.UpdateExpr{
			Start:  expr.Pos(),
			EndPos: p.tok.End,
			Op:     p.tok.Text,
			X:      expr,
		}
		p.next()
	}
	return expr
}

func (p *Parser) parseCallMember(base ast.Expr) ast.Expr {
	for {
		switch p.tok.Kind {
		case token.Dot:
			p.next()
			base = &ast.MemberExpr{Obj: base, Prop: p.parsePropertyName()}
		case token.OptChain:
			p.next()
			switch p.tok.Kind {
			case token.LParen:
				base = p.parseCallArgs(base, true)
			case token.LBracket:
				base = p.parseIndex(base, true)
			default:
				base = &ast.MemberExpr{Obj: base, Prop: p.parsePropertyName(), Optional: true}
			}
		case token.LBracket:
			base = p.parseIndex(base, false)
		case token.LParen:
			base = p.parseCallArgs(base, false)
		case token.Template:
			tpl := p.parseTemplate()
			base = &ast.TaggedTemplate{Tag: base, Quasi: tpl}
		default:
			return base
		}
	}
}

// parsePropertyName accepts any identifier-shaped token, keywords included,
// since member names are not reserved.
func (p *Parser) parsePropertyName() *ast.Ident {
	if p.tok.Kind == token.Ident || p.tok.Kind.IsKeyword() {
		name := &ast.Ident{Start: p.tok.Start, Name: p.tok.Text}
		p.next()
		return name
	}
	p.bail("expected a property name, found %s", p.tok)
	return nil
}

func (p *Parser) parseIndex(base ast.Expr, optional bool) ast.Expr {
	p.expect(token.LBracket, "'['")
	index := p.parseExpression(false)
	rb := p.expect(token.RBracket, "']'")
	return &ast.IndexExpr{Obj: base, Index: index, Rbracket: rb.Start, Optional: optional}
}

func (p *Parser) parseCallArgs(callee ast.Expr, optional bool) ast.Expr {
	p.expect(token.LParen, "'('")
	call := &ast.CallExpr{Callee: callee, Optional: optional}
	for p.tok.Kind != token.RParen {
		if p.tok.Kind == token.Ellipsis {
			start := p.tok.Start
			p.next()
			call.Args = append(call.Args, &ast.SpreadElem{Start: start, X: p.parseAssignExpr(false)})
		} else {
			call.Args = append(call.Args, p.parseAssignExpr(false))
		}
		if p.tok.Kind == token.Comma {
			p.next()
			continue
		}
		break
	}
	rp := p.expect(token.RParen, "')'")
	call.Rparen = rp.Start
	return call
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.tok.Kind {
	case token.Ident, token.KwOf, token.KwAsync:
		name := &ast.Ident{Start: p.tok.Start, Name: p.tok.Text}
		p.next()
		return name
	case token.Number:
		lit := &ast.Literal{Start: p.tok.Start, EndPos: p.tok.End, Kind: ast.LitNumber, Raw: p.tok.Text}
		p.next()
		return lit
	case token.String:
		lit := &ast.Literal{Start: p.tok.Start, EndPos: p.tok.End, Kind: ast.LitString, Raw: p.tok.Text}
		p.next()
		return lit
	case token.Regex:
		lit := &ast.Literal{Start: p.tok.Start, EndPos: p.tok.End, Kind: ast.LitRegex, Raw: p.tok.Text}
		p.next()
		return lit
	case token.KwTrue, token.KwFalse:
		lit := &ast.Literal{Start: p.tok.Start, EndPos: p.tok.End, Kind: ast.LitBool, Raw: p.tok.Text}
		p.next()
		return lit
	case token.KwNull:
		lit := &ast.Literal{Start: p.tok.Start, EndPos: p.tok.End, Kind: ast.LitNull, Raw: p.tok.Text}
		p.next()
		return lit
	case token.Template:
		return p.parseTemplate()
	case token.KwThis:
		expr := &ast.ThisExpr{Start: p.tok.Start}
		p.next()
		return expr
	case token.LParen:
		lparen := p.tok.Start
		p.next()
		inner := p.parseExpression(false)
		rp := p.expect(token.RParen, "')'")
		return &ast.ParenExpr{Lparen: lparen, Rparen: rp.Start, X: inner}
	case token.LBracket:
		return p.parseArrayLit()
	case token.LBrace:
		return p.parseObjectLit()
	case token.KwFunction:
		return p.parseFuncLit(false, p.tok.Start)
	case token.KwNew:
		return p.parseNew()
	}
	p.bail("unexpected token %s", p.tok)
	return nil
}

func (p *Parser) parseArrayLit() ast.Expr {
	start := p.tok.Start
	p.next()
	arr := &ast.ArrayLit{Start: start}
	for p.tok.Kind != token.RBracket {
		if p.tok.Kind == token.Ellipsis {
			spreadStart := p.tok.Start
			p.next()
			arr.Elems = append(arr.Elems, &ast.SpreadElem{Start: spreadStart, X: p.parseAssignExpr(false)})
		} else {
			arr.Elems = append(arr.Elems, p.parseAssignExpr(false))
		}
		if p.tok.Kind == token.Comma {
			p.next()
			continue
		}
		break
	}
	rb := p.expect(token.RBracket, "']'")
	arr.EndPos = rb.End
	return arr
}

func (p *Parser) parseObjectLit() ast.Expr {
	start := p.tok.Start
	p.next()
	obj := &ast.ObjectLit{Start: start}
	for p.tok.Kind != token.RBrace {
		obj.Props = append(obj.Props, p.parseProperty())
		if p.tok.Kind == token.Comma {
			p.next()
			continue
		}
		break
	}
	rb := p.expect(token.RBrace, "'}'")
	obj.EndPos = rb.End
	return obj
}

func (p *Parser) parseProperty() *ast.Property {
	if p.tok.Kind == token.Ellipsis {
		start := p.tok.Start
		p.next()
		return &ast.Property{Spread: &ast.SpreadElem{Start: start, X: p.parseAssignExpr(false)}}
	}

	prop := &ast.Property{}
	switch {
	case p.tok.Kind == token.LBracket:
		p.next()
		prop.Key = p.parseAssignExpr(false)
		prop.Computed = true
		p.expect(token.RBracket, "']'")
	case p.tok.Kind == token.String || p.tok.Kind == token.Number:
		kind := ast.LitString
		if p.tok.Kind == token.Number {
			kind = ast.LitNumber
		}
		prop.Key = &ast.Literal{Start: p.tok.Start, EndPos: p.tok.End, Kind: kind, Raw: p.tok.Text}
		p.next()
	case p.tok.Kind == token.Ident || p.tok.Kind.IsKeyword():
		prop.Key = &ast.Ident{Start: p.tok.Start, Name: p.tok.Text}
		p.next()
	default:
		p.bail("expected a property key, found %s", p.tok)
	}

	switch p.tok.Kind {
	case token.Colon:
		p.next()
		prop.Value = p.parseAssignExpr(false)
	case token.LParen:
		// Method shorthand: { fn(a) { ... } }
		keyStart := prop.Key.Pos()
		fn := &ast.FuncLit{Start: keyStart}
		p.next()
		fn.Params = p.parseParamList()
		fn.Body = p.parseBlock()
		fn.EndPos = fn.Body.End()
		prop.Value = fn
	default:
		// Shorthand { name }.
		key, ok := prop.Key.(*ast.Ident)
		if !ok {
			p.bail("expected ':' after property key")
		}
		prop.Shorthand = true
		prop.Value = &ast.Ident{Start: key.Start, Name: key.Name}
	}
	return prop
}

func (p *Parser) parseFuncLit(async bool, start int) *ast.FuncLit {
	p.expect(token.KwFunction, "'function'")
	fn := &ast.FuncLit{Start: start, Async: async}
	if p.tok.Kind == token.Star {
		fn.Generator = true
		p.next()
	}
	if p.tok.Kind == token.Ident {
		fn.Name = &ast.Ident{Start: p.tok.Start, Name: p.tok.Text}
		p.next()
	}
	p.expect(token.LParen, "'(' after function")
	fn.Params = p.parseParamList()
	fn.Body = p.parseBlock()
	fn.EndPos = fn.Body.End()
	return fn
}

func (p *Parser) parseNew() ast.Expr {
	start := p.tok.Start
	p.next()
	callee := p.parsePrimary()
	// Member access binds tighter than new's argument list.
	for p.tok.Kind == token.Dot {
		p.next()
		callee = &ast.MemberExpr{Obj: callee, Prop: p.parsePropertyName()}
	}
	expr := &ast.NewExpr{Start: start, Callee: callee, EndPos: callee.End()}
	if p.tok.Kind == token.LParen {
		call := p.parseCallArgs(callee, false).(*ast.CallExpr)
		expr.Args = call.Args
		expr.EndPos = call.End()
	}
	return expr
}

// parseTemplate decomposes a template token into raw segments and embedded
// expressions. Each expression is re-parsed from the original source so its
// offsets stay absolute.
func (p *Parser) parseTemplate() *ast.TemplateLit {
	tok := p.tok
	p.next()
	tpl := &ast.TemplateLit{Start: tok.Start, EndPos: tok.End}

	src := p.lx.src
	segStart := tok.Start + 1
	i := segStart
	limit := tok.End - 1
	for i < limit {
		switch src[i] {
		case '\\':
			i += 2
		case '$':
			if i+1 < limit && src[i+1] == '{' {
				exprStart := i + 2
				exprEnd, ok := scanInterpolation(src, exprStart)
				if !ok {
					panic(&SyntaxError{Msg: "unterminated template interpolation", Offset: i})
				}
				tpl.Quasis = append(tpl.Quasis, src[segStart:i])
				expr, err := parseSubExpr(src[:exprEnd-1], exprStart)
				if err != nil {
					panic(err)
				}
				tpl.Exprs = append(tpl.Exprs, expr)
				i = exprEnd
				segStart = i
			} else {
				i++
			}
		default:
			i++
		}
	}
	tpl.Quasis = append(tpl.Quasis, src[segStart:limit])
	return tpl
}

func isAssignTarget(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.Ident, *ast.MemberExpr, *ast.IndexExpr:
		return true
	case *ast.ParenExpr:
		return isAssignTarget(e.X)
	}
	return false
}

func startsExpression(kind token.Kind) bool {
	switch kind {
	case token.Ident, token.Number, token.String, token.Template, token.Regex,
		token.LParen, token.LBracket, token.LBrace, token.Not, token.BitNot,
		token.Plus, token.Minus, token.Inc, token.Dec,
		token.KwFunction, token.KwNew, token.KwTypeof, token.KwVoid, token.KwDelete,
		token.KwTrue, token.KwFalse, token.KwNull, token.KwThis,
		token.KwAsync, token.KwAwait, token.KwYield:
		return true
	}
	return false
}
