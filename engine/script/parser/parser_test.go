package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolweave/toolweave/engine/script/ast"
)

func parseOne(t *testing.T, src string) ast.Stmt {
	t.Helper()
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)
	return prog.Body[0]
}

func TestParse_Statements(t *testing.T) {
	t.Run("Should parse variable declarations with multiple declarators", func(t *testing.T) {
		stmt := parseOne(t, "let a = 1, b, c = a;")
		decl, ok := stmt.(*ast.VarDecl)
		require.True(t, ok)
		assert.Equal(t, "let", decl.Keyword)
		require.Len(t, decl.Decls, 3)
		assert.Equal(t, "a", decl.Decls[0].Name.Name)
		assert.Nil(t, decl.Decls[1].Init)
		assert.NotNil(t, decl.Decls[2].Init)
	})
	t.Run("Should parse function declarations", func(t *testing.T) {
		stmt := parseOne(t, "function fetchAll(a, b) { return a; }")
		fn, ok := stmt.(*ast.FuncDecl)
		require.True(t, ok)
		assert.Equal(t, "fetchAll", fn.Name.Name)
		require.Len(t, fn.Lit.Params, 2)
		assert.False(t, fn.Lit.Async)
	})
	t.Run("Should parse async function declarations", func(t *testing.T) {
		stmt := parseOne(t, "async function f() {}")
		fn, ok := stmt.(*ast.FuncDecl)
		require.True(t, ok)
		assert.True(t, fn.Lit.Async)
		assert.Equal(t, 0, fn.Lit.Pos())
	})
	t.Run("Should parse if else chains", func(t *testing.T) {
		stmt := parseOne(t, "if (a) { b(); } else if (c) { d(); } else { e(); }")
		ifs, ok := stmt.(*ast.IfStmt)
		require.True(t, ok)
		inner, ok := ifs.Else.(*ast.IfStmt)
		require.True(t, ok)
		assert.NotNil(t, inner.Else)
	})
	t.Run("Should parse the three for forms", func(t *testing.T) {
		stmt := parseOne(t, "for (let i = 0; i < n; i++) { work(i); }")
		classic, ok := stmt.(*ast.ForStmt)
		require.True(t, ok)
		_, ok = classic.Init.(*ast.VarDecl)
		assert.True(t, ok)

		stmt = parseOne(t, "for (const x of xs) { use(x); }")
		forOf, ok := stmt.(*ast.ForInStmt)
		require.True(t, ok)
		assert.True(t, forOf.Of)

		stmt = parseOne(t, "for (const k in obj) { use(k); }")
		forIn, ok := stmt.(*ast.ForInStmt)
		require.True(t, ok)
		assert.False(t, forIn.Of)
	})
	t.Run("Should parse while and do while", func(t *testing.T) {
		_, ok := parseOne(t, "while (x) { x = step(x); }").(*ast.WhileStmt)
		assert.True(t, ok)
		_, ok = parseOne(t, "do { x = step(x); } while (x);").(*ast.DoWhileStmt)
		assert.True(t, ok)
	})
	t.Run("Should parse try catch finally", func(t *testing.T) {
		stmt := parseOne(t, "try { risky(); } catch (err) { log(err); } finally { done(); }")
		try, ok := stmt.(*ast.TryStmt)
		require.True(t, ok)
		require.NotNil(t, try.Catch)
		assert.Equal(t, "err", try.Catch.Param.Name)
		assert.NotNil(t, try.Finally)
	})
	t.Run("Should parse a top level return", func(t *testing.T) {
		stmt := parseOne(t, "return results;")
		ret, ok := stmt.(*ast.ReturnStmt)
		require.True(t, ok)
		assert.NotNil(t, ret.Arg)
	})
	t.Run("Should parse throw", func(t *testing.T) {
		stmt := parseOne(t, `throw new Error("bad");`)
		thr, ok := stmt.(*ast.ThrowStmt)
		require.True(t, ok)
		_, ok = thr.Arg.(*ast.NewExpr)
		assert.True(t, ok)
	})
	t.Run("Should insert semicolons at line breaks", func(t *testing.T) {
		prog, err := Parse("let a = 1\nlet b = 2\na + b")
		require.NoError(t, err)
		assert.Len(t, prog.Body, 3)
	})
	t.Run("Should end a return at a line break", func(t *testing.T) {
		prog, err := Parse("function f() {\n  return\n  1\n}")
		require.NoError(t, err)
		fn := prog.Body[0].(*ast.FuncDecl)
		ret := fn.Lit.Body.Body[0].(*ast.ReturnStmt)
		assert.Nil(t, ret.Arg)
	})
	t.Run("Should parse rejectable constructs far enough to name them", func(t *testing.T) {
		stmt := parseOne(t, "class Builder { run() { return 1; } }")
		cls, ok := stmt.(*ast.ClassDecl)
		require.True(t, ok)
		assert.Equal(t, "Builder", cls.Name.Name)

		_, ok = parseOne(t, "switch (x) { case 1: break; }").(*ast.SwitchStmt)
		assert.True(t, ok)

		_, ok = parseOne(t, "outer: while (x) { break; }").(*ast.LabeledStmt)
		assert.True(t, ok)

		_, ok = parseOne(t, "debugger;").(*ast.DebuggerStmt)
		assert.True(t, ok)
	})
	t.Run("Should reject malformed input with one error", func(t *testing.T) {
		prog, err := Parse("let = 4;")
		assert.Nil(t, prog)
		require.Error(t, err)
		var se *SyntaxError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 4, se.Offset)
	})
}

func TestParse_Expressions(t *testing.T) {
	exprOf := func(t *testing.T, src string) ast.Expr {
		t.Helper()
		stmt, ok := parseOne(t, src).(*ast.ExprStmt)
		require.True(t, ok)
		return stmt.X
	}

	t.Run("Should honor operator precedence", func(t *testing.T) {
		expr := exprOf(t, "a + b * c;")
		add, ok := expr.(*ast.BinaryExpr)
		require.True(t, ok)
		assert.Equal(t, "+", add.Op)
		mul, ok := add.Y.(*ast.BinaryExpr)
		require.True(t, ok)
		assert.Equal(t, "*", mul.Op)
	})
	t.Run("Should parse exponentiation right associative", func(t *testing.T) {
		expr := exprOf(t, "a ** b ** c;")
		outer := expr.(*ast.BinaryExpr)
		_, ok := outer.Y.(*ast.BinaryExpr)
		assert.True(t, ok)
	})
	t.Run("Should parse call chains with optional links", func(t *testing.T) {
		expr := exprOf(t, "a.b?.c[0]?.(x);")
		call, ok := expr.(*ast.CallExpr)
		require.True(t, ok)
		assert.True(t, call.Optional)
		idx, ok := call.Callee.(*ast.IndexExpr)
		require.True(t, ok)
		member, ok := idx.Obj.(*ast.MemberExpr)
		require.True(t, ok)
		assert.True(t, member.Optional)
	})
	t.Run("Should parse arrow functions", func(t *testing.T) {
		expr := exprOf(t, "x => x * 2;")
		fn, ok := expr.(*ast.FuncLit)
		require.True(t, ok)
		assert.True(t, fn.Arrow)
		require.Len(t, fn.Params, 1)
		assert.NotNil(t, fn.ExprBody)

		expr = exprOf(t, "async (a, b) => { return a + b; };")
		fn, ok = expr.(*ast.FuncLit)
		require.True(t, ok)
		assert.True(t, fn.Async)
		assert.NotNil(t, fn.Body)
	})
	t.Run("Should not mistake a parenthesized expression for an arrow head", func(t *testing.T) {
		expr := exprOf(t, "(a + b) * c;")
		mul, ok := expr.(*ast.BinaryExpr)
		require.True(t, ok)
		_, ok = mul.X.(*ast.ParenExpr)
		assert.True(t, ok)
	})
	t.Run("Should parse object literals with every entry form", func(t *testing.T) {
		expr := exprOf(t, `({ a: 1, b, "c": 2, [k]: 3, ...rest });`)
		paren := expr.(*ast.ParenExpr)
		obj, ok := paren.X.(*ast.ObjectLit)
		require.True(t, ok)
		require.Len(t, obj.Props, 5)
		assert.True(t, obj.Props[1].Shorthand)
		assert.True(t, obj.Props[3].Computed)
		assert.NotNil(t, obj.Props[4].Spread)
	})
	t.Run("Should parse array literals with spread", func(t *testing.T) {
		expr := exprOf(t, "[1, ...rest, 2];")
		arr, ok := expr.(*ast.ArrayLit)
		require.True(t, ok)
		require.Len(t, arr.Elems, 3)
		_, ok = arr.Elems[1].(*ast.SpreadElem)
		assert.True(t, ok)
	})
	t.Run("Should parse template literals with absolute offsets", func(t *testing.T) {
		src := "`total: ${count + 1} items`;"
		expr := exprOf(t, src)
		tpl, ok := expr.(*ast.TemplateLit)
		require.True(t, ok)
		require.Len(t, tpl.Exprs, 1)
		require.Len(t, tpl.Quasis, 2)
		sum := tpl.Exprs[0].(*ast.BinaryExpr)
		assert.Equal(t, "count + 1", src[sum.Pos():sum.End()])
	})
	t.Run("Should parse conditional and nullish chains", func(t *testing.T) {
		expr := exprOf(t, "a ?? b ? c : d;")
		cond, ok := expr.(*ast.CondExpr)
		require.True(t, ok)
		_, ok = cond.Cond.(*ast.BinaryExpr)
		assert.True(t, ok)
	})
	t.Run("Should parse await and yield as expression nodes", func(t *testing.T) {
		expr := exprOf(t, "await fetchData(q);")
		aw, ok := expr.(*ast.AwaitExpr)
		require.True(t, ok)
		_, ok = aw.X.(*ast.CallExpr)
		assert.True(t, ok)
	})
	t.Run("Should report spans covering the full node", func(t *testing.T) {
		src := "process(data, { retries: 2 });"
		expr := exprOf(t, src)
		assert.Equal(t, "process(data, { retries: 2 })", src[expr.Pos():expr.End()])
	})
}
