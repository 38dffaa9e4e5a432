package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/toolweave/toolweave/engine/script/ast"
	"github.com/toolweave/toolweave/engine/script/parser"
)

// Names bound into the execution scope by the orchestrator. The transformer
// injects calls to them; scripts never write them directly.
const (
	// GuardFuncName is the per-iteration budget check injected into loops.
	GuardFuncName = "__checkIteration"
	// ResolveFuncName receives the program's value when it settles.
	ResolveFuncName = "__ok"
	// RejectFuncName receives the program's failure when it settles.
	RejectFuncName = "__err"
	// MapFuncName is the bounded parallel-map helper; calls to it are always
	// awaited since it returns a promise.
	MapFuncName = "map"
)

// edit is a zero-width insertion into the original text. Edits are applied
// back-to-front so earlier insertions never shift later offsets.
type edit struct {
	offset int
	prio   int
	text   string
}

// Insertion priorities at equal offsets: a loop-body brace must end up before
// anything else inserted at the same position.
const (
	prioInline = iota
	prioWrapOpen
)

// Transform rewrites validated source for execution: awaits before calls to
// asynchronous capabilities, async markers on the function literals that
// contain them, an iteration-guard call at the top of every loop body, and a
// single suspend-and-return wrapper around the whole program. It fails only
// if the already-validated source no longer parses.
func Transform(source string, asyncNames map[string]struct{}) (string, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return "", fmt.Errorf("transform: reparse of validated source failed: %w", err)
	}

	t := &transformer{
		asyncNames: asyncNames,
		marked:     make(map[*ast.FuncLit]struct{}),
	}
	for _, stmt := range prog.Body {
		t.stmt(stmt)
	}
	for fn := range t.marked {
		t.insert(fn.Pos(), prioInline, "async ")
	}

	return wrapProgram(applyEdits(source, t.edits)), nil
}

// wrapProgram encloses rewritten text in one awaited unit so the whole
// program settles through a single resolve/reject pair.
func wrapProgram(body string) string {
	return "(async () => {\n" + body + "\n})().then(" + ResolveFuncName + ", " + RejectFuncName + ");"
}

func applyEdits(src string, edits []edit) string {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].offset != edits[j].offset {
			return edits[i].offset > edits[j].offset
		}
		return edits[i].prio < edits[j].prio
	})
	var b strings.Builder
	for _, e := range edits {
		b.Reset()
		b.Grow(len(src) + len(e.text))
		b.WriteString(src[:e.offset])
		b.WriteString(e.text)
		b.WriteString(src[e.offset:])
		src = b.String()
	}
	return src
}

type transformer struct {
	asyncNames map[string]struct{}
	edits      []edit
	marked     map[*ast.FuncLit]struct{}
	// stack holds the function literals enclosing the current node,
	// innermost last.
	stack []*ast.FuncLit
}

func (t *transformer) insert(offset, prio int, text string) {
	t.edits = append(t.edits, edit{offset: offset, prio: prio, text: text})
}

// markEnclosing flags the innermost enclosing function literal for the
// async-marker pass. An await at the top level needs no marker: the wrapper
// emitted by wrapProgram is already async.
func (t *transformer) markEnclosing() {
	if len(t.stack) == 0 {
		return
	}
	t.marked[t.stack[len(t.stack)-1]] = struct{}{}
}

// guardLoopBody injects the iteration check as the first statement of a loop
// body, wrapping non-block bodies in a block. Empty blocks are guarded too.
func (t *transformer) guardLoopBody(body ast.Stmt) {
	if block, ok := body.(*ast.BlockStmt); ok {
		t.insert(block.Lbrace+1, prioInline, " "+GuardFuncName+"();")
		return
	}
	t.insert(body.Pos(), prioWrapOpen, "{ "+GuardFuncName+"(); ")
	t.insert(body.End(), prioInline, " }")
}

func (t *transformer) stmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		for _, d := range s.Decls {
			if d.Init != nil {
				t.expr(d.Init)
			}
		}
	case *ast.ExprStmt:
		t.expr(s.X)
	case *ast.BlockStmt:
		for _, inner := range s.Body {
			t.stmt(inner)
		}
	case *ast.IfStmt:
		t.expr(s.Cond)
		t.stmt(s.Then)
		if s.Else != nil {
			t.stmt(s.Else)
		}
	case *ast.ForStmt:
		switch init := s.Init.(type) {
		case *ast.VarDecl:
			t.stmt(init)
		case *ast.ExprStmt:
			t.stmt(init)
		}
		if s.Cond != nil {
			t.expr(s.Cond)
		}
		if s.Post != nil {
			t.expr(s.Post)
		}
		t.guardLoopBody(s.Body)
		t.stmt(s.Body)
	case *ast.ForInStmt:
		t.expr(s.Object)
		t.guardLoopBody(s.Body)
		t.stmt(s.Body)
	case *ast.WhileStmt:
		t.expr(s.Cond)
		t.guardLoopBody(s.Body)
		t.stmt(s.Body)
	case *ast.DoWhileStmt:
		t.guardLoopBody(s.Body)
		t.stmt(s.Body)
		t.expr(s.Cond)
	case *ast.ReturnStmt:
		if s.Arg != nil {
			t.expr(s.Arg)
		}
	case *ast.ThrowStmt:
		t.expr(s.Arg)
	case *ast.TryStmt:
		t.stmt(s.Body)
		if s.Catch != nil {
			t.stmt(s.Catch.Body)
		}
		if s.Finally != nil {
			t.stmt(s.Finally)
		}
	case *ast.FuncDecl:
		t.funcLit(s.Lit)
	}
}

func (t *transformer) funcLit(fn *ast.FuncLit) {
	t.stack = append(t.stack, fn)
	if fn.Body != nil {
		t.stmt(fn.Body)
	}
	if fn.ExprBody != nil {
		t.expr(fn.ExprBody)
	}
	t.stack = t.stack[:len(t.stack)-1]
}

func (t *transformer) expr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.TemplateLit:
		for _, inner := range e.Exprs {
			t.expr(inner)
		}
	case *ast.ArrayLit:
		for _, elem := range e.Elems {
			t.expr(elem)
		}
	case *ast.ObjectLit:
		for _, prop := range e.Props {
			if prop.Spread != nil {
				t.expr(prop.Spread.X)
				continue
			}
			if prop.Computed {
				t.expr(prop.Key)
			}
			t.expr(prop.Value)
		}
	case *ast.FuncLit:
		t.funcLit(e)
	case *ast.CallExpr:
		t.call(e)
	case *ast.MemberExpr:
		t.expr(e.Obj)
	case *ast.IndexExpr:
		t.expr(e.Obj)
		t.expr(e.Index)
	case *ast.UnaryExpr:
		t.expr(e.X)
	case *ast.UpdateExpr:
		t.expr(e.X)
	case *ast.BinaryExpr:
		t.expr(e.X)
		t.expr(e.Y)
	case *ast.AssignExpr:
		t.expr(e.Target)
		t.expr(e.Value)
	case *ast.CondExpr:
		t.expr(e.Cond)
		t.expr(e.Then)
		t.expr(e.Else)
	case *ast.SeqExpr:
		for _, inner := range e.Exprs {
			t.expr(inner)
		}
	case *ast.SpreadElem:
		t.expr(e.X)
	case *ast.ParenExpr:
		t.expr(e.X)
	}
}

func (t *transformer) call(call *ast.CallExpr) {
	if name, ok := bareCalleeName(call); ok {
		switch {
		case name == MapFuncName:
			t.insert(call.Pos(), prioInline, "await ")
			t.markEnclosing()
			t.markMapCallback(call)
		default:
			if _, async := t.asyncNames[name]; async {
				t.insert(call.Pos(), prioInline, "await ")
				t.markEnclosing()
			}
		}
	}
	t.expr(call.Callee)
	for _, arg := range call.Args {
		t.expr(arg)
	}
}

// markMapCallback marks a parallel-map callback for the async pass when its
// body calls an asynchronous capability directly.
func (t *transformer) markMapCallback(call *ast.CallExpr) {
	if len(call.Args) < 2 {
		return
	}
	fn, ok := call.Args[1].(*ast.FuncLit)
	if !ok {
		if paren, isParen := call.Args[1].(*ast.ParenExpr); isParen {
			fn, ok = paren.X.(*ast.FuncLit)
		}
		if !ok {
			return
		}
	}
	var body ast.Node
	if fn.Body != nil {
		body = fn.Body
	} else {
		body = fn.ExprBody
	}
	if t.containsAsyncCall(body) {
		t.marked[fn] = struct{}{}
	}
}

// containsAsyncCall reports whether node directly contains a bare call to an
// asynchronous capability, without descending into nested function literals.
func (t *transformer) containsAsyncCall(node ast.Node) bool {
	found := false
	ast.Inspect(node, func(n ast.Node) bool {
		if found {
			return false
		}
		switch inner := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.CallExpr:
			if name, ok := bareCalleeName(inner); ok {
				if name == MapFuncName {
					found = true
					return false
				}
				if _, async := t.asyncNames[name]; async {
					found = true
					return false
				}
			}
		}
		return true
	})
	return found
}

func bareCalleeName(call *ast.CallExpr) (string, bool) {
	id, ok := call.Callee.(*ast.Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}
