// Package script validates and rewrites orchestration scripts before they
// reach the execution runtime. Validation is whitelist-based: any construct,
// identifier, or property access outside the approved surface is rejected.
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toolweave/toolweave/engine/script/ast"
	"github.com/toolweave/toolweave/engine/script/parser"
)

// -----------------------------------------------------------------------------
// Policy
// -----------------------------------------------------------------------------

// blockedIdentifiers are names that must never be referenced or declared:
// dynamic code evaluation, module loading, process and global-object access,
// and reflection entry points.
var blockedIdentifiers = map[string]struct{}{
	"eval":       {},
	"Function":   {},
	"require":    {},
	"import":     {},
	"process":    {},
	"globalThis": {},
	"global":     {},
	"window":     {},
	"Reflect":    {},
	"Proxy":      {},
	"Symbol":     {},
}

// blockedProperties close off the prototype-walking escape routes, in both
// dotted and literal-computed spellings.
var blockedProperties = map[string]struct{}{
	"constructor":      {},
	"prototype":        {},
	"__proto__":        {},
	"__defineGetter__": {},
	"__defineSetter__": {},
	"__lookupGetter__": {},
	"__lookupSetter__": {},
}

// -----------------------------------------------------------------------------
// Diagnostics
// -----------------------------------------------------------------------------

// Diagnostic describes one violation found during validation.
type Diagnostic struct {
	Message string
	Kind    string
	Offset  int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (offset %d)", d.Message, d.Offset)
}

// ValidationResult aggregates every violation in a source text. Valid is true
// only when Diagnostics is empty.
type ValidationResult struct {
	Valid       bool
	Diagnostics []Diagnostic
}

// Message joins all diagnostics into one actionable line.
func (r *ValidationResult) Message() string {
	if r.Valid {
		return ""
	}
	parts := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		parts[i] = d.String()
	}
	return "script validation failed: " + strings.Join(parts, "; ")
}

// -----------------------------------------------------------------------------
// Validate
// -----------------------------------------------------------------------------

// Validate parses source and checks every node against the approved surface.
// A syntax error short-circuits with a single diagnostic; policy violations
// accumulate so the caller sees all of them at once.
func Validate(source string) *ValidationResult {
	prog, err := parser.Parse(source)
	if err != nil {
		offset := 0
		var se *parser.SyntaxError
		if errors.As(err, &se) {
			offset = se.Offset
		}
		return &ValidationResult{
			Diagnostics: []Diagnostic{{Message: err.Error(), Kind: "SyntaxError", Offset: offset}},
		}
	}
	v := &validator{}
	for _, stmt := range prog.Body {
		v.stmt(stmt)
	}
	return &ValidationResult{Valid: len(v.diags) == 0, Diagnostics: v.diags}
}

type validator struct {
	diags []Diagnostic
}

func (v *validator) report(node ast.Node, format string, args ...any) {
	v.diags = append(v.diags, Diagnostic{
		Message: fmt.Sprintf(format, args...),
		Kind:    ast.KindOf(node),
		Offset:  node.Pos(),
	})
}

func (v *validator) reject(node ast.Node) {
	v.report(node, "%s is not allowed", ast.KindOf(node))
}

// checkDeclared flags declarations that would shadow a blocked name.
func (v *validator) checkDeclared(name *ast.Ident) {
	if name == nil {
		return
	}
	if _, blocked := blockedIdentifiers[name.Name]; blocked {
		v.report(name, "declaring %q is not allowed", name.Name)
	}
}

func (v *validator) stmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		for _, d := range s.Decls {
			v.checkDeclared(d.Name)
			if d.Init != nil {
				v.expr(d.Init)
			}
		}
	case *ast.ExprStmt:
		v.expr(s.X)
	case *ast.BlockStmt:
		for _, inner := range s.Body {
			v.stmt(inner)
		}
	case *ast.EmptyStmt:
	case *ast.IfStmt:
		v.expr(s.Cond)
		v.stmt(s.Then)
		if s.Else != nil {
			v.stmt(s.Else)
		}
	case *ast.ForStmt:
		switch init := s.Init.(type) {
		case *ast.VarDecl:
			v.stmt(init)
		case *ast.ExprStmt:
			v.stmt(init)
		}
		if s.Cond != nil {
			v.expr(s.Cond)
		}
		if s.Post != nil {
			v.expr(s.Post)
		}
		v.stmt(s.Body)
	case *ast.ForInStmt:
		switch left := s.Left.(type) {
		case *ast.VarDecl:
			v.stmt(left)
		case *ast.ExprStmt:
			v.expr(left.X)
		}
		v.expr(s.Object)
		v.stmt(s.Body)
	case *ast.WhileStmt:
		v.expr(s.Cond)
		v.stmt(s.Body)
	case *ast.DoWhileStmt:
		v.stmt(s.Body)
		v.expr(s.Cond)
	case *ast.ReturnStmt:
		if s.Arg != nil {
			v.expr(s.Arg)
		}
	case *ast.BreakStmt, *ast.ContinueStmt:
	case *ast.ThrowStmt:
		v.expr(s.Arg)
	case *ast.TryStmt:
		v.stmt(s.Body)
		if s.Catch != nil {
			v.checkDeclared(s.Catch.Param)
			v.stmt(s.Catch.Body)
		}
		if s.Finally != nil {
			v.stmt(s.Finally)
		}
	case *ast.FuncDecl:
		v.checkDeclared(s.Name)
		v.funcLit(s.Lit)
	case *ast.ClassDecl, *ast.SwitchStmt, *ast.WithStmt,
		*ast.LabeledStmt, *ast.DebuggerStmt:
		v.reject(stmt)
	default:
		v.reject(stmt)
	}
}

func (v *validator) funcLit(fn *ast.FuncLit) {
	if fn.Async {
		v.report(fn, "function literals must not be declared async")
	}
	if fn.Generator {
		v.report(fn, "generator functions are not allowed")
	}
	for _, param := range fn.Params {
		v.checkDeclared(param)
	}
	if fn.Body != nil {
		v.stmt(fn.Body)
	}
	if fn.ExprBody != nil {
		v.expr(fn.ExprBody)
	}
}

func (v *validator) expr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Ident:
		if _, blocked := blockedIdentifiers[e.Name]; blocked {
			v.report(e, "access to identifier %q is not allowed", e.Name)
		}
	case *ast.Literal:
		// Regex literals are deliberately permitted.
	case *ast.TemplateLit:
		for _, inner := range e.Exprs {
			v.expr(inner)
		}
	case *ast.ArrayLit:
		for _, elem := range e.Elems {
			v.expr(elem)
		}
	case *ast.ObjectLit:
		for _, prop := range e.Props {
			if prop.Spread != nil {
				v.expr(prop.Spread.X)
				continue
			}
			if prop.Computed {
				v.expr(prop.Key)
			}
			v.expr(prop.Value)
		}
	case *ast.FuncLit:
		v.funcLit(e)
	case *ast.CallExpr:
		v.expr(e.Callee)
		for _, arg := range e.Args {
			v.expr(arg)
		}
	case *ast.MemberExpr:
		v.expr(e.Obj)
		if _, blocked := blockedProperties[e.Prop.Name]; blocked {
			v.report(e.Prop, "access to property %q is not allowed", e.Prop.Name)
		}
	case *ast.IndexExpr:
		v.expr(e.Obj)
		if name, ok := literalStringValue(e.Index); ok {
			if _, blocked := blockedProperties[name]; blocked {
				v.report(e.Index, "access to property %q is not allowed", name)
				return
			}
			if _, blocked := blockedIdentifiers[name]; blocked {
				v.report(e.Index, "access to property %q is not allowed", name)
				return
			}
			return
		}
		v.expr(e.Index)
	case *ast.UnaryExpr:
		v.expr(e.X)
	case *ast.UpdateExpr:
		v.expr(e.X)
	case *ast.BinaryExpr:
		v.expr(e.X)
		v.expr(e.Y)
	case *ast.AssignExpr:
		v.expr(e.Target)
		v.expr(e.Value)
	case *ast.CondExpr:
		v.expr(e.Cond)
		v.expr(e.Then)
		v.expr(e.Else)
	case *ast.SeqExpr:
		for _, inner := range e.Exprs {
			v.expr(inner)
		}
	case *ast.SpreadElem:
		v.expr(e.X)
	case *ast.ParenExpr:
		v.expr(e.X)
	case *ast.NewExpr, *ast.ThisExpr, *ast.AwaitExpr,
		*ast.YieldExpr, *ast.TaggedTemplate:
		v.reject(expr)
		// Still walk children so nested violations surface in one pass.
		switch inner := expr.(type) {
		case *ast.NewExpr:
			v.expr(inner.Callee)
			for _, arg := range inner.Args {
				v.expr(arg)
			}
		case *ast.AwaitExpr:
			v.expr(inner.X)
		case *ast.YieldExpr:
			if inner.X != nil {
				v.expr(inner.X)
			}
		case *ast.TaggedTemplate:
			v.expr(inner.Quasi)
		}
	default:
		v.reject(expr)
	}
}

// literalStringValue unwraps a string literal used as a computed property
// key, returning its decoded value.
func literalStringValue(expr ast.Expr) (string, bool) {
	lit, ok := expr.(*ast.Literal)
	if !ok || lit.Kind != ast.LitString || len(lit.Raw) < 2 {
		return "", false
	}
	body := lit.Raw[1 : len(lit.Raw)-1]
	if strings.ContainsRune(body, '\\') {
		body = strings.NewReplacer(`\\`, `\`, `\'`, `'`, `\"`, `"`).Replace(body)
	}
	return body, true
}
