package ast

// Visitor is invoked for each node during a Walk. If Visit returns a nil
// Visitor, the children of the node are skipped.
type Visitor interface {
	Visit(node Node) Visitor
}

// Walk traverses the tree rooted at node in depth-first source order.
func Walk(v Visitor, node Node) {
	if node == nil {
		return
	}
	if v = v.Visit(node); v == nil {
		return
	}
	switch n := node.(type) {
	case *Program:
		for _, s := range n.Body {
			Walk(v, s)
		}
	case *VarDecl:
		for _, d := range n.Decls {
			Walk(v, d.Name)
			if d.Init != nil {
				Walk(v, d.Init)
			}
		}
	case *ExprStmt:
		Walk(v, n.X)
	case *BlockStmt:
		for _, s := range n.Body {
			Walk(v, s)
		}
	case *EmptyStmt:
	case *IfStmt:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		if n.Else != nil {
			Walk(v, n.Else)
		}
	case *ForStmt:
		if n.Init != nil {
			Walk(v, n.Init)
		}
		if n.Cond != nil {
			Walk(v, n.Cond)
		}
		if n.Post != nil {
			Walk(v, n.Post)
		}
		Walk(v, n.Body)
	case *ForInStmt:
		Walk(v, n.Left)
		Walk(v, n.Object)
		Walk(v, n.Body)
	case *WhileStmt:
		Walk(v, n.Cond)
		Walk(v, n.Body)
	case *DoWhileStmt:
		Walk(v, n.Body)
		Walk(v, n.Cond)
	case *ReturnStmt:
		if n.Arg != nil {
			Walk(v, n.Arg)
		}
	case *BreakStmt, *ContinueStmt, *DebuggerStmt, *ClassDecl:
	case *ThrowStmt:
		Walk(v, n.Arg)
	case *TryStmt:
		Walk(v, n.Body)
		if n.Catch != nil {
			Walk(v, n.Catch)
		}
		if n.Finally != nil {
			Walk(v, n.Finally)
		}
	case *CatchClause:
		if n.Param != nil {
			Walk(v, n.Param)
		}
		Walk(v, n.Body)
	case *FuncDecl:
		Walk(v, n.Lit)
	case *SwitchStmt:
		if n.Tag != nil {
			Walk(v, n.Tag)
		}
	case *WithStmt:
		Walk(v, n.Object)
		Walk(v, n.Body)
	case *LabeledStmt:
		Walk(v, n.Label)
		Walk(v, n.Body)
	case *Ident, *Literal, *ThisExpr:
	case *TemplateLit:
		for _, e := range n.Exprs {
			Walk(v, e)
		}
	case *ArrayLit:
		for _, e := range n.Elems {
			Walk(v, e)
		}
	case *ObjectLit:
		for _, p := range n.Props {
			if p.Spread != nil {
				Walk(v, p.Spread)
				continue
			}
			Walk(v, p.Key)
			Walk(v, p.Value)
		}
	case *FuncLit:
		for _, p := range n.Params {
			Walk(v, p)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}
		if n.ExprBody != nil {
			Walk(v, n.ExprBody)
		}
	case *CallExpr:
		Walk(v, n.Callee)
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *MemberExpr:
		Walk(v, n.Obj)
		Walk(v, n.Prop)
	case *IndexExpr:
		Walk(v, n.Obj)
		Walk(v, n.Index)
	case *NewExpr:
		Walk(v, n.Callee)
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *UnaryExpr:
		Walk(v, n.X)
	case *UpdateExpr:
		Walk(v, n.X)
	case *BinaryExpr:
		Walk(v, n.X)
		Walk(v, n.Y)
	case *AssignExpr:
		Walk(v, n.Target)
		Walk(v, n.Value)
	case *CondExpr:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		Walk(v, n.Else)
	case *SeqExpr:
		for _, e := range n.Exprs {
			Walk(v, e)
		}
	case *SpreadElem:
		Walk(v, n.X)
	case *ParenExpr:
		Walk(v, n.X)
	case *AwaitExpr:
		Walk(v, n.X)
	case *YieldExpr:
		if n.X != nil {
			Walk(v, n.X)
		}
	case *TaggedTemplate:
		Walk(v, n.Tag)
		Walk(v, n.Quasi)
	case *Declarator:
		Walk(v, n.Name)
		if n.Init != nil {
			Walk(v, n.Init)
		}
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses the tree calling f for every node. If f returns false,
// the children of the current node are skipped.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

// KindOf returns the diagnostic name of a node's syntactic kind.
func KindOf(node Node) string {
	switch n := node.(type) {
	case *Program:
		return "Program"
	case *VarDecl:
		return "VariableDeclaration"
	case *Declarator:
		return "VariableDeclarator"
	case *ExprStmt:
		return "ExpressionStatement"
	case *BlockStmt:
		return "BlockStatement"
	case *EmptyStmt:
		return "EmptyStatement"
	case *IfStmt:
		return "IfStatement"
	case *ForStmt:
		return "ForStatement"
	case *ForInStmt:
		if n.Of {
			return "ForOfStatement"
		}
		return "ForInStatement"
	case *WhileStmt:
		return "WhileStatement"
	case *DoWhileStmt:
		return "DoWhileStatement"
	case *ReturnStmt:
		return "ReturnStatement"
	case *BreakStmt:
		return "BreakStatement"
	case *ContinueStmt:
		return "ContinueStatement"
	case *ThrowStmt:
		return "ThrowStatement"
	case *TryStmt:
		return "TryStatement"
	case *CatchClause:
		return "CatchClause"
	case *FuncDecl:
		return "FunctionDeclaration"
	case *ClassDecl:
		return "ClassDeclaration"
	case *SwitchStmt:
		return "SwitchStatement"
	case *WithStmt:
		return "WithStatement"
	case *LabeledStmt:
		return "LabeledStatement"
	case *DebuggerStmt:
		return "DebuggerStatement"
	case *Ident:
		return "Identifier"
	case *Literal:
		switch n.Kind {
		case LitNumber:
			return "NumericLiteral"
		case LitString:
			return "StringLiteral"
		case LitBool:
			return "BooleanLiteral"
		case LitNull:
			return "NullLiteral"
		case LitRegex:
			return "RegExpLiteral"
		}
		return "Literal"
	case *TemplateLit:
		return "TemplateLiteral"
	case *ArrayLit:
		return "ArrayExpression"
	case *ObjectLit:
		return "ObjectExpression"
	case *FuncLit:
		if n.Arrow {
			return "ArrowFunctionExpression"
		}
		return "FunctionExpression"
	case *CallExpr:
		return "CallExpression"
	case *MemberExpr, *IndexExpr:
		return "MemberExpression"
	case *NewExpr:
		return "NewExpression"
	case *UnaryExpr:
		return "UnaryExpression"
	case *UpdateExpr:
		return "UpdateExpression"
	case *BinaryExpr:
		return "BinaryExpression"
	case *AssignExpr:
		return "AssignmentExpression"
	case *CondExpr:
		return "ConditionalExpression"
	case *SeqExpr:
		return "SequenceExpression"
	case *SpreadElem:
		return "SpreadElement"
	case *ParenExpr:
		return "ParenthesizedExpression"
	case *ThisExpr:
		return "ThisExpression"
	case *AwaitExpr:
		return "AwaitExpression"
	case *YieldExpr:
		return "YieldExpression"
	case *TaggedTemplate:
		return "TaggedTemplateExpression"
	}
	return "UnknownNode"
}
