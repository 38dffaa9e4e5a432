// Package ast defines the syntax tree for the orchestration script dialect.
// Every node carries its byte-offset span in the original source so that the
// validator can point at violations and the transformer can patch text
// without disturbing the author's formatting.
package ast

// Node is implemented by every syntax-tree node.
type Node interface {
	// Pos returns the byte offset of the first character of the node.
	Pos() int
	// End returns the byte offset immediately after the last character.
	End() int
}

// Stmt is implemented by statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by expression nodes.
type Expr interface {
	Node
	exprNode()
}

// -----------------------------------------------------------------------------
// Program
// -----------------------------------------------------------------------------

type Program struct {
	Body []Stmt
	Len  int
}

func (p *Program) Pos() int { return 0 }
func (p *Program) End() int { return p.Len }

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

// Declarator is one name = init pair inside a variable declaration.
type Declarator struct {
	Name *Ident
	Init Expr
}

func (d *Declarator) Pos() int { return d.Name.Pos() }
func (d *Declarator) End() int {
	if d.Init != nil {
		return d.Init.End()
	}
	return d.Name.End()
}

// VarDecl is a var/let/const declaration statement.
type VarDecl struct {
	Start   int
	EndPos  int
	Keyword string
	Decls   []*Declarator
}

type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) Pos() int { return s.X.Pos() }
func (s *ExprStmt) End() int { return s.X.End() }

type BlockStmt struct {
	Lbrace int
	Rbrace int
	Body   []Stmt
}

type EmptyStmt struct {
	Semi int
}

type IfStmt struct {
	Start int
	Cond  Expr
	Then  Stmt
	Else  Stmt
}

type ForStmt struct {
	Start int
	Init  Node // *VarDecl, *ExprStmt or nil
	Cond  Expr
	Post  Expr
	Body  Stmt
}

// ForInStmt covers both for-in and for-of loops.
type ForInStmt struct {
	Start  int
	Of     bool
	Left   Node // *VarDecl or expression target
	Object Expr
	Body   Stmt
}

type WhileStmt struct {
	Start int
	Cond  Expr
	Body  Stmt
}

type DoWhileStmt struct {
	Start  int
	EndPos int
	Body   Stmt
	Cond   Expr
}

type ReturnStmt struct {
	Start  int
	EndPos int
	Arg    Expr
}

type BreakStmt struct {
	Start  int
	EndPos int
}

type ContinueStmt struct {
	Start  int
	EndPos int
}

type ThrowStmt struct {
	Start int
	Arg   Expr
}

type CatchClause struct {
	Start int
	Param *Ident
	Body  *BlockStmt
}

type TryStmt struct {
	Start   int
	Body    *BlockStmt
	Catch   *CatchClause
	Finally *BlockStmt
}

type FuncDecl struct {
	Name *Ident
	Lit  *FuncLit
}

// Reject-only statement kinds. The parser accepts these so the validator can
// name them in diagnostics instead of failing with a bare syntax error.

type ClassDecl struct {
	Start  int
	EndPos int
	Name   *Ident
}

type SwitchStmt struct {
	Start  int
	EndPos int
	Tag    Expr
}

type WithStmt struct {
	Start  int
	Object Expr
	Body   Stmt
}

type LabeledStmt struct {
	Label *Ident
	Body  Stmt
}

type DebuggerStmt struct {
	Start  int
	EndPos int
}

func (s *VarDecl) Pos() int      { return s.Start }
func (s *VarDecl) End() int      { return s.EndPos }
func (s *BlockStmt) Pos() int    { return s.Lbrace }
func (s *BlockStmt) End() int    { return s.Rbrace + 1 }
func (s *EmptyStmt) Pos() int    { return s.Semi }
func (s *EmptyStmt) End() int    { return s.Semi + 1 }
func (s *IfStmt) Pos() int       { return s.Start }
func (s *IfStmt) End() int {
	if s.Else != nil {
		return s.Else.End()
	}
	return s.Then.End()
}
func (s *ForStmt) Pos() int      { return s.Start }
func (s *ForStmt) End() int      { return s.Body.End() }
func (s *ForInStmt) Pos() int    { return s.Start }
func (s *ForInStmt) End() int    { return s.Body.End() }
func (s *WhileStmt) Pos() int    { return s.Start }
func (s *WhileStmt) End() int    { return s.Body.End() }
func (s *DoWhileStmt) Pos() int  { return s.Start }
func (s *DoWhileStmt) End() int  { return s.EndPos }
func (s *ReturnStmt) Pos() int   { return s.Start }
func (s *ReturnStmt) End() int   { return s.EndPos }
func (s *BreakStmt) Pos() int    { return s.Start }
func (s *BreakStmt) End() int    { return s.EndPos }
func (s *ContinueStmt) Pos() int { return s.Start }
func (s *ContinueStmt) End() int { return s.EndPos }
func (s *ThrowStmt) Pos() int    { return s.Start }
func (s *ThrowStmt) End() int    { return s.Arg.End() }
func (s *CatchClause) Pos() int  { return s.Start }
func (s *CatchClause) End() int  { return s.Body.End() }
func (s *TryStmt) Pos() int      { return s.Start }
func (s *TryStmt) End() int {
	if s.Finally != nil {
		return s.Finally.End()
	}
	if s.Catch != nil {
		return s.Catch.End()
	}
	return s.Body.End()
}
func (s *FuncDecl) Pos() int     { return s.Lit.Pos() }
func (s *FuncDecl) End() int     { return s.Lit.End() }
func (s *ClassDecl) Pos() int    { return s.Start }
func (s *ClassDecl) End() int    { return s.EndPos }
func (s *SwitchStmt) Pos() int   { return s.Start }
func (s *SwitchStmt) End() int   { return s.EndPos }
func (s *WithStmt) Pos() int     { return s.Start }
func (s *WithStmt) End() int     { return s.Body.End() }
func (s *LabeledStmt) Pos() int  { return s.Label.Pos() }
func (s *LabeledStmt) End() int  { return s.Body.End() }
func (s *DebuggerStmt) Pos() int { return s.Start }
func (s *DebuggerStmt) End() int { return s.EndPos }

func (*VarDecl) stmtNode()      {}
func (*ExprStmt) stmtNode()     {}
func (*BlockStmt) stmtNode()    {}
func (*EmptyStmt) stmtNode()    {}
func (*IfStmt) stmtNode()       {}
func (*ForStmt) stmtNode()      {}
func (*ForInStmt) stmtNode()    {}
func (*WhileStmt) stmtNode()    {}
func (*DoWhileStmt) stmtNode()  {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ThrowStmt) stmtNode()    {}
func (*TryStmt) stmtNode()      {}
func (*FuncDecl) stmtNode()     {}
func (*ClassDecl) stmtNode()    {}
func (*SwitchStmt) stmtNode()   {}
func (*WithStmt) stmtNode()     {}
func (*LabeledStmt) stmtNode()  {}
func (*DebuggerStmt) stmtNode() {}

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

type Ident struct {
	Start int
	Name  string
}

func (e *Ident) Pos() int { return e.Start }
func (e *Ident) End() int { return e.Start + len(e.Name) }

type LitKind int

const (
	LitNumber LitKind = iota
	LitString
	LitBool
	LitNull
	LitRegex
)

type Literal struct {
	Start  int
	EndPos int
	Kind   LitKind
	Raw    string
}

// TemplateLit is a template literal. Quasis holds the raw text segments and
// Exprs the interpolated expressions between them.
type TemplateLit struct {
	Start  int
	EndPos int
	Quasis []string
	Exprs  []Expr
}

type ArrayLit struct {
	Start  int
	EndPos int
	Elems  []Expr
}

// Property is one entry of an object literal. A spread entry has Spread set
// and Key/Value nil.
type Property struct {
	Key       Expr
	Value     Expr
	Computed  bool
	Shorthand bool
	Spread    *SpreadElem
}

func (p *Property) Pos() int {
	if p.Spread != nil {
		return p.Spread.Pos()
	}
	return p.Key.Pos()
}

func (p *Property) End() int {
	if p.Spread != nil {
		return p.Spread.End()
	}
	return p.Value.End()
}

type ObjectLit struct {
	Start  int
	EndPos int
	Props  []*Property
}

// FuncLit is an arrow or function literal. For arrows with an expression
// body, ExprBody is set and Body is nil.
type FuncLit struct {
	Start     int
	EndPos    int
	Name      *Ident
	Params    []*Ident
	Body      *BlockStmt
	ExprBody  Expr
	Arrow     bool
	Async     bool
	Generator bool
}

type CallExpr struct {
	Callee   Expr
	Args     []Expr
	Rparen   int
	Optional bool
}

type MemberExpr struct {
	Obj      Expr
	Prop     *Ident
	Optional bool
}

type IndexExpr struct {
	Obj      Expr
	Index    Expr
	Rbracket int
	Optional bool
}

type NewExpr struct {
	Start  int
	Callee Expr
	Args   []Expr
	EndPos int
}

type UnaryExpr struct {
	Start int
	Op    string
	X     Expr
}

type UpdateExpr struct {
	Start  int
	EndPos int
	Op     string
	X      Expr
	Prefix bool
}

type BinaryExpr struct {
	Op string
	X  Expr
	Y  Expr
}

type AssignExpr struct {
	Op     string
	Target Expr
	Value  Expr
}

type CondExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

type SeqExpr struct {
	Exprs []Expr
}

type SpreadElem struct {
	Start int
	X     Expr
}

type ParenExpr struct {
	Lparen int
	Rparen int
	X      Expr
}

type ThisExpr struct {
	Start int
}

// Reject-only expression kinds.

type AwaitExpr struct {
	Start int
	X     Expr
}

type YieldExpr struct {
	Start  int
	EndPos int
	X      Expr
}

type TaggedTemplate struct {
	Tag   Expr
	Quasi *TemplateLit
}

func (e *Literal) Pos() int     { return e.Start }
func (e *Literal) End() int     { return e.EndPos }
func (e *TemplateLit) Pos() int { return e.Start }
func (e *TemplateLit) End() int { return e.EndPos }
func (e *ArrayLit) Pos() int    { return e.Start }
func (e *ArrayLit) End() int    { return e.EndPos }
func (e *ObjectLit) Pos() int   { return e.Start }
func (e *ObjectLit) End() int   { return e.EndPos }
func (e *FuncLit) Pos() int     { return e.Start }
func (e *FuncLit) End() int     { return e.EndPos }
func (e *CallExpr) Pos() int    { return e.Callee.Pos() }
func (e *CallExpr) End() int    { return e.Rparen + 1 }
func (e *MemberExpr) Pos() int  { return e.Obj.Pos() }
func (e *MemberExpr) End() int  { return e.Prop.End() }
func (e *IndexExpr) Pos() int   { return e.Obj.Pos() }
func (e *IndexExpr) End() int   { return e.Rbracket + 1 }
func (e *NewExpr) Pos() int     { return e.Start }
func (e *NewExpr) End() int     { return e.EndPos }
func (e *UnaryExpr) Pos() int   { return e.Start }
func (e *UnaryExpr) End() int   { return e.X.End() }
func (e *UpdateExpr) Pos() int  { return e.Start }
func (e *UpdateExpr) End() int  { return e.EndPos }
func (e *BinaryExpr) Pos() int  { return e.X.Pos() }
func (e *BinaryExpr) End() int  { return e.Y.End() }
func (e *AssignExpr) Pos() int  { return e.Target.Pos() }
func (e *AssignExpr) End() int  { return e.Value.End() }
func (e *CondExpr) Pos() int    { return e.Cond.Pos() }
func (e *CondExpr) End() int    { return e.Else.End() }
func (e *SeqExpr) Pos() int     { return e.Exprs[0].Pos() }
func (e *SeqExpr) End() int     { return e.Exprs[len(e.Exprs)-1].End() }
func (e *SpreadElem) Pos() int  { return e.Start }
func (e *SpreadElem) End() int  { return e.X.End() }
func (e *ParenExpr) Pos() int   { return e.Lparen }
func (e *ParenExpr) End() int   { return e.Rparen + 1 }
func (e *ThisExpr) Pos() int    { return e.Start }
func (e *ThisExpr) End() int    { return e.Start + 4 }
func (e *AwaitExpr) Pos() int   { return e.Start }
func (e *AwaitExpr) End() int   { return e.X.End() }
func (e *YieldExpr) Pos() int   { return e.Start }
func (e *YieldExpr) End() int {
	if e.X != nil {
		return e.X.End()
	}
	return e.EndPos
}
func (e *TaggedTemplate) Pos() int { return e.Tag.Pos() }
func (e *TaggedTemplate) End() int { return e.Quasi.End() }

func (*Ident) exprNode()          {}
func (*Literal) exprNode()        {}
func (*TemplateLit) exprNode()    {}
func (*ArrayLit) exprNode()       {}
func (*ObjectLit) exprNode()      {}
func (*FuncLit) exprNode()        {}
func (*CallExpr) exprNode()       {}
func (*MemberExpr) exprNode()     {}
func (*IndexExpr) exprNode()      {}
func (*NewExpr) exprNode()        {}
func (*UnaryExpr) exprNode()      {}
func (*UpdateExpr) exprNode()     {}
func (*BinaryExpr) exprNode()     {}
func (*AssignExpr) exprNode()     {}
func (*CondExpr) exprNode()       {}
func (*SeqExpr) exprNode()        {}
func (*SpreadElem) exprNode()     {}
func (*ParenExpr) exprNode()      {}
func (*ThisExpr) exprNode()       {}
func (*AwaitExpr) exprNode()      {}
func (*YieldExpr) exprNode()      {}
func (*TaggedTemplate) exprNode() {}
