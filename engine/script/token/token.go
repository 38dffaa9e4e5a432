// Package token defines the lexical tokens of the orchestration script
// dialect (a C-family imperative subset) together with their source offsets.
package token

import "fmt"

type Kind int

const (
	Illegal Kind = iota
	EOF

	// Literals and names
	Ident
	Number
	String
	Template
	Regex

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semicolon
	Colon
	Dot
	Ellipsis
	Arrow
	Question
	OptChain

	// Operators
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	Plus
	Minus
	Star
	StarStar
	Slash
	Percent
	Eq
	NotEq
	StrictEq
	StrictNotEq
	Lt
	Gt
	Le
	Ge
	LogicalAnd
	LogicalOr
	Nullish
	Not
	BitAnd
	BitOr
	BitXor
	BitNot
	Shl
	Shr
	UShr
	Inc
	Dec

	// Keywords
	KwVar
	KwLet
	KwConst
	KwFunction
	KwReturn
	KwIf
	KwElse
	KwFor
	KwWhile
	KwDo
	KwBreak
	KwContinue
	KwTry
	KwCatch
	KwFinally
	KwThrow
	KwNew
	KwDelete
	KwTypeof
	KwVoid
	KwIn
	KwOf
	KwInstanceof
	KwTrue
	KwFalse
	KwNull
	KwThis
	KwClass
	KwSwitch
	KwCase
	KwDefault
	KwWith
	KwAsync
	KwAwait
	KwYield
	KwDebugger
)

var keywords = map[string]Kind{
	"var":        KwVar,
	"let":        KwLet,
	"const":      KwConst,
	"function":   KwFunction,
	"return":     KwReturn,
	"if":         KwIf,
	"else":       KwElse,
	"for":        KwFor,
	"while":      KwWhile,
	"do":         KwDo,
	"break":      KwBreak,
	"continue":   KwContinue,
	"try":        KwTry,
	"catch":      KwCatch,
	"finally":    KwFinally,
	"throw":      KwThrow,
	"new":        KwNew,
	"delete":     KwDelete,
	"typeof":     KwTypeof,
	"void":       KwVoid,
	"in":         KwIn,
	"of":         KwOf,
	"instanceof": KwInstanceof,
	"true":       KwTrue,
	"false":      KwFalse,
	"null":       KwNull,
	"this":       KwThis,
	"class":      KwClass,
	"switch":     KwSwitch,
	"case":       KwCase,
	"default":    KwDefault,
	"with":       KwWith,
	"async":      KwAsync,
	"await":      KwAwait,
	"yield":      KwYield,
	"debugger":   KwDebugger,
}

// Lookup maps an identifier to its keyword kind, or Ident if it is not a
// keyword. "of" is contextual and resolved by the parser, so it is returned
// as a keyword here and downgraded where an identifier is expected.
func Lookup(name string) Kind {
	if kind, ok := keywords[name]; ok {
		return kind
	}
	return Ident
}

// Token is a single lexical token with its byte-offset span in the source.
type Token struct {
	Kind Kind
	// Text is the raw source text of the token. For String and Template
	// tokens it includes the quotes.
	Text  string
	Start int
	End   int
	// NewlineBefore reports whether a line terminator appeared between this
	// token and the previous one. The parser uses it for statement
	// termination of unpunctuated source.
	NewlineBefore bool
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of script"
	}
	return fmt.Sprintf("%q", t.Text)
}

// IsKeyword reports whether the token kind is a reserved word.
func (k Kind) IsKeyword() bool {
	return k >= KwVar && k <= KwDebugger
}
