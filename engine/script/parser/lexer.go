package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/toolweave/toolweave/engine/script/token"
)

// Lexer produces tokens from script source. It is a plain value so the
// parser can snapshot and restore it for bounded lookahead.
type Lexer struct {
	src string
	pos int
	// prev is the kind of the last significant token, used to disambiguate
	// regular-expression literals from division.
	prev token.Kind
	err  *SyntaxError
}

// NewLexer returns a lexer over src.
func NewLexer(src string) Lexer {
	return Lexer{src: src, prev: token.Illegal}
}

// SyntaxError is a scan or parse failure at a byte offset.
type SyntaxError struct {
	Msg    string
	Offset int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

func (lx *Lexer) fail(offset int, format string, args ...any) token.Token {
	if lx.err == nil {
		lx.err = &SyntaxError{Msg: fmt.Sprintf(format, args...), Offset: offset}
	}
	return token.Token{Kind: token.Illegal, Start: offset, End: offset}
}

// Err returns the first scan error, if any.
func (lx *Lexer) Err() *SyntaxError {
	return lx.err
}

func (lx *Lexer) peekByte() byte {
	if lx.pos >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos]
}

func (lx *Lexer) peekByteAt(off int) byte {
	if lx.pos+off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+off]
}

// Next returns the next significant token.
func (lx *Lexer) Next() token.Token {
	newline := lx.skipTrivia()
	if lx.err != nil {
		return token.Token{Kind: token.Illegal, Start: lx.err.Offset, End: lx.err.Offset}
	}
	if lx.pos >= len(lx.src) {
		return token.Token{Kind: token.EOF, Start: len(lx.src), End: len(lx.src), NewlineBefore: newline}
	}

	start := lx.pos
	ch := lx.src[lx.pos]
	var tok token.Token

	switch {
	case isIdentStart(ch) || ch >= utf8.RuneSelf:
		tok = lx.scanIdent()
	case isDigit(ch) || (ch == '.' && isDigit(lx.peekByteAt(1))):
		tok = lx.scanNumber()
	case ch == '"' || ch == '\'':
		tok = lx.scanString(ch)
	case ch == '`':
		tok = lx.scanTemplate()
	case ch == '/' && lx.regexAllowed():
		tok = lx.scanRegex()
	default:
		tok = lx.scanOperator()
	}

	if lx.err != nil {
		return token.Token{Kind: token.Illegal, Start: start, End: start, NewlineBefore: newline}
	}
	tok.NewlineBefore = newline
	lx.prev = tok.Kind
	return tok
}

// skipTrivia consumes whitespace and comments, reporting whether a line
// terminator was crossed.
func (lx *Lexer) skipTrivia() bool {
	newline := false
	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]
		switch {
		case ch == '\n' || ch == '\r':
			newline = true
			lx.pos++
		case ch == ' ' || ch == '\t' || ch == '\v' || ch == '\f':
			lx.pos++
		case ch == '/' && lx.peekByteAt(1) == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case ch == '/' && lx.peekByteAt(1) == '*':
			end := start2EndOfBlockComment(lx.src, lx.pos+2)
			if end < 0 {
				lx.fail(lx.pos, "unterminated block comment")
				return newline
			}
			for i := lx.pos; i < end; i++ {
				if lx.src[i] == '\n' {
					newline = true
					break
				}
			}
			lx.pos = end
		default:
			return newline
		}
	}
	return newline
}

func start2EndOfBlockComment(src string, from int) int {
	for i := from; i+1 < len(src); i++ {
		if src[i] == '*' && src[i+1] == '/' {
			return i + 2
		}
	}
	return -1
}

func (lx *Lexer) scanIdent() token.Token {
	start := lx.pos
	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]
		if isIdentPart(ch) {
			lx.pos++
			continue
		}
		if ch >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				lx.pos += size
				continue
			}
		}
		break
	}
	text := lx.src[start:lx.pos]
	return token.Token{Kind: token.Lookup(text), Text: text, Start: start, End: lx.pos}
}

func (lx *Lexer) scanNumber() token.Token {
	start := lx.pos
	src := lx.src
	if src[lx.pos] == '0' && lx.pos+1 < len(src) && (src[lx.pos+1] == 'x' || src[lx.pos+1] == 'X') {
		lx.pos += 2
		for lx.pos < len(src) && isHexDigit(src[lx.pos]) {
			lx.pos++
		}
	} else {
		for lx.pos < len(src) && isDigit(src[lx.pos]) {
			lx.pos++
		}
		if lx.pos < len(src) && src[lx.pos] == '.' {
			lx.pos++
			for lx.pos < len(src) && isDigit(src[lx.pos]) {
				lx.pos++
			}
		}
		if lx.pos < len(src) && (src[lx.pos] == 'e' || src[lx.pos] == 'E') {
			lx.pos++
			if lx.pos < len(src) && (src[lx.pos] == '+' || src[lx.pos] == '-') {
				lx.pos++
			}
			digits := 0
			for lx.pos < len(src) && isDigit(src[lx.pos]) {
				lx.pos++
				digits++
			}
			if digits == 0 {
				return lx.fail(lx.pos, "malformed number literal")
			}
		}
	}
	return token.Token{Kind: token.Number, Text: src[start:lx.pos], Start: start, End: lx.pos}
}

func (lx *Lexer) scanString(quote byte) token.Token {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]
		switch ch {
		case '\\':
			lx.pos += 2
		case quote:
			lx.pos++
			return token.Token{Kind: token.String, Text: lx.src[start:lx.pos], Start: start, End: lx.pos}
		case '\n':
			return lx.fail(start, "unterminated string literal")
		default:
			lx.pos++
		}
	}
	return lx.fail(start, "unterminated string literal")
}

// scanTemplate consumes a whole template literal, including nested
// interpolations, as a single token. The parser re-scans the interior to
// build the template's expression list.
func (lx *Lexer) scanTemplate() token.Token {
	start := lx.pos
	end, ok := scanTemplateBody(lx.src, lx.pos+1)
	if !ok {
		return lx.fail(start, "unterminated template literal")
	}
	lx.pos = end
	return token.Token{Kind: token.Template, Text: lx.src[start:end], Start: start, End: end}
}

// scanTemplateBody scans from just after a backtick to just after the
// closing backtick, handling escapes and nested ${...} blocks.
func scanTemplateBody(src string, from int) (int, bool) {
	i := from
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
		case '`':
			return i + 1, true
		case '$':
			if i+1 < len(src) && src[i+1] == '{' {
				next, ok := scanInterpolation(src, i+2)
				if !ok {
					return 0, false
				}
				i = next
			} else {
				i++
			}
		default:
			i++
		}
	}
	return 0, false
}

// scanInterpolation scans from just after "${" to just after the matching
// "}", skipping strings and nested templates.
func scanInterpolation(src string, from int) (int, bool) {
	depth := 1
	i := from
	for i < len(src) {
		switch src[i] {
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
			if depth == 0 {
				return i, true
			}
		case '\'', '"':
			quote := src[i]
			i++
			for i < len(src) && src[i] != quote {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case '`':
			next, ok := scanTemplateBody(src, i+1)
			if !ok {
				return 0, false
			}
			i = next
		default:
			i++
		}
	}
	return 0, false
}

// regexAllowed reports whether a '/' at the current position starts a
// regular-expression literal rather than a division operator, based on the
// previous significant token.
func (lx *Lexer) regexAllowed() bool {
	switch lx.prev {
	case token.Ident, token.Number, token.String, token.Template, token.Regex,
		token.RParen, token.RBracket, token.RBrace,
		token.KwThis, token.KwTrue, token.KwFalse, token.KwNull, token.Inc, token.Dec:
		return false
	}
	return true
}

func (lx *Lexer) scanRegex() token.Token {
	start := lx.pos
	lx.pos++
	inClass := false
	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]
		switch {
		case ch == '\\':
			lx.pos += 2
		case ch == '[':
			inClass = true
			lx.pos++
		case ch == ']':
			inClass = false
			lx.pos++
		case ch == '/' && !inClass:
			lx.pos++
			for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
				lx.pos++
			}
			return token.Token{Kind: token.Regex, Text: lx.src[start:lx.pos], Start: start, End: lx.pos}
		case ch == '\n':
			return lx.fail(start, "unterminated regular expression literal")
		default:
			lx.pos++
		}
	}
	return lx.fail(start, "unterminated regular expression literal")
}

func (lx *Lexer) scanOperator() token.Token {
	start := lx.pos
	src := lx.src

	mk := func(kind token.Kind, width int) token.Token {
		lx.pos += width
		return token.Token{Kind: kind, Text: src[start:lx.pos], Start: start, End: lx.pos}
	}

	ch := src[lx.pos]
	b1 := lx.peekByteAt(1)
	b2 := lx.peekByteAt(2)

	switch ch {
	case '(':
		return mk(token.LParen, 1)
	case ')':
		return mk(token.RParen, 1)
	case '{':
		return mk(token.LBrace, 1)
	case '}':
		return mk(token.RBrace, 1)
	case '[':
		return mk(token.LBracket, 1)
	case ']':
		return mk(token.RBracket, 1)
	case ',':
		return mk(token.Comma, 1)
	case ';':
		return mk(token.Semicolon, 1)
	case ':':
		return mk(token.Colon, 1)
	case '.':
		if b1 == '.' && b2 == '.' {
			return mk(token.Ellipsis, 3)
		}
		return mk(token.Dot, 1)
	case '?':
		if b1 == '.' && !isDigit(b2) {
			return mk(token.OptChain, 2)
		}
		if b1 == '?' {
			return mk(token.Nullish, 2)
		}
		return mk(token.Question, 1)
	case '=':
		if b1 == '=' && b2 == '=' {
			return mk(token.StrictEq, 3)
		}
		if b1 == '=' {
			return mk(token.Eq, 2)
		}
		if b1 == '>' {
			return mk(token.Arrow, 2)
		}
		return mk(token.Assign, 1)
	case '!':
		if b1 == '=' && b2 == '=' {
			return mk(token.StrictNotEq, 3)
		}
		if b1 == '=' {
			return mk(token.NotEq, 2)
		}
		return mk(token.Not, 1)
	case '+':
		if b1 == '+' {
			return mk(token.Inc, 2)
		}
		if b1 == '=' {
			return mk(token.PlusAssign, 2)
		}
		return mk(token.Plus, 1)
	case '-':
		if b1 == '-' {
			return mk(token.Dec, 2)
		}
		if b1 == '=' {
			return mk(token.MinusAssign, 2)
		}
		return mk(token.Minus, 1)
	case '*':
		if b1 == '*' {
			return mk(token.StarStar, 2)
		}
		if b1 == '=' {
			return mk(token.StarAssign, 2)
		}
		return mk(token.Star, 1)
	case '/':
		if b1 == '=' {
			return mk(token.SlashAssign, 2)
		}
		return mk(token.Slash, 1)
	case '%':
		if b1 == '=' {
			return mk(token.PercentAssign, 2)
		}
		return mk(token.Percent, 1)
	case '<':
		if b1 == '<' {
			return mk(token.Shl, 2)
		}
		if b1 == '=' {
			return mk(token.Le, 2)
		}
		return mk(token.Lt, 1)
	case '>':
		if b1 == '>' && b2 == '>' {
			return mk(token.UShr, 3)
		}
		if b1 == '>' {
			return mk(token.Shr, 2)
		}
		if b1 == '=' {
			return mk(token.Ge, 2)
		}
		return mk(token.Gt, 1)
	case '&':
		if b1 == '&' {
			return mk(token.LogicalAnd, 2)
		}
		return mk(token.BitAnd, 1)
	case '|':
		if b1 == '|' {
			return mk(token.LogicalOr, 2)
		}
		return mk(token.BitOr, 1)
	case '^':
		return mk(token.BitXor, 1)
	case '~':
		return mk(token.BitNot, 1)
	}
	return lx.fail(start, "unexpected character %q", string(ch))
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
