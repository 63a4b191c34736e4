// Package lexer turns UAL source text into a token stream. The scanner
// is byte-oriented with a single forward cursor; indentation is
// measured at the start of each logical line and emitted as balanced
// INDENT/DEDENT tokens.
package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ualang/ual/token"
)

// tabWidth is how many spaces a tab counts for when measuring
// indentation.
const tabWidth = 4

// Error is a fatal lexical error with its source position.
type Error struct {
	Message string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: lexical error: %s", e.Line, e.Column, e.Message)
}

// Lexer scans a UAL source string.
type Lexer struct {
	src    string
	cur    int
	start  int
	line   int
	col    int // 0-based column of cur
	tokens []token.Token

	indents     []int
	atLineStart bool
	groupDepth  int // open ( or [ pairs; newlines inside groups are not significant

	tokLine int
	tokCol  int
}

// New creates a lexer for the given source.
func New(src string) *Lexer {
	return &Lexer{
		src:         src,
		line:        1,
		indents:     []int{0},
		atLineStart: true,
	}
}

// Tokenize scans the whole input. The returned stream always ends with
// exactly one EOF token; INDENT and DEDENT tokens are balanced.
func Tokenize(src string) ([]token.Token, error) {
	return New(src).Tokenize()
}

// Tokenize runs the scanner to completion.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	for {
		if l.atLineStart {
			if err := l.scanIndentation(); err != nil {
				return nil, err
			}
		}
		if l.isAtEnd() {
			break
		}
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}

	// Close any open line before unwinding indentation.
	if last := l.lastKind(); last != token.NEWLINE && len(l.tokens) > 0 {
		l.emit(token.NEWLINE, "", nil)
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(token.DEDENT, "", nil)
	}
	l.emit(token.EOF, "", nil)
	return l.tokens, nil
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekAt(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.src[l.cur] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) emit(kind token.Kind, lexeme string, value any) {
	l.tokens = append(l.tokens, token.Token{
		Kind:   kind,
		Lexeme: lexeme,
		Value:  value,
		Line:   l.tokLine,
		Column: l.tokCol,
		Length: len(lexeme),
	})
}

func (l *Lexer) lastKind() token.Kind {
	if len(l.tokens) == 0 {
		return token.ILLEGAL
	}
	return l.tokens[len(l.tokens)-1].Kind
}

func (l *Lexer) errf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...), Line: l.line, Column: l.col + 1}
}

// scanIndentation measures the leading whitespace of a logical line and
// emits INDENT/DEDENT against the indent stack. Blank and comment-only
// lines do not affect indentation.
func (l *Lexer) scanIndentation() error {
	l.atLineStart = false

	width := 0
measure:
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ':
			width++
			l.advance()
		case '\t':
			width += tabWidth
			l.advance()
		default:
			break measure
		}
	}
	if l.isAtEnd() {
		return nil
	}

	// Blank line or comment-only line: no indentation effect.
skip:
	for !l.isAtEnd() {
		switch {
		case l.peek() == '\n':
			l.advance()
			l.atLineStart = true
			return nil
		case l.peek() == '\r':
			l.advance()
		case l.peek() == '/' && l.peekAt(1) == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
			if !l.isAtEnd() {
				l.advance()
			}
			l.atLineStart = true
			return nil
		case l.peek() == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			if err := l.scanBlockComment(); err != nil {
				return err
			}
			for l.peek() == ' ' || l.peek() == '\t' {
				l.advance()
			}
		default:
			break skip
		}
	}
	if l.isAtEnd() {
		return nil
	}

	l.tokLine, l.tokCol = l.line, 1
	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(token.INDENT, "", nil)
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(token.DEDENT, "", nil)
		}
		if l.indents[len(l.indents)-1] != width {
			return l.errf("inconsistent indentation: width %d does not match any enclosing level", width)
		}
	}
	return nil
}

func (l *Lexer) scanToken() error {
	l.start = l.cur
	l.tokLine, l.tokCol = l.line, l.col+1
	ch := l.advance()

	switch ch {
	case ' ', '\t', '\r':
		return nil
	case '\n':
		if l.groupDepth > 0 {
			return nil
		}
		// Collapse runs of newlines into one NEWLINE token.
		if last := l.lastKind(); last != token.NEWLINE && last != token.INDENT && len(l.tokens) > 0 {
			l.emit(token.NEWLINE, "\n", nil)
		}
		l.atLineStart = true
		return nil
	case '/':
		if l.match('/') {
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
			return nil
		}
		if l.match('*') {
			return l.scanBlockComment()
		}
		l.emit(token.SLASH, "/", nil)
		return nil
	case '+':
		switch {
		case l.match('+'):
			l.emit(token.CONCAT, "++", nil)
		case l.match('='):
			l.emit(token.PLUS_ASSIGN, "+=", nil)
		default:
			l.emit(token.PLUS, "+", nil)
		}
		return nil
	case '-':
		switch {
		case l.match('>'):
			l.emit(token.ARROW, "->", nil)
		case l.match('='):
			l.emit(token.MINUS_ASSIGN, "-=", nil)
		default:
			l.emit(token.MINUS, "-", nil)
		}
		return nil
	case '*':
		if l.match('*') {
			l.emit(token.POWER, "**", nil)
		} else {
			l.emit(token.STAR, "*", nil)
		}
		return nil
	case '%':
		l.emit(token.PERCENT, "%", nil)
		return nil
	case '=':
		if l.match('=') {
			l.emit(token.EQ, "==", nil)
		} else {
			l.emit(token.ASSIGN, "=", nil)
		}
		return nil
	case '!':
		if l.match('=') {
			l.emit(token.NEQ, "!=", nil)
		} else {
			l.emit(token.BANG, "!", nil)
		}
		return nil
	case '<':
		if l.match('=') {
			l.emit(token.LE, "<=", nil)
		} else {
			l.emit(token.LT, "<", nil)
		}
		return nil
	case '>':
		if l.match('=') {
			l.emit(token.GE, ">=", nil)
		} else {
			l.emit(token.GT, ">", nil)
		}
		return nil
	case '&':
		if l.match('&') {
			l.emit(token.AND_AND, "&&", nil)
			return nil
		}
		return l.errf("unexpected character %q", ch)
	case '|':
		if l.match('|') {
			l.emit(token.OR_OR, "||", nil)
			return nil
		}
		return l.errf("unexpected character %q", ch)
	case '(':
		l.groupDepth++
		l.emit(token.LPAREN, "(", nil)
		return nil
	case ')':
		if l.groupDepth > 0 {
			l.groupDepth--
		}
		l.emit(token.RPAREN, ")", nil)
		return nil
	case '{':
		l.emit(token.LBRACE, "{", nil)
		return nil
	case '}':
		l.emit(token.RBRACE, "}", nil)
		return nil
	case '[':
		l.groupDepth++
		l.emit(token.LBRACKET, "[", nil)
		return nil
	case ']':
		if l.groupDepth > 0 {
			l.groupDepth--
		}
		l.emit(token.RBRACKET, "]", nil)
		return nil
	case ',':
		l.emit(token.COMMA, ",", nil)
		return nil
	case '.':
		l.emit(token.DOT, ".", nil)
		return nil
	case ':':
		l.emit(token.COLON, ":", nil)
		return nil
	case '@':
		l.emit(token.AT, "@", nil)
		return nil
	case '"', '\'':
		return l.scanString(ch)
	case '`':
		return l.scanTemplate()
	default:
		if isDigit(ch) {
			return l.scanNumber()
		}
		if isAlpha(ch) {
			l.scanIdentifier()
			return nil
		}
		return l.errf("unexpected character %q", ch)
	}
}

func (l *Lexer) scanBlockComment() error {
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
	return l.errf("unterminated block comment")
}

// scanString decodes a quoted string literal. Supports the standard
// single-character escapes plus \xHH and \uHHHH.
func (l *Lexer) scanString(quote byte) error {
	var out strings.Builder
	for {
		if l.isAtEnd() {
			return l.errf("unterminated string literal")
		}
		ch := l.advance()
		if ch == quote {
			lexeme := l.src[l.start:l.cur]
			l.emit(token.STRING, lexeme, out.String())
			return nil
		}
		if ch == '\n' {
			return l.errf("unterminated string literal: newline in string")
		}
		if ch != '\\' {
			out.WriteByte(ch)
			continue
		}
		if l.isAtEnd() {
			return l.errf("unfinished escape sequence")
		}
		esc := l.advance()
		switch esc {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case 'b':
			out.WriteByte('\b')
		case 'f':
			out.WriteByte('\f')
		case '0':
			out.WriteByte(0)
		case '\\':
			out.WriteByte('\\')
		case '\'':
			out.WriteByte('\'')
		case '"':
			out.WriteByte('"')
		case '`':
			out.WriteByte('`')
		case 'x':
			v, err := l.scanHexDigits(2)
			if err != nil {
				return err
			}
			out.WriteByte(byte(v))
		case 'u':
			v, err := l.scanHexDigits(4)
			if err != nil {
				return err
			}
			out.WriteRune(rune(v))
		default:
			return l.errf("invalid escape sequence \\%c", esc)
		}
	}
}

func (l *Lexer) scanHexDigits(n int) (int64, error) {
	var hex strings.Builder
	for i := 0; i < n; i++ {
		if l.isAtEnd() || !isHex(l.peek()) {
			return 0, l.errf("escape expects %d hex digits", n)
		}
		hex.WriteByte(l.advance())
	}
	v, err := strconv.ParseInt(hex.String(), 16, 32)
	if err != nil {
		return 0, l.errf("invalid hex escape")
	}
	return v, nil
}

// scanTemplate folds a backtick template into a single STRING token,
// preserving ${expr} interpolation markers for the parser. Braces
// inside an interpolation are counted so nested object literals close
// correctly.
func (l *Lexer) scanTemplate() error {
	var out strings.Builder
	for {
		if l.isAtEnd() {
			return l.errf("unterminated template string")
		}
		ch := l.advance()
		if ch == '`' {
			// The lexeme keeps its backticks so the parser can tell a
			// template apart from a plain string and re-split ${...}.
			l.emit(token.STRING, l.src[l.start:l.cur], out.String())
			return nil
		}
		if ch == '\\' {
			if l.isAtEnd() {
				return l.errf("unfinished escape sequence")
			}
			next := l.advance()
			switch next {
			case '`':
				out.WriteByte('`')
			case '$':
				out.WriteByte('$')
			case '\\':
				out.WriteByte('\\')
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			default:
				out.WriteByte('\\')
				out.WriteByte(next)
			}
			continue
		}
		if ch == '$' && l.peek() == '{' {
			out.WriteByte('$')
			out.WriteByte(l.advance()) // '{'
			depth := 1
			for depth > 0 {
				if l.isAtEnd() {
					return l.errf("unterminated interpolation in template string")
				}
				c := l.advance()
				switch c {
				case '{':
					depth++
				case '}':
					depth--
				case '\n':
					return l.errf("unterminated interpolation in template string")
				}
				out.WriteByte(c)
			}
			continue
		}
		out.WriteByte(ch)
	}
}

// scanNumber scans an integer, promoting to float on a fractional part
// or exponent.
func (l *Lexer) scanNumber() error {
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.advance()
	}

	isFloat := false
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance() // '.'
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}

	if c := l.peek(); c == 'e' || c == 'E' {
		l.advance() // e/E
		if c := l.peek(); c == '+' || c == '-' {
			l.advance()
		}
		if !isDigit(l.peek()) {
			return l.errf("malformed number: exponent has no digits")
		}
		isFloat = true
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}

	lexeme := l.src[l.start:l.cur]
	if isFloat {
		v, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return l.errf("invalid float literal %q", lexeme)
		}
		l.emit(token.FLOAT, lexeme, v)
		return nil
	}
	v, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return l.errf("invalid integer literal %q", lexeme)
	}
	l.emit(token.INTEGER, lexeme, v)
	return nil
}

func (l *Lexer) scanIdentifier() {
	for !l.isAtEnd() && isAlphaNum(l.peek()) {
		l.advance()
	}
	lexeme := l.src[l.start:l.cur]
	if kind, ok := token.Keywords[lexeme]; ok {
		switch kind {
		case token.BOOLEAN:
			l.emit(token.BOOLEAN, lexeme, lexeme == "true")
		case token.NONE:
			l.emit(token.NONE, lexeme, nil)
		default:
			l.emit(kind, lexeme, nil)
		}
		return
	}
	l.emit(token.IDENT, lexeme, nil)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHex(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isAlphaNum(b byte) bool { return isAlpha(b) || isDigit(b) }
