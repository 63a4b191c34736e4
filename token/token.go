// Package token defines the lexical tokens of the UAL agent definition
// language and the tables shared by the lexer and parser.
package token

import "fmt"

// Kind represents the type of a lexical token.
type Kind int

const (
	// Special tokens
	EOF Kind = iota
	ILLEGAL
	NEWLINE
	INDENT
	DEDENT

	// Literals and identifiers
	IDENT
	STRING
	INTEGER
	FLOAT
	BOOLEAN
	NONE

	// Operators
	PLUS         // +
	MINUS        // -
	STAR         // *
	SLASH        // /
	PERCENT      // %
	POWER        // **
	CONCAT       // ++
	ASSIGN       // =
	PLUS_ASSIGN  // +=
	MINUS_ASSIGN // -=
	EQ           // ==
	NEQ          // !=
	LT           // <
	GT           // >
	LE           // <=
	GE           // >=
	ARROW        // ->
	BANG         // !
	AND_AND      // &&
	OR_OR        // ||

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACE   // {
	RBRACE   // }
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,
	DOT      // .
	COLON    // :
	AT       // @

	// Declaration keywords
	AGENT
	IMPORT
	CAPABILITY
	BEHAVIOR
	STATE
	RESOURCE
	PUBLIC
	PRIVATE
	PROTECTED
	ASYNC
	PERSISTENT

	// Control-flow keywords
	IF
	ELSE
	FOR
	WHILE
	IN
	RETURN
	EMIT
	AWAIT
	TRY
	CATCH
	FINALLY
	LET
	VAR

	// Logical keywords
	AND
	OR
	NOT

	// Type keywords
	TYPE_STRING
	TYPE_INTEGER
	TYPE_FLOAT
	TYPE_BOOLEAN
	TYPE_DATETIME
	TYPE_DURATION
	TYPE_ANY
	TYPE_VOID
	TYPE_ARRAY
	TYPE_MAP
	TYPE_OPTIONAL
)

// Token is a lexical unit with its source position.
// Value holds the decoded literal for STRING, INTEGER, FLOAT, BOOLEAN and
// NONE tokens; it is nil for every other kind.
type Token struct {
	Kind   Kind
	Lexeme string
	Value  any
	Line   int
	Column int
	Length int
}

// Keywords maps keyword lexemes to their token kinds. true, false and
// none are looked up here but lex as literal tokens, not keywords.
var Keywords = map[string]Kind{
	"agent":      AGENT,
	"import":     IMPORT,
	"capability": CAPABILITY,
	"behavior":   BEHAVIOR,
	"state":      STATE,
	"resource":   RESOURCE,
	"public":     PUBLIC,
	"private":    PRIVATE,
	"protected":  PROTECTED,
	"async":      ASYNC,
	"persistent": PERSISTENT,
	"if":         IF,
	"else":       ELSE,
	"for":        FOR,
	"while":      WHILE,
	"in":         IN,
	"return":     RETURN,
	"emit":       EMIT,
	"await":      AWAIT,
	"try":        TRY,
	"catch":      CATCH,
	"finally":    FINALLY,
	"let":        LET,
	"var":        VAR,
	"and":        AND,
	"or":         OR,
	"not":        NOT,
	"true":       BOOLEAN,
	"false":      BOOLEAN,
	"none":       NONE,
	"string":     TYPE_STRING,
	"integer":    TYPE_INTEGER,
	"float":      TYPE_FLOAT,
	"boolean":    TYPE_BOOLEAN,
	"datetime":   TYPE_DATETIME,
	"duration":   TYPE_DURATION,
	"any":        TYPE_ANY,
	"void":       TYPE_VOID,
	"array":      TYPE_ARRAY,
	"map":        TYPE_MAP,
	"optional":   TYPE_OPTIONAL,
}

var kindNames = map[Kind]string{
	EOF:           "EOF",
	ILLEGAL:       "ILLEGAL",
	NEWLINE:       "NEWLINE",
	INDENT:        "INDENT",
	DEDENT:        "DEDENT",
	IDENT:         "identifier",
	STRING:        "string literal",
	INTEGER:       "integer literal",
	FLOAT:         "float literal",
	BOOLEAN:       "boolean literal",
	NONE:          "none",
	PLUS:          "+",
	MINUS:         "-",
	STAR:          "*",
	SLASH:         "/",
	PERCENT:       "%",
	POWER:         "**",
	CONCAT:        "++",
	ASSIGN:        "=",
	PLUS_ASSIGN:   "+=",
	MINUS_ASSIGN:  "-=",
	EQ:            "==",
	NEQ:           "!=",
	LT:            "<",
	GT:            ">",
	LE:            "<=",
	GE:            ">=",
	ARROW:         "->",
	BANG:          "!",
	AND_AND:       "&&",
	OR_OR:         "||",
	LPAREN:        "(",
	RPAREN:        ")",
	LBRACE:        "{",
	RBRACE:        "}",
	LBRACKET:      "[",
	RBRACKET:      "]",
	COMMA:         ",",
	DOT:           ".",
	COLON:         ":",
	AT:            "@",
	AGENT:         "agent",
	IMPORT:        "import",
	CAPABILITY:    "capability",
	BEHAVIOR:      "behavior",
	STATE:         "state",
	RESOURCE:      "resource",
	PUBLIC:        "public",
	PRIVATE:       "private",
	PROTECTED:     "protected",
	ASYNC:         "async",
	PERSISTENT:    "persistent",
	IF:            "if",
	ELSE:          "else",
	FOR:           "for",
	WHILE:         "while",
	IN:            "in",
	RETURN:        "return",
	EMIT:          "emit",
	AWAIT:         "await",
	TRY:           "try",
	CATCH:         "catch",
	FINALLY:       "finally",
	LET:           "let",
	VAR:           "var",
	AND:           "and",
	OR:            "or",
	NOT:           "not",
	TYPE_STRING:   "string",
	TYPE_INTEGER:  "integer",
	TYPE_FLOAT:    "float",
	TYPE_BOOLEAN:  "boolean",
	TYPE_DATETIME: "datetime",
	TYPE_DURATION: "duration",
	TYPE_ANY:      "any",
	TYPE_VOID:     "void",
	TYPE_ARRAY:    "array",
	TYPE_MAP:      "map",
	TYPE_OPTIONAL: "optional",
}

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsTypeKeyword reports whether the kind names a built-in type.
func (k Kind) IsTypeKeyword() bool {
	return k >= TYPE_STRING && k <= TYPE_OPTIONAL
}

// IsLayout reports whether the kind is a structural token the parser
// skips between declarations and statements.
func (k Kind) IsLayout() bool {
	return k == NEWLINE || k == INDENT || k == DEDENT
}

// String renders the token for debug dumps.
func (t Token) String() string {
	if t.Value != nil {
		return fmt.Sprintf("%s(%v) @%d:%d", t.Kind, t.Value, t.Line, t.Column)
	}
	if t.Kind == IDENT {
		return fmt.Sprintf("identifier(%s) @%d:%d", t.Lexeme, t.Line, t.Column)
	}
	return fmt.Sprintf("%s @%d:%d", t.Kind, t.Line, t.Column)
}
