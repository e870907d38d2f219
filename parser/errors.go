package parser

import (
	"fmt"

	"github.com/plzero/pl0vm/lexer"
)

// Kind categorizes where in the pipeline an Error originated.
type Kind int

const (
	KindLexical Kind = iota
	KindSyntax
	KindSemantic
)

func (k Kind) String() string {
	switch k {
	case KindLexical:
		return "lexical"
	case KindSyntax:
		return "syntax"
	case KindSemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// Error is a single parse-time failure with the source position it was
// detected at. The parser fails fast: the first Error raised aborts
// parsing, it does not attempt recovery.
type Error struct {
	Pos     lexer.Position
	Kind    Kind
	Message string
}

// Error renders in the CLI's required format.
func (e *Error) Error() string {
	return fmt.Sprintf("Error(%d:%d): %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func newError(pos lexer.Position, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Kind: kind, Message: fmt.Sprintf(format, args...)}
}
