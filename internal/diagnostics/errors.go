package diagnostics

import (
	"fmt"

	"github.com/ashlang/ashc/internal/token"
)

// DiagnosticError is a positioned error produced while reading a source file.
type DiagnosticError struct {
	Code    string // "L001" lexer, "P001" parser
	Token   token.Token
	Message string
	File    string
}

func NewError(code string, tok token.Token, format string, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{
		Code:    code,
		Token:   tok,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *DiagnosticError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s (%s)", e.File, e.Token.Line, e.Token.Column, e.Message, e.Code)
	}
	return fmt.Sprintf("line %d, col %d: %s (%s)", e.Token.Line, e.Token.Column, e.Message, e.Code)
}
