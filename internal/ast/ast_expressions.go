package ast

import (
	"math/big"
	"strings"

	"github.com/ashlang/ashc/internal/token"
)

// Identifier is a reference to a variable, parameter or constant.
type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()       {}
func (i *Identifier) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token { return i.Token }
func (i *Identifier) String() string        { return i.Value }

// NumberLiteral is an integer literal. The value is not reduced.
type NumberLiteral struct {
	Token token.Token
	Value *big.Int
}

func (nl *NumberLiteral) expressionNode()       {}
func (nl *NumberLiteral) TokenLiteral() string  { return nl.Token.Lexeme }
func (nl *NumberLiteral) GetToken() token.Token { return nl.Token }
func (nl *NumberLiteral) String() string        { return nl.Value.String() }

// VectorLiteral is a bracketed list of elements, e.g. [1, 2, 3] or [[1, 2], [3, 4]].
type VectorLiteral struct {
	Token    token.Token // '['
	Elements []Expression
}

func (vl *VectorLiteral) expressionNode()       {}
func (vl *VectorLiteral) TokenLiteral() string  { return vl.Token.Lexeme }
func (vl *VectorLiteral) GetToken() token.Token { return vl.Token }
func (vl *VectorLiteral) String() string {
	parts := make([]string, len(vl.Elements))
	for i, e := range vl.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// IndexExpression represents indexing, e.g. v[i]
type IndexExpression struct {
	Token token.Token // The '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()       {}
func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IndexExpression) GetToken() token.Token { return ie.Token }
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}

// CallExpression is a call to a named function: f(a, b).
// Functions are not values, so the callee is always a plain name.
type CallExpression struct {
	Token     token.Token // the function name token
	Function  string
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Lexeme }
func (ce *CallExpression) GetToken() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	parts := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		parts[i] = a.String()
	}
	return ce.Function + "(" + strings.Join(parts, ", ") + ")"
}

// InfixExpression is a binary operation: + - * / == !=
type InfixExpression struct {
	Token    token.Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// IsComparison reports whether the operator yields a boolean-like value.
func (ie *InfixExpression) IsComparison() bool {
	return ie.Operator == "==" || ie.Operator == "!="
}

// PrefixExpression is a unary negation: -x
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}
