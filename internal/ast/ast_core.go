package ast

import (
	"github.com/ashlang/ashc/internal/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
	String() string
}

// Statement is a Node that represents a statement.
// The set of statements is closed: LetStatement, FnVarsStatement,
// ReturnStatement, ConstStatement and IfStatement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of a parsed source file: the body of one function.
type Program struct {
	File       string // Source file path
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

// LetStatement declares (IsLet) or reassigns a variable.
// let x = expr / x = expr
type LetStatement struct {
	Token token.Token // 'let' or the identifier token
	Name  *Identifier
	Value Expression
	IsLet bool
}

func (ls *LetStatement) statementNode()        {}
func (ls *LetStatement) TokenLiteral() string  { return ls.Token.Lexeme }
func (ls *LetStatement) GetToken() token.Token { return ls.Token }
func (ls *LetStatement) String() string {
	if ls.IsLet {
		return "let " + ls.Name.Value + " = " + ls.Value.String()
	}
	return ls.Name.Value + " = " + ls.Value.String()
}

// FnVarsStatement names the function's parameters, in call order.
// (a, b)
type FnVarsStatement struct {
	Token token.Token // '('
	Names []*Identifier
}

func (fv *FnVarsStatement) statementNode()        {}
func (fv *FnVarsStatement) TokenLiteral() string  { return fv.Token.Lexeme }
func (fv *FnVarsStatement) GetToken() token.Token { return fv.Token }
func (fv *FnVarsStatement) String() string {
	s := "("
	for i, n := range fv.Names {
		if i > 0 {
			s += ", "
		}
		s += n.Value
	}
	return s + ")"
}

// ReturnStatement returns a value from the function.
type ReturnStatement struct {
	Token token.Token // 'return'
	Value Expression
}

func (rs *ReturnStatement) statementNode()        {}
func (rs *ReturnStatement) TokenLiteral() string  { return rs.Token.Lexeme }
func (rs *ReturnStatement) GetToken() token.Token { return rs.Token }
func (rs *ReturnStatement) String() string        { return "return " + rs.Value.String() }

// ConstStatement binds a name to a value known at compile time.
// const N = 4 * 2
type ConstStatement struct {
	Token token.Token // 'const'
	Name  *Identifier
	Value Expression
}

func (cs *ConstStatement) statementNode()        {}
func (cs *ConstStatement) TokenLiteral() string  { return cs.Token.Lexeme }
func (cs *ConstStatement) GetToken() token.Token { return cs.Token }
func (cs *ConstStatement) String() string {
	return "const " + cs.Name.Value + " = " + cs.Value.String()
}

// IfStatement guards a block of statements.
// if a == b { ... }
type IfStatement struct {
	Token     token.Token // 'if'
	Condition Expression
	Body      []Statement
}

func (is *IfStatement) statementNode()        {}
func (is *IfStatement) TokenLiteral() string  { return is.Token.Lexeme }
func (is *IfStatement) GetToken() token.Token { return is.Token }
func (is *IfStatement) String() string {
	s := "if " + is.Condition.String() + " {"
	for _, stmt := range is.Body {
		s += " " + stmt.String() + ";"
	}
	return s + " }"
}
