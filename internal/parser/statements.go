package parser

import (
	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/token"
)

// ParseProgram parses a whole file. Parsing stops at the first error.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{File: p.ctx.FilePath}
	program.Statements = p.parseStatements(token.EOF)
	return program
}

// parseStatements parses statements until the terminator token (EOF or '}').
// On return curToken is the terminator.
func (p *Parser) parseStatements(end token.TokenType) []ast.Statement {
	var stmts []ast.Statement
	for {
		p.skipNewlines()
		if p.curTokenIs(end) {
			return stmts
		}
		if p.curTokenIs(token.EOF) {
			p.addError("P003", p.curToken, "unexpected end of file, expected %s", end)
			return stmts
		}
		stmt := p.parseStatement()
		if len(p.ctx.Errors) > 0 {
			return stmts
		}
		stmts = append(stmts, stmt)
		// a statement ends at a newline, the terminator, or EOF
		p.nextToken()
		if !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(end) && !p.curTokenIs(token.EOF) {
			p.addError("P004", p.curToken, "unexpected %s after statement", describe(p.curToken))
			return stmts
		}
	}
}

// parseStatement leaves curToken on the statement's last token.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LET:
		return p.parseLetStatement()
	case token.CONST:
		return p.parseConstStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.LPAREN:
		return p.parseFnVarsStatement()
	case token.IDENT:
		if p.peekTokenIs(token.ASSIGN) {
			return p.parseAssignStatement()
		}
	}
	p.addError("P001", p.curToken, "unexpected %s at start of statement", describe(p.curToken))
	return nil
}

func (p *Parser) parseLetStatement() ast.Statement {
	stmt := &ast.LetStatement{Token: p.curToken, IsLet: true}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseAssignStatement() ast.Statement {
	stmt := &ast.LetStatement{Token: p.curToken}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	p.nextToken() // =
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseConstStatement() ast.Statement {
	stmt := &ast.ConstStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatements(token.RBRACE)
	return stmt
}

// parseFnVarsStatement parses the parameter list: (a, b, c)
func (p *Parser) parseFnVarsStatement() ast.Statement {
	stmt := &ast.FnVarsStatement{Token: p.curToken}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return stmt
	}
	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		stmt.Names = append(stmt.Names, &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme})
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return stmt
	}
}
