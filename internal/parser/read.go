package parser

import (
	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/lexer"
	"github.com/ashlang/ashc/internal/pipeline"
)

// ParseSource runs the lexer and parser stages over one file's text and
// returns the function body with its callee tally.
func ParseSource(source, path string) (*ast.Program, map[string]uint64, error) {
	ctx := &pipeline.PipelineContext{SourceCode: source, FilePath: path}
	ctx = pipeline.New(&lexer.LexerProcessor{}, &ParserProcessor{}).Run(ctx)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return ctx.AstRoot, ctx.Callees, nil
}
