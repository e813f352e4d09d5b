package compiler

import (
	"fmt"
	"strconv"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/config"
	"github.com/ashlang/ashc/internal/types"
	"github.com/ashlang/ashc/internal/vm"
)

// lower lowers stmts into ctx, or into a fresh context for call when ctx is
// nil. Every signature the context called is merged into the tally.
func (c *Compiler) lower(stmts []ast.Statement, ctx *vm.Context, call types.FnCall) (*vm.Context, error) {
	if ctx == nil {
		ctx = vm.New(c.env, call)
	}

	sawParams := false
	for _, stmt := range stmts {
		line := stmt.GetToken().Line
		if ctx.Returned() {
			return nil, fmt.Errorf("line %d: statement after return", line)
		}

		var err error
		switch s := stmt.(type) {
		case *ast.LetStatement:
			if s.IsLet {
				err = ctx.LetVar(s.Name, s.Value)
			} else {
				err = ctx.SetVar(s.Name, s.Value)
			}
		case *ast.FnVarsStatement:
			if ctx.InBlock() {
				return nil, fmt.Errorf("line %d: parameter list is only allowed at function level", line)
			}
			if sawParams {
				return nil, fmt.Errorf("line %d: duplicate parameter list", line)
			}
			if len(s.Names) != len(call.ArgTypes) {
				return nil, vm.ArityError(call.Name, len(call.ArgTypes), len(s.Names))
			}
			sawParams = true
			err = ctx.BindParams(s.Names, call.ArgTypes, vm.Assigned(stmts))
		case *ast.ReturnStatement:
			err = ctx.ReturnExpr(s.Value)
		case *ast.ConstStatement:
			err = ctx.ConstVar(s.Name, s.Value)
		case *ast.IfStatement:
			err = c.lowerBlock(ctx, s)
		default:
			return nil, fmt.Errorf("internal error: unknown statement %T", stmt)
		}
		if err != nil {
			return nil, err
		}
	}

	if !ctx.InBlock() && !sawParams && len(call.ArgTypes) > 0 {
		return nil, vm.ArityError(call.Name, len(call.ArgTypes), 0)
	}
	c.collect(ctx)
	return ctx, nil
}

// lowerBlock lifts an if body into a deferred block and emits the
// conditional call to it.
func (c *Compiler) lowerBlock(ctx *vm.Context, s *ast.IfStatement) error {
	if err := ctx.EvalCondition(s.Condition); err != nil {
		return err
	}
	label := config.BlockLabelPrefix + strconv.Itoa(c.blockCount)
	c.blockCount++
	ctx.CallBlock(label)

	// reserve the slot so blocks keep label order when bodies nest
	slot := len(c.blocks)
	c.blocks = append(c.blocks, nil)

	child := ctx.Fork()
	child.BeginBlock()
	if _, err := c.lower(s.Body, child, ctx.Call()); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	child.EndBlock()

	block := make([]string, 0, len(child.Asm)+2)
	block = append(block, label+":")
	block = append(block, child.Asm...)
	block = append(block, config.ReturnInstr)
	c.blocks[slot] = block
	return nil
}

// collect merges the calls a context made into the signature tally and
// keeps its memory claims.
func (c *Compiler) collect(ctx *vm.Context) {
	c.claims = append(c.claims, ctx.Claims()...)
	for _, rec := range ctx.Calls() {
		key := rec.Call.Key()
		if sig, ok := c.signatures[key]; ok {
			sig.count += rec.Count
			continue
		}
		c.signatures[key] = &signature{call: rec.Call, count: rec.Count}
		c.order = append(c.order, key)
	}
}
