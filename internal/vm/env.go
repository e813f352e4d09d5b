package vm

import (
	"fmt"

	"github.com/ashlang/ashc/internal/asm"
	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/types"
)

// Env is the state shared by every codegen context of one compilation.
// It is owned by the compiler and never shared between compilations.
type Env struct {
	// Memory is the watermark: the next free memory address. Contexts only
	// ever advance it, so regions claimed by different contexts never overlap.
	Memory *uint64

	// Functions is the AST cache, read-only during codegen.
	Functions map[string]*ast.Program
	// Modules holds the typed assembly modules by name.
	Modules map[string]*asm.Module
	// Builtins maps reserved names to their declared signature.
	Builtins map[string]types.FnCall

	returns   map[types.CallKey]*types.ArgType
	inferring map[types.CallKey]bool
}

// NewEnv binds a shared environment to the compiler-owned watermark and tables.
func NewEnv(memory *uint64, functions map[string]*ast.Program, modules map[string]*asm.Module, builtins map[string]types.FnCall) *Env {
	return &Env{
		Memory:    memory,
		Functions: functions,
		Modules:   modules,
		Builtins:  builtins,
		returns:   make(map[types.CallKey]*types.ArgType),
		inferring: make(map[types.CallKey]bool),
	}
}

// ArityError reports a parameter list that does not match the call signature.
func ArityError(name string, expected, got int) error {
	return fmt.Errorf("function %s: argument count mismatch: expected %d, got %d", name, expected, got)
}

// returnType infers what a source function returns when called with the
// given signature. It lowers the body once into a scratch context with its own
// watermark, so nothing is claimed and no code or calls escape. Results are
// cached per signature; a signature that is reached again while it is being
// inferred means the function recurses.
func (e *Env) returnType(call types.FnCall) (*types.ArgType, error) {
	key := call.Key()
	if ret, ok := e.returns[key]; ok {
		return ret, nil
	}
	if e.inferring[key] {
		return nil, fmt.Errorf("recursive call to %s is not supported", call.Name)
	}
	program, ok := e.Functions[call.Name]
	if !ok {
		return nil, fmt.Errorf("function not present in sources: %s", call.Name)
	}

	e.inferring[key] = true
	defer delete(e.inferring, key)

	var scratch uint64
	sub := *e
	sub.Memory = &scratch
	ctx := New(&sub, call)

	sawParams := false
	for _, stmt := range program.Statements {
		if ctx.Returned() {
			break
		}
		var err error
		switch s := stmt.(type) {
		case *ast.FnVarsStatement:
			if len(s.Names) != len(call.ArgTypes) {
				return nil, ArityError(call.Name, len(call.ArgTypes), len(s.Names))
			}
			sawParams = true
			err = ctx.BindParams(s.Names, call.ArgTypes, Assigned(program.Statements))
		case *ast.LetStatement:
			if s.IsLet {
				err = ctx.LetVar(s.Name, s.Value)
			} else {
				err = ctx.SetVar(s.Name, s.Value)
			}
		case *ast.ConstStatement:
			err = ctx.ConstVar(s.Name, s.Value)
		case *ast.ReturnStatement:
			err = ctx.ReturnExpr(s.Value)
		case *ast.IfStatement:
			// block bodies cannot change the type of anything outside them
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", call, err)
		}
	}
	if !sawParams && len(call.ArgTypes) > 0 {
		return nil, ArityError(call.Name, len(call.ArgTypes), 0)
	}

	ret := ctx.ReturnType()
	e.returns[key] = ret
	return ret, nil
}
