package vm_test

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"testing"

	"github.com/ashlang/ashc/internal/asm"
	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/parser"
	"github.com/ashlang/ashc/internal/types"
	"github.com/ashlang/ashc/internal/vm"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, _, err := parser.ParseSource(input, "test.ash")
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	return program
}

// newEnv builds an environment from function name to source text.
func newEnv(t *testing.T, memory *uint64, sources map[string]string) *vm.Env {
	t.Helper()
	functions := make(map[string]*ast.Program)
	for name, src := range sources {
		functions[name] = parse(t, src)
	}
	builtins := map[string]types.FnCall{
		"crash": {Name: "crash", ReturnType: &types.ArgType{}},
	}
	return vm.NewEnv(memory, functions, map[string]*asm.Module{}, builtins)
}

// run lowers straight-line statements into ctx.
func run(ctx *vm.Context, stmts []ast.Statement) error {
	for _, stmt := range stmts {
		var err error
		switch s := stmt.(type) {
		case *ast.FnVarsStatement:
			err = ctx.BindParams(s.Names, ctx.Call().ArgTypes, vm.Assigned(stmts))
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
		default:
			err = fmt.Errorf("unexpected statement %T", stmt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func lower(t *testing.T, env *vm.Env, call types.FnCall, input string) *vm.Context {
	t.Helper()
	ctx := vm.New(env, call)
	if err := run(ctx, parse(t, input).Statements); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	return ctx
}

func TestLowering(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{"literal", "let a = 5", []string{"push 5"}},
		{"add", "let a = 1 + 2", []string{"push 1", "push 2", "add"}},
		{"sub", "let a = 7 - 2", []string{"push 7", "push 2", "push -1", "mul", "add"}},
		{"div", "let a = 6 / 3", []string{"push 6", "push 3", "invert", "mul"}},
		{"reduce", "let a = 18446744069414584322", []string{"push 1"}},
		{"dup", "let a = 1\nlet b = a * a", []string{"push 1", "dup 0", "dup 1", "mul"}},
		{"set", "let a = 1\na = 5", []string{"push 1", "push 5", "swap 1", "pop 1"}},
		{"const", "const N = 2 * 3\nlet a = N", []string{"push 6"}},
		{"const negative", "const N = 0 - 1\nlet a = N", []string{"push 18446744069414584320"}},
		{"const division", "const N = 1 / 2\nlet a = N + N", []string{"push 9223372034707292161", "push 9223372034707292161", "add"}},
		{
			"vector",
			"let v = [1, 2]",
			[]string{"push 1", "push 0", "write_mem 1", "pop 1", "push 2", "push 1", "write_mem 1", "pop 1", "push 0"},
		},
		{
			"index",
			"let v = [[1, 2], [3, 4]]\nlet e = v[1][0]",
			[]string{
				"push 1", "push 0", "write_mem 1", "pop 1",
				"push 2", "push 1", "write_mem 1", "pop 1",
				"push 3", "push 2", "write_mem 1", "pop 1",
				"push 4", "push 3", "write_mem 1", "pop 1",
				"push 0",
				"dup 0", "push 2", "add", "read_mem 1", "pop 1",
			},
		},
		{
			"dynamic index",
			"let v = [1, 2]\nlet i = 1\nlet e = v[i]",
			[]string{
				"push 1", "push 0", "write_mem 1", "pop 1",
				"push 2", "push 1", "write_mem 1", "pop 1",
				"push 0", "push 1",
				"dup 1", "dup 1", "add", "read_mem 1", "pop 1",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var memory uint64
			ctx := lower(t, newEnv(t, &memory, nil), types.FnCall{Name: "main"}, tc.input)
			if !reflect.DeepEqual(ctx.Asm, tc.want) {
				t.Errorf("asm mismatch\n got: %q\nwant: %q", ctx.Asm, tc.want)
			}
		})
	}
}

func TestNegateParam(t *testing.T) {
	var memory uint64
	call := types.FnCall{Name: "neg", ArgTypes: []types.ArgType{types.Scalar()}}
	ctx := lower(t, newEnv(t, &memory, nil), call, "(x)\nreturn -x")
	want := []string{"dup 0", "push -1", "mul", "swap 1", "pop 1"}
	if !reflect.DeepEqual(ctx.Asm, want) {
		t.Errorf("asm mismatch\n got: %q\nwant: %q", ctx.Asm, want)
	}
	if rt := ctx.ReturnType(); rt == nil || !rt.IsScalar() {
		t.Errorf("expected scalar return, got %v", rt)
	}
	if ctx.StackHeight() != 1 {
		t.Errorf("expected only the return value on the stack, got %d", ctx.StackHeight())
	}
}

func TestElementwise(t *testing.T) {
	var memory uint64
	ctx := lower(t, newEnv(t, &memory, nil), types.FnCall{Name: "main"}, "let a = [1, 2]\nlet b = [3, 4]\nlet c = a + b")

	claims := ctx.Claims()
	want := []vm.Region{{Start: 0, Size: 2}, {Start: 2, Size: 2}, {Start: 4, Size: 2}}
	if !reflect.DeepEqual(claims, want) {
		t.Fatalf("claims: got %v, want %v", claims, want)
	}
	if memory != 6 {
		t.Errorf("watermark: got %d, want 6", memory)
	}
	tail := ctx.Asm[len(ctx.Asm)-2:]
	if !reflect.DeepEqual(tail, []string{"pop 2", "push 4"}) {
		t.Errorf("expected result address to replace the operands, got %q", tail)
	}
	if ctx.StackHeight() != 3 {
		t.Errorf("stack height: got %d, want 3", ctx.StackHeight())
	}
}

func TestCalls(t *testing.T) {
	var memory uint64
	env := newEnv(t, &memory, map[string]string{
		"double": "(x)\nlet y = x * 2\nreturn y",
		"sum":    "(v)\nreturn v[0] + v[1]",
	})
	ctx := lower(t, env, types.FnCall{Name: "main"}, strings.Join([]string{
		"let a = 3",
		"let b = double(a)",
		"let c = double(a)",
		"let d = double(7)",
		"let e = sum([1, 2])",
	}, "\n"))

	got := make(map[string]uint64)
	var order []string
	for _, rec := range ctx.Calls() {
		got[rec.Call.TypedName()] = rec.Count
		order = append(order, rec.Call.TypedName())
		if rec.Call.ReturnType == nil || !rec.Call.ReturnType.IsScalar() {
			t.Errorf("%s: expected scalar return type, got %v", rec.Call, rec.Call.ReturnType)
		}
	}
	wantOrder := []string{"double__s", "double__c7", "sum__m2"}
	if !reflect.DeepEqual(order, wantOrder) {
		t.Errorf("call order: got %v, want %v", order, wantOrder)
	}
	if got["double__s"] != 2 {
		t.Errorf("double__s count: got %d, want 2", got["double__s"])
	}

	// constant arguments are part of the signature and are not pushed
	asmText := strings.Join(ctx.Asm, "\n")
	if !strings.Contains(asmText, "call double__c7") {
		t.Errorf("expected call to constant specialization, got:\n%s", asmText)
	}
	if strings.Contains(asmText, "push 7") {
		t.Errorf("constant argument should not be pushed:\n%s", asmText)
	}
	// only main's vector literal claims memory; return type inference does not
	if memory != 2 {
		t.Errorf("watermark: got %d, want 2", memory)
	}
}

func TestBlockFork(t *testing.T) {
	var memory uint64
	ctx := lower(t, newEnv(t, &memory, nil), types.FnCall{Name: "main"}, "let a = 1")
	if err := ctx.EvalCondition(parse(t, "let x = a != 0").Statements[0].(*ast.LetStatement).Value); err != nil {
		t.Fatalf("condition: %v", err)
	}
	ctx.CallBlock("block_0")

	child := ctx.Fork()
	child.BeginBlock()
	if err := run(child, parse(t, "let b = a + 1\na = b").Statements); err != nil {
		t.Fatalf("block body: %v", err)
	}
	child.EndBlock()

	wantParent := []string{"push 1", "dup 0", "push 0", "eq", "push 0", "eq", "skiz", "call block_0"}
	if !reflect.DeepEqual(ctx.Asm, wantParent) {
		t.Errorf("parent asm\n got: %q\nwant: %q", ctx.Asm, wantParent)
	}
	wantChild := []string{"dup 0", "push 1", "add", "dup 0", "swap 2", "pop 1", "pop 1"}
	if !reflect.DeepEqual(child.Asm, wantChild) {
		t.Errorf("block asm\n got: %q\nwant: %q", child.Asm, wantChild)
	}
	if child.StackHeight() != ctx.StackHeight() {
		t.Errorf("block left %d elements, parent has %d", child.StackHeight(), ctx.StackHeight())
	}
}

func TestReturnIfNeeded(t *testing.T) {
	var memory uint64
	ctx := lower(t, newEnv(t, &memory, nil), types.FnCall{Name: "main"}, "let a = 1\nlet b = 2\nlet c = 3\nlet d = 4\nlet e = 5\nlet f = 6")
	ctx.ReturnIfNeeded()
	tail := ctx.Asm[len(ctx.Asm)-2:]
	if !reflect.DeepEqual(tail, []string{"pop 5", "pop 1"}) {
		t.Errorf("expected chunked pops, got %q", tail)
	}
	if ctx.StackHeight() != 0 || ctx.ReturnType() != nil {
		t.Errorf("expected empty frame and no return type")
	}
}

func TestLoweringErrors(t *testing.T) {
	deep := make([]string, 0, 18)
	for i := 0; i <= 16; i++ {
		deep = append(deep, fmt.Sprintf("let a%d = %d", i, i))
	}
	deep = append(deep, "let z = a0")

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"undefined", "let a = b", "undefined variable b"},
		{"redeclare", "let a = 1\nlet a = 2", "a is already declared"},
		{"assign undeclared", "a = 1", "assignment to undeclared variable a"},
		{"assign const", "const N = 1\nN = 2", "cannot assign to constant N"},
		{"shape change", "let a = 1\na = [1, 2]", "assignment changes the type of a"},
		{"const not constant", "let a = 1\nconst N = a + 1", "const N: a is not a constant"},
		{"const call", "const N = double(1)", "const N"},
		{"const division by zero", "const N = 1 / 0", "division by zero"},
		{"comparison value", "let a = 1 == 2", "can only be used as an if condition"},
		{"inconsistent vector", "let v = [[1, 2], [3]]", "inconsistent shape"},
		{"index scalar", "let a = 1\nlet b = a[0]", "cannot index a"},
		{"too many indices", "let v = [1, 2]\nlet b = v[0][0]", "too many indices"},
		{"out of bounds", "let v = [1, 2]\nlet b = v[2]", "out of bounds"},
		{"shape mismatch", "let a = [1, 2]\nlet b = [1, 2, 3]\nlet c = a + b", "shape mismatch"},
		{"unknown function", "let a = nope(1)", "function not present in sources: nope"},
		{"void call", "let a = noop()", "does not return a value"},
		{"arity", "let a = double(1, 2)", "argument count mismatch: expected 2, got 1"},
		{"no params", "let a = noop(1)", "function noop: argument count mismatch: expected 1, got 0"},
		{"recursion", "let a = 1\nlet b = loop(a)", "recursive call to loop is not supported"},
		{"too deep", strings.Join(deep, "\n"), "a0 is too deep in the stack"},
		{"double return", "return 1\nreturn 2", "returns twice"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var memory uint64
			env := newEnv(t, &memory, map[string]string{
				"double": "(x)\nreturn x * 2",
				"noop":   "let a = 1",
				"loop":   "(n)\nreturn loop(n)",
			})
			ctx := vm.New(env, types.FnCall{Name: "main"})
			err := run(ctx, parse(t, tc.input).Statements)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestConstantParams(t *testing.T) {
	var memory uint64
	call := types.FnCall{Name: "pow", ArgTypes: []types.ArgType{types.Scalar(), types.Constant(big.NewInt(3))}}
	ctx := lower(t, newEnv(t, &memory, nil), call, "(x, n)\nconst M = n * n\nreturn x * M")
	want := []string{"dup 0", "push 9", "mul", "swap 1", "pop 1"}
	if !reflect.DeepEqual(ctx.Asm, want) {
		t.Errorf("asm mismatch\n got: %q\nwant: %q", ctx.Asm, want)
	}
}

func TestAssignedConstantParam(t *testing.T) {
	var memory uint64
	body := "(x)\nx = x + 1\nreturn x"
	testCases := []struct {
		name string
		arg  types.ArgType
		want []string
	}{
		{"constant", types.Constant(big.NewInt(5)), []string{"push 5", "dup 0", "push 1", "add", "swap 1", "pop 1", "dup 0", "swap 1", "pop 1"}},
		{"scalar", types.Scalar(), []string{"dup 0", "push 1", "add", "swap 1", "pop 1", "dup 0", "swap 1", "pop 1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			call := types.FnCall{Name: "inc", ArgTypes: []types.ArgType{tc.arg}}
			ctx := lower(t, newEnv(t, &memory, nil), call, body)
			if !reflect.DeepEqual(ctx.Asm, tc.want) {
				t.Errorf("asm mismatch\n got: %q\nwant: %q", ctx.Asm, tc.want)
			}
			if ctx.StackHeight() != 1 {
				t.Errorf("expected only the return value on the stack, got height %d", ctx.StackHeight())
			}
		})
	}
}
