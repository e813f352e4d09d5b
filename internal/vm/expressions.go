package vm

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/types"
)

var arithmetic = map[string][]string{
	"+": {"add"},
	"*": {"mul"},
	"-": {"push -1", "mul", "add"},
	"/": {"invert", "mul"},
}

// Eval lowers expr, leaving exactly one element on the stack: the value of
// a scalar, or the base address of a value in memory.
func (c *Context) Eval(expr ast.Expression) (types.ArgType, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		c.push(reduce(e.Value))
		return types.Scalar(), nil

	case *ast.Identifier:
		v, ok := c.lookup(e.Value)
		if !ok {
			return types.ArgType{}, fmt.Errorf("line %d: undefined variable %s", e.Token.Line, e.Value)
		}
		if v.Const != nil {
			c.push(v.Const)
			return types.Scalar(), nil
		}
		if err := c.dup(v.slot); err != nil {
			return types.ArgType{}, fmt.Errorf("line %d: %w", e.Token.Line, err)
		}
		t := v.Type
		t.Value = nil
		return t, nil

	case *ast.VectorLiteral:
		return c.evalVector(e)

	case *ast.IndexExpression:
		return c.evalIndex(e)

	case *ast.CallExpression:
		return c.evalCall(e)

	case *ast.PrefixExpression:
		t, err := c.Eval(e.Right)
		if err != nil {
			return t, err
		}
		if !t.IsScalar() {
			return t, fmt.Errorf("line %d: cannot negate a value of type %s", e.Token.Line, t)
		}
		c.unary("push -1", "mul")
		return t, nil

	case *ast.InfixExpression:
		if e.IsComparison() {
			return types.ArgType{}, fmt.Errorf("line %d: comparison %s can only be used as an if condition", e.Token.Line, e)
		}
		return c.evalArithmetic(e)
	}
	return types.ArgType{}, fmt.Errorf("unsupported expression %T", expr)
}

// EvalCondition lowers an if guard, leaving a value that is zero when the
// guard does not hold.
func (c *Context) EvalCondition(expr ast.Expression) error {
	infix, ok := expr.(*ast.InfixExpression)
	if !ok || !infix.IsComparison() {
		t, err := c.Eval(expr)
		if err != nil {
			return err
		}
		if !t.IsScalar() {
			return fmt.Errorf("line %d: if condition has type %s, expected a scalar", expr.GetToken().Line, t)
		}
		return nil
	}

	if err := c.evalScalarOperands(infix); err != nil {
		return err
	}
	c.binary("eq")
	if infix.Operator == "!=" {
		c.emit("push 0", "eq")
	}
	return nil
}

func (c *Context) evalScalarOperands(e *ast.InfixExpression) error {
	for _, operand := range []ast.Expression{e.Left, e.Right} {
		t, err := c.Eval(operand)
		if err != nil {
			return err
		}
		if !t.IsScalar() {
			return fmt.Errorf("line %d: operand %s of %s has type %s, expected a scalar", e.Token.Line, operand, e.Operator, t)
		}
	}
	return nil
}

func (c *Context) evalArithmetic(e *ast.InfixExpression) (types.ArgType, error) {
	instr, ok := arithmetic[e.Operator]
	if !ok {
		return types.ArgType{}, fmt.Errorf("line %d: unknown operator %s", e.Token.Line, e.Operator)
	}
	lt, err := c.Eval(e.Left)
	if err != nil {
		return lt, err
	}
	rt, err := c.Eval(e.Right)
	if err != nil {
		return rt, err
	}
	if lt.IsScalar() && rt.IsScalar() {
		c.binary(instr...)
		return types.Scalar(), nil
	}
	if !lt.SameShape(rt) {
		return types.ArgType{}, fmt.Errorf("line %d: shape mismatch in %s: %s and %s", e.Token.Line, e, lt, rt)
	}
	return c.elementwise(lt, instr)
}

// elementwise applies instr to each pair of elements of the two vectors
// whose addresses are on top of the stack, writing into a new region.
func (c *Context) elementwise(t types.ArgType, instr []string) (types.ArgType, error) {
	right := c.top()
	left := c.stack[len(c.stack)-2]
	size := t.Size()
	out := c.alloc(size)

	for k := 0; k < size; k++ {
		for _, operand := range []*slot{left, right} {
			if err := c.dup(operand); err != nil {
				return t, err
			}
			c.loadAt(k)
		}
		c.binary(instr...)
		c.store(out + uint64(k))
	}
	c.pop(2)
	c.pushAddr(out)
	return types.Shaped(t.Dimensions...), nil
}

// loadAt replaces the address on top of the stack with the element at
// offset k from it.
func (c *Context) loadAt(k int) {
	if k > 0 {
		c.emit("push "+strconv.Itoa(k), "add")
	}
	c.read()
}

// read replaces the address on top of the stack with the value stored there.
func (c *Context) read() {
	c.emit("read_mem 1", "pop 1")
}

// store writes the value on top of the stack to addr and consumes it.
func (c *Context) store(addr uint64) {
	c.emit("push "+strconv.FormatUint(addr, 10), "write_mem 1", "pop 1")
	c.popModel(1)
}

func (c *Context) evalVector(v *ast.VectorLiteral) (types.ArgType, error) {
	dims, leaves, err := vectorShape(v)
	if err != nil {
		return types.ArgType{}, fmt.Errorf("line %d: %w", v.Token.Line, err)
	}
	base := c.alloc(len(leaves))
	for k, leaf := range leaves {
		t, err := c.Eval(leaf)
		if err != nil {
			return t, err
		}
		if !t.IsScalar() {
			return t, fmt.Errorf("line %d: vector element %s has type %s, expected a scalar", v.Token.Line, leaf, t)
		}
		c.store(base + uint64(k))
	}
	c.pushAddr(base)
	return types.Shaped(dims...), nil
}

// vectorShape returns the dimensions of a vector literal and its scalar
// leaves in row-major order.
func vectorShape(expr ast.Expression) ([]int, []ast.Expression, error) {
	v, ok := expr.(*ast.VectorLiteral)
	if !ok {
		return nil, []ast.Expression{expr}, nil
	}
	var (
		inner  []int
		leaves []ast.Expression
	)
	for i, el := range v.Elements {
		dims, l, err := vectorShape(el)
		if err != nil {
			return nil, nil, err
		}
		if i > 0 && !sameDims(dims, inner) {
			return nil, nil, fmt.Errorf("vector literal %s has inconsistent shape", v)
		}
		inner = dims
		leaves = append(leaves, l...)
	}
	return append([]int{len(v.Elements)}, inner...), leaves, nil
}

func sameDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Context) evalIndex(e *ast.IndexExpression) (types.ArgType, error) {
	// v[i][j] nests as Index(Index(v, i), j); unwind to the base
	var indices []ast.Expression
	var base ast.Expression = e
	for {
		ie, ok := base.(*ast.IndexExpression)
		if !ok {
			break
		}
		indices = append([]ast.Expression{ie.Index}, indices...)
		base = ie.Left
	}

	t, err := c.Eval(base)
	if err != nil {
		return t, err
	}
	if t.Location != types.Memory {
		return t, fmt.Errorf("line %d: cannot index %s of type %s", e.Token.Line, base, t)
	}
	if len(indices) > len(t.Dimensions) {
		return t, fmt.Errorf("line %d: too many indices for %s of type %s", e.Token.Line, base, t)
	}

	dims := t.Dimensions
	for _, index := range indices {
		stride := types.Shaped(dims[1:]...).Size()
		if k, err := c.constEval(index); err == nil {
			if !k.IsInt64() || k.Int64() >= int64(dims[0]) {
				return t, fmt.Errorf("line %d: index %s out of bounds for dimension %d", e.Token.Line, k, dims[0])
			}
			if offset := int(k.Int64()) * stride; offset > 0 {
				c.unary("push "+strconv.Itoa(offset), "add")
			}
		} else {
			it, err := c.Eval(index)
			if err != nil {
				return it, err
			}
			if !it.IsScalar() {
				return it, fmt.Errorf("line %d: index %s has type %s, expected a scalar", e.Token.Line, index, it)
			}
			if stride > 1 {
				c.unary("push "+strconv.Itoa(stride), "mul")
			}
			c.binary("add")
		}
		dims = dims[1:]
	}

	if len(dims) == 0 {
		c.read()
		return types.Scalar(), nil
	}
	return types.Shaped(dims...), nil
}

func (c *Context) evalCall(call *ast.CallExpression) (types.ArgType, error) {
	name := call.Function
	line := call.Token.Line
	fc := types.FnCall{Name: name}
	var ret *types.ArgType
	label := ""

	switch {
	case c.isBuiltin(name):
		sig := c.env.Builtins[name]
		if err := c.evalArgs(call, &fc, false); err != nil {
			return types.ArgType{}, err
		}
		if err := checkArgs(sig, fc); err != nil {
			return types.ArgType{}, fmt.Errorf("line %d: %w", line, err)
		}
		ret = sig.ReturnType
		label = name

	case c.env.Modules[name] != nil:
		sig := c.env.Modules[name].Call
		if err := c.evalArgs(call, &fc, false); err != nil {
			return types.ArgType{}, err
		}
		if err := checkArgs(sig, fc); err != nil {
			return types.ArgType{}, fmt.Errorf("line %d: %w", line, err)
		}
		ret = sig.ReturnType
		label = fc.TypedName()

	case c.env.Functions[name] != nil:
		if err := c.evalArgs(call, &fc, true); err != nil {
			return types.ArgType{}, err
		}
		var err error
		ret, err = c.env.returnType(fc)
		if err != nil {
			return types.ArgType{}, fmt.Errorf("line %d: %w", line, err)
		}
		label = fc.TypedName()

	default:
		return types.ArgType{}, fmt.Errorf("line %d: function not present in sources: %s", line, name)
	}

	if ret == nil {
		return types.ArgType{}, fmt.Errorf("line %d: %s does not return a value", line, fc)
	}

	c.emit("call " + label)
	pushed := 0
	for _, t := range fc.ArgTypes {
		if t.Value == nil {
			pushed++
		}
	}
	c.popModel(pushed)
	c.stack = append(c.stack, &slot{})

	fc.ReturnType = ret
	c.recordCall(fc)
	return *ret, nil
}

func (c *Context) isBuiltin(name string) bool {
	_, ok := c.env.Builtins[name]
	return ok
}

// evalArgs pushes the call's arguments in order and records their types.
// With constArgs, arguments known at compile time are not pushed; their
// value becomes part of the signature.
func (c *Context) evalArgs(call *ast.CallExpression, fc *types.FnCall, constArgs bool) error {
	for _, arg := range call.Arguments {
		if constArgs {
			if v, err := c.constEval(arg); err == nil {
				fc.ArgTypes = append(fc.ArgTypes, types.Constant(v))
				continue
			}
		}
		t, err := c.Eval(arg)
		if err != nil {
			return err
		}
		fc.ArgTypes = append(fc.ArgTypes, t)
	}
	return nil
}

// checkArgs compares observed argument types against a fixed signature.
func checkArgs(sig, got types.FnCall) error {
	if len(sig.ArgTypes) != len(got.ArgTypes) {
		return fmt.Errorf("%s expects %d arguments, got %d", sig.Name, len(sig.ArgTypes), len(got.ArgTypes))
	}
	for i := range sig.ArgTypes {
		if !sig.ArgTypes[i].SameShape(got.ArgTypes[i]) {
			return fmt.Errorf("argument %d of %s has type %s, expected %s (signature %s)",
				i+1, sig.Name, got.ArgTypes[i], sig.ArgTypes[i], sig)
		}
	}
	return nil
}

// constEval folds expr at compile time. It fails if expr uses anything other
// than literals and constants.
func (c *Context) constEval(expr ast.Expression) (*big.Int, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return reduce(e.Value), nil
	case *ast.Identifier:
		v, ok := c.lookup(e.Value)
		if !ok {
			return nil, fmt.Errorf("undefined variable %s", e.Value)
		}
		if v.Const == nil {
			return nil, fmt.Errorf("%s is not a constant", e.Value)
		}
		return v.Const, nil
	case *ast.PrefixExpression:
		v, err := c.constEval(e.Right)
		if err != nil {
			return nil, err
		}
		return fold("-", big.NewInt(0), v)
	case *ast.InfixExpression:
		if e.IsComparison() {
			return nil, fmt.Errorf("comparison %s is not a value", e)
		}
		l, err := c.constEval(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := c.constEval(e.Right)
		if err != nil {
			return nil, err
		}
		return fold(e.Operator, l, r)
	}
	return nil, fmt.Errorf("%s is not evaluable at compile time", expr)
}
