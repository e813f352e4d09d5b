package vm

import (
	"fmt"
	"strconv"

	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/types"
)

func (c *Context) checkFree(name *ast.Identifier) error {
	if _, ok := c.lookup(name.Value); ok {
		return fmt.Errorf("line %d: %s is already declared", name.Token.Line, name.Value)
	}
	return nil
}

// LetVar introduces a new variable holding the value of expr.
func (c *Context) LetVar(name *ast.Identifier, expr ast.Expression) error {
	if err := c.checkFree(name); err != nil {
		return err
	}
	t, err := c.Eval(expr)
	if err != nil {
		return err
	}
	s := c.top()
	s.name = name.Value
	c.scope[name.Value] = &Var{Name: name.Value, Type: t, slot: s}
	return nil
}

// SetVar stores the value of expr into an existing variable. The new value
// must have the variable's shape.
func (c *Context) SetVar(name *ast.Identifier, expr ast.Expression) error {
	v, ok := c.lookup(name.Value)
	if !ok {
		return fmt.Errorf("line %d: assignment to undeclared variable %s", name.Token.Line, name.Value)
	}
	if v.Const != nil {
		return fmt.Errorf("line %d: cannot assign to constant %s", name.Token.Line, name.Value)
	}
	t, err := c.Eval(expr)
	if err != nil {
		return err
	}
	if !t.SameShape(v.Type) {
		return fmt.Errorf("line %d: assignment changes the type of %s from %s to %s", name.Token.Line, name.Value, v.Type, t)
	}
	d, err := c.depth(v.slot)
	if err != nil {
		return err
	}
	// swap the new value into place, then drop the old one
	c.emit("swap "+strconv.Itoa(d), "pop 1")
	c.popModel(1)
	return nil
}

// ConstVar declares a compile-time constant. The expression may only use
// literals and constants declared before it.
func (c *Context) ConstVar(name *ast.Identifier, expr ast.Expression) error {
	if err := c.checkFree(name); err != nil {
		return err
	}
	v, err := c.constEval(expr)
	if err != nil {
		return fmt.Errorf("line %d: const %s: %w", name.Token.Line, name.Value, err)
	}
	c.scope[name.Value] = &Var{Name: name.Value, Type: types.Constant(v), Const: v}
	return nil
}

// BindParams binds the parameter names, in order, to the signature's
// argument types. Arguments with a compile-time value become constants,
// unless the body assigns to the parameter: those get the value pushed into
// a slot of their own. The other arguments are already on the stack, pushed
// by the caller in order.
func (c *Context) BindParams(names []*ast.Identifier, args []types.ArgType, assigned map[string]bool) error {
	if c.InBlock() {
		return fmt.Errorf("parameter list is only allowed at function level")
	}
	if len(names) != len(args) {
		return ArityError(c.call.Name, len(args), len(names))
	}
	for i, name := range names {
		if err := c.checkFree(name); err != nil {
			return err
		}
		arg := args[i]
		if arg.Value != nil && !assigned[name.Value] {
			c.scope[name.Value] = &Var{Name: name.Value, Type: arg, Const: reduce(arg.Value)}
			continue
		}
		if arg.Value != nil {
			c.push(reduce(arg.Value))
			arg = types.Scalar()
		} else {
			c.stack = append(c.stack, &slot{})
		}
		s := c.top()
		s.name = name.Value
		c.scope[name.Value] = &Var{Name: name.Value, Type: arg, slot: s}
	}
	return nil
}

// Assigned returns the names that stmts assign to with a plain x = e,
// including inside if bodies.
func Assigned(stmts []ast.Statement) map[string]bool {
	names := make(map[string]bool)
	work := append([]ast.Statement(nil), stmts...)
	for len(work) > 0 {
		stmt := work[len(work)-1]
		work = work[:len(work)-1]
		switch s := stmt.(type) {
		case *ast.LetStatement:
			if !s.IsLet {
				names[s.Name.Value] = true
			}
		case *ast.IfStatement:
			work = append(work, s.Body...)
		}
	}
	return names
}

// ReturnExpr lowers the return value and clears the rest of the function's
// stack frame so the value is the only element left.
func (c *Context) ReturnExpr(expr ast.Expression) error {
	if c.InBlock() {
		return fmt.Errorf("return is not allowed inside an if block")
	}
	if c.returned {
		return fmt.Errorf("function %s returns twice", c.call.Name)
	}
	t, err := c.Eval(expr)
	if err != nil {
		return err
	}
	for n := len(c.stack) - 1; n > 0; n-- {
		c.emit("swap 1", "pop 1")
	}
	c.stack = c.stack[len(c.stack)-1:]
	t.Value = nil
	c.returnType = &t
	c.returned = true
	return nil
}

// ReturnIfNeeded clears the stack frame of a function that never returned a
// value. The caller appends the return instruction itself.
func (c *Context) ReturnIfNeeded() {
	if c.returned {
		return
	}
	c.pop(len(c.stack))
	c.returned = true
}

// CallBlock emits a call to label, taken only if the guard on top of the
// stack is non-zero. The guard is consumed.
func (c *Context) CallBlock(label string) {
	c.emit("skiz", "call "+label)
	c.popModel(1)
}

// BeginBlock marks the stack height at block entry.
func (c *Context) BeginBlock() {
	c.blockBase = len(c.stack)
}

// EndBlock drops the block's own variables so the stack is back to the shape
// it had when the block was called.
func (c *Context) EndBlock() {
	if n := len(c.stack) - c.blockBase; n > 0 {
		c.pop(n)
	}
}
