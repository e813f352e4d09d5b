// Package vm is the codegen context: it lowers single statements and
// expressions into stack-machine assembly, tracks bindings and the shape of
// the operand stack, claims memory from the shared watermark, and records
// every call signature it emits.
package vm

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ashlang/ashc/internal/types"
)

// maxStackAccess is the deepest operand stack element dup and swap can reach.
const maxStackAccess = 15

// maxPop is the largest count a single pop instruction accepts.
const maxPop = 5

// slot is one operand stack element. Variables hold a pointer to their slot,
// so their depth is found by position, and a forked context sees the same
// slots as its parent.
type slot struct {
	name string
}

// Var is a binding visible to the context.
type Var struct {
	Name  string
	Type  types.ArgType
	Const *big.Int // non-nil for compile-time constants, which have no slot
	slot  *slot
}

// Region is a range of memory claimed by a context.
type Region struct {
	Start uint64
	Size  uint64
}

// CallRecord is a signature called by the context and how often.
type CallRecord struct {
	Call  types.FnCall
	Count uint64
}

// Context lowers one function body or one block body.
type Context struct {
	env    *Env
	parent *Context
	call   types.FnCall

	Asm []string

	stack []*slot
	scope map[string]*Var

	calls     []CallRecord
	callIndex map[types.CallKey]int
	claims    []Region

	blockBase  int
	returned   bool
	returnType *types.ArgType
}

// New creates a context for lowering the body of call.
func New(env *Env, call types.FnCall) *Context {
	return &Context{
		env:       env,
		call:      call,
		scope:     make(map[string]*Var),
		callIndex: make(map[types.CallKey]int),
	}
}

// Fork creates a context for a nested block. The child reads the parent's
// bindings and starts from a copy of its stack shape; it owns a new scope
// and its own code, calls and claims.
func (c *Context) Fork() *Context {
	child := New(c.env, c.call)
	child.parent = c
	child.stack = append([]*slot(nil), c.stack...)
	return child
}

// Call returns the signature being lowered.
func (c *Context) Call() types.FnCall { return c.call }

// InBlock reports whether the context lowers an if body.
func (c *Context) InBlock() bool { return c.parent != nil }

// Returned reports whether a return has been lowered.
func (c *Context) Returned() bool { return c.returned }

// ReturnType is the type of the returned value, or nil.
func (c *Context) ReturnType() *types.ArgType { return c.returnType }

// Calls returns the signatures this context emitted calls to, in first-seen order.
func (c *Context) Calls() []CallRecord {
	return append([]CallRecord(nil), c.calls...)
}

// Claims returns the memory regions this context allocated.
func (c *Context) Claims() []Region {
	return append([]Region(nil), c.claims...)
}

// StackHeight is the number of operand stack elements the context models.
func (c *Context) StackHeight() int { return len(c.stack) }

func (c *Context) lookup(name string) (*Var, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if v, ok := ctx.scope[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (c *Context) recordCall(call types.FnCall) {
	key := call.Key()
	if i, ok := c.callIndex[key]; ok {
		c.calls[i].Count++
		return
	}
	c.callIndex[key] = len(c.calls)
	c.calls = append(c.calls, CallRecord{Call: call, Count: 1})
}

// alloc claims size consecutive memory cells from the shared watermark.
func (c *Context) alloc(size int) uint64 {
	start := *c.env.Memory
	*c.env.Memory += uint64(size)
	c.claims = append(c.claims, Region{Start: start, Size: uint64(size)})
	return start
}

func (c *Context) emit(lines ...string) {
	c.Asm = append(c.Asm, lines...)
}

// push emits a constant and models one new temporary.
func (c *Context) push(v *big.Int) {
	c.emit("push " + v.String())
	c.stack = append(c.stack, &slot{})
}

func (c *Context) pushAddr(addr uint64) {
	c.emit("push " + strconv.FormatUint(addr, 10))
	c.stack = append(c.stack, &slot{})
}

// top returns the slot on top of the stack.
func (c *Context) top() *slot {
	return c.stack[len(c.stack)-1]
}

// depth returns the distance of s from the top of the stack (top is 0).
func (c *Context) depth(s *slot) (int, error) {
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i] == s {
			d := len(c.stack) - 1 - i
			if d > maxStackAccess {
				name := s.name
				if name == "" {
					name = "temporary"
				}
				return 0, fmt.Errorf("%s is too deep in the stack (depth %d, max %d)", name, d, maxStackAccess)
			}
			return d, nil
		}
	}
	return 0, fmt.Errorf("internal error: %q is not on the stack", s.name)
}

// dup copies s to the top of the stack.
func (c *Context) dup(s *slot) error {
	d, err := c.depth(s)
	if err != nil {
		return err
	}
	c.emit("dup " + strconv.Itoa(d))
	c.stack = append(c.stack, &slot{})
	return nil
}

// pop removes n elements from the top of the stack.
func (c *Context) pop(n int) {
	c.popModel(n)
	for n > 0 {
		k := n
		if k > maxPop {
			k = maxPop
		}
		c.emit("pop " + strconv.Itoa(k))
		n -= k
	}
}

// popModel drops n elements from the stack model without emitting code.
func (c *Context) popModel(n int) {
	c.stack = c.stack[:len(c.stack)-n]
}

// binary models an instruction that consumes two elements and produces one.
func (c *Context) binary(instr ...string) {
	c.emit(instr...)
	c.popModel(2)
	c.stack = append(c.stack, &slot{})
}

// unary models instructions that replace the top element.
func (c *Context) unary(instr ...string) {
	c.emit(instr...)
	c.popModel(1)
	c.stack = append(c.stack, &slot{})
}
