// Package types defines the argument-type descriptors and call signatures
// that key function specialization.
package types

import (
	"math/big"
	"strconv"
	"strings"
)

// VarLocation says where a value lives at run time.
type VarLocation int

const (
	// Stack values occupy one operand stack slot.
	Stack VarLocation = iota
	// Memory values live in RAM; their stack slot holds the base address.
	Memory
)

func (l VarLocation) String() string {
	if l == Memory {
		return "memory"
	}
	return "stack"
}

// ArgType describes one argument or return value.
type ArgType struct {
	Location   VarLocation
	Dimensions []int
	// Value is set for scalars known at compile time.
	Value *big.Int
}

// Scalar returns a stack-resident scalar descriptor.
func Scalar() ArgType {
	return ArgType{Location: Stack}
}

// Shaped returns a memory-resident descriptor with the given dimensions.
func Shaped(dims ...int) ArgType {
	return ArgType{Location: Memory, Dimensions: append([]int(nil), dims...)}
}

// Constant returns a scalar descriptor carrying a compile-time value.
func Constant(v *big.Int) ArgType {
	return ArgType{Location: Stack, Value: new(big.Int).Set(v)}
}

// IsScalar reports whether the value is a single field element.
func (t ArgType) IsScalar() bool {
	return t.Location == Stack
}

// Size is the number of field elements the value spans in memory.
func (t ArgType) Size() int {
	n := 1
	for _, d := range t.Dimensions {
		n *= d
	}
	return n
}

// SameShape compares location and dimensions, ignoring compile-time values.
func (t ArgType) SameShape(o ArgType) bool {
	if t.Location != o.Location || len(t.Dimensions) != len(o.Dimensions) {
		return false
	}
	for i := range t.Dimensions {
		if t.Dimensions[i] != o.Dimensions[i] {
			return false
		}
	}
	return true
}

// Code is the short form used in derived subroutine names:
// "s" scalar, "c<value>" constant, "m2x3" memory with dimensions.
func (t ArgType) Code() string {
	if t.Location == Memory {
		dims := make([]string, len(t.Dimensions))
		for i, d := range t.Dimensions {
			dims[i] = strconv.Itoa(d)
		}
		return "m" + strings.Join(dims, "x")
	}
	if t.Value != nil {
		return "c" + t.Value.String()
	}
	return "s"
}

func (t ArgType) String() string {
	if t.Location == Memory {
		dims := make([]string, len(t.Dimensions))
		for i, d := range t.Dimensions {
			dims[i] = strconv.Itoa(d)
		}
		return "[" + strings.Join(dims, ", ") + "]"
	}
	if t.Value != nil {
		return "Field(" + t.Value.String() + ")"
	}
	return "Field"
}

// CallKey is the comparable identity of a call signature.
type CallKey string

// FnCall is a call signature: a function name and its ordered argument types.
// Two calls with the same name and structurally equal arguments share one
// specialization. ReturnType is not part of the identity.
type FnCall struct {
	Name       string
	ArgTypes   []ArgType
	ReturnType *ArgType
}

// Key returns the structural identity of the signature.
func (c FnCall) Key() CallKey {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('(')
	for i, t := range c.ArgTypes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.Code())
	}
	b.WriteByte(')')
	return CallKey(b.String())
}

// Equal reports whether both signatures select the same specialization.
func (c FnCall) Equal(o FnCall) bool {
	return c.Key() == o.Key()
}

// TypedName derives the subroutine label for this signature.
func (c FnCall) TypedName() string {
	codes := make([]string, len(c.ArgTypes))
	for i, t := range c.ArgTypes {
		codes[i] = t.Code()
	}
	return c.Name + "__" + strings.Join(codes, "_")
}

func (c FnCall) String() string {
	args := make([]string, len(c.ArgTypes))
	for i, t := range c.ArgTypes {
		args[i] = t.String()
	}
	s := c.Name + "(" + strings.Join(args, ", ") + ")"
	if c.ReturnType != nil {
		s += " -> " + c.ReturnType.String()
	}
	return s
}
