// Package asm reads hand-written typed assembly modules.
//
// A module starts with a type header naming its argument types and its
// return type, followed by one instruction per line:
//
//	# optional comments
//	(Field, [2, 2]) -> [4]
//	push 1
//	add
//
// Field is a scalar on the operand stack; a bracketed list of dimensions is
// a value in memory whose base address is passed on the stack. Instructions
// are opaque: each line is copied with its leading and trailing whitespace
// (indentation, CRLF endings) removed and the rest left as written.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ashlang/ashc/internal/types"
)

// ScalarMarker is the header spelling of a stack-resident scalar.
const ScalarMarker = "Field"

// Module is a parsed typed assembly module.
type Module struct {
	Call types.FnCall
	Asm  []string
}

// ParseError describes a malformed module. It is returned, never raised, so
// callers decide whether a bad module stops their build.
type ParseError struct {
	Module string
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Module, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Module, e.Msg)
}

// Parse reads module source. name becomes the signature's function name.
func Parse(source, name string) (*Module, error) {
	var (
		mod       *Module
		headerErr = func(line int, format string, args ...interface{}) error {
			return &ParseError{Module: name, Line: line, Msg: fmt.Sprintf(format, args...)}
		}
	)

	for i, raw := range strings.Split(source, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if mod != nil {
			mod.Asm = append(mod.Asm, line)
			continue
		}
		if !strings.HasPrefix(line, "(") {
			return nil, headerErr(lineNo, "no type header found, expected (args) -> return before %q", line)
		}
		call, err := parseHeader(line, name)
		if err != nil {
			return nil, headerErr(lineNo, "%s", err)
		}
		mod = &Module{Call: call}
	}

	if mod == nil {
		return nil, headerErr(0, "no type header found")
	}
	return mod, nil
}

// parseHeader parses "(d1, d2, ...) -> r".
func parseHeader(line, name string) (types.FnCall, error) {
	closing := matchingParen(line)
	if closing < 0 {
		return types.FnCall{}, fmt.Errorf("unterminated argument list in header %q", line)
	}
	argText := strings.TrimSpace(line[1:closing])
	rest := strings.TrimSpace(line[closing+1:])

	var descriptors []types.ArgType
	for _, part := range splitTopLevel(argText) {
		t, err := parseDescriptor(part)
		if err != nil {
			return types.FnCall{}, err
		}
		descriptors = append(descriptors, t)
	}

	if !strings.HasPrefix(rest, "->") {
		if len(descriptors) == 0 {
			return types.FnCall{}, fmt.Errorf("empty type header")
		}
		return types.FnCall{}, fmt.Errorf("missing return type, expected -> after %q", line[:closing+1])
	}
	retText := strings.TrimSpace(strings.TrimPrefix(rest, "->"))
	if retText == "" {
		return types.FnCall{}, fmt.Errorf("missing return type after ->")
	}
	ret, err := parseDescriptor(retText)
	if err != nil {
		return types.FnCall{}, err
	}

	return types.FnCall{Name: name, ArgTypes: descriptors, ReturnType: &ret}, nil
}

func parseDescriptor(text string) (types.ArgType, error) {
	text = strings.TrimSpace(text)
	if text == ScalarMarker {
		return types.Scalar(), nil
	}
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return types.ArgType{}, fmt.Errorf("unrecognized type %q, expected %s or [dims]", text, ScalarMarker)
	}
	inner := strings.TrimSpace(text[1 : len(text)-1])
	if inner == "" {
		return types.ArgType{}, fmt.Errorf("type %q has no dimensions", text)
	}
	var dims []int
	for _, part := range strings.Split(inner, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || d <= 0 {
			return types.ArgType{}, fmt.Errorf("invalid dimension %q in %q", strings.TrimSpace(part), text)
		}
		dims = append(dims, d)
	}
	return types.Shaped(dims...), nil
}

// matchingParen returns the index of the ')' closing the '(' at index 0.
func matchingParen(s string) int {
	depth := 0
	for i, ch := range s {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits on commas outside brackets.
func splitTopLevel(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	depth, start := 0, 0
	for i, ch := range s {
		switch ch {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
