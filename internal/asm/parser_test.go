package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/ashlang/ashc/internal/types"
)

func TestParse(t *testing.T) {
	source := `# adds two scalars into a 4 element vector
(Field, Field) -> [4]
  push 4
write_mem 1
`
	mod, err := Parse(source, "pack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := mod.Call
	if call.Name != "pack" {
		t.Errorf("name = %q, want pack", call.Name)
	}
	if len(call.ArgTypes) != 2 {
		t.Fatalf("got %d args, want 2", len(call.ArgTypes))
	}
	for i, arg := range call.ArgTypes {
		if !arg.SameShape(types.Scalar()) {
			t.Errorf("arg %d = %s, want Field", i, arg)
		}
	}
	if call.ReturnType == nil || !call.ReturnType.SameShape(types.Shaped(4)) {
		t.Errorf("return = %v, want [4]", call.ReturnType)
	}

	want := []string{"push 4", "write_mem 1"}
	if len(mod.Asm) != len(want) {
		t.Fatalf("asm = %q, want %q", mod.Asm, want)
	}
	for i := range want {
		if mod.Asm[i] != want[i] {
			t.Errorf("asm[%d] = %q, want %q", i, mod.Asm[i], want[i])
		}
	}
}

func TestParseKeepsInstructionText(t *testing.T) {
	source := "(Field) -> Field\r\n\tpush  1   # one\r\n\r\nadd\r\n"
	mod, err := Parse(source, "inc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"push  1   # one", "add"}
	if strings.Join(mod.Asm, "|") != strings.Join(want, "|") {
		t.Errorf("asm = %q, want %q", mod.Asm, want)
	}
}

func TestParseHeaderForms(t *testing.T) {
	tests := []struct {
		header string
		args   []types.ArgType
		ret    types.ArgType
	}{
		{"() -> Field", nil, types.Scalar()},
		{"([2, 3]) -> Field", []types.ArgType{types.Shaped(2, 3)}, types.Scalar()},
		{"( [4] ,Field ) -> [2,2]", []types.ArgType{types.Shaped(4), types.Scalar()}, types.Shaped(2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			mod, err := Parse(tt.header+"\npop 1", "m")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(mod.Call.ArgTypes) != len(tt.args) {
				t.Fatalf("args = %v, want %v", mod.Call.ArgTypes, tt.args)
			}
			for i := range tt.args {
				if !mod.Call.ArgTypes[i].SameShape(tt.args[i]) {
					t.Errorf("arg %d = %s, want %s", i, mod.Call.ArgTypes[i], tt.args[i])
				}
			}
			if !mod.Call.ReturnType.SameShape(tt.ret) {
				t.Errorf("return = %s, want %s", mod.Call.ReturnType, tt.ret)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"no header", "push 1\nadd", "no type header found"},
		{"empty source", "# only a comment\n", "no type header found"},
		{"empty header", "()\npush 1", "empty type header"},
		{"missing return", "(Field, Field)\npush 1", "missing return type"},
		{"dangling arrow", "(Field) ->\npush 1", "missing return type"},
		{"bad descriptor", "(Felt) -> Field", "unrecognized type"},
		{"bad dimension", "([a]) -> Field", "invalid dimension"},
		{"zero dimension", "([0]) -> Field", "invalid dimension"},
		{"no dimensions", "([]) -> Field", "no dimensions"},
		{"unterminated", "(Field -> Field", "unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.source, "bad")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error is %T, want *ParseError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err.Error(), tt.want)
			}
		})
	}
}
