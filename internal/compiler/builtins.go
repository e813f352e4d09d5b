package compiler

import (
	"github.com/ashlang/ashc/internal/config"
	"github.com/ashlang/ashc/internal/types"
)

// Builtin is a reserved, file-less function with a fixed body.
type Builtin struct {
	Name    string
	Args    []types.ArgType
	Returns *types.ArgType
	Asm     []string
}

// Builtins returns the builtin registry. Source files may not use these names.
func Builtins() map[string]Builtin {
	scalar := types.Scalar()
	return map[string]Builtin{
		// only a label: execution falls off the end of the program without halting
		config.CrashFuncName: {
			Name:    config.CrashFuncName,
			Returns: &scalar,
			Asm:     []string{config.CrashFuncName + ":"},
		},
	}
}

func builtinSignatures() map[string]types.FnCall {
	sigs := make(map[string]types.FnCall)
	for name, b := range Builtins() {
		sigs[name] = types.FnCall{Name: name, ArgTypes: b.Args, ReturnType: b.Returns}
	}
	return sigs
}
