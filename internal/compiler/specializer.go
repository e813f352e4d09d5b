package compiler

import (
	"fmt"

	"github.com/ashlang/ashc/internal/config"
	"github.com/ashlang/ashc/internal/types"
)

// specialize compiles one subroutine per observed signature. The tally grows
// while subroutines are lowered, so the loop walks the ordered key list
// until every entry is compiled. Subroutines are returned in completion order.
func (c *Compiler) specialize() ([][]string, error) {
	var out [][]string
	builtins := Builtins()

	for i := 0; i < len(c.order); i++ {
		key := c.order[i]
		if c.compiled[key] {
			continue
		}
		call := c.signatures[key].call
		c.compiled[key] = true

		if _, ok := builtins[call.Name]; ok {
			continue
		}

		var body []string
		if module, ok := c.modules[call.Name]; ok {
			if !sameArgs(module.Call.ArgTypes, call.ArgTypes) {
				return nil, fmt.Errorf("typed assembly module %s declares %s but is called as %s", call.Name, module.Call, call)
			}
			body = module.Asm
		} else {
			program, ok := c.asts[call.Name]
			if !ok {
				return nil, fmt.Errorf("function not present in sources: %s", call.Name)
			}
			ctx, err := c.lower(program.Statements, nil, call)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", call, err)
			}
			ctx.ReturnIfNeeded()
			body = ctx.Asm
		}

		fn := make([]string, 0, len(body)+2)
		fn = append(fn, call.TypedName()+":")
		fn = append(fn, body...)
		fn = append(fn, config.ReturnInstr)
		out = append(out, fn)
	}
	return out, nil
}

func sameArgs(want, got []types.ArgType) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !want[i].SameShape(got[i]) {
			return false
		}
	}
	return true
}
