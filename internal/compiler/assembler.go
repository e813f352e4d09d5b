package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ashlang/ashc/internal/config"
)

// assemble joins the entry body, the specialized functions, the deferred
// blocks and the builtins, in that order.
func (c *Compiler) assemble(entry []string, functions [][]string) string {
	lines := make([]string, 0, len(entry)+1)
	lines = append(lines, entry...)
	lines = append(lines, config.HaltInstr)

	for _, fn := range functions {
		lines = append(lines, "")
		lines = append(lines, fn...)
	}
	for _, block := range c.blocks {
		lines = append(lines, "")
		lines = append(lines, block...)
	}

	builtins := Builtins()
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, "")
		lines = append(lines, builtins[name].Asm...)
	}

	text := strings.Join(lines, "\n")
	if c.opts.PrintAsm {
		fmt.Fprintln(c.opts.Out, text)
	}
	return text
}
