package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ashlang/ashc/internal/asm"
	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/config"
	"github.com/ashlang/ashc/internal/parser"
)

// buildClosure resolves every name reachable from the entry. Each name is
// parsed exactly once; the loop ends when no discovered name is unresolved.
func (c *Compiler) buildClosure(entry string, program *ast.Program, callees map[string]uint64) error {
	c.discovered[entry] += 0
	c.asts[entry] = program
	c.callGraph[entry] = callees
	c.tally(callees)
	for name := range Builtins() {
		c.discovered[name] += 0
		c.asts[name] = &ast.Program{}
	}

	for {
		pending := c.pending()
		if len(pending) == 0 {
			return c.checkRecursion(entry)
		}
		for _, name := range pending {
			path, ok := c.fnToPath[name]
			if !ok {
				return fmt.Errorf("function not present in sources: %s", name)
			}
			if filepath.Ext(path) == config.AsmFileExt {
				module, err := c.loadModule(name, path)
				if err != nil {
					return err
				}
				c.modules[name] = module
				continue
			}
			program, callees, err := c.parseFile(path)
			if err != nil {
				return err
			}
			c.tally(callees)
			c.callGraph[name] = callees
			c.asts[name] = program
		}
	}
}

// checkRecursion fails on the first cycle among the functions reachable
// from entry. Calls inside if bodies count.
func (c *Compiler) checkRecursion(entry string) error {
	const (
		visiting = 1
		visited  = 2
	)
	state := make(map[string]int)
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			start := 0
			for i, n := range path {
				if n == name {
					start = i
				}
			}
			cycle := append(append([]string(nil), path[start:]...), name)
			return fmt.Errorf("recursive call to %s is not supported: %s", name, strings.Join(cycle, " -> "))
		}
		state[name] = visiting
		path = append(path, name)
		for _, callee := range sortedKeys(c.callGraph[name]) {
			if err := visit(callee); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = visited
		return nil
	}
	return visit(entry)
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Compiler) tally(callees map[string]uint64) {
	for name, count := range callees {
		c.discovered[name] += count
	}
}

func (c *Compiler) resolved(name string) bool {
	if _, ok := c.asts[name]; ok {
		return true
	}
	_, ok := c.modules[name]
	return ok
}

// pending lists discovered names without a cached AST or module, sorted so
// that errors are reported in a stable order.
func (c *Compiler) pending() []string {
	var names []string
	for name := range c.discovered {
		if !c.resolved(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *Compiler) parseFile(path string) (*ast.Program, map[string]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source file %s: %w", path, err)
	}
	return parser.ParseSource(string(data), path)
}

func (c *Compiler) loadModule(name, path string) (*asm.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assembly module %s: %w", path, err)
	}
	module, err := asm.Parse(string(data), name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return module, nil
}
