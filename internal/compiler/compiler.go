// Package compiler turns a tree of ash sources into one assembly artifact.
//
// A compilation runs in fixed passes: the call-graph closure parses every
// function reachable from the entry, the entry body is lowered, then every
// call signature observed during lowering is specialized into its own
// subroutine until no new signatures appear. Conditional bodies are lifted
// into deferred blocks along the way. The assembler joins the pieces.
package compiler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashlang/ashc/internal/asm"
	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/config"
	"github.com/ashlang/ashc/internal/types"
	"github.com/ashlang/ashc/internal/vm"
)

// Options configure a Compiler.
type Options struct {
	// NamePolicy decides what happens when two included files share a stem:
	// config.NamePolicyReject (default) or config.NamePolicyShadow.
	NamePolicy string
	// PrintAsm echoes every artifact to Out.
	PrintAsm bool
	Out      io.Writer
}

// signature is one entry of the signature tally.
type signature struct {
	call  types.FnCall
	count uint64
}

// Compiler owns all state of a compilation. It is not safe for concurrent
// use; concurrent builds need their own instances.
type Compiler struct {
	opts Options

	// registered include tree, survives across Compile calls
	fnToPath map[string]string
	pathToFn map[string]string

	// per compilation
	asts       map[string]*ast.Program
	modules    map[string]*asm.Module
	discovered map[string]uint64
	callGraph  map[string]map[string]uint64
	signatures map[types.CallKey]*signature
	order      []types.CallKey
	compiled   map[types.CallKey]bool
	memory     uint64
	blockCount int
	blocks     [][]string
	claims     []vm.Region
	env        *vm.Env
}

// New creates a compiler with an empty include tree.
func New(opts Options) *Compiler {
	if opts.NamePolicy == "" {
		opts.NamePolicy = config.NamePolicyReject
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Compiler{
		opts:     opts,
		fnToPath: make(map[string]string),
		pathToFn: make(map[string]string),
	}
}

func (c *Compiler) reset() {
	c.asts = make(map[string]*ast.Program)
	c.modules = make(map[string]*asm.Module)
	c.discovered = make(map[string]uint64)
	c.callGraph = make(map[string]map[string]uint64)
	c.signatures = make(map[types.CallKey]*signature)
	c.order = nil
	c.compiled = make(map[types.CallKey]bool)
	c.memory = 0
	c.blockCount = 0
	c.blocks = nil
	c.claims = nil
	c.env = nil
}

// Compile builds the program whose entry function lives in the given file.
// The entry file is included automatically; every other function must be
// reachable through earlier Include calls. On error no artifact is returned.
func (c *Compiler) Compile(entry string) (string, error) {
	c.reset()

	if filepath.Ext(entry) != config.SourceFileExt {
		return "", fmt.Errorf("entry %s is not a %s file", entry, config.SourceFileExt)
	}
	if err := c.Include(entry); err != nil {
		return "", err
	}
	name := stem(entry)

	program, callees, err := c.parseFile(c.fnToPath[name])
	if err != nil {
		return "", err
	}
	if err := c.buildClosure(name, program, callees); err != nil {
		return "", err
	}

	c.env = vm.NewEnv(&c.memory, c.asts, c.modules, builtinSignatures())
	main, err := c.lower(program.Statements, nil, types.FnCall{Name: name})
	if err != nil {
		return "", fmt.Errorf("%s: %w", entry, err)
	}

	functions, err := c.specialize()
	if err != nil {
		return "", err
	}
	return c.assemble(main.Asm, functions), nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
