package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashlang/ashc/internal/config"
)

// Include registers the ash sources and typed assembly modules at path. A
// file is registered under its stem; files with other extensions are
// ignored. Directories are walked recursively in name order.
func (c *Compiler) Include(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat include path %s: %w", path, err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		for _, entry := range entries {
			if err := c.Include(filepath.Join(path, entry.Name())); err != nil {
				return err
			}
		}
		return nil
	}

	if !info.Mode().IsRegular() {
		return nil
	}
	switch filepath.Ext(path) {
	case config.SourceFileExt, config.AsmFileExt:
		return c.register(stem(path), absPath(path))
	}
	return nil
}

func (c *Compiler) register(name, path string) error {
	if _, ok := Builtins()[name]; ok {
		return fmt.Errorf("%s: %s is a reserved builtin name", path, name)
	}
	if existing, ok := c.fnToPath[name]; ok {
		if existing == path {
			return nil
		}
		if c.opts.NamePolicy != config.NamePolicyShadow {
			return fmt.Errorf("duplicate function name %s: %s and %s", name, existing, path)
		}
		delete(c.pathToFn, existing)
	}
	c.fnToPath[name] = path
	c.pathToFn[path] = name
	return nil
}

// Registered returns the path registered for a function name.
func (c *Compiler) Registered(name string) (string, bool) {
	path, ok := c.fnToPath[name]
	return path, ok
}
