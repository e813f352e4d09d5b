package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Project represents the ash.yaml project file.
type Project struct {
	// Entry is the path to the entry source file (e.g. "src/main.ash").
	Entry string `yaml:"entry"`

	// Include lists files and directories registered before compiling.
	// Directories are walked recursively; only .ash and .tasm files are used.
	Include []string `yaml:"include,omitempty"`

	// Output is the path the assembly artifact is written to.
	// Empty means stdout.
	Output string `yaml:"output,omitempty"`

	// PrintAsm echoes the artifact to stdout after a successful compile.
	PrintAsm bool `yaml:"print_asm,omitempty"`

	// NamePolicy decides what happens when two included files share a stem.
	// "reject" (default) fails the include, "shadow" keeps the last one.
	NamePolicy string `yaml:"name_policy,omitempty"`

	// Cache is an optional sqlite database used to reuse artifacts for
	// unchanged sources.
	Cache string `yaml:"cache,omitempty"`

	// Dir is the directory containing the project file. Not read from yaml.
	Dir string `yaml:"-"`
}

// LoadProject reads and parses an ash.yaml file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseProject(data, path)
}

// ParseProject parses ash.yaml content from bytes.
// The path argument is used for error messages and to resolve relative paths.
func ParseProject(data []byte, path string) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	p.Dir = filepath.Dir(path)
	if err := p.validate(path); err != nil {
		return nil, err
	}
	p.setDefaults()
	return &p, nil
}

// FindProject searches for ash.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the project file, or empty string and nil error if not found.
func FindProject(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ProjectFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// validate checks the project file for semantic errors.
func (p *Project) validate(path string) error {
	if p.Entry == "" {
		return fmt.Errorf("%s: entry is required", path)
	}
	if filepath.Ext(p.Entry) != SourceFileExt {
		return fmt.Errorf("%s: entry %q must be a %s file", path, p.Entry, SourceFileExt)
	}

	switch p.NamePolicy {
	case "", NamePolicyReject, NamePolicyShadow:
	default:
		return fmt.Errorf("%s: name_policy %q: expected %q or %q",
			path, p.NamePolicy, NamePolicyReject, NamePolicyShadow)
	}

	seen := make(map[string]bool)
	for i, inc := range p.Include {
		if inc == "" {
			return fmt.Errorf("%s: include[%d]: empty path", path, i)
		}
		if seen[inc] {
			return fmt.Errorf("%s: include[%d]: %q listed twice", path, i, inc)
		}
		seen[inc] = true
	}

	return nil
}

// setDefaults fills in default values for omitted fields.
func (p *Project) setDefaults() {
	if p.NamePolicy == "" {
		p.NamePolicy = NamePolicyReject
	}
	if len(p.Include) == 0 {
		// Without includes, the entry's own directory is the source tree
		p.Include = []string{filepath.Dir(p.Entry)}
	}
}

// Resolve returns path relative to the project directory, unless it is absolute.
func (p *Project) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}

// EntryPath returns the resolved entry file path.
func (p *Project) EntryPath() string {
	return p.Resolve(p.Entry)
}

// IncludePaths returns the resolved include paths.
func (p *Project) IncludePaths() []string {
	paths := make([]string, 0, len(p.Include))
	for _, inc := range p.Include {
		paths = append(paths, p.Resolve(inc))
	}
	return paths
}
