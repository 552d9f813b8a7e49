package pyext

import (
	"fmt"
	"os"
	"path/filepath"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// DescriptorFileNames are the file names recognized as package descriptors,
// checked in order.
var DescriptorFileNames = []string{"pyext.yaml", "pyext.yml"}

// Descriptor declares everything the build needs to produce a package's
// native extension modules: the distributable's identity (name, version,
// description), the interpreter constraint, and one entry per extension
// module listing its sources and header search path.
//
// A Descriptor is inert configuration. Reading or copying it has no side
// effects; only the builders act on it.
type Descriptor struct {
	Name           string      `koanf:"name" yaml:"name"`
	Version        string      `koanf:"version" yaml:"version"`
	Description    string      `koanf:"description" yaml:"description,omitempty"`
	RequiresPython string      `koanf:"requires_python" yaml:"requires_python,omitempty"`
	ExtModules     []ExtModule `koanf:"ext_modules" yaml:"ext_modules"`
}

// ExtModule describes one native extension module.
//
// Sources and IncludeDirs are ordered: sources compile in the order given and
// include directories are passed to the compiler in the order given. Paths are
// relative to the descriptor's directory unless absolute.
//
// An empty IncludeDirs means the CPython header directory is resolved from the
// active interpreter at build time. A non-empty IncludeDirs is taken literally
// with no fallback.
type ExtModule struct {
	Name             string   `koanf:"name" yaml:"name"`
	Sources          []string `koanf:"sources" yaml:"sources"`
	IncludeDirs      []string `koanf:"include_dirs" yaml:"include_dirs,omitempty"`
	DefineMacros     []string `koanf:"define_macros" yaml:"define_macros,omitempty"`
	Libraries        []string `koanf:"libraries" yaml:"libraries,omitempty"`
	ExtraCompileArgs []string `koanf:"extra_compile_args" yaml:"extra_compile_args,omitempty"`
	ExtraLinkArgs    []string `koanf:"extra_link_args" yaml:"extra_link_args,omitempty"`
}

// LoadDescriptor reads and validates a descriptor from path.
func LoadDescriptor(path string) (*Descriptor, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading descriptor %s: %w", path, err)
	}

	var d Descriptor
	if err := k.Unmarshal("", &d); err != nil {
		return nil, fmt.Errorf("parsing descriptor %s: %w", path, err)
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor %s: %w", path, err)
	}

	return &d, nil
}

// FindDescriptor returns the path of the package descriptor in dir, trying
// each name in DescriptorFileNames. Returns an error when none exists.
func FindDescriptor(dir string) (string, error) {
	for _, name := range DescriptorFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no package descriptor (%v) in %s", DescriptorFileNames, dir)
}

// Validate checks the descriptor's structural invariants.
//
// A valid descriptor has a non-empty package name and version, at least one
// extension module, and every module has a unique non-empty name with at
// least one source file. Whether the listed files exist is a build-time
// question, not a validation one.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("package name must not be empty")
	}
	if d.Version == "" {
		return fmt.Errorf("package %s: version must not be empty", d.Name)
	}
	if d.RequiresPython != "" {
		if _, err := ParseVersionConstraint(d.RequiresPython); err != nil {
			return fmt.Errorf("package %s: %w", d.Name, err)
		}
	}
	if len(d.ExtModules) == 0 {
		return fmt.Errorf("package %s: no extension modules declared", d.Name)
	}

	seen := make(map[string]struct{}, len(d.ExtModules))
	for i, mod := range d.ExtModules {
		if mod.Name == "" {
			return fmt.Errorf("package %s: ext_modules[%d]: module name must not be empty", d.Name, i)
		}
		if _, dup := seen[mod.Name]; dup {
			return fmt.Errorf("package %s: duplicate extension module %s", d.Name, mod.Name)
		}
		seen[mod.Name] = struct{}{}

		if len(mod.Sources) == 0 {
			return fmt.Errorf("package %s: module %s: no sources listed", d.Name, mod.Name)
		}
		for _, src := range mod.Sources {
			if src == "" {
				return fmt.Errorf("package %s: module %s: empty source path", d.Name, mod.Name)
			}
		}
	}

	return nil
}

// Describe returns a deep copy of the descriptor.
//
// The copy is a stable snapshot: mutating it never affects the original, so
// callers can hand it to reporting or serialization code freely.
func (d *Descriptor) Describe() Descriptor {
	out := *d
	out.ExtModules = make([]ExtModule, len(d.ExtModules))
	for i, mod := range d.ExtModules {
		cp := mod
		cp.Sources = append([]string(nil), mod.Sources...)
		cp.IncludeDirs = append([]string(nil), mod.IncludeDirs...)
		cp.DefineMacros = append([]string(nil), mod.DefineMacros...)
		cp.Libraries = append([]string(nil), mod.Libraries...)
		cp.ExtraCompileArgs = append([]string(nil), mod.ExtraCompileArgs...)
		cp.ExtraLinkArgs = append([]string(nil), mod.ExtraLinkArgs...)
		out.ExtModules[i] = cp
	}
	return out
}

// Marshal serializes the descriptor back to its YAML file format.
//
// Marshal and LoadDescriptor round-trip: writing the returned bytes to a file
// and loading them yields a structurally identical descriptor.
func (d *Descriptor) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// Module returns the extension module with the given name, or nil.
func (d *Descriptor) Module(name string) *ExtModule {
	for i := range d.ExtModules {
		if d.ExtModules[i].Name == name {
			return &d.ExtModules[i]
		}
	}
	return nil
}
