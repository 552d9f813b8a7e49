package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	pyext "github.com/contriboss/python-extension-go"
)

// buildOptions is the CLI-facing build configuration, layered with koanf.
// Precedence (highest to lowest): flags > PYEXT_* env vars > the descriptor's
// optional "build:" section > defaults.
type buildOptions struct {
	PackageDir  string   `koanf:"package_dir"`
	Dest        string   `koanf:"dest"`
	Python      string   `koanf:"python"`
	Parallel    int      `koanf:"parallel"`
	Verbose     bool     `koanf:"verbose"`
	CleanFirst  bool     `koanf:"clean_first"`
	KeepGoing   bool     `koanf:"keep_going"`
	IncludeDirs []string `koanf:"include_dirs"`
}

// loadBuildOptions resolves the effective build options for a package.
//
// The descriptor file doubles as the config file: its "build:" section, when
// present, supplies per-package defaults (parallel jobs, dest dir) without a
// second file to maintain.
func loadBuildOptions(flags *pflag.FlagSet) (*buildOptions, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"package_dir": ".",
		"parallel":    0,
		"verbose":     false,
		"clean_first": false,
		"keep_going":  false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Package dir must be known before the descriptor can be found; flags
	// win over everything else for it.
	packageDir := "."
	if flags != nil && flags.Changed("package-dir") {
		packageDir, _ = flags.GetString("package-dir")
	}
	packageDir, err := filepath.Abs(packageDir)
	if err != nil {
		return nil, err
	}

	// 2. Descriptor "build:" section, when a descriptor exists
	if descPath, err := pyext.FindDescriptor(packageDir); err == nil {
		fileK := koanf.New(".")
		if err := fileK.Load(file.Provider(descPath), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", descPath, err)
		}
		if sub := fileK.Cut("build"); len(sub.Keys()) > 0 {
			if err := k.Merge(sub); err != nil {
				return nil, err
			}
		}
	}

	// 3. Environment variables (PYEXT_ prefix)
	// Transform: PYEXT_CLEAN_FIRST -> clean_first
	if err := k.Load(env.Provider("PYEXT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PYEXT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var opts buildOptions
	if err := k.Unmarshal("", &opts); err != nil {
		return nil, fmt.Errorf("failed to parse options: %w", err)
	}

	opts.PackageDir = packageDir
	if opts.Dest != "" && !filepath.IsAbs(opts.Dest) {
		opts.Dest = filepath.Join(packageDir, opts.Dest)
	}

	return &opts, nil
}

// buildConfig converts the CLI options to the library's BuildConfig.
func (o *buildOptions) buildConfig() *pyext.BuildConfig {
	return &pyext.BuildConfig{
		PackageDir:    o.PackageDir,
		DestPath:      o.Dest,
		PythonPath:    o.Python,
		IncludeDirs:   o.IncludeDirs,
		Parallel:      o.Parallel,
		Verbose:       o.Verbose,
		CleanFirst:    o.CleanFirst,
		StopOnFailure: !o.KeepGoing,
		Env:           map[string]string{},
	}
}

// resolveEntries returns the build entry files to process: explicit arguments
// when given, otherwise the package descriptor.
func resolveEntries(packageDir string, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	descPath, err := pyext.FindDescriptor(packageDir)
	if err != nil {
		return nil, err
	}

	rel, relErr := filepath.Rel(packageDir, descPath)
	if relErr != nil {
		rel = filepath.Base(descPath)
	}

	if _, err := os.Stat(descPath); err != nil {
		return nil, err
	}

	return []string{rel}, nil
}
