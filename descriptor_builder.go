package pyext

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// buildScratchDir is where intermediate objects land, relative to the
// descriptor's directory. Final artifacts move out of it only after a
// successful link, so a failed build never leaves a partial module behind.
const buildScratchDir = "build"

// DescriptorBuilder compiles extensions declared in a pyext.yaml descriptor.
//
// This is the pyext equivalent of setuptools' build_ext command and the most
// common way to build a C/C++ extension. For each declared module it:
//
//  1. Resolves sources and include directories (failing fast with
//     SourceNotFoundError / IncludePathNotFoundError before any compile)
//  2. Compiles each translation unit to an object file in build/
//  3. Links the objects into <name><EXT_SUFFIX> next to the descriptor
//
// Compile and link are separate compiler invocations so their failures are
// reported as distinct CompileError and LinkError values.
type DescriptorBuilder struct{}

// Name returns the builder name
func (b *DescriptorBuilder) Name() string {
	return "Descriptor"
}

// RequiredTools returns the tools needed for descriptor builds
func (b *DescriptorBuilder) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:         "cc",
			Alternatives: []string{"gcc", "clang", "cl"},
			Purpose:      "C/C++ compiler for native extensions",
		},
		{
			Name:         "python3",
			Alternatives: []string{"python"},
			Purpose:      "CPython interpreter for sysconfig queries",
			Optional:     true, // not needed when include_dirs are explicit
		},
	}
}

// CheckTools verifies that a C compiler is available
func (b *DescriptorBuilder) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}

// CanBuild checks if this builder can handle the entry file
func (b *DescriptorBuilder) CanBuild(entryFile string) bool {
	return MatchesPattern(filepath.Base(entryFile), `^pyext\.ya?ml$`)
}

// Build compiles every module the descriptor declares.
func (b *DescriptorBuilder) Build(ctx context.Context, config *BuildConfig, entryFile string) (*BuildResult, error) {
	result := &BuildResult{
		Success: false,
		Output:  []string{},
	}

	entryPath := filepath.Join(config.PackageDir, entryFile)
	baseDir := filepath.Dir(entryPath)

	desc, err := LoadDescriptor(entryPath)
	if err != nil {
		result.Error = err
		return result, err
	}

	if config.CleanFirst {
		if err := b.removeArtifacts(baseDir, desc); err != nil {
			result.Error = err
			return result, err
		}
	}

	interp, err := b.interpreter(ctx, config, desc)
	if err != nil {
		result.Error = err
		return result, err
	}

	if interp != nil {
		ok, cerr := interp.Satisfies(desc.RequiresPython)
		if cerr != nil {
			result.Error = cerr
			return result, cerr
		}
		if !ok {
			err := fmt.Errorf("package %s requires Python %s, interpreter %s is %s",
				desc.Name, desc.RequiresPython, interp.Path, interp.Version)
			result.Error = err
			return result, err
		}
	}

	suffix := b.extSuffix(config, interp)

	var built []string
	for i := range desc.ExtModules {
		mod := &desc.ExtModules[i]

		artifact, err := b.buildModule(ctx, config, mod, interp, baseDir, suffix, result)
		if err != nil {
			result.Error = err
			return result, err
		}
		built = append(built, artifact)
	}

	installed, err := finalizeNativeExtensions(config, entryFile, baseDir, built)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Extensions = installed
	result.Success = true
	return result, nil
}

// Clean removes the scratch build directory and linked modules.
func (b *DescriptorBuilder) Clean(ctx context.Context, config *BuildConfig, entryFile string) error {
	entryPath := filepath.Join(config.PackageDir, entryFile)
	baseDir := filepath.Dir(entryPath)

	desc, err := LoadDescriptor(entryPath)
	if err != nil {
		return err
	}

	return b.removeArtifacts(baseDir, desc)
}

// removeArtifacts deletes the scratch build directory and linked modules,
// regardless of the ABI tag they were built with.
func (b *DescriptorBuilder) removeArtifacts(baseDir string, desc *Descriptor) error {
	if err := os.RemoveAll(filepath.Join(baseDir, buildScratchDir)); err != nil {
		return err
	}

	for _, mod := range desc.ExtModules {
		matches, _ := filepath.Glob(filepath.Join(baseDir, mod.Name+".*"))
		for _, match := range matches {
			if isNativeLibrary(match) {
				if err := os.Remove(match); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// interpreter detects the target interpreter when the build needs one.
//
// Detection is skipped only when nothing requires it: every module carries
// explicit include_dirs (or the env override is set), no version constraint is
// declared, and the extension suffix is already known.
func (b *DescriptorBuilder) interpreter(ctx context.Context, config *BuildConfig, desc *Descriptor) (*Interpreter, error) {
	needed := desc.RequiresPython != "" || (config.ExtSuffix == "" && runtime.GOOS == platformWindows)
	if !needed {
		for _, mod := range desc.ExtModules {
			if len(mod.IncludeDirs) == 0 && os.Getenv(IncludeDirEnvVar) == "" {
				needed = true
				break
			}
		}
	}
	if !needed {
		return nil, nil
	}

	interp, err := DetectInterpreter(ctx, config.PythonPath)
	if err != nil {
		return nil, fmt.Errorf("descriptor build needs a Python interpreter: %w", err)
	}

	if config.PythonVersion == "" {
		config.PythonVersion = interp.Version
	}

	return interp, nil
}

// extSuffix returns the filename suffix for linked modules.
func (b *DescriptorBuilder) extSuffix(config *BuildConfig, interp *Interpreter) string {
	if config.ExtSuffix != "" {
		return config.ExtSuffix
	}
	if interp != nil && interp.ExtSuffix != "" {
		return interp.ExtSuffix
	}
	if runtime.GOOS == platformWindows {
		return ".pyd"
	}
	return ".so"
}

// buildModule compiles and links one extension module, returning the linked
// artifact's path relative to baseDir.
func (b *DescriptorBuilder) buildModule(ctx context.Context, config *BuildConfig, mod *ExtModule, interp *Interpreter, baseDir, suffix string, result *BuildResult) (string, error) {
	sources, err := resolveSources(mod, baseDir)
	if err != nil {
		return "", err
	}

	includes, err := ResolveIncludeDirs(mod, config, interp, baseDir)
	if err != nil {
		return "", err
	}

	objDir := filepath.Join(baseDir, buildScratchDir, mod.Name)
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return "", err
	}

	objects, err := b.compileAll(ctx, config, mod, sources, objDir, includes, result)
	if err != nil {
		return "", err
	}

	hasCxx := false
	for _, src := range sources {
		if isCxxSource(src) {
			hasCxx = true
		}
	}

	artifact := filepath.Join(baseDir, mod.Name+suffix)
	if err := b.link(ctx, config, mod, objects, artifact, hasCxx, result); err != nil {
		return "", err
	}

	rel, err := filepath.Rel(baseDir, artifact)
	if err != nil {
		return filepath.Base(artifact), nil
	}
	return rel, nil
}

// compileAll compiles every source to an object file, up to config.Parallel
// units at a time. Output is appended to the result in source order whatever
// the completion order was; on failure the first failing unit's error (again
// in source order) is returned.
func (b *DescriptorBuilder) compileAll(ctx context.Context, config *BuildConfig, mod *ExtModule, sources []string, objDir string, includes []string, result *BuildResult) ([]string, error) {
	limit := config.Parallel
	if limit < 1 {
		limit = 1
	}

	type unit struct {
		object string
		output []string
		err    error
	}

	units := make([]unit, len(sources))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			object, output, err := b.compile(ctx, config, mod, src, objDir, includes)
			units[i] = unit{object: object, output: output, err: err}
		}(i, src)
	}
	wg.Wait()

	var objects []string
	for i := range units {
		result.Output = append(result.Output, units[i].output...)
		if units[i].err != nil {
			return nil, units[i].err
		}
		objects = append(objects, units[i].object)
	}

	return objects, nil
}

// compile turns one source file into an object file, returning the captured
// compiler output.
func (b *DescriptorBuilder) compile(ctx context.Context, config *BuildConfig, mod *ExtModule, source, objDir string, includes []string) (string, []string, error) {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	object := filepath.Join(objDir, base+".o")

	args := []string{"-c", "-fPIC", "-O2"}
	for _, inc := range includes {
		args = append(args, "-I"+inc)
	}
	for _, macro := range mod.DefineMacros {
		args = append(args, "-D"+macro)
	}
	args = append(args, mod.ExtraCompileArgs...)
	args = append(args, "-o", object, source)

	compiler := b.compilerFor(source)

	//nolint:gosec // Compiler and arguments come from the descriptor under build
	cmd := exec.CommandContext(ctx, compiler, args...)
	cmd.Env = buildEnviron(config)

	output, err := cmd.CombinedOutput()
	outputLines := splitOutput(output)

	if config.Verbose {
		outputLines = append(outputLines,
			fmt.Sprintf("Running: %s %s", compiler, strings.Join(args, " ")))
	}

	if err != nil {
		return "", outputLines, &CompileError{Source: source, Output: outputLines, Err: err}
	}

	return object, outputLines, nil
}

// link combines object files into the shared module.
func (b *DescriptorBuilder) link(ctx context.Context, config *BuildConfig, mod *ExtModule, objects []string, artifact string, hasCxx bool, result *BuildResult) error {
	args := []string{"-shared"}
	if runtime.GOOS == platformDarwin {
		// CPython symbols resolve at import time on macOS.
		args = append(args, "-undefined", "dynamic_lookup")
	}
	args = append(args, "-o", artifact)
	args = append(args, objects...)
	for _, lib := range mod.Libraries {
		args = append(args, "-l"+lib)
	}
	args = append(args, mod.ExtraLinkArgs...)

	linker := b.ccProgram()
	if hasCxx {
		linker = b.cxxProgram()
	}

	//nolint:gosec // Linker and arguments come from the descriptor under build
	cmd := exec.CommandContext(ctx, linker, args...)
	cmd.Env = buildEnviron(config)

	output, err := cmd.CombinedOutput()
	outputLines := splitOutput(output)
	result.Output = append(result.Output, outputLines...)

	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: %s %s", linker, strings.Join(args, " ")))
	}

	if err != nil {
		// A failed link must not leave a truncated module behind.
		_ = os.Remove(artifact)
		return &LinkError{Module: mod.Name, Output: outputLines, Err: err}
	}

	return nil
}

func (b *DescriptorBuilder) compilerFor(source string) string {
	if isCxxSource(source) {
		return b.cxxProgram()
	}
	return b.ccProgram()
}

// ccProgram returns the C compiler to use, CC environment variable first.
func (b *DescriptorBuilder) ccProgram() string {
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}

	switch runtime.GOOS {
	case platformWindows:
		return "gcc" // MinGW/MSYS2
	default:
		return "cc"
	}
}

// cxxProgram returns the C++ compiler to use, CXX environment variable first.
func (b *DescriptorBuilder) cxxProgram() string {
	if cxx := os.Getenv("CXX"); cxx != "" {
		return cxx
	}

	switch runtime.GOOS {
	case platformWindows:
		return "g++"
	default:
		return "c++"
	}
}

func isCxxSource(path string) bool {
	return MatchesExtension(path, ".cpp", ".cc", ".cxx", ".c++")
}

func splitOutput(output []byte) []string {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// buildEnviron merges the process environment with config.Env.
func buildEnviron(config *BuildConfig) []string {
	env := os.Environ()
	for key, value := range config.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	return env
}
