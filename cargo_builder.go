package pyext

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CargoBuilder handles Rust-based extensions built with Cargo.
//
// The expected crate layout is the pyo3 one: a cdylib crate whose library
// exposes a #[pymodule]. The builder runs cargo, then renames the produced
// dynamic library to the module name CPython imports (libfib.so -> fib.so,
// fib.dll -> fib.pyd).
type CargoBuilder struct{}

// Name returns the builder name
func (b *CargoBuilder) Name() string {
	return "Cargo"
}

// RequiredTools returns the tools needed for Cargo builds
func (b *CargoBuilder) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:    "cargo",
			Purpose: "Rust compiler and package manager",
		},
	}
}

// CheckTools verifies that cargo is available
func (b *CargoBuilder) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}

// CanBuild checks if this builder can handle the entry file
func (b *CargoBuilder) CanBuild(entryFile string) bool {
	return MatchesPattern(entryFile, `Cargo\.toml$`)
}

// Build compiles the extension using cargo
func (b *CargoBuilder) Build(ctx context.Context, config *BuildConfig, entryFile string) (*BuildResult, error) {
	result := &BuildResult{
		Success: false,
		Output:  []string{},
	}

	entryPath := filepath.Join(config.PackageDir, entryFile)
	extensionDir := filepath.Dir(entryPath)

	if err := b.runCargo(ctx, config, extensionDir, result); err != nil {
		result.Error = err
		return result, err
	}

	if err := b.processBuiltExtensions(config, extensionDir, result); err != nil {
		result.Error = err
		return result, err
	}

	result.Success = true
	return result, nil
}

// Clean removes build artifacts
func (b *CargoBuilder) Clean(ctx context.Context, config *BuildConfig, entryFile string) error {
	entryPath := filepath.Join(config.PackageDir, entryFile)
	extensionDir := filepath.Dir(entryPath)

	cmd := exec.CommandContext(ctx, b.getCargoPath(), "clean")
	cmd.Dir = extensionDir

	return cmd.Run()
}

// runCargo executes cargo to build the Rust extension
func (b *CargoBuilder) runCargo(ctx context.Context, config *BuildConfig, extensionDir string, result *BuildResult) error {
	cargoPath := b.getCargoPath()

	args := []string{"rustc", "--release", "--crate-type", "cdylib"}

	if target := os.Getenv("CARGO_BUILD_TARGET"); target != "" {
		args = append(args, "--target", target)
	}

	// Use locked dependencies if Cargo.lock exists
	lockPath := filepath.Join(extensionDir, "Cargo.lock")
	if _, err := os.Stat(lockPath); err == nil {
		args = append(args, "--locked")
	}

	if config.Parallel > 0 {
		args = append(args, "--jobs", fmt.Sprintf("%d", config.Parallel))
	}

	if config.CleanFirst {
		cleanCmd := exec.CommandContext(ctx, cargoPath, "clean")
		cleanCmd.Dir = extensionDir
		cleanOutput, _ := cleanCmd.CombinedOutput()
		result.Output = append(result.Output, splitOutput(cleanOutput)...)
	}

	args = append(args, config.BuildArgs...)

	// rustc-specific linker arguments for loadable modules
	args = append(args, "--")
	args = append(args, b.getRustcArgs()...)

	cmd := exec.CommandContext(ctx, cargoPath, args...)
	cmd.Dir = extensionDir
	cmd.Env = append(buildEnviron(config), b.getPythonEnv(config)...)

	output, err := cmd.CombinedOutput()
	result.Output = append(result.Output, splitOutput(output)...)

	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: %s %s", cargoPath, strings.Join(args, " ")),
			fmt.Sprintf("Working directory: %s", extensionDir))
	}

	if err != nil {
		return BuildError("Cargo", result.Output, err)
	}

	return nil
}

// processBuiltExtensions finds built Rust libraries and renames them to
// importable module filenames.
func (b *CargoBuilder) processBuiltExtensions(config *BuildConfig, extensionDir string, result *BuildResult) error {
	targetDir := filepath.Join(extensionDir, "target")
	if target := os.Getenv("CARGO_BUILD_TARGET"); target != "" {
		targetDir = filepath.Join(targetDir, target)
	}
	targetDir = filepath.Join(targetDir, "release")

	builtLibs, err := b.findCargoOutputs(targetDir)
	if err != nil {
		return BuildError("Cargo", result.Output, fmt.Errorf("failed to find cargo outputs: %v", err))
	}

	if len(builtLibs) == 0 {
		return BuildError("Cargo", result.Output, fmt.Errorf("no dynamic libraries found in %s", targetDir))
	}

	for _, lib := range builtLibs {
		moduleName := b.getModuleFileName(lib, config)
		modulePath := filepath.Join(extensionDir, moduleName)

		if err := copyFile(lib, modulePath); err != nil {
			return BuildError("Cargo", result.Output, fmt.Errorf("failed to copy %s to %s: %v", lib, modulePath, err))
		}

		relPath, _ := filepath.Rel(extensionDir, modulePath)
		result.Extensions = append(result.Extensions, relPath)

		if config.Verbose {
			result.Output = append(result.Output, fmt.Sprintf("Copied %s -> %s", lib, modulePath))
		}
	}

	return nil
}

// findCargoOutputs locates built dynamic libraries
func (b *CargoBuilder) findCargoOutputs(targetDir string) ([]string, error) {
	var patterns []string
	switch runtime.GOOS {
	case platformWindows:
		patterns = []string{"*.dll"}
	case platformDarwin:
		patterns = []string{"*.dylib", "lib*.dylib"}
	default:
		patterns = []string{"*.so", "lib*.so"}
	}

	var outputs []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(targetDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %v", pattern, err)
		}
		outputs = append(outputs, matches...)
	}

	return outputs, nil
}

// getModuleFileName converts a Rust library name to the filename CPython
// imports. The interpreter's full EXT_SUFFIX is used when known, otherwise the
// bare platform suffix.
func (b *CargoBuilder) getModuleFileName(libPath string, config *BuildConfig) string {
	filename := filepath.Base(libPath)
	ext := filepath.Ext(filename)

	filename = strings.TrimPrefix(filename, "lib")
	name := strings.TrimSuffix(filename, ext)

	if config.ExtSuffix != "" {
		return name + config.ExtSuffix
	}

	switch runtime.GOOS {
	case platformWindows:
		return name + ".pyd"
	default:
		return name + ".so"
	}
}

// getRustcArgs returns rustc arguments for building loadable modules
func (b *CargoBuilder) getRustcArgs() []string {
	var args []string

	switch runtime.GOOS {
	case platformDarwin:
		// CPython symbols resolve at import time on macOS
		args = append(args, "-C", "link-arg=-Wl,-undefined,dynamic_lookup")
	case platformWindows:
		args = append(args, "-C", "link-arg=-Wl,--dynamicbase", "-C", "link-arg=-static-libgcc")
	}

	return args
}

// getPythonEnv returns Python-specific environment variables for Cargo.
// pyo3's build script reads PYO3_PYTHON to pick the target interpreter.
func (b *CargoBuilder) getPythonEnv(config *BuildConfig) []string {
	var env []string

	if config.PythonPath != "" {
		env = append(env, fmt.Sprintf("PYO3_PYTHON=%s", config.PythonPath))
	}
	if config.PythonVersion != "" {
		env = append(env, fmt.Sprintf("PYO3_CROSS_PYTHON_VERSION=%s", shortVersion(config.PythonVersion)))
	}

	return env
}

// getCargoPath returns the path to the cargo executable
func (b *CargoBuilder) getCargoPath() string {
	if cargoPath := os.Getenv("CARGO"); cargoPath != "" {
		return cargoPath
	}
	return "cargo"
}

// shortVersion reduces "3.12.4" to "3.12".
func shortVersion(version string) string {
	major, minor, ok := parsePythonVersion(version)
	if !ok {
		return version
	}
	return fmt.Sprintf("%d.%d", major, minor)
}
