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

const unixMakefiles = "Unix Makefiles"

// CMakeBuilder handles CMake-based builds.
//
// pybind11 projects are the usual case: a CMakeLists.txt that calls
// pybind11_add_module and relies on find_package(Python) to locate the
// interpreter. The builder passes the configured interpreter through
// Python_EXECUTABLE so CMake's discovery agrees with pyext's.
type CMakeBuilder struct{}

// Name returns the builder name
func (b *CMakeBuilder) Name() string {
	return "CMake"
}

// RequiredTools returns the tools needed for CMake builds
func (b *CMakeBuilder) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:    "cmake",
			Purpose: "CMake build system",
		},
		{
			Name:         "cc",
			Alternatives: []string{"gcc", "clang", "cl"},
			Purpose:      "C/C++ compiler",
		},
	}
}

// CheckTools verifies that cmake and a compiler are available
func (b *CMakeBuilder) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}

// CanBuild checks if this builder can handle the entry file
func (b *CMakeBuilder) CanBuild(entryFile string) bool {
	return MatchesPattern(entryFile, `CMakeLists\.txt$`)
}

// Build compiles the extension using the cmake configure/build workflow
func (b *CMakeBuilder) Build(ctx context.Context, config *BuildConfig, entryFile string) (*BuildResult, error) {
	return runCommonBuild(ctx, config, entryFile, CommonBuildSteps{
		ConfigureFunc: b.runCMakeConfigure,
		BuildFunc:     b.runCMakeBuild,
		FindFunc:      b.findBuiltExtensions,
	})
}

// Clean removes build artifacts
func (b *CMakeBuilder) Clean(ctx context.Context, config *BuildConfig, entryFile string) error {
	entryPath := filepath.Join(config.PackageDir, entryFile)
	extensionDir := filepath.Dir(entryPath)

	cleanCmd := exec.CommandContext(ctx, "cmake", "--build", ".", "--target", "clean")
	cleanCmd.Dir = extensionDir
	if err := cleanCmd.Run(); err != nil {
		// Fall back to make clean if a Makefile generator was used
		makefilePath := filepath.Join(extensionDir, "Makefile")
		if _, err := os.Stat(makefilePath); err == nil {
			makeCmd := exec.CommandContext(ctx, defaultMakeProgram(), "clean")
			makeCmd.Dir = extensionDir
			return makeCmd.Run()
		}
	}

	return nil
}

// runCMakeConfigure executes cmake to configure the build
func (b *CMakeBuilder) runCMakeConfigure(ctx context.Context, config *BuildConfig, extensionDir string, result *BuildResult) error {
	args := []string{"."}

	if config.DestPath != "" {
		args = append(args, fmt.Sprintf("-DCMAKE_INSTALL_PREFIX=%s", config.DestPath))
	}

	args = append(args, "-DCMAKE_BUILD_TYPE=Release")

	// Point find_package(Python) at the interpreter pyext selected
	if config.PythonPath != "" {
		args = append(args, fmt.Sprintf("-DPython_EXECUTABLE=%s", config.PythonPath))
		args = append(args, fmt.Sprintf("-DPython3_EXECUTABLE=%s", config.PythonPath))
	}

	if generator := b.getGenerator(); generator != "" {
		args = append(args, "-G", generator)
	}

	args = append(args, config.BuildArgs...)

	cmd := exec.CommandContext(ctx, "cmake", args...)
	cmd.Dir = extensionDir
	cmd.Env = buildEnviron(config)

	output, err := cmd.CombinedOutput()
	result.Output = append(result.Output, splitOutput(output)...)

	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: cmake %s", strings.Join(args, " ")),
			fmt.Sprintf("Working directory: %s", extensionDir))
	}

	if err != nil {
		return BuildError("CMake", result.Output, err)
	}

	return nil
}

// runCMakeBuild executes the build command
func (b *CMakeBuilder) runCMakeBuild(ctx context.Context, config *BuildConfig, extensionDir string, result *BuildResult) error {
	args := []string{"--build", "."}

	if config.Parallel > 0 {
		args = append(args, "--parallel", fmt.Sprintf("%d", config.Parallel))
	}

	if config.CleanFirst {
		cleanCmd := exec.CommandContext(ctx, "cmake", "--build", ".", "--target", "clean")
		cleanCmd.Dir = extensionDir
		cleanOutput, _ := cleanCmd.CombinedOutput()
		result.Output = append(result.Output, splitOutput(cleanOutput)...)
	}

	args = append(args, "--config", "Release")

	cmd := exec.CommandContext(ctx, "cmake", args...)
	cmd.Dir = extensionDir
	cmd.Env = buildEnviron(config)

	output, err := cmd.CombinedOutput()
	result.Output = append(result.Output, splitOutput(output)...)

	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: cmake %s", strings.Join(args, " ")),
			fmt.Sprintf("Working directory: %s", extensionDir))
	}

	if err != nil {
		return BuildError("CMake Build", result.Output, err)
	}

	// Run install if dest path is specified
	if config.DestPath != "" {
		installCmd := exec.CommandContext(ctx, "cmake", "--install", ".")
		installCmd.Dir = extensionDir
		installCmd.Env = cmd.Env

		installOutput, err := installCmd.CombinedOutput()
		result.Output = append(result.Output, splitOutput(installOutput)...)

		if err != nil {
			return BuildError("CMake Install", result.Output, err)
		}
	}

	return nil
}

// findBuiltExtensions locates the compiled extension files.
//
// CMake can place outputs in several directories depending on generator and
// configuration, so a handful of conventional locations are searched.
func (b *CMakeBuilder) findBuiltExtensions(extensionDir string) ([]string, error) {
	searchDirs := []string{
		".",
		"Release",
		"Debug",
		"lib",
		"bin",
		"build",
	}

	var extensions []string
	for _, searchDir := range searchDirs {
		fullSearchDir := filepath.Join(extensionDir, searchDir)
		if _, err := os.Stat(fullSearchDir); os.IsNotExist(err) {
			continue
		}

		found, err := findSharedLibraries(fullSearchDir)
		if err != nil {
			return nil, err
		}

		for _, rel := range found {
			full := filepath.Join(fullSearchDir, rel)
			if relPath, err := filepath.Rel(extensionDir, full); err == nil {
				extensions = append(extensions, relPath)
			}
		}
	}

	return extensions, nil
}

// getGenerator returns the appropriate CMake generator for the platform
func (b *CMakeBuilder) getGenerator() string {
	if generator := os.Getenv("CMAKE_GENERATOR"); generator != "" {
		return generator
	}

	switch runtime.GOOS {
	case platformWindows:
		return "" // let cmake pick Visual Studio or MinGW
	case platformDarwin:
		return unixMakefiles
	default:
		return unixMakefiles
	}
}
