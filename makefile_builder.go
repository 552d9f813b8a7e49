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

// Build tool constants
const (
	platformWindows = "windows"
	platformDarwin  = "darwin"
	nmakeProgram    = "nmake"
	makeProgram     = "make"
)

// defaultMakeProgram returns the make program for the platform, honoring the
// MAKE environment variable.
func defaultMakeProgram() string {
	if makeEnv := os.Getenv("MAKE"); makeEnv != "" {
		return makeEnv
	}

	switch runtime.GOOS {
	case platformWindows:
		return nmakeProgram
	default:
		return makeProgram
	}
}

// MakefileBuilder handles plain Makefile-based builds.
//
// Some extension packages ship a handwritten Makefile instead of a descriptor,
// typically legacy C extensions or ones with custom build logic. The Makefile
// is expected to produce the shared module itself; pyext only supplies the
// interpreter location and destination through the environment.
type MakefileBuilder struct{}

// Name returns the builder name
func (b *MakefileBuilder) Name() string {
	return "Makefile"
}

// RequiredTools returns the tools needed for Makefile builds
func (b *MakefileBuilder) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:         "make",
			Alternatives: []string{"gmake", "nmake"},
			Purpose:      "Build automation tool",
		},
		{
			Name:         "cc",
			Alternatives: []string{"gcc", "clang", "cl"},
			Purpose:      "C/C++ compiler",
		},
	}
}

// CheckTools verifies that make and a compiler are available
func (b *MakefileBuilder) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}

// CanBuild checks if this builder can handle the entry file
func (b *MakefileBuilder) CanBuild(entryFile string) bool {
	filename := strings.ToLower(filepath.Base(entryFile))
	return filename == "makefile" || filename == "gnumakefile"
}

// Build compiles the extension using make
func (b *MakefileBuilder) Build(ctx context.Context, config *BuildConfig, entryFile string) (*BuildResult, error) {
	return runCommonBuild(ctx, config, entryFile, CommonBuildSteps{
		ConfigureFunc: b.noConfigure,
		BuildFunc:     b.runMake,
		FindFunc:      findSharedLibraries,
	})
}

// Clean removes build artifacts
func (b *MakefileBuilder) Clean(ctx context.Context, config *BuildConfig, entryFile string) error {
	entryPath := filepath.Join(config.PackageDir, entryFile)
	extensionDir := filepath.Dir(entryPath)

	cleanCmd := exec.CommandContext(ctx, defaultMakeProgram(), "clean")
	cleanCmd.Dir = extensionDir

	// Ignore errors - clean target may not exist
	_ = cleanCmd.Run()
	return nil
}

// noConfigure is a no-op since Makefile doesn't need configuration
func (b *MakefileBuilder) noConfigure(ctx context.Context, config *BuildConfig, extensionDir string, result *BuildResult) error {
	if config.Verbose {
		result.Output = append(result.Output, "Using existing Makefile, no configuration needed")
	}
	return nil
}

// runMake executes make to compile the extension
func (b *MakefileBuilder) runMake(ctx context.Context, config *BuildConfig, extensionDir string, result *BuildResult) error {
	program := defaultMakeProgram()

	args := []string{}
	if config.Parallel > 0 {
		args = append(args, fmt.Sprintf("-j%d", config.Parallel))
	}

	if config.CleanFirst {
		cleanCmd := exec.CommandContext(ctx, program, "clean")
		cleanCmd.Dir = extensionDir
		cleanOutput, _ := cleanCmd.CombinedOutput()
		result.Output = append(result.Output, splitOutput(cleanOutput)...)
	}

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = extensionDir
	cmd.Env = buildEnviron(config)

	// Let the Makefile find the target interpreter and destination
	if config.PythonPath != "" {
		cmd.Env = append(cmd.Env, fmt.Sprintf("PYTHON=%s", config.PythonPath))
	}
	if config.DestPath != "" {
		cmd.Env = append(cmd.Env, fmt.Sprintf("DESTDIR=%s", config.DestPath))
	}

	output, err := cmd.CombinedOutput()
	result.Output = append(result.Output, splitOutput(output)...)

	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: %s %s", program, strings.Join(args, " ")),
			fmt.Sprintf("Working directory: %s", extensionDir))
	}

	if err != nil {
		return BuildError("Make", result.Output, err)
	}

	// Run make install if dest path is specified
	if config.DestPath != "" {
		installCmd := exec.CommandContext(ctx, program, "install")
		installCmd.Dir = extensionDir
		installCmd.Env = cmd.Env

		installOutput, err := installCmd.CombinedOutput()
		result.Output = append(result.Output, splitOutput(installOutput)...)

		if err != nil {
			return BuildError("Make Install", result.Output, err)
		}
	}

	return nil
}

// findSharedLibraries locates compiled extension files in extensionDir.
//
// Shared by builders whose build system drops artifacts next to the sources.
func findSharedLibraries(extensionDir string) ([]string, error) {
	var extensions []string

	patterns := []string{
		"*.so",    // Linux/Unix shared libraries
		"*.pyd",   // Windows Python extensions
		"*.dylib", // macOS dynamic libraries
		"*.dll",   // Windows dynamic libraries
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(extensionDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s in %s: %v", pattern, extensionDir, err)
		}

		for _, match := range matches {
			relPath, err := filepath.Rel(extensionDir, match)
			if err == nil {
				extensions = append(extensions, relPath)
			}
		}
	}

	return extensions, nil
}
