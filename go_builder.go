package pyext

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// GoBuilder handles Go-based builds using CGO to create shared libraries.
//
// Go cannot produce a real CPython extension module, but a c-shared library
// is directly loadable from Python through ctypes or cffi, which is how Go
// code usually ends up in a Python package.
//
// Build command:
//
//	go build -buildmode=c-shared -o extension.so
type GoBuilder struct{}

// Name returns the builder name
func (b *GoBuilder) Name() string {
	return "Go"
}

// RequiredTools returns the tools needed for Go builds
func (b *GoBuilder) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:    "go",
			Purpose: "Go compiler and toolchain",
		},
		{
			Name:         "cc",
			Alternatives: []string{"gcc", "clang"},
			Purpose:      "C compiler (required for CGO)",
		},
	}
}

// CheckTools verifies that the Go toolchain is available
func (b *GoBuilder) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}

// CanBuild checks if this builder can handle the entry file
func (b *GoBuilder) CanBuild(entryFile string) bool {
	ext := strings.ToLower(filepath.Ext(entryFile))
	base := strings.ToLower(filepath.Base(entryFile))
	return ext == ".go" || base == "go.mod"
}

// Build compiles the Go extension into a shared library
func (b *GoBuilder) Build(ctx context.Context, config *BuildConfig, entryFile string) (*BuildResult, error) {
	return runCommonBuild(ctx, config, entryFile, CommonBuildSteps{
		ConfigureFunc: b.noConfigure,
		BuildFunc:     b.runGoBuild,
		FindFunc:      findSharedLibraries,
	})
}

// Clean removes build artifacts
func (b *GoBuilder) Clean(ctx context.Context, config *BuildConfig, entryFile string) error {
	entryPath := filepath.Join(config.PackageDir, entryFile)
	extensionDir := filepath.Dir(entryPath)

	cleanCmd := exec.CommandContext(ctx, "go", "clean")
	cleanCmd.Dir = extensionDir

	// Ignore errors - clean may not be necessary
	_ = cleanCmd.Run()
	return nil
}

// noConfigure is a no-op since Go doesn't need configuration
func (b *GoBuilder) noConfigure(ctx context.Context, config *BuildConfig, extensionDir string, result *BuildResult) error {
	if config.Verbose {
		result.Output = append(result.Output, "Go modules, no configuration needed")
	}
	return nil
}

const defaultGoLibraryName = "extension.so"

// runGoBuild executes go build to compile the shared library
func (b *GoBuilder) runGoBuild(ctx context.Context, config *BuildConfig, extensionDir string, result *BuildResult) error {
	outputName := defaultGoLibraryName
	if config.DestPath != "" {
		outputName = filepath.Join(config.DestPath, outputName)
	}

	args := []string{"build", "-buildmode=c-shared", "-o", outputName}
	args = append(args, config.BuildArgs...)

	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = extensionDir
	cmd.Env = append(buildEnviron(config), "CGO_ENABLED=1")

	output, err := cmd.CombinedOutput()
	result.Output = append(result.Output, splitOutput(output)...)

	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: go %s", strings.Join(args, " ")),
			fmt.Sprintf("Working directory: %s", extensionDir))
	}

	if err != nil {
		return BuildError("Go", result.Output, err)
	}

	return nil
}
