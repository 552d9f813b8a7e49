package pyext

import (
	"context"
	"path/filepath"
)

// runCommonBuild executes the standard 3-step build process shared by most
// builders: configure, build, find. If any step fails, processing stops and
// the error is returned with Success=false. The BuildResult.Output field is
// populated by the step functions as they execute.
//
// The entryFile path is relative to config.PackageDir; steps receive the
// directory containing it.
func runCommonBuild(ctx context.Context, config *BuildConfig, entryFile string, steps CommonBuildSteps) (*BuildResult, error) {
	result := &BuildResult{
		Success: false,
		Output:  []string{},
	}

	entryPath := filepath.Join(config.PackageDir, entryFile)
	extensionDir := filepath.Dir(entryPath)

	// Step 1: Configure/prepare the build
	if err := steps.ConfigureFunc(ctx, config, extensionDir, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 2: Build/compile the extension
	if err := steps.BuildFunc(ctx, config, extensionDir, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 3: Find the built extension files
	extensions, err := steps.FindFunc(extensionDir)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Extensions = extensions
	result.Success = true
	return result, nil
}
