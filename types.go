package pyext

import "context"

// BuildResult contains the output and status of a build operation.
//
// After a build completes, this structure provides:
//   - Success status indicating if the build completed without errors
//   - Output lines captured from the build process (stdout/stderr)
//   - Extensions list of compiled extension files (.so/.pyd/.dylib)
//   - Error information if the build failed
type BuildResult struct {
	Success             bool     // True if build completed successfully
	Output              []string // Lines of output from the build process
	Extensions          []string // Paths to built extension files
	Error               error    // Error if build failed, nil otherwise
	MissingDependencies []string // Names of build-time dependencies that were missing
}

// BuildConfig contains configuration for the build process.
//
// Source paths define where files are located:
//   - PackageDir: Root directory of the Python package being built
//   - DestPath: Destination directory for compiled extensions
//   - LibDir: Optional package source directory for in-place installation
//
// Build configuration:
//   - BuildArgs: Additional arguments passed to the underlying build system
//   - Env: Environment variables set during build
//   - Parallel: Number of parallel compile jobs (0 = default)
//   - IncludeDirs: Extra header search directories applied to every module,
//     overriding interpreter auto-detection
//
// Python environment:
//   - PythonPath: Path to the Python executable; empty means auto-detect
//   - PythonVersion: Interpreter version string (e.g. "3.12.4"); usually
//     filled in by interpreter detection
//   - ExtSuffix: Platform extension suffix reported by sysconfig
//     (e.g. ".cpython-312-x86_64-linux-gnu.so"); empty means query it
//
// Build behavior:
//   - Verbose: Enable detailed build output
//   - CleanFirst: Run clean target before building
//   - StopOnFailure: Stop after first failed extension
type BuildConfig struct {
	// Source paths
	PackageDir string // Root directory of the Python package
	DestPath   string // Destination for compiled extensions
	LibDir     string // Optional package dir for in-place installation

	// Build arguments
	BuildArgs   []string          // Additional build arguments
	Env         map[string]string // Environment variables for build
	IncludeDirs []string          // Extra include directories for all modules

	// Python configuration
	PythonPath    string // Path to Python executable
	PythonVersion string // Interpreter version (3.12.4, etc.)
	ExtSuffix     string // sysconfig EXT_SUFFIX, queried when empty

	// Build options
	Verbose    bool // Enable verbose output
	CleanFirst bool // Run clean before build
	Parallel   int  // Number of parallel compile jobs

	// Failure handling
	StopOnFailure bool // Stop after the first failed extension build
}

// CommonBuildSteps defines the standard 3-step build pattern used by multiple builders.
//
// Most extension build systems follow the same shape:
//  1. Configure: Resolve inputs and generate build files
//  2. Build: Compile and link the extension
//  3. Find: Locate the compiled extension files
//
// This structure lets builders implement the pattern consistently while
// customizing each step's behavior:
//
//	return runCommonBuild(ctx, config, entryFile, CommonBuildSteps{
//	    ConfigureFunc: b.resolveInputs,
//	    BuildFunc:     b.compileAndLink,
//	    FindFunc:      b.locateArtifacts,
//	})
type CommonBuildSteps struct {
	// ConfigureFunc prepares the build (resolve sources/headers, run cmake, ...)
	ConfigureFunc func(ctx context.Context, config *BuildConfig, extensionDir string, result *BuildResult) error

	// BuildFunc compiles the extension (cc, make, cargo build, ...)
	BuildFunc func(ctx context.Context, config *BuildConfig, extensionDir string, result *BuildResult) error

	// FindFunc locates the compiled extension files after build completes
	FindFunc func(extensionDir string) ([]string, error)
}
