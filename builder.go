package pyext

import "context"

// Builder defines the interface that all extension builders must implement.
//
// Each builder is responsible for a specific build system (pyext.yaml
// descriptor, CMake, Cargo, etc.) and integrates with the BuilderFactory
// through these methods.
//
// # Builder Lifecycle
//
//  1. CanBuild() - Factory calls this to find the right builder for an entry file
//  2. Build() - Factory calls this to compile the extension
//  3. Clean() - Optional cleanup of build artifacts
//
// # Thread Safety
//
// Builder implementations should be stateless and thread-safe. The same
// builder instance may be used to build multiple extensions concurrently.
type Builder interface {
	// Name returns the human-readable name of this builder, used in error
	// messages and logs. Examples: "Descriptor", "CMake", "Cargo".
	Name() string

	// CanBuild checks if this builder can handle the given build entry file.
	// The entryFile parameter is typically just the filename (e.g.
	// "pyext.yaml") or a relative path (e.g. "src/fib/pyext.yaml").
	CanBuild(entryFile string) bool

	// Build compiles the extension and returns the result.
	//
	// The entryFile path is relative to config.PackageDir.
	//
	// Returns:
	//   - BuildResult with Success=true and Extensions list on success
	//   - BuildResult with Success=false and Error on failure
	Build(ctx context.Context, config *BuildConfig, entryFile string) (*BuildResult, error)

	// Clean removes build artifacts.
	//
	// This is optional - some builders may not support cleaning.
	// Returns nil if cleaning is not supported or completes successfully.
	Clean(ctx context.Context, config *BuildConfig, entryFile string) error
}
