package pyext

import (
	"context"
	"fmt"
	"path/filepath"
)

// BuilderFactory manages the registration and selection of extension builders.
//
// The factory maintains a registry of Builder implementations. When building
// an extension it extracts the entry file's base name, calls CanBuild() on
// each registered builder in order, and uses the first that returns true.
//
// # Usage
//
// Create a factory with all standard builders:
//
//	factory := pyext.NewBuilderFactory()
//
// Or create an empty factory and register custom builders:
//
//	factory := &pyext.BuilderFactory{}
//	factory.Register(&MyCustomBuilder{})
//
// # Thread Safety
//
// BuilderFactory is NOT thread-safe for registration. Register all builders
// before concurrent use; after that, reads are safe.
type BuilderFactory struct {
	builders []Builder
}

// NewBuilderFactory creates a factory with all standard builders registered,
// in priority order:
//
//  1. DescriptorBuilder - pyext.yaml descriptors
//  2. MakefileBuilder - Makefile, GNUmakefile
//  3. CMakeBuilder - CMakeLists.txt
//  4. CargoBuilder - Cargo.toml
//  5. GoBuilder - go.mod and .go files
func NewBuilderFactory() *BuilderFactory {
	factory := &BuilderFactory{}

	factory.Register(&DescriptorBuilder{})
	factory.Register(&MakefileBuilder{})
	factory.Register(&CMakeBuilder{})
	factory.Register(&CargoBuilder{})
	factory.Register(&GoBuilder{})

	return factory
}

// Register adds a new builder to the factory.
//
// Builders are checked in the order they are registered. If multiple builders
// can handle the same file type, the first registered wins.
func (f *BuilderFactory) Register(builder Builder) {
	f.builders = append(f.builders, builder)
}

// BuilderFor returns the appropriate builder for the given entry file.
//
// The entryFile can be a full path (e.g. "src/fib/pyext.yaml") or just a
// filename; only the base name is used for matching.
func (f *BuilderFactory) BuilderFor(entryFile string) (Builder, error) {
	filename := filepath.Base(entryFile)

	for _, builder := range f.builders {
		if builder.CanBuild(filename) {
			return builder, nil
		}
	}

	return nil, fmt.Errorf("no builder found for entry file: %s", filename)
}

// ListBuilders returns a copy of all registered builders.
func (f *BuilderFactory) ListBuilders() []Builder {
	return append([]Builder{}, f.builders...)
}

// BuildAllExtensions builds all extensions in sequence.
//
// Each entry is processed in order: check for context cancellation, find the
// appropriate builder, build, collect the result. Even when an error is
// returned, the results slice holds partial results for the entries already
// processed.
//
// If config.StopOnFailure is true, processing stops after the first failed
// entry; otherwise all entries are processed and the first error encountered
// is returned. If the context is canceled mid-run, a BuildResult carrying the
// context error is appended and processing stops.
func (f *BuilderFactory) BuildAllExtensions(ctx context.Context, config *BuildConfig, entries []string) ([]*BuildResult, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var results []*BuildResult
	var firstError error

	for _, entry := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if firstError == nil {
				firstError = ctxErr
			}
			results = append(results, &BuildResult{
				Success: false,
				Error:   ctxErr,
			})
			break
		}

		builder, err := f.BuilderFor(entry)
		if err != nil {
			if firstError == nil {
				firstError = err
			}
			results = append(results, &BuildResult{
				Success: false,
				Error:   err,
			})
			if config.StopOnFailure {
				break
			}
			continue
		}

		result, err := builder.Build(ctx, config, entry)
		if err != nil {
			if firstError == nil {
				firstError = err
			}
			// Ensure we have a result even if the builder didn't return one
			if result == nil {
				result = &BuildResult{
					Success: false,
					Error:   err,
				}
			}
		}

		results = append(results, result)

		if !result.Success && config.StopOnFailure {
			break
		}
	}

	return results, firstError
}
