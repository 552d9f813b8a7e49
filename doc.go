// Package pyext provides native extension compilation support for Python packages.
//
// This package plays the role setuptools' build_ext plays for Python: it reads
// a package descriptor, locates the CPython headers for the active interpreter,
// and drives the native toolchain to produce importable extension modules.
//
// # Package Descriptor
//
// Extensions are declared in a pyext.yaml descriptor next to the sources:
//
//	name: fib
//	version: "0.69"
//	description: fibonacci number computation in C
//	requires_python: ">=3.12"
//	ext_modules:
//	  - name: fib
//	    sources: [fib.c]
//
// Include directories are resolved per module with the precedence
// explicit include_dirs > PYEXT_INCLUDE_DIR > the directory reported by the
// interpreter's sysconfig. Hard-coding an absolute header path in the
// descriptor works but ties the build to one machine; prefer the default.
//
// # Supported Build Systems
//
// The package includes builders for:
//   - pyext.yaml - Descriptor-driven C/C++ extensions (most common)
//   - Makefile - Handwritten Makefile builds
//   - CMakeLists.txt - CMake builds (pybind11 projects)
//   - Cargo.toml - Rust extensions via Cargo (pyo3)
//   - go.mod / *.go - Go c-shared libraries loadable through ctypes
//
// # Basic Usage
//
// Create a builder factory and use it to build extensions:
//
//	factory := pyext.NewBuilderFactory()
//
//	config := &pyext.BuildConfig{
//	    PackageDir: "/path/to/package",
//	    DestPath:   "/path/to/install",
//	    PythonPath: "/usr/bin/python3",
//	    Verbose:    true,
//	}
//
//	results, err := factory.BuildAllExtensions(ctx, config, []string{"pyext.yaml"})
//
// # Architecture
//
// The package uses a factory pattern with registered builders:
//
//	BuilderFactory
//	├── DescriptorBuilder (pyext.yaml)
//	├── MakefileBuilder (Makefile, GNUmakefile)
//	├── CMakeBuilder (CMakeLists.txt)
//	├── CargoBuilder (Cargo.toml)
//	└── GoBuilder (go.mod, *.go)
//
// Each builder implements the Builder interface and can:
//   - Detect if it can handle a given build entry file
//   - Build the extension with proper error handling
//   - Clean build artifacts
//
// # Requirements
//
// Requires Go 1.25 or later. Building real extensions additionally requires a
// C toolchain and a CPython interpreter on PATH.
//
// # Platform Support
//
// Full support on Linux and macOS. Limited Windows support (MinGW/MSYS2);
// MSVC builds of .pyd files are untested.
package pyext
