package pyext

import (
	"fmt"
	"strings"
)

// SourceNotFoundError reports a source file listed in the descriptor that does
// not exist at build time. Resolution happens before any compiler is invoked,
// so a build failing with this error has produced no artifacts.
type SourceNotFoundError struct {
	Module string // Extension module that listed the source
	Path   string // Path as resolved against the package directory
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("module %s: source file not found: %s", e.Module, e.Path)
}

// IncludePathNotFoundError reports an include directory that does not exist on
// the build host. The build never falls back to a different header location:
// a descriptor that names a directory gets exactly that directory or an error.
type IncludePathNotFoundError struct {
	Module string // Extension module that required the directory
	Path   string // The missing include directory
}

func (e *IncludePathNotFoundError) Error() string {
	return fmt.Sprintf("module %s: include directory not found: %s", e.Module, e.Path)
}

// CompileError reports a failed compiler invocation for one translation unit.
type CompileError struct {
	Source string   // Source file that failed to compile
	Output []string // Compiler diagnostics
	Err    error    // Underlying process error
}

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("compiling %s failed", e.Source)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Output) > 0 {
		msg += "\n" + strings.Join(e.Output, "\n")
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Err }

// LinkError reports a failed link of compiled objects into the shared module.
type LinkError struct {
	Module string   // Extension module being linked
	Output []string // Linker diagnostics
	Err    error    // Underlying process error
}

func (e *LinkError) Error() string {
	msg := fmt.Sprintf("linking module %s failed", e.Module)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Output) > 0 {
		msg += "\n" + strings.Join(e.Output, "\n")
	}
	return msg
}

func (e *LinkError) Unwrap() error { return e.Err }
