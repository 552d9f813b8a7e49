package pyext

import (
	"os"
	"path/filepath"
)

// IncludeDirEnvVar overrides CPython header auto-detection when set.
const IncludeDirEnvVar = "PYEXT_INCLUDE_DIR"

// ResolveIncludeDirs determines the header search path for one extension
// module, in precedence order:
//
//  1. include_dirs listed in the descriptor (explicit override)
//  2. PYEXT_INCLUDE_DIR environment variable
//  3. the include directory reported by the interpreter's sysconfig
//
// Extra directories from config.IncludeDirs are appended after whichever
// source wins. Relative paths resolve against baseDir.
//
// Every resulting directory must exist: a missing one yields an
// *IncludePathNotFoundError rather than a silent fallback to the next
// precedence level. A path that names a directory gets exactly that
// directory or an error.
func ResolveIncludeDirs(mod *ExtModule, config *BuildConfig, interp *Interpreter, baseDir string) ([]string, error) {
	var dirs []string

	switch {
	case len(mod.IncludeDirs) > 0:
		dirs = append(dirs, mod.IncludeDirs...)
	case os.Getenv(IncludeDirEnvVar) != "":
		dirs = append(dirs, os.Getenv(IncludeDirEnvVar))
	case interp != nil && interp.IncludeDir != "":
		dirs = append(dirs, interp.IncludeDir)
	}

	if config != nil {
		dirs = append(dirs, config.IncludeDirs...)
	}

	resolved := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		full := dir
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, full)
		}

		info, err := os.Stat(full)
		if err != nil || !info.IsDir() {
			return nil, &IncludePathNotFoundError{Module: mod.Name, Path: full}
		}

		resolved = append(resolved, full)
	}

	return resolved, nil
}

// resolveSources maps the module's source list to absolute paths, failing
// with *SourceNotFoundError on the first missing file. Called before any
// compiler invocation so a bad descriptor never produces partial artifacts.
func resolveSources(mod *ExtModule, baseDir string) ([]string, error) {
	resolved := make([]string, 0, len(mod.Sources))

	for _, src := range mod.Sources {
		full := src
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, full)
		}

		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			return nil, &SourceNotFoundError{Module: mod.Name, Path: full}
		}

		resolved = append(resolved, full)
	}

	return resolved, nil
}
