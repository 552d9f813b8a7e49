package pyext

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

var nativeLibraryExtensions = map[string]struct{}{
	".so":    {},
	".pyd":   {},
	".dll":   {},
	".dylib": {},
}

// finalizeNativeExtensions copies compiled native libraries into the package's
// import layout and returns their paths relative to the package root.
//
// When no destination is configured the build is treated as in-place: the
// artifacts stay next to their sources and their package-relative paths are
// returned unchanged. Unlike interpreted files, a compiled module's filename
// carries the ABI tag, so bare ".so" outputs are renamed to the interpreter's
// EXT_SUFFIX when it is known.
func finalizeNativeExtensions(config *BuildConfig, entryFile, extensionDir string, built []string) ([]string, error) {
	if len(built) == 0 {
		return nil, nil
	}

	var hasNative bool
	for _, rel := range built {
		if isNativeLibrary(rel) {
			hasNative = true
			break
		}
	}

	if !hasNative {
		return makePackageRelative(config.PackageDir, entryFile, built), nil
	}

	primaryDest, extraDests := installTargets(config)
	if primaryDest == "" {
		return makePackageRelative(config.PackageDir, entryFile, built), nil
	}

	var installed []string

	for _, rel := range built {
		if !isNativeLibrary(rel) {
			continue
		}

		srcPath := filepath.Join(extensionDir, rel)
		if info, err := os.Stat(srcPath); err != nil || !info.Mode().IsRegular() {
			continue
		}

		relDest := determineInstallRelativePath(config, entryFile, rel)

		if err := copyFile(srcPath, filepath.Join(primaryDest, relDest)); err != nil {
			return nil, err
		}

		for _, dest := range extraDests {
			if err := copyFile(srcPath, filepath.Join(dest, relDest)); err != nil {
				return nil, err
			}
		}

		if relPath, err := filepath.Rel(config.PackageDir, filepath.Join(primaryDest, relDest)); err == nil {
			installed = append(installed, filepath.ToSlash(relPath))
		} else {
			installed = append(installed, filepath.ToSlash(filepath.Join(primaryDest, relDest)))
		}
	}

	return installed, nil
}

func makePackageRelative(packageDir, entryFile string, built []string) []string {
	var relPaths []string
	baseDir := filepath.Dir(entryFile)

	for _, rel := range built {
		full := filepath.Join(baseDir, rel)
		if packageDir != "" {
			if cleaned, err := filepath.Rel(packageDir, filepath.Join(packageDir, full)); err == nil {
				relPaths = append(relPaths, filepath.ToSlash(cleaned))
				continue
			}
		}
		relPaths = append(relPaths, filepath.ToSlash(full))
	}

	return relPaths
}

func isNativeLibrary(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := nativeLibraryExtensions[ext]
	return ok
}

// installTargets returns the primary destination directory and any additional
// destinations native modules are copied to.
func installTargets(config *BuildConfig) (primary string, additional []string) {
	var dirs []string

	add := func(dir string) {
		if dir == "" {
			return
		}
		if !filepath.IsAbs(dir) && config.PackageDir != "" {
			dir = filepath.Join(config.PackageDir, dir)
		}
		dirs = append(dirs, filepath.Clean(dir))
	}

	add(config.DestPath)
	add(config.LibDir)

	dirs = uniqueStrings(dirs)
	if len(dirs) == 0 {
		return "", nil
	}

	return dirs[0], dirs[1:]
}

// determineInstallRelativePath maps a built artifact to its path inside the
// destination, preserving the package structure around the build entry file.
//
// A descriptor at src/greet/fastmath/pyext.yaml producing fastmath.so installs
// to greet/fastmath/fastmath.so: the src-layout prefix is dropped and the rest
// of the directory chain is kept so the module imports from the same dotted
// path it was developed under. The filename itself gains the interpreter's
// ABI tag when the build produced a bare suffix.
func determineInstallRelativePath(config *BuildConfig, entryFile, builtRel string) string {
	filename := abiTaggedName(filepath.Base(builtRel), config)

	relDir := filepath.Dir(entryFile)
	relDir = strings.TrimPrefix(filepath.ToSlash(relDir), "src/")
	relDir = strings.Trim(relDir, "./")

	if relDir == "" {
		return safeRelativePath(filename)
	}

	return safeRelativePath(filepath.Join(filepath.FromSlash(relDir), filename))
}

// abiTaggedName renames a bare shared-library filename to carry the
// interpreter's EXT_SUFFIX. Already-tagged names pass through.
func abiTaggedName(filename string, config *BuildConfig) string {
	if config == nil || config.ExtSuffix == "" {
		return filename
	}
	if strings.HasSuffix(filename, config.ExtSuffix) {
		return filename
	}

	ext := filepath.Ext(filename)
	if _, native := nativeLibraryExtensions[strings.ToLower(ext)]; !native {
		return filename
	}

	stem := strings.TrimSuffix(filename, ext)
	// "fib.cpython-312-x86_64-linux-gnu" stems mean the tag is already there
	if strings.Contains(stem, ".") {
		return filename
	}

	return stem + config.ExtSuffix
}

func copyFile(srcPath, destPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(destPath)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return mkErr
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

func safeRelativePath(path string) string {
	clean := filepath.Clean(path)
	if clean == "." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return clean
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	var result []string

	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}

	return result
}
