package pyext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writePackage lays out a minimal package directory with a descriptor and
// returns its path.
func writePackage(t *testing.T, descriptor string, sources map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "pyext.yaml"), []byte(descriptor), 0o600); err != nil {
		t.Fatalf("failed to write descriptor: %v", err)
	}

	for name, content := range sources {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	return dir
}

// stubCompiler writes a shell script standing in for cc: it creates the file
// named by -o and exits successfully, so compile and link paths can run
// without a real toolchain.
func stubCompiler(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub compiler scripts need a POSIX shell")
	}

	script := `#!/bin/sh
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
done
[ -n "$out" ] && : > "$out"
`
	path := filepath.Join(t.TempDir(), "cc")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write stub compiler: %v", err)
	}
	return path
}

func TestDescriptorBuildMissingSource(t *testing.T) {
	headerDir := t.TempDir()

	// fib.c is declared but never written
	dir := writePackage(t, `name: fib
version: "0.69"
ext_modules:
  - name: fib
    sources: [fib.c]
    include_dirs: ["`+headerDir+`"]
`, nil)

	builder := &DescriptorBuilder{}
	config := &BuildConfig{PackageDir: dir, ExtSuffix: ".so"}

	result, err := builder.Build(context.Background(), config, "pyext.yaml")
	if err == nil {
		t.Fatal("expected error for missing source")
	}

	var srcErr *SourceNotFoundError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceNotFoundError, got %T: %v", err, err)
	}

	if result.Success {
		t.Error("result should not report success")
	}

	// No partial artifact may exist anywhere in the package dir
	matches, _ := filepath.Glob(filepath.Join(dir, "*.so"))
	if len(matches) != 0 {
		t.Errorf("expected no artifacts after failed resolution, found %v", matches)
	}
	if _, err := os.Stat(filepath.Join(dir, buildScratchDir)); err == nil {
		t.Error("expected no scratch dir after failed source resolution")
	}
}

func TestDescriptorBuildMissingIncludeDir(t *testing.T) {
	dir := writePackage(t, `name: fib
version: "0.69"
ext_modules:
  - name: fib
    sources: [fib.c]
    include_dirs: ["C:/msys64/ucrt64/include/python3.12"]
`, map[string]string{"fib.c": "int unused;\n"})

	builder := &DescriptorBuilder{}
	config := &BuildConfig{PackageDir: dir, ExtSuffix: ".so"}

	result, err := builder.Build(context.Background(), config, "pyext.yaml")
	if err == nil {
		t.Fatal("expected error for missing include dir")
	}

	var incErr *IncludePathNotFoundError
	if !errors.As(err, &incErr) {
		t.Fatalf("expected IncludePathNotFoundError, got %T: %v", err, err)
	}

	if result.Success {
		t.Error("result should not report success")
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.so"))
	if len(matches) != 0 {
		t.Errorf("expected no artifacts after failed resolution, found %v", matches)
	}
}

func TestDescriptorBuildInvalidDescriptor(t *testing.T) {
	dir := writePackage(t, `name: ""
version: "1.0"
ext_modules:
  - name: fib
    sources: [fib.c]
`, nil)

	builder := &DescriptorBuilder{}
	config := &BuildConfig{PackageDir: dir}

	_, err := builder.Build(context.Background(), config, "pyext.yaml")
	if err == nil {
		t.Fatal("expected error for invalid descriptor")
	}
}

func TestDescriptorBuilderExtSuffix(t *testing.T) {
	builder := &DescriptorBuilder{}

	config := &BuildConfig{ExtSuffix: ".cpython-312-x86_64-linux-gnu.so"}
	if got := builder.extSuffix(config, nil); got != ".cpython-312-x86_64-linux-gnu.so" {
		t.Errorf("config suffix should win, got %s", got)
	}

	interp := &Interpreter{ExtSuffix: ".cpython-313-darwin.so"}
	if got := builder.extSuffix(&BuildConfig{}, interp); got != ".cpython-313-darwin.so" {
		t.Errorf("interpreter suffix expected, got %s", got)
	}
}

func TestDescriptorBuilderVersionConstraintRejected(t *testing.T) {
	// Interpreter detection is forced by requires_python; a stub interpreter
	// script reports a version below the constraint.
	stub := stubPython(t, "3.10.2", t.TempDir(), ".so")

	headerDir := t.TempDir()
	dir := writePackage(t, `name: fib
version: "0.69"
requires_python: ">=3.12"
ext_modules:
  - name: fib
    sources: [fib.c]
    include_dirs: ["`+headerDir+`"]
`, map[string]string{"fib.c": "int unused;\n"})

	builder := &DescriptorBuilder{}
	config := &BuildConfig{PackageDir: dir, PythonPath: stub, ExtSuffix: ".so"}

	_, err := builder.Build(context.Background(), config, "pyext.yaml")
	if err == nil {
		t.Fatal("expected constraint violation error")
	}
}

func TestDescriptorBuildCleanFirstRemovesStaleArtifacts(t *testing.T) {
	t.Setenv("CC", stubCompiler(t))

	headerDir := t.TempDir()
	dir := writePackage(t, `name: fib
version: "0.69"
ext_modules:
  - name: fib
    sources: [fib.c]
    include_dirs: ["`+headerDir+`"]
`, map[string]string{"fib.c": "int unused;\n"})

	// Stale module from an earlier build against a different interpreter
	stale := filepath.Join(dir, "fib.so")
	if err := os.WriteFile(stale, []byte("old binary"), 0o755); err != nil {
		t.Fatalf("write stale artifact: %v", err)
	}

	builder := &DescriptorBuilder{}
	config := &BuildConfig{
		PackageDir: dir,
		ExtSuffix:  ".cpython-312-x86_64-linux-gnu.so",
		CleanFirst: true,
	}

	result, err := builder.Build(context.Background(), config, "pyext.yaml")
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !result.Success {
		t.Fatal("expected successful build")
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale module should be removed before a clean-first build")
	}
	if _, err := os.Stat(filepath.Join(dir, "fib.cpython-312-x86_64-linux-gnu.so")); err != nil {
		t.Errorf("expected freshly linked module: %v", err)
	}
}

func TestDescriptorBuildParallelCompile(t *testing.T) {
	t.Setenv("CC", stubCompiler(t))

	headerDir := t.TempDir()
	dir := writePackage(t, `name: multi
version: "1.0"
ext_modules:
  - name: multi
    sources: [a.c, b.c, c.c]
    include_dirs: ["`+headerDir+`"]
`, map[string]string{
		"a.c": "int a;\n",
		"b.c": "int b;\n",
		"c.c": "int c;\n",
	})

	builder := &DescriptorBuilder{}
	config := &BuildConfig{
		PackageDir: dir,
		ExtSuffix:  ".so",
		Parallel:   4,
	}

	result, err := builder.Build(context.Background(), config, "pyext.yaml")
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !result.Success || len(result.Extensions) != 1 {
		t.Fatalf("expected one built extension, got %+v", result)
	}

	for _, obj := range []string{"a.o", "b.o", "c.o"} {
		if _, err := os.Stat(filepath.Join(dir, buildScratchDir, "multi", obj)); err != nil {
			t.Errorf("expected object file %s: %v", obj, err)
		}
	}
}

func TestDescriptorBuilderClean(t *testing.T) {
	headerDir := t.TempDir()
	dir := writePackage(t, `name: fib
version: "0.69"
ext_modules:
  - name: fib
    sources: [fib.c]
    include_dirs: ["`+headerDir+`"]
`, map[string]string{"fib.c": "int unused;\n"})

	// Simulate leftovers from an earlier build
	if err := os.MkdirAll(filepath.Join(dir, buildScratchDir, "fib"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	artifact := filepath.Join(dir, "fib.cpython-312-x86_64-linux-gnu.so")
	if err := os.WriteFile(artifact, []byte("binary"), 0o755); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	builder := &DescriptorBuilder{}
	config := &BuildConfig{PackageDir: dir}

	if err := builder.Clean(context.Background(), config, "pyext.yaml"); err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, buildScratchDir)); !os.IsNotExist(err) {
		t.Error("scratch dir should be removed")
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Error("linked module should be removed")
	}
}
