package pyext

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFinalizeNativeExtensionsInstallsWithAbiTag(t *testing.T) {
	packageDir := t.TempDir()
	extDir := filepath.Join(packageDir, "src", "greet", "fastmath")

	if err := os.MkdirAll(extDir, 0o755); err != nil {
		t.Fatalf("failed to create extension directory: %v", err)
	}

	builtPath := filepath.Join(extDir, "fastmath.so")
	if err := os.WriteFile(builtPath, []byte("binary"), 0o755); err != nil {
		t.Fatalf("failed to write module: %v", err)
	}

	destDir := filepath.Join(packageDir, "dist")
	config := &BuildConfig{
		PackageDir: packageDir,
		DestPath:   destDir,
		ExtSuffix:  ".cpython-312-x86_64-linux-gnu.so",
	}

	installed, err := finalizeNativeExtensions(config, "src/greet/fastmath/pyext.yaml", extDir, []string{"fastmath.so"})
	if err != nil {
		t.Fatalf("finalizeNativeExtensions returned error: %v", err)
	}

	expected := "dist/greet/fastmath/fastmath.cpython-312-x86_64-linux-gnu.so"
	if len(installed) != 1 || installed[0] != expected {
		t.Fatalf("expected installed paths [%s], got %v", expected, installed)
	}

	copied := filepath.Join(destDir, "greet", "fastmath", "fastmath.cpython-312-x86_64-linux-gnu.so")
	if _, err := os.Stat(copied); err != nil {
		t.Fatalf("expected module copied to %s: %v", copied, err)
	}
}

func TestFinalizeNativeExtensionsTaggedNamePassesThrough(t *testing.T) {
	packageDir := t.TempDir()

	tagged := "fib.cpython-312-x86_64-linux-gnu.so"
	if err := os.WriteFile(filepath.Join(packageDir, tagged), []byte("binary"), 0o755); err != nil {
		t.Fatalf("failed to write module: %v", err)
	}

	destDir := filepath.Join(packageDir, "out")
	config := &BuildConfig{
		PackageDir: packageDir,
		DestPath:   destDir,
		ExtSuffix:  ".cpython-312-x86_64-linux-gnu.so",
	}

	installed, err := finalizeNativeExtensions(config, "pyext.yaml", packageDir, []string{tagged})
	if err != nil {
		t.Fatalf("finalizeNativeExtensions returned error: %v", err)
	}

	expected := "out/" + tagged
	if len(installed) != 1 || installed[0] != expected {
		t.Fatalf("expected installed paths [%s], got %v", expected, installed)
	}
}

func TestFinalizeNativeExtensionsInPlaceWithoutDest(t *testing.T) {
	packageDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(packageDir, "fib.so"), []byte("binary"), 0o755); err != nil {
		t.Fatalf("failed to write module: %v", err)
	}

	config := &BuildConfig{PackageDir: packageDir}

	installed, err := finalizeNativeExtensions(config, "pyext.yaml", packageDir, []string{"fib.so"})
	if err != nil {
		t.Fatalf("finalizeNativeExtensions returned error: %v", err)
	}

	if len(installed) != 1 || installed[0] != "fib.so" {
		t.Fatalf("expected in-place path [fib.so], got %v", installed)
	}
}

func TestFinalizeNativeExtensionsReturnsOriginalPathsForNonNative(t *testing.T) {
	packageDir := t.TempDir()
	extDir := filepath.Join(packageDir, "ext", "pkg")

	if err := os.MkdirAll(extDir, 0o755); err != nil {
		t.Fatalf("failed to create extension directory: %v", err)
	}

	if err := os.WriteFile(filepath.Join(extDir, "artifact.txt"), []byte("data"), 0o600); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	config := &BuildConfig{
		PackageDir: packageDir,
		DestPath:   filepath.Join(packageDir, "dist"),
	}

	installed, err := finalizeNativeExtensions(config, "ext/pkg/Makefile", extDir, []string{"artifact.txt"})
	if err != nil {
		t.Fatalf("finalizeNativeExtensions returned error: %v", err)
	}

	expected := "ext/pkg/artifact.txt"
	if len(installed) != 1 || installed[0] != expected {
		t.Fatalf("expected installed paths [%s], got %v", expected, installed)
	}

	if _, err := os.Stat(filepath.Join(extDir, "artifact.txt")); err != nil {
		t.Fatalf("expected artifact to remain in place: %v", err)
	}
}

func TestAbiTaggedName(t *testing.T) {
	config := &BuildConfig{ExtSuffix: ".cpython-312-x86_64-linux-gnu.so"}

	testCases := []struct {
		in   string
		want string
	}{
		{"fib.so", "fib.cpython-312-x86_64-linux-gnu.so"},
		{"fib.cpython-312-x86_64-linux-gnu.so", "fib.cpython-312-x86_64-linux-gnu.so"},
		{"fib.c", "fib.c"},
		{"README", "README"},
	}

	for _, tc := range testCases {
		if got := abiTaggedName(tc.in, config); got != tc.want {
			t.Errorf("abiTaggedName(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}

	if got := abiTaggedName("fib.so", &BuildConfig{}); got != "fib.so" {
		t.Errorf("expected passthrough without suffix, got %s", got)
	}
}
