package pyext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// stubPython writes a shell script that answers the sysconfig query with
// fixed values, standing in for a real interpreter.
func stubPython(t *testing.T, version, includeDir, extSuffix string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub interpreter scripts need a POSIX shell")
	}

	script := fmt.Sprintf("#!/bin/sh\necho '%s'\necho '%s'\necho '%s'\n", version, includeDir, extSuffix)
	path := filepath.Join(t.TempDir(), "python3")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write stub interpreter: %v", err)
	}
	return path
}

func TestDetectInterpreterWithStub(t *testing.T) {
	stub := stubPython(t, "3.12.4", "/opt/py/include/python3.12", ".cpython-312-x86_64-linux-gnu.so")

	interp, err := DetectInterpreter(context.Background(), stub)
	if err != nil {
		t.Fatalf("DetectInterpreter returned error: %v", err)
	}

	if interp.Version != "3.12.4" {
		t.Errorf("expected version 3.12.4, got %s", interp.Version)
	}
	if interp.IncludeDir != "/opt/py/include/python3.12" {
		t.Errorf("unexpected include dir: %s", interp.IncludeDir)
	}
	if interp.ExtSuffix != ".cpython-312-x86_64-linux-gnu.so" {
		t.Errorf("unexpected ext suffix: %s", interp.ExtSuffix)
	}
}

func TestPythonExecutableEnvOverride(t *testing.T) {
	t.Setenv("PYEXT_PYTHON", "/custom/python")

	path, err := pythonExecutable("")
	if err != nil {
		t.Fatalf("pythonExecutable returned error: %v", err)
	}
	if path != "/custom/python" {
		t.Errorf("expected env override, got %s", path)
	}

	// Explicit path still wins over the environment
	path, err = pythonExecutable("/explicit/python")
	if err != nil {
		t.Fatalf("pythonExecutable returned error: %v", err)
	}
	if path != "/explicit/python" {
		t.Errorf("expected explicit path, got %s", path)
	}
}

func TestParseVersionConstraint(t *testing.T) {
	testCases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{">=3.12", ">=3.12", false},
		{">= 3.12", ">=3.12", false},
		{"3.12", "3.12", false},
		{"==3.12", "3.12", false},
		{">=3.12.1", ">=3.12", false},
		{"whenever", "", true},
		{">=three.twelve", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			c, err := ParseVersionConstraint(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.String() != tc.want {
				t.Errorf("expected %s, got %s", tc.want, c.String())
			}
		})
	}
}

func TestInterpreterSatisfies(t *testing.T) {
	testCases := []struct {
		version    string
		constraint string
		want       bool
	}{
		{"3.12.4", ">=3.12", true},
		{"3.13.0", ">=3.12", true},
		{"4.0.0", ">=3.12", true},
		{"3.11.9", ">=3.12", false},
		{"2.7.18", ">=3.12", false},
		{"3.12.4", "3.12", true},
		{"3.13.0", "3.12", false},
		{"3.12.4", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.version+"_"+tc.constraint, func(t *testing.T) {
			interp := &Interpreter{Version: tc.version}
			got, err := interp.Satisfies(tc.constraint)
			if err != nil {
				t.Fatalf("Satisfies returned error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Satisfies(%q) with %s = %v, want %v", tc.constraint, tc.version, got, tc.want)
			}
		})
	}
}

func TestInterpreterSatisfiesBadVersion(t *testing.T) {
	interp := &Interpreter{Version: "mystery"}
	if _, err := interp.Satisfies(">=3.12"); err == nil {
		t.Error("expected error for unparseable interpreter version")
	}
}
