package pyext

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Interpreter describes the CPython interpreter a build targets.
//
// The zero value is not useful; obtain one from DetectInterpreter, which
// locates an executable and queries it for the values builds need. All fields
// are plain data afterwards, so an Interpreter can also be constructed
// directly in tests or when the caller already knows the answers.
type Interpreter struct {
	Path       string // Absolute path to the python executable
	Version    string // Full version string, e.g. "3.12.4"
	IncludeDir string // sysconfig "include" path containing Python.h
	ExtSuffix  string // sysconfig EXT_SUFFIX, e.g. ".cpython-312-x86_64-linux-gnu.so"
}

// sysconfigQuery prints the three values DetectInterpreter needs, one per line.
const sysconfigQuery = `import sys, sysconfig
print("%d.%d.%d" % sys.version_info[:3])
print(sysconfig.get_paths()["include"])
print(sysconfig.get_config_var("EXT_SUFFIX"))`

// pythonExecutable returns the python executable to use.
//
// Precedence: explicit path > PYEXT_PYTHON environment variable > python3 on
// PATH > python on PATH.
func pythonExecutable(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if env := os.Getenv("PYEXT_PYTHON"); env != "" {
		return env, nil
	}

	for _, candidate := range []string{"python3", "python"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no python interpreter found in PATH (set PYEXT_PYTHON to override)")
}

// DetectInterpreter locates a CPython interpreter and queries its version,
// header directory, and extension suffix via sysconfig.
//
// explicitPath may be empty, in which case the PYEXT_PYTHON environment
// variable and then PATH are consulted.
func DetectInterpreter(ctx context.Context, explicitPath string) (*Interpreter, error) {
	path, err := pythonExecutable(explicitPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, "-c", sysconfigQuery)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("querying %s for sysconfig data: %w", path, err)
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("unexpected sysconfig output from %s: %q", path, string(output))
	}

	return &Interpreter{
		Path:       path,
		Version:    strings.TrimSpace(lines[0]),
		IncludeDir: strings.TrimSpace(lines[1]),
		ExtSuffix:  strings.TrimSpace(lines[2]),
	}, nil
}

// Satisfies reports whether the interpreter's version meets the descriptor's
// requires_python constraint. An empty constraint is always satisfied.
func (p *Interpreter) Satisfies(constraint string) (bool, error) {
	if constraint == "" {
		return true, nil
	}

	c, err := ParseVersionConstraint(constraint)
	if err != nil {
		return false, err
	}

	major, minor, ok := parsePythonVersion(p.Version)
	if !ok {
		return false, fmt.Errorf("cannot parse interpreter version %q", p.Version)
	}

	return c.matches(major, minor), nil
}

// VersionConstraint is a minimal requires_python constraint: either an exact
// "X.Y" match or a ">=X.Y" lower bound. That covers what extension packages
// actually declare; richer PEP 440 specifier sets are out of scope.
type VersionConstraint struct {
	Major   int
	Minor   int
	AtLeast bool // ">=" when true, exact match when false
}

// ParseVersionConstraint parses "X.Y" or ">=X.Y".
func ParseVersionConstraint(s string) (*VersionConstraint, error) {
	trimmed := strings.TrimSpace(s)

	atLeast := false
	if strings.HasPrefix(trimmed, ">=") {
		atLeast = true
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, ">="))
	} else if strings.HasPrefix(trimmed, "==") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "=="))
	}

	major, minor, ok := parsePythonVersion(trimmed)
	if !ok {
		return nil, fmt.Errorf("unsupported requires_python constraint %q (want \"X.Y\" or \">=X.Y\")", s)
	}

	return &VersionConstraint{Major: major, Minor: minor, AtLeast: atLeast}, nil
}

func (c *VersionConstraint) matches(major, minor int) bool {
	if c.AtLeast {
		return major > c.Major || (major == c.Major && minor >= c.Minor)
	}
	return major == c.Major && minor == c.Minor
}

func (c *VersionConstraint) String() string {
	if c.AtLeast {
		return fmt.Sprintf(">=%d.%d", c.Major, c.Minor)
	}
	return fmt.Sprintf("%d.%d", c.Major, c.Minor)
}

func parsePythonVersion(version string) (major, minor int, ok bool) {
	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return 0, 0, false
	}

	var err error
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}

	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}

	return major, minor, true
}
