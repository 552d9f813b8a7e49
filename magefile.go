//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test runs the full test suite.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Lint runs golangci-lint when available.
func Lint() error {
	return sh.RunV("golangci-lint", "run")
}

// Build compiles the pyext CLI.
func Build() error {
	mg.Deps(Tidy)
	return sh.RunV("go", "build", "-o", "bin/pyext", "./cmd/pyext")
}

// Tidy syncs go.mod with the source tree.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}
