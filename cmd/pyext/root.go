package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the pyext CLI.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pyext",
		Short: "pyext - native extension builds for Python packages",
		Long: `pyext compiles native extension modules for Python packages from a
pyext.yaml descriptor, the way setuptools' build_ext does, without requiring
a Python-side build backend.

The descriptor names the package, its version, and each extension module's
sources. CPython headers are located from the active interpreter unless the
descriptor or the PYEXT_INCLUDE_DIR environment variable overrides them.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringP("package-dir", "C", ".", "package root directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newDoctorCommand())

	return rootCmd
}

// newLogger returns a text logger on stderr, debug-level when verbose.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
