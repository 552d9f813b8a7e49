package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pyext "github.com/contriboss/python-extension-go"
)

func newBuildCommand() *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build [entry files...]",
		Short: "Compile the package's native extension modules",
		Long: `Build compiles every extension module the package descriptor declares.

Without arguments the package descriptor (pyext.yaml) is the single build
entry. Explicit entry files (Makefile, CMakeLists.txt, Cargo.toml, ...) may be
passed instead, relative to the package directory.`,
		RunE: runBuild,
	}

	buildCmd.Flags().StringP("dest", "d", "", "destination directory for built modules")
	buildCmd.Flags().String("python", "", "python interpreter to build against")
	buildCmd.Flags().IntP("parallel", "j", 0, "parallel compile jobs")
	buildCmd.Flags().Bool("clean-first", false, "clean before building")
	buildCmd.Flags().BoolP("keep-going", "k", false, "continue past failed extensions")
	buildCmd.Flags().StringSlice("include-dirs", nil, "extra include directories")

	return buildCmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	flags.AddFlagSet(cmd.Root().PersistentFlags())

	opts, err := loadBuildOptions(flags)
	if err != nil {
		return err
	}
	logger := newLogger(opts.Verbose)

	entries, err := resolveEntries(opts.PackageDir, args)
	if err != nil {
		return err
	}

	config := opts.buildConfig()
	factory := pyext.NewBuilderFactory()

	logger.Info("building extensions", "package_dir", opts.PackageDir, "entries", entries)

	results, err := factory.BuildAllExtensions(cmd.Context(), config, entries)

	failed := 0
	for i, result := range results {
		if result.Success {
			logger.Info("extension built", "entry", entries[i], "artifacts", result.Extensions)
			continue
		}

		failed++
		logger.Error("extension build failed", "entry", entries[i], "error", result.Error)
		if opts.Verbose {
			for _, line := range result.Output {
				fmt.Fprintln(cmd.ErrOrStderr(), line)
			}
		}
	}

	if err != nil {
		return fmt.Errorf("%d of %d extensions failed: %w", failed, len(results), err)
	}

	logger.Info("build complete", "extensions", len(results))
	return nil
}
