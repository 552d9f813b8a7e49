package main

import (
	"github.com/spf13/cobra"

	pyext "github.com/contriboss/python-extension-go"
)

func newCleanCommand() *cobra.Command {
	cleanCmd := &cobra.Command{
		Use:   "clean [entry files...]",
		Short: "Remove build artifacts",
		RunE:  runClean,
	}

	return cleanCmd
}

func runClean(cmd *cobra.Command, args []string) error {
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

	for _, entry := range entries {
		builder, err := factory.BuilderFor(entry)
		if err != nil {
			return err
		}

		logger.Debug("cleaning", "entry", entry, "builder", builder.Name())
		if err := builder.Clean(cmd.Context(), config, entry); err != nil {
			return err
		}
	}

	logger.Info("clean complete", "entries", len(entries))
	return nil
}
