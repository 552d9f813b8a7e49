package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	pyext "github.com/contriboss/python-extension-go"
)

func newInspectCommand() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the package descriptor",
		Long: `Inspect loads and validates the package descriptor, then prints its
normalized YAML form. Reading the descriptor has no side effects; nothing is
resolved against the filesystem until a build runs.`,
		RunE: runInspect,
	}

	return inspectCmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	packageDir, _ := cmd.Root().PersistentFlags().GetString("package-dir")
	packageDir, err := filepath.Abs(packageDir)
	if err != nil {
		return err
	}

	descPath, err := pyext.FindDescriptor(packageDir)
	if err != nil {
		return err
	}

	desc, err := pyext.LoadDescriptor(descPath)
	if err != nil {
		return err
	}

	snapshot := desc.Describe()
	out, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", descPath, out)
	return nil
}
