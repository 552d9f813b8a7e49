package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	pyext "github.com/contriboss/python-extension-go"
)

func newDoctorCommand() *cobra.Command {
	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check build tool and interpreter availability",
		Long: `Doctor reports which builders have their required tools on PATH and which
Python interpreter a build would target. Useful before filing "build fails on
my machine" reports.`,
		RunE: runDoctor,
	}

	doctorCmd.Flags().String("python", "", "python interpreter to check")

	return doctorCmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	python, _ := cmd.Flags().GetString("python")
	reportInterpreter(cmd.Context(), out, python)

	factory := pyext.NewBuilderFactory()
	for _, builder := range factory.ListBuilders() {
		checker, ok := builder.(pyext.ToolChecker)
		if !ok {
			continue
		}

		if err := checker.CheckTools(); err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", builder.Name(), err)
			continue
		}
		fmt.Fprintf(out, "✓ %s: all tools available\n", builder.Name())
	}

	return nil
}

func reportInterpreter(ctx context.Context, out io.Writer, python string) {
	interp, err := pyext.DetectInterpreter(ctx, python)
	if err != nil {
		fmt.Fprintf(out, "✗ Python: %v\n", err)
		return
	}

	fmt.Fprintf(out, "✓ Python %s (%s)\n", interp.Version, interp.Path)
	fmt.Fprintf(out, "  headers:    %s\n", interp.IncludeDir)
	fmt.Fprintf(out, "  ext suffix: %s\n", interp.ExtSuffix)
}
