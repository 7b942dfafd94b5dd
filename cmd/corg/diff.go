package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gubarz/corg/internal/config"
	"github.com/gubarz/corg/internal/corg"
	"github.com/gubarz/corg/internal/ui"
)

var diffCmd = &cobra.Command{
	Use:   "diff <input>",
	Short: "Show the changes corg would make without writing them",
	Long: `Processes the input like the root command but never writes the result.
The difference between the input and the result is shown in a pager when
stdout is a terminal, and printed otherwise.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	opts, err := config.ProcessorOptions()
	if err != nil {
		return err
	}
	opts.CheckOnly = false

	runner := corg.NewRunner(args[0])
	original, err := runner.Read()
	if err != nil {
		return err
	}
	produced, err := corg.NewProcessor(opts).Process(cmd.Context(), original)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	lines := ui.Diff(original, produced)
	if !ui.Changed(lines) {
		fmt.Fprintf(out, "%s is up to date\n", args[0])
		return nil
	}

	colorMode := config.GetColor()
	if isTerminal(os.Stdout) && runner.Input != corg.StdioPath && colorMode != ui.ColorOff {
		styles := ui.DefaultStyles(ui.NewRenderer(os.Stdout, colorMode))
		return ui.RunPager("corg diff "+args[0], styles.RenderDiff(lines), styles)
	}
	return ui.WriteDiff(out, original, produced, colorMode)
}
