package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/gubarz/corg/internal/config"
	"github.com/gubarz/corg/internal/corg"
	"github.com/gubarz/corg/internal/logging"
	"github.com/gubarz/corg/internal/ui"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "corg <input>",
	Short: "Run code embedded in a file and splice its output back in",
	Long: `corg scans a file for blocks of code between markers, runs each block
through the command named on its opening line and writes the command's
output back into the file.

  [[[#!bash
  echo "generated"
  ]]]
  generated
  [[[end]]]

Use - as input to read from standard input.`,
	Args:              usageArgs(cobra.ExactArgs(1)),
	PersistentPreRunE: setupLogging,
	RunE:              runProcess,
	SilenceErrors:     true,
	SilenceUsage:      true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(diffCmd)

	flags := rootCmd.Flags()
	flags.StringP("output", "o", "", "Write the output to a file instead of stdout")
	flags.BoolP("replace", "r", false, "Write the output to the input file, supersedes --output")
	flags.Bool("check", false, "Check that the file would not change if run again")

	pflags := rootCmd.PersistentFlags()
	pflags.BoolP("delete", "d", false, "Delete the generator code and markers from the output")
	pflags.BoolP("warn-empty", "e", false, "Warn if the file has no code blocks in it")
	pflags.BoolP("omit-output", "x", false, "Omit all generated output without running the generators")
	pflags.BoolP("checksum", "c", false, "Checksum the output to protect it against accidental change")
	pflags.String("markers", "", `The three markers surrounding blocks, separated by spaces (default "[[[#! ]]] [[[end]]]")`)
	pflags.String("log-level", "warn", "Log level: debug, info, warn, error")
	pflags.String("log-format", "text", "Log format: text, json")
	pflags.String("color", "auto", "Colorize output: auto, on, off")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &corg.UsageError{Err: err}
	})
}

func initConfig() {
	for _, fs := range []*pflag.FlagSet{rootCmd.Flags(), rootCmd.PersistentFlags()} {
		if err := config.BindFlags(fs); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding flags: %v\n", err)
		}
	}
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
	}

	switch config.GetColor() {
	case ui.ColorOn:
		color.NoColor = false
	case ui.ColorOff:
		color.NoColor = true
	}
}

// usageArgs marks argument validation failures as usage errors
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &corg.UsageError{Err: err}
		}
		return nil
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New(config.GetLogLevel(), config.GetLogFormat(), os.Stderr)
	if err != nil {
		return &corg.UsageError{Err: err}
	}
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	opts, err := config.ProcessorOptions()
	if err != nil {
		return err
	}

	runner := corg.NewRunner(args[0])
	runner.Output, _ = cmd.Flags().GetString("output")
	runner.Replace, _ = cmd.Flags().GetBool("replace")

	logging.FromContext(cmd.Context()).Debug("processing document",
		"input", runner.Input, "target", runner.Target(), "check", opts.CheckOnly)

	return runner.Execute(cmd.Context(), corg.NewProcessor(opts))
}

// reportError prints err to w and returns the exit code for it. A failed
// check is followed by a diff of the pending changes.
func reportError(w io.Writer, err error) int {
	c := color.New(color.FgRed)
	if errors.Is(err, corg.ErrNoBlocksDetected) {
		c = color.New(color.FgYellow)
	}
	c.Fprintln(w, err.Error())

	var checkErr *corg.CheckFailedError
	if errors.As(err, &checkErr) {
		if diffErr := ui.WriteDiff(w, checkErr.Original, checkErr.Produced, config.GetColor()); diffErr != nil {
			fmt.Fprintln(w, diffErr)
		}
	}
	return corg.ExitCode(err)
}

// isTerminal reports whether f is attached to a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func main() {
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}
