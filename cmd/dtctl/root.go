package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/devtron-labs/dtconfig/internal/logging"
)

type rootOptions struct {
	LogLevel  string
	LogFormat string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:               "dtctl",
		Short:             "Inspect and edit deployment templates",
		DisableAutoGenTag: true,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(opts.LogLevel)
			if err != nil {
				return err
			}
			format, err := logging.ParseFormat(opts.LogFormat)
			if err != nil {
				return err
			}
			logger := logging.New(logging.Options{
				Level:  level,
				Format: format,
				Output: cmd.ErrOrStderr(),
			})
			cmd.SetContext(logging.ContextWithLogger(cmd.Context(), logger))
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}
	cmd.PersistentFlags().StringVar(
		&opts.LogLevel,
		"log-level",
		"info",
		"One of error, info, debug or trace.",
	)
	cmd.PersistentFlags().StringVar(
		&opts.LogFormat,
		"log-format",
		string(logging.TextFormat),
		"Either text or json.",
	)

	cmd.AddCommand(newRedactCommand())
	cmd.AddCommand(newRestoreCommand())
	cmd.AddCommand(newDiffCommand())
	cmd.AddCommand(newSplitCommand())
	cmd.AddCommand(newGUITreeCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSaveCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// Execute runs the command line.
func Execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}
