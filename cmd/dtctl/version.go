package main

import (
	"github.com/spf13/cobra"

	"github.com/devtron-labs/dtconfig/pkg/x/version"
)

func newVersionCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printObject(cmd.OutOrStdout(), output, version.GetVersion())
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}
