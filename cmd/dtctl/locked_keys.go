package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

type redactOptions struct {
	Filename string
	Paths    []string
	OpsFile  string
}

func newRedactCommand() *cobra.Command {
	opts := &redactOptions{}
	cmd := &cobra.Command{
		Use:   "redact -f FILE --path JSONPATH [--path JSONPATH]...",
		Short: "Remove locked keys from a values document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readInput(cmd, opts.Filename)
			if err != nil {
				return err
			}
			return opts.run(text, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.Filename, "filename", "f", "", "Values document to read. Defaults to standard input.")
	cmd.Flags().StringArrayVar(&opts.Paths, "path", nil, "JSONPath of a locked key. May be repeated.")
	cmd.Flags().StringVar(
		&opts.OpsFile,
		"ops-file",
		"",
		"File to write the operations that restore the removed keys to.",
	)
	return cmd
}

func (o *redactOptions) run(text string, out io.Writer) error {
	res, err := lockedkeys.NewCodec().Redact(text, o.Paths)
	if err != nil {
		return fmt.Errorf("error redacting locked keys: %w", err)
	}
	if o.OpsFile != "" {
		ops := res.AddOperations
		if ops == nil {
			ops = document.Patch{}
		}
		data, err := json.MarshalIndent(ops, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding operations: %w", err)
		}
		if err = os.WriteFile(o.OpsFile, append(data, '\n'), 0o600); err != nil {
			return fmt.Errorf("error writing %s: %w", o.OpsFile, err)
		}
	}
	_, err = io.WriteString(out, res.Text)
	return err
}

type restoreOptions struct {
	Filename string
	OpsFile  string
}

func newRestoreCommand() *cobra.Command {
	opts := &restoreOptions{}
	cmd := &cobra.Command{
		Use:   "restore -f FILE --ops-file FILE",
		Short: "Put back locked keys removed by redact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readInput(cmd, opts.Filename)
			if err != nil {
				return err
			}
			return opts.run(text, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.Filename, "filename", "f", "", "Redacted document to read. Defaults to standard input.")
	cmd.Flags().StringVar(&opts.OpsFile, "ops-file", "", "Operations written by redact.")
	_ = cmd.MarkFlagRequired("ops-file")
	return cmd
}

func (o *restoreOptions) run(text string, out io.Writer) error {
	data, err := os.ReadFile(o.OpsFile)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", o.OpsFile, err)
	}
	ops, err := document.DecodePatch(data)
	if err != nil {
		return fmt.Errorf("error decoding operations: %w", err)
	}
	doc, err := document.Parse(text)
	if err != nil {
		return err
	}
	restored, err := lockedkeys.NewCodec().Restore(doc, ops)
	if err != nil {
		return fmt.Errorf("error restoring locked keys: %w", err)
	}
	text, err = document.Stringify(restored)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}
