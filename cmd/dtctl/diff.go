package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/devtron-labs/dtconfig/pkg/docdiff"
	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

type diffOptions struct {
	From   string
	To     string
	Output string
	// KeepOrder prints the edited document in the key order of the
	// unedited one instead of the patch.
	KeepOrder bool
}

func (o *diffOptions) addFileFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.From, "from", "", "The unedited document.")
	cmd.Flags().StringVar(&o.To, "to", "", "The edited document.")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func (o *diffOptions) read(cmd *cobra.Command) (*document.Node, *document.Node, error) {
	fromText, err := readInput(cmd, o.From)
	if err != nil {
		return nil, nil, err
	}
	toText, err := readInput(cmd, o.To)
	if err != nil {
		return nil, nil, err
	}
	from, err := document.Parse(fromText)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing %s: %w", o.From, err)
	}
	to, err := document.Parse(toText)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing %s: %w", o.To, err)
	}
	return from, to, nil
}

func newDiffCommand() *cobra.Command {
	opts := &diffOptions{}
	cmd := &cobra.Command{
		Use:   "diff --from FILE --to FILE",
		Short: "Print the JSON patch between two values documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := opts.read(cmd)
			if err != nil {
				return err
			}
			return opts.run(from, to, cmd.OutOrStdout())
		},
	}
	opts.addFileFlags(cmd)
	addOutputFlag(cmd, &opts.Output)
	cmd.Flags().BoolVar(
		&opts.KeepOrder,
		"keep-order",
		false,
		"Print the edited document with the key order of the unedited one.",
	)
	return cmd
}

func (o *diffOptions) run(from, to *document.Node, out io.Writer) error {
	if o.KeepOrder {
		merged, err := docdiff.ApplyDiffOntoBase(from, to)
		if err != nil {
			return err
		}
		text, err := document.Stringify(merged)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, text)
		return err
	}
	patch := docdiff.Diff(from, to)
	if patch == nil {
		patch = document.Patch{}
	}
	return printObject(out, o.Output, patch)
}

type splitOptions struct {
	diffOptions
	Paths   []string
	Allowed bool
}

type splitResult struct {
	Eligible          document.Patch `json:"eligible"`
	Ineligible        document.Patch `json:"ineligible"`
	EligibleChanges   any            `json:"eligibleChanges"`
	IneligibleChanges any            `json:"ineligibleChanges"`
}

func newSplitCommand() *cobra.Command {
	opts := &splitOptions{}
	cmd := &cobra.Command{
		Use:   "split --from FILE --to FILE --path JSONPATH [--path JSONPATH]...",
		Short: "Split the changes between two values documents by lock eligibility",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := opts.read(cmd)
			if err != nil {
				return err
			}
			return opts.run(from, to, cmd.OutOrStdout())
		},
	}
	opts.addFileFlags(cmd)
	addOutputFlag(cmd, &opts.Output)
	cmd.Flags().StringArrayVar(&opts.Paths, "path", nil, "JSONPath of a locked key. May be repeated.")
	cmd.Flags().BoolVar(&opts.Allowed, "allowed", false, "Treat the paths as the only keys that may change.")
	return cmd
}

func (o *splitOptions) run(from, to *document.Node, out io.Writer) error {
	split, err := docdiff.SplitByLockEligibility(from, to, lockedkeys.Config{
		Paths:   o.Paths,
		Allowed: o.Allowed,
	})
	if err != nil {
		return fmt.Errorf("error splitting changes: %w", err)
	}
	res := splitResult{
		Eligible:   split.Eligible,
		Ineligible: split.Ineligible,
	}
	if res.Eligible == nil {
		res.Eligible = document.Patch{}
	}
	if res.Ineligible == nil {
		res.Ineligible = document.Patch{}
	}
	if res.EligibleChanges, err = document.ToValue(split.EligibleChanges); err != nil {
		return err
	}
	if res.IneligibleChanges, err = document.ToValue(split.IneligibleChanges); err != nil {
		return err
	}
	return printObject(out, o.Output, res)
}
