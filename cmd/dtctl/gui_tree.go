package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/utils/ptr"

	"github.com/devtron-labs/dtconfig/internal/guiform"
	"github.com/devtron-labs/dtconfig/pkg/document"
)

type guiTreeOptions struct {
	SchemaFile   string
	Filename     string
	UISchemaFile string
	Toggles      []string
	Hidden       bool
	Output       string
}

type guiTreeNode struct {
	Path            string                  `json:"path"`
	Title           string                  `json:"title"`
	Type            string                  `json:"type,omitempty"`
	Checked         *bool                   `json:"checked,omitempty"`
	SelectionStatus guiform.SelectionStatus `json:"selectionStatus,omitempty"`
	Children        []guiTreeNode           `json:"children,omitempty"`
}

type guiTreeResult struct {
	Fields         []guiTreeNode `json:"fields"`
	UncheckedPaths []string      `json:"uncheckedPaths"`
}

func newGUITreeCommand() *cobra.Command {
	opts := &guiTreeOptions{}
	cmd := &cobra.Command{
		Use:   "gui-tree --schema FILE -f FILE",
		Short: "Show which fields of a chart schema a values document defines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readInput(cmd, opts.Filename)
			if err != nil {
				return err
			}
			return opts.run(text, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.SchemaFile, "schema", "", "JSON schema of the chart values.")
	cmd.Flags().StringVarP(&opts.Filename, "filename", "f", "", "Values document to read. Defaults to standard input.")
	cmd.Flags().StringArrayVar(&opts.Toggles, "toggle", nil, "Path of a field to toggle. May be repeated.")
	cmd.Flags().BoolVar(&opts.Hidden, "hidden-ui-schema", false, "Print the UI schema hiding unchecked fields.")
	cmd.Flags().StringVar(&opts.UISchemaFile, "ui-schema", "", "UI schema to hide unchecked fields in.")
	addOutputFlag(cmd, &opts.Output)
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func (o *guiTreeOptions) run(text string, out io.Writer) error {
	schema, err := os.ReadFile(o.SchemaFile)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", o.SchemaFile, err)
	}
	doc, err := document.Parse(text)
	if err != nil {
		return err
	}
	tree, err := guiform.NewTree(schema, doc)
	if err != nil {
		return fmt.Errorf("error building field tree: %w", err)
	}
	for _, path := range o.Toggles {
		if err = tree.UpdateNodeForPath(path); err != nil {
			return err
		}
	}

	if o.Hidden {
		var uiSchema []byte
		if o.UISchemaFile != "" {
			if uiSchema, err = os.ReadFile(o.UISchemaFile); err != nil {
				return fmt.Errorf("error reading %s: %w", o.UISchemaFile, err)
			}
		}
		if uiSchema, err = tree.HiddenUISchema(uiSchema); err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(uiSchema))
		return err
	}

	res := guiTreeResult{
		Fields:         toGUITreeNodes(tree.Root().Children),
		UncheckedPaths: tree.UncheckedPaths(),
	}
	if res.UncheckedPaths == nil {
		res.UncheckedPaths = []string{}
	}
	return printObject(out, o.Output, res)
}

func toGUITreeNodes(nodes []*guiform.Node) []guiTreeNode {
	out := make([]guiTreeNode, 0, len(nodes))
	for _, n := range nodes {
		node := guiTreeNode{
			Path:  n.Path,
			Title: n.Title,
			Type:  n.Type,
		}
		if n.IsLeaf() {
			node.Checked = ptr.To(n.IsChecked)
		} else {
			node.SelectionStatus = n.SelectionStatus
			node.Children = toGUITreeNodes(n.Children)
		}
		out = append(out, node)
	}
	return out
}
