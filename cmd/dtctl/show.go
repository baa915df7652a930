package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/devtron-labs/dtconfig/internal/deploymenttemplate"
)

type showOptions struct {
	editorOptions

	HideLockedKeys   bool
	ResolveVariables bool
	Manifest         bool
	Draft            bool
}

func newShowCommand() *cobra.Command {
	opts := &showOptions{}
	cmd := &cobra.Command{
		Use:   "show --app-id ID [--env-id ID --env-name NAME]",
		Short: "Print a deployment template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			editor, err := opts.loadEditor(cmd.Context())
			if err != nil {
				return err
			}
			return opts.run(cmd.Context(), editor, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.HideLockedKeys, "hide-locked-keys", false, "Leave out locked keys.")
	cmd.Flags().BoolVar(&opts.ResolveVariables, "resolve-variables", false, "Substitute scoped variables.")
	cmd.Flags().BoolVar(&opts.Manifest, "manifest", false, "Print the rendered manifests instead of the values.")
	cmd.Flags().BoolVar(&opts.Draft, "draft", false, "Show the pending draft rather than the published values.")
	return cmd
}

func (o *showOptions) run(
	ctx context.Context,
	editor *deploymenttemplate.Editor,
	out io.Writer,
	errOut io.Writer,
) error {
	defer printNotifications(errOut, editor)

	if o.ApprovalPolicyConfigured && !o.Draft {
		if err := editor.ChangeProtectionTab(ctx, deploymenttemplate.ProtectConfigTabPublished); err != nil {
			return err
		}
	}
	if o.Manifest {
		if err := editor.ChangeHeaderTab(ctx, deploymenttemplate.ConfigHeaderTabDryRun); err != nil {
			return err
		}
		manifest, err := editor.RenderManifest(ctx)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, manifest)
		return err
	}
	if o.HideLockedKeys {
		if err := editor.SetHideLockedKeys(true); err != nil {
			return err
		}
	}
	if o.ResolveVariables {
		if err := editor.ToggleResolveScopedVariables(ctx); err != nil {
			return err
		}
	}

	s := editor.State()
	for _, warning := range s.SchemaWarnings {
		_, _ = fmt.Fprintf(errOut, "warning: %s\n", warning)
	}
	_, err := io.WriteString(out, deploymenttemplate.DisplayedEditorValue(s, editor.Flags()))
	return err
}
