package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/devtron-labs/dtconfig/internal/deploymenttemplate"
)

type saveOptions struct {
	editorOptions

	Filename     string
	SaveEligible bool
	Comment      string
}

func newSaveCommand() *cobra.Command {
	opts := &saveOptions{}
	cmd := &cobra.Command{
		Use:   "save --app-id ID [--env-id ID --env-name NAME] -f FILE",
		Short: "Save a values document as a deployment template",
		Long: "Save a values document as a deployment template. Protected " +
			"templates are proposed as a draft instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readInput(cmd, opts.Filename)
			if err != nil {
				return err
			}
			editor, err := opts.loadEditor(cmd.Context())
			if err != nil {
				return err
			}
			return opts.run(cmd.Context(), editor, text, cmd.ErrOrStderr())
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Filename, "filename", "f", "", "Values document to save. Defaults to standard input.")
	cmd.Flags().BoolVar(
		&opts.SaveEligible,
		"save-eligible",
		false,
		"Save the changes to unlocked keys when locked keys were changed too.",
	)
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "Comment of the draft of a protected template.")
	return cmd
}

var errLockedChanges = errors.New(
	"changes touch locked keys; use --save-eligible to save only the other changes",
)

func (o *saveOptions) run(
	ctx context.Context,
	editor *deploymenttemplate.Editor,
	text string,
	errOut io.Writer,
) error {
	defer printNotifications(errOut, editor)

	if o.ApprovalPolicyConfigured {
		if err := editor.ChangeProtectionTab(ctx, deploymenttemplate.ProtectConfigTabEditDraft); err != nil {
			return err
		}
	}
	if err := editor.ChangeEditMode(deploymenttemplate.EditModeYAML); err != nil {
		return err
	}
	if current := editor.State().CurrentEditor; o.EnvID > 0 && current != nil && !current.IsOverridden {
		if err := editor.ToggleOverride(); err != nil {
			return err
		}
	}
	if err := editor.SetEditorValue(text); err != nil {
		return err
	}
	if err := editor.TriggerSave(ctx); err != nil {
		return err
	}
	s := editor.State()
	if s.LockedDiffModal.ShowLockedTemplateDiffModal {
		if !o.SaveEligible {
			return errLockedChanges
		}
		if err := editor.SaveFromLockedModal(ctx); err != nil {
			return err
		}
		s = editor.State()
	}
	if s.ShowSaveChangesModal {
		return editor.SaveDraft(ctx, o.Comment)
	}
	return nil
}
