package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/devtron-labs/dtconfig/internal/config"
	"github.com/devtron-labs/dtconfig/internal/deploymenttemplate"
	"github.com/devtron-labs/dtconfig/internal/features"
	"github.com/devtron-labs/dtconfig/internal/orchestrator"
)

// editorOptions identify the deployment template to work on.
type editorOptions struct {
	AppID                    int
	EnvID                    int
	EnvironmentName          string
	ApprovalPolicyConfigured bool
	IsSuperAdmin             bool
}

func (o *editorOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.AppID, "app-id", 0, "Application the deployment template belongs to.")
	cmd.Flags().IntVar(&o.EnvID, "env-id", 0, "Environment of the override. Zero selects the base configuration.")
	cmd.Flags().StringVar(&o.EnvironmentName, "env-name", "", "Name of the environment of the override.")
	cmd.Flags().BoolVar(
		&o.ApprovalPolicyConfigured,
		"protected",
		false,
		"Changes to the deployment template need approval.",
	)
	cmd.Flags().BoolVar(&o.IsSuperAdmin, "super-admin", false, "Act as a super admin, who may change locked keys.")
	_ = cmd.MarkFlagRequired("app-id")
}

func (o *editorOptions) validate() error {
	if o.AppID <= 0 {
		return fmt.Errorf("app-id must be positive, got %d", o.AppID)
	}
	if o.EnvID < 0 {
		return fmt.Errorf("env-id must not be negative, got %d", o.EnvID)
	}
	if o.EnvID > 0 && o.EnvironmentName == "" {
		return errors.New("env-name is required with env-id")
	}
	return nil
}

// loadEditor returns an editor for the selected template with everything
// loaded, talking to the API configured in the environment.
func (o *editorOptions) loadEditor(ctx context.Context) (*deploymenttemplate.Editor, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	cfg := config.RuntimeConfigFromEnv()
	client, err := orchestrator.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return o.loadEditorWith(ctx, cfg, client.Services())
}

func (o *editorOptions) loadEditorWith(
	ctx context.Context,
	cfg config.RuntimeConfig,
	svc deploymenttemplate.Services,
) (*deploymenttemplate.Editor, error) {
	editor := deploymenttemplate.NewEditor(
		deploymenttemplate.Options{
			AppID:                    o.AppID,
			EnvID:                    o.EnvID,
			EnvironmentName:          o.EnvironmentName,
			ApprovalPolicyConfigured: o.ApprovalPolicyConfigured,
			IsSuperAdmin:             o.IsSuperAdmin,
		},
		svc,
		features.Resolve(cfg),
		cfg,
	)
	if err := editor.Load(ctx); err != nil {
		return nil, err
	}
	return editor, nil
}

// printNotifications drains the notifications of editor to w.
func printNotifications(w io.Writer, editor *deploymenttemplate.Editor) {
	for _, n := range editor.Notifications() {
		switch {
		case n.Title != "" && n.Description != "":
			_, _ = fmt.Fprintf(w, "%s: %s: %s\n", n.Variant, n.Title, n.Description)
		case n.Title != "":
			_, _ = fmt.Fprintf(w, "%s: %s\n", n.Variant, n.Title)
		default:
			_, _ = fmt.Fprintf(w, "%s: %s\n", n.Variant, n.Description)
		}
	}
}
