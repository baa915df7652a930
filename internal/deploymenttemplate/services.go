package deploymenttemplate

import (
	"context"

	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

// SaveResult is what the backend reports about an accepted save.
type SaveResult struct {
	// IsLockConfigError means the save touched locked keys and was not
	// applied.
	IsLockConfigError bool `json:"isLockConfigError"`
}

// ChartService lists the charts an application may use.
type ChartService interface {
	GetChartReferences(ctx context.Context, appID, envID int) (ChartReferences, error)
}

// TemplateService reads and writes deployment templates.
type TemplateService interface {
	GetBaseTemplate(ctx context.Context, appID, chartRefID int) (BaseTemplateResponse, error)
	GetEnvOverride(ctx context.Context, appID, envID, chartRefID int) (EnvOverrideResponse, error)
	CreateBaseTemplate(ctx context.Context, payload BaseTemplatePayload) (SaveResult, error)
	UpdateBaseTemplate(ctx context.Context, payload BaseTemplatePayload) (SaveResult, error)
	CreateEnvOverride(ctx context.Context, appID, envID int, payload EnvOverridePayload) (SaveResult, error)
	UpdateEnvOverride(ctx context.Context, appID int, payload EnvOverridePayload) (SaveResult, error)
}

// DraftRequest proposes a change to a protected configuration.
type DraftRequest struct {
	AppID          int         `json:"appId"`
	EnvID          int         `json:"envId"`
	Resource       int         `json:"resource"`
	ResourceName   string      `json:"resourceName"`
	Action         DraftAction `json:"action"`
	Data           string      `json:"data"`
	UserComment    string      `json:"userComment,omitempty"`
	ChangeProposed bool        `json:"changeProposed"`
	// DraftID and LastDraftVersionID identify the draft being updated. Both
	// are zero when creating one.
	DraftID            int `json:"draftId,omitempty"`
	LastDraftVersionID int `json:"lastDraftVersionId,omitempty"`
}

// DraftService manages drafts of protected configurations.
type DraftService interface {
	// GetDraftByResourceName returns the latest draft of a resource, or nil
	// if there is none.
	GetDraftByResourceName(
		ctx context.Context,
		appID int,
		envID int,
		resourceType int,
		resourceName string,
	) (*DraftMetadata, error)
	SaveDraft(ctx context.Context, req DraftRequest) (SaveResult, error)
}

// ProtectionState tells whether changes to a configuration need approval.
type ProtectionState int

const (
	ProtectionStateEnabled  ProtectionState = 1
	ProtectionStateDisabled ProtectionState = 2
)

// ConfigProtection is the protection of the configuration of one
// environment of an application. EnvID is BaseConfigurationEnvID for the
// base configuration.
type ConfigProtection struct {
	AppID int             `json:"appId"`
	EnvID int             `json:"envId"`
	State ProtectionState `json:"state"`
}

// IsProtected reports whether protections mark the configuration of envID
// as protected. Configurations without an entry are not protected.
func IsProtected(protections []ConfigProtection, envID int) bool {
	for _, p := range protections {
		if p.EnvID == envID {
			return p.State == ProtectionStateEnabled
		}
	}
	return false
}

// ProtectionService lists which configurations of an application are
// protected.
type ProtectionService interface {
	GetConfigProtections(ctx context.Context, appID int) ([]ConfigProtection, error)
}

// LockedKeysService returns the locked key configuration of a document.
// envID is BaseConfigurationEnvID for the base configuration.
type LockedKeysService interface {
	GetLockedKeys(ctx context.Context, appID, envID int) (lockedkeys.Config, error)
}

// ResolveRequest asks for the scoped variables in Values to be substituted.
type ResolveRequest struct {
	AppID      int    `json:"appId"`
	EnvID      int    `json:"envId,omitempty"`
	ChartRefID int    `json:"chartRefId"`
	Values     string `json:"values"`
}

// ResolveResponse is the result of a ResolveRequest.
type ResolveResponse struct {
	ResolvedData        string `json:"resolvedData"`
	AreVariablesPresent bool   `json:"areVariablesPresent"`
}

// VariableResolver substitutes scoped variables.
type VariableResolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (ResolveResponse, error)
}

// ManifestRequest asks for the manifests a chart renders from values.
type ManifestRequest struct {
	AppID        int    `json:"appId"`
	EnvID        int    `json:"envId,omitempty"`
	ChartRefID   int    `json:"chartRefId"`
	Values       string `json:"values"`
	ResourceName string `json:"resourceName,omitempty"`
}

// ManifestService renders manifests for a dry run.
type ManifestService interface {
	RenderManifest(ctx context.Context, req ManifestRequest) (string, error)
}

// Services are the collaborators of an Editor. Drafts, Protections,
// LockedKeys, Variables and Manifests may be nil, which disables what they
// serve.
type Services struct {
	Charts      ChartService
	Templates   TemplateService
	Drafts      DraftService
	Protections ProtectionService
	LockedKeys  LockedKeysService
	Variables   VariableResolver
	Manifests   ManifestService
}
