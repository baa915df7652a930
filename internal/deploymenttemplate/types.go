package deploymenttemplate

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/copystructure"

	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

// MergeStrategy is how an environment override combines with the base
// template.
type MergeStrategy string

const (
	// MergeStrategyReplace means the override document replaces the base
	// document entirely.
	MergeStrategyReplace MergeStrategy = "replace"
	// MergeStrategyPatch means the override document is merged onto the base
	// document.
	MergeStrategyPatch MergeStrategy = "patch"
)

// DefaultMergeStrategy is used when the server does not report one.
const DefaultMergeStrategy = MergeStrategyReplace

// DraftState is the lifecycle state of a draft.
type DraftState int

const (
	DraftStateInit          DraftState = 1
	DraftStateDiscarded     DraftState = 2
	DraftStatePublished     DraftState = 3
	DraftStateAwaitApproval DraftState = 4
)

// DraftAction is what publishing a draft does to the configuration.
type DraftAction int

const (
	DraftActionAdd    DraftAction = 1
	DraftActionUpdate DraftAction = 2
	DraftActionDelete DraftAction = 3
)

// DeploymentTemplateResourceType identifies deployment templates in the
// draft API.
const DeploymentTemplateResourceType = 3

// BaseConfigurationEnvID is the environment id used for the base
// configuration when talking to environment scoped APIs.
const BaseConfigurationEnvID = -1

// ConfigHeaderTab is the top level tab of the editor.
type ConfigHeaderTab string

const (
	ConfigHeaderTabValues    ConfigHeaderTab = "values"
	ConfigHeaderTabInherited ConfigHeaderTab = "inherited"
	ConfigHeaderTabDryRun    ConfigHeaderTab = "dry-run"
)

// ProtectConfigTab is the sub tab of the values tab of a protected
// configuration.
type ProtectConfigTab string

const (
	ProtectConfigTabPublished ProtectConfigTab = "published"
	ProtectConfigTabCompare   ProtectConfigTab = "compare"
	ProtectConfigTabEditDraft ProtectConfigTab = "edit-draft"
)

// DryRunEditorMode selects what the dry run tab renders when a draft exists.
type DryRunEditorMode string

const (
	DryRunEditorModeValuesFromDraft DryRunEditorMode = "values-from-draft"
	DryRunEditorModePublishedValues DryRunEditorMode = "published-values"
	DryRunEditorModeApprovalPending DryRunEditorMode = "approval-pending"
)

// CompareFromOption selects the right hand side of the compare tab while a
// draft awaits approval.
type CompareFromOption string

const (
	CompareFromApprovalPending CompareFromOption = "approval-pending"
	CompareFromDraft           CompareFromOption = "draft"
)

// EditMode is how the document is being edited.
type EditMode string

const (
	EditModeGUI  EditMode = "gui"
	EditModeYAML EditMode = "yaml"
)

// PopupNode is the popup currently replacing the toolbar menu.
type PopupNode string

const (
	PopupNodeNone         PopupNode = ""
	PopupNodeEditHistory  PopupNode = "edit-history"
	PopupNodeDiscardDraft PopupNode = "discard-draft"
)

// EditorStateKey names one of the snapshots held in State.
type EditorStateKey string

const (
	EditorStateNone      EditorStateKey = ""
	EditorStateCurrent   EditorStateKey = "current"
	EditorStatePublished EditorStateKey = "published"
	EditorStateDraft     EditorStateKey = "draft"
	EditorStateBase      EditorStateKey = "base"
)

// ChartVersion is one version of a deployment chart.
type ChartVersion struct {
	ID                    int    `json:"id"`
	Version               string `json:"version"`
	Name                  string `json:"name"`
	Description           string `json:"description,omitempty"`
	IsAppMetricsSupported bool   `json:"isAppMetricsSupported"`
	UserUploaded          bool   `json:"userUploaded,omitempty"`
}

// ChartMetadata describes a chart independently of its versions.
type ChartMetadata struct {
	ChartDescription string `json:"chartDescription"`
}

// ChartDetails is the chart catalog of an application.
type ChartDetails struct {
	Charts             []ChartVersion
	ChartsMetadata     map[string]ChartMetadata
	GlobalChartDetails ChartVersion
	LatestAppChartRef  int
}

// ChartConfig is the persistence identity of a base template.
type ChartConfig struct {
	ID                      int    `json:"id,omitempty"`
	RefChartTemplate        string `json:"refChartTemplate,omitempty"`
	RefChartTemplateVersion string `json:"refChartTemplateVersion,omitempty"`
	ChartRefID              int    `json:"chartRefId,omitempty"`
	Readme                  string `json:"readme,omitempty"`
}

// EnvironmentConfig is the persistence identity of an environment override.
type EnvironmentConfig struct {
	ID             int    `json:"id,omitempty"`
	Status         int    `json:"status,omitempty"`
	ManualReviewed bool   `json:"manualReviewed,omitempty"`
	Active         bool   `json:"active,omitempty"`
	Namespace      string `json:"namespace,omitempty"`
}

// DraftMetadata describes the latest draft of a protected configuration.
type DraftMetadata struct {
	AppID             int         `json:"appId"`
	EnvID             int         `json:"envId"`
	DraftID           int         `json:"draftId"`
	DraftVersionID    int         `json:"draftVersionId"`
	DraftState        DraftState  `json:"draftState"`
	DraftResourceType int         `json:"draftResourceType"`
	ResourceName      string      `json:"resourceName"`
	Action            DraftAction `json:"action"`
	Data              string      `json:"data"`
	UserEmail         string      `json:"userEmail,omitempty"`
	Approvers         []string    `json:"approvers,omitempty"`
	CanApprove        bool        `json:"canApprove"`
	CommentsCount     int         `json:"commentsCount"`
	IsAppAdmin        bool        `json:"isAppAdmin"`
}

// IsActive reports whether d is a draft that is still being edited or
// awaits approval. A nil draft is not active.
func (d *DraftMetadata) IsActive() bool {
	return d != nil && (d.DraftState == DraftStateInit || d.DraftState == DraftStateAwaitApproval)
}

// TemplateSnapshot is one version of the configuration document together
// with everything needed to render and save it. Snapshots held by State
// other than the current editor are never modified after they are stored.
type TemplateSnapshot struct {
	// OriginalTemplate is the parsed document.
	OriginalTemplate *document.Node
	// EditorTemplate is OriginalTemplate rendered as YAML.
	EditorTemplate string
	// EditorTemplateWithoutLockedKeys is EditorTemplate with locked keys
	// removed.
	EditorTemplateWithoutLockedKeys string

	Schema              json.RawMessage
	GUISchema           string
	Readme              string
	SelectedChart       ChartVersion
	SelectedChartRefID  int
	IsAppMetricsEnabled bool

	// IsOverridden is only meaningful for environment overrides.
	IsOverridden bool
	// MergeStrategy is only meaningful for environment overrides.
	MergeStrategy     MergeStrategy
	EnvironmentConfig EnvironmentConfig
	ChartConfig       ChartConfig

	// LatestDraft is set on draft snapshots only.
	LatestDraft *DraftMetadata

	// MergedTemplate is the document that is actually deployed, which for
	// patch overrides is the override merged onto the base.
	MergedTemplate                  string
	MergedTemplateObject            *document.Node
	MergedTemplateWithoutLockedKeys string
	IsLoadingMergedTemplate         bool
	MergedTemplateError             string
}

// DeepCopy returns a copy of s that shares no memory with it.
func (s *TemplateSnapshot) DeepCopy() *TemplateSnapshot {
	if s == nil {
		return nil
	}
	return mustCopy(s).(*TemplateSnapshot) // nolint: forcetypeassert
}

// EditorState is the editable snapshot.
type EditorState struct {
	TemplateSnapshot

	// ParsingError is set while EditorTemplate is not valid YAML.
	ParsingError string
	// RemovedPatches restore the locked keys hidden from EditorTemplate.
	RemovedPatches document.Patch
	// OriginalTemplateState is the snapshot this editor state was cloned
	// from.
	OriginalTemplateState *TemplateSnapshot
}

// NewEditorState clones snapshot into a fresh editor state pointing back at
// it.
func NewEditorState(snapshot *TemplateSnapshot) *EditorState {
	if snapshot == nil {
		return nil
	}
	clone := snapshot.DeepCopy()
	clone.EditorTemplateWithoutLockedKeys = ""
	return &EditorState{
		TemplateSnapshot:      *clone,
		OriginalTemplateState: snapshot.DeepCopy(),
	}
}

// DeepCopy returns a copy of e that shares no memory with it.
func (e *EditorState) DeepCopy() *EditorState {
	if e == nil {
		return nil
	}
	return mustCopy(e).(*EditorState) // nolint: forcetypeassert
}

// clone is a shallow copy for use by the reducer. Document nodes are never
// modified in place, so sharing them is safe.
func (e *EditorState) clone() *EditorState {
	c := *e
	return &c
}

// LockedDiffModalState drives the modal listing changes to locked keys.
type LockedDiffModalState struct {
	ShowLockedTemplateDiffModal bool
	// ShowLockedDiffForApproval is set when an approver, rather than the
	// author, runs into locked changes.
	ShowLockedDiffForApproval bool
}

// ResolvedTemplate is a template with scoped variables substituted.
type ResolvedTemplate struct {
	OriginalTemplateString    string
	TemplateWithoutLockedKeys string
}

// NotificationVariant is the severity of a Notification.
type NotificationVariant string

const (
	NotificationError   NotificationVariant = "error"
	NotificationSuccess NotificationVariant = "success"
	NotificationInfo    NotificationVariant = "info"
)

// Notification is a non-blocking message for the user.
type Notification struct {
	Variant     NotificationVariant
	Title       string
	Description string
}

// State is everything the deployment template editor knows.
type State struct {
	IsLoadingInitialData bool
	InitialLoadError     error

	ChartDetails ChartDetails

	// Published is what is deployed today.
	Published *TemplateSnapshot
	// Draft is the last saved draft of a protected configuration.
	Draft *TemplateSnapshot
	// Base is the base configuration, for environment overrides.
	Base *TemplateSnapshot
	// CurrentEditor is the only snapshot user actions modify.
	CurrentEditor *EditorState

	ResolveScopedVariables    bool
	IsResolvingVariables      bool
	ResolvedEditorTemplate    ResolvedTemplate
	ResolvedOriginalTemplate  ResolvedTemplate
	ResolvedPublishedTemplate ResolvedTemplate

	// WasGUIOrHideLockedKeysEdited records that the editor text may have
	// lost the key order of the original document.
	WasGUIOrHideLockedKeysEdited   bool
	ShowDraftComments              bool
	HideLockedKeys                 bool
	LockedKeys                     lockedkeys.Config
	LockedDiffModal                LockedDiffModalState
	IsSaving                       bool
	ShowSaveChangesModal           bool
	PopupNode                      PopupNode
	CompareFrom                    CompareFromOption
	DryRunMode                     DryRunEditorMode
	HeaderTab                      ConfigHeaderTab
	IsLoadingChangedChartDetails   bool
	ShowDeleteOverrideDialog       bool
	ShowDeleteDraftOverrideDialog  bool
	ShowReadme                     bool
	EditMode                       EditMode
	ShouldMergeTemplateWithPatches bool
	ProtectionTab                  ProtectConfigTab
	AreCommentsPresent             bool
	MigratedFrom                   string

	// SchemaWarnings are validation messages for the current editor
	// document against the chart schema.
	SchemaWarnings []string
	// Notifications are pending messages for the user, oldest first.
	Notifications []Notification
}

// InitialState returns the state before anything is loaded. Super admins
// start in YAML mode, everyone else in GUI mode.
func InitialState(isSuperAdmin bool) State {
	editMode := EditModeGUI
	if isSuperAdmin {
		editMode = EditModeYAML
	}
	return State{
		IsLoadingInitialData: true,
		ChartDetails: ChartDetails{
			ChartsMetadata: map[string]ChartMetadata{},
		},
		LockedKeys:    lockedkeys.DefaultConfig(),
		CompareFrom:   CompareFromApprovalPending,
		DryRunMode:    DryRunEditorModeValuesFromDraft,
		HeaderTab:     ConfigHeaderTabValues,
		EditMode:      editMode,
		ProtectionTab: ProtectConfigTabEditDraft,
	}
}

// Snapshot returns the snapshot named by key, or nil.
func (s State) Snapshot(key EditorStateKey) *TemplateSnapshot {
	switch key {
	case EditorStateCurrent:
		if s.CurrentEditor == nil {
			return nil
		}
		return &s.CurrentEditor.TemplateSnapshot
	case EditorStatePublished:
		return s.Published
	case EditorStateDraft:
		return s.Draft
	case EditorStateBase:
		return s.Base
	}
	return nil
}

func mustCopy(v any) any {
	c, err := copystructure.Copy(v)
	if err != nil {
		panic(fmt.Sprintf("error copying %T: %s", v, err))
	}
	return c
}
