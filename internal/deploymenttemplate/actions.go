package deploymenttemplate

import (
	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

// ActionType names an Action.
type ActionType string

const (
	ActionResetAll                                ActionType = "RESET_ALL"
	ActionInitiateInitialDataLoad                 ActionType = "INITIATE_INITIAL_DATA_LOAD"
	ActionInitialDataError                        ActionType = "INITIAL_DATA_ERROR"
	ActionInitializeTemplatesWithoutDraft         ActionType = "INITIALIZE_TEMPLATES_WITHOUT_DRAFT"
	ActionInitializeTemplatesWithDraft            ActionType = "INITIALIZE_TEMPLATES_WITH_DRAFT"
	ActionInitiateChartChange                     ActionType = "INITIATE_CHART_CHANGE"
	ActionChartChangeSuccess                      ActionType = "CHART_CHANGE_SUCCESS"
	ActionChartChangeError                        ActionType = "CHART_CHANGE_ERROR"
	ActionInitiateResolveScopedVariables          ActionType = "INITIATE_RESOLVE_SCOPED_VARIABLES"
	ActionResolveScopedVariables                  ActionType = "RESOLVE_SCOPED_VARIABLES"
	ActionUnResolveScopedVariables                ActionType = "UN_RESOLVE_SCOPED_VARIABLES"
	ActionToggleDraftComments                     ActionType = "TOGGLE_DRAFT_COMMENTS"
	ActionUpdateReadmeMode                        ActionType = "UPDATE_README_MODE"
	ActionRestoreLastSavedTemplate                ActionType = "RESTORE_LAST_SAVED_TEMPLATE"
	ActionCurrentEditorValueChange                ActionType = "CURRENT_EDITOR_VALUE_CHANGE"
	ActionUpdateHideLockedKeys                    ActionType = "UPDATE_HIDE_LOCKED_KEYS"
	ActionChangeToGUIMode                         ActionType = "CHANGE_TO_GUI_MODE"
	ActionChangeToYAMLMode                        ActionType = "CHANGE_TO_YAML_MODE"
	ActionUpdateConfigHeaderTab                   ActionType = "UPDATE_CONFIG_HEADER_TAB"
	ActionToggleShowComparisonWithMergedPatches   ActionType = "TOGGLE_SHOW_COMPARISON_WITH_MERGED_PATCHES"
	ActionUpdateProtectionViewTab                 ActionType = "UPDATE_PROTECTION_VIEW_TAB"
	ActionUpdateDryRunEditorMode                  ActionType = "UPDATE_DRY_RUN_EDITOR_MODE"
	ActionInitiateSave                            ActionType = "INITIATE_SAVE"
	ActionSaveError                               ActionType = "SAVE_ERROR"
	ActionFinishSave                              ActionType = "FINISH_SAVE"
	ActionShowEditHistory                         ActionType = "SHOW_EDIT_HISTORY"
	ActionShowDiscardDraftPopup                   ActionType = "SHOW_DISCARD_DRAFT_POPUP"
	ActionClearPopupNode                          ActionType = "CLEAR_POPUP_NODE"
	ActionChangeCompareFromSelectedOption         ActionType = "CHANGE_COMPARE_FROM_SELECTED_OPTION"
	ActionShowLockedDiffForApproval               ActionType = "SHOW_LOCKED_DIFF_FOR_APPROVAL"
	ActionToggleAppMetrics                        ActionType = "TOGGLE_APP_METRICS"
	ActionUpdateMergeStrategy                     ActionType = "UPDATE_MERGE_STRATEGY"
	ActionShowDeleteOverrideDialog                ActionType = "SHOW_DELETE_OVERRIDE_DIALOG"
	ActionDeleteLocalOverride                     ActionType = "DELETE_LOCAL_OVERRIDE"
	ActionOverrideTemplate                        ActionType = "OVERRIDE_TEMPLATE"
	ActionDeleteOverrideConcurrentProtectionError ActionType = "DELETE_OVERRIDE_CONCURRENT_PROTECTION_ERROR"
	ActionCloseDeleteDraftOverrideDialog          ActionType = "CLOSE_DELETE_DRAFT_OVERRIDE_DIALOG"
	ActionCloseOverrideDialog                     ActionType = "CLOSE_OVERRIDE_DIALOG"
	ActionLockedChangesDetectedOnSave             ActionType = "LOCKED_CHANGES_DETECTED_ON_SAVE"
	ActionShowProtectedSaveModal                  ActionType = "SHOW_PROTECTED_SAVE_MODAL"
	ActionCloseSaveChangesModal                   ActionType = "CLOSE_SAVE_CHANGES_MODAL"
	ActionCloseLockedDiffModal                    ActionType = "CLOSE_LOCKED_DIFF_MODAL"
	ActionUpdateAreCommentsPresent                ActionType = "UPDATE_ARE_COMMENTS_PRESENT"
	ActionInitiateLoadingMergedTemplate           ActionType = "INITIATE_LOADING_CURRENT_EDITOR_MERGED_TEMPLATE"
	ActionLoadMergedTemplate                      ActionType = "LOAD_CURRENT_EDITOR_MERGED_TEMPLATE"
	ActionMergedTemplateFetchError                ActionType = "CURRENT_EDITOR_MERGED_TEMPLATE_FETCH_ERROR"
	ActionLockChangesDetectedFromDraftAPI         ActionType = "LOCK_CHANGES_DETECTED_FROM_DRAFT_API"
)

// Action is a state transition handled by the Reducer.
type Action interface {
	Type() ActionType
}

// ResetAll returns to the state before loading.
type ResetAll struct {
	IsSuperAdmin bool
}

// InitiateInitialDataLoad marks the start of a load.
type InitiateInitialDataLoad struct{}

// InitialDataError records a failed load.
type InitialDataError struct {
	Err error
}

// InitializeTemplates completes a load. Draft is nil when no usable draft
// exists.
type InitializeTemplates struct {
	Base          *TemplateSnapshot
	Published     *TemplateSnapshot
	Draft         *TemplateSnapshot
	ChartDetails  ChartDetails
	LockedKeys    lockedkeys.Config
	CurrentEditor *EditorState
	// HeaderTab is left alone when empty.
	HeaderTab     ConfigHeaderTab
	ProtectionTab ProtectConfigTab
	MigratedFrom  string
}

// InitiateChartChange marks the start of a chart change.
type InitiateChartChange struct{}

// ChartChangeSuccess applies the template of a newly selected chart.
type ChartChangeSuccess struct {
	SelectedChart ChartVersion
	// Details is the template of the selected chart.
	Details   *TemplateSnapshot
	IsEnvView bool
}

// ChartChangeError records a failed chart change.
type ChartChangeError struct{}

// InitiateResolveScopedVariables marks the start of variable resolution.
type InitiateResolveScopedVariables struct{}

// ResolveScopedVariables stores resolved templates.
type ResolveScopedVariables struct {
	Editor    ResolvedTemplate
	Original  ResolvedTemplate
	Published ResolvedTemplate
}

// UnResolveScopedVariables goes back to unresolved templates.
type UnResolveScopedVariables struct{}

// ToggleDraftComments shows or hides the draft comments.
type ToggleDraftComments struct{}

// UpdateReadmeMode shows or hides the chart readme.
type UpdateReadmeMode struct {
	ShowReadme bool
}

// RestoreLastSavedTemplate discards every local change.
type RestoreLastSavedTemplate struct{}

// CurrentEditorValueChange replaces the editor text.
type CurrentEditorValueChange struct {
	Template string
}

// UpdateHideLockedKeys hides or shows the locked keys in the editor.
type UpdateHideLockedKeys struct {
	HideLockedKeys bool
}

// ChangeToGUIMode switches to form editing.
type ChangeToGUIMode struct{}

// ChangeToYAMLMode switches to text editing.
type ChangeToYAMLMode struct{}

// UpdateConfigHeaderTab selects a header tab.
type UpdateConfigHeaderTab struct {
	Tab ConfigHeaderTab
}

// ToggleShowComparisonWithMergedPatches switches the compare view between
// patches and merged templates.
type ToggleShowComparisonWithMergedPatches struct{}

// UpdateProtectionViewTab selects a protection tab.
type UpdateProtectionViewTab struct {
	Tab ProtectConfigTab
}

// UpdateDryRunEditorMode selects what the dry run renders.
type UpdateDryRunEditorMode struct {
	Mode DryRunEditorMode
}

// InitiateSave marks the start of a save.
type InitiateSave struct{}

// SaveError records a failed save. IsProtectionError means someone created
// a draft concurrently.
type SaveError struct {
	IsProtectionError bool
}

// FinishSave records a completed save. IsLockConfigError means the server
// refused locked changes.
type FinishSave struct {
	IsLockConfigError bool
}

// ShowEditHistory opens the edit history.
type ShowEditHistory struct{}

// ShowDiscardDraftPopup opens the discard draft confirmation.
type ShowDiscardDraftPopup struct{}

// ClearPopupNode closes any popup.
type ClearPopupNode struct{}

// ChangeCompareFromSelectedOption selects the right hand side of the
// compare view.
type ChangeCompareFromSelectedOption struct {
	From CompareFromOption
}

// ShowLockedDiffForApproval opens the locked diff modal for an approver.
type ShowLockedDiffForApproval struct{}

// ToggleAppMetrics flips application metrics.
type ToggleAppMetrics struct{}

// UpdateMergeStrategy changes the merge strategy of an override.
type UpdateMergeStrategy struct {
	Strategy MergeStrategy
}

// ShowDeleteOverrideDialog opens the delete override confirmation.
type ShowDeleteOverrideDialog struct {
	IsApprovalPolicyConfigured bool
}

// DeleteLocalOverride drops an override that was never saved.
type DeleteLocalOverride struct{}

// OverrideTemplate starts overriding the base configuration.
type OverrideTemplate struct{}

// DeleteOverrideConcurrentProtectionError sends a delete override through
// the draft flow after the configuration became protected.
type DeleteOverrideConcurrentProtectionError struct{}

// CloseDeleteDraftOverrideDialog closes the delete override draft dialog.
type CloseDeleteDraftOverrideDialog struct{}

// CloseOverrideDialog closes the delete override dialog.
type CloseOverrideDialog struct{}

// LockedChangesDetectedOnSave opens the locked diff modal for the author.
type LockedChangesDetectedOnSave struct{}

// ShowProtectedSaveModal opens the save as draft modal.
type ShowProtectedSaveModal struct{}

// CloseSaveChangesModal closes the save as draft modal.
type CloseSaveChangesModal struct{}

// CloseLockedDiffModal closes the locked diff modal.
type CloseLockedDiffModal struct{}

// UpdateAreCommentsPresent records whether the draft has comments.
type UpdateAreCommentsPresent struct {
	AreCommentsPresent bool
}

// InitiateLoadingMergedTemplate marks merged templates as loading. The
// current editor gets CurrentEditorParsed as its merged template right away
// when it is not among EditorStates.
type InitiateLoadingMergedTemplate struct {
	EditorStates        []EditorStateKey
	CurrentEditorParsed *document.Node
}

// LoadMergedTemplate stores merged templates, one per editor state.
type LoadMergedTemplate struct {
	EditorStates    []EditorStateKey
	MergedTemplates []*document.Node
	// Base replaces the base snapshot unless nil.
	Base *TemplateSnapshot
}

// MergedTemplateFetchError records a failed merge of the current editor.
type MergedTemplateFetchError struct {
	Err error
}

// LockChangesDetectedFromDraftAPI opens the locked diff modal after the
// draft API refused locked changes.
type LockChangesDetectedFromDraftAPI struct{}

func (ResetAll) Type() ActionType                 { return ActionResetAll }
func (InitiateInitialDataLoad) Type() ActionType  { return ActionInitiateInitialDataLoad }
func (InitialDataError) Type() ActionType         { return ActionInitialDataError }
func (InitiateChartChange) Type() ActionType      { return ActionInitiateChartChange }
func (ChartChangeSuccess) Type() ActionType       { return ActionChartChangeSuccess }
func (ChartChangeError) Type() ActionType         { return ActionChartChangeError }
func (ResolveScopedVariables) Type() ActionType   { return ActionResolveScopedVariables }
func (UnResolveScopedVariables) Type() ActionType { return ActionUnResolveScopedVariables }
func (ToggleDraftComments) Type() ActionType      { return ActionToggleDraftComments }
func (UpdateReadmeMode) Type() ActionType         { return ActionUpdateReadmeMode }
func (RestoreLastSavedTemplate) Type() ActionType { return ActionRestoreLastSavedTemplate }
func (CurrentEditorValueChange) Type() ActionType { return ActionCurrentEditorValueChange }
func (UpdateHideLockedKeys) Type() ActionType     { return ActionUpdateHideLockedKeys }
func (ChangeToGUIMode) Type() ActionType          { return ActionChangeToGUIMode }
func (ChangeToYAMLMode) Type() ActionType         { return ActionChangeToYAMLMode }
func (UpdateConfigHeaderTab) Type() ActionType    { return ActionUpdateConfigHeaderTab }
func (UpdateProtectionViewTab) Type() ActionType  { return ActionUpdateProtectionViewTab }
func (UpdateDryRunEditorMode) Type() ActionType   { return ActionUpdateDryRunEditorMode }
func (InitiateSave) Type() ActionType             { return ActionInitiateSave }
func (SaveError) Type() ActionType                { return ActionSaveError }
func (FinishSave) Type() ActionType               { return ActionFinishSave }
func (ShowEditHistory) Type() ActionType          { return ActionShowEditHistory }
func (ShowDiscardDraftPopup) Type() ActionType    { return ActionShowDiscardDraftPopup }
func (ClearPopupNode) Type() ActionType           { return ActionClearPopupNode }
func (ToggleAppMetrics) Type() ActionType         { return ActionToggleAppMetrics }
func (UpdateMergeStrategy) Type() ActionType      { return ActionUpdateMergeStrategy }
func (DeleteLocalOverride) Type() ActionType      { return ActionDeleteLocalOverride }
func (OverrideTemplate) Type() ActionType         { return ActionOverrideTemplate }
func (CloseOverrideDialog) Type() ActionType      { return ActionCloseOverrideDialog }
func (ShowProtectedSaveModal) Type() ActionType   { return ActionShowProtectedSaveModal }
func (CloseSaveChangesModal) Type() ActionType    { return ActionCloseSaveChangesModal }
func (CloseLockedDiffModal) Type() ActionType     { return ActionCloseLockedDiffModal }
func (LoadMergedTemplate) Type() ActionType       { return ActionLoadMergedTemplate }
func (MergedTemplateFetchError) Type() ActionType { return ActionMergedTemplateFetchError }

func (a InitializeTemplates) Type() ActionType {
	if a.Draft != nil {
		return ActionInitializeTemplatesWithDraft
	}
	return ActionInitializeTemplatesWithoutDraft
}

func (InitiateResolveScopedVariables) Type() ActionType {
	return ActionInitiateResolveScopedVariables
}

func (ToggleShowComparisonWithMergedPatches) Type() ActionType {
	return ActionToggleShowComparisonWithMergedPatches
}

func (ChangeCompareFromSelectedOption) Type() ActionType {
	return ActionChangeCompareFromSelectedOption
}

func (ShowLockedDiffForApproval) Type() ActionType {
	return ActionShowLockedDiffForApproval
}

func (ShowDeleteOverrideDialog) Type() ActionType {
	return ActionShowDeleteOverrideDialog
}

func (DeleteOverrideConcurrentProtectionError) Type() ActionType {
	return ActionDeleteOverrideConcurrentProtectionError
}

func (CloseDeleteDraftOverrideDialog) Type() ActionType {
	return ActionCloseDeleteDraftOverrideDialog
}

func (LockedChangesDetectedOnSave) Type() ActionType {
	return ActionLockedChangesDetectedOnSave
}

func (UpdateAreCommentsPresent) Type() ActionType {
	return ActionUpdateAreCommentsPresent
}

func (InitiateLoadingMergedTemplate) Type() ActionType {
	return ActionInitiateLoadingMergedTemplate
}

func (LockChangesDetectedFromDraftAPI) Type() ActionType {
	return ActionLockChangesDetectedFromDraftAPI
}
