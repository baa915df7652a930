package deploymenttemplate

import "github.com/devtron-labs/dtconfig/pkg/lockedkeys"

// View is what the editor is showing. It is one of ValuesView,
// InheritedView, DryRunView or CompareView.
type View interface {
	isView()
}

// ValuesView is the values tab outside of comparison. Tab is always
// ProtectConfigTabEditDraft when no approval policy is configured.
type ValuesView struct {
	Tab ProtectConfigTab
}

// InheritedView shows the base configuration an override inherits from.
type InheritedView struct{}

// DryRunView shows what would be deployed.
type DryRunView struct {
	Mode DryRunEditorMode
}

// CompareView compares the published configuration with a draft or with the
// current edits. It only exists when an approval policy is configured.
type CompareView struct {
	From CompareFromOption
}

func (ValuesView) isView()    {}
func (InheritedView) isView() {}
func (DryRunView) isView()    {}
func (CompareView) isView()   {}

// Scope identifies the document being edited and who is editing it.
type Scope struct {
	// EnvID is zero for the base configuration.
	EnvID                    int
	ApprovalPolicyConfigured bool
	IsSuperAdmin             bool
	// LockEligibility is set when locked changes can be split from eligible
	// ones on save.
	LockEligibility bool
}

// View derives the current view from the tab selections held in s.
func (s State) View(scope Scope) View {
	switch s.HeaderTab {
	case ConfigHeaderTabDryRun:
		return DryRunView{Mode: s.DryRunMode}
	case ConfigHeaderTabInherited:
		if scope.EnvID != 0 {
			return InheritedView{}
		}
	}
	if !scope.ApprovalPolicyConfigured {
		return ValuesView{Tab: ProtectConfigTabEditDraft}
	}
	if s.ProtectionTab == ProtectConfigTabCompare {
		return CompareView{From: s.CompareFrom}
	}
	return ValuesView{Tab: s.ProtectionTab}
}

// ViewFlags are the facts about the current view that rendering and user
// actions depend on.
type ViewFlags struct {
	IsDryRunView    bool
	IsInheritedView bool
	// IsValuesView is also set for the compare view, which lives in the
	// values tab.
	IsValuesView bool
	DryRunMode   DryRunEditorMode

	IsDraftAvailable                       bool
	IsPublishedValuesView                  bool
	IsCompareView                          bool
	IsApprovalPending                      bool
	IsApprovalView                         bool
	ShowApprovalPendingEditorInCompareView bool
	ShowNoOverrideTab                      bool
	ShowNoOverrideEmptyState               bool
	IsDeleteOverrideDraft                  bool
	ShowDeleteOverrideDraftEmptyState      bool
	IsPublishedConfigPresent               bool
	ShowNoPublishedVersionEmptyState       bool
	IsEditMode                             bool
	IsGUISupported                         bool
	// IsUnSet means the application has no base configuration yet.
	IsUnSet                   bool
	ShouldValidateLockChanges bool
	DisableCodeEditor         bool
	// IsUpdateView means the document already exists on the server.
	IsUpdateView bool
	// ShouldUseMergedTemplate means the view shows merged templates rather
	// than what the user edits.
	ShouldUseMergedTemplate bool
}

// ResolveViewFlags computes the flags of the view of s.
func ResolveViewFlags(s State, scope Scope) ViewFlags {
	var (
		f           ViewFlags
		tab         ProtectConfigTab
		compareFrom CompareFromOption
	)
	switch v := s.View(scope).(type) {
	case DryRunView:
		f.IsDryRunView = true
		f.DryRunMode = v.Mode
	case InheritedView:
		f.IsInheritedView = true
	case CompareView:
		f.IsValuesView = true
		f.IsCompareView = true
		tab = ProtectConfigTabCompare
		compareFrom = v.From
	case ValuesView:
		f.IsValuesView = true
		tab = v.Tab
	}

	hasEnv := scope.EnvID != 0
	var latestDraft *DraftMetadata
	if s.Draft != nil {
		latestDraft = s.Draft.LatestDraft
	}
	f.IsDraftAvailable = scope.ApprovalPolicyConfigured && latestDraft != nil
	f.IsPublishedValuesView = f.IsDraftAvailable &&
		((f.IsValuesView && tab == ProtectConfigTabPublished) ||
			(f.IsDryRunView && f.DryRunMode == DryRunEditorModePublishedValues))
	f.IsApprovalPending = f.IsDraftAvailable && latestDraft.DraftState == DraftStateAwaitApproval
	f.IsApprovalView = f.IsApprovalPending &&
		(f.IsCompareView || (f.IsDryRunView && f.DryRunMode == DryRunEditorModeApprovalPending))
	f.ShowApprovalPendingEditorInCompareView = f.IsCompareView && f.IsApprovalView &&
		compareFrom == CompareFromApprovalPending

	publishedOverridden := s.Published != nil && s.Published.IsOverridden
	currentOverridden := s.CurrentEditor != nil && s.CurrentEditor.IsOverridden
	f.ShowNoOverrideTab = hasEnv && !f.IsDraftAvailable && !publishedOverridden && !currentOverridden
	f.ShowNoOverrideEmptyState = f.ShowNoOverrideTab && s.HeaderTab == ConfigHeaderTabValues
	f.IsDeleteOverrideDraft = hasEnv && latestDraft != nil && latestDraft.Action == DraftActionDelete
	f.ShowDeleteOverrideDraftEmptyState = f.IsDeleteOverrideDraft && f.IsValuesView &&
		tab == ProtectConfigTabEditDraft
	f.IsPublishedConfigPresent = IsPublishedConfigPresent(scope.EnvID, s.Published)
	f.ShowNoPublishedVersionEmptyState = f.IsPublishedValuesView && !f.IsPublishedConfigPresent
	f.IsEditMode = f.IsValuesView && tab == ProtectConfigTabEditDraft
	f.IsGUISupported = f.IsEditMode && !f.ShowDeleteOverrideDraftEmptyState
	f.IsUnSet = !hasEnv && s.ChartDetails.LatestAppChartRef == 0
	f.ShouldValidateLockChanges = scope.LockEligibility && len(s.LockedKeys.Paths) > 0 &&
		!scope.IsSuperAdmin && !f.IsUnSet
	f.DisableCodeEditor = s.ResolveScopedVariables || !f.IsEditMode
	if s.CurrentEditor != nil {
		if hasEnv {
			f.IsUpdateView = s.CurrentEditor.EnvironmentConfig.ID > 0
		} else {
			f.IsUpdateView = s.CurrentEditor.ChartConfig.ID != 0
		}
	}
	f.ShouldUseMergedTemplate = f.IsDryRunView || (f.IsCompareView && s.ShouldMergeTemplateWithPatches)
	return f
}

// IsPublishedConfigPresent reports whether a published configuration exists.
// The base configuration always has one. An environment only has one when
// its published snapshot is overridden, so an override that exists on the
// server but is not marked overridden counts as absent.
func IsPublishedConfigPresent(envID int, published *TemplateSnapshot) bool {
	return !(envID != 0 && (published == nil || !published.IsOverridden))
}

// ResolveCurrentEditorState selects the snapshot the view is about. In the
// compare view this is the right hand side. EditorStateNone means there is
// nothing to show.
func ResolveCurrentEditorState(s State, f ViewFlags) EditorStateKey {
	if f.IsDryRunView {
		return resolveDryRunEditorState(s, f)
	}
	if f.IsInheritedView {
		return EditorStateBase
	}
	if f.IsPublishedValuesView {
		if f.IsPublishedConfigPresent {
			return EditorStatePublished
		}
		return EditorStateNone
	}
	if f.ShowApprovalPendingEditorInCompareView {
		if f.IsDeleteOverrideDraft {
			return EditorStateBase
		}
		return EditorStateDraft
	}
	// The compare view of a delete override draft has nothing to select from,
	// which leaves the empty state.
	if f.IsDeleteOverrideDraft {
		return EditorStateNone
	}
	return EditorStateCurrent
}

func resolveDryRunEditorState(s State, f ViewFlags) EditorStateKey {
	if s.Draft == nil || s.Draft.LatestDraft == nil {
		if f.IsPublishedConfigPresent || (s.CurrentEditor != nil && s.CurrentEditor.IsOverridden) {
			return EditorStateCurrent
		}
		return EditorStateBase
	}
	if f.DryRunMode == DryRunEditorModePublishedValues {
		if f.IsPublishedConfigPresent {
			return EditorStatePublished
		}
		return EditorStateNone
	}
	if f.IsDeleteOverrideDraft {
		return EditorStateBase
	}
	if f.DryRunMode == DryRunEditorModeApprovalPending {
		return EditorStateDraft
	}
	return EditorStateCurrent
}

// ResolveEditorPayloadForScopedVariables returns the text of the selected
// snapshot with scoped variables unresolved and locked keys present. It is
// what gets sent for variable resolution.
func ResolveEditorPayloadForScopedVariables(s State, f ViewFlags, codec lockedkeys.Codec) string {
	key := ResolveCurrentEditorState(s, f)
	snapshot := s.Snapshot(key)
	if snapshot == nil {
		return ""
	}
	if f.ShouldUseMergedTemplate {
		return snapshot.MergedTemplate
	}
	if key == EditorStateCurrent && s.HideLockedKeys && len(s.CurrentEditor.RemovedPatches) > 0 {
		if text, err := CurrentTemplateWithLockedKeys(s, codec); err == nil {
			return text
		}
	}
	return snapshot.EditorTemplate
}

// ResolveRawEditorValueForDryRun returns the values a dry run renders. Locked
// keys are always present since this is what would actually deploy.
func ResolveRawEditorValueForDryRun(s State, f ViewFlags, codec lockedkeys.Codec) string {
	if s.ResolveScopedVariables {
		return s.ResolvedEditorTemplate.OriginalTemplateString
	}
	key := ResolveCurrentEditorState(s, f)
	snapshot := s.Snapshot(key)
	if snapshot == nil {
		return ""
	}
	if key == EditorStateCurrent && !hasPatchStrategy(snapshot) {
		if text, err := CurrentTemplateWithLockedKeys(s, codec); err == nil {
			return text
		}
	}
	return snapshot.MergedTemplate
}

// DisplayedEditorValue is the text shown in the editor, or in the right hand
// side of the compare view.
func DisplayedEditorValue(s State, f ViewFlags) string {
	if s.ResolveScopedVariables {
		if s.HideLockedKeys {
			return s.ResolvedEditorTemplate.TemplateWithoutLockedKeys
		}
		return s.ResolvedEditorTemplate.OriginalTemplateString
	}
	key := ResolveCurrentEditorState(s, f)
	snapshot := s.Snapshot(key)
	if snapshot == nil {
		return ""
	}
	if f.ShouldUseMergedTemplate {
		if s.HideLockedKeys {
			return snapshot.MergedTemplateWithoutLockedKeys
		}
		return snapshot.MergedTemplate
	}
	// The current editor text already reflects whether locked keys are
	// hidden.
	if key == EditorStateCurrent {
		return snapshot.EditorTemplate
	}
	if s.HideLockedKeys {
		return snapshot.EditorTemplateWithoutLockedKeys
	}
	return snapshot.EditorTemplate
}

// CompareViewPublishedTemplate is the left hand side of the compare view.
func CompareViewPublishedTemplate(s State, f ViewFlags) string {
	if !f.IsPublishedConfigPresent || s.Published == nil {
		return ""
	}
	if s.ResolveScopedVariables {
		if s.HideLockedKeys {
			return s.ResolvedPublishedTemplate.TemplateWithoutLockedKeys
		}
		return s.ResolvedPublishedTemplate.OriginalTemplateString
	}
	if f.IsCompareView && s.ShouldMergeTemplateWithPatches {
		if s.HideLockedKeys {
			return s.Published.MergedTemplateWithoutLockedKeys
		}
		return s.Published.MergedTemplate
	}
	if s.HideLockedKeys {
		return s.Published.EditorTemplateWithoutLockedKeys
	}
	return s.Published.EditorTemplate
}

// UneditedDocument is the document the GUI form compares edits against.
func UneditedDocument(s State, f ViewFlags) string {
	if !f.IsGUISupported {
		return ""
	}
	if s.ResolveScopedVariables {
		return s.ResolvedOriginalTemplate.OriginalTemplateString
	}
	if s.CurrentEditor != nil && s.CurrentEditor.OriginalTemplateState != nil {
		return s.CurrentEditor.OriginalTemplateState.EditorTemplate
	}
	return ""
}

// ShouldShowMergePatchesToggle reports whether the compare view can show
// templates merged with their patches.
func ShouldShowMergePatchesToggle(s State, f ViewFlags) bool {
	if !f.IsCompareView {
		return false
	}
	return hasPatchStrategy(s.Published) ||
		hasPatchStrategy(s.Snapshot(ResolveCurrentEditorState(s, f)))
}
