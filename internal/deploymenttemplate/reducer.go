package deploymenttemplate

import (
	"github.com/devtron-labs/dtconfig/internal/features"
	"github.com/devtron-labs/dtconfig/pkg/docdiff"
	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

const reapplyLockedKeysFailedMessage = "Something went wrong while re-applying locked keys"

// Reducer computes state transitions. It holds no state of its own and
// never modifies the State it is handed: snapshots are replaced, not
// edited, so earlier States stay valid.
type Reducer struct {
	codec lockedkeys.Codec
}

// NewReducer returns a Reducer using the locked-key codec of caps.
func NewReducer(caps features.Capabilities) *Reducer {
	codec := caps.Codec
	if codec == nil {
		codec = lockedkeys.NoopCodec{}
	}
	return &Reducer{codec: codec}
}

// Codec returns the locked-key codec the Reducer redacts with.
func (r *Reducer) Codec() lockedkeys.Codec {
	return r.codec
}

// Reduce returns the state that results from applying a to s. Unknown
// actions leave s unchanged.
func (r *Reducer) Reduce(s State, a Action) State {
	switch a := a.(type) {
	case ResetAll:
		return InitialState(a.IsSuperAdmin)

	case InitiateInitialDataLoad:
		s.IsLoadingInitialData = true
		s.InitialLoadError = nil
		return s

	case InitialDataError:
		s.IsLoadingInitialData = false
		s.InitialLoadError = a.Err
		return s

	case InitializeTemplates:
		s.Base = a.Base
		s.Published = a.Published
		s.Draft = a.Draft
		s.ChartDetails = a.ChartDetails
		s.LockedKeys = a.LockedKeys
		s.CurrentEditor = a.CurrentEditor
		s.MigratedFrom = a.MigratedFrom
		if a.HeaderTab != "" {
			s.HeaderTab = a.HeaderTab
		}
		if a.Draft != nil {
			s.ProtectionTab = a.ProtectionTab
			s.AreCommentsPresent = a.Draft.LatestDraft != nil && a.Draft.LatestDraft.CommentsCount > 0
		}
		s.IsLoadingInitialData = false
		s.InitialLoadError = nil
		return r.validate(s)

	case InitiateChartChange:
		s.IsLoadingChangedChartDetails = true
		return s

	case ChartChangeSuccess:
		return r.changeChart(s, a)

	case ChartChangeError:
		s.IsLoadingChangedChartDetails = false
		return s

	case InitiateResolveScopedVariables:
		s.IsResolvingVariables = true
		s.ResolveScopedVariables = true
		return s

	case UnResolveScopedVariables:
		return unresolve(s)

	case ResolveScopedVariables:
		s.IsResolvingVariables = false
		s.ResolvedEditorTemplate = a.Editor
		s.ResolvedOriginalTemplate = a.Original
		s.ResolvedPublishedTemplate = a.Published
		return s

	case ToggleDraftComments:
		s.ShowDraftComments = !s.ShowDraftComments
		return s

	case RestoreLastSavedTemplate, DeleteLocalOverride:
		return r.restoreLastSaved(s)

	case CurrentEditorValueChange:
		if s.CurrentEditor == nil {
			return s
		}
		s.WasGUIOrHideLockedKeysEdited = s.WasGUIOrHideLockedKeysEdited || s.EditMode == EditModeGUI
		e := s.CurrentEditor.clone()
		e.EditorTemplate = a.Template
		e.ParsingError = ""
		if _, err := document.Parse(a.Template); err != nil {
			e.ParsingError = err.Error()
		}
		s.CurrentEditor = e
		return r.validate(s)

	case UpdateHideLockedKeys:
		if !a.HideLockedKeys {
			return r.reapplyLockedKeys(s)
		}
		if s.CurrentEditor == nil || s.HideLockedKeys {
			return s
		}
		e := s.CurrentEditor.clone()
		e.EditorTemplate, e.RemovedPatches = r.redactor(s).Redact(e.EditorTemplate)
		s.CurrentEditor = e
		s.WasGUIOrHideLockedKeysEdited = true
		s.HideLockedKeys = true
		return s

	case ChangeToGUIMode:
		if hasPatchStrategy(s.Snapshot(EditorStateCurrent)) {
			s = r.reapplyLockedKeys(s)
		}
		s.EditMode = EditModeGUI
		return s

	case ChangeToYAMLMode:
		return switchToYAMLMode(s)

	case UpdateConfigHeaderTab:
		s = unresolve(r.reapplyLockedKeys(s))
		s.HeaderTab = a.Tab
		s.ShouldMergeTemplateWithPatches = false
		return s

	case ToggleShowComparisonWithMergedPatches:
		s = unresolve(s)
		s.ShouldMergeTemplateWithPatches = !s.ShouldMergeTemplateWithPatches
		return s

	case UpdateProtectionViewTab:
		s = unresolve(r.reapplyLockedKeys(s))
		s.ProtectionTab = a.Tab
		s.ShouldMergeTemplateWithPatches = false
		return s

	case UpdateDryRunEditorMode:
		s = unresolve(r.reapplyLockedKeys(s))
		s.DryRunMode = a.Mode
		return s

	case InitiateSave:
		s.IsSaving = true
		return s

	case ShowEditHistory:
		s.PopupNode = PopupNodeEditHistory
		return s

	case ShowDiscardDraftPopup:
		s.PopupNode = PopupNodeDiscardDraft
		return s

	case ClearPopupNode:
		s.PopupNode = PopupNodeNone
		return s

	case UpdateReadmeMode:
		s = unresolve(switchToYAMLMode(s))
		s.ShowReadme = a.ShowReadme
		return s

	case ChangeCompareFromSelectedOption:
		s = unresolve(s)
		s.CompareFrom = a.From
		return s

	case ShowLockedDiffForApproval:
		s.LockedDiffModal = LockedDiffModalState{
			ShowLockedTemplateDiffModal: true,
			ShowLockedDiffForApproval:   true,
		}
		return s

	case ToggleAppMetrics:
		if s.CurrentEditor == nil {
			return s
		}
		e := s.CurrentEditor.clone()
		e.IsAppMetricsEnabled = !e.IsAppMetricsEnabled
		s.CurrentEditor = e
		return s

	case UpdateMergeStrategy:
		return r.updateMergeStrategy(s, a.Strategy)

	case ShowDeleteOverrideDialog:
		s.ShowDeleteDraftOverrideDialog = a.IsApprovalPolicyConfigured
		s.ShowDeleteOverrideDialog = !a.IsApprovalPolicyConfigured
		return s

	case OverrideTemplate:
		if s.CurrentEditor == nil {
			return s
		}
		e := s.CurrentEditor.clone()
		e.IsOverridden = true
		if e.MergeStrategy == MergeStrategyReplace {
			e.EditorTemplate = ""
			if s.Base != nil {
				e.EditorTemplate = s.Base.EditorTemplate
			}
		}
		s.CurrentEditor = e
		return r.validate(s)

	case DeleteOverrideConcurrentProtectionError:
		s.ShowDeleteDraftOverrideDialog = true
		s.ShowDeleteOverrideDialog = false
		return s

	case CloseDeleteDraftOverrideDialog:
		s.ShowDeleteDraftOverrideDialog = false
		return s

	case CloseOverrideDialog:
		s.ShowDeleteOverrideDialog = false
		return s

	case SaveError:
		s.IsSaving = false
		s.ShowSaveChangesModal = a.IsProtectionError || s.ShowSaveChangesModal
		return s

	case FinishSave:
		s.IsSaving = false
		s.LockedDiffModal = LockedDiffModalState{ShowLockedTemplateDiffModal: a.IsLockConfigError}
		return s

	case LockedChangesDetectedOnSave:
		s.LockedDiffModal = LockedDiffModalState{ShowLockedTemplateDiffModal: true}
		return s

	case ShowProtectedSaveModal:
		s.ShowSaveChangesModal = true
		return s

	case CloseSaveChangesModal:
		s.ShowSaveChangesModal = false
		return s

	case CloseLockedDiffModal:
		s.ShowSaveChangesModal = false
		s.LockedDiffModal = LockedDiffModalState{}
		return s

	case UpdateAreCommentsPresent:
		s.AreCommentsPresent = a.AreCommentsPresent
		return s

	case InitiateLoadingMergedTemplate:
		loadingCurrent := false
		for _, key := range a.EditorStates {
			if key == EditorStateCurrent {
				loadingCurrent = true
			}
			s = s.withSnapshot(key, func(t *TemplateSnapshot) {
				t.IsLoadingMergedTemplate = true
				t.MergedTemplateError = ""
			})
		}
		if !loadingCurrent {
			s = r.withMergedTemplates(s, []EditorStateKey{EditorStateCurrent}, []*document.Node{a.CurrentEditorParsed})
		}
		return s

	case MergedTemplateFetchError:
		msg := ""
		if a.Err != nil {
			msg = a.Err.Error()
		}
		return s.withSnapshot(EditorStateCurrent, func(t *TemplateSnapshot) {
			t.IsLoadingMergedTemplate = false
			t.MergedTemplateError = msg
		})

	case LoadMergedTemplate:
		if a.Base != nil {
			s.Base = a.Base
		}
		return r.withMergedTemplates(s, a.EditorStates, a.MergedTemplates)

	case LockChangesDetectedFromDraftAPI:
		s.ShowSaveChangesModal = false
		s.LockedDiffModal = LockedDiffModalState{ShowLockedTemplateDiffModal: true}
		return s
	}
	return s
}

func (r *Reducer) redactor(s State) Redactor {
	return Redactor{Codec: r.codec, Paths: s.LockedKeys.Paths}
}

func unresolve(s State) State {
	s.IsResolvingVariables = false
	s.ResolveScopedVariables = false
	return s
}

// switchToYAMLMode puts the keys of text edited through the GUI form back in
// the order of the original document.
func switchToYAMLMode(s State) State {
	if s.EditMode == EditModeGUI && s.WasGUIOrHideLockedKeysEdited && s.CurrentEditor != nil {
		original, err := document.Stringify(s.CurrentEditor.OriginalTemplate)
		if err == nil {
			if text, err := docdiff.ApplyDiffOntoBaseText(original, s.CurrentEditor.EditorTemplate); err == nil {
				e := s.CurrentEditor.clone()
				e.EditorTemplate = text
				s.CurrentEditor = e
			}
		}
	}
	s.EditMode = EditModeYAML
	return s
}

// restoreLastSaved replaces the current editor with a fresh copy of the
// snapshot it came from, schema and readme included.
func (r *Reducer) restoreLastSaved(s State) State {
	if s.CurrentEditor == nil || s.CurrentEditor.OriginalTemplateState == nil {
		return s
	}
	original := s.CurrentEditor.OriginalTemplateState
	e := &EditorState{
		TemplateSnapshot:      *original.DeepCopy(),
		OriginalTemplateState: original,
	}
	e.IsLoadingMergedTemplate = false
	e.MergedTemplateError = ""
	if s.HideLockedKeys {
		e.EditorTemplate, e.RemovedPatches = r.redactor(s).Redact(original.EditorTemplate)
	}
	s = unresolve(s)
	s.WasGUIOrHideLockedKeysEdited = s.HideLockedKeys
	s.CurrentEditor = e
	return r.validate(s)
}

// reapplyLockedKeys shows hidden locked keys again. On failure the state is
// left as it was and the user is notified.
func (r *Reducer) reapplyLockedKeys(s State) State {
	if s.CurrentEditor == nil {
		return s
	}
	text, err := CurrentTemplateWithLockedKeys(s, r.codec)
	if err != nil {
		return s.notify(NotificationError, "", reapplyLockedKeysFailedMessage)
	}
	e := s.CurrentEditor.clone()
	e.EditorTemplate = text
	e.RemovedPatches = nil
	s.CurrentEditor = e
	s.HideLockedKeys = false
	return s
}

func (r *Reducer) changeChart(s State, a ChartChangeSuccess) State {
	s.IsLoadingChangedChartDetails = false
	if s.CurrentEditor == nil {
		return s
	}
	details := a.Details
	if details == nil {
		details = &TemplateSnapshot{}
	}
	e := s.CurrentEditor.clone()
	// Edits survive a version change but not a change of chart.
	isChartTypeChanged := e.SelectedChart.Name != a.SelectedChart.Name
	if !a.SelectedChart.IsAppMetricsSupported {
		e.IsAppMetricsEnabled = false
	}
	e.SelectedChart = a.SelectedChart
	e.SelectedChartRefID = a.SelectedChart.ID
	e.Schema = details.Schema
	e.Readme = details.Readme
	e.GUISchema = details.GUISchema
	if a.IsEnvView {
		e.EnvironmentConfig = details.EnvironmentConfig
	} else {
		e.ChartConfig = details.ChartConfig
	}
	if isChartTypeChanged {
		e.EditorTemplate = details.EditorTemplate
		e.ParsingError = ""
		e.RemovedPatches = nil
		s.HideLockedKeys = false
		s = unresolve(s)
	}
	s.CurrentEditor = e
	return r.validate(s)
}

func (r *Reducer) updateMergeStrategy(s State, strategy MergeStrategy) State {
	s = r.reapplyLockedKeys(s)
	if s.CurrentEditor == nil {
		return s
	}
	e := s.CurrentEditor.clone()
	e.MergeStrategy = strategy
	publishedOverridden := s.Published != nil && s.Published.IsOverridden
	if strategy == MergeStrategyReplace && !publishedOverridden && e.EditorTemplate == "" {
		if s.Published != nil {
			e.EditorTemplate = s.Published.MergedTemplate
		}
	}
	s.CurrentEditor = e
	return unresolve(s)
}

func (r *Reducer) withMergedTemplates(
	s State,
	keys []EditorStateKey,
	merged []*document.Node,
) State {
	redactor := r.redactor(s)
	for i, key := range keys {
		var obj *document.Node
		if i < len(merged) {
			obj = merged[i]
		}
		if obj == nil {
			obj = document.NewMapping()
		}
		text, err := document.Stringify(obj)
		if err != nil {
			text = ""
		}
		without := redactor.without(text)
		s = s.withSnapshot(key, func(t *TemplateSnapshot) {
			t.IsLoadingMergedTemplate = false
			t.MergedTemplateError = ""
			t.MergedTemplateObject = obj
			t.MergedTemplate = text
			t.MergedTemplateWithoutLockedKeys = without
		})
	}
	return s
}

// validate refreshes the schema warnings of the current editor.
func (r *Reducer) validate(s State) State {
	s.SchemaWarnings = nil
	e := s.CurrentEditor
	if e == nil || e.ParsingError != "" || len(e.Schema) == 0 {
		return s
	}
	doc, err := document.Parse(e.EditorTemplate)
	if err != nil {
		return s
	}
	if len(e.RemovedPatches) > 0 {
		if restored, err := r.codec.Restore(doc, e.RemovedPatches); err == nil {
			doc = restored
		}
	}
	s.SchemaWarnings = ValidateAgainstSchema(e.Schema, doc)
	return s
}

// withSnapshot returns s with a modified copy of the snapshot named by key.
// Nothing happens when that snapshot does not exist.
func (s State) withSnapshot(key EditorStateKey, modify func(*TemplateSnapshot)) State {
	switch key {
	case EditorStateCurrent:
		if s.CurrentEditor != nil {
			e := s.CurrentEditor.clone()
			modify(&e.TemplateSnapshot)
			s.CurrentEditor = e
		}
	case EditorStatePublished:
		if s.Published != nil {
			c := *s.Published
			modify(&c)
			s.Published = &c
		}
	case EditorStateDraft:
		if s.Draft != nil {
			c := *s.Draft
			modify(&c)
			s.Draft = &c
		}
	case EditorStateBase:
		if s.Base != nil {
			c := *s.Base
			modify(&c)
			s.Base = &c
		}
	}
	return s
}

func (s State) notify(variant NotificationVariant, title, description string) State {
	notifications := make([]Notification, len(s.Notifications), len(s.Notifications)+1)
	copy(notifications, s.Notifications)
	s.Notifications = append(notifications, Notification{
		Variant:     variant,
		Title:       title,
		Description: description,
	})
	return s
}
