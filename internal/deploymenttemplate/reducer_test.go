package deploymenttemplate

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devtron-labs/dtconfig/internal/features"
	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

func reduceAll(r *Reducer, s State, actions ...Action) State {
	for _, a := range actions {
		s = r.Reduce(s, a)
	}
	return s
}

func TestReducer(t *testing.T) {
	testCases := []struct {
		name       string
		envID      int
		state      func(State) State
		actions    []Action
		assertions func(*testing.T, State)
	}{
		{
			name: "hiding and showing locked keys keeps edits",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				s.CurrentEditor = NewEditorState(newSnapshot("replicas: 1\nimage:\n  tag: v1\n"))
				return s
			},
			actions: []Action{
				UpdateHideLockedKeys{HideLockedKeys: true},
				CurrentEditorValueChange{Template: "replicas: 2\n"},
				UpdateHideLockedKeys{HideLockedKeys: false},
			},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.HideLockedKeys)
				require.Empty(t, s.CurrentEditor.RemovedPatches)
				require.Equal(t, "replicas: 2\nimage:\n  tag: v1\n", s.CurrentEditor.EditorTemplate)
				require.True(t, s.WasGUIOrHideLockedKeysEdited)
			},
		},
		{
			name: "hiding locked keys removes them from the editor",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				return s
			},
			actions: []Action{UpdateHideLockedKeys{HideLockedKeys: true}},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.HideLockedKeys)
				require.Equal(t, "replicas: 1\n", s.CurrentEditor.EditorTemplate)
				require.Len(t, s.CurrentEditor.RemovedPatches, 1)
				require.Equal(t, "/image", s.CurrentEditor.RemovedPatches[0].Path)
			},
		},
		{
			name: "hiding locked keys twice is a no-op",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				return s
			},
			actions: []Action{
				UpdateHideLockedKeys{HideLockedKeys: true},
				UpdateHideLockedKeys{HideLockedKeys: true},
			},
			assertions: func(t *testing.T, s State) {
				require.Len(t, s.CurrentEditor.RemovedPatches, 1)
				require.Equal(t, "replicas: 1\n", s.CurrentEditor.EditorTemplate)
			},
		},
		{
			name: "showing locked keys that cannot be reapplied",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				return s
			},
			actions: []Action{
				UpdateHideLockedKeys{HideLockedKeys: true},
				CurrentEditorValueChange{Template: "replicas: [2\n"},
				UpdateHideLockedKeys{HideLockedKeys: false},
			},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.HideLockedKeys)
				require.NotEmpty(t, s.CurrentEditor.ParsingError)
				require.Len(t, s.CurrentEditor.RemovedPatches, 1)
				require.Equal(t, "replicas: [2\n", s.CurrentEditor.EditorTemplate)
				require.Equal(t, []Notification{{
					Variant:     NotificationError,
					Description: reapplyLockedKeysFailedMessage,
				}}, s.Notifications)
			},
		},
		{
			name:    "invalid YAML sets a parsing error",
			actions: []Action{CurrentEditorValueChange{Template: "replicas: [1\n"}},
			assertions: func(t *testing.T, s State) {
				require.NotEmpty(t, s.CurrentEditor.ParsingError)
				require.Equal(t, "replicas: [1\n", s.CurrentEditor.EditorTemplate)
				require.True(t, AreChangesPresent(s, lockedkeys.NewCodec()))
			},
		},
		{
			name: "fixing YAML clears the parsing error",
			actions: []Action{
				CurrentEditorValueChange{Template: "replicas: [1\n"},
				CurrentEditorValueChange{Template: "replicas: 1\nimage: nginx\n"},
			},
			assertions: func(t *testing.T, s State) {
				require.Empty(t, s.CurrentEditor.ParsingError)
				require.False(t, AreChangesPresent(s, lockedkeys.NewCodec()))
			},
		},
		{
			name: "leaving the GUI form restores key order",
			state: func(s State) State {
				s.EditMode = EditModeGUI
				return s
			},
			actions: []Action{
				CurrentEditorValueChange{Template: "image: nginx\nreplicas: 2\n"},
				ChangeToYAMLMode{},
			},
			assertions: func(t *testing.T, s State) {
				require.Equal(t, EditModeYAML, s.EditMode)
				require.Equal(t, "replicas: 2\nimage: nginx\n", s.CurrentEditor.EditorTemplate)
			},
		},
		{
			name: "YAML edits keep their key order",
			state: func(s State) State {
				s.EditMode = EditModeYAML
				return s
			},
			actions: []Action{
				CurrentEditorValueChange{Template: "image: nginx\nreplicas: 2\n"},
				ChangeToYAMLMode{},
			},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.WasGUIOrHideLockedKeysEdited)
				require.Equal(t, "image: nginx\nreplicas: 2\n", s.CurrentEditor.EditorTemplate)
			},
		},
		{
			name: "changing the chart version keeps edits",
			actions: []Action{
				ToggleAppMetrics{},
				CurrentEditorValueChange{Template: "replicas: 3\nimage: nginx\n"},
				InitiateChartChange{},
				ChartChangeSuccess{
					SelectedChart: testCharts[1],
					Details: &TemplateSnapshot{
						EditorTemplate: "replicas: 1\nimage: nginx\nports: []\n",
						Readme:         "version 4.19.0",
						ChartConfig:    ChartConfig{ID: 1, ChartRefID: 2},
					},
				},
			},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.IsLoadingChangedChartDetails)
				require.Equal(t, "replicas: 3\nimage: nginx\n", s.CurrentEditor.EditorTemplate)
				require.Equal(t, testCharts[1], s.CurrentEditor.SelectedChart)
				require.Equal(t, 2, s.CurrentEditor.SelectedChartRefID)
				require.Equal(t, "version 4.19.0", s.CurrentEditor.Readme)
				require.Equal(t, 2, s.CurrentEditor.ChartConfig.ChartRefID)
				require.True(t, s.CurrentEditor.IsAppMetricsEnabled)
			},
		},
		{
			name: "changing the chart type replaces edits",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				return s
			},
			actions: []Action{
				ToggleAppMetrics{},
				UpdateHideLockedKeys{HideLockedKeys: true},
				CurrentEditorValueChange{Template: "replicas: 3\n"},
				InitiateResolveScopedVariables{},
				ChartChangeSuccess{
					SelectedChart: testCharts[2],
					Details:       &TemplateSnapshot{EditorTemplate: "schedule: '* * * * *'\n"},
				},
			},
			assertions: func(t *testing.T, s State) {
				require.Equal(t, "schedule: '* * * * *'\n", s.CurrentEditor.EditorTemplate)
				require.Empty(t, s.CurrentEditor.RemovedPatches)
				require.False(t, s.HideLockedKeys)
				require.False(t, s.ResolveScopedVariables)
				require.False(t, s.CurrentEditor.IsAppMetricsEnabled)
			},
		},
		{
			name: "failed chart change",
			actions: []Action{
				InitiateChartChange{},
				ChartChangeError{},
			},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.IsLoadingChangedChartDetails)
				require.Equal(t, testCharts[0], s.CurrentEditor.SelectedChart)
			},
		},
		{
			name: "restoring the last saved template",
			actions: []Action{
				CurrentEditorValueChange{Template: "replicas: [\n"},
				ToggleAppMetrics{},
				RestoreLastSavedTemplate{},
			},
			assertions: func(t *testing.T, s State) {
				require.Empty(t, s.CurrentEditor.ParsingError)
				require.Equal(t, "replicas: 1\nimage: nginx\n", s.CurrentEditor.EditorTemplate)
				require.False(t, s.CurrentEditor.IsAppMetricsEnabled)
				require.False(t, AreChangesPresent(s, lockedkeys.NewCodec()))
			},
		},
		{
			name: "restoring the last saved template with locked keys hidden",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				return s
			},
			actions: []Action{
				UpdateHideLockedKeys{HideLockedKeys: true},
				CurrentEditorValueChange{Template: "replicas: 5\n"},
				RestoreLastSavedTemplate{},
			},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.HideLockedKeys)
				require.Equal(t, "replicas: 1\n", s.CurrentEditor.EditorTemplate)
				require.Len(t, s.CurrentEditor.RemovedPatches, 1)
				require.False(t, AreChangesPresent(s, lockedkeys.NewCodec()))
			},
		},
		{
			name:  "overriding with the replace strategy starts from the base",
			envID: 5,
			state: func(s State) State {
				s.Published.IsOverridden = false
				s.Published.EditorTemplate = ""
				s.CurrentEditor = NewEditorState(s.Published)
				return s
			},
			actions: []Action{OverrideTemplate{}},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.CurrentEditor.IsOverridden)
				require.Equal(t, s.Base.EditorTemplate, s.CurrentEditor.EditorTemplate)
			},
		},
		{
			name:  "overriding with the patch strategy starts empty",
			envID: 5,
			state: func(s State) State {
				s.Published.IsOverridden = false
				s.Published.EditorTemplate = ""
				s.Published.MergeStrategy = MergeStrategyPatch
				s.CurrentEditor = NewEditorState(s.Published)
				return s
			},
			actions: []Action{OverrideTemplate{}},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.CurrentEditor.IsOverridden)
				require.Empty(t, s.CurrentEditor.EditorTemplate)
			},
		},
		{
			name:  "dropping a local override",
			envID: 5,
			state: func(s State) State {
				s.Published.IsOverridden = false
				s.Published.EditorTemplate = ""
				s.CurrentEditor = NewEditorState(s.Published)
				return s
			},
			actions: []Action{OverrideTemplate{}, DeleteLocalOverride{}},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.CurrentEditor.IsOverridden)
				require.Empty(t, s.CurrentEditor.EditorTemplate)
			},
		},
		{
			name:  "switching to replace fills an empty override",
			envID: 5,
			state: func(s State) State {
				s.Published.IsOverridden = false
				s.Published.MergedTemplate = "replicas: 1\nimage: nginx\n"
				s.CurrentEditor.MergeStrategy = MergeStrategyPatch
				s.CurrentEditor.EditorTemplate = ""
				return s
			},
			actions: []Action{UpdateMergeStrategy{Strategy: MergeStrategyReplace}},
			assertions: func(t *testing.T, s State) {
				require.Equal(t, MergeStrategyReplace, s.CurrentEditor.MergeStrategy)
				require.Equal(t, "replicas: 1\nimage: nginx\n", s.CurrentEditor.EditorTemplate)
			},
		},
		{
			name:  "switching to patch keeps the editor",
			envID: 5,
			actions: []Action{
				CurrentEditorValueChange{Template: "replicas: 4\n"},
				UpdateMergeStrategy{Strategy: MergeStrategyPatch},
			},
			assertions: func(t *testing.T, s State) {
				require.Equal(t, MergeStrategyPatch, s.CurrentEditor.MergeStrategy)
				require.Equal(t, "replicas: 4\n", s.CurrentEditor.EditorTemplate)
			},
		},
		{
			name: "changing tabs shows locked keys and drops resolved values",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				return s
			},
			actions: []Action{
				UpdateHideLockedKeys{HideLockedKeys: true},
				InitiateResolveScopedVariables{},
				ToggleShowComparisonWithMergedPatches{},
				UpdateConfigHeaderTab{Tab: ConfigHeaderTabDryRun},
			},
			assertions: func(t *testing.T, s State) {
				require.Equal(t, ConfigHeaderTabDryRun, s.HeaderTab)
				require.False(t, s.HideLockedKeys)
				require.False(t, s.ResolveScopedVariables)
				require.False(t, s.IsResolvingVariables)
				require.False(t, s.ShouldMergeTemplateWithPatches)
				require.Equal(t, "replicas: 1\nimage: nginx\n", s.CurrentEditor.EditorTemplate)
			},
		},
		{
			name: "resolving scoped variables",
			actions: []Action{
				InitiateResolveScopedVariables{},
				ResolveScopedVariables{
					Editor: ResolvedTemplate{OriginalTemplateString: "replicas: 9\n"},
				},
			},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.ResolveScopedVariables)
				require.False(t, s.IsResolvingVariables)
				require.Equal(t, "replicas: 9\n", s.ResolvedEditorTemplate.OriginalTemplateString)
			},
		},
		{
			name:    "deleting an override with an approval policy",
			envID:   5,
			actions: []Action{ShowDeleteOverrideDialog{IsApprovalPolicyConfigured: true}},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.ShowDeleteDraftOverrideDialog)
				require.False(t, s.ShowDeleteOverrideDialog)
			},
		},
		{
			name:    "deleting an override without an approval policy",
			envID:   5,
			actions: []Action{ShowDeleteOverrideDialog{}},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.ShowDeleteDraftOverrideDialog)
				require.True(t, s.ShowDeleteOverrideDialog)
			},
		},
		{
			name:  "deleting an override after it became protected",
			envID: 5,
			actions: []Action{
				ShowDeleteOverrideDialog{},
				DeleteOverrideConcurrentProtectionError{},
			},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.ShowDeleteDraftOverrideDialog)
				require.False(t, s.ShowDeleteOverrideDialog)
			},
		},
		{
			name: "save rejected because the configuration became protected",
			actions: []Action{
				InitiateSave{},
				SaveError{IsProtectionError: true},
			},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.IsSaving)
				require.True(t, s.ShowSaveChangesModal)
			},
		},
		{
			name: "save rejected because of locked keys",
			actions: []Action{
				LockedChangesDetectedOnSave{},
				InitiateSave{},
				FinishSave{IsLockConfigError: true},
			},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.IsSaving)
				require.True(t, s.LockedDiffModal.ShowLockedTemplateDiffModal)
			},
		},
		{
			name: "closing the locked diff modal",
			actions: []Action{
				ShowLockedDiffForApproval{},
				ShowProtectedSaveModal{},
				CloseLockedDiffModal{},
			},
			assertions: func(t *testing.T, s State) {
				require.Equal(t, LockedDiffModalState{}, s.LockedDiffModal)
				require.False(t, s.ShowSaveChangesModal)
			},
		},
		{
			name: "draft API refusing locked changes",
			actions: []Action{
				ShowProtectedSaveModal{},
				LockChangesDetectedFromDraftAPI{},
			},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.ShowSaveChangesModal)
				require.True(t, s.LockedDiffModal.ShowLockedTemplateDiffModal)
				require.False(t, s.LockedDiffModal.ShowLockedDiffForApproval)
			},
		},
		{
			name: "popups",
			actions: []Action{
				ShowEditHistory{},
				ShowDiscardDraftPopup{},
			},
			assertions: func(t *testing.T, s State) {
				require.Equal(t, PopupNodeDiscardDraft, s.PopupNode)
				require.Equal(t, PopupNodeNone, NewReducer(features.Defaults()).Reduce(s, ClearPopupNode{}).PopupNode)
			},
		},
		{
			name: "showing the readme leaves the GUI form",
			state: func(s State) State {
				s.EditMode = EditModeGUI
				return s
			},
			actions: []Action{UpdateReadmeMode{ShowReadme: true}},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.ShowReadme)
				require.Equal(t, EditModeYAML, s.EditMode)
			},
		},
		{
			name:  "merged templates of patch overrides",
			envID: 5,
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				s.Published.MergeStrategy = MergeStrategyPatch
				return s
			},
			actions: []Action{
				InitiateLoadingMergedTemplate{
					EditorStates:        []EditorStateKey{EditorStatePublished},
					CurrentEditorParsed: document.MustParse("replicas: 9\n"),
				},
			},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.Published.IsLoadingMergedTemplate)
				require.Equal(t, "replicas: 9\n", s.CurrentEditor.MergedTemplate)

				s = NewReducer(testCapabilities()).Reduce(s, LoadMergedTemplate{
					EditorStates:    []EditorStateKey{EditorStatePublished},
					MergedTemplates: []*document.Node{document.MustParse("replicas: 1\nimage: nginx\nport: 80\n")},
				})
				require.False(t, s.Published.IsLoadingMergedTemplate)
				require.Equal(t, "replicas: 1\nimage: nginx\nport: 80\n", s.Published.MergedTemplate)
				require.Equal(t, "replicas: 1\nport: 80\n", s.Published.MergedTemplateWithoutLockedKeys)
			},
		},
		{
			name: "failed merge of the current editor",
			actions: []Action{
				InitiateLoadingMergedTemplate{EditorStates: []EditorStateKey{EditorStateCurrent}},
				MergedTemplateFetchError{Err: errors.New("boom")},
			},
			assertions: func(t *testing.T, s State) {
				require.False(t, s.CurrentEditor.IsLoadingMergedTemplate)
				require.Equal(t, "boom", s.CurrentEditor.MergedTemplateError)
			},
		},
		{
			name: "schema warnings follow the editor",
			state: func(s State) State {
				s.CurrentEditor.Schema = json.RawMessage(
					`{"type":"object","properties":{"replicas":{"type":"integer"}}}`,
				)
				return s
			},
			actions: []Action{CurrentEditorValueChange{Template: "replicas: two\n"}},
			assertions: func(t *testing.T, s State) {
				require.Len(t, s.SchemaWarnings, 1)
				require.Contains(t, s.SchemaWarnings[0], "replicas")

				s = NewReducer(testCapabilities()).Reduce(s, CurrentEditorValueChange{Template: "replicas: 2\n"})
				require.Empty(t, s.SchemaWarnings)
			},
		},
		{
			name: "reset",
			actions: []Action{
				CurrentEditorValueChange{Template: "replicas: 2\n"},
				ResetAll{IsSuperAdmin: true},
			},
			assertions: func(t *testing.T, s State) {
				require.True(t, s.IsLoadingInitialData)
				require.Nil(t, s.CurrentEditor)
				require.Equal(t, EditModeYAML, s.EditMode)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			s := loadedState(testCase.envID)
			if testCase.state != nil {
				s = testCase.state(s)
			}
			r := NewReducer(testCapabilities())
			testCase.assertions(t, reduceAll(r, s, testCase.actions...))
		})
	}
}

func TestReducerInitializeTemplates(t *testing.T) {
	r := NewReducer(testCapabilities())
	draft := newDraftSnapshot("replicas: 3\n", DraftStateAwaitApproval, DraftActionUpdate)
	draft.LatestDraft.CommentsCount = 2

	s := reduceAll(r, InitialState(false),
		InitiateInitialDataLoad{},
		InitializeTemplates{
			Published:     newSnapshot("replicas: 1\n"),
			Draft:         draft,
			CurrentEditor: NewEditorState(draft),
			LockedKeys:    lockedkeys.Config{Paths: []string{"image"}},
			HeaderTab:     ConfigHeaderTabDryRun,
			ProtectionTab: ProtectConfigTabCompare,
		},
	)
	require.False(t, s.IsLoadingInitialData)
	require.NoError(t, s.InitialLoadError)
	require.Equal(t, ConfigHeaderTabDryRun, s.HeaderTab)
	require.Equal(t, ProtectConfigTabCompare, s.ProtectionTab)
	require.True(t, s.AreCommentsPresent)
	require.Equal(t, "replicas: 3\n", s.CurrentEditor.EditorTemplate)

	s = r.Reduce(s, InitialDataError{Err: errors.New("boom")})
	require.EqualError(t, s.InitialLoadError, "boom")
}

func TestReducerLeavesInputUntouched(t *testing.T) {
	r := NewReducer(testCapabilities())
	s := loadedState(5)
	s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
	s.Published.MergeStrategy = MergeStrategyPatch
	beforeEditor := s.CurrentEditor.DeepCopy()
	beforePublished := s.Published.DeepCopy()

	next := reduceAll(r, s,
		UpdateHideLockedKeys{HideLockedKeys: true},
		CurrentEditorValueChange{Template: "replicas: 2\n"},
		InitiateLoadingMergedTemplate{EditorStates: []EditorStateKey{EditorStatePublished, EditorStateBase}},
		UpdateMergeStrategy{Strategy: MergeStrategyPatch},
		ToggleAppMetrics{},
	)
	require.NotSame(t, s.CurrentEditor, next.CurrentEditor)
	require.NotSame(t, s.Published, next.Published)
	require.Equal(t, beforeEditor, s.CurrentEditor)
	require.Equal(t, beforePublished, s.Published)
	require.False(t, s.HideLockedKeys)
}

func TestNewReducerWithoutCodec(t *testing.T) {
	r := NewReducer(features.Capabilities{})
	require.Equal(t, lockedkeys.NoopCodec{}, r.Codec())

	s := loadedState(0)
	s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
	s = r.Reduce(s, UpdateHideLockedKeys{HideLockedKeys: true})
	require.Equal(t, "replicas: 1\nimage: nginx\n", s.CurrentEditor.EditorTemplate)
	require.Empty(t, s.CurrentEditor.RemovedPatches)
}
