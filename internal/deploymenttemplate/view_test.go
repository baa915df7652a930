package deploymenttemplate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

func TestStateView(t *testing.T) {
	testCases := []struct {
		name     string
		state    func(State) State
		scope    Scope
		expected View
	}{
		{
			name:     "values tab without approval",
			state:    func(s State) State { return s },
			expected: ValuesView{Tab: ProtectConfigTabEditDraft},
		},
		{
			name: "protection tab is ignored without approval",
			state: func(s State) State {
				s.ProtectionTab = ProtectConfigTabCompare
				return s
			},
			expected: ValuesView{Tab: ProtectConfigTabEditDraft},
		},
		{
			name: "published tab with approval",
			state: func(s State) State {
				s.ProtectionTab = ProtectConfigTabPublished
				return s
			},
			scope:    Scope{ApprovalPolicyConfigured: true},
			expected: ValuesView{Tab: ProtectConfigTabPublished},
		},
		{
			name: "compare tab with approval",
			state: func(s State) State {
				s.ProtectionTab = ProtectConfigTabCompare
				s.CompareFrom = CompareFromDraft
				return s
			},
			scope:    Scope{ApprovalPolicyConfigured: true},
			expected: CompareView{From: CompareFromDraft},
		},
		{
			name: "dry run",
			state: func(s State) State {
				s.HeaderTab = ConfigHeaderTabDryRun
				s.DryRunMode = DryRunEditorModePublishedValues
				return s
			},
			scope:    Scope{ApprovalPolicyConfigured: true},
			expected: DryRunView{Mode: DryRunEditorModePublishedValues},
		},
		{
			name: "inherited tab of an environment",
			state: func(s State) State {
				s.HeaderTab = ConfigHeaderTabInherited
				return s
			},
			scope:    Scope{EnvID: 5},
			expected: InheritedView{},
		},
		{
			name: "inherited tab of the base configuration",
			state: func(s State) State {
				s.HeaderTab = ConfigHeaderTabInherited
				return s
			},
			expected: ValuesView{Tab: ProtectConfigTabEditDraft},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			s := testCase.state(InitialState(false))
			require.Equal(t, testCase.expected, s.View(testCase.scope))
		})
	}
}

func TestIsPublishedConfigPresent(t *testing.T) {
	overridden := newSnapshot("replicas: 2\n")
	overridden.IsOverridden = true
	inherited := newSnapshot("replicas: 1\n")
	// An override row that still exists while a draft deleting it awaits
	// approval.
	pendingDelete := newSnapshot("replicas: 1\n")
	pendingDelete.EnvironmentConfig.ID = 12

	testCases := []struct {
		name      string
		envID     int
		published *TemplateSnapshot
		expected  bool
	}{
		{
			name:      "base configuration",
			published: inherited,
			expected:  true,
		},
		{
			name:     "base configuration before anything is loaded",
			expected: true,
		},
		{
			name:      "overridden environment",
			envID:     5,
			published: overridden,
			expected:  true,
		},
		{
			name:      "environment inheriting the base",
			envID:     5,
			published: inherited,
			expected:  false,
		},
		{
			name:     "environment before anything is loaded",
			envID:    5,
			expected: false,
		},
		{
			name:      "override row exists but is not marked overridden",
			envID:     5,
			published: pendingDelete,
			expected:  false,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(
				t,
				testCase.expected,
				IsPublishedConfigPresent(testCase.envID, testCase.published),
			)
		})
	}
}

func TestResolveViewFlags(t *testing.T) {
	testCases := []struct {
		name       string
		envID      int
		state      func(State) State
		scope      Scope
		assertions func(*testing.T, ViewFlags, EditorStateKey)
	}{
		{
			name:  "editing the base configuration",
			state: func(s State) State { return s },
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsValuesView)
				require.True(t, f.IsEditMode)
				require.True(t, f.IsGUISupported)
				require.True(t, f.IsUpdateView)
				require.True(t, f.IsPublishedConfigPresent)
				require.False(t, f.DisableCodeEditor)
				require.False(t, f.ShowNoOverrideTab)
				require.Equal(t, EditorStateCurrent, key)
			},
		},
		{
			name: "resolved variables disable the code editor",
			state: func(s State) State {
				s.ResolveScopedVariables = true
				return s
			},
			assertions: func(t *testing.T, f ViewFlags, _ EditorStateKey) {
				require.True(t, f.IsEditMode)
				require.True(t, f.DisableCodeEditor)
			},
		},
		{
			name: "draft awaiting approval compared with published",
			state: func(s State) State {
				s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateAwaitApproval, DraftActionUpdate)
				s.ProtectionTab = ProtectConfigTabCompare
				s.CompareFrom = CompareFromApprovalPending
				return s
			},
			scope: Scope{ApprovalPolicyConfigured: true},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsValuesView)
				require.True(t, f.IsCompareView)
				require.True(t, f.IsDraftAvailable)
				require.True(t, f.IsApprovalPending)
				require.True(t, f.IsApprovalView)
				require.True(t, f.ShowApprovalPendingEditorInCompareView)
				require.False(t, f.IsEditMode)
				require.True(t, f.DisableCodeEditor)
				require.Equal(t, EditorStateDraft, key)
			},
		},
		{
			name: "draft awaiting approval compared with local edits",
			state: func(s State) State {
				s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateAwaitApproval, DraftActionUpdate)
				s.ProtectionTab = ProtectConfigTabCompare
				s.CompareFrom = CompareFromDraft
				return s
			},
			scope: Scope{ApprovalPolicyConfigured: true},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsApprovalView)
				require.False(t, f.ShowApprovalPendingEditorInCompareView)
				require.Equal(t, EditorStateCurrent, key)
			},
		},
		{
			name: "draft ignored without approval policy",
			state: func(s State) State {
				s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateAwaitApproval, DraftActionUpdate)
				s.ProtectionTab = ProtectConfigTabCompare
				return s
			},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.False(t, f.IsDraftAvailable)
				require.False(t, f.IsCompareView)
				require.True(t, f.IsEditMode)
				require.Equal(t, EditorStateCurrent, key)
			},
		},
		{
			name:  "environment inheriting the base",
			envID: 5,
			state: func(s State) State {
				s.Published.IsOverridden = false
				s.CurrentEditor.IsOverridden = false
				return s
			},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.ShowNoOverrideTab)
				require.True(t, f.ShowNoOverrideEmptyState)
				require.False(t, f.IsPublishedConfigPresent)
				require.False(t, f.IsUpdateView)
				require.Equal(t, EditorStateCurrent, key)
			},
		},
		{
			name:  "environment overridden locally",
			envID: 5,
			state: func(s State) State {
				s.Published.IsOverridden = false
				s.CurrentEditor.IsOverridden = true
				return s
			},
			assertions: func(t *testing.T, f ViewFlags, _ EditorStateKey) {
				require.False(t, f.ShowNoOverrideTab)
				require.False(t, f.IsPublishedConfigPresent)
			},
		},
		{
			name:  "saved environment override",
			envID: 5,
			state: func(s State) State {
				s.CurrentEditor.EnvironmentConfig.ID = 7
				return s
			},
			assertions: func(t *testing.T, f ViewFlags, _ EditorStateKey) {
				require.True(t, f.IsUpdateView)
				require.True(t, f.IsPublishedConfigPresent)
			},
		},
		{
			name:  "inherited tab",
			envID: 5,
			state: func(s State) State {
				s.HeaderTab = ConfigHeaderTabInherited
				return s
			},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsInheritedView)
				require.False(t, f.IsValuesView)
				require.True(t, f.DisableCodeEditor)
				require.Equal(t, EditorStateBase, key)
			},
		},
		{
			name:  "pending delete override draft while editing",
			envID: 5,
			state: func(s State) State {
				s.Draft = newDraftSnapshot("", DraftStateInit, DraftActionDelete)
				return s
			},
			scope: Scope{ApprovalPolicyConfigured: true},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsDeleteOverrideDraft)
				require.True(t, f.ShowDeleteOverrideDraftEmptyState)
				require.False(t, f.IsGUISupported)
				require.True(t, f.IsPublishedConfigPresent)
				require.Equal(t, EditorStateNone, key)
			},
		},
		{
			name:  "pending delete override draft in the published tab",
			envID: 5,
			state: func(s State) State {
				s.Draft = newDraftSnapshot("", DraftStateAwaitApproval, DraftActionDelete)
				s.ProtectionTab = ProtectConfigTabPublished
				return s
			},
			scope: Scope{ApprovalPolicyConfigured: true},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsDeleteOverrideDraft)
				require.True(t, f.IsPublishedValuesView)
				require.True(t, f.IsPublishedConfigPresent)
				require.False(t, f.ShowNoPublishedVersionEmptyState)
				require.Equal(t, EditorStatePublished, key)
			},
		},
		{
			name:  "pending delete override draft compared with published",
			envID: 5,
			state: func(s State) State {
				s.Draft = newDraftSnapshot("", DraftStateAwaitApproval, DraftActionDelete)
				s.ProtectionTab = ProtectConfigTabCompare
				return s
			},
			scope: Scope{ApprovalPolicyConfigured: true},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.ShowApprovalPendingEditorInCompareView)
				require.Equal(t, EditorStateBase, key)
			},
		},
		{
			name:  "draft of an override that is not published yet",
			envID: 5,
			state: func(s State) State {
				s.Published.IsOverridden = false
				s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateInit, DraftActionAdd)
				s.ProtectionTab = ProtectConfigTabPublished
				return s
			},
			scope: Scope{ApprovalPolicyConfigured: true},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsPublishedValuesView)
				require.False(t, f.IsPublishedConfigPresent)
				require.True(t, f.ShowNoPublishedVersionEmptyState)
				require.False(t, f.ShowNoOverrideTab)
				require.Equal(t, EditorStateNone, key)
			},
		},
		{
			name:  "dry run of an environment inheriting the base",
			envID: 5,
			state: func(s State) State {
				s.HeaderTab = ConfigHeaderTabDryRun
				s.Published.IsOverridden = false
				s.CurrentEditor.IsOverridden = false
				return s
			},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsDryRunView)
				require.True(t, f.ShouldUseMergedTemplate)
				require.Equal(t, EditorStateBase, key)
			},
		},
		{
			name:  "dry run of published values",
			envID: 5,
			state: func(s State) State {
				s.HeaderTab = ConfigHeaderTabDryRun
				s.DryRunMode = DryRunEditorModePublishedValues
				s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateInit, DraftActionUpdate)
				return s
			},
			scope: Scope{ApprovalPolicyConfigured: true},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsPublishedValuesView)
				require.Equal(t, EditorStatePublished, key)
			},
		},
		{
			name: "dry run of a draft awaiting approval",
			state: func(s State) State {
				s.HeaderTab = ConfigHeaderTabDryRun
				s.DryRunMode = DryRunEditorModeApprovalPending
				s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateAwaitApproval, DraftActionUpdate)
				return s
			},
			scope: Scope{ApprovalPolicyConfigured: true},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.IsApprovalView)
				require.Equal(t, EditorStateDraft, key)
			},
		},
		{
			name: "locked changes are validated",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				return s
			},
			scope: Scope{LockEligibility: true},
			assertions: func(t *testing.T, f ViewFlags, _ EditorStateKey) {
				require.True(t, f.ShouldValidateLockChanges)
			},
		},
		{
			name: "super admins skip lock validation",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				return s
			},
			scope: Scope{LockEligibility: true, IsSuperAdmin: true},
			assertions: func(t *testing.T, f ViewFlags, _ EditorStateKey) {
				require.False(t, f.ShouldValidateLockChanges)
			},
		},
		{
			name: "unset applications skip lock validation",
			state: func(s State) State {
				s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
				s.ChartDetails.LatestAppChartRef = 0
				return s
			},
			scope: Scope{LockEligibility: true},
			assertions: func(t *testing.T, f ViewFlags, _ EditorStateKey) {
				require.True(t, f.IsUnSet)
				require.False(t, f.ShouldValidateLockChanges)
			},
		},
		{
			name: "compare merged with patches",
			state: func(s State) State {
				s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateInit, DraftActionUpdate)
				s.ProtectionTab = ProtectConfigTabCompare
				s.ShouldMergeTemplateWithPatches = true
				return s
			},
			scope: Scope{ApprovalPolicyConfigured: true},
			assertions: func(t *testing.T, f ViewFlags, key EditorStateKey) {
				require.True(t, f.ShouldUseMergedTemplate)
				require.False(t, f.IsApprovalView)
				require.Equal(t, EditorStateCurrent, key)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			s := testCase.state(loadedState(testCase.envID))
			scope := testCase.scope
			scope.EnvID = testCase.envID
			f := ResolveViewFlags(s, scope)
			testCase.assertions(t, f, ResolveCurrentEditorState(s, f))
		})
	}
}

// Every combination of selections resolves to a snapshot that exists, or to
// nothing.
func TestResolveCurrentEditorStateIsTotal(t *testing.T) {
	drafts := []*TemplateSnapshot{
		nil,
		newDraftSnapshot("replicas: 3\n", DraftStateInit, DraftActionUpdate),
		newDraftSnapshot("replicas: 3\n", DraftStateAwaitApproval, DraftActionUpdate),
		newDraftSnapshot("", DraftStateInit, DraftActionDelete),
		newDraftSnapshot("", DraftStateAwaitApproval, DraftActionDelete),
	}
	for _, envID := range []int{0, 5} {
		for _, approval := range []bool{false, true} {
			for _, draft := range drafts {
				for _, overridden := range []bool{false, true} {
					for _, header := range []ConfigHeaderTab{
						ConfigHeaderTabValues,
						ConfigHeaderTabInherited,
						ConfigHeaderTabDryRun,
					} {
						for _, tab := range []ProtectConfigTab{
							ProtectConfigTabPublished,
							ProtectConfigTabCompare,
							ProtectConfigTabEditDraft,
						} {
							for _, mode := range []DryRunEditorMode{
								DryRunEditorModeValuesFromDraft,
								DryRunEditorModePublishedValues,
								DryRunEditorModeApprovalPending,
							} {
								for _, from := range []CompareFromOption{
									CompareFromApprovalPending,
									CompareFromDraft,
								} {
									s := loadedState(envID)
									s.Draft = draft
									s.Published.IsOverridden = overridden
									s.HeaderTab = header
									s.ProtectionTab = tab
									s.DryRunMode = mode
									s.CompareFrom = from
									scope := Scope{EnvID: envID, ApprovalPolicyConfigured: approval}

									switch s.View(scope).(type) {
									case ValuesView, InheritedView, DryRunView, CompareView:
									default:
										t.Fatalf("unexpected view %T", s.View(scope))
									}
									f := ResolveViewFlags(s, scope)
									key := ResolveCurrentEditorState(s, f)
									require.Contains(t, []EditorStateKey{
										EditorStateNone,
										EditorStateCurrent,
										EditorStatePublished,
										EditorStateDraft,
										EditorStateBase,
									}, key)
									if key != EditorStateNone {
										require.NotNil(t, s.Snapshot(key), "%s resolved to a missing snapshot", key)
									}
									if f.ShowNoPublishedVersionEmptyState {
										require.False(t, f.IsPublishedConfigPresent)
									}
									require.NotPanics(t, func() {
										_ = DisplayedEditorValue(s, f)
										_ = CompareViewPublishedTemplate(s, f)
										_ = UneditedDocument(s, f)
									})
								}
							}
						}
					}
				}
			}
		}
	}
}

func TestDisplayedEditorValue(t *testing.T) {
	testCases := []struct {
		name     string
		state    func(State) State
		scope    Scope
		expected string
	}{
		{
			name:     "current editor text",
			state:    func(s State) State { return s },
			expected: "replicas: 1\nimage: nginx\n",
		},
		{
			name: "current editor text already has locked keys hidden",
			state: func(s State) State {
				s.HideLockedKeys = true
				s.CurrentEditor.EditorTemplate = "replicas: 1\n"
				return s
			},
			expected: "replicas: 1\n",
		},
		{
			name: "published text without locked keys",
			state: func(s State) State {
				s.HideLockedKeys = true
				s.Published.EditorTemplateWithoutLockedKeys = "replicas: 1\n"
				s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateInit, DraftActionUpdate)
				s.ProtectionTab = ProtectConfigTabPublished
				return s
			},
			scope:    Scope{ApprovalPolicyConfigured: true},
			expected: "replicas: 1\n",
		},
		{
			name: "resolved text",
			state: func(s State) State {
				s.ResolveScopedVariables = true
				s.ResolvedEditorTemplate = ResolvedTemplate{
					OriginalTemplateString:    "replicas: 4\n",
					TemplateWithoutLockedKeys: "{}\n",
				}
				return s
			},
			expected: "replicas: 4\n",
		},
		{
			name: "merged text in the dry run",
			state: func(s State) State {
				s.HeaderTab = ConfigHeaderTabDryRun
				s.CurrentEditor.MergedTemplate = "replicas: 1\nimage: nginx\nport: 80\n"
				return s
			},
			expected: "replicas: 1\nimage: nginx\nport: 80\n",
		},
		{
			name: "nothing to show",
			state: func(s State) State {
				s.Published.IsOverridden = false
				s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateInit, DraftActionAdd)
				s.ProtectionTab = ProtectConfigTabPublished
				return s
			},
			scope:    Scope{EnvID: 5, ApprovalPolicyConfigured: true},
			expected: "",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			s := loadedState(testCase.scope.EnvID)
			s.Published = newSnapshot("replicas: 1\nimage: nginx\n")
			s.Published.IsOverridden = testCase.scope.EnvID != 0
			s.CurrentEditor = NewEditorState(s.Published)
			s = testCase.state(s)
			require.Equal(
				t,
				testCase.expected,
				DisplayedEditorValue(s, ResolveViewFlags(s, testCase.scope)),
			)
		})
	}
}

func TestCompareViewPublishedTemplate(t *testing.T) {
	s := loadedState(0)
	s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateInit, DraftActionUpdate)
	s.ProtectionTab = ProtectConfigTabCompare
	s.Published.MergedTemplate = "replicas: 1\nmerged: true\n"
	scope := Scope{ApprovalPolicyConfigured: true}

	require.Equal(t, s.Published.EditorTemplate, CompareViewPublishedTemplate(s, ResolveViewFlags(s, scope)))

	s.ShouldMergeTemplateWithPatches = true
	require.Equal(t, "replicas: 1\nmerged: true\n", CompareViewPublishedTemplate(s, ResolveViewFlags(s, scope)))

	s.Published.IsOverridden = false
	scope.EnvID = 5
	require.Empty(t, CompareViewPublishedTemplate(s, ResolveViewFlags(s, scope)))
}

func TestShouldShowMergePatchesToggle(t *testing.T) {
	s := loadedState(5)
	s.Draft = newDraftSnapshot("replicas: 3\n", DraftStateInit, DraftActionUpdate)
	s.ProtectionTab = ProtectConfigTabCompare
	scope := Scope{EnvID: 5, ApprovalPolicyConfigured: true}

	require.False(t, ShouldShowMergePatchesToggle(s, ResolveViewFlags(s, scope)))

	s.Published.MergeStrategy = MergeStrategyPatch
	require.True(t, ShouldShowMergePatchesToggle(s, ResolveViewFlags(s, scope)))

	s.ProtectionTab = ProtectConfigTabEditDraft
	require.False(t, ShouldShowMergePatchesToggle(s, ResolveViewFlags(s, scope)))
}

func TestResolveEditorPayloadForScopedVariables(t *testing.T) {
	codec := lockedkeys.NewCodec()
	s := loadedState(0)
	s.LockedKeys = lockedkeys.Config{Paths: []string{"image"}}
	s.Published = newSnapshot("replicas: 1\nimage: nginx\n")
	s.CurrentEditor = NewEditorState(s.Published)
	s = NewReducer(testCapabilities()).Reduce(s, UpdateHideLockedKeys{HideLockedKeys: true})
	require.Equal(t, "replicas: 1\n", s.CurrentEditor.EditorTemplate)

	f := ResolveViewFlags(s, Scope{})
	require.Equal(t, "replicas: 1\nimage: nginx\n", ResolveEditorPayloadForScopedVariables(s, f, codec))
}
