package deploymenttemplate

import (
	"errors"

	"github.com/devtron-labs/dtconfig/pkg/docdiff"
	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

var (
	// ErrNotLoaded is returned when an operation needs templates that have
	// not been loaded yet.
	ErrNotLoaded = errors.New("deployment template is not loaded")
	// ErrParsingError is returned when the editor holds YAML that does not
	// parse.
	ErrParsingError = errors.New("deployment template has a parsing error")
)

// CurrentTemplateWithLockedKeys returns the current editor text with hidden
// locked keys put back. When the text went through the GUI form or had keys
// hidden, the result follows the key order of the original document.
func CurrentTemplateWithLockedKeys(s State, codec lockedkeys.Codec) (string, error) {
	e := s.CurrentEditor
	if e == nil {
		return "", ErrNotLoaded
	}
	if len(e.RemovedPatches) == 0 || codec == nil {
		return e.EditorTemplate, nil
	}
	parsed, err := document.Parse(e.EditorTemplate)
	if err != nil {
		return "", err
	}
	restored, err := codec.Restore(parsed, e.RemovedPatches)
	if err != nil {
		return "", err
	}
	if s.WasGUIOrHideLockedKeysEdited {
		if restored, err = docdiff.ApplyDiffOntoBase(e.OriginalTemplate, restored); err != nil {
			return "", err
		}
	}
	return document.Stringify(restored)
}

// currentTemplateOrEditor is CurrentTemplateWithLockedKeys falling back to
// the raw editor text.
func currentTemplateOrEditor(s State, codec lockedkeys.Codec) string {
	if s.CurrentEditor == nil {
		return ""
	}
	text, err := CurrentTemplateWithLockedKeys(s, codec)
	if err != nil {
		return s.CurrentEditor.EditorTemplate
	}
	return text
}

// AreChangesPresent reports whether the current editor differs from the
// snapshot it was cloned from.
func AreChangesPresent(s State, codec lockedkeys.Codec) bool {
	e := s.CurrentEditor
	if e == nil || e.OriginalTemplateState == nil {
		return false
	}
	if e.ParsingError != "" {
		return true
	}
	original := e.OriginalTemplateState
	return currentTemplateOrEditor(s, codec) != original.EditorTemplate ||
		e.SelectedChartRefID != original.SelectedChartRefID ||
		e.IsAppMetricsEnabled != original.IsAppMetricsEnabled ||
		e.IsOverridden != original.IsOverridden ||
		e.MergeStrategy != original.MergeStrategy
}

// LockedDiffModalDocuments returns the documents whose difference the locked
// diff modal presents. An approver compares the draft with what is
// published; an author compares the current edits with it.
func LockedDiffModalDocuments(
	s State,
	isApprovalView bool,
	codec lockedkeys.Codec,
) (unedited *document.Node, edited *document.Node, err error) {
	if s.Published == nil || s.CurrentEditor == nil {
		return nil, nil, ErrNotLoaded
	}
	unedited = s.Published.OriginalTemplate
	if isApprovalView && s.Draft != nil {
		edited = s.Draft.OriginalTemplate
	} else {
		if edited, err = document.Parse(currentTemplateOrEditor(s, codec)); err != nil {
			return nil, nil, err
		}
	}
	if unedited == nil {
		unedited = document.NewMapping()
	}
	if edited == nil {
		edited = document.NewMapping()
	}
	return unedited, edited, nil
}

// ConfigField is one labelled value shown above a side of the compare view.
type ConfigField struct {
	Key         string
	DisplayName string
	Value       string
}

// CompareFromEditorConfig returns the fields describing each side of the
// compare view.
func CompareFromEditorConfig(
	s State,
	f ViewFlags,
	envID int,
	applicationMetricsEnabled bool,
) (current []ConfigField, published []ConfigField) {
	selected := s.Snapshot(EditorStateCurrent)
	if f.ShowApprovalPendingEditorInCompareView {
		selected = s.Draft
	}
	if f.IsDeleteOverrideDraft {
		selected = s.Base
	}
	if selected == nil {
		selected = &TemplateSnapshot{}
	}

	if envID != 0 && f.IsDeleteOverrideDraft {
		current = append(current, ConfigField{"isOverride", "Configuration", "Inherit from base"})
	}
	current = append(current,
		ConfigField{"chartName", "Chart", selected.SelectedChart.Name},
		ConfigField{"chartVersion", "Version", selected.SelectedChart.Version},
	)
	if envID != 0 && !f.IsDeleteOverrideDraft {
		current = append(current, ConfigField{"mergeStrategy", "Merge strategy", string(selected.MergeStrategy)})
	}
	if applicationMetricsEnabled {
		current = append(current, ConfigField{"applicationMetrics", "Application metrics", enabledText(selected.IsAppMetricsEnabled)})
	}

	if !f.IsPublishedConfigPresent || s.Published == nil {
		return current, nil
	}
	if envID != 0 && f.IsDeleteOverrideDraft {
		published = append(published, ConfigField{"isOverride", "Configuration", "Overridden"})
	}
	published = append(published,
		ConfigField{"chartName", "Chart", s.Published.SelectedChart.Name},
		ConfigField{"chartVersion", "Version", s.Published.SelectedChart.Version},
	)
	if envID != 0 {
		published = append(published, ConfigField{"mergeStrategy", "Merge strategy", string(s.Published.MergeStrategy)})
	}
	if applicationMetricsEnabled {
		published = append(published, ConfigField{"applicationMetrics", "Application metrics", enabledText(s.Published.IsAppMetricsEnabled)})
	}
	return current, published
}

func enabledText(enabled bool) string {
	if enabled {
		return "Enabled"
	}
	return "Disabled"
}

func hasPatchStrategy(s *TemplateSnapshot) bool {
	return s != nil && s.IsOverridden && s.MergeStrategy == MergeStrategyPatch
}

// EditorStatesWithPatchStrategy lists the snapshots that are overrides
// merged onto the base with the patch strategy.
func EditorStatesWithPatchStrategy(s State) []EditorStateKey {
	var keys []EditorStateKey
	for _, key := range []EditorStateKey{
		EditorStateCurrent,
		EditorStatePublished,
		EditorStateDraft,
		EditorStateBase,
	} {
		if hasPatchStrategy(s.Snapshot(key)) {
			keys = append(keys, key)
		}
	}
	return keys
}
