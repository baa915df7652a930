package deploymenttemplate

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/devtron-labs/dtconfig/pkg/docdiff"
	"github.com/devtron-labs/dtconfig/pkg/document"
)

// MergeWithBase returns the values an override with the patch merge
// strategy resolves to: patch applied to base as a JSON merge patch. Keys
// keep the order they have in base.
func MergeWithBase(base, patch *document.Node) (*document.Node, error) {
	if base == nil {
		base = document.NewMapping()
	}
	if patch == nil {
		return document.Clone(base), nil
	}
	baseJSON, err := document.ToJSON(base)
	if err != nil {
		return nil, fmt.Errorf("error encoding base values: %w", err)
	}
	patchJSON, err := document.ToJSON(patch)
	if err != nil {
		return nil, fmt.Errorf("error encoding patch values: %w", err)
	}
	mergedJSON, err := jsonpatch.MergePatch(baseJSON, patchJSON)
	if err != nil {
		return nil, fmt.Errorf("error merging patch values onto base values: %w", err)
	}
	merged, err := document.FromJSON(mergedJSON)
	if err != nil {
		return nil, err
	}
	return docdiff.ApplyDiffOntoBase(base, merged)
}
