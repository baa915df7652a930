package deploymenttemplate

import (
	"encoding/json"
	"fmt"

	"k8s.io/utils/ptr"

	"github.com/devtron-labs/dtconfig/internal/features"
	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

// BaseTemplatePayload is the request body that creates or updates the base
// deployment template. It is also the data of a base template draft.
type BaseTemplatePayload struct {
	ID                      int             `json:"id,omitempty"`
	RefChartTemplate        string          `json:"refChartTemplate,omitempty"`
	RefChartTemplateVersion string          `json:"refChartTemplateVersion,omitempty"`
	AppID                   int             `json:"appId"`
	ChartRefID              int             `json:"chartRefId"`
	DefaultAppOverride      json.RawMessage `json:"defaultAppOverride,omitempty"`
	IsAppMetricsEnabled     bool            `json:"isAppMetricsEnabled"`
	SaveEligibleChanges     bool            `json:"saveEligibleChanges"`
	ValuesOverride          json.RawMessage `json:"valuesOverride"`
	Readme                  string          `json:"readme,omitempty"`
	Schema                  json.RawMessage `json:"schema,omitempty"`
	ResourceName            string          `json:"resourceName"`
}

// EnvOverridePayload is the request body that creates or updates an
// environment override. It is also the data of an override draft.
type EnvOverridePayload struct {
	EnvironmentID          int             `json:"environmentId"`
	ChartRefID             int             `json:"chartRefId"`
	IsOverride             bool            `json:"IsOverride"`
	IsAppMetricsEnabled    bool            `json:"isAppMetricsEnabled"`
	SaveEligibleChanges    bool            `json:"saveEligibleChanges"`
	ID                     int             `json:"id,omitempty"`
	Status                 int             `json:"status,omitempty"`
	ManualReviewed         bool            `json:"manualReviewed,omitempty"`
	Active                 bool            `json:"active,omitempty"`
	Namespace              string          `json:"namespace,omitempty"`
	GlobalConfig           json.RawMessage `json:"globalConfig,omitempty"`
	IsDraftOverriden       *bool           `json:"isDraftOverriden,omitempty"`
	Readme                 string          `json:"readme,omitempty"`
	Schema                 json.RawMessage `json:"schema,omitempty"`
	MergeStrategy          MergeStrategy   `json:"mergeStrategy"`
	EnvOverrideValues      json.RawMessage `json:"envOverrideValues"`
	EnvOverridePatchValues json.RawMessage `json:"envOverridePatchValues,omitempty"`
	ResourceName           string          `json:"resourceName"`
}

// PayloadOptions parameterizes the payload builders.
type PayloadOptions struct {
	AppID int
	EnvID int
	// ResourceName names the document for the draft service.
	ResourceName string
	// SkipReadmeAndSchema leaves out the readme, the schema and the fields
	// only a draft carries. It is set when saving directly.
	SkipReadmeAndSchema bool
	// IsDeleteOverride builds the payload that reverts an override to the
	// base template.
	IsDeleteOverride bool
	// Codec restores hidden locked keys.
	Codec lockedkeys.Codec
	// Eligibility computes the changes that may be saved when only eligible
	// changes are to be saved. Nil sends the edited document as is.
	Eligibility features.EligibilityChecker
}

// BuildBasePayload builds the payload that saves the base template. The id
// is left out when the template has never been saved, which makes the
// backend create it.
func BuildBasePayload(s State, opts PayloadOptions) (BaseTemplatePayload, error) {
	e := s.CurrentEditor
	if e == nil {
		return BaseTemplatePayload{}, ErrNotLoaded
	}
	values, err := valuesToSave(s, opts)
	if err != nil {
		return BaseTemplatePayload{}, err
	}
	original, err := encodeDocument(e.OriginalTemplate)
	if err != nil {
		return BaseTemplatePayload{}, err
	}
	p := BaseTemplatePayload{
		AppID:               opts.AppID,
		ChartRefID:          e.SelectedChart.ID,
		DefaultAppOverride:  original,
		IsAppMetricsEnabled: e.IsAppMetricsEnabled,
		SaveEligibleChanges: s.LockedDiffModal.ShowLockedTemplateDiffModal,
		ValuesOverride:      values,
		ResourceName:        opts.ResourceName,
	}
	if e.ChartConfig.ChartRefID == e.SelectedChart.ID {
		p.ID = e.ChartConfig.ID
		p.RefChartTemplate = e.ChartConfig.RefChartTemplate
		p.RefChartTemplateVersion = e.ChartConfig.RefChartTemplateVersion
		p.Readme = e.ChartConfig.Readme
	}
	if !opts.SkipReadmeAndSchema {
		p.ID = e.ChartConfig.ID
		p.Readme = e.Readme
		p.Schema = normalizeRaw(e.Schema)
	}
	return p, nil
}

// BuildEnvOverridePayload builds the payload that saves an environment
// override. With IsDeleteOverride set, the payload reverts the override to
// the base template whatever the editor holds.
func BuildEnvOverridePayload(s State, opts PayloadOptions) (EnvOverridePayload, error) {
	e := s.CurrentEditor
	if e == nil {
		return EnvOverridePayload{}, ErrNotLoaded
	}
	if opts.IsDeleteOverride {
		return buildDeleteOverridePayload(s, opts)
	}
	values, err := valuesToSave(s, opts)
	if err != nil {
		return EnvOverridePayload{}, err
	}
	p := EnvOverridePayload{
		EnvironmentID:       opts.EnvID,
		ChartRefID:          e.SelectedChartRefID,
		IsOverride:          true,
		IsAppMetricsEnabled: e.IsAppMetricsEnabled,
		SaveEligibleChanges: s.LockedDiffModal.ShowLockedTemplateDiffModal,
		MergeStrategy:       e.MergeStrategy,
		EnvOverrideValues:   values,
		ResourceName:        opts.ResourceName,
	}
	withEnvironmentIdentity(&p, e.EnvironmentConfig)
	if !opts.SkipReadmeAndSchema {
		var base *document.Node
		if s.Base != nil {
			base = s.Base.OriginalTemplate
		}
		if p.GlobalConfig, err = encodeDocument(base); err != nil {
			return EnvOverridePayload{}, err
		}
		p.ID = e.EnvironmentConfig.ID
		p.IsDraftOverriden = ptr.To(e.IsOverridden)
		p.Readme = e.Readme
		p.Schema = normalizeRaw(e.Schema)
	}
	return p, nil
}

func buildDeleteOverridePayload(s State, opts PayloadOptions) (EnvOverridePayload, error) {
	if s.Base == nil {
		return EnvOverridePayload{}, ErrNotLoaded
	}
	values, err := encodeDocument(s.Base.OriginalTemplate)
	if err != nil {
		return EnvOverridePayload{}, err
	}
	p := EnvOverridePayload{
		EnvironmentID:       opts.EnvID,
		ChartRefID:          s.ChartDetails.GlobalChartDetails.ID,
		IsOverride:          false,
		IsAppMetricsEnabled: s.Base.IsAppMetricsEnabled,
		MergeStrategy:       MergeStrategyReplace,
		EnvOverrideValues:   values,
		ResourceName:        opts.ResourceName,
	}
	withEnvironmentIdentity(&p, s.CurrentEditor.EnvironmentConfig)
	if !opts.SkipReadmeAndSchema {
		p.ID = s.CurrentEditor.EnvironmentConfig.ID
		p.GlobalConfig = values
		p.IsDraftOverriden = ptr.To(false)
		p.Readme = s.Base.Readme
		p.Schema = normalizeRaw(s.Base.Schema)
	}
	return p, nil
}

// withEnvironmentIdentity marks p as an update of an existing override.
func withEnvironmentIdentity(p *EnvOverridePayload, env EnvironmentConfig) {
	if env.ID <= 0 {
		return
	}
	p.ID = env.ID
	p.Status = env.Status
	p.ManualReviewed = true
	p.Active = env.Active
	p.Namespace = env.Namespace
}

// valuesToSave returns the edited document with its locked keys restored,
// reduced to its eligible changes when only those are to be saved.
func valuesToSave(s State, opts PayloadOptions) (json.RawMessage, error) {
	if s.CurrentEditor.ParsingError != "" {
		return nil, ErrParsingError
	}
	text, err := CurrentTemplateWithLockedKeys(s, opts.Codec)
	if err != nil {
		return nil, fmt.Errorf("error restoring locked keys: %w", err)
	}
	edited, err := document.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsingError, err)
	}
	if s.LockedDiffModal.ShowLockedTemplateDiffModal && opts.Eligibility != nil {
		unedited := document.NewMapping()
		if s.Published != nil && s.Published.OriginalTemplate != nil {
			unedited = s.Published.OriginalTemplate
		}
		split, err := opts.Eligibility.Split(unedited, edited, s.LockedKeys)
		if err != nil {
			return nil, fmt.Errorf("error computing eligible changes: %w", err)
		}
		edited = split.EligibleChanges
	}
	return encodeDocument(edited)
}

func encodeDocument(n *document.Node) (json.RawMessage, error) {
	if n == nil {
		n = document.NewMapping()
	}
	data, err := document.ToJSON(n)
	if err != nil {
		return nil, fmt.Errorf("error encoding document: %w", err)
	}
	return data, nil
}
