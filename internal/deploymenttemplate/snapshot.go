package deploymenttemplate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

// ChartReferences is the chart catalog of an application, as returned by
// the chart reference API.
type ChartReferences struct {
	ChartRefs         []ChartVersion           `json:"chartRefs"`
	LatestAppChartRef int                      `json:"latestAppChartRef"`
	LatestEnvChartRef int                      `json:"latestEnvChartRef"`
	ChartMetadata     map[string]ChartMetadata `json:"chartMetadata"`
}

// Details returns the chart catalog together with the chart the document
// currently uses. The environment chart wins over the application chart.
func (c ChartReferences) Details() (ChartDetails, ChartVersion, error) {
	details := ChartDetails{
		Charts:            SortCharts(c.ChartRefs),
		ChartsMetadata:    c.ChartMetadata,
		LatestAppChartRef: c.LatestAppChartRef,
	}
	if details.ChartsMetadata == nil {
		details.ChartsMetadata = map[string]ChartMetadata{}
	}
	global, ok := details.Find(c.LatestAppChartRef)
	if !ok {
		return ChartDetails{}, ChartVersion{}, fmt.Errorf(
			"application chart reference %d not found in chart catalog", c.LatestAppChartRef,
		)
	}
	details.GlobalChartDetails = global
	selectedID := c.LatestEnvChartRef
	if selectedID == 0 {
		selectedID = c.LatestAppChartRef
	}
	selected, ok := details.Find(selectedID)
	if !ok {
		return ChartDetails{}, ChartVersion{}, fmt.Errorf(
			"chart reference %d not found in chart catalog", selectedID,
		)
	}
	return details, selected, nil
}

// Find returns the chart version with the given id.
func (c ChartDetails) Find(id int) (ChartVersion, bool) {
	for _, chart := range c.Charts {
		if chart.ID == id {
			return chart, true
		}
	}
	return ChartVersion{}, false
}

// GlobalConfig is the persisted base template.
type GlobalConfig struct {
	ID                      int             `json:"id"`
	RefChartTemplate        string          `json:"refChartTemplate"`
	RefChartTemplateVersion string          `json:"refChartTemplateVersion"`
	ChartRefID              int             `json:"chartRefId"`
	DefaultAppOverride      json.RawMessage `json:"defaultAppOverride"`
	IsAppMetricsEnabled     bool            `json:"isAppMetricsEnabled"`
	Readme                  string          `json:"readme"`
	Schema                  json.RawMessage `json:"schema"`
}

// BaseTemplateResponse is the base template API response.
type BaseTemplateResponse struct {
	GlobalConfig GlobalConfig `json:"globalConfig"`
	GUISchema    string       `json:"guiSchema"`
}

// EnvironmentConfigResponse is the persisted environment override.
type EnvironmentConfigResponse struct {
	ID                     int             `json:"id"`
	Status                 int             `json:"status"`
	ManualReviewed         bool            `json:"manualReviewed"`
	Active                 bool            `json:"active"`
	Namespace              string          `json:"namespace"`
	EnvOverrideValues      json.RawMessage `json:"envOverrideValues"`
	EnvOverridePatchValues json.RawMessage `json:"envOverridePatchValues"`
	MergeStrategy          MergeStrategy   `json:"mergeStrategy"`
	MigratedFrom           string          `json:"migratedFrom"`
}

// EnvOverrideResponse is the environment override API response.
type EnvOverrideResponse struct {
	GlobalConfig      json.RawMessage            `json:"globalConfig"`
	EnvironmentConfig *EnvironmentConfigResponse `json:"environmentConfig"`
	GUISchema         string                     `json:"guiSchema"`
	IsOverride        bool                       `json:"IsOverride"`
	Schema            json.RawMessage            `json:"schema"`
	Readme            string                     `json:"readme"`
	AppMetrics        bool                       `json:"appMetrics"`
}

// Redactor hides the locked keys of rendered templates. It fails open:
// whenever redaction is not possible the template is returned unchanged.
type Redactor struct {
	Codec lockedkeys.Codec
	Paths []string
}

// Redact returns template without its locked keys and the operations that
// put them back.
func (r Redactor) Redact(template string) (string, document.Patch) {
	if r.Codec == nil || len(r.Paths) == 0 || template == "" {
		return template, nil
	}
	res, err := r.Codec.Redact(template, r.Paths)
	if err != nil {
		return template, nil
	}
	return res.Text, res.AddOperations
}

func (r Redactor) without(template string) string {
	out, _ := r.Redact(template)
	return out
}

// NewBaseSnapshot builds the snapshot of a base template.
func NewBaseSnapshot(
	res BaseTemplateResponse,
	chart ChartVersion,
	r Redactor,
) (*TemplateSnapshot, error) {
	cfg := res.GlobalConfig
	doc, err := decodeDocument(cfg.DefaultAppOverride)
	if err != nil {
		return nil, fmt.Errorf("error decoding base template: %w", err)
	}
	text, err := document.Stringify(doc)
	if err != nil {
		return nil, err
	}
	withoutLocked := r.without(text)
	return &TemplateSnapshot{
		OriginalTemplate:                doc,
		EditorTemplate:                  text,
		EditorTemplateWithoutLockedKeys: withoutLocked,
		Schema:                          normalizeRaw(cfg.Schema),
		GUISchema:                       res.GUISchema,
		Readme:                          cfg.Readme,
		IsAppMetricsEnabled:             cfg.IsAppMetricsEnabled,
		ChartConfig: ChartConfig{
			ID:                      cfg.ID,
			RefChartTemplate:        cfg.RefChartTemplate,
			RefChartTemplateVersion: cfg.RefChartTemplateVersion,
			ChartRefID:              cfg.ChartRefID,
			Readme:                  cfg.Readme,
		},
		SelectedChart:                   chart,
		SelectedChartRefID:              chart.ID,
		MergedTemplate:                  text,
		MergedTemplateObject:            document.Clone(doc),
		MergedTemplateWithoutLockedKeys: withoutLocked,
	}, nil
}

// NewEnvOverrideSnapshot builds the snapshot of an environment override. An
// environment without an override is treated as an override with no values.
func NewEnvOverrideSnapshot(
	res EnvOverrideResponse,
	chart ChartVersion,
	r Redactor,
) (*TemplateSnapshot, string, error) {
	env := EnvironmentConfigResponse{}
	if res.EnvironmentConfig != nil {
		env = *res.EnvironmentConfig
	}
	merged := res.GlobalConfig
	if res.IsOverride && !isAbsent(env.EnvOverrideValues) {
		merged = env.EnvOverrideValues
	}
	snapshot, err := newEnvOverrideCommon(envOverrideFields{
		environmentConfig: EnvironmentConfig{
			ID:             env.ID,
			Status:         env.Status,
			ManualReviewed: env.ManualReviewed,
			Active:         env.Active,
			Namespace:      env.Namespace,
		},
		mergeStrategy: env.MergeStrategy,
		patchValues:   env.EnvOverridePatchValues,
		mergedValues:  merged,
		isOverridden:  res.IsOverride,
	}, r)
	if err != nil {
		return nil, "", err
	}
	snapshot.Schema = normalizeRaw(res.Schema)
	snapshot.Readme = res.Readme
	snapshot.GUISchema = res.GUISchema
	snapshot.IsAppMetricsEnabled = res.AppMetrics
	snapshot.SelectedChart = chart
	snapshot.SelectedChartRefID = chart.ID
	return snapshot, env.MigratedFrom, nil
}

type envOverrideFields struct {
	environmentConfig EnvironmentConfig
	mergeStrategy     MergeStrategy
	patchValues       json.RawMessage
	mergedValues      json.RawMessage
	isOverridden      bool
}

func newEnvOverrideCommon(f envOverrideFields, r Redactor) (*TemplateSnapshot, error) {
	strategy := f.mergeStrategy
	if strategy == "" {
		strategy = DefaultMergeStrategy
	}
	patch, err := decodeDocument(f.patchValues)
	if err != nil {
		return nil, fmt.Errorf("error decoding override patch values: %w", err)
	}
	merged, err := decodeDocument(f.mergedValues)
	if err != nil {
		return nil, fmt.Errorf("error decoding override values: %w", err)
	}

	original := document.NewMapping()
	if f.isOverridden {
		original = merged
		if strategy == MergeStrategyPatch {
			original = patch
		}
	}
	text, err := document.Stringify(original)
	if err != nil {
		return nil, err
	}
	editorTemplate := text
	if document.IsEmpty(original) {
		editorTemplate = ""
	}
	mergedText, err := document.Stringify(merged)
	if err != nil {
		return nil, err
	}

	return &TemplateSnapshot{
		OriginalTemplate:                document.Clone(original),
		EditorTemplate:                  editorTemplate,
		EditorTemplateWithoutLockedKeys: r.without(text),
		EnvironmentConfig:               f.environmentConfig,
		MergeStrategy:                   strategy,
		MergedTemplate:                  mergedText,
		MergedTemplateObject:            merged,
		MergedTemplateWithoutLockedKeys: r.without(mergedText),
		IsOverridden:                    f.isOverridden,
	}, nil
}

// NewDraftSnapshot builds the snapshot of the latest draft. Drafts carry no
// GUI schema of their own, so the published one is used.
func NewDraftSnapshot(
	draft DraftMetadata,
	guiSchema string,
	charts ChartDetails,
	envID int,
	r Redactor,
) (*TemplateSnapshot, error) {
	latest := draft
	if envID == 0 {
		var data BaseTemplatePayload
		if err := json.Unmarshal([]byte(draft.Data), &data); err != nil {
			return nil, fmt.Errorf("error decoding draft %d: %w", draft.DraftID, err)
		}
		doc, err := decodeDocument(data.ValuesOverride)
		if err != nil {
			return nil, fmt.Errorf("error decoding draft %d values: %w", draft.DraftID, err)
		}
		text, err := document.Stringify(doc)
		if err != nil {
			return nil, err
		}
		chart, _ := charts.Find(data.ChartRefID)
		withoutLocked := r.without(text)
		return &TemplateSnapshot{
			OriginalTemplate:                doc,
			EditorTemplate:                  text,
			EditorTemplateWithoutLockedKeys: withoutLocked,
			Schema:                          normalizeRaw(data.Schema),
			Readme:                          data.Readme,
			GUISchema:                       guiSchema,
			IsAppMetricsEnabled:             data.IsAppMetricsEnabled,
			ChartConfig: ChartConfig{
				ID:                      data.ID,
				RefChartTemplate:        data.RefChartTemplate,
				RefChartTemplateVersion: data.RefChartTemplateVersion,
				ChartRefID:              data.ChartRefID,
				Readme:                  data.Readme,
			},
			LatestDraft:                     &latest,
			SelectedChart:                   chart,
			SelectedChartRefID:              data.ChartRefID,
			MergedTemplate:                  text,
			MergedTemplateObject:            document.Clone(doc),
			MergedTemplateWithoutLockedKeys: withoutLocked,
		}, nil
	}

	var data EnvOverridePayload
	if err := json.Unmarshal([]byte(draft.Data), &data); err != nil {
		return nil, fmt.Errorf("error decoding draft %d: %w", draft.DraftID, err)
	}
	snapshot, err := newEnvOverrideCommon(envOverrideFields{
		environmentConfig: EnvironmentConfig{
			ID:             data.ID,
			Status:         data.Status,
			ManualReviewed: data.ManualReviewed,
			Active:         data.Active,
			Namespace:      data.Namespace,
		},
		mergeStrategy: data.MergeStrategy,
		patchValues:   data.EnvOverridePatchValues,
		mergedValues:  data.EnvOverrideValues,
		isOverridden:  data.IsDraftOverriden != nil && *data.IsDraftOverriden,
	}, r)
	if err != nil {
		return nil, fmt.Errorf("error decoding draft %d: %w", draft.DraftID, err)
	}
	chart, _ := charts.Find(data.ChartRefID)
	snapshot.Schema = normalizeRaw(data.Schema)
	snapshot.Readme = data.Readme
	snapshot.GUISchema = guiSchema
	snapshot.IsAppMetricsEnabled = data.IsAppMetricsEnabled
	snapshot.LatestDraft = &latest
	snapshot.SelectedChart = chart
	snapshot.SelectedChartRefID = data.ChartRefID
	return snapshot, nil
}

// decodeDocument turns a JSON value into a document. Absent values and null
// become an empty mapping.
func decodeDocument(raw json.RawMessage) (*document.Node, error) {
	if isAbsent(raw) {
		return document.NewMapping(), nil
	}
	return document.FromJSON(raw)
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func normalizeRaw(raw json.RawMessage) json.RawMessage {
	if isAbsent(raw) {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
