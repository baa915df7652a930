package deploymenttemplate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourceName(t *testing.T) {
	require.Equal(t, "BaseDeploymentTemplate", ResourceName(""))
	require.Equal(t, "prod-DeploymentTemplateOverride", ResourceName("prod"))
}

func TestParseHeaderTab(t *testing.T) {
	testCases := []struct {
		envID    int
		raw      string
		expected ConfigHeaderTab
	}{
		{raw: "values", expected: ConfigHeaderTabValues},
		{raw: "dry-run", expected: ConfigHeaderTabDryRun},
		{raw: "inherited", expected: ""},
		{envID: 5, raw: "inherited", expected: ConfigHeaderTabInherited},
		{envID: 5, raw: "compare", expected: ""},
		{raw: "", expected: ""},
	}
	for _, testCase := range testCases {
		t.Run(testCase.raw, func(t *testing.T) {
			require.Equal(t, testCase.expected, ParseHeaderTab(testCase.envID, testCase.raw))
		})
	}
}

func TestEditorSchemaURI(t *testing.T) {
	require.Equal(
		t,
		"https://github.com/devtron-labs/devtron/tree/main/scripts/devtron-reference-helm-charts/"+
			"deployment-chart_4-18-0/schema.json",
		EditorSchemaURI("Deployment", "4.18.0"),
	)
	require.Contains(t, EditorSchemaURI("Job & CronJob", "1.0.0"), "/cronjob-chart_1-0-0/")
	require.Empty(t, EditorSchemaURI("Custom", "1.0.0"))
	require.Empty(t, EditorSchemaURI("Deployment", ""))
}

func TestSortCharts(t *testing.T) {
	charts := []ChartVersion{
		{ID: 1, Name: "Rollout Deployment", Version: "3.9.0"},
		{ID: 2, Name: "Deployment", Version: "4.9.0"},
		{ID: 3, Name: "Rollout Deployment", Version: "3.10.0"},
		{ID: 4, Name: "Deployment", Version: "custom"},
		{ID: 5, Name: "Deployment", Version: "4.18.0"},
	}
	sorted := SortCharts(charts)
	require.Equal(t, []int{5, 2, 4, 3, 1}, chartIDs(sorted))
	// The input is left alone.
	require.Equal(t, []int{1, 2, 3, 4, 5}, chartIDs(charts))

	require.Equal(t, []int{5, 3}, chartIDs(LatestChartVersions(charts)))
	require.Empty(t, LatestChartVersions(nil))
}
